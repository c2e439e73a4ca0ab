package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	mlerrors "github.com/missionlens/missionlens/internal/errors"
	"github.com/missionlens/missionlens/pkg/types"
)

// DefaultMaxRowErrors caps the row errors kept in a LoadReport.
const DefaultMaxRowErrors = 100

// SourceKind identifies how a source file is decoded.
type SourceKind string

const (
	KindCSV       SourceKind = "csv"
	KindSnappyCSV SourceKind = "csv+snappy"
	KindSQLite    SourceKind = "sqlite"
)

// LoadReport summarizes a load. Skipped rows are always counted even when
// the RowErrors list has been capped.
type LoadReport struct {
	Source    string                    `json:"source"`
	Kind      SourceKind                `json:"kind"`
	Rows      int                       `json:"rows"`
	Skipped   int                       `json:"skipped"`
	RowErrors []*mlerrors.RowParseError `json:"row_errors,omitempty"`
	Duration  time.Duration             `json:"duration"`
}

// Option configures a load.
type Option func(*options)

type options struct {
	logger       *zap.Logger
	maxRowErrors int
	sqliteTable  string
}

func defaultOptions() options {
	return options{
		logger:       zap.NewNop(),
		maxRowErrors: DefaultMaxRowErrors,
		sqliteTable:  "missions",
	}
}

// WithLogger sets the logger used for load summaries.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.logger = log
		}
	}
}

// WithMaxRowErrors caps the number of row errors kept in the report.
func WithMaxRowErrors(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRowErrors = n
		}
	}
}

// WithSQLiteTable sets the table read from SQLite sources.
func WithSQLiteTable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.sqliteTable = name
		}
	}
}

// DetectKind picks the decoder for path from its extension.
func DetectKind(path string) (SourceKind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", "":
		return KindCSV, nil
	case ".sz", ".snappy":
		return KindSnappyCSV, nil
	case ".db", ".sqlite", ".sqlite3":
		return KindSQLite, nil
	default:
		return "", mlerrors.NewLoadError(mlerrors.CodeUnsupportedKind,
			fmt.Sprintf("unsupported source extension %q", filepath.Ext(path)), nil)
	}
}

// Load reads the missions source at path into an immutable Table.
// It fails with a LOAD error when the source is missing, unreadable or lacks
// required columns. Malformed rows are excluded and listed in the report.
func Load(ctx context.Context, path string, opts ...Option) (*Table, *LoadReport, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	kind, err := DetectKind(path)
	if err != nil {
		return nil, nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, mlerrors.NewLoadError(mlerrors.CodeSourceMissing,
				fmt.Sprintf("source %s does not exist", path), err)
		}
		return nil, nil, mlerrors.NewLoadError(mlerrors.CodeSourceUnreadable,
			fmt.Sprintf("stat %s", path), err)
	}
	if info.IsDir() {
		return nil, nil, mlerrors.NewLoadError(mlerrors.CodeSourceUnreadable,
			fmt.Sprintf("source %s is a directory", path), nil)
	}

	start := time.Now()
	var c *collector
	switch kind {
	case KindSQLite:
		c, err = readSQLite(ctx, path, o)
	default:
		c, err = readCSVFile(ctx, path, kind, o)
	}
	if err != nil {
		return nil, nil, err
	}

	return c.finish(path, kind, start, o.logger)
}

// LoadReader reads CSV from r. name is used only in the report and logs.
func LoadReader(ctx context.Context, r io.Reader, name string, opts ...Option) (*Table, *LoadReport, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	c, err := readCSV(ctx, r, name, o)
	if err != nil {
		return nil, nil, err
	}
	return c.finish(name, KindCSV, start, o.logger)
}

// collector accumulates parsed missions and row errors for one load.
type collector struct {
	missions     []types.Mission
	skipped      int
	rowErrors    []*mlerrors.RowParseError
	maxRowErrors int
}

func newCollector(o options) *collector {
	return &collector{maxRowErrors: o.maxRowErrors}
}

func (c *collector) add(r rawRow) {
	m, rowErr := parseMission(r)
	if rowErr != nil {
		c.reject(rowErr)
		return
	}
	c.missions = append(c.missions, m)
}

func (c *collector) reject(err *mlerrors.RowParseError) {
	c.skipped++
	if len(c.rowErrors) < c.maxRowErrors {
		c.rowErrors = append(c.rowErrors, err)
	}
}

func (c *collector) finish(source string, kind SourceKind, start time.Time, log *zap.Logger) (*Table, *LoadReport, error) {
	table := NewTable(c.missions)
	report := &LoadReport{
		Source:    source,
		Kind:      kind,
		Rows:      table.Len(),
		Skipped:   c.skipped,
		RowErrors: c.rowErrors,
		Duration:  time.Since(start),
	}

	log.Info("dataset loaded",
		zap.String("source", source),
		zap.String("kind", string(kind)),
		zap.Int("rows", report.Rows),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration))
	if report.Skipped > 0 {
		log.Warn("rows excluded from dataset",
			zap.Int("skipped", report.Skipped),
			zap.Errors("first_errors", firstErrors(c.rowErrors, 5)))
	}

	return table, report, nil
}

// resolveHeader maps header names to canonical columns and verifies that every
// required column is present. Unknown headers are ignored; duplicates keep the
// first occurrence.
func resolveHeader(headers []string) ([]types.Column, error) {
	cols := make([]types.Column, len(headers))
	found := make(map[types.Column]bool)
	for i, h := range headers {
		col, err := types.ParseColumn(h)
		if err != nil || found[col] {
			continue
		}
		cols[i] = col
		found[col] = true
	}

	var missing []string
	for _, req := range types.RequiredColumns() {
		if !found[req] {
			missing = append(missing, string(req))
		}
	}
	if len(missing) > 0 {
		return nil, mlerrors.NewLoadError(mlerrors.CodeMissingColumns,
			"missing required columns: "+strings.Join(missing, ", "), nil).
			WithDetails(map[string]interface{}{"missing": missing})
	}
	return cols, nil
}

func firstErrors(errs []*mlerrors.RowParseError, n int) []error {
	if len(errs) < n {
		n = len(errs)
	}
	out := make([]error, n)
	for i := 0; i < n; i++ {
		out[i] = errs[i]
	}
	return out
}
