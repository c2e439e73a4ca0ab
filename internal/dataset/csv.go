package dataset

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"

	mlerrors "github.com/missionlens/missionlens/internal/errors"
	"github.com/missionlens/missionlens/pkg/types"
)

func readCSVFile(ctx context.Context, path string, kind SourceKind, o options) (*collector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mlerrors.NewLoadError(mlerrors.CodeSourceUnreadable,
			fmt.Sprintf("open %s", path), err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if kind == KindSnappyCSV {
		// Framed snappy stream, as written by snappy.NewBufferedWriter
		r = snappy.NewReader(r)
	}
	return readCSV(ctx, r, path, o)
}

// readCSV reads a header row followed by mission rows. Structural CSV errors
// on a single record reject that record only; I/O errors abort the load.
func readCSV(ctx context.Context, r io.Reader, name string, o options) (*collector, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, mlerrors.NewLoadError(mlerrors.CodeSourceUnreadable,
			fmt.Sprintf("%s is empty", name), nil)
	}
	if err != nil {
		return nil, mlerrors.NewLoadError(mlerrors.CodeSourceUnreadable,
			fmt.Sprintf("read header of %s", name), err)
	}

	cols, err := resolveHeader(headers)
	if err != nil {
		return nil, err
	}

	c := newCollector(o)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				c.reject(&mlerrors.RowParseError{Line: pe.Line, Reason: pe.Err.Error()})
				continue
			}
			return nil, mlerrors.NewLoadError(mlerrors.CodeSourceUnreadable,
				fmt.Sprintf("read %s", name), err)
		}

		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}
		if len(record) != len(cols) {
			c.reject(&mlerrors.RowParseError{
				Line:   line,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(cols), len(record)),
			})
			continue
		}

		row := rawRow{line: line, values: make(map[types.Column]string, len(cols))}
		for i, col := range cols {
			if col != "" {
				row.values[col] = record[i]
			}
		}
		c.add(row)
	}

	return c, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if f != "" {
			return false
		}
	}
	return true
}
