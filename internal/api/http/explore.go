package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/missionlens/missionlens/internal/config"
	"github.com/missionlens/missionlens/internal/dataset"
	"github.com/missionlens/missionlens/internal/engine"
	mlerrors "github.com/missionlens/missionlens/internal/errors"
	"github.com/missionlens/missionlens/internal/observability"
	"github.com/missionlens/missionlens/pkg/types"
)

// DateLayout is the layout of dates in requests.
const DateLayout = "2006-01-02"

// maxBodyBytes bounds the size of an explore request body.
const maxBodyBytes = 1 << 20

// CriteriaRequest is the wire form of engine.Criteria. Dates use DateLayout;
// an empty bound is open.
type CriteriaRequest struct {
	From             string   `json:"from,omitempty"`
	To               string   `json:"to,omitempty"`
	Companies        []string `json:"companies,omitempty"`
	Statuses         []string `json:"statuses,omitempty"`
	Locations        []string `json:"locations,omitempty"`
	LocationContains string   `json:"location_contains,omitempty"`
	Rockets          []string `json:"rockets,omitempty"`
	RocketContains   string   `json:"rocket_contains,omitempty"`
}

// AggregateRequest asks for one aggregate view. Missing years default to the
// dataset's year span and a missing top_n to the configured default.
type AggregateRequest struct {
	Kind      string `json:"kind"`
	StartYear *int   `json:"start_year,omitempty"`
	EndYear   *int   `json:"end_year,omitempty"`
	TopN      *int   `json:"top_n,omitempty"`
}

// SortRequest orders the returned rows.
type SortRequest struct {
	Column    string `json:"column"`
	Direction string `json:"direction,omitempty"`
}

// ExploreRequest represents a POST /v1/explore request.
type ExploreRequest struct {
	Criteria   CriteriaRequest    `json:"criteria"`
	Aggregates []AggregateRequest `json:"aggregates,omitempty"`
	Sort       *SortRequest       `json:"sort,omitempty"`
	Limit      int                `json:"limit,omitempty"`
}

// ExploreResponse represents the explore response.
type ExploreResponse struct {
	Total     int             `json:"total"`
	Returned  int             `json:"returned"`
	Rows      []types.Mission `json:"rows"`
	Views     []engine.View   `json:"views"`
	RequestID string          `json:"request_id"`
}

// ExploreHandler handles POST /v1/explore requests.
type ExploreHandler struct {
	table *dataset.Table
	stats *observability.FilterStats
	cfg   config.ExploreConfig
}

// NewExploreHandler creates a new explore handler. stats may be nil.
func NewExploreHandler(table *dataset.Table, stats *observability.FilterStats, cfg config.ExploreConfig) *ExploreHandler {
	return &ExploreHandler{
		table: table,
		stats: stats,
		cfg:   cfg,
	}
}

// ServeHTTP handles the explore HTTP request.
func (h *ExploreHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", RequestID: requestID})
		return
	}

	var req ExploreRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrorResponse{
			Error:     fmt.Sprintf("invalid request body: %v", err),
			Code:      mlerrors.CodeInvalidArgument,
			RequestID: requestID,
		})
		return
	}

	q, err := h.toQuery(req)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	h.record(q)

	result, err := engine.Explore(h.table, q)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, ExploreResponse{
		Total:     result.Total,
		Returned:  len(result.Rows),
		Rows:      result.Rows,
		Views:     result.Views,
		RequestID: requestID,
	})
}

// toQuery validates req and converts it to an engine query.
func (h *ExploreHandler) toQuery(req ExploreRequest) (engine.Query, error) {
	var q engine.Query

	c, err := toCriteria(req.Criteria)
	if err != nil {
		return q, err
	}
	q.Criteria = c

	for _, a := range req.Aggregates {
		agg, err := h.toAggregate(a)
		if err != nil {
			return q, err
		}
		q.Aggregates = append(q.Aggregates, agg)
	}

	if req.Sort != nil {
		col, err := types.ParseColumn(req.Sort.Column)
		if err != nil {
			return q, mlerrors.NewInvalidArgumentError(err.Error())
		}
		dir, err := engine.ParseDirection(req.Sort.Direction)
		if err != nil {
			return q, err
		}
		q.Sort = &engine.SortSpec{Column: col, Direction: dir}
	}

	if req.Limit < 0 {
		return q, mlerrors.NewInvalidArgumentError(fmt.Sprintf("limit must be >= 0, got %d", req.Limit))
	}
	q.Limit = req.Limit
	if h.cfg.MaxRows > 0 && (q.Limit == 0 || q.Limit > h.cfg.MaxRows) {
		q.Limit = h.cfg.MaxRows
	}
	return q, nil
}

func toCriteria(req CriteriaRequest) (engine.Criteria, error) {
	c := engine.Criteria{
		Companies:        req.Companies,
		Locations:        req.Locations,
		LocationContains: strings.TrimSpace(req.LocationContains),
		Rockets:          req.Rockets,
		RocketContains:   strings.TrimSpace(req.RocketContains),
	}

	var err error
	if c.Dates.From, err = parseDate("from", req.From); err != nil {
		return c, err
	}
	if c.Dates.To, err = parseDate("to", req.To); err != nil {
		return c, err
	}

	for _, s := range req.Statuses {
		st, err := types.ParseStatus(s)
		if err != nil {
			return c, mlerrors.NewInvalidArgumentError(err.Error())
		}
		c.Statuses = append(c.Statuses, st)
	}
	return c, nil
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, mlerrors.NewInvalidArgumentError(
			fmt.Sprintf("criteria.%s: %q is not a %s date", field, s, DateLayout))
	}
	return t, nil
}

func (h *ExploreHandler) toAggregate(req AggregateRequest) (engine.AggregateSpec, error) {
	kind, err := engine.ParseKind(req.Kind)
	if err != nil {
		return engine.AggregateSpec{}, err
	}

	p := engine.Params{TopN: h.cfg.DefaultTopN}
	if req.TopN != nil {
		p.TopN = *req.TopN
	}

	if kind == engine.KindCountsByYear || kind == engine.KindAveragePerYear {
		start, end, ok := h.table.YearSpan()
		if req.StartYear != nil {
			start = *req.StartYear
		}
		if req.EndYear != nil {
			end = *req.EndYear
		}
		if !ok && (req.StartYear == nil || req.EndYear == nil) {
			return engine.AggregateSpec{}, mlerrors.NewInvalidArgumentError(
				fmt.Sprintf("%s needs start_year and end_year on an empty dataset", kind))
		}
		p.Years = engine.YearRange{Start: start, End: end}
	}

	return engine.AggregateSpec{Kind: kind, Params: p}, nil
}

// record counts which filters and aggregates the query uses.
func (h *ExploreHandler) record(q engine.Query) {
	if h.stats == nil {
		return
	}
	h.stats.RecordQuery()

	c := q.Criteria
	if !c.Dates.IsZero() {
		h.stats.RecordFilter(string(types.ColumnDate), "range")
	}
	if len(c.Companies) > 0 {
		h.stats.RecordFilter(string(types.ColumnCompany), "in")
	}
	if len(c.Statuses) > 0 {
		h.stats.RecordFilter(string(types.ColumnStatus), "in")
	}
	if len(c.Locations) > 0 {
		h.stats.RecordFilter(string(types.ColumnLocation), "in")
	}
	if c.LocationContains != "" {
		h.stats.RecordFilter(string(types.ColumnLocation), "contains")
	}
	if len(c.Rockets) > 0 {
		h.stats.RecordFilter(string(types.ColumnRocket), "in")
	}
	if c.RocketContains != "" {
		h.stats.RecordFilter(string(types.ColumnRocket), "contains")
	}
	for _, a := range q.Aggregates {
		h.stats.RecordAggregate(string(a.Kind))
	}
}

// writeEngineError maps query errors to 400 and everything else to 500.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Error: err.Error(), RequestID: GetRequestID(r.Context())}

	var me *mlerrors.MissionError
	if errors.As(err, &me) {
		resp.Code = me.Code
		resp.Details = me.Details
	}

	status := http.StatusInternalServerError
	if mlerrors.GetCategory(err) == mlerrors.ErrCategoryQuery {
		status = http.StatusBadRequest
	}
	writeError(w, r, status, resp)
}
