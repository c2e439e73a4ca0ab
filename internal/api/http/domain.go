package http

import (
	"net/http"
	"strconv"

	"github.com/missionlens/missionlens/internal/dataset"
	"github.com/missionlens/missionlens/internal/engine"
	"github.com/missionlens/missionlens/internal/observability"
	"github.com/missionlens/missionlens/pkg/types"
)

// DomainResponse lists the values a presentation layer can offer as filter
// choices.
type DomainResponse struct {
	Missions  int            `json:"missions"`
	MinDate   string         `json:"min_date,omitempty"`
	MaxDate   string         `json:"max_date,omitempty"`
	Companies []string       `json:"companies"`
	Rockets   []string       `json:"rockets"`
	Locations []string       `json:"locations"`
	Statuses  []types.Status `json:"statuses"`
	Columns   []types.Column `json:"columns"`
	Kinds     []engine.Kind  `json:"aggregate_kinds"`
	RequestID string         `json:"request_id"`
}

// DomainHandler handles GET /v1/domain requests.
type DomainHandler struct {
	table *dataset.Table
}

// NewDomainHandler creates a new domain handler.
func NewDomainHandler(table *dataset.Table) *DomainHandler {
	return &DomainHandler{table: table}
}

// ServeHTTP handles the domain HTTP request.
func (h *DomainHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", RequestID: requestID})
		return
	}

	resp := DomainResponse{
		Missions:  h.table.Len(),
		Companies: h.table.Companies(),
		Rockets:   h.table.Rockets(),
		Locations: h.table.Locations(),
		Statuses:  h.table.Statuses(),
		Kinds:     engine.Kinds,
		RequestID: requestID,
	}
	for _, def := range types.Schema {
		resp.Columns = append(resp.Columns, def.Name)
	}
	if h.table.Len() > 0 {
		resp.MinDate = h.table.MinDate().Format(DateLayout)
		resp.MaxDate = h.table.MaxDate().Format(DateLayout)
	}

	// Empty lists encode as [] rather than null
	if resp.Companies == nil {
		resp.Companies = []string{}
	}
	if resp.Rockets == nil {
		resp.Rockets = []string{}
	}
	if resp.Locations == nil {
		resp.Locations = []string{}
	}
	if resp.Statuses == nil {
		resp.Statuses = []types.Status{}
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// StatsResponse reports how the dataset has been explored.
type StatsResponse struct {
	Queries    int64                      `json:"queries"`
	Filters    []observability.UsageStats `json:"filters"`
	Aggregates []observability.UsageStats `json:"aggregates"`
	RequestID  string                     `json:"request_id"`
}

// StatsHandler handles GET /v1/stats requests.
type StatsHandler struct {
	stats *observability.FilterStats
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(stats *observability.FilterStats) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// ServeHTTP handles the stats HTTP request. The optional "top" query
// parameter limits each list, default 10.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", RequestID: requestID})
		return
	}

	top := 10
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, ErrorResponse{
				Error:     "top must be a non-negative integer",
				RequestID: requestID,
			})
			return
		}
		top = n
	}

	writeJSON(w, r, http.StatusOK, StatsResponse{
		Queries:    h.stats.Queries(),
		Filters:    h.stats.TopFilters(top),
		Aggregates: h.stats.TopAggregates(top),
		RequestID:  requestID,
	})
}

// HealthHandler returns a health check handler reporting the loaded table size.
func HealthHandler(table *dataset.Table) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "missionlens",
			"missions": table.Len(),
		})
	}
}
