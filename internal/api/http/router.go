package http

import (
	"net/http"

	"github.com/missionlens/missionlens/internal/config"
	"github.com/missionlens/missionlens/internal/dataset"
	"github.com/missionlens/missionlens/internal/observability"
)

// NewRouter registers every API route on a new mux behind the given middleware.
func NewRouter(table *dataset.Table, stats *observability.FilterStats, cfg config.ExploreConfig, middleware func(http.Handler) http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/v1/explore", middleware(NewExploreHandler(table, stats, cfg)))
	mux.Handle("/v1/domain", middleware(NewDomainHandler(table)))
	mux.Handle("/v1/stats", middleware(NewStatsHandler(stats)))
	mux.HandleFunc("/health", HealthHandler(table))
	return mux
}
