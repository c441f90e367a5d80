package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"compras/internal/ledger"
	"compras/internal/log"
)

type summaryJSON struct {
	Period     string `json:"period"`
	TotalSpent string `json:"total_spent"`
	TotalItems int    `json:"total_items"`
	SpentWidth int    `json:"spent_width"`
	ItemsWidth int    `json:"items_width"`
}

// handleSummary serves per-period totals, oldest first, for the chart
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.ledger.Summaries(r.Context())
	if err != nil {
		s.logFailure(r, "Failed to summarize periods", err, log.OpList)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": messageFor(err)})
		return
	}

	bars := ledger.BarScale(summaries)
	out := make([]summaryJSON, 0, len(bars))
	for _, b := range bars {
		out = append(out, summaryJSON{
			Period:     b.Period.String(),
			TotalSpent: b.TotalSpent.StringFixed(2),
			TotalItems: b.TotalItems,
			SpentWidth: b.SpentWidth,
			ItemsWidth: b.ItemsWidth,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady checks templates and the database
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]string{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.readiness != nil {
		if err := s.readiness.Ping(ctx); err != nil {
			checks["database"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
