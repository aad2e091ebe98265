package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"visitroute/internal/opt"
	"visitroute/internal/planner"
	"visitroute/internal/schedule"
	"visitroute/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Status   int      `json:"status"`
	Detail   string   `json:"detail,omitempty"`
	Instance string   `json:"instance,omitempty"`
	Fields   []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeProblemBody(w, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

func writeProblemBody(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *schedule.ValidationError
		lre *opt.LocationResolutionError
		pue *planner.PositionUnavailableError
		due *planner.DirectionsUnavailableError
		sre *store.StorageReadError
	)
	path := r.URL.Path
	switch {
	case errors.As(err, &ve):
		writeProblemBody(w, Problem{Type: "about:blank", Title: "Invalid client", Status: http.StatusUnprocessableEntity, Detail: ve.Error(), Instance: path, Fields: ve.Fields})
	case errors.Is(err, planner.ErrNoClientsScheduled):
		writeProblem(w, http.StatusNotFound, "No clients scheduled today", err.Error(), path)
	case errors.Is(err, planner.ErrMapServiceUnavailable):
		writeProblem(w, http.StatusServiceUnavailable, "Map service unavailable", err.Error(), path)
	case errors.As(err, &lre):
		writeProblem(w, http.StatusUnprocessableEntity, "Address could not be located", err.Error(), path)
	case errors.As(err, &pue):
		writeProblem(w, http.StatusBadRequest, "Current position unavailable", err.Error(), path)
	case errors.As(err, &due):
		writeProblem(w, http.StatusBadGateway, "Directions unavailable", err.Error(), path)
	case errors.Is(err, schedule.ErrClientNotFound):
		writeProblem(w, http.StatusNotFound, "Client not found", err.Error(), path)
	case errors.Is(err, schedule.ErrNoPendingDelete):
		writeProblem(w, http.StatusConflict, "No delete pending", err.Error(), path)
	case errors.As(err, &sre):
		writeProblem(w, http.StatusInternalServerError, "Stored data unreadable", err.Error(), path)
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal error", err.Error(), path)
	}
}
