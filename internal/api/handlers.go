package api

import (
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/go-chi/chi/v5"

    "visitroute/internal/export"
    "visitroute/internal/model"
    "visitroute/internal/opt"
    "visitroute/internal/planner"
    "visitroute/internal/schedule"
)

const maxImportBytes = 10 << 20

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

// ReadyHandler pings every configured backend (postgres, redis).
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    for name, p := range s.Checks {
        ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
        err := p.Ping(ctx)
        cancel()
        if err != nil { writeProblem(w, 503, "Not Ready", name+": "+err.Error(), r.URL.Path); return }
    }
    writeJSON(w, 200, map[string]any{"status": "ready", "maps": s.Maps != nil && s.Maps.Ready()})
}

// ListClientsHandler handles GET /v1/clients
func (s *Server) ListClientsHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{"items": s.Schedule.All()})
}

// SaveClientHandler handles POST /v1/clients (create, or update when id is set)
func (s *Server) SaveClientHandler(w http.ResponseWriter, r *http.Request) {
    var in model.ClientInput
    if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    c, created, err := s.Schedule.Save(r.Context(), in)
    if err != nil { writeError(w, r, err); return }
    status := http.StatusOK
    if created { status = http.StatusCreated }
    writeJSON(w, status, c)
}

// GetClientHandler handles GET /v1/clients/{id}
func (s *Server) GetClientHandler(w http.ResponseWriter, r *http.Request) {
    c, ok := s.Schedule.Get(chi.URLParam(r, "id"))
    if !ok { writeProblem(w, http.StatusNotFound, "Client not found", "", r.URL.Path); return }
    writeJSON(w, http.StatusOK, c)
}

// DeleteClientHandler handles POST /v1/clients/{id}/delete. Removal needs a
// request followed by two confirm actions.
func (s *Server) DeleteClientHandler(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    var req deleteRequest
    if r.ContentLength != 0 {
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
    }
    if err := normalizeDeleteAction(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid delete action", err.Error(), r.URL.Path)
        return
    }
    var err error
    switch req.Action {
    case "request":
        st, e := s.Schedule.RequestDelete(id)
        if e == nil { writeJSON(w, http.StatusOK, map[string]any{"id": id, "state": st.String()}); return }
        err = e
    case "confirm":
        st, e := s.Schedule.ConfirmDelete(r.Context(), id)
        if e == nil { writeJSON(w, http.StatusOK, map[string]any{"id": id, "state": st.String(), "deleted": st == schedule.Confirmed}); return }
        err = e
    case "cancel":
        st := s.Schedule.CancelDelete(id)
        writeJSON(w, http.StatusOK, map[string]any{"id": id, "state": st.String()})
        return
    }
    writeError(w, r, err)
}

// TodayHandler handles GET /v1/schedule/today
func (s *Server) TodayHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{"date": s.Schedule.TodayKey(), "items": s.Schedule.Today()})
}

// UpcomingHandler handles GET /v1/schedule/upcoming
func (s *Server) UpcomingHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{"days": s.Schedule.Upcoming()})
}

type routeResponse struct {
    model.RoutePlan
    Lines     []string `json:"lines"`
    OrderText string   `json:"orderText"`
}

func newRouteResponse(p model.RoutePlan) routeResponse {
    return routeResponse{RoutePlan: p, Lines: opt.SummaryLines(p.Clients), OrderText: opt.OrderText(p.Clients)}
}

// PlanRouteHandler handles POST /v1/route/today. The device sends its own
// position as {"origin":{"lat":..,"lng":..}}.
func (s *Server) PlanRouteHandler(w http.ResponseWriter, r *http.Request) {
    var req planRequest
    if r.ContentLength != 0 {
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
    }
    pos := planner.PositionFunc(func(ctx context.Context) (model.GeoPoint, error) {
        if err := validateOrigin(req.Origin); err != nil {
            return model.GeoPoint{}, err
        }
        return *req.Origin, nil
    })

    gen := s.Tracker.Begin()
    plan, err := s.Planner.PlanToday(r.Context(), pos)
    if err != nil {
        writeError(w, r, err)
        return
    }
    if !s.Tracker.Commit(gen, plan) {
        writeProblem(w, http.StatusConflict, "Superseded", "a newer planning run started", r.URL.Path)
        return
    }
    resp := newRouteResponse(plan)
    s.Broker.Publish(TopicEvents, Event{Type: EventRoutePlanned, Data: resp})
    writeJSON(w, http.StatusOK, resp)
}

// LatestRouteHandler handles GET /v1/route/today
func (s *Server) LatestRouteHandler(w http.ResponseWriter, r *http.Request) {
    plan, ok := s.Tracker.Latest()
    if !ok { writeProblem(w, http.StatusNotFound, "No route planned", "", r.URL.Path); return }
    writeJSON(w, http.StatusOK, newRouteResponse(plan))
}

// OpenRouteHandler redirects to the navigation deep link.
func (s *Server) OpenRouteHandler(w http.ResponseWriter, r *http.Request) {
    plan, ok := s.Tracker.Latest()
    if !ok || plan.Summary.MapsURL == "" { writeProblem(w, http.StatusNotFound, "No route planned", "", r.URL.Path); return }
    http.Redirect(w, r, plan.Summary.MapsURL, http.StatusFound)
}

// RouteOrderTextHandler serves the visit order as plain text for copying.
func (s *Server) RouteOrderTextHandler(w http.ResponseWriter, r *http.Request) {
    plan, ok := s.Tracker.Latest()
    if !ok { writeProblem(w, http.StatusNotFound, "No route planned", "", r.URL.Path); return }
    w.Header().Set("Content-Type", "text/plain; charset=utf-8")
    _, _ = io.WriteString(w, opt.OrderText(plan.Clients))
}

// AutocompleteHandler handles GET /v1/places/autocomplete?input=
func (s *Server) AutocompleteHandler(w http.ResponseWriter, r *http.Request) {
    if s.Maps == nil || !s.Maps.Ready() { writeError(w, r, planner.ErrMapServiceUnavailable); return }
    preds, err := s.Maps.Autocomplete(r.Context(), r.URL.Query().Get("input"))
    if err != nil { writeProblem(w, http.StatusBadGateway, "Autocomplete failed", err.Error(), r.URL.Path); return }
    writeJSON(w, http.StatusOK, map[string]any{"items": preds})
}

// PlaceDetailsHandler resolves an autocomplete selection into a draft place.
func (s *Server) PlaceDetailsHandler(w http.ResponseWriter, r *http.Request) {
    if s.Maps == nil || !s.Maps.Ready() { writeError(w, r, planner.ErrMapServiceUnavailable); return }
    place, err := s.Maps.PlaceDetails(r.Context(), chi.URLParam(r, "placeId"))
    if err != nil { writeProblem(w, http.StatusBadGateway, "Place lookup failed", err.Error(), r.URL.Path); return }
    writeJSON(w, http.StatusOK, place)
}

// ExportHandler streams the client list as an xlsx workbook.
func (s *Server) ExportHandler(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
    w.Header().Set("Content-Disposition", `attachment; filename="clients.xlsx"`)
    if err := export.WriteXLSX(w, s.Schedule.All()); err != nil {
        writeProblem(w, http.StatusInternalServerError, "Export failed", err.Error(), r.URL.Path)
    }
}

// ImportHandler upserts clients from an uploaded workbook, sent either as
// the raw body or as the "file" field of a multipart form. Rows that fail
// client validation are skipped and counted in the response.
func (s *Server) ImportHandler(w http.ResponseWriter, r *http.Request) {
    var src io.Reader = http.MaxBytesReader(w, r.Body, maxImportBytes)
    if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
        f, _, err := r.FormFile("file")
        if err != nil { writeProblem(w, http.StatusBadRequest, "Missing file", err.Error(), r.URL.Path); return }
        defer f.Close()
        src = f
    }
    clients, err := export.ReadXLSX(src)
    if err != nil { writeProblem(w, http.StatusBadRequest, "Invalid workbook", err.Error(), r.URL.Path); return }
    res, err := s.Schedule.Import(r.Context(), clients)
    if err != nil { writeError(w, r, err); return }
    writeJSON(w, http.StatusOK, res)
}
