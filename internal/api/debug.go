package api

import (
    "net/http"
    "time"

    "visitroute/internal/buildinfo"
)

// DebugJSON reports build info and which integrations are configured,
// never the secrets themselves.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    _, hasPlan := s.Tracker.Latest()
    info := map[string]any{
        "build": buildinfo.Info(),
        "time":  time.Now().UTC().Format(time.RFC3339),
        "today": s.Schedule.TodayKey(),
        "config": map[string]any{
            "storage":       s.Info.Storage,
            "broker":        s.Info.Broker,
            "locale":        string(s.Locale),
            "timeZone":      s.Info.TimeZone,
            "hasMapsKey":    s.Maps != nil && s.Maps.Ready(),
            "sheetsEnabled": s.Info.SheetsEnabled,
        },
        "clients":      len(s.Schedule.All()),
        "hasTodayPlan": hasPlan,
    }
    writeJSON(w, http.StatusOK, info)
}
