package api

import (
    "context"
    "net/http"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "golang.org/x/time/rate"

    "visitroute/internal/metrics"
    "visitroute/internal/model"
    "visitroute/internal/opt"
    "visitroute/internal/planner"
    "visitroute/internal/schedule"
)

// MapService is the planner's map capability plus the address-form lookups.
type MapService interface {
    planner.MapService
    Autocomplete(ctx context.Context, input string) ([]model.Prediction, error)
    PlaceDetails(ctx context.Context, placeID string) (model.Place, error)
}

// Pinger is a dependency checked by /readyz.
type Pinger interface {
    Ping(ctx context.Context) error
}

// Info describes the wiring for /v1/debug.
type Info struct {
    Storage       string
    Broker        string
    TimeZone      string
    SheetsEnabled bool
}

type Server struct {
    Schedule *schedule.Scheduler
    Planner  *planner.Planner
    Tracker  *planner.Tracker
    Maps     MapService
    Broker   EventBroker
    Locale   opt.Locale
    Checks   map[string]Pinger
    Info     Info
    Limiter  *rate.Limiter
}

// NewServer wires the planner to the scheduler and publishes collection
// changes on the event stream. maps may be nil when no key is configured.
func NewServer(sched *schedule.Scheduler, maps MapService, broker EventBroker, locale opt.Locale) *Server {
    if broker == nil {
        broker = NewBroker()
    }
    var pm planner.MapService
    if maps != nil {
        pm = maps
    }
    s := &Server{
        Schedule: sched,
        Planner:  planner.New(sched, pm, locale),
        Tracker:  &planner.Tracker{},
        Maps:     maps,
        Broker:   broker,
        Locale:   locale,
        Checks:   map[string]Pinger{},
    }
    sched.OnChange(s.onClientsChanged)
    return s
}

func (s *Server) onClientsChanged(ch schedule.Change) {
    if len(s.Schedule.Today()) == 0 {
        s.Tracker.Clear()
    } else {
        s.Tracker.ClearIf(func(p model.RoutePlan) bool { return planner.Outdated(p, ch.Clients) })
    }
    s.Broker.Publish(TopicEvents, Event{Type: EventClientsChanged, Data: map[string]any{
        "reason":  string(ch.Reason),
        "clients": ch.Clients,
    }})
}

// Notice publishes a user-facing message on the event stream.
func (s *Server) Notice(level, message string) {
    s.Broker.Publish(TopicEvents, Event{Type: EventNotice, Data: map[string]string{"level": level, "message": message}})
}

// Router builds the HTTP surface.
func (s *Server) Router() http.Handler {
    metrics.RegisterDefault()

    r := chi.NewRouter()
    r.Use(middleware.RequestID)
    r.Use(middleware.RealIP)
    r.Use(logRequests)
    r.Use(middleware.Recoverer)
    r.Use(instrument)
    if s.Limiter != nil {
        r.Use(rateLimit(s.Limiter))
    }

    r.Get("/healthz", s.HealthHandler)
    r.Get("/readyz", s.ReadyHandler)
    r.Method(http.MethodGet, "/metrics", metrics.Handler())

    r.Route("/v1", func(v chi.Router) {
        v.Get("/debug", s.DebugJSON)

        v.Route("/clients", func(c chi.Router) {
            c.Get("/", s.ListClientsHandler)
            c.Post("/", s.SaveClientHandler)
            c.Get("/export.xlsx", s.ExportHandler)
            c.Post("/import", s.ImportHandler)
            c.Get("/{id}", s.GetClientHandler)
            c.Post("/{id}/delete", s.DeleteClientHandler)
        })

        v.Get("/schedule/today", s.TodayHandler)
        v.Get("/schedule/upcoming", s.UpcomingHandler)

        v.Route("/route/today", func(rt chi.Router) {
            rt.Post("/", s.PlanRouteHandler)
            rt.Get("/", s.LatestRouteHandler)
            rt.Get("/open", s.OpenRouteHandler)
            rt.Get("/order.txt", s.RouteOrderTextHandler)
        })

        v.Get("/places/autocomplete", s.AutocompleteHandler)
        v.Get("/places/{placeId}", s.PlaceDetailsHandler)

        v.Get("/events/ws", s.EventsWSHandler)
    })
    return r
}
