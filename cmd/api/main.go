package main

import (
    "context"
    "errors"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    redis "github.com/redis/go-redis/v9"
    "golang.org/x/time/rate"

    "visitroute/internal/api"
    "visitroute/internal/buildinfo"
    "visitroute/internal/config"
    "visitroute/internal/maps"
    "visitroute/internal/opt"
    "visitroute/internal/pusher"
    "visitroute/internal/schedule"
    "visitroute/internal/sheets"
    "visitroute/internal/store"
)

func main() {
    cfg, err := config.Load()
    if err != nil {
        log.Fatalf("config: %v", err)
    }
    bi := buildinfo.Info()
    log.Printf("visitroute %s (%s) starting", bi["version"], bi["commit"])

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    var rdb *redis.Client
    if cfg.RedisURL != "" {
        opts, err := redis.ParseURL(cfg.RedisURL)
        if err != nil {
            log.Fatalf("redis url: %v", err)
        }
        rdb = redis.NewClient(opts)
        defer func() { _ = rdb.Close() }()
    }

    checks := map[string]api.Pinger{}
    var kv store.KV
    info := api.Info{TimeZone: cfg.TimeZone, SheetsEnabled: cfg.SheetsEnabled(), Broker: "memory"}
    switch {
    case cfg.DatabaseURL != "":
        pg, err := store.NewPostgres(cfg.DatabaseURL)
        if err != nil {
            log.Fatalf("postgres: %v", err)
        }
        defer func() { _ = pg.Close() }()
        if err := pg.Migrate(); err != nil {
            log.Fatalf("migrate: %v", err)
        }
        kv, info.Storage = pg, "postgres"
        checks["postgres"] = pg
    case rdb != nil:
        r := store.NewRedisWithClient(rdb)
        kv, info.Storage = r, "redis"
        checks["redis"] = r
    default:
        f, err := store.NewFile(cfg.DataDir)
        if err != nil {
            log.Fatalf("data dir: %v", err)
        }
        kv, info.Storage = f, "file"
    }

    locale := opt.Locale(cfg.Locale)
    sched := schedule.New(store.NewClientStore(kv), cfg.Location(), locale)
    if err := sched.Load(ctx); err != nil {
        log.Fatalf("load clients: %v", err)
    }

    var mapSvc api.MapService
    if cfg.Maps.APIKey != "" {
        lang := "en"
        if locale == opt.LocaleZH {
            lang = "zh-CN"
        }
        mc, err := maps.New(cfg.Maps.APIKey, cfg.Maps.Region, lang, cfg.Maps.RPS)
        if err != nil {
            log.Fatalf("maps: %v", err)
        }
        mapSvc = mc
    } else {
        log.Printf("maps: no API key configured, route planning disabled")
    }

    var broker api.EventBroker
    if rdb != nil {
        broker = api.NewRedisBroker(rdb)
        info.Broker = "redis"
        if _, ok := checks["redis"]; !ok {
            checks["redis"] = store.NewRedisWithClient(rdb)
        }
    }

    srv := api.NewServer(sched, mapSvc, broker, locale)
    srv.Checks = checks
    srv.Info = info
    if cfg.Rate.RPS > 0 {
        srv.Limiter = rate.NewLimiter(rate.Limit(cfg.Rate.RPS), cfg.Rate.Burst)
    }

    httpSrv := &http.Server{
        Addr:              ":" + cfg.Port,
        Handler:           srv.Router(),
        ReadHeaderTimeout: 5 * time.Second,
    }
    go func() {
        log.Printf("API listening on %s (storage=%s broker=%s)", httpSrv.Addr, info.Storage, info.Broker)
        if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Fatalf("server error: %v", err)
        }
    }()

    // Sync starts after the listener so a consent prompt reaches connected UIs.
    var push *pusher.Pusher
    if cfg.SheetsEnabled() {
        auth := sheets.NewAuthorizer(cfg.Sheets.CredentialsFile, cfg.Sheets.TokenFile)
        auth.OnPrompt = srv.AuthPrompt
        syncer := sheets.NewSyncer(cfg.Sheets.SpreadsheetID, cfg.Sheets.Tab, auth)
        push = srv.StartSync(ctx, syncer, cfg.SyncDebounce())
    }

    <-ctx.Done()
    log.Printf("shutting down")
    shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    _ = httpSrv.Shutdown(shutCtx)
    if push != nil {
        if push.Pending() {
            if err := push.Flush(shutCtx); err != nil {
                log.Printf("sync: final push failed: %v", err)
            }
        }
        push.Stop()
    }
}
