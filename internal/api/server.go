package api

import (
    "context"
    "os"
    "strings"

    "golang.org/x/time/rate"

    "fleetopt/internal/config"
    "fleetopt/internal/risk"
    "fleetopt/internal/store"
    "fleetopt/internal/webhooks"
)

type Server struct {
    Store   store.Store
    Pub     *webhooks.Publisher
    Broker  EventBroker
    Cfg     config.Config
    Risk    *risk.Client
    limiter *rate.Limiter
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store.
func NewServer(cfg config.Config) (*Server, error) {
    var s store.Store
    if strings.TrimSpace(cfg.DatabaseURL) == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(cfg.DatabaseURL)
        if err != nil {
            return nil, err
        }
        // Create tables (dev helper)
        if os.Getenv("DB_MIGRATE") != "false" {
            _ = sp.EnsureSchema(context.Background())
        }
        s = sp
    }
    // Broker selection
    var broker EventBroker
    if cfg.RedisURL != "" {
        if rb, err := NewRedisBroker(cfg.RedisURL); err == nil { broker = rb } else { broker = NewBroker() }
    } else {
        broker = NewBroker()
    }
    var riskClient *risk.Client
    if cfg.RiskServiceURL != "" {
        riskClient = risk.NewClient(cfg.RiskServiceURL)
    }
    srv := &Server{
        Store:   s,
        Pub:     webhooks.NewPublisher(s),
        Broker:  broker,
        Cfg:     cfg,
        Risk:    riskClient,
        limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst),
    }
    return srv, nil
}

// isAdmin gates the admin config endpoint. With no ADMIN_API_KEY configured
// the check is open (dev mode).
func (s *Server) isAdmin(apiKey string) bool {
    if s.Cfg.AdminAPIKey == "" {
        return true
    }
    return apiKey == s.Cfg.AdminAPIKey
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
    return webhooks.NewWorker(s.Store)
}
