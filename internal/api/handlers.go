package api

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"

    "fleetopt/internal/buildinfo"
    "fleetopt/internal/metrics"
    "fleetopt/internal/model"
    "fleetopt/internal/opt"
    "fleetopt/internal/risk"
    "fleetopt/internal/webhooks"
)

// OrdersHandler handles POST/GET /v1/orders
func (s *Server) OrdersHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        var req struct {
            Orders []model.Order `json:"orders"`
        }
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := opt.ValidateInputs(req.Orders, nil); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid orders", err.Error(), r.URL.Path)
            return
        }
        created, skipped, err := s.Store.CreateOrders(r.Context(), req.Orders)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create orders failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusAccepted, map[string]any{"created": created, "skipped": skipped})
    case http.MethodGet:
        items, err := s.Store.ListOrders(r.Context())
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List orders failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// VehiclesHandler handles POST/GET /v1/vehicles
func (s *Server) VehiclesHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        var req struct {
            Vehicles []model.Vehicle `json:"vehicles"`
        }
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := opt.ValidateInputs(nil, req.Vehicles); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid vehicles", err.Error(), r.URL.Path)
            return
        }
        created, skipped, err := s.Store.CreateVehicles(r.Context(), req.Vehicles)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create vehicles failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusAccepted, map[string]any{"created": created, "skipped": skipped})
    case http.MethodGet:
        items, err := s.Store.ListVehicles(r.Context())
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List vehicles failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// TrafficHandler handles POST/GET /v1/traffic
func (s *Server) TrafficHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        var req struct {
            Samples []model.TrafficSample `json:"samples"`
        }
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := opt.ValidateTraffic(req.Samples); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid traffic samples", err.Error(), r.URL.Path)
            return
        }
        upserted, err := s.Store.PutTraffic(r.Context(), req.Samples)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Put traffic failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusAccepted, map[string]any{"upserted": upserted})
    case http.MethodGet:
        items, err := s.Store.ListTraffic(r.Context())
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List traffic failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// OptimizeHandler handles POST /v1/optimize
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    if !s.limiter.Allow() {
        writeProblem(w, http.StatusTooManyRequests, "Rate limited", "optimize call budget exhausted, retry later", r.URL.Path)
        return
    }
    var req model.OptimizeRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validateOptimizeRequest(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
        return
    }

    orders, vehicles, traffic, err := s.snapshot(r.Context(), &req)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Load snapshot failed", err.Error(), r.URL.Path)
        return
    }
    if req.ScoreRisk && s.Risk != nil {
        // best effort: a scoring outage must not block assignment
        if scores, err := s.Risk.ScoreOrders(r.Context(), orders); err == nil {
            risk.Annotate(orders, scores)
        }
    }

    overlay, _ := s.Store.GetOptimizerConfig(r.Context())
    params := overlayParams(s.Cfg.Params(), overlay, &req)

    res, err := opt.Optimize(orders, vehicles, traffic, params)
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid input snapshot", err.Error(), r.URL.Path)
        return
    }

    runID := uuid.New().String()
    run := model.Run{
        ID:          runID,
        CreatedAt:   time.Now().UTC().Format(time.RFC3339),
        Outcome:     res.Outcome.String(),
        Assignments: res.Assignments,
        Metrics:     res.Metrics,
    }
    if err := s.Store.SaveRun(r.Context(), run); err != nil {
        writeProblem(w, http.StatusInternalServerError, "Save run failed", err.Error(), r.URL.Path)
        return
    }
    opt.RecordMetrics(runID, res.Search)
    metrics.OptimizeRuns.WithLabelValues(run.Outcome).Inc()
    metrics.SolveDuration.Observe(res.Search.Duration.Seconds())
    metrics.AssignmentsSelected.Add(float64(len(res.Assignments)))

    evt := Event{Type: webhooks.EventRunCompleted, Data: map[string]any{
        "runId":    runID,
        "outcome":  run.Outcome,
        "assigned": res.Metrics.AssignedOrders,
        "cost":     res.Metrics.TotalCost,
    }}
    s.Broker.Publish(TopicRuns, evt)
    s.Pub.Emit(r.Context(), webhooks.EventRunCompleted, evt.Data)

    writeJSON(w, http.StatusOK, map[string]any{
        "runId":       runID,
        "outcome":     run.Outcome,
        "assignments": run.Assignments,
        "metrics":     run.Metrics,
    })
}

// snapshot resolves the input snapshot for a run: inline payload when
// provided, stored records otherwise.
func (s *Server) snapshot(ctx context.Context, req *model.OptimizeRequest) ([]model.Order, []model.Vehicle, []model.TrafficSample, error) {
    orders := req.Orders
    traffic := req.Traffic
    vehicles := req.Vehicles
    var err error
    if len(orders) == 0 {
        if orders, err = s.Store.ListOrders(ctx); err != nil {
            return nil, nil, nil, err
        }
        if traffic, err = s.Store.ListTraffic(ctx); err != nil {
            return nil, nil, nil, err
        }
    }
    if len(vehicles) == 0 {
        if vehicles, err = s.Store.ListVehicles(ctx); err != nil {
            return nil, nil, nil, err
        }
    }
    return orders, vehicles, traffic, nil
}

// RunsIndexHandler handles GET /v1/runs
func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    limit := 100
    if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
    items, err := s.Store.ListRuns(r.Context(), limit)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// RunByIDHandler handles GET /v1/runs/{id} and /v1/runs/{id}/metrics
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
    parts := strings.Split(rest, "/")
    id := parts[0]
    if id == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "run id required", r.URL.Path)
        return
    }
    if len(parts) > 1 && parts[1] == "metrics" {
        m, ok := opt.GetMetrics(id)
        if !ok {
            writeProblem(w, http.StatusNotFound, "Not Found", "no metrics for run "+id, r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{
            "nodes":        m.Nodes,
            "pruned":       m.Pruned,
            "improvements": m.Improvements,
            "bestCost":     m.BestCost,
            "completed":    m.Completed,
            "durationMs":   m.Duration.Milliseconds(),
        })
        return
    }
    run, err := s.Store.GetRun(r.Context(), id)
    if err != nil {
        writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, run)
}

// OptimizerConfigHandler returns the effective optimizer configuration
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    o := s.Cfg.Optimizer
    defaults := map[string]any{
        "avgSpeedKmh":      o.AvgSpeedKmh,
        "fuelPricePerL":    o.FuelPricePerL,
        "baselineBudget":   o.BaselineBudget,
        "co2SavedRatio":    o.CO2SavedRatio,
        "onTimeImprovePct": o.OnTimeImprovePct,
        "timeBudgetMs":     o.TimeBudgetMs,
    }
    // overlay stored config if present
    cfg, _ := s.Store.GetOptimizerConfig(r.Context())
    for k, v := range cfg { defaults[k] = v }
    writeJSON(w, http.StatusOK, map[string]any{"effective": defaults})
}

// AdminOptimizerConfigHandler gets/sets the stored config overlay
func (s *Server) AdminOptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
    if !s.isAdmin(r.Header.Get("X-API-Key")) {
        writeProblem(w, http.StatusForbidden, "Forbidden", "admin key required", r.URL.Path)
        return
    }
    switch r.Method {
    case http.MethodGet:
        cfg, _ := s.Store.GetOptimizerConfig(r.Context())
        if cfg == nil { cfg = map[string]any{} }
        writeJSON(w, http.StatusOK, cfg)
    case http.MethodPut:
        var cfg map[string]any
        if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := s.Store.SaveOptimizerConfig(r.Context(), cfg); err != nil {
            writeProblem(w, http.StatusInternalServerError, "Save config failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"saved": len(cfg)})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        var req model.SubscriptionRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if req.URL == "" || len(req.Events) == 0 {
            writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events required", r.URL.Path)
            return
        }
        sub, err := s.Store.CreateSubscription(r.Context(), req)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
            return
        }
        sub.Secret = ""
        writeJSON(w, http.StatusCreated, sub)
    case http.MethodGet:
        items, err := s.Store.ListSubscriptions(r.Context())
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
            return
        }
        for i := range items { items[i].Secret = "" }
        writeJSON(w, http.StatusOK, map[string]any{"items": items})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodDelete {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
    if err := s.Store.DeleteSubscription(r.Context(), id); err != nil {
        writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), r.URL.Path)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]any{"status": "ok", "build": buildinfo.Info()})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    // Check DB connectivity when using Postgres store
    type pinger interface{ Ping(ctx context.Context) error }
    if pg, ok := s.Store.(pinger); ok {
        ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
        defer cancel()
        if err := pg.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    }
    writeJSON(w, 200, map[string]string{"status": "ready"})
}
