package store

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/google/uuid"

    "fleetopt/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
    mu       sync.Mutex
    orders   map[string]model.Order
    orderIDs []string
    vehicles map[string]model.Vehicle
    vehIDs   []string
    traffic  map[string]model.TrafficSample // orderID -> sample
    runs     map[string]model.Run
    runIDs   []string
    optCfg   map[string]any
    subs     []model.Subscription
    // Webhook queue state
    deliveries  map[string]*memDelivery
    deliveryIDs []string
}

func NewMemory() *Memory {
    return &Memory{
        orders:     map[string]model.Order{},
        vehicles:   map[string]model.Vehicle{},
        traffic:    map[string]model.TrafficSample{},
        runs:       map[string]model.Run{},
        optCfg:     map[string]any{},
        deliveries: map[string]*memDelivery{},
    }
}

// memDelivery augments WebhookDelivery with scheduling/metrics
type memDelivery struct {
    WebhookDelivery
    NextAttemptAt time.Time
    LastError     string
    ResponseCode  int
    LatencyMs     int
    DeliveredAt   *time.Time
}

func (m *Memory) CreateOrders(ctx context.Context, orders []model.Order) (int, int, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    created, skipped := 0, 0
    for _, o := range orders {
        if _, ok := m.orders[o.ID]; ok {
            skipped++
            continue
        }
        m.orders[o.ID] = o
        m.orderIDs = append(m.orderIDs, o.ID)
        created++
    }
    return created, skipped, nil
}

func (m *Memory) ListOrders(ctx context.Context) ([]model.Order, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := make([]model.Order, 0, len(m.orderIDs))
    for _, id := range m.orderIDs {
        out = append(out, m.orders[id])
    }
    return out, nil
}

func (m *Memory) CreateVehicles(ctx context.Context, vehicles []model.Vehicle) (int, int, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    created, skipped := 0, 0
    for _, v := range vehicles {
        if _, ok := m.vehicles[v.ID]; ok {
            skipped++
            continue
        }
        m.vehicles[v.ID] = v
        m.vehIDs = append(m.vehIDs, v.ID)
        created++
    }
    return created, skipped, nil
}

func (m *Memory) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := make([]model.Vehicle, 0, len(m.vehIDs))
    for _, id := range m.vehIDs {
        out = append(out, m.vehicles[id])
    }
    return out, nil
}

func (m *Memory) PutTraffic(ctx context.Context, samples []model.TrafficSample) (int, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    for _, s := range samples {
        m.traffic[s.OrderID] = s
    }
    return len(samples), nil
}

func (m *Memory) ListTraffic(ctx context.Context) ([]model.TrafficSample, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    ids := make([]string, 0, len(m.traffic))
    for id := range m.traffic {
        ids = append(ids, id)
    }
    sort.Strings(ids)
    out := make([]model.TrafficSample, 0, len(ids))
    for _, id := range ids {
        out = append(out, m.traffic[id])
    }
    return out, nil
}

func (m *Memory) SaveRun(ctx context.Context, run model.Run) error {
    m.mu.Lock(); defer m.mu.Unlock()
    m.runs[run.ID] = run
    m.runIDs = append(m.runIDs, run.ID)
    return nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (model.Run, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    run, ok := m.runs[id]
    if !ok {
        return model.Run{}, ErrNotFound
    }
    return run, nil
}

func (m *Memory) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if limit <= 0 { limit = 100 }
    out := []model.Run{}
    // newest first
    for i := len(m.runIDs) - 1; i >= 0 && len(out) < limit; i-- {
        out = append(out, m.runs[m.runIDs[i]])
    }
    return out, nil
}

func (m *Memory) GetOptimizerConfig(ctx context.Context) (map[string]any, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := map[string]any{}
    for k, v := range m.optCfg {
        out[k] = v
    }
    return out, nil
}

func (m *Memory) SaveOptimizerConfig(ctx context.Context, cfg map[string]any) error {
    m.mu.Lock(); defer m.mu.Unlock()
    for k, v := range cfg {
        m.optCfg[k] = v
    }
    return nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
    m.subs = append(m.subs, s)
    return s, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := make([]model.Subscription, len(m.subs))
    copy(out, m.subs)
    return out, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    for i, s := range m.subs {
        if s.ID == id {
            m.subs = append(m.subs[:i], m.subs[i+1:]...)
            return nil
        }
    }
    return ErrNotFound
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := []model.Subscription{}
    for _, s := range m.subs {
        for _, e := range s.Events {
            if e == eventType || e == "*" {
                out = append(out, s)
                break
            }
        }
    }
    return out, nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    id := uuid.New().String()
    d := &memDelivery{WebhookDelivery: WebhookDelivery{ID: id, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload, Status: "pending"}, NextAttemptAt: time.Now()}
    m.deliveries[id] = d
    m.deliveryIDs = append(m.deliveryIDs, id)
    return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    now := time.Now()
    out := []WebhookDelivery{}
    for _, id := range m.deliveryIDs {
        d := m.deliveries[id]
        if d == nil { continue }
        if (d.Status == "pending" || d.Status == "retry") && !d.NextAttemptAt.After(now) {
            out = append(out, d.WebhookDelivery)
            if limit > 0 && len(out) >= limit { break }
        }
    }
    return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d == nil { return nil }
    d.Attempts++
    d.ResponseCode = responseCode
    d.LatencyMs = latencyMs
    if success {
        d.Status = "delivered"
        now := time.Now()
        d.DeliveredAt = &now
        return nil
    }
    d.Status = "retry"
    d.LastError = lastError
    if nextAttemptAt != nil {
        d.NextAttemptAt = *nextAttemptAt
    }
    return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d == nil { return nil }
    d.Attempts++
    d.Status = "failed"
    d.LastError = lastError
    d.ResponseCode = responseCode
    d.LatencyMs = latencyMs
    return nil
}
