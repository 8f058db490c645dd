package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "fleetopt/internal/model"
)

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// EnsureSchema creates the tables if they do not exist (dev helper).
func (p *Postgres) EnsureSchema(ctx context.Context) error {
    ddl := []string{
        `CREATE TABLE IF NOT EXISTS orders (
            id TEXT PRIMARY KEY,
            origin TEXT NOT NULL,
            destination TEXT NOT NULL,
            distance_km DOUBLE PRECISION NOT NULL,
            traffic_delay_min DOUBLE PRECISION NOT NULL,
            weight_kg DOUBLE PRECISION NOT NULL,
            priority TEXT NOT NULL,
            handling TEXT NOT NULL DEFAULT 'None',
            delay_risk_score DOUBLE PRECISION,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
        `CREATE TABLE IF NOT EXISTS vehicles (
            id TEXT PRIMARY KEY,
            type TEXT NOT NULL,
            capacity_kg DOUBLE PRECISION NOT NULL,
            fuel_eff_km_per_l DOUBLE PRECISION NOT NULL,
            co2_kg_per_km DOUBLE PRECISION NOT NULL,
            status TEXT NOT NULL
        )`,
        `CREATE TABLE IF NOT EXISTS traffic_samples (
            order_id TEXT PRIMARY KEY,
            congestion DOUBLE PRECISION NOT NULL
        )`,
        `CREATE TABLE IF NOT EXISTS runs (
            id TEXT PRIMARY KEY,
            created_at TIMESTAMPTZ NOT NULL,
            outcome TEXT NOT NULL,
            assignments JSONB NOT NULL,
            metrics JSONB NOT NULL
        )`,
        `CREATE TABLE IF NOT EXISTS optimizer_config (
            k TEXT PRIMARY KEY,
            v JSONB NOT NULL
        )`,
        `CREATE TABLE IF NOT EXISTS subscriptions (
            id TEXT PRIMARY KEY,
            url TEXT NOT NULL,
            events JSONB NOT NULL,
            secret TEXT NOT NULL DEFAULT ''
        )`,
        `CREATE TABLE IF NOT EXISTS webhook_deliveries (
            id TEXT PRIMARY KEY,
            subscription_id TEXT NOT NULL,
            event_type TEXT NOT NULL,
            url TEXT NOT NULL,
            secret TEXT NOT NULL DEFAULT '',
            payload JSONB NOT NULL,
            status TEXT NOT NULL,
            attempts INT NOT NULL DEFAULT 0,
            next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            last_error TEXT,
            response_code INT,
            latency_ms INT,
            delivered_at TIMESTAMPTZ
        )`,
    }
    for _, q := range ddl {
        if _, err := p.db.ExecContext(ctx, q); err != nil { return err }
    }
    return nil
}

func (p *Postgres) CreateOrders(ctx context.Context, orders []model.Order) (int, int, error) {
    created, skipped := 0, 0
    for _, o := range orders {
        res, err := p.db.ExecContext(ctx, `INSERT INTO orders (id, origin, destination, distance_km, traffic_delay_min, weight_kg, priority, handling, delay_risk_score)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) ON CONFLICT (id) DO NOTHING`,
            o.ID, o.Origin, o.Destination, o.DistanceKM, o.TrafficDelayMin, o.WeightKG, string(o.Priority), string(o.Handling), o.DelayRiskScore)
        if err != nil { return created, skipped, err }
        if n, _ := res.RowsAffected(); n > 0 { created++ } else { skipped++ }
    }
    return created, skipped, nil
}

func (p *Postgres) ListOrders(ctx context.Context) ([]model.Order, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id, origin, destination, distance_km, traffic_delay_min, weight_kg, priority, handling, delay_risk_score FROM orders ORDER BY created_at, id`)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Order{}
    for rows.Next() {
        var o model.Order
        var prio, handling string
        if err := rows.Scan(&o.ID, &o.Origin, &o.Destination, &o.DistanceKM, &o.TrafficDelayMin, &o.WeightKG, &prio, &handling, &o.DelayRiskScore); err != nil {
            return nil, err
        }
        o.Priority = model.Priority(prio)
        o.Handling = model.Handling(handling)
        out = append(out, o)
    }
    return out, rows.Err()
}

func (p *Postgres) CreateVehicles(ctx context.Context, vehicles []model.Vehicle) (int, int, error) {
    created, skipped := 0, 0
    for _, v := range vehicles {
        res, err := p.db.ExecContext(ctx, `INSERT INTO vehicles (id, type, capacity_kg, fuel_eff_km_per_l, co2_kg_per_km, status)
            VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (id) DO NOTHING`,
            v.ID, string(v.Type), v.CapacityKG, v.FuelEffKMPerL, v.CO2KgPerKM, string(v.Status))
        if err != nil { return created, skipped, err }
        if n, _ := res.RowsAffected(); n > 0 { created++ } else { skipped++ }
    }
    return created, skipped, nil
}

func (p *Postgres) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id, type, capacity_kg, fuel_eff_km_per_l, co2_kg_per_km, status FROM vehicles ORDER BY id`)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Vehicle{}
    for rows.Next() {
        var v model.Vehicle
        var typ, status string
        if err := rows.Scan(&v.ID, &typ, &v.CapacityKG, &v.FuelEffKMPerL, &v.CO2KgPerKM, &status); err != nil {
            return nil, err
        }
        v.Type = model.VehicleType(typ)
        v.Status = model.VehicleStatus(status)
        out = append(out, v)
    }
    return out, rows.Err()
}

func (p *Postgres) PutTraffic(ctx context.Context, samples []model.TrafficSample) (int, error) {
    n := 0
    for _, s := range samples {
        if _, err := p.db.ExecContext(ctx, `INSERT INTO traffic_samples (order_id, congestion) VALUES ($1,$2)
            ON CONFLICT (order_id) DO UPDATE SET congestion = EXCLUDED.congestion`, s.OrderID, s.Congestion); err != nil {
            return n, err
        }
        n++
    }
    return n, nil
}

func (p *Postgres) ListTraffic(ctx context.Context) ([]model.TrafficSample, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT order_id, congestion FROM traffic_samples ORDER BY order_id`)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.TrafficSample{}
    for rows.Next() {
        var s model.TrafficSample
        if err := rows.Scan(&s.OrderID, &s.Congestion); err != nil { return nil, err }
        out = append(out, s)
    }
    return out, rows.Err()
}

func (p *Postgres) SaveRun(ctx context.Context, run model.Run) error {
    assignments, err := json.Marshal(run.Assignments)
    if err != nil { return err }
    metrics, err := json.Marshal(run.Metrics)
    if err != nil { return err }
    _, err = p.db.ExecContext(ctx, `INSERT INTO runs (id, created_at, outcome, assignments, metrics) VALUES ($1, now(), $2, $3, $4)`,
        run.ID, run.Outcome, assignments, metrics)
    return err
}

func (p *Postgres) GetRun(ctx context.Context, id string) (model.Run, error) {
    var run model.Run
    var createdAt time.Time
    var assignments, metrics []byte
    err := p.db.QueryRowContext(ctx, `SELECT id, created_at, outcome, assignments, metrics FROM runs WHERE id=$1`, id).
        Scan(&run.ID, &createdAt, &run.Outcome, &assignments, &metrics)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Run{}, ErrNotFound
    }
    if err != nil { return model.Run{}, err }
    run.CreatedAt = createdAt.UTC().Format(time.RFC3339)
    if err := json.Unmarshal(assignments, &run.Assignments); err != nil { return model.Run{}, err }
    if err := json.Unmarshal(metrics, &run.Metrics); err != nil { return model.Run{}, err }
    return run, nil
}

func (p *Postgres) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
    if limit <= 0 { limit = 100 }
    rows, err := p.db.QueryContext(ctx, `SELECT id, created_at, outcome, assignments, metrics FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Run{}
    for rows.Next() {
        var run model.Run
        var createdAt time.Time
        var assignments, metrics []byte
        if err := rows.Scan(&run.ID, &createdAt, &run.Outcome, &assignments, &metrics); err != nil { return nil, err }
        run.CreatedAt = createdAt.UTC().Format(time.RFC3339)
        if err := json.Unmarshal(assignments, &run.Assignments); err != nil { return nil, err }
        if err := json.Unmarshal(metrics, &run.Metrics); err != nil { return nil, err }
        out = append(out, run)
    }
    return out, rows.Err()
}

func (p *Postgres) GetOptimizerConfig(ctx context.Context) (map[string]any, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT k, v FROM optimizer_config`)
    if err != nil { return nil, err }
    defer rows.Close()
    out := map[string]any{}
    for rows.Next() {
        var k string
        var raw []byte
        if err := rows.Scan(&k, &raw); err != nil { return nil, err }
        var v any
        if err := json.Unmarshal(raw, &v); err != nil { return nil, err }
        out[k] = v
    }
    return out, rows.Err()
}

func (p *Postgres) SaveOptimizerConfig(ctx context.Context, cfg map[string]any) error {
    for k, v := range cfg {
        raw, err := json.Marshal(v)
        if err != nil { return err }
        if _, err := p.db.ExecContext(ctx, `INSERT INTO optimizer_config (k, v) VALUES ($1,$2)
            ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v`, k, raw); err != nil {
            return err
        }
    }
    return nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
    events, err := json.Marshal(s.Events)
    if err != nil { return model.Subscription{}, err }
    _, err = p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, url, events, secret) VALUES ($1,$2,$3,$4)`,
        s.ID, s.URL, events, s.Secret)
    if err != nil { return model.Subscription{}, err }
    return s, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id, url, events, secret FROM subscriptions ORDER BY id`)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Subscription{}
    for rows.Next() {
        s, err := scanSubscription(rows)
        if err != nil { return nil, err }
        out = append(out, s)
    }
    return out, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id string) error {
    res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id=$1`, id)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id, url, events, secret FROM subscriptions WHERE events @> jsonb_build_array($1::text) OR events @> '["*"]'`, eventType)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Subscription{}
    for rows.Next() {
        s, err := scanSubscription(rows)
        if err != nil { return nil, err }
        out = append(out, s)
    }
    return out, rows.Err()
}

func scanSubscription(rows *sql.Rows) (model.Subscription, error) {
    var s model.Subscription
    var events []byte
    if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
        return model.Subscription{}, err
    }
    if err := json.Unmarshal(events, &s.Events); err != nil {
        return model.Subscription{}, err
    }
    return s, nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    id := uuid.New().String()
    _, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, subscription_id, event_type, url, secret, payload, status)
        VALUES ($1,$2,$3,$4,$5,$6,'pending')`, id, subscriptionID, eventType, url, secret, payload)
    if err != nil { return "", err }
    return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    if limit <= 0 { limit = 50 }
    rows, err := p.db.QueryContext(ctx, `SELECT id, subscription_id, event_type, url, secret, payload, status, attempts
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at LIMIT $1`, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []WebhookDelivery{}
    for rows.Next() {
        var d WebhookDelivery
        if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
            return nil, err
        }
        out = append(out, d)
    }
    return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
    if success {
        _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='delivered', attempts=attempts+1, response_code=$2, latency_ms=$3, delivered_at=now() WHERE id=$1`,
            id, responseCode, latencyMs)
        return err
    }
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='retry', attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4, next_attempt_at=COALESCE($5, next_attempt_at) WHERE id=$1`,
        id, nullIfEmpty(lastError), responseCode, latencyMs, nextAttemptAt)
    return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='failed', attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4 WHERE id=$1`,
        id, nullIfEmpty(lastError), responseCode, latencyMs)
    return err
}

func nullIfEmpty(s string) any {
    if s == "" { return nil }
    return s
}
