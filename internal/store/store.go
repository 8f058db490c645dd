package store

import (
    "context"
    "errors"
    "time"

    "fleetopt/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
    // Snapshot inputs
    CreateOrders(ctx context.Context, orders []model.Order) (created, skipped int, err error)
    ListOrders(ctx context.Context) ([]model.Order, error)
    CreateVehicles(ctx context.Context, vehicles []model.Vehicle) (created, skipped int, err error)
    ListVehicles(ctx context.Context) ([]model.Vehicle, error)
    PutTraffic(ctx context.Context, samples []model.TrafficSample) (upserted int, err error)
    ListTraffic(ctx context.Context) ([]model.TrafficSample, error)

    // Optimization runs
    SaveRun(ctx context.Context, run model.Run) error
    GetRun(ctx context.Context, id string) (model.Run, error)
    ListRuns(ctx context.Context, limit int) ([]model.Run, error)

    // Optimizer parameter overlay
    GetOptimizerConfig(ctx context.Context) (map[string]any, error)
    SaveOptimizerConfig(ctx context.Context, cfg map[string]any) error

    // Webhook subscriptions and delivery queue
    CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
    ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
    DeleteSubscription(ctx context.Context, id string) error
    GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error)
    EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
    FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
    MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error
    FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error
}

// WebhookDelivery is one queued outbound notification.
type WebhookDelivery struct {
    ID             string
    SubscriptionID string
    EventType      string
    URL            string
    Secret         string
    Payload        []byte
    Status         string
    Attempts       int
}

var ErrNotFound = errors.New("not found")
