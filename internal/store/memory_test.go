package store

import (
    "context"
    "testing"
    "time"

    "fleetopt/internal/model"
)

func TestMemoryOrdersDedup(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()

    created, skipped, err := m.CreateOrders(ctx, []model.Order{{ID: "o1"}, {ID: "o2"}})
    if err != nil || created != 2 || skipped != 0 {
        t.Fatalf("first create: %d/%d, %v", created, skipped, err)
    }
    created, skipped, err = m.CreateOrders(ctx, []model.Order{{ID: "o2"}, {ID: "o3"}})
    if err != nil || created != 1 || skipped != 1 {
        t.Fatalf("second create: %d/%d, %v", created, skipped, err)
    }

    items, err := m.ListOrders(ctx)
    if err != nil {
        t.Fatalf("ListOrders: %v", err)
    }
    if len(items) != 3 || items[0].ID != "o1" || items[2].ID != "o3" {
        t.Errorf("list order not preserved: %+v", items)
    }
}

func TestMemoryTrafficUpsert(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()

    if _, err := m.PutTraffic(ctx, []model.TrafficSample{{OrderID: "o1", Congestion: 0.1}}); err != nil {
        t.Fatalf("PutTraffic: %v", err)
    }
    if _, err := m.PutTraffic(ctx, []model.TrafficSample{{OrderID: "o1", Congestion: 0.4}}); err != nil {
        t.Fatalf("PutTraffic: %v", err)
    }
    items, _ := m.ListTraffic(ctx)
    if len(items) != 1 || items[0].Congestion != 0.4 {
        t.Errorf("upsert did not replace: %+v", items)
    }
}

func TestMemoryRuns(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()

    for _, id := range []string{"r1", "r2", "r3"} {
        if err := m.SaveRun(ctx, model.Run{ID: id, Outcome: "optimal"}); err != nil {
            t.Fatalf("SaveRun: %v", err)
        }
    }

    run, err := m.GetRun(ctx, "r2")
    if err != nil || run.ID != "r2" {
        t.Fatalf("GetRun: %+v, %v", run, err)
    }
    if _, err := m.GetRun(ctx, "missing"); err != ErrNotFound {
        t.Errorf("GetRun missing: err = %v, want ErrNotFound", err)
    }

    runs, _ := m.ListRuns(ctx, 2)
    if len(runs) != 2 || runs[0].ID != "r3" || runs[1].ID != "r2" {
        t.Errorf("ListRuns not newest-first: %+v", runs)
    }
}

func TestMemoryOptimizerConfigMerge(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()

    _ = m.SaveOptimizerConfig(ctx, map[string]any{"fuelPricePerL": 120.0})
    _ = m.SaveOptimizerConfig(ctx, map[string]any{"avgSpeedKmh": 45.0})

    cfg, _ := m.GetOptimizerConfig(ctx)
    if cfg["fuelPricePerL"] != 120.0 || cfg["avgSpeedKmh"] != 45.0 {
        t.Errorf("config overlay lost keys: %+v", cfg)
    }
}

func TestMemorySubscriptionsEventMatch(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()

    runSub, _ := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "https://a", Events: []string{"run.completed"}})
    _, _ = m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "https://b", Events: []string{"other.event"}})
    _, _ = m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "https://c", Events: []string{"*"}})

    subs, err := m.GetSubscriptionsForEvent(ctx, "run.completed")
    if err != nil {
        t.Fatalf("GetSubscriptionsForEvent: %v", err)
    }
    if len(subs) != 2 {
        t.Fatalf("want 2 matching subscriptions, got %d", len(subs))
    }

    if err := m.DeleteSubscription(ctx, runSub.ID); err != nil {
        t.Fatalf("DeleteSubscription: %v", err)
    }
    if err := m.DeleteSubscription(ctx, runSub.ID); err != ErrNotFound {
        t.Errorf("second delete: err = %v, want ErrNotFound", err)
    }
}

func TestMemoryWebhookQueue(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()

    id, err := m.EnqueueWebhook(ctx, "sub1", "run.completed", "https://hooks", "sec", []byte(`{}`))
    if err != nil {
        t.Fatalf("EnqueueWebhook: %v", err)
    }

    due, _ := m.FetchDueWebhookDeliveries(ctx, 10)
    if len(due) != 1 || due[0].ID != id {
        t.Fatalf("due = %+v", due)
    }

    // A failed attempt scheduled in the future must not be due.
    next := time.Now().Add(time.Hour)
    if err := m.MarkWebhookDelivery(ctx, id, false, &next, "boom", 500, 12); err != nil {
        t.Fatalf("MarkWebhookDelivery: %v", err)
    }
    due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
    if len(due) != 0 {
        t.Fatalf("retry scheduled for later should not be due: %+v", due)
    }

    // Success takes it out of the queue for good.
    past := time.Now().Add(-time.Minute)
    _ = m.MarkWebhookDelivery(ctx, id, false, &past, "boom", 500, 12)
    due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
    if len(due) != 1 {
        t.Fatalf("past retry should be due again")
    }
    if due[0].Attempts != 2 {
        t.Errorf("attempts = %d, want 2", due[0].Attempts)
    }
    _ = m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 8)
    due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
    if len(due) != 0 {
        t.Fatalf("delivered webhook should not be due: %+v", due)
    }
}
