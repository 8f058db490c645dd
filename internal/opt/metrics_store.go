package opt

import "sync"

// Per-run search metrics, kept in-process so the API can serve
// /v1/runs/{id}/metrics without another store round-trip.

var (
    mu    sync.Mutex
    store = map[string]SearchMetrics{}
)

func RecordMetrics(runID string, m SearchMetrics) {
    mu.Lock()
    store[runID] = m
    mu.Unlock()
}

func GetMetrics(runID string) (SearchMetrics, bool) {
    mu.Lock()
    defer mu.Unlock()
    m, ok := store[runID]
    return m, ok
}
