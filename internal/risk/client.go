package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fleetopt/internal/model"
)

// Client talks to the external delay-risk scoring service. The service owns
// its own model and features; we only ship order records and read back
// normalized 0-100 scores keyed by order id. The optimizer works the same
// with or without these scores.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// ScoreOrders fetches delay-risk scores for the given orders.
func (c *Client) ScoreOrders(ctx context.Context, orders []model.Order) (map[string]float64, error) {
	body, err := json.Marshal(map[string]any{"orders": orders})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("risk: score request returned %d", resp.StatusCode)
	}
	var out struct {
		Scores map[string]float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Scores, nil
}

// Annotate attaches scores to matching orders in place. Orders the service
// did not score are left untouched.
func Annotate(orders []model.Order, scores map[string]float64) {
	for i := range orders {
		if v, ok := scores[orders[i].ID]; ok {
			score := v
			orders[i].DelayRiskScore = &score
		}
	}
}
