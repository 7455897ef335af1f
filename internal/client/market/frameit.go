package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Activity is one entry of the frameit activity feed, newest first.
type Activity struct {
	Action        string `json:"action"`
	PaymentAmount struct {
		Amount json.Number `json:"amount"`
		Token  string      `json:"token"`
	} `json:"paymentAmount"`
}

type FrameitClient struct {
	t transport
}

func NewFrameitClient(baseURL string, opts ...Option) *FrameitClient {
	if baseURL == "" {
		baseURL = "https://api.frameit.gg"
	}
	return &FrameitClient{t: newTransport(baseURL, opts)}
}

// LatestActivity returns the most recent activity entry, or nil when the feed is empty.
func (c *FrameitClient) LatestActivity(ctx context.Context, identifier string) (*Activity, error) {
	q := url.Values{}
	q.Set("TokenIdentifier", identifier)
	raw, err := c.t.get(ctx, "frameit activity", "/api/v1/activity?"+q.Encode(), "application/json")
	if err != nil {
		return nil, err
	}
	var payload struct {
		Data []Activity `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode frameit activity: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, nil
	}
	return &payload.Data[0], nil
}
