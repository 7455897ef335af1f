package market

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

const assetHistoryQuery = `query assetHistory($filters: AssetHistoryFilter!, $pagination: HistoryPagination) {
  assetHistory(filters: $filters, pagination: $pagination) {
    edges {
      node {
        action
        actionDate
        transactionHash
        price {
          amount
          token
        }
      }
    }
  }
}
`

type graphRequest struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
}

// GraphClient queries the marketplace GraphQL indexer shared by xoxno and the
// native marketplace.
type GraphClient struct {
	t transport
}

func NewGraphClient(baseURL string, opts ...Option) *GraphClient {
	if baseURL == "" {
		baseURL = "https://nfts-graph.elrond.com"
	}
	return &GraphClient{t: newTransport(baseURL, opts)}
}

// LastTransactionHash returns the hash of the asset's most recent history
// event, or "" when the indexer has none.
func (c *GraphClient) LastTransactionHash(ctx context.Context, identifier string) (string, error) {
	payload, err := json.Marshal(graphRequest{
		OperationName: "assetHistory",
		Variables: map[string]any{
			"filters":    map[string]any{"identifier": identifier},
			"pagination": map[string]any{"first": 1, "timestamp": nil},
		},
		Query: assetHistoryQuery,
	})
	if err != nil {
		return "", err
	}
	raw, err := c.t.post(ctx, "graph assetHistory", "/graphql", payload)
	if err != nil {
		return "", err
	}
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("decode assetHistory: invalid json")
	}
	if errs := gjson.GetBytes(raw, "errors.0.message"); errs.Exists() {
		return "", fmt.Errorf("assetHistory: %s", errs.String())
	}
	return gjson.GetBytes(raw, "data.assetHistory.edges.0.node.transactionHash").String(), nil
}
