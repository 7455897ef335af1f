package market

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

var ErrNoNextData = errors.New("market: page has no __NEXT_DATA__ script")

// DeadrareClient fetches item pages from deadrare.
type DeadrareClient struct {
	t transport
}

func NewDeadrareClient(baseURL string, opts ...Option) *DeadrareClient {
	if baseURL == "" {
		baseURL = "https://deadrare.io"
	}
	return &DeadrareClient{t: newTransport(baseURL, opts)}
}

// NextData returns the JSON embedded in the item page's __NEXT_DATA__ script.
func (c *DeadrareClient) NextData(ctx context.Context, identifier string) ([]byte, error) {
	page, err := c.t.get(ctx, "deadrare page", "/nft/"+url.PathEscape(identifier), "text/html")
	if err != nil {
		return nil, err
	}
	return ExtractNextData(page)
}

// ExtractNextData finds <script id="__NEXT_DATA__"> and returns its text.
func ExtractNextData(page []byte) ([]byte, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "script" && attr(n, "id") == "__NEXT_DATA__" {
			found = n
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	if found == nil {
		return nil, ErrNoNextData
	}
	var sb strings.Builder
	for child := found.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, ErrNoNextData
	}
	return []byte(text), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
