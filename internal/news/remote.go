package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"marketsim/internal/domain"
)

// remoteRequest is the JSON body sent to the hosted completion endpoint.
type remoteRequest struct {
	Symbols []string `json:"symbols"`
	Count   int      `json:"count"`
}

// remoteResponse mirrors the endpoint's reply.
type remoteResponse struct {
	Items []struct {
		Symbol    string  `json:"symbol"`
		Headline  string  `json:"headline"`
		Sentiment string  `json:"sentiment"`
		Impact    float64 `json:"impact"`
	} `json:"items"`
}

// Remote fetches headlines from a hosted JSON endpoint. Any transport or
// decode failure is an error; the chain handles the fallback.
type Remote struct {
	url        string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

// NewRemote creates a remote provider. An empty url yields a provider that
// always fails, which simply pushes the chain to the next entry.
func NewRemote(url, apiKey string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Remote{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

func (r *Remote) Name() string { return "remote" }

// Fetch posts the symbol set and requested count, expecting structured items.
func (r *Remote) Fetch(ctx context.Context, symbols []string, count int) ([]domain.NewsItem, error) {
	if r.url == "" {
		return nil, fmt.Errorf("remote news endpoint not configured")
	}

	body, err := json.Marshal(remoteRequest{Symbols: symbols, Count: count})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	now := r.now()
	items := make([]domain.NewsItem, 0, len(decoded.Items))
	for _, it := range decoded.Items {
		items = append(items, domain.NewsItem{
			Symbol:    it.Symbol,
			Headline:  it.Headline,
			Sentiment: it.Sentiment,
			Impact:    it.Impact,
			Source:    "remote",
			Timestamp: now,
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("remote returned no items")
	}
	return items, nil
}
