// Package remote is the HTTP client for the remote billing API. The API is
// a black box here: it accepts a settlement payload with a bearer token and
// answers with a bill identifier, and it serves the read models the cache
// refresher pulls.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sahajch/tillsync/internal/models"
)

// APIError is a server-side rejection: the request arrived but the API said
// no. It is distinct from a transport error, which means the network path is
// down and the sale should be queued instead.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote api rejected request (%d): %s", e.Status, e.Message)
}

// Client talks to the remote billing API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API at baseURL.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// HealthURL is the endpoint the network monitor probes.
func (c *Client) HealthURL() string {
	return c.baseURL + "/health"
}

// SubmitBill posts a settlement payload with the given bearer token and
// returns the remote bill identifier. The payload is raw bytes so the direct
// checkout path and the queue replay path submit byte-identical bodies.
func (c *Client) SubmitBill(ctx context.Context, payload []byte, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/bills", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build bill request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach billing api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read bill response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{Status: resp.StatusCode, Message: errorMessage(body)}
	}

	var result struct {
		ID  string `json:"id"`
		MID string `json:"_id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode bill response: %w", err)
	}
	if result.ID != "" {
		return result.ID, nil
	}
	return result.MID, nil
}

// FetchProducts pulls the product read model.
func (c *Client) FetchProducts(ctx context.Context, token string) ([]models.CacheRecord, error) {
	return c.fetchCollection(ctx, "/api/products", token)
}

// FetchCustomers pulls the customer read model.
func (c *Client) FetchCustomers(ctx context.Context, token string) ([]models.CacheRecord, error) {
	return c.fetchCollection(ctx, "/api/customers", token)
}

// FetchBills pulls the recent-bills read model, newest first.
func (c *Client) FetchBills(ctx context.Context, token string) ([]models.CacheRecord, error) {
	return c.fetchCollection(ctx, "/api/invoices", token)
}

func (c *Client) fetchCollection(ctx context.Context, path, token string) ([]models.CacheRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build fetch request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(body)}
	}

	var docs []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	recs := make([]models.CacheRecord, 0, len(docs))
	for _, doc := range docs {
		id, err := documentID(doc)
		if err != nil {
			return nil, fmt.Errorf("record in %s has no identifier: %w", path, err)
		}
		recs = append(recs, models.CacheRecord{ID: id, Data: doc})
	}
	return recs, nil
}

// documentID extracts the remote identifier from a read-model document.
// The API uses "_id" for Mongo-backed entities and "id" elsewhere.
func documentID(doc json.RawMessage) (string, error) {
	var probe struct {
		ID  string `json:"id"`
		MID string `json:"_id"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return "", err
	}
	if probe.MID != "" {
		return probe.MID, nil
	}
	if probe.ID != "" {
		return probe.ID, nil
	}
	return "", fmt.Errorf("document missing id and _id")
}

func errorMessage(body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	if len(body) > 0 {
		return string(body)
	}
	return "no error body"
}
