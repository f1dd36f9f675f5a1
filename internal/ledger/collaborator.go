// Package ledger bridges the game economy to an external token ledger.
// The game state stays authoritative: balance changes are recorded as
// durable outbox intents and mirrored outward asynchronously, so a
// ledger outage never blocks or rolls back play.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Collaborator is the narrow surface the game needs from the external
// ledger gateway. The gateway owns wallet mechanics, signing, and the
// wire format; the game only asks these four questions.
type Collaborator interface {
	// IsOptedIn reports whether the address can receive the game asset.
	IsOptedIn(ctx context.Context, addr string) (bool, error)
	// Transfer moves amount of the game asset to addr and returns the
	// transaction id.
	Transfer(ctx context.Context, addr string, amount float64) (string, error)
	// CreateAsset mints the game asset and returns its id.
	CreateAsset(ctx context.Context) (uint64, error)
	// LookupAsset returns the existing game asset id, or 0 if none.
	LookupAsset(ctx context.Context) (uint64, error)
}

// HTTPCollaborator talks to a ledger gateway service over JSON/HTTP.
type HTTPCollaborator struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPCollaborator creates a gateway client. Returns nil if baseURL
// is empty (ledger settlement disabled).
func NewHTTPCollaborator(baseURL, apiKey string) *HTTPCollaborator {
	if baseURL == "" {
		return nil
	}
	return &HTTPCollaborator{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type optInResponse struct {
	OptedIn bool `json:"opted_in"`
}

type transferRequest struct {
	Address string  `json:"address"`
	Amount  float64 `json:"amount"`
}

type transferResponse struct {
	TxID string `json:"tx_id"`
}

type assetResponse struct {
	AssetID uint64 `json:"asset_id"`
}

func (c *HTTPCollaborator) IsOptedIn(ctx context.Context, addr string) (bool, error) {
	var out optInResponse
	if err := c.call(ctx, http.MethodGet, "/v1/accounts/"+addr+"/optin", nil, &out); err != nil {
		return false, fmt.Errorf("opt-in check for %s: %w", addr, err)
	}
	return out.OptedIn, nil
}

func (c *HTTPCollaborator) Transfer(ctx context.Context, addr string, amount float64) (string, error) {
	var out transferResponse
	if err := c.call(ctx, http.MethodPost, "/v1/transfers", transferRequest{Address: addr, Amount: amount}, &out); err != nil {
		return "", fmt.Errorf("transfer %.4f to %s: %w", amount, addr, err)
	}
	if out.TxID == "" {
		return "", fmt.Errorf("transfer to %s: gateway returned no tx id", addr)
	}
	return out.TxID, nil
}

func (c *HTTPCollaborator) CreateAsset(ctx context.Context) (uint64, error) {
	var out assetResponse
	if err := c.call(ctx, http.MethodPost, "/v1/asset", nil, &out); err != nil {
		return 0, fmt.Errorf("create asset: %w", err)
	}
	return out.AssetID, nil
}

func (c *HTTPCollaborator) LookupAsset(ctx context.Context) (uint64, error) {
	var out assetResponse
	if err := c.call(ctx, http.MethodGet, "/v1/asset", nil, &out); err != nil {
		return 0, fmt.Errorf("lookup asset: %w", err)
	}
	return out.AssetID, nil
}

// call performs one gateway request with the standard headers and
// decodes the JSON response into out.
func (c *HTTPCollaborator) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway error %d: %s", resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
