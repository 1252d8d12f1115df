package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/ficmart/paygate/internal/config"
	"github.com/ficmart/paygate/internal/domain"
)

// httpClient is the raw, unprotected call to the bank simulator: one
// POST, JSON in, JSON out. It carries no retry/breaker logic of its own
// — that is layered on by ResilientClient. Grounded on
// internal/adapters/bank/client.go's generic postJSON helper, collapsed
// to the single authorize-style endpoint spec.md §4.1/§6 describes.
type httpClient struct {
	baseURL string
	path    string
	http    *http.Client
}

// NewHTTPClient builds the raw bank transport. Connect and read
// timeouts are both configurable (spec.md §4.1 defaults: 2s connect,
// 5s read); connect timeout is enforced via the dialer, read timeout
// via the request context deadline applied by the caller (the retry
// wrapper), since http.Client.Timeout alone cannot distinguish the two.
func NewHTTPClient(cfg config.BankConfig) *httpClient {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
	}
	return &httpClient{
		baseURL: cfg.BaseURL,
		path:    "/api/v1/payments",
		http:    &http.Client{Transport: transport},
	}
}

// do sends req to the bank simulator and decodes its JSON body. Any
// non-2xx status or transport failure comes back as a *transportError;
// it never panics and never leaks a raw PAN into an error string beyond
// what the bank itself echoes (the bank simulator is trusted, per
// spec.md §1 scope).
func (c *httpClient) do(ctx context.Context, req domain.BankRequest) (domain.BankResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal bank request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build bank request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &transportError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &transportError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var bankResp domain.BankResponse
	if err := json.Unmarshal(respBody, &bankResp); err != nil {
		return nil, fmt.Errorf("decode bank response: %w", err)
	}
	return bankResp, nil
}
