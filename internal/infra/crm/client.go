// File: internal/infra/crm/client.go
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/domain"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/domain/model"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/infra/metrics"
)

// Client talks to the RetailCRM API v5 of whichever account it is handed.
// Responses are decoded into the loose ResolvedOrder shape because the
// field layout varies per tenant.
type Client struct {
	client *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{client: &http.Client{Timeout: timeout}}
}

// ListOrders fetches up to limit orders, optionally filtered by status.
// limit is clamped to the page sizes the endpoint accepts.
func (c *Client) ListOrders(ctx context.Context, acc *model.Account, status string, limit int) ([]model.ResolvedOrder, error) {
	q := url.Values{}
	q.Set("apiKey", acc.APIKey)
	q.Set("limit", strconv.Itoa(clampLimit(limit)))
	if status != "" {
		q.Set("filter[extendedStatus][]", status)
	}
	var out struct {
		Success  bool                  `json:"success"`
		ErrorMsg string                `json:"errorMsg"`
		Orders   []model.ResolvedOrder `json:"orders"`
	}
	if err := c.get(ctx, acc, "/api/v5/orders", q, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, apiError(out.ErrorMsg)
	}
	return out.Orders, nil
}

// SearchByNumber looks an order up by its human number. An empty result is
// domain.ErrOrderNotFound so the resolver can apply its lag-retry policy.
func (c *Client) SearchByNumber(ctx context.Context, acc *model.Account, number, site string) (model.ResolvedOrder, error) {
	q := url.Values{}
	q.Set("apiKey", acc.APIKey)
	q.Set("limit", "20")
	q.Add("filter[numbers][]", number)
	if site != "" {
		q.Set("site", site)
	}
	var out struct {
		Success  bool                  `json:"success"`
		ErrorMsg string                `json:"errorMsg"`
		Orders   []model.ResolvedOrder `json:"orders"`
	}
	if err := c.get(ctx, acc, "/api/v5/orders", q, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, apiError(out.ErrorMsg)
	}
	if len(out.Orders) == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return out.Orders[0], nil
}

// GetOrder fetches a single order by CRM id.
func (c *Client) GetOrder(ctx context.Context, acc *model.Account, id int, site string) (model.ResolvedOrder, error) {
	q := url.Values{}
	q.Set("apiKey", acc.APIKey)
	q.Set("by", "id")
	if site != "" {
		q.Set("site", site)
	}
	var out struct {
		Success  bool                `json:"success"`
		ErrorMsg string              `json:"errorMsg"`
		Order    model.ResolvedOrder `json:"order"`
	}
	if err := c.get(ctx, acc, fmt.Sprintf("/api/v5/orders/%d", id), q, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, apiError(out.ErrorMsg)
	}
	if out.Order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return out.Order, nil
}

// Sites returns the account's configured site codes via the reference endpoint.
func (c *Client) Sites(ctx context.Context, acc *model.Account) ([]string, error) {
	q := url.Values{}
	q.Set("apiKey", acc.APIKey)
	var out struct {
		Success  bool                       `json:"success"`
		ErrorMsg string                     `json:"errorMsg"`
		Sites    map[string]json.RawMessage `json:"sites"`
	}
	if err := c.get(ctx, acc, "/api/v5/reference/sites", q, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, apiError(out.ErrorMsg)
	}
	codes := make([]string, 0, len(out.Sites))
	for code := range out.Sites {
		codes = append(codes, code)
	}
	return codes, nil
}

// GetUser fetches a CRM user (manager) record, used to enrich orders that
// only carry a manager id.
func (c *Client) GetUser(ctx context.Context, acc *model.Account, id int) (model.ResolvedOrder, error) {
	q := url.Values{}
	q.Set("apiKey", acc.APIKey)
	var out struct {
		Success  bool                `json:"success"`
		ErrorMsg string              `json:"errorMsg"`
		User     model.ResolvedOrder `json:"user"`
	}
	if err := c.get(ctx, acc, fmt.Sprintf("/api/v5/users/%d", id), q, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, apiError(out.ErrorMsg)
	}
	if out.User == nil {
		return nil, domain.ErrOrderNotFound
	}
	return out.User, nil
}

func (c *Client) get(ctx context.Context, acc *model.Account, path string, q url.Values, out any) error {
	endpoint := strings.TrimRight(acc.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.ObserveCRMCall(path, int(time.Since(start).Milliseconds()), err == nil)
	if err != nil {
		return fmt.Errorf("crm %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("crm %s: read body: %w", path, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrOrderNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// CRM error responses still carry a JSON envelope with errorMsg.
		var e struct {
			ErrorMsg string `json:"errorMsg"`
		}
		_ = json.Unmarshal(body, &e)
		if e.ErrorMsg != "" {
			return apiError(e.ErrorMsg)
		}
		return fmt.Errorf("crm %s: http %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("crm %s: decode: %w", path, err)
	}
	return nil
}

// apiError maps the CRM errorMsg text onto the sentinel errors the
// resolver's retry policy dispatches on.
func apiError(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not found"):
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, msg)
	case strings.Contains(lower, "site"):
		return fmt.Errorf("%w: %s", domain.ErrMissingSite, msg)
	case msg == "":
		return fmt.Errorf("crm request failed")
	default:
		return fmt.Errorf("crm request failed: %s", msg)
	}
}

func clampLimit(n int) int {
	switch n {
	case 20, 50, 100:
		return n
	default:
		return 100
	}
}
