package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/garyjia/po-approval/internal/application/port"
	"github.com/garyjia/po-approval/internal/domain/entity"
)

const maxErrorBody = 64 << 10

// Config holds the connection settings for the system of record
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the purchase order API over HTTP. Every request carries
// the bearer token held by the session store, when there is one.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	store      port.SessionStore
	logger     *zap.Logger
}

// NewClient creates a client for cfg.BaseURL
func NewClient(cfg Config, store port.SessionStore, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		store:      store,
		logger:     logger,
	}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token
func (c *Client) Login(ctx context.Context, identifier, secret string) (*port.LoginResult, error) {
	var out port.LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: identifier, Password: secret}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List fetches every purchase order
func (c *Client) List(ctx context.Context) ([]*entity.PurchaseOrder, error) {
	var out []*entity.PurchaseOrder
	if err := c.do(ctx, http.MethodGet, "/purchase-orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one purchase order including its approval history
func (c *Client) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var out entity.PurchaseOrder
	if err := c.do(ctx, http.MethodGet, orderPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create submits a new purchase order
func (c *Client) Create(ctx context.Context, sub entity.Submission) (*entity.PurchaseOrder, error) {
	var out entity.PurchaseOrder
	if err := c.do(ctx, http.MethodPost, "/purchase-orders", sub, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Approve records an approve or reject decision
func (c *Client) Approve(ctx context.Context, id string, decision entity.Decision) (*entity.PurchaseOrder, error) {
	var out entity.PurchaseOrder
	if err := c.do(ctx, http.MethodPost, orderPath(id)+"/approve", decision, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History fetches the approval ledger of an order
func (c *Client) History(ctx context.Context, id string) ([]entity.ApprovalEntry, error) {
	var out []entity.ApprovalEntry
	if err := c.do(ctx, http.MethodGet, orderPath(id)+"/history", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func orderPath(id string) string {
	return "/purchase-orders/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.store.Get(ctx)
	if err != nil {
		c.logger.Warn("Failed to read session token, sending unauthenticated", zap.Error(err))
	} else if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		remote := port.NewRemoteError(resp.StatusCode, errorMessage(data))
		c.logger.Debug("Request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", remote.Message))
		return remote
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// errorMessage reads {"message": "..."} from an error body; anything else yields ""
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	return gjson.GetBytes(body, "message").String()
}

var (
	_ port.AuthExchange = (*Client)(nil)
	_ port.OrderCatalog = (*Client)(nil)
)
