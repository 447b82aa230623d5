// Package rest implements the live-side broker adapter over the broker's
// HTTP API: HMAC-signed requests, client-side throttling, and structured
// error surfacing. It is the only component in the repository that opens a
// network connection.
package rest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"execution-core/pkg/broker"
)

// Config holds broker API credentials and endpoint settings.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	// RequestsPerSecond bounds outbound request rate; zero uses a default of 10.
	RequestsPerSecond float64
}

// Client talks to the broker's REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a REST broker client.
func New(cfg Config) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)*2),
	}
}

// apiError is a structured broker-side failure.
type apiError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("broker api: http %d code=%s: %s", e.StatusCode, e.Code, e.Message)
}

func (c *Client) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.SubmitResult, error) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return broker.SubmitResult{}, errors.New("broker api: key/secret required")
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", string(req.Type))
	params.Set("quantity", formatFloat(req.Qty))
	if req.ClientID != "" {
		params.Set("clientOrderId", req.ClientID)
	}

	body, err := c.doSigned(ctx, http.MethodPost, "/v1/orders", params)
	if err != nil {
		return broker.SubmitResult{}, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return broker.SubmitResult{}, fmt.Errorf("decode order response: %w", err)
	}
	return broker.SubmitResult{
		OrderID: resp.OrderID,
		State:   mapState(resp.State),
	}, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	params := url.Values{}
	params.Set("orderId", orderID)

	body, err := c.doSigned(ctx, http.MethodDelete, "/v1/orders", params)
	if err != nil {
		var apiErr *apiError
		// The venue reports an already-filled order as a conflict; a failed
		// cancel is an answer, not a transport fault.
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			return false, nil
		}
		return false, err
	}

	var resp cancelResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("decode cancel response: %w", err)
	}
	return resp.Cancelled, nil
}

func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (broker.OrderStatus, error) {
	params := url.Values{}
	params.Set("orderId", orderID)

	body, err := c.doSigned(ctx, http.MethodGet, "/v1/orders", params)
	if err != nil {
		return broker.OrderStatus{}, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return broker.OrderStatus{}, fmt.Errorf("decode status response: %w", err)
	}
	return broker.OrderStatus{
		State:      mapState(resp.State),
		FillPrice:  resp.FillPrice,
		FilledSize: resp.FilledSize,
	}, nil
}

func (c *Client) GetPositions(ctx context.Context) ([]broker.Position, error) {
	body, err := c.doSigned(ctx, http.MethodGet, "/v1/positions", url.Values{})
	if err != nil {
		return nil, err
	}

	var resp []positionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode positions response: %w", err)
	}

	positions := make([]broker.Position, 0, len(resp))
	for _, p := range resp {
		positions = append(positions, broker.Position{
			Symbol:     p.Symbol,
			Size:       p.Size,
			StopLoss:   p.StopLoss,
			TakeProfit: p.TakeProfit,
		})
	}
	return positions, nil
}

// doSigned throttles, signs, and executes one API request.
func (c *Client) doSigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("signature", c.sign(params.Encode()))

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	var httpReq *http.Request
	var err error
	if method == http.MethodGet {
		httpReq, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+params.Encode(), nil)
	} else {
		httpReq, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(params.Encode()))
		if httpReq != nil {
			httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-API-KEY", c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("broker api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("broker api: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &apiError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil {
			apiErr.Message = string(body)
		}
		return nil, apiErr
	}
	return body, nil
}

func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
