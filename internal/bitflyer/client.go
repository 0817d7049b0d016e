package bitflyer

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const defaultBaseURL = "https://api.bitflyer.com"

// Client talks to the Lightning REST API. Private endpoints require an API
// key pair; public endpoints (ticker) work without one.
type Client struct {
	http   *resty.Client
	key    string
	secret string
}

func NewClient(key, secret string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(defaultBaseURL).
			SetTimeout(10 * time.Second).
			SetHeader("Content-Type", "application/json"),
		key:    key,
		secret: secret,
	}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *Client) SetBaseURL(url string) {
	c.http.SetBaseURL(url)
}

// GetTicker fetches the top of book for a product. Public endpoint.
func (c *Client) GetTicker(ctx context.Context, productCode string) (Ticker, error) {
	var out Ticker
	err := c.do(ctx, http.MethodGet, "/v1/ticker?product_code="+productCode, nil, &out)
	if err != nil {
		return Ticker{}, errors.Wrapf(err, "ticker %s", productCode)
	}
	return out, nil
}

// GetCollateral fetches the account margin snapshot.
func (c *Client) GetCollateral(ctx context.Context) (Collateral, error) {
	var out Collateral
	err := c.do(ctx, http.MethodGet, "/v1/me/getcollateral", nil, &out)
	if err != nil {
		return Collateral{}, errors.Wrap(err, "collateral")
	}
	return out, nil
}

// GetPositions fetches open position legs for a product.
func (c *Client) GetPositions(ctx context.Context, productCode string) ([]Position, error) {
	var out []Position
	err := c.do(ctx, http.MethodGet, "/v1/me/getpositions?product_code="+productCode, nil, &out)
	if err != nil {
		return nil, errors.Wrapf(err, "positions %s", productCode)
	}
	return out, nil
}

// SendChildOrder places a single order and returns the acceptance ID.
func (c *Client) SendChildOrder(ctx context.Context, req ChildOrderRequest) (ChildOrderResponse, error) {
	var out ChildOrderResponse
	if err := c.do(ctx, http.MethodPost, "/v1/me/sendchildorder", req, &out); err != nil {
		return ChildOrderResponse{}, err
	}
	return out, nil
}

// SendParentOrder places a composite order (IFDOCO bracket).
func (c *Client) SendParentOrder(ctx context.Context, req ParentOrderRequest) (ParentOrderResponse, error) {
	var out ParentOrderResponse
	if err := c.do(ctx, http.MethodPost, "/v1/me/sendparentorder", req, &out); err != nil {
		return ParentOrderResponse{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	r := c.http.R().SetContext(ctx)

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		r.SetBody(payload)
	}

	if c.key != "" {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		r.SetHeader("ACCESS-KEY", c.key)
		r.SetHeader("ACCESS-TIMESTAMP", ts)
		r.SetHeader("ACCESS-SIGN", c.sign(ts, method, path, payload))
	}

	resp, err := r.Execute(method, path)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}

	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode() * -1}
		if jerr := json.Unmarshal(resp.Body(), apiErr); jerr != nil {
			apiErr.ErrorMessage = resp.Status()
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return errors.Wrap(err, "decode response")
		}
	}
	return nil
}

// sign computes the ACCESS-SIGN header: HMAC-SHA256 over
// timestamp + method + path + body with the API secret.
func (c *Client) sign(ts, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(ts + method + path))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
