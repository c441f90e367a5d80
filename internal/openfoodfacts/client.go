// Package openfoodfacts looks up and registers products on Open Food Facts.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"compras/internal/core"
)

const (
	DefaultBaseURL = "https://world.openfoodfacts.org"
	userAgent      = "compras/1.0 (purchase ledger)"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	userID     string
	password   string
}

type Option func(*Client)

// WithCredentials sets the account used for product registration
func WithCredentials(userID, password string) Option {
	return func(c *Client) {
		c.userID = userID
		c.password = password
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient builds a client whose requests give up after timeout
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type productResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName string `json:"product_name"`
		Brands      string `json:"brands"`
		Categories  string `json:"categories"`
	} `json:"product"`
}

// Lookup fetches product metadata for barcode. The bool is false when the
// service does not know the product. Manufacturer is never provided.
func (c *Client) Lookup(ctx context.Context, barcode string) (core.ProductInfo, bool, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return core.ProductInfo{}, false, core.ErrEmptyBarcode
	}

	endpoint := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, url.PathEscape(barcode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return core.ProductInfo{}, false, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.ProductInfo{}, false, fmt.Errorf("lookup %s: %w", barcode, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return core.ProductInfo{}, false, fmt.Errorf("lookup %s: unexpected status %d", barcode, resp.StatusCode)
	}

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return core.ProductInfo{}, false, fmt.Errorf("decode lookup response: %w", err)
	}
	if body.Status != 1 {
		return core.ProductInfo{}, false, nil
	}

	return core.ProductInfo{
		Name:     strings.TrimSpace(body.Product.ProductName),
		Brand:    strings.TrimSpace(body.Product.Brands),
		Category: strings.TrimSpace(body.Product.Categories),
	}, true, nil
}
