// Package remote reads collections from the point-of-sale REST API. It
// follows pagination cursors lazily, decodes the remote record shapes, and
// converts them into [model.Record] values.
//
// Every list endpoint has the shape
//
//	GET /{collection}?limit=&cursor=&created_at_min=
//	→ {"<collection>": [...], "cursor": "..."}
//
// and the absence of a cursor ends pagination.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/njoerd114/possync/internal/model"
)

// Collection paths on the remote API.
const (
	PathCategories = "categories"
	PathItems      = "items"
	PathCustomers  = "customers"
	PathReceipts   = "receipts"
	PathInventory  = "inventory"
)

// ErrUnauthorized is returned when the API rejects the token.
var ErrUnauthorized = errors.New("remote API returned 401 Unauthorized: check remote.api_token")

// StatusError is returned for any other non-2xx page response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote API returned status %d: %s", e.StatusCode, e.Body)
}

// Filter narrows a collection fetch. The zero value fetches everything.
type Filter struct {
	// CreatedAtMin, when non-zero, is sent as created_at_min on every page.
	CreatedAtMin time.Time
}

// Page is one decoded response: the raw records and the cursor for the next
// page ("" when exhausted).
type Page struct {
	Records []json.RawMessage
	Cursor  string
}

// PageHook is called after every page with the running record count.
type PageHook func(collection string, fetched int)

// Client talks to the remote API.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	hc       *http.Client
	logger   *slog.Logger
	onPage   PageHook
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client. Used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithPageHook registers a progress callback invoked after each page.
func WithPageHook(h PageHook) Option {
	return func(c *Client) { c.onPage = h }
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL, token string, pageSize int, timeout time.Duration, logger *slog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("remote api token is empty")
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size %d must be positive", pageSize)
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		pageSize: pageSize,
		hc:       &http.Client{Timeout: timeout},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetPageHook replaces the progress callback. It must not be called while a
// fetch is running.
func (c *Client) SetPageHook(h PageHook) {
	c.onPage = h
}

// Pages returns a lazy sequence over every page of collection. Each range
// over the sequence starts again from an empty cursor, so an aborted caller
// can simply range again. The first failed request is yielded as an error
// and ends the sequence.
func (c *Client) Pages(ctx context.Context, collection string, filter Filter) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		cursor := ""
		for {
			page, err := c.fetchPage(ctx, collection, cursor, filter)
			if err != nil {
				yield(Page{}, err)
				return
			}
			if !yield(page, nil) {
				return
			}
			if page.Cursor == "" {
				return
			}
			if page.Cursor == cursor {
				yield(Page{}, fmt.Errorf("fetching %s: cursor %q did not advance", collection, cursor))
				return
			}
			cursor = page.Cursor
		}
	}
}

// FetchAll drains every page of collection and decodes each record into T.
// Any page failure aborts the whole fetch and no records are returned.
// Records that do not decode are logged and skipped.
func FetchAll[T any](ctx context.Context, c *Client, collection string, filter Filter) ([]T, error) {
	var out []T
	for page, err := range c.Pages(ctx, collection, filter) {
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Records {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				c.logger.Warn("skipping undecodable remote record",
					"collection", collection,
					"error", err,
				)
				continue
			}
			out = append(out, v)
		}
		if c.onPage != nil {
			c.onPage(collection, len(out))
		}
	}
	return out, nil
}

// fetchPage performs a single GET for one page.
func (c *Client) fetchPage(ctx context.Context, collection, cursor string, filter Filter) (Page, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(c.pageSize))
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if !filter.CreatedAtMin.IsZero() {
		params.Set("created_at_min", filter.CreatedAtMin.UTC().Format(time.RFC3339Nano))
	}
	endpoint := c.baseURL + "/" + collection + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Page{}, fmt.Errorf("creating %s request: %w", collection, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("fetching remote page",
		"collection", collection,
		"initial", cursor == "",
	)

	resp, err := c.hc.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetching %s: %w", collection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("reading %s response: %w", collection, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return Page{}, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Page{}, fmt.Errorf("decoding %s response: %w", collection, err)
	}

	var page Page
	if raw, ok := envelope[collection]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &page.Records); err != nil {
			return Page{}, fmt.Errorf("decoding %s array: %w", collection, err)
		}
	}
	if raw, ok := envelope["cursor"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &page.Cursor); err != nil {
			return Page{}, fmt.Errorf("decoding %s cursor: %w", collection, err)
		}
	}
	return page, nil
}

// Ping validates connectivity and the token by requesting a single category,
// retrying transient failures.
func (c *Client) Ping(ctx context.Context) error {
	err := pingBackoff.run(ctx, func(ctx context.Context) error {
		params := url.Values{"limit": {"1"}}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+PathCategories+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		if resp.StatusCode >= 300 {
			return &StatusError{StatusCode: resp.StatusCode}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ping remote API: %w", err)
	}
	return nil
}

// --- typed collection readers -------------------------------------------------

// Categories fetches and converts every category.
func (c *Client) Categories(ctx context.Context) ([]model.Record, error) {
	raw, err := FetchAll[Category](ctx, c, PathCategories, Filter{})
	if err != nil {
		return nil, err
	}
	return convertAll(raw, CategoryToRecord), nil
}

// Items fetches and converts every catalog item.
func (c *Client) Items(ctx context.Context) ([]model.Record, error) {
	raw, err := FetchAll[Item](ctx, c, PathItems, Filter{})
	if err != nil {
		return nil, err
	}
	return convertAll(raw, ItemToRecord), nil
}

// Customers fetches and converts every customer.
func (c *Client) Customers(ctx context.Context) ([]model.Record, error) {
	raw, err := FetchAll[Customer](ctx, c, PathCustomers, Filter{})
	if err != nil {
		return nil, err
	}
	return convertAll(raw, CustomerToRecord), nil
}

// Receipts fetches receipts created at or after createdAfter. A zero
// createdAfter fetches the whole collection.
func (c *Client) Receipts(ctx context.Context, createdAfter time.Time) ([]model.Record, error) {
	raw, err := FetchAll[Receipt](ctx, c, PathReceipts, Filter{CreatedAtMin: createdAfter})
	if err != nil {
		return nil, err
	}
	return convertAll(raw, ReceiptToRecord), nil
}

// InventoryLevels fetches every per-store inventory level.
func (c *Client) InventoryLevels(ctx context.Context) ([]model.InventoryLevel, error) {
	raw, err := FetchAll[InventoryLevel](ctx, c, PathInventory, Filter{})
	if err != nil {
		return nil, err
	}
	levels := make([]model.InventoryLevel, 0, len(raw))
	for _, l := range raw {
		lvl, ok := InventoryLevelToModel(l)
		if !ok {
			c.logger.Warn("skipping inventory level without item id", "variant_id", l.VariantID, "store_id", l.StoreID)
			continue
		}
		levels = append(levels, lvl)
	}
	return levels, nil
}

func convertAll[T any](in []T, fn func(T) model.Record) []model.Record {
	out := make([]model.Record, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
