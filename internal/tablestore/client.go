// Package tablestore talks to the hosted table store through its REST
// interface: equality-filter selects, single-row inserts and remote
// procedures, addressed as /rest/v1/<table> and /rest/v1/rpc/<function>.
package tablestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tiergate/lib/sl"
)

const restPath = "/rest/v1"

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	hc      *http.Client
	baseURL string
	apiKey  string
	log     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		hc:      &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.URL, "/") + restPath,
		apiKey:  cfg.APIKey,
		log:     logger.With(sl.Module("tablestore")),
	}
}

// APIError is a non-2xx answer of the store.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("table store: status %d", e.Status)
	}
	return e.Message
}

// PublicMessage is the backend's message, shown to users when an insert is
// rejected.
func (e *APIError) PublicMessage() string {
	return e.Message
}

// uniqueViolation is the SQLSTATE the store reports for unique constraints.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is an insert rejected by a unique
// constraint.
func IsUniqueViolation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == uniqueViolation
}

// Query holds equality filters and an optional ascending order column.
type Query struct {
	Columns string
	Eq      map[string]string
	Order   string
	Limit   int
}

func (q Query) values() url.Values {
	v := url.Values{}
	columns := q.Columns
	if columns == "" {
		columns = "*"
	}
	v.Set("select", columns)
	for col, val := range q.Eq {
		v.Set(col, "eq."+val)
	}
	if q.Order != "" {
		v.Set("order", q.Order+".asc")
	}
	if q.Limit > 0 {
		v.Set("limit", fmt.Sprintf("%d", q.Limit))
	}
	return v
}

// Select decodes the matching rows of table into dest, a pointer to a slice.
func (c *Client) Select(ctx context.Context, table string, q Query, dest interface{}) error {
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, table, q.values().Encode())
	body, err := c.request(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode %s rows: %w", table, err)
	}
	return nil
}

// Insert adds one row and decodes the stored representation into dest.
func (c *Client) Insert(ctx context.Context, table string, row interface{}, dest interface{}) error {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, table)
	headers := map[string]string{"Prefer": "return=representation"}
	body, err := c.request(ctx, http.MethodPost, endpoint, row, headers)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	// the store answers with an array holding the inserted row
	var rows []json.RawMessage
	if err = json.Unmarshal(body, &rows); err != nil {
		return fmt.Errorf("decode inserted %s row: %w", table, err)
	}
	if len(rows) != 1 {
		return fmt.Errorf("insert into %s returned %d rows", table, len(rows))
	}
	if err = json.Unmarshal(rows[0], dest); err != nil {
		return fmt.Errorf("decode inserted %s row: %w", table, err)
	}
	return nil
}

// RPC calls a remote procedure with named arguments. dest may be nil when the
// result is not needed.
func (c *Client) RPC(ctx context.Context, function string, args interface{}, dest interface{}) error {
	endpoint := fmt.Sprintf("%s/rpc/%s", c.baseURL, function)
	body, err := c.request(ctx, http.MethodPost, endpoint, args, nil)
	if err != nil {
		return err
	}
	if dest == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err = json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode %s result: %w", function, err)
	}
	return nil
}

func (c *Client) request(ctx context.Context, method, endpoint string, payload interface{}, headers map[string]string) ([]byte, error) {
	log := c.log.With(
		slog.String("method", method),
		slog.String("endpoint", endpoint),
	)

	status := "ERROR"
	t1 := time.Now()
	defer func() {
		log.Debug("table store request completed",
			slog.String("duration", fmt.Sprintf("%.3fms", float64(time.Since(t1))/float64(time.Millisecond))),
			slog.String("status", status))
	}()

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("table store request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	status = resp.Status
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		log.Warn("table store returned error",
			slog.String("status", resp.Status),
			slog.String("code", apiErr.Code),
			slog.String("message", apiErr.Message))
		return nil, apiErr
	}

	return body, nil
}
