// Package supabase implements the store ports against a Supabase project:
// GoTrue for authentication and PostgREST for the profiles and transactions
// tables. The client speaks the REST API directly over net/http.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// From starts a PostgREST query against a table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table}
}

// Query builds a single PostgREST request.
type Query struct {
	client  *Client
	table   string
	columns string
	filters []string
	order   string
	limit   int
	single  bool
	count   bool
	token   string
}

func (q *Query) Select(columns string) *Query {
	q.columns = columns
	return q
}

func (q *Query) Eq(column string, value any) *Query {
	q.filters = append(q.filters, fmt.Sprintf("%s=eq.%v", column, value))
	return q
}

func (q *Query) Neq(column string, value any) *Query {
	q.filters = append(q.filters, fmt.Sprintf("%s=neq.%v", column, value))
	return q
}

func (q *Query) Gte(column string, value any) *Query {
	q.filters = append(q.filters, fmt.Sprintf("%s=gte.%v", column, value))
	return q
}

func (q *Query) Lte(column string, value any) *Query {
	q.filters = append(q.filters, fmt.Sprintf("%s=lte.%v", column, value))
	return q
}

func (q *Query) Order(column string, ascending bool) *Query {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.order = column + "." + dir
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Single expects exactly one row in the response.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

// Count asks PostgREST for an exact row count in the Content-Range header.
func (q *Query) Count() *Query {
	q.count = true
	return q
}

// AsUser scopes the request to a user's access token so row-level security
// applies. Without it, requests run with the configured API key.
func (q *Query) AsUser(token string) *Query {
	q.token = token
	return q
}

func (q *Query) url() string {
	u := q.client.baseURL + "/rest/v1/" + q.table
	params := url.Values{}
	if q.columns != "" {
		params.Set("select", q.columns)
	}
	for _, f := range q.filters {
		parts := strings.SplitN(f, "=", 2)
		params.Add(parts[0], parts[1])
	}
	if q.order != "" {
		params.Set("order", q.order)
	}
	if q.limit > 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// Get executes a SELECT and decodes the rows into out.
func (q *Query) Get(ctx context.Context, out any) error {
	resp, err := q.do(ctx, http.MethodGet, nil)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.body, out)
}

// GetCount executes a SELECT with count=exact and returns the total rows.
func (q *Query) GetCount(ctx context.Context) (int, error) {
	q.count = true
	if q.limit == 0 {
		q.limit = 1
	}
	resp, err := q.do(ctx, http.MethodGet, nil)
	if err != nil {
		return 0, err
	}
	// Content-Range is "start-end/total" or "*/total"
	cr := resp.headers.Get("Content-Range")
	idx := strings.LastIndex(cr, "/")
	if idx < 0 {
		return 0, fmt.Errorf("missing count in Content-Range %q", cr)
	}
	total, err := strconv.Atoi(cr[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("parse count from Content-Range %q: %w", cr, err)
	}
	return total, nil
}

// Insert executes an INSERT and decodes the representation into out.
func (q *Query) Insert(ctx context.Context, row, out any) error {
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}
	resp, err := q.do(ctx, http.MethodPost, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.body, out)
}

// Update executes a PATCH with the current filters.
func (q *Query) Update(ctx context.Context, fields any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	_, err = q.do(ctx, http.MethodPatch, body)
	return err
}

// Delete executes a DELETE with the current filters and returns the number
// of rows removed.
func (q *Query) Delete(ctx context.Context) (int, error) {
	resp, err := q.do(ctx, http.MethodDelete, nil)
	if err != nil {
		return 0, err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(resp.body, &rows); err != nil {
		return 0, nil
	}
	return len(rows), nil
}

type response struct {
	status  int
	body    []byte
	headers http.Header
}

func (q *Query) do(ctx context.Context, method string, body []byte) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, q.url(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	token := q.token
	if token == "" {
		token = q.client.apiKey
	}
	req.Header.Set("apikey", q.client.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.single {
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	}

	prefer := []string{}
	if method == http.MethodPost || method == http.MethodDelete {
		prefer = append(prefer, "return=representation")
	}
	if q.count {
		prefer = append(prefer, "count=exact")
	}
	if len(prefer) > 0 {
		req.Header.Set("Prefer", strings.Join(prefer, ","))
	}

	httpResp, err := q.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	resp := &response{status: httpResp.StatusCode, body: respBody, headers: httpResp.Header}
	if httpResp.StatusCode >= 400 {
		return resp, restError(httpResp.StatusCode, respBody)
	}
	return resp, nil
}

// apiError is a failed PostgREST or GoTrue response. It keeps the HTTP
// status so callers can map credential, duplicate and not-found conditions
// onto the shared store errors.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("supabase: %s (status %d)", e.msg, e.status)
}

// StatusOf returns the HTTP status carried by a supabase error, or zero.
func StatusOf(err error) int {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.status
	}
	return 0
}

// restError extracts the PostgREST / GoTrue error message from a failed
// response body.
func restError(status int, body []byte) error {
	var payload struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	msg := "request failed"
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, m := range []string{payload.Message, payload.Msg, payload.ErrorDescription, payload.Error} {
			if m != "" {
				msg = m
				break
			}
		}
	}
	return &apiError{status: status, msg: msg}
}
