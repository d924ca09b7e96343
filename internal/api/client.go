package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marqueehq/marquee/internal/auth"
	"github.com/marqueehq/marquee/internal/logger"
	"github.com/marqueehq/marquee/internal/model"
)

// Client talks to the dashboard data-plane API. It owns no retry or cache
// state; it performs single requests, honors context cancellation, and
// converts every failure into a typed *Error.
type Client struct {
	baseURL string
	httpc   *http.Client
	cred    auth.Credential
	log     logger.Logger
}

// NewClient creates a data-plane client. timeout bounds each request on top
// of whatever deadline the caller's context carries.
func NewClient(baseURL string, cred auth.Credential, timeout time.Duration, log logger.Logger) *Client {
	if timeout <= 0 {
		timeout = model.DefaultRequestTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		cred:    cred,
		log:     log,
	}
}

// FetchDatasets returns the current ordered dataset list for a board context.
func (c *Client) FetchDatasets(ctx context.Context, bctx model.BoardContext) ([]model.DatasetRecord, error) {
	const op = "fetch datasets"

	url := fmt.Sprintf("%s/api/tenants/%s/dashboards/%s/datasets", c.baseURL, bctx.TenantID, bctx.DashboardID)
	body, err := c.do(ctx, op, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var records []model.DatasetRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, wrap(op, KindTransient, 0, fmt.Errorf("malformed response body: %w", err))
	}

	return normalizeRecords(records), nil
}

// PatchChartKind persists a chart-type change for one dataset. Callers apply
// the change optimistically and revert when this returns an error.
func (c *Client) PatchChartKind(ctx context.Context, bctx model.BoardContext, datasetID string, kind model.ChartKind) error {
	const op = "patch chart kind"

	payload, err := json.Marshal(map[string]string{
		"tenantId":  bctx.TenantID,
		"chartKind": string(kind),
	})
	if err != nil {
		return wrap(op, KindTerminal, 0, err)
	}

	url := fmt.Sprintf("%s/api/datasets/%s", c.baseURL, datasetID)
	_, err = c.do(ctx, op, http.MethodPatch, url, payload)
	return err
}

// FetchSettings returns the tenant's remote presentation settings.
func (c *Client) FetchSettings(ctx context.Context, tenantID string) (model.TenantSettings, error) {
	const op = "fetch settings"

	url := fmt.Sprintf("%s/api/tenants/%s/settings", c.baseURL, tenantID)
	body, err := c.do(ctx, op, http.MethodGet, url, nil)
	if err != nil {
		return model.TenantSettings{}, err
	}

	var ts model.TenantSettings
	if err := json.Unmarshal(body, &ts); err != nil {
		return model.TenantSettings{}, wrap(op, KindTransient, 0, fmt.Errorf("malformed response body: %w", err))
	}
	return ts, nil
}

// CheckAccess asks whether the credential may view the given dashboard. A
// definitive server-side "no" is (false, nil), not an error.
func (c *Client) CheckAccess(ctx context.Context, bctx model.BoardContext) (bool, error) {
	const op = "check access"

	url := fmt.Sprintf("%s/api/tenants/%s/dashboards/%s/access", c.baseURL, bctx.TenantID, bctx.DashboardID)
	body, err := c.do(ctx, op, http.MethodGet, url, nil)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Kind == KindDenied {
			return false, nil
		}
		return false, err
	}

	var resp struct {
		Allowed bool `json:"allowed"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, wrap(op, KindTransient, 0, fmt.Errorf("malformed response body: %w", err))
	}
	return resp.Allowed, nil
}

// do issues one request and reads the full body. Status and transport
// failures come back classified.
func (c *Client) do(ctx context.Context, op, method, url string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, wrap(op, KindTerminal, 0, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cred != nil && c.cred.Token() != "" {
		req.Header.Set("Authorization", "Bearer "+c.cred.Token())
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, wrap(op, KindCancelled, 0, ctx.Err())
		}
		return nil, wrap(op, KindTransient, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, wrap(op, KindCancelled, 0, ctx.Err())
		}
		return nil, wrap(op, KindTransient, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := classifyStatus(resp.StatusCode)
		return nil, wrap(op, kind, resp.StatusCode, fmt.Errorf("%s", bodySnippet(body)))
	}

	c.log.Debug("api request completed",
		"op", op,
		"requestId", requestID,
		"status", resp.StatusCode,
		"took", time.Since(start),
	)
	return body, nil
}

// bodySnippet keeps error messages bounded when the server returns a page of
// HTML or a stack trace.
func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	if s == "" {
		s = "(empty body)"
	}
	return s
}

// normalizeRecords makes fetched records safe for the paginator and
// renderer: rows that decoded as empty objects are dropped, unknown chart
// kinds fall back to bar, and a missing field order is derived from the
// first row's keys.
func normalizeRecords(records []model.DatasetRecord) []model.DatasetRecord {
	out := make([]model.DatasetRecord, 0, len(records))
	for _, rec := range records {
		rows := make([]model.Row, 0, len(rec.Rows))
		for _, row := range rec.Rows {
			if len(row) == 0 {
				continue
			}
			rows = append(rows, row)
		}
		rec.Rows = rows

		if !model.ValidChartKind(rec.ChartKind) {
			rec.ChartKind = model.ChartBar
		}

		if len(rec.FieldOrder) == 0 && len(rec.Rows) > 0 {
			keys := make([]string, 0, len(rec.Rows[0]))
			for k := range rec.Rows[0] {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			rec.FieldOrder = keys
		}

		out = append(out, rec)
	}
	return out
}
