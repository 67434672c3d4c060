// Package reportstore is the HTTP client for the remote dossier store. The
// store is an opaque collaborator: this package only speaks its wire contract
// and never assumes anything about its persistence.
package reportstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"bitbucket.org/mmdatafocus/cdrr_triage/models"
	"bitbucket.org/mmdatafocus/cdrr_triage/utils"
)

var tracer = otel.Tracer("cdrr-triage/reportstore")

type Client struct {
	baseURL string
	http    *http.Client
	limiter <-chan time.Time
}

// NewClient reads its endpoint configuration from the environment, matching
// how the rest of the service is configured.
func NewClient() *Client {
	baseURL := utils.GetEnv("REPORTSTORE_BASE_URL", "http://localhost:8000")

	var limiter <-chan time.Time
	if perMin := utils.GetEnvInt("REPORTSTORE_RATE_LIMIT_PER_MIN", 0); perMin > 0 {
		limiter = time.Tick(time.Minute / time.Duration(perMin))
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: utils.GetEnvDuration("REPORTSTORE_TIMEOUT", 30*time.Second)},
		limiter: limiter,
	}
}

// NewClientWithBase is for tests and fixed wiring.
func NewClientWithBase(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// ListParams are the outbound query parameters of one fetch. Category is
// empty for the unfiltered view and for client-derived buckets.
type ListParams struct {
	Page      int
	PageSize  int
	Search    string
	Status    models.ReportStatus
	Category  models.ReportCategory
	SortBy    string
	SortOrder string
}

func (p ListParams) values() url.Values {
	params := url.Values{}
	if p.Page > 0 {
		params.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		params.Set("search", s)
	}
	if p.Status != "" {
		params.Set("status", string(p.Status))
	}
	if p.Category != "" {
		params.Set("category", string(p.Category))
	}
	if p.SortBy != "" {
		params.Set("sort_by", p.SortBy)
		params.Set("sort_order", p.SortOrder)
	}
	return params
}

// ListResult mirrors the store's paginated envelope. For derived buckets the
// orchestrator recomputes Total/TotalPages locally and the envelope values
// are ignored.
type ListResult struct {
	Data       []models.Report `json:"data"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
}

func (c *Client) List(ctx context.Context, params ListParams) (*ListResult, error) {
	ctx, span := tracer.Start(ctx, "reportstore.List")
	defer span.End()

	body, err := c.do(ctx, http.MethodGet, "/cdrr-reports", params.values(), nil)
	if err != nil {
		return nil, err
	}
	var parsed ListResult
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("reportstore: decoding list response: %w", err)
	}
	return &parsed, nil
}

func (c *Client) Get(ctx context.Context, id string) (*models.Report, error) {
	ctx, span := tracer.Start(ctx, "reportstore.Get")
	defer span.End()

	body, err := c.do(ctx, http.MethodGet, "/cdrr-reports/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var report models.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("reportstore: decoding report: %w", err)
	}
	return &report, nil
}

// Create accepts either the CDRR payload (models.NewReport) or the Inspector
// payload (models.NewFrooReport); the store discriminates on shape.
func (c *Client) Create(ctx context.Context, payload any) (*models.Report, error) {
	ctx, span := tracer.Start(ctx, "reportstore.Create")
	defer span.End()

	body, err := c.do(ctx, http.MethodPost, "/cdrr-reports", nil, payload)
	if err != nil {
		return nil, err
	}
	var report models.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("reportstore: decoding created report: %w", err)
	}
	return &report, nil
}

// Update sends exactly one section. The caller is responsible for having
// checked section.ExactlyOne(); the store rejects anything else.
func (c *Client) Update(ctx context.Context, id string, section models.UpdateSection) error {
	ctx, span := tracer.Start(ctx, "reportstore.Update")
	defer span.End()

	_, err := c.do(ctx, http.MethodPut, "/cdrr-reports/"+url.PathEscape(id), nil, section)
	return err
}

// Delete is a soft delete on the store side.
func (c *Client) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "reportstore.Delete")
	defer span.End()

	_, err := c.do(ctx, http.MethodDelete, "/cdrr-reports/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *Client) BulkDelete(ctx context.Context, ids []string) error {
	ctx, span := tracer.Start(ctx, "reportstore.BulkDelete")
	defer span.End()

	payload := map[string][]string{"ids": ids}
	_, err := c.do(ctx, http.MethodPost, "/cdrr-reports/bulk-delete", nil, payload)
	return err
}

// do issues one request. No automatic retries anywhere: retry is always a
// manual re-trigger by the caller.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, payload any) ([]byte, error) {
	if c.limiter != nil {
		select {
		case <-c.limiter:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("reportstore: encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Pass the caller's token through untouched; token mechanics live upstream.
	if token, ok := utils.GetTokenFromContext(ctx); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok && cid != "" {
		req.Header.Set("X-Correlation-Id", cid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return nil, utils.ErrorRecordNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("reportstore api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
