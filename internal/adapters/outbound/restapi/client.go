package restapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// Retryable status codes: transient service-side conditions only.
var retryStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

const (
	retryCount    = 3
	retryWaitTime = 1 * time.Second
	probeTimeout  = 3 * time.Second
)

// Client implements domain.ServiceAPI and domain.Prober against the local
// memos REST service. API calls retry transient failures; discovery probes
// use a separate client with a short timeout and no retries, so an endpoint
// that does not exist fails fast.
type Client struct {
	httpc  *resty.Client
	probec *resty.Client
	logger hclog.Logger
}

func New(baseURL string, timeout time.Duration, logger hclog.Logger) *Client {
	httpc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryWaitTime).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && retryStatus[r.StatusCode()]
		})
	httpc.SetLogger(newHclogAdapter(logger))

	probec := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(probeTimeout)
	probec.SetLogger(newHclogAdapter(logger))

	return &Client{httpc: httpc, probec: probec, logger: logger}
}

func apiErr(resp *resty.Response, endpoint string) error {
	return &domain.APIError{
		StatusCode: resp.StatusCode(),
		Message:    http.StatusText(resp.StatusCode()),
		Endpoint:   endpoint,
	}
}

func (c *Client) Health(ctx context.Context) (*domain.APIHealth, error) {
	var h domain.APIHealth
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetResult(&h).
		Get("/api/health")
	if err != nil {
		return nil, fmt.Errorf("calling /api/health: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiErr(resp, "/api/health")
	}
	return &h, nil
}

func (c *Client) Frames(ctx context.Context, limit, offset int, processed *bool) (*domain.FramePage, error) {
	var page domain.FramePage
	req := c.httpc.R().
		SetContext(ctx).
		SetResult(&page).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetQueryParam("offset", strconv.Itoa(offset))
	if processed != nil {
		req.SetQueryParam("processed", strconv.FormatBool(*processed))
	}
	resp, err := req.Get("/api/frames")
	if err != nil {
		return nil, fmt.Errorf("calling /api/frames: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiErr(resp, "/api/frames")
	}
	return &page, nil
}

func (c *Client) Frame(ctx context.Context, id int64) (*domain.Frame, error) {
	var frame domain.Frame
	endpoint := fmt.Sprintf("/api/frames/%d", id)
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetResult(&frame).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", endpoint, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiErr(resp, endpoint)
	}
	return &frame, nil
}

func (c *Client) OCR(ctx context.Context, frameID int64) (*domain.OCRResult, error) {
	var ocr domain.OCRResult
	endpoint := fmt.Sprintf("/api/ocr/%d", frameID)
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetResult(&ocr).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", endpoint, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiErr(resp, endpoint)
	}
	return &ocr, nil
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	var hits []domain.SearchHit
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetResult(&hits).
		SetQueryParam("q", query).
		SetQueryParam("limit", strconv.Itoa(limit)).
		Get("/api/search")
	if err != nil {
		return nil, fmt.Errorf("calling /api/search: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiErr(resp, "/api/search")
	}
	return hits, nil
}

func (c *Client) SetMetadata(ctx context.Context, frameID int64, key, value string) error {
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"frame_id": frameID,
			"key":      key,
			"value":    value,
		}).
		Post("/api/metadata")
	if err != nil {
		return fmt.Errorf("calling /api/metadata: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return apiErr(resp, "/api/metadata")
	}
	return nil
}

func (c *Client) Metadata(ctx context.Context, frameID int64, key string) (map[string]string, error) {
	endpoint := fmt.Sprintf("/api/metadata/%d", frameID)
	if key != "" {
		endpoint += "/" + key
	}
	var meta map[string]string
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetResult(&meta).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", endpoint, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiErr(resp, endpoint)
	}
	return meta, nil
}

func (c *Client) ServiceConfig(ctx context.Context) (*domain.ServiceConfig, error) {
	var cfg domain.ServiceConfig
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetResult(&cfg).
		Get("/api/config")
	if err != nil {
		return nil, fmt.Errorf("calling /api/config: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiErr(resp, "/api/config")
	}
	return &cfg, nil
}

// EntityCount prefers the dedicated count endpoint and falls back to the
// total reported by frame pagination on older service versions.
func (c *Client) EntityCount(ctx context.Context) (int64, error) {
	var body struct {
		Count int64 `json:"count"`
	}
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/api/entities/count")
	if err == nil && resp.StatusCode() == http.StatusOK {
		return body.Count, nil
	}

	page, err := c.Frames(ctx, 1, 0, nil)
	if err != nil {
		return 0, fmt.Errorf("counting entities: %w", err)
	}
	return page.Total, nil
}

// Probe issues one raw discovery request. Any transport error is returned
// as-is; the caller decides what a given status code means.
func (c *Client) Probe(ctx context.Context, method, path string) (int, time.Duration, error) {
	start := time.Now()
	resp, err := c.probec.R().SetContext(ctx).Execute(method, path)
	elapsed := time.Since(start)
	if err != nil {
		return 0, elapsed, err
	}
	return resp.StatusCode(), elapsed, nil
}

// FetchJSON fetches a JSON document (e.g. an OpenAPI spec) without retries.
func (c *Client) FetchJSON(ctx context.Context, path string, v any) error {
	resp, err := c.probec.R().
		SetContext(ctx).
		SetResult(v).
		Get(path)
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return apiErr(resp, path)
	}
	return nil
}
