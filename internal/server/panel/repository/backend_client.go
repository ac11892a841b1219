package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Alwanly/guang-panel/internal/config"
	"github.com/Alwanly/guang-panel/internal/models"
	"github.com/Alwanly/guang-panel/internal/server/panel/dto"
	"github.com/Alwanly/guang-panel/pkg/logger"
)

// EnvelopeError is a well-formed backend response with Status set to false.
type EnvelopeError struct {
	Endpoint string
	Message  string
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Endpoint, e.Message)
}

func (e *EnvelopeError) StatusCode() int {
	return http.StatusBadGateway
}

// BackendError is a failure to get a well-formed answer from the backend:
// the request failed, the status was not 200 or the body did not decode.
type BackendError struct {
	Endpoint string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("request %s failed: %v", e.Endpoint, e.Err)
}

func (e *BackendError) StatusCode() int {
	return http.StatusBadGateway
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

type enveloped interface {
	Env() *dto.Envelope
}

var (
	_ enveloped = (*dto.Envelope)(nil)
	_ enveloped = (*dto.WorkerControlResponse)(nil)
	_ enveloped = (*dto.BeaconResponse)(nil)
	_ enveloped = (*dto.PortRecentResponse)(nil)
	_ enveloped = (*dto.WorkerCountResponse)(nil)
)

type backendClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.CanonicalLogger
}

// NewBackendClient creates a new backend client repository
func NewBackendClient(cfg *config.PanelConfig, log *logger.CanonicalLogger) IBackendClient {
	return &backendClient{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    strings.TrimRight(cfg.BackendURL, "/"),
		logger:     log,
	}
}

func (c *backendClient) SpawnWorkers(ctx context.Context, facilityID string, amount int) (int, error) {
	return c.workerControl(ctx, "spawn_worker", facilityID, amount)
}

func (c *backendClient) StopWorkers(ctx context.Context, facilityID string, amount int) (int, error) {
	return c.workerControl(ctx, "stop_worker", facilityID, amount)
}

func (c *backendClient) workerControl(ctx context.Context, op, facilityID string, amount int) (int, error) {
	path := fmt.Sprintf("/ajax/%s/%s/%d", op, url.PathEscape(facilityID), amount)

	var res dto.WorkerControlResponse
	if err := c.get(ctx, path, nil, &res); err != nil {
		return 0, err
	}
	return res.NewCnt, nil
}

func (c *backendClient) WorkerCount(ctx context.Context) (map[string]int, error) {
	var res dto.WorkerCountResponse
	if err := c.get(ctx, "/ajax/worker_count", nil, &res); err != nil {
		return nil, err
	}
	return res.Counts, nil
}

func (c *backendClient) Beacon(ctx context.Context) (*dto.BeaconResponse, error) {
	var res dto.BeaconResponse
	if err := c.get(ctx, "/ajax/beacon", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *backendClient) PortRecent(ctx context.Context, since time.Time) (map[uint16][]models.ScanResult, error) {
	path := "/ajax/port_recent/" + strconv.FormatInt(since.Unix(), 10)

	var res dto.PortRecentResponse
	if err := c.get(ctx, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Results, nil
}

func (c *backendClient) DBMaintenance(ctx context.Context) error {
	return c.get(ctx, "/ajax/db_maint", nil, &dto.Envelope{})
}

func (c *backendClient) RandomMessages(ctx context.Context, count, rounds, delay int) error {
	query := url.Values{}
	query.Set("Rounds", strconv.Itoa(rounds))
	query.Set("Delay", strconv.Itoa(delay))
	return c.get(ctx, "/ajax/rnd_message/"+strconv.Itoa(count), query, &dto.Envelope{})
}

func (c *backendClient) Shutdown(ctx context.Context) error {
	query := url.Values{}
	query.Set("AreYouSure", "true")
	query.Set("AreYouReallySure", "true")
	return c.get(ctx, "/ajax/shutdown", query, &dto.Envelope{})
}

// get issues a GET request, decodes the JSON body into out and turns
// Status=false into an *EnvelopeError.
func (c *backendClient) get(ctx context.Context, path string, query url.Values, out enveloped) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("backend request", logger.String(logger.FieldBackendURL, target))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &BackendError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &BackendError{
			Endpoint: path,
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &BackendError{Endpoint: path, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if env := out.Env(); !env.Status {
		return &EnvelopeError{Endpoint: path, Message: env.Message}
	}
	return nil
}
