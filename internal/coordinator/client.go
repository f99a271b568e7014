package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/daehee87/fuzzing-bot/config"
	"github.com/daehee87/fuzzing-bot/internal/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	AuthPath     = "/auth"
	ConfigPath   = "/config"
	DownloadPath = "/download"
	ReportPath   = "/report"

	maxResponseSize = 64 << 20 // poc payloads are base64 inside the JSON body
)

// Client talks to the campaign coordinator. Every call is a single POST with a
// JSON body and a JSON answer carrying "retcode".
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

type ClientParams struct {
	fx.In

	Config *config.AppConfig
	Logger *zap.Logger
}

func NewClient(p ClientParams) *Client {
	return New(p.Config.CoordinatorURL, p.Config.Campaign.HTTPTimeout, p.Logger)
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("coordinator"),
	}
}

type baseResponse struct {
	RetCode *int   `json:"retcode"` // required in every answer
	Msg     string `json:"msg"`
}

type configResponse struct {
	baseResponse
	SessionTime       float64 `json:"SESSION_TIME"`
	BuildCacheTimeout float64 `json:"BUILD_CACHE_TIMEOUT"`
}

type downloadResponse struct {
	baseResponse
	PocB64 *string `json:"poc_b64"`
}

func (c *Client) Authenticate(ctx context.Context, id types.BotIdentity) error {
	var resp baseResponse
	return c.post(ctx, AuthPath, map[string]string{"botid": id.String()}, &resp, &resp)
}

// SyncConfig returns prev with every field the coordinator sent replaced.
// Missing values and values below one second keep the value from prev.
func (c *Client) SyncConfig(ctx context.Context, id types.BotIdentity, prev types.SessionConfig) (types.SessionConfig, error) {
	var resp configResponse
	if err := c.post(ctx, ConfigPath, map[string]string{"botid": id.String()}, &resp, &resp.baseResponse); err != nil {
		return prev, err
	}

	next := prev
	next.Source = types.SourceSynced
	if d, ok := types.DurationFromSeconds(resp.SessionTime); ok {
		next.SessionDuration = d
	}
	if d, ok := types.DurationFromSeconds(resp.BuildCacheTimeout); ok {
		next.BuildCacheTTL = d
	}
	return next, nil
}

func (c *Client) FetchPoc(ctx context.Context, id types.BotIdentity, name string) ([]byte, error) {
	var resp downloadResponse
	body := map[string]string{"botid": id.String(), "poc_name": name}
	if err := c.post(ctx, DownloadPath, body, &resp, &resp.baseResponse); err != nil {
		return nil, err
	}

	if resp.PocB64 == nil {
		return nil, &ConnectivityError{Path: DownloadPath, Err: errors.New("missing poc_b64")}
	}
	poc, err := types.DecodePayload(*resp.PocB64)
	if err != nil {
		return nil, &ConnectivityError{Path: DownloadPath, Err: err}
	}
	return poc, nil
}

func (c *Client) Report(ctx context.Context, report types.CampaignReport) error {
	var resp baseResponse
	return c.post(ctx, ReportPath, report, &resp, &resp)
}

// post sends body to path and decodes the answer into out. status must point
// into out so the retcode can be checked after decoding.
func (c *Client) post(ctx context.Context, path string, body any, out any, status *baseResponse) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &ConnectivityError{Path: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending request", zap.String("path", path), zap.Int("size", len(payload)))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectivityError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &ConnectivityError{Path: path, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return &ConnectivityError{Path: path, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ConnectivityError{Path: path, Err: fmt.Errorf("decode body: %w", err)}
	}

	if status.RetCode == nil {
		return &ConnectivityError{Path: path, Err: errors.New("missing retcode")}
	}
	if *status.RetCode != 0 {
		return &RejectionError{Path: path, RetCode: *status.RetCode, Msg: status.Msg}
	}
	return nil
}
