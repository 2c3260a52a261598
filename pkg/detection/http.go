package detection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-posegame/internal/httpc"
)

// HTTPConfig configures a remote landmark detector.
type HTTPConfig struct {
	// URL is the service base. Frames are POSTed to URL+"/detect" and
	// readiness is probed at URL+"/health".
	URL     string
	Timeout time.Duration
}

// DefaultHTTPConfig returns defaults for a detector service on localhost.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		URL:     "http://localhost:9000",
		Timeout: 2 * time.Second,
	}
}

// HTTPDetector sends JPEG frames to a remote pose service that answers with a
// JSON Result.
type HTTPDetector struct {
	config HTTPConfig
	client *http.Client
	ready  atomic.Bool
}

// NewHTTPDetector probes the service health endpoint and returns a ready
// detector, or an *Error if the service cannot be reached.
func NewHTTPDetector(ctx context.Context, cfg HTTPConfig) (*HTTPDetector, error) {
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.URL == "" {
		return nil, &Error{Message: "detector URL not set", Code: CodeGeneric}
	}
	d := &HTTPDetector{config: cfg, client: httpc.NewClient(cfg.Timeout)}

	resp, err := httpc.Get(ctx, d.client, cfg.URL+"/health")
	if err != nil {
		return nil, &Error{Message: "detector service unreachable", Code: CodeGeneric, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Message: fmt.Sprintf("detector service unhealthy: HTTP %d", resp.StatusCode), Code: CodeGeneric}
	}

	d.ready.Store(true)
	return d, nil
}

// HTTPFactory returns a Factory for cfg.
func HTTPFactory(cfg HTTPConfig) Factory {
	return func(ctx context.Context) (Detector, error) {
		return NewHTTPDetector(ctx, cfg)
	}
}

// Ready reports whether the service answered its health probe and the
// detector has not been closed.
func (d *HTTPDetector) Ready() bool {
	return d.ready.Load()
}

// Detect posts the frame and decodes the service's Result.
func (d *HTTPDetector) Detect(ctx context.Context, jpeg []byte) (*Result, error) {
	if !d.ready.Load() {
		return nil, &Error{Message: "detector closed", Code: CodeGeneric, Err: ErrNotReady}
	}

	resp, err := httpc.Post(ctx, d.client, d.config.URL+"/detect", "image/jpeg", jpeg)
	if err != nil {
		return nil, &Error{Message: "detect request failed", Code: CodeGeneric, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &Error{Message: fmt.Sprintf("detect: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), Code: CodeGeneric}
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, &Error{Message: "decode detect response", Code: CodeGeneric, Err: err}
	}
	if res.Skeleton == "" {
		res.Skeleton = SkeletonTracked
	}
	if res.Timestamp.IsZero() {
		res.Timestamp = time.Now()
	}
	return &res, nil
}

// Close marks the detector unusable.
func (d *HTTPDetector) Close() error {
	d.ready.Store(false)
	return nil
}

var _ Detector = (*HTTPDetector)(nil)
