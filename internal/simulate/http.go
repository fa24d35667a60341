package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/randommarket/pkg/logger"
)

const pollInterval = 100 * time.Millisecond

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends a request and decodes a JSON answer into out when it is not nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil && resp.StatusCode < http.StatusBadRequest {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

type spinStarted struct {
	SpinID string `json:"spin_id"`
}

type snapshot struct {
	State  string `json:"state"`
	SpinID string `json:"spin_id"`
	Result *struct {
		Winner struct {
			ID string `json:"id"`
		} `json:"winner"`
	} `json:"result"`
}

// RunRemote asks a running server for cfg.Spins spins one after the other
// and tallies the winners it reports.
func RunRemote(ctx context.Context, cfg *Config) (RemoteReport, error) {
	log := logger.Get().Named("simulate")
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	code, err := client.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return RemoteReport{}, fmt.Errorf("failed to connect to service: %w", err)
	}
	if code != http.StatusOK {
		return RemoteReport{}, fmt.Errorf("service health check failed with status: %d", code)
	}

	start := time.Now()
	report := RemoteReport{Spins: cfg.Spins, Winners: make(map[string]int)}
	for i := 0; i < cfg.Spins; i++ {
		winner, err := remoteSpin(ctx, client)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed++
			log.Warn(ctx, "spin failed", logger.Int("spin", i), logger.Error(err))
			continue
		}
		report.Completed++
		report.Winners[winner]++
		if cfg.Verbose {
			log.Info(ctx, "spin completed", logger.Int("spin", i), logger.String("winner", winner))
		}
	}
	report.Duration = time.Since(start)
	log.Info(ctx, "remote run finished",
		logger.Int("completed", report.Completed),
		logger.Int("failed", report.Failed),
		logger.Int("distinctWinners", len(report.Winners)),
		logger.Duration("took", report.Duration))
	return report, nil
}

func remoteSpin(ctx context.Context, client *HTTPClient) (string, error) {
	var started spinStarted
	for {
		code, err := client.do(ctx, http.MethodPost, "/spins", &started)
		if err != nil {
			return "", err
		}
		if code == http.StatusAccepted {
			break
		}
		if code != http.StatusConflict {
			return "", fmt.Errorf("start spin: status %d", code)
		}
		// Someone else is spinning; wait for it.
		if err := sleep(ctx, pollInterval); err != nil {
			return "", err
		}
	}

	for {
		var snap snapshot
		if _, err := client.do(ctx, http.MethodGet, "/spins/current", &snap); err != nil {
			return "", err
		}
		switch {
		case snap.State == "idle":
			return "", fmt.Errorf("spin %s was cancelled", started.SpinID)
		case snap.SpinID != started.SpinID:
			return "", fmt.Errorf("spin %s was replaced by %q", started.SpinID, snap.SpinID)
		case snap.State == "completed" && snap.Result != nil:
			return snap.Result.Winner.ID, nil
		}
		if err := sleep(ctx, pollInterval); err != nil {
			return "", err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
