// Package fetcher retrieves icon assets from the LaMetric icon host.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Raythekool/ha-awtrix-yahoofinance-stock/internal/model"
)

// maxIconBytes caps response reads. LaMetric thumbnails are 8x8 images,
// so anything near this limit is garbage anyway.
const maxIconBytes = 1 << 20

// Fetcher downloads icons by numeric ID, trying the animated GIF first and
// falling back to the static PNG. Each attempt is bounded by the client
// timeout; a token-bucket limiter keeps us polite toward the icon host.
type Fetcher struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a Fetcher against the given thumbnail base URL
// (e.g. "https://developer.lametric.com/content/apps/icon_thumbs").
func New(baseURL string, timeout time.Duration, ratePerSecond float64, burst int, logger *zap.Logger) *Fetcher {
	if burst < 1 {
		burst = 1
	}
	return &Fetcher{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		logger:  logger,
	}
}

// Fetch retrieves the icon with the given ID. Formats are tried in the order
// of model.FetchFormats; the first hit wins. If every format fails, the error
// from the last attempt is returned, classified so the caller can tell
// not-found from transport trouble.
func (f *Fetcher) Fetch(ctx context.Context, iconID int) (*model.FetchResult, error) {
	var lastErr error

	for _, format := range model.FetchFormats {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &model.PipelineError{Reason: model.ReasonCancelled, Err: err}
		}

		url := fmt.Sprintf("%s/%d.%s", f.baseURL, iconID, format)
		data, err := f.download(ctx, url)
		if err != nil {
			f.logger.Debug("format attempt failed",
				zap.Int("icon_id", iconID),
				zap.String("format", string(format)),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		f.logger.Info("icon downloaded",
			zap.Int("icon_id", iconID),
			zap.String("format", string(format)),
			zap.Int("bytes", len(data)),
		)
		return &model.FetchResult{IconID: iconID, Format: format, Data: data}, nil
	}

	return nil, fmt.Errorf("fetching icon %d: %w", iconID, lastErr)
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &model.PipelineError{Reason: model.ReasonNetworkError, Err: err}
	}
	req.Header.Set("User-Agent", "iconsync/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &model.PipelineError{Reason: classifyTransport(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &model.PipelineError{Reason: model.ReasonNotFound, Err: fmt.Errorf("HTTP 404 for %s", url)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &model.PipelineError{Reason: model.ReasonNetworkError, Err: fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIconBytes))
	if err != nil {
		return nil, &model.PipelineError{Reason: classifyTransport(err), Err: fmt.Errorf("reading body: %w", err)}
	}

	// The host serves empty 200 responses for some missing thumbnails.
	if len(data) == 0 {
		return nil, &model.PipelineError{Reason: model.ReasonNotFound, Err: fmt.Errorf("empty response for %s", url)}
	}

	return data, nil
}

// classifyTransport distinguishes timeouts from other transport failures.
func classifyTransport(err error) model.FailReason {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return model.ReasonTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.ReasonTimeout
	}
	return model.ReasonNetworkError
}
