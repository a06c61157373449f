// Package keepalive pings the bridge's own public URL so free-tier hosts do not put it to sleep.
package keepalive

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Pinger periodically requests a URL.
type Pinger struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   *zap.Logger
}

// New creates a Pinger. timeout bounds every request.
func New(url string, interval, timeout time.Duration, logger *zap.Logger) *Pinger {
	return &Pinger{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With(zap.String("url", url)),
	}
}

// Enabled reports whether the pinger has both a URL and a positive interval.
func (p *Pinger) Enabled() bool {
	return p.url != "" && p.interval > 0
}

// Run pings every interval until ctx is done. It returns immediately when disabled.
func (p *Pinger) Run(ctx context.Context) {
	if !p.Enabled() {
		p.logger.Info("keep-alive disabled")
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Ping(ctx); err != nil {
				p.logger.Warn("keep-alive ping failed", zap.Error(err))
				continue
			}
			p.logger.Debug("keep-alive ping ok")
		}
	}
}

// Ping sends one GET request. Any non-2xx answer is an error.
func (p *Pinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return errors.Wrap(err, "build keep-alive request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "keep-alive request")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return errors.Errorf("keep-alive got http %d", resp.StatusCode)
	}
	return nil
}
