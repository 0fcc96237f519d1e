package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Vovarama1992/scene_narrator/internal/domain"
)

const attempts = 2

// Client grabs still frames from a network camera at a fixed URL.
type Client struct {
	url        string
	maxBytes   int64
	client     *http.Client
	retryDelay time.Duration
	log        *zap.SugaredLogger
}

func NewClient(url string, timeout time.Duration, maxBytes int64, log *zap.SugaredLogger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &Client{
		url:        url,
		maxBytes:   maxBytes,
		client:     &http.Client{Timeout: timeout},
		retryDelay: 500 * time.Millisecond,
		log:        log,
	}
}

// Fetch returns the current JPEG frame. A failed attempt is retried once.
func (c *Client) Fetch(ctx context.Context) (*domain.ImageBlob, error) {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, ctx.Err())
			case <-time.After(c.retryDelay):
			}
		}

		data, err := c.fetchOnce(ctx)
		if err == nil {
			c.log.Infow("camera frame fetched",
				"attempt", attempt,
				"size", humanize.Bytes(uint64(len(data))))
			return &domain.ImageBlob{
				Data:        data,
				ContentType: "image/jpeg",
				Source:      domain.SourceCamera,
			}, nil
		}
		lastErr = err
		c.log.Warnw("camera fetch failed", "attempt", attempt, "error", err)
	}
	return nil, fmt.Errorf("%w: unable to fetch image from the IP camera: %v", domain.ErrUpstreamUnavailable, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("camera request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera status: %s", resp.Status)
	}
	if resp.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("frame too large: %d bytes", resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, errors.New("frame too large")
	}
	if len(data) == 0 {
		return nil, errors.New("empty frame")
	}
	return data, nil
}
