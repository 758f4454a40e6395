// Package transport performs the network side of the upload pipeline: it
// builds the multipart payload for one task, interprets the server's
// structured response, and drives a bounded retry loop for rate-limit
// conditions.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/imgvault/internal/client/models"
	"github.com/dmitrijs2005/imgvault/internal/common"
)

const defaultMaxAttempts = 3

// retryAfterRe matches the legacy free-text rate-limit hint. The structured
// retry_after field is preferred; this is the compatibility fallback for
// relays that only embed the hint in the message.
var retryAfterRe = regexp.MustCompile(`retry after (\d+)`)

// UploadMeta carries the per-batch upload settings shared by every task.
type UploadMeta struct {
	Tags   []string
	Folder string
	Expire string
}

// Client talks to the imgvault server API.
type Client struct {
	baseURL     string
	httpc       *http.Client
	meta        UploadMeta
	maxAttempts int

	// onSuccess is invoked after each successful upload; the CLI wires it
	// to a stats refresh.
	onSuccess func(ctx context.Context)
}

// Option mutates a Client under construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithMaxAttempts bounds the total attempts per task, counting the first.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithSuccessHook registers a callback fired after every successful upload.
func WithSuccessHook(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onSuccess = fn }
}

// New builds a Client for the server at baseURL.
func New(baseURL string, meta UploadMeta, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpc:       &http.Client{Timeout: 5 * time.Minute},
		meta:        meta,
		maxAttempts: defaultMaxAttempts,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// uploadResponse is the server's structured success/error payload.
type uploadResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	ShortCode  string `json:"short_code"`
	FileID     string `json:"file_id"`
	RetryAfter int    `json:"retry_after"`
}

// Send uploads one prepared payload. A rate-limited attempt waits the
// server-provided number of seconds and retries the same task, up to the
// attempt bound; every other failure is terminal for the attempt. Send
// never resubmits after a successful response.
func (c *Client) Send(ctx context.Context, task *models.UploadTask, payload []byte) (string, error) {
	var waitSec atomic.Int64
	waitSec.Store(1)

	// Backoff delay comes from the server's retry hint, not a schedule.
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		return time.Duration(waitSec.Load()) * time.Second, false
	})

	var code string
	err := retry.Do(ctx, retry.WithMaxRetries(uint64(c.maxAttempts-1), backoff), func(ctx context.Context) error {
		sc, retryAfter, err := c.attempt(ctx, task, payload)
		if err != nil {
			if errors.Is(err, common.ErrRateLimited) {
				if retryAfter > 0 {
					waitSec.Store(int64(retryAfter))
				}
				return retry.RetryableError(err)
			}
			return err
		}
		code = sc
		return nil
	})
	if err != nil {
		return "", err
	}

	if c.onSuccess != nil {
		c.onSuccess(ctx)
	}
	return code, nil
}

// attempt issues exactly one upload request.
func (c *Client) attempt(ctx context.Context, task *models.UploadTask, payload []byte) (shortCode string, retryAfter int, err error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("photo", task.Name)
	if err != nil {
		return "", 0, fmt.Errorf("multipart: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return "", 0, fmt.Errorf("multipart write: %w", err)
	}

	tags := c.meta.Tags
	if len(tags) == 0 {
		tags = []string{common.DefaultTag}
	}
	fields := map[string]string{
		"expire":   c.meta.Expire,
		"tags":     strings.Join(tags, ","),
		"filename": task.Name,
		"folder":   c.meta.Folder,
		"hash":     task.Digest,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", 0, fmt.Errorf("multipart field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", 0, fmt.Errorf("multipart close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", body)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("read response: %w", err)
	}

	var ur uploadResponse
	if err := json.Unmarshal(raw, &ur); err != nil {
		return "", 0, fmt.Errorf("malformed response (%d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", parseRetryAfter(&ur), fmt.Errorf("%w: %s", common.ErrRateLimited, ur.Message)
	}
	if resp.StatusCode != http.StatusOK || ur.Status != "success" {
		msg := ur.Message
		if msg == "" {
			msg = resp.Status
		}
		return "", 0, fmt.Errorf("upload failed: %s", msg)
	}

	return ur.ShortCode, 0, nil
}

// parseRetryAfter prefers the structured field and falls back to scanning
// the message text for "retry after N".
func parseRetryAfter(ur *uploadResponse) int {
	if ur.RetryAfter > 0 {
		return ur.RetryAfter
	}
	if m := retryAfterRe.FindStringSubmatch(ur.Message); m != nil {
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		return n
	}
	return 0
}
