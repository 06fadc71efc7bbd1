package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultRetries = 2
	defaultBackoff = 500 * time.Millisecond
)

type SlackService struct {
	logger     *logrus.Logger
	webhookURL string
	client     *http.Client
	limiter    *rate.Limiter
	retries    int
	backoff    time.Duration
}

type SlackMessage struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Color  string  `json:"color,omitempty"`
	Text   string  `json:"text,omitempty"`
	Fields []Field `json:"fields,omitempty"`
	Footer string  `json:"footer,omitempty"`
	Ts     int64   `json:"ts,omitempty"`
}

type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// webhookError is a non-2xx answer from the webhook. Retryable answers are 429 and 5xx.
type webhookError struct {
	status     int
	retryAfter time.Duration
}

func (e *webhookError) Error() string {
	return fmt.Sprintf("slack webhook returned status %d", e.status)
}

func (e *webhookError) retryable() bool {
	return e.status == http.StatusTooManyRequests || e.status >= 500
}

// NewSlackService posts to an incoming webhook, at most one message per second.
func NewSlackService(logger *logrus.Logger, webhookURL string) (*SlackService, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL is not set")
	}

	return &SlackService{
		logger:     logger,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 3),
		retries:    defaultRetries,
		backoff:    defaultBackoff,
	}, nil
}

func (s *SlackService) WithHTTPClient(client *http.Client) *SlackService {
	s.client = client
	return s
}

// WithRetry sets how many times a 429 or 5xx answer is retried and the base delay
// between attempts. The delay doubles each attempt unless the webhook sends Retry-After.
func (s *SlackService) WithRetry(retries int, backoff time.Duration) *SlackService {
	s.retries = retries
	s.backoff = backoff
	return s
}

func (s *SlackService) SendSlackMessage(ctx context.Context, message *SlackMessage) error {
	jsonMessage, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("error marshaling slack message: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("slack send cancelled: %w", err)
		}

		lastErr = s.post(ctx, jsonMessage)
		if lastErr == nil {
			s.logger.Debug("Successfully sent message to Slack")
			return nil
		}

		werr, ok := lastErr.(*webhookError)
		if !ok || !werr.retryable() || attempt == s.retries {
			break
		}

		delay := s.backoff << attempt
		if werr.retryAfter > 0 {
			delay = werr.retryAfter
		}
		s.logger.WithFields(logrus.Fields{
			"status":  werr.status,
			"attempt": attempt + 1,
			"delay":   delay.String(),
		}).Debug("Retrying slack message")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("slack send cancelled: %w", ctx.Err())
		}
	}

	return fmt.Errorf("error sending slack message: %w", lastErr)
}

func (s *SlackService) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		werr := &webhookError{status: resp.StatusCode}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			werr.retryAfter = time.Duration(secs) * time.Second
		}
		return werr
	}
	return nil
}
