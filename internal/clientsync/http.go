package clientsync

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

// HTTPClient talks to the ritual API. The bearer token identifies the user, so the userID
// arguments only label logs.
type HTTPClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Log     *logger.Logger

	// Reconnect delays for the event stream.
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
}

// APIError is a non-2xx response from the ritual API.
type APIError struct {
	Status           int    `json:"-"`
	Message          string `json:"message"`
	Code             string `json:"code"`
	CurrentDayTarget *int   `json:"current_day_target,omitempty"`
	Retryable        bool   `json:"retryable,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ritual api: %d %s: %s", e.Status, e.Code, e.Message)
}

func (c *HTTPClient) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *HTTPClient) logger() *logger.Logger {
	if c.Log != nil {
		return c.Log
	}
	return logger.NewNop()
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, nil)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

func (c *HTTPClient) FetchStatus(ctx context.Context, _ uuid.UUID) (*Status, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/ritual/status")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return DefaultStatus(), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	if st.CurrentDayTarget < 1 {
		st.CurrentDayTarget = 1
	}
	return &st, nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || env.Error.Code == "" {
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	env.Error.Status = resp.StatusCode
	return &env.Error
}

// Subscribe opens the event stream and keeps it open, reconnecting with exponential backoff.
// The server sends ready on every connect, so each reconnect also triggers a refetch. An
// auth failure ends the subscription.
func (c *HTTPClient) Subscribe(ctx context.Context, userID uuid.UUID) (Subscription, error) {
	sctx, cancel := context.WithCancel(ctx)
	sub := &httpSubscription{
		signals: make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go c.streamLoop(sctx, sub, c.logger().With("component", "clientsync.HTTPSubscriber", "user_id", userID))
	return sub, nil
}

func (c *HTTPClient) reconnectPolicy() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.ReconnectBase
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Second
	}
	b.MaxInterval = c.ReconnectMax
	if b.MaxInterval <= 0 {
		b.MaxInterval = 30 * time.Second
	}
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (c *HTTPClient) streamLoop(ctx context.Context, sub *httpSubscription, log *logger.Logger) {
	defer close(sub.done)
	defer close(sub.signals)

	retry := c.reconnectPolicy()
	for {
		connected, err := c.streamOnce(ctx, sub)
		if ctx.Err() != nil {
			return
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			log.Warn("event stream rejected; giving up", "status", apiErr.Status)
			return
		}
		if connected {
			retry.Reset()
		}
		wait := retry.NextBackOff()
		log.Warn("event stream dropped; reconnecting", "error", err, "retry_in", wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (c *HTTPClient) streamOnce(ctx context.Context, sub *httpSubscription) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/ritual/stream")
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, decodeAPIError(resp)
	}

	err = readEvents(resp.Body, func(event, _ string) error {
		if event == "ready" {
			notify(sub.signals)
		}
		return nil
	})
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return true, err
}

type httpSubscription struct {
	signals chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

func (s *httpSubscription) Signals() <-chan struct{} { return s.signals }

func (s *httpSubscription) Close() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}

// readEvents parses text/event-stream framing, calling onEvent once per dispatched event.
func readEvents(r io.Reader, onEvent func(event, data string) error) error {
	br := bufio.NewReader(r)
	var (
		eventName string
		dataLines []string
	)
	flush := func() error {
		if len(dataLines) == 0 {
			eventName = ""
			return nil
		}
		ev := eventName
		if ev == "" {
			ev = "message"
		}
		data := strings.Join(dataLines, "\n")
		eventName, dataLines = "", nil
		return onEvent(ev, data)
	}
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return flush()
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
}
