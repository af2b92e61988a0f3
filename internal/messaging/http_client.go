package messaging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	
	"github.com/katatrina/feedpush/internal/platform"
	"github.com/katatrina/feedpush/internal/vapid"
	"github.com/rs/zerolog/log"
	"resty.dev/v3"
)

const defaultReconnectDelay = 3 * time.Second

type registrationRequest struct {
	VAPIDKey     string                     `json:"vapid_key"`
	Subscription *platform.PushSubscription `json:"subscription"`
}

type registrationResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTPClient talks to the messaging backend over HTTP. The foreground stream
// is opened once a token is known and at least one handler is bound.
type HTTPClient struct {
	client         *resty.Client
	reconnectDelay time.Duration
	
	mu           sync.Mutex
	token        string
	handlers     map[int]Handler
	nextID       int
	cancelStream context.CancelFunc
}

type HTTPClientOption func(*HTTPClient)

func WithReconnectDelay(delay time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		c.reconnectDelay = delay
	}
}

func NewHTTPClient(baseURL string, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		client:         resty.New().SetBaseURL(strings.TrimSuffix(baseURL, "/")),
		reconnectDelay: defaultReconnectDelay,
		handlers:       make(map[int]Handler),
	}
	
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the last token issued to this client.
func (c *HTTPClient) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *HTTPClient) GetToken(ctx context.Context, opts TokenOptions) (string, error) {
	if opts.Registration == nil {
		return "", ErrNoRegistration
	}
	
	subscription, err := c.subscribe(ctx, opts)
	if err != nil {
		return "", err
	}
	
	var (
		result registrationResponse
		apiErr errorResponse
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&registrationRequest{VAPIDKey: opts.VAPIDKey, Subscription: subscription}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v1/registrations")
	if err != nil {
		return "", fmt.Errorf("failed to request messaging token: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("messaging token request failed with status %d: %s", resp.StatusCode(), apiErr.Error)
	}
	if result.Token == "" {
		return "", fmt.Errorf("messaging backend returned an empty token")
	}
	
	c.mu.Lock()
	changed := c.token != result.Token
	c.token = result.Token
	c.mu.Unlock()
	
	if changed {
		c.restartStream()
	}
	return result.Token, nil
}

// subscribe reuses the registration's subscription when it was made with the
// same key, and replaces it otherwise.
func (c *HTTPClient) subscribe(ctx context.Context, opts TokenOptions) (*platform.PushSubscription, error) {
	key, err := vapid.DecodeApplicationServerKey(opts.VAPIDKey)
	if err != nil {
		return nil, err
	}
	
	pushManager := opts.Registration.PushManager()
	subscription, err := pushManager.GetSubscription(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get push subscription: %w", err)
	}
	
	if subscription != nil && !bytes.Equal(subscription.Options.ApplicationServerKey, key) {
		log.Info().Str("endpoint", subscription.Endpoint).Msg("push subscription uses another key, resubscribing")
		if err = pushManager.Unsubscribe(ctx); err != nil {
			return nil, fmt.Errorf("failed to unsubscribe: %w", err)
		}
		subscription = nil
	}
	
	if subscription == nil {
		subscription, err = pushManager.Subscribe(ctx, platform.PushSubscriptionOptions{
			UserVisibleOnly:      true,
			ApplicationServerKey: key,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to subscribe to push manager: %w", err)
		}
	}
	return subscription, nil
}

// DeleteToken unregisters the current token from the backend.
func (c *HTTPClient) DeleteToken(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.token = ""
	c.mu.Unlock()
	
	if token == "" {
		return nil
	}
	c.restartStream()
	
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("token", token).
		Delete("/v1/registrations/{token}")
	if err != nil {
		return fmt.Errorf("failed to delete messaging token: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("messaging token deletion failed with status %d", resp.StatusCode())
	}
	return nil
}

func (c *HTTPClient) OnMessage(handler Handler) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = handler
	start := len(c.handlers) == 1
	c.mu.Unlock()
	
	if start {
		c.restartStream()
	}
	
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers, id)
			stop := len(c.handlers) == 0
			c.mu.Unlock()
			
			if stop {
				c.restartStream()
			}
		})
	}
}

// Close stops the foreground stream and releases the HTTP client.
func (c *HTTPClient) Close() error {
	c.mu.Lock()
	c.handlers = make(map[int]Handler)
	cancel := c.cancelStream
	c.cancelStream = nil
	c.mu.Unlock()
	
	if cancel != nil {
		cancel()
	}
	return c.client.Close()
}

// restartStream stops any running stream and starts a new one when there is
// both a token and a handler.
func (c *HTTPClient) restartStream() {
	c.mu.Lock()
	defer c.mu.Unlock()
	
	if c.cancelStream != nil {
		c.cancelStream()
		c.cancelStream = nil
	}
	if c.token == "" || len(c.handlers) == 0 {
		return
	}
	
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelStream = cancel
	go c.runStream(ctx, c.token)
}

func (c *HTTPClient) runStream(ctx context.Context, token string) {
	for {
		err := c.stream(ctx, token)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrUnknownToken) {
			log.Error().Err(err).Str("token", token).Msg("foreground message stream stopped")
			return
		}
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", c.reconnectDelay).Msg("foreground message stream interrupted")
		}
		
		select {
		case <-time.After(c.reconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

func (c *HTTPClient) stream(ctx context.Context, token string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/event-stream").
		SetDoNotParseResponse(true).
		SetPathParam("token", token).
		Get("/v1/registrations/{token}/stream")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	
	if resp.StatusCode() == http.StatusNotFound {
		return ErrUnknownToken
	}
	if resp.IsError() {
		return fmt.Errorf("stream request failed with status %d", resp.StatusCode())
	}
	
	return readEvents(resp.Body, func(event string, data []byte) {
		if event != "" && event != "message" {
			return
		}
		
		var payload Payload
		if err := json.Unmarshal(data, &payload); err != nil {
			log.Warn().Err(err).Msg("dropping malformed foreground message")
			return
		}
		c.dispatch(payload)
	})
}

func (c *HTTPClient) dispatch(payload Payload) {
	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.handlers))
	for _, handler := range c.handlers {
		handlers = append(handlers, handler)
	}
	c.mu.Unlock()
	
	for _, handler := range handlers {
		handler(payload)
	}
}

// readEvents parses a text/event-stream body and calls emit for every event.
func readEvents(r io.Reader, emit func(event string, data []byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	
	var (
		event string
		data  bytes.Buffer
	)
	for scanner.Scan() {
		line := scanner.Text()
		
		switch {
		case line == "":
			if data.Len() > 0 {
				emit(event, bytes.TrimSuffix(data.Bytes(), []byte("\n")))
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			data.WriteByte('\n')
		}
	}
	return scanner.Err()
}
