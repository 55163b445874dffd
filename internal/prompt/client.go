package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DecisionRequest carries the situational features for one prompt decision.
// Only the fields relevant to the kind are set.
type DecisionRequest struct {
	Kind PromptKind `json:"kind"`

	// New-job features.
	StillnessSec     *int64 `json:"stillness_sec,omitempty"`
	RecentlyPrompted *bool  `json:"recently_prompted,omitempty"`

	// Job-completion features.
	DistanceMeters     *float64 `json:"distance_m,omitempty"`
	SecSinceLastPrompt *int64   `json:"sec_since_last_prompt,omitempty"`
}

// Decision is the service's answer to a DecisionRequest.
type Decision struct {
	ShouldPrompt bool   `json:"shouldPrompt"`
	Reason       string `json:"reason"`
}

// DecisionClient asks the decision service whether to surface a prompt.
type DecisionClient interface {
	Decide(ctx context.Context, req DecisionRequest) (*Decision, error)
}

// httpDecisionClient implements DecisionClient over the service's HTTP API.
type httpDecisionClient struct {
	cfg      ClientConfig
	http     *http.Client
	limiter  *rate.Limiter
	observer Observer
}

// NewHTTPClient creates a DecisionClient for the decision service. The
// rate limiter is created here once and lives as long as the client, so
// the calls-per-window budget is enforced across all goroutines using it.
func NewHTTPClient(cfg ClientConfig, observer Observer) DecisionClient {
	if observer == nil {
		observer = NoopObserver{}
	}
	interval := cfg.Window / time.Duration(cfg.CallsPerWindow)
	return &httpDecisionClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		limiter:  rate.NewLimiter(rate.Every(interval), cfg.CallsPerWindow),
		observer: observer,
	}
}

func (c *httpDecisionClient) Decide(ctx context.Context, req DecisionRequest) (*Decision, error) {
	start := time.Now()

	// Excess calls wait here until the window has capacity again.
	if err := c.limiter.Wait(ctx); err != nil {
		c.report(req.Kind, start, false, "TIMEOUT")
		return nil, ErrTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutMs)*time.Millisecond)
	defer cancel()

	var lastErr error
	attempts := 1 + c.cfg.MaxRetries

	for i := 0; i < attempts; i++ {
		dec, err := c.doRequest(ctx, req)
		if err == nil {
			c.report(req.Kind, start, true, "")
			return dec, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		// Only throttling responses are retried; anything else is
		// surfaced to the caller immediately.
		if !errors.Is(err, ErrThrottled) {
			break
		}
		if i < attempts-1 {
			if err := sleepCtx(ctx, backoffDelay(i)); err != nil {
				break
			}
		}
	}

	code := errorCode(lastErr)
	if ctx.Err() != nil {
		code = "TIMEOUT"
	}
	c.report(req.Kind, start, false, code)

	switch {
	case ctx.Err() != nil:
		return nil, ErrTimeout
	case errors.Is(lastErr, ErrThrottled):
		return nil, fmt.Errorf("%w: %v", ErrRetryExhausted, lastErr)
	case isConnectionError(lastErr):
		return nil, ErrUnavailable
	default:
		return nil, lastErr
	}
}

func (c *httpDecisionClient) doRequest(ctx context.Context, req DecisionRequest) (*Decision, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.cfg.Endpoint + "/v1/decide"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrThrottled
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("decision service returned status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var dec Decision
	if err := json.Unmarshal(respBody, &dec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &dec, nil
}

func (c *httpDecisionClient) report(kind PromptKind, start time.Time, success bool, code string) {
	c.observer.OnCallComplete(CallEvent{
		Kind:      kind,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   success,
		ErrorCode: code,
	})
}

// backoffDelay returns the wait before retry attempt i: 1s, 2s, 4s, ...
func backoffDelay(attempt int) time.Duration {
	return time.Second << attempt
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrThrottled):
		return "THROTTLED"
	case errors.Is(err, ErrUnavailable), isConnectionError(err):
		return "UNAVAILABLE"
	case errors.Is(err, ErrInvalidResponse):
		return "INVALID_RESPONSE"
	default:
		return "UNKNOWN"
	}
}
