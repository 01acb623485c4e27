package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"habit-coach/internal/logger"
	"habit-coach/internal/model"
)

// maxResponseBytes bounds the relay answer read into memory.
const maxResponseBytes = 32 << 20

const (
	msgUnavailable = "Backend is still initializing. Please wait a moment and try again."
	msgTimeout     = "Backend request timeout. The server might be overloaded or unreachable."
)

// AgentClient submits onboarding payloads to the relay and maps the answer
// into a habit plan. It never retries.
type AgentClient struct {
	baseURL  string
	timeout  time.Duration
	maxBytes int64
	client   *http.Client
}

func NewAgentClient(baseURL string, timeout time.Duration) *AgentClient {
	return &AgentClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  timeout,
		maxBytes: maxResponseBytes,
		client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}
}

// Execute performs one call bounded by the client timeout. Every failure is
// an *AgentError.
func (s *AgentClient) Execute(ctx context.Context, payload model.OutboundPayload) (*model.AgentResult, error) {
	url := s.baseURL + "/execute"
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	logger.Info("agent.execute", "url", url, "bytes", len(body))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.transportError(ctx, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, s.transportError(ctx, url, err)
	}
	if int64(len(data)) > s.maxBytes {
		logger.Error("agent.response_too_large", "url", url, "limit", s.maxBytes)
		return nil, &AgentError{
			Kind:   KindMalformedResponse,
			Status: resp.StatusCode,
			Detail: fmt.Sprintf("Backend response exceeds %d bytes", s.maxBytes),
			URL:    url,
		}
	}
	logger.Info("agent.response", "url", url, "status", resp.StatusCode, "bytes", len(data))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		aerr := statusError(url, resp.StatusCode, data)
		logger.Error("agent.failed", "url", url, "kind", aerr.Kind, "status", aerr.Status, "detail", aerr.Detail)
		return nil, aerr
	}

	var parsed model.BackendResponse
	err = json.Unmarshal(data, &parsed)
	if err == nil && parsed.Output == nil {
		err = errors.New("response has no output")
	}
	if err != nil {
		logger.Error("agent.malformed_response", "url", url, "err", err)
		return nil, &AgentError{
			Kind:   KindMalformedResponse,
			Status: resp.StatusCode,
			Detail: "Failed to parse backend response as JSON: " + err.Error(),
			URL:    url,
			Err:    err,
		}
	}

	plan := MapToPlan(*parsed.Output)
	name := parsed.Output.InterventionName
	if name == nil || *name == "" {
		name = &plan.InterventionName
	}
	return &model.AgentResult{
		InterventionName: name,
		ResponseText:     parsed.Output.Response,
		Plan:             plan,
	}, nil
}

func (s *AgentClient) transportError(ctx context.Context, url string, err error) *AgentError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Error("agent.timeout", "url", url, "timeout", s.timeout)
		return &AgentError{
			Kind: KindTimeout,
			Detail: fmt.Sprintf("Request timeout: Backend at %s did not respond within %s. "+
				"The server might be overloaded or unreachable.", url, s.timeout),
			URL: url,
			Err: err,
		}
	}
	logger.Error("agent.network_error", "url", url, "err", err)
	return &AgentError{
		Kind:   KindNetworkError,
		Detail: fmt.Sprintf("Network error: Failed to connect to backend at %s.", url),
		URL:    url,
		Err:    err,
	}
}

// statusError classifies a non-2xx answer. The body is either the relay's
// {"error","details"} envelope or arbitrary text.
func statusError(url string, status int, data []byte) *AgentError {
	var env model.ErrorEnvelope
	var errText, errDetails string
	if json.Unmarshal(data, &env) == nil {
		errText, errDetails = env.Error, env.Details
	} else {
		errText = strings.TrimSpace(string(data))
	}
	upstream := firstNonEmpty(errDetails, errText)

	e := &AgentError{Status: status, URL: url}
	switch status {
	case http.StatusServiceUnavailable:
		e.Kind = KindBackendUnavailable
		e.Detail = firstNonEmpty(errDetails, msgUnavailable)
	case http.StatusGatewayTimeout:
		e.Kind = KindTimeout
		e.Detail = firstNonEmpty(errDetails, msgTimeout)
	case http.StatusBadGateway:
		e.Kind = KindBadGateway
		e.Detail = "Failed to connect to backend: " + firstNonEmpty(upstream, "Connection failed")
	default:
		e.Kind = KindGenericBackendError
		e.Detail = fmt.Sprintf("Backend error (%d): %s", status, firstNonEmpty(upstream, "Unknown error"))
	}
	return e
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
