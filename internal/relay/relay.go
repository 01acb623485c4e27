// Package relay forwards JSON requests to the recommendation backend and
// normalises whatever comes back into a JSON body plus a status code.
package relay

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"habit-coach/internal/config"
	"habit-coach/internal/logger"
	"habit-coach/internal/model"

	"github.com/gin-gonic/gin"
)

const defaultTLSPort = "8443"

// Outcome names the terminal state a forwarded request ended in.
type Outcome string

const (
	OutcomeOK                Outcome = "ok"
	OutcomeParseFailed       Outcome = "parse_failed"
	OutcomeTimeout           Outcome = "timeout"
	OutcomeConnectionError   Outcome = "connection_error"
	OutcomeUpstreamError     Outcome = "upstream_error"
	OutcomeMalformedUpstream Outcome = "malformed_upstream"
)

// Result is the single response produced for one inbound call.
type Result struct {
	Status  int
	Body    any
	Outcome Outcome
}

type Relay struct {
	target   string
	timeout  time.Duration
	maxBytes int64
	client   *http.Client
}

// New builds a relay for cfg. The configuration is copied; later changes to
// cfg have no effect.
func New(cfg config.BackendConfig) (*Relay, error) {
	target, err := targetURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("relay timeout must be > 0")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.AllowSelfSigned, //nolint:gosec // opt-in for a backend with a self-signed certificate
	}
	if cfg.AllowSelfSigned {
		logger.Warn("relay.tls_verification_disabled",
			"target", target,
			"reason", "backend.allow_self_signed is set; any server certificate is accepted")
	}

	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}

	return &Relay{
		target:   target,
		timeout:  cfg.Timeout,
		maxBytes: maxBytes,
		client: &http.Client{
			Transport: transport,
			// a 3xx is the backend's answer, echoed like any other status
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}, nil
}

// Target is the absolute URL requests are forwarded to.
func (r *Relay) Target() string { return r.target }

// Close drops idle upstream connections.
func (r *Relay) Close() { r.client.CloseIdleConnections() }

// Execute handles POST /api/execute.
func (r *Relay) Execute(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, r.maxBytes)
	body, err := c.GetRawData()
	if err != nil {
		res := parseFailed(err)
		c.JSON(res.Status, res.Body)
		return
	}
	res := r.Forward(c.Request.Context(), body)
	c.JSON(res.Status, res.Body)
}

// Forward sends body to the backend and translates the answer. It always
// returns within the configured timeout and never returns an empty body.
func (r *Relay) Forward(ctx context.Context, body []byte) Result {
	start := time.Now()

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return finish(parseFailed(err), start, r.target)
	}
	var payload bytes.Buffer
	if err := json.Compact(&payload, raw); err != nil {
		return finish(parseFailed(err), start, r.target)
	}
	logger.Info("relay.forward", "target", r.target, "bytes", payload.Len())

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.target, bytes.NewReader(payload.Bytes()))
	if err != nil {
		return finish(connectionError(err), start, r.target)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.ContentLength = int64(payload.Len())

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return finish(timedOut(), start, r.target)
		}
		return finish(connectionError(err), start, r.target)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return finish(timedOut(), start, r.target)
		}
		return finish(connectionError(err), start, r.target)
	}
	logger.Debug("relay.upstream_body", "status", resp.StatusCode, "bytes", len(data))

	if int64(len(data)) > r.maxBytes {
		return finish(Result{
			Status:  http.StatusInternalServerError,
			Body:    model.ErrorEnvelope{Error: fmt.Sprintf("Backend response exceeds %d bytes", r.maxBytes)},
			Outcome: OutcomeMalformedUpstream,
		}, start, r.target)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if !json.Valid(data) {
			return finish(Result{
				Status:  http.StatusInternalServerError,
				Body:    model.ErrorEnvelope{Error: "Failed to parse backend response as JSON"},
				Outcome: OutcomeMalformedUpstream,
			}, start, r.target)
		}
		return finish(Result{Status: http.StatusOK, Body: json.RawMessage(data), Outcome: OutcomeOK}, start, r.target)
	}
	return finish(upstreamError(resp.StatusCode, data), start, r.target)
}

func finish(res Result, start time.Time, target string) Result {
	args := []any{"target", target, "outcome", res.Outcome, "status", res.Status, "elapsed", time.Since(start)}
	if env, ok := res.Body.(model.ErrorEnvelope); ok {
		args = append(args, "error", env.Error, "details", env.Details)
	}
	if res.Outcome == OutcomeOK {
		logger.Info("relay.done", args...)
	} else {
		logger.Error("relay.failed", args...)
	}
	return res
}

func parseFailed(err error) Result {
	return Result{
		Status:  http.StatusInternalServerError,
		Body:    model.ErrorEnvelope{Error: "Internal server error", Details: err.Error()},
		Outcome: OutcomeParseFailed,
	}
}

func timedOut() Result {
	return Result{
		Status:  http.StatusGatewayTimeout,
		Body:    model.ErrorEnvelope{Error: "Backend request timeout"},
		Outcome: OutcomeTimeout,
	}
}

func connectionError(err error) Result {
	return Result{
		Status:  http.StatusBadGateway,
		Body:    model.ErrorEnvelope{Error: "Failed to connect to backend", Details: err.Error()},
		Outcome: OutcomeConnectionError,
	}
}

// upstreamError echoes the backend status and pulls the most specific
// message out of the body it sent.
func upstreamError(status int, data []byte) Result {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Result{
		Status: status,
		Body: model.ErrorEnvelope{
			Error:   fmt.Sprintf("Backend error (%d)", status),
			Details: ErrorDetail(data),
		},
		Outcome: OutcomeUpstreamError,
	}
}

// ErrorDetail extracts "error", then "details", from a JSON object body and
// falls back to the raw text.
func ErrorDetail(data []byte) string {
	var obj map[string]any
	if json.Unmarshal(data, &obj) == nil {
		for _, key := range []string{"error", "details"} {
			if s := stringValue(obj[key]); s != "" {
				return s
			}
		}
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return text
	}
	return "Unknown error"
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// targetURL appends /execute to base and fills in the default TLS port.
func targetURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("backend url %q must be absolute", base)
	}
	if u.Scheme == "https" && u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), defaultTLSPort)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/execute"
	u.RawQuery = ""
	return u.String(), nil
}
