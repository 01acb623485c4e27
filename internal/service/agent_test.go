package service

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"habit-coach/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newBackend(t *testing.T, h http.HandlerFunc) *AgentClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewAgentClient(srv.URL+"/api/", 2*time.Second)
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestAgentClient_Success(t *testing.T) {
	var got model.OutboundPayload
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/execute", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		reply(http.StatusOK, `{"output":{
			"response":"Walk after dinner.",
			"intervention_name":"Dinner Walk",
			"challenge":{"intervention_name":"Dinner Walk","duration_days":2,
				"daily_tasks":[{"activity":"Walk 10 min","steps":5000},{"activity":"Walk 15 min","steps":6000}]}
		}}`)(w, r)
	})

	res, err := client.Execute(context.Background(), BuildPayload(model.OnboardingData{Age: ptr(30)}, nil))
	require.NoError(t, err)
	require.NotNil(t, got.Age)
	assert.Equal(t, 30, *got.Age)
	assert.Equal(t, DefaultUserInput, got.UserInput)

	require.NotNil(t, res.InterventionName)
	assert.Equal(t, "Dinner Walk", *res.InterventionName)
	assert.Equal(t, "Walk after dinner.", res.ResponseText)
	assert.Equal(t, 2, res.Plan.DurationDays)
	assert.Equal(t, 6000, res.Plan.Days[1].TargetSteps)
}

func TestAgentClient_TextOnlyFallsBack(t *testing.T) {
	client := newBackend(t, reply(http.StatusOK, `{"output":{"response":"Sleep more.","intervention_name":null}}`))

	res, err := client.Execute(context.Background(), BuildPayload(model.OnboardingData{}, nil))
	require.NoError(t, err)
	assert.Equal(t, "Sleep more.", res.ResponseText)
	require.NotNil(t, res.InterventionName)
	assert.Equal(t, FallbackName, *res.InterventionName)
	assert.Len(t, res.Plan.Days, FallbackDays)
}

func TestAgentClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   Kind
		wantDetail string
	}{
		{"unavailable with details", 503, `{"error":"Service Unavailable","details":"model warming up"}`,
			KindBackendUnavailable, "model warming up"},
		{"unavailable bare", 503, `{"error":"Service Unavailable"}`,
			KindBackendUnavailable, msgUnavailable},
		{"gateway timeout", 504, `{"error":"Backend request timeout"}`,
			KindTimeout, msgTimeout},
		{"bad gateway", 502, `{"error":"Failed to connect to backend","details":"connection refused"}`,
			KindBadGateway, "Failed to connect to backend: connection refused"},
		{"bad gateway empty", 502, ``,
			KindBadGateway, "Failed to connect to backend: Connection failed"},
		{"other status", 418, `{"error":"Backend error (418)","details":"teapot"}`,
			KindGenericBackendError, "Backend error (418): teapot"},
		{"plain text", 500, `boom`,
			KindGenericBackendError, "Backend error (500): boom"},
		{"empty body", 500, ``,
			KindGenericBackendError, "Backend error (500): Unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newBackend(t, reply(tt.status, tt.body))
			_, err := client.Execute(context.Background(), BuildPayload(model.OnboardingData{}, nil))

			var ae *AgentError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.wantKind, ae.Kind)
			assert.Equal(t, tt.status, ae.Status)
			assert.Equal(t, tt.wantDetail, ae.Detail)
			assert.Equal(t, tt.wantKind, KindOf(err))
		})
	}
}

func TestAgentClient_MalformedResponse(t *testing.T) {
	client := newBackend(t, reply(http.StatusOK, `{"output":`))
	_, err := client.Execute(context.Background(), BuildPayload(model.OnboardingData{}, nil))
	assert.Equal(t, KindMalformedResponse, KindOf(err))
}

func TestAgentClient_MissingOutput(t *testing.T) {
	for _, body := range []string{`{}`, `null`, `{"output":null}`} {
		client := newBackend(t, reply(http.StatusOK, body))
		res, err := client.Execute(context.Background(), BuildPayload(model.OnboardingData{}, nil))
		assert.Nil(t, res, body)
		assert.Equal(t, KindMalformedResponse, KindOf(err), body)
	}
}

func TestAgentClient_ResponseTooLarge(t *testing.T) {
	client := newBackend(t, reply(http.StatusOK, `{"output":{"response":"`+strings.Repeat("x", 256)+`"}}`))
	client.maxBytes = 64

	_, err := client.Execute(context.Background(), BuildPayload(model.OnboardingData{}, nil))
	var ae *AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, KindMalformedResponse, ae.Kind)
	assert.Contains(t, ae.Detail, "exceeds 64 bytes")
}

func TestAgentClient_RedirectIsNotFollowed(t *testing.T) {
	var followed bool
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/execute" {
			http.Redirect(w, r, "/elsewhere", http.StatusFound)
			return
		}
		followed = true
		reply(http.StatusOK, `{"output":{"response":"hijacked"}}`)(w, r)
	})

	_, err := client.Execute(context.Background(), BuildPayload(model.OnboardingData{}, nil))
	var ae *AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, KindGenericBackendError, ae.Kind)
	assert.Equal(t, http.StatusFound, ae.Status)
	assert.False(t, followed)
}

func TestAgentClient_NetworkError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := NewAgentClient("http://"+addr, time.Second)
	_, err = client.Execute(context.Background(), BuildPayload(model.OnboardingData{}, nil))

	var ae *AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, KindNetworkError, ae.Kind)
	assert.Zero(t, ae.Status)
	assert.Contains(t, ae.Detail, addr)
}

func TestAgentClient_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewAgentClient(srv.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := client.Execute(context.Background(), BuildPayload(model.OnboardingData{}, nil))

	var ae *AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, KindTimeout, ae.Kind)
	assert.Contains(t, ae.Detail, "did not respond within 50ms")
	assert.Less(t, time.Since(start), time.Second)
	client.client.CloseIdleConnections()
}
