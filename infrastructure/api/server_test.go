package api

import (
	"chat-relay/domain"
	"chat-relay/moderation"
	"chat-relay/services"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type echoTranslator struct{}

func (echoTranslator) Translate(_ context.Context, request domain.TranslationRequest) map[domain.Language]string {
	out := make(map[domain.Language]string, len(request.Targets))
	for _, target := range request.Targets {
		out[target] = fmt.Sprintf("%s [%s->%s]", request.Text, request.Source, target)
	}
	return out
}

type failingModerator struct{}

func (failingModerator) Moderate(context.Context, domain.ModerationRequest) (domain.Verdict, error) {
	return domain.Verdict{}, fmt.Errorf("classifier exploded")
}

func newTestServer(t *testing.T, moderator services.Moderator) *httptest.Server {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	if moderator == nil {
		engine, err := moderation.NewDefaultEngine(log, nil, nil)
		require.NoError(t, err)
		moderator = engine
	}
	rooms := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("room " + RoomID(r).String()))
	})
	server := NewServer(log, services.NewModerationService(log, moderator),
		services.NewTranslationService(echoTranslator{}), rooms)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path, body string) (int, map[string]any) {
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestServer_Root(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/")
	req.NoError(err)
	defer resp.Body.Close()

	var out map[string]string
	req.NoError(json.NewDecoder(resp.Body).Decode(&out))
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(map[string]string{"message": RootMessage}, out)
}

func TestServer_Moderate(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name     string
		body     string
		expected map[string]any
	}{
		{
			name:     "spam",
			body:     `{"content":"BUY NOW LIMITED OFFER"}`,
			expected: map[string]any{"allowed": false, "severity": "medium", "flagged": true, "reason": "Detected spam content"},
		},
		{
			name:     "clean text with numeric ids",
			body:     `{"content":"hello there","user_id":12,"user_type":"tenant","room_id":3}`,
			expected: map[string]any{"allowed": true, "severity": "low", "flagged": false, "reason": "Content approved"},
		},
		{
			name:     "missing image is allowed",
			body:     `{"content":"hello","image_path":"/does/not/exist.png","room_id":"3"}`,
			expected: map[string]any{"allowed": true, "severity": "low", "flagged": false, "reason": "Content approved"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			status, out := post(t, ts, "/moderate", tt.body)
			req.Equal(http.StatusOK, status)
			req.Equal(tt.expected, out)
		})
	}
}

func TestServer_Moderate_InternalError(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, failingModerator{})

	status, out := post(t, ts, "/moderate", `{"content":"hi"}`)

	req.Equal(http.StatusInternalServerError, status)
	req.Equal("Moderation error: classifier exploded", out["detail"])
}

func TestServer_Moderate_BadBody(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil)

	status, out := post(t, ts, "/moderate", `{"user_id":{"nested":true}}`)

	req.Equal(http.StatusUnprocessableEntity, status)
	req.Contains(out["detail"], "invalid body")
}

func TestServer_Translate(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil)

	// Given a request without source language
	status, out := post(t, ts, "/translate", `{"text":"Hello","target_langs":["fr","fil"]}`)

	// Then English is assumed and every target is answered
	req.Equal(http.StatusOK, status)
	req.Equal(map[string]any{"fr": "Hello [en->fr]", "fil": "Hello [en->fil]"}, out)
}

func TestServer_Translate_UnknownLongCode(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil)

	// Given a target code no translator knows
	status, out := post(t, ts, "/translate", `{"text":"Hello","target_langs":["klingon-tlh"]}`)

	// Then it is answered instead of rejected
	req.Equal(http.StatusOK, status)
	req.Equal(map[string]any{"klingon-tlh": "Hello [en->klingon-tlh]"}, out)
}

func TestServer_Translate_MissingFields(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil)

	status, _ := post(t, ts, "/translate", `{"target_langs":["fr"]}`)
	req.Equal(http.StatusUnprocessableEntity, status)

	status, _ = post(t, ts, "/translate", `{"text":"Hello"}`)
	req.Equal(http.StatusUnprocessableEntity, status)
}

func TestServer_RoomRoute(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/ws/42")
	req.NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	req.NoError(err)
	req.Equal("room 42", string(body))
}

func TestFlexibleID(t *testing.T) {
	tests := []struct {
		raw      string
		expected flexibleID
		wantErr  bool
	}{
		{raw: `12`, expected: "12"},
		{raw: `"abc"`, expected: "abc"},
		{raw: `null`, expected: ""},
		{raw: `true`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			req := require.New(t)
			var id flexibleID
			err := json.Unmarshal([]byte(tt.raw), &id)
			if tt.wantErr {
				req.Error(err)
				return
			}
			req.NoError(err)
			req.Equal(tt.expected, id)
		})
	}
}
