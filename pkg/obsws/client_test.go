package obsws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer runs a minimal obs-websocket v5 endpoint. A non-empty password
// makes the Hello carry an authentication challenge.
func startServer(t *testing.T, password string) *httptest.Server {
	t.Helper()

	const (
		challenge = "c2VydmVyLWNoYWxsZW5nZQ=="
		salt      = "c2VydmVyLXNhbHQ="
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		ctx := r.Context()

		hello := map[string]any{
			"obsWebSocketVersion": "5.3.3",
			"rpcVersion":          1,
		}
		if password != "" {
			hello["authentication"] = map[string]string{"challenge": challenge, "salt": salt}
		}
		if err := writeEnvelope(ctx, conn, opHello, hello); err != nil {
			return
		}

		var env envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return
		}
		if env.Op != opIdentify {
			t.Errorf("expected identify, got op %d", env.Op)
			return
		}
		var ident identifyData
		if err := json.Unmarshal(env.D, &ident); err != nil {
			t.Errorf("parse identify: %v", err)
			return
		}
		if password != "" && ident.Authentication != authResponse(password, salt, challenge) {
			conn.Close(websocket.StatusCode(4009), "auth failed")
			return
		}
		if err := writeEnvelope(ctx, conn, opIdentified, identifiedData{NegotiatedRPCVersion: 1}); err != nil {
			return
		}

		for {
			var req envelope
			if err := wsjson.Read(ctx, conn, &req); err != nil {
				return
			}
			if req.Op != opRequest {
				continue
			}
			var rd struct {
				RequestType string `json:"requestType"`
				RequestID   string `json:"requestId"`
			}
			if err := json.Unmarshal(req.D, &rd); err != nil {
				t.Errorf("parse request: %v", err)
				return
			}

			var reply replyData
			reply.RequestType = rd.RequestType
			reply.RequestID = rd.RequestID
			reply.RequestStatus.Result = true

			switch rd.RequestType {
			case "GetCurrentProgramScene":
				reply.ResponseData = json.RawMessage(`{"currentProgramSceneName":"Main"}`)
			case "Boom":
				reply.RequestStatus.Result = false
				reply.RequestStatus.Code = 600
				reply.RequestStatus.Comment = "not tonight"
			case "PushEvent":
				ev := eventData{EventType: "Demo", EventData: json.RawMessage(`{"k":1}`)}
				if err := writeEnvelope(ctx, conn, opEvent, ev); err != nil {
					return
				}
			case "Hangup":
				return
			}

			if err := writeEnvelope(ctx, conn, opRequestReply, reply); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientLifecycle(t *testing.T) {
	srv := startServer(t, "hunter2")
	ctx := context.Background()

	c := New(Options{})
	require.NoError(t, c.Connect(ctx, srv.URL, "hunter2"))
	defer c.Close()

	require.Error(t, c.Connect(ctx, srv.URL, "hunter2"), "double connect must be rejected")

	var scene CurrentProgramSceneResponse
	require.NoError(t, c.Call(ctx, "GetCurrentProgramScene", nil, &scene))
	assert.Equal(t, "Main", scene.CurrentProgramSceneName)

	err := c.Call(ctx, "Boom", nil, nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 600, reqErr.Code)
	assert.Equal(t, "not tonight", reqErr.Comment)

	// The event frame precedes the reply on the wire, so it is buffered by
	// the time Call returns.
	require.NoError(t, c.Call(ctx, "PushEvent", nil, nil))
	select {
	case ev := <-c.Events():
		assert.Equal(t, "Demo", ev.Type)
		assert.JSONEq(t, `{"k":1}`, string(ev.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("pushed event never delivered")
	}
}

func TestClientServerHangup(t *testing.T) {
	srv := startServer(t, "")
	ctx := context.Background()

	c := New(Options{})
	require.NoError(t, c.Connect(ctx, srv.URL, ""))

	// The server drops the connection without replying: the in-flight call
	// fails and the event channel closes.
	err := c.Call(ctx, "Hangup", nil, nil)
	require.ErrorIs(t, err, ErrNotConnected)

	select {
	case _, open := <-c.Events():
		assert.False(t, open, "event channel must close when the connection drops")
	case <-time.After(2 * time.Second):
		t.Fatal("event channel not closed")
	}

	require.NoError(t, c.Close(), "close after teardown is a no-op")
	require.ErrorIs(t, c.Call(ctx, "GetStats", nil, nil), ErrNotConnected)
}

func TestClientAuthFailure(t *testing.T) {
	srv := startServer(t, "hunter2")

	c := New(Options{})
	err := c.Connect(context.Background(), srv.URL, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestClientWithoutAuth(t *testing.T) {
	srv := startServer(t, "")

	c := New(Options{})
	require.NoError(t, c.Connect(context.Background(), srv.URL, ""))
	require.NoError(t, c.Close())
}

func TestCallNotConnected(t *testing.T) {
	c := New(Options{})
	err := c.Call(context.Background(), "GetStats", nil, nil)
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Nil(t, c.Events())
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"localhost", "ws://localhost:4455"},
		{"localhost:4444", "ws://localhost:4444"},
		{"10.0.0.5", "ws://10.0.0.5:4455"},
		{"[::1]", "ws://[::1]:4455"},
		{"http://obs.example.com", "ws://obs.example.com:4455"},
		{"https://obs.example.com", "wss://obs.example.com:4455"},
		{"ws://obs.example.com:4455", "ws://obs.example.com:4455"},
		{"wss://obs.example.com", "wss://obs.example.com:4455"},
		{" localhost ", "ws://localhost:4455"},
	}

	for _, tc := range tests {
		got, err := normalizeAddress(tc.in)
		require.NoError(t, err, "address %q", tc.in)
		assert.Equal(t, tc.want, got, "address %q", tc.in)
	}

	for _, bad := range []string{"", "   ", "ftp://example.com"} {
		_, err := normalizeAddress(bad)
		assert.Error(t, err, "address %q", bad)
	}
}

func TestAuthResponse(t *testing.T) {
	got := authResponse("password", "salt", "challenge")

	assert.Equal(t, got, authResponse("password", "salt", "challenge"), "must be deterministic")

	raw, err := base64.StdEncoding.DecodeString(got)
	require.NoError(t, err)
	assert.Len(t, raw, 32, "a base64-encoded sha256 digest")

	assert.NotEqual(t, got, authResponse("other", "salt", "challenge"))
	assert.NotEqual(t, got, authResponse("password", "other", "challenge"))
	assert.NotEqual(t, got, authResponse("password", "salt", "other"))
}

func TestReplyParsing(t *testing.T) {
	frame := []byte(`{
		"op": 7,
		"d": {
			"requestType": "GetSceneList",
			"requestId": "abc-123",
			"requestStatus": {"result": false, "code": 604, "comment": "not found"},
			"responseData": null
		}
	}`)

	var env envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, opRequestReply, env.Op)

	var reply replyData
	require.NoError(t, json.Unmarshal(env.D, &reply))
	assert.Equal(t, "abc-123", reply.RequestID)
	assert.False(t, reply.RequestStatus.Result)
	assert.Equal(t, 604, reply.RequestStatus.Code)
	assert.Equal(t, "not found", reply.RequestStatus.Comment)
}

func TestEventParsing(t *testing.T) {
	frame := []byte(`{
		"op": 5,
		"d": {
			"eventType": "CurrentProgramSceneChanged",
			"eventIntent": 4,
			"eventData": {"sceneName": "Scene B"}
		}
	}`)

	var env envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	require.Equal(t, opEvent, env.Op)

	var ev eventData
	require.NoError(t, json.Unmarshal(env.D, &ev))
	assert.Equal(t, EventCurrentProgramSceneChanged, ev.EventType)

	var payload CurrentProgramSceneChangedEvent
	require.NoError(t, json.Unmarshal(ev.EventData, &payload))
	assert.Equal(t, "Scene B", payload.SceneName)
}
