package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gifts-assessment-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketAssessmentFlow(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	token, err := env.auth.Mint("user-1")
	require.NoError(t, err)
	conn := dialWS(t, server, token)
	defer conn.Close()

	send(t, conn, "start", map[string]any{"locale": "en", "questionsPerGift": 1})
	_, payload := readNext(conn, t, "started")
	questions := payload["questions"].([]any)
	require.Len(t, questions, 7)

	for _, raw := range questions {
		q := raw.(map[string]any)
		send(t, conn, "answer", map[string]any{"questionId": q["id"], "score": 2})
		readNext(conn, t, "answerRecorded")
	}

	send(t, conn, "submit", map[string]any{"analyze": true})
	_, result := readNext(conn, t, "result")
	assert.Len(t, result["ranked"], 7)
	assert.NotNil(t, result["analysis"])

	// The completed session no longer accepts answers.
	send(t, conn, "answer", map[string]any{"questionId": questions[0].(map[string]any)["id"], "score": 1})
	readNext(conn, t, "error")
}

func TestWebSocketRestoresAcrossConnections(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	first := dialWS(t, server, "")
	send(t, first, "start", nil)
	_, payload := readNext(first, t, "started")
	sessionID := payload["session"].(map[string]any)["id"].(string)
	q := payload["questions"].([]any)[0].(map[string]any)

	send(t, first, "answer", map[string]any{"questionId": q["id"], "score": 3})
	_, recorded := readNext(first, t, "answerRecorded")
	assert.EqualValues(t, 1, recorded["answered"])
	first.Close()

	second := dialWS(t, server, "")
	defer second.Close()
	send(t, second, "restore", map[string]any{"sessionId": sessionID})
	_, restored := readNext(second, t, "restored")
	state := restored["state"].(map[string]any)
	assert.Equal(t, sessionID, state["sessionId"])
	assert.EqualValues(t, 3, state["answers"].(map[string]any)[q["id"].(string)])
	assert.Len(t, restored["questions"], 14)

	send(t, second, "reset", nil)
	readNext(second, t, "reset")
	send(t, second, "restore", map[string]any{"sessionId": sessionID})
	readNext(second, t, "noState")
}

func TestWebSocketRestoreRequiresSessionOwner(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	owner, err := env.auth.Mint("user-1")
	require.NoError(t, err)
	other, err := env.auth.Mint("user-2")
	require.NoError(t, err)

	first := dialWS(t, server, owner)
	send(t, first, "start", nil)
	_, payload := readNext(first, t, "started")
	sessionID := payload["session"].(map[string]any)["id"].(string)
	q := payload["questions"].([]any)[0].(map[string]any)
	send(t, first, "answer", map[string]any{"questionId": q["id"], "score": 1})
	readNext(first, t, "answerRecorded")
	first.Close()

	for _, token := range []string{other, ""} {
		conn := dialWS(t, server, token)
		send(t, conn, "restore", map[string]any{"sessionId": sessionID})
		_, payload := readNext(conn, t, "error")
		assert.Equal(t, "session belongs to another user", payload["message"])
		conn.Close()
	}

	conn := dialWS(t, server, owner)
	defer conn.Close()
	send(t, conn, "restore", map[string]any{"sessionId": sessionID})
	readNext(conn, t, "restored")

	send(t, conn, "restore", map[string]any{"sessionId": "missing"})
	readNext(conn, t, "error")
}

func TestMemoryStateStoresAreBounded(t *testing.T) {
	ctx := context.Background()
	stores := MemoryStateStores(2, time.Hour)

	require.NoError(t, stores("a").Save(ctx, "k", []byte("1")))
	require.NoError(t, stores("b").Save(ctx, "k", []byte("2")))

	data, err := stores("b").Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), data)

	stores("c")
	_, err = stores("a").Load(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}

func TestWebSocketRejectsInvalidMessages(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	conn := dialWS(t, server, "")
	defer conn.Close()

	send(t, conn, "answer", map[string]any{"questionId": "q", "score": 1})
	_, payload := readNext(conn, t, "error")
	assert.Equal(t, "no assessment in progress", payload["message"])

	send(t, conn, "start", nil)
	_, started := readNext(conn, t, "started")
	q := started["questions"].([]any)[0].(map[string]any)

	send(t, conn, "answer", map[string]any{"questionId": q["id"], "score": 4})
	_, payload = readNext(conn, t, "error")
	assert.Equal(t, "score out of range", payload["message"])

	send(t, conn, "answer", map[string]any{"questionId": "not-assigned", "score": 1})
	readNext(conn, t, "error")

	send(t, conn, "dance", nil)
	_, payload = readNext(conn, t, "error")
	assert.Equal(t, "unsupported message type", payload["message"])
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func dialWS(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}
