package realtime_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	adapterhttp "github.com/quentinlc/lobbychat/internal/adapters/http"
	"github.com/quentinlc/lobbychat/internal/adapters/realtime"
	"github.com/quentinlc/lobbychat/internal/app"
	"github.com/quentinlc/lobbychat/internal/auth"
	"github.com/quentinlc/lobbychat/internal/config"
	"github.com/quentinlc/lobbychat/internal/core"
	"github.com/quentinlc/lobbychat/internal/store"
)

func newTestStack(t *testing.T) *httptest.Server {
	return newTestStackWithSendLimit(t, 100)
}

func newTestStackWithSendLimit(t *testing.T, sendLimit int) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Mode:       "test",
		Secret:     "test-secret",
		TokenTTL:   time.Hour,
		BaseURL:    "http://localhost:3000",
		SendBuffer: 8,
		PingPeriod: 30 * time.Second,
	}

	users := store.NewUserStore(db)
	lobbies := store.NewLobbyStore(db)
	messages := store.NewMessageStore(db)
	verifier := auth.NewVerifier(cfg.Secret, cfg.TokenTTL)
	broadcast := core.NewRouter()
	members := app.NewMembership(lobbies, messages)
	pipeline := app.NewPipeline(members, messages, broadcast)

	h := &adapterhttp.Handlers{
		Users:    users,
		Members:  members,
		Pipeline: pipeline,
		Verifier: verifier,
		BaseURL:  cfg.BaseURL,
		TokenTTL: cfg.TokenTTL,
	}
	rt := &realtime.Controller{
		Registry:   app.NewRegistry(),
		Router:     broadcast,
		Members:    members,
		Pipeline:   pipeline,
		Limiter:    realtime.NewSendRateLimiter(sendLimit, time.Minute),
		SendBuffer: cfg.SendBuffer,
		PingPeriod: cfg.PingPeriod,
	}

	srv := httptest.NewServer(adapterhttp.SetupRouter(context.Background(), cfg, h, rt))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, token string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func putJSON(t *testing.T, url, token string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func register(t *testing.T, srv *httptest.Server, name string) string {
	t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	r := postJSON(t, srv.URL+"/register", "", gin.H{
		"email":    name + "@example.com",
		"username": name,
		"password": "correct horse",
	}, &resp)
	require.Equal(t, http.StatusCreated, r.StatusCode)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func makeLobby(t *testing.T, srv *httptest.Server, token string) string {
	t.Helper()
	var lobby struct {
		ID string `json:"id"`
	}
	r := postJSON(t, srv.URL+"/api/lobbies", token, gin.H{"name": ""}, &lobby)
	require.Equal(t, http.StatusCreated, r.StatusCode)
	return lobby.ID
}

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event map[string]any
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var event map[string]any
	err := conn.ReadJSON(&event)
	require.Error(t, err, "expected no event, got %v", event)
}

func TestSubscriberReceivesBroadcast(t *testing.T) {
	req := require.New(t)
	srv := newTestStack(t)

	alice := register(t, srv, "alice")
	bob := register(t, srv, "bob")
	carol := register(t, srv, "carol")
	lobby := makeLobby(t, srv, alice)

	putJSON(t, fmt.Sprintf("%s/api/lobbies/%s/join", srv.URL, lobby), bob)
	putJSON(t, fmt.Sprintf("%s/api/lobbies/%s/join", srv.URL, lobby), carol)

	bobWS := dialWS(t, srv, bob)
	send(t, bobWS, gin.H{"type": "join_channel", "lobby": lobby})
	req.Equal("joined", readEvent(t, bobWS)["type"])

	// carol is a directory member but never subscribes
	carolWS := dialWS(t, srv, carol)

	r := postJSON(t, fmt.Sprintf("%s/api/lobbies/%s/messages", srv.URL, lobby), alice, gin.H{"body": "hi"}, nil)
	req.Equal(http.StatusCreated, r.StatusCode)

	event := readEvent(t, bobWS)
	req.Equal("message", event["type"])
	msg := event["message"].(map[string]any)
	req.Equal("hi", msg["body"])

	expectSilence(t, bobWS)
	expectSilence(t, carolWS)
}

func TestBroadcastOrderMatchesSendOrder(t *testing.T) {
	req := require.New(t)
	srv := newTestStack(t)

	alice := register(t, srv, "alice")
	bob := register(t, srv, "bob")
	lobby := makeLobby(t, srv, alice)
	putJSON(t, fmt.Sprintf("%s/api/lobbies/%s/join", srv.URL, lobby), bob)

	bobWS := dialWS(t, srv, bob)
	send(t, bobWS, gin.H{"type": "join_channel", "lobby": lobby})
	req.Equal("joined", readEvent(t, bobWS)["type"])

	for _, body := range []string{"m1", "m2", "m3"} {
		r := postJSON(t, fmt.Sprintf("%s/api/lobbies/%s/messages", srv.URL, lobby), alice, gin.H{"body": body}, nil)
		req.Equal(http.StatusCreated, r.StatusCode)
	}

	for _, want := range []string{"m1", "m2", "m3"} {
		event := readEvent(t, bobWS)
		req.Equal("message", event["type"])
		req.Equal(want, event["message"].(map[string]any)["body"])
	}
}

func TestSendOverWebsocket(t *testing.T) {
	req := require.New(t)
	srv := newTestStack(t)

	alice := register(t, srv, "alice")
	lobby := makeLobby(t, srv, alice)

	ws := dialWS(t, srv, alice)
	send(t, ws, gin.H{"type": "join_channel", "lobby": lobby})
	req.Equal("joined", readEvent(t, ws)["type"])

	send(t, ws, gin.H{"type": "send_message", "lobby": lobby, "body": "hello"})

	// the broadcast is enqueued before the ack
	event := readEvent(t, ws)
	req.Equal("message", event["type"])
	req.Equal("hello", event["message"].(map[string]any)["body"])
	req.Equal("sent", readEvent(t, ws)["type"])
}

func TestStrangerCannotSubscribe(t *testing.T) {
	req := require.New(t)
	srv := newTestStack(t)

	alice := register(t, srv, "alice")
	mallory := register(t, srv, "mallory")
	lobby := makeLobby(t, srv, alice)

	ws := dialWS(t, srv, mallory)
	send(t, ws, gin.H{"type": "join_channel", "lobby": lobby})
	req.Equal("error", readEvent(t, ws)["type"])

	send(t, ws, gin.H{"type": "join_channel", "lobby": "does-not-exist"})
	req.Equal("error", readEvent(t, ws)["type"])
}

func TestLeaveChannelStopsDelivery(t *testing.T) {
	req := require.New(t)
	srv := newTestStack(t)

	alice := register(t, srv, "alice")
	bob := register(t, srv, "bob")
	lobby := makeLobby(t, srv, alice)
	putJSON(t, fmt.Sprintf("%s/api/lobbies/%s/join", srv.URL, lobby), bob)

	bobWS := dialWS(t, srv, bob)
	send(t, bobWS, gin.H{"type": "join_channel", "lobby": lobby})
	req.Equal("joined", readEvent(t, bobWS)["type"])

	send(t, bobWS, gin.H{"type": "leave_channel", "lobby": lobby})
	req.Equal("left", readEvent(t, bobWS)["type"])

	r := postJSON(t, fmt.Sprintf("%s/api/lobbies/%s/messages", srv.URL, lobby), alice, gin.H{"body": "anyone?"}, nil)
	req.Equal(http.StatusCreated, r.StatusCode)

	expectSilence(t, bobWS)
}

func TestSendRateLimitedOverWebsocket(t *testing.T) {
	req := require.New(t)
	srv := newTestStackWithSendLimit(t, 1)

	alice := register(t, srv, "alice")
	lobby := makeLobby(t, srv, alice)

	ws := dialWS(t, srv, alice)
	send(t, ws, gin.H{"type": "join_channel", "lobby": lobby})
	req.Equal("joined", readEvent(t, ws)["type"])

	send(t, ws, gin.H{"type": "send_message", "lobby": lobby, "body": "one"})
	req.Equal("message", readEvent(t, ws)["type"])
	req.Equal("sent", readEvent(t, ws)["type"])

	// second send inside the window is refused before the pipeline runs
	send(t, ws, gin.H{"type": "send_message", "lobby": lobby, "body": "two"})
	req.Equal("error", readEvent(t, ws)["type"])

	// the refused message was never persisted
	httpReq, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/lobbies/%s/messages", srv.URL, lobby), nil)
	req.NoError(err)
	httpReq.Header.Set("Authorization", "Bearer "+alice)
	resp, err := http.DefaultClient.Do(httpReq)
	req.NoError(err)
	defer resp.Body.Close()
	var history struct {
		Messages []struct {
			Body string `json:"body"`
		} `json:"messages"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&history))
	req.Len(history.Messages, 1)
	req.Equal("one", history.Messages[0].Body)
}

func TestPingPong(t *testing.T) {
	req := require.New(t)
	srv := newTestStack(t)

	alice := register(t, srv, "alice")
	ws := dialWS(t, srv, alice)

	send(t, ws, gin.H{"type": "ping"})
	req.Equal("pong", readEvent(t, ws)["type"])

	send(t, ws, gin.H{"type": "no_such_event"})
	req.Equal("error", readEvent(t, ws)["type"])
}

func TestHandshakeRequiresCredential(t *testing.T) {
	req := require.New(t)
	srv := newTestStack(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	req.Error(err)
	if resp != nil {
		req.Equal(http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
}
