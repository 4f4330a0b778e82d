package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/infrastructure"
	"hearth/internal/alerts"
	"hearth/internal/auth"
	"hearth/internal/chat"
	"hearth/internal/hub"
	"hearth/internal/logging"
	"hearth/internal/notify"
	"hearth/internal/user"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

type memUserRepo struct {
	users map[uuid.UUID]*user.User
}

func (m *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, infrastructure.ErrUserNotFound
	}
	return u, nil
}

func (m *memUserRepo) FindByEmail(context.Context, string) (*user.User, error) {
	return nil, infrastructure.ErrUserNotFound
}

func (m *memUserRepo) Create(context.Context, *user.User) error { return nil }

func (m *memUserRepo) SetPresence(context.Context, uuid.UUID, bool, time.Time) error { return nil }

func (m *memUserRepo) DeviceTokens(context.Context, []uuid.UUID) ([]string, error) {
	return nil, nil
}

func (m *memUserRepo) Emails(context.Context, []uuid.UUID) ([]string, error) { return nil, nil }

type noopMessageStore struct{}

func (noopMessageStore) SaveMessage(context.Context, *chat.Message) error { return nil }

type noopAlertStore struct{}

func (noopAlertStore) SaveAlert(context.Context, *alerts.Alert) error { return nil }

func (noopAlertStore) UpdateAlert(context.Context, uuid.UUID, uuid.UUID, time.Time) error {
	return nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, []uuid.UUID, notify.Payload) error { return nil }

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type gateway struct {
	server *httptest.Server
	tokens *auth.Tokens
}

func newGateway(t *testing.T, users ...*user.User) *gateway {
	t.Helper()
	repo := &memUserRepo{users: make(map[uuid.UUID]*user.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	tokens := auth.NewTokens([]byte("test-secret"), time.Hour)
	h := hub.NewHub(
		auth.NewAuthenticator(tokens, repo),
		repo,
		noopMessageStore{},
		noopAlertStore{},
		noopNotifier{},
	)
	srv := NewServer(h, auth.NewJSONHandler(repo, tokens, 60))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &gateway{server: ts, tokens: tokens}
}

func (g *gateway) wsURL(token, userID string) string {
	return "ws" + strings.TrimPrefix(g.server.URL, "http") + "/ws?token=" + token + "&user_id=" + userID
}

func (g *gateway) dial(t *testing.T, u *user.User) *websocket.Conn {
	t.Helper()
	token, err := g.tokens.Generate(u.ID)
	require.NoError(t, err)
	conn, resp, err := websocket.DefaultDialer.Dial(g.wsURL(token, u.ID.String()), nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// awaitEvent reads frames until the wanted event arrives, skipping unrelated
// traffic such as presence transitions.
func awaitEvent(t *testing.T, conn *websocket.Conn, event string) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var frame wsFrame
		require.NoError(t, conn.ReadJSON(&frame), "waiting for %s", event)
		if frame.Event == event {
			return frame
		}
	}
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(wsFrame{Event: event, Data: data}))
}

func TestHealthEndpoint(t *testing.T) {
	g := newGateway(t)

	resp, err := http.Get(g.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestWebsocketRejectsBadHandshake(t *testing.T) {
	alice := &user.User{ID: uuid.New(), DisplayName: "Alice"}
	g := newGateway(t, alice)

	_, resp, err := websocket.DefaultDialer.Dial(g.wsURL("garbage", alice.ID.String()), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebsocketChatRoundtrip(t *testing.T) {
	alice := &user.User{ID: uuid.New(), DisplayName: "Alice", CircleIDs: []string{"circle-1"}}
	bob := &user.User{ID: uuid.New(), DisplayName: "Bob", CircleIDs: []string{"circle-1"}}
	g := newGateway(t, alice, bob)

	aliceConn := g.dial(t, alice)

	// The join ack proves Alice is fully admitted before Bob connects, so his
	// online transition must reach her.
	sendEvent(t, aliceConn, "room:join", map[string]string{"roomId": "circle-1"})
	awaitEvent(t, aliceConn, "room:joined")

	bobConn := g.dial(t, bob)
	frame := awaitEvent(t, aliceConn, "presence:online")
	var presence struct {
		UserID string `json:"userId"`
		Online bool   `json:"online"`
	}
	require.NoError(t, json.Unmarshal(frame.Data, &presence))
	assert.Equal(t, bob.ID.String(), presence.UserID)
	assert.True(t, presence.Online)

	sendEvent(t, aliceConn, "chat:send_message", map[string]string{
		"roomId":  "circle-1",
		"content": "dinner at 7",
		"kind":    "text",
	})

	frame = awaitEvent(t, bobConn, "chat:message")
	var msg struct {
		RoomID     string `json:"roomId"`
		SenderName string `json:"senderName"`
		Content    string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(frame.Data, &msg))
	assert.Equal(t, "circle-1", msg.RoomID)
	assert.Equal(t, "Alice", msg.SenderName)
	assert.Equal(t, "dinner at 7", msg.Content)

	ack := awaitEvent(t, aliceConn, "chat:message_sent")
	var ackData struct {
		RoomID string `json:"roomId"`
	}
	require.NoError(t, json.Unmarshal(ack.Data, &ackData))
	assert.Equal(t, "circle-1", ackData.RoomID)
}

func TestWebsocketValidationError(t *testing.T) {
	alice := &user.User{ID: uuid.New(), DisplayName: "Alice", CircleIDs: []string{"circle-1"}}
	g := newGateway(t, alice)
	conn := g.dial(t, alice)

	sendEvent(t, conn, "chat:send_message", map[string]string{"roomId": "circle-1", "kind": "text"})

	frame := awaitEvent(t, conn, "error")
	var errData struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(frame.Data, &errData))
	assert.Contains(t, errData.Message, "content")
}
