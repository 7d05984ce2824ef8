package ws_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/beachhouses/CuppaChat-KDJK/internal/ws"
)

func newSessionServer(t *testing.T) (*ws.Hub, *httptest.Server) {
	t.Helper()
	hub := ws.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/{room}/{username}", hub.ServeWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, room, user string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, srv.URL+"/ws/"+room+"/"+user, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, b))
}

func sendRaw(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(raw)))
}

func users(ev map[string]any) []string {
	raw, _ := ev["users"].([]any)
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		out = append(out, u.(string))
	}
	return out
}

func Test_join_announces_roster_then_joined_notice(t *testing.T) {
	_, srv := newSessionServer(t)

	alice := dial(t, srv, "demo", "alice")

	roster := readEvent(t, alice)
	assert.Equal(t, "userlist", roster["type"])
	assert.Equal(t, []string{"alice"}, users(roster))

	joined := readEvent(t, alice)
	assert.Equal(t, "system", joined["type"])
	assert.Equal(t, "alice bergabung ke grup", joined["message"])
	assert.NotEmpty(t, joined["time"])
}

func Test_chat_roundtrip_stamps_sender_and_time(t *testing.T) {
	_, srv := newSessionServer(t)
	carol := dial(t, srv, "demo", "carol")
	readEvent(t, carol) // userlist
	readEvent(t, carol) // joined notice

	send(t, carol, map[string]string{"type": "chat", "message": "hi"})

	ev := readEvent(t, carol)
	assert.Equal(t, "chat", ev["type"])
	assert.Equal(t, "carol", ev["username"])
	assert.Equal(t, "hi", ev["message"])
	_, err := time.Parse(time.RFC3339, ev["time"].(string))
	assert.NoError(t, err)
}

func Test_blank_chat_is_silently_discarded(t *testing.T) {
	_, srv := newSessionServer(t)
	carol := dial(t, srv, "demo", "carol")
	readEvent(t, carol)
	readEvent(t, carol)

	send(t, carol, map[string]string{"type": "chat", "message": "   "})
	send(t, carol, map[string]string{"type": "chat", "message": "after"})

	// Per-sender ordering: if the blank message had produced anything, it
	// would arrive before "after".
	ev := readEvent(t, carol)
	assert.Equal(t, "chat", ev["type"])
	assert.Equal(t, "after", ev["message"])
}

func Test_chat_text_is_trimmed(t *testing.T) {
	_, srv := newSessionServer(t)
	carol := dial(t, srv, "demo", "carol")
	readEvent(t, carol)
	readEvent(t, carol)

	send(t, carol, map[string]string{"type": "chat", "message": "  hi  "})

	ev := readEvent(t, carol)
	assert.Equal(t, "hi", ev["message"])
}

func Test_file_event_echoes_client_metadata(t *testing.T) {
	_, srv := newSessionServer(t)
	carol := dial(t, srv, "demo", "carol")
	readEvent(t, carol)
	readEvent(t, carol)

	send(t, carol, map[string]string{
		"type":     "file",
		"url":      "/uploads/abc123.png",
		"filename": "cat.png",
		"mimetype": "image/png",
	})

	ev := readEvent(t, carol)
	assert.Equal(t, "file", ev["type"])
	assert.Equal(t, "carol", ev["username"])
	assert.Equal(t, "/uploads/abc123.png", ev["url"])
	assert.Equal(t, "cat.png", ev["filename"])
	assert.Equal(t, "image/png", ev["mimetype"])
	assert.NotEmpty(t, ev["time"])
}

func Test_malformed_and_unknown_events_are_ignored(t *testing.T) {
	_, srv := newSessionServer(t)
	carol := dial(t, srv, "demo", "carol")
	readEvent(t, carol)
	readEvent(t, carol)

	sendRaw(t, carol, "this is not json")
	send(t, carol, map[string]string{"type": "typing"})
	send(t, carol, map[string]string{"type": "chat", "message": "still here"})

	ev := readEvent(t, carol)
	assert.Equal(t, "chat", ev["type"])
	assert.Equal(t, "still here", ev["message"])
}

func Test_disconnect_announces_left_notice_then_roster(t *testing.T) {
	hub, srv := newSessionServer(t)

	alice := dial(t, srv, "demo", "alice")
	readEvent(t, alice)
	readEvent(t, alice)

	bob := dial(t, srv, "demo", "bob")
	readEvent(t, bob) // userlist [alice bob]
	readEvent(t, bob) // bob joined notice

	// alice sees bob arrive.
	roster := readEvent(t, alice)
	assert.Equal(t, []string{"alice", "bob"}, users(roster))
	readEvent(t, alice)

	require.NoError(t, alice.Close(websocket.StatusNormalClosure, ""))

	left := readEvent(t, bob)
	assert.Equal(t, "system", left["type"])
	assert.Equal(t, "alice keluar dari grup", left["message"])

	roster = readEvent(t, bob)
	assert.Equal(t, "userlist", roster["type"])
	assert.Equal(t, []string{"bob"}, users(roster))

	assert.Equal(t, []string{"bob"}, hub.Usernames("demo"))
}

func Test_rooms_do_not_leak_events_to_each_other(t *testing.T) {
	_, srv := newSessionServer(t)

	alice := dial(t, srv, "kopi", "alice")
	readEvent(t, alice)
	readEvent(t, alice)

	bob := dial(t, srv, "teh", "bob")
	readEvent(t, bob)
	readEvent(t, bob)

	send(t, bob, map[string]string{"type": "chat", "message": "only for teh"})

	ev := readEvent(t, bob)
	assert.Equal(t, "only for teh", ev["message"])

	// alice's next frame is her own echo, not bob's message.
	send(t, alice, map[string]string{"type": "chat", "message": "only for kopi"})
	ev = readEvent(t, alice)
	assert.Equal(t, "only for kopi", ev["message"])
}
