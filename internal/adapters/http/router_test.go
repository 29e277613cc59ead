package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Relay/internal/adapters/accounts"
	router "github.com/dkeye/Relay/internal/adapters/http"
	"github.com/dkeye/Relay/internal/adapters/signal"
	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/app/orch"
	"github.com/dkeye/Relay/internal/config"
	"github.com/dkeye/Relay/internal/crypto"
	"github.com/dkeye/Relay/internal/testutil"
	"github.com/dkeye/Relay/internal/wire"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*orch.Orchestrator, *httptest.Server) {
	t.Helper()
	o := orch.New(crypto.NewLink(nil), app.NewDropPolicy(3))
	ctl := signal.NewController(o, accounts.NewStatic(map[string]string{"alice": "pw"}), nil)
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(router.SetupRouter(ctx, &config.Config{Mode: "release"}, o, ctl))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return o, srv
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestStatusEndpoints(t *testing.T) {
	o, srv := setup(t)
	a, _ := testutil.Session("alice")
	b, _ := testutil.Session("bob")
	require.NoError(t, o.Login(a))
	require.NoError(t, o.Login(b))
	require.NoError(t, o.Join(a, "lobby"))

	var health struct {
		Status string `json:"status"`
		Online int    `json:"online"`
	}
	resp := getJSON(t, srv.URL+"/healthz", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Online)

	var online struct {
		Users []string `json:"users"`
	}
	getJSON(t, srv.URL+"/api/online", &online)
	assert.Equal(t, []string{"alice", "bob"}, online.Users)

	var rooms struct {
		Rooms []struct {
			Name  string `json:"name"`
			Count int    `json:"client_count"`
		} `json:"rooms"`
	}
	getJSON(t, srv.URL+"/api/rooms", &rooms)
	require.Len(t, rooms.Rooms, 1)
	assert.Equal(t, "lobby", rooms.Rooms[0].Name)
	assert.Equal(t, 1, rooms.Rooms[0].Count)

	var members struct {
		Members []string `json:"members"`
	}
	getJSON(t, srv.URL+"/api/rooms/lobby/members", &members)
	assert.Equal(t, []string{"alice"}, members.Members)

	resp = getJSON(t, srv.URL+"/api/rooms/attic/members", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketTransport(t *testing.T) {
	o, srv := setup(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	sock, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer sock.Close()

	read := func() wire.Frame {
		t.Helper()
		require.NoError(t, sock.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := sock.ReadMessage()
		require.NoError(t, err)
		dec := wire.NewDecoder(0)
		dec.Feed(data)
		f, ok, err := dec.Next()
		require.NoError(t, err)
		require.True(t, ok)
		return f
	}
	say := func(text string) {
		t.Helper()
		data, err := wire.Text(wire.TypeCommand, text).Encode()
		require.NoError(t, err)
		require.NoError(t, sock.WriteMessage(websocket.BinaryMessage, data))
	}

	assert.Equal(t, "Enter username: ", string(read().Payload))
	say("alice")
	assert.Equal(t, "Enter password: ", string(read().Payload))
	say("pw")
	welcome := read()
	assert.Equal(t, wire.TypeNotice, welcome.Type)
	assert.Contains(t, string(welcome.Payload), "Welcome, alice!")

	_, err = o.Directory.Lookup("alice")
	assert.NoError(t, err)
}
