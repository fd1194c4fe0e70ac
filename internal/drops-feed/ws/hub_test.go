package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/slotbox-platform-poc/pkg/contracts/events"
)

func allowAll(*http.Request) bool { return true }

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readDrop(t *testing.T, conn *websocket.Conn) events.Drop {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var d events.Drop
	require.NoError(t, conn.ReadJSON(&d))
	return d
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := NewHub(zap.NewNop(), allowAll, DefaultBacklog)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitClients(t, hub, 2)

	hub.Broadcast(events.Drop{OpeningID: "op-1", PrizeName: "Knife", PrizeValue: "25.00"})

	assert.Equal(t, "op-1", readDrop(t, a).OpeningID)
	assert.Equal(t, "Knife", readDrop(t, b).PrizeName)
}

func TestHub_NewClientReceivesBacklog(t *testing.T) {
	hub := NewHub(zap.NewNop(), allowAll, 2)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	for _, id := range []string{"op-1", "op-2", "op-3"} {
		hub.Broadcast(events.Drop{OpeningID: id})
	}

	conn := dial(t, srv)
	assert.Equal(t, "op-2", readDrop(t, conn).OpeningID)
	assert.Equal(t, "op-3", readDrop(t, conn).OpeningID)
}

func TestHub_PingPong(t *testing.T) {
	hub := NewHub(zap.NewNop(), allowAll, 0)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "ping"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp map[string]string
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "pong", resp["type"])
}

func TestHub_DisconnectRemovesClient(t *testing.T) {
	hub := NewHub(zap.NewNop(), allowAll, 0)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, hub, 1)
	_ = conn.Close()
	waitClients(t, hub, 0)
}

func TestHub_HandlePayload(t *testing.T) {
	hub := NewHub(zap.NewNop(), allowAll, 5)

	b, _ := json.Marshal(events.Drop{OpeningID: "op-9"})
	hub.HandlePayload(zap.NewNop(), b)
	hub.HandlePayload(zap.NewNop(), []byte("nope"))

	require.Len(t, hub.recent, 1)
	assert.Contains(t, string(hub.recent[0]), `"openingId":"op-9"`)
}

// serverSide devolve a ponta do servidor de uma conexão websocket de teste
func serverSide(t *testing.T) *websocket.Conn {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{CheckOrigin: allowAll}
		if c, err := up.Upgrade(w, r, nil); err == nil {
			conns <- c
		}
	}))
	t.Cleanup(srv.Close)
	dial(t, srv)
	c := <-conns
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestHub_StalledClientDoesNotDelayOthers(t *testing.T) {
	hub := NewHub(zap.NewNop(), allowAll, 0)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	live := dial(t, srv)
	waitClients(t, hub, 1)

	// fila sem leitor: qualquer envio estoura
	stalled := &client{conn: serverSide(t), send: make(chan []byte), done: make(chan struct{})}
	hub.mu.Lock()
	hub.clients[stalled] = struct{}{}
	hub.mu.Unlock()

	start := time.Now()
	hub.Broadcast(events.Drop{OpeningID: "op-1"})
	assert.Less(t, time.Since(start), writeWait)

	assert.Equal(t, "op-1", readDrop(t, live).OpeningID)
	select {
	case <-stalled.done:
	default:
		t.Fatal("stalled client was not dropped")
	}
}
