package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/slotbox-platform-poc/pkg/contracts/events"
)

// DefaultBacklog é quantos drops um cliente recebe ao conectar
const DefaultBacklog = 20

const writeWait = 5 * time.Second

// sendQueue é a folga por cliente além do backlog; cheia, o cliente é derrubado
const sendQueue = 64

// ClientMsg é o que o cliente pode mandar (só ping)
type ClientMsg struct {
	Type string `json:"type"`
}

// client tem uma única goroutine escritora (writePump); gorilla não aceita escritas concorrentes
type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// enqueue não bloqueia; devolve false se a fila do cliente estourou
func (c *client) enqueue(b []byte) bool {
	select {
	case c.send <- b:
		return true
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *client) writePump(log *zap.Logger) {
	defer c.close()
	for {
		select {
		case <-c.done:
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Debug("ws write failed", zap.Error(err))
				return
			}
		}
	}
}

// Hub mantém as conexões do feed ao vivo e os últimos drops
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	recent  [][]byte
	backlog int
}

func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool, backlog int) *Hub {
	if backlog < 0 {
		backlog = 0
	}
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		clients:  make(map[*client]struct{}),
		backlog:  backlog,
	}
}

// HandleWS registra a conexão, envia o histórico recente e responde pings
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{
		conn: conn,
		send: make(chan []byte, h.backlog+sendQueue),
		done: make(chan struct{}),
	}

	// histórico entra na fila sob o lock, antes de qualquer broadcast novo
	h.mu.Lock()
	for _, b := range h.recent {
		c.send <- b
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		c.close()
	}()

	go c.writePump(h.log)

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "ping" && !c.enqueue([]byte(`{"type":"pong"}`)) {
			return
		}
	}
}

// Broadcast enfileira o drop para todos os clientes sem esperar a rede e guarda no histórico
func (h *Hub) Broadcast(d events.Drop) {
	b, err := json.Marshal(d)
	if err != nil {
		return
	}

	h.mu.Lock()
	if h.backlog > 0 {
		h.recent = append(h.recent, b)
		if len(h.recent) > h.backlog {
			h.recent = h.recent[len(h.recent)-h.backlog:]
		}
	}
	var slow []*client
	for c := range h.clients {
		if !c.enqueue(b) {
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.log.Warn("ws client too slow, dropping")
		c.close() // o loop de leitura remove o cliente
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
