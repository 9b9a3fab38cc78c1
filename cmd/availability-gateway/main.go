// cmd/availability-gateway/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tixhub/internal/inventory"
	"tixhub/internal/pkg/bootstrap"
	"tixhub/internal/pkg/logger"
	redispkg "tixhub/internal/pkg/redis"
)

const (
	serviceName  = "availability-gateway"
	pollInterval = 2 * time.Second
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
)

var (
	nodeID   = serviceName + "-" + uuid.New().String()[:8]
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool { // 简化处理，允许所有跨域
			return true
		},
	}
)

// availabilityUpdate 是推送给客户端的消息体。
type availabilityUpdate struct {
	EventID      string `json:"event_id"`
	TicketTypeID string `json:"ticket_type_id"`
	Available    int    `json:"available"`
}

// Hub 维护所有活跃的连接，按订阅的票种分组广播。
type Hub struct {
	clients    map[string]map[*Client]struct{} // 订阅 key -> 连接集合
	register   chan *Client
	unregister chan *Client
	lock       sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			if h.clients[client.topic] == nil {
				h.clients[client.topic] = make(map[*Client]struct{})
			}
			h.clients[client.topic][client] = struct{}{}
			h.lock.Unlock()
			logger.Logger.Info().Str("topic", client.topic).Str("node", nodeID).Msg("Client subscribed")
		case client := <-h.unregister:
			h.lock.Lock()
			if set, ok := h.clients[client.topic]; ok {
				if _, ok := set[client]; ok {
					delete(set, client)
					close(client.send)
					if len(set) == 0 {
						delete(h.clients, client.topic)
					}
				}
			}
			h.lock.Unlock()
			logger.Logger.Info().Str("topic", client.topic).Msg("Client unsubscribed")
		}
	}
}

// topics 返回当前有订阅者的 key，poller 只轮询这些。
func (h *Hub) topics() []string {
	h.lock.RLock()
	defer h.lock.RUnlock()
	keys := make([]string, 0, len(h.clients))
	for k := range h.clients {
		keys = append(keys, k)
	}
	return keys
}

func (h *Hub) broadcast(topic string, message []byte) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	for client := range h.clients[topic] {
		select {
		case client.send <- message:
		default:
			// 发送缓冲已满的慢客户端直接跳过，不阻塞广播。
		}
	}
}

// Client 是一个WebSocket连接的代表
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	topic string
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// 客户端不发业务消息，读循环只负责心跳和断连检测。
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event_id")
	ticketTypeID := r.URL.Query().Get("ticket_type_id")
	if eventID == "" || ticketTypeID == "" {
		http.Error(w, "event_id and ticket_type_id are required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, 256),
		topic: inventory.Key(eventID, ticketTypeID),
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// pollAvailability 周期性读取有订阅者的计数器，数值变化时广播。
func pollAvailability(ctx context.Context, hub *Hub, store *inventory.Store) {
	last := make(map[string]int)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, topic := range hub.topics() {
			eventID, ticketTypeID, ok := inventory.ParseKey(topic)
			if !ok {
				continue
			}
			available, err := store.Available(ctx, eventID, ticketTypeID)
			if err != nil {
				continue
			}
			if prev, seen := last[topic]; seen && prev == available {
				continue
			}
			last[topic] = available

			message, err := json.Marshal(availabilityUpdate{
				EventID:      eventID,
				TicketTypeID: ticketTypeID,
				Available:    available,
			})
			if err != nil {
				continue
			}
			hub.broadcast(topic, message)
		}
	}
}

func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	redisClient, err := redispkg.NewClient(context.Background(), cfg.Infra.Redis)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize redis client")
	}

	store := inventory.NewStore(redisClient.GetClient())
	hub := newHub()
	go hub.run()

	pollCtx, stopPoll := context.WithCancel(context.Background())
	go pollAvailability(pollCtx, hub, store)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8088,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
				serveWs(hub, w, r)
			})
		},
		OnShutdown: func(ctx context.Context) {
			stopPoll()
			if err := redisClient.Close(); err != nil {
				logger.Logger.Error().Err(err).Msg("Error closing redis client")
			}
		},
	})
}
