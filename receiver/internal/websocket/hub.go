package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/Krimson/ecg-monitory/receiver/internal/session"
	"github.com/gorilla/websocket"
)

// allSessions - подписка на все сессии
const allSessions = "*"

// Hub управляет WebSocket соединениями
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Канал для регистрации клиентов
	register chan *Client

	// Канал для отмены регистрации клиентов
	unregister chan *Client

	// Канал исходящих сообщений
	broadcast chan envelope

	// Мютекс для безопасной работы с картой клиентов
	mu sync.RWMutex
}

// envelope - сообщение с адресатом
type envelope struct {
	sessionID string
	payload   []byte
}

// Client представляет WebSocket клиента
type Client struct {
	hub *Hub

	// WebSocket соединение
	conn *websocket.Conn

	// Буферизованный канал исходящих сообщений
	send chan []byte

	// ID сессии для фильтрации данных
	sessionID string
}

// ProcessedData - сообщение фронтенду
type ProcessedData struct {
	Message   string      `json:"message"`
	SessionID string      `json:"session_id"`
	Status    string      `json:"status"`
	Records   RecordsData `json:"records"`
}

// RecordsData содержит показатели ритма и фрагмент сигнала
type RecordsData struct {
	State        string            `json:"state,omitempty"`
	AvgHR        float64           `json:"avg_hr"`
	CountHR      float64           `json:"count_hr"`
	AvgRR        float64           `json:"avg_rr"`
	MinHR        *float64          `json:"min_hr,omitempty"`
	MaxHR        *float64          `json:"max_hr,omitempty"`
	BeatCount    int64             `json:"beat_count"`
	History      []float64         `json:"history,omitempty"`
	Beat         *Beat             `json:"beat,omitempty"`
	FilteredECG  FilteredBatchData `json:"filtered_ecg"`
	HasRhythm    bool              `json:"has_rhythm"`
	SampleCount  int64             `json:"sample_count"`
	Computations int               `json:"computations"`
}

// Beat - удар в сообщении фронтенду
type Beat struct {
	SampleIndex int64   `json:"sample_index"`
	TimeSec     float64 `json:"time_sec"`
	RR          float64 `json:"rr"`
}

// FilteredBatchData - порция отфильтрованного сигнала
type FilteredBatchData struct {
	TimeSec []float64 `json:"time_sec"`
	Value   []float64 `json:"value"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене следует проверять домен
		return true
	},
}

// NewHub создает новый Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 256),
	}
}

// Run запускает Hub до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("[WEBSOCKET] Client registered: %p, session: %s", client, client.sessionID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("[WEBSOCKET] Client unregistered: %p", client)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.sessionID != allSessions && client.sessionID != msg.sessionID {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// Медленный клиент отключается
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount возвращает число подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify реализует session.Notifier: рассылает обновление подписчикам сессии
func (h *Hub) Notify(ctx context.Context, update *session.Update) error {
	message, err := json.Marshal(convertUpdate(update))
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- envelope{sessionID: update.SessionID, payload: message}:
	default:
		log.Printf("[WARN] Broadcast channel full, dropping message")
	}
	return nil
}

// convertUpdate собирает сообщение фронтенду из обновления сессии
func convertUpdate(update *session.Update) *ProcessedData {
	timeSec := make([]float64, 0, len(update.Filtered))
	value := make([]float64, 0, len(update.Filtered))
	for _, p := range update.Filtered {
		timeSec = append(timeSec, p.TimeSec)
		value = append(value, p.Value)
	}

	data := &ProcessedData{
		Message:   "Done",
		SessionID: update.SessionID,
		Status:    "processed",
		Records: RecordsData{
			FilteredECG: FilteredBatchData{TimeSec: timeSec, Value: value},
		},
	}

	if m := update.Metrics; m != nil {
		data.Records.HasRhythm = true
		data.Records.State = m.State
		data.Records.AvgHR = m.AvgHR
		data.Records.CountHR = m.CountHR
		data.Records.AvgRR = m.AvgRR
		data.Records.BeatCount = m.BeatCount
		data.Records.History = m.History
		data.Records.SampleCount = m.SampleCount
		data.Records.Computations = m.Computations
		if m.HasExtrema {
			minHR, maxHR := m.MinHR, m.MaxHR
			data.Records.MinHR = &minHR
			data.Records.MaxHR = &maxHR
		}
	}

	if b := update.Beat; b != nil {
		data.Records.Beat = &Beat{
			SampleIndex: b.SampleIndex,
			TimeSec:     b.TimeSec,
			RR:          b.RR,
		}
	}

	return data
}

// HandleWebSocket обрабатывает WebSocket соединения.
// ?session_id=<id> подписывает на одну сессию, без параметра - на все.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ERROR] Failed to upgrade connection: %v", err)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = allSessions
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	client.hub.register <- client

	// Запускаем горутины для клиента
	go client.writePump()
	go client.readPump()
}

// readPump обрабатывает входящие сообщения от клиента
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[ERROR] WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump отправляет сообщения клиенту
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("[ERROR] Failed to write message: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
