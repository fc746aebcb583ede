package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"zomatoclean/internal/infrastructure"
	"zomatoclean/pkg/contracts"
	"zomatoclean/pkg/contracts/events"
)

const broadcastBuffer = 256

// SnapshotSource returns the latest snapshot of every known run. The hub
// replays them to a client as soon as it connects.
type SnapshotSource func() []*events.OperationSnapshot

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *Metrics

	snapshots SnapshotSource
	startedAt time.Time

	totalConnections int64
	messagesSent     int64

	quit    chan struct{}
	done    chan struct{}
	running bool
	stopped bool
}

type outbound struct {
	messageType string
	payload     []byte
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// SetSnapshotSource sets where the hub reads run state for new clients
func (h *Hub) SetSnapshotSource(source SnapshotSource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshots = source
}

// Start starts the hub loop. Calling Start twice, or after Stop, does nothing.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running || h.stopped {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.startedAt = time.Now()
	h.mu.Unlock()

	go h.Run()
}

// Run is the hub's main loop
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "normal")

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.totalConnections++
	source := h.snapshots
	h.mu.Unlock()

	ctx := client.context()
	h.logger.InfoContext(ctx, "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))
	h.metrics.RecordConnection(ctx)

	h.sendTo(client, h.connectMessage(client))

	if source == nil {
		return
	}
	for _, snapshot := range source() {
		h.sendTo(client, h.encode(ctx, events.WebSocketMessage{
			BaseMessage: events.BaseMessage{
				Type:      events.MessageTypeOperationSnapshot,
				Timestamp: time.Now().UTC(),
			},
			Step:   snapshot.OperationID,
			Status: snapshot.Status,
			Data:   snapshot,
		}))
	}
}

func (h *Hub) removeClient(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.logger.InfoContext(ctx, "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
	h.metrics.RecordDisconnection(ctx, time.Since(client.connectedAt), reason)
}

func (h *Hub) fanOut(msg outbound) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	delivered, dropped := 0, 0
	for _, client := range clients {
		select {
		case client.send <- msg.payload:
			delivered++
		default:
			// a client that cannot keep up is disconnected
			dropped++
			h.removeClient(client, "send_buffer_full")
		}
	}

	h.mu.Lock()
	h.messagesSent += int64(delivered)
	h.mu.Unlock()

	h.logger.Debug("Broadcast message to clients",
		slog.String("message_type", msg.messageType),
		slog.Int("delivered", delivered),
		slog.Int("dropped", dropped),
		slog.Int("message_size", len(msg.payload)))
	h.metrics.RecordBroadcast(context.Background(), msg.messageType, dropped)
}

// sendTo queues payload for one client without blocking the hub loop
func (h *Hub) sendTo(client *Client, payload []byte) {
	if payload == nil {
		return
	}
	select {
	case client.send <- payload:
	default:
		h.logger.Warn("Client buffer full, message not queued",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) connectMessage(client *Client) []byte {
	h.mu.RLock()
	uptime := time.Since(h.startedAt).Round(time.Second)
	h.mu.RUnlock()

	var msg events.SystemStatusEvent
	msg.ID = client.id
	msg.Type = events.MessageTypeConnect
	msg.Timestamp = time.Now().UTC()
	msg.TraceID = client.traceID
	msg.Data.Status = "connected"
	msg.Data.Version = contracts.Version
	msg.Data.Uptime = uptime.String()
	return h.encode(client.context(), msg)
}

func (h *Hub) encode(ctx context.Context, message interface{}) []byte {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()))
		return nil
	}
	return data
}

// BroadcastUpdate sends a message to every connected client. Messages sent
// while the hub is not running, or while its queue is full, are dropped.
func (h *Hub) BroadcastUpdate(eventType, step, status string, data interface{}) {
	h.BroadcastUpdateWithTrace(context.Background(), eventType, step, status, data)
}

// BroadcastUpdateWithTrace is BroadcastUpdate carrying the trace ID found in ctx
func (h *Hub) BroadcastUpdateWithTrace(ctx context.Context, eventType, step, status string, data interface{}) {
	payload := h.encode(ctx, events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			Type:      events.MessageType(eventType),
			Timestamp: time.Now().UTC(),
			TraceID:   infrastructure.GetTraceID(ctx),
		},
		Step:   step,
		Status: status,
		Data:   data,
	})
	if payload == nil {
		return
	}

	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		h.logger.DebugContext(ctx, "Hub not running, dropping message",
			slog.String("message_type", eventType))
		return
	}

	select {
	case h.broadcast <- outbound{messageType: eventType, payload: payload}:
	default:
		h.logger.WarnContext(ctx, "Broadcast queue full, dropping message",
			slog.String("message_type", eventType))
		h.metrics.RecordBroadcast(ctx, eventType, 1)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns counters for the health endpoint
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"running":           h.running,
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
	}
}

// Stop stops the hub and closes every client connection
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	wasRunning := h.running
	h.running = false
	h.stopped = true
	h.mu.Unlock()

	close(h.quit)
	if wasRunning {
		<-h.done
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
