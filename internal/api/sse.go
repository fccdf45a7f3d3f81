package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cosmos-link/webgen/internal/logging"
	"github.com/cosmos-link/webgen/internal/metrics"
	"github.com/cosmos-link/webgen/internal/task"
)

// heartbeatInterval is how often idle SSE streams get a keep-alive comment
var heartbeatInterval = 30 * time.Second

// SSEClient represents an SSE client connection
type SSEClient struct {
	TaskID  string
	Channel chan task.Task
}

// SSEManager manages SSE connections
type SSEManager struct {
	clients    map[string][]*SSEClient
	register   chan *SSEClient
	unregister chan *SSEClient
	broadcast  chan task.Task
	done       chan struct{}
}

// NewSSEManager creates a new SSE manager
func NewSSEManager() *SSEManager {
	manager := &SSEManager{
		clients:    make(map[string][]*SSEClient),
		register:   make(chan *SSEClient),
		unregister: make(chan *SSEClient),
		broadcast:  make(chan task.Task),
		done:       make(chan struct{}),
	}

	go manager.run()
	return manager
}

// run starts the SSE manager event loop
func (m *SSEManager) run() {
	for {
		select {
		case <-m.done:
			return

		case client := <-m.register:
			m.clients[client.TaskID] = append(m.clients[client.TaskID], client)

		case client := <-m.unregister:
			if clients, ok := m.clients[client.TaskID]; ok {
				for i, c := range clients {
					if c == client {
						m.clients[client.TaskID] = append(clients[:i], clients[i+1:]...)
						close(c.Channel)
						break
					}
				}

				if len(m.clients[client.TaskID]) == 0 {
					delete(m.clients, client.TaskID)
				}
			}

		case t := <-m.broadcast:
			for _, client := range m.clients[t.ID] {
				select {
				case client.Channel <- t:
				default:
					// Client channel is full, skip
				}
			}
		}
	}
}

// Register registers a new SSE client
func (m *SSEManager) Register(taskID string) *SSEClient {
	client := &SSEClient{
		TaskID:  taskID,
		Channel: make(chan task.Task, 10),
	}
	select {
	case m.register <- client:
	case <-m.done:
	}
	return client
}

// Unregister unregisters an SSE client
func (m *SSEManager) Unregister(client *SSEClient) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

// Broadcast broadcasts a task update to all connected clients
func (m *SSEManager) Broadcast(t task.Task) {
	select {
	case m.broadcast <- t:
	case <-m.done:
	}
}

// Close stops the event loop
func (m *SSEManager) Close() {
	close(m.done)
}

// HandleSSE handles SSE connections for task status updates
func HandleSSE(c *gin.Context, sseManager *SSEManager, taskManager *task.Manager) {
	taskID := c.Param("task_id")

	// Register before reading the snapshot so no update falls between the two
	client := sseManager.Register(taskID)
	defer sseManager.Unregister(client)

	t, err := taskManager.GetTask(taskID)
	if err != nil {
		ErrorResponse(c, 404, "Task not found")
		return
	}

	// Set headers for SSE
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	metrics.SSEConnected()
	defer metrics.SSEDisconnected()
	logging.WithContext(c.Request.Context()).Debug("status stream opened", zap.String("task_id", taskID))

	// Send initial status
	c.SSEvent("status", t)
	c.Writer.Flush()

	// If task is already terminal, close connection
	if t.IsTerminal() {
		return
	}

	// Stream updates
	clientGone := c.Request.Context().Done()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			return

		case update := <-client.Channel:
			c.SSEvent("status", update)
			c.Writer.Flush()

			// Close connection if task is terminal
			if update.IsTerminal() {
				return
			}

		case <-ticker.C:
			// Send heartbeat
			fmt.Fprintf(c.Writer, ": heartbeat\n\n")
			c.Writer.Flush()
		}
	}
}
