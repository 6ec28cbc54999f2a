package client

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"nvivas/backend/tictactoe-rooms/internal/interfaces"
	"nvivas/backend/tictactoe-rooms/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 4096

	// DefaultSendBuffer is used when a non-positive buffer size is given.
	DefaultSendBuffer = 256
)

// Client representa una conexión de cliente WebSocket
type Client struct {
	id   string
	hub  interfaces.Dispatcher
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient wraps an upgraded websocket connection.
func NewClient(id string, hub interfaces.Dispatcher, conn *websocket.Conn, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = DefaultSendBuffer
	}
	return &Client{
		id:   id,
		hub:  hub,
		conn: conn,
		send: make(chan []byte, bufferSize),
	}
}

// ID implements interfaces.Conn
func (c *Client) ID() string {
	return c.id
}

// Push implements interfaces.Conn. It never blocks: a full buffer means the
// peer is not keeping up and the frame is refused.
func (c *Client) Push(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("client %s is closed", c.id)
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return fmt.Errorf("client %s send buffer full", c.id)
	}
}

// Close implements interfaces.Conn. Closing the send channel makes
// WritePump emit a close frame and exit.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// ReadPump maneja la lectura de mensajes desde el WebSocket
func (c *Client) ReadPump() {
	defer func() {
		// Cuando ReadPump termina, desregistrar cliente y cerrar conexiones
		c.hub.Disconnect(c.id)
		_ = c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				logger.Warn("Conexión cerrada inesperadamente", logger.Fields{
					"clientID": c.id,
					"error":    err.Error(),
				})
			}
			return
		}
		c.hub.HandleFrame(c.id, message)
	}
}

// WritePump maneja el envío de mensajes al WebSocket
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// El canal Send está cerrado
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per event: clients parse each message as a single envelope.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades HTTP requests on the websocket endpoint, registers each
// connection with hub and starts its pumps.
func ServeWS(hub interfaces.Hub, upgrader *websocket.Upgrader, bufferSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("Error al actualizar la conexión WebSocket", logger.Fields{
				"error": err.Error(),
				"path":  r.URL.Path,
			})
			return
		}

		c := NewClient(uuid.NewString(), hub, conn, bufferSize)
		if err := hub.Connect(c); err != nil {
			logger.Warn("Connection refused", logger.Fields{"error": err.Error()})
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"),
				time.Now().Add(writeWait))
			conn.Close()
			return
		}

		go c.WritePump()
		go c.ReadPump()

		logger.Info("Nueva conexión establecida", logger.Fields{
			"clientID": c.ID(),
			"remote":   conn.RemoteAddr().String(),
		})
	}
}
