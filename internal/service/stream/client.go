package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ElemPulse/internal/domain/models"
	drepo "ElemPulse/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a TelemetryStream backed by a WebSocket feed. The feed
// pushes batched telemetry frames per subscribed entity.
type Client struct {
	token          string
	websocketURL   string
	entities       []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new WebSocket TelemetryStream.
func New(token, websocketURL string, entities []string, reconnectDelay, pingInterval time.Duration) drepo.TelemetryStream {
	return &Client{
		token:          token,
		websocketURL:   websocketURL,
		entities:       entities,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := c.websocketURL
	if c.token != "" {
		u = fmt.Sprintf("%s?token=%s", c.websocketURL, c.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("stream: connected")
	return nil
}

// Subscribe subscribes to configured entities.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("stream not connected")
	}
	for _, e := range c.entities {
		msg := map[string]string{"type": "subscribe", "entity": e}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", e, err)
		}
		log.Printf("stream: subscribed %s", e)
	}
	return nil
}

type wsFrame struct {
	Type string                   `json:"type"`
	Data []*models.TelemetryRecord `json:"data"`
}

// Read streams telemetry records and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.TelemetryRecord, <-chan error) {
	records := make(chan *models.TelemetryRecord, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(records)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("stream conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("stream read: %w", err)
					return
				}
				var m wsFrame
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-telemetry frames
					continue
				}
				if m.Type != "telemetry" {
					continue
				}
				for _, rec := range m.Data {
					if rec == nil {
						continue
					}
					// producers may send milliseconds
					if rec.Timestamp > 1e11 {
						rec.Timestamp /= 1000
					}
					select {
					case records <- rec:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return records, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// IsConnected reports whether the connection is up.
func (c *Client) IsConnected() bool { return c.connected && c.conn != nil }

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
