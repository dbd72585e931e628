// Package main provides the WebSocket event stream for the local UI.
package main

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/eduplatform/edusync/internal/logging"
	"github.com/eduplatform/edusync/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Only the local UI may connect.
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		return host == "localhost" || host == "127.0.0.1"
	},
}

// WebSocket event types.
const (
	EventNetworkOnline  = "network.online"
	EventNetworkOffline = "network.offline"

	EventReplayStarted      = "replay.started"
	EventReplayCompleted    = "replay.completed"
	EventReplayActionFailed = "replay.action_failed"

	EventProgressConfirmed = "progress.confirmed"
)

// WSEnvelope wraps every outbound WebSocket message.
type WSEnvelope struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// WSClient is one connected UI client.
type WSClient struct {
	id            string
	conn          *websocket.Conn
	send          chan []byte
	hub           *WSHub
	subscriptions map[string]bool
}

// WSHub maintains client connections and broadcasts events.
type WSHub struct {
	clients    map[string]*WSClient
	broadcast  chan []byte
	register   chan *WSClient
	unregister chan *WSClient
	mu         sync.RWMutex
	log        *logrus.Entry
}

// NewWSHub creates a hub and starts its broadcast loop.
func NewWSHub() *WSHub {
	hub := &WSHub{
		clients:    make(map[string]*WSClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		log:        logging.WithComponent("websocket"),
	}
	go hub.run()
	return hub
}

func (h *WSHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.log.WithField("client", client.id).Debug("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.WithField("client", client.id).Debug("client disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full; drop the client.
					close(client.send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an enveloped event to every connected client.
func (h *WSHub) Broadcast(eventType string, data map[string]interface{}) {
	envelope := WSEnvelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		h.log.WithError(err).WithField("type", eventType).Error("failed to marshal event")
		return
	}
	h.broadcast <- payload
}

// BroadcastNetworkStatus notifies clients of a connectivity change.
func (h *WSHub) BroadcastNetworkStatus(online bool) {
	event := EventNetworkOffline
	if online {
		event = EventNetworkOnline
	}
	h.Broadcast(event, map[string]interface{}{
		"online": online,
	})
}

// BroadcastReplayStarted notifies clients that queue replay has begun.
func (h *WSHub) BroadcastReplayStarted(pending int) {
	h.Broadcast(EventReplayStarted, map[string]interface{}{
		"pending": pending,
	})
}

// BroadcastReplayCompleted notifies clients that a replay run finished.
func (h *WSHub) BroadcastReplayCompleted(remaining int, failed bool) {
	h.Broadcast(EventReplayCompleted, map[string]interface{}{
		"remaining": remaining,
		"failed":    failed,
	})
}

// BroadcastReplayActionFailed notifies clients that an action was
// dropped at the retry cap.
func (h *WSHub) BroadcastReplayActionFailed(action *models.PendingAction, errMsg string) {
	h.Broadcast(EventReplayActionFailed, map[string]interface{}{
		"action_id": action.ID,
		"url":       action.URL,
		"method":    action.Method,
		"retries":   action.Retries,
		"error":     errMsg,
	})
}

// BroadcastProgressConfirmed notifies clients that a completion was
// confirmed by the server.
func (h *WSHub) BroadcastProgressConfirmed(record *models.LocalProgressRecord) {
	h.Broadcast(EventProgressConfirmed, map[string]interface{}{
		"student":    record.Student,
		"lesson":     record.Lesson,
		"quiz_score": record.QuizScore,
		"origin":     record.Origin,
	})
}

// readPump consumes client messages: subscriptions and pings.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).Debug("read error")
			}
			break
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		action, ok := msg["action"].(string)
		if !ok {
			continue
		}

		switch action {
		case "subscribe":
			if events, ok := msg["events"].([]interface{}); ok {
				for _, e := range events {
					if eventStr, ok := e.(string); ok {
						c.subscriptions[eventStr] = true
					}
				}
				c.sendControl("subscribe_ack", events)
			}

		case "unsubscribe":
			if events, ok := msg["events"].([]interface{}); ok {
				for _, e := range events {
					if eventStr, ok := e.(string); ok {
						delete(c.subscriptions, eventStr)
					}
				}
			}

		case "ping":
			c.sendControl("pong", nil)
		}
	}
}

// writePump delivers broadcasts and keepalive pings to the client.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) sendControl(action string, events []interface{}) {
	envelope := map[string]interface{}{
		"action":    action,
		"timestamp": time.Now().Unix(),
	}
	if events != nil {
		envelope["subscribed"] = events
	}

	payload, _ := json.Marshal(envelope)
	select {
	case c.send <- payload:
	default:
	}
}

// HandleWebSocket upgrades a connection and registers it with the hub.
func HandleWebSocket(hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.WithError(err).Error("upgrade failed")
			return
		}

		client := &WSClient{
			id:            time.Now().Format("20060102150405.000") + "-" + r.RemoteAddr,
			conn:          conn,
			send:          make(chan []byte, 256),
			hub:           hub,
			subscriptions: make(map[string]bool),
		}

		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}
