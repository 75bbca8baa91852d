package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"tabletalk/backend/internal/game"
	"tabletalk/backend/internal/models"
	"tabletalk/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 256 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// Client is one websocket connection. It implements game.Conn so tables can
// push events to it directly.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	log  *logger.Logger

	send chan []byte

	mu     sync.Mutex
	closed bool
	table  *game.Table
}

// ID implements game.Conn.
func (c *Client) ID() string { return c.id }

// Send implements game.Conn. It never blocks: a client that cannot drain its
// buffer loses events and will resynchronize on reconnect.
func (c *Client) Send(event string, payload any) {
	data, err := json.Marshal(outEnvelope{Type: event, Content: payload})
	if err != nil {
		c.log.LogError(err, "failed to encode event", "event", event)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
		messagesSent.Inc()
	default:
		c.log.Warn("send buffer full, dropping event", "conn_id", c.id, "event", event)
	}
}

// Close implements game.Conn. Used when another connection takes over a
// character's session.
func (c *Client) Close() {
	c.conn.Close()
}

// shutdown marks the client closed and releases its send channel. Called by
// the hub exactly once.
func (c *Client) shutdown() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

// currentTable returns the table this client has joined, if any.
func (c *Client) currentTable() *game.Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table
}

func (c *Client) setTable(t *game.Table) {
	c.mu.Lock()
	c.table = t
	c.mu.Unlock()
}

func (c *Client) readPump() {
	defer func() {
		if t := c.currentTable(); t != nil {
			t.Leave(c.id)
		}
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read error", "conn_id", c.id, "error", err.Error())
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn("malformed envelope", "conn_id", c.id)
			continue
		}
		messagesReceived.Inc()

		// Events are handled in arrival order; table handlers serialize on
		// the table lock.
		c.handleEvent(env)
	}
}

func (c *Client) writePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Flush anything already queued as separate frames.
			n := len(c.send)
			for i := 0; i < n; i++ {
				extra := <-c.send
				if err := c.conn.WriteMessage(websocket.TextMessage, extra); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs upgrades an HTTP request to a websocket client and starts its
// pumps.
func ServeWs(hub *Hub, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.LogError(err, "websocket upgrade failed")
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		conn: conn,
		hub:  hub,
		log:  hub.log,
		send: make(chan []byte, 256),
	}

	hub.register <- client

	go client.writePump()
	go client.readPump()
}

// Inbound payload shapes.

type createTablePayload struct {
	Name string `json:"name"`
}

type joinTablePayload struct {
	TableID string `json:"tableId"`
}

type submitCharacterPayload struct {
	TableID   string   `json:"tableId"`
	Name      string   `json:"name"`
	Languages []string `json:"languages"`
	IsGM      bool     `json:"isGM"`
	AvatarURL string   `json:"avatarUrl"`
}

type reconnectPayload struct {
	TableID     string `json:"tableId"`
	CharacterID string `json:"characterId"`
}

type sendMessagePayload struct {
	TableID  string `json:"tableId"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

type commandPayload struct {
	TableID string   `json:"tableId"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

type importPayload struct {
	TableID string `json:"tableId"`
	models.TableSnapshot
}

type tableNameTakenPayload struct {
	Name string `json:"name"`
}

type tableNameInvalidPayload struct {
	Message string `json:"message"`
}

func (c *Client) handleEvent(env Envelope) {
	switch env.Type {
	case models.EventRequestTableList:
		c.Send(models.EventTableList, c.hub.manager.List())

	case models.EventCreateTable:
		c.handleCreateTable(env.Content)

	case models.EventJoinTable:
		c.handleJoinTable(env.Content)

	case models.EventLeaveTable:
		if t := c.currentTable(); t != nil {
			t.Leave(c.id)
			c.setTable(nil)
		}

	case models.EventSubmitCharacterDetails:
		var p submitCharacterPayload
		if t := c.decodeForTable(env.Content, &p, func() string { return p.TableID }); t != nil {
			t.SubmitCharacter(c.id, game.CharacterSubmission{
				Name:      p.Name,
				Languages: p.Languages,
				IsGM:      p.IsGM,
				AvatarURL: p.AvatarURL,
			})
		}

	case models.EventReconnectCharacter:
		var p reconnectPayload
		if t := c.decodeForTable(env.Content, &p, func() string { return p.TableID }); t != nil {
			t.Reconnect(c.id, p.CharacterID)
		}

	case models.EventSendMessage:
		var p sendMessagePayload
		if t := c.decodeForTable(env.Content, &p, func() string { return p.TableID }); t != nil {
			t.SendChat(c.id, p.Content, p.Language)
		}

	case models.EventExecuteCommand:
		var p commandPayload
		if t := c.decodeForTable(env.Content, &p, func() string { return p.TableID }); t != nil {
			t.ExecuteCommand(c.id, p.Command, p.Args)
		}

	case models.EventImportGameState:
		var p importPayload
		if t := c.decodeForTable(env.Content, &p, func() string { return p.TableID }); t != nil {
			t.ImportState(c.id, p.TableSnapshot)
		}

	default:
		c.log.Warn("unknown event", "conn_id", c.id, "event", env.Type)
	}
}

// decodeForTable unmarshals a table-scoped payload and verifies the client
// is actually joined to the table it names.
func (c *Client) decodeForTable(raw json.RawMessage, dst any, tableID func() string) *game.Table {
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn("malformed payload", "conn_id", c.id)
		return nil
	}
	t := c.currentTable()
	if t == nil || t.ID() != tableID() {
		c.log.Warn("event for table the client has not joined", "conn_id", c.id)
		return nil
	}
	return t
}

func (c *Client) handleCreateTable(raw json.RawMessage) {
	var p createTablePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	t, err := c.hub.manager.Create(p.Name)
	if err != nil {
		switch err {
		case game.ErrTableNameTaken:
			c.Send(models.EventTableNameTaken, tableNameTakenPayload{Name: p.Name})
		default:
			c.Send(models.EventTableNameInvalid, tableNameInvalidPayload{Message: "Name must be between 3 and 50 characters."})
		}
		return
	}
	c.Send(models.EventTableCreated, t.Info())
	c.hub.BroadcastTableList()
}

func (c *Client) handleJoinTable(raw json.RawMessage) {
	var p joinTablePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	t, ok := c.hub.manager.Get(p.TableID)
	if !ok {
		c.Send(models.EventTableNotFound, nil)
		return
	}
	if prev := c.currentTable(); prev != nil && prev.ID() != p.TableID {
		prev.Leave(c.id)
	}
	c.setTable(t)
	t.Join(c)
}
