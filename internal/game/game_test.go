package game

import (
	"io"
	"sync"

	"tabletalk/backend/internal/models"
	"tabletalk/backend/pkg/logger"
)

// fakeConn records everything the table sends to it.
type fakeConn struct {
	id string

	mu     sync.Mutex
	events []recordedEvent
	closed bool
}

type recordedEvent struct {
	Event   string
	Payload any
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, recordedEvent{Event: event, Payload: payload})
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// payloads returns every payload sent under an event name, in order.
func (c *fakeConn) payloads(event string) []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []any
	for _, e := range c.events {
		if e.Event == event {
			out = append(out, e.Payload)
		}
	}
	return out
}

// messages returns every chat item delivered to the connection.
func (c *fakeConn) messages() []models.Message {
	var out []models.Message
	for _, p := range c.payloads(models.EventNewMessage) {
		if m, ok := p.(models.Message); ok {
			out = append(out, m)
		}
	}
	return out
}

// notices returns the text of every system notification received.
func (c *fakeConn) notices() []string {
	var out []string
	for _, m := range c.messages() {
		if m.ItemType == models.ItemSystemNotification {
			out = append(out, m.Payload.Content)
		}
	}
	return out
}

// nonSystemMessages filters out system notifications.
func (c *fakeConn) nonSystemMessages() []models.Message {
	var out []models.Message
	for _, m := range c.messages() {
		if m.ItemType != models.ItemSystemNotification {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

func newTestTable() *Table {
	return NewTable(
		"table-1",
		"The Broken Drum",
		"fantasy",
		"Common",
		[]string{"Common", "Elvish", "Dwarvish"},
		nil,
		quietLogger(),
	)
}

// joinedCharacter joins a fresh connection and submits a character on it.
func joinedCharacter(t *Table, connID, name string, langs []string, isGM bool) (*fakeConn, string) {
	conn := newFakeConn(connID)
	t.Join(conn)
	t.SubmitCharacter(connID, CharacterSubmission{Name: name, Languages: langs, IsGM: isGM})
	id, _ := t.CharacterByConn(connID)
	conn.reset()
	return conn, id
}
