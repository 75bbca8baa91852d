package game

import "tabletalk/backend/internal/models"

// Join puts a connection in the table room and sends it the room snapshot.
// The connection has no character yet; that comes with submitCharacterDetails
// or reconnectCharacter.
func (t *Table) Join(conn Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.conns[conn.ID()] = conn
	conn.Send(models.EventTableJoined, models.TableJoined{
		TableID:            t.id,
		TableName:          t.name,
		AvailableLanguages: append([]string(nil), t.availableLanguages...),
		DefaultLanguage:    t.defaultLanguage,
		IsGMActive:         t.activeGMConn != "",
		Theme:              t.theme,
	})
}

// Leave detaches a connection from the table, whether it leaves voluntarily
// or drops. The character stays on the table and can be reclaimed later; if
// its last connection just left and it held the GM seat, the seat empties
// and the room is told.
func (t *Table) Leave(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	charID, c, identified := t.characterFor(connID)
	if identified {
		if conns, ok := t.charConns[charID]; ok {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(t.charConns, charID)
				t.log.Info("character fully offline", "character", c.CharacterName)
				if c.IsGM && connID == t.activeGMConn {
					t.activeGMConn = ""
					t.broadcastGMStatus()
				}
			}
		}
	}
	delete(t.connToChar, connID)
	delete(t.conns, connID)
}

// HasConn reports whether a connection is currently in the room.
func (t *Table) HasConn(connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.conns[connID]
	return ok
}

// bindConnection links a connection to a character, replacing any previous
// binding set for that character. Lock must be held.
func (t *Table) bindConnection(conn Conn, charID string) {
	t.connToChar[conn.ID()] = charID
	t.charConns[charID] = map[string]Conn{conn.ID(): conn}
}

// claimGMSeat marks a connection as the active GM and announces it.
// Lock must be held.
func (t *Table) claimGMSeat(connID string) {
	t.activeGMConn = connID
	t.broadcastGMStatus()
}
