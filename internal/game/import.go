package game

import (
	"tabletalk/backend/internal/models"
)

// ImportErrorPayload reports why an import was refused.
type ImportErrorPayload struct {
	Error string `json:"error"`
}

// ImportState replaces the table's persistent state with a previously
// exported snapshot. GM only. Every client is told the session is reloading
// and all connection-to-character bindings are severed; clients must rejoin
// and reclaim their characters.
func (t *Table) ImportState(connID string, snap models.TableSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn, inRoom := t.conns[connID]
	if !inRoom {
		return
	}
	_, char, identified := t.characterFor(connID)
	if !identified {
		conn.Send(models.EventImportFailed, ImportErrorPayload{Error: "Requesting character not found."})
		return
	}
	if !char.IsGM {
		conn.Send(models.EventImportFailed, ImportErrorPayload{Error: "GM only."})
		return
	}
	if snap.Characters == nil || snap.ChatHistory == nil {
		conn.Send(models.EventImportFailed, ImportErrorPayload{Error: "Invalid file format."})
		return
	}

	t.log.Info("game state import", "by", char.CharacterName)
	t.broadcast(models.EventSessionReloading, nil)

	t.history = snap.ChatHistory
	t.characters = make(map[string]*Character, len(snap.Characters))
	for _, pc := range snap.Characters {
		t.characters[pc.CharacterID] = &Character{PersistentCharacter: pc}
	}
	t.npcs = append([]string(nil), snap.NPCList...)
	if len(snap.AvailableLanguages) > 0 {
		t.availableLanguages = append([]string(nil), snap.AvailableLanguages...)
	} else {
		t.availableLanguages = []string{"Common"}
	}
	if snap.DefaultLanguage != "" {
		t.defaultLanguage = snap.DefaultLanguage
	} else {
		t.defaultLanguage = "Common"
	}
	t.sortLanguages()

	t.connToChar = make(map[string]string)
	t.charConns = make(map[string]map[string]Conn)
	t.activeGMConn = ""

	t.persistSync()
	conn.Send(models.EventImportSucceeded, nil)
}

// ApplyImport overwrites the table's persistent state without a requesting
// connection. Used by the admin import path right after table creation.
func (t *Table) ApplyImport(snap models.TableSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.history = snap.ChatHistory
	t.characters = make(map[string]*Character, len(snap.Characters))
	for _, pc := range snap.Characters {
		t.characters[pc.CharacterID] = &Character{PersistentCharacter: pc}
	}
	t.npcs = append([]string(nil), snap.NPCList...)
	if len(snap.AvailableLanguages) > 0 {
		t.availableLanguages = append([]string(nil), snap.AvailableLanguages...)
	}
	if snap.DefaultLanguage != "" {
		t.defaultLanguage = snap.DefaultLanguage
	}
	t.sortLanguages()
	t.touch()
	t.persistSync()
}
