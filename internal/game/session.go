package game

import (
	"fmt"
	"sort"
	"strings"

	"tabletalk/backend/internal/models"

	"github.com/google/uuid"
)

// CharacterSubmission is what a client sends to create or reclaim a
// character. The avatar is uploaded separately over HTTP; AvatarURL carries
// the resulting path when one was provided.
type CharacterSubmission struct {
	Name      string
	Languages []string
	IsGM      bool
	AvatarURL string
}

// SubmitCharacter creates a new character for a connection, or hands an
// existing offline character of the same name back to it. A name held by an
// online character is rejected. Name matching is case-insensitive.
func (t *Table) SubmitCharacter(connID string, sub CharacterSubmission) {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn, inRoom := t.conns[connID]
	if !inRoom {
		return
	}

	name := strings.TrimSpace(sub.Name)
	if name == "" {
		t.notify(conn, "Invalid submission. Provide name.", true)
		conn.Send(models.EventCharacterNameRejected, nil)
		return
	}

	if existingID, existing, found := t.characterNamed(name); found {
		if len(t.charConns[existingID]) > 0 {
			t.log.Warn("character name in use and online", "name", name)
			t.notify(conn, fmt.Sprintf("The character %q is already in this session. Please choose another name or ask the other player to exit.", name), true)
			conn.Send(models.EventCharacterNameRejected, nil)
			return
		}

		// Offline character of the same name: a legitimate rejoin.
		t.log.Info("offline character rejoining", "name", existing.CharacterName)
		t.bindConnection(conn, existingID)
		existing.NextFraming = nil
		if existing.IsGM {
			t.claimGMSeat(connID)
		}
		t.sendDetails(conn, existing)
		t.sendHistory(conn, existingID)
		t.persist()
		return
	}

	langs := make([]string, 0, len(sub.Languages)+1)
	for _, l := range sub.Languages {
		if l != "" {
			langs = append(langs, l)
		}
	}
	hasDefault := false
	for _, l := range langs {
		if l == t.defaultLanguage {
			hasDefault = true
			break
		}
	}
	if !hasDefault {
		langs = append(langs, t.defaultLanguage)
	}
	sort.Strings(langs)

	char := &Character{
		PersistentCharacter: models.PersistentCharacter{
			CharacterID:   uuid.NewString(),
			CharacterName: name,
			Languages:     langs,
			AvatarURL:     sub.AvatarURL,
		},
	}

	// The GM seat is exclusive. A second GM claim joins as a player.
	if sub.IsGM {
		if t.activeGMConn == "" {
			char.IsGM = true
			char.Languages = append([]string(nil), t.availableLanguages...)
			sort.Strings(char.Languages)
		} else {
			t.notify(conn, "GM active. Joined as player.", true)
		}
	}

	t.characters[char.CharacterID] = char
	t.bindConnection(conn, char.CharacterID)
	if char.IsGM {
		t.claimGMSeat(connID)
	}

	t.log.Info("character created", "name", name, "is_gm", char.IsGM)
	t.sendDetails(conn, char)
	t.sendHistory(conn, char.CharacterID)
	t.persist()
}

// Reconnect hands a character back to a returning connection, by character
// id. Any other connection still bound to the character is told the session
// moved and closed; a duplicate reconnect from the same connection never
// closes itself.
func (t *Table) Reconnect(connID, characterID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn, inRoom := t.conns[connID]
	if !inRoom {
		return
	}
	char, ok := t.characters[characterID]
	if !ok {
		t.log.Warn("reconnect failed, character unknown", "character_id", characterID)
		conn.Send(models.EventReconnectFailed, nil)
		return
	}

	for oldID, oldConn := range t.charConns[characterID] {
		if oldID == connID {
			continue
		}
		oldConn.Send(models.EventSessionReloading, nil)
		oldConn.Close()
		delete(t.conns, oldID)
		delete(t.connToChar, oldID)
	}

	t.log.Info("character reconnected", "name", char.CharacterName)
	t.bindConnection(conn, characterID)
	char.NextFraming = nil
	if char.IsGM {
		t.claimGMSeat(connID)
	}

	t.sendDetails(conn, char)
	t.sendHistory(conn, characterID)
}

// SetAvatar records a character's new avatar URL and announces it to the
// room. The file itself was already written by the upload endpoint.
func (t *Table) SetAvatar(characterID, avatarURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	char, ok := t.characters[characterID]
	if !ok {
		return
	}
	char.AvatarURL = avatarURL
	t.persist()

	t.sendDetailsAll(characterID, char)
	t.broadcast(models.EventPlayerAvatarChanged, models.PlayerAvatarChanged{
		CharacterID:  characterID,
		NewAvatarURL: avatarURL,
	})
}

// AvatarURLOf returns a character's current avatar URL.
func (t *Table) AvatarURLOf(characterID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	char, ok := t.characters[characterID]
	if !ok {
		return "", false
	}
	return char.AvatarURL, true
}

// CharacterByConn resolves the character id bound to a connection.
func (t *Table) CharacterByConn(connID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.connToChar[connID]
	return id, ok
}

// IsGMCharacter reports whether a character id belongs to the table's GM.
func (t *Table) IsGMCharacter(characterID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.characters[characterID]
	return ok && c.IsGM
}
