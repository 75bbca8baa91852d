package game

import "tabletalk/backend/internal/models"

// distribute records a message in history, persists, and delivers a tailored
// copy to every direct recipient plus any GM observers. understoodBy lists
// the character ids that comprehend the message's language; nil means
// everyone does. Lock must be held.
func (t *Table) distribute(msg models.Message, understoodBy []string) {
	if msg.ItemType != models.ItemSystemNotification {
		t.history = append(t.history, msg)
		t.touch()
		t.persist()
	}

	viewers := make([]string, 0, len(msg.SentTo)+1)
	seen := make(map[string]bool, len(msg.SentTo)+1)
	for _, id := range msg.SentTo {
		if !seen[id] {
			viewers = append(viewers, id)
			seen[id] = true
		}
	}
	// GMs see every whisper they were not addressed in, as observers.
	for id, c := range t.characters {
		if c.IsGM && !seen[id] {
			viewers = append(viewers, id)
			seen[id] = true
		}
	}

	for _, viewerID := range viewers {
		tailored, ok := t.prepareForViewer(msg, viewerID, understoodBy)
		if !ok {
			continue
		}
		t.sendToCharacter(viewerID, models.EventNewMessage, tailored)
	}
}

// prepareForViewer produces the per-viewer copy of a message: direction,
// the GM addressed-as hint, and the language obfuscation flag. Returns
// false when the viewer may not see the message at all.
func (t *Table) prepareForViewer(msg models.Message, viewerID string, understoodBy []string) (models.Message, bool) {
	viewer, ok := t.characters[viewerID]
	if !ok {
		return models.Message{}, false
	}

	isDirect := false
	for _, id := range msg.SentTo {
		if id == viewerID {
			isDirect = true
			break
		}
	}
	isSender := viewerID == msg.Sender.ID

	if msg.IsWhisper {
		if !isDirect {
			if !viewer.IsGM {
				return models.Message{}, false
			}
			msg.Direction = models.DirectionObserved
		} else if isSender {
			msg.Direction = models.DirectionSent
		} else {
			msg.Direction = models.DirectionReceived
		}
	} else if !isDirect {
		return models.Message{}, false
	}

	if msg.IsWhisper && viewer.IsGM && msg.Direction != models.DirectionSent {
		// Show the GM which persona they were addressed as, when it was not
		// their own name.
		for _, p := range msg.Payload.To {
			if p.ID == viewerID && p.Name != viewer.CharacterName {
				msg.Payload.AddressedAs = p.Name
				break
			}
		}
	}

	if msg.ItemType == models.ItemChatMessage {
		understands := understoodBy == nil
		for _, id := range understoodBy {
			if id == viewerID {
				understands = true
				break
			}
		}
		msg.Payload.IsObfuscated = !understands
	}

	return msg, true
}

// understoodByFor computes which of the recipients comprehend a chat
// message's language. All GMs are always included, recipients or not.
// Lock must be held.
func (t *Table) understoodByFor(sentTo []string, language string) []string {
	ids := make([]string, 0, len(sentTo))
	seen := make(map[string]bool, len(sentTo))
	for _, id := range sentTo {
		c, ok := t.characters[id]
		if !ok {
			continue
		}
		if language == t.defaultLanguage || c.knowsLanguage(language) {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	for id, c := range t.characters {
		if c.IsGM && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	return ids
}

// SendHistory replays the chat log to one connection, tailored to the
// character's vantage point and language knowledge as they stand now.
func (t *Table) SendHistory(conn Conn, charID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendHistory(conn, charID)
}

func (t *Table) sendHistory(conn Conn, charID string) {
	if _, ok := t.characters[charID]; !ok {
		return
	}
	tailored := make([]models.Message, 0, len(t.history))
	for _, msg := range t.history {
		var understoodBy []string
		if msg.ItemType == models.ItemChatMessage {
			understoodBy = t.understoodByFor(msg.SentTo, msg.Payload.Language)
		}
		prepared, ok := t.prepareForViewer(msg, charID, understoodBy)
		if !ok {
			continue
		}
		tailored = append(tailored, prepared)
	}
	conn.Send(models.EventChatHistory, models.ChatHistoryPayload{History: tailored})
}
