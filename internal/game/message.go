package game

import (
	"fmt"

	"tabletalk/backend/internal/models"
)

// SendChat handles a plain chat message from a connection. Whisper routing
// is decided entirely by the sender's server-side whisper state; the client
// only supplies text and a language.
func (t *Table) SendChat(connID, content, language string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	charID, sender, ok := t.characterFor(connID)
	if !ok || content == "" {
		return
	}

	msg := models.NewMessage(models.ItemChatMessage, t.senderFor(charID), models.Payload{
		Content:  content,
		Language: language,
	})
	t.addressFromWhisperState(&msg, charID, sender)

	if msg.IsWhisper && !sender.HasSentInvite {
		t.sendFirstInvite(charID, sender)
	}

	t.distribute(msg, t.understoodByFor(msg.SentTo, language))
}

// ShareImage posts an already-uploaded image into the chat, following the
// sender's current whisper state like any other message.
func (t *Table) ShareImage(charID, imageURL, caption, mimeType string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sender, ok := t.characters[charID]
	if !ok {
		return
	}

	msg := models.NewMessage(models.ItemImageMessage, t.senderFor(charID), models.Payload{
		ImageURL: imageURL,
		Caption:  caption,
		MimeType: mimeType,
	})
	t.addressFromWhisperState(&msg, charID, sender)

	if msg.IsWhisper && !sender.HasSentInvite {
		t.sendFirstInvite(charID, sender)
	}

	t.distribute(msg, nil)
}

// addressFromWhisperState fills SentTo, IsWhisper and the payload's To list
// from the sender's whisper channel, or addresses the whole table.
func (t *Table) addressFromWhisperState(msg *models.Message, charID string, sender *Character) {
	if sender.InWhisper() {
		msg.IsWhisper = true
		msg.Payload.To = append([]models.Participant(nil), sender.WhisperTargets...)
		seen := make(map[string]bool, len(sender.WhisperTargets))
		for _, p := range sender.WhisperTargets {
			if !seen[p.ID] {
				msg.SentTo = append(msg.SentTo, p.ID)
				seen[p.ID] = true
			}
		}
		return
	}
	for id := range t.characters {
		msg.SentTo = append(msg.SentTo, id)
	}
}

// sendFirstInvite queues a whisper invitation on every other participant of
// the sender's fresh channel. Fires once per /w: the first message in the
// channel carries the invite, later ones do not. Lock must be held.
func (t *Table) sendFirstInvite(charID string, sender *Character) {
	sender.HasSentInvite = true

	fromName := t.senderFor(charID).Name
	invite := WhisperInvite{
		FromID:   charID,
		FromName: fromName,
		Framing:  sender.NextFraming,
	}
	sender.NextFraming = nil

	delivered := make(map[string]bool)
	for _, target := range sender.WhisperTargets {
		if target.ID == charID || delivered[target.ID] {
			continue
		}
		delivered[target.ID] = true

		recipient, ok := t.characters[target.ID]
		if !ok {
			continue
		}
		recipient.PendingInvites = append(recipient.PendingInvites, invite)

		notice := fmt.Sprintf("Whisper invite from %s. Use /reply or /r to join.", fromName)
		if recipient.IsGM && invite.Framing != nil && invite.Framing.TargetType == TargetNPC &&
			invite.Framing.TargetName != "" && target.Name != recipient.CharacterName {
			notice = fmt.Sprintf("%s invites you (as %s) to whisper. Use /reply or /r to join.", fromName, invite.Framing.TargetName)
		}
		t.notifyCharacter(target.ID, notice, false)
		t.sendDetailsAll(target.ID, recipient)
	}
}
