package game

import (
	"fmt"
	"strings"

	"tabletalk/backend/internal/models"
)

// cmdWhisper enters whisper mode with a comma-separated list of targets.
// Targets may be player names, "gm", or NPC names; the latter two resolve to
// the active GM under the addressed persona. Resolution is best effort:
// invalid names are reported and the rest of the list still takes effect.
// Lock must be held.
func (t *Table) cmdWhisper(conn Conn, charID string, args []string) {
	sender, ok := t.characters[charID]
	if !ok || sender.CharacterName == "" {
		return
	}
	if len(args) == 0 {
		t.notify(conn, "Usage: /w <target1>[, <target2>, ..., gm, NPCName]", true)
		return
	}

	var inputs []string
	for _, raw := range strings.Split(strings.Join(args, " "), ",") {
		if name := strings.TrimSpace(raw); name != "" {
			inputs = append(inputs, name)
		}
	}

	gmCharID, gmData := t.activeGMCharacter()

	var resolved []models.Participant
	var invalid []string
	var framing *InviteFraming

	for _, input := range inputs {
		lower := strings.ToLower(input)

		if lower == strings.ToLower(sender.CharacterName) {
			// Self only counts when targeted alone: a private note channel.
			if len(inputs) == 1 {
				resolved = append(resolved, models.Participant{ID: charID, Name: sender.CharacterName, AvatarURL: sender.AvatarURL})
			}
			continue
		}

		if lower == "gm" {
			if gmData != nil {
				resolved = append(resolved, models.Participant{ID: gmCharID, Name: gmData.CharacterName, AvatarURL: gmData.AvatarURL})
				if framing == nil {
					framing = &InviteFraming{TargetName: gmData.CharacterName, TargetType: TargetGM}
				}
			} else {
				invalid = append(invalid, input+" (GM not active)")
			}
			continue
		}

		if npcName, isNPC := t.npcNamed(input); isNPC {
			if gmData != nil {
				resolved = append(resolved, models.Participant{ID: gmCharID, Name: npcName})
				if framing == nil {
					framing = &InviteFraming{TargetName: npcName, TargetType: TargetNPC}
				}
			} else {
				invalid = append(invalid, input+" (NPC, but no GM active)")
			}
			continue
		}

		if id, c, found := t.characterNamed(input); found {
			resolved = append(resolved, models.Participant{ID: id, Name: c.CharacterName, AvatarURL: c.AvatarURL})
			if framing == nil && id == gmCharID {
				framing = &InviteFraming{TargetName: c.CharacterName, TargetType: TargetGM}
			}
			continue
		}

		invalid = append(invalid, input)
	}

	if len(invalid) > 0 {
		t.notify(conn, fmt.Sprintf("Could not find or target: %s.", strings.Join(invalid, ", ")), true)
	}

	// Dedupe by identity: the same character under two persona names counts
	// as two participants, the same pairing twice does not.
	unique := resolved[:0]
	seen := make(map[models.Identity]bool, len(resolved))
	for _, p := range resolved {
		if !seen[p.Identity()] {
			unique = append(unique, p)
			seen[p.Identity()] = true
		}
	}

	if len(unique) == 0 {
		selfOnly := len(inputs) == 1 && strings.ToLower(inputs[0]) == strings.ToLower(sender.CharacterName)
		if !selfOnly {
			t.notify(conn, "You must specify at least one valid character, GM, or NPC to whisper to.", true)
			return
		}
	}

	// The sender joins under their current persona, always first.
	senderPersona := sender.PersonaName()
	participants := []models.Participant{{ID: charID, Name: senderPersona, AvatarURL: sender.AvatarURL}}
	keys := map[models.Identity]bool{models.IdentityOf(charID, senderPersona): true}
	for _, p := range unique {
		if !keys[p.Identity()] {
			participants = append(participants, p)
			keys[p.Identity()] = true
		}
	}

	sender.WhisperTargets = participants
	sender.HasSentInvite = false
	sender.NextFraming = framing

	var uiNames []string
	for _, p := range participants {
		if p.ID == charID && strings.EqualFold(p.Name, senderPersona) {
			continue
		}
		uiNames = append(uiNames, p.Name)
	}

	conn.Send(models.EventWhisperModeUpdate, models.WhisperModeUpdate{Targets: uiNames})

	switch {
	case len(uiNames) > 0:
		t.notify(conn, fmt.Sprintf("You are now in whisper mode with %s. Type a message to send it privately.", strings.Join(uiNames, " & ")), false)
	case len(participants) == 1:
		t.notify(conn, fmt.Sprintf("You are now in whisper mode with yourself (as %s). Type a message to send it privately.", senderPersona), false)
	default:
		t.notify(conn, "Entered whisper mode. No other valid recipients specified or found.", true)
	}
}

// cmdReply accepts the most recent pending whisper invitation. If the
// channel has dissolved since the invite was sent, the invite and any other
// stale ones from the same sender are purged instead. Lock must be held.
func (t *Table) cmdReply(conn Conn, charID string, _ []string) {
	character, ok := t.characters[charID]
	if !ok {
		return
	}
	if len(character.PendingInvites) == 0 {
		t.notify(conn, "You have no pending whisper invitations to reply to.", true)
		return
	}

	invite := character.PendingInvites[len(character.PendingInvites)-1]
	character.PendingInvites = character.PendingInvites[:len(character.PendingInvites)-1]

	inviter, inviterExists := t.characters[invite.FromID]
	if !inviterExists || len(inviter.WhisperTargets) == 0 {
		t.notify(conn, "This whisper invitation has expired because the sender has left the private chat.", true)
		character.dropInvitesFrom(invite.FromID)
		t.sendDetails(conn, character)
		return
	}

	// A GM invited as an NPC answers under that persona; invited as the GM
	// while wearing one, they take it off.
	replierPersona := character.CharacterName
	if character.IsGM && invite.Framing != nil {
		switch {
		case invite.Framing.TargetType == TargetNPC && invite.Framing.TargetName != "":
			character.SpeakingAsNPC = invite.Framing.TargetName
			replierPersona = invite.Framing.TargetName
			t.addNPC(invite.Framing.TargetName)
			conn.Send(models.EventPersonaUpdate, models.PersonaUpdate{SpeakingAs: invite.Framing.TargetName})
			t.notify(conn, fmt.Sprintf("You will reply as %s.", invite.Framing.TargetName), false)
		case invite.Framing.TargetType == TargetGM && character.SpeakingAsNPC != "":
			character.SpeakingAsNPC = ""
			conn.Send(models.EventPersonaUpdate, models.PersonaUpdate{})
			t.notify(conn, fmt.Sprintf("You will reply as %s (GM).", character.CharacterName), false)
		}
	}

	replierAvatar := character.AvatarURL
	if character.IsGM && character.SpeakingAsNPC != "" {
		replierAvatar = ""
	}
	replierAsTarget := models.Participant{ID: charID, Name: replierPersona, AvatarURL: replierAvatar}

	// The inviter's participant list is the channel's source of truth.
	channel := append([]models.Participant(nil), inviter.WhisperTargets...)

	character.WhisperTargets = append(append([]models.Participant(nil), channel...), replierAsTarget)
	character.HasSentInvite = true

	var uiNames []string
	for _, p := range channel {
		uiNames = append(uiNames, p.Name)
	}
	conn.Send(models.EventWhisperModeUpdate, models.WhisperModeUpdate{Targets: uiNames})
	t.notify(conn, fmt.Sprintf("You have joined the whisper with: %s.", strings.Join(uiNames, ", ")), false)

	joinNotice := models.SystemNotification(fmt.Sprintf("* %s has joined the whisper. *", replierPersona), false)

	for _, participant := range channel {
		member, ok := t.characters[participant.ID]
		if !ok {
			continue
		}
		// A listed target that never accepted its invite has no channel of
		// its own yet; leave its state untouched until it replies.
		if participant.ID != charID && !member.InWhisper() {
			continue
		}
		present := false
		for _, p := range member.WhisperTargets {
			if p.ID == replierAsTarget.ID && p.Name == replierAsTarget.Name {
				present = true
				break
			}
		}
		if !present {
			member.WhisperTargets = append(member.WhisperTargets, replierAsTarget)
		}

		var theirTargets []string
		for _, p := range member.WhisperTargets {
			if p.ID != participant.ID {
				theirTargets = append(theirTargets, p.Name)
			}
		}
		t.sendToCharacter(participant.ID, models.EventNewMessage, joinNotice)
		t.sendToCharacter(participant.ID, models.EventWhisperModeUpdate, models.WhisperModeUpdate{Targets: theirTargets})
	}

	t.sendDetails(conn, character)
}

// cmdAll returns the character to public chat, notifying the remaining
// channel members and silently withdrawing any invites that were never
// accepted. A two-person channel collapses for the other side too.
// Lock must be held.
func (t *Table) cmdAll(conn Conn, charID string, _ []string) {
	leaver, ok := t.characters[charID]
	if !ok {
		return
	}

	alone := len(leaver.WhisperTargets) == 1 && leaver.WhisperTargets[0].ID == charID
	if len(leaver.WhisperTargets) == 0 || alone {
		t.notify(conn, "You are already in public chat or alone in a whisper.", true)
		leaver.WhisperTargets = nil
		conn.Send(models.EventWhisperModeUpdate, models.WhisperModeUpdate{Targets: []string{}})
		return
	}

	channel := append([]models.Participant(nil), leaver.WhisperTargets...)
	leaverName := leaver.PersonaName()

	var remaining []models.Participant
	for _, p := range channel {
		if p.ID != charID {
			remaining = append(remaining, p)
		}
	}

	// Members still holding an unaccepted invite never joined; they do not
	// count toward the surviving channel size.
	joinedCount := 0
	for _, participant := range remaining {
		if member, ok := t.characters[participant.ID]; ok && !member.hasInviteFrom(charID) {
			joinedCount++
		}
	}

	notified := make(map[string]bool)
	for _, participant := range remaining {
		if notified[participant.ID] {
			continue
		}
		notified[participant.ID] = true

		member, ok := t.characters[participant.ID]
		if !ok {
			continue
		}

		if member.hasInviteFrom(charID) {
			// Never joined: withdraw the invite without fanfare.
			member.dropInvitesFrom(charID)
			t.sendDetailsAll(participant.ID, member)
			t.notifyCharacter(participant.ID, fmt.Sprintf("The whisper invitation from %s was cancelled.", leaverName), false)
			continue
		}

		// Already in the channel: shrink it, or collapse it entirely.
		nowAlone := joinedCount <= 1
		if nowAlone {
			member.WhisperTargets = nil
		} else {
			member.WhisperTargets = append([]models.Participant(nil), remaining...)
		}

		t.sendToCharacter(participant.ID, models.EventNewMessage,
			models.SystemNotification(fmt.Sprintf("* %s has left the whisper. *", leaverName), false))

		if nowAlone {
			t.sendToCharacter(participant.ID, models.EventWhisperModeUpdate, models.WhisperModeUpdate{Targets: []string{}})
			t.notifyCharacter(participant.ID, "Everyone has left the whisper. You have returned to public chat.", false)
		} else {
			var names []string
			for _, p := range member.WhisperTargets {
				if p.ID != participant.ID {
					names = append(names, p.Name)
				}
			}
			t.sendToCharacter(participant.ID, models.EventWhisperModeUpdate, models.WhisperModeUpdate{Targets: names})
		}
	}

	leaver.WhisperTargets = nil
	leaver.HasSentInvite = false
	t.sendToCharacter(charID, models.EventWhisperModeUpdate, models.WhisperModeUpdate{Targets: []string{}})
	t.notifyCharacter(charID, "You have returned to public chat.", false)
}
