package game

import (
	"strings"

	"tabletalk/backend/internal/models"
)

// TargetType classifies how the first target of a whisper was addressed, so
// a GM accepting the invite knows which persona to answer under.
type TargetType string

const (
	TargetNPC    TargetType = "NPC"
	TargetGM     TargetType = "GM"
	TargetPlayer TargetType = "Player"
)

// InviteFraming records who the opening /w was originally aimed at.
type InviteFraming struct {
	TargetName string
	TargetType TargetType
}

// WhisperInvite is a pending invitation into a whisper channel, queued on
// the recipient until they /reply or the channel dissolves.
type WhisperInvite struct {
	FromID   string
	FromName string
	Framing  *InviteFraming
}

// Character is the live, in-memory state of one character at a table. The
// embedded persistent part is what snapshots keep; everything else resets
// when the process restarts.
type Character struct {
	models.PersistentCharacter

	// SpeakingAsNPC is the GM's current persona, empty when speaking as
	// themself. Never set for players.
	SpeakingAsNPC string

	// WhisperTargets is the full participant list of the character's current
	// whisper channel, including the character itself. Empty means public
	// chat.
	WhisperTargets []models.Participant

	// PendingInvites are whisper invitations not yet accepted, newest last.
	PendingInvites []WhisperInvite

	// HasSentInvite flips when the first message in a fresh channel goes
	// out, so invites fire exactly once per /w.
	HasSentInvite bool

	// NextFraming carries the original target of the latest /w until the
	// invite that uses it is sent.
	NextFraming *InviteFraming
}

// PersonaName is the name the character currently speaks under.
func (c *Character) PersonaName() string {
	if c.SpeakingAsNPC != "" {
		return c.SpeakingAsNPC
	}
	return c.CharacterName
}

// InWhisper reports whether the character is in a whisper channel. A
// channel containing only the character still counts; /all is how you leave.
func (c *Character) InWhisper() bool {
	return len(c.WhisperTargets) > 0
}

// Details builds the client-facing view sent on characterDetailsConfirmed.
// The whisper target list excludes the character itself.
func (c *Character) Details() models.CharacterDetails {
	targets := make([]models.Participant, 0, len(c.WhisperTargets))
	for _, p := range c.WhisperTargets {
		if p.ID == c.CharacterID {
			continue
		}
		targets = append(targets, models.Participant{ID: p.ID, Name: p.Name})
	}
	return models.CharacterDetails{
		PersistentCharacter: c.PersistentCharacter,
		HasPendingInvites:   len(c.PendingInvites) > 0,
		WhisperTargets:      targets,
		SpeakingAs:          c.SpeakingAsNPC,
	}
}

// dropInvitesFrom removes all pending invites originating from a sender.
func (c *Character) dropInvitesFrom(senderID string) {
	kept := c.PendingInvites[:0]
	for _, inv := range c.PendingInvites {
		if inv.FromID != senderID {
			kept = append(kept, inv)
		}
	}
	c.PendingInvites = kept
}

// hasInviteFrom reports whether a pending invite from the sender exists.
func (c *Character) hasInviteFrom(senderID string) bool {
	for _, inv := range c.PendingInvites {
		if inv.FromID == senderID {
			return true
		}
	}
	return false
}

// knowsLanguage is a case-sensitive membership test over the character's
// language list, matching how languages are granted.
func (c *Character) knowsLanguage(language string) bool {
	for _, l := range c.Languages {
		if l == language {
			return true
		}
	}
	return false
}

// knowsLanguageFold matches ignoring case, for GM roster edits where the
// typed spelling may differ.
func (c *Character) knowsLanguageFold(language string) bool {
	for _, l := range c.Languages {
		if strings.EqualFold(l, language) {
			return true
		}
	}
	return false
}
