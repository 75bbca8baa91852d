package models

import "strings"

// Participant is one member of a whisper channel as rendered to clients: a
// character id plus the persona name it was addressed under. A GM invited as
// an NPC and the same GM invited as themself are distinct participants.
type Participant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Identity returns the comparable identity key for channel membership.
func (p Participant) Identity() Identity {
	return IdentityOf(p.ID, p.Name)
}

// Identity is the unit of whisper-channel membership: (character id, persona
// name). Name comparison is case-insensitive, so the persona name is folded
// on construction. Always build through IdentityOf.
type Identity struct {
	CharacterID string
	PersonaName string
}

// IdentityOf builds an Identity with the persona name folded for comparison.
func IdentityOf(characterID, personaName string) Identity {
	return Identity{CharacterID: characterID, PersonaName: strings.ToLower(personaName)}
}
