package models

// PersistentCharacter is the part of a character that survives restarts and
// is written into table snapshots. Transient whisper state never leaves the
// process.
type PersistentCharacter struct {
	CharacterID   string   `json:"characterId"`
	CharacterName string   `json:"characterName"`
	Languages     []string `json:"languages"`
	IsGM          bool     `json:"isGM"`
	AvatarURL     string   `json:"avatarUrl,omitempty"`
}

// CharacterDetails is the client-facing view of a character's current state,
// sent on the characterDetailsConfirmed event. WhisperTargets excludes the
// character itself.
type CharacterDetails struct {
	PersistentCharacter
	HasPendingInvites bool          `json:"hasPendingInvites"`
	WhisperTargets    []Participant `json:"whisperTargets"`
	SpeakingAs        string        `json:"speakingAs,omitempty"`
}

// Player is the roster entry returned to the GM management view.
type Player struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Languages []string `json:"languages"`
	IsGM      bool     `json:"isGM"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
}
