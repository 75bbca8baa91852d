package models

import "time"

// SaveVersion is the current snapshot format version. Bump when the persisted
// shape changes incompatibly.
const SaveVersion = 3

// TableSnapshot is the durable, exportable state of one table. It is the
// value written to the store on every mutation and the payload of the /save
// export and admin import. Connection bindings and whisper state are
// deliberately absent.
type TableSnapshot struct {
	SaveVersion        int                   `json:"saveVersion"`
	ID                 string                `json:"id"`
	Name               string                `json:"name"`
	Theme              string                `json:"theme"`
	SavedAt            time.Time             `json:"savedAt"`
	ChatHistory        []Message             `json:"chatHistory"`
	Characters         []PersistentCharacter `json:"charactersData"`
	AvailableLanguages []string              `json:"availableLanguages"`
	DefaultLanguage    string                `json:"defaultLanguage"`
	NPCList            []string              `json:"npcList"`
}

// TableInfo is the lobby listing entry for one table.
type TableInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PlayerCount  int       `json:"playerCount"`
	LastActivity time.Time `json:"lastActivity"`
	Theme        string    `json:"theme,omitempty"`
}
