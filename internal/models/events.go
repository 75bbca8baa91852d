package models

// Outbound websocket event names. These are the contract with clients.
const (
	EventCharacterDetailsConfirmed = "characterDetailsConfirmed"
	EventCharacterNameRejected     = "characterNameRejected"
	EventWhisperModeUpdate         = "whisperModeUpdate"
	EventPersonaUpdate             = "personaUpdate"
	EventChatHistory               = "chatHistory"
	EventNewMessage                = "newMessage"
	EventGMStatusUpdate            = "gmStatusUpdate"
	EventSessionReloading          = "sessionReloading"
	EventReconnectFailed           = "reconnectFailed"
	EventTableJoined               = "tableJoined"
	EventTableNotFound             = "tableNotFound"
	EventTableList                 = "tableList"
	EventTableCreated              = "tableCreated"
	EventTableNameTaken            = "tableNameTaken"
	EventTableNameInvalid          = "tableNameInvalid"
	EventLanguageListUpdate        = "languageListUpdate"
	EventThemeChanged              = "themeChanged"
	EventPlayerListUpdate          = "playerListUpdate"
	EventPlayerAvatarChanged       = "playerAvatarChanged"
	EventGameStateExport           = "gameStateExport"
	EventImportSucceeded           = "importGameStateSucceeded"
	EventImportFailed              = "importGameStateFailed"
)

// Inbound websocket event names.
const (
	EventRequestTableList       = "requestTableList"
	EventCreateTable            = "createTable"
	EventJoinTable              = "joinTable"
	EventLeaveTable             = "leaveTable"
	EventSubmitCharacterDetails = "submitCharacterDetails"
	EventReconnectCharacter     = "reconnectCharacter"
	EventSendMessage            = "sendMessage"
	EventExecuteCommand         = "executeCommand"
	EventImportGameState        = "importGameStateRequest"
)

// WhisperModeUpdate carries the viewer's current whisper target names,
// excluding the viewer itself. Empty means public chat.
type WhisperModeUpdate struct {
	Targets []string `json:"targets"`
}

// PersonaUpdate tells a GM client which persona it is speaking as. Empty
// SpeakingAs means the GM's own character.
type PersonaUpdate struct {
	SpeakingAs string `json:"speakingAs"`
}

// GMStatusUpdate announces whether a table currently has an active GM.
type GMStatusUpdate struct {
	IsGMActive bool `json:"isGMActive"`
}

// TableJoined is the snapshot a client receives after joining a table room.
type TableJoined struct {
	TableID            string   `json:"tableId"`
	TableName          string   `json:"tableName"`
	AvailableLanguages []string `json:"availableLanguages"`
	DefaultLanguage    string   `json:"defaultLanguage"`
	IsGMActive         bool     `json:"isGMActive"`
	Theme              string   `json:"theme"`
}

// LanguageListUpdate broadcasts the table's language roster.
type LanguageListUpdate struct {
	Languages       []string `json:"languages"`
	DefaultLanguage string   `json:"defaultLanguage"`
}

// ChatHistoryPayload wraps a tailored backlog for one viewer.
type ChatHistoryPayload struct {
	History []Message `json:"history"`
}

// PlayerListUpdate carries the roster for the GM management view.
type PlayerListUpdate struct {
	Players []Player `json:"players"`
}

// PlayerAvatarChanged announces a character's new avatar to the table.
type PlayerAvatarChanged struct {
	CharacterID  string `json:"characterId"`
	NewAvatarURL string `json:"newAvatarUrl"`
}

// ThemeChanged announces the table's new visual theme.
type ThemeChanged struct {
	Theme string `json:"theme"`
}
