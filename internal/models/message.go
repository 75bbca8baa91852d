package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemType discriminates the kinds of entries in a table's chat log.
type ItemType string

const (
	ItemChatMessage        ItemType = "CHAT_MESSAGE"
	ItemImageMessage       ItemType = "IMAGE_MESSAGE"
	ItemChatEmote          ItemType = "CHAT_EMOTE"
	ItemSystemNotification ItemType = "SYSTEM_NOTIFICATION"
	ItemDiceRoll           ItemType = "DICE_ROLL"
)

// Direction is a per-recipient hint describing how a whisper relates to the
// viewer. It is assigned at delivery time and never stored in history.
type Direction string

const (
	DirectionSent     Direction = "SENT"
	DirectionReceived Direction = "RECEIVED"
	DirectionObserved Direction = "OBSERVED"
)

// Sender is the snapshot of whoever produced a message, frozen at send time.
type Sender struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsGM      bool   `json:"isGM"`
	IsNPC     bool   `json:"isNPC"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// SystemSender is used for server-generated notifications.
var SystemSender = Sender{ID: "SYSTEM", Name: "System"}

// Payload carries the type-specific content of a message. A single struct
// covers every item type; unused fields are omitted on the wire.
type Payload struct {
	// Chat, emote and system notification text.
	Content string `json:"content,omitempty"`
	// Chat only: in-world language the text was spoken in.
	Language string `json:"language,omitempty"`
	// Chat only, assigned per recipient: the viewer does not understand
	// Language. Display hint only; Content is still delivered in full.
	IsObfuscated bool `json:"isObfuscated,omitempty"`
	// System notifications: render as an error.
	IsError bool `json:"isError,omitempty"`

	// Image messages.
	ImageURL string `json:"imageUrl,omitempty"`
	Caption  string `json:"caption,omitempty"`
	MimeType string `json:"mimeType,omitempty"`

	// Dice rolls.
	Description string `json:"description,omitempty"`
	Details     string `json:"details,omitempty"`
	Total       int    `json:"total,omitempty"`

	// Whispers: the participant identities the message was addressed to.
	To []Participant `json:"to,omitempty"`
	// Assigned per recipient for observing GMs: the persona name the GM was
	// addressed as in this channel, when it differs from their own name.
	AddressedAs string `json:"originalRecipientNameForGMView,omitempty"`
}

// Message is one immutable entry in a table's chat log. Direction and the
// per-recipient payload fields are filled in on tailored copies only.
type Message struct {
	ItemID    string    `json:"itemId"`
	Timestamp time.Time `json:"timestamp"`
	ItemType  ItemType  `json:"itemType"`
	Sender    Sender    `json:"sender"`
	Payload   Payload   `json:"payload"`
	IsWhisper bool      `json:"isWhisper,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	// Character ids the message is addressed to. Used for routing; GMs
	// receive whispers they are not listed in as observers.
	SentTo []string `json:"sentTo,omitempty"`
}

// NewMessage stamps a fresh message with an id and timestamp.
func NewMessage(itemType ItemType, sender Sender, payload Payload) Message {
	return Message{
		ItemID:    uuid.NewString(),
		Timestamp: time.Now().UTC(),
		ItemType:  itemType,
		Sender:    sender,
		Payload:   payload,
	}
}

// SystemNotification builds a transient notice from the server.
func SystemNotification(content string, isError bool) Message {
	return NewMessage(ItemSystemNotification, SystemSender, Payload{
		Content: content,
		IsError: isError,
	})
}
