package game

import (
	"testing"

	"tabletalk/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicChatReachesEveryone(t *testing.T) {
	tbl := newTestTable()
	alice, _ := joinedCharacter(tbl, "c1", "Alice", nil, false)
	bob, _ := joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.SendChat("c1", "hello all", "Common")

	require.Len(t, alice.nonSystemMessages(), 1)
	require.Len(t, bob.nonSystemMessages(), 1)
	msg := bob.nonSystemMessages()[0]
	assert.Equal(t, models.ItemChatMessage, msg.ItemType)
	assert.Equal(t, "hello all", msg.Payload.Content)
	assert.Equal(t, "Alice", msg.Sender.Name)
	assert.False(t, msg.IsWhisper)
	assert.Empty(t, msg.Direction)
}

func TestWhisperDirections(t *testing.T) {
	tbl := newTestTable()
	alice, _ := joinedCharacter(tbl, "c1", "Alice", nil, false)
	bob, _ := joinedCharacter(tbl, "c2", "Bob", nil, false)
	carol, _ := joinedCharacter(tbl, "c3", "Carol", nil, false)
	gm, _ := joinedCharacter(tbl, "g1", "Gandalf", nil, true)

	tbl.ExecuteCommand("c1", "w", []string{"Bob"})
	alice.reset()
	bob.reset()
	gm.reset()
	tbl.SendChat("c1", "secret", "Common")

	require.Len(t, alice.nonSystemMessages(), 1)
	assert.Equal(t, models.DirectionSent, alice.nonSystemMessages()[0].Direction)

	require.Len(t, bob.nonSystemMessages(), 1)
	assert.Equal(t, models.DirectionReceived, bob.nonSystemMessages()[0].Direction)

	// Carol is not a participant and not a GM.
	assert.Empty(t, carol.nonSystemMessages())

	// The GM observes whispers they are not addressed in.
	require.Len(t, gm.nonSystemMessages(), 1)
	assert.Equal(t, models.DirectionObserved, gm.nonSystemMessages()[0].Direction)
}

func TestGMAddressedAsPersona(t *testing.T) {
	tbl := newTestTable()
	gm, _ := joinedCharacter(tbl, "g1", "Gandalf", nil, true)
	joinedCharacter(tbl, "c1", "Alice", nil, false)
	tbl.ExecuteCommand("g1", "as", []string{"Barkeep"})
	tbl.ExecuteCommand("g1", "gm", nil)

	tbl.ExecuteCommand("c1", "w", []string{"Barkeep"})
	gm.reset()
	tbl.SendChat("c1", "another round?", "Common")

	require.Len(t, gm.nonSystemMessages(), 1)
	msg := gm.nonSystemMessages()[0]
	assert.Equal(t, models.DirectionReceived, msg.Direction)
	assert.Equal(t, "Barkeep", msg.Payload.AddressedAs)
}

func TestGMAddressedByOwnNameNoHint(t *testing.T) {
	tbl := newTestTable()
	gm, _ := joinedCharacter(tbl, "g1", "Gandalf", nil, true)
	joinedCharacter(tbl, "c1", "Alice", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"Gandalf"})
	gm.reset()
	tbl.SendChat("c1", "a word?", "Common")

	require.Len(t, gm.nonSystemMessages(), 1)
	assert.Empty(t, gm.nonSystemMessages()[0].Payload.AddressedAs)
}

func TestObfuscationForUnknownLanguage(t *testing.T) {
	tbl := newTestTable()
	alice, _ := joinedCharacter(tbl, "c1", "Alice", []string{"Elvish"}, false)
	bob, _ := joinedCharacter(tbl, "c2", "Bob", nil, false)
	gm, _ := joinedCharacter(tbl, "g1", "Gandalf", nil, true)

	tbl.SendChat("c1", "mellon", "Elvish")

	require.Len(t, alice.nonSystemMessages(), 1)
	assert.False(t, alice.nonSystemMessages()[0].Payload.IsObfuscated)

	// Bob does not know Elvish. The text still arrives in full.
	require.Len(t, bob.nonSystemMessages(), 1)
	assert.True(t, bob.nonSystemMessages()[0].Payload.IsObfuscated)
	assert.Equal(t, "mellon", bob.nonSystemMessages()[0].Payload.Content)

	// GMs understand everything.
	require.Len(t, gm.nonSystemMessages(), 1)
	assert.False(t, gm.nonSystemMessages()[0].Payload.IsObfuscated)
}

func TestWhisperInUnknownLanguageObfuscatedForRecipients(t *testing.T) {
	tbl := newTestTable()
	joinedCharacter(tbl, "c1", "Anna", []string{"Elvish"}, false)
	bob, _ := joinedCharacter(tbl, "c2", "Bob", nil, false)
	carol, _ := joinedCharacter(tbl, "c3", "Carol", nil, false)
	gm, _ := joinedCharacter(tbl, "g1", "Gandalf", nil, true)

	tbl.ExecuteCommand("c1", "w", []string{"Bob,", "Carol"})
	bob.reset()
	carol.reset()
	gm.reset()
	tbl.SendChat("c1", "help", "Elvish")

	for _, recipient := range []*fakeConn{bob, carol} {
		require.Len(t, recipient.nonSystemMessages(), 1)
		msg := recipient.nonSystemMessages()[0]
		assert.Equal(t, models.DirectionReceived, msg.Direction)
		assert.True(t, msg.Payload.IsObfuscated)
		assert.Equal(t, "help", msg.Payload.Content)
	}

	require.Len(t, gm.nonSystemMessages(), 1)
	observed := gm.nonSystemMessages()[0]
	assert.Equal(t, models.DirectionObserved, observed.Direction)
	assert.False(t, observed.Payload.IsObfuscated)
}

func TestDefaultLanguageNeverObfuscated(t *testing.T) {
	tbl := newTestTable()
	joinedCharacter(tbl, "c1", "Alice", []string{"Elvish"}, false)
	bob, _ := joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.SendChat("c1", "plain talk", "Common")

	require.Len(t, bob.nonSystemMessages(), 1)
	assert.False(t, bob.nonSystemMessages()[0].Payload.IsObfuscated)
}

func TestEmoteAndImagesNotObfuscated(t *testing.T) {
	tbl := newTestTable()
	_, aliceID := joinedCharacter(tbl, "c1", "Alice", []string{"Elvish"}, false)
	bob, _ := joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.ExecuteCommand("c1", "emote", []string{"whistles", "a", "tune"})
	tbl.ShareImage(aliceID, "/uploads/t/pic.png", "the map", "image/png")

	msgs := bob.nonSystemMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.ItemChatEmote, msgs[0].ItemType)
	assert.False(t, msgs[0].Payload.IsObfuscated)
	assert.Equal(t, models.ItemImageMessage, msgs[1].ItemType)
	assert.Equal(t, "/uploads/t/pic.png", msgs[1].Payload.ImageURL)
	assert.Equal(t, "the map", msgs[1].Payload.Caption)
}

func TestSystemNotificationsNotRecorded(t *testing.T) {
	tbl := newTestTable()
	joinedCharacter(tbl, "c1", "Alice", nil, false)

	tbl.ExecuteCommand("c1", "badcommand", nil)

	assert.Empty(t, tbl.history)
}

func TestHistoryTailoredToViewer(t *testing.T) {
	tbl := newTestTable()
	joinedCharacter(tbl, "c1", "Alice", []string{"Elvish"}, false)
	joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.SendChat("c1", "public", "Common")
	tbl.ExecuteCommand("c1", "w", []string{"Bob"})
	tbl.SendChat("c1", "private", "Common")
	tbl.SendChat("c1", "elvish secret", "Elvish")

	// Bob replays from his own vantage point.
	conn := newFakeConn("c2-replay")
	bobID, _ := tbl.CharacterByConn("c2")
	tbl.SendHistory(conn, bobID)

	histories := conn.payloads(models.EventChatHistory)
	require.Len(t, histories, 1)
	history := histories[0].(models.ChatHistoryPayload).History
	require.Len(t, history, 3)
	assert.Equal(t, "public", history[0].Payload.Content)
	assert.Equal(t, models.DirectionReceived, history[1].Direction)
	assert.True(t, history[2].Payload.IsObfuscated, "Bob does not know Elvish")

	// Carol joined after the fact: not in any sentTo list, nothing replays.
	_, carolID := joinedCharacter(tbl, "c3", "Carol", nil, false)
	replay := newFakeConn("c3-replay")
	tbl.SendHistory(replay, carolID)
	carolHistory := replay.payloads(models.EventChatHistory)[0].(models.ChatHistoryPayload).History
	assert.Empty(t, carolHistory)
}

func TestHistoryReflectsCurrentLanguageKnowledge(t *testing.T) {
	tbl := newTestTable()
	joinedCharacter(tbl, "c1", "Alice", []string{"Elvish"}, false)
	joinedCharacter(tbl, "g1", "Gandalf", nil, true)
	_, bobID := joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.SendChat("c1", "mae govannen", "Elvish")
	tbl.ExecuteCommand("g1", "givelang", []string{"Bob", "/", "Elvish"})

	conn := newFakeConn("c2-replay")
	tbl.SendHistory(conn, bobID)

	history := conn.payloads(models.EventChatHistory)[0].(models.ChatHistoryPayload).History
	require.Len(t, history, 1)
	assert.False(t, history[0].Payload.IsObfuscated)
}

func TestLateJoiningGMReplaysOnlyWhispers(t *testing.T) {
	tbl := newTestTable()
	joinedCharacter(tbl, "c1", "Alice", nil, false)
	joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.SendChat("c1", "public", "Common")
	tbl.ExecuteCommand("c1", "w", []string{"Bob"})
	tbl.SendChat("c1", "private", "Common")

	_, gmID := joinedCharacter(tbl, "g1", "Gandalf", nil, true)
	conn := newFakeConn("g1-replay")
	tbl.SendHistory(conn, gmID)

	// The public message predates the GM, so only the whisper replays, as
	// an observation.
	history := conn.payloads(models.EventChatHistory)[0].(models.ChatHistoryPayload).History
	require.Len(t, history, 1)
	assert.Equal(t, models.DirectionObserved, history[0].Direction)
	assert.Equal(t, "private", history[0].Payload.Content)
}

func TestGMSeesWholeHistory(t *testing.T) {
	tbl := newTestTable()
	_, gmID := joinedCharacter(tbl, "g1", "Gandalf", nil, true)
	joinedCharacter(tbl, "c1", "Alice", nil, false)
	joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.SendChat("c1", "public", "Common")
	tbl.ExecuteCommand("c1", "w", []string{"Bob"})
	tbl.SendChat("c1", "private", "Common")

	conn := newFakeConn("g1-replay")
	tbl.SendHistory(conn, gmID)

	history := conn.payloads(models.EventChatHistory)[0].(models.ChatHistoryPayload).History
	require.Len(t, history, 2)
	assert.Empty(t, history[0].Direction)
	assert.Equal(t, models.DirectionObserved, history[1].Direction)
}
