package game

import (
	"testing"

	"tabletalk/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhisperToPlayer(t *testing.T) {
	tbl := newTestTable()
	alice, aliceID := joinedCharacter(tbl, "c1", "Alice", []string{"Common"}, false)
	_, bobID := joinedCharacter(tbl, "c2", "Bob", []string{"Common"}, false)

	tbl.ExecuteCommand("c1", "w", []string{"Bob"})

	char := tbl.characters[aliceID]
	require.Len(t, char.WhisperTargets, 2)
	assert.Equal(t, aliceID, char.WhisperTargets[0].ID)
	assert.Equal(t, "Alice", char.WhisperTargets[0].Name)
	assert.Equal(t, bobID, char.WhisperTargets[1].ID)
	assert.False(t, char.HasSentInvite)

	updates := alice.payloads(models.EventWhisperModeUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, []string{"Bob"}, updates[0].(models.WhisperModeUpdate).Targets)
	assert.Contains(t, alice.notices()[len(alice.notices())-1], "whisper mode with Bob")
}

func TestWhisperTargetNameIsCaseInsensitive(t *testing.T) {
	tbl := newTestTable()
	_, aliceID := joinedCharacter(tbl, "c1", "Alice", nil, false)
	_, bobID := joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.ExecuteCommand("c1", "whisper", []string{"bOb"})

	char := tbl.characters[aliceID]
	require.Len(t, char.WhisperTargets, 2)
	assert.Equal(t, bobID, char.WhisperTargets[1].ID)
	assert.Equal(t, "Bob", char.WhisperTargets[1].Name)
}

func TestWhisperInvalidTargetReported(t *testing.T) {
	tbl := newTestTable()
	alice, aliceID := joinedCharacter(tbl, "c1", "Alice", nil, false)
	joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"Bob,", "Nobody"})

	assert.Contains(t, alice.notices()[0], "Could not find or target: Nobody.")
	// Bob still resolved.
	assert.Len(t, tbl.characters[aliceID].WhisperTargets, 2)
}

func TestWhisperNoValidTargets(t *testing.T) {
	tbl := newTestTable()
	alice, aliceID := joinedCharacter(tbl, "c1", "Alice", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"Nobody"})

	assert.Empty(t, tbl.characters[aliceID].WhisperTargets)
	notices := alice.notices()
	assert.Contains(t, notices[len(notices)-1], "at least one valid character")
}

func TestWhisperToSelfAlone(t *testing.T) {
	tbl := newTestTable()
	alice, aliceID := joinedCharacter(tbl, "c1", "Alice", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"Alice"})

	char := tbl.characters[aliceID]
	require.Len(t, char.WhisperTargets, 1)
	assert.Equal(t, aliceID, char.WhisperTargets[0].ID)
	notices := alice.notices()
	assert.Contains(t, notices[len(notices)-1], "whisper mode with yourself (as Alice)")
}

func TestWhisperGMKeywordResolvesActiveGM(t *testing.T) {
	tbl := newTestTable()
	joinedCharacter(tbl, "g1", "Gandalf", nil, true)
	_, aliceID := joinedCharacter(tbl, "c1", "Alice", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"gm"})

	char := tbl.characters[aliceID]
	require.Len(t, char.WhisperTargets, 2)
	assert.Equal(t, "Gandalf", char.WhisperTargets[1].Name)
	require.NotNil(t, char.NextFraming)
	assert.Equal(t, TargetGM, char.NextFraming.TargetType)
}

func TestWhisperGMKeywordWithoutGM(t *testing.T) {
	tbl := newTestTable()
	alice, aliceID := joinedCharacter(tbl, "c1", "Alice", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"gm"})

	assert.Empty(t, tbl.characters[aliceID].WhisperTargets)
	assert.Contains(t, alice.notices()[0], "GM not active")
}

func TestWhisperToNPCResolvesGMUnderPersona(t *testing.T) {
	tbl := newTestTable()
	_, gmID := joinedCharacter(tbl, "g1", "Gandalf", nil, true)
	_, aliceID := joinedCharacter(tbl, "c1", "Alice", nil, false)
	tbl.ExecuteCommand("g1", "as", []string{"Barkeep"})
	tbl.ExecuteCommand("g1", "gm", nil)

	tbl.ExecuteCommand("c1", "w", []string{"Barkeep"})

	char := tbl.characters[aliceID]
	require.Len(t, char.WhisperTargets, 2)
	assert.Equal(t, gmID, char.WhisperTargets[1].ID)
	assert.Equal(t, "Barkeep", char.WhisperTargets[1].Name)
	require.NotNil(t, char.NextFraming)
	assert.Equal(t, TargetNPC, char.NextFraming.TargetType)
	assert.Equal(t, "Barkeep", char.NextFraming.TargetName)
}

func TestWhisperDedupesByIdentity(t *testing.T) {
	tbl := newTestTable()
	joinedCharacter(tbl, "g1", "Gandalf", nil, true)
	_, aliceID := joinedCharacter(tbl, "c1", "Alice", nil, false)

	// "gm" and the GM's own name are the same identity.
	tbl.ExecuteCommand("c1", "w", []string{"gm,", "Gandalf"})

	assert.Len(t, tbl.characters[aliceID].WhisperTargets, 2)
}

func TestFirstWhisperMessageDeliversInvite(t *testing.T) {
	tbl := newTestTable()
	_, aliceID := joinedCharacter(tbl, "c1", "Alice", nil, false)
	bob, bobID := joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"Bob"})
	bob.reset()
	tbl.SendChat("c1", "psst", "Common")

	require.Len(t, tbl.characters[bobID].PendingInvites, 1)
	assert.Equal(t, aliceID, tbl.characters[bobID].PendingInvites[0].FromID)
	assert.True(t, tbl.characters[aliceID].HasSentInvite)

	found := false
	for _, n := range bob.notices() {
		if n == "Whisper invite from Alice. Use /reply or /r to join." {
			found = true
		}
	}
	assert.True(t, found, "invite notice delivered to Bob")

	// A second message in the same channel does not queue another invite.
	tbl.SendChat("c1", "still there?", "Common")
	assert.Len(t, tbl.characters[bobID].PendingInvites, 1)
}

func TestFirstRollInWhisperDeliversInvite(t *testing.T) {
	tbl := newTestTable()
	_, aliceID := joinedCharacter(tbl, "c1", "Alice", nil, false)
	_, bobID := joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"Bob"})
	tbl.ExecuteCommand("c1", "roll", []string{"2d6"})

	// A roll can open the channel just like chat, so Bob can /reply to it.
	require.Len(t, tbl.characters[bobID].PendingInvites, 1)
	assert.Equal(t, aliceID, tbl.characters[bobID].PendingInvites[0].FromID)

	tbl.ExecuteCommand("c1", "emote", []string{"waves"})
	assert.Len(t, tbl.characters[bobID].PendingInvites, 1)
}

func TestFirstEmoteInWhisperDeliversInvite(t *testing.T) {
	tbl := newTestTable()
	_, aliceID := joinedCharacter(tbl, "c1", "Alice", nil, false)
	_, bobID := joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"Bob"})
	tbl.ExecuteCommand("c1", "emote", []string{"waves"})

	require.Len(t, tbl.characters[bobID].PendingInvites, 1)
	assert.True(t, tbl.characters[aliceID].HasSentInvite)
}

func TestReplyJoinsChannel(t *testing.T) {
	tbl := newTestTable()
	alice, aliceID := joinedCharacter(tbl, "c1", "Alice", nil, false)
	bob, bobID := joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"Bob"})
	tbl.SendChat("c1", "psst", "Common")
	alice.reset()
	bob.reset()

	tbl.ExecuteCommand("c2", "r", nil)

	bobChar := tbl.characters[bobID]
	assert.Empty(t, bobChar.PendingInvites)
	require.Len(t, bobChar.WhisperTargets, 3)
	assert.True(t, bobChar.HasSentInvite)

	// Alice's channel now contains Bob too.
	aliceChar := tbl.characters[aliceID]
	// Bob was already a listed target, so the channel does not grow.
	require.Len(t, aliceChar.WhisperTargets, 2)
	names := []string{aliceChar.WhisperTargets[0].Name, aliceChar.WhisperTargets[1].Name}
	assert.Contains(t, names, "Bob")

	joined := false
	for _, n := range alice.notices() {
		if n == "* Bob has joined the whisper. *" {
			joined = true
		}
	}
	assert.True(t, joined)

	// The replier's list mirrors the channel as it stood before they joined,
	// which includes their own entry as the inviter listed it.
	updates := bob.payloads(models.EventWhisperModeUpdate)
	require.NotEmpty(t, updates)
	assert.Equal(t, []string{"Alice", "Bob"}, updates[0].(models.WhisperModeUpdate).Targets)
}

func TestReplyWithoutInvite(t *testing.T) {
	tbl := newTestTable()
	alice, _ := joinedCharacter(tbl, "c1", "Alice", nil, false)

	tbl.ExecuteCommand("c1", "reply", nil)

	assert.Contains(t, alice.notices()[0], "no pending whisper invitations")
}

func TestReplyAfterSenderLeftExpires(t *testing.T) {
	tbl := newTestTable()
	joinedCharacter(tbl, "c1", "Alice", nil, false)
	bob, bobID := joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"Bob"})
	tbl.SendChat("c1", "psst", "Common")
	tbl.ExecuteCommand("c1", "all", nil)
	bob.reset()

	tbl.ExecuteCommand("c2", "r", nil)

	// The /all already withdrew the invite, so /reply finds none left.
	assert.Empty(t, tbl.characters[bobID].WhisperTargets)
	assert.Contains(t, bob.notices()[0], "no pending whisper invitations")
}

func TestReplyExpiredInviteAfterSenderReset(t *testing.T) {
	tbl := newTestTable()
	joinedCharacter(tbl, "c1", "Alice", nil, false)
	bob, bobID := joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"Bob"})
	tbl.SendChat("c1", "psst", "Common")
	// Alice's channel dissolves without the invite being withdrawn.
	tbl.characters[tbl.connToChar["c1"]].WhisperTargets = nil
	bob.reset()

	tbl.ExecuteCommand("c2", "r", nil)

	assert.Empty(t, tbl.characters[bobID].WhisperTargets)
	assert.Empty(t, tbl.characters[bobID].PendingInvites)
	assert.Contains(t, bob.notices()[0], "invitation has expired")
}

func TestReplyAsNPCSwitchesGMPersona(t *testing.T) {
	tbl := newTestTable()
	gm, gmID := joinedCharacter(tbl, "g1", "Gandalf", nil, true)
	joinedCharacter(tbl, "c1", "Alice", nil, false)
	tbl.ExecuteCommand("g1", "as", []string{"Barkeep"})
	tbl.ExecuteCommand("g1", "gm", nil)

	tbl.ExecuteCommand("c1", "w", []string{"Barkeep"})
	gm.reset()
	tbl.SendChat("c1", "a quiet word", "Common")

	// The GM was invited under the Barkeep persona.
	found := false
	for _, n := range gm.notices() {
		if n == "Alice invites you (as Barkeep) to whisper. Use /reply or /r to join." {
			found = true
		}
	}
	assert.True(t, found)
	gm.reset()

	tbl.ExecuteCommand("g1", "r", nil)

	gmChar := tbl.characters[gmID]
	assert.Equal(t, "Barkeep", gmChar.SpeakingAsNPC)
	personas := gm.payloads(models.EventPersonaUpdate)
	require.NotEmpty(t, personas)
	assert.Equal(t, "Barkeep", personas[0].(models.PersonaUpdate).SpeakingAs)
	assert.Contains(t, gm.notices()[0], "You will reply as Barkeep.")
}

func TestReplyAsGMDropsPersona(t *testing.T) {
	tbl := newTestTable()
	gm, gmID := joinedCharacter(tbl, "g1", "Gandalf", nil, true)
	joinedCharacter(tbl, "c1", "Alice", nil, false)
	tbl.ExecuteCommand("g1", "as", []string{"Barkeep"})

	tbl.ExecuteCommand("c1", "w", []string{"gm"})
	tbl.SendChat("c1", "a word with the GM", "Common")
	gm.reset()

	tbl.ExecuteCommand("g1", "r", nil)

	assert.Empty(t, tbl.characters[gmID].SpeakingAsNPC)
	assert.Contains(t, gm.notices()[0], "You will reply as Gandalf (GM).")
}

func TestAllLeavesAndNotifiesRemaining(t *testing.T) {
	tbl := newTestTable()
	_, aliceID := joinedCharacter(tbl, "c1", "Alice", nil, false)
	bob, bobID := joinedCharacter(tbl, "c2", "Bob", nil, false)
	_, carolID := joinedCharacter(tbl, "c3", "Carol", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"Bob,", "Carol"})
	tbl.SendChat("c1", "gather round", "Common")
	tbl.ExecuteCommand("c2", "r", nil)
	tbl.ExecuteCommand("c3", "r", nil)
	bob.reset()

	tbl.ExecuteCommand("c1", "all", nil)

	assert.Empty(t, tbl.characters[aliceID].WhisperTargets)
	// Bob and Carol remain whispering with each other.
	assert.NotEmpty(t, tbl.characters[bobID].WhisperTargets)
	assert.NotEmpty(t, tbl.characters[carolID].WhisperTargets)

	left := false
	for _, n := range bob.notices() {
		if n == "* Alice has left the whisper. *" {
			left = true
		}
	}
	assert.True(t, left)
}

func TestAllCollapsesTwoPersonChannel(t *testing.T) {
	tbl := newTestTable()
	_, aliceID := joinedCharacter(tbl, "c1", "Alice", nil, false)
	bob, bobID := joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"Bob"})
	tbl.SendChat("c1", "psst", "Common")
	tbl.ExecuteCommand("c2", "r", nil)
	bob.reset()

	tbl.ExecuteCommand("c1", "all", nil)

	assert.Empty(t, tbl.characters[aliceID].WhisperTargets)
	assert.Empty(t, tbl.characters[bobID].WhisperTargets)

	returned := false
	for _, n := range bob.notices() {
		if n == "Everyone has left the whisper. You have returned to public chat." {
			returned = true
		}
	}
	assert.True(t, returned)
}

func TestAllWithdrawsUnacceptedInvite(t *testing.T) {
	tbl := newTestTable()
	joinedCharacter(tbl, "c1", "Alice", nil, false)
	bob, bobID := joinedCharacter(tbl, "c2", "Bob", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"Bob"})
	tbl.SendChat("c1", "psst", "Common")
	require.Len(t, tbl.characters[bobID].PendingInvites, 1)
	bob.reset()

	tbl.ExecuteCommand("c1", "all", nil)

	assert.Empty(t, tbl.characters[bobID].PendingInvites)
	assert.Empty(t, tbl.characters[bobID].WhisperTargets)
	assert.Contains(t, bob.notices()[0], "The whisper invitation from Alice was cancelled.")
}

func TestAllWithMixedJoinedAndPendingMembers(t *testing.T) {
	tbl := newTestTable()
	_, aliceID := joinedCharacter(tbl, "c1", "Alice", nil, false)
	bob, bobID := joinedCharacter(tbl, "c2", "Bob", nil, false)
	carol, carolID := joinedCharacter(tbl, "c3", "Carol", nil, false)

	tbl.ExecuteCommand("c1", "w", []string{"Bob,", "Carol"})
	tbl.SendChat("c1", "gather round", "Common")
	// Carol joins, Bob never does.
	tbl.ExecuteCommand("c3", "r", nil)
	bob.reset()
	carol.reset()

	tbl.ExecuteCommand("c1", "all", nil)

	// Bob's unaccepted invite is withdrawn without a leave notice.
	assert.Empty(t, tbl.characters[bobID].PendingInvites)
	assert.Empty(t, tbl.characters[bobID].WhisperTargets)
	assert.Contains(t, bob.notices()[0], "invitation from Alice was cancelled")

	// Carol had joined; with Alice gone and Bob never in, she collapses back
	// to public chat.
	assert.Empty(t, tbl.characters[aliceID].WhisperTargets)
	assert.Empty(t, tbl.characters[carolID].WhisperTargets)
	returned := false
	for _, n := range carol.notices() {
		if n == "Everyone has left the whisper. You have returned to public chat." {
			returned = true
		}
	}
	assert.True(t, returned)
}

func TestAllWhenAlreadyPublic(t *testing.T) {
	tbl := newTestTable()
	alice, _ := joinedCharacter(tbl, "c1", "Alice", nil, false)

	tbl.ExecuteCommand("c1", "all", nil)

	assert.Contains(t, alice.notices()[0], "already in public chat")
	updates := alice.payloads(models.EventWhisperModeUpdate)
	require.Len(t, updates, 1)
	assert.Empty(t, updates[0].(models.WhisperModeUpdate).Targets)
}
