package game

import (
	"fmt"
	"sort"
	"strings"

	"tabletalk/backend/internal/models"

	"github.com/justinian/dice"
)

// command is one slash command. run executes with the table lock held.
type command struct {
	name    string
	aliases []string
	gmOnly  bool
	run     func(t *Table, conn Conn, charID string, args []string)
}

var commandSet = []command{
	{name: "whisper", aliases: []string{"w"}, run: (*Table).cmdWhisper},
	{name: "reply", aliases: []string{"r"}, run: (*Table).cmdReply},
	{name: "all", run: (*Table).cmdAll},
	{name: "as", gmOnly: true, run: (*Table).cmdAs},
	{name: "gm", gmOnly: true, run: (*Table).cmdGM},
	{name: "roll", run: (*Table).cmdRoll},
	{name: "emote", aliases: []string{"me"}, run: (*Table).cmdEmote},
	{name: "addlang", gmOnly: true, run: (*Table).cmdAddLang},
	{name: "removelang", gmOnly: true, run: (*Table).cmdRemoveLang},
	{name: "givelang", gmOnly: true, run: (*Table).cmdGiveLang},
	{name: "takelang", gmOnly: true, run: (*Table).cmdTakeLang},
	{name: "renamedefault", gmOnly: true, run: (*Table).cmdRenameDefault},
	{name: "settheme", gmOnly: true, run: (*Table).cmdSetTheme},
	{name: "save", gmOnly: true, run: (*Table).cmdSave},
	{name: "manage", aliases: []string{"who"}, gmOnly: true, run: (*Table).cmdManage},
}

var commandIndex = buildCommandIndex()

func buildCommandIndex() map[string]*command {
	idx := make(map[string]*command)
	for i := range commandSet {
		cmd := &commandSet[i]
		idx[cmd.name] = cmd
		for _, alias := range cmd.aliases {
			idx[alias] = cmd
		}
	}
	return idx
}

// ExecuteCommand runs a slash command on behalf of a connection. Unknown
// commands, missing characters and GM gating are reported privately; a
// panicking command is contained and reported the same way.
func (t *Table) ExecuteCommand(connID, name string, args []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn, inRoom := t.conns[connID]
	if !inRoom {
		return
	}
	charID, char, identified := t.characterFor(connID)
	if !identified {
		t.notify(conn, "Cannot execute command: character not identified.", true)
		return
	}

	cmd, known := commandIndex[strings.ToLower(name)]
	if !known {
		t.notify(conn, fmt.Sprintf("Unknown command: /%s", name), true)
		return
	}
	if cmd.gmOnly && !char.IsGM {
		t.notify(conn, fmt.Sprintf("GM only: /%s.", name), true)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			t.log.Error("command panicked", "command", cmd.name, "panic", fmt.Sprint(r))
			t.notify(conn, fmt.Sprintf("An error occurred while executing the command /%s.", name), true)
		}
	}()
	cmd.run(t, conn, charID, args)
}

// cmdAs puts the GM behind an NPC persona, registering the NPC name if new.
func (t *Table) cmdAs(conn Conn, charID string, args []string) {
	character, ok := t.characters[charID]
	if !ok {
		return
	}

	npcName := strings.TrimSpace(strings.Join(args, " "))
	if npcName == "" {
		t.notify(conn, "Usage: /as <NPC Name>", true)
		return
	}

	for _, c := range t.characters {
		if !c.IsGM && strings.EqualFold(c.CharacterName, npcName) {
			t.notify(conn, fmt.Sprintf("The name %q is already in use by a player.", npcName), true)
			return
		}
	}

	t.addNPC(npcName)
	character.SpeakingAsNPC = npcName
	t.notify(conn, fmt.Sprintf("You are now speaking as %s. Use /gm to speak as yourself again.", npcName), false)
	conn.Send(models.EventPersonaUpdate, models.PersonaUpdate{SpeakingAs: npcName})
}

// cmdGM drops the GM's NPC persona.
func (t *Table) cmdGM(conn Conn, charID string, _ []string) {
	character, ok := t.characters[charID]
	if !ok {
		return
	}
	if character.SpeakingAsNPC == "" {
		t.notify(conn, "You are already speaking as yourself.", false)
		return
	}
	character.SpeakingAsNPC = ""
	t.notify(conn, fmt.Sprintf("You are now speaking as yourself (%s).", character.CharacterName), false)
	conn.Send(models.EventPersonaUpdate, models.PersonaUpdate{})
}

// cmdRoll rolls dice notation and posts the result, honoring the sender's
// whisper state.
func (t *Table) cmdRoll(conn Conn, charID string, args []string) {
	notation := strings.TrimSpace(strings.Join(args, " "))
	if notation == "" {
		t.notify(conn, "Usage: /roll <dice notation>", true)
		return
	}

	sender, ok := t.characters[charID]
	if !ok || sender.CharacterName == "" {
		return
	}

	result, _, err := dice.Roll(notation)
	if err != nil {
		t.notify(conn, fmt.Sprintf("Invalid dice notation: %q", notation), true)
		return
	}

	senderInfo := t.senderFor(charID)
	msg := models.NewMessage(models.ItemDiceRoll, senderInfo, models.Payload{
		Description: fmt.Sprintf("%s rolls %s:", senderInfo.Name, notation),
		Details:     result.Description(),
		Total:       result.Int(),
	})
	t.addressFromWhisperState(&msg, charID, sender)

	if msg.IsWhisper && !sender.HasSentInvite {
		t.sendFirstInvite(charID, sender)
	}

	t.distribute(msg, nil)
}

// cmdEmote posts a character action, honoring the sender's whisper state.
func (t *Table) cmdEmote(conn Conn, charID string, args []string) {
	action := strings.Join(args, " ")
	if action == "" {
		t.notify(conn, "Usage: /emote <action text>", true)
		return
	}

	sender, ok := t.characters[charID]
	if !ok || sender.CharacterName == "" {
		return
	}

	msg := models.NewMessage(models.ItemChatEmote, t.senderFor(charID), models.Payload{Content: action})
	t.addressFromWhisperState(&msg, charID, sender)

	if msg.IsWhisper && !sender.HasSentInvite {
		t.sendFirstInvite(charID, sender)
	}

	t.distribute(msg, nil)
}

// cmdAddLang adds a world language. The GM always speaks every language, so
// their list grows with the world's.
func (t *Table) cmdAddLang(conn Conn, charID string, args []string) {
	lang := firstArg(args)
	if lang == "" {
		t.notify(conn, "Usage: /addlang <LanguageName>", true)
		return
	}
	if _, exists := t.hasLanguage(lang); exists {
		t.notify(conn, fmt.Sprintf("The language %q already exists.", lang), true)
		return
	}

	t.availableLanguages = append(t.availableLanguages, lang)
	t.broadcastLanguages()

	if gm, ok := t.characters[charID]; ok && gm.IsGM {
		gm.Languages = append([]string(nil), t.availableLanguages...)
		sort.Strings(gm.Languages)
		t.sendDetails(conn, gm)
	}

	t.broadcastTransient(models.SystemNotification(fmt.Sprintf("The language %q has been added to the world.", lang), false))
}

// cmdRemoveLang removes a world language from the roster and from every
// character that knew it. The default language is not removable.
func (t *Table) cmdRemoveLang(conn Conn, _ string, args []string) {
	lang := firstArg(args)
	if lang == "" {
		t.notify(conn, "Usage: /removelang <LanguageName>", true)
		return
	}
	if strings.EqualFold(lang, t.defaultLanguage) {
		t.notify(conn, fmt.Sprintf("Cannot remove the default language %q.", t.defaultLanguage), true)
		return
	}
	actual, exists := t.hasLanguage(lang)
	if !exists {
		t.notify(conn, fmt.Sprintf("Language %q not found.", lang), true)
		return
	}

	t.availableLanguages = removeStringFold(t.availableLanguages, actual)
	t.broadcastLanguages()

	for id, c := range t.characters {
		if c.knowsLanguageFold(actual) {
			c.Languages = removeStringFold(c.Languages, actual)
			t.sendDetailsAll(id, c)
		}
	}

	t.broadcastTransient(models.SystemNotification(fmt.Sprintf("The language %q has been removed from the world.", actual), false))
}

// cmdGiveLang teaches a world language to one character. Arguments are
// "<Character Name> / <Language Name>".
func (t *Table) cmdGiveLang(conn Conn, _ string, args []string) {
	targetName, langName, ok := splitSlashArgs(args)
	if !ok {
		t.notify(conn, "Usage: /givelang <Character Name> / <Language Name>", true)
		return
	}

	actual, exists := t.hasLanguage(langName)
	if !exists {
		t.notify(conn, fmt.Sprintf("Language %q is not an available world language.", langName), true)
		return
	}
	targetID, target, found := t.characterNamed(targetName)
	if !found {
		t.notify(conn, fmt.Sprintf("Character %q not found.", targetName), true)
		return
	}
	if target.knowsLanguageFold(actual) {
		t.notify(conn, fmt.Sprintf("%s already knows %s.", target.CharacterName, actual), true)
		return
	}

	target.Languages = append(target.Languages, actual)
	sort.Strings(target.Languages)
	t.persist()

	t.sendDetailsAll(targetID, target)
	t.notifyCharacter(targetID, fmt.Sprintf("You have learned %s!", actual), false)
	t.notify(conn, fmt.Sprintf("You taught %s to %s.", actual, target.CharacterName), false)
}

// cmdTakeLang removes a language from one character. The default language
// cannot be taken.
func (t *Table) cmdTakeLang(conn Conn, _ string, args []string) {
	targetName, langName, ok := splitSlashArgs(args)
	if !ok {
		t.notify(conn, "Usage: /takelang <Character Name> / <Language Name>", true)
		return
	}
	if strings.EqualFold(langName, t.defaultLanguage) {
		t.notify(conn, fmt.Sprintf("You cannot remove the default language %q.", t.defaultLanguage), true)
		return
	}
	targetID, target, found := t.characterNamed(targetName)
	if !found {
		t.notify(conn, fmt.Sprintf("Character %q not found.", targetName), true)
		return
	}
	if !target.knowsLanguageFold(langName) {
		t.notify(conn, fmt.Sprintf("%s does not know %s.", target.CharacterName, langName), true)
		return
	}

	target.Languages = removeStringFold(target.Languages, langName)
	t.persist()

	t.sendDetailsAll(targetID, target)
	t.notifyCharacter(targetID, fmt.Sprintf("You have forgotten %s!", langName), false)
	t.notify(conn, fmt.Sprintf("You made %s forget %s.", target.CharacterName, langName), false)
}

// cmdRenameDefault renames the default language everywhere: the roster and
// every character's list.
func (t *Table) cmdRenameDefault(conn Conn, _ string, args []string) {
	newName := firstArg(args)
	if newName == "" {
		t.notify(conn, "Usage: /renamedefault <NewLanguageName>", true)
		return
	}
	if _, exists := t.hasLanguage(newName); exists {
		t.notify(conn, fmt.Sprintf("Cannot rename default language to %q as that language already exists.", newName), true)
		return
	}

	oldName := t.defaultLanguage
	t.defaultLanguage = newName
	replaced := false
	for i, l := range t.availableLanguages {
		if strings.EqualFold(l, oldName) {
			t.availableLanguages[i] = newName
			replaced = true
			break
		}
	}
	if !replaced {
		t.availableLanguages = append(t.availableLanguages, newName)
	}
	t.broadcastLanguages()

	for id, c := range t.characters {
		for i, l := range c.Languages {
			if strings.EqualFold(l, oldName) {
				c.Languages[i] = newName
			}
		}
		sort.Strings(c.Languages)
		t.sendDetailsAll(id, c)
	}

	t.broadcastTransient(models.SystemNotification(fmt.Sprintf("The default language %q has been renamed to %q.", oldName, newName), false))
}

var validThemes = []string{"fantasy", "sci-fi"}

// cmdSetTheme switches the table's visual theme.
func (t *Table) cmdSetTheme(conn Conn, _ string, args []string) {
	theme := strings.ToLower(firstArg(args))
	if theme == "" {
		t.notify(conn, fmt.Sprintf("Usage: /settheme <theme>. Available: %s.", strings.Join(validThemes, ", ")), true)
		return
	}
	valid := false
	for _, v := range validThemes {
		if v == theme {
			valid = true
			break
		}
	}
	if !valid {
		t.notify(conn, fmt.Sprintf("Invalid theme %q. Available themes are: %s.", theme, strings.Join(validThemes, ", ")), true)
		return
	}
	if t.theme == theme {
		t.notify(conn, fmt.Sprintf("The theme is already set to %q.", theme), false)
		return
	}

	t.theme = theme
	t.persist()
	t.broadcast(models.EventThemeChanged, models.ThemeChanged{Theme: theme})
	t.notify(conn, fmt.Sprintf("Table theme changed to %q.", theme), false)
}

// cmdSave flushes the table to disk and hands the GM the same snapshot as a
// downloadable export.
func (t *Table) cmdSave(conn Conn, charID string, _ []string) {
	character, ok := t.characters[charID]
	if !ok {
		t.notify(conn, "Error: Could not identify your character for saving.", true)
		return
	}
	t.log.Info("game state export requested", "character", character.CharacterName)

	t.persistSync()
	conn.Send(models.EventGameStateExport, t.snapshotLocked())
	t.notify(conn, fmt.Sprintf("Game state for table '%s' exported.", t.name), false)
}

// cmdManage sends the full roster for the GM management view.
func (t *Table) cmdManage(conn Conn, _ string, _ []string) {
	players := make([]models.Player, 0, len(t.characters))
	for _, c := range t.characters {
		if c.CharacterName == "" {
			continue
		}
		players = append(players, models.Player{
			ID:        c.CharacterID,
			Name:      c.CharacterName,
			Languages: append([]string(nil), c.Languages...),
			IsGM:      c.IsGM,
			AvatarURL: c.AvatarURL,
		})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Name < players[j].Name })
	conn.Send(models.EventPlayerListUpdate, models.PlayerListUpdate{Players: players})
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.TrimSpace(args[0])
}

// splitSlashArgs parses "<left> / <right>" command arguments.
func splitSlashArgs(args []string) (left, right string, ok bool) {
	raw := strings.Join(args, " ")
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) < 2 {
		return "", "", false
	}
	left = strings.TrimSpace(parts[0])
	right = strings.TrimSpace(parts[1])
	return left, right, left != "" && right != ""
}

func removeStringFold(list []string, name string) []string {
	kept := list[:0]
	for _, l := range list {
		if !strings.EqualFold(l, name) {
			kept = append(kept, l)
		}
	}
	return kept
}
