package game

import (
	"sort"
	"strings"
	"sync"
	"time"

	"tabletalk/backend/internal/models"
	"tabletalk/backend/internal/store"
	"tabletalk/backend/pkg/logger"
)

// Table is one independent game session: its characters, chat history,
// languages, NPC roster and the connections currently in the room. All
// mutations run under mu, one at a time, so handlers never observe a
// half-applied state.
type Table struct {
	mu sync.Mutex

	id    string
	name  string
	theme string

	defaultLanguage    string
	availableLanguages []string

	characters map[string]*Character // by character id
	npcs       []string              // original spellings, matched case-insensitively
	history    []models.Message
	lastActive time.Time

	// Connection bookkeeping. conns holds every connection in the room,
	// including ones that have not submitted a character yet.
	conns        map[string]Conn
	connToChar   map[string]string
	charConns    map[string]map[string]Conn
	activeGMConn string

	store *store.Store
	log   *logger.Logger
}

// NewTable creates a fresh table with the default language roster.
func NewTable(id, name, theme, defaultLanguage string, languages []string, st *store.Store, log *logger.Logger) *Table {
	t := &Table{
		id:                 id,
		name:               name,
		theme:              theme,
		defaultLanguage:    defaultLanguage,
		availableLanguages: append([]string(nil), languages...),
		characters:         make(map[string]*Character),
		conns:              make(map[string]Conn),
		connToChar:         make(map[string]string),
		charConns:          make(map[string]map[string]Conn),
		lastActive:         time.Now().UTC(),
		store:              st,
		log:                log.WithTable(id),
	}
	t.sortLanguages()
	return t
}

// RestoreTable rebuilds a table from a stored snapshot. Connection state and
// transient whisper state start empty.
func RestoreTable(snap models.TableSnapshot, st *store.Store, log *logger.Logger) *Table {
	t := NewTable(snap.ID, snap.Name, snap.Theme, snap.DefaultLanguage, snap.AvailableLanguages, st, log)
	if t.theme == "" {
		t.theme = "fantasy"
	}
	if t.defaultLanguage == "" {
		t.defaultLanguage = "Common"
	}
	if len(t.availableLanguages) == 0 {
		t.availableLanguages = []string{t.defaultLanguage}
	}
	t.history = snap.ChatHistory
	t.npcs = append([]string(nil), snap.NPCList...)
	for _, pc := range snap.Characters {
		t.characters[pc.CharacterID] = &Character{PersistentCharacter: pc}
	}
	if !snap.SavedAt.IsZero() {
		t.lastActive = snap.SavedAt
	}
	t.sortLanguages()
	return t
}

// ID returns the table's immutable id.
func (t *Table) ID() string { return t.id }

// Info returns the lobby listing entry for the table.
func (t *Table) Info() models.TableInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	online := 0
	for _, conns := range t.charConns {
		if len(conns) > 0 {
			online++
		}
	}
	return models.TableInfo{
		ID:           t.id,
		Name:         t.name,
		PlayerCount:  online,
		LastActivity: t.lastActive,
		Theme:        t.theme,
	}
}

// Name returns the table's display name.
func (t *Table) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// Snapshot captures the persistent state of the table. Callers outside the
// package get a consistent copy; internal callers use snapshotLocked.
func (t *Table) Snapshot() models.TableSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Table) snapshotLocked() models.TableSnapshot {
	chars := make([]models.PersistentCharacter, 0, len(t.characters))
	for _, c := range t.characters {
		chars = append(chars, c.PersistentCharacter)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i].CharacterID < chars[j].CharacterID })
	return models.TableSnapshot{
		SaveVersion:        models.SaveVersion,
		ID:                 t.id,
		Name:               t.name,
		Theme:              t.theme,
		SavedAt:            time.Now().UTC(),
		ChatHistory:        append([]models.Message(nil), t.history...),
		Characters:         chars,
		AvailableLanguages: append([]string(nil), t.availableLanguages...),
		DefaultLanguage:    t.defaultLanguage,
		NPCList:            append([]string(nil), t.npcs...),
	}
}

// persist enqueues a snapshot write. Lock must be held.
func (t *Table) persist() {
	if t.store != nil {
		t.store.SaveAsync(t.snapshotLocked())
	}
}

// persistSync writes the snapshot before returning. Used where the caller
// hands the same state to the client, as with /save exports.
func (t *Table) persistSync() {
	if t.store != nil {
		if err := t.store.Save(t.snapshotLocked()); err != nil {
			t.log.LogError(err, "synchronous snapshot write failed")
		}
	}
}

// touch bumps the activity clock. Lock must be held.
func (t *Table) touch() {
	t.lastActive = time.Now().UTC()
}

// sortLanguages keeps the default language first and the rest alphabetical.
func (t *Table) sortLanguages() {
	def := strings.ToLower(t.defaultLanguage)
	sort.Slice(t.availableLanguages, func(i, j int) bool {
		a, b := t.availableLanguages[i], t.availableLanguages[j]
		if strings.ToLower(a) == def {
			return true
		}
		if strings.ToLower(b) == def {
			return false
		}
		return a < b
	})
}

// hasLanguage matches against the world roster case-insensitively and
// returns the canonical spelling.
func (t *Table) hasLanguage(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, l := range t.availableLanguages {
		if strings.ToLower(l) == lower {
			return l, true
		}
	}
	return "", false
}

// npcNamed returns the original spelling of a registered NPC.
func (t *Table) npcNamed(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, npc := range t.npcs {
		if strings.ToLower(npc) == lower {
			return npc, true
		}
	}
	return "", false
}

// addNPC registers an NPC name once, keeping the first spelling seen.
func (t *Table) addNPC(name string) {
	if _, ok := t.npcNamed(name); !ok {
		t.npcs = append(t.npcs, name)
	}
}

// characterNamed finds a character by name, case-insensitively.
func (t *Table) characterNamed(name string) (string, *Character, bool) {
	lower := strings.ToLower(name)
	for id, c := range t.characters {
		if c.CharacterName != "" && strings.ToLower(c.CharacterName) == lower {
			return id, c, true
		}
	}
	return "", nil, false
}

// characterFor resolves the character bound to a connection.
func (t *Table) characterFor(connID string) (string, *Character, bool) {
	charID, ok := t.connToChar[connID]
	if !ok {
		return "", nil, false
	}
	c, ok := t.characters[charID]
	if !ok {
		return "", nil, false
	}
	return charID, c, true
}

// activeGMCharacter returns the character currently holding the GM seat, or
// nil when no GM is online.
func (t *Table) activeGMCharacter() (string, *Character) {
	if t.activeGMConn == "" {
		return "", nil
	}
	charID, ok := t.connToChar[t.activeGMConn]
	if !ok {
		return "", nil
	}
	return charID, t.characters[charID]
}

// senderFor freezes the sender snapshot for a new message, applying the
// GM's active NPC persona when one is set.
func (t *Table) senderFor(charID string) models.Sender {
	c, ok := t.characters[charID]
	if !ok {
		return models.Sender{ID: charID, Name: "Unknown"}
	}
	if c.IsGM && c.SpeakingAsNPC != "" {
		return models.Sender{ID: charID, Name: c.SpeakingAsNPC, IsGM: true, IsNPC: true}
	}
	return models.Sender{ID: charID, Name: c.CharacterName, IsGM: c.IsGM, AvatarURL: c.AvatarURL}
}

// notify sends a private system notification to one connection.
func (t *Table) notify(conn Conn, content string, isError bool) {
	if conn == nil {
		return
	}
	conn.Send(models.EventNewMessage, models.SystemNotification(content, isError))
}

// notifyCharacter sends a private system notification to every connection a
// character has open.
func (t *Table) notifyCharacter(charID, content string, isError bool) {
	for _, conn := range t.charConns[charID] {
		t.notify(conn, content, isError)
	}
}

// sendToCharacter delivers an event to every connection of a character.
func (t *Table) sendToCharacter(charID, event string, payload any) {
	for _, conn := range t.charConns[charID] {
		conn.Send(event, payload)
	}
}

// broadcast delivers an event to every connection in the room, identified
// or not.
func (t *Table) broadcast(event string, payload any) {
	for _, conn := range t.conns {
		conn.Send(event, payload)
	}
}

// broadcastTransient sends a system message to the whole room without
// recording it in history.
func (t *Table) broadcastTransient(msg models.Message) {
	t.broadcast(models.EventNewMessage, msg)
}

// broadcastLanguages re-sorts and announces the language roster, then
// persists. Lock must be held.
func (t *Table) broadcastLanguages() {
	t.sortLanguages()
	t.broadcast(models.EventLanguageListUpdate, models.LanguageListUpdate{
		Languages:       append([]string(nil), t.availableLanguages...),
		DefaultLanguage: t.defaultLanguage,
	})
	t.persist()
}

// broadcastGMStatus announces whether the GM seat is held.
func (t *Table) broadcastGMStatus() {
	t.broadcast(models.EventGMStatusUpdate, models.GMStatusUpdate{IsGMActive: t.activeGMConn != ""})
}

// sendDetails pushes a character's current details view to one connection.
func (t *Table) sendDetails(conn Conn, c *Character) {
	conn.Send(models.EventCharacterDetailsConfirmed, c.Details())
}

// sendDetailsAll pushes the details view to every connection of a character.
func (t *Table) sendDetailsAll(charID string, c *Character) {
	t.sendToCharacter(charID, models.EventCharacterDetailsConfirmed, c.Details())
}
