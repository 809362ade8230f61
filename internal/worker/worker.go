// Package worker implements the mapper worker: the single-goroutine state
// machine that turns decoded MUD events into map-store mutations and
// turns client-typed mapper commands into responses sent back to the
// client (spec.md §4.5).
//
// It lives in its own package, rather than inside internal/mapper, because
// it depends on internal/pathfinder, which itself depends on
// internal/mapper; folding the worker into internal/mapper would create an
// import cycle.
package worker

import (
	"fmt"
	"strings"
	"time"

	"github.com/anicolao/mudproxy/internal/config"
	"github.com/anicolao/mudproxy/internal/dispatch"
	"github.com/anicolao/mudproxy/internal/eventbus"
	"github.com/anicolao/mudproxy/internal/mapper"
	"github.com/anicolao/mudproxy/internal/pathfinder"
	"github.com/anicolao/mudproxy/internal/ticktimer"
)

// Worker is the mapper's turn-based state machine, grounded on
// original_source/mapperproxy/mapper/mapper.py's Mapper class
// (parseMudOutput/updateCurrentRoom/walkNextDirection), reshaped from one
// monolithic per-GA method into explicit per-event handlers registered on
// an internal/dispatch.Events registry, and per-command handlers
// registered on an internal/dispatch.Commands registry (spec.md §9's
// redesign note).
type Worker struct {
	mapStore *mapper.Map
	cfg      *config.ProxyConfig

	commands *dispatch.Commands
	events   *dispatch.Events

	clientSend func(string)
	serverSend func(string)

	currentVnum string
	isSynced    bool

	// Per-turn transient state (spec.md §4.5.1). Cleared by clearTurn at
	// the end of each turn.
	movement         string
	roomName         string
	description      string
	dynamic          string
	exits            string
	scouting         bool
	moved            bool
	addedNewRoomFrom string
	addedNewRoomDir  mapper.Direction

	walking   bool
	walkSteps []pathfinder.Step
	walkIndex int

	timer *ticktimer.Timer
}

// New builds a Worker over mapStore and cfg. clientSend writes a line of
// text back to the connected client; serverSend writes a line of text (a
// command) to the MUD server, used by the auto-walk engine and
// secretaction.
func New(mapStore *mapper.Map, cfg *config.ProxyConfig, clientSend, serverSend func(string), startTime time.Time) *Worker {
	w := &Worker{
		mapStore:   mapStore,
		cfg:        cfg,
		commands:   dispatch.NewCommands(),
		events:     dispatch.NewEvents(),
		clientSend: clientSend,
		serverSend: serverSend,
		timer:      ticktimer.NewAt(startTime),
	}
	w.registerEvents()
	w.registerCommands()
	return w
}

// Run drains bus until it observes a shutdown item, routing each item to
// the command or event registry (spec.md §4.5.11). It returns once the
// bus channel is closed or a KindShutdown item is processed.
func (w *Worker) Run(bus *eventbus.Bus) {
	for item := range bus.Items() {
		switch item.Kind {
		case eventbus.KindUserData:
			w.commands.Dispatch(string(item.UserData))
		case eventbus.KindMudEvent:
			w.events.Dispatch(string(item.Event), []byte(item.Payload))
		case eventbus.KindShutdown:
			return
		}
	}
}

// RecognizesCommand reports whether line's first token names a registered
// mapper command, without dispatching it. The proxy's client pump calls
// this (safe: it only reads the static handler-name table, never the map
// store) to decide whether a typed line should be diverted to the bus or
// forwarded straight to the server.
func (w *Worker) RecognizesCommand(line string) bool {
	return w.commands.Recognizes(line)
}

func (w *Worker) send(format string, args ...interface{}) {
	w.clientSend(fmt.Sprintf(format, args...))
}

func (w *Worker) registerEvents() {
	w.events.Subscribe(string(eventbus.EventMovement), w.onMovement)
	w.events.Subscribe(string(eventbus.EventRoomName), w.onRoomName)
	w.events.Subscribe(string(eventbus.EventDescription), w.onDescription)
	w.events.Subscribe(string(eventbus.EventDynamic), w.onDynamic)
	w.events.Subscribe(string(eventbus.EventExits), w.onExits)
	w.events.Subscribe(string(eventbus.EventPrompt), w.onPrompt)
	w.events.Subscribe(string(eventbus.EventLine), w.onLine)
}

func (w *Worker) onMovement(payload []byte) {
	if w.scouting {
		return
	}
	w.movement = string(payload)
	if w.movement == "" {
		// A movement tag without a direction is forced movement in an
		// unknown direction; resolveMovement drops sync for it.
		w.movement = "unknown"
	}
}

func (w *Worker) onRoomName(payload []byte) {
	if w.scouting {
		return
	}
	w.roomName = string(payload)
}

func (w *Worker) onDescription(payload []byte) {
	if w.scouting {
		return
	}
	w.description = string(payload)
}

func (w *Worker) onDynamic(payload []byte) {
	if w.scouting {
		return
	}
	w.dynamic = string(payload)
}

func (w *Worker) onExits(payload []byte) {
	if w.scouting {
		return
	}
	w.exits = string(payload)
}

// onLine watches every plain server line for the scouting marker and the
// forced/prevented movement catalogs (spec.md §4.5.3, §4.5.10), neither of
// which arrives as a tagged XML event.
func (w *Worker) onLine(payload []byte) {
	line := string(payload)
	if strings.HasPrefix(line, "You quietly scout ") {
		w.scouting = true
		return
	}
	if matched, ignore := mapper.ForcedMovementIgnore(line); matched {
		w.stopWalk()
		if !ignore {
			w.isSynced = false
		}
		return
	}
	if mapper.PreventedMovement(line) {
		w.stopWalk()
	}
}

// onPrompt is the turn boundary (spec.md §4.5.1): the prompt event always
// arrives last in a turn, carrying the light/terrain/weather/movement
// glyphs alongside marking "this turn is now complete".
func (w *Worker) onPrompt(payload []byte) {
	promptFlags := mapper.ParsePromptFlags(string(payload))

	w.resolveMovement()

	if !w.isSynced {
		w.attemptSync()
	}
	if w.isSynced {
		w.updateCurrentRoom(promptFlags)
		w.emitRoomSummary()
	}
	if w.walking {
		w.walkNextDirection()
	}

	w.clearTurn()
	w.scouting = false
}

func (w *Worker) clearTurn() {
	w.movement = ""
	w.roomName = ""
	w.description = ""
	w.dynamic = ""
	w.exits = ""
	w.moved = false
	w.addedNewRoomFrom = ""
	w.addedNewRoomDir = ""
}

// resolveMovement applies spec.md §4.5.4: an empty or non-direction
// movement value drops sync; a direction followed over a known exit keeps
// it; a direction followed over a missing or dangling exit either drops
// sync (auto-mapping off) or triggers auto-map/auto-merge (spec.md
// §4.5.5).
func (w *Worker) resolveMovement() {
	if w.movement == "" {
		return
	}
	dir := mapper.Direction(w.movement)
	if !dir.Valid() {
		w.isSynced = false
		return
	}
	if !w.isSynced {
		return
	}
	room := w.mapStore.Rooms[w.currentVnum]
	if room == nil {
		w.isSynced = false
		return
	}
	exit := room.Exit(dir)
	if exit != nil && exit.To != mapper.VnumUndefined && exit.To != mapper.VnumDeath {
		if _, ok := w.mapStore.Rooms[exit.To]; ok {
			w.currentVnum = exit.To
			w.moved = true
			return
		}
	}
	if !w.cfg.Snapshot().AutoMapping {
		w.isSynced = false
		return
	}
	w.autoMap(dir)
}

// autoMap implements spec.md §4.5.5. On a missing or dangling exit with
// auto-mapping enabled: merge into an existing identical room if
// auto-merging finds exactly one name+description match, otherwise
// allocate a brand new room at the coordinate the direction implies.
func (w *Worker) autoMap(dir mapper.Direction) {
	snap := w.cfg.Snapshot()
	room := w.mapStore.Rooms[w.currentVnum]

	if snap.AutoMerging && w.roomName != "" {
		candidates := w.mapStore.RoomsByNameAndDesc(w.roomName, w.description)
		if len(candidates) == 1 {
			target := candidates[0]
			room.SetExit(dir, mapper.NewExit(target))
			targetRoom := w.mapStore.Rooms[target]
			if targetRoom.Exit(dir.Reverse()) == nil {
				targetRoom.SetExit(dir.Reverse(), mapper.NewExit(w.currentVnum))
			}
			w.currentVnum = target
			w.moved = true
			return
		}
	}

	newRoom := mapper.NewRoom()
	dx, dy, dz := dir.Delta()
	newRoom.X, newRoom.Y, newRoom.Z = room.X+dx, room.Y+dy, room.Z+dz
	newVnum := w.mapStore.AddRoom(newRoom)
	room.SetExit(dir, mapper.NewExit(newVnum))

	w.addedNewRoomFrom = w.currentVnum
	w.addedNewRoomDir = dir
	w.currentVnum = newVnum
	w.moved = true
}

// updateCurrentRoom applies auto-update (spec.md §4.5.6), prompt-driven
// flag updates (spec.md §4.5.7), and exits-flag updates (spec.md §4.5.8)
// to the room the worker is currently synced to.
func (w *Worker) updateCurrentRoom(promptFlags mapper.PromptFlags) {
	room := w.mapStore.Rooms[w.currentVnum]
	if room == nil {
		return
	}
	snap := w.cfg.Snapshot()

	if snap.AutoUpdating {
		if w.roomName != "" && room.Name != w.roomName {
			room.Name = w.roomName
		}
		if w.description != "" && room.StaticDesc != w.description {
			room.StaticDesc = w.description
		}
		if w.dynamic != "" && room.DynamicDesc != w.dynamic {
			room.SetDynamicDesc(w.dynamic)
		}
	}

	// Only "death" is a protected terrain sentinel; "random" is not
	// (SPEC_FULL.md §9's resolution of the source's
	// `terrain not in (terrain, "random", "death")` guard).
	if promptFlags.HasTerrain && room.Terrain != mapper.TerrainDeath && room.Terrain != promptFlags.Terrain {
		room.SetTerrain(promptFlags.Terrain)
	}
	if promptFlags.HasLight && room.Light != promptFlags.Light {
		room.Light = promptFlags.Light
	}
	// The prompt's movement flags only ever positively signal "mounted";
	// their absence means "on foot this turn", not "room is unridable"
	// (original_source/mapperproxy/mapper/mapper.py:405-407 only ever sets
	// ridable here, never notridable — that comes from the explicit "It's
	// too difficult to ride here." message instead, mapper.py:345).
	if promptFlags.Ridable() && room.Ridable != mapper.RidableYes {
		room.SetRidable(mapper.RidableYes)
	}

	if w.exits != "" {
		w.applyExitTokens(room)
	}
	if w.addedNewRoomFrom != "" {
		w.wireReverseExit(room)
	}
}

// applyExitTokens parses the exits event text and, for each mentioned
// direction (portals excluded), creates the exit if missing -
// auto-linking it to a neighboring room at the implied coordinate when one
// exists - and adds the door/road/climb flags the tokens carry.
func (w *Worker) applyExitTokens(room *mapper.Room) {
	for _, tok := range mapper.ParseExitTokens(w.exits) {
		if tok.Portal {
			continue
		}
		exit := room.Exit(tok.Direction)
		if exit == nil {
			exit = w.linkOrStubExit(room, tok.Direction)
			room.SetExit(tok.Direction, exit)
		}
		if tok.Door {
			exit.Flags.Add("door")
		}
		if tok.Road {
			exit.Flags.Add("road")
		}
		if tok.Climb {
			exit.Flags.Add("climb")
		}
	}
}

// linkOrStubExit looks for a room at the coordinate dir implies from room;
// if exactly one exists it links to it (wiring the reverse exit too, if
// undefined), otherwise it returns a stub exit targeting the undefined
// sentinel.
func (w *Worker) linkOrStubExit(room *mapper.Room, dir mapper.Direction) *mapper.Exit {
	dx, dy, dz := dir.Delta()
	tx, ty, tz := room.X+dx, room.Y+dy, room.Z+dz
	var match string
	matches := 0
	for vnum, r := range w.mapStore.Rooms {
		if r.X == tx && r.Y == ty && r.Z == tz {
			match = vnum
			matches++
		}
	}
	if matches != 1 {
		return mapper.NewExit(mapper.VnumUndefined)
	}
	target := w.mapStore.Rooms[match]
	if target.Exit(dir.Reverse()) == nil {
		target.SetExit(dir.Reverse(), mapper.NewExit(w.currentVnum))
	}
	return mapper.NewExit(match)
}

// wireReverseExit completes a room just created by autoMap: if its exits
// text mentions the direction leading back to the room the worker stepped
// from, and that exit is not already set, it is wired now.
func (w *Worker) wireReverseExit(room *mapper.Room) {
	reverse := w.addedNewRoomDir.Reverse()
	if room.Exit(reverse) != nil {
		return
	}
	for _, tok := range mapper.ParseExitTokens(w.exits) {
		if tok.Direction == reverse && !tok.Portal {
			room.SetExit(reverse, mapper.NewExit(w.addedNewRoomFrom))
			return
		}
	}
}

// emitRoomSummary sends the client a one-line room detail summary after a
// synced turn (spec.md §4.5.1's "room detail summary emission").
func (w *Worker) emitRoomSummary() {
	room := w.mapStore.Rooms[w.currentVnum]
	if room == nil {
		return
	}
	var dirs []string
	for _, d := range mapper.Directions {
		if room.Exit(d) != nil {
			dirs = append(dirs, string(d.Abbrev()))
		}
	}
	w.send("%s (%s) [%s] exits: %s", room.Name, w.currentVnum, room.Terrain, strings.Join(dirs, ""))
}

// attemptSync runs spec.md §4.5.2's sync(name, desc) algorithm using this
// turn's observed room name/description.
func (w *Worker) attemptSync() {
	if w.roomName == "" {
		return
	}
	w.syncByNameDesc(w.roomName, w.description)
}

// syncByNameDesc resolves sync ambiguity the way spec.md §4.5.2
// describes: collect every vnum whose name matches; if more than one, the
// description must narrow it to exactly one; if only one name matches,
// that is sufficient on its own.
func (w *Worker) syncByNameDesc(name, desc string) bool {
	nameMatches := w.mapStore.RoomsByName(name)
	if len(nameMatches) == 0 {
		return false
	}
	if len(nameMatches) == 1 {
		w.setCurrentVnum(nameMatches[0])
		return true
	}
	bothMatches := w.mapStore.RoomsByNameAndDesc(name, desc)
	if len(bothMatches) == 1 {
		w.setCurrentVnum(bothMatches[0])
		return true
	}
	return false
}

// syncByVnum resolves sync(vnum): labels first, then vnums directly.
func (w *Worker) syncByVnum(vnumOrLabel string) bool {
	vnum := vnumOrLabel
	if resolved, ok := w.mapStore.ResolveLabel(vnumOrLabel); ok {
		vnum = resolved
	}
	if _, ok := w.mapStore.Rooms[vnum]; !ok {
		return false
	}
	w.setCurrentVnum(vnum)
	return true
}

func (w *Worker) setCurrentVnum(vnum string) {
	w.currentVnum = vnum
	w.isSynced = true
}

// requireSynced fetches the current room, reporting the standard "not
// synced" message and returning ok=false if there is none.
func (w *Worker) requireSynced() (*mapper.Room, bool) {
	if !w.isSynced {
		w.send("Not synced to a room.")
		return nil, false
	}
	room := w.mapStore.Rooms[w.currentVnum]
	if room == nil {
		w.isSynced = false
		w.send("Not synced to a room.")
		return nil, false
	}
	return room, true
}
