package worker

import (
	"strings"
	"testing"
	"time"

	"github.com/anicolao/mudproxy/internal/config"
	"github.com/anicolao/mudproxy/internal/mapper"
	"github.com/anicolao/mudproxy/internal/pathfinder"
)

// testHarness wires a Worker to in-memory client/server sinks so tests can
// assert on what the worker would have sent.
type testHarness struct {
	w           *Worker
	clientLines []string
	serverLines []string
}

func newHarness(m *mapper.Map) *testHarness {
	h := &testHarness{}
	cfg := config.Default()
	h.w = New(m, cfg, func(s string) {
		h.clientLines = append(h.clientLines, s)
	}, func(s string) {
		h.serverLines = append(h.serverLines, s)
	}, time.Unix(0, 0))
	return h
}

func (h *testHarness) event(name string, payload string) {
	h.w.events.Dispatch(name, []byte(payload))
}

func (h *testHarness) command(line string) {
	h.w.commands.Dispatch(line)
}

func tworoomMap() *mapper.Map {
	m := mapper.NewMap()
	a := mapper.NewRoom()
	a.Name = "A Dim Room"
	a.StaticDesc = "It is dark here."
	a.SetTerrain(mapper.TerrainField)
	b := mapper.NewRoom()
	b.Name = "A Bright Hall"
	b.StaticDesc = "Sunlight streams in."
	b.SetTerrain(mapper.TerrainField)
	m.Rooms["1"] = a
	m.Rooms["2"] = b
	a.SetExit(mapper.East, mapper.NewExit("2"))
	b.SetExit(mapper.West, mapper.NewExit("1"))
	return m
}

// threeRoomLineMap builds A-east->B-east->C, all default costs, matching
// spec.md's S5 scenario.
func threeRoomLineMap() *mapper.Map {
	m := mapper.NewMap()
	a := mapper.NewRoom()
	a.Name = "Room A"
	a.SetTerrain(mapper.TerrainField)
	b := mapper.NewRoom()
	b.Name = "Room B"
	b.SetTerrain(mapper.TerrainField)
	c := mapper.NewRoom()
	c.Name = "Room C"
	c.SetTerrain(mapper.TerrainField)
	m.Rooms["1"] = a
	m.Rooms["2"] = b
	m.Rooms["3"] = c
	a.SetExit(mapper.East, mapper.NewExit("2"))
	b.SetExit(mapper.West, mapper.NewExit("1"))
	b.SetExit(mapper.East, mapper.NewExit("3"))
	c.SetExit(mapper.West, mapper.NewExit("2"))
	return m
}

func TestPathReportsCompressedSpeedwalk(t *testing.T) {
	m := threeRoomLineMap()
	h := newHarness(m)
	h.w.setCurrentVnum("1")

	h.command("path 3")

	if len(h.clientLines) != 1 || h.clientLines[0] != "2e" {
		t.Fatalf("clientLines = %v, want a single speedwalk line %q", h.clientLines, "2e")
	}
}

func TestFormatSpeedwalkCompressesRunsAndPassesCompoundStepsThrough(t *testing.T) {
	steps := []pathfinder.Step{"north", "north", "north", "open door north", "east", "east"}
	got := formatSpeedwalk(steps)
	want := "3n open door north 2e"
	if got != want {
		t.Errorf("formatSpeedwalk(%v) = %q, want %q", steps, got, want)
	}
}

func TestSyncByNameAndDescription(t *testing.T) {
	m := tworoomMap()
	h := newHarness(m)

	h.event("name", "A Dim Room")
	h.event("description", "It is dark here.")
	h.event("prompt", "xx")

	if !h.w.isSynced {
		t.Fatal("expected worker to be synced after matching name+description")
	}
	if h.w.currentVnum != "1" {
		t.Errorf("currentVnum = %q, want %q", h.w.currentVnum, "1")
	}
}

func TestSyncByUniqueNameAlone(t *testing.T) {
	m := tworoomMap()
	h := newHarness(m)

	h.event("name", "A Bright Hall")
	h.event("prompt", "xx")

	if !h.w.isSynced || h.w.currentVnum != "2" {
		t.Fatalf("expected sync to vnum 2, got synced=%v vnum=%q", h.w.isSynced, h.w.currentVnum)
	}
}

func TestMovementFollowsKnownExit(t *testing.T) {
	m := tworoomMap()
	h := newHarness(m)
	h.w.setCurrentVnum("1")

	h.event("movement", "east")
	h.event("prompt", "xx")

	if h.w.currentVnum != "2" {
		t.Errorf("currentVnum = %q, want %q after following east exit", h.w.currentVnum, "2")
	}
	if !h.w.isSynced {
		t.Error("expected worker to remain synced after following a known exit")
	}
}

func TestMovementWithNoMudDirectionDropsSync(t *testing.T) {
	m := tworoomMap()
	h := newHarness(m)
	h.w.setCurrentVnum("1")

	h.event("movement", "flee")
	h.event("prompt", "xx")

	if h.w.isSynced {
		t.Error("expected sync to be dropped after a non-direction movement value")
	}
}

func TestAutoMapCreatesRoomOnDanglingExit(t *testing.T) {
	m := tworoomMap()
	h := newHarness(m)
	h.w.setCurrentVnum("2")

	h.event("movement", "north")
	h.event("name", "A New Clearing")
	h.event("description", "Trees surround you.")
	h.event("prompt", "xx")

	if !h.w.isSynced {
		t.Fatal("expected worker to stay synced via auto-map")
	}
	if h.w.currentVnum == "2" || h.w.currentVnum == "1" {
		t.Fatalf("currentVnum = %q, want a newly allocated vnum", h.w.currentVnum)
	}
	newRoom := m.Rooms[h.w.currentVnum]
	if newRoom == nil {
		t.Fatal("expected new room to be stored")
	}
	if newRoom.Name != "A New Clearing" {
		t.Errorf("new room name = %q, want %q", newRoom.Name, "A New Clearing")
	}
	origin := m.Rooms["2"]
	exit := origin.Exit(mapper.North)
	if exit == nil || exit.To != h.w.currentVnum {
		t.Errorf("origin room's north exit = %+v, want pointing at %q", exit, h.w.currentVnum)
	}
}

func TestAutoMapMergesOnExactNameAndDescriptionMatch(t *testing.T) {
	m := tworoomMap()
	h := newHarness(m)
	h.w.setCurrentVnum("1")

	// Room "2" is a name+description match for what the south exit leads
	// to, even though no south exit is defined yet.
	h.event("movement", "south")
	h.event("name", "A Bright Hall")
	h.event("description", "Sunlight streams in.")
	h.event("prompt", "xx")

	if h.w.currentVnum != "2" {
		t.Errorf("currentVnum = %q, want merge onto existing room %q", h.w.currentVnum, "2")
	}
	if len(m.Rooms) != 2 {
		t.Errorf("len(m.Rooms) = %d, want 2 (no new room created on merge)", len(m.Rooms))
	}
	southExit := m.Rooms["1"].Exit(mapper.South)
	if southExit == nil || southExit.To != "2" {
		t.Errorf("room 1's south exit = %+v, want pointing at 2", southExit)
	}
}

func TestScoutingSuppressesRoomEvents(t *testing.T) {
	m := tworoomMap()
	h := newHarness(m)
	h.w.setCurrentVnum("1")

	h.event("line", "You quietly scout south.")
	h.event("name", "Somewhere Else Entirely")
	h.event("description", "This should be discarded.")
	h.event("prompt", "xx")

	if h.w.currentVnum != "1" {
		t.Errorf("currentVnum changed to %q during scouting, want unchanged %q", h.w.currentVnum, "1")
	}
	if m.Rooms["1"].Name != "A Dim Room" {
		t.Errorf("room 1's name was overwritten by a scouted room's name: %q", m.Rooms["1"].Name)
	}
}

func TestForcedMovementDropsSyncExceptRootsBounce(t *testing.T) {
	m := tworoomMap()
	h := newHarness(m)
	h.w.setCurrentVnum("1")

	h.event("line", "You feel confused and move along randomly...")
	if h.w.isSynced {
		t.Error("expected forced movement to drop sync")
	}

	h.w.setCurrentVnum("1")
	h.event("line", "You can't seem to escape the roots!")
	if !h.w.isSynced {
		t.Error("expected the roots bounce to leave sync intact")
	}
}

func TestPreventedMovementStopsAutoWalk(t *testing.T) {
	m := tworoomMap()
	h := newHarness(m)
	h.w.setCurrentVnum("1")
	h.w.walking = true
	h.w.walkSteps = []pathfinder.Step{pathfinder.Step("east")}

	h.event("line", "It seems to be locked.")

	if h.w.walking {
		t.Error("expected prevented movement to cancel the auto-walk")
	}
}

func TestPromptUpdatesTerrainAndLightExceptWhenDead(t *testing.T) {
	m := tworoomMap()
	h := newHarness(m)
	h.w.setCurrentVnum("1")

	h.event("prompt", "o+") // dark light glyph, road terrain glyph

	room := m.Rooms["1"]
	if room.Light != mapper.LightDark {
		t.Errorf("room light = %q, want %q", room.Light, mapper.LightDark)
	}
	if room.Terrain != mapper.TerrainRoad {
		t.Errorf("room terrain = %q, want %q", room.Terrain, mapper.TerrainRoad)
	}

	room.SetTerrain(mapper.TerrainDeath)
	h.event("prompt", "o.")
	if room.Terrain != mapper.TerrainDeath {
		t.Errorf("room terrain = %q, want protected %q", room.Terrain, mapper.TerrainDeath)
	}
}

func TestRunWalksThenAnnouncesArrival(t *testing.T) {
	m := tworoomMap()
	h := newHarness(m)
	h.w.setCurrentVnum("1")

	h.command("run 2")
	if len(h.serverLines) != 1 || h.serverLines[0] != "e" {
		t.Fatalf("serverLines = %v, want a single \"e\" step", h.serverLines)
	}

	// Next turn: following the exit lands on vnum 2 and the walk is
	// exhausted, so the following prompt should announce arrival.
	h.event("movement", "east")
	h.event("prompt", "xx")
	h.event("prompt", "xx")

	found := false
	for _, l := range h.clientLines {
		if strings.Contains(l, "Arriving at destination.") {
			found = true
		}
	}
	if !found {
		t.Errorf("clientLines = %v, want an arrival announcement", h.clientLines)
	}
}

func TestRdeleteDropsSyncAndRewritesIncomingExits(t *testing.T) {
	m := tworoomMap()
	h := newHarness(m)
	h.w.setCurrentVnum("2")

	h.command("rdelete")

	if h.w.isSynced {
		t.Error("expected rdelete to drop sync")
	}
	if _, ok := m.Rooms["2"]; ok {
		t.Error("expected room 2 to be removed from the store")
	}
	exit := m.Rooms["1"].Exit(mapper.East)
	if exit == nil || exit.To != mapper.VnumUndefined {
		t.Errorf("room 1's east exit = %+v, want rewritten to undefined", exit)
	}
}
