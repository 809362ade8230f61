package worker

import (
	"fmt"
	"strings"

	"github.com/anicolao/mudproxy/internal/mapper"
	"github.com/anicolao/mudproxy/internal/pathfinder"
)

// splitRunDestination separates a trailing "no<terrain>" pathfinder flag
// from the destination argument, grounded on
// original_source/mapperproxy/mapper/mapperconstants.py's
// RUN_DESTINATION_REGEX (destination, greedy; flags, one trailing token).
func splitRunDestination(args string) (destination string, flags pathfinder.Flags) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", nil
	}
	last := fields[len(fields)-1]
	if len(fields) > 1 && strings.HasPrefix(last, "no") {
		return strings.Join(fields[:len(fields)-1], " "), pathfinder.Flags{last}
	}
	return strings.Join(fields, " "), nil
}

// resolveDestination accepts a label, a vnum, or (if unambiguous) a room
// name, mirroring the destinations sync(name) itself accepts.
func (w *Worker) resolveDestination(dest string) (string, bool) {
	if vnum, ok := w.mapStore.ResolveLabel(dest); ok {
		return vnum, true
	}
	if _, ok := w.mapStore.Rooms[dest]; ok {
		return dest, true
	}
	matches := w.mapStore.RoomsByName(dest)
	if len(matches) == 1 {
		return matches[0], true
	}
	return "", false
}

func (w *Worker) cmdRun(args string) {
	if !w.isSynced {
		w.send("Can't run a path; not synced to a room.")
		return
	}
	dest, flags := splitRunDestination(args)
	if dest == "" {
		w.send("Usage: run <destination> [no<terrain>]")
		return
	}
	vnum, ok := w.resolveDestination(dest)
	if !ok {
		w.send("No such destination: %s", dest)
		return
	}
	steps, err := pathfinder.FindPath(w.mapStore, w.currentVnum, vnum, flags)
	if err != nil {
		w.send("%s", err.Error())
		return
	}
	if len(steps) == 0 {
		w.send("You are already there.")
		return
	}
	w.walkSteps = steps
	w.walkIndex = 0
	w.walking = true
	w.walkNextDirection()
}

func (w *Worker) cmdStop(string) {
	if !w.walking {
		w.send("Not walking.")
		return
	}
	w.stopWalk()
	w.send("Stopped.")
}

func (w *Worker) stopWalk() {
	w.walking = false
	w.walkSteps = nil
	w.walkIndex = 0
}

func (w *Worker) cmdPath(args string) {
	if !w.isSynced {
		w.send("Can't compute a path; not synced to a room.")
		return
	}
	dest, flags := splitRunDestination(args)
	vnum, ok := w.resolveDestination(dest)
	if !ok {
		w.send("No such destination: %s", dest)
		return
	}
	steps, err := pathfinder.FindPath(w.mapStore, w.currentVnum, vnum, flags)
	if err != nil {
		w.send("%s", err.Error())
		return
	}
	if len(steps) == 0 {
		w.send("You are already there.")
		return
	}
	w.send("%s", formatSpeedwalk(steps))
}

// formatSpeedwalk renders steps as a speedwalk string (glossary: Speedwalk,
// e.g. "3n2e" = north three times then east twice), grounded on
// original_source/mapper/world.py's createSpeedWalk (world.py:1027-1054):
// runs of consecutive bare directions compress to "<count><letter>" (a lone
// step in a run omits the count) and concatenate directly, while every other
// step ("lead", "ride", "open <door> <dir>") passes through verbatim,
// space-separated from its neighbors since it interrupts any run around it.
func formatSpeedwalk(steps []pathfinder.Step) string {
	var out strings.Builder
	run := byte(0)
	runLen := 0
	flushRun := func() {
		if runLen == 0 {
			return
		}
		if runLen == 1 {
			out.WriteByte(run)
		} else {
			fmt.Fprintf(&out, "%d%c", runLen, run)
		}
		runLen = 0
	}
	for _, s := range steps {
		dir := mapper.Direction(s)
		if !dir.Valid() {
			flushRun()
			if out.Len() > 0 {
				out.WriteByte(' ')
			}
			out.WriteString(string(s))
			out.WriteByte(' ')
			continue
		}
		abbrev := dir.Abbrev()
		if runLen > 0 && abbrev == run {
			runLen++
			continue
		}
		flushRun()
		run = abbrev
		runLen = 1
	}
	flushRun()
	return strings.TrimSpace(out.String())
}

// walkNextDirection sends the next queued step to the server, consuming
// the plan front-to-back (see internal/pathfinder's package doc for why
// that is the behavior-preserving direction for a Go-built plan). A bare
// direction step is sent as its single-letter abbreviation; every other
// step ("lead", "ride", "open <door> <dir>") is sent verbatim (spec.md
// §4.5.9).
func (w *Worker) walkNextDirection() {
	if w.walkIndex >= len(w.walkSteps) {
		w.stopWalk()
		w.send("Arriving at destination.")
		return
	}
	step := w.walkSteps[w.walkIndex]
	w.walkIndex++
	if dir := mapper.Direction(step); dir.Valid() {
		w.serverSend(fmt.Sprintf("%c", dir.Abbrev()))
		return
	}
	w.serverSend(string(step))
}
