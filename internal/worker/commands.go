package worker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/anicolao/mudproxy/internal/mapper"
)

// registerCommands installs the mapper command set enumerated in spec.md
// §6, grounded room-by-room on original_source/mapper/world.py and
// mapperworld.py's World class (rnote/ralign/rlight/rportable/rridable/
// ravoid/rterrain/rx/ry/rz/rmobflags/rloadflags/exitflags/doorflags/
// secret/rlink/rinfo/rdelete/rlabel/getlabel/searchRooms/createSpeedWalk/
// pathFind), and on mapper.py's user_command_* family for the
// toggles, sync, and timer commands.
func (w *Worker) registerCommands() {
	w.commands.Register("automap", w.cmdAutoToggle("automap", func() bool { return w.cfg.Snapshot().AutoMapping }, w.cfg.SetAutoMapping))
	w.commands.Register("autoupdate", w.cmdAutoToggle("autoupdate", func() bool { return w.cfg.Snapshot().AutoUpdating }, w.cfg.SetAutoUpdating))
	w.commands.Register("automerge", w.cmdAutoToggle("automerge", func() bool { return w.cfg.Snapshot().AutoMerging }, w.cfg.SetAutoMerging))
	w.commands.Register("autolink", w.cmdAutoToggle("autolink", func() bool { return w.cfg.Snapshot().AutoLinking }, w.cfg.SetAutoLinking))

	w.commands.Register("run", w.cmdRun)
	w.commands.Register("stop", w.cmdStop)
	w.commands.Register("path", w.cmdPath)
	w.commands.Register("step", w.cmdStep)
	w.commands.Register("sync", w.cmdSync)

	w.commands.Register("vnum", w.cmdVnum)
	w.commands.Register("tvnum", w.cmdTvnum)
	w.commands.Register("rinfo", w.cmdRinfo)
	w.commands.Register("rnote", w.cmdRnote)
	w.commands.Register("ralign", w.cmdRalign)
	w.commands.Register("rlight", w.cmdRlight)
	w.commands.Register("rportable", w.cmdRportable)
	w.commands.Register("rridable", w.cmdRridable)
	w.commands.Register("ravoid", w.cmdRavoid)
	w.commands.Register("rterrain", w.cmdRterrain)
	w.commands.Register("rx", w.cmdRcoord(coordX))
	w.commands.Register("ry", w.cmdRcoord(coordY))
	w.commands.Register("rz", w.cmdRcoord(coordZ))
	w.commands.Register("rmobflags", w.cmdRflags(mapper.MobFlags, func(r *mapper.Room) mapper.FlagSet { return r.MobFlags }))
	w.commands.Register("rloadflags", w.cmdRflags(mapper.LoadFlags, func(r *mapper.Room) mapper.FlagSet { return r.LoadFlags }))
	w.commands.Register("exitflags", w.cmdExitFlags(mapper.ExitFlags, func(e *mapper.Exit) mapper.FlagSet { return e.Flags }))
	w.commands.Register("doorflags", w.cmdExitFlags(mapper.DoorFlags, func(e *mapper.Exit) mapper.FlagSet { return e.DoorFlags }))
	w.commands.Register("secret", w.cmdSecret)
	w.commands.Register("rlink", w.cmdRlink)
	w.commands.Register("rdelete", w.cmdRdelete)
	w.commands.Register("rlabel", w.cmdRlabel)
	w.commands.Register("getlabel", w.cmdGetlabel)
	w.commands.Register("savemap", w.cmdSavemap)

	w.commands.Register("fdoor", w.cmdFdoor)
	w.commands.Register("fdynamic", w.cmdFfield("dynamic description", func(r *mapper.Room) string { return r.DynamicDesc }))
	w.commands.Register("fname", w.cmdFfield("name", func(r *mapper.Room) string { return r.Name }))
	w.commands.Register("fnote", w.cmdFfield("note", func(r *mapper.Room) string { return r.Note }))
	w.commands.Register("flabel", w.cmdFlabel)

	w.commands.Register("gettimer", w.cmdGettimer)
	w.commands.Register("gettimerms", w.cmdGettimerms)
	w.commands.Register("secretaction", w.cmdSecretaction)

	// clock/emu/maphelp belong to the offline emulator REPL
	// (original_source/mapperproxy/mapper/emulation.py), which is out of
	// scope for this proxy. Registered so the dispatcher still recognizes
	// every name in spec.md §6's command list; each reports unavailability
	// rather than emulating the REPL.
	unavailable := func(name string) func(string) {
		return func(string) { w.send("%s is not available in this proxy.", name) }
	}
	w.commands.Register("clock", unavailable("clock"))
	w.commands.Register("emu", unavailable("emu"))
	w.commands.Register("maphelp", unavailable("maphelp"))
}

// parseDirection accepts either a full direction name or its one-letter
// abbreviation.
func parseDirection(s string) (mapper.Direction, bool) {
	d := mapper.Direction(strings.ToLower(strings.TrimSpace(s)))
	if d.Valid() {
		return d, true
	}
	if len(s) == 1 {
		if dir, ok := mapper.DirectionFromAbbrev(s[0]); ok {
			return dir, true
		}
	}
	return "", false
}

func (w *Worker) cmdStep(args string) {
	dir, ok := parseDirection(args)
	if !ok {
		w.send("Unknown direction: %s", args)
		return
	}
	w.serverSend(fmt.Sprintf("%c", dir.Abbrev()))
}

func (w *Worker) cmdSync(args string) {
	args = strings.TrimSpace(args)
	if args != "" {
		if w.syncByVnum(args) {
			w.send("Synced to %s.", w.currentVnum)
			return
		}
		w.send("No such room or label: %s", args)
		return
	}
	if w.roomName == "" {
		w.send("No room information available to sync with.")
		return
	}
	if w.syncByNameDesc(w.roomName, w.description) {
		w.send("Synced to %s.", w.currentVnum)
		return
	}
	w.send("Unable to sync: ambiguous or unknown room.")
}

func (w *Worker) cmdVnum(string) {
	if !w.isSynced {
		w.send("Not synced to a room.")
		return
	}
	w.send("%s", w.currentVnum)
}

func (w *Worker) cmdTvnum(args string) {
	room, ok := w.requireSynced()
	if !ok {
		return
	}
	dir, ok := parseDirection(args)
	if !ok {
		w.send("Unknown direction: %s", args)
		return
	}
	exit := room.Exit(dir)
	if exit == nil {
		w.send("No exit %s.", dir)
		return
	}
	w.send("%s", exit.To)
}

func (w *Worker) cmdRinfo(string) {
	room, ok := w.requireSynced()
	if !ok {
		return
	}
	var dirs []string
	for _, d := range mapper.Directions {
		if e := room.Exit(d); e != nil {
			dirs = append(dirs, fmt.Sprintf("%s->%s", d, e.To))
		}
	}
	w.send("vnum=%s name=%q terrain=%s light=%s align=%s portable=%v ridable=%s avoid=%v note=%q coords=(%d,%d,%d) exits=[%s]",
		w.currentVnum, room.Name, room.Terrain, room.Light, room.Align, room.Portable, room.Ridable, room.Avoid, room.Note,
		room.X, room.Y, room.Z, strings.Join(dirs, ", "))
}

func (w *Worker) cmdRnote(args string) {
	room, ok := w.requireSynced()
	if !ok {
		return
	}
	args = strings.TrimSpace(args)
	if room.Note == "" {
		room.Note = args
	} else {
		room.Note = room.Note + "; " + args
	}
	w.send("Note set.")
}

func (w *Worker) cmdRalign(args string) {
	room, ok := w.requireSynced()
	if !ok {
		return
	}
	room.Align = strings.TrimSpace(args)
	w.send("Alignment set to %s.", room.Align)
}

func (w *Worker) cmdRlight(args string) {
	room, ok := w.requireSynced()
	if !ok {
		return
	}
	light := mapper.Light(strings.ToLower(strings.TrimSpace(args)))
	switch light {
	case mapper.LightLit, mapper.LightDark, mapper.LightUndefined:
		room.Light = light
		w.send("Light set to %s.", light)
	default:
		w.send("Unknown light value: %s", args)
	}
}

func (w *Worker) cmdRportable(string) {
	room, ok := w.requireSynced()
	if !ok {
		return
	}
	room.Portable = !room.Portable
	w.send("Portable: %v", room.Portable)
}

func (w *Worker) cmdRridable(string) {
	room, ok := w.requireSynced()
	if !ok {
		return
	}
	if room.Ridable == mapper.RidableYes {
		room.SetRidable(mapper.RidableNo)
	} else {
		room.SetRidable(mapper.RidableYes)
	}
	w.send("Ridable: %s", room.Ridable)
}

func (w *Worker) cmdRavoid(string) {
	room, ok := w.requireSynced()
	if !ok {
		return
	}
	room.SetAvoid(!room.Avoid)
	w.send("Avoid: %v", room.Avoid)
}

func (w *Worker) cmdRterrain(args string) {
	room, ok := w.requireSynced()
	if !ok {
		return
	}
	terrain := mapper.Terrain(strings.ToLower(strings.TrimSpace(args)))
	if !terrain.Valid() {
		w.send("Unknown terrain: %s", args)
		return
	}
	room.SetTerrain(terrain)
	w.send("Terrain set to %s.", terrain)
}

type coordAxis int

const (
	coordX coordAxis = iota
	coordY
	coordZ
)

func (w *Worker) cmdRcoord(a coordAxis) func(string) {
	return func(args string) {
		room, ok := w.requireSynced()
		if !ok {
			return
		}
		args = strings.TrimSpace(args)
		n, err := strconv.Atoi(strings.TrimPrefix(args, "+"))
		if err != nil {
			w.send("Not a number: %s", args)
			return
		}
		relative := strings.HasPrefix(args, "+") || strings.HasPrefix(args, "-")
		switch a {
		case coordX:
			if relative {
				room.X += n
			} else {
				room.X = n
			}
			w.send("x=%d", room.X)
		case coordY:
			if relative {
				room.Y += n
			} else {
				room.Y = n
			}
			w.send("y=%d", room.Y)
		case coordZ:
			if relative {
				room.Z += n
			} else {
				room.Z = n
			}
			w.send("z=%d", room.Z)
		}
	}
}

func (w *Worker) cmdRflags(valid map[string]bool, get func(*mapper.Room) mapper.FlagSet) func(string) {
	return func(args string) {
		room, ok := w.requireSynced()
		if !ok {
			return
		}
		action, name, ok := splitActionFlag(args)
		if !ok {
			w.send("Usage: <add|remove> <flag>")
			return
		}
		if !valid[canonicalizeFlag(name)] {
			w.send("Unknown flag: %s", name)
			return
		}
		set := get(room)
		if action == "remove" {
			set.Remove(name)
		} else {
			set.Add(name)
		}
		w.send("%s: %v", name, set.Has(name))
	}
}

func (w *Worker) cmdExitFlags(valid map[string]bool, get func(*mapper.Exit) mapper.FlagSet) func(string) {
	return func(args string) {
		room, ok := w.requireSynced()
		if !ok {
			return
		}
		fields := strings.Fields(args)
		if len(fields) < 3 {
			w.send("Usage: <direction> <add|remove> <flag>")
			return
		}
		dir, ok := parseDirection(fields[0])
		if !ok {
			w.send("Unknown direction: %s", fields[0])
			return
		}
		exit := room.Exit(dir)
		if exit == nil {
			w.send("No exit %s.", dir)
			return
		}
		action, name, ok := splitActionFlag(strings.Join(fields[1:], " "))
		if !ok {
			w.send("Usage: <direction> <add|remove> <flag>")
			return
		}
		if !valid[canonicalizeFlag(name)] {
			w.send("Unknown flag: %s", name)
			return
		}
		set := get(exit)
		if action == "remove" {
			set.Remove(name)
		} else {
			set.Add(name)
		}
		w.send("%s %s: %v", dir, name, set.Has(name))
	}
}

func splitActionFlag(args string) (action, name string, ok bool) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", "", false
	}
	action = strings.ToLower(fields[0])
	if action != "add" && action != "remove" {
		return "", "", false
	}
	return action, fields[1], true
}

func canonicalizeFlag(name string) string {
	fs := mapper.NewFlagSet(name)
	for n := range fs {
		return n
	}
	return name
}

func (w *Worker) cmdSecret(args string) {
	room, ok := w.requireSynced()
	if !ok {
		return
	}
	fields := strings.Fields(args)
	if len(fields) < 2 {
		w.send("Usage: secret <direction> <door name>")
		return
	}
	dir, ok := parseDirection(fields[0])
	if !ok {
		w.send("Unknown direction: %s", fields[0])
		return
	}
	exit := room.Exit(dir)
	if exit == nil {
		exit = mapper.NewExit(mapper.VnumUndefined)
		room.SetExit(dir, exit)
	}
	exit.DoorName = strings.Join(fields[1:], " ")
	exit.Flags.Add("door")
	exit.DoorFlags.Add("hidden")
	w.send("%s is now a secret door named %q.", dir, exit.DoorName)
}

func (w *Worker) cmdRlink(args string) {
	room, ok := w.requireSynced()
	if !ok {
		return
	}
	fields := strings.Fields(args)
	if len(fields) != 2 {
		w.send("Usage: rlink <direction> <vnum|label>")
		return
	}
	dir, ok := parseDirection(fields[0])
	if !ok {
		w.send("Unknown direction: %s", fields[0])
		return
	}
	target, ok := w.resolveDestination(fields[1])
	if !ok {
		w.send("No such room or label: %s", fields[1])
		return
	}
	room.SetExit(dir, mapper.NewExit(target))
	targetRoom := w.mapStore.Rooms[target]
	if targetRoom.Exit(dir.Reverse()) == nil {
		targetRoom.SetExit(dir.Reverse(), mapper.NewExit(w.currentVnum))
	}
	w.send("Linked %s to %s.", dir, target)
}

func (w *Worker) cmdRdelete(string) {
	if !w.isSynced {
		w.send("Not synced to a room.")
		return
	}
	vnum := w.currentVnum
	w.mapStore.RDelete(vnum)
	w.isSynced = false
	w.currentVnum = ""
	w.send("Deleted room %s.", vnum)
}

func (w *Worker) cmdRlabel(args string) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		w.send("Usage: rlabel <add|remove> <label> [vnum]")
		return
	}
	action := strings.ToLower(fields[0])
	label := fields[1]
	switch action {
	case "add":
		vnum := w.currentVnum
		if len(fields) >= 3 {
			vnum = fields[2]
		}
		if vnum == "" {
			w.send("Not synced to a room.")
			return
		}
		if _, ok := w.mapStore.Rooms[vnum]; !ok {
			w.send("No such room: %s", vnum)
			return
		}
		w.mapStore.SetLabel(label, vnum)
		w.send("Label %s set to %s.", label, vnum)
	case "remove":
		delete(w.mapStore.Labels, label)
		w.send("Label %s removed.", label)
	default:
		w.send("Usage: rlabel <add|remove> <label> [vnum]")
	}
}

func (w *Worker) cmdGetlabel(args string) {
	label := strings.TrimSpace(args)
	if label == "" {
		var labels []string
		for l := range w.mapStore.Labels {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		var out []string
		for _, l := range labels {
			out = append(out, fmt.Sprintf("%s -> %s", l, w.mapStore.Labels[l]))
		}
		w.sendResults(out)
		return
	}
	vnum, ok := w.mapStore.ResolveLabel(label)
	if !ok {
		w.send("No such label: %s", label)
		return
	}
	w.send("%s", vnum)
}

func (w *Worker) cmdSavemap(string) {
	if err := w.mapStore.Save(); err != nil {
		w.send("Failed to save map: %s", err)
		return
	}
	w.send("Map saved.")
}

// cmdAutoToggle builds a handler for the automap/autoupdate/automerge/
// autolink commands: a bare toggle, or an explicit "on"/"off" argument.
// get reads the flag's current value; set persists a new one (one of
// ProxyConfig's SetAutoMapping/SetAutoUpdating/SetAutoMerging/
// SetAutoLinking methods).
func (w *Worker) cmdAutoToggle(name string, get func() bool, set func(bool) error) func(string) {
	return func(args string) {
		next := !get()
		switch strings.ToLower(strings.TrimSpace(args)) {
		case "on":
			next = true
		case "off":
			next = false
		}
		if err := set(next); err != nil {
			w.send("Failed to save config: %s", err)
			return
		}
		w.send("%s: %v", name, next)
	}
}

func (w *Worker) cmdGettimer(string) {
	w.send("%d", w.timer.Seconds())
}

func (w *Worker) cmdGettimerms(string) {
	w.send("%d", w.timer.Milliseconds())
}

// cmdSecretaction sends its argument straight to the server, a thin
// passthrough used for manual hidden-exit search macros (e.g. "search
// east") that does not warrant its own client-side state.
func (w *Worker) cmdSecretaction(args string) {
	w.serverSend(args)
}

func (w *Worker) sendResults(lines []string) {
	if len(lines) == 0 {
		w.send("Nothing found.")
		return
	}
	w.send("%s", strings.Join(lines, "\n"))
}

const findResultCap = 20

func (w *Worker) sortedVnums() []string {
	vnums := make([]string, 0, len(w.mapStore.Rooms))
	for vnum := range w.mapStore.Rooms {
		vnums = append(vnums, vnum)
	}
	sort.Strings(vnums)
	return vnums
}

// cmdFfield builds a find-command over a single string room field
// (fname/fdynamic/fnote), grounded on original_source/mapper/world.py's
// fname/fdynamic/fnote - simplified to a plain "vnum: value" listing,
// dropping the original's findFormat template parameter and
// clockPosition/manhattanDistance display helpers (both graphical-map-
// renderer-adjacent, out of the core's scope per spec.md §1/§6).
func (w *Worker) cmdFfield(label string, get func(*mapper.Room) string) func(string) {
	return func(args string) {
		substr := strings.ToLower(strings.TrimSpace(args))
		var out []string
		for _, vnum := range w.sortedVnums() {
			val := get(w.mapStore.Rooms[vnum])
			if val == "" || (substr != "" && !strings.Contains(strings.ToLower(val), substr)) {
				continue
			}
			out = append(out, fmt.Sprintf("%s: %s", vnum, val))
			if len(out) >= findResultCap {
				break
			}
		}
		if len(out) == 0 {
			w.send("No rooms with a matching %s.", label)
			return
		}
		w.sendResults(out)
	}
}

func (w *Worker) cmdFdoor(args string) {
	substr := strings.ToLower(strings.TrimSpace(args))
	var out []string
outer:
	for _, vnum := range w.sortedVnums() {
		room := w.mapStore.Rooms[vnum]
		for _, dir := range mapper.Directions {
			exit := room.Exit(dir)
			if exit == nil || exit.DoorName == "" {
				continue
			}
			if substr != "" && !strings.Contains(strings.ToLower(exit.DoorName), substr) {
				continue
			}
			out = append(out, fmt.Sprintf("%s %s: %s", vnum, dir, exit.DoorName))
			if len(out) >= findResultCap {
				break outer
			}
		}
	}
	w.sendResults(out)
}

func (w *Worker) cmdFlabel(args string) {
	substr := strings.ToLower(strings.TrimSpace(args))
	var labels []string
	for l := range w.mapStore.Labels {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	var out []string
	for _, l := range labels {
		if substr != "" && !strings.Contains(strings.ToLower(l), substr) {
			continue
		}
		out = append(out, fmt.Sprintf("%s -> %s", l, w.mapStore.Labels[l]))
		if len(out) >= findResultCap {
			break
		}
	}
	w.sendResults(out)
}
