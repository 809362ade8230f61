package mapper

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

//go:embed samples/*.json
var sampleFS embed.FS

// Map is the map store: persistent rooms, exits, and labels, plus the two
// caller-supplied vnum sets (AVOID_VNUMS, LEAD_BEFORE_ENTERING) the
// pathfinder and auto-walk engine consult. It is the sole owner of all Room
// and Exit instances (spec.md §3's ownership note); the mapper worker holds
// the only mutating handle.
type Map struct {
	Rooms  map[string]*Room
	Labels map[string]string

	AvoidVnums         map[string]bool
	LeadBeforeEntering map[string]bool

	roomsPath  string
	labelsPath string
}

// NewMap returns an empty, unpersisted Map.
func NewMap() *Map {
	return &Map{
		Rooms:              make(map[string]*Room),
		Labels:             make(map[string]string),
		AvoidVnums:         make(map[string]bool),
		LeadBeforeEntering: make(map[string]bool),
	}
}

// StoreDir returns the directory the map's rooms/labels files live in,
// honoring the same environment override as internal/config.
func StoreDir() (string, error) {
	if dir := os.Getenv("MUDPROXY_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".config", "mudproxy")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// roomsFile and labelsFile are the map store's two persisted files
// (spec.md §4.7); avoidFile and leadFile hold the two vnum sets. Each has
// an embedded sample under samples/ used when the file is missing.
const (
	roomsFile  = "rooms.json"
	labelsFile = "labels.json"
	avoidFile  = "avoid_vnums.json"
	leadFile   = "lead_before_entering.json"
)

// Load reads the map store from dir, falling back to the embedded sample
// for each file that does not exist there.
func Load(dir string) (*Map, error) {
	m := NewMap()
	m.roomsPath = filepath.Join(dir, roomsFile)
	m.labelsPath = filepath.Join(dir, labelsFile)

	if err := m.loadRooms(m.roomsPath); err != nil {
		return nil, err
	}
	if err := m.loadLabels(m.labelsPath); err != nil {
		return nil, err
	}
	m.purgeDanglingLabels()

	avoid, err := loadVnumSet(filepath.Join(dir, avoidFile), avoidFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read avoid-vnums file: %w", err)
	}
	m.AvoidVnums = avoid

	lead, err := loadVnumSet(filepath.Join(dir, leadFile), leadFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read lead-before-entering file: %w", err)
	}
	m.LeadBeforeEntering = lead

	return m, nil
}

// loadVnumSet reads a JSON array of vnum strings into a set, falling back
// to the embedded sample when path does not exist.
func loadVnumSet(path, sampleName string) (map[string]bool, error) {
	data, err := readWithSampleFallback(path, sampleName)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	if data == nil {
		return set, nil
	}
	var vnums []string
	if err := json.Unmarshal(data, &vnums); err != nil {
		return nil, fmt.Errorf("failed to parse vnum set: %w", err)
	}
	for _, v := range vnums {
		set[v] = true
	}
	return set, nil
}

func (m *Map) loadRooms(path string) error {
	data, err := readWithSampleFallback(path, roomsFile)
	if err != nil {
		return fmt.Errorf("failed to read rooms file: %w", err)
	}
	if data == nil {
		return nil
	}
	var rooms map[string]*Room
	if err := json.Unmarshal(data, &rooms); err != nil {
		return fmt.Errorf("failed to parse rooms file: %w", err)
	}
	for vnum, r := range rooms {
		if !r.Terrain.Valid() {
			r.Terrain = TerrainUndefined
		}
		if r.Exits == nil {
			r.Exits = make(map[Direction]*Exit)
		}
		for _, e := range r.Exits {
			if e.Flags == nil {
				e.Flags = FlagSet{}
			}
			if e.DoorFlags == nil {
				e.DoorFlags = FlagSet{}
			}
		}
		if r.MobFlags == nil {
			r.MobFlags = FlagSet{}
		}
		if r.LoadFlags == nil {
			r.LoadFlags = FlagSet{}
		}
		r.RecomputeCost()
		m.Rooms[vnum] = r
	}
	return nil
}

func (m *Map) loadLabels(path string) error {
	data, err := readWithSampleFallback(path, labelsFile)
	if err != nil {
		return fmt.Errorf("failed to read labels file: %w", err)
	}
	if data == nil {
		return nil
	}
	var labels map[string]string
	if err := json.Unmarshal(data, &labels); err != nil {
		return fmt.Errorf("failed to parse labels file: %w", err)
	}
	m.Labels = labels
	return nil
}

// readWithSampleFallback reads path, falling back to the embedded sample
// named sampleName (under internal/mapper/samples/) if path does not exist.
func readWithSampleFallback(path, sampleName string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	return sampleFS.ReadFile("samples/" + sampleName)
}

// purgeDanglingLabels drops labels whose vnum is no longer a room (spec.md
// §3's invariant: "labels whose vnum has been deleted are purged on load").
func (m *Map) purgeDanglingLabels() {
	for label, vnum := range m.Labels {
		if _, ok := m.Rooms[vnum]; !ok {
			delete(m.Labels, label)
		}
	}
}

// Save writes both the rooms and labels files, sorted by key and indented
// two spaces per spec.md §6.
func (m *Map) Save() error {
	roomsPath, labelsPath := m.roomsPath, m.labelsPath
	if roomsPath == "" || labelsPath == "" {
		dir, err := StoreDir()
		if err != nil {
			return err
		}
		if roomsPath == "" {
			roomsPath = filepath.Join(dir, roomsFile)
		}
		if labelsPath == "" {
			labelsPath = filepath.Join(dir, labelsFile)
		}
	}
	if err := writeAtomic(roomsPath, m.Rooms); err != nil {
		return fmt.Errorf("failed to write rooms file: %w", err)
	}
	if err := writeAtomic(labelsPath, m.Labels); err != nil {
		return fmt.Errorf("failed to write labels file: %w", err)
	}
	return nil
}

// writeAtomic marshals v as indented JSON and writes it via a temp-file
// rename, per spec.md §4.7's "write full file; SHOULD write-then-rename".
func writeAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// NewVnum allocates the next vnum: 1 + the largest numeric vnum currently
// in the store (spec.md §3).
func (m *Map) NewVnum() string {
	max := 0
	for vnum := range m.Rooms {
		n, err := strconv.Atoi(vnum)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}

// AddRoom allocates a vnum for r, stores it, and returns the vnum.
func (m *Map) AddRoom(r *Room) string {
	vnum := m.NewVnum()
	m.Rooms[vnum] = r
	return vnum
}

// RDelete removes the room at vnum, rewriting any incoming exit (in any
// other room) that targeted it to the undefined sentinel.
func (m *Map) RDelete(vnum string) {
	delete(m.Rooms, vnum)
	for _, r := range m.Rooms {
		for _, e := range r.Exits {
			if e.To == vnum {
				e.To = VnumUndefined
			}
		}
	}
	for label, target := range m.Labels {
		if target == vnum {
			delete(m.Labels, label)
		}
	}
}

// ResolveLabel resolves a label to its vnum, returning ok=false if the
// label is unknown.
func (m *Map) ResolveLabel(label string) (string, bool) {
	vnum, ok := m.Labels[label]
	return vnum, ok
}

// SetLabel records label as an alias for vnum.
func (m *Map) SetLabel(label, vnum string) {
	m.Labels[label] = vnum
}

// RoomsByName returns the vnums of all rooms whose Name equals name.
func (m *Map) RoomsByName(name string) []string {
	var vnums []string
	for vnum, r := range m.Rooms {
		if r.Name == name {
			vnums = append(vnums, vnum)
		}
	}
	return vnums
}

// RoomsByNameAndDesc returns the vnums of all rooms whose Name and
// StaticDesc both equal the given values.
func (m *Map) RoomsByNameAndDesc(name, desc string) []string {
	var vnums []string
	for vnum, r := range m.Rooms {
		if r.Name == name && r.StaticDesc == desc {
			vnums = append(vnums, vnum)
		}
	}
	return vnums
}
