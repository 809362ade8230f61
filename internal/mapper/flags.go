package mapper

// Flag sets below are the closed enumerations from
// original_source/mapperproxy/mapper/mapperconstants.py's MOB_FLAGS,
// LOAD_FLAGS, EXIT_FLAGS, and DOOR_FLAGS. Go has no native set type, so a
// FlagSet is a thin wrapper over map[string]bool with a fixed validity
// table per flag kind, mirroring the source's frozenset-backed constants.

// MobFlags is the closed set of mob-related room flags.
var MobFlags = map[string]bool{
	"rent":            true,
	"shop":            true,
	"weaponshop":      true,
	"armourshop":      true,
	"foodshop":        true,
	"petshop":         true,
	"guild":           true,
	"scoutguild":      true,
	"mageguild":       true,
	"clericguild":     true,
	"warriorguild":    true,
	"rangerguild":     true,
	"aggressive_mob":  true,
	"quest":           true,
	"any":             true,
	"reserved2":       true,
}

// LoadFlags is the closed set of load-related room flags.
var LoadFlags = map[string]bool{
	"treasure":     true,
	"armour":       true,
	"weapon":       true,
	"water":        true,
	"food":         true,
	"herb":         true,
	"key":          true,
	"mule":         true,
	"horse":        true,
	"pack_horse":   true,
	"trainedhorse": true,
	"rohirrim":     true,
	"warg":         true,
	"boat":         true,
	"attention":    true,
	"tower":        true,
}

// ExitFlags is the closed set of exit flags.
var ExitFlags = map[string]bool{
	"exit":     true,
	"door":     true,
	"road":     true,
	"climb":    true,
	"random":   true,
	"avoid":    true,
	"no_match": true,
	"flow":     true,
	"no_flee":  true,
	"damage":   true,
	"fall":     true,
	"guarded":  true,
}

// DoorFlags is the closed set of door flags.
var DoorFlags = map[string]bool{
	"hidden":     true,
	"need_key":   true,
	"no_block":   true,
	"no_break":   true,
	"no_pick":    true,
	"delayed":    true,
	"callable":   true,
	"knockable":  true,
	"magic":      true,
	"action":     true,
	"no_bash":    true,
}

// legacyFlagRewrite maps deprecated flag spellings (present in older map
// files) to their current name. Applied uniformly across mob/load/exit/door
// flags on load, per spec.md §4.7.
var legacyFlagRewrite = map[string]string{
	"packhorse": "pack_horse",
	"smob":      "aggressive_mob",
	"noblock":   "no_block",
	"nobreak":   "no_break",
	"nopick":    "no_pick",
	"needkey":   "need_key",
	"special":   "no_match",
}

// canonicalFlag applies the legacy rewrite table, returning the flag
// unchanged if it has no legacy spelling.
func canonicalFlag(name string) string {
	if renamed, ok := legacyFlagRewrite[name]; ok {
		return renamed
	}
	return name
}

// FlagSet is a set of string flags, serialized as a JSON array for
// readability in the map file.
type FlagSet map[string]bool

// NewFlagSet builds a FlagSet from a list of flag names, canonicalizing
// legacy spellings as it goes.
func NewFlagSet(names ...string) FlagSet {
	fs := make(FlagSet, len(names))
	for _, n := range names {
		fs[canonicalFlag(n)] = true
	}
	return fs
}

// Has reports whether the flag is present.
func (fs FlagSet) Has(name string) bool {
	return fs[canonicalFlag(name)]
}

// Add sets the flag, canonicalizing legacy spellings.
func (fs FlagSet) Add(name string) {
	fs[canonicalFlag(name)] = true
}

// Remove clears the flag.
func (fs FlagSet) Remove(name string) {
	delete(fs, canonicalFlag(name))
}

// Names returns the set's members as a slice, in no particular order.
func (fs FlagSet) Names() []string {
	names := make([]string, 0, len(fs))
	for n := range fs {
		names = append(names, n)
	}
	return names
}
