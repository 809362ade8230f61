package mapper

import "regexp"

// Vnum sentinels. An Exit.To equal to one of these is not a key into the
// room table (spec.md §3's invariant).
const (
	VnumUndefined = "undefined"
	VnumDeath     = "death"
)

// avoidDescriptionPattern matches a dynamic description indicating a room
// should be weighted as if it carried the avoid flag, grounded on the
// source's AVOID_DYNAMIC_DESC_REGEX convention (a hostile-mob/hazard blurb
// that is not itself reflected in static flags).
var avoidDescriptionPattern = regexp.MustCompile(`(?i)\b(hunt|prowl|guard)(s|ing)?\b`)

// Exit is one outgoing connection from a Room.
type Exit struct {
	To        string  `json:"to"`
	Flags     FlagSet `json:"flags"`
	DoorName  string  `json:"door_name,omitempty"`
	DoorFlags FlagSet `json:"door_flags,omitempty"`
}

// NewExit returns an Exit targeting to, with an empty flag set.
func NewExit(to string) *Exit {
	return &Exit{To: to, Flags: FlagSet{}, DoorFlags: FlagSet{}}
}

// Room is a single node in the map store's room graph, keyed externally by
// vnum (spec.md §3).
type Room struct {
	Name        string  `json:"name"`
	StaticDesc  string  `json:"static_desc"`
	DynamicDesc string  `json:"dynamic_desc"`
	Note        string  `json:"note"`
	Terrain     Terrain `json:"terrain"`
	Light       Light   `json:"light"`
	Align       string  `json:"align"`
	Portable    bool    `json:"portable"`
	Ridable     Ridable `json:"ridable"`
	Avoid       bool    `json:"avoid"`

	MobFlags  FlagSet `json:"mob_flags"`
	LoadFlags FlagSet `json:"load_flags"`

	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`

	Exits map[Direction]*Exit `json:"exits"`

	cost float64
}

// NewRoom returns an empty Room with sane zero-valued sentinel fields.
func NewRoom() *Room {
	r := &Room{
		Terrain:   TerrainUndefined,
		Light:     LightUndefined,
		Ridable:   RidableUndefined,
		MobFlags:  FlagSet{},
		LoadFlags: FlagSet{},
		Exits:     make(map[Direction]*Exit),
	}
	r.RecomputeCost()
	return r
}

// Cost is the room's cached movement cost, recomputed via RecomputeCost
// whenever terrain, avoid, ridable, or dynamic description change (spec.md
// §9's design note prefers cache-and-invalidate over recompute-on-access).
func (r *Room) Cost() float64 {
	return r.cost
}

// RecomputeCost applies spec.md §3's cost formula:
// terrain_base_cost + 1000 if avoid (or avoid-matching dynamic desc) + 5 if
// not ridable.
func (r *Room) RecomputeCost() {
	cost := r.Terrain.BaseCost()
	if r.Avoid || avoidDescriptionPattern.MatchString(r.DynamicDesc) {
		cost += 1000
	}
	if r.Ridable == RidableNo {
		cost += 5
	}
	r.cost = cost
}

// SetTerrain sets the terrain and recomputes cost.
func (r *Room) SetTerrain(t Terrain) {
	r.Terrain = t
	r.RecomputeCost()
}

// SetAvoid sets the avoid flag and recomputes cost.
func (r *Room) SetAvoid(avoid bool) {
	r.Avoid = avoid
	r.RecomputeCost()
}

// SetRidable sets the ridable state and recomputes cost.
func (r *Room) SetRidable(ridable Ridable) {
	r.Ridable = ridable
	r.RecomputeCost()
}

// SetDynamicDesc sets the dynamic description and recomputes cost (the
// avoid-pattern match depends on it).
func (r *Room) SetDynamicDesc(desc string) {
	r.DynamicDesc = desc
	r.RecomputeCost()
}

// Exit returns the room's exit in direction d, or nil if none exists.
func (r *Room) Exit(d Direction) *Exit {
	return r.Exits[d]
}

// SetExit installs (or replaces) the room's exit in direction d.
func (r *Room) SetExit(d Direction, e *Exit) {
	r.Exits[d] = e
}
