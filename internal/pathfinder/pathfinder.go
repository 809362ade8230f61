// Package pathfinder implements the map store's A* shortest-path search
// (spec.md §4.6), grounded on original_source/mapper/world.py's
// pathFind/_pathFind: a binary min-heap open set, a best-known-cost closed
// map, and the same edge-penalty formula (door/climb +5, avoid +1000,
// avoided terrain +10).
//
// The original builds its result as a list consumed back-to-front via
// repeated list.pop() calls, which lets a single flat list double as a
// stack spanning several planner turns. FindPath instead returns the plan
// in forward chronological order; callers consume it front-to-back. The
// two are equivalent: replaying the original's pop-from-tail order and
// reversing it yields exactly this slice.
package pathfinder

import (
	"container/heap"
	"fmt"

	"github.com/anicolao/mudproxy/internal/mapper"
)

// Step is one unit of an auto-walk plan. A Step equal to one of the six
// direction names is a bare movement, sent to the MUD as its first
// character; any other Step ("lead", "ride", "open <door> <dir>") is sent
// verbatim (spec.md §4.5.9).
type Step string

// Flags are pathfinder avoid-terrain requests of the form "no<terrain>"
// (spec.md §4.6), e.g. "nowater".
type Flags []string

// FindPath runs A* from origin to destination over m. It returns (nil,
// nil) when origin == destination, and a descriptive error when no route
// exists or either vnum is unknown.
func FindPath(m *mapper.Map, origin, destination string, flags Flags) ([]Step, error) {
	if origin == destination {
		return nil, nil
	}
	originRoom, ok := m.Rooms[origin]
	if !ok {
		return nil, fmt.Errorf("no room with vnum %s", origin)
	}
	if _, ok := m.Rooms[destination]; !ok {
		return nil, fmt.Errorf("no room with vnum %s", destination)
	}

	avoidTerrains := avoidTerrainSet(flags)

	type parentEdge struct {
		from string
		dir  mapper.Direction
	}
	parents := map[string]parentEdge{origin: {}}
	closed := map[string]float64{origin: originRoom.Cost()}

	open := &openSet{}
	heap.Init(open)
	seq := 0
	heap.Push(open, pqItem{cost: originRoom.Cost(), vnum: origin, seq: seq})
	seq++

	reached := false
	for open.Len() > 0 {
		cur := heap.Pop(open).(pqItem)
		if cur.vnum == destination {
			reached = true
			break
		}
		room := m.Rooms[cur.vnum]
		for dir, exit := range room.Exits {
			if exit.To == mapper.VnumUndefined || exit.To == mapper.VnumDeath {
				continue
			}
			neighbor, ok := m.Rooms[exit.To]
			if !ok {
				continue
			}
			penalty := 0.0
			if exit.Flags.Has("door") || exit.Flags.Has("climb") {
				penalty += 5
			}
			if exit.Flags.Has("avoid") {
				penalty += 1000
			}
			if avoidTerrains[neighbor.Terrain] {
				penalty += 10
			}
			candidateCost := cur.cost + neighbor.Cost() + penalty
			if best, ok := closed[exit.To]; !ok || candidateCost < best {
				closed[exit.To] = candidateCost
				heap.Push(open, pqItem{cost: candidateCost, vnum: exit.To, seq: seq})
				seq++
				parents[exit.To] = parentEdge{from: cur.vnum, dir: dir}
			}
		}
	}
	if !reached {
		return nil, fmt.Errorf("no routes found")
	}

	type edge struct {
		from, to string
		dir      mapper.Direction
	}
	var edges []edge
	v := destination
	for v != origin {
		p := parents[v]
		edges = append(edges, edge{from: p.from, to: v, dir: p.dir})
		v = p.from
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	var steps []Step
	for _, e := range edges {
		exit := m.Rooms[e.from].Exits[e.dir]
		if exit.Flags.Has("door") {
			doorName := exit.DoorName
			if doorName == "" {
				doorName = "exit"
			}
			steps = append(steps, Step(fmt.Sprintf("open %s %s", doorName, e.dir)))
		}
		if m.LeadBeforeEntering[e.to] && (!m.LeadBeforeEntering[e.from] || e.from == origin) {
			steps = append(steps, Step("lead"))
		}
		steps = append(steps, Step(e.dir))
		if m.LeadBeforeEntering[e.from] && !m.LeadBeforeEntering[e.to] && e.from != origin {
			steps = append(steps, Step("ride"))
		}
	}
	return steps, nil
}

func avoidTerrainSet(flags Flags) map[mapper.Terrain]bool {
	set := make(map[mapper.Terrain]bool)
	if len(flags) == 0 {
		return set
	}
	want := make(map[string]bool, len(flags))
	for _, f := range flags {
		want[f] = true
	}
	for _, t := range mapper.AllTerrains() {
		if want["no"+string(t)] {
			set[t] = true
		}
	}
	return set
}

type pqItem struct {
	cost float64
	vnum string
	seq  int
}

// openSet is a binary min-heap ordered by cost, with insertion order
// (seq) as the tiebreaker (spec.md §4.6: "ties in cost are broken by
// insertion order").
type openSet []pqItem

func (s openSet) Len() int { return len(s) }
func (s openSet) Less(i, j int) bool {
	if s[i].cost != s[j].cost {
		return s[i].cost < s[j].cost
	}
	return s[i].seq < s[j].seq
}
func (s openSet) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s *openSet) Push(x interface{}) {
	*s = append(*s, x.(pqItem))
}
func (s *openSet) Pop() interface{} {
	old := *s
	n := len(old)
	item := old[n-1]
	*s = old[:n-1]
	return item
}
