package mapper

import "regexp"

// forcedMovementPattern and preventedMovementPattern are ported verbatim
// (translated to Go regexp syntax) from
// original_source/mapperproxy/mapper/mapperconstants.py's
// MOVEMENT_FORCED_REGEX and MOVEMENT_PREVENTED_REGEX, grounded on the
// same server message catalog (spec.md §4.5.10).
//
// forcedMovementPattern's first alternative carries a named "ignore"
// group for the "You can't seem to escape the roots!" message. Per the
// resolved open question in SPEC_FULL.md §9, a match on that branch is a
// no-op bounce (the room does not change, sync is not lost), unlike every
// other forced-movement message, which drops sync.
var forcedMovementPattern = regexp.MustCompile(`(?:` +
	`You can't seem to escape the (?P<ignore>roots)!` +
	`|You feel confused and move along randomly\.\.\.` +
	`|Suddenly an explosion of ancient rhymes makes the space collapse around you!` +
	`|The pain stops, your vision clears, and you realize that you are elsewhere\.` +
	`|A guard leads you out of the house\.` +
	`|You leave the ferry\.` +
	`|You reached the riverbank\.` +
	`|You stop moving towards the (?:left|right) bank and drift downstream\.` +
	`|You are borne along by a strong current\.` +
	`|You are swept away by the current\.` +
	`|You are swept away by the powerful current of water\.` +
	`|You board the ferry\.` +
	`|You are dead! Sorry\.\.\.` +
	`|With a jerk, the basket starts gliding down the rope towards the platform\.` +
	`|You cannot control your mount on the slanted and unstable surface! You begin to slide to the north, and plunge toward the water below!` +
	`|The current pulls you faster\. Suddenly, you are sucked downwards into darkness!` +
	`|You are washed blindly over the rocks, and plummet sickeningly downwards\.\.\.` +
	`|Oops! You walk off the bridge and fall into the rushing water below!` +
	`|Holding your breath and with closed eyes, you are squeezed below the surface of the water\.` +
	`|You tighten your grip as (?:a Great Eagle|Gwaihir the Windlord) starts to descend fast\.` +
	`|Stepping on the lizard corpses, you use some depressions in the wall for support, push the muddy ceiling apart and climb out of the cave\.` +
	`)`)

var preventedMovementPattern = regexp.MustCompile(`^(?:` +
	`The \w+ seems? to be closed\.` +
	`|It seems to be locked\.` +
	`|You cannot ride there\.` +
	`|Your boat cannot enter this place\.` +
	`|A guard steps in front of you\.` +
	`|The clerk bars your way\.` +
	`|You cannot go that way\.\.\.` +
	`|Alas, you cannot go that way\.\.\.` +
	`|You need to swim to go there\.` +
	`|You failed swimming there\.` +
	`|You failed to climb there and fall down, hurting yourself\.` +
	`|Your mount cannot climb the tree!` +
	`|No way! You are fighting for your life!` +
	`|In your dreams, or what\?` +
	`|You are too exhausted\.` +
	`|You unsuccessfully try to break through the ice\.` +
	`|Your mount refuses to follow your orders!` +
	`|You are too exhausted to ride\.` +
	`|You can't go into deep water!` +
	`|You don't control your mount!` +
	`|Your mount is too sensible to attempt such a feat\.` +
	`|Oops! You cannot go there riding!` +
	`|A (?:pony|dales-pony|horse|warhorse|pack horse|trained horse|horse of the Rohirrim|brown donkey|mountain mule|hungry warg|brown wolf)(?: \(\w+\))? (?:is too exhausted|doesn't want you riding (?:him|her|it) anymore)\.` +
	`|You'd better be swimming if you want to dive underwater\.` +
	`|You need to climb to go there\.` +
	`|You cannot climb there\.` +
	`|If you still want to try, you must 'climb' there\.` +
	`|.+ (?:prevents|keeps) you from going (?:north|south|east|west|up|down|upstairs|downstairs|past (?:him|her|it))\.` +
	`|Nah\.\.\. You feel too relaxed to do that\.` +
	`|Maybe you should get on your feet first\?` +
	`|Not from your present position!` +
	`)$`)

// ForcedMovementIgnore reports whether line matches the forced-movement
// set, and if so, whether the match is the "roots" branch that bounces
// without losing sync.
func ForcedMovementIgnore(line string) (matched, ignore bool) {
	m := forcedMovementPattern.FindStringSubmatch(line)
	if m == nil {
		return false, false
	}
	names := forcedMovementPattern.SubexpNames()
	for i, name := range names {
		if name == "ignore" && m[i] != "" {
			return true, true
		}
	}
	return true, false
}

// PreventedMovement reports whether line matches the prevented-movement
// set (locked doors, exhaustion, denial messages).
func PreventedMovement(line string) bool {
	return preventedMovementPattern.MatchString(line)
}
