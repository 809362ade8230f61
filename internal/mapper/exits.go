package mapper

import "regexp"

// exitTagsRegex tokenizes the exits event's inner text into one match per
// exit direction mentioned, each with its optional door/road/climb/portal
// prefix glyph. Grounded verbatim on
// original_source/mapperproxy/mapper/mapperconstants.py's EXIT_TAGS_REGEX.
var exitTagsRegex = regexp.MustCompile(`([(\[#]?)([=-]?)([/\\]?)(\{?)(north|east|south|west|up|down)`)

// ExitToken is one parsed exit mention from an exits event's text
// (spec.md §4.5.8).
type ExitToken struct {
	Direction Direction
	Door      bool
	Road      bool
	Climb     bool
	Portal    bool
}

// ParseExitTokens scans text for exit mentions. Portals are included in
// the result (callers skip them per spec.md §4.5.8: "portals aren't real
// exits").
func ParseExitTokens(text string) []ExitToken {
	matches := exitTagsRegex.FindAllStringSubmatch(text, -1)
	tokens := make([]ExitToken, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, ExitToken{
			Direction: Direction(m[5]),
			Door:      m[1] != "",
			Road:      m[2] != "",
			Climb:     m[3] != "",
			Portal:    m[4] != "",
		})
	}
	return tokens
}

// PromptFlags is the parsed prefix of a prompt event's payload (spec.md
// §4.5.7): one light glyph, one terrain glyph, up to two weather glyphs,
// then up to four movement-flag letters drawn from "RrSsCcW".
type PromptFlags struct {
	Light         Light
	HasLight      bool
	Terrain       Terrain
	HasTerrain    bool
	MovementFlags string
}

// ParsePromptFlags reads the leading status glyphs off a prompt payload.
// Unrecognized light/terrain glyphs leave HasLight/HasTerrain false
// rather than guessing, matching the source's try/except KeyError
// fallthrough (spec.md §9: "re-architect using explicit if-contains
// lookups").
func ParsePromptFlags(prompt string) PromptFlags {
	var flags PromptFlags
	pos := 0
	if pos < len(prompt) {
		if l, ok := LightFromSymbol(prompt[pos]); ok {
			flags.Light = l
			flags.HasLight = true
		}
		pos++
	}
	if pos < len(prompt) {
		if t, ok := TerrainFromSymbol(prompt[pos]); ok {
			flags.Terrain = t
			flags.HasTerrain = true
		}
		pos++
	}
	for i := 0; i < 2 && pos < len(prompt); i++ {
		if isWeatherGlyph(prompt[pos]) {
			pos++
		} else {
			break
		}
	}
	start := pos
	for i := 0; i < 4 && pos < len(prompt); i++ {
		if isMovementFlagGlyph(prompt[pos]) {
			pos++
		} else {
			break
		}
	}
	flags.MovementFlags = prompt[start:pos]
	return flags
}

// Ridable reports whether the movement-flag letters indicate a ridable
// mount is currently being ridden ('r' or 'R' present), per
// original_source's `"r" in roomDict["movementFlags"].lower()`.
func (p PromptFlags) Ridable() bool {
	for _, c := range p.MovementFlags {
		if c == 'r' || c == 'R' {
			return true
		}
	}
	return false
}

func isWeatherGlyph(b byte) bool {
	switch b {
	case '*', '\'', '"', '~', '=', '-':
		return true
	}
	return false
}

func isMovementFlagGlyph(b byte) bool {
	switch b {
	case 'R', 'r', 'S', 's', 'C', 'c', 'W':
		return true
	}
	return false
}
