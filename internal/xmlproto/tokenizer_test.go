package xmlproto

import (
	"testing"

	"github.com/anicolao/mudproxy/internal/config"
)

func collectEvents(t *testing.T, tok *Tokenizer, data []byte) ([]Event, []byte) {
	t.Helper()
	var events []Event
	tok.OnEvent = func(e Event) { events = append(events, e) }
	out := tok.Feed(data)
	return events, out
}

func TestModeSwitchingOrder(t *testing.T) {
	tok := New(config.FormatNormal)
	stream := []byte(`<movement dir=east/><room><name>Foo</name><description>Bar</description>Dyn</room><exits>north</exits><prompt>!#</prompt>`)
	events, _ := collectEvents(t, tok, stream)

	wantNames := []string{"movement", "name", "description", "dynamic", "exits", "prompt"}
	if len(events) != len(wantNames) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(wantNames), events)
	}
	for i, name := range wantNames {
		if events[i].Name != name {
			t.Errorf("event[%d] = %q, want %q", i, events[i].Name, name)
		}
	}
	wantPayloads := []string{"east", "Foo", "Bar", "Dyn", "north", "!#"}
	for i, p := range wantPayloads {
		if string(events[i].Payload) != p {
			t.Errorf("event[%d] payload = %q, want %q", i, events[i].Payload, p)
		}
	}
}

func TestGratuitousHiddenInNormalFormat(t *testing.T) {
	tok := New(config.FormatNormal)
	stream := []byte(`<room><gratuitous><description>hidden text</description></gratuitous></room>`)
	events, out := collectEvents(t, tok, stream)

	var desc string
	for _, e := range events {
		if e.Name == "description" {
			desc = string(e.Payload)
		}
	}
	if desc != "hidden text" {
		t.Errorf("description event = %q, want %q", desc, "hidden text")
	}
	if string(out) != "" {
		t.Errorf("client output = %q, want empty (gratuitous text suppressed)", out)
	}
}

func TestGratuitousForwardedInRawFormat(t *testing.T) {
	tok := New(config.FormatRaw)
	stream := []byte(`<gratuitous>shown</gratuitous>`)
	_, out := collectEvents(t, tok, stream)

	want := `<gratuitous>shown</gratuitous>`
	if string(out) != want {
		t.Errorf("raw output = %q, want %q", out, want)
	}
}

func TestLineEventsOnlyAtTopLevel(t *testing.T) {
	tok := New(config.FormatNormal)
	stream := []byte("loose text\n<room><name>Foo</name>inner\n</room>after\n")
	events, _ := collectEvents(t, tok, stream)

	var lines []string
	for _, e := range events {
		if e.Name == "line" {
			lines = append(lines, string(e.Payload))
		}
	}
	want := []string{"loose text", "after"}
	if len(lines) != len(want) {
		t.Fatalf("line events = %+v, want %+v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestTintinPairedTagsRewritten(t *testing.T) {
	tok := New(config.FormatTintin)
	stream := []byte(`<prompt>!#</prompt>`)
	_, out := collectEvents(t, tok, stream)

	want := "PROMPT:!#:PROMPT"
	if string(out) != want {
		t.Errorf("tintin output = %q, want %q", out, want)
	}
}

func TestNormalFormatStripsTagsAndDecodesEntities(t *testing.T) {
	tok := New(config.FormatNormal)
	stream := []byte(`<room><name>A &amp; B</name></room>`)
	_, out := collectEvents(t, tok, stream)

	if string(out) != "A & B" {
		t.Errorf("normal output = %q, want %q", out, "A & B")
	}
}

func TestRawFormatPreservesEntities(t *testing.T) {
	tok := New(config.FormatRaw)
	stream := []byte(`<room>A &amp; B</room>`)
	_, out := collectEvents(t, tok, stream)

	want := "<room>A &amp; B</room>"
	if string(out) != want {
		t.Errorf("raw output = %q, want %q", out, want)
	}
}

func TestIACDoubledInNonGratuitousText(t *testing.T) {
	tok := New(config.FormatNormal)
	stream := []byte{'h', 'i', 0xFF, '\n'}
	_, out := collectEvents(t, tok, stream)

	want := []byte{'h', 'i', 0xFF, 0xFF, '\n'}
	if string(out) != string(want) {
		t.Errorf("output = %v, want %v", out, want)
	}
}
