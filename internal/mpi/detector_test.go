package mpi

import (
	"bytes"
	"testing"
)

func TestDetectorPassesThroughOrdinaryText(t *testing.T) {
	d := NewDetector()
	in := []byte("hello world\r\n")
	out := d.Feed(in)
	if !bytes.Equal(out, in) {
		t.Errorf("Feed() = %q, want %q", out, in)
	}
}

func TestDetectorRequiresLineStart(t *testing.T) {
	d := NewDetector()
	var envelopes []Envelope
	d.OnEnvelope = func(e Envelope) { envelopes = append(envelopes, e) }

	out := d.Feed([]byte("x~$#EV5\nhello"))
	want := []byte("x~$#EV5\nhello")
	if !bytes.Equal(out, want) {
		t.Errorf("Feed() = %q, want %q (envelope mid-line should not trigger)", out, want)
	}
	if len(envelopes) != 0 {
		t.Errorf("got %d envelopes, want 0", len(envelopes))
	}
}

func TestDetectorViewEnvelope(t *testing.T) {
	d := NewDetector()
	var envelopes []Envelope
	d.OnEnvelope = func(e Envelope) { envelopes = append(envelopes, e) }

	out := d.Feed([]byte("\n~$#EV5\nhello"))
	if !bytes.Equal(out, []byte("\n")) {
		t.Errorf("Feed() passthrough = %q, want %q", out, "\n")
	}
	if len(envelopes) != 1 {
		t.Fatalf("got %d envelopes, want 1", len(envelopes))
	}
	if envelopes[0].Command != 'V' || string(envelopes[0].Payload) != "hello" {
		t.Errorf("envelope = %+v, want Command=V Payload=hello", envelopes[0])
	}
}

func TestDetectorInvalidCommandReinjects(t *testing.T) {
	d := NewDetector()
	var envelopes []Envelope
	d.OnEnvelope = func(e Envelope) { envelopes = append(envelopes, e) }

	out := d.Feed([]byte("\n~$#EZ5\nhello"))
	want := []byte("\n~$#EZ5\nhello")
	if !bytes.Equal(out, want) {
		t.Errorf("Feed() = %q, want %q", out, want)
	}
	if len(envelopes) != 0 {
		t.Errorf("got %d envelopes, want 0", len(envelopes))
	}
}

func TestDetectorNonNumericLengthReinjects(t *testing.T) {
	d := NewDetector()
	out := d.Feed([]byte("\n~$#EVabc\nhello"))
	want := []byte("\n~$#EVabc\nhello")
	if !bytes.Equal(out, want) {
		t.Errorf("Feed() = %q, want %q", out, want)
	}
}

func TestDetectorSpansMultipleFeedCalls(t *testing.T) {
	d := NewDetector()
	var envelopes []Envelope
	d.OnEnvelope = func(e Envelope) { envelopes = append(envelopes, e) }

	d.Feed([]byte("\n~$#EV5\nhel"))
	d.Feed([]byte("lo"))

	if len(envelopes) != 1 || string(envelopes[0].Payload) != "hello" {
		t.Fatalf("envelopes = %+v", envelopes)
	}
}
