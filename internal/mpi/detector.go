// Package mpi implements the MPI (Mume Protocol Interface) handler
// (spec.md §4.3): detection of the in-band remote-editing envelope,
// dispatch to view/edit subprocess workers, and response framing.
//
// Envelope grammar and response framing are grounded verbatim on
// original_source/mapperproxy/mapper/mpi.py's MPI thread: the `~$#E`
// init sequence, the command-byte+decimal-length+newline header, the
// `\r`-stripped/IAC-doubled/whitespace-trimmed response body, and the
// `~$#EE<len>\n<body>` response frame.
package mpi

import "strconv"

// detState is the byte-level FSM position (spec.md §4.3).
type detState int

const (
	detScanning detState = iota
	detMatchingInit
	detCommand
	detLength
	detPayload
)

var initSeq = []byte("~$#E")

// Envelope is a fully received MPI envelope.
type Envelope struct {
	Command byte // 'E' or 'V'
	Payload []byte
}

// Detector scans an already telnet-filtered byte stream for MPI
// envelopes, emitting non-MPI bytes as passthrough for the XML tokenizer
// and completed envelopes via the OnEnvelope callback.
//
// It is not safe for concurrent use; the server pump feeds it serially.
type Detector struct {
	st          detState
	matchIdx    int
	headerBuf   []byte // bytes consumed so far, kept for reinjection on a malformed header
	cmd         byte
	lengthDigits []byte
	length      int
	payload     []byte
	atLineStart bool

	// OnEnvelope is invoked synchronously for each fully received
	// envelope. Callers that need to run blocking work (subprocess
	// spawn) MUST do so on their own goroutine; the detector does not.
	OnEnvelope func(Envelope)
}

// NewDetector returns a Detector positioned at the start of a stream.
func NewDetector() *Detector {
	return &Detector{atLineStart: true}
}

// Feed processes a chunk of bytes, returning the non-MPI bytes to forward
// to the XML tokenizer.
func (d *Detector) Feed(data []byte) []byte {
	var passthrough []byte
	for _, b := range data {
		passthrough = d.feedByte(b, passthrough)
	}
	return passthrough
}

func (d *Detector) feedByte(b byte, passthrough []byte) []byte {
	switch d.st {
	case detScanning:
		if d.atLineStart && b == initSeq[0] {
			d.st = detMatchingInit
			d.matchIdx = 1
			d.headerBuf = append(d.headerBuf[:0], b)
			return passthrough
		}
		passthrough = append(passthrough, b)
		d.atLineStart = b == '\n'
		return passthrough

	case detMatchingInit:
		d.headerBuf = append(d.headerBuf, b)
		if b != initSeq[d.matchIdx] {
			return d.reinject(passthrough)
		}
		d.matchIdx++
		if d.matchIdx == len(initSeq) {
			d.st = detCommand
		}
		return passthrough

	case detCommand:
		d.headerBuf = append(d.headerBuf, b)
		if b != 'E' && b != 'V' {
			return d.reinject(passthrough)
		}
		d.cmd = b
		d.lengthDigits = d.lengthDigits[:0]
		d.st = detLength
		return passthrough

	case detLength:
		d.headerBuf = append(d.headerBuf, b)
		if b == '\n' {
			n, err := strconv.Atoi(string(d.lengthDigits))
			if err != nil || n < 0 {
				return d.reinject(passthrough)
			}
			d.length = n
			d.payload = make([]byte, 0, n)
			if n == 0 {
				d.complete()
				d.resetAfterEnvelope()
				return passthrough
			}
			d.st = detPayload
			return passthrough
		}
		if b < '0' || b > '9' {
			return d.reinject(passthrough)
		}
		d.lengthDigits = append(d.lengthDigits, b)
		return passthrough

	case detPayload:
		d.payload = append(d.payload, b)
		if len(d.payload) == d.length {
			d.complete()
			d.resetAfterEnvelope()
		}
		return passthrough
	}
	return passthrough
}

// reinject emits the consumed-so-far header bytes back into the
// passthrough stream and resumes scanning, per spec.md §4.3's failure
// semantics for an invalid command letter or non-numeric length.
func (d *Detector) reinject(passthrough []byte) []byte {
	passthrough = append(passthrough, d.headerBuf...)
	if len(d.headerBuf) > 0 {
		d.atLineStart = d.headerBuf[len(d.headerBuf)-1] == '\n'
	}
	d.headerBuf = d.headerBuf[:0]
	d.st = detScanning
	return passthrough
}

func (d *Detector) complete() {
	if d.OnEnvelope != nil {
		payload := make([]byte, len(d.payload))
		copy(payload, d.payload)
		d.OnEnvelope(Envelope{Command: d.cmd, Payload: payload})
	}
}

func (d *Detector) resetAfterEnvelope() {
	d.st = detScanning
	d.headerBuf = d.headerBuf[:0]
	if len(d.payload) > 0 {
		d.atLineStart = d.payload[len(d.payload)-1] == '\n'
	} else {
		d.atLineStart = true
	}
	d.payload = nil
}
