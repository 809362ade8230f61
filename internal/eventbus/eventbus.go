// Package eventbus is the proxy's single ordered queue of typed items
// carrying user commands and decoded MUD events to the mapper worker.
//
// It is grounded on the teacher's client.Connection channel-based pumps
// (outChan/inChan/closeCh in internal/client/connection.go), generalized
// from three parallel string channels into one channel of a tagged union
// so that delivery order across user input and server events is preserved
// exactly as the mapper worker observes it (spec.md §4.1, §5).
package eventbus

// Kind discriminates the Item union.
type Kind int

const (
	// KindUserData carries raw bytes read from the client that were
	// recognized as mapper-command input.
	KindUserData Kind = iota
	// KindMudEvent carries a decoded event from the server-stream
	// protocol decoder (telnet filter -> MPI handler -> XML tokenizer).
	KindMudEvent
	// KindShutdown is a terminator item; its receipt causes the
	// consumer to exit after draining anything already queued.
	KindShutdown
)

// EventName identifies the kind of MudEvent payload, mirroring the XML
// tokenizer's recognized tag set (spec.md §4.4) plus two pseudo-events:
// line (a plain server line, used for trigger matching) and iac_ga (one per
// IAC GA the telnet filter observes). The mapper worker ends a turn on the
// prompt event only; it does not subscribe to iac_ga.
type EventName string

const (
	EventMovement    EventName = "movement"
	EventRoomName    EventName = "name"
	EventDescription EventName = "description"
	EventTerrain     EventName = "terrain"
	EventDynamic     EventName = "dynamic"
	EventExits       EventName = "exits"
	EventPrompt      EventName = "prompt"
	EventLine        EventName = "line"
	EventIACGA       EventName = "iac_ga"
)

// Item is one entry on the bus.
type Item struct {
	Kind Kind

	// UserData is valid when Kind == KindUserData.
	UserData []byte

	// Event and Payload are valid when Kind == KindMudEvent.
	Event   EventName
	Payload string
}

// UserDataItem returns an Item carrying raw client bytes.
func UserDataItem(data []byte) Item {
	return Item{Kind: KindUserData, UserData: data}
}

// MudEventItem returns an Item carrying a decoded MUD event.
func MudEventItem(event EventName, payload string) Item {
	return Item{Kind: KindMudEvent, Event: event, Payload: payload}
}

// ShutdownItem returns the terminator item.
func ShutdownItem() Item {
	return Item{Kind: KindShutdown}
}

// defaultCapacity is the bus's buffered channel depth. The bus has a
// single consumer (the mapper worker) and several producers (both pumps);
// a generous buffer keeps producers from blocking on a slow consumer
// burst without changing delivery order.
const defaultCapacity = 256

// Bus is an ordered, single-consumer, multi-producer queue of Items.
type Bus struct {
	items chan Item
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{items: make(chan Item, defaultCapacity)}
}

// Post enqueues an item. Post never blocks indefinitely in normal
// operation because the channel is generously buffered; if the buffer is
// full (the consumer has stalled), Post blocks until space frees up,
// which is the correct backpressure behavior for a FIFO bus.
func (b *Bus) Post(item Item) {
	b.items <- item
}

// PostUserData is a convenience wrapper around Post(UserDataItem(data)).
func (b *Bus) PostUserData(data []byte) {
	b.Post(UserDataItem(data))
}

// PostMudEvent is a convenience wrapper around Post(MudEventItem(...)).
func (b *Bus) PostMudEvent(event EventName, payload string) {
	b.Post(MudEventItem(event, payload))
}

// Shutdown enqueues the terminator item.
func (b *Bus) Shutdown() {
	b.Post(ShutdownItem())
}

// Items exposes the receive-only channel for the sole consumer to range
// over. The consumer MUST stop ranging after observing a KindShutdown
// item; remaining buffered items (if any) should be drained first per
// spec.md §5's cancellation note.
func (b *Bus) Items() <-chan Item {
	return b.items
}
