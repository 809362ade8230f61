// Package dispatch provides the mapper worker's two command/event
// registries (spec.md §4.5.11, §9): a single-handler table for
// client-originated mapper commands, and a multi-subscriber table for
// decoded MUD events.
//
// This replaces the teacher's (and the original source's) duck-typed
// dispatch, which resolved handlers by looking up method names like
// user_command_X / mud_event_X via attribute lookup. Handlers here are
// registered explicitly in a map keyed by command/event name, per spec.md
// §9's redesign note.
package dispatch

import "strings"

// CommandHandler handles one mapper command. args is the remainder of the
// input line after the first whitespace-delimited token.
type CommandHandler func(args string)

// EventHandler handles one decoded MUD event.
type EventHandler func(payload []byte)

// Commands is a single-handler registry of mapper commands, keyed by
// first whitespace token.
type Commands struct {
	handlers map[string]CommandHandler
}

// NewCommands returns an empty command registry.
func NewCommands() *Commands {
	return &Commands{handlers: make(map[string]CommandHandler)}
}

// Register installs handler for name, overwriting any existing handler.
func (c *Commands) Register(name string, handler CommandHandler) {
	c.handlers[name] = handler
}

// Dispatch splits line on its first whitespace run and invokes the
// matching handler. It reports whether a handler was found.
func (c *Commands) Dispatch(line string) bool {
	name, args := splitCommand(line)
	handler, ok := c.handlers[name]
	if !ok {
		return false
	}
	handler(args)
	return true
}

// Recognizes reports whether line's first token has a registered handler,
// without invoking it. The client pump uses this to decide whether a typed
// line is a mapper command (diverted to the bus) or passthrough to the
// server.
func (c *Commands) Recognizes(line string) bool {
	name, _ := splitCommand(line)
	_, ok := c.handlers[name]
	return ok
}

func splitCommand(line string) (name, args string) {
	line = strings.TrimLeft(line, " \t")
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimLeft(line[i+1:], " \t")
}

// Events is a multi-subscriber registry of MUD-event handlers, keyed by
// event name.
type Events struct {
	handlers map[string][]EventHandler
}

// NewEvents returns an empty event registry.
func NewEvents() *Events {
	return &Events{handlers: make(map[string][]EventHandler)}
}

// Subscribe adds handler to the list invoked for the named event.
func (e *Events) Subscribe(name string, handler EventHandler) {
	e.handlers[name] = append(e.handlers[name], handler)
}

// Dispatch invokes every handler subscribed to name, in subscription order.
func (e *Events) Dispatch(name string, payload []byte) {
	for _, h := range e.handlers[name] {
		h(payload)
	}
}
