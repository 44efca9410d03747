package model

import "strings"

// InboundEvent is one webhook delivery from the chat platform, already
// stripped of transport details by the web layer.
type InboundEvent struct {
	EventID  string // platform message SID, used as the idempotency key
	From     string // sender address
	Body     string // text content, may be empty
	MediaURL string // first attached image URL, may be empty
}

// EventKind is the tagged variant the orchestrator switches on. Classification
// happens exactly once at intake; nothing downstream re-inspects raw fields.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindImage
	KindCommand
	KindInstruction
)

// CommandKind enumerates the recognized chat commands.
type CommandKind string

const (
	CommandBalance CommandKind = "balance"
	CommandBuy     CommandKind = "buy"
	CommandHelp    CommandKind = "help"
)

// BackgroundKeyword is the literal instruction that maps to whole-background
// removal instead of a verbatim object description.
const BackgroundKeyword = "background"

// ClassifiedEvent is the outcome of one intake decision.
type ClassifiedEvent struct {
	Kind        EventKind
	Command     CommandKind // set when Kind == KindCommand
	Instruction string      // set when Kind == KindInstruction, trimmed
	ImageURL    string      // set when Kind == KindImage
}

// Classify decides the event variant: an attached image wins over any caption,
// then known command keywords, then everything else is a removal instruction.
func (e InboundEvent) Classify() ClassifiedEvent {
	if e.MediaURL != "" {
		return ClassifiedEvent{Kind: KindImage, ImageURL: e.MediaURL}
	}
	text := strings.TrimSpace(e.Body)
	if text == "" {
		return ClassifiedEvent{Kind: KindUnknown}
	}
	switch CommandKind(strings.ToLower(text)) {
	case CommandBalance:
		return ClassifiedEvent{Kind: KindCommand, Command: CommandBalance}
	case CommandBuy:
		return ClassifiedEvent{Kind: KindCommand, Command: CommandBuy}
	case CommandHelp:
		return ClassifiedEvent{Kind: KindCommand, Command: CommandHelp}
	}
	return ClassifiedEvent{Kind: KindInstruction, Instruction: text}
}

// IsBackground reports whether the instruction asks for whole-background
// removal (case-insensitive, trimmed).
func IsBackground(instruction string) bool {
	return strings.EqualFold(strings.TrimSpace(instruction), BackgroundKeyword)
}
