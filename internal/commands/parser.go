package commands

import "strings"

type Type int

const (
	Unknown Type = iota
	Players
	Status
	Start
	Stop
)

func (t Type) String() string {
	switch t {
	case Players:
		return "players"
	case Status:
		return "status"
	case Start:
		return "start"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

type Command struct {
	Type Type
	Raw  string
}

var keywords = map[string]Type{
	"players": Players,
	"list":    Players,
	"status":  Status,
	"start":   Start,
	"stop":    Stop,
}

// Parse recognises prefixed chat commands; the keyword is case insensitive and
// trailing words are ignored.
func Parse(body, prefix string) Command {
	trimmed := strings.TrimSpace(body)
	unknown := Command{Type: Unknown, Raw: trimmed}
	if trimmed == "" {
		return unknown
	}
	if prefix == "" {
		prefix = "!"
	}
	if !strings.HasPrefix(trimmed, prefix) {
		return unknown
	}

	fields := strings.Fields(strings.TrimPrefix(trimmed, prefix))
	if len(fields) == 0 {
		return unknown
	}

	typ, ok := keywords[strings.ToLower(fields[0])]
	if !ok {
		return unknown
	}
	return Command{Type: typ, Raw: trimmed}
}
