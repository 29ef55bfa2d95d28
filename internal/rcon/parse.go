package rcon

import (
	"regexp"
	"strconv"
	"strings"
)

// listPattern matches the vanilla answer to the "list" command. The header is
// case sensitive and the colon is required; the name list may be empty.
var listPattern = regexp.MustCompile(`(?s)^There are (\d+) of a max of (\d+) players online:(.*)$`)

// Outcome is the result of parsing one Response. The zero value is NotMatched.
type Outcome struct {
	Matched bool
	// Online and Max echo the header counts. They are not checked against Players.
	Online  int
	Max     int
	Players []string
}

// NotMatched is returned for absent, non-text and unrecognised responses.
func NotMatched() Outcome { return Outcome{} }

// ParseList extracts the online player names from a "list" response.
func ParseList(raw Response) Outcome {
	body, ok := raw.Body()
	if !ok {
		return NotMatched()
	}

	m := listPattern.FindStringSubmatch(body)
	if m == nil {
		return NotMatched()
	}

	online, _ := strconv.Atoi(m[1])
	maxPlayers, _ := strconv.Atoi(m[2])

	return Outcome{
		Matched: true,
		Online:  online,
		Max:     maxPlayers,
		Players: splitNames(m[3]),
	}
}

func splitNames(tail string) []string {
	parts := strings.Split(tail, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}
