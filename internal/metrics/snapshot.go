// Package metrics turns parsed "list" responses into metric samples and exposes
// them through a Prometheus collector.
package metrics

import "mcexporter/internal/rcon"

const (
	PlayerOnlineName = "player_online"
	PlayerOnlineHelp = "Player is online on the server."
	PlayerLabel      = "player"
)

type Type int

const (
	Gauge Type = iota
	Counter
)

// Sample is one labelled value. Labels are ordered like the family's LabelNames.
type Sample struct {
	LabelValues []string
	Value       float64
}

type Family struct {
	Name       string
	Help       string
	Type       Type
	LabelNames []string
	Samples    []Sample
}

// Snapshot holds every family produced for one scrape. Families are present
// even when they carry no samples.
type Snapshot struct {
	Families []Family
}

// Family returns the named family and whether it exists.
func (s Snapshot) Family(name string) (Family, bool) {
	for _, f := range s.Families {
		if f.Name == name {
			return f, true
		}
	}
	return Family{}, false
}

// Build materialises a Snapshot from a parse outcome: one player_online sample
// per listed name, duplicates included.
func Build(outcome rcon.Outcome) Snapshot {
	online := Family{
		Name:       PlayerOnlineName,
		Help:       PlayerOnlineHelp,
		Type:       Gauge,
		LabelNames: []string{PlayerLabel},
		Samples:    []Sample{},
	}

	if outcome.Matched {
		for _, name := range outcome.Players {
			online.Samples = append(online.Samples, Sample{LabelValues: []string{name}, Value: 1})
		}
	}

	return Snapshot{Families: []Family{online}}
}
