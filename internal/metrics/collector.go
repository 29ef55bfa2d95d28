package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mcexporter/internal/logx"
	"mcexporter/internal/rcon"
)

// Querier fetches the raw answer to the server's player list command.
type Querier interface {
	ListPlayers(ctx context.Context) (rcon.Response, error)
}

// Gate tells the collector whether the game server is up before it is queried.
type Gate interface {
	Running(ctx context.Context) (bool, error)
}

// Collector queries the server on every scrape and keeps nothing between scrapes.
type Collector struct {
	querier Querier
	gate    Gate
	timeout time.Duration
	log     *logx.Logger
	descs   map[string]*prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector wires a querier into a collector. gate may be nil.
func NewCollector(querier Querier, gate Gate, timeout time.Duration, logger *logx.Logger) *Collector {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	descs := map[string]*prometheus.Desc{}
	for _, f := range Build(rcon.NotMatched()).Families {
		descs[f.Name] = prometheus.NewDesc(f.Name, f.Help, f.LabelNames, nil)
	}
	return &Collector{
		querier: querier,
		gate:    gate,
		timeout: timeout,
		log:     logger.With("component", "collector"),
		descs:   descs,
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range c.descs {
		ch <- desc
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	for _, family := range c.Snapshot(ctx).Families {
		desc, ok := c.descs[family.Name]
		if !ok {
			continue
		}
		valueType := prometheus.GaugeValue
		if family.Type == Counter {
			valueType = prometheus.CounterValue
		}

		// The exposition format cannot carry two identical series.
		seen := make(map[string]struct{}, len(family.Samples))
		for _, sample := range family.Samples {
			key := strings.Join(sample.LabelValues, "\xff")
			if _, dup := seen[key]; dup {
				c.log.Debug("dropping duplicate series", "metric", family.Name, "labels", strings.Join(sample.LabelValues, ","))
				continue
			}
			seen[key] = struct{}{}

			m, err := prometheus.NewConstMetric(desc, valueType, sample.Value, sample.LabelValues...)
			if err != nil {
				ch <- prometheus.NewInvalidMetric(desc, err)
				continue
			}
			ch <- m
		}
	}
}

// Snapshot runs one query against the server and builds the metric set from it.
// Transport problems never escape: they yield an empty player_online family.
func (c *Collector) Snapshot(ctx context.Context) Snapshot {
	raw := c.query(ctx)
	outcome := rcon.ParseList(raw)
	if !outcome.Matched {
		if body, ok := raw.Body(); ok {
			c.log.Debug("unrecognised list response", "body", body)
		}
	}
	return Build(outcome)
}

func (c *Collector) query(ctx context.Context) rcon.Response {
	if c.gate != nil {
		running, err := c.gate.Running(ctx)
		if err != nil {
			c.log.Warn("server state check failed", "err", err.Error())
			return rcon.Absent()
		}
		if !running {
			c.log.Debug("server not running; skipping rcon query")
			return rcon.Absent()
		}
	}

	raw, err := c.querier.ListPlayers(ctx)
	if err != nil {
		c.log.Warn("rcon query failed", "err", err.Error())
		return rcon.Absent()
	}
	return raw
}
