package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/homestead/orchestrator/pkg/log"
)

// EndpointStats aggregates activity observed on one serial endpoint.
type EndpointStats struct {
	Endpoint  string
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	DeviceID  string
}

// Stats aggregates counts across an entire log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[string]int
	EventsByCategory  map[string]int
	EventsByDirection map[string]int
	Endpoints         map[string]*EndpointStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// RunStats reads every event in the log at path and writes a summary
// to w.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[string]int),
		EventsByCategory:  make(map[string]int),
		EventsByDirection: make(map[string]int),
		Endpoints:         make(map[string]*EndpointStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		accumulate(stats, event)
	}

	printStats(w, stats)
	return nil
}

func accumulate(stats *Stats, event log.Event) {
	stats.TotalEvents++
	stats.EventsByLayer[event.Layer.String()]++
	stats.EventsByCategory[event.Category.String()]++
	if event.Category == log.CategoryFrame {
		stats.EventsByDirection[event.Direction.String()]++
	}
	if event.Category == log.CategoryError {
		stats.Errors++
	}

	if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
		stats.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(stats.TimeRange.End) {
		stats.TimeRange.End = event.Timestamp
	}

	if event.Endpoint == "" {
		return
	}
	ep, ok := stats.Endpoints[event.Endpoint]
	if !ok {
		ep = &EndpointStats{Endpoint: event.Endpoint, FirstSeen: event.Timestamp}
		stats.Endpoints[event.Endpoint] = ep
	}
	ep.Events++
	ep.LastSeen = event.Timestamp
	if event.DeviceID != "" {
		ep.DeviceID = event.DeviceID
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintf(w, "Time range: %s to %s\n\n",
		stats.TimeRange.Start.UTC().Format(time.RFC3339),
		stats.TimeRange.End.UTC().Format(time.RFC3339))

	fmt.Fprintf(w, "Total events: %d\n\n", stats.TotalEvents)

	fmt.Fprintln(w, "Events by layer:")
	for _, k := range sortedKeys(stats.EventsByLayer) {
		fmt.Fprintf(w, "  %-12s %d\n", k, stats.EventsByLayer[k])
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by category:")
	for _, k := range sortedKeys(stats.EventsByCategory) {
		fmt.Fprintf(w, "  %-16s %d\n", k, stats.EventsByCategory[k])
	}
	fmt.Fprintln(w)

	if len(stats.EventsByDirection) > 0 {
		fmt.Fprintln(w, "Frames by direction:")
		for _, k := range sortedKeys(stats.EventsByDirection) {
			fmt.Fprintf(w, "  %-4s %d\n", k, stats.EventsByDirection[k])
		}
		fmt.Fprintln(w)
	}

	if len(stats.Endpoints) > 0 {
		fmt.Fprintln(w, "Endpoints:")
		endpoints := make([]*EndpointStats, 0, len(stats.Endpoints))
		for _, ep := range stats.Endpoints {
			endpoints = append(endpoints, ep)
		}
		sort.Slice(endpoints, func(i, j int) bool {
			return endpoints[i].FirstSeen.Before(endpoints[j].FirstSeen)
		})
		for _, ep := range endpoints {
			fmt.Fprintf(w, "  %-20s events=%-6d device=%-12s first=%s last=%s\n",
				ep.Endpoint, ep.Events, ep.DeviceID,
				ep.FirstSeen.UTC().Format(time.RFC3339),
				ep.LastSeen.UTC().Format(time.RFC3339))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
