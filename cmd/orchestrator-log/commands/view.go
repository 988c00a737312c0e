// Package commands implements the orchestrator-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/homestead/orchestrator/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
	Endpoint  string
	DeviceID  string
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if !matches(event, filter) {
			continue
		}
		formatEvent(output, event)
	}
	return nil
}

func matches(event log.Event, filter ViewFilter) bool {
	if filter.Layer != nil && event.Layer != *filter.Layer {
		return false
	}
	if filter.Direction != nil && event.Direction != *filter.Direction {
		return false
	}
	if filter.Category != nil && event.Category != *filter.Category {
		return false
	}
	if filter.Endpoint != "" && event.Endpoint != filter.Endpoint {
		return false
	}
	if filter.DeviceID != "" && event.DeviceID != filter.DeviceID {
		return false
	}
	return true
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = "Frame"
	case event.SchedulerEvent != nil:
		typeLabel = event.SchedulerEvent.Kind
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	dir := ""
	if event.Category == log.CategoryFrame {
		dir = event.Direction.String() + " "
	}

	fmt.Fprintf(w, "%s %s%-9s %s", ts, dir, event.Layer.String(), typeLabel)
	if event.DeviceID != "" {
		fmt.Fprintf(w, " device=%s", event.DeviceID)
	}
	if event.Endpoint != "" {
		fmt.Fprintf(w, " endpoint=%s", event.Endpoint)
	}
	fmt.Fprintln(w)

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.SchedulerEvent != nil:
		formatSchedulerEventDetails(w, event.SchedulerEvent)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatSchedulerEventDetails(w io.Writer, e *log.SchedulerEventEntry) {
	if len(e.Fields) == 0 {
		return
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	fmt.Fprint(w, "  ")
	for i, k := range keys {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprintf(w, "%s=%v", k, e.Fields[k])
	}
	fmt.Fprintln(w)
}

func formatErrorDetails(w io.Writer, e *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", e.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "wire":
		return log.LayerWire, nil
	case "scheduler":
		return log.LayerScheduler, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be wire or scheduler)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "frame":
		return log.CategoryFrame, nil
	case "scheduler_event":
		return log.CategorySchedulerEvent, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be frame, scheduler_event, or error)", s)
	}
}
