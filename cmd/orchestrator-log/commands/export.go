package commands

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/homestead/orchestrator/pkg/log"
)

// RunExport reads every event in the log at path and writes it to
// output in the given format ("jsonl" or "csv").
func RunExport(path, format string, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	switch format {
	case "jsonl":
		return exportJSONL(reader, output)
	case "csv":
		return exportCSV(reader, output)
	default:
		return fmt.Errorf("unsupported format %q (want jsonl or csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "direction", "layer", "category", "endpoint", "device_id", "type", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		eventType, detail := eventTypeAndDetail(event)
		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.Direction.String(),
			event.Layer.String(),
			event.Category.String(),
			event.Endpoint,
			event.DeviceID,
			eventType,
			detail,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
}

func eventTypeAndDetail(event log.Event) (eventType, detail string) {
	switch {
	case event.Frame != nil:
		detail = strconv.Itoa(event.Frame.Size) + " bytes"
		if len(event.Frame.Data) > 0 {
			detail += " " + hex.EncodeToString(event.Frame.Data)
		}
		return "frame", detail
	case event.SchedulerEvent != nil:
		return event.SchedulerEvent.Kind, fmt.Sprintf("%v", event.SchedulerEvent.Fields)
	case event.Error != nil:
		return "error", event.Error.Message
	default:
		return "unknown", ""
	}
}
