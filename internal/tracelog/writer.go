package tracelog

// Trace output (CSV/JSON)

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tturner/canusb/internal/lawicel"
)

// TimestampLayout is the CSV timestamp format, local time with milliseconds.
const TimestampLayout = "2006-01-02 15:04:05.000"

// CSVHeader is the header row of exported traces.
var CSVHeader = []string{"Timestamp", "Type", "ID", "DLC", "Data"}

// Writer streams events to CSV and/or JSON Lines files as they arrive.
type Writer struct {
	csvFile   *os.File
	csvWriter *csv.Writer
	jsonFile  *os.File
	jsonEnc   *json.Encoder
}

// NewWriter creates a trace writer. Either path may be empty.
func NewWriter(csvPath, jsonPath string) (*Writer, error) {
	w := &Writer{}

	if csvPath != "" {
		file, err := os.Create(csvPath)
		if err != nil {
			return nil, fmt.Errorf("create CSV file: %w", err)
		}
		w.csvFile = file
		w.csvWriter = csv.NewWriter(file)
		if err := w.csvWriter.Write(CSVHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("write CSV header: %w", err)
		}
		w.csvWriter.Flush()
	}

	if jsonPath != "" {
		file, err := os.Create(jsonPath)
		if err != nil {
			if w.csvFile != nil {
				w.csvFile.Close()
			}
			return nil, fmt.Errorf("create JSON file: %w", err)
		}
		w.jsonFile = file
		w.jsonEnc = json.NewEncoder(file)
	}

	return w, nil
}

// WriteEvent writes a single event
func (w *Writer) WriteEvent(ev lawicel.Event) error {
	if w.csvWriter != nil {
		if err := w.csvWriter.Write(csvRecord(ev)); err != nil {
			return fmt.Errorf("write CSV record: %w", err)
		}
		w.csvWriter.Flush()
		if err := w.csvWriter.Error(); err != nil {
			return fmt.Errorf("flush CSV: %w", err)
		}
	}

	if w.jsonEnc != nil {
		if err := w.jsonEnc.Encode(toJSON(ev)); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the output files
func (w *Writer) Close() error {
	var errs []error

	if w.csvWriter != nil {
		w.csvWriter.Flush()
	}
	if w.csvFile != nil {
		if err := w.csvFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if w.jsonFile != nil {
		if err := w.jsonFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close writer: %v", errs)
	}
	return nil
}

// WriteCSV writes a complete trace with header.
func WriteCSV(out io.Writer, events []lawicel.Event) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, ev := range events {
		if err := cw.Write(csvRecord(ev)); err != nil {
			return fmt.Errorf("write CSV record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the trace as an indented JSON array.
func WriteJSON(out io.Writer, events []lawicel.Event) error {
	records := make([]jsonEvent, 0, len(events))
	for _, ev := range events {
		records = append(records, toJSON(ev))
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	return nil
}

// ExportFilename returns can_trace_YYYYMMDD_HHMMSS.<ext>.
func ExportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("can_trace_%s.%s", now.Format("20060102_150405"), ext)
}

// ExportFile writes events into dir using a timestamped name and returns the path.
// format is one of "csv", "json" or "pcap".
func ExportFile(dir, format string, now time.Time, events []lawicel.Event) (string, error) {
	write, err := exporter(format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, ExportFilename(now, format))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := write(file, events); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}

func exporter(format string) (func(io.Writer, []lawicel.Event) error, error) {
	switch format {
	case "csv":
		return WriteCSV, nil
	case "json":
		return WriteJSON, nil
	case "pcap":
		return func(w io.Writer, events []lawicel.Event) error {
			_, err := WritePCAP(w, events)
			return err
		}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want csv, json or pcap)", format)
	}
}

func csvRecord(ev lawicel.Event) []string {
	dlc := ""
	if ev.HasDLC() {
		dlc = strconv.Itoa(ev.DLC)
	}
	return []string{
		ev.Timestamp.Local().Format(TimestampLayout),
		ev.TypeLabel(),
		ev.ID,
		dlc,
		ev.DataString(),
	}
}

type jsonEvent struct {
	Timestamp string   `json:"timestamp"`
	Direction string   `json:"direction"`
	Type      string   `json:"type"`
	Raw       string   `json:"raw"`
	ID        string   `json:"id,omitempty"`
	DLC       *int     `json:"dlc,omitempty"`
	Data      []string `json:"data,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func toJSON(ev lawicel.Event) jsonEvent {
	je := jsonEvent{
		Timestamp: ev.Timestamp.Format(time.RFC3339Nano),
		Direction: ev.Direction.String(),
		Type:      ev.Kind.String(),
		Raw:       ev.Raw,
		ID:        ev.ID,
		Data:      ev.Data,
		Error:     ev.Err,
	}
	if ev.HasDLC() {
		dlc := ev.DLC
		je.DLC = &dlc
	}
	return je
}
