package tracelog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tturner/canusb/internal/lawicel"
)

// ReadTraceCSV reads a trace exported by WriteCSV and returns the events along
// with the first and last timestamps found in the data.
func ReadTraceCSV(path string) ([]lawicel.Event, time.Time, time.Time, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("open trace CSV: %w", err)
	}
	defer file.Close()

	return ParseTraceCSV(file)
}

// ParseTraceCSV is ReadTraceCSV over an io.Reader.
func ParseTraceCSV(r io.Reader) ([]lawicel.Event, time.Time, time.Time, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("read CSV header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.TrimSpace(col)] = i
	}
	for _, col := range CSVHeader {
		if _, ok := colIndex[col]; !ok {
			return nil, time.Time{}, time.Time{}, fmt.Errorf("CSV missing required column: %s", col)
		}
	}
	field := func(record []string, name string) string {
		if idx := colIndex[name]; idx < len(record) {
			return record[idx]
		}
		return ""
	}

	var events []lawicel.Event
	var firstTime, lastTime time.Time
	rowCount := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, time.Time{}, time.Time{}, fmt.Errorf("read CSV row %d: %w", rowCount+2, err)
		}

		ev := lawicel.Event{DLC: lawicel.NoDLC}

		if ts, err := time.ParseInLocation(TimestampLayout, field(record, "Timestamp"), time.Local); err == nil {
			ev.Timestamp = ts
			if rowCount == 0 {
				firstTime = ts
			}
			lastTime = ts
		}

		label := field(record, "Type")
		if rest, ok := strings.CutPrefix(label, "SENT_"); ok {
			ev.Direction = lawicel.Tx
			label = rest
		}
		if kind, ok := lawicel.ParseKind(strings.ToLower(label)); ok {
			ev.Kind = kind
		}

		ev.ID = field(record, "ID")
		if v := field(record, "DLC"); v != "" {
			if dlc, err := strconv.Atoi(v); err == nil {
				ev.DLC = dlc
			}
		}
		ev.Data = strings.Fields(field(record, "Data"))

		events = append(events, ev)
		rowCount++
	}

	if rowCount == 0 {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("no data rows in CSV file")
	}
	return events, firstTime, lastTime, nil
}
