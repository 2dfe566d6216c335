package anomalyparse

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Item is one upstream record carrying a report in its "event" field.
type Item map[string]any

// LoadItems decodes a JSON array of objects, a single object, or NDJSON.
func LoadItems(r io.Reader) ([]Item, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err == nil && !dec.More() {
		switch v := doc.(type) {
		case []any:
			items := make([]Item, 0, len(v))
			for _, e := range v {
				if obj, ok := e.(map[string]any); ok {
					items = append(items, Item(obj))
				}
			}
			return items, nil
		case map[string]any:
			return []Item{Item(v)}, nil
		default:
			return nil, fmt.Errorf("unsupported top-level JSON type %T", doc)
		}
	}

	return loadNDJSON(raw)
}

func loadNDJSON(raw []byte) ([]Item, error) {
	var items []Item
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("ndjson line %d: %w", lineNo, err)
		}
		items = append(items, Item(obj))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// LoadFile reads items from path.
func LoadFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadItems(f)
}

func (it Item) event() (string, bool) {
	for _, key := range []string{"event", "Event"} {
		if s, ok := it[key].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool, float64:
		return fmt.Sprint(x), true
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// Flatten parses every item's report and tags the rows with the item's id
// and creation_date. Items without a textual event are skipped.
func Flatten(items []Item) []Row {
	rows := make([]Row, 0)
	for _, it := range items {
		text, ok := it.event()
		if !ok {
			continue
		}
		id, hasID := scalar(it["id"])
		created, hasCreated := scalar(it["creation_date"])
		for _, r := range Parse(text) {
			if hasID {
				r.SourceID = id
			}
			if hasCreated {
				r.CreationDate = created
			}
			rows = append(rows, r)
		}
	}
	return rows
}

// WriteJSON writes rows as an indented JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rows)
}

var csvHeader = []string{"cell_id", "band", "anomaly_type", "anomaly", "recommended_fix", "source_id", "creation_date"}

// WriteCSV writes rows with a fixed header.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			fmt.Sprint(r.CellID),
			fmt.Sprint(r.Band),
			r.AnomalyType,
			r.Anomaly,
			r.RecommendedFix,
			r.SourceID,
			r.CreationDate,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
