// Package anomalyparse turns the free-text anomaly reports produced by the
// upstream LLM pipeline into anomaly rows the JSON data source can serve.
package anomalyparse

import (
	"regexp"
	"strconv"
	"strings"
)

// Row is one parsed anomaly. The JSON form matches the anomalies.json wire
// shape.
type Row struct {
	CellID         int    `json:"cell_id"`
	Band           int    `json:"band"`
	AnomalyType    string `json:"anomaly_type"`
	Anomaly        string `json:"anomaly"`
	RecommendedFix string `json:"recommended_fix,omitempty"`
	SourceID       string `json:"source_id,omitempty"`
	CreationDate   string `json:"creation_date,omitempty"`
}

const (
	TypeThroughputDrop = "Throughput Drop"
	TypeLowRSRP        = "Low RSRP"
	TypeUEsSpikeDrop   = "UEs Spike/Drop"
	TypeLowSINR        = "Low SINR"
)

var (
	headerMain   = regexp.MustCompile(`(?i)^Cell ID\s+(\d+),\s*Band(?:\s+Band)?\s+(\d+)\s*(?:\((?:FORMAT ERROR)\))?:\s*$`)
	headerInline = regexp.MustCompile(`(?i)^\s*\d+\.\s*Cell ID\s+(\d+),\s*Band\s+(\d+)\s*$`)

	anomalyKeys = []struct {
		re  *regexp.Regexp
		typ string
	}{
		{regexp.MustCompile(`(?i)Throughput Drop:\s*(.+)`), TypeThroughputDrop},
		{regexp.MustCompile(`(?i)Low RSRP:\s*(.+)`), TypeLowRSRP},
		{regexp.MustCompile(`(?i)UEs?\s+Spike/Drop:\s*(.+)`), TypeUEsSpikeDrop},
		{regexp.MustCompile(`(?i)Low SINR:\s*(.+)`), TypeLowSINR},
	}

	inlineError = regexp.MustCompile(`(?i)LLM_FORMAT_ERROR.*?:.*?(Throughput Drop:|Low RSRP:|UEs?\s+Spike/Drop:|Low SINR:)\s*(.+)$`)

	recommendedFix = regexp.MustCompile(`(?i)^(?:[-*\x{2022}]\s*)?Recommended\s*fix\s*:\s*(.+)$`)
	remediation    = regexp.MustCompile(`(?i)^(?:[-*\x{2022}]\s*)?Remediation\s*:\s*(.+)$`)

	cleanLead     = regexp.MustCompile(`^[\s\-*\x{2022}]+`)
	cleanLLMError = regexp.MustCompile(`(?i)\s+LLM failed to format:.*$`)
	cleanSpaces   = regexp.MustCompile(`\s{2,}`)
	cleanTrail    = regexp.MustCompile(`[.,;:]\s*$`)
)

func clean(s string) string {
	s = cleanLead.ReplaceAllString(s, "")
	s = cleanLLMError.ReplaceAllString(s, "")
	s = strings.TrimSpace(cleanSpaces.ReplaceAllString(s, " "))
	return strings.TrimSpace(cleanTrail.ReplaceAllString(s, ""))
}

func typeFromLabel(label string) string {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "throughput"):
		return TypeThroughputDrop
	case strings.Contains(l, "low rsrp"):
		return TypeLowRSRP
	case strings.Contains(l, "low sinr"):
		return TypeLowSINR
	default:
		return TypeUEsSpikeDrop
	}
}

// Parse extracts anomaly rows from one report. Lines before the first
// "Cell ID n, Band m" header are ignored. A "Recommended fix:" or
// "Remediation:" line applies to every anomaly already seen in the current
// block. Exact duplicates are removed, keeping the first occurrence.
func Parse(text string) []Row {
	var (
		out     []Row
		inBlock bool
		cell    int
		band    int
		block   []int
	)

	push := func(typ, body string) {
		out = append(out, Row{
			CellID:      cell,
			Band:        band,
			AnomalyType: typ,
			Anomaly:     typ + ": " + clean(body),
		})
		block = append(block, len(out)-1)
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		m := headerMain.FindStringSubmatch(line)
		if m == nil {
			m = headerInline.FindStringSubmatch(line)
		}
		if m != nil {
			cell, _ = strconv.Atoi(m[1])
			band, _ = strconv.Atoi(m[2])
			inBlock = true
			block = nil
			continue
		}
		if !inBlock {
			continue
		}

		if fm := recommendedFix.FindStringSubmatch(line); fm != nil {
			applyFix(out, block, clean(fm[1]))
			continue
		}
		if fm := remediation.FindStringSubmatch(line); fm != nil {
			applyFix(out, block, clean(fm[1]))
			continue
		}

		if em := inlineError.FindStringSubmatch(line); em != nil {
			push(typeFromLabel(em[1]), em[2])
			continue
		}

		for _, k := range anomalyKeys {
			if km := k.re.FindStringSubmatch(line); km != nil {
				push(k.typ, km[1])
				break
			}
		}
	}

	return dedupe(out)
}

func applyFix(rows []Row, idx []int, fix string) {
	for _, i := range idx {
		rows[i].RecommendedFix = fix
	}
}

type signature struct {
	cell, band     int
	typ, text, fix string
}

func dedupe(rows []Row) []Row {
	seen := make(map[signature]struct{}, len(rows))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		sig := signature{r.CellID, r.Band, r.AnomalyType, r.Anomaly, r.RecommendedFix}
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, r)
	}
	return out
}
