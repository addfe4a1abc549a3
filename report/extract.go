// Package report separates the prose of a model response from the structured
// report the model appends to its closing message.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"phronesis/models"
)

// Marker must appear in a response, together with both brace characters,
// before extraction is attempted. It is matched literally.
const Marker = models.ReportKeyConfidence

// Contains reports whether raw looks like it carries a structured report.
// This is a heuristic; it does not check that the braces are balanced.
func Contains(raw string) bool {
	return strings.Contains(raw, "{") &&
		strings.Contains(raw, "}") &&
		strings.Contains(raw, Marker)
}

// Extract splits raw into display text and report. It never panics and never
// drops content: when the candidate block does not parse, the whole response is
// returned as display text with ParseFailed set.
//
// The boundary rule is deliberately naive. If the prose itself contains a brace
// pair and the marker, the split lands in the wrong place.
func Extract(raw string) models.ExtractionResult {
	if !Contains(raw) {
		return models.ExtractionResult{DisplayText: raw}
	}

	open := strings.Index(raw, "{")
	display := raw[:open]
	candidate := candidateBlock(raw[open+1:])

	parsed, err := parseReport(candidate)
	if err != nil {
		return models.ExtractionResult{DisplayText: raw, ParseFailed: true}
	}
	return models.ExtractionResult{DisplayText: display, Report: parsed}
}

// candidateBlock trims rest back to its last closing brace and re-wraps it.
// A remainder without any closing brace is used whole.
func candidateBlock(rest string) string {
	if end := strings.LastIndex(rest, "}"); end >= 0 {
		rest = rest[:end]
	}
	return "{" + rest + "}"
}

func parseReport(candidate string) (models.Report, error) {
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("report is null")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after report")
	}

	out := make(models.Report, len(fields))
	for k, v := range fields {
		s, err := stringify(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}

func stringify(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(val); err != nil {
			return "", err
		}
		return strings.TrimSpace(buf.String()), nil
	}
}
