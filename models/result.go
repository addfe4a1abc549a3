package models

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the human-readable key of a result row
const TimestampLayout = "2006-01-02 15:04:05"

// ResultRow is the summary appended to the results store when an interview completes
type ResultRow struct {
	SessionID    string    `json:"session_id" bson:"session_id"`
	Timestamp    string    `json:"timestamp" bson:"timestamp"`
	Location     string    `json:"location" bson:"location"`
	Tool         string    `json:"tool" bson:"tool"`
	Title        string    `json:"title" bson:"title"`
	CoreValue    string    `json:"core_value" bson:"core_value"`
	Monetization string    `json:"monetization" bson:"monetization"`
	Verdict      string    `json:"verdict" bson:"verdict"`
	Confidence   string    `json:"confidence" bson:"confidence"`
	Report       Report    `json:"report" bson:"report"`
	Transcript   string    `json:"transcript" bson:"transcript"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// NewResultRow builds the row for a completed interview
func NewResultRow(sessionID string, now time.Time, catalog Catalog, choice ArchetypeChoice, report Report, turns []DialogueTurn) ResultRow {
	return ResultRow{
		SessionID:    sessionID,
		Timestamp:    now.Format(TimestampLayout),
		Location:     catalog.Location(choice.Location).Name,
		Tool:         catalog.Tool(choice.Tool).Name,
		Title:        report[ReportKeyTitle],
		CoreValue:    report[ReportKeyCoreValue],
		Monetization: report[ReportKeyMonetization],
		Verdict:      report[ReportKeyVerdict],
		Confidence:   report[ReportKeyConfidence],
		Report:       report,
		Transcript:   FlattenTranscript(turns),
		CreatedAt:    now,
	}
}

// FlattenTranscript renders turns as "[User] ..." / "[Agent] ..." lines
func FlattenTranscript(turns []DialogueTurn) string {
	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteString("\n")
		}
		label := "User"
		if t.Speaker == SpeakerAgent {
			label = "Agent"
		}
		fmt.Fprintf(&sb, "[%s] %s", label, strings.TrimSpace(t.Text))
	}
	return sb.String()
}
