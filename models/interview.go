package models

import "time"

// Stage is the position of a session in the interview
type Stage string

const (
	StageChooseLocation Stage = "choose_location"
	StageChooseTool     Stage = "choose_tool"
	StageDialogue       Stage = "dialogue"
	StageComplete       Stage = "complete"
)

// Rank orders the stages; a session's rank never decreases
func (s Stage) Rank() int {
	switch s {
	case StageChooseLocation:
		return 0
	case StageChooseTool:
		return 1
	case StageDialogue:
		return 2
	case StageComplete:
		return 3
	default:
		return -1
	}
}

// Speaker identifies who authored a turn
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// DialogueTurn is one message of the dialogue stage. Turns are append-only and
// replayed in order as conversation history.
type DialogueTurn struct {
	Speaker       Speaker   `json:"speaker" bson:"speaker"`
	Text          string    `json:"text" bson:"text"`
	SequenceIndex int       `json:"sequence_index" bson:"sequence_index"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// ChatMessage is one entry of the history forwarded to the model
type ChatMessage struct {
	Speaker Speaker
	Text    string
}

// Report is the key/value summary the model embeds in its closing response
type Report map[string]string

// Well-known report keys
const (
	ReportKeyTitle        = "별자리명"
	ReportKeyCoreValue    = "핵심가치"
	ReportKeyMonetization = "수익화"
	ReportKeyVerdict      = "한줄평"
	ReportKeyConfidence   = "신뢰도"
)

// ExtractionResult is the outcome of splitting one model response into prose
// and an optional structured report
type ExtractionResult struct {
	DisplayText string `json:"display_text"`
	Report      Report `json:"report,omitempty"`
	ParseFailed bool   `json:"parse_failed"`
}

// HasReport reports whether a structured report was recovered
func (r ExtractionResult) HasReport() bool {
	return r.Report != nil
}
