package prompts

import (
	"fmt"
	"strings"

	"phronesis/models"
)

// WelcomeMessage is shown when a session starts. It is never sent to the model.
const WelcomeMessage = "시스템이 가동되었습니다. 먼저 당신이 가장 편안함을 느끼는 장소를 골라주세요."

// ToolQuestion is shown once the location is recorded
const ToolQuestion = "좋습니다. 이제 당신이 가장 자주 손에 쥐는 도구를 골라주세요."

// ClosingDirective is appended to the outgoing user message once the turn
// threshold is reached. It asks the model to close the interview with the
// structured report the extractor looks for.
const ClosingDirective = `

[SYSTEM: 이제 인터뷰를 마무리하세요. 지금까지의 대화를 짧게 정리한 뒤, 응답의 마지막에 아래 형식의 JSON 객체를 한 번만 출력하세요.
{"별자리명": "...", "핵심가치": "...", "수익화": "...", "한줄평": "...", "신뢰도": "...%"}]`

// BuildOpeningPrompt generates the first message sent to the model once both
// archetypes are chosen
func BuildOpeningPrompt(catalog models.Catalog, choice models.ArchetypeChoice) string {
	loc := catalog.Location(choice.Location)
	tool := catalog.Tool(choice.Tool)

	return fmt.Sprintf(`사용자가 인터뷰를 시작했습니다.

선택한 장소: %s (%s)
선택한 도구: %s (%s)

이 두 선택을 바탕으로 사용자의 원형(archetype)을 한 문장으로 선언하고,
사용자의 실제 경험을 끌어낼 수 있는 구체적인 질문을 딱 하나만 던지세요.`,
		loc.Name, loc.Descriptor,
		tool.Name, tool.Descriptor)
}

// WithClosingDirective annotates text with the closing request
func WithClosingDirective(text string) string {
	return text + ClosingDirective
}

// HasClosingDirective reports whether text carries the closing request
func HasClosingDirective(text string) bool {
	return strings.Contains(text, strings.TrimSpace(ClosingDirective))
}

// FormatOptions renders archetypes as a numbered list for line-oriented front-ends
func FormatOptions(options []models.Archetype) string {
	var sb strings.Builder
	for i, o := range options {
		fmt.Fprintf(&sb, "  %d) %s - %s\n", i+1, o.Name, o.Descriptor)
	}
	return sb.String()
}
