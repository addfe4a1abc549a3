package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"phronesis/models"
	"phronesis/prompts"
)

// MockClient is an offline stand-in for the hosted model. It asks a follow-up
// question on every turn and answers the closing directive with a report.
type MockClient struct {
	mu    sync.Mutex
	calls int
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

// Calls returns how many requests the mock has answered
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockClient) Send(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelCommunication, err)
	}

	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if prompts.HasClosingDirective(message) {
		return mockReport, nil
	}
	if len(history) == 0 {
		return "당신은 스스로 길을 만드는 사람처럼 보이네요. 최근에 가장 몰입했던 순간은 언제였나요?", nil
	}

	quoted := strings.TrimSpace(message)
	if r := []rune(quoted); len(r) > 40 {
		quoted = string(r[:40]) + "..."
	}
	return fmt.Sprintf("%q라고 하셨군요. 그때 어떤 기분이 들었는지 조금 더 들려주세요.", quoted), nil
}

const mockReport = `이야기를 들려주셔서 고맙습니다. 당신의 별자리를 정리해 보았습니다.
{"별자리명": "고치는 별", "핵심가치": "망가진 것을 다시 쓸모 있게 만드는 끈기", "수익화": "수리와 리폼 클래스 운영", "한줄평": "버려진 것에서 가능성을 보는 사람", "신뢰도": "80%"}`
