// Package chat holds the per-session conversation state.
package chat

import (
	"context"
	"fmt"
	"sync"

	"healthqa/internal/domain"
	"healthqa/internal/service"
)

// FailureReply is recorded as the assistant turn when a turn fails.
const FailureReply = "Sorgu hatası."

// Answerer runs one RAG turn.
type Answerer interface {
	Answer(ctx context.Context, question string) (service.Answer, error)
}

// TurnResult is what the view needs to render a finished turn.
type TurnResult struct {
	Reply  string
	Answer service.Answer
	Err    error
}

// ErrorText is the inline message shown for a failed turn.
func (r TurnResult) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return fmt.Sprintf("Sorgu işlenirken bir hata oluştu: %v", r.Err)
}

// Session is an append-only conversation history. It lives as long as the
// process and is never persisted.
type Session struct {
	answerer Answerer

	mu      sync.Mutex
	history []domain.Message
}

func NewSession(answerer Answerer) *Session {
	return &Session{answerer: answerer}
}

// Turn appends the user message, runs the turn and appends exactly one
// assistant message. A failed turn records FailureReply so the transcript
// keeps its user/assistant pairing.
func (s *Session) Turn(ctx context.Context, text string) TurnResult {
	s.append(domain.Message{Role: domain.RoleUser, Content: text})

	ans, err := s.answerer.Answer(ctx, text)
	res := TurnResult{Reply: ans.Text, Answer: ans, Err: err}
	if err != nil {
		res.Reply = FailureReply
	}
	s.append(domain.Message{Role: domain.RoleAssistant, Content: res.Reply})
	return res
}

// History returns a copy of the transcript.
func (s *Session) History() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Reset clears the transcript.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

func (s *Session) append(m domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, m)
}
