package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sage-backend/internal/enrichment"
	"sage-backend/internal/knowledge"
	"sage-backend/internal/model"
	"sage-backend/internal/storage"
)

func newTestQuizService(gw *stubGateway) (*QuizService, *knowledge.Service) {
	tags := knowledge.NewService(storage.NewMemoryStorage())
	pipeline := enrichment.NewPipeline(gw, tags)
	return NewQuizService(gw, pipeline), tags
}

func TestQuizStartReturnsWelcome(t *testing.T) {
	q, _ := newTestQuizService(&stubGateway{})

	messages := q.Start()

	if len(messages) != 1 || messages[0].Sender != model.SenderAssistant {
		t.Fatalf("expected single assistant welcome, got %v", messages)
	}
	if !strings.Contains(messages[0].Content, "background") {
		t.Errorf("unexpected welcome text %q", messages[0].Content)
	}
	if !q.State().Active {
		t.Error("quiz should be active after Start")
	}
}

func TestQuizSendRequiresActiveQuiz(t *testing.T) {
	q, _ := newTestQuizService(&stubGateway{})

	if err := q.Send(context.Background(), "hello"); !errors.Is(err, ErrQuizNotActive) {
		t.Errorf("expected ErrQuizNotActive, got %v", err)
	}
}

func TestQuizSendAppendsTurnWithSuggestions(t *testing.T) {
	var gotContext, gotInput string
	gw := &stubGateway{
		discoverFn: func(conversationContext, userInput string) (*model.AiReply, error) {
			gotContext = conversationContext
			gotInput = userInput
			return &model.AiReply{Original: "Go, nice!", Formatted: "<p>Go, nice!</p>"}, nil
		},
		extractFn: func(transcript string) ([]model.TagCandidate, error) {
			return []model.TagCandidate{
				{Title: "Go", Confidence: model.ConfidenceIntermediate},
			}, nil
		},
	}
	q, _ := newTestQuizService(gw)
	q.Start()

	if err := q.Send(context.Background(), "I know Go"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	state := q.State()
	if len(state.Messages) != 3 {
		t.Fatalf("expected welcome+user+assistant, got %d messages", len(state.Messages))
	}

	aiMsg := state.Messages[2]
	if aiMsg.Content != "Go, nice!" || aiMsg.FormattedContent != "<p>Go, nice!</p>" {
		t.Errorf("unexpected assistant message %+v", aiMsg)
	}
	if len(aiMsg.SuggestedTags) != 1 || aiMsg.SuggestedTags[0].Title != "Go" {
		t.Errorf("suggestions should be attached to the assistant message, got %v", aiMsg.SuggestedTags)
	}
	if aiMsg.SuggestedTags[0].Source != model.SourceDiscovered {
		t.Errorf("quiz suggestions should be discovered, got %s", aiMsg.SuggestedTags[0].Source)
	}

	// 上下文只含本轮之前的消息，当前输入单独传入
	if gotInput != "I know Go" {
		t.Errorf("unexpected input %q", gotInput)
	}
	if strings.Contains(gotContext, "I know Go") {
		t.Errorf("context should not include the current input, got %q", gotContext)
	}
	if !strings.Contains(gotContext, quizWelcomeText) {
		t.Errorf("context should include prior messages, got %q", gotContext)
	}
}

func TestQuizSendFiltersKnownTags(t *testing.T) {
	gw := &stubGateway{
		extractFn: func(transcript string) ([]model.TagCandidate, error) {
			return []model.TagCandidate{
				{Title: "python", Confidence: model.ConfidenceExpert},
				{Title: "Rust", Confidence: model.ConfidenceBeginner},
			}, nil
		},
	}
	q, tags := newTestQuizService(gw)
	if _, err := tags.Add("Python", model.ConfidenceExpert, model.SourceManual); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	q.Start()

	if err := q.Send(context.Background(), "I know Python and Rust"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	aiMsg := q.State().Messages[2]
	if len(aiMsg.SuggestedTags) != 1 || aiMsg.SuggestedTags[0].Title != "Rust" {
		t.Errorf("known tags should be filtered out, got %v", aiMsg.SuggestedTags)
	}
}

func TestQuizSendDiscoveryFailureYieldsApology(t *testing.T) {
	gw := &stubGateway{
		discoverFn: func(conversationContext, userInput string) (*model.AiReply, error) {
			return nil, errors.New("timeout")
		},
	}
	q, _ := newTestQuizService(gw)
	q.Start()

	if err := q.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("discovery failure should not surface an error, got %v", err)
	}

	messages := q.State().Messages
	last := messages[len(messages)-1]
	if last.Sender != model.SenderAssistant || last.Content != quizApologyText {
		t.Errorf("expected apology message, got %+v", last)
	}
}

func TestQuizAcceptPersistsAndStripsSuggestion(t *testing.T) {
	gw := &stubGateway{
		extractFn: func(transcript string) ([]model.TagCandidate, error) {
			return []model.TagCandidate{
				{Title: "Go", Confidence: model.ConfidenceIntermediate},
				{Title: "Docker", Confidence: model.ConfidenceBeginner},
			}, nil
		},
	}
	q, tags := newTestQuizService(gw)
	q.Start()
	if err := q.Send(context.Background(), "Go and Docker"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	tag, err := q.Accept("Go", model.ConfidenceIntermediate)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if tag.Source != model.SourceDiscovered {
		t.Errorf("accepted tag should be discovered, got %s", tag.Source)
	}
	if !tags.HasTitle("Go") {
		t.Error("accepted tag should be persisted in the store")
	}

	aiMsg := q.State().Messages[2]
	if len(aiMsg.SuggestedTags) != 1 || aiMsg.SuggestedTags[0].Title != "Docker" {
		t.Errorf("accepted suggestion should be stripped from quiz messages, got %v", aiMsg.SuggestedTags)
	}
}

func TestQuizResetDeactivatesAndClears(t *testing.T) {
	q, _ := newTestQuizService(&stubGateway{})
	q.Start()
	if err := q.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	q.Reset()

	state := q.State()
	if state.Active || len(state.Messages) != 0 {
		t.Errorf("Reset should deactivate and clear messages, got %+v", state)
	}
}
