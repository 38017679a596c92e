package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"sage-backend/internal/enrichment"
	"sage-backend/internal/gateway"
	"sage-backend/internal/model"
	"sage-backend/pkg/logger"

	"github.com/google/uuid"
)

const (
	quizWelcomeText = "Hello! I'd love to learn about what you already know. What's your background in? (e.g., programming, design, mathematics, etc.)"
	quizApologyText = "I'm sorry, I had trouble processing that. Could you try again?"
)

var ErrQuizNotActive = errors.New("quiz is not active")

// QuizService 知识发现问答流程：引导用户聊自己的背景，
// 每轮回复后从对话片段中挖掘可收藏的知识标签
type QuizService struct {
	mu       sync.Mutex
	active   bool
	messages []model.QuizMessage

	gateway  gateway.Client
	pipeline *enrichment.Pipeline
}

func NewQuizService(gw gateway.Client, pipeline *enrichment.Pipeline) *QuizService {
	return &QuizService{
		gateway:  gw,
		pipeline: pipeline,
	}
}

// Start 激活问答并返回开场提问
func (q *QuizService) Start() []model.QuizMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.active = true
	q.messages = []model.QuizMessage{
		{
			ID:        uuid.New().String(),
			Sender:    model.SenderAssistant,
			Content:   quizWelcomeText,
			Timestamp: time.Now(),
		},
	}

	return append([]model.QuizMessage(nil), q.messages...)
}

// Reset 结束问答并丢弃全部消息
func (q *QuizService) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.active = false
	q.messages = nil
}

// Send 处理一轮问答：发现模式拿到回复后，对这一轮的
// 两行对话摘录做知识提取，把建议标签挂到助手消息上。
// 网关失败时以固定的道歉消息代替，不上抛。
func (q *QuizService) Send(ctx context.Context, input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}

	q.mu.Lock()
	if !q.active {
		q.mu.Unlock()
		return ErrQuizNotActive
	}

	// 上下文只包含本轮之前的消息，当前输入单独传给网关
	conversationContext := q.flattenLocked()

	userMsg := model.QuizMessage{
		ID:        uuid.New().String(),
		Sender:    model.SenderUser,
		Content:   input,
		Timestamp: time.Now(),
	}
	q.messages = append(q.messages, userMsg)
	q.mu.Unlock()

	reply, err := q.gateway.DiscoverKnowledge(ctx, conversationContext, input)
	if err != nil {
		logger.Warnf("Knowledge discovery failed: %v", err)
		q.appendMessage(model.QuizMessage{
			ID:        uuid.New().String(),
			Sender:    model.SenderAssistant,
			Content:   quizApologyText,
			Timestamp: time.Now(),
		})
		return nil
	}

	aiMsg := model.QuizMessage{
		ID:               uuid.New().String(),
		Sender:           model.SenderAssistant,
		Content:          reply.Original,
		FormattedContent: reply.Formatted,
		Timestamp:        time.Now(),
	}

	// 提取基于原始文本，展示用HTML不进提取
	aiMsg.SuggestedTags = q.pipeline.ExtractSuggestions(input, reply.Original)

	q.appendMessage(aiMsg)

	return nil
}

// Accept 把一条建议标签收入知识库，并从所有问答消息中移除同名建议
func (q *QuizService) Accept(title string, confidence model.ConfidenceLevel) (*model.KnowledgeTag, error) {
	tag, err := q.pipeline.AcceptSuggestion(title, confidence)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	for i := range q.messages {
		if len(q.messages[i].SuggestedTags) == 0 {
			continue
		}
		kept := q.messages[i].SuggestedTags[:0]
		for _, t := range q.messages[i].SuggestedTags {
			if t.Title != title {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			q.messages[i].SuggestedTags = nil
		} else {
			q.messages[i].SuggestedTags = kept
		}
	}
	q.mu.Unlock()

	return tag, nil
}

func (q *QuizService) State() model.QuizStateResponse {
	q.mu.Lock()
	defer q.mu.Unlock()

	return model.QuizStateResponse{
		Active:   q.active,
		Messages: append([]model.QuizMessage(nil), q.messages...),
	}
}

func (q *QuizService) appendMessage(msg model.QuizMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.active {
		return
	}
	q.messages = append(q.messages, msg)
}

// flattenLocked 把问答历史拍平成"sender: content"文本，调用方必须持有锁
func (q *QuizService) flattenLocked() string {
	var sb strings.Builder
	for i, msg := range q.messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", msg.Sender, msg.Content))
	}
	return sb.String()
}
