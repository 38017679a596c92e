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
	"sage-backend/internal/knowledge"
	"sage-backend/internal/model"
	"sage-backend/internal/storage"
	"sage-backend/pkg/logger"
)

var (
	ErrMessageNotFound     = errors.New("message not found")
	ErrNotAssistantMessage = errors.New("not an assistant message")
)

// ChatService 会话控制器：独占持有内存中的消息日志、忙碌标志
// 和点击中的选项集合，组合网关、富化管线与知识标签服务。
type ChatService struct {
	mu        sync.Mutex
	messages  []model.Message
	isLoading bool
	clicked   map[string]struct{}
	lastID    int64

	history  *HistoryStore
	gateway  gateway.Client
	pipeline *enrichment.Pipeline
	tags     *knowledge.Service

	optionClickDelay time.Duration
}

func NewChatService(store storage.Storage, gw gateway.Client, pipeline *enrichment.Pipeline, tags *knowledge.Service, optionClickDelay time.Duration) *ChatService {
	history := NewHistoryStore(store)
	messages := history.Load()

	var lastID int64
	for _, msg := range messages {
		if msg.ID > lastID {
			lastID = msg.ID
		}
	}

	return &ChatService{
		messages:         messages,
		clicked:          make(map[string]struct{}),
		lastID:           lastID,
		history:          history,
		gateway:          gw,
		pipeline:         pipeline,
		tags:             tags,
		optionClickDelay: optionClickDelay,
	}
}

// SendMessage 发送一条用户消息并等待助手回复。
// 空白输入或已有发送在途时是纯no-op；忙碌标志保证
// 任意时刻最多一个converse调用在途，用户发送严格串行。
// 网关失败不致命：以合成的助手错误消息形式进入日志，会话照常继续。
func (s *ChatService) SendMessage(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	s.mu.Lock()
	if s.isLoading {
		s.mu.Unlock()
		logger.Debug("Send already in flight, ignoring message")
		return
	}
	s.isLoading = true

	userMsg := model.Message{
		ID:        s.nextIDLocked(),
		Sender:    model.SenderUser,
		Text:      text,
		Timestamp: time.Now(),
	}
	s.messages = append(s.messages, userMsg)
	history := model.HistoryTurns(s.messages)
	snapshot := append([]model.Message(nil), s.messages...)
	s.mu.Unlock()

	s.history.Save(snapshot)

	// 有知识标签时使用携带用户背景的系统提示词变体
	reply, err := s.gateway.Converse(ctx, history, s.tags.All())

	s.mu.Lock()
	var aiMsg model.Message
	if err != nil {
		errText := fmt.Sprintf("Error: %v", err)
		aiMsg = model.Message{
			ID:            s.nextIDLocked(),
			Sender:        model.SenderAssistant,
			Text:          errText,
			FormattedText: errText,
			Timestamp:     time.Now(),
		}
	} else {
		aiMsg = model.Message{
			ID:            s.nextIDLocked(),
			Sender:        model.SenderAssistant,
			Text:          reply.Original,
			FormattedText: reply.Formatted,
			Timestamp:     time.Now(),
		}
	}
	s.messages = append(s.messages, aiMsg)
	s.isLoading = false
	snapshot = append([]model.Message(nil), s.messages...)
	s.mu.Unlock()

	s.history.Save(snapshot)

	// 两个富化任务相互独立、不阻塞主对话
	s.pipeline.Trigger(aiMsg.ID, aiMsg.Text)
	if err == nil {
		go s.pipeline.SuggestTags(aiMsg.ID, userMsg.Text, aiMsg.Text)
	}
}

// SelectOption 点击快捷回复：先做短暂的点击标记（驱动前端反馈），
// 延迟后视同用户输入发送。忙碌标志不拦截标记本身。
func (s *ChatService) SelectOption(ctx context.Context, option string) {
	if strings.TrimSpace(option) == "" {
		return
	}

	s.mu.Lock()
	s.clicked[option] = struct{}{}
	s.mu.Unlock()

	time.Sleep(s.optionClickDelay)

	s.SendMessage(ctx, option)

	s.mu.Lock()
	delete(s.clicked, option)
	s.mu.Unlock()
}

// RetryEnrichment 对指定助手消息重新发起选项提取
func (s *ChatService) RetryEnrichment(messageID int64) error {
	s.mu.Lock()
	var target *model.Message
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			target = &s.messages[i]
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return ErrMessageNotFound
	}
	if target.Sender != model.SenderAssistant {
		s.mu.Unlock()
		return fmt.Errorf("%w: message %d", ErrNotAssistantMessage, messageID)
	}
	text := target.Text
	s.mu.Unlock()

	s.pipeline.Retry(messageID, text)
	return nil
}

// ClearChat 清空会话：持久化历史删除、日志回到开场白、
// 富化状态与点击集合全部清零
func (s *ChatService) ClearChat() []model.Message {
	s.mu.Lock()
	s.messages = s.history.Clear()
	s.clicked = make(map[string]struct{})
	s.isLoading = false
	snapshot := append([]model.Message(nil), s.messages...)
	s.mu.Unlock()

	s.pipeline.Reset()

	return snapshot
}

func (s *ChatService) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]model.Message(nil), s.messages...)
}

func (s *ChatService) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.isLoading
}

func (s *ChatService) ClickedOptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	options := make([]string, 0, len(s.clicked))
	for option := range s.clicked {
		options = append(options, option)
	}
	return options
}

// State 拼装会话界面需要的完整可观察状态
func (s *ChatService) State() model.ChatStateResponse {
	return model.ChatStateResponse{
		Messages:       s.Messages(),
		IsLoading:      s.IsLoading(),
		ClickedOptions: s.ClickedOptions(),
		Enrichments:    s.pipeline.States(),
		Suggestions:    s.pipeline.Suggestions(),
	}
}

// nextIDLocked 毫秒时间戳基础上保证严格递增，
// 同一毫秒内创建的消息也能拿到不同且有序的ID
func (s *ChatService) nextIDLocked() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}
