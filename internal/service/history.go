package service

import (
	"errors"
	"time"

	"sage-backend/internal/model"
	"sage-backend/internal/storage"
	"sage-backend/pkg/logger"
)

const (
	chatStorageKey = "sage-chat-history"
	greetingText   = "Hello, I'm Sage 🌿 Ready to explore something new together?"
)

// HistoryStore 会话历史的持久化层：加载失败或没有历史时
// 退回固定的开场白，保存是尽力而为
type HistoryStore struct {
	storage storage.Storage
}

func NewHistoryStore(store storage.Storage) *HistoryStore {
	return &HistoryStore{
		storage: store,
	}
}

// Load 读取持久化历史。键不存在、数据损坏或为空时返回开场白。
// 时间戳由JSON反序列化直接还原为time.Time。
func (h *HistoryStore) Load() []model.Message {
	var messages []model.Message
	if err := h.storage.Get(chatStorageKey, &messages); err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			logger.Errorf("Failed to load chat history: %v", err)
		}
		return InitialMessages()
	}

	if len(messages) == 0 {
		return InitialMessages()
	}

	return messages
}

// Save 持久化当前历史，失败只记日志不上抛
func (h *HistoryStore) Save(messages []model.Message) {
	if err := h.storage.Set(chatStorageKey, messages); err != nil {
		logger.Errorf("Failed to save chat history: %v", err)
	}
}

// Clear 删除持久化历史并返回新的开场白基线
func (h *HistoryStore) Clear() []model.Message {
	if err := h.storage.Remove(chatStorageKey); err != nil {
		logger.Errorf("Failed to clear chat history: %v", err)
	}

	return InitialMessages()
}

// InitialMessages 固定的助手开场白
func InitialMessages() []model.Message {
	return []model.Message{
		{
			ID:            1,
			Sender:        model.SenderAssistant,
			Text:          greetingText,
			FormattedText: greetingText,
			Timestamp:     time.Now(),
		},
	}
}
