package model

import "time"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message 会话消息。用户消息只有Text；助手消息同时携带
// Text（原始Markdown，用于后续API上下文）和FormattedText（渲染后的HTML，仅用于展示）。
type Message struct {
	ID            int64     `json:"id"`
	Sender        Sender    `json:"sender"`
	Text          string    `json:"text"`
	FormattedText string    `json:"formatted_text,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// ChatTurn 发送给模型网关的历史条目，始终使用原始文本
type ChatTurn struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}

// AiReply 模型网关的双表示响应
type AiReply struct {
	Original  string `json:"original"`
	Formatted string `json:"formatted"`
}

// HistoryTurns 把消息日志转换为网关历史格式
func HistoryTurns(messages []Message) []ChatTurn {
	turns := make([]ChatTurn, len(messages))
	for i, msg := range messages {
		turns[i] = ChatTurn{
			ID:     msg.ID,
			Text:   msg.Text,
			Sender: msg.Sender,
		}
	}
	return turns
}
