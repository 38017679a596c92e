package model

import "time"

type ConfidenceLevel string

const (
	ConfidenceBeginner     ConfidenceLevel = "Beginner"
	ConfidenceIntermediate ConfidenceLevel = "Intermediate"
	ConfidenceExpert       ConfidenceLevel = "Expert"
)

func (c ConfidenceLevel) Valid() bool {
	switch c {
	case ConfidenceBeginner, ConfidenceIntermediate, ConfidenceExpert:
		return true
	}
	return false
}

type TagSource string

const (
	SourceManual     TagSource = "manual"
	SourceDiscovered TagSource = "discovered"
)

// KnowledgeTag 已持久化的用户知识标签
type KnowledgeTag struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Confidence ConfidenceLevel `json:"confidence"`
	CreatedAt  time.Time       `json:"created_at"`
	Source     TagSource       `json:"source"`
}

// SuggestedTag 提取出的候选标签，尚未持久化，被接受后才会成为KnowledgeTag
type SuggestedTag struct {
	Title      string          `json:"title"`
	Confidence ConfidenceLevel `json:"confidence"`
	Source     TagSource       `json:"source"`
}

// TagUpdate 部分更新，nil字段保持原值
type TagUpdate struct {
	Title      *string          `json:"title"`
	Confidence *ConfidenceLevel `json:"confidence"`
}

type TagCounts struct {
	Total        int `json:"total"`
	Beginner     int `json:"beginner"`
	Intermediate int `json:"intermediate"`
	Expert       int `json:"expert"`
	Discovered   int `json:"discovered"`
	Manual       int `json:"manual"`
}

// QuizMessage 知识发现问答流程中的消息。
// Content是原始文本，FormattedContent是助手消息的展示用HTML。
type QuizMessage struct {
	ID               string         `json:"id"`
	Sender           Sender         `json:"sender"`
	Content          string         `json:"content"`
	FormattedContent string         `json:"formatted_content,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
	SuggestedTags    []SuggestedTag `json:"suggested_tags,omitempty"`
}
