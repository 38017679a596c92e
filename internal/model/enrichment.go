package model

// OptionState 单条助手消息的快捷回复提取状态。
// map中不存在对应条目表示"尚未尝试提取"。
type OptionState struct {
	Options []string `json:"options"`
	Loading bool     `json:"loading"`
	Error   string   `json:"error,omitempty"`
}

// TagCandidate 知识提取返回的原始候选项
type TagCandidate struct {
	Title      string          `json:"title"`
	Confidence ConfidenceLevel `json:"confidence"`
}

// OptionExtractionPayload 模型返回的选项提取原始JSON
type OptionExtractionPayload struct {
	HasOptions bool     `json:"has_options"`
	Options    []string `json:"options"`
}

// KnowledgeExtractionPayload 模型返回的知识提取原始JSON
type KnowledgeExtractionPayload struct {
	HasKnowledge bool           `json:"has_knowledge"`
	Tags         []TagCandidate `json:"tags"`
}
