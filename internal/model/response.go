package model

// ChatStateResponse 会话界面的完整可观察状态
type ChatStateResponse struct {
	Messages       []Message                `json:"messages"`
	IsLoading      bool                     `json:"is_loading"`
	ClickedOptions []string                 `json:"clicked_options"`
	Enrichments    map[int64]OptionState    `json:"enrichments"`
	Suggestions    map[int64][]SuggestedTag `json:"suggestions,omitempty"`
}

type QuizStateResponse struct {
	Active   bool          `json:"active"`
	Messages []QuizMessage `json:"messages"`
}

// EnrichmentEvent 富化状态变化事件，通过SSE推送给前端
type EnrichmentEvent struct {
	MessageID int64       `json:"message_id"`
	State     OptionState `json:"state"`
}
