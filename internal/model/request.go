package model

type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

type OptionClickRequest struct {
	Option string `json:"option" binding:"required"`
}

type AddTagRequest struct {
	Title      string          `json:"title" binding:"required"`
	Confidence ConfidenceLevel `json:"confidence" binding:"required"`
	Source     TagSource       `json:"source"`
}

type EditTagRequest struct {
	Title      *string          `json:"title"`
	Confidence *ConfidenceLevel `json:"confidence"`
}

type AcceptSuggestionRequest struct {
	Title      string          `json:"title" binding:"required"`
	Confidence ConfidenceLevel `json:"confidence" binding:"required"`
}

type QuizMessageRequest struct {
	Message string `json:"message" binding:"required"`
}
