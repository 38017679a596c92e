package handler

import (
	"errors"
	"net/http"

	"sage-backend/internal/knowledge"
	"sage-backend/internal/model"
	"sage-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type KnowledgeHandler struct {
	tags *knowledge.Service
	quiz *service.QuizService
}

func NewKnowledgeHandler(tags *knowledge.Service, quiz *service.QuizService) *KnowledgeHandler {
	return &KnowledgeHandler{
		tags: tags,
		quiz: quiz,
	}
}

// ListTags 按标题子串过滤（忽略大小写），search为空时返回全部
func (h *KnowledgeHandler) ListTags(c *gin.Context) {
	searchTerm := c.Query("search")

	c.JSON(http.StatusOK, gin.H{
		"tags": h.tags.Filtered(searchTerm),
	})
}

func (h *KnowledgeHandler) AddTag(c *gin.Context) {
	var req model.AddTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	source := req.Source
	if source == "" {
		source = model.SourceManual
	}

	tag, err := h.tags.Add(req.Title, req.Confidence, source)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tag)
}

func (h *KnowledgeHandler) EditTag(c *gin.Context) {
	id := c.Param("id")

	var req model.EditTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tag, err := h.tags.Edit(id, model.TagUpdate{
		Title:      req.Title,
		Confidence: req.Confidence,
	})
	if err != nil {
		if errors.Is(err, knowledge.ErrTagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tag)
}

func (h *KnowledgeHandler) DeleteTag(c *gin.Context) {
	id := c.Param("id")

	if err := h.tags.Delete(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted successfully"})
}

func (h *KnowledgeHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.tags.Counts())
}

// AcceptSuggestion 把提取出的建议标签正式收入知识库
func (h *KnowledgeHandler) AcceptSuggestion(c *gin.Context) {
	var req model.AcceptSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tag, err := h.quiz.Accept(req.Title, req.Confidence)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tag)
}

func (h *KnowledgeHandler) StartQuiz(c *gin.Context) {
	h.quiz.Start()

	c.JSON(http.StatusOK, h.quiz.State())
}

func (h *KnowledgeHandler) QuizMessage(c *gin.Context) {
	var req model.QuizMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.quiz.Send(c.Request.Context(), req.Message); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.quiz.State())
}

func (h *KnowledgeHandler) ResetQuiz(c *gin.Context) {
	h.quiz.Reset()

	c.JSON(http.StatusOK, h.quiz.State())
}

func (h *KnowledgeHandler) GetQuiz(c *gin.Context) {
	c.JSON(http.StatusOK, h.quiz.State())
}
