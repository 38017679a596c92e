package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"sage-backend/internal/enrichment"
	"sage-backend/internal/model"
	"sage-backend/internal/service"
	"sage-backend/internal/utils"
	"sage-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService *service.ChatService
	pipeline    *enrichment.Pipeline
}

func NewChatHandler(chatService *service.ChatService, pipeline *enrichment.Pipeline) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		pipeline:    pipeline,
	}
}

// Send 发送用户消息，等待助手回复后返回完整会话状态。
// 富化在后台继续，结果通过 /events 或轮询 /enrichments 观察。
func (h *ChatHandler) Send(c *gin.Context) {
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.chatService.SendMessage(c.Request.Context(), req.Message)

	c.JSON(http.StatusOK, h.chatService.State())
}

// ClickOption 点击快捷回复选项，视同用户输入发送
func (h *ChatHandler) ClickOption(c *gin.Context) {
	var req model.OptionClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.chatService.SelectOption(c.Request.Context(), req.Option)

	c.JSON(http.StatusOK, h.chatService.State())
}

// Retry 对指定助手消息重新发起选项提取
func (h *ChatHandler) Retry(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if err := h.chatService.RetryEnrichment(messageID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Extraction restarted"})
}

func (h *ChatHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.chatService.State())
}

func (h *ChatHandler) GetEnrichments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"enrichments": h.pipeline.States(),
		"suggestions": h.pipeline.Suggestions(),
	})
}

// Clear 清空会话，回到开场白基线
func (h *ChatHandler) Clear(c *gin.Context) {
	h.chatService.ClearChat()

	c.JSON(http.StatusOK, h.chatService.State())
}

// Events 富化状态变化的SSE流
func (h *ChatHandler) Events(c *gin.Context) {
	sseWriter := utils.NewSSEWriter(c.Writer)

	ch := h.pipeline.Broker().Subscribe()
	defer h.pipeline.Broker().Unsubscribe(ch)

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				logger.Errorf("Failed to marshal enrichment event: %v", err)
				continue
			}

			if err := sseWriter.Write("enrichment", string(data)); err != nil {
				logger.Errorf("Failed to write SSE: %v", err)
				return
			}

		case <-c.Request.Context().Done():
			return
		}
	}
}
