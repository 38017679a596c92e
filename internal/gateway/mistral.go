package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sage-backend/internal/config"
	"sage-backend/internal/model"
	"sage-backend/internal/utils"
	"sage-backend/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
)

// MistralClient 基于OpenAI兼容接口的Mistral网关实现。
// 主对话使用cfg.Model，两个提取操作使用更快的cfg.OptionModel。
type MistralClient struct {
	client     *openai.Client
	cfg        config.MistralConfig
	maxOptions int
}

func NewMistralClient(cfg config.MistralConfig, maxOptions int) *MistralClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = utils.NewHTTPClient(cfg.Timeout)

	return &MistralClient{
		client:     openai.NewClientWithConfig(clientConfig),
		cfg:        cfg,
		maxOptions: maxOptions,
	}
}

func (m *MistralClient) Converse(ctx context.Context, history []model.ChatTurn, tags []model.KnowledgeTag) (*model.AiReply, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: m.systemPrompt(tags),
		},
	}

	// 历史永远使用原始文本，展示用HTML绝不回传模型
	for _, turn := range history {
		role := openai.ChatMessageRoleAssistant
		if turn.Sender == model.SenderUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Text,
		})
	}

	original, err := m.complete(ctx, m.cfg.Model, messages, m.cfg.MaxTokens, m.cfg.Temperature)
	if err != nil {
		return nil, err
	}

	return &model.AiReply{
		Original:  original,
		Formatted: RenderMarkdown(original),
	}, nil
}

func (m *MistralClient) DiscoverKnowledge(ctx context.Context, conversationContext, userInput string) (*model.AiReply, error) {
	prompt := fmt.Sprintf("%s\n\nPrevious conversation:\n%s\n\nUser just said: %s\n\nRespond conversationally:",
		knowledgeDiscoveryPrompt, conversationContext, userInput)

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		},
	}

	original, err := m.complete(ctx, m.cfg.Model, messages, m.cfg.MaxTokens, 0.7)
	if err != nil {
		return nil, err
	}

	return &model.AiReply{
		Original:  original,
		Formatted: RenderMarkdown(original),
	}, nil
}

func (m *MistralClient) ExtractOptions(ctx context.Context, messageText string) ([]string, error) {
	prompt := fmt.Sprintf(optionExtractionPrompt, m.maxOptions, messageText)

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		},
	}

	content, err := m.complete(ctx, m.cfg.OptionModel, messages, 200, 0.1)
	if err != nil {
		return nil, err
	}

	var payload model.OptionExtractionPayload
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse option extraction response: %w", err)
	}

	if !payload.HasOptions {
		return []string{}, nil
	}

	options := make([]string, 0, len(payload.Options))
	for _, opt := range payload.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		options = append(options, opt)
		if len(options) >= m.maxOptions {
			break
		}
	}

	return options, nil
}

func (m *MistralClient) ExtractKnowledge(ctx context.Context, transcript string) ([]model.TagCandidate, error) {
	prompt := fmt.Sprintf(knowledgeExtractionPrompt, transcript)

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		},
	}

	content, err := m.complete(ctx, m.cfg.OptionModel, messages, 500, 0.1)
	if err != nil {
		return nil, err
	}

	var payload model.KnowledgeExtractionPayload
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge extraction response: %w", err)
	}

	if !payload.HasKnowledge {
		return []model.TagCandidate{}, nil
	}

	candidates := make([]model.TagCandidate, 0, len(payload.Tags))
	for _, tag := range payload.Tags {
		tag.Title = strings.TrimSpace(tag.Title)
		if tag.Title == "" {
			continue
		}
		if !tag.Confidence.Valid() {
			logger.Debugf("Unknown confidence %q for tag %q, defaulting to Beginner", tag.Confidence, tag.Title)
			tag.Confidence = model.ConfidenceBeginner
		}
		candidates = append(candidates, tag)
	}

	return candidates, nil
}

func (m *MistralClient) complete(ctx context.Context, modelName string, messages []openai.ChatCompletionMessage, maxTokens int, temperature float32) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       modelName,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoResponse
	}

	return resp.Choices[0].Message.Content, nil
}

func (m *MistralClient) systemPrompt(tags []model.KnowledgeTag) string {
	if len(tags) == 0 {
		return rolePrompt
	}

	var sb strings.Builder
	sb.WriteString(rolePrompt)
	sb.WriteString("\n\n")
	sb.WriteString(knowledgeContextPrompt)
	sb.WriteString("\n")
	for _, tag := range tags {
		sb.WriteString(fmt.Sprintf("- %s (%s)\n", tag.Title, tag.Confidence))
	}

	return sb.String()
}

// stripCodeFence 容忍模型把JSON包在```或```json围栏里
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}
