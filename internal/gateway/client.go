package gateway

import (
	"context"
	"errors"

	"sage-backend/internal/model"
)

var (
	ErrEmptyHistory = errors.New("no messages provided")
	ErrNoResponse   = errors.New("no response from model")
)

// Client 远程补全网关。
// Converse与DiscoverKnowledge的失败会原样返回给调用方；
// 两个提取操作的失败由富化管线吸收，绝不阻塞主对话。
type Client interface {
	// Converse 发送完整的原始文本历史，返回原始文本+渲染后HTML。
	// tags非空时使用携带用户知识背景的系统提示词变体。
	Converse(ctx context.Context, history []model.ChatTurn, tags []model.KnowledgeTag) (*model.AiReply, error)

	// DiscoverKnowledge 知识发现问答模式，输入为拍平的对话文本而非结构化历史
	DiscoverKnowledge(ctx context.Context, conversationContext, userInput string) (*model.AiReply, error)

	// ExtractOptions 从助手消息中提取快捷回复建议。
	// 模型明确表示无选项时返回空切片且无错误。
	ExtractOptions(ctx context.Context, messageText string) ([]string, error)

	// ExtractKnowledge 从对话片段中挖掘用户已展示的技能
	ExtractKnowledge(ctx context.Context, transcript string) ([]model.TagCandidate, error)
}
