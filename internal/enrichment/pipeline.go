package enrichment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"sage-backend/internal/gateway"
	"sage-backend/internal/model"
	"sage-backend/pkg/logger"
)

// TagStore 管线需要的知识标签能力子集
type TagStore interface {
	HasTitle(title string) bool
	Add(title string, confidence model.ConfidenceLevel, source model.TagSource) (*model.KnowledgeTag, error)
}

// Pipeline 每条助手消息的异步富化管线。
//
// 选项提取状态机：absent → loading → {populated | errored}，
// errored和populated都可以通过Retry回到loading。
//
// pending表为每条消息记录当前有效的提取代号（generation）。
// 提取完成后只有代号仍然匹配才允许提交结果，Retry通过注册新代号
// 使旧的在途提取作废——没有真正的取消原语，靠这一检查保证
// 被取代的完成不会覆盖后来的结果。
type Pipeline struct {
	mu          sync.RWMutex
	states      map[int64]model.OptionState
	pending     map[int64]uint64
	nextGen     uint64
	suggestions map[int64][]model.SuggestedTag

	gateway gateway.Client
	tags    TagStore
	broker  *Broker
}

func NewPipeline(gw gateway.Client, tags TagStore) *Pipeline {
	return &Pipeline{
		states:      make(map[int64]model.OptionState),
		pending:     make(map[int64]uint64),
		suggestions: make(map[int64][]model.SuggestedTag),
		gateway:     gw,
		tags:        tags,
		broker:      NewBroker(),
	}
}

func (p *Pipeline) Broker() *Broker {
	return p.broker
}

// Trigger 对新到达的助手消息发起选项提取。
// 同一消息已有在途提取时是纯no-op（并发重复触发保护）。
func (p *Pipeline) Trigger(messageID int64, text string) {
	p.mu.Lock()
	if _, inFlight := p.pending[messageID]; inFlight {
		p.mu.Unlock()
		return
	}
	gen := p.register(messageID)
	p.mu.Unlock()

	p.publishState(messageID)

	go p.extract(gen, messageID, text)
}

// Retry 重新发起提取。与Trigger不同：已有在途提取时注册新代号，
// 旧提取的完成结果将被丢弃，以最后一次Retry的结果为准。
func (p *Pipeline) Retry(messageID int64, text string) {
	p.mu.Lock()
	gen := p.register(messageID)
	p.mu.Unlock()

	p.publishState(messageID)

	go p.extract(gen, messageID, text)
}

// register 分配新代号并把状态置为loading，调用方必须持有锁
func (p *Pipeline) register(messageID int64) uint64 {
	p.nextGen++
	gen := p.nextGen
	p.pending[messageID] = gen
	p.states[messageID] = model.OptionState{
		Options: []string{},
		Loading: true,
	}
	return gen
}

func (p *Pipeline) extract(gen uint64, messageID int64, text string) {
	options, err := p.gateway.ExtractOptions(context.Background(), text)

	p.mu.Lock()
	// 挂起期间可能被Retry取代或被Reset清空，检查代号后才能提交
	if p.pending[messageID] != gen {
		p.mu.Unlock()
		return
	}
	delete(p.pending, messageID)

	if err != nil {
		logger.Warnf("Option extraction failed for message %d: %v", messageID, err)
		p.states[messageID] = model.OptionState{
			Options: []string{},
			Error:   err.Error(),
		}
	} else {
		p.states[messageID] = model.OptionState{
			Options: options,
		}
	}
	p.mu.Unlock()

	p.publishState(messageID)
}

// ExtractSuggestions 对一轮对话（两行对话摘录）执行知识提取并过滤候选。
// 失败只产生零建议，不对外暴露错误状态。
func (p *Pipeline) ExtractSuggestions(userText, aiText string) []model.SuggestedTag {
	transcript := fmt.Sprintf("User: %s\nAI: %s", userText, aiText)

	candidates, err := p.gateway.ExtractKnowledge(context.Background(), transcript)
	if err != nil {
		logger.Warnf("Knowledge extraction failed: %v", err)
		return nil
	}

	return p.FilterCandidates(candidates)
}

// SuggestTags 执行知识提取并把过滤后的候选挂到指定的助手消息上
func (p *Pipeline) SuggestTags(messageID int64, userText, aiText string) []model.SuggestedTag {
	suggested := p.ExtractSuggestions(userText, aiText)
	if len(suggested) == 0 {
		return nil
	}

	p.mu.Lock()
	p.suggestions[messageID] = suggested
	p.mu.Unlock()

	return suggested
}

// FilterCandidates 去掉与已持久化标签同名（忽略大小写）的候选，
// 以及同一批次内的重复项
func (p *Pipeline) FilterCandidates(candidates []model.TagCandidate) []model.SuggestedTag {
	var suggested []model.SuggestedTag

	for _, candidate := range candidates {
		if p.tags.HasTitle(candidate.Title) {
			continue
		}

		duplicate := false
		for _, s := range suggested {
			if strings.EqualFold(s.Title, candidate.Title) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		suggested = append(suggested, model.SuggestedTag{
			Title:      candidate.Title,
			Confidence: candidate.Confidence,
			Source:     model.SourceDiscovered,
		})
	}

	return suggested
}

// AcceptSuggestion 把一条建议转为真正的知识标签，
// 并从所有消息的建议列表中移除同名建议
func (p *Pipeline) AcceptSuggestion(title string, confidence model.ConfidenceLevel) (*model.KnowledgeTag, error) {
	tag, err := p.tags.Add(title, confidence, model.SourceDiscovered)
	if err != nil {
		return nil, err
	}

	p.RemoveSuggestion(title)

	return tag, nil
}

// RemoveSuggestion 按标题从所有消息的建议列表中移除建议
func (p *Pipeline) RemoveSuggestion(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for messageID, tags := range p.suggestions {
		kept := tags[:0]
		for _, t := range tags {
			if t.Title != title {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(p.suggestions, messageID)
		} else {
			p.suggestions[messageID] = kept
		}
	}
}

// State 返回指定消息的提取状态，第二个返回值表示是否尝试过提取
func (p *Pipeline) State(messageID int64) (model.OptionState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	state, exists := p.states[messageID]
	return state, exists
}

// States 返回所有提取状态的快照
func (p *Pipeline) States() map[int64]model.OptionState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := make(map[int64]model.OptionState, len(p.states))
	for id, state := range p.states {
		snapshot[id] = state
	}
	return snapshot
}

// Suggestions 返回所有建议标签的快照
func (p *Pipeline) Suggestions() map[int64][]model.SuggestedTag {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := make(map[int64][]model.SuggestedTag, len(p.suggestions))
	for id, tags := range p.suggestions {
		snapshot[id] = append([]model.SuggestedTag(nil), tags...)
	}
	return snapshot
}

// Pending 返回是否有在途提取（测试用）
func (p *Pipeline) Pending(messageID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, inFlight := p.pending[messageID]
	return inFlight
}

// Reset 清空全部状态。在途提取完成时因代号不再匹配而被丢弃。
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.states = make(map[int64]model.OptionState)
	p.pending = make(map[int64]uint64)
	p.suggestions = make(map[int64][]model.SuggestedTag)
}

func (p *Pipeline) publishState(messageID int64) {
	state, exists := p.State(messageID)
	if !exists {
		return
	}

	p.broker.Publish(model.EnrichmentEvent{
		MessageID: messageID,
		State:     state,
	})
}
