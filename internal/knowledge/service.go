package knowledge

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"sage-backend/internal/model"
	"sage-backend/internal/storage"
	"sage-backend/pkg/logger"

	"github.com/google/uuid"
)

const tagsStorageKey = "sage-knowledge-tags"

var (
	ErrTagNotFound = errors.New("tag not found")
	ErrInvalidTag  = errors.New("invalid tag")
)

// Service 知识标签的持有者：负责标签的身份、生命周期和持久化。
// 不强制标题唯一，建议去重是富化管线的职责。
type Service struct {
	mu      sync.RWMutex
	tags    []model.KnowledgeTag
	storage storage.Storage
}

func NewService(store storage.Storage) *Service {
	s := &Service{
		storage: store,
	}
	s.load()
	return s
}

// load 初始加载，读失败退回空集合，不触发回写
func (s *Service) load() {
	var tags []model.KnowledgeTag
	if err := s.storage.Get(tagsStorageKey, &tags); err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			logger.Errorf("Failed to load knowledge tags: %v", err)
		}
		tags = []model.KnowledgeTag{}
	}

	s.mu.Lock()
	s.tags = tags
	s.mu.Unlock()
}

// persist 每次变更后落盘，写失败只记日志
func (s *Service) persist() {
	s.mu.RLock()
	tags := append([]model.KnowledgeTag(nil), s.tags...)
	s.mu.RUnlock()

	if err := s.storage.Set(tagsStorageKey, tags); err != nil {
		logger.Errorf("Failed to save knowledge tags: %v", err)
	}
}

func (s *Service) Add(title string, confidence model.ConfidenceLevel, source model.TagSource) (*model.KnowledgeTag, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: empty title", ErrInvalidTag)
	}
	if !confidence.Valid() {
		return nil, fmt.Errorf("%w: unknown confidence %q", ErrInvalidTag, confidence)
	}
	if source == "" {
		source = model.SourceManual
	}

	tag := model.KnowledgeTag{
		ID:         "tag_" + uuid.New().String(),
		Title:      title,
		Confidence: confidence,
		CreatedAt:  time.Now(),
		Source:     source,
	}

	s.mu.Lock()
	s.tags = append(s.tags, tag)
	s.mu.Unlock()

	s.persist()

	return &tag, nil
}

func (s *Service) Edit(id string, update model.TagUpdate) (*model.KnowledgeTag, error) {
	if update.Confidence != nil && !update.Confidence.Valid() {
		return nil, fmt.Errorf("%w: unknown confidence %q", ErrInvalidTag, *update.Confidence)
	}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return nil, fmt.Errorf("%w: empty title", ErrInvalidTag)
	}

	s.mu.Lock()
	var edited *model.KnowledgeTag
	for i := range s.tags {
		if s.tags[i].ID == id {
			if update.Title != nil {
				s.tags[i].Title = strings.TrimSpace(*update.Title)
			}
			if update.Confidence != nil {
				s.tags[i].Confidence = *update.Confidence
			}
			tag := s.tags[i]
			edited = &tag
			break
		}
	}
	s.mu.Unlock()

	if edited == nil {
		return nil, ErrTagNotFound
	}

	s.persist()

	return edited, nil
}

func (s *Service) Delete(id string) error {
	s.mu.Lock()
	found := false
	kept := s.tags[:0]
	for _, tag := range s.tags {
		if tag.ID == id {
			found = true
			continue
		}
		kept = append(kept, tag)
	}
	s.tags = kept
	s.mu.Unlock()

	if !found {
		return ErrTagNotFound
	}

	s.persist()

	return nil
}

func (s *Service) ClearAll() {
	s.mu.Lock()
	s.tags = []model.KnowledgeTag{}
	s.mu.Unlock()

	s.persist()
}

// All 返回全部标签的快照
func (s *Service) All() []model.KnowledgeTag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.KnowledgeTag(nil), s.tags...)
}

// Filtered 标题的大小写不敏感子串匹配
func (s *Service) Filtered(searchTerm string) []model.KnowledgeTag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(searchTerm)
	result := make([]model.KnowledgeTag, 0, len(s.tags))
	for _, tag := range s.tags {
		if strings.Contains(strings.ToLower(tag.Title), needle) {
			result = append(result, tag)
		}
	}

	return result
}

// HasTitle 大小写不敏感的标题存在性检查，供建议去重使用
func (s *Service) HasTitle(title string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tag := range s.tags {
		if strings.EqualFold(tag.Title, title) {
			return true
		}
	}

	return false
}

func (s *Service) Counts() model.TagCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := model.TagCounts{
		Total: len(s.tags),
	}
	for _, tag := range s.tags {
		switch tag.Confidence {
		case model.ConfidenceBeginner:
			counts.Beginner++
		case model.ConfidenceIntermediate:
			counts.Intermediate++
		case model.ConfidenceExpert:
			counts.Expert++
		}
		switch tag.Source {
		case model.SourceDiscovered:
			counts.Discovered++
		case model.SourceManual:
			counts.Manual++
		}
	}

	return counts
}
