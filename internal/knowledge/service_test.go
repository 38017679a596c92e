package knowledge

import (
	"testing"

	"sage-backend/internal/model"
	"sage-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, storage.Storage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	return NewService(store), store
}

func TestAddAndFilter(t *testing.T) {
	svc, _ := newTestService(t)

	tag, err := svc.Add("Python", model.ConfidenceIntermediate, model.SourceManual)
	require.NoError(t, err)
	assert.NotEmpty(t, tag.ID)
	assert.False(t, tag.CreatedAt.IsZero())

	matches := svc.Filtered("python")
	require.Len(t, matches, 1)
	assert.Equal(t, "Python", matches[0].Title)

	assert.Empty(t, svc.Filtered("rust"))
}

func TestAddValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Add("   ", model.ConfidenceBeginner, model.SourceManual)
	assert.ErrorIs(t, err, ErrInvalidTag)

	_, err = svc.Add("Go", "Guru", model.SourceManual)
	assert.ErrorIs(t, err, ErrInvalidTag)
}

func TestEditPartialUpdate(t *testing.T) {
	svc, _ := newTestService(t)

	tag, err := svc.Add("Dockr", model.ConfidenceBeginner, model.SourceManual)
	require.NoError(t, err)

	title := "Docker"
	edited, err := svc.Edit(tag.ID, model.TagUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Docker", edited.Title)
	assert.Equal(t, model.ConfidenceBeginner, edited.Confidence)

	confidence := model.ConfidenceExpert
	edited, err = svc.Edit(tag.ID, model.TagUpdate{Confidence: &confidence})
	require.NoError(t, err)
	assert.Equal(t, "Docker", edited.Title)
	assert.Equal(t, model.ConfidenceExpert, edited.Confidence)

	_, err = svc.Edit("tag_missing", model.TagUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrTagNotFound)
}

func TestDeleteExcludesFromSearch(t *testing.T) {
	svc, _ := newTestService(t)

	tag, err := svc.Add("Kubernetes", model.ConfidenceExpert, model.SourceDiscovered)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(tag.ID))
	assert.Empty(t, svc.Filtered("kubernetes"))
	assert.ErrorIs(t, svc.Delete(tag.ID), ErrTagNotFound)
}

func TestCountsSumUp(t *testing.T) {
	svc, _ := newTestService(t)

	svc.Add("A", model.ConfidenceBeginner, model.SourceManual)
	svc.Add("B", model.ConfidenceBeginner, model.SourceDiscovered)
	svc.Add("C", model.ConfidenceIntermediate, model.SourceManual)
	svc.Add("D", model.ConfidenceExpert, model.SourceDiscovered)

	counts := svc.Counts()
	assert.Equal(t, 4, counts.Total)
	assert.Equal(t, counts.Total, counts.Beginner+counts.Intermediate+counts.Expert)
	assert.Equal(t, 2, counts.Beginner)
	assert.Equal(t, 2, counts.Discovered)
	assert.Equal(t, 2, counts.Manual)
}

func TestHasTitleCaseInsensitive(t *testing.T) {
	svc, _ := newTestService(t)

	svc.Add("GraphQL", model.ConfidenceIntermediate, model.SourceManual)

	assert.True(t, svc.HasTitle("graphql"))
	assert.True(t, svc.HasTitle("GRAPHQL"))
	assert.False(t, svc.HasTitle("REST"))
}

func TestDuplicateTitlesPermitted(t *testing.T) {
	svc, _ := newTestService(t)

	// 存储层不强制唯一，去重是管线的职责
	_, err := svc.Add("SQL", model.ConfidenceBeginner, model.SourceManual)
	require.NoError(t, err)
	_, err = svc.Add("SQL", model.ConfidenceExpert, model.SourceManual)
	require.NoError(t, err)

	assert.Len(t, svc.Filtered("SQL"), 2)
}

func TestPersistenceAcrossReload(t *testing.T) {
	store := storage.NewMemoryStorage()

	svc := NewService(store)
	tag, err := svc.Add("Terraform", model.ConfidenceIntermediate, model.SourceManual)
	require.NoError(t, err)

	// 同一存储上重建服务，标签应已持久化
	reloaded := NewService(store)
	all := reloaded.All()
	require.Len(t, all, 1)
	assert.Equal(t, tag.ID, all[0].ID)
	assert.Equal(t, "Terraform", all[0].Title)
}

func TestClearAll(t *testing.T) {
	svc, _ := newTestService(t)

	svc.Add("One", model.ConfidenceBeginner, model.SourceManual)
	svc.Add("Two", model.ConfidenceExpert, model.SourceManual)

	svc.ClearAll()
	assert.Empty(t, svc.All())
	assert.Equal(t, 0, svc.Counts().Total)
}
