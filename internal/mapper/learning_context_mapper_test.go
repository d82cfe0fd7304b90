package mapper

import (
	"testing"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLearningContextMapper_NilContextsBecomeEmptyObject(t *testing.T) {
	m := NewLearningContextMapper()

	out, err := m.ToModel(&entity.LearningContext{SessionId: "s1"})

	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(out.ModeContexts))
	assert.True(t, out.UpdatedAt.IsZero())
}

func TestLearningContextMapper_ToEntity(t *testing.T) {
	m := NewLearningContextMapper()
	now := time.Now()

	out, err := m.ToEntity(&model.LearningContext{
		SessionId:     "s1",
		ActiveMode:    "review",
		LastGoodMode:  "learn",
		CurrentTopics: []string{"cells"},
		ModeContexts:  []byte(`{"learn":{"current_topic":"cells"}}`),
		UpdatedAt:     now,
	})

	require.NoError(t, err)
	assert.Equal(t, "review", out.ActiveMode)
	assert.Equal(t, "learn", out.LastGoodMode)
	assert.Equal(t, []string{"cells"}, out.CurrentTopics)
	assert.JSONEq(t, `{"current_topic":"cells"}`, string(out.ModeContexts["learn"]))
	require.NotNil(t, out.UpdatedAt)

	_, err = m.ToEntity(&model.LearningContext{SessionId: "s1", ModeContexts: []byte(`[1,2]`)})
	assert.Error(t, err)

	var nilModel *model.LearningContext
	got, err := m.ToEntity(nilModel)
	assert.NoError(t, err)
	assert.Nil(t, got)
}
