// internal/workers/bi/recognize-query-intent/handler_test.go
package recognizequeryintent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JourneytoNewland/chatBI-sub000/internal/common/logger"
	"github.com/JourneytoNewland/chatBI-sub000/internal/conversation"
	"github.com/JourneytoNewland/chatBI-sub000/internal/intent"
	"github.com/JourneytoNewland/chatBI-sub000/internal/recognition"
)

func newTestHandler(t *testing.T, store conversation.Store) *Handler {
	t.Helper()
	orch := recognition.NewOrchestrator(
		recognition.Config{RuleThreshold: 0.80},
		intent.NewRecognizer(),
		nil, nil, nil,
		logger.NewTestLogger(t),
	)
	return NewHandler(LoadConfig(), orch, store, logger.NewTestLogger(t))
}

func TestExecuteRecognizesQuery(t *testing.T) {
	h := newTestHandler(t, nil)

	out, err := h.Execute(context.Background(), &Input{Query: "最近7天按地区的GMV总和"})
	require.NoError(t, err)

	require.NotNil(t, out.Intent)
	assert.Equal(t, "按地区的GMV总和", out.Intent.CoreSubject)
	assert.Equal(t, string(recognition.TierRule), out.Source)
	assert.GreaterOrEqual(t, out.Confidence, 0.80)
	assert.NotEmpty(t, out.Layers)
}

func TestExecuteRejectsEmptyQuery(t *testing.T) {
	h := newTestHandler(t, nil)

	_, err := h.Execute(context.Background(), &Input{Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestExecuteResolvesPronounFromSession(t *testing.T) {
	store := conversation.NewMemoryStore()
	h := newTestHandler(t, store)

	ctx := context.Background()
	prior := &conversation.Context{ID: "s1"}
	prior.AddTurn("最近7天的GMV", &intent.QueryIntent{Query: "最近7天的GMV", CoreSubject: "GMV"}, time.Now())
	require.NoError(t, store.Save(ctx, prior))

	out, err := h.Execute(ctx, &Input{Query: "它的环比呢", SessionID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, "GMV环比呢", out.ResolvedQuery)
	assert.Equal(t, intent.ComparisonMonthOverMonth, out.Intent.Comparison)

	// The turn is appended to the stored context.
	saved, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, saved.Turns, 2)
}

func TestExecuteWithoutSessionSkipsStore(t *testing.T) {
	store := conversation.NewMemoryStore()
	h := newTestHandler(t, store)

	out, err := h.Execute(context.Background(), &Input{Query: "本月GMV"})
	require.NoError(t, err)
	assert.Equal(t, "本月GMV", out.ResolvedQuery)
}
