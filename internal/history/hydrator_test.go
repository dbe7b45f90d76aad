package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/askdb/askdb/internal/domain"
)

// MockLoader mocks the Loader interface
type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) LoadHistory(ctx context.Context, session string) (*domain.HistoryResponse, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HistoryResponse), args.Error(1)
}

func TestHydrator_Hydrate(t *testing.T) {
	ctx := context.Background()

	t.Run("non-empty history in server order", func(t *testing.T) {
		loader := new(MockLoader)
		loader.On("LoadHistory", ctx, "sess-1").Return(&domain.HistoryResponse{
			Messages: []domain.HistoryMessage{
				{Role: "user", Content: "hi"},
				{Role: "assistant", Content: "hello"},
			},
			Count: 2,
		}, nil)

		msgs := NewHydrator(loader).Hydrate(ctx, "sess-1")
		require.Equal(t, 2, len(msgs))
		assert.Equal(t, domain.RoleUser, msgs[0].Role)
		assert.Equal(t, "hi", msgs[0].Content)
		assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
		assert.Equal(t, "hello", msgs[1].Content)
		loader.AssertExpectations(t)
	})

	t.Run("empty history yields nil", func(t *testing.T) {
		loader := new(MockLoader)
		loader.On("LoadHistory", ctx, "sess-1").Return(&domain.HistoryResponse{Count: 0}, nil)

		assert.Nil(t, NewHydrator(loader).Hydrate(ctx, "sess-1"))
	})

	t.Run("failure swallowed", func(t *testing.T) {
		loader := new(MockLoader)
		loader.On("LoadHistory", ctx, "sess-1").Return(nil, errors.New("network down"))

		assert.Nil(t, NewHydrator(loader).Hydrate(ctx, "sess-1"))
	})

	t.Run("unknown roles tolerated", func(t *testing.T) {
		loader := new(MockLoader)
		loader.On("LoadHistory", ctx, "sess-1").Return(&domain.HistoryResponse{
			Messages: []domain.HistoryMessage{
				{Role: "system", Content: "internal"},
				{Role: "user", Content: "hi"},
			},
			Count: 2,
		}, nil)

		msgs := NewHydrator(loader).Hydrate(ctx, "sess-1")
		require.Equal(t, 1, len(msgs))
		assert.Equal(t, "hi", msgs[0].Content)
	})

	t.Run("sentinel session skips the call", func(t *testing.T) {
		loader := new(MockLoader)
		assert.Nil(t, NewHydrator(loader).Hydrate(ctx, ""))
		loader.AssertNotCalled(t, "LoadHistory")
	})
}
