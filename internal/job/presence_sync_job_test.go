package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockPresenceSyncer is a mock implementation of PresenceSyncer
type MockPresenceSyncer struct {
	mock.Mock
}

func (m *MockPresenceSyncer) SyncPresence(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestPresenceSyncJob_Run(t *testing.T) {
	t.Run("fixes rows", func(t *testing.T) {
		syncer := new(MockPresenceSyncer)
		syncer.On("SyncPresence", mock.Anything).Return(3, nil).Once()
		NewPresenceSyncJob(syncer, zap.NewNop()).Run()
		syncer.AssertExpectations(t)
	})

	t.Run("error is logged not raised", func(t *testing.T) {
		syncer := new(MockPresenceSyncer)
		syncer.On("SyncPresence", mock.Anything).Return(0, errors.New("db down")).Once()
		assert.NotPanics(t, NewPresenceSyncJob(syncer, zap.NewNop()).Run)
		syncer.AssertExpectations(t)
	})

	t.Run("context has deadline", func(t *testing.T) {
		syncer := new(MockPresenceSyncer)
		syncer.On("SyncPresence", mock.MatchedBy(func(ctx context.Context) bool {
			_, ok := ctx.Deadline()
			return ok
		})).Return(0, nil).Once()
		NewPresenceSyncJob(syncer, zap.NewNop()).Run()
		syncer.AssertExpectations(t)
	})
}

func TestScheduler(t *testing.T) {
	syncer := new(MockPresenceSyncer)
	syncer.On("SyncPresence", mock.Anything).Return(0, nil)
	j := NewPresenceSyncJob(syncer, zap.NewNop())

	s, err := NewScheduler("@every 1m", j, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Entries())

	empty, err := NewScheduler("", j, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, empty.Entries())

	_, err = NewScheduler("every other tuesday", j, zap.NewNop())
	assert.Error(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
