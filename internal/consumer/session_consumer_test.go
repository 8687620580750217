package consumer

import (
	"context"
	"sync"
	"testing"
	"time"

	"sleep-analyzer/internal/models"
	"sleep-analyzer/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	sessions []string
	kinds    []models.TriggerKind
}

func (f *fakeDispatcher) ProcessSession(ctx context.Context, sessionID string, kind models.TriggerKind) service.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, sessionID)
	f.kinds = append(f.kinds, kind)
	return service.Result{Success: true, SessionID: sessionID}
}

func (f *fakeDispatcher) dispatched() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func TestHandleMessage_DispatchesAutomaticAnalysis(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	c := &SessionConsumer{
		dispatcher: dispatcher,
		topic:      "sleep/sessions/closed",
		logger:     zap.NewNop(),
	}

	err := c.handleMessage(context.Background(), []byte(`{"sessionId":"sess-1","deviceId":"dev-1"}`))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return dispatcher.dispatched() == 1 }, 2*time.Second, 10*time.Millisecond)

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	assert.Equal(t, "sess-1", dispatcher.sessions[0])
	assert.Equal(t, models.TriggerAutomatic, dispatcher.kinds[0])
}

func TestHandleMessage_InvalidPayload(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	c := &SessionConsumer{
		dispatcher: dispatcher,
		topic:      "sleep/sessions/closed",
		logger:     zap.NewNop(),
	}

	err := c.handleMessage(context.Background(), []byte(`not json`))
	assert.Error(t, err)
	assert.Zero(t, dispatcher.dispatched())
}

func TestHandleMessage_MissingSessionID(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	c := &SessionConsumer{
		dispatcher: dispatcher,
		topic:      "sleep/sessions/closed",
		logger:     zap.NewNop(),
	}

	err := c.handleMessage(context.Background(), []byte(`{"deviceId":"dev-1"}`))
	assert.Error(t, err)
	assert.Zero(t, dispatcher.dispatched())
}
