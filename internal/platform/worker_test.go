package platform

import (
	"testing"
	
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerStateLifecycle(t *testing.T) {
	state := WorkerParsed
	for _, next := range []WorkerState{WorkerInstalling, WorkerInstalled, WorkerActivating, WorkerActivated} {
		var err error
		state, err = state.Transition(next)
		require.NoError(t, err)
	}
	assert.Equal(t, WorkerActivated, state)
}

func TestWorkerStateRejectsSkippedSteps(t *testing.T) {
	_, err := WorkerInstalling.Transition(WorkerActivated)
	assert.Error(t, err)
	
	assert.False(t, WorkerActivated.CanTransition(WorkerInstalling))
	assert.True(t, WorkerInstalled.CanTransition(WorkerRedundant))
	assert.False(t, WorkerRedundant.CanTransition(WorkerActivated))
}

func TestPushEventJSON(t *testing.T) {
	var payload struct {
		Title string `json:"title"`
	}
	
	err := (&PushEvent{Data: []byte(`{"title":"T"}`)}).JSON(&payload)
	require.NoError(t, err)
	assert.Equal(t, "T", payload.Title)
	
	assert.ErrorIs(t, (&PushEvent{}).JSON(&payload), ErrNoPushData)
	assert.Error(t, (&PushEvent{Data: []byte("not json")}).JSON(&payload))
}
