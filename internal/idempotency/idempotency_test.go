package idempotency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTryMarkAsProcessing_FirstSucceeds(t *testing.T) {
	tr := New()
	assert.True(t, tr.TryMarkAsProcessing("J1"))
}

func TestTryMarkAsProcessing_DuplicateWhileInProgressFails(t *testing.T) {
	tr := New()
	assert.True(t, tr.TryMarkAsProcessing("J1"))
	assert.False(t, tr.TryMarkAsProcessing("J1"))
}

func TestTryMarkAsProcessing_DuplicateAfterCompletedFails(t *testing.T) {
	tr := New()
	tr.TryMarkAsProcessing("J1")
	tr.MarkAsCompleted("J1")
	assert.False(t, tr.TryMarkAsProcessing("J1"))
	assert.True(t, tr.IsCompleted("J1"))
}

func TestTryMarkAsProcessing_RetryAfterFailedSucceeds(t *testing.T) {
	tr := New()
	tr.TryMarkAsProcessing("J1")
	tr.MarkAsFailed("J1")
	assert.True(t, tr.TryMarkAsProcessing("J1"))
	assert.False(t, tr.IsCompleted("J1"))
}

func TestIsCompleted_FalseForUnknownOrInProgress(t *testing.T) {
	tr := New()
	assert.False(t, tr.IsCompleted("absent"))
	tr.TryMarkAsProcessing("J1")
	assert.False(t, tr.IsCompleted("J1"))
}

func TestTryMarkAsProcessing_ConcurrentOnlyOneWinner(t *testing.T) {
	tr := New()
	const n = 50
	var wg sync.WaitGroup
	var wins int32
	var mu sync.Mutex
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if tr.TryMarkAsProcessing("J1") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins)
}
