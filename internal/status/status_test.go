package status

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_EmptyUntilPublished(t *testing.T) {
	tr := NewTracker()
	_, ok := tr.Current()
	assert.False(t, ok)
	assert.False(t, tr.Running())
}

func TestTracker_Lifecycle(t *testing.T) {
	tr := NewTracker()
	started := time.Now().UTC()

	tr.Publish(Snapshot{RunID: "r1", Phase: PhaseRunning, Progress: 0, StartedAt: started})
	assert.True(t, tr.Running())

	tr.Publish(Snapshot{RunID: "r1", Phase: PhaseRunning, Progress: 0.5, StartedAt: started})
	s, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, 0.5, s.Progress)
	assert.False(t, s.Terminal())

	tr.Publish(Snapshot{RunID: "r1", Phase: PhaseDone, Progress: 1, StartedAt: started, FinishedAt: time.Now().UTC()})
	s, _ = tr.Current()
	assert.True(t, s.Terminal())
	assert.False(t, tr.Running())
}

// Concurrent readers must always see a complete snapshot: the run ID and
// phase can never come from different publishes.
func TestTracker_ConcurrentReaders(t *testing.T) {
	tr := NewTracker()
	stop := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			phase := PhaseRunning
			if i%2 == 1 {
				phase = PhaseDone
			}
			id := "even"
			if i%2 == 1 {
				id = "odd"
			}
			tr.Publish(Snapshot{RunID: id, Phase: phase})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10000; i++ {
				s, ok := tr.Current()
				if !ok {
					continue
				}
				switch s.RunID {
				case "even":
					assert.Equal(t, PhaseRunning, s.Phase)
				case "odd":
					assert.Equal(t, PhaseDone, s.Phase)
				}
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(stop)
	wg.Wait()
}
