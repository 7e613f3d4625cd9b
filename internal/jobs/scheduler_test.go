package job

import (
	"testing"

	config "github.com/reelflow/reelflow/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *Scheduler {
	cfg := config.Config{SecretKey: testKey}
	pr := newFakePostRepo()
	ar := newFakeAccountRepo()
	vr := newFakeVideoRepo()
	ig := &fakePublisher{}

	runner := NewPublishCycleRunner(cfg, pr, ar, vr, ig, &fakeStore{})
	refresh := NewTokenRefreshJob(cfg, ar, ig)
	return NewScheduler(runner, refresh)
}

func TestSchedulerRejectsDoubleStart(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Error(t, s.Start())
}

func TestSchedulerStopAllowsRestart(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.Start())
	s.Stop()

	require.NoError(t, s.Start())
	s.Stop()
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	s := newTestScheduler()
	s.Stop()
}
