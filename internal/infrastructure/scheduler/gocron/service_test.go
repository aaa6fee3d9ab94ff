package timescheduler_test

import (
	"sync/atomic"
	"testing"
	"time"

	timescheduler "github.com/openmarket-os/marketd/internal/infrastructure/scheduler/gocron"
	"github.com/stretchr/testify/require"
)

func TestScheduleTaskEvery(t *testing.T) {
	scheduler := timescheduler.NewScheduler()

	var calls atomic.Int64
	err := scheduler.ScheduleTaskEvery(time.Second, func() {
		calls.Add(1)
	})
	require.NoError(t, err)

	scheduler.Start()
	t.Cleanup(scheduler.Stop)

	require.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, 5*time.Second, 100*time.Millisecond)
}

func TestScheduleTaskEveryInvalidInterval(t *testing.T) {
	scheduler := timescheduler.NewScheduler()
	require.Error(t, scheduler.ScheduleTaskEvery(0, func() {}))
}
