package chrono

import (
	"testing"
	"time"

	"electiontracker/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestStandardImplLocation(t *testing.T) {
	impl, err := NewStandardImpl("Asia/Kolkata")
	require.NoError(t, err)
	require.Equal(t, "Asia/Kolkata", impl.Location().String())
	require.Equal(t, impl.Location(), impl.Now().Location())

	_, err = NewStandardImpl("Not/AZone")
	require.Error(t, err)
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2025, time.November, 14, 8, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)
	require.Equal(t, start, clock.Now())

	clock.Advance(time.Minute)
	require.Equal(t, start.Add(time.Minute), clock.Now())
}

func TestStandardCronRejectsBadSpec(t *testing.T) {
	c := NewStandardCron(&telemetry.Recorder{}, time.UTC)
	defer c.Stop()

	require.Error(t, c.Cron("not a spec", func() {}))
	require.NoError(t, c.Cron("*/5 * * * *", func() {}))
}
