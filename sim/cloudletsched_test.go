package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(kind SchedulerKind, pes, peMips int) *CloudletScheduler {
	s := NewCloudletScheduler(kind, pes)
	s.bindHost(peMips)
	return s
}

func TestSpaceShared_ExactFinishTime(t *testing.T) {
	// GIVEN a 2-pe VM at 2000 MIPS and a 2000 MI single-pe cloudlet
	s := newTestScheduler(SchedSpaceShared, 2, 2000)
	c := NewCloudlet(0, 0, 2000, 1, 0, 0)
	started := s.Submit(c, 0)
	require.True(t, started)
	require.Equal(t, CloudletRunning, c.State)
	require.Equal(t, 0.0, c.StartTime)

	// WHEN advancing one second
	var finishedAt float64 = -1
	s.AdvanceTo(0, 1.0, func(done *Cloudlet, at float64) { finishedAt = at })

	// THEN the cloudlet finishes at exactly 1.0s
	assert.Equal(t, 1.0, finishedAt)
	assert.Equal(t, CloudletFinished, c.State)
	assert.Equal(t, 1.0, c.FinishTime)
	assert.Equal(t, 0, s.UsedPEs())
}

func TestSpaceShared_BuffersWhenFull_PromotesFIFO(t *testing.T) {
	// GIVEN a 2-pe VM fully occupied by a 2-pe cloudlet
	s := newTestScheduler(SchedSpaceShared, 2, 1000)
	first := NewCloudlet(0, 0, 1000, 2, 0, 0) // finishes at 0.5s
	second := NewCloudlet(1, 0, 1000, 1, 0, 0)
	third := NewCloudlet(2, 0, 1000, 1, 0, 0)
	require.True(t, s.Submit(first, 0))
	require.False(t, s.Submit(second, 0))
	require.False(t, s.Submit(third, 0))
	assert.Equal(t, CloudletWaiting, second.State)
	assert.Len(t, s.Waiting(), 2)

	// WHEN the first cloudlet completes mid-interval
	var finishes []CloudletID
	s.AdvanceTo(0, 1.0, func(c *Cloudlet, at float64) { finishes = append(finishes, c.ID) })

	// THEN both buffered cloudlets are promoted at its finish instant
	assert.Equal(t, []CloudletID{0}, finishes)
	assert.Equal(t, CloudletRunning, second.State)
	assert.Equal(t, CloudletRunning, third.State)
	assert.Equal(t, 0.5, second.StartTime)
	assert.Equal(t, 2, s.UsedPEs())
	assert.Empty(t, s.Waiting())
}

func TestSpaceShared_ChainedCompletionsWithinOneInterval(t *testing.T) {
	// GIVEN a 1-pe VM with a short running cloudlet and a short buffered one
	s := newTestScheduler(SchedSpaceShared, 1, 1000)
	a := NewCloudlet(0, 0, 200, 1, 0, 0) // 0.2s
	b := NewCloudlet(1, 0, 300, 1, 0, 0) // 0.3s after promotion
	require.True(t, s.Submit(a, 0))
	require.False(t, s.Submit(b, 0))

	var finishes []float64
	s.AdvanceTo(0, 1.0, func(c *Cloudlet, at float64) { finishes = append(finishes, at) })

	// THEN both finish inside the interval, at 0.2s and 0.5s
	require.Len(t, finishes, 2)
	assert.InDelta(t, 0.2, finishes[0], 1e-9)
	assert.InDelta(t, 0.5, finishes[1], 1e-9)
}

func TestSpaceShared_PartialProgressAcrossIntervals(t *testing.T) {
	s := newTestScheduler(SchedSpaceShared, 2, 1000)
	c := NewCloudlet(0, 0, 2500, 1, 0, 0) // needs 2.5s at 1000 MIPS
	require.True(t, s.Submit(c, 0))

	finished := false
	s.AdvanceTo(0, 1.0, func(*Cloudlet, float64) { finished = true })
	assert.False(t, finished)
	assert.InDelta(t, 1500, c.RemainingMI, 1e-6)

	s.AdvanceTo(1.0, 2.0, func(*Cloudlet, float64) { finished = true })
	assert.False(t, finished)

	var at float64
	s.AdvanceTo(2.0, 3.0, func(_ *Cloudlet, a float64) { finished = true; at = a })
	assert.True(t, finished)
	assert.InDelta(t, 2.5, at, 1e-9)
}

func TestTimeShared_ScalesRatesUnderContention(t *testing.T) {
	// GIVEN a 2-pe time-shared VM running two 2-pe cloudlets
	s := newTestScheduler(SchedTimeShared, 2, 1000)
	a := NewCloudlet(0, 0, 2000, 2, 0, 0)
	b := NewCloudlet(1, 0, 2000, 2, 0, 0)
	require.True(t, s.Submit(a, 0))
	require.True(t, s.Submit(b, 0)) // admitted despite full VM

	// WHEN advancing one second with demand 4 pes over capacity 2
	s.AdvanceTo(0, 1.0, func(*Cloudlet, float64) {})

	// THEN each progresses at half speed
	assert.InDelta(t, 1000, a.RemainingMI, 1e-6)
	assert.InDelta(t, 1000, b.RemainingMI, 1e-6)
	assert.Equal(t, 1.0, s.CPUPercent())
}

func TestCPUPercent_FractionOfVMPes(t *testing.T) {
	s := newTestScheduler(SchedSpaceShared, 4, 1000)
	assert.Equal(t, 0.0, s.CPUPercent())
	require.True(t, s.Submit(NewCloudlet(0, 0, 1000, 2, 0, 0), 0))
	assert.Equal(t, 0.5, s.CPUPercent())
}

func TestDrain_ReturnsRunningThenWaiting(t *testing.T) {
	s := newTestScheduler(SchedSpaceShared, 1, 1000)
	a := NewCloudlet(0, 0, 1000, 1, 0, 0)
	b := NewCloudlet(1, 0, 1000, 1, 0, 0)
	s.Submit(a, 0)
	s.Submit(b, 0)

	drained := s.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, CloudletID(0), drained[0].ID)
	assert.Equal(t, CloudletID(1), drained[1].ID)
	assert.Equal(t, 0, s.UsedPEs())
	assert.Empty(t, s.Running())
}
