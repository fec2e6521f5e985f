package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nachos-go/nachos/kernel"
	"github.com/nachos-go/nachos/kernel/config"
)

func newTestScheduler() (*Scheduler, *kernel.Context) {
	ctx := kernel.NewContext()
	ctx.SetLevel(kernel.IntOff)
	return New(ctx, nil, config.DefaultSchedConfig()), ctx
}

// S1: T1(pri=40), T2(pri=80), T3(pri=120,burst=30), T4(pri=120,burst=20)
// enqueued in that order. Selection order: T4, T3, T2, T1.
func TestS1SchedulerSelectionOrder(t *testing.T) {
	s, _ := newTestScheduler()

	t1 := NewThread(1, 40, 0)
	t2 := NewThread(2, 80, 0)
	t3 := NewThread(3, 120, 30)
	t4 := NewThread(4, 120, 20)

	s.ReadyToRun(t1)
	s.ReadyToRun(t2)
	s.ReadyToRun(t3)
	s.ReadyToRun(t4)

	got := []int{}
	for _, want := range []int{4, 3, 2, 1} {
		next := s.FindNextToRun()
		require.NotNil(t, next)
		got = append(got, next.ID)
		assert.Equal(t, want, next.ID)
	}
	assert.Equal(t, []int{4, 3, 2, 1}, got)
	assert.Nil(t, s.FindNextToRun())
}

// Property #1: with no aging, dispatch order is L1(by burst) -> L2(by
// priority) -> L3(FIFO).
func TestBandOrderingProperty(t *testing.T) {
	s, _ := newTestScheduler()

	l3a := NewThread(10, 10, 0)
	l3b := NewThread(11, 5, 0)
	l2a := NewThread(20, 60, 0)
	l2b := NewThread(21, 90, 0)
	l1a := NewThread(30, 110, 50)
	l1b := NewThread(31, 149, 10)

	for _, th := range []*Thread{l3a, l3b, l2a, l2b, l1a, l1b} {
		s.ReadyToRun(th)
	}

	order := []int{}
	for i := 0; i < 6; i++ {
		order = append(order, s.FindNextToRun().ID)
	}
	// L1 by ascending burst: l1b(10) then l1a(50).
	// L2 by descending priority: l2b(90) then l2a(60).
	// L3 FIFO: l3a then l3b.
	assert.Equal(t, []int{31, 30, 21, 20, 10, 11}, order)
}

// S3 / property #7: a thread with priority=120,burst=50 arriving while a
// thread with priority=120,burst=100 runs sets the preemption flag.
func TestS3PreemptionLaw(t *testing.T) {
	s, ctx := newTestScheduler()

	running := NewThread(1, 120, 100)
	s.current = running
	running.Status = Running

	arrival := NewThread(2, 120, 50)
	assert.False(t, ctx.ReschedulePending())
	s.ReadyToRun(arrival)
	assert.True(t, ctx.ReschedulePending())
}

// Preemption also fires when the running thread is below L1 band at all,
// regardless of burst comparison.
func TestPreemptionFromLowerBand(t *testing.T) {
	s, ctx := newTestScheduler()

	running := NewThread(1, 80, 1000)
	s.current = running
	running.Status = Running

	arrival := NewThread(2, 100, 999)
	s.ReadyToRun(arrival)
	assert.True(t, ctx.ReschedulePending())
}

// No preemption when the arrival's burst is not strictly smaller and the
// running thread is itself in L1.
func TestNoPreemptionEqualBurstInL1(t *testing.T) {
	s, ctx := newTestScheduler()

	running := NewThread(1, 120, 50)
	s.current = running
	running.Status = Running

	arrival := NewThread(2, 120, 50)
	s.ReadyToRun(arrival)
	assert.False(t, ctx.ReschedulePending())
}

// S2 / property #6: a thread with priority 45 that waits >=1500 ticks in
// ready without running ends at priority 55, landing in L2, with leftover
// ready-time credit of 100.
func TestS2AgingLaw(t *testing.T) {
	s, ctx := newTestScheduler()

	th := NewThread(1, 45, 0)
	s.ReadyToRun(th)

	ctx.Advance(1600)
	s.Aging()

	assert.Equal(t, 55, th.Priority)
	assert.Equal(t, uint64(100), th.TotalReadyTime)

	next := s.FindNextToRun()
	require.NotNil(t, next)
	assert.Equal(t, th.ID, next.ID)
	assert.Equal(t, "L2", Band(55))
}

func TestAgingClampsAtMaxPriority(t *testing.T) {
	s, ctx := newTestScheduler()

	th := NewThread(1, 145, 0)
	s.ReadyToRun(th)
	ctx.Advance(1501)
	s.Aging()
	assert.Equal(t, 149, th.Priority)

	// a second aging pass with no further waiting leaves priority at 149
	// without an additional [C] log line (guarded by the old!=next check).
	th.TotalReadyTime = 1600
	s.l1.removeFront() // simulate it being picked up and re-queued by hand
	s.ReadyToRun(th)
	ctx.Advance(0)
	s.Aging()
	assert.Equal(t, 149, th.Priority)
}

func TestRunTracksCurrentAndGraveyard(t *testing.T) {
	s, ctx := newTestScheduler()

	t1 := NewThread(1, 120, 10)
	s.Run(t1, false)
	assert.Equal(t, t1, s.Current())
	assert.Equal(t, Running, t1.Status)

	ctx.Advance(5)
	t1.Status = Finished
	t2 := NewThread(2, 120, 10)
	s.Run(t2, true)
	assert.Equal(t, t2, s.Current())
	assert.Equal(t, t1, s.toBeDestroyed)

	// graveyard drains at the top of the next Run call.
	t3 := NewThread(3, 120, 10)
	s.Run(t3, false)
	assert.Nil(t, s.toBeDestroyed)
}

// The graveyard-occupied assert is unreachable through Run alone (Run
// drains it first), but stageFinishing must still trip it if called twice
// without an intervening Run.
func TestStageFinishingAssertsNoDoubleGraveyard(t *testing.T) {
	s, _ := newTestScheduler()
	t1 := NewThread(1, 100, 0)
	s.stageFinishing(t1)
	assert.Panics(t, func() {
		t2 := NewThread(2, 100, 0)
		s.stageFinishing(t2)
	})
}

func TestRecordBurstExponentialSmoothing(t *testing.T) {
	s, ctx := newTestScheduler()
	th := NewThread(1, 120, 100)
	s.Run(th, false)
	ctx.Advance(60)
	s.RecordBurst(th)
	// alpha=0.5: 0.5*60 + 0.5*100 = 80
	assert.InDelta(t, 80.0, th.ApproxBurst, 0.0001)
}
