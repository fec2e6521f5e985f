// Package sched implements the multi-level feedback scheduler: three
// priority-banded ready queues, a dispatcher, an aging engine, and the
// preemption policy that ties arrivals to rescheduling. It is grounded on
// the Nachos MP3 scheduling assignment (original_source/MP3_Scheduling),
// re-expressed around an explicit *kernel.Context instead of a global
// kernel singleton, and a scheduler-owned graveyard slot instead of
// post-switch deletion staging.
package sched

import (
	"github.com/nachos-go/nachos/kernel"
	"github.com/nachos-go/nachos/kernel/config"
	"github.com/nachos-go/nachos/kernel/klog"
)

// Scheduler holds the three ready queues, the currently running thread,
// and the one pending graveyard slot.
type Scheduler struct {
	ctx *kernel.Context
	log *klog.Logger
	cfg config.SchedConfig

	l1 burstQueue
	l2 priorityQueue
	l3 fifoQueue

	aging bool

	current       *Thread
	toBeDestroyed *Thread
}

// New returns a Scheduler with empty ready queues and no current thread.
func New(ctx *kernel.Context, log *klog.Logger, cfg config.SchedConfig) *Scheduler {
	if log == nil {
		log = klog.Discard()
	}
	return &Scheduler{ctx: ctx, log: log, cfg: cfg}
}

// Current returns the currently running thread, or nil if none.
func (s *Scheduler) Current() *Thread { return s.current }

// ReadyToRun marks thread as ready and inserts it into the queue matching
// its priority band, applying the preemption policy when the arrival
// lands in L1.
func (s *Scheduler) ReadyToRun(t *Thread) {
	s.ctx.AssertIntOff("sched.ReadyToRun")

	t.Status = Ready
	t.EnterReadyTime = s.ctx.Ticks()

	band := Band(t.Priority)
	switch band {
	case "L3":
		if !s.aging {
			s.log.Inserted(s.ctx.Ticks(), t.ID, "L3")
		}
		s.l3.append(t)
	case "L2":
		if !s.aging {
			s.log.Inserted(s.ctx.Ticks(), t.ID, "L2")
		}
		s.l2.insert(t)
	default: // L1
		if !s.aging {
			s.log.Inserted(s.ctx.Ticks(), t.ID, "L1")
		}
		s.l1.insert(t)
		s.checkPreemption(t)
	}
}

// checkPreemption fires only when a newly ready thread lands in L1, and
// only if the running thread is itself
// below L1 band, or is in L1 with a strictly larger burst estimate.
func (s *Scheduler) checkPreemption(arrival *Thread) {
	cur := s.current
	if cur == nil {
		return
	}
	if cur.Priority < 100 || arrival.ApproxBurst < cur.ApproxBurst {
		s.ctx.RequestReschedule()
	}
}

// FindNextToRun returns the head of L1 if non-empty, else L2, else L3, else
// nil. Removing from L1 also clears the one-shot preemption flag.
func (s *Scheduler) FindNextToRun() *Thread {
	s.ctx.AssertIntOff("sched.FindNextToRun")

	if t, ok := s.l1.removeFront(); ok {
		s.log.Removed(s.ctx.Ticks(), t.ID, "L1")
		s.ctx.ClearReschedule()
		return t
	}
	if t, ok := s.l2.removeFront(); ok {
		s.log.Removed(s.ctx.Ticks(), t.ID, "L2")
		return t
	}
	if t, ok := s.l3.removeFront(); ok {
		s.log.Removed(s.ctx.Ticks(), t.ID, "L3")
		return t
	}
	return nil
}

// Run dispatches the CPU to next. The caller must already have updated the
// outgoing thread's status to BLOCKED/READY/FINISHED before calling.
//
// The graveyard slot staged by a prior finishing Run is drained at the top
// of this call, in place of deleting the outgoing thread right after the
// switch returns — that relies on coroutine resumption semantics this
// synchronous model doesn't reproduce.
func (s *Scheduler) Run(next *Thread, finishing bool) {
	s.ctx.AssertIntOff("sched.Run")

	s.reclaimGraveyard()

	old := s.current
	prevID := -1
	ranTicks := 0
	if old != nil {
		prevID = old.ID
		ranTicks = int(s.ctx.Ticks() - old.StartCPUTime)
	}

	if finishing {
		s.stageFinishing(old)
	}

	if old != nil {
		if old.Space != nil {
			if old.Registers != nil {
				old.Registers.Save()
			}
			old.Space.SaveState()
		}
		kernel.Assert(old.checkOverflow(), "sched.Run", "thread %d stack overflow detected", old.ID)
	}

	s.current = next
	next.Status = Running
	next.StartCPUTime = s.ctx.Ticks()

	s.log.Dispatched(s.ctx.Ticks(), next.ID, prevID, ranTicks)

	if next.Space != nil {
		if next.Registers != nil {
			next.Registers.Restore()
		}
		next.Space.RestoreState()
	}
}

// stageFinishing marks t for post-switch reclamation. It asserts the
// graveyard slot isn't already occupied — the outgoing thread cannot be
// freed while this call might still be "running on its stack", so at most
// one finishing thread may be staged at a time.
func (s *Scheduler) stageFinishing(t *Thread) {
	kernel.Assert(s.toBeDestroyed == nil, "sched.Run", "graveyard slot already occupied")
	s.toBeDestroyed = t
}

// reclaimGraveyard drops the reference to a thread staged for destruction
// by a previous finishing Run call, letting the Go garbage collector
// reclaim it — there is no manual stack to free.
func (s *Scheduler) reclaimGraveyard() {
	s.toBeDestroyed = nil
}

// RecordBurst updates a thread's approximate burst time using an
// exponential moving average, and logs the [D] line. Only call
// this for a thread that actually completed a CPU burst (voluntary yield,
// block, or finish) — not for one that never ran.
func (s *Scheduler) RecordBurst(t *Thread) {
	actual := float64(s.ctx.Ticks() - t.StartCPUTime)
	old := t.ApproxBurst
	next := s.cfg.BurstSmoothingAlpha*actual + (1-s.cfg.BurstSmoothingAlpha)*old
	s.log.BurstUpdated(s.ctx.Ticks(), t.ID, old, actual, next)
	t.ApproxBurst = next
}

// L3QuantumExpired reports whether a thread that has run for ranTicks has
// exhausted L3's fixed round-robin quantum.
func (s *Scheduler) L3QuantumExpired(ranTicks int) bool {
	return ranTicks >= s.cfg.L3QuantumTicks
}

// Aging drains all three ready queues, ages every thread's wait credit,
// promotes those that have waited long enough, and re-inserts all of them
// — atomically with respect to external observers:
// interrupts stay masked for the whole pass, and no other scheduler
// decision interleaves with it.
func (s *Scheduler) Aging() {
	prevLevel := s.ctx.SetLevel(kernel.IntOff)
	s.aging = true

	var all []*Thread
	for {
		t, ok := s.l1.removeFront()
		if !ok {
			break
		}
		all = append(all, t)
	}
	for {
		t, ok := s.l2.removeFront()
		if !ok {
			break
		}
		all = append(all, t)
	}
	for {
		t, ok := s.l3.removeFront()
		if !ok {
			break
		}
		all = append(all, t)
	}

	now := s.ctx.Ticks()
	for _, t := range all {
		t.TotalReadyTime += now - t.EnterReadyTime

		if t.TotalReadyTime > uint64(s.cfg.AgingThresholdTicks) {
			old := t.Priority
			next := old
			if old <= 139 {
				next = old + s.cfg.AgingPromotionStep
				if next > 149 {
					next = 149
				}
			} else {
				next = 149
			}
			if next != old {
				t.Priority = next
				s.log.PriorityChanged(now, t.ID, old, next)
			}
			t.TotalReadyTime -= uint64(s.cfg.AgingThresholdTicks)
		}

		s.ReadyToRun(t)
	}

	s.aging = false
	s.ctx.SetLevel(prevLevel)
}
