// Package schedsim drives the scheduler core through the literal
// end-to-end scenarios named in the scheduling design (S1 selection
// order, S2 aging, S3 preemption), printing the bracketed debug trace
// through the same klog.Logger the scheduler itself logs through. It has
// no simulated CPU to actually run threads on, so "running" a thread here
// just means making it current with Run; the demo does not call
// RecordBurst. That is enough to exercise the real
// ReadyToRun/FindNextToRun/Run/Aging code paths a CLI user can watch.
package schedsim

import (
	"fmt"

	"github.com/nachos-go/nachos/kernel"
	"github.com/nachos-go/nachos/kernel/config"
	"github.com/nachos-go/nachos/kernel/klog"
	"github.com/nachos-go/nachos/sched"
)

func newDemo(log *klog.Logger) (*sched.Scheduler, *kernel.Context) {
	ctx := kernel.NewContext()
	ctx.SetLevel(kernel.IntOff)
	return sched.New(ctx, log, config.DefaultSchedConfig()), ctx
}

// RunS1 enqueues T1(pri=40), T2(pri=80), T3(pri=120,burst=30),
// T4(pri=120,burst=20) in that order and selects all four, expecting
// selection order T4, T3, T2, T1.
func RunS1(log *klog.Logger) {
	fmt.Println("--- S1: selection order ---")
	s, _ := newDemo(log)

	threads := []*sched.Thread{
		sched.NewThread(1, 40, 0),
		sched.NewThread(2, 80, 0),
		sched.NewThread(3, 120, 30),
		sched.NewThread(4, 120, 20),
	}
	for _, t := range threads {
		s.ReadyToRun(t)
	}
	for i := 0; i < len(threads); i++ {
		next := s.FindNextToRun()
		if next == nil {
			break
		}
		fmt.Printf("selected: thread %d\n", next.ID)
		s.Run(next, false)
		next.Status = sched.Finished
	}
}

// RunS2 readies T1(pri=45) at tick 0, advances 1600 ticks with T1 never
// selected, then runs the aging pass: T1 should end at priority 55 with
// 100 ticks of leftover ready-time credit.
func RunS2(log *klog.Logger) {
	fmt.Println("--- S2: aging ---")
	s, ctx := newDemo(log)

	t1 := sched.NewThread(1, 45, 0)
	s.ReadyToRun(t1)
	ctx.Advance(1600)
	s.Aging()
	fmt.Printf("thread 1 priority=%d total_ready_time=%d band=%s\n",
		t1.Priority, t1.TotalReadyTime, sched.Band(t1.Priority))
}

// RunS3 runs T(pri=100,burst=80), readies T'(pri=100,burst=40), and
// reports that the preemption flag becomes set.
func RunS3(log *klog.Logger) {
	fmt.Println("--- S3: preemption ---")
	s, ctx := newDemo(log)

	running := sched.NewThread(1, 100, 80)
	s.Run(running, false)

	arriving := sched.NewThread(2, 100, 40)
	s.ReadyToRun(arriving)
	fmt.Printf("preemption flag set: %v\n", ctx.ReschedulePending())
}
