// Package kernel holds the substrate both hard-engineering cores in this
// module are built on: a monotonic tick counter, an interrupt-level
// primitive, and a one-shot preemption flag. Neither the scheduler nor the
// filesystem core reaches for a global mutable kernel singleton: the
// scheduler is handed an explicit *Context, and the filesystem core does
// not use one.
package kernel

// Level is the simulated interrupt level. The scheduler's sole mutual
// exclusion primitive is masking interrupts around a critical section —
// there are no locks, since blocking on a lock could re-enter the
// scheduler and deadlock.
type Level bool

const (
	IntOff Level = false
	IntOn  Level = true
)

// Context is the explicit kernel handle threaded through scheduler
// operations. It replaces the global `kernel->` singleton the
// original Nachos source reaches for everywhere.
type Context struct {
	level   Level
	ticks   uint64
	preempt bool
}

// NewContext returns a Context with interrupts enabled and the tick counter
// at zero.
func NewContext() *Context {
	return &Context{level: IntOn}
}

// SetLevel sets the interrupt level and returns the previous one, mirroring
// the external interrupt subsystem's SetLevel primitive.
func (c *Context) SetLevel(level Level) Level {
	prev := c.level
	c.level = level
	return prev
}

// Level returns the current interrupt level.
func (c *Context) Level() Level {
	return c.level
}

// AssertIntOff aborts the process if interrupts are not currently disabled.
// Every scheduler critical section asserts this first, matching the
// ASSERT(kernel->interrupt->getLevel() == IntOff) guards throughout
// scheduler.cc.
func (c *Context) AssertIntOff(subsystem string) {
	Assert(c.level == IntOff, subsystem, "interrupts must be disabled")
}

// Ticks returns the current value of the monotonic tick counter.
func (c *Context) Ticks() uint64 {
	return c.ticks
}

// Advance moves the tick counter forward by n and returns the new value.
// The timer/interrupt handler is the only external collaborator that
// advances ticks; this module just consumes the counter.
func (c *Context) Advance(n uint64) uint64 {
	c.ticks += n
	return c.ticks
}

// RequestReschedule sets the one-shot preemption flag. The timer/interrupt
// handler reads it on return to user mode (external to this module) and,
// if set, forces a reschedule.
func (c *Context) RequestReschedule() {
	c.preempt = true
}

// ClearReschedule clears the preemption flag and reports whether it had
// been set. FindNextToRun clears it unconditionally when it pulls a thread
// out of L1.
func (c *Context) ClearReschedule() bool {
	was := c.preempt
	c.preempt = false
	return was
}

// ReschedulePending reports the preemption flag without clearing it.
func (c *Context) ReschedulePending() bool {
	return c.preempt
}
