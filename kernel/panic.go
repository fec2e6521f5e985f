package kernel

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// PanicInfo describes a precondition violation that aborted the kernel.
type PanicInfo struct {
	Subsystem string
	Message   string
}

var (
	panicActive atomic.Bool
	panicOnce   sync.Once
	panicValue  atomic.Value // PanicInfo
)

// InPanicMode reports whether a precondition violation has already aborted
// the kernel. Once true it never reverts: the process is unrecoverable.
func InPanicMode() bool {
	return panicActive.Load()
}

// LastPanic returns the first recorded PanicInfo, if any.
func LastPanic() (PanicInfo, bool) {
	v := panicValue.Load()
	if v == nil {
		return PanicInfo{}, false
	}
	return v.(PanicInfo), true
}

// Assert aborts the process if cond is false. It guards precondition
// violations that indicate a kernel bug rather than a recoverable runtime
// condition: interrupts not disabled where required, a free-map bit
// expected set during deallocate, a stack-overflow sentinel, a
// staged-graveyard slot already occupied.
func Assert(cond bool, subsystem, format string, args ...any) {
	if cond {
		return
	}
	info := PanicInfo{Subsystem: subsystem, Message: fmt.Sprintf(format, args...)}
	panicOnce.Do(func() {
		panicActive.Store(true)
		panicValue.Store(info)
	})
	panic(fmt.Sprintf("%s: %s", subsystem, info.Message))
}
