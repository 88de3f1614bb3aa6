// Package cancel provides the cooperative cancellation flag shared by a run's workers.
package cancel

import "sync/atomic"

// Flag is a write-once cancellation signal. Once set it is never cleared.
// The zero value is ready to use.
type Flag struct {
	set atomic.Bool
}

// New returns an unset flag
func New() *Flag {
	return &Flag{}
}

// Set raises the flag. Calling it more than once is harmless.
func (f *Flag) Set() {
	f.set.Store(true)
}

// IsSet reports whether the flag has been raised. A nil flag is never set.
func (f *Flag) IsSet() bool {
	if f == nil {
		return false
	}
	return f.set.Load()
}
