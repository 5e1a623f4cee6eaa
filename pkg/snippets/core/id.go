package core

import (
	"fmt"
	"math"
	"sync/atomic"
)

// ID is an opaque identifier issued by an IDGenerator.
type ID uint32

// Unassigned is the sentinel value no generator ever issues.
const Unassigned ID = 0

// String renders the id for logs and error messages.
func (id ID) String() string {
	if id == Unassigned {
		return "unassigned"
	}
	return fmt.Sprintf("%d", uint32(id))
}

// IDGenerator issues strictly increasing ids, starting at 1.
//
// A single generator is meant to be shared by every engine in the process so
// that ids stay unique across sessions. Running past math.MaxUint32 is an
// unrecoverable fault and panics rather than wrapping.
type IDGenerator struct {
	counter atomic.Uint32
}

// NewIDGenerator creates a generator whose first id is 1.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next id.
func (g *IDGenerator) Next() ID {
	for {
		cur := g.counter.Load()
		if cur == math.MaxUint32 {
			panic("core: id space exhausted")
		}
		if g.counter.CompareAndSwap(cur, cur+1) {
			return ID(cur + 1)
		}
	}
}

// Peek returns the id the next call to Next would issue, without consuming it.
// ok is false once the id space is exhausted, where Next would panic.
func (g *IDGenerator) Peek() (id ID, ok bool) {
	cur := g.counter.Load()
	if cur == math.MaxUint32 {
		return Unassigned, false
	}
	return ID(cur + 1), true
}
