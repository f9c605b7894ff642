// Package ids generates identifiers for expense entries.
package ids

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces identifiers that are unique within a process lifetime.
type Generator interface {
	NewID() string
}

// UUIDv7 issues RFC 9562 version 7 UUIDs: a millisecond timestamp prefix
// followed by random bits.
type UUIDv7 struct{}

func (UUIDv7) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Only fails if the random source is broken.
		return uuid.NewString()
	}
	return id.String()
}

// Sequence issues prefix-1, prefix-2, ... and is meant for tests.
type Sequence struct {
	prefix string
	n      atomic.Int64
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NewID() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.n.Add(1))
}

// Func adapts a function to a Generator.
type Func func() string

func (f Func) NewID() string {
	return f()
}
