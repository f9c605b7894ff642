package ids

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestUUIDv7Unique(t *testing.T) {
	var g Generator = UUIDv7{}
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := g.NewID()
		parsed, err := uuid.Parse(id)
		if err != nil {
			t.Fatalf("invalid uuid %q: %v", id, err)
		}
		if parsed.Version() != 7 {
			t.Fatalf("expected version 7, got %d", parsed.Version())
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestSequence(t *testing.T) {
	s := NewSequence("exp")
	if got := s.NewID(); got != "exp-1" {
		t.Fatalf("first id = %q", got)
	}
	if got := s.NewID(); got != "exp-2" {
		t.Fatalf("second id = %q", got)
	}
}

func TestSequenceConcurrent(t *testing.T) {
	s := NewSequence("c")
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = map[string]struct{}{}
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := s.NewID()
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != 50 {
		t.Fatalf("expected 50 unique ids, got %d", len(seen))
	}
}

func TestFunc(t *testing.T) {
	g := Func(func() string { return "fixed" })
	if g.NewID() != "fixed" {
		t.Fatalf("Func did not delegate")
	}
}
