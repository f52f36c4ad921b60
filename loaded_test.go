package cunit

import (
	"sync"
	"testing"
)

func TestLoadedSet(t *testing.T) {
	s := NewLoadedSet()
	if s.Contains("a") {
		t.Fatal("empty set contains a")
	}
	if !s.Add("a") || !s.Add("b") || s.Add("a") {
		t.Fatal("Add must report first insertion only")
	}
	if s.Len() != 2 || !s.Contains("a") {
		t.Errorf("set = %v", s.Snapshot())
	}
	snap := s.Snapshot()
	snap[0] = "changed"
	if s.Snapshot()[0] != "a" {
		t.Errorf("snapshot aliases the set")
	}
}

func TestLoadedSetConcurrentAdd(t *testing.T) {
	s := NewLoadedSet()
	var w sync.WaitGroup
	var mu sync.Mutex
	won := 0
	for i := 0; i < 16; i++ {
		w.Add(1)
		go func() {
			defer w.Done()
			if s.Add("x") {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	w.Wait()
	if won != 1 || s.Len() != 1 {
		t.Errorf("won = %d, len = %d", won, s.Len())
	}
}
