package session

import (
	"sync"
	"testing"

	"github.com/momentics/clink/fake"
)

func TestStoreAddGetDelete(t *testing.T) {
	s := NewStore(3)
	if len(s.shards) != 4 {
		t.Fatalf("shards = %d, want 4", len(s.shards))
	}
	c, err := NewConnector(fake.NewChannel(), fake.NewProvider(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Add(c) || s.Add(c) {
		t.Fatal("Add should accept once")
	}
	if got, ok := s.Get(c.ID()); !ok || got != c {
		t.Fatal("Get missed the connector")
	}
	if s.Len() != 1 || len(s.Snapshot()) != 1 {
		t.Fatalf("Len = %d", s.Len())
	}
	if !s.Delete(c.ID()) || s.Delete(c.ID()) {
		t.Fatal("Delete should succeed once")
	}
	if s.Len() != 0 {
		t.Fatal("store not empty")
	}
}

func TestStoreConcurrent(t *testing.T) {
	s := NewStore(16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c, _ := NewConnector(fake.NewChannel(), fake.NewProvider(), nil, nil)
				s.Add(c)
			}
		}()
	}
	wg.Wait()
	if s.Len() != 400 {
		t.Fatalf("Len = %d, want 400", s.Len())
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	for in, want := range map[uint32]uint32{1: 1, 3: 4, 16: 16, 17: 32} {
		if got := nextPowerOfTwo(in); got != want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}
