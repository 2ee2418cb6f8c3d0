// File: control/control_test.go
// Author: momentics <momentics@gmail.com>

package control

import (
	"sync"
	"testing"
)

func TestMetricsRegistry_SetGet(t *testing.T) {
	m := NewMetricsRegistry()
	if !m.Updated().IsZero() {
		t.Fatal("fresh registry should have zero update time")
	}
	m.Set("b", 2)
	m.Set("a", "x")

	if v, ok := m.Get("b"); !ok || v != 2 {
		t.Fatalf("Get(b) = %v, %v", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Fatal("missing key reported present")
	}
	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("Keys = %v", keys)
	}

	snap := m.GetSnapshot()
	snap["a"] = "changed"
	if v, _ := m.Get("a"); v != "x" {
		t.Fatal("snapshot aliases registry storage")
	}
}

func TestMetricsRegistry_AddConcurrent(t *testing.T) {
	m := NewMetricsRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Add("count", 1)
			}
		}()
	}
	wg.Wait()
	if v, _ := m.Get("count"); v != int64(8000) {
		t.Fatalf("count = %v, want 8000", v)
	}
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	calls := 0
	dp.RegisterProbe("p", func() any { calls++; return calls })
	dp.RegisterProbe("nil", nil)

	state := dp.DumpState()
	if len(state) != 1 || state["p"] != 1 {
		t.Fatalf("DumpState = %v", state)
	}

	dp.UnregisterProbe("p")
	if len(dp.DumpState()) != 0 {
		t.Fatal("probe not removed")
	}
}

func TestDebugProbes_ReentrantProbe(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("self", func() any {
		dp.RegisterProbe("late", func() any { return true })
		return "ok"
	})
	if got := dp.DumpState()["self"]; got != "ok" {
		t.Fatalf("self = %v", got)
	}
	if got := dp.DumpState()["late"]; got != true {
		t.Fatalf("late = %v", got)
	}
}
