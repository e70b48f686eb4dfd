package stackreg

import (
	"errors"
	"sync"
	"testing"

	"sysmon/metrics"
)

func id(n uint64) metrics.ThreadIdentity {
	return metrics.ThreadIdentity{Handle: n << 8, ID: metrics.ThreadID(n)}
}

func TestRegistry_RegisterLookup(t *testing.T) {
	r := New(4, nil)

	if err := r.Register(id(1), 4096); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	capacity, ok := r.Lookup(id(1))
	if !ok || capacity != 4096 {
		t.Errorf("expected 4096, got %d (%v)", capacity, ok)
	}

	if _, ok := r.Lookup(id(2)); ok {
		t.Error("expected miss for unregistered thread")
	}

	t.Run("re-register updates capacity", func(t *testing.T) {
		if err := r.Register(id(1), 8192); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		capacity, _ := r.Lookup(id(1))
		if capacity != 8192 {
			t.Errorf("expected 8192, got %d", capacity)
		}
		if r.Len() != 1 {
			t.Errorf("expected 1 record, got %d", r.Len())
		}
	})
}

func TestRegistry_RegisterErrors(t *testing.T) {
	t.Run("nil registry", func(t *testing.T) {
		var r *Registry
		if err := r.Register(id(1), 1024); !errors.Is(err, ErrNotInitialized) {
			t.Errorf("expected ErrNotInitialized, got %v", err)
		}
		if _, ok := r.Lookup(id(1)); ok {
			t.Error("expected nil registry lookup to miss")
		}
	})

	t.Run("zero capacity", func(t *testing.T) {
		r := New(4, nil)
		if err := r.Register(id(1), 0); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("expected ErrInvalidCapacity, got %v", err)
		}
	})

	t.Run("full", func(t *testing.T) {
		r := New(2, nil)
		r.Register(id(1), 1024)
		r.Register(id(2), 1024)

		if err := r.Register(id(3), 1024); !errors.Is(err, ErrFull) {
			t.Errorf("expected ErrFull, got %v", err)
		}
		if err := r.Register(id(2), 2048); err != nil {
			t.Errorf("expected update of existing record to succeed when full, got %v", err)
		}
	})
}

func TestRegistry_Unregister(t *testing.T) {
	r := New(4, nil)
	r.Register(id(1), 1024)

	if !r.Unregister(id(1)) {
		t.Error("expected Unregister to report removal")
	}
	if r.Unregister(id(1)) {
		t.Error("expected second Unregister to report nothing removed")
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistry_Cleanup(t *testing.T) {
	r := New(8, nil)
	for n := uint64(1); n <= 4; n++ {
		r.Register(id(n), 1024)
	}

	removed := r.Cleanup(func(tid metrics.ThreadIdentity) bool {
		return tid.ID%2 == 0
	})

	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if _, ok := r.Lookup(id(2)); !ok {
		t.Error("expected live thread to keep its record")
	}
	if _, ok := r.Lookup(id(3)); ok {
		t.Error("expected dead thread record removed")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New(DefaultMaxRecords, nil)
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tid := id(uint64(w*100 + i%10))
				r.Register(tid, uint32(1024+i))
				r.Lookup(tid)
				if i%7 == 0 {
					r.Unregister(tid)
				}
			}
		}(w)
	}
	wg.Wait()

	if r.Len() > 80 {
		t.Errorf("expected at most 80 records, got %d", r.Len())
	}
}
