package metrics

import (
	"slices"
	"testing"
)

func TestNewRing(t *testing.T) {
	t.Run("starts zero filled", func(t *testing.T) {
		r := NewRing[float64](4)
		if r.Len() != 4 {
			t.Errorf("expected Len 4, got %d", r.Len())
		}
		if r.Cursor() != 0 {
			t.Errorf("expected cursor 0, got %d", r.Cursor())
		}
		if got := r.Values(); !slices.Equal(got, []float64{0, 0, 0, 0}) {
			t.Errorf("expected zero values, got %v", got)
		}
	})

	t.Run("panics on zero length", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic for length 0")
			}
		}()
		NewRing[int](0)
	})
}

func TestRing_ChronologicalInvariant(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		writes []int
		want   []int
	}{
		{"partial fill", 5, []int{1, 2, 3}, []int{0, 0, 1, 2, 3}},
		{"exact fill", 3, []int{1, 2, 3}, []int{1, 2, 3}},
		{"wrapped once", 3, []int{1, 2, 3, 4}, []int{2, 3, 4}},
		{"wrapped many", 4, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, []int{7, 8, 9, 10}},
		{"length one", 1, []int{5, 6, 7}, []int{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRing[int](tt.n)
			for _, v := range tt.writes {
				r.Write(v)
			}

			got := r.Values()
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if r.Latest() != tt.writes[len(tt.writes)-1] {
				t.Errorf("expected latest %d, got %d", tt.writes[len(tt.writes)-1], r.Latest())
			}
			if want := len(tt.writes) % tt.n; r.Cursor() != want {
				t.Errorf("expected cursor %d, got %d", want, r.Cursor())
			}
		})
	}
}

func TestRing_ChronologicalStopsEarly(t *testing.T) {
	r := NewRing[int](4)
	for i := 1; i <= 6; i++ {
		r.Write(i)
	}

	var got []int
	for v := range r.Chronological() {
		got = append(got, v)
		if len(got) == 2 {
			break
		}
	}

	if !slices.Equal(got, []int{3, 4}) {
		t.Errorf("expected [3 4], got %v", got)
	}
}

func TestRing_ResetAt(t *testing.T) {
	r := NewRing[float64](4)
	for i := 0; i < 3; i++ {
		r.Write(9)
	}

	r.ResetAt(6)

	if r.Cursor() != 2 {
		t.Errorf("expected cursor 2, got %d", r.Cursor())
	}
	if got := r.Values(); !slices.Equal(got, []float64{0, 0, 0, 0}) {
		t.Errorf("expected cleared ring, got %v", got)
	}

	r.Write(1)
	if r.Latest() != 1 {
		t.Errorf("expected latest 1, got %v", r.Latest())
	}
	if got := r.Values(); !slices.Equal(got, []float64{0, 0, 0, 1}) {
		t.Errorf("expected [0 0 0 1], got %v", got)
	}
}
