package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/chazu/kerf/pkg/camerr"
)

type recorder struct {
	mu     sync.Mutex
	values []float64
}

func (r *recorder) Report(f float64) {
	r.mu.Lock()
	r.values = append(r.values, f)
	r.mu.Unlock()
}

func assertMonotone(t *testing.T, values []float64) {
	t.Helper()
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			t.Fatalf("progress went backwards at %d: %v", i, values)
		}
	}
}

func TestTrackerMonotone(t *testing.T) {
	rec := &recorder{}
	tr := New(context.Background(), rec, "test")
	steps := []float64{1, 3, 2, 5, 4, 10}
	for _, s := range steps {
		if err := tr.Step(s, 10); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	assertMonotone(t, rec.values)
	if got := rec.values[len(rec.values)-1]; got != 1 {
		t.Errorf("final progress = %v, want 1", got)
	}
}

func TestTrackerSub(t *testing.T) {
	rec := &recorder{}
	tr := New(context.Background(), rec, "test")
	a := tr.Sub(0, 0.5)
	b := tr.Sub(0.5, 1)
	_ = a.Step(1, 1)
	_ = b.Step(1, 2)
	want := []float64{0.5, 0.75}
	if len(rec.values) != len(want) {
		t.Fatalf("values = %v, want %v", rec.values, want)
	}
	for i := range want {
		if rec.values[i] != want[i] {
			t.Errorf("values[%d] = %v, want %v", i, rec.values[i], want[i])
		}
	}
}

func TestTrackerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	tr := New(ctx, rec, "test")
	cancel()
	err := tr.Step(1, 2)
	if !camerr.IsCancelled(err) {
		t.Fatalf("Step after cancel = %v, want ErrCancelled", err)
	}
	if len(rec.values) != 0 {
		t.Errorf("no progress should be reported after cancellation, got %v", rec.values)
	}
}

func TestNilSinkAndContext(t *testing.T) {
	tr := New(nil, nil, "test")
	if err := tr.Step(1, 1); err != nil {
		t.Fatalf("Step: %v", err)
	}
	tr.Done()
}

func TestAggregate(t *testing.T) {
	rec := &recorder{}
	agg := NewAggregate(rec, 4)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr := New(context.Background(), agg.Part(i), "part")
			for s := 1; s <= 10; s++ {
				_ = tr.Step(float64(s), 10)
			}
		}(i)
	}
	wg.Wait()
	assertMonotone(t, rec.values)
	if got := rec.values[len(rec.values)-1]; got != 1 {
		t.Errorf("final aggregate = %v, want 1", got)
	}
}
