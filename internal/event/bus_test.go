package event

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestBus_PriorityOrder(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	var order []int
	record := func(p int) Handler {
		return func(any) error {
			mu.Lock()
			order = append(order, p)
			mu.Unlock()
			return nil
		}
	}

	for _, p := range []int{5, 10, 0} {
		if _, err := bus.On("change", record(p), WithPriority(p)); err != nil {
			t.Fatalf("On() failed: %v", err)
		}
	}

	if err := bus.Emit("change", nil); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}

	want := []int{10, 5, 0}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestBus_TieBreakByRegistration(t *testing.T) {
	bus := NewBus()

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		if _, err := bus.On("tick", func(any) error {
			order = append(order, name)
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	if err := bus.Emit("tick", nil); err != nil {
		t.Fatal(err)
	}

	want := []string{"first", "second", "third"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestBus_Once(t *testing.T) {
	bus := NewBus()

	calls := 0
	if _, err := bus.Once("ready", func(any) error {
		calls++
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := bus.Emit("ready", nil); err != nil {
			t.Fatal(err)
		}
	}

	if calls != 1 {
		t.Errorf("once handler called %d times, want 1", calls)
	}
	if bus.HasSubscribers("ready") {
		t.Error("once subscription still registered after firing")
	}
}

func TestBus_OnceUnderEmitAsync(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	calls := 0
	if _, err := bus.Once("ready", func(any) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := bus.EmitAsync("ready", nil); err != nil {
			t.Fatal(err)
		}
	}

	if calls != 1 {
		t.Errorf("once handler called %d times under EmitAsync, want 1", calls)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsub, err := bus.On("tick", func(any) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := bus.Emit("tick", nil); err != nil {
		t.Fatal(err)
	}
	unsub()
	unsub() // idempotent
	if err := bus.Emit("tick", nil); err != nil {
		t.Fatal(err)
	}

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}

func TestBus_ErrorPropagation(t *testing.T) {
	bus := NewBus() // catchErrors disabled

	boom := errors.New("boom")
	laterRan := false
	if _, err := bus.On("go", func(any) error { return boom }, WithPriority(10)); err != nil {
		t.Fatal(err)
	}
	if _, err := bus.On("go", func(any) error {
		laterRan = true
		return nil
	}, WithPriority(0)); err != nil {
		t.Fatal(err)
	}

	if err := bus.Emit("go", nil); !errors.Is(err, boom) {
		t.Errorf("Emit() = %v, want boom", err)
	}
	if laterRan {
		t.Error("later handler ran after a failure with catchErrors disabled")
	}
}

func TestBus_CatchErrors(t *testing.T) {
	bus := NewBus(WithCatchErrors(true))

	laterRan := false
	if _, err := bus.On("go", func(any) error { return errors.New("boom") }, WithPriority(10)); err != nil {
		t.Fatal(err)
	}
	if _, err := bus.On("go", func(any) error {
		laterRan = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := bus.Emit("go", nil); err != nil {
		t.Errorf("Emit() = %v, want nil with catchErrors enabled", err)
	}
	if !laterRan {
		t.Error("later handler did not run with catchErrors enabled")
	}
}

func TestBus_MaxSubscribers(t *testing.T) {
	bus := NewBus(WithMaxSubscribers(2))

	noop := func(any) error { return nil }
	for i := 0; i < 2; i++ {
		if _, err := bus.On("busy", noop); err != nil {
			t.Fatalf("subscription %d failed: %v", i, err)
		}
	}

	if _, err := bus.On("busy", noop); !errors.Is(err, ErrTooManySubscribers) {
		t.Errorf("got %v, want ErrTooManySubscribers", err)
	}
}

func TestBus_Counts(t *testing.T) {
	bus := NewBus()

	noop := func(any) error { return nil }
	if bus.HasSubscribers("x") {
		t.Error("HasSubscribers on empty bus")
	}
	if _, err := bus.On("x", noop); err != nil {
		t.Fatal(err)
	}
	if _, err := bus.On("x", noop); err != nil {
		t.Fatal(err)
	}

	if n := bus.SubscriberCount("x"); n != 2 {
		t.Errorf("SubscriberCount = %d, want 2", n)
	}

	bus.Clear("x")
	if bus.HasSubscribers("x") {
		t.Error("subscribers remain after Clear")
	}
}

func TestBus_EmitAsyncWaitsForAll(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	done := 0
	for i := 0; i < 5; i++ {
		if _, err := bus.On("work", func(any) error {
			mu.Lock()
			done++
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	if err := bus.EmitAsync("work", nil); err != nil {
		t.Fatal(err)
	}

	if done != 5 {
		t.Errorf("EmitAsync returned before all handlers finished: %d/5", done)
	}
}

func TestBus_OnceAcrossConcurrentEmits(t *testing.T) {
	bus := NewBus()

	var calls atomic.Int32
	if _, err := bus.Once("ready", func(any) error {
		calls.Add(1)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bus.Emit("ready", nil); err != nil {
				t.Errorf("Emit() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("once handler ran %d times, want 1", n)
	}
	if bus.HasSubscribers("ready") {
		t.Error("once subscription still registered")
	}
}

func TestBus_SubscribeValidation(t *testing.T) {
	bus := NewBus()

	if _, err := bus.On("", func(any) error { return nil }); !errors.Is(err, ErrEmptyEvent) {
		t.Errorf("empty event: got %v", err)
	}
	if _, err := bus.On("x", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("nil handler: got %v", err)
	}
}
