package replcraft

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFuelRetry_DisabledRejects(t *testing.T) {
	mock, client := setupClient(t)
	mock.setOnReq(func(req map[string]any) {
		if req["action"] == "set_block" {
			mock.respondError(req["id"], KindOutOfFuel, "structure is out of fuel")
		}
	})

	globalFuel := make(chan FuelEvent, 1)
	scopedFuel := make(chan FuelEvent, 1)
	client.OnFuelExhausted(func(ev FuelEvent) { globalFuel <- ev })
	client.RootContext().OnFuelExhausted(func(ev FuelEvent) { scopedFuel <- ev })

	err := client.RootContext().SetBlock(testCtx(t), 0, 0, 0, "minecraft:stone")
	if !IsKind(err, KindOutOfFuel) {
		t.Fatalf("SetBlock() = %v, want kind %q", err, KindOutOfFuel)
	}

	// The notification fires on both buses even though retry is disabled.
	select {
	case ev := <-globalFuel:
		if ev.Action != "set_block" {
			t.Errorf("global fuel event action = %q", ev.Action)
		}
		if ev.Context == nil || ev.Context.ID() != 1 {
			t.Error("global fuel event should reference the originating context")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for global fuel event")
	}
	select {
	case <-scopedFuel:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for scoped fuel event")
	}
}

func TestFuelRetry_EnabledRetriesUntilSuccess(t *testing.T) {
	mock, client := setupClient(t, WithRetryDelay(10*time.Millisecond))
	client.SetFuelRetry(true)

	// Fail the first two attempts with exhaustion, then succeed.
	var mu sync.Mutex
	attempts := 0
	mock.setOnReq(func(req map[string]any) {
		if req["action"] != "get_block" {
			return
		}
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n <= 2 {
			mock.respondError(req["id"], KindOutOfFuel, "structure is out of fuel")
		} else {
			mock.respondOK(req["id"], map[string]any{"block": "minecraft:stone"})
		}
	})

	fuel := make(chan FuelEvent, 4)
	client.OnFuelExhausted(func(ev FuelEvent) { fuel <- ev })

	block, err := client.RootContext().GetBlock(testCtx(t), 0, 0, 0)
	if err != nil {
		t.Fatalf("GetBlock() should settle with the retried success, got %v", err)
	}
	if block != "minecraft:stone" {
		t.Errorf("GetBlock() = %q, want %q", block, "minecraft:stone")
	}

	mu.Lock()
	n := attempts
	mu.Unlock()
	if n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}

	// One fuel notification per exhausted attempt.
	for i := 0; i < 2; i++ {
		select {
		case <-fuel:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for fuel events")
		}
	}
}

func TestFuelRetry_OtherErrorsStillReject(t *testing.T) {
	mock, client := setupClient(t, WithRetryDelay(10*time.Millisecond))
	client.SetFuelRetry(true)

	var mu sync.Mutex
	attempts := 0
	mock.setOnReq(func(req map[string]any) {
		if req["action"] != "get_block" {
			return
		}
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 1 {
			mock.respondError(req["id"], KindOutOfFuel, "structure is out of fuel")
		} else {
			mock.respondError(req["id"], KindBadRequest, "no such block")
		}
	})

	_, err := client.RootContext().GetBlock(testCtx(t), 0, 0, 0)
	if !IsKind(err, KindBadRequest) {
		t.Fatalf("retried request should reject with the non-fuel error, got %v", err)
	}
}

func TestFuelRetry_FIFOOrder(t *testing.T) {
	mock, client := setupClient(t, WithRetryDelay(10*time.Millisecond))
	client.SetFuelRetry(true)

	// First attempt of each request exhausts fuel; R1's failure is delivered
	// well before R2's so R1 enters the queue first. Resubmissions succeed.
	var mu sync.Mutex
	firstAttempt := make(map[any]bool)
	var resubmitted []any
	mock.setOnReq(func(req map[string]any) {
		if req["action"] != "get_block" {
			return
		}
		x := req["x"]
		mu.Lock()
		first := !firstAttempt[x]
		firstAttempt[x] = true
		if !first {
			resubmitted = append(resubmitted, x)
		}
		mu.Unlock()

		if !first {
			mock.respondOK(req["id"], map[string]any{"block": "minecraft:stone"})
			return
		}
		if x == float64(1) {
			mock.respondError(req["id"], KindOutOfFuel, "out")
		} else {
			// Hold R2's failure back so the queue order is deterministic.
			go func() {
				time.Sleep(50 * time.Millisecond)
				mock.respondError(req["id"], KindOutOfFuel, "out")
			}()
		}
	})

	root := client.RootContext()
	done := make(chan error, 2)
	go func() {
		_, err := root.GetBlock(testCtx(t), 1, 0, 0)
		done <- err
	}()
	go func() {
		_, err := root.GetBlock(testCtx(t), 2, 0, 0)
		done <- err
	}()

	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("retried request error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for retried requests")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(resubmitted) != 2 {
		t.Fatalf("resubmissions = %v, want 2 entries", resubmitted)
	}
	if resubmitted[0] != float64(1) || resubmitted[1] != float64(2) {
		t.Errorf("resubmission order = %v, want [1 2]", resubmitted)
	}
}

func TestFuelRetry_CancelStopsResubmission(t *testing.T) {
	mock, client := setupClient(t, WithRetryDelay(10*time.Millisecond))
	client.SetFuelRetry(true)

	// Fuel never replenishes.
	var mu sync.Mutex
	attempts := 0
	mock.setOnReq(func(req map[string]any) {
		if req["action"] != "get_block" {
			return
		}
		mu.Lock()
		attempts++
		mu.Unlock()
		mock.respondError(req["id"], KindOutOfFuel, "out")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := client.RootContext().GetBlock(ctx, 0, 0, 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("GetBlock() = %v, want context.DeadlineExceeded", err)
	}

	// Once the caller gives up, the retry queue stops cycling the request.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	settled := attempts
	mu.Unlock()

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if attempts != settled {
		t.Errorf("resubmissions continued after cancellation: %d then %d", settled, attempts)
	}
}

func TestFuelRetry_CloseFailsQueued(t *testing.T) {
	mock, client := setupClient(t, WithRetryDelay(20*time.Millisecond))
	client.SetFuelRetry(true)

	// Fuel never replenishes: every attempt exhausts.
	mock.setOnReq(func(req map[string]any) {
		if req["action"] == "get_block" {
			mock.respondError(req["id"], KindOutOfFuel, "out")
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := client.RootContext().GetBlock(testCtx(t), 0, 0, 0)
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	client.Close()

	select {
	case err := <-done:
		if !IsKind(err, KindConnectionClosed) {
			t.Errorf("queued retry after Close = %v, want kind %q", err, KindConnectionClosed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for queued retry to fail")
	}
}
