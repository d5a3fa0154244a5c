package wirekeep

import (
	"testing"
	"time"
)

func TestBackoffDelaySequence(t *testing.T) {
	r := &reconnector{}
	base := 1000 * time.Millisecond
	max := 5000 * time.Millisecond

	want := []time.Duration{
		1000 * time.Millisecond, // exponent 0: base
		1500 * time.Millisecond, // base * 1.5
		2250 * time.Millisecond, // base * 1.5^2
		3375 * time.Millisecond, // base * 1.5^3
		5000 * time.Millisecond, // capped
		5000 * time.Millisecond, // stays capped
	}
	var prev time.Duration
	for i, w := range want {
		d := r.nextDelay(base, max)
		if d != w {
			t.Fatalf("delay %d = %v, want %v", i, d, w)
		}
		if d < prev {
			t.Fatalf("delay %d decreased: %v after %v", i, d, prev)
		}
		if d > max {
			t.Fatalf("delay %d = %v exceeds cap %v", i, d, max)
		}
		prev = d
	}
}

func TestBackoffExponentIndependentOfAttempts(t *testing.T) {
	r := &reconnector{}
	base := 100 * time.Millisecond

	// Attempts never advance the exponent on their own.
	if _, ok := r.begin(10); !ok {
		t.Fatal("first attempt rejected")
	}
	if d := r.nextDelay(base, time.Second); d != base {
		t.Fatalf("first delay = %v, want base %v", d, base)
	}
	if d := r.nextDelay(base, time.Second); d != 150*time.Millisecond {
		t.Fatalf("second delay = %v, want 150ms", d)
	}
}

func TestAttemptCeiling(t *testing.T) {
	r := &reconnector{}

	for i := 1; i <= 2; i++ {
		attempt, ok := r.begin(2)
		if !ok || attempt != i {
			t.Fatalf("attempt %d: got (%d, %v)", i, attempt, ok)
		}
	}
	attempt, ok := r.begin(2)
	if ok {
		t.Fatal("attempt beyond the ceiling was allowed")
	}
	if attempt != 2 {
		t.Fatalf("exhausted attempt count = %d, want 2", attempt)
	}
}

func TestUnlimitedAttemptsWhenNoCeiling(t *testing.T) {
	r := &reconnector{}
	for i := 0; i < 50; i++ {
		if _, ok := r.begin(0); !ok {
			t.Fatalf("attempt %d rejected with no ceiling", i)
		}
	}
}

func TestResetZeroesBothCounters(t *testing.T) {
	r := &reconnector{}
	r.begin(5)
	r.begin(5)
	r.nextDelay(time.Second, time.Minute)
	r.nextDelay(time.Second, time.Minute)

	r.reset()
	if r.attemptCount() != 0 {
		t.Fatalf("attempts after reset = %d", r.attemptCount())
	}
	if d := r.nextDelay(time.Second, time.Minute); d != time.Second {
		t.Fatalf("delay after reset = %v, want base", d)
	}
}

func TestScheduleSupersedesAndCancels(t *testing.T) {
	r := &reconnector{}
	fired := make(chan string, 2)

	r.schedule(10*time.Millisecond, func() { fired <- "first" })
	r.schedule(20*time.Millisecond, func() { fired <- "second" })

	select {
	case who := <-fired:
		if who != "second" {
			t.Fatalf("superseded schedule fired: %s", who)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduled fn never fired")
	}

	r.schedule(10*time.Millisecond, func() { fired <- "third" })
	r.cancel()
	select {
	case who := <-fired:
		t.Fatalf("cancelled schedule fired: %s", who)
	case <-time.After(50 * time.Millisecond):
	}
}
