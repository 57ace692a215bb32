package telemetry

import (
	"errors"
	"testing"
	"time"
)

func TestGetOrFetch_CachesWithinTTL(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Minute)
	fetches := 0
	fetch := func() (bool, error) {
		fetches++
		return true, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrFetch("k", time.Minute, fetch)
		if err != nil {
			t.Fatalf("GetOrFetch: %v", err)
		}
		if !v {
			t.Fatalf("value: got false, want true")
		}
	}
	if fetches != 1 {
		t.Errorf("fetches: got %d, want 1", fetches)
	}
}

func TestGetOrFetch_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Minute)
	fetches := 0
	fetch := func() (bool, error) {
		fetches++
		return false, nil
	}

	if _, err := c.GetOrFetch("k", 10*time.Millisecond, fetch); err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := c.GetOrFetch("k", 10*time.Millisecond, fetch); err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	if fetches != 2 {
		t.Errorf("fetches: got %d, want 2", fetches)
	}
}

func TestGetOrFetch_ErrorNotCached(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Minute)
	fetches := 0
	boom := errors.New("remote down")

	_, err := c.GetOrFetch("k", time.Minute, func() (bool, error) {
		fetches++
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}

	// Next read retries instead of serving the failure.
	v, err := c.GetOrFetch("k", time.Minute, func() (bool, error) {
		fetches++
		return true, nil
	})
	if err != nil || !v {
		t.Fatalf("got (%v, %v), want (true, nil)", v, err)
	}
	if fetches != 2 {
		t.Errorf("fetches: got %d, want 2", fetches)
	}
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Minute)
	fetches := 0
	fetch := func() (bool, error) {
		fetches++
		return fetches > 1, nil
	}

	if v, _ := c.GetOrFetch("k", time.Minute, fetch); v {
		t.Fatalf("first read: got true, want false")
	}
	c.Invalidate("k")
	if v, _ := c.GetOrFetch("k", time.Minute, fetch); !v {
		t.Fatalf("post-invalidate read: got false, want true")
	}
	if fetches != 2 {
		t.Errorf("fetches: got %d, want 2", fetches)
	}
}
