package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/address-forecast/internal/weather"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sampleResult(address string) weather.Result {
	temp := 5.0
	return weather.Result{Address: address, Latitude: 41.88, Longitude: -87.63, CurrentTemperature: &temp}
}

func TestMemoryCache_WriteRead(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	if _, ok, err := c.Read(ctx, "forecast/zip/60601"); ok || err != nil {
		t.Fatalf("expected miss on empty cache, got ok=%v err=%v", ok, err)
	}

	if err := c.Write(ctx, "forecast/zip/60601", sampleResult("Chicago"), time.Minute); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, ok, err := c.Read(ctx, "forecast/zip/60601")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Address != "Chicago" || got.CurrentTemperature == nil || *got.CurrentTemperature != 5.0 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 2, 5, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache()
	c.now = clock.Now

	_ = c.Write(ctx, "k", sampleResult("Chicago"), 30*time.Minute)

	clock.Advance(29 * time.Minute)
	if _, ok, _ := c.Read(ctx, "k"); !ok {
		t.Fatalf("expected hit before ttl elapsed")
	}

	clock.Advance(time.Minute)
	if _, ok, _ := c.Read(ctx, "k"); ok {
		t.Fatalf("expected miss once ttl elapsed")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be dropped on read, len=%d", c.Len())
	}
}

func TestMemoryCache_OverwriteRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 2, 5, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache()
	c.now = clock.Now

	_ = c.Write(ctx, "k", sampleResult("first"), 10*time.Minute)
	clock.Advance(8 * time.Minute)
	_ = c.Write(ctx, "k", sampleResult("second"), 10*time.Minute)
	clock.Advance(8 * time.Minute)

	got, ok, _ := c.Read(ctx, "k")
	if !ok || got.Address != "second" {
		t.Fatalf("expected refreshed entry, got ok=%v result=%+v", ok, got)
	}
}

func TestMemoryCache_NonPositiveTTL(t *testing.T) {
	c := NewMemoryCache()
	_ = c.Write(context.Background(), "k", sampleResult("x"), 0)
	if c.Len() != 0 {
		t.Fatalf("zero ttl should not store anything")
	}
}

func TestMemoryCache_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 2, 5, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache()
	c.now = clock.Now

	_ = c.Write(ctx, "short", sampleResult("a"), time.Minute)
	_ = c.Write(ctx, "long", sampleResult("b"), time.Hour)
	clock.Advance(2 * time.Minute)

	removed, err := c.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 1 || c.Len() != 1 {
		t.Fatalf("expected 1 removed and 1 left, got removed=%d len=%d", removed, c.Len())
	}
	if _, ok, _ := c.Read(ctx, "long"); !ok {
		t.Fatalf("unexpired entry should survive sweep")
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Write(ctx, "k", sampleResult("x"), time.Minute)
				_, _, _ = c.Read(ctx, "k")
			}
		}()
	}
	wg.Wait()

	if _, ok, _ := c.Read(ctx, "k"); !ok {
		t.Fatalf("expected entry after concurrent writes")
	}
}
