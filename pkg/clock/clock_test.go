package clock

import (
	"testing"
	"time"
)

func TestSystem_NonDecreasing(t *testing.T) {
	c := NewSystem()
	prev := c.Now()
	for i := 0; i < 1000; i++ {
		now := c.Now()
		if now.Before(prev) {
			t.Fatalf("clock went backwards: %v after %v", now, prev)
		}
		prev = now
	}
}

func TestManual(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	c := NewManual(start)

	t.Run("Frozen Until Advanced", func(t *testing.T) {
		if !c.Now().Equal(start) {
			t.Errorf("expected %v, got %v", start, c.Now())
		}
		if !c.Now().Equal(start) {
			t.Error("manual clock drifted without Advance")
		}
	})

	t.Run("Advance", func(t *testing.T) {
		c.Advance(600 * time.Second)
		want := start.Add(600 * time.Second)
		if !c.Now().Equal(want) {
			t.Errorf("expected %v, got %v", want, c.Now())
		}
	})

	t.Run("Negative Advance Ignored", func(t *testing.T) {
		before := c.Now()
		c.Advance(-time.Hour)
		if !c.Now().Equal(before) {
			t.Error("negative advance moved the clock")
		}
	})
}
