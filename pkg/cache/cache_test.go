package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
)

func TestGetSet(t *testing.T) {
	c := New[string, int](4, time.Minute)

	c.Set("a", 1)
	v, ok := c.Get("a")
	gt.True(t, ok)
	gt.Equal(t, v, 1)

	_, ok = c.Get("missing")
	gt.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New[string, int](4, time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.SetTTL("a", 1, 10*time.Second)

	c.now = func() time.Time { return base.Add(5 * time.Second) }
	_, ok := c.Get("a")
	gt.True(t, ok)

	c.now = func() time.Time { return base.Add(11 * time.Second) }
	_, ok = c.Get("a")
	gt.False(t, ok)
	gt.Equal(t, c.Len(), 0)
}

func TestEviction(t *testing.T) {
	c := New[string, int](3, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	// Touch k0 so k1 becomes the eviction candidate
	_, ok := c.Get("k0")
	gt.True(t, ok)

	c.Set("k3", 3)
	_, ok = c.Get("k1")
	gt.False(t, ok)
	_, ok = c.Get("k0")
	gt.True(t, ok)
}

func TestPurge(t *testing.T) {
	c := New[string, int](4, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Purge()
	gt.Equal(t, c.Len(), 0)
	_, ok := c.Get("a")
	gt.False(t, ok)
}

func TestKey(t *testing.T) {
	gt.NotEqual(t, Key("a", "", "b"), Key("a", "b", ""))
	gt.Equal(t, Key("a", "b"), Key("a", "b"))
}
