package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessAutoCloses(t *testing.T) {
	c := NewCenter(WithDuration(20 * time.Millisecond))
	id := c.Success("Repository added", "Repository org/app added")

	list := c.List()
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, TypeSuccess, list[0].Type)

	assert.Eventually(t, func() bool { return len(c.List()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestErrorIsPersistent(t *testing.T) {
	c := NewCenter(WithDuration(10 * time.Millisecond))
	id := c.Error("Failed to add repository", "Network error")

	time.Sleep(40 * time.Millisecond)
	list := c.List()
	require.Len(t, list, 1)
	assert.True(t, list[0].Persistent)

	assert.True(t, c.Remove(id))
	assert.False(t, c.Remove(id))
	assert.Empty(t, c.List())
}

func TestClearAllStopsTimers(t *testing.T) {
	c := NewCenter(WithDuration(time.Hour))
	c.Info("a", "")
	c.Warning("b", "")
	c.Error("c", "")
	require.Len(t, c.List(), 3)

	c.ClearAll()
	assert.Empty(t, c.List())
	c.mu.Lock()
	assert.Empty(t, c.timers)
	c.mu.Unlock()
}

func TestSubscribeReceivesEvents(t *testing.T) {
	c := NewCenter(WithDuration(time.Hour))
	events, cancel := c.Subscribe()
	defer cancel()

	id := c.Info("Analysis started", "")
	c.Remove(id)

	ev := <-events
	assert.Equal(t, ActionAdded, ev.Action)
	assert.Equal(t, "Analysis started", ev.Notification.Title)
	ev = <-events
	assert.Equal(t, ActionRemoved, ev.Action)
	assert.Equal(t, id, ev.Notification.ID)

	cancel()
	_, open := <-events
	assert.False(t, open)
}

func TestRegistryIsolatesUsers(t *testing.T) {
	r := NewRegistry(WithDuration(time.Hour))
	r.For("user-a").Info("hello", "")

	assert.Same(t, r.For("user-a"), r.For("user-a"))
	assert.Len(t, r.For("user-a").List(), 1)
	assert.Empty(t, r.For("user-b").List())
}

func TestRegistryCloseEndsStreams(t *testing.T) {
	r := NewRegistry()
	events, cancel := r.For("user-a").Subscribe()

	r.Close()
	_, open := <-events
	assert.False(t, open)
	cancel()
}

func TestAddDropsOldestPastLimit(t *testing.T) {
	c := NewCenter(WithDuration(time.Hour), WithLimit(3))
	events, cancel := c.Subscribe()
	defer cancel()

	first := c.Error("first", "")
	for _, title := range []string{"second", "third", "fourth"} {
		c.Error(title, "")
	}

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, "second", list[0].Title)
	assert.Equal(t, "fourth", list[2].Title)

	var removed []string
	for _i := 0; _i < 5; _i++ {
		if ev := <-events; ev.Action == ActionRemoved {
			removed = append(removed, ev.Notification.ID)
		}
	}
	assert.Equal(t, []string{first}, removed)
}

func TestRegistrySweepsIdleCenters(t *testing.T) {
	r := NewRegistry(WithIdleTimeout(time.Hour))
	r.For("gone").Error("stale", "")
	watched := r.For("watched")
	_, cancel := watched.Subscribe()
	defer cancel()
	require.Equal(t, 2, r.Len())

	assert.Zero(t, r.Sweep(time.Now()))
	assert.Equal(t, 1, r.Sweep(time.Now().Add(2*time.Hour)))
	assert.Equal(t, 1, r.Len())
	assert.Same(t, watched, r.For("watched"))
	assert.Empty(t, r.For("gone").List())
}
