package websocket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) interface{} {
	t.Helper()
	select {
	case v, ok := <-sub.Events():
		require.True(t, ok, "stream closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertNothing(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case v, ok := <-sub.Events():
		if ok {
			t.Fatalf("unexpected event %v", v)
		}
	default:
	}
}

func waitClosed(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
}

func TestPublishReachesTopicSubscribersOnly(t *testing.T) {
	t.Parallel()
	hub := NewHub(8)
	ctx := context.Background()

	a := hub.Subscribe(ctx, "NEW_LINK")
	b := hub.Subscribe(ctx, "NEW_LINK")
	other := hub.Subscribe(ctx, "OTHER")

	hub.Publish("NEW_LINK", "hello")

	assert.Equal(t, "hello", receive(t, a))
	assert.Equal(t, "hello", receive(t, b))
	assertNothing(t, other)
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	t.Parallel()
	hub := NewHub(8)

	hub.Publish("NEW_LINK", 1)
	late := hub.Subscribe(context.Background(), "NEW_LINK")

	assertNothing(t, late)
	hub.Publish("NEW_LINK", 2)
	assert.Equal(t, 2, receive(t, late))
}

func TestPublishOrderPreserved(t *testing.T) {
	t.Parallel()
	hub := NewHub(16)
	sub := hub.Subscribe(context.Background(), "t")

	for i := 0; i < 10; i++ {
		hub.Publish("t", i)
	}
	for i := 0; i < 10; i++ {
		assert.Equal(t, i, receive(t, sub))
	}
}

func TestCancelDeregisters(t *testing.T) {
	t.Parallel()
	hub := NewHub(8)
	ctx, cancel := context.WithCancel(context.Background())

	sub := hub.Subscribe(ctx, "t")
	require.Equal(t, 1, hub.SubscriberCount("t"))

	cancel()
	waitClosed(t, sub)
	assert.Equal(t, 0, hub.SubscriberCount("t"))

	_, ok := <-sub.Events()
	assert.False(t, ok)

	// Publishing to a topic whose subscribers left is a no-op.
	hub.Publish("t", "dropped")
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	hub := NewHub(8)
	sub := hub.Subscribe(context.Background(), "t")

	sub.Close()
	sub.Close()
	waitClosed(t, sub)
	assert.Equal(t, 0, hub.SubscriberCount("t"))
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	t.Parallel()
	hub := NewHub(2)
	slow := hub.Subscribe(context.Background(), "t")
	fast := hub.Subscribe(context.Background(), "t")

	hub.Publish("t", 1)
	hub.Publish("t", 2)
	assert.Equal(t, 1, receive(t, fast))
	assert.Equal(t, 2, receive(t, fast))

	// slow still holds two buffered events; the third overflows it.
	hub.Publish("t", 3)
	assert.Equal(t, 3, receive(t, fast))

	waitClosed(t, slow)
	assert.Equal(t, 1, hub.SubscriberCount("t"))
	assert.Equal(t, 1, receive(t, slow))
	assert.Equal(t, 2, receive(t, slow))
	_, ok := <-slow.Events()
	assert.False(t, ok)
}

func TestHubCloseEndsStreams(t *testing.T) {
	t.Parallel()
	hub := NewHub(8)
	sub := hub.Subscribe(context.Background(), "t")

	hub.Close()
	waitClosed(t, sub)

	after := hub.Subscribe(context.Background(), "t")
	waitClosed(t, after)
	hub.Publish("t", "ignored")
	assert.Equal(t, 0, hub.SubscriberCount("t"))
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	t.Parallel()
	hub := NewHub(1024)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithCancel(context.Background())
			sub := hub.Subscribe(ctx, "t")
			cancel()
			<-sub.Done()
		}()
		go func(i int) {
			defer wg.Done()
			hub.Publish("t", i)
		}(i)
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return hub.SubscriberCount("t") == 0 }, time.Second, 10*time.Millisecond)
}
