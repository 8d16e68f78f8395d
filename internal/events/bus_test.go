// AngelaMos | 2026
// bus_test.go

package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversTypedPayload(t *testing.T) {
	bus := NewBus(nil)

	var (
		mu  sync.Mutex
		got []Nudged
	)
	require.NoError(t, Subscribe(bus, TopicNudged, func(e Nudged) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
	}))

	bus.Publish(TopicNudged, Nudged{FromUserID: "a", ToUserID: "b"})
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ToUserID)
}

func TestBus_DropsMismatchedPayload(t *testing.T) {
	bus := NewBus(nil)

	called := false
	require.NoError(t, Subscribe(bus, TopicPlanChanged, func(e PlanChanged) {
		called = true
	}))

	bus.Publish(TopicPlanChanged, "not a plan change")
	bus.Wait()

	assert.False(t, called)
}

func TestBus_RecoversHandlerPanic(t *testing.T) {
	bus := NewBus(nil)

	require.NoError(t, Subscribe(bus, TopicFriendAccepted, func(e FriendAccepted) {
		panic("boom")
	}))

	assert.NotPanics(t, func() {
		bus.Publish(TopicFriendAccepted, FriendAccepted{})
		bus.Wait()
	})
}

func TestBus_NilIsNoop(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() {
		bus.Publish(TopicNudged, Nudged{})
		bus.Wait()
	})
}
