package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishDeliversToAllSubscribers(t *testing.T) {
	b := New()
	var gotA, gotB any
	b.Subscribe(SessionAdded, func(payload any) { gotA = payload })
	b.Subscribe(SessionAdded, func(payload any) { gotB = payload })

	b.Publish(SessionAdded, SessionRemovedPayload{SessionName: "feat-a"})

	assert.Equal(t, SessionRemovedPayload{SessionName: "feat-a"}, gotA)
	assert.Equal(t, SessionRemovedPayload{SessionName: "feat-a"}, gotB)
}

func TestBus_PublishIsIsolatedPerEventName(t *testing.T) {
	b := New()
	called := false
	b.Subscribe(SessionAdded, func(payload any) { called = true })

	b.Publish(TerminalClosed, "irrelevant")
	assert.False(t, called)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	count := 0
	unsubscribe := b.Subscribe(PtyData, func(payload any) { count++ })

	b.Publish(PtyData, PtyDataPayload{TermID: "t1", Seq: 1})
	unsubscribe()
	b.Publish(PtyData, PtyDataPayload{TermID: "t1", Seq: 2})

	assert.Equal(t, 1, count)
}

func TestBus_ObserverCountReflectsSubscriptions(t *testing.T) {
	b := New()
	assert.Equal(t, 0, b.ObserverCount(ArchiveUpdated))

	unsubscribe := b.Subscribe(ArchiveUpdated, func(any) {})
	assert.Equal(t, 1, b.ObserverCount(ArchiveUpdated))

	unsubscribe()
	assert.Equal(t, 0, b.ObserverCount(ArchiveUpdated))
}

func TestBus_PublishWithNoSubscribersIsANoop(t *testing.T) {
	b := New()
	assert.NotPanics(t, func() {
		b.Publish(SessionsRefreshed, nil)
	})
}
