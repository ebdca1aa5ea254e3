package eventpubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	Value int
}

func TestBus(t *testing.T) {
	t.Run("publish is delivered before it returns", func(t *testing.T) {
		bus := NewBus()
		var received []int

		require.NoError(t, bus.Subscribe("test.topic", func(ev testEvent) {
			received = append(received, ev.Value)
		}))

		bus.Publish("test.topic", testEvent{Value: 1})
		bus.Publish("test.topic", testEvent{Value: 2})
		bus.Publish("other.topic", testEvent{Value: 3})

		assert.Equal(t, []int{1, 2}, received)
	})

	t.Run("subscribe rejects non functions", func(t *testing.T) {
		bus := NewBus()
		assert.Error(t, bus.Subscribe("test.topic", 42))
	})
}
