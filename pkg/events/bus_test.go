package events

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
)

func TestBusPublishSubscribeRoundTrip(t *testing.T) {
	bus := NewBus()
	t.Cleanup(func() { bus.Close() })

	messages, err := bus.Subscribe(context.Background())
	assert.NoError(t, err)

	sent := BaseEvent{
		Type: TypeStateChanged,
		Data: map[string]interface{}{
			"from": "IDLE",
			"to":   "AWAITING_PROPOSALS",
		},
		OccurredAt: time.Now().UTC(),
	}
	assert.NoError(t, bus.Publish(context.Background(), sent))

	select {
	case msg := <-messages:
		env, err := Decode(msg)
		assert.NoError(t, err)
		assert.Equal(t, TypeStateChanged, env.Type)
		assert.Equal(t, "IDLE", env.Data["from"])
		assert.Equal(t, "AWAITING_PROPOSALS", env.Data["to"])
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestBusPublishDoesNotBlockWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	t.Cleanup(func() { bus.Close() })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_ = bus.Publish(context.Background(), BaseEvent{
				Type:       TypeNoteSaved,
				Data:       map[string]interface{}{"i": i},
				OccurredAt: time.Now().UTC(),
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked with no subscribers")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	msg := message.NewMessage(watermill.NewUUID(), []byte("not json"))
	_, err := Decode(msg)
	assert.Error(t, err)
}
