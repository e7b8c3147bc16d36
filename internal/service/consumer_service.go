package service

import (
	"context"

	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/internal/websocket"
	"ai-orchestrator-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// IConsumerService is the outward edge of the session event bus: it drains
// transition events and fans them out to the presentation layer.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	bus *events.Bus
	hub *websocket.Hub
	log logger.ILogger
}

func NewConsumerService(bus *events.Bus, hub *websocket.Hub, log logger.ILogger) IConsumerService {
	return &consumerService{
		bus: bus,
		hub: hub,
		log: log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	env, err := events.Decode(msg)
	if err != nil {
		cs.log.Error("Consumer", "Failed to decode event", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.log.Debug("Consumer", "Session event", map[string]interface{}{
		"type": env.Type,
		"data": env.Data,
	})

	if cs.hub != nil {
		cs.hub.Broadcast(msg.Payload)
	}
	msg.Ack()
}
