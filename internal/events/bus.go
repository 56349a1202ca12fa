// Package events fans session lifecycle events out to in-process consumers
// (websocket push, result archiving).
package events

import (
	"context"
	"encoding/json"
	"log"

	"examsim/internal/model"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	TopicProgress  = "simulation.progress"
	TopicFinalized = "simulation.finalized"
)

// Publisher is what a progress store needs to announce state changes
type Publisher interface {
	Publish(ctx context.Context, event *model.SessionEvent)
}

// Bus is a watermill go-channel pub/sub carrying SessionEvents
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates an in-process event bus. Publish returns once every
// subscriber has handled the event, so events arrive in publish order.
// Handlers must not publish on the bus themselves.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer:            256,
				BlockPublishUntilSubscriberAck: true,
			},
			watermill.NewStdLogger(false, false),
		),
	}
}

// TopicFor routes an event type to its topic
func TopicFor(t model.EventType) string {
	if t == model.EventFinalized {
		return TopicFinalized
	}
	return TopicProgress
}

// Publish is best-effort; failures are logged
func (b *Bus) Publish(ctx context.Context, event *model.SessionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Events] ERROR: marshal %s event: %v", event.Type, err)
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(TopicFor(event.Type), msg); err != nil {
		log.Printf("[Events] ERROR: publish %s event for session %d: %v", event.Type, event.SessionID, err)
	}
}

// Subscribe delivers decoded events of one topic to handle until ctx is done.
// Messages are acked after handle returns.
func (b *Bus) Subscribe(ctx context.Context, topic string, handle func(context.Context, *model.SessionEvent)) error {
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			var event model.SessionEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				log.Printf("[Events] WARN: dropping undecodable message %s: %v", msg.UUID, err)
				msg.Ack()
				continue
			}
			handle(ctx, &event)
			msg.Ack()
		}
	}()
	return nil
}

// Close shuts down all subscriptions
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Discard drops every event; used where no consumers are wired
type Discard struct{}

func (Discard) Publish(context.Context, *model.SessionEvent) {}
