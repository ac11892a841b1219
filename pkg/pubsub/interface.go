package pubsub

import "context"

// Message is one payload received on a channel
type Message struct {
	Channel string
	Payload string
}

// Publisher sends payloads to a channel
type Publisher interface {
	Publish(ctx context.Context, channel string, message string) error
	Close() error
}

// Subscriber delivers payloads of the subscribed channels. The returned
// channel is closed when the subscription ends.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) (<-chan Message, error)
	Close() error
}

// PubSub combines Publisher and Subscriber
type PubSub interface {
	Publisher
	Subscriber
}
