package broker

import "context"

type Message struct {
	Key   []byte
	Value []byte
}

type Producer interface {
	SendMessages(ctx context.Context, msgs ...Message) error
	Close() error
}
