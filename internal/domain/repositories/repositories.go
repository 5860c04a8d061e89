package repositories

import (
	shared "github.com/dbirdge/btcrelay/pkg/shared/domain/entities"
)

type MessageQueueParams interface {
	Get() map[string]any
}

type InitializeMessageQueue func(MessageQueueParams) MessageQueue

type MessageQueueConsumer interface {
	ToConsumeBuffered() <-chan shared.Entity
	Errors() <-chan error
	Close()
}

type MessageQueueProducer interface {
	ToProduceBuffered() chan<- shared.Entity
	Close()
}

type MessageQueue interface {
	MessageQueueProducer
	MessageQueueConsumer
}
