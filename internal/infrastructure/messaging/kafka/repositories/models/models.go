package models

import "github.com/google/uuid"

// Message is the wire envelope on the header-feed and relay-event
// topics. Content carries the JSON-serialized domain entity; Key is
// used as the Kafka message key for partitioning and commit tracking.
type Message struct {
	ID      uuid.UUID `json:"id"`
	Content string    `json:"content"`
	Key     string    `json:"key"`
}
