package repository

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"

	sdk "github.com/segmentio/kafka-go"

	mapper "github.com/dbirdge/btcrelay/internal/infrastructure/messaging/kafka/repositories/mapper"
	shared "github.com/dbirdge/btcrelay/pkg/shared/domain/entities"
)

// MessageWriter is the subset of kafka.Writer the producer worker
// uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...sdk.Message) error
	Close() error
}

// StartProducer drains bucket, wrapping each entity in the wire
// envelope and writing it to the topic. Serialization and write
// failures go to errors; the worker keeps running.
func StartProducer[T shared.Entity](
	ctx context.Context,
	wg *sync.WaitGroup,
	writer MessageWriter,
	bucket <-chan *T,
	errors chan<- error,
) {
	defer wg.Done()
	defer close(errors)

	for {
		select {
		case <-ctx.Done():
			return
		case request, ok := <-bucket:
			if !ok {
				return
			}

			model, err := mapper.ToMessage(request)
			if err != nil {
				errors <- err
				continue
			}

			serialized, err := json.Marshal(model)
			if err != nil {
				errors <- err
				continue
			}
			err = writer.WriteMessages(ctx, sdk.Message{
				Key:   []byte(model.Key),
				Value: serialized,
			})
			if err != nil {
				errors <- err
				continue
			}
		}
	}
}
