package repository

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"

	sdk "github.com/segmentio/kafka-go"

	mapper "github.com/dbirdge/btcrelay/internal/infrastructure/messaging/kafka/repositories/mapper"
	models "github.com/dbirdge/btcrelay/internal/infrastructure/messaging/kafka/repositories/models"
	shared "github.com/dbirdge/btcrelay/pkg/shared/domain/entities"
)

// MessageReader is the subset of kafka.Reader the consumer worker
// uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (sdk.Message, error)
	CommitMessages(ctx context.Context, msgs ...sdk.Message) error
	Close() error
}

// StartConsumer fetches messages from the topic, decodes the envelope
// into entities and delivers them to bucket. Offsets are committed
// only after delivery, so an entity is never lost between fetch and
// hand-off (at-least-once).
func StartConsumer[T shared.Entity](
	ctx context.Context,
	wg *sync.WaitGroup,
	reader MessageReader,
	bucket chan<- *T,
	errors chan<- error,
) {
	defer wg.Done()
	defer close(bucket)
	defer close(errors)

	for {
		data, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			errors <- err
			continue
		}

		model := new(models.Message)
		if err := json.Unmarshal(data.Value, model); err != nil {
			errors <- err
			continue
		}

		message, err := mapper.FromMessage[T](model)
		if err != nil {
			errors <- err
			continue
		}

		select {
		case <-ctx.Done():
			return
		case bucket <- message:
		}

		if err := reader.CommitMessages(ctx, data); err != nil {
			if ctx.Err() != nil {
				return
			}
			errors <- err
		}
	}
}
