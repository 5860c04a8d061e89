package repository

import (
	"context"
	"errors"
	"sync"

	sdk "github.com/segmentio/kafka-go"

	domainrepos "github.com/dbirdge/btcrelay/internal/domain/repositories"
	shared "github.com/dbirdge/btcrelay/pkg/shared/domain/entities"
)

// KafkaMessageQueueParams implements repositories.MessageQueueParams
// and provides configuration for initializing a KafkaMessageQueue.
type KafkaMessageQueueParams struct {
	// Required
	Brokers []string
	Topic   string

	// Optional
	GroupID          string
	ToProduceBufSize int
	ToConsumeBufSize int
}

func (p KafkaMessageQueueParams) Get() map[string]any {
	return map[string]any{
		"brokers":         p.Brokers,
		"topic":           p.Topic,
		"groupId":         p.GroupID,
		"toProduceBuffer": p.ToProduceBufSize,
		"toConsumeBuffer": p.ToConsumeBufSize,
	}
}

// ValidateKafkaParams ensures required params are set.
func ValidateKafkaParams(p KafkaMessageQueueParams) error {
	if len(p.Brokers) == 0 {
		return errors.New("kafka brokers are required")
	}
	if p.Topic == "" {
		return errors.New("kafka topic is required")
	}
	return nil
}

// KafkaMessageQueue implements the domain MessageQueue interfaces for
// one topic carrying entities of type T, bridging to the
// StartProducer/StartConsumer workers.
type KafkaMessageQueue[T shared.Entity] struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup

	reader MessageReader
	writer MessageWriter

	// External facing channels (Entity based)
	toProduce chan shared.Entity
	toConsume chan shared.Entity

	// Internal bridges (typed pointer channels)
	prodBucket chan *T
	consBucket chan *T
	errorsProd chan error
	errorsCons chan error
	errs       chan error

	closeOnce sync.Once
}

// InitializeKafkaMessageQueue creates a KafkaMessageQueue for the
// entity type T using params.
func InitializeKafkaMessageQueue[T shared.Entity](params domainrepos.MessageQueueParams) domainrepos.MessageQueue {
	typed, _ := params.(KafkaMessageQueueParams)

	// defaults
	if typed.ToProduceBufSize <= 0 {
		typed.ToProduceBufSize = 1024
	}
	if typed.ToConsumeBufSize <= 0 {
		typed.ToConsumeBufSize = 1024
	}

	writer := &sdk.Writer{
		Addr:         sdk.TCP(typed.Brokers...),
		Topic:        typed.Topic,
		RequiredAcks: sdk.RequireAll,
		Balancer:     &sdk.LeastBytes{},
	}

	reader := sdk.NewReader(sdk.ReaderConfig{
		Brokers: typed.Brokers,
		Topic:   typed.Topic,
		GroupID: typed.GroupID,
	})

	return newKafkaMessageQueue[T](reader, writer, typed.ToProduceBufSize, typed.ToConsumeBufSize)
}

func newKafkaMessageQueue[T shared.Entity](reader MessageReader, writer MessageWriter, produceBuf, consumeBuf int) *KafkaMessageQueue[T] {
	ctx, cancel := context.WithCancel(context.Background())

	mq := &KafkaMessageQueue[T]{
		ctx:        ctx,
		cancel:     cancel,
		wg:         &sync.WaitGroup{},
		reader:     reader,
		writer:     writer,
		toProduce:  make(chan shared.Entity, produceBuf),
		toConsume:  make(chan shared.Entity, consumeBuf),
		prodBucket: make(chan *T, produceBuf),
		consBucket: make(chan *T, consumeBuf),
		errorsProd: make(chan error, 16),
		errorsCons: make(chan error, 16),
		errs:       make(chan error, 32),
	}

	mq.startWorkers()
	return mq
}

func (q *KafkaMessageQueue[T]) startWorkers() {
	q.wg.Add(1)
	go StartProducer(q.ctx, q.wg, q.writer, q.prodBucket, q.errorsProd)

	q.wg.Add(1)
	go StartConsumer(q.ctx, q.wg, q.reader, q.consBucket, q.errorsCons)

	// Bridge external toProduce -> typed prodBucket
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer close(q.prodBucket)
		for {
			select {
			case <-q.ctx.Done():
				return
			case e, ok := <-q.toProduce:
				if !ok {
					return
				}
				entity, ok := e.(T)
				if !ok {
					continue
				}
				select {
				case <-q.ctx.Done():
					return
				case q.prodBucket <- &entity:
				}
			}
		}
	}()

	// Bridge typed consBucket -> external toConsume
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer close(q.toConsume)
		for {
			select {
			case <-q.ctx.Done():
				return
			case ptr, ok := <-q.consBucket:
				if !ok {
					return
				}
				if ptr == nil {
					continue
				}
				select {
				case <-q.ctx.Done():
					return
				case q.toConsume <- *ptr:
				}
			}
		}
	}()

	// Merge worker errors; drop when the external channel is full so
	// workers never block on error reporting.
	forward := func(in <-chan error) {
		defer q.wg.Done()
		for err := range in {
			select {
			case q.errs <- err:
			default:
			}
		}
	}
	q.wg.Add(2)
	go forward(q.errorsProd)
	go forward(q.errorsCons)
}

// ToConsumeBuffered exposes the consumer channel of entities.
func (q *KafkaMessageQueue[T]) ToConsumeBuffered() <-chan shared.Entity {
	return q.toConsume
}

// ToProduceBuffered exposes the producer channel of entities.
func (q *KafkaMessageQueue[T]) ToProduceBuffered() chan<- shared.Entity {
	return q.toProduce
}

// Errors exposes merged producer and consumer worker errors.
func (q *KafkaMessageQueue[T]) Errors() <-chan error {
	return q.errs
}

// Close stops workers and closes resources.
func (q *KafkaMessageQueue[T]) Close() {
	q.closeOnce.Do(func() {
		q.cancel()
		_ = q.reader.Close()
		_ = q.writer.Close()
		q.wg.Wait()
	})
}

// Compile-time conformance checks.
var (
	_ domainrepos.MessageQueueConsumer = (*KafkaMessageQueue[shared.Entity])(nil)
	_ domainrepos.MessageQueueProducer = (*KafkaMessageQueue[shared.Entity])(nil)
	_ domainrepos.MessageQueue         = (*KafkaMessageQueue[shared.Entity])(nil)
)
