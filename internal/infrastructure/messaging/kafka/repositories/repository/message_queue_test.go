package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	sdk "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	domainents "github.com/dbirdge/btcrelay/internal/domain/entities"
	mapper "github.com/dbirdge/btcrelay/internal/infrastructure/messaging/kafka/repositories/mapper"
	models "github.com/dbirdge/btcrelay/internal/infrastructure/messaging/kafka/repositories/models"
)

type fakeWriter struct {
	mu       sync.Mutex
	written  []sdk.Message
	failures int
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...sdk.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failures > 0 {
		w.failures--
		return errors.New("broker unavailable")
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) messages() []sdk.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]sdk.Message(nil), w.written...)
}

type fakeReader struct {
	msgs    chan sdk.Message
	mu      sync.Mutex
	commits []sdk.Message
	closed  bool
}

func newFakeReader() *fakeReader {
	return &fakeReader{msgs: make(chan sdk.Message, 16)}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (sdk.Message, error) {
	select {
	case <-ctx.Done():
		return sdk.Message{}, ctx.Err()
	case m := <-r.msgs:
		return m, nil
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...sdk.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commits = append(r.commits, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committed() []sdk.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sdk.Message(nil), r.commits...)
}

func testAnnouncement(n byte) domainents.HeaderAnnouncement {
	return domainents.HeaderAnnouncement{
		Header: domainents.HexHeader("aa"),
		Hash:   domainents.HexHash(string([]byte{'0' + n})),
		Height: uint32(100 + n),
	}
}

func envelope(t *testing.T, ann domainents.HeaderAnnouncement) sdk.Message {
	t.Helper()
	model, err := mapper.ToMessage(&ann)
	require.NoError(t, err)
	serialized, err := json.Marshal(model)
	require.NoError(t, err)
	return sdk.Message{Key: []byte(model.Key), Value: serialized}
}

func TestKafkaMessageQueue_ProducesEnvelopes(t *testing.T) {
	reader := newFakeReader()
	writer := &fakeWriter{}
	mq := newKafkaMessageQueue[domainents.HeaderAnnouncement](reader, writer, 16, 16)
	defer mq.Close()

	ann := testAnnouncement(1)

	// An entity of the wrong type is skipped by the bridge.
	mq.ToProduceBuffered() <- domainents.RelayEvent{Kind: domainents.RelayEventExtended}
	mq.ToProduceBuffered() <- ann

	require.Eventually(t, func() bool {
		return len(writer.messages()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	written := writer.messages()[0]
	model := new(models.Message)
	require.NoError(t, json.Unmarshal(written.Value, model))
	require.Equal(t, model.Key, string(written.Key))

	decoded, err := mapper.FromMessage[domainents.HeaderAnnouncement](model)
	require.NoError(t, err)
	require.Equal(t, ann, *decoded)
}

func TestKafkaMessageQueue_WriteFailureIsSurfaced(t *testing.T) {
	reader := newFakeReader()
	writer := &fakeWriter{failures: 1}
	mq := newKafkaMessageQueue[domainents.HeaderAnnouncement](reader, writer, 16, 16)
	defer mq.Close()

	mq.ToProduceBuffered() <- testAnnouncement(1)
	mq.ToProduceBuffered() <- testAnnouncement(2)

	select {
	case err := <-mq.Errors():
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for write error")
	}

	// The worker keeps running: the second entity still goes out.
	require.Eventually(t, func() bool {
		return len(writer.messages()) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestKafkaMessageQueue_ConsumesAndCommitsAfterDelivery(t *testing.T) {
	reader := newFakeReader()
	writer := &fakeWriter{}
	mq := newKafkaMessageQueue[domainents.HeaderAnnouncement](reader, writer, 16, 16)
	defer mq.Close()

	ann := testAnnouncement(1)
	msg := envelope(t, ann)
	reader.msgs <- msg

	select {
	case e := <-mq.ToConsumeBuffered():
		require.Equal(t, ann, e.(domainents.HeaderAnnouncement))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for consumed entity")
	}

	require.Eventually(t, func() bool {
		commits := reader.committed()
		return len(commits) == 1 && string(commits[0].Value) == string(msg.Value)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestKafkaMessageQueue_MalformedMessageIsSurfaced(t *testing.T) {
	reader := newFakeReader()
	writer := &fakeWriter{}
	mq := newKafkaMessageQueue[domainents.HeaderAnnouncement](reader, writer, 16, 16)
	defer mq.Close()

	reader.msgs <- sdk.Message{Value: []byte("{")}

	select {
	case err := <-mq.Errors():
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for decode error")
	}
	require.Empty(t, reader.committed(), "a message that never decoded must not be committed")

	// A well-formed message afterwards still comes through.
	ann := testAnnouncement(2)
	reader.msgs <- envelope(t, ann)
	select {
	case e := <-mq.ToConsumeBuffered():
		require.Equal(t, ann, e.(domainents.HeaderAnnouncement))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for consumed entity")
	}
}

func TestKafkaMessageQueue_CloseStopsWorkers(t *testing.T) {
	reader := newFakeReader()
	writer := &fakeWriter{}
	mq := newKafkaMessageQueue[domainents.HeaderAnnouncement](reader, writer, 16, 16)

	reader.msgs <- envelope(t, testAnnouncement(1))
	select {
	case <-mq.ToConsumeBuffered():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for consumed entity")
	}

	done := make(chan struct{})
	go func() {
		mq.Close()
		mq.Close() // idempotent
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	// Consumer channel is closed once workers are down.
	select {
	case _, ok := <-mq.ToConsumeBuffered():
		require.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer channel left open after Close")
	}
	require.True(t, reader.closed)
	require.True(t, writer.closed)
}
