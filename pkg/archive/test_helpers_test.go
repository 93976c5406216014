package archive

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/illmade-knight/go-sentiment-flow/pkg/messagepipeline"
)

// --- Mock GCS Client Components ---

// mockGCSWriter is a mock GCSWriter that writes to an in-memory buffer.
type mockGCSWriter struct {
	buf    bytes.Buffer
	closed bool
	// failWrite makes every Write return an error, simulating a dead link.
	failWrite bool
}

func (m *mockGCSWriter) Write(p []byte) (n int, err error) {
	if m.closed {
		return 0, errors.New("write on closed writer")
	}
	if m.failWrite {
		return 0, errors.New("simulated write failure")
	}
	return m.buf.Write(p)
}

func (m *mockGCSWriter) Close() error {
	if m.closed {
		return errors.New("already closed")
	}
	m.closed = true
	return nil
}

// mockGCSObjectHandle is a mock GCSObjectHandle.
type mockGCSObjectHandle struct {
	writer *mockGCSWriter
}

func (m *mockGCSObjectHandle) NewWriter(_ context.Context) GCSWriter {
	if m.writer == nil {
		m.writer = &mockGCSWriter{}
	}
	return m.writer
}

// mockGCSBucketHandle is a mock GCSBucketHandle that stores created objects in a map.
type mockGCSBucketHandle struct {
	sync.Mutex
	objects   map[string]*mockGCSObjectHandle
	failWrite bool
}

func (m *mockGCSBucketHandle) Object(name string) GCSObjectHandle {
	m.Lock()
	defer m.Unlock()
	if m.objects == nil {
		m.objects = make(map[string]*mockGCSObjectHandle)
	}
	if _, ok := m.objects[name]; !ok {
		m.objects[name] = &mockGCSObjectHandle{writer: &mockGCSWriter{failWrite: m.failWrite}}
	}
	return m.objects[name]
}

// objectNames returns the names of all objects created on this bucket.
func (m *mockGCSBucketHandle) objectNames() []string {
	m.Lock()
	defer m.Unlock()
	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	return names
}

// mockGCSClient is a mock GCSClient.
type mockGCSClient struct {
	bucket *mockGCSBucketHandle
}

func newMockGCSClient() *mockGCSClient {
	return &mockGCSClient{
		bucket: &mockGCSBucketHandle{},
	}
}

func (m *mockGCSClient) Bucket(_ string) GCSBucketHandle {
	return m.bucket
}

// mockConsumer is a local mock implementation of messagepipeline.MessageConsumer.
type mockConsumer struct {
	msgChan  chan messagepipeline.Message
	doneChan chan struct{}
	stopOnce sync.Once
}

func newMockConsumer(bufferSize int) *mockConsumer {
	return &mockConsumer{
		msgChan:  make(chan messagepipeline.Message, bufferSize),
		doneChan: make(chan struct{}),
	}
}

func (m *mockConsumer) Messages() <-chan messagepipeline.Message { return m.msgChan }

func (m *mockConsumer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = m.Stop(context.Background())
	}()
	return nil
}

func (m *mockConsumer) Stop(_ context.Context) error {
	m.stopOnce.Do(func() {
		close(m.msgChan)
		close(m.doneChan)
	})
	return nil
}

func (m *mockConsumer) Done() <-chan struct{} { return m.doneChan }

func (m *mockConsumer) Push(msg messagepipeline.Message) {
	select {
	case m.msgChan <- msg:
	default:
	}
}
