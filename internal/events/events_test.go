package events_test

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-wipe/internal/events"
)

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) Emit(name string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (r *recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func TestSinkFunc(t *testing.T) {
	var gotName string
	var gotPayload any
	sink := events.SinkFunc(func(name string, payload any) {
		gotName, gotPayload = name, payload
	})

	sink.Emit(events.EventSchemaWiped, events.SchemaWiped{Count: 2})
	assert.Equal(t, "db:schema-wiped", gotName)
	assert.Equal(t, 2, gotPayload.(events.SchemaWiped).Count)
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { events.Nop.Emit(events.EventQuery, nil) })
}

func TestGuard_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	sink := events.Guard(events.SinkFunc(func(string, any) { panic("boom") }), log)
	assert.NotPanics(t, func() { sink.Emit(events.EventQuery, nil) })
	assert.Contains(t, buf.String(), "event sink panicked")
	assert.Contains(t, buf.String(), "db:query")
}

func TestGuard_NilSink(t *testing.T) {
	sink := events.Guard(nil, zerolog.Nop())
	assert.NotPanics(t, func() { sink.Emit(events.EventQuery, nil) })
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	sink := events.Logger(zerolog.New(&buf))

	sink.Emit(events.EventTableTruncated, events.TableTruncated{Table: "users"})
	assert.Contains(t, buf.String(), `"event":"db:table-truncated"`)
	assert.Contains(t, buf.String(), `"table":"users"`)
}

func TestAsync_DeliversInOrder(t *testing.T) {
	rec := &recorder{}
	a := events.NewAsync(rec, 8, zerolog.Nop())

	a.Emit(events.EventConnect, nil)
	a.Emit(events.EventSchemaWiped, nil)
	a.Emit(events.EventDisconnect, nil)
	a.Close()

	assert.Equal(t, []string{"db:connect", "db:schema-wiped", "db:disconnect"}, rec.Names())
	assert.Zero(t, a.Dropped())
}

func TestAsync_DropsWhenFull(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	rec := &recorder{}

	var once sync.Once
	blocking := events.SinkFunc(func(name string, payload any) {
		once.Do(func() {
			close(started)
			<-release
		})
		rec.Emit(name, payload)
	})

	a := events.NewAsync(blocking, 1, zerolog.Nop())

	a.Emit("first", nil)
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first event was not picked up")
	}

	a.Emit("second", nil) // buffered
	a.Emit("third", nil)  // dropped, Emit must not block

	assert.Equal(t, uint64(1), a.Dropped())

	close(release)
	a.Close()
	assert.Equal(t, []string{"first", "second"}, rec.Names())
}

func TestAsync_PanicDoesNotStopDelivery(t *testing.T) {
	rec := &recorder{}
	sink := events.SinkFunc(func(name string, payload any) {
		if name == "bad" {
			panic("sink failure")
		}
		rec.Emit(name, payload)
	})

	a := events.NewAsync(sink, 4, zerolog.Nop())
	a.Emit("bad", nil)
	a.Emit("good", nil)
	a.Close()

	assert.Equal(t, []string{"good"}, rec.Names())
}

func TestAsync_CloseTwiceAndEmitAfterClose(t *testing.T) {
	rec := &recorder{}
	a := events.NewAsync(rec, 0, zerolog.Nop())

	a.Close()
	require.NotPanics(t, func() { a.Close() })
	require.NotPanics(t, func() { a.Emit("late", nil) })
	assert.Empty(t, rec.Names())
}
