// Package events defines the notifications db-wipe emits and the sinks that
// receive them. Emitting is fire-and-forget: a sink cannot fail or block the
// operation that emitted.
package events

import (
	"time"

	"github.com/rs/zerolog"
)

// Event names.
const (
	EventQuery          = "db:query"
	EventSchemaWiped    = "db:schema-wiped"
	EventTableTruncated = "db:table-truncated"
	EventConnect        = "db:connect"
	EventDisconnect     = "db:disconnect"
)

// Sink receives named events.
type Sink interface {
	Emit(name string, payload any)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(name string, payload any)

func (f SinkFunc) Emit(name string, payload any) { f(name, payload) }

// Nop discards every event.
var Nop Sink = SinkFunc(func(string, any) {})

// Query is the payload of EventQuery, one per executed statement.
type Query struct {
	Connection string   `json:"connection"`
	SQL        string   `json:"sql"`
	Objects    []string `json:"objects,omitempty"`
}

// SchemaWiped is the payload of EventSchemaWiped.
type SchemaWiped struct {
	ID         string        `json:"id"`
	Connection string        `json:"connection"`
	Operation  string        `json:"operation"` // dropAllTables, dropAllViews, dropAllTypes
	Schemas    []string      `json:"schemas"`
	Objects    []string      `json:"objects"`
	Count      int           `json:"count"`
	Duration   time.Duration `json:"duration"`
}

// TableTruncated is the payload of EventTableTruncated.
type TableTruncated struct {
	ID         string        `json:"id"`
	Connection string        `json:"connection"`
	Table      string        `json:"table"`
	Cascade    bool          `json:"cascade"`
	Duration   time.Duration `json:"duration"`
}

// Lifecycle is the payload of EventConnect and EventDisconnect.
type Lifecycle struct {
	Connection string `json:"connection"`
	Driver     string `json:"driver"`
	Vendor     string `json:"vendor,omitempty"`
}

// Guard wraps next so that a panicking sink is logged instead of crashing
// the caller.
func Guard(next Sink, log zerolog.Logger) Sink {
	if next == nil {
		return Nop
	}
	return SinkFunc(func(name string, payload any) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("event", name).Msg("event sink panicked")
			}
		}()
		next.Emit(name, payload)
	})
}

// Logger returns a sink writing each event as a structured log line.
func Logger(log zerolog.Logger) Sink {
	return SinkFunc(func(name string, payload any) {
		log.Info().Str("event", name).Interface("payload", payload).Msg("event")
	})
}
