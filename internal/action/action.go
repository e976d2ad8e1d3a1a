// Package action records user-visible business events (crawl started,
// export produced) on a fire-and-forget sink. Logging failures never
// affect the operation that emitted the event.
package action

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Event is one business action worth auditing.
type Event struct {
	Name      string         `json:"name"`
	UserID    int64          `json:"user_id,omitempty"`
	DatasetID int64          `json:"dataset_id,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	At        time.Time      `json:"at"`
}

// Logger is a fire-and-forget event sink.
type Logger interface {
	Log(ctx context.Context, ev Event)
}

// Nop discards every event.
type Nop struct{}

// Log implements Logger.
func (Nop) Log(context.Context, Event) {}

// ZapSink writes events as structured log lines.
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink builds a sink on the given logger.
func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapSink{log: log}
}

// Log implements Logger.
func (s *ZapSink) Log(_ context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	s.log.Info("action",
		zap.String("action", ev.Name),
		zap.Int64("user_id", ev.UserID),
		zap.Int64("dataset_id", ev.DatasetID),
		zap.Any("detail", ev.Detail),
		zap.Time("at", ev.At),
	)
}
