package audit

import (
	"context"
	"fmt"
	"log/slog"

	"vodex/internal/metrics"
	"vodex/internal/queue"
	"vodex/internal/sl"
)

// Writer stores one event. *Repository satisfies it.
type Writer interface {
	Insert(ctx context.Context, evt queue.Event) error
}

// Consume drains q into w until ctx is cancelled. A nil w only logs events.
// Insert failures are logged and counted; the loop keeps going.
func Consume(ctx context.Context, log *slog.Logger, q queue.Consumer, w Writer) error {
	const op = "audit.Consume"

	events, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for evt := range events {
		attrs := []any{
			slog.String("event_id", evt.ID),
			slog.String("kind", evt.Kind),
			slog.String("collection", evt.Collection),
			slog.String("record_id", evt.RecordID),
		}
		if w == nil {
			log.Debug("record event", attrs...)
			metrics.EventsAudited.WithLabelValues("skipped").Inc()
			continue
		}
		if err := w.Insert(ctx, evt); err != nil {
			log.Error("audit insert failed", append(attrs, sl.Err(err))...)
			metrics.EventsAudited.WithLabelValues("error").Inc()
			continue
		}
		log.Debug("record event audited", attrs...)
		metrics.EventsAudited.WithLabelValues("ok").Inc()
	}
	return nil
}
