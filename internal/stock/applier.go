package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/events"
	kafkax "github.com/ariefcatur/go-storefront-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/redisx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Applier: consumer side utk restock/koreksi stok dari admin/ERP. Apply-nya
// lewat Ledger.Adjust (CAS), jadi aman jalan bareng reservasi checkout.
type Applier struct {
	Ledger         Ledger
	Redis          *redis.Client
	ProducerOK     *kafkax.Producer // publish stock.adjusted
	ProducerReject *kafkax.Producer // publish stock.adjust.rejected
	ServiceName    string
	Log            *zap.Logger
}

// HandleAdjustRequested dipasang sebagai handler consumer.
func (a *Applier) HandleAdjustRequested(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != events.EventStockAdjustRequested {
		return nil // ignore
	}

	// dedup via Redis (pakai event_id); redis error cuma di-log, apply jalan terus
	dkey := fmt.Sprintf(redisx.KeyDedup, "stockd", env.EventID)
	fresh, err := redisx.MarkOnce(ctx, a.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		a.Log.Warn("dedup mark", zap.Error(err), zap.String("event_id", env.EventID))
	} else if !fresh {
		return nil
	}

	p, err := kafkax.UnwrapPayload[events.StockAdjustRequestedPayload](env.Payload)
	if err != nil {
		return err
	}

	rec, ok, err := a.Ledger.Adjust(ctx, p.ProductID, p.Delta)
	if errors.Is(err, ErrNotFound) {
		a.publishRejected(p, "NOT_FOUND", env.TraceID)
		return nil
	}
	if err != nil {
		return err
	}
	if !ok {
		a.publishRejected(p, "WOULD_GO_NEGATIVE", env.TraceID)
		return nil
	}

	a.publishAdjusted(p, rec, env.TraceID)
	return nil
}

func (a *Applier) publishAdjusted(p events.StockAdjustRequestedPayload, rec Record, trace string) {
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventStockAdjusted,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      a.ServiceName,
		TraceID:       trace,
		CorrelationID: p.ProductID,
		Payload: kafkax.MustMarshal(events.StockAdjustedPayload{
			ProductID: p.ProductID, Delta: p.Delta,
			Available: rec.Available, Version: rec.Version,
		}),
	}
	a.ProducerOK.Publish(events.PartitionKey(p.ProductID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventStockAdjusted)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (a *Applier) publishRejected(p events.StockAdjustRequestedPayload, reason, trace string) {
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventStockAdjustRejected,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      a.ServiceName,
		TraceID:       trace,
		CorrelationID: p.ProductID,
		Payload: kafkax.MustMarshal(events.StockAdjustRejectedPayload{
			ProductID: p.ProductID, Delta: p.Delta, Reason: reason,
		}),
	}
	a.ProducerReject.Publish(events.PartitionKey(p.ProductID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventStockAdjustRejected)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
