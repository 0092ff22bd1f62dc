package notification

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"zetta/internal/domain/interest"
	"zetta/internal/pkg/metrics"
	"zetta/internal/realtime"
)

const (
	DefaultChannel   = "formation-interests"
	DefaultNamespace = `App\Events\`

	newInterestEvent     = "NewFormationInterest"
	interestUpdatedEvent = "FormationInterestUpdated"
)

type IngestConfig struct {
	Channel   string
	Namespace string
}

// Ingestor holds at most one subscription to the interest channel and feeds
// its events into the store.
type Ingestor struct {
	broadcaster realtime.Broadcaster
	store       *Store
	log         *zap.Logger

	channel      string
	newEvent     string
	updatedEvent string

	mu  sync.Mutex
	sub realtime.Subscription
}

func NewIngestor(b realtime.Broadcaster, store *Store, cfg IngestConfig, log *zap.Logger) *Ingestor {
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	return &Ingestor{
		broadcaster:  b,
		store:        store,
		log:          log,
		channel:      cfg.Channel,
		newEvent:     cfg.Namespace + newInterestEvent,
		updatedEvent: cfg.Namespace + interestUpdatedEvent,
	}
}

// Subscribe is a no-op while a live subscription exists. A transport failure
// leaves the ingestor unsubscribed; there is no automatic retry, the next
// call subscribes again.
func (i *Ingestor) Subscribe(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.liveLocked() {
		return nil
	}
	if i.broadcaster == nil {
		return realtime.ErrNotConnected
	}

	sub, err := i.broadcaster.Subscribe(ctx, i.channel)
	if err != nil {
		i.log.Warn("interest channel subscription failed", zap.String("channel", i.channel), zap.Error(err))
		return err
	}
	sub.On(i.newEvent, i.handleNew)
	sub.On(i.updatedEvent, i.handleUpdated)
	i.sub = sub
	return nil
}

// Unsubscribe detaches both handlers and drops the handle. Safe without a
// subscription.
func (i *Ingestor) Unsubscribe() {
	i.mu.Lock()
	sub := i.sub
	i.sub = nil
	i.mu.Unlock()

	if sub == nil {
		return
	}
	sub.Off(i.newEvent)
	sub.Off(i.updatedEvent)
	if err := sub.Close(); err != nil {
		i.log.Warn("closing interest subscription", zap.String("channel", i.channel), zap.Error(err))
	}
}

func (i *Ingestor) Subscribed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.liveLocked()
}

// liveLocked drops a handle whose transport has gone away.
func (i *Ingestor) liveLocked() bool {
	if i.sub == nil {
		return false
	}
	select {
	case <-i.sub.Done():
		i.log.Warn("interest subscription lost", zap.String("channel", i.channel))
		_ = i.sub.Close()
		i.sub = nil
		return false
	default:
		return true
	}
}

func (i *Ingestor) handleNew(event string, data json.RawMessage) {
	r, ok := i.decode(event, data)
	if !ok {
		return
	}
	if !i.store.Arrive(r) {
		i.log.Debug("arrival not counted", zap.String("interest_id", r.ID))
	}
}

func (i *Ingestor) handleUpdated(event string, data json.RawMessage) {
	r, ok := i.decode(event, data)
	if !ok {
		return
	}
	i.store.Update(r)
}

func (i *Ingestor) decode(event string, data json.RawMessage) (interest.Record, bool) {
	metrics.BroadcastEventsReceived.WithLabelValues(event).Inc()
	r, err := interest.Normalize(data)
	if err != nil {
		metrics.BroadcastEventsRejected.WithLabelValues(event).Inc()
		i.log.Warn("dropping malformed interest event", zap.String("event", event), zap.Error(err))
		return interest.Record{}, false
	}
	return r, true
}
