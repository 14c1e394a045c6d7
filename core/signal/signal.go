// Package signal publishes engine events (low stock, overdue PMs, status
// changes) to whatever notification layer is listening.
package signal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cmms.GO/core/cache"
)

type Kind string

const (
	LowStock         Kind = "LOW_STOCK"
	PMOverdue        Kind = "PM_OVERDUE"
	PMDueSoon        Kind = "PM_DUE_SOON"
	DowntimeRecorded Kind = "DOWNTIME_RECORDED"
	WOStatusChanged  Kind = "WO_STATUS_CHANGED"
	CycleCountClosed Kind = "CYCLE_COUNT_COMPLETED"
)

type Signal struct {
	ID             string                 `json:"id"`
	Kind           Kind                   `json:"kind"`
	OrganizationID uint                   `json:"organization_id"`
	EntityType     string                 `json:"entity_type"`
	EntityID       uint                   `json:"entity_id"`
	Message        string                 `json:"message"`
	Data           map[string]interface{} `json:"data,omitempty"`
	At             time.Time              `json:"at"`
	// DedupeKey, when set, suppresses repeats within the sink's window.
	DedupeKey string `json:"-"`
}

func New(kind Kind, orgID uint, entityType string, entityID uint, msg string) Signal {
	return Signal{
		ID:             uuid.NewString(),
		Kind:           kind,
		OrganizationID: orgID,
		EntityType:     entityType,
		EntityID:       entityID,
		Message:        msg,
		At:             time.Now().UTC(),
	}
}

func (s Signal) With(key string, v interface{}) Signal {
	if s.Data == nil {
		s.Data = make(map[string]interface{})
	}
	s.Data[key] = v
	return s
}

// Sink consumes signals. Emit must not block the caller for long and never
// fails the operation that produced the signal.
type Sink interface {
	Emit(ctx context.Context, s Signal)
}

// Nop drops everything.
type Nop struct{}

func (Nop) Emit(context.Context, Signal) {}

type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("signal")}
}

func (l *LogSink) Emit(_ context.Context, s Signal) {
	l.log.Info(s.Message,
		zap.String("id", s.ID),
		zap.String("kind", string(s.Kind)),
		zap.Uint("organization_id", s.OrganizationID),
		zap.String("entity_type", s.EntityType),
		zap.Uint("entity_id", s.EntityID),
		zap.Any("data", s.Data),
	)
}

// RedisSink publishes JSON-encoded signals on a pub/sub channel.
type RedisSink struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

func NewRedisSink(client *redis.Client, channel string, log *zap.Logger) *RedisSink {
	return &RedisSink{client: client, channel: channel, log: log}
}

func (r *RedisSink) Emit(ctx context.Context, s Signal) {
	b, err := json.Marshal(s)
	if err != nil {
		r.log.Warn("signal encode failed", zap.Error(err))
		return
	}
	if err := r.client.Publish(ctx, r.channel, b).Err(); err != nil {
		r.log.Warn("signal publish failed", zap.String("kind", string(s.Kind)), zap.Error(err))
	}
}

type Multi []Sink

func (m Multi) Emit(ctx context.Context, s Signal) {
	for _, sink := range m {
		sink.Emit(ctx, s)
	}
}

// Deduped forwards a signal only once per DedupeKey within ttl.
type Deduped struct {
	next  Sink
	cache *cache.Cache
	ttl   time.Duration
}

func NewDeduped(next Sink, c *cache.Cache, ttl time.Duration) *Deduped {
	return &Deduped{next: next, cache: c, ttl: ttl}
}

func (d *Deduped) Emit(ctx context.Context, s Signal) {
	if s.DedupeKey != "" && !d.cache.Add(s.DedupeKey, s.ID, d.ttl) {
		return
	}
	d.next.Emit(ctx, s)
}

// Recorder keeps signals in memory. Used by the status API and tests.
type Recorder struct {
	mu      sync.Mutex
	signals []Signal
	limit   int
}

func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) Emit(_ context.Context, s Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, s)
	if r.limit > 0 && len(r.signals) > r.limit {
		r.signals = r.signals[len(r.signals)-r.limit:]
	}
}

func (r *Recorder) Signals() []Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Signal, len(r.signals))
	copy(out, r.signals)
	return out
}

// OfKind returns recorded signals of one kind.
func (r *Recorder) OfKind(kind Kind) []Signal {
	var out []Signal
	for _, s := range r.Signals() {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// Buffer collects signals raised inside a DB transaction so they are only
// emitted after commit.
type Buffer struct {
	pending []Signal
}

func (b *Buffer) Add(s Signal) {
	b.pending = append(b.pending, s)
}

func (b *Buffer) Flush(ctx context.Context, sink Sink) {
	for _, s := range b.pending {
		sink.Emit(ctx, s)
	}
	b.pending = nil
}

func (b *Buffer) Reset() {
	b.pending = nil
}
