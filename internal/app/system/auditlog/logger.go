// Package auditlog records security-relevant events.
//
// Events go to the append-only Mongo collection and are mirrored to
// zap. Writes are best-effort by design: when the primary mutation has
// already committed, a failed audit write degrades observability, not
// correctness, so it is logged as a warning instead of failing the
// caller's operation. This is a deliberate availability-over-
// completeness trade-off; strengthening it to a two-phase commit would
// change the latency profile of every mutating call.
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/caseroom/internal/app/store/audit"
	"go.uber.org/zap"
)

// Provenance carries the network origin and client string of the
// request that triggered an event.
type Provenance struct {
	IP        string
	UserAgent string
}

// FromRequest extracts provenance from an HTTP request, preferring
// forwarded headers set by reverse proxies.
func FromRequest(r *http.Request) Provenance {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	return Provenance{IP: ip, UserAgent: r.UserAgent()}
}

// Logger writes audit entries to the store and mirrors them to zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
}

// New creates an audit Logger.
func New(store *audit.Store, zapLog *zap.Logger) *Logger {
	return &Logger{store: store, zapLog: zapLog}
}

// Record appends one audit entry. A nil Logger is a no-op so tests can
// skip auditing. Store failures are logged, never propagated.
func (l *Logger) Record(ctx context.Context, entry audit.Entry) {
	if l == nil {
		return
	}

	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("action", entry.Action),
		zap.String("object_type", entry.ObjectType),
		zap.String("object_id", entry.ObjectID),
		zap.String("ip", entry.IP),
	}
	if entry.ActorID != nil {
		fields = append(fields, zap.String("actor_id", entry.ActorID.Hex()))
	}
	if entry.RoomID != nil {
		fields = append(fields, zap.String("room_id", entry.RoomID.Hex()))
	}
	for k, v := range entry.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	l.zapLog.Info("audit event", fields...)

	if err := l.store.Append(ctx, entry); err != nil {
		l.zapLog.Warn("failed to store audit entry",
			zap.Error(err),
			zap.String("action", entry.Action),
		)
	}
}
