// Package auditlog writes the ErrorLogEntry audit trail. Entries are
// write-only: nothing in the service reads them back.
package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/pkg/logger"
)

// Sink accepts audit entries
type Sink interface {
	Write(ctx context.Context, entry contracts.ErrorLogEntry) error
}

// execer is satisfied by *pgxpool.Pool and pgxmock
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink inserts entries into the logs table
type PostgresSink struct {
	db    execer
	newID func() uuid.UUID
}

// NewPostgresSink creates a sink over a pgx pool
func NewPostgresSink(db execer) *PostgresSink {
	return &PostgresSink{db: db, newID: uuid.New}
}

// Write implements Sink
func (s *PostgresSink) Write(ctx context.Context, entry contracts.ErrorLogEntry) error {
	details := entry.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal details: %w", err)
	}

	query := `
		INSERT INTO logs (id, timestamp, type, message, details)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.Exec(ctx, query, s.newID(), entry.Timestamp, entry.Category, entry.Message, detailsJSON); err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}

	return nil
}

// LoggerSink writes entries to the structured logger
type LoggerSink struct {
	logger *logger.Logger
}

// NewLoggerSink creates a sink over log
func NewLoggerSink(log *logger.Logger) *LoggerSink {
	return &LoggerSink{logger: log.WithComponent("auditlog")}
}

// Write implements Sink
func (s *LoggerSink) Write(_ context.Context, entry contracts.ErrorLogEntry) error {
	s.logger.WithFields(entry.Details).
		WithField("category", entry.Category).
		Warn(entry.Message)
	return nil
}

type multiSink []Sink

// Multi fans an entry out to every sink. All sinks are attempted.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Write(ctx context.Context, entry contracts.ErrorLogEntry) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder stamps and emits entries. A failed write is logged, never returned.
// ⭐ SSOT: 감사 로그 기록은 여기서만
type Recorder struct {
	sink   Sink
	logger *logger.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder. A nil sink only logs.
func NewRecorder(sink Sink, log *logger.Logger) *Recorder {
	if sink == nil {
		sink = NewLoggerSink(log)
	}
	return &Recorder{
		sink:   sink,
		logger: log.WithComponent("auditlog"),
		now:    time.Now,
	}
}

// Record writes one entry
func (r *Recorder) Record(ctx context.Context, category, message string, details map[string]interface{}) {
	if r == nil {
		return
	}
	if details == nil {
		details = map[string]interface{}{}
	}

	entry := contracts.ErrorLogEntry{
		Timestamp: r.now().UTC(),
		Category:  category,
		Message:   message,
		Details:   details,
	}

	// an audit write must outlive a cancelled request
	if err := r.sink.Write(context.WithoutCancel(ctx), entry); err != nil {
		r.logger.WithError(err).WithField("category", category).Error("failed to write audit entry")
	}
}
