package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/shoplens/searchcore/internal/core/domain"
)

// Log publishes pipeline outcomes to a NATS subject for the downstream
// query-log consumer. Publishing is fire-and-forget: the search result never
// depends on the log store being up.
type Log struct {
	conn    *nats.Conn
	subject string
}

type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

func New(url, subject string) (*Log, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Log, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}

	conn, err := nats.Connect(
		url,
		nats.Name("searchcore"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Log{conn: conn, subject: subject}, nil
}

func (l *Log) Close() {
	if l.conn != nil {
		l.conn.Close()
	}
}

type outcomeRecord struct {
	Timestamp       time.Time              `json:"timestamp"`
	QueryText       string                 `json:"query_text"`
	UserID          string                 `json:"user_id,omitempty"`
	Filter          domain.FilterPredicate `json:"filter"`
	Status          domain.Status          `json:"status"`
	DegradedReasons []string               `json:"degraded_reasons,omitempty"`
	ResultCount     int                    `json:"result_count"`
	Results         []domain.RankedResult  `json:"results"`
	Timings         []domain.StageTiming   `json:"timings"`
}

func (l *Log) Append(ctx context.Context, query domain.Query, outcome domain.PipelineOutcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record := outcomeRecord{
		Timestamp:       time.Now().UTC(),
		QueryText:       query.Text,
		UserID:          query.UserID,
		Filter:          query.Filter,
		Status:          outcome.Status,
		DegradedReasons: outcome.DegradedReasons,
		ResultCount:     len(outcome.Results),
		Results:         outcome.Results,
		Timings:         outcome.Timings,
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal outcome record: %w", err)
	}
	if err := l.conn.Publish(l.subject, payload); err != nil {
		return fmt.Errorf("publish outcome: %w", err)
	}
	return nil
}
