package wordauth

import (
	"io"
	"log/slog"

	"github.com/wordleapi/wordauth/internal/audit"
)

// Audit event types emitted by the Engine.
const (
	AuditEventTokenIssued      = "token_issued"
	AuditEventTokenIssueFailed = "token_issue_failed"
	AuditEventAccessGranted    = "access_granted"
	AuditEventAccessDenied     = "access_denied"
)

// AuditEvent is one structured audit record. It never carries passwords,
// hashes, or tokens.
type AuditEvent = audit.Event

// AuditSink receives audit events from the Engine's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards events.
type NoOpSink = audit.NoOpSink

// ChannelSink delivers events to a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// SlogSink writes events through a *slog.Logger.
type SlogSink = audit.SlogSink

func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

func NewSlogSink(logger *slog.Logger) *SlogSink { return audit.NewSlogSink(logger) }
