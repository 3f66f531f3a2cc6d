package wordauth

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &captureSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *captureSink) next(t *testing.T) AuditEvent {
	t.Helper()

	select {
	case ev := <-s.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("expected audit event to be received")
		return AuditEvent{}
	}
}

func auditConfig() Config {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16
	cfg.Audit.DropIfFull = true
	return cfg
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = false
	store := newTestStore(t, cfg)
	mustCreate(t, store, "meg@example.com", "correct-horse")

	sink := &countingSink{}
	engine := newTestEngine(t, store, func(b *Builder) { b.WithConfig(cfg).WithAuditSink(sink) })

	_, _ = engine.Issue(context.Background(), IssueRequest{Username: "meg@example.com", Password: "wrong-password"})
	engine.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditIssueEventsDistinguishReasons(t *testing.T) {
	cfg := auditConfig()
	store := newTestStore(t, cfg)
	mustCreate(t, store, "meg@example.com", "correct-horse", "Meg")

	sink := newCaptureSink(8)
	engine := newTestEngine(t, store, func(b *Builder) { b.WithConfig(cfg).WithAuditSink(sink) })

	ctx := WithUserAgent(WithClientIP(context.Background(), "198.51.100.33"), "wordle-client/1.0")

	_, _ = engine.Issue(ctx, IssueRequest{Username: "meg@example.com", Password: "super-secret-password"})
	ev := sink.next(t)
	if ev.EventType != AuditEventTokenIssueFailed || ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Reason != "invalid_credentials" {
		t.Fatalf("expected invalid_credentials, got %q", ev.Reason)
	}
	if ev.IP != "198.51.100.33" {
		t.Fatalf("expected IP 198.51.100.33, got %q", ev.IP)
	}
	if ev.Metadata["user_agent"] != "wordle-client/1.0" {
		t.Fatalf("expected user agent metadata, got %v", ev.Metadata)
	}

	_, _ = engine.Issue(ctx, IssueRequest{Username: "ghost@example.com", Password: "super-secret-password"})
	if ev := sink.next(t); ev.Reason != "user_not_found" {
		t.Fatalf("expected user_not_found, got %q", ev.Reason)
	}

	res, err := engine.Issue(ctx, IssueRequest{Username: "meg@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	ev = sink.next(t)
	if ev.EventType != AuditEventTokenIssued || !ev.Success || ev.UserID == "" {
		t.Fatalf("unexpected success event %+v", ev)
	}
	if ev.Metadata["roles"] != "Meg" {
		t.Fatalf("expected roles metadata, got %v", ev.Metadata)
	}
	if got := ev.Metadata["expires_at"]; got != res.ExpiresAt.UTC().Format(time.RFC3339) {
		t.Fatalf("unexpected expires_at %q", got)
	}
}

func TestAuditAccessEvents(t *testing.T) {
	cfg := auditConfig()
	store := newTestStore(t, cfg)
	mustCreate(t, store, "meg@example.com", "correct-horse", "Meg")

	sink := newCaptureSink(8)
	engine := newTestEngine(t, store, func(b *Builder) { b.WithConfig(cfg).WithAuditSink(sink) })

	token := issueFor(t, engine, "meg@example.com", "correct-horse")
	_ = sink.next(t)

	_, _ = engine.Authorize(context.Background(), token, RequireAnyRole("Admin"))
	ev := sink.next(t)
	if ev.EventType != AuditEventAccessDenied || ev.Reason != "forbidden" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Requirement != "roles:Admin" || ev.Subject != "meg@example.com" {
		t.Fatalf("unexpected requirement/subject %+v", ev)
	}

	_, _ = engine.Authorize(context.Background(), token, RequireAnyRole("RulerOfTheUniverse", "Meg"))
	ev = sink.next(t)
	if ev.EventType != AuditEventAccessGranted || !ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}

	_, _ = engine.Authorize(context.Background(), token+"x", RequireAuthenticated())
	if ev := sink.next(t); ev.Reason != "invalid_signature" {
		t.Fatalf("expected invalid_signature, got %q", ev.Reason)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAuditNeverCarriesSecrets(t *testing.T) {
	cfg := auditConfig()
	store := newTestStore(t, cfg)
	rec := mustCreate(t, store, "meg@example.com", "correct-horse", "Meg")

	out := &syncBuffer{}
	engine := newTestEngine(t, store, func(b *Builder) { b.WithConfig(cfg).WithAuditSink(NewJSONWriterSink(out)) })

	_, _ = engine.Issue(context.Background(), IssueRequest{Username: "meg@example.com", Password: "super-secret-password"})
	token := issueFor(t, engine, "meg@example.com", "correct-horse")
	_, _ = engine.Authorize(context.Background(), token, RequirePolicy("RandomAdmin"))
	engine.Close()

	logged := out.String()
	for _, secret := range []string{"super-secret-password", "correct-horse", token, rec.PasswordHash, testSecret} {
		if strings.Contains(logged, secret) {
			t.Fatalf("audit output leaked %q", secret)
		}
	}

	lines := strings.Split(strings.TrimSpace(logged), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 audit lines, got %d", len(lines))
	}
	for _, line := range lines {
		var ev AuditEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
	}
}

func TestAuditBufferFullDropsAndCounts(t *testing.T) {
	cfg := auditConfig()
	cfg.Audit.BufferSize = 1
	gate := make(chan struct{})
	store := newTestStore(t, cfg)

	engine := newTestEngine(t, store, func(b *Builder) {
		b.WithConfig(cfg).WithAuditSink(blockingSink(gate))
	})

	for i := 0; i < 8; i++ {
		_, _ = engine.Issue(context.Background(), IssueRequest{Username: "", Password: "x"})
	}
	close(gate)
	engine.Close()

	if engine.AuditDropped() == 0 {
		t.Fatal("expected dropped events with a blocked sink and buffer size 1")
	}
}

type blockingSink chan struct{}

func (s blockingSink) Emit(context.Context, AuditEvent) {
	<-s
}
