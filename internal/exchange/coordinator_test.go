// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package exchange

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/Renjie1997/movie-rec/internal/metrics"
)

// fakeBroker is an in-memory Broker. Inbound messages are delivered on their
// own goroutine, like a real client library callback.
type fakeBroker struct {
	mu           sync.Mutex
	connected    bool
	connectErr   error
	publishErr   map[string]error
	handler      Handler
	published    []string
	events       []brokerEvent
	cleared      int
	connects     int
	active       int
	maxActive    int
	disconnected chan struct{}

	// onPublish simulates the scheduler. It runs after the payload is recorded.
	onPublish func(b *fakeBroker, payload string)
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{disconnected: make(chan struct{}, 16)}
}

func (b *fakeBroker) Connect(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connects++
	if b.connectErr != nil {
		return b.connectErr
	}
	b.connected = true
	b.active++
	if b.active > b.maxActive {
		b.maxActive = b.active
	}
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, _ string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return errors.New("not connected")
	}
	b.handler = h
	return nil
}

func (b *fakeBroker) Publish(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return errors.New("not connected")
	}
	for prefix, err := range b.publishErr {
		if strings.HasPrefix(string(payload), prefix) {
			b.mu.Unlock()
			return err
		}
	}
	b.published = append(b.published, string(payload))
	b.events = append(b.events, brokerEvent{kind: messageKind(string(payload)), at: time.Now()})
	hook := b.onPublish
	b.mu.Unlock()

	if hook != nil {
		hook(b, string(payload))
	}
	return nil
}

func (b *fakeBroker) ClearRetained(context.Context, string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleared++
	b.events = append(b.events, brokerEvent{kind: "CLEAR", at: time.Now()})
	return nil
}

func (b *fakeBroker) Disconnect(context.Context) error {
	b.mu.Lock()
	b.connected = false
	b.handler = nil
	b.active--
	b.mu.Unlock()
	b.disconnected <- struct{}{}
	return nil
}

func (b *fakeBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// deliver hands a message to the subscriber asynchronously.
func (b *fakeBroker) deliver(topic, payload string) {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	if h != nil {
		go h(topic, []byte(payload))
	}
}

func (b *fakeBroker) Published() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.published...)
}

// brokerEvent is one publish or retained clear, in broker order.
type brokerEvent struct {
	kind string
	at   time.Time
}

func messageKind(payload string) string {
	for _, tag := range []string{"REQUEST", "RESULT", "UPDATE", "CONFIRM"} {
		if strings.HasPrefix(payload, tag) {
			return tag
		}
	}
	return "OTHER"
}

func (b *fakeBroker) Events() []brokerEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]brokerEvent(nil), b.events...)
}

// replyTo returns a scheduler hook answering every non-null REQUEST.
func replyTo(reply string) func(*fakeBroker, string) {
	return func(b *fakeBroker, payload string) {
		if strings.HasPrefix(payload, "REQUEST") && payload != "REQUESTnull" {
			b.deliver(DefaultTopic, reply)
		}
	}
}

type fakeSource struct {
	mu        sync.Mutex
	lines     []string
	err       error
	drains    int
	commits   int
	commitErr error
}

func (s *fakeSource) Drain(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drains++
	if s.err != nil {
		return nil, s.err
	}
	lines := s.lines
	s.lines = nil
	return lines, nil
}

func (s *fakeSource) Commit(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
	return s.commitErr
}

// drainOnlySource is an UpdateSource without Commit: drained lines are gone.
type drainOnlySource struct {
	lines []string
}

func (s *drainOnlySource) Drain(context.Context) ([]string, error) {
	lines := s.lines
	s.lines = nil
	return lines, nil
}

// syncBuffer is a log sink shared with session goroutines.
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

func fixedClock(date string) func() time.Time {
	t, err := time.Parse("2006-01-02 15:04", date+" 12:00")
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func newTestCoordinator(t *testing.T, b Broker, src UpdateSource, cfg Config) *Coordinator {
	t.Helper()
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.PublishGap == 0 {
		cfg.PublishGap = time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
	c, err := NewCoordinator(b, src, cfg)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	c.SetLogger(zerolog.Nop())
	c.SetNowFunc(fixedClock("2024-01-02"))
	return c
}

func waitDisconnected(t *testing.T, b *fakeBroker) {
	t.Helper()
	select {
	case <-b.disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("broker was not disconnected")
	}
}

func TestNewCoordinatorValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewCoordinator(nil, nil, DefaultConfig()); !errors.Is(err, ErrNilBroker) {
		t.Errorf("nil broker: err = %v, want ErrNilBroker", err)
	}
	if _, err := NewCoordinator(newFakeBroker(), nil, Config{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("empty topic: err = %v, want ErrInvalidConfig", err)
	}
	if _, err := NewCoordinator(newFakeBroker(), nil, Config{Topic: "t", Timeout: -time.Second}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("negative timeout: err = %v, want ErrInvalidConfig", err)
	}

	c, err := NewCoordinator(newFakeBroker(), nil, Config{Topic: "t"})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	if got := c.Config(); got.Timeout != 100*time.Second || got.PublishGap != 100*time.Millisecond {
		t.Errorf("defaults not applied: %+v", got)
	}
}

func TestRunAcceptsYesterdaysResults(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	b.onPublish = replyTo("RESULT2024-01-01@7@101#102%2024-01-01@9@205")
	c := newTestCoordinator(t, b, nil, Config{})

	results, report, err := c.Run(context.Background(), []string{"7", "9"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := ResultMap{"7": {"101", "102"}, "9": {"205"}}
	if !reflect.DeepEqual(results, want) {
		t.Errorf("results = %v, want %v", results, want)
	}
	if report.Outcome != OutcomeConfirmed {
		t.Errorf("outcome = %s, want confirmed", report.Outcome)
	}
	if report.Accepted != 2 || report.Stale != 0 || report.Requested != 2 {
		t.Errorf("report = %+v", report)
	}

	waitDisconnected(t, b)
	wantPublished := []string{"REQUEST2024-01-02@7#9#", "CONFIRM2 results received"}
	if got := b.Published(); !reflect.DeepEqual(got, wantPublished) {
		t.Errorf("published = %q, want %q", got, wantPublished)
	}
	if b.cleared != 1 {
		t.Errorf("retained topic cleared %d times, want 1", b.cleared)
	}
}

func TestRunRejectsStaleResults(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	b.onPublish = replyTo("RESULT2024-01-01@7@101#102%2024-01-01@9@205")
	c := newTestCoordinator(t, b, nil, Config{})
	c.SetNowFunc(fixedClock("2024-01-03"))

	results, report, err := c.Run(context.Background(), []string{"7", "9"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
	if report.Stale != 2 || report.Accepted != 0 {
		t.Errorf("report = %+v, want 2 stale", report)
	}
	if report.Outcome != OutcomeConfirmed {
		t.Errorf("outcome = %s, want confirmed", report.Outcome)
	}
	waitDisconnected(t, b)
}

func TestRunWithoutUsersSendsNullRequest(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	src := &fakeSource{lines: []string{"new#1#2#3"}}
	c := newTestCoordinator(t, b, src, Config{})

	results, report, err := c.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Outcome != OutcomeNoOp {
		t.Errorf("outcome = %s, want noop", report.Outcome)
	}
	if len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}

	waitDisconnected(t, b)
	if got := b.Published(); !reflect.DeepEqual(got, []string{"REQUESTnull"}) {
		t.Errorf("published = %q, want only REQUESTnull", got)
	}
	if src.drains != 0 {
		t.Errorf("staged updates drained %d times on a null session", src.drains)
	}
}

func TestRunTimesOutWithoutResult(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	c := newTestCoordinator(t, b, nil, Config{Timeout: 50 * time.Millisecond})

	start := time.Now()
	results, report, err := c.Run(context.Background(), []string{"1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Outcome != OutcomeTimedOut {
		t.Errorf("outcome = %s, want timed_out", report.Outcome)
	}
	if len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Run returned after %v", elapsed)
	}

	waitDisconnected(t, b)
	for _, p := range b.Published() {
		if strings.HasPrefix(p, "CONFIRM") {
			t.Errorf("CONFIRM published on a timed out session: %q", p)
		}
	}
}

func TestRunTimesOutWhenConnectFails(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	b.connectErr = errors.New("connection refused")
	c := newTestCoordinator(t, b, nil, Config{Timeout: 50 * time.Millisecond})

	_, report, err := c.Run(context.Background(), []string{"1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Outcome != OutcomeTimedOut {
		t.Errorf("outcome = %s, want timed_out", report.Outcome)
	}
	if b.cleared != 0 {
		t.Error("retained topic must not be cleared without a connection")
	}
}

func TestRunPublishesStagedUpdates(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	b.onPublish = replyTo("RESULT2024-01-01@3@11")
	src := &fakeSource{lines: []string{"new#3#11#4.5", "update#3#12#2"}}
	c := newTestCoordinator(t, b, src, Config{})

	_, report, err := c.Run(context.Background(), []string{"3"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.UpdateLines != 2 {
		t.Errorf("update lines = %d, want 2", report.UpdateLines)
	}
	waitDisconnected(t, b)

	want := []string{
		"REQUEST2024-01-02@3#",
		"UPDATEnew#3#11#4.5%update#3#12#2%",
		"CONFIRM1 results received",
	}
	if got := b.Published(); !reflect.DeepEqual(got, want) {
		t.Errorf("published = %q, want %q", got, want)
	}
	if src.commits != 1 {
		t.Errorf("source committed %d times, want 1", src.commits)
	}
}

func TestRunPacesPublishesAndClearsLast(t *testing.T) {
	t.Parallel()

	const gap = 50 * time.Millisecond

	b := newFakeBroker()
	b.onPublish = replyTo("RESULT2024-01-01@3@11")
	src := &fakeSource{lines: []string{"new#3#11#4.5"}}
	c := newTestCoordinator(t, b, src, Config{PublishGap: gap})

	_, report, err := c.Run(context.Background(), []string{"3"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Outcome != OutcomeConfirmed {
		t.Fatalf("outcome = %s, want confirmed", report.Outcome)
	}
	waitDisconnected(t, b)

	events := b.Events()
	var kinds []string
	at := make(map[string]time.Time)
	for _, e := range events {
		kinds = append(kinds, e.kind)
		at[e.kind] = e.at
	}
	if want := []string{"REQUEST", "UPDATE", "CONFIRM", "CLEAR"}; !reflect.DeepEqual(kinds, want) {
		t.Fatalf("broker events = %v, want %v", kinds, want)
	}

	for i := 1; i < len(events); i++ {
		if events[i].at.Before(events[i-1].at) {
			t.Errorf("%s recorded before %s", events[i].kind, events[i-1].kind)
		}
	}
	if d := at["UPDATE"].Sub(at["REQUEST"]); d < gap {
		t.Errorf("REQUEST to UPDATE = %v, want >= %v", d, gap)
	}
	if d := at["CONFIRM"].Sub(at["UPDATE"]); d < gap {
		t.Errorf("UPDATE to CONFIRM = %v, want >= %v", d, gap)
	}
}

func TestRunLogsLostUpdatesWithoutCommitter(t *testing.T) {
	b := newFakeBroker()
	b.onPublish = replyTo("RESULT2024-01-01@3@11")
	b.publishErr = map[string]error{"UPDATE": errors.New("broker unavailable")}
	src := &drainOnlySource{lines: []string{"new#3#11#4.5", "update#3#12#2"}}
	c := newTestCoordinator(t, b, src, Config{})

	var logs syncBuffer
	c.SetLogger(zerolog.New(&logs))
	before := testutil.ToFloat64(metrics.UpdateLinesDropped)

	_, report, err := c.Run(context.Background(), []string{"3"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Outcome != OutcomeConfirmed {
		t.Errorf("outcome = %s, want confirmed", report.Outcome)
	}
	waitDisconnected(t, b)

	out := logs.String()
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, "Staged updates lost") || !strings.Contains(out, `"lines":2`) {
		t.Errorf("expected an error line counting 2 lost updates, got: %s", out)
	}
	if got := testutil.ToFloat64(metrics.UpdateLinesDropped) - before; got != 2 {
		t.Errorf("dropped lines metric grew by %v, want 2", got)
	}
}

func TestRunKeepsUpdatesWhenPublishFails(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	b.onPublish = replyTo("RESULT2024-01-01@3@11")
	b.publishErr = map[string]error{"UPDATE": errors.New("broker unavailable")}
	src := &fakeSource{lines: []string{"new#3#11#4.5"}}
	c := newTestCoordinator(t, b, src, Config{})

	_, report, err := c.Run(context.Background(), []string{"3"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Outcome != OutcomeConfirmed {
		t.Errorf("outcome = %s, want confirmed", report.Outcome)
	}
	if src.commits != 0 {
		t.Errorf("source committed after a failed UPDATE publish")
	}
	if report.UpdateLines != 0 {
		t.Errorf("update lines = %d, want 0", report.UpdateLines)
	}
	waitDisconnected(t, b)
}

func TestRunSkipsUpdatesWhenDrainFails(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	b.onPublish = replyTo("RESULT2024-01-01@3@11")
	src := &fakeSource{err: errors.New("permission denied")}
	c := newTestCoordinator(t, b, src, Config{})

	results, report, err := c.Run(context.Background(), []string{"3"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Outcome != OutcomeConfirmed || len(results) != 1 {
		t.Errorf("report = %+v, results = %v", report, results)
	}
	waitDisconnected(t, b)
	for _, p := range b.Published() {
		if strings.HasPrefix(p, "UPDATE") {
			t.Errorf("unexpected UPDATE: %q", p)
		}
	}
}

func TestRunNullResultCompletesEmpty(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	b.onPublish = replyTo("RESULTnull")
	src := &fakeSource{lines: []string{"new#1#2#5"}}
	c := newTestCoordinator(t, b, src, Config{})

	results, report, err := c.Run(context.Background(), []string{"1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Outcome != OutcomeConfirmed || len(results) != 0 {
		t.Errorf("report = %+v, results = %v", report, results)
	}
	waitDisconnected(t, b)

	want := []string{"REQUEST2024-01-02@1#", "UPDATEnew#1#2#5%", "CONFIRM0 results received"}
	if got := b.Published(); !reflect.DeepEqual(got, want) {
		t.Errorf("published = %q, want %q", got, want)
	}
}

func TestRunSkipsMalformedRecords(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	b.onPublish = replyTo("RESULT2024-01-01@7%2024-01-01@9@205%garbage")
	c := newTestCoordinator(t, b, nil, Config{})

	results, report, err := c.Run(context.Background(), []string{"7", "9"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := (ResultMap{"9": {"205"}}); !reflect.DeepEqual(results, want) {
		t.Errorf("results = %v, want %v", results, want)
	}
	if report.Malformed != 2 || report.Accepted != 1 {
		t.Errorf("report = %+v", report)
	}
	waitDisconnected(t, b)
}

func TestRunDuplicateRecordsLastWriteWins(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	b.onPublish = replyTo("RESULT2024-01-01@7@1#2%2024-01-01@7@3")
	c := newTestCoordinator(t, b, nil, Config{})

	results, _, err := c.Run(context.Background(), []string{"7"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := (ResultMap{"7": {"3"}}); !reflect.DeepEqual(results, want) {
		t.Errorf("results = %v, want %v", results, want)
	}
	waitDisconnected(t, b)
}

func TestRunIgnoresForeignMessages(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	b.onPublish = func(b *fakeBroker, payload string) {
		if !strings.HasPrefix(payload, "REQUEST") {
			return
		}
		b.deliver("OTHERTOPIC", "RESULT2024-01-01@7@1")
		b.deliver(DefaultTopic, "HELLO2024-01-01@7@1")
		b.deliver(DefaultTopic, "")
		b.deliver(DefaultTopic, "UPDATEnew#1#2#3%")
	}
	c := newTestCoordinator(t, b, nil, Config{Timeout: 100 * time.Millisecond})

	results, report, err := c.Run(context.Background(), []string{"7"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
	if report.Outcome != OutcomeTimedOut {
		t.Errorf("outcome = %s, want timed_out", report.Outcome)
	}
	waitDisconnected(t, b)
}

func TestRunProcessesOnlyFirstResult(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	b.onPublish = func(b *fakeBroker, payload string) {
		if strings.HasPrefix(payload, "REQUEST") {
			b.deliver(DefaultTopic, "RESULT2024-01-01@7@1")
		}
		if strings.HasPrefix(payload, "CONFIRM") {
			b.deliver(DefaultTopic, "RESULT2024-01-01@8@2")
		}
	}
	c := newTestCoordinator(t, b, nil, Config{})

	results, _, err := c.Run(context.Background(), []string{"7", "8"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := (ResultMap{"7": {"1"}}); !reflect.DeepEqual(results, want) {
		t.Errorf("results = %v, want %v", results, want)
	}
	waitDisconnected(t, b)
}

func TestRunSerializesSessions(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	b.onPublish = replyTo("RESULT2024-01-01@1@1")
	c := newTestCoordinator(t, b, nil, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.Run(context.Background(), []string{"1"}); err != nil {
				t.Errorf("Run: %v", err)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 3; i++ {
		waitDisconnected(t, b)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.maxActive != 1 {
		t.Errorf("max concurrent connections = %d, want 1", b.maxActive)
	}
	if b.connects != 3 {
		t.Errorf("connects = %d, want 3", b.connects)
	}
}

func TestRunCanceledByCaller(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	c := newTestCoordinator(t, b, nil, Config{Timeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, report, err := c.Run(ctx, []string{"1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Outcome != OutcomeCanceled {
		t.Errorf("outcome = %s, want canceled", report.Outcome)
	}
	waitDisconnected(t, b)
}

func TestLastReport(t *testing.T) {
	t.Parallel()

	b := newFakeBroker()
	c := newTestCoordinator(t, b, nil, Config{})

	if _, ok := c.LastReport(); ok {
		t.Fatal("expected no report before the first session")
	}
	if _, _, err := c.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	report, ok := c.LastReport()
	if !ok {
		t.Fatal("expected a report after a session")
	}
	if report.Outcome != OutcomeNoOp || report.Date != "2024-01-02" || report.SessionID == "" {
		t.Errorf("report = %+v", report)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	states := map[State]string{
		StateIdle:           "idle",
		StateConnecting:     "connecting",
		StateSubscribed:     "subscribed",
		StateRequestSent:    "request_sent",
		StateResultReceived: "result_received",
		StateTimedOut:       "timed_out",
		StateConfirmed:      "confirmed",
		StateDisconnecting:  "disconnecting",
		State(99):           "unknown",
	}
	for s, want := range states {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestResultMapClone(t *testing.T) {
	t.Parallel()

	m := ResultMap{"1": {"a", "b"}}
	c := m.Clone()
	c["1"][0] = "z"
	c["2"] = nil
	if m["1"][0] != "a" || len(m) != 1 {
		t.Errorf("clone shares state with original: %v", m)
	}
}
