package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Notiflow/internal/dispatch"
	"github.com/shaiso/Notiflow/internal/domain"
	"github.com/shaiso/Notiflow/internal/engine"
	"github.com/shaiso/Notiflow/internal/repo"
)

// --- In-memory fakes ---

type fakeEventStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]*domain.Event
}

func newFakeEventStore(events ...*domain.Event) *fakeEventStore {
	s := &fakeEventStore{events: make(map[uuid.UUID]*domain.Event)}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *fakeEventStore) ClaimPending(_ context.Context, id uuid.UUID) (*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if e.Status != domain.EventStatusPending {
		return nil, repo.ErrInvalidState
	}
	e.MarkProcessing()
	copied := *e
	return &copied, nil
}

func (s *fakeEventStore) Finalize(_ context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.events[event.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if stored.Status != domain.EventStatusProcessing {
		return repo.ErrInvalidState
	}
	*stored = *event
	return nil
}

func (s *fakeEventStore) ListPending(_ context.Context, limit int) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Event
	for _, e := range s.events {
		if e.Status == domain.EventStatusPending && len(out) < limit {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeEventStore) get(id uuid.UUID) *domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id]
}

type fakeRuleSource struct {
	mu         sync.Mutex
	rules      []domain.Rule
	listErr    error
	increments map[uuid.UUID]int
}

func (s *fakeRuleSource) ListActiveByTrigger(_ context.Context, eventType, eventName, source string) ([]domain.Rule, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}

	var out []domain.Rule
	for _, r := range s.rules {
		if r.Trigger.Type == eventType && r.Trigger.Event == eventName &&
			(r.Trigger.Source == "" || r.Trigger.Source == source) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeRuleSource) IncrementTriggerStats(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.increments == nil {
		s.increments = make(map[uuid.UUID]int)
	}
	s.increments[id]++
	return nil
}

type execKey struct {
	eventID uuid.UUID
	ruleID  uuid.UUID
}

type fakeExecutionLog struct {
	mu      sync.Mutex
	records map[execKey]*domain.Execution
}

func newFakeExecutionLog() *fakeExecutionLog {
	return &fakeExecutionLog{records: make(map[execKey]*domain.Execution)}
}

func (l *fakeExecutionLog) Create(_ context.Context, exec *domain.Execution) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := execKey{exec.EventID, exec.RuleID}
	if _, ok := l.records[key]; ok {
		return repo.ErrAlreadyExists
	}
	l.records[key] = exec
	return nil
}

func (l *fakeExecutionLog) ListRuleIDsByEventID(_ context.Context, eventID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[uuid.UUID]struct{})
	for key := range l.records {
		if key.eventID == eventID {
			out[key.ruleID] = struct{}{}
		}
	}
	return out, nil
}

func (l *fakeExecutionLog) byRule(eventID, ruleID uuid.UUID) *domain.Execution {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.records[execKey{eventID, ruleID}]
}

func (l *fakeExecutionLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

type fakeNotificationStore struct {
	mu      sync.Mutex
	created []*domain.Notification
}

func (s *fakeNotificationStore) Create(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, n)
	return nil
}

// failingNotifier ломает диспетчеризацию для правил с заданным именем,
// остальные проксирует в настоящий Dispatcher.
type failingNotifier struct {
	inner    *dispatch.Dispatcher
	failName string
}

func (f *failingNotifier) Dispatch(ctx context.Context, rule *domain.Rule, event *domain.Event, vars map[string]any) (*domain.Notification, *engine.RenderResult, error) {
	if rule.Name == f.failName {
		return nil, &engine.RenderResult{}, fmt.Errorf("store notification: connection refused")
	}
	return f.inner.Dispatch(ctx, rule, event, vars)
}

// blockingNotifier зависает на правилах с заданным именем до истечения
// контекста, остальные проксирует в настоящий Dispatcher.
type blockingNotifier struct {
	inner    *dispatch.Dispatcher
	slowName string
}

func (b *blockingNotifier) Dispatch(ctx context.Context, rule *domain.Rule, event *domain.Event, vars map[string]any) (*domain.Notification, *engine.RenderResult, error) {
	if rule.Name == b.slowName {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	return b.inner.Dispatch(ctx, rule, event, vars)
}

// --- Fixtures ---

func stockEvent() *domain.Event {
	return &domain.Event{
		ID:     uuid.New(),
		Type:   "stock",
		Event:  "stock_low",
		Source: "inventory-service",
		Payload: map[string]any{
			"material_name": "Acier C45",
			"quantity":      float64(5),
			"threshold":     float64(10),
		},
		Status:     domain.EventStatusPending,
		OccurredAt: time.Now(),
	}
}

func stockRule(name string) domain.Rule {
	return domain.Rule{
		ID:       uuid.New(),
		Name:     name,
		IsActive: true,
		Trigger: domain.Trigger{
			Type:   "stock",
			Event:  "stock_low",
			Source: "inventory-service",
		},
		Conditions: []domain.Condition{
			{Field: "quantity", Operator: domain.OpLessThan, Value: float64(10), Type: domain.TypeNumber},
		},
		Notification: domain.NotificationSpec{
			Type:            "warning",
			Category:        "stock",
			TitleTemplate:   "Stock critique: {{material_name}}",
			MessageTemplate: "Le stock de {{material_name}} est maintenant de {{quantity}} unités (seuil: {{threshold}})",
			Priority:        domain.PriorityHigh,
			RecipientType:   domain.RecipientAll,
		},
	}
}

type pipelineEnv struct {
	orch  *Orchestrator
	store *fakeEventStore
	rules *fakeRuleSource
	log   *fakeExecutionLog
	notes *fakeNotificationStore
}

func newPipelineEnv(event *domain.Event, rules []domain.Rule) *pipelineEnv {
	store := newFakeEventStore(event)
	ruleSrc := &fakeRuleSource{rules: rules}
	execLog := newFakeExecutionLog()
	notes := &fakeNotificationStore{}

	orch := New(Config{
		Events:     store,
		Rules:      ruleSrc,
		Executions: execLog,
		Dispatcher: dispatch.New(notes, nil, &engine.Renderer{}, nil),
	})

	return &pipelineEnv{orch: orch, store: store, rules: ruleSrc, log: execLog, notes: notes}
}

// --- Tests ---

func TestProcessEvent_StockCritical(t *testing.T) {
	event := stockEvent()
	rule := stockRule("stock-critical")
	env := newPipelineEnv(event, []domain.Rule{rule})

	if err := env.orch.ProcessEvent(context.Background(), event.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := env.store.get(event.ID)
	if stored.Status != domain.EventStatusProcessed {
		t.Fatalf("event status = %s, want PROCESSED", stored.Status)
	}
	if stored.RulesTriggered != 1 || stored.NotificationsCreated != 1 {
		t.Errorf("counters = (%d, %d), want (1, 1)", stored.RulesTriggered, stored.NotificationsCreated)
	}

	exec := env.log.byRule(event.ID, rule.ID)
	if exec == nil {
		t.Fatal("execution record missing")
	}
	if exec.Status != domain.ExecutionStatusSuccess || exec.Result != domain.ResultDispatched {
		t.Errorf("execution = %s/%s", exec.Status, exec.Result)
	}
	if exec.NotificationID == nil {
		t.Error("success execution must reference the notification")
	}
	if len(exec.ConditionResults) != 1 || !exec.ConditionResults[0].Passed {
		t.Errorf("condition trace wrong: %+v", exec.ConditionResults)
	}

	if len(env.notes.created) != 1 {
		t.Fatalf("notifications = %d, want 1", len(env.notes.created))
	}
	n := env.notes.created[0]
	if n.Title != "Stock critique: Acier C45" {
		t.Errorf("title = %q", n.Title)
	}
	want := "Le stock de Acier C45 est maintenant de 5 unités (seuil: 10)"
	if n.Message != want {
		t.Errorf("message = %q", n.Message)
	}
	if n.Priority != domain.PriorityHigh {
		t.Errorf("priority = %q", n.Priority)
	}

	if env.rules.increments[rule.ID] != 1 {
		t.Error("trigger stats should be incremented once")
	}
}

func TestProcessEvent_ConditionNotMet(t *testing.T) {
	event := stockEvent()
	event.Payload["quantity"] = float64(50)
	rule := stockRule("stock-critical")
	env := newPipelineEnv(event, []domain.Rule{rule})

	if err := env.orch.ProcessEvent(context.Background(), event.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := env.store.get(event.ID)
	if stored.Status != domain.EventStatusProcessed {
		t.Fatalf("event status = %s, want PROCESSED", stored.Status)
	}
	if stored.RulesTriggered != 0 || stored.NotificationsCreated != 0 {
		t.Errorf("counters = (%d, %d), want (0, 0)", stored.RulesTriggered, stored.NotificationsCreated)
	}

	exec := env.log.byRule(event.ID, rule.ID)
	if exec == nil {
		t.Fatal("every considered rule must leave an execution record")
	}
	if exec.Status != domain.ExecutionStatusSkipped || exec.Result != domain.ResultConditionNotMet {
		t.Errorf("execution = %s/%s", exec.Status, exec.Result)
	}
	if len(exec.ConditionResults) != 1 || exec.ConditionResults[0].Passed {
		t.Errorf("trace should show the failed condition: %+v", exec.ConditionResults)
	}
	if len(env.notes.created) != 0 {
		t.Error("no notification should be created")
	}
	if env.rules.increments[rule.ID] != 0 {
		t.Error("trigger stats must not change for a skipped rule")
	}
}

func TestProcessEvent_AuditPerConsideredRule(t *testing.T) {
	event := stockEvent()

	matching := stockRule("matching")
	notMet := stockRule("not-met")
	notMet.Conditions = []domain.Condition{
		{Field: "quantity", Operator: domain.OpGreaterThan, Value: float64(100)},
	}
	inactive := stockRule("inactive")
	inactive.IsActive = false

	env := newPipelineEnv(event, []domain.Rule{matching, notMet, inactive})

	if err := env.orch.ProcessEvent(context.Background(), event.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := env.log.count(); got != 3 {
		t.Fatalf("executions = %d, want one per considered rule", got)
	}

	checks := []struct {
		ruleID uuid.UUID
		status domain.ExecutionStatus
		result domain.ExecutionResult
	}{
		{matching.ID, domain.ExecutionStatusSuccess, domain.ResultDispatched},
		{notMet.ID, domain.ExecutionStatusSkipped, domain.ResultConditionNotMet},
		{inactive.ID, domain.ExecutionStatusSkipped, domain.ResultRuleInactive},
	}
	for _, c := range checks {
		exec := env.log.byRule(event.ID, c.ruleID)
		if exec == nil {
			t.Fatalf("missing execution for rule %s", c.ruleID)
		}
		if exec.Status != c.status || exec.Result != c.result {
			t.Errorf("rule %s: got %s/%s, want %s/%s", c.ruleID, exec.Status, exec.Result, c.status, c.result)
		}
	}

	stored := env.store.get(event.ID)
	if stored.RulesTriggered != 1 || stored.NotificationsCreated != 1 {
		t.Errorf("counters = (%d, %d), want (1, 1)", stored.RulesTriggered, stored.NotificationsCreated)
	}
}

func TestProcessEvent_FailureIsolation(t *testing.T) {
	event := stockEvent()
	healthy := stockRule("healthy")
	broken := stockRule("broken")
	env := newPipelineEnv(event, []domain.Rule{healthy, broken})

	env.orch.dispatcher = &failingNotifier{
		inner:    dispatch.New(env.notes, nil, &engine.Renderer{}, nil),
		failName: "broken",
	}

	if err := env.orch.ProcessEvent(context.Background(), event.ID); err != nil {
		t.Fatalf("one broken rule must not fail the event: %v", err)
	}

	stored := env.store.get(event.ID)
	if stored.Status != domain.EventStatusProcessed {
		t.Fatalf("event status = %s, want PROCESSED", stored.Status)
	}
	if stored.RulesTriggered != 1 || stored.NotificationsCreated != 1 {
		t.Errorf("counters = (%d, %d), want (1, 1)", stored.RulesTriggered, stored.NotificationsCreated)
	}

	failed := env.log.byRule(event.ID, broken.ID)
	if failed == nil {
		t.Fatal("failed rule must still be audited")
	}
	if failed.Status != domain.ExecutionStatusFailure || failed.Result != domain.ResultDispatchError {
		t.Errorf("execution = %s/%s", failed.Status, failed.Result)
	}
	if failed.ErrorMessage == "" {
		t.Error("failure record should carry the error message")
	}

	ok := env.log.byRule(event.ID, healthy.ID)
	if ok == nil || ok.Status != domain.ExecutionStatusSuccess {
		t.Error("healthy rule should succeed despite the broken one")
	}
}

func TestProcessEvent_RuleTimeout(t *testing.T) {
	event := stockEvent()
	slow := stockRule("slow")
	fast := stockRule("fast")
	env := newPipelineEnv(event, []domain.Rule{slow, fast})

	env.orch.ruleTimeout = 20 * time.Millisecond
	env.orch.dispatcher = &blockingNotifier{
		inner:    dispatch.New(env.notes, nil, &engine.Renderer{}, nil),
		slowName: "slow",
	}

	if err := env.orch.ProcessEvent(context.Background(), event.ID); err != nil {
		t.Fatalf("a hung rule must not fail the event: %v", err)
	}

	timedOut := env.log.byRule(event.ID, slow.ID)
	if timedOut == nil {
		t.Fatal("timed out rule must still be audited")
	}
	if timedOut.Status != domain.ExecutionStatusFailure || timedOut.Result != domain.ResultTimeout {
		t.Errorf("execution = %s/%s, want FAILURE/timeout", timedOut.Status, timedOut.Result)
	}
	if timedOut.ErrorMessage == "" {
		t.Error("timeout record should carry the error message")
	}

	ok := env.log.byRule(event.ID, fast.ID)
	if ok == nil || ok.Status != domain.ExecutionStatusSuccess {
		t.Error("sibling rule should succeed despite the hung one")
	}

	stored := env.store.get(event.ID)
	if stored.Status != domain.EventStatusProcessed {
		t.Fatalf("event status = %s, want PROCESSED", stored.Status)
	}
	if stored.RulesTriggered != 1 || stored.NotificationsCreated != 1 {
		t.Errorf("counters = (%d, %d), want (1, 1)", stored.RulesTriggered, stored.NotificationsCreated)
	}
}

func TestProcessEvent_DedupeOnReprocessing(t *testing.T) {
	event := stockEvent()
	done := stockRule("already-done")
	fresh := stockRule("fresh")
	env := newPipelineEnv(event, []domain.Rule{done, fresh})

	// Первая обработка оборвалась после записи одного правила
	prior := domain.NewSuccessExecution(event.ID, done.ID, uuid.New(),
		event.Payload, nil, nil, nil, time.Millisecond)
	if err := env.log.Create(context.Background(), prior); err != nil {
		t.Fatal(err)
	}

	if err := env.orch.ProcessEvent(context.Background(), event.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := env.log.count(); got != 2 {
		t.Fatalf("executions = %d: duplicate rule must not get a second record", got)
	}
	if len(env.notes.created) != 1 {
		t.Errorf("notifications = %d: vars must not double on reprocessing", len(env.notes.created))
	}
	if env.rules.increments[done.ID] != 0 {
		t.Error("deduped rule must not increment trigger stats again")
	}

	// Дубликаты не попадают в счётчики события
	stored := env.store.get(event.ID)
	if stored.RulesTriggered != 1 || stored.NotificationsCreated != 1 {
		t.Errorf("counters = (%d, %d), want (1, 1)", stored.RulesTriggered, stored.NotificationsCreated)
	}
}

func TestProcessEvent_ClaimRejections(t *testing.T) {
	processed := stockEvent()
	processed.Status = domain.EventStatusProcessed

	env := newPipelineEnv(processed, nil)

	err := env.orch.ProcessEvent(context.Background(), processed.ID)
	if !errors.Is(err, ErrEventNotPending) {
		t.Errorf("terminal event: got %v, want ErrEventNotPending", err)
	}

	err = env.orch.ProcessEvent(context.Background(), uuid.New())
	if !errors.Is(err, ErrEventNotFound) {
		t.Errorf("unknown event: got %v, want ErrEventNotFound", err)
	}
}

func TestProcessEvent_RuleLookupFailure(t *testing.T) {
	event := stockEvent()
	env := newPipelineEnv(event, nil)
	env.rules.listErr = errors.New("connection reset")

	// Системная ошибка персистируется в событии, retry не нужен
	if err := env.orch.ProcessEvent(context.Background(), event.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := env.store.get(event.ID)
	if stored.Status != domain.EventStatusFailed {
		t.Fatalf("event status = %s, want FAILED", stored.Status)
	}
	if stored.ProcessingError == "" {
		t.Error("processing error should be recorded")
	}
}

func TestProcessEvent_NoMatchingRules(t *testing.T) {
	event := stockEvent()
	other := stockRule("other-domain")
	other.Trigger.Type = "production"
	env := newPipelineEnv(event, []domain.Rule{other})

	if err := env.orch.ProcessEvent(context.Background(), event.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := env.store.get(event.ID)
	if stored.Status != domain.EventStatusProcessed {
		t.Errorf("event with no matching rules is still PROCESSED, got %s", stored.Status)
	}
	if env.log.count() != 0 {
		t.Error("unmatched rules leave no execution records")
	}
}

func TestProcessEvent_SourceWildcard(t *testing.T) {
	event := stockEvent()
	anySource := stockRule("any-source")
	anySource.Trigger.Source = ""
	env := newPipelineEnv(event, []domain.Rule{anySource})

	if err := env.orch.ProcessEvent(context.Background(), event.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.log.byRule(event.ID, anySource.ID) == nil {
		t.Error("rule with empty source must match any source")
	}
}

func TestProcessEvent_AfterStop(t *testing.T) {
	event := stockEvent()
	env := newPipelineEnv(event, nil)
	env.orch.Stop()

	err := env.orch.ProcessEvent(context.Background(), event.ID)
	if !errors.Is(err, ErrOrchestratorStopped) {
		t.Errorf("got %v, want ErrOrchestratorStopped", err)
	}
}
