package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/cleaning-roster/internal/dates"
	"github.com/example/cleaning-roster/internal/persistence"
)

// gatewayStub implements the persistence interfaces with overridable
// function fields. Methods without an override return zero values.
type gatewayStub struct {
	upsertUserFn       func(ctx context.Context, user persistence.User) (persistence.UpsertResult, error)
	userByExternalIDFn func(ctx context.Context, externalID string) (*persistence.User, error)
	listUsersFn        func(ctx context.Context) ([]persistence.User, error)
	createTemplateFn   func(ctx context.Context, template persistence.Template) (persistence.Change, error)
	updateTemplateFn   func(ctx context.Context, template persistence.Template) (persistence.Change, error)
	deleteTemplateFn   func(ctx context.Context, id string) (persistence.Change, error)
	templateByIDFn     func(ctx context.Context, id string) (*persistence.Template, error)
	listTemplatesFn    func(ctx context.Context) ([]persistence.Template, error)
	createInstanceFn   func(ctx context.Context, spec persistence.InstanceSpec) (persistence.Change, error)
	createInstancesFn  func(ctx context.Context, specs []persistence.InstanceSpec) ([]persistence.Change, error)
	startInstanceFn    func(ctx context.Context, id string) (persistence.Change, error)
	finishInstanceFn   func(ctx context.Context, actorExternalID, instanceID string) (persistence.FinishResult, error)
	joinFn             func(ctx context.Context, actorExternalID, instanceID string, today dates.Date) (persistence.JoinResult, error)
	leaveFn            func(ctx context.Context, actorExternalID, instanceID string) (persistence.LeaveResult, error)
	removeInstanceFn   func(ctx context.Context, id string) (persistence.Change, error)
	markNextWeekFn     func(ctx context.Context, id string) (persistence.Change, error)
	instanceByIDFn     func(ctx context.Context, id string) (*persistence.InstanceDetail, error)
	listInstancesFn    func(ctx context.Context, span dates.Span) ([]persistence.InstanceDetail, error)
	listForTemplateFn  func(ctx context.Context, templateID string) ([]persistence.InstanceDetail, error)

	mu          sync.Mutex
	leaveLocked bool
}

func (s *gatewayStub) UpsertUser(ctx context.Context, user persistence.User) (persistence.UpsertResult, error) {
	if s.upsertUserFn != nil {
		return s.upsertUserFn(ctx, user)
	}
	return persistence.UpsertResult{}, nil
}

func (s *gatewayStub) UserByExternalID(ctx context.Context, externalID string) (*persistence.User, error) {
	if s.userByExternalIDFn != nil {
		return s.userByExternalIDFn(ctx, externalID)
	}
	return nil, nil
}

func (s *gatewayStub) ListUsers(ctx context.Context) ([]persistence.User, error) {
	if s.listUsersFn != nil {
		return s.listUsersFn(ctx)
	}
	return nil, nil
}

func (s *gatewayStub) CreateTemplate(ctx context.Context, template persistence.Template) (persistence.Change, error) {
	if s.createTemplateFn != nil {
		return s.createTemplateFn(ctx, template)
	}
	return persistence.Change{Count: 1, NewID: template.ID}, nil
}

func (s *gatewayStub) UpdateTemplate(ctx context.Context, template persistence.Template) (persistence.Change, error) {
	if s.updateTemplateFn != nil {
		return s.updateTemplateFn(ctx, template)
	}
	return persistence.Change{Count: 1}, nil
}

func (s *gatewayStub) DeleteTemplate(ctx context.Context, id string) (persistence.Change, error) {
	if s.deleteTemplateFn != nil {
		return s.deleteTemplateFn(ctx, id)
	}
	return persistence.Change{Count: 1}, nil
}

func (s *gatewayStub) TemplateByID(ctx context.Context, id string) (*persistence.Template, error) {
	if s.templateByIDFn != nil {
		return s.templateByIDFn(ctx, id)
	}
	return nil, nil
}

func (s *gatewayStub) ListTemplates(ctx context.Context) ([]persistence.Template, error) {
	if s.listTemplatesFn != nil {
		return s.listTemplatesFn(ctx)
	}
	return nil, nil
}

func (s *gatewayStub) CreateInstance(ctx context.Context, spec persistence.InstanceSpec) (persistence.Change, error) {
	if s.createInstanceFn != nil {
		return s.createInstanceFn(ctx, spec)
	}
	return persistence.Change{Count: 1, NewID: spec.ID}, nil
}

func (s *gatewayStub) CreateInstances(ctx context.Context, specs []persistence.InstanceSpec) ([]persistence.Change, error) {
	if s.createInstancesFn != nil {
		return s.createInstancesFn(ctx, specs)
	}
	changes := make([]persistence.Change, len(specs))
	for i, spec := range specs {
		changes[i] = persistence.Change{Count: 1, NewID: spec.ID}
	}
	return changes, nil
}

func (s *gatewayStub) StartInstance(ctx context.Context, id string) (persistence.Change, error) {
	if s.startInstanceFn != nil {
		return s.startInstanceFn(ctx, id)
	}
	return persistence.Change{Count: 1}, nil
}

func (s *gatewayStub) FinishInstance(ctx context.Context, actorExternalID, instanceID string) (persistence.FinishResult, error) {
	if s.finishInstanceFn != nil {
		return s.finishInstanceFn(ctx, actorExternalID, instanceID)
	}
	return persistence.FinishResult{}, nil
}

func (s *gatewayStub) Join(ctx context.Context, actorExternalID, instanceID string, today dates.Date) (persistence.JoinResult, error) {
	if s.joinFn != nil {
		return s.joinFn(ctx, actorExternalID, instanceID, today)
	}
	return persistence.JoinResult{}, nil
}

func (s *gatewayStub) Leave(ctx context.Context, actorExternalID, instanceID string) (persistence.LeaveResult, error) {
	if s.leaveFn != nil {
		return s.leaveFn(ctx, actorExternalID, instanceID)
	}
	return persistence.LeaveResult{}, nil
}

func (s *gatewayStub) RemoveInstance(ctx context.Context, id string) (persistence.Change, error) {
	if s.removeInstanceFn != nil {
		return s.removeInstanceFn(ctx, id)
	}
	return persistence.Change{Count: 1}, nil
}

func (s *gatewayStub) MarkNextWeekNotified(ctx context.Context, id string) (persistence.Change, error) {
	if s.markNextWeekFn != nil {
		return s.markNextWeekFn(ctx, id)
	}
	return persistence.Change{Count: 1}, nil
}

func (s *gatewayStub) InstanceByID(ctx context.Context, id string) (*persistence.InstanceDetail, error) {
	if s.instanceByIDFn != nil {
		return s.instanceByIDFn(ctx, id)
	}
	return nil, nil
}

func (s *gatewayStub) ListInstances(ctx context.Context, span dates.Span) ([]persistence.InstanceDetail, error) {
	if s.listInstancesFn != nil {
		return s.listInstancesFn(ctx, span)
	}
	return nil, nil
}

func (s *gatewayStub) ListInstancesForTemplate(ctx context.Context, templateID string) ([]persistence.InstanceDetail, error) {
	if s.listForTemplateFn != nil {
		return s.listForTemplateFn(ctx, templateID)
	}
	return nil, nil
}

func (s *gatewayStub) SetLeaveLock(locked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveLocked = locked
	return locked
}

func (s *gatewayStub) LeaveLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaveLocked
}

// recordingNotifier captures deliveries per channel kind and can fail them
// on demand.
type recordingNotifier struct {
	mu        sync.Mutex
	channel   []string
	audit     []string
	important []string
	failAll   bool
}

func (n *recordingNotifier) PostChannelMessage(_ context.Context, channelRef, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failAll {
		return fmt.Errorf("notifier down")
	}
	n.channel = append(n.channel, channelRef+": "+text)
	return nil
}

func (n *recordingNotifier) PostAuditLog(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failAll {
		return fmt.Errorf("notifier down")
	}
	n.audit = append(n.audit, text)
	return nil
}

func (n *recordingNotifier) PostImportantLog(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failAll {
		return fmt.Errorf("notifier down")
	}
	n.important = append(n.important, text)
	return nil
}

func (n *recordingNotifier) counts() (channel, audit, important int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.channel), len(n.audit), len(n.important)
}

// recordingMessenger captures thread operations and can fail creation after
// a set number of successes.
type recordingMessenger struct {
	mu            sync.Mutex
	created       []string
	archived      []string
	deleted       []string
	revoked       []string
	updated       []string
	failCreateAt  int
	createCounter int
}

func (m *recordingMessenger) CreateThread(_ context.Context, name, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCounter++
	if m.failCreateAt > 0 && m.createCounter >= m.failCreateAt {
		return "", fmt.Errorf("thread creation failed")
	}
	ref := fmt.Sprintf("thread-%d", m.createCounter)
	m.created = append(m.created, name)
	return ref, nil
}

func (m *recordingMessenger) ArchiveThread(_ context.Context, threadRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archived = append(m.archived, threadRef)
	return nil
}

func (m *recordingMessenger) DeleteThread(_ context.Context, threadRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, threadRef)
	return nil
}

func (m *recordingMessenger) RevokeThreadAccess(_ context.Context, threadRef, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked = append(m.revoked, threadRef+":"+externalID)
	return nil
}

func (m *recordingMessenger) UpdateInstructions(_ context.Context, threadRef, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, threadRef)
	return nil
}
