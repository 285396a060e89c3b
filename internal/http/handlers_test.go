package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/cleaning-roster/internal/application"
	"github.com/example/cleaning-roster/internal/dates"
	"github.com/example/cleaning-roster/internal/persistence"
)

type rosterServiceStub struct {
	joinFn   func(ctx context.Context, externalID, instanceID string) error
	leaveFn  func(ctx context.Context, externalID, instanceID string) error
	finishFn func(ctx context.Context, externalID, instanceID string) error
	locked   bool
}

func (s *rosterServiceStub) Join(ctx context.Context, externalID, instanceID string) error {
	if s.joinFn != nil {
		return s.joinFn(ctx, externalID, instanceID)
	}
	return nil
}

func (s *rosterServiceStub) Leave(ctx context.Context, externalID, instanceID string) error {
	if s.leaveFn != nil {
		return s.leaveFn(ctx, externalID, instanceID)
	}
	return nil
}

func (s *rosterServiceStub) Finish(ctx context.Context, externalID, instanceID string) error {
	if s.finishFn != nil {
		return s.finishFn(ctx, externalID, instanceID)
	}
	return nil
}

func (s *rosterServiceStub) SetLeaveLock(_ context.Context, locked bool) bool {
	s.locked = locked
	return locked
}

func (s *rosterServiceStub) LeaveLocked() bool { return s.locked }

type scheduleServiceStub struct {
	scheduleFn func(ctx context.Context, input application.ScheduleInput) ([]persistence.InstanceSpec, error)
	byIDFn     func(ctx context.Context, id string) (*persistence.InstanceDetail, error)
	listFn     func(ctx context.Context, span dates.Span) ([]persistence.InstanceDetail, error)
	removeFn   func(ctx context.Context, id string) error
}

func (s *scheduleServiceStub) ScheduleInstances(ctx context.Context, input application.ScheduleInput) ([]persistence.InstanceSpec, error) {
	if s.scheduleFn != nil {
		return s.scheduleFn(ctx, input)
	}
	return nil, nil
}

func (s *scheduleServiceStub) RemoveInstance(ctx context.Context, id string) error {
	if s.removeFn != nil {
		return s.removeFn(ctx, id)
	}
	return nil
}

func (s *scheduleServiceStub) InstanceByID(ctx context.Context, id string) (*persistence.InstanceDetail, error) {
	if s.byIDFn != nil {
		return s.byIDFn(ctx, id)
	}
	return nil, application.ErrInstanceNotFound
}

func (s *scheduleServiceStub) ListInstances(ctx context.Context, span dates.Span) ([]persistence.InstanceDetail, error) {
	if s.listFn != nil {
		return s.listFn(ctx, span)
	}
	return nil, nil
}

func testRouter(roster *rosterServiceStub, schedules *scheduleServiceStub, manager func(http.Handler) http.Handler) http.Handler {
	return NewRouter(RouterConfig{
		Roster:    NewRosterHandler(roster, nil),
		Schedules: NewScheduleHandler(schedules, nil),
		Manager:   manager,
	})
}

func TestJoinEndpointAppliesAction(t *testing.T) {
	t.Parallel()

	var gotExternalID, gotInstanceID string
	roster := &rosterServiceStub{
		joinFn: func(_ context.Context, externalID, instanceID string) error {
			gotExternalID, gotInstanceID = externalID, instanceID
			return nil
		},
	}
	router := testRouter(roster, &scheduleServiceStub{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/cleanings/instance-1/join", strings.NewReader(`{"external_id":"ext-1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotExternalID != "ext-1" || gotInstanceID != "instance-1" {
		t.Fatalf("action saw %q/%q", gotExternalID, gotInstanceID)
	}
}

func TestParticipationErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"capacity", application.ErrCapacityExceeded, http.StatusUnprocessableEntity},
		{"past", application.ErrInstancePast, http.StatusUnprocessableEntity},
		{"locked", application.ErrLeaveLocked, http.StatusUnprocessableEntity},
		{"already joined", application.ErrAlreadyJoined, http.StatusConflict},
		{"finished", application.ErrAlreadyFinished, http.StatusConflict},
		{"unknown user", application.ErrUserNotFound, http.StatusNotFound},
		{"unknown cleaning", application.ErrInstanceNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			roster := &rosterServiceStub{
				joinFn: func(context.Context, string, string) error { return tc.err },
			}
			router := testRouter(roster, &scheduleServiceStub{}, nil)

			req := httptest.NewRequest(http.MethodPost, "/cleanings/instance-1/join", strings.NewReader(`{"external_id":"ext-1"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestJoinRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	router := testRouter(&rosterServiceStub{}, &scheduleServiceStub{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/cleanings/instance-1/join", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestScheduleCreateMapsOverlapToConflict(t *testing.T) {
	t.Parallel()

	schedules := &scheduleServiceStub{
		scheduleFn: func(context.Context, application.ScheduleInput) ([]persistence.InstanceSpec, error) {
			return nil, application.ErrOverlap
		},
	}
	router := testRouter(&rosterServiceStub{}, schedules, nil)

	body := `{"template_id":"template-1","date_start":"2026-02-09","date_end":"2026-02-15","repeat":2}`
	req := httptest.NewRequest(http.MethodPost, "/cleanings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestScheduleCreateReturnsInstances(t *testing.T) {
	t.Parallel()

	schedules := &scheduleServiceStub{
		scheduleFn: func(_ context.Context, input application.ScheduleInput) ([]persistence.InstanceSpec, error) {
			return []persistence.InstanceSpec{
				{ID: "instance-1", TemplateID: input.TemplateID, DateStart: input.DateStart, DateEnd: input.DateEnd, ThreadRef: "thread-1"},
			}, nil
		},
	}
	router := testRouter(&rosterServiceStub{}, schedules, nil)

	body := `{"template_id":"template-1","date_start":"2026-02-09","date_end":"2026-02-15","repeat":1}`
	req := httptest.NewRequest(http.MethodPost, "/cleanings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp scheduleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Instances) != 1 || resp.Instances[0].ID != "instance-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestScheduleCreateRejectsBadDates(t *testing.T) {
	t.Parallel()

	router := testRouter(&rosterServiceStub{}, &scheduleServiceStub{}, nil)

	body := `{"template_id":"template-1","date_start":"09.02.2026","date_end":"2026-02-15","repeat":1}`
	req := httptest.NewRequest(http.MethodPost, "/cleanings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListRequiresRange(t *testing.T) {
	t.Parallel()

	router := testRouter(&rosterServiceStub{}, &scheduleServiceStub{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/cleanings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetCleaningNotFound(t *testing.T) {
	t.Parallel()

	router := testRouter(&rosterServiceStub{}, &scheduleServiceStub{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/cleanings/instance-ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestManagerEndpointsRequireToken(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("manager-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash token: %v", err)
	}
	manager := RequireManager(string(hash), nil)
	router := testRouter(&rosterServiceStub{}, &scheduleServiceStub{}, manager)

	body := func() *strings.Reader { return strings.NewReader(`{"locked":true}`) }

	// No token.
	req := httptest.NewRequest(http.MethodPost, "/lock", body())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	// Wrong token.
	req = httptest.NewRequest(http.MethodPost, "/lock", body())
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong token, got %d", rec.Code)
	}

	// Correct token.
	req = httptest.NewRequest(http.MethodPost, "/lock", body())
	req.Header.Set("Authorization", "Bearer manager-secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with correct token, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp lockResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Locked {
		t.Fatalf("expected the lock engaged, got %+v", resp)
	}
}

func TestPublicEndpointsBypassManagerGuard(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("manager-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash token: %v", err)
	}
	router := testRouter(&rosterServiceStub{}, &scheduleServiceStub{}, RequireManager(string(hash), nil))

	req := httptest.NewRequest(http.MethodPost, "/cleanings/instance-1/join", strings.NewReader(`{"external_id":"ext-1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("join must not require the manager token, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	router := testRouter(&rosterServiceStub{}, &scheduleServiceStub{}, nil)

	req := httptest.NewRequest(http.MethodPut, "/cleanings/instance-1/join", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
