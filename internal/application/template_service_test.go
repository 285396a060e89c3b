package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/cleaning-roster/internal/persistence"
)

func TestCreateTemplateValidatesInput(t *testing.T) {
	t.Parallel()

	service := NewTemplateService(&gatewayStub{}, &gatewayStub{}, nil, nil, func() string { return "template-1" }, nil)

	_, err := service.CreateTemplate(context.Background(), TemplateInput{
		Name:            " ",
		Place:           "",
		MaxParticipants: 0,
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"name", "place", "max_participants"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected field error for %s, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestCreateTemplateTrimsAndAudits(t *testing.T) {
	t.Parallel()

	var stored persistence.Template
	gateway := &gatewayStub{
		createTemplateFn: func(_ context.Context, template persistence.Template) (persistence.Change, error) {
			stored = template
			return persistence.Change{Count: 1, NewID: template.ID}, nil
		},
	}
	notifier := &recordingNotifier{}
	service := NewTemplateService(gateway, gateway, nil, notifier, func() string { return "template-1" }, nil)

	template, err := service.CreateTemplate(context.Background(), TemplateInput{
		Name:            "  Kitchen  ",
		Place:           " Ground floor ",
		Instructions:    " Mop everything. ",
		MaxParticipants: 3,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if template.ID != "template-1" || stored.Name != "Kitchen" || stored.Place != "Ground floor" {
		t.Fatalf("unexpected stored template: %+v", stored)
	}
	if _, audit, _ := notifier.counts(); audit != 1 {
		t.Fatalf("expected one audit line, got %d", audit)
	}
}

func TestUpdateTemplateUnknownID(t *testing.T) {
	t.Parallel()

	service := NewTemplateService(&gatewayStub{}, &gatewayStub{}, nil, nil, nil, nil)

	_, err := service.UpdateTemplate(context.Background(), "template-ghost", TemplateInput{
		Name:            "Kitchen",
		Place:           "Ground floor",
		MaxParticipants: 2,
	})
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestUpdateTemplatePropagatesInstructionChanges(t *testing.T) {
	t.Parallel()

	gateway := &gatewayStub{
		templateByIDFn: func(context.Context, string) (*persistence.Template, error) {
			return &persistence.Template{ID: "template-1", Instructions: "Old instructions."}, nil
		},
		listForTemplateFn: func(context.Context, string) ([]persistence.InstanceDetail, error) {
			return []persistence.InstanceDetail{
				{Instance: persistence.Instance{ID: "instance-1", ThreadRef: "thread-1"}},
				{Instance: persistence.Instance{ID: "instance-2", ThreadRef: ""}},
				{Instance: persistence.Instance{ID: "instance-3", ThreadRef: "thread-3"}},
			}, nil
		},
	}
	messenger := &recordingMessenger{}
	service := NewTemplateService(gateway, gateway, messenger, nil, nil, nil)

	_, err := service.UpdateTemplate(context.Background(), "template-1", TemplateInput{
		Name:            "Kitchen",
		Place:           "Ground floor",
		Instructions:    "New instructions.",
		MaxParticipants: 2,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if len(messenger.updated) != 2 {
		t.Fatalf("expected instruction updates for the two threads, got %v", messenger.updated)
	}
}

func TestUpdateTemplateSkipsPropagationWhenInstructionsUnchanged(t *testing.T) {
	t.Parallel()

	gateway := &gatewayStub{
		templateByIDFn: func(context.Context, string) (*persistence.Template, error) {
			return &persistence.Template{ID: "template-1", Instructions: "Same."}, nil
		},
		listForTemplateFn: func(context.Context, string) ([]persistence.InstanceDetail, error) {
			t.Fatal("instances must not be listed when instructions are unchanged")
			return nil, nil
		},
	}
	messenger := &recordingMessenger{}
	service := NewTemplateService(gateway, gateway, messenger, nil, nil, nil)

	_, err := service.UpdateTemplate(context.Background(), "template-1", TemplateInput{
		Name:            "Kitchen",
		Place:           "Ground floor",
		Instructions:    "Same.",
		MaxParticipants: 2,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
}

func TestDeleteTemplateMapsInUseError(t *testing.T) {
	t.Parallel()

	gateway := &gatewayStub{
		deleteTemplateFn: func(context.Context, string) (persistence.Change, error) {
			return persistence.Change{}, persistence.ErrTemplateInUse
		},
	}
	service := NewTemplateService(gateway, gateway, nil, nil, nil, nil)

	err := service.DeleteTemplate(context.Background(), "template-1")
	if !errors.Is(err, ErrTemplateInUse) {
		t.Fatalf("expected ErrTemplateInUse, got %v", err)
	}
}
