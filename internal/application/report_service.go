package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/example/cleaning-roster/internal/dates"
	"github.com/example/cleaning-roster/internal/persistence"
)

// maxInstructionLength bounds the instruction column in the template report.
const maxInstructionLength = 80

// ReportService renders the plain-text overview reports.
type ReportService struct {
	users     persistence.UserRepository
	templates persistence.TemplateRepository
	instances persistence.InstanceRepository
	logger    *slog.Logger
}

// NewReportService constructs a report service with the provided
// dependencies.
func NewReportService(users persistence.UserRepository, templates persistence.TemplateRepository, instances persistence.InstanceRepository, logger *slog.Logger) *ReportService {
	return &ReportService{
		users:     users,
		templates: templates,
		instances: instances,
		logger:    defaultLogger(logger),
	}
}

// UserAssignments collects, per user, the cleanings joined within span,
// sorted by ascending assignment count.
func (s *ReportService) UserAssignments(ctx context.Context, span dates.Span) ([]UserAssignments, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapGatewayError(err)
	}
	details, err := s.instances.ListInstances(ctx, span)
	if err != nil {
		return nil, mapGatewayError(err)
	}

	byExternalID := make(map[string][]string, len(users))
	for _, user := range users {
		byExternalID[user.ExternalID] = nil
	}
	for _, detail := range details {
		for _, participant := range detail.Participants {
			if _, known := byExternalID[participant.ExternalID]; known {
				byExternalID[participant.ExternalID] = append(byExternalID[participant.ExternalID], detail.ID)
			}
		}
	}

	assignments := make([]UserAssignments, 0, len(users))
	for _, user := range users {
		assignments = append(assignments, UserAssignments{
			User:        user,
			InstanceIDs: byExternalID[user.ExternalID],
		})
	}
	sort.SliceStable(assignments, func(i, j int) bool {
		return len(assignments[i].InstanceIDs) < len(assignments[j].InstanceIDs)
	})
	return assignments, nil
}

// UserReport renders the assignment listing for span, members carrying the
// cleaning role first, the rest below a divider.
func (s *ReportService) UserReport(ctx context.Context, span dates.Span) (string, error) {
	assignments, err := s.UserAssignments(ctx, span)
	if err != nil {
		return "", err
	}

	var withRole, withoutRole []string
	for _, a := range assignments {
		line := formatAssignmentLine(a)
		if a.User.HasRole {
			withRole = append(withRole, line)
		} else {
			withoutRole = append(withoutRole, line)
		}
	}

	lines := make([]string, 0, len(assignments)+2)
	lines = append(lines, "All users and their assigned cleanings:")
	lines = append(lines, withRole...)
	lines = append(lines, "---------------- NO CLEANING ROLE ----------------")
	lines = append(lines, withoutRole...)
	return strings.Join(lines, "\n"), nil
}

func formatAssignmentLine(a UserAssignments) string {
	ids := "none"
	if len(a.InstanceIDs) > 0 {
		ids = strings.Join(a.InstanceIDs, ", ")
	}
	return fmt.Sprintf("%d | %s (%s): %s", len(a.InstanceIDs), a.User.DisplayName, a.User.ExternalID, ids)
}

// TemplateReport renders one line per template with its capacity and a
// whitespace-collapsed, truncated instruction preview.
func (s *ReportService) TemplateReport(ctx context.Context) (string, error) {
	templates, err := s.templates.ListTemplates(ctx)
	if err != nil {
		return "", mapGatewayError(err)
	}

	lines := make([]string, 0, len(templates)+1)
	lines = append(lines, "Cleaning templates:")
	for _, template := range templates {
		lines = append(lines, fmt.Sprintf("%s | %s | %s | max:%d | %s",
			template.ID, template.Name, template.Place, template.MaxParticipants,
			previewInstructions(template.Instructions),
		))
	}
	return strings.Join(lines, "\n"), nil
}

func previewInstructions(instructions string) string {
	collapsed := strings.Join(strings.Fields(instructions), " ")
	if collapsed == "" {
		return "no instructions"
	}
	// Truncate on rune boundaries: instructions carry accented text and a
	// byte slice could cut a character in half.
	runes := []rune(collapsed)
	if len(runes) > maxInstructionLength {
		return string(runes[:maxInstructionLength-3]) + "..."
	}
	return collapsed
}
