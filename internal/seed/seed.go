// Package seed applies a YAML fixture file to the roster database at
// startup. It exists for fresh deployments and local development: known
// users and cleaning templates can be provisioned before the first
// membership sync or manager action arrives.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/cleaning-roster/internal/persistence"
)

// File is the root of the seed document.
type File struct {
	Users     []UserSeed     `yaml:"users"`
	Templates []TemplateSeed `yaml:"templates"`
}

// UserSeed describes one member to upsert.
type UserSeed struct {
	ExternalID  string `yaml:"external_id"`
	DisplayName string `yaml:"display_name"`
	HasRole     bool   `yaml:"has_role"`
}

// TemplateSeed describes one cleaning template. ID is fixed in the file so
// that re-running the seed updates the same row instead of duplicating it.
type TemplateSeed struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Place           string `yaml:"place"`
	Instructions    string `yaml:"instructions"`
	MaxParticipants int    `yaml:"max_participants"`
}

// Summary counts what an Apply run touched.
type Summary struct {
	Users            int
	TemplatesCreated int
	TemplatesUpdated int
}

// Load reads and validates a seed file.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("seed: read %s: %w", path, err)
	}
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return File{}, fmt.Errorf("seed: parse %s: %w", path, err)
	}
	if err := file.validate(); err != nil {
		return File{}, fmt.Errorf("seed: %s: %w", path, err)
	}
	return file, nil
}

func (f File) validate() error {
	var problems []string
	for i, user := range f.Users {
		if strings.TrimSpace(user.ExternalID) == "" {
			problems = append(problems, fmt.Sprintf("users[%d]: external_id is required", i))
		}
	}
	for i, template := range f.Templates {
		if strings.TrimSpace(template.ID) == "" {
			problems = append(problems, fmt.Sprintf("templates[%d]: id is required", i))
		}
		if strings.TrimSpace(template.Name) == "" {
			problems = append(problems, fmt.Sprintf("templates[%d]: name is required", i))
		}
		if strings.TrimSpace(template.Place) == "" {
			problems = append(problems, fmt.Sprintf("templates[%d]: place is required", i))
		}
		if template.MaxParticipants < 1 {
			problems = append(problems, fmt.Sprintf("templates[%d]: max_participants must be at least 1", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// Apply upserts the seeded users and templates. Users go through the same
// conditional upsert as a membership sync; templates are created when their
// fixed ID is unknown and updated in place otherwise, so Apply is safe to
// run on every startup.
func Apply(ctx context.Context, gateway persistence.Gateway, file File, idGenerator func() string, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var summary Summary
	for _, user := range file.Users {
		result, err := gateway.UpsertUser(ctx, persistence.User{
			ID:          idGenerator(),
			ExternalID:  strings.TrimSpace(user.ExternalID),
			DisplayName: user.DisplayName,
			HasRole:     user.HasRole,
		})
		if err != nil {
			return summary, fmt.Errorf("seed: upsert user %s: %w", user.ExternalID, err)
		}
		if result.Changed() {
			summary.Users++
		}
	}

	for _, template := range file.Templates {
		record := persistence.Template{
			ID:              template.ID,
			Name:            strings.TrimSpace(template.Name),
			Place:           strings.TrimSpace(template.Place),
			Instructions:    template.Instructions,
			MaxParticipants: template.MaxParticipants,
		}
		existing, err := gateway.TemplateByID(ctx, template.ID)
		if err != nil {
			return summary, fmt.Errorf("seed: look up template %s: %w", template.ID, err)
		}
		if existing == nil {
			if _, err := gateway.CreateTemplate(ctx, record); err != nil {
				return summary, fmt.Errorf("seed: create template %s: %w", template.ID, err)
			}
			summary.TemplatesCreated++
			continue
		}
		if _, err := gateway.UpdateTemplate(ctx, record); err != nil {
			return summary, fmt.Errorf("seed: update template %s: %w", template.ID, err)
		}
		summary.TemplatesUpdated++
	}

	logger.InfoContext(ctx, "seed applied",
		"users", summary.Users,
		"templates_created", summary.TemplatesCreated,
		"templates_updated", summary.TemplatesUpdated,
	)
	return summary, nil
}
