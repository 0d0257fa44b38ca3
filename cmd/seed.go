package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"event-hosting/internal/services"
	"event-hosting/models"
)

type seedFile struct {
	Organizer struct {
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"organizer"`
	Events []models.EventForm `yaml:"events"`
}

// NewSeedCommand creates the events listed in a YAML file.
func NewSeedCommand(app core.App, auth *services.AuthService, events *services.EventService) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Create events from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.RunAllMigrations(); err != nil {
				return fmt.Errorf("seed: migrations: %w", err)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			defer f.Close()

			created, err := seedEvents(cmd.Context(), f, auth, events)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d events\n", created)
			return nil
		},
	}
}

// seedEvents validates every event before creating any of them.
func seedEvents(ctx context.Context, r io.Reader, auth *services.AuthService, events *services.EventService) (int, error) {
	var file seedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return 0, fmt.Errorf("seed: parse: %w", err)
	}

	creds := models.Credentials{Email: file.Organizer.Email, Password: file.Organizer.Password}
	creds.Normalize()
	if err := creds.ValidateSignIn(); err != nil {
		return 0, fmt.Errorf("seed: organizer: %w", err)
	}

	for i := range file.Events {
		file.Events[i].Normalize()
		if err := file.Events[i].Validate(); err != nil {
			return 0, fmt.Errorf("seed: event %d (%q): %w", i+1, file.Events[i].Title, err)
		}
	}

	organizer, err := auth.Authorize(ctx, creds.Email, creds.Password)
	if err != nil {
		return 0, fmt.Errorf("seed: organizer: %w", err)
	}

	for i, form := range file.Events {
		if _, err := events.Create(ctx, organizer, form); err != nil {
			return i, fmt.Errorf("seed: create %q: %w", form.Title, err)
		}
	}
	return len(file.Events), nil
}
