package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/localnerve/sheetsdb/internal/config"
	"github.com/localnerve/sheetsdb/internal/database"
	"github.com/localnerve/sheetsdb/internal/logger"
	"github.com/localnerve/sheetsdb/internal/models"
	"github.com/localnerve/sheetsdb/internal/services"
	"github.com/localnerve/sheetsdb/internal/sheets"
)

// seedFile is the TOML layout read by the seed command.
//
//	[[project]]
//	user_id = "user-1"
//	name = "Shop"
//	spreadsheet = "https://docs.google.com/spreadsheets/d/<id>/edit"
//
//	[project.methods]
//	Products = ["GET", "POST"]
//
//	[project.auth]
//	type = "bearer"
//	token = "secret"
type seedFile struct {
	Projects []seedProject `toml:"project"`
}

type seedProject struct {
	UserID       string              `toml:"user_id"`
	Name         string              `toml:"name"`
	Spreadsheet  string              `toml:"spreadsheet"`
	RefreshToken string              `toml:"refresh_token"`
	Methods      map[string][]string `toml:"methods"`
	Auth         *seedAuth           `toml:"auth"`
}

type seedAuth struct {
	Type     string `toml:"type"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Token    string `toml:"token"`
}

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Register the projects described in a TOML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read seed file: %w", err)
			}

			var seeds seedFile
			if err := toml.Unmarshal(b, &seeds); err != nil {
				return fmt.Errorf("failed to parse seed file: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := logger.Setup(cfg); err != nil {
				return err
			}

			db, err := database.Connect(cfg)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.AutoMigrate(db); err != nil {
				return err
			}

			store, err := sheets.New(cfg)
			if err != nil {
				return err
			}

			projects, err := seedProjects(cmd.Context(), db, store, seeds)
			for _, p := range projects {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d sheets\n", p.ID, p.Name, len(p.Endpoints))
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "projects.toml", "Seed file path")
	return cmd
}

// seedProjects creates every project in order and stops at the first failure
func seedProjects(ctx context.Context, db *gorm.DB, store sheets.Store, seeds seedFile) ([]*models.Project, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	created := make([]*models.Project, 0, len(seeds.Projects))
	for i, seed := range seeds.Projects {
		if seed.UserID == "" {
			return created, fmt.Errorf("project %d: user_id is required", i+1)
		}

		in := services.CreateProjectInput{Name: seed.Name, RefreshToken: seed.RefreshToken}
		if strings.HasPrefix(seed.Spreadsheet, "http") {
			in.SpreadsheetURL = seed.Spreadsheet
		} else {
			in.SpreadsheetID = seed.Spreadsheet
		}

		project, err := services.CreateProject(ctx, db, store, seed.UserID, in)
		if err != nil {
			return created, fmt.Errorf("project %q: %w", seed.Name, err)
		}

		for sheetName, verbs := range seed.Methods {
			if err := applyMethods(db, project, sheetName, verbs); err != nil {
				return created, fmt.Errorf("project %q: %w", seed.Name, err)
			}
		}

		if seed.Auth != nil {
			_, err := services.UpdateProjectAuthConfig(db, seed.UserID, project.ID, services.AuthConfigInput{
				Type: strings.ToLower(seed.Auth.Type),
				Config: models.AuthSettings{
					Username: seed.Auth.Username,
					Password: seed.Auth.Password,
					Token:    seed.Auth.Token,
				},
			})
			if err != nil {
				return created, fmt.Errorf("project %q: %w", seed.Name, err)
			}
		}

		log.WithFields(log.Fields{"project": project.ID, "name": project.Name}).Info("Seeded project")
		created = append(created, project)
	}

	return created, nil
}

// applyMethods sets exactly the listed verbs on a sheet's endpoint
func applyMethods(db *gorm.DB, project *models.Project, sheetName string, verbs []string) error {
	endpoint, ok := lo.Find(project.Endpoints, func(e models.Endpoint) bool {
		return e.SheetName == sheetName
	})
	if !ok {
		return fmt.Errorf("sheet %q not found in spreadsheet", sheetName)
	}

	verbs = lo.Map(verbs, func(v string, _ int) string { return strings.ToUpper(v) })
	for _, verb := range []string{"GET", "POST", "PUT", "DELETE"} {
		enabled := lo.Contains(verbs, verb)
		if _, err := services.ToggleEndpointMethod(db, project.UserID, project.ID, endpoint.ID, services.ToggleMethodInput{
			Method:  verb,
			Enabled: &enabled,
		}); err != nil {
			return err
		}
	}
	return nil
}
