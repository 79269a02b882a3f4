package cli

import (
	"context"
	"fmt"
	"strings"

	"llm-stock-prediction/internal/models"
	"llm-stock-prediction/internal/services/auth"
	"llm-stock-prediction/internal/store"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserAddCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [USERNAME]",
		Short: "Create a user, prompting for the password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer log.Sync()

			input, err := promptForUser(args)
			if err != nil {
				return err
			}

			pg, err := connectPostgres(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer pg.Close()

			svc := auth.NewService(auth.ServiceDependencies{
				Logger: log,
				Users:  store.NewUserStore(pg),
			}, auth.DefaultConfig())

			user, err := createUser(cmd.Context(), svc, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
	return cmd
}

type registrar interface {
	Register(ctx context.Context, input *auth.SignupInput) (*models.User, error)
}

// createUser registers input and turns form errors into one readable error.
func createUser(ctx context.Context, svc registrar, input *auth.SignupInput) (*models.User, error) {
	user, err := svc.Register(ctx, input)
	if err == nil {
		return user, nil
	}
	fe := auth.FieldErrorsOf(err)
	if len(fe) == 0 {
		return nil, err
	}
	var parts []string
	for _, field := range []string{"", "username", "password1", "password2"} {
		for _, msg := range fe[field] {
			if field == "" {
				parts = append(parts, msg)
			} else {
				parts = append(parts, field+": "+msg)
			}
		}
	}
	return nil, fmt.Errorf("user not created: %s", strings.Join(parts, "; "))
}

func promptForUser(args []string) (*auth.SignupInput, error) {
	input := &auth.SignupInput{}
	if len(args) == 1 {
		input.Username = args[0]
	} else {
		err := survey.AskOne(&survey.Input{Message: "Username:"}, &input.Username,
			survey.WithValidator(survey.Required))
		if err != nil {
			return nil, err
		}
	}

	if err := survey.AskOne(&survey.Password{Message: "Password:"}, &input.Password1,
		survey.WithValidator(survey.MinLength(8))); err != nil {
		return nil, err
	}
	if err := survey.AskOne(&survey.Password{Message: "Password (again):"}, &input.Password2,
		survey.WithValidator(survey.Required)); err != nil {
		return nil, err
	}
	return input, nil
}
