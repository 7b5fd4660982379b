package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/memberdesk/memberdesk/internal/auth"
)

// NewLoginCmd creates the login command
func NewLoginCmd(factory EnvFactory) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as a super admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(factory, cmd, func(env *Env) error {
				return runLogin(cmd, env, email, password)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address or phone number (or set MEMBERDESK_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set MEMBERDESK_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, env *Env, email, password string) error {
	// Environment variables are handy for CI
	if email == "" {
		email = os.Getenv("MEMBERDESK_EMAIL")
	}
	if password == "" {
		password = os.Getenv("MEMBERDESK_PASSWORD")
	}

	if email == "" {
		return errors.New("email is required (use --email flag or MEMBERDESK_EMAIL env var)")
	}

	if password == "" {
		if !env.Interactive {
			return errors.New("password is required in non-interactive mode (use --password flag or MEMBERDESK_PASSWORD env var)")
		}
		fmt.Fprint(env.Out, "Password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(raw)
		fmt.Fprintln(env.Out)
	}

	fmt.Fprintf(env.Out, "Logging in to %s...\n", env.API.BaseURL())

	user, err := env.Session.Login(cmd.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrAccessDenied) {
			return err
		}
		return fmt.Errorf("login failed: %w", explain(err))
	}

	fmt.Fprintln(env.Out, "✓ Login successful!")
	fmt.Fprintf(env.Out, "  User: %s (%s)\n", user.Name, user.Email)
	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(factory EnvFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(factory, cmd, func(env *Env) error {
				env.Session.Logout(cmd.Context())
				fmt.Fprintln(env.Out, "✓ Logged out")
				return nil
			})
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(factory EnvFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Verify the stored session and show the signed-in admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(factory, cmd, func(env *Env) error {
				st := env.Session.CheckAuth(cmd.Context())
				if !st.IsAuthenticated {
					if st.Error != "" {
						return errors.New(st.Error)
					}
					return errors.New("not logged in. Run 'memberdesk login' first")
				}

				printFields(env.Out,
					"Name", st.User.Name,
					"Email", st.User.Email,
					"Role", string(st.User.Role),
					"Member ID", str(st.User.MemberID),
					"API", env.API.BaseURL(),
				)
				return nil
			})
		},
	}
}
