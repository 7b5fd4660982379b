package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/memberdesk/memberdesk/internal/cli/commands"
)

var version = "dev" // Will be set during build

// SetVersion records the build version reported by `memberdesk version`
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// NewRootCmd assembles the command tree around factory
func NewRootCmd(factory commands.EnvFactory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "memberdesk",
		Short: "memberdesk - Super admin console for the membership API",
		Long: `memberdesk CLI - Review membership applications, payments and
self declarations from the terminal.

The session token is kept in the OS keyring, scoped to the configured API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "memberdesk version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd(factory))
	rootCmd.AddCommand(commands.NewLogoutCmd(factory))
	rootCmd.AddCommand(commands.NewWhoamiCmd(factory))
	rootCmd.AddCommand(commands.NewApplicationsCmd(factory))
	rootCmd.AddCommand(commands.NewMembersCmd(factory))
	rootCmd.AddCommand(commands.NewPaymentsCmd(factory))
	rootCmd.AddCommand(commands.NewSelfDeclarationsCmd(factory))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd(commands.DefaultEnv).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
