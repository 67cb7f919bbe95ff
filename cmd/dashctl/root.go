package main

import (
	"log/slog"
	"os"

	"voice-dashboard/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// settings resolves flag values with environment fallbacks.
type settings struct {
	v       *viper.Viper
	verbose bool
}

func (s *settings) logger() *slog.Logger {
	if s.verbose {
		return logger.NewWithWriter("dev", os.Stderr)
	}
	return logger.Discard()
}

func newRootCommand() *cobra.Command {
	s := &settings{v: viper.New()}

	root := &cobra.Command{
		Use:           "dashctl",
		Short:         "Voice dashboard operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&s.verbose, "verbose", "v", false, "Log upstream requests to stderr")

	root.AddCommand(newChatCommand(s))
	root.AddCommand(newTestCallCommand(s))
	root.AddCommand(newRoomTokenCommand(s))
	return root
}

// bindFlags lets env vars fill flags the user did not set. Bindings are
// applied when cmd runs, so subcommands may share flag names.
func (s *settings) bindFlags(cmd *cobra.Command, envs map[string]string) {
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		for flag, env := range envs {
			if err := s.v.BindPFlag(flag, cmd.Flags().Lookup(flag)); err != nil {
				return err
			}
			if err := s.v.BindEnv(flag, env); err != nil {
				return err
			}
		}
		return nil
	}
}
