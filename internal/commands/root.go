package commands

import (
	"github.com/spf13/cobra"

	"github.com/BMO568/vscode-cordova/pkg/logger"
)

// NewRootCmd builds the CLI command tree.
func NewRootCmd(log *logger.Logger) (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:           "cordova-dbg",
		Short:         "Launches and attaches debug sessions for Cordova/Ionic mobile apps.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	log.AddLevelFlag(rootCmd.PersistentFlags())

	for _, builder := range []func(*logger.Logger) (*cobra.Command, error){
		NewLaunchCommand,
		NewAttachCommand,
		NewDevicesCommand,
		NewInfoCommand,
		NewVersionCommand,
	} {
		cmd, err := builder(log)
		if err != nil {
			return nil, err
		}
		rootCmd.AddCommand(cmd)
	}

	return rootCmd, nil
}
