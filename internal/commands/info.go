package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BMO568/vscode-cordova/internal/adb"
	"github.com/BMO568/vscode-cordova/internal/version"
	"github.com/BMO568/vscode-cordova/pkg/logger"
	"github.com/BMO568/vscode-cordova/pkg/process"
)

type bridgeInfo struct {
	Installed bool   `json:"installed"`
	Running   bool   `json:"running"`
	Error     string `json:"error,omitempty"`
}

type information struct {
	Version version.VersionOutput `json:"version"`
	Bridge  bridgeInfo            `json:"deviceBridge"`
}

func NewInfoCommand(log *logger.Logger) (*cobra.Command, error) {
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Prints information about the application and its most important dependencies.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			executor := process.NewOSExecutor(log.Logger)
			status := adb.NewBridge(executor, log.Logger).CheckStatus(ctx)

			info := information{
				Version: version.Version(),
				Bridge: bridgeInfo{
					Installed: status.Installed,
					Running:   status.Running,
					Error:     status.Error,
				},
			}

			data, err := json.Marshal(info)
			if err != nil {
				log.Error(err, "could not serialize application information")
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}

	return infoCmd, nil
}

func NewVersionCommand(_ *logger.Logger) (*cobra.Command, error) {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Prints the application version.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.Marshal(version.Version())
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}

	return versionCmd, nil
}
