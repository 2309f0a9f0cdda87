package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BMO568/vscode-cordova/internal/adb"
	"github.com/BMO568/vscode-cordova/internal/devices"
	"github.com/BMO568/vscode-cordova/pkg/logger"
	"github.com/BMO568/vscode-cordova/pkg/process"
)

func NewDevicesCommand(log *logger.Logger) (*cobra.Command, error) {
	var platform string

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Lists the devices and emulators known to the platform tooling.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			executor := process.NewOSExecutor(log.Logger)

			var manager devices.Manager
			switch platform {
			case "android":
				manager = devices.NewAndroidManager(adb.NewBridge(executor, log.Logger), nil, log.Logger)
			case "ios":
				manager = devices.NewIOSManager(executor, nil, log.Logger)
			default:
				return fmt.Errorf("unknown platform '%s' (expected android or ios)", platform)
			}

			targets, err := manager.TargetList(ctx, nil)
			if err != nil {
				return err
			}

			if len(targets) == 0 {
				fmt.Println("No targets found.")
				return nil
			}

			for _, t := range targets {
				state := "offline"
				if t.Online {
					state = "online"
				}
				kind := "device"
				if t.Virtual {
					kind = "emulator"
				}
				fmt.Printf("%-24s %-28s %-8s %s\n", t.ID, t.Name, state, kind)
			}
			return nil
		},
	}

	devicesCmd.Flags().StringVarP(&platform, "platform", "p", "android", "Platform to list targets for: android or ios.")

	return devicesCmd, nil
}
