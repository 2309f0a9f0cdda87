package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BMO568/vscode-cordova/internal/apperr"
	"github.com/BMO568/vscode-cordova/internal/launchcfg"
	"github.com/BMO568/vscode-cordova/internal/session"
	"github.com/BMO568/vscode-cordova/pkg/logger"
)

func NewAttachCommand(log *logger.Logger) (*cobra.Command, error) {
	flags := &sessionFlags{}
	var inspectURL string

	attachCmd := &cobra.Command{
		Use:   "attach",
		Short: "Attaches to an app already running on the resolved target.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			params := flags.params()
			params.InspectURL = inspectURL

			cfg := launchcfg.NewStore(params.ProjectRoot, log.Logger)
			s := session.New(params, buildDependencies(log, cfg), log.Logger)

			// Cleanup must run to completion even though ctx is already
			// cancelled on the Ctrl+C path.
			cleanupCtx := context.WithoutCancel(ctx)

			err := s.Attach(ctx)
			if apperr.IsCancellation(err) {
				return s.Terminate(cleanupCtx)
			}
			if err != nil {
				return err
			}

			fmt.Println("Attach completed. Press Ctrl+C to disconnect.")
			<-ctx.Done()
			return s.Terminate(cleanupCtx)
		},
	}

	flags.register(attachCmd)
	attachCmd.Flags().StringVar(&inspectURL, "inspect-url", "", "Inspectable endpoint for browser-class attach.")

	return attachCmd, nil
}
