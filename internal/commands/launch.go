package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BMO568/vscode-cordova/internal/adb"
	"github.com/BMO568/vscode-cordova/internal/apperr"
	"github.com/BMO568/vscode-cordova/internal/devices"
	"github.com/BMO568/vscode-cordova/internal/launchcfg"
	"github.com/BMO568/vscode-cordova/internal/output"
	"github.com/BMO568/vscode-cordova/internal/session"
	"github.com/BMO568/vscode-cordova/pkg/logger"
	"github.com/BMO568/vscode-cordova/pkg/process"
)

type sessionFlags struct {
	platform    string
	simulate    bool
	target      string
	configName  string
	projectRoot string
	tool        string
	toolMajor   int
	localPort   int
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.platform, "platform", "p", "", "Target platform: android, ios, or browser.")
	cmd.Flags().BoolVar(&f.simulate, "simulate", false, "Simulate the app in the browser instead of a device.")
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "Device or emulator id/name to use.")
	cmd.Flags().StringVar(&f.configName, "config", "", "Launch configuration name used for target persistence.")
	cmd.Flags().StringVar(&f.projectRoot, "project-root", ".", "Root directory of the app project.")
	cmd.Flags().StringVar(&f.tool, "tool", "ionic", "Build-and-run tool to drive.")
	cmd.Flags().IntVar(&f.toolMajor, "tool-major-version", 0, "Major version of the tool, used to tune output classification.")
	cmd.Flags().IntVar(&f.localPort, "local-port", 0, "Local port for the debug channel (allocated automatically when 0).")
	_ = cmd.MarkFlagRequired("platform")
}

func (f *sessionFlags) params() session.Params {
	return session.Params{
		Platform:         f.platform,
		Simulate:         f.simulate,
		Target:           f.target,
		ConfigName:       f.configName,
		ProjectRoot:      f.projectRoot,
		Tool:             f.tool,
		ToolMajorVersion: f.toolMajor,
		LocalPort:        f.localPort,
	}
}

func buildDependencies(log *logger.Logger, cfg *launchcfg.Store) session.Dependencies {
	executor := process.NewOSExecutor(log.Logger)
	bridge := adb.NewBridge(executor, log.Logger)
	chooser := consoleChooser{}

	return session.Dependencies{
		Executor:       executor,
		Bridge:         bridge,
		AndroidTargets: devices.NewAndroidManager(bridge, chooser, log.Logger),
		IOSTargets:     devices.NewIOSManager(executor, chooser, log.Logger),
		Config:         cfg,
		Output:         output.ConsoleSink{},
	}
}

func NewLaunchCommand(log *logger.Logger) (*cobra.Command, error) {
	flags := &sessionFlags{}
	var (
		liveReload      bool
		envFiles        []string
		serverReadySecs int
		appReadySecs    int
	)

	launchCmd := &cobra.Command{
		Use:   "launch [-- tool args...]",
		Short: "Builds, deploys and runs the app on the resolved target.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			params := flags.params()
			params.LiveReload = liveReload
			params.EnvFiles = envFiles
			params.RunArgs = args
			params.ServerReadyTimeout = time.Duration(serverReadySecs) * time.Second
			params.AppReadyTimeout = time.Duration(appReadySecs) * time.Second

			cfg := launchcfg.NewStore(params.ProjectRoot, log.Logger)
			s := session.New(params, buildDependencies(log, cfg), log.Logger)

			// Cleanup must run to completion even though ctx is already
			// cancelled on the Ctrl+C path.
			cleanupCtx := context.WithoutCancel(ctx)

			err := s.Launch(ctx)
			if apperr.IsCancellation(err) {
				// An externally requested abort is not a failure.
				return s.Terminate(cleanupCtx)
			}
			if err != nil {
				return err
			}

			// Pick up edits to the launch configuration made while the
			// session is active.
			if err := cfg.Watch(ctx); err != nil {
				log.Logger.V(1).Info("launch configuration watch unavailable", "reason", err.Error())
			}

			fmt.Println("Launch completed. Press Ctrl+C to stop.")
			<-ctx.Done()
			return s.Terminate(cleanupCtx)
		},
	}

	flags.register(launchCmd)
	launchCmd.Flags().BoolVar(&liveReload, "livereload", false, "Serve the app with live reload through the dev server.")
	launchCmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "Env file(s) merged into the dev server environment.")
	launchCmd.Flags().IntVar(&serverReadySecs, "server-ready-timeout", 0, "Seconds to wait for the dev server to report readiness (0 = default).")
	launchCmd.Flags().IntVar(&appReadySecs, "app-ready-timeout", 0, "Seconds to wait for the app deploy to complete (0 = default).")

	return launchCmd, nil
}
