package devices

import (
	"context"
	"encoding/json"
	"os/exec"

	"github.com/go-logr/logr"

	"github.com/BMO568/vscode-cordova/internal/apperr"
	"github.com/BMO568/vscode-cordova/pkg/process"
)

// simctlDeviceList mirrors the JSON shape of `xcrun simctl list devices`.
type simctlDeviceList struct {
	Devices map[string][]simctlDevice `json:"devices"`
}

type simctlDevice struct {
	UDID        string `json:"udid"`
	Name        string `json:"name"`
	State       string `json:"state"` // "Booted", "Shutdown", ...
	IsAvailable bool   `json:"isAvailable"`
}

// NewIOSManager returns a Manager whose inventory comes from the simulator
// listing. Physical iOS devices are not enumerable this way and rely on
// external tooling. Preparation boots a simulator that is not running yet,
// since a shut-down simulator cannot accept an app deploy.
func NewIOSManager(executor process.Executor, chooser Chooser, log logr.Logger) Manager {
	iosLog := log.WithName("ios-targets")

	return &snapshotManager{
		log:     iosLog,
		chooser: chooser,
		collect: func(ctx context.Context) ([]Target, error) {
			cmd := exec.Command("xcrun", "simctl", "list", "devices", "--json")
			res, err := executor.Run(ctx, cmd)
			if err != nil {
				if process.IsSpawnError(err) {
					return nil, apperr.Spawnf("xcrun not found; install Xcode command line tools (%v)", err)
				}
				return nil, apperr.Discoveryf("listing simulators failed: %v", err)
			}

			var list simctlDeviceList
			if err := json.Unmarshal(res.Stdout.Bytes(), &list); err != nil {
				return nil, apperr.Discoveryf("could not parse simulator list: %v", err)
			}

			var targets []Target
			for _, runtimeDevices := range list.Devices {
				for _, d := range runtimeDevices {
					if !d.IsAvailable {
						continue
					}
					targets = append(targets, Target{
						ID:      d.UDID,
						Name:    d.Name,
						Online:  d.State == "Booted",
						Virtual: true,
					})
				}
			}
			return targets, nil
		},
		prepare: func(ctx context.Context, t *Target) error {
			if t.Online {
				return nil
			}
			iosLog.Info("booting simulator", "name", t.Name, "udid", t.ID)
			cmd := exec.Command("xcrun", "simctl", "boot", t.ID)
			if _, err := executor.Run(ctx, cmd); err != nil {
				return apperr.Discoveryf("could not boot simulator '%s': %v", t.Name, err)
			}
			t.Online = true
			return nil
		},
	}
}
