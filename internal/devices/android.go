package devices

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/BMO568/vscode-cordova/internal/adb"
)

// NewAndroidManager returns a Manager whose inventory comes from the device
// bridge. "Online" means the bridge reports the device as ready for commands;
// emulators are identified by their bridge serial prefix. Emulators that are
// listed are already booted, so no extra preparation is needed.
func NewAndroidManager(bridge *adb.Bridge, chooser Chooser, log logr.Logger) Manager {
	return &snapshotManager{
		log:     log.WithName("android-targets"),
		chooser: chooser,
		collect: func(ctx context.Context) ([]Target, error) {
			entries, err := bridge.Devices(ctx)
			if err != nil {
				return nil, err
			}

			targets := make([]Target, 0, len(entries))
			for _, e := range entries {
				name := e.Model
				if name == "" {
					name = e.ID
				}
				targets = append(targets, Target{
					ID:      e.ID,
					Name:    name,
					Online:  e.Online(),
					Virtual: e.Virtual(),
				})
			}
			return targets, nil
		},
	}
}
