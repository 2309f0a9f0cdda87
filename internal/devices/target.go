// Package devices provides the device/emulator inventory and selection logic
// used to resolve which target a launch or attach session operates on.
package devices

import (
	"context"
)

// Target is a snapshot of one device or emulator known to the platform
// tooling. Identity is ID; Name is a secondary human-chosen key used when
// the ID is not known ahead of time. A Target becomes stale after any
// external device state change and must be re-collected per orchestration
// run; it is never mutated in place, only replaced.
type Target struct {
	ID      string
	Name    string
	Online  bool
	Virtual bool
}

// Label returns the human-readable identifier used in selection prompts.
func (t Target) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// Filter narrows a target list. A nil Filter admits every target.
type Filter func(Target) bool

// OnlineOnly admits targets the platform reports as ready for commands.
func OnlineOnly(t Target) bool {
	return t.Online
}

// ByIDOrName admits the target whose ID or Name equals the selector.
func ByIDOrName(selector string) Filter {
	return func(t Target) bool {
		return t.ID == selector || t.Name == selector
	}
}

// And combines filters; all must admit the target.
func And(filters ...Filter) Filter {
	return func(t Target) bool {
		for _, f := range filters {
			if f != nil && !f(t) {
				return false
			}
		}
		return true
	}
}

// Chooser is the injected interactive disambiguation collaborator. Given an
// ordered list of human-readable labels it returns the index of the chosen
// one, or ok=false when the user cancelled.
type Chooser interface {
	Choose(ctx context.Context, prompt string, labels []string) (index int, ok bool, err error)
}

// ChooserFunc adapts a plain function to the Chooser interface.
type ChooserFunc func(ctx context.Context, prompt string, labels []string) (int, bool, error)

func (f ChooserFunc) Choose(ctx context.Context, prompt string, labels []string) (int, bool, error) {
	return f(ctx, prompt, labels)
}

// Selection is the result of resolving a target. Ambiguous is true when more
// than one candidate of the chosen target's virtual/physical class existed,
// which is the signal to persist the resolution into launch configuration.
type Selection struct {
	Target    Target
	Ambiguous bool
}

// Manager is the per-platform target inventory.
//
// CollectTargets refreshes the snapshot. TargetList returns the (possibly
// filtered) snapshot, collecting it first if it has never been collected.
// SelectAndPrepareTarget picks a target (auto-selecting a sole candidate,
// delegating to the chooser otherwise) and performs any preparation the
// platform requires, such as booting a simulator.
type Manager interface {
	CollectTargets(ctx context.Context) error
	TargetList(ctx context.Context, filter Filter) ([]Target, error)
	SelectAndPrepareTarget(ctx context.Context, filter Filter) (*Selection, error)
	IsVirtualTarget(ctx context.Context, idOrName string) (bool, error)
}
