package devices

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/BMO568/vscode-cordova/internal/apperr"
)

// snapshotManager implements the selection and snapshot logic shared by the
// platform managers. Platforms supply the inventory query (collect) and the
// preparation step (prepare, may be nil).
type snapshotManager struct {
	log     logr.Logger
	chooser Chooser

	collect func(ctx context.Context) ([]Target, error)
	prepare func(ctx context.Context, t *Target) error

	targets   []Target
	collected bool
}

func (m *snapshotManager) CollectTargets(ctx context.Context) error {
	targets, err := m.collect(ctx)
	if err != nil {
		return err
	}
	m.targets = targets
	m.collected = true
	m.log.V(1).Info("collected targets", "count", len(targets))
	return nil
}

func (m *snapshotManager) TargetList(ctx context.Context, filter Filter) ([]Target, error) {
	if !m.collected {
		if err := m.CollectTargets(ctx); err != nil {
			return nil, err
		}
	}

	if filter == nil {
		return m.targets, nil
	}

	var filtered []Target
	for _, t := range m.targets {
		if filter(t) {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

func (m *snapshotManager) SelectAndPrepareTarget(ctx context.Context, filter Filter) (*Selection, error) {
	candidates, err := m.TargetList(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, apperr.Resolutionf("no matching target found")
	}

	var chosen Target
	switch {
	case len(candidates) == 1:
		chosen = candidates[0]

	case m.chooser != nil:
		labels := make([]string, len(candidates))
		for i, c := range candidates {
			labels[i] = c.Label()
		}
		index, ok, chooseErr := m.chooser.Choose(ctx, "Select a target device", labels)
		if chooseErr != nil {
			return nil, chooseErr
		}
		if !ok {
			return nil, context.Canceled
		}
		chosen = candidates[index]

	default:
		// No explicit target requested and nobody to ask: take the first
		// online target in bridge-reported order (devices come before
		// emulators by convention of the underlying tool).
		chosen = candidates[0]
	}

	if m.prepare != nil {
		if err := m.prepare(ctx, &chosen); err != nil {
			return nil, err
		}
	}

	return &Selection{
		Target:    chosen,
		Ambiguous: countSameClass(candidates, chosen.Virtual) > 1,
	}, nil
}

func (m *snapshotManager) IsVirtualTarget(ctx context.Context, idOrName string) (bool, error) {
	matches, err := m.TargetList(ctx, ByIDOrName(idOrName))
	if err != nil {
		return false, err
	}
	if len(matches) == 0 {
		return false, apperr.Resolutionf("no target matches '%s'", idOrName)
	}
	return matches[0].Virtual, nil
}

func countSameClass(targets []Target, virtual bool) int {
	n := 0
	for _, t := range targets {
		if t.Virtual == virtual {
			n++
		}
	}
	return n
}
