package subscription

import (
	"fmt"

	"github.com/roach88/baboon/internal/action"
	"github.com/roach88/baboon/internal/topic"
)

// Setup is implemented by application components. Declare registers the
// component's members; Subscribe binds them to topics. All Declare calls
// run before any Subscribe call.
type Setup interface {
	Declare(cat *action.Catalog)
	Subscribe(m *Manager) error
}

// Build runs the setup phase of every component and returns the sealed
// snapshot.
func Build(reg *topic.Registry, setups ...Setup) (*Snapshot, error) {
	cat := action.NewCatalog()
	for _, s := range setups {
		s.Declare(cat)
	}
	if err := cat.Err(); err != nil {
		return nil, fmt.Errorf("declare members: %w", err)
	}

	m := NewManager(reg, cat)
	for i, s := range setups {
		if err := s.Subscribe(m); err != nil {
			return nil, fmt.Errorf("setup %d (%T): %w", i, s, err)
		}
	}
	return m.Snapshot()
}
