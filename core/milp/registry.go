package milp

import "github.com/kilianp07/actsched/core/factory"

var backendRegistry = factory.NewRegistry[Backend]()

// RegisterBackend adds a backend factory identified by name.
func RegisterBackend(name string, f factory.Factory[Backend]) error {
	return backendRegistry.Register(name, f)
}

// BackendNames lists the registered backends.
func BackendNames() []string { return backendRegistry.Names() }

// NewBackend creates the backend described by cfg.
func NewBackend(cfg factory.ModuleConfig) (Backend, error) {
	return backendRegistry.Create(cfg)
}

// BranchAndBoundConfig configures the "bnb" backend.
type BranchAndBoundConfig struct {
	MaxSessions int `json:"max_sessions"`
}

func init() {
	_ = RegisterBackend("bnb", func(conf map[string]any) (Backend, error) {
		var c BranchAndBoundConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewBranchAndBound(c.MaxSessions), nil
	})
}
