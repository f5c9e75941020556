// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[milp.Backend]()
//	reg.Register("bnb", func(conf map[string]any) (milp.Backend, error) {
//	    var c struct{ MaxSessions int `json:"max_sessions"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return milp.NewBranchAndBound(c.MaxSessions), nil
//	})
//	b, err := reg.Create(factory.ModuleConfig{Type: "bnb", Conf: map[string]any{"max_sessions": 4}})
package factory
