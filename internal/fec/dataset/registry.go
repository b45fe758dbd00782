package dataset

import (
	"github.com/rotisserie/eris"
)

// Registry maps dataset names to their implementations.
type Registry struct {
	datasets map[string]Dataset
	order    []string // insertion order for deterministic iteration
}

// NewRegistry creates a registry populated with the four FEC bulk
// datasets, masters first.
func NewRegistry() *Registry {
	r := &Registry{
		datasets: make(map[string]Dataset),
	}

	r.Register(&Committees{})
	r.Register(&Candidates{})
	r.Register(&Contributions{})
	r.Register(&Transfers{})

	return r
}

// Register adds a dataset to the registry.
func (r *Registry) Register(d Dataset) {
	name := d.Name()
	r.datasets[name] = d
	r.order = append(r.order, name)
}

// Get returns a dataset by name.
func (r *Registry) Get(name string) (Dataset, error) {
	d, ok := r.datasets[name]
	if !ok {
		return nil, eris.Errorf("dataset: unknown dataset %q", name)
	}
	return d, nil
}

// Select returns datasets matching the given criteria. If phase is
// non-nil, only datasets in that phase are returned. If names is
// non-empty, only those named datasets are returned.
func (r *Registry) Select(phase *Phase, names []string) ([]Dataset, error) {
	if len(names) > 0 {
		var result []Dataset
		for _, name := range names {
			d, err := r.Get(name)
			if err != nil {
				return nil, err
			}
			if phase != nil && d.Phase() != *phase {
				continue
			}
			result = append(result, d)
		}
		return result, nil
	}

	if phase != nil {
		return r.ByPhase(*phase), nil
	}

	return r.All(), nil
}

// ByPhase returns all datasets in the given phase, in registration order.
func (r *Registry) ByPhase(phase Phase) []Dataset {
	var result []Dataset
	for _, name := range r.order {
		if r.datasets[name].Phase() == phase {
			result = append(result, r.datasets[name])
		}
	}
	return result
}

// All returns all datasets in registration order.
func (r *Registry) All() []Dataset {
	result := make([]Dataset, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.datasets[name])
	}
	return result
}

// AllNames returns all registered dataset names in registration order.
func (r *Registry) AllNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
