package catalog

import (
	"fmt"

	"github.com/ajitpratap0/schemagit/pkg/config"
	"github.com/ajitpratap0/schemagit/pkg/errors"
)

// Phase dumps one object type with a number of shards.
type Phase struct {
	Tag    string `yaml:"type" json:"type"`
	Shards int    `yaml:"shards" json:"shards"`
}

// Plan is the ordered list of phases of a run. Phases run one after another;
// the shards of a phase run concurrently.
type Plan struct {
	Phases []Phase `yaml:"phases" json:"phases"`
}

// LoadPlan reads a plan from a YAML file:
//
//	phases:
//	  - type: TABLE
//	    shards: 16
//	  - type: SYNONYM
//	    shards: 1
func LoadPlan(path string) (Plan, error) {
	var p Plan
	if err := config.LoadYAML(path, &p); err != nil {
		return Plan{}, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load plan")
	}
	if len(p.Phases) == 0 {
		return Plan{}, errors.Newf(errors.ErrorTypeConfig, "plan %s has no phases", path)
	}
	return p, nil
}

// MaxShards returns the largest shard count of any phase.
func (p Plan) MaxShards() int {
	n := 0
	for _, ph := range p.Phases {
		if ph.Shards > n {
			n = ph.Shards
		}
	}
	return n
}

// Resolve checks p against the catalog and returns it with canonical tags and
// singleton phases forced to one shard.
func (c *Catalog) Resolve(p Plan) (Plan, error) {
	out := Plan{Phases: make([]Phase, 0, len(p.Phases))}
	for i, ph := range p.Phases {
		spec, err := c.Get(ph.Tag)
		if err != nil {
			return Plan{}, err
		}
		if ph.Shards < 1 {
			return Plan{}, errors.Newf(errors.ErrorTypeConfig,
				"phase %d (%s): shard count must be at least 1, got %d", i+1, spec.Tag, ph.Shards)
		}
		shards := ph.Shards
		if spec.Strategy == StrategySingleton {
			shards = 1
		}
		out.Phases = append(out.Phases, Phase{Tag: spec.Tag, Shards: shards})
	}
	return out, nil
}

func (p Phase) String() string {
	return fmt.Sprintf("%s x%d", p.Tag, p.Shards)
}
