package valuation

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ScenarioAssumptions are the growth inputs of one named scenario.
// Percentages are whole numbers (22 means 22%).
type ScenarioAssumptions struct {
	AnnualRevenueGrowthPct float64 `json:"growth"   mapstructure:"growth"`
	FCFMarginPct           float64 `json:"margin"   mapstructure:"margin"`
	ExitMultiple           float64 `json:"multiple" mapstructure:"multiple"`
}

// NamedScenario pairs a scenario name with its assumptions.
type NamedScenario struct {
	Name                string `json:"name" mapstructure:"name"`
	ScenarioAssumptions `mapstructure:",squash"`
}

// ScenarioSet is an ordered mapping from scenario name to assumptions.
// Insertion order is the display order of projection results. The zero
// value is an empty set ready to use.
type ScenarioSet struct {
	names  []string
	byName map[string]ScenarioAssumptions
}

// NewScenarioSet builds a set from the given scenarios, in order.
func NewScenarioSet(scenarios ...NamedScenario) (*ScenarioSet, error) {
	s := &ScenarioSet{}
	for _, sc := range scenarios {
		if err := s.Add(sc.Name, sc.ScenarioAssumptions); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends a scenario. Names are trimmed and must be non-empty and unique.
func (s *ScenarioSet) Add(name string, a ScenarioAssumptions) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalidInput("scenario name is required")
	}
	if err := requireFinite(
		field(name+".growth", a.AnnualRevenueGrowthPct),
		field(name+".margin", a.FCFMarginPct),
		field(name+".multiple", a.ExitMultiple),
	); err != nil {
		return err
	}
	if _, dup := s.byName[name]; dup {
		return invalidInput("duplicate scenario %q", name)
	}
	if s.byName == nil {
		s.byName = make(map[string]ScenarioAssumptions)
	}
	s.names = append(s.names, name)
	s.byName[name] = a
	return nil
}

// Len returns the number of scenarios. A nil set is empty.
func (s *ScenarioSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Get returns the assumptions for name.
func (s *ScenarioSet) Get(name string) (ScenarioAssumptions, bool) {
	if s == nil {
		return ScenarioAssumptions{}, false
	}
	a, ok := s.byName[name]
	return a, ok
}

// Names returns the scenario names in insertion order.
func (s *ScenarioSet) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Scenarios returns a copy of the set as an ordered slice.
func (s *ScenarioSet) Scenarios() []NamedScenario {
	out := make([]NamedScenario, 0, s.Len())
	if s == nil {
		return out
	}
	for _, name := range s.names {
		out = append(out, NamedScenario{Name: name, ScenarioAssumptions: s.byName[name]})
	}
	return out
}

// MarshalJSON encodes the set as an array so order survives the round trip.
func (s *ScenarioSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Scenarios())
}

// UnmarshalJSON decodes an array of {name, growth, margin, multiple}.
func (s *ScenarioSet) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = ScenarioSet{}
		return nil
	}
	var items []NamedScenario
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	set, err := NewScenarioSet(items...)
	if err != nil {
		return err
	}
	*s = *set
	return nil
}
