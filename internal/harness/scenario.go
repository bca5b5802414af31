package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/climatevalue/internal/ingest"
)

// Scenario defines one ingestion scenario.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Domain defaults to "weather".
	Domain string `yaml:"domain,omitempty"`

	// Discriminator defaults to "date".
	Discriminator string `yaml:"discriminator,omitempty"`

	// Fields defaults to [temperature_2m].
	Fields []string `yaml:"fields,omitempty"`

	Budget   int    `yaml:"budget"`
	Ceiling  int    `yaml:"ceiling,omitempty"`
	Strategy string `yaml:"strategy,omitempty"`

	// Aggregate attaches an aggregate engine with the given threshold.
	Aggregate *AggregateStep `yaml:"aggregate,omitempty"`

	Entities   []EntityStep `yaml:"entities"`
	Runs       []RunStep    `yaml:"runs"`
	Assertions []Assertion  `yaml:"assertions,omitempty"`
}

// AggregateStep enables aggregate recomputation inside the cycle.
type AggregateStep struct {
	Threshold int `yaml:"threshold"`
}

// EntityStep declares one entity and its synthetic source data.
type EntityStep struct {
	Key      string `yaml:"key"`
	Locality string `yaml:"locality,omitempty"`

	// Candidates is the number of well-formed candidates the source returns,
	// one per day starting at testutil.Epoch.
	Candidates int `yaml:"candidates"`

	// Malformed candidates lack a discriminator and precede the others.
	Malformed int `yaml:"malformed,omitempty"`

	// Preload persists the first N candidates before the first run.
	Preload int `yaml:"preload,omitempty"`
}

// RunStep is one invocation of the cycle.
type RunStep struct {
	// Fail lists entity keys whose fetch fails during this run only.
	Fail []string `yaml:"fail,omitempty"`

	// CancelAfter cancels the run once this many entities have finished.
	CancelAfter int `yaml:"cancel_after,omitempty"`

	Expect *RunExpect `yaml:"expect,omitempty"`
}

// RunExpect is a subset match against a run summary.
type RunExpect struct {
	Inserted   *int                    `yaml:"inserted,omitempty"`
	Duplicates *int                    `yaml:"duplicates,omitempty"`
	Skipped    *int                    `yaml:"skipped,omitempty"`
	Failed     *int                    `yaml:"failed,omitempty"`
	Complete   *bool                   `yaml:"complete,omitempty"`
	Canceled   *bool                   `yaml:"canceled,omitempty"`
	Entities   map[string]EntityExpect `yaml:"entities,omitempty"`
}

// EntityExpect is a subset match against one entity result.
type EntityExpect struct {
	Status     string `yaml:"status,omitempty"`
	Allocation *int   `yaml:"allocation,omitempty"`
	Inserted   *int   `yaml:"inserted,omitempty"`
	Duplicates *int   `yaml:"duplicates,omitempty"`
	Skipped    *int   `yaml:"skipped,omitempty"`
	Aggregated *bool  `yaml:"aggregated,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Entity and Count are used by record_count.
	Entity string `yaml:"entity,omitempty"`
	Count  int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordCount   = "record_count"
	AssertUniqueRecords = "unique_records"
	AssertQuotaBound    = "quota_bound"
	AssertRunComplete   = "run_complete"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario.applyDefaults()
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios lists scenario files under dir in lexical order. A non-empty
// filter is matched against each file's base name without extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	slices.Sort(files)
	return files, err
}

// GoldenPath returns golden/<base>.golden next to the scenario file.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

func (s *Scenario) applyDefaults() {
	if s.Domain == "" {
		s.Domain = "weather"
	}
	if s.Discriminator == "" {
		s.Discriminator = "date"
	}
	if len(s.Fields) == 0 {
		s.Fields = []string{"temperature_2m"}
	}
	for i := range s.Entities {
		if s.Entities[i].Locality == "" {
			s.Entities[i].Locality = s.Entities[i].Key
		}
	}
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Budget < 0 {
		return fmt.Errorf("budget must be non-negative")
	}
	if _, err := ingest.ParseStrategy(s.Strategy); err != nil {
		return err
	}
	if len(s.Entities) == 0 {
		return fmt.Errorf("entities list is required and must be non-empty")
	}
	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}

	keys := make(map[string]bool, len(s.Entities))
	for i, e := range s.Entities {
		if e.Key == "" {
			return fmt.Errorf("entities[%d]: key is required", i)
		}
		if keys[e.Key] {
			return fmt.Errorf("entities[%d]: duplicate key %q", i, e.Key)
		}
		keys[e.Key] = true
		if e.Candidates < 0 || e.Malformed < 0 || e.Preload < 0 {
			return fmt.Errorf("entities[%d]: counts must be non-negative", i)
		}
		if e.Preload > e.Candidates {
			return fmt.Errorf("entities[%d]: preload %d exceeds candidates %d", i, e.Preload, e.Candidates)
		}
	}

	for i, r := range s.Runs {
		for _, key := range r.Fail {
			if !keys[key] {
				return fmt.Errorf("runs[%d]: fail names unknown entity %q", i, key)
			}
		}
		if r.Expect != nil {
			for key := range r.Expect.Entities {
				if !keys[key] {
					return fmt.Errorf("runs[%d].expect: unknown entity %q", i, key)
				}
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, keys); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion, keys map[string]bool) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertRecordCount:
		if !keys[a.Entity] {
			return fmt.Errorf("assertions[%d]: record_count needs a declared entity", index)
		}
	case AssertUniqueRecords, AssertQuotaBound, AssertRunComplete:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
