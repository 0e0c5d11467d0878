package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted session against a fresh in-memory connection.
// Steps run in order; each may carry an expectation. Assertions run after
// the last step against the final database state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Setup is a script run before the steps. Every statement must succeed.
	Setup string `yaml:"setup,omitempty"`

	// Steps are the operations under test.
	Steps []Step `yaml:"steps"`

	// Assertions check the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one connection operation.
//
// Which fields apply depends on Op:
//
//	exec, script          sql, params
//	create_table          table, columns
//	list_tables
//	table_info, drop_table table
//	write                 table, fields
//	update                table, where, fields
//	read                  table, where (optional), project
//	delete                table, where
//	prepare               sql, as
//	columns, next, reset, finalize  handle
//	bind                  handle, params
//	create_function       function, arity
type Step struct {
	Op       string       `yaml:"op"`
	SQL      string       `yaml:"sql,omitempty"`
	Table    string       `yaml:"table,omitempty"`
	Columns  []ColumnSpec `yaml:"columns,omitempty"`
	Fields   yaml.Node    `yaml:"fields,omitempty"`
	Where    yaml.Node    `yaml:"where,omitempty"`
	Project  []string     `yaml:"project,omitempty"`
	Params   yaml.Node    `yaml:"params,omitempty"`
	As       string       `yaml:"as,omitempty"`
	Handle   string       `yaml:"handle,omitempty"`
	Function string       `yaml:"function,omitempty"`
	Arity    int          `yaml:"arity,omitempty"`

	// Expect, when present, is checked against the step's outcome.
	Expect *Expect `yaml:"expect,omitempty"`
}

// ColumnSpec is the YAML form of a column descriptor.
//
// Constraints are "primary_key [asc|desc] [autoincrement]", "unique" and
// "not_null". Default is a YAML scalar; a plain (unquoted) CURRENT_TIME,
// CURRENT_DATE or CURRENT_TIMESTAMP is the keyword, not text.
type ColumnSpec struct {
	Name        string    `yaml:"name"`
	Type        string    `yaml:"type,omitempty"`
	Constraints []string  `yaml:"constraints,omitempty"`
	Default     yaml.Node `yaml:"default,omitempty"`
}

// Expect is a subset match over a step's outcome. Unset fields are not
// checked.
type Expect struct {
	// Error is the expected error code, e.g. CONSTRAINT_VIOLATION.
	// A step without Error in its expectation must succeed.
	Error string `yaml:"error,omitempty"`

	Columns      []string     `yaml:"columns,omitempty"`
	Rows         yaml.Node    `yaml:"rows,omitempty"`
	Row          yaml.Node    `yaml:"row,omitempty"`
	Done         *bool        `yaml:"done,omitempty"`
	RowsAffected *int64       `yaml:"rows_affected,omitempty"`
	LastInsertID *int64       `yaml:"last_insert_id,omitempty"`
	Exists       *bool        `yaml:"exists,omitempty"`
	Tables       []string     `yaml:"tables,omitempty"`
	Schema       []ColumnSpec `yaml:"schema,omitempty"`
	Outcomes     *int         `yaml:"outcomes,omitempty"`
}

// Assertion checks the database after the last step.
type Assertion struct {
	// Type is one of row_count, table_exists, final_state.
	Type string `yaml:"type"`

	Table string `yaml:"table"`

	// Where narrows row_count and final_state to matching rows.
	Where yaml.Node `yaml:"where,omitempty"`

	// Count is the expected row count (row_count).
	Count int `yaml:"count,omitempty"`

	// Exists is the expected table existence (table_exists).
	Exists *bool `yaml:"exists,omitempty"`

	// Expect is a column subset every matching row must equal (final_state).
	Expect yaml.Node `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount    = "row_count"
	AssertTableExists = "table_exists"
	AssertFinalState  = "final_state"
)

// Step operation names.
const (
	OpExec           = "exec"
	OpScript         = "script"
	OpCreateTable    = "create_table"
	OpListTables     = "list_tables"
	OpTableInfo      = "table_info"
	OpWrite          = "write"
	OpUpdate         = "update"
	OpRead           = "read"
	OpDelete         = "delete"
	OpDropTable      = "drop_table"
	OpPrepare        = "prepare"
	OpColumns        = "columns"
	OpBind           = "bind"
	OpNext           = "next"
	OpReset          = "reset"
	OpFinalize       = "finalize"
	OpCreateFunction = "create_function"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks the fields each step and assertion needs.
// Value conversion errors surface when the scenario runs.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("name %q must be usable as a file name", s.Name)
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	handles := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(step, handles); err != nil {
			return fmt.Errorf("steps[%d] (%s): %w", i, step.Op, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step, handles map[string]bool) error {
	need := func(ok bool, field string) error {
		if !ok {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}

	switch step.Op {
	case OpExec, OpScript:
		return need(step.SQL != "", "sql")
	case OpCreateTable:
		if err := need(step.Table != "", "table"); err != nil {
			return err
		}
		return need(len(step.Columns) > 0, "columns")
	case OpListTables:
		return nil
	case OpTableInfo, OpDropTable:
		return need(step.Table != "", "table")
	case OpWrite:
		if err := need(step.Table != "", "table"); err != nil {
			return err
		}
		return need(step.Fields.Kind == yaml.MappingNode, "fields mapping")
	case OpUpdate:
		if err := need(step.Table != "", "table"); err != nil {
			return err
		}
		if err := need(step.Where.Kind == yaml.MappingNode, "where mapping"); err != nil {
			return err
		}
		return need(step.Fields.Kind == yaml.MappingNode, "fields mapping")
	case OpRead:
		return need(step.Table != "", "table")
	case OpDelete:
		if err := need(step.Table != "", "table"); err != nil {
			return err
		}
		return need(step.Where.Kind == yaml.MappingNode, "where mapping")
	case OpPrepare:
		if err := need(step.SQL != "", "sql"); err != nil {
			return err
		}
		if err := need(step.As != "", "as"); err != nil {
			return err
		}
		handles[step.As] = true
		return nil
	case OpColumns, OpBind, OpNext, OpReset, OpFinalize:
		if err := need(step.Handle != "", "handle"); err != nil {
			return err
		}
		if !handles[step.Handle] {
			return fmt.Errorf("handle %q is not bound by an earlier prepare", step.Handle)
		}
		return nil
	case OpCreateFunction:
		return need(step.Function != "", "function")
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func validateAssertion(a Assertion) error {
	if a.Table == "" {
		return fmt.Errorf("table is required")
	}
	switch a.Type {
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
	case AssertTableExists:
		if a.Exists == nil {
			return fmt.Errorf("exists is required for table_exists")
		}
	case AssertFinalState:
		if a.Expect.Kind != yaml.MappingNode || len(a.Expect.Content) == 0 {
			return fmt.Errorf("expect mapping is required for final_state")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
