package lifecycle

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/randalmurphal/teamlead/internal/phase"
	"github.com/randalmurphal/teamlead/internal/rules"
)

// Plan is a validated manager payload.
type Plan struct {
	CurrentPhase phase.Phase
	RawPhase     string
	Subtasks     []SubtaskEntry
}

// SubtaskEntry is one element of defined_sub_tasks: either a usable spec or
// the reason it was rejected.
type SubtaskEntry struct {
	Spec *SubtaskSpec
	Err  *SubtaskError
}

// SubtaskSpec is a sub-task the manager asked for.
type SubtaskSpec struct {
	Name               string
	Description        string
	TargetAgentRole    string
	ProjectPhase       string
	Priority           string
	CompletionCriteria string
}

// PlanError rejects a whole payload.
type PlanError struct {
	Reason string
}

func (e *PlanError) Error() string {
	return "invalid manager plan: " + e.Reason
}

// SubtaskError rejects one sub-task; its siblings are still processed.
type SubtaskError struct {
	Index   int
	Name    string
	Missing []string
	Reason  string
}

func (e *SubtaskError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("sub-task %d (%q) missing fields: %s", e.Index, e.Name, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("sub-task %d: %s", e.Index, e.Reason)
}

// ParsePlan validates the detailed_results_json of a manager task. The
// payload must be an object with current_project_phase and a non-empty
// defined_sub_tasks array.
func ParsePlan(raw string, r *rules.Rules) (*Plan, error) {
	if r == nil {
		r = rules.Default()
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &PlanError{Reason: "detailed_results_json is empty"}
	}
	if !gjson.Valid(raw) {
		return nil, &PlanError{Reason: "detailed_results_json is not valid JSON"}
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return nil, &PlanError{Reason: "detailed_results_json is not an object"}
	}

	rawPhase := strings.TrimSpace(doc.Get("current_project_phase").String())
	if rawPhase == "" {
		return nil, &PlanError{Reason: "current_project_phase is missing"}
	}

	subtasks := doc.Get("defined_sub_tasks")
	if !subtasks.IsArray() || len(subtasks.Array()) == 0 {
		return nil, &PlanError{Reason: "defined_sub_tasks is missing or empty"}
	}

	plan := &Plan{
		CurrentPhase: phase.ValidateWith(r, rawPhase),
		RawPhase:     rawPhase,
	}
	for i, item := range subtasks.Array() {
		plan.Subtasks = append(plan.Subtasks, parseSubtask(i, item))
	}
	return plan, nil
}

func parseSubtask(i int, item gjson.Result) SubtaskEntry {
	if !item.IsObject() {
		return SubtaskEntry{Err: &SubtaskError{Index: i, Reason: "entry is not an object"}}
	}
	field := func(name string) string {
		return strings.TrimSpace(item.Get(name).String())
	}
	spec := &SubtaskSpec{
		Name:               field("name"),
		Description:        field("description"),
		TargetAgentRole:    field("target_agent_role"),
		ProjectPhase:       field("project_phase"),
		Priority:           field("priority"),
		CompletionCriteria: field("completion_criteria"),
	}

	var missing []string
	if spec.Name == "" {
		missing = append(missing, "name")
	}
	if spec.Description == "" {
		missing = append(missing, "description")
	}
	if spec.TargetAgentRole == "" {
		missing = append(missing, "target_agent_role")
	}
	if len(missing) > 0 {
		return SubtaskEntry{Err: &SubtaskError{Index: i, Name: spec.Name, Missing: missing}}
	}
	if spec.CompletionCriteria == "" {
		spec.CompletionCriteria = "Task completed"
	}
	return SubtaskEntry{Spec: spec}
}
