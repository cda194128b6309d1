// Package errors provides structured error types for teamlead.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for teamlead.
const (
	// Lookup errors
	CodeTaskNotFound      Code = "TASK_NOT_FOUND"
	CodeAgentNotFound     Code = "AGENT_NOT_FOUND"
	CodeWorkspaceNotFound Code = "WORKSPACE_NOT_FOUND"

	// Lifecycle errors
	CodeTaskInvalidState Code = "TASK_INVALID_STATE"
	CodePlanInvalid      Code = "PLAN_INVALID"
	CodeNoManager        Code = "NO_MANAGER_AGENT"

	// Infrastructure errors
	CodeStoreUnavailable  Code = "STORE_UNAVAILABLE"
	CodeEventsUnavailable Code = "EVENTS_UNAVAILABLE"

	// Config errors
	CodeConfigInvalid Code = "CONFIG_INVALID"
	CodeConfigMissing Code = "CONFIG_MISSING"
)

// Category groups error codes for exit status mapping.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryNotFound
	CategoryBadRequest
	CategoryConflict
	CategoryInternal
	CategoryUnavailable
)

var codeCategories = map[Code]Category{
	CodeTaskNotFound:      CategoryNotFound,
	CodeAgentNotFound:     CategoryNotFound,
	CodeWorkspaceNotFound: CategoryNotFound,
	CodeTaskInvalidState:  CategoryConflict,
	CodePlanInvalid:       CategoryBadRequest,
	CodeNoManager:         CategoryConflict,
	CodeStoreUnavailable:  CategoryUnavailable,
	CodeEventsUnavailable: CategoryUnavailable,
	CodeConfigInvalid:     CategoryBadRequest,
	CodeConfigMissing:     CategoryBadRequest,
}

// ExitCode maps a category to a CLI exit status.
func (c Category) ExitCode() int {
	switch c {
	case CategoryNotFound:
		return 3
	case CategoryBadRequest:
		return 2
	case CategoryUnavailable:
		return 4
	default:
		return 1
	}
}

// TeamError is the structured error type for teamlead.
type TeamError struct {
	Code  Code   `json:"code"`
	What  string `json:"what"`
	Why   string `json:"why,omitempty"`
	Fix   string `json:"fix,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *TeamError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *TeamError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly message for CLI output.
func (e *TeamError) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// Category returns the error category.
func (e *TeamError) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// MarshalJSON implements json.Marshaler.
func (e *TeamError) MarshalJSON() ([]byte, error) {
	type alias TeamError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// Is reports whether target is a TeamError with the same code.
func (e *TeamError) Is(target error) bool {
	t, ok := target.(*TeamError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *TeamError) WithCause(err error) *TeamError {
	return &TeamError{
		Code:  e.Code,
		What:  e.What,
		Why:   e.Why,
		Fix:   e.Fix,
		Cause: err,
	}
}

// --- Error constructors ---

// ErrTaskNotFound returns an error when a task doesn't exist.
func ErrTaskNotFound(id string) *TeamError {
	return &TeamError{
		Code: CodeTaskNotFound,
		What: fmt.Sprintf("task %s not found", id),
		Why:  "No task with this ID exists in the store",
		Fix:  "Run 'teamlead task list <workspace>' to list available tasks",
	}
}

// ErrAgentNotFound returns an error when an agent doesn't exist.
func ErrAgentNotFound(id string) *TeamError {
	return &TeamError{
		Code: CodeAgentNotFound,
		What: fmt.Sprintf("agent %s not found", id),
		Why:  "No agent with this ID exists in the store",
		Fix:  "Run 'teamlead agent list <workspace>' to list the team",
	}
}

// ErrWorkspaceNotFound returns an error when a workspace doesn't exist.
func ErrWorkspaceNotFound(id string) *TeamError {
	return &TeamError{
		Code: CodeWorkspaceNotFound,
		What: fmt.Sprintf("workspace %s not found", id),
		Why:  "No workspace with this ID exists in the store",
		Fix:  "Run 'teamlead workspace list' or create one with 'teamlead workspace create'",
	}
}

// ErrTaskInvalidState returns an error when a task is in the wrong status.
func ErrTaskInvalidState(id, current, expected string) *TeamError {
	return &TeamError{
		Code: CodeTaskInvalidState,
		What: fmt.Sprintf("task %s is '%s', expected '%s'", id, current, expected),
		Why:  "The requested operation cannot be performed in the current task status",
	}
}

// ErrPlanInvalid returns an error for an unusable project manager plan.
func ErrPlanInvalid(reason string) *TeamError {
	return &TeamError{
		Code: CodePlanInvalid,
		What: "project manager output is not a valid sub-task plan",
		Why:  reason,
		Fix:  "The plan must be a JSON object with current_project_phase and a non-empty defined_sub_tasks array",
	}
}

// ErrNoManager returns an error when a workspace has no active manager agent.
func ErrNoManager(workspaceID string) *TeamError {
	return &TeamError{
		Code: CodeNoManager,
		What: fmt.Sprintf("workspace %s has no active manager agent", workspaceID),
		Fix:  "Add an agent whose role contains 'project manager', 'coordinator', 'director' or 'lead'",
	}
}

// ErrStoreUnavailable returns an error when the database cannot be reached.
// target names the store without credentials.
func ErrStoreUnavailable(target string, cause error) *TeamError {
	return &TeamError{
		Code:  CodeStoreUnavailable,
		What:  "task store is unavailable",
		Why:   fmt.Sprintf("could not open %s", target),
		Fix:   "Check database.driver and database.path / database.dsn in config",
		Cause: cause,
	}
}

// ErrEventsUnavailable returns an error when NATS cannot be reached.
func ErrEventsUnavailable(url string, cause error) *TeamError {
	return &TeamError{
		Code:  CodeEventsUnavailable,
		What:  "event bus is unavailable",
		Why:   fmt.Sprintf("could not connect to %s", url),
		Fix:   "Start a NATS server with JetStream enabled or set nats.url",
		Cause: cause,
	}
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(field, reason string) *TeamError {
	return &TeamError{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", field),
		Why:  reason,
		Fix:  "Check .teamlead/config.yaml and fix the invalid field",
	}
}

// ErrConfigMissing returns an error for missing configuration.
func ErrConfigMissing(field string) *TeamError {
	return &TeamError{
		Code: CodeConfigMissing,
		What: fmt.Sprintf("missing required configuration: %s", field),
		Why:  "This field is required but not set in configuration",
		Fix:  fmt.Sprintf("Add '%s' to .teamlead/config.yaml", field),
	}
}

// AsTeamError extracts a TeamError from an error chain.
// Returns nil if there is none.
func AsTeamError(err error) *TeamError {
	var te *TeamError
	if stderrors.As(err, &te) {
		return te
	}
	return nil
}
