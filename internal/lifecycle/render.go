package lifecycle

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/randalmurphal/teamlead/internal/team"
	"github.com/randalmurphal/teamlead/templates"
)

var taskTemplates = template.Must(template.ParseFS(templates.Tasks, "tasks/*.md"))

type followUpData struct {
	Depth         int
	SourceName    string
	SourceSummary string
}

type planningData struct {
	TargetPhase    string
	CompletedPhase string
	Focus          string
	Examples       string
	Description    string
	Team           []*team.Agent
}

type interventionData struct {
	FailureCount int
	TaskName     string
	Error        string
}

type assessmentData struct {
	Completed int
	Phase     string
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := taskTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
