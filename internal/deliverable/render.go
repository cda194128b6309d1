package deliverable

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/randalmurphal/teamlead/templates"
)

var descriptionTemplate = template.Must(template.ParseFS(templates.Tasks, "tasks/final_deliverable.md"))

type descriptionData struct {
	Goal              string
	TypeTitle         string
	TotalTasks        int
	QualityScore      float64
	StructuredSources int
	Summaries         []TaskSummary
}

func renderDescription(goal, typ string, agg Aggregation) (string, error) {
	var buf bytes.Buffer
	err := descriptionTemplate.Execute(&buf, descriptionData{
		Goal:              goal,
		TypeTitle:         TypeTitle(typ),
		TotalTasks:        agg.TotalTasks,
		QualityScore:      agg.QualityScore,
		StructuredSources: agg.StructuredSources,
		Summaries:         agg.Summaries,
	})
	if err != nil {
		return "", fmt.Errorf("render deliverable description: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
