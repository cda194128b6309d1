package templates

import (
	"strings"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskTemplatesParse(t *testing.T) {
	t.Parallel()

	entries, err := Tasks.ReadDir("tasks")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		content, err := Tasks.ReadFile("tasks/" + e.Name())
		require.NoError(t, err)
		_, err = template.New(e.Name()).Parse(string(content))
		assert.NoError(t, err, e.Name())
	}
}

func TestPhasePlanningTemplateDemandsPlanFields(t *testing.T) {
	t.Parallel()

	content, err := Tasks.ReadFile("tasks/phase_planning.md")
	require.NoError(t, err)

	text := string(content)
	for _, field := range []string{"current_project_phase", "defined_sub_tasks", "project_phase", "target_agent_role"} {
		assert.True(t, strings.Contains(text, field), "phase planning template must mention %s", field)
	}
}
