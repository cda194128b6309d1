package lifecycle

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/randalmurphal/teamlead/internal/roles"
	"github.com/randalmurphal/teamlead/internal/task"
	"github.com/randalmurphal/teamlead/internal/team"
	"github.com/randalmurphal/teamlead/internal/util"
)

// isManagerTask decides whether t was manager work. The assigned agent's
// role is authoritative when it can be fetched; otherwise the payload shape
// and then the task name decide.
func (e *Executor) isManagerTask(ctx context.Context, t *task.Task, result task.Result, rep *Report) bool {
	c := e.rules.Classification

	if t.AgentID != "" {
		out := attempt(e, rep, "get_agent", func() (*team.Agent, error) {
			return e.store.GetAgent(ctx, t.AgentID)
		})
		if agent, ok := out.Get(); ok && agent != nil {
			isPM := roles.ContainsAnyKeyword(agent.Role, c.PMRoleKeywords)
			e.logger.Debug("classified by agent role",
				"task", t.ID,
				"role", agent.Role,
				"manager", isPM)
			return isPM
		}
	}

	if raw := strings.TrimSpace(result.DetailedResultsJSON); raw != "" && gjson.Valid(raw) {
		doc := gjson.Parse(raw)
		if doc.IsObject() {
			for _, key := range c.SubtaskKeys {
				if doc.Get(key).Exists() {
					e.logger.Debug("classified by payload", "task", t.ID, "key", key)
					return true
				}
			}
		}
	}

	if indicator, ok := util.ContainsAny(t.Name, c.PMNameIndicators); ok {
		e.logger.Debug("classified by name", "task", t.ID, "indicator", indicator)
		return true
	}
	return false
}
