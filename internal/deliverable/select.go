package deliverable

import (
	"fmt"
	"sort"
	"strings"

	"github.com/randalmurphal/teamlead/internal/rules"
	"github.com/randalmurphal/teamlead/internal/team"
)

const (
	rolePreferenceScore = 10
	projectManagerBonus = 20
	managerBonus        = 15
)

// SelectAgent picks the agent that assembles a deliverable of type typ. Active
// agents are scored by role preference and seniority; when nobody scores, the
// first active agent is used. It returns nil when no agent is active.
func SelectAgent(agents []*team.Agent, typ string, r *rules.DeliverableRules) (*team.Agent, string) {
	prefs := r.RolePreferences(typ)

	type scored struct {
		agent *team.Agent
		score int
	}
	var candidates []scored
	for _, a := range team.Active(agents) {
		role := strings.ToLower(a.Role)
		name := strings.ToLower(a.Name)

		score := 0
		for _, kw := range prefs {
			if strings.Contains(role, kw) || strings.Contains(name, kw) {
				score += rolePreferenceScore
			}
		}
		score += r.SeniorityBonus[strings.ToLower(string(a.Seniority))]
		if typ == r.DefaultType {
			switch {
			case strings.Contains(role, "project") && strings.Contains(role, "manager"):
				score += projectManagerBonus
			case strings.Contains(role, "manager"), strings.Contains(role, "coordinator"):
				score += managerBonus
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{a, score})
		}
	}

	if len(candidates) > 0 {
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
		best := candidates[0]
		return best.agent, fmt.Sprintf("selected %s for %s (score %d)", best.agent.Name, typ, best.score)
	}
	if active := team.Active(agents); len(active) > 0 {
		return active[0], fmt.Sprintf("fallback to %s", active[0].Name)
	}
	return nil, ""
}
