// Package roles resolves a free-text role request to a concrete agent.
//
// Each active agent is scored against the requested role with an ordered
// cascade of rules (exact, normalized, containment, word overlap, manager
// keyword, partial keyword); the first rule that applies sets the agent's
// score. Scores under the configured minimum are discarded and the best
// remaining agent wins, with ties going to the agent listed first.
package roles

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/randalmurphal/teamlead/internal/rules"
	"github.com/randalmurphal/teamlead/internal/team"
)

// Candidate is a scored agent.
type Candidate struct {
	Agent  *team.Agent
	Score  float64
	Reason string
}

// Matcher scores agents against requested roles.
type Matcher struct {
	rules  rules.RoleRules
	stop   map[string]struct{}
	logger *slog.Logger
}

// NewMatcher creates a Matcher. A nil rule set uses the built-in rules.
func NewMatcher(r *rules.Rules, logger *slog.Logger) *Matcher {
	if r == nil {
		r = rules.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	stop := make(map[string]struct{}, len(r.Roles.StopWords))
	for _, w := range r.Roles.StopWords {
		stop[w] = struct{}{}
	}
	return &Matcher{rules: r.Roles, stop: stop, logger: logger}
}

// significant returns the non-stop-words of s.
func (m *Matcher) significant(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		if _, skip := m.stop[w]; !skip {
			out[w] = struct{}{}
		}
	}
	return out
}

func intersect(a, b map[string]struct{}) []string {
	var out []string
	for w := range a {
		if _, ok := b[w]; ok {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

// isManagerish reports whether text mentions a manager keyword.
func (m *Matcher) isManagerish(text string) bool {
	return ContainsAnyKeyword(text, m.rules.ManagerKeywords)
}

// Score rates one agent against target. It returns 0 when nothing applies.
// The seniority bonus is included and the result is rounded to 2 decimals.
func (m *Matcher) Score(target string, a *team.Agent) (float64, string) {
	tgt := strings.ToLower(strings.TrimSpace(target))
	if tgt == "" || a == nil {
		return 0, ""
	}
	tgtNorm := strings.ReplaceAll(tgt, " ", "")
	tgtWords := m.significant(tgt)

	role := strings.ToLower(strings.TrimSpace(a.Role))
	name := strings.ToLower(strings.TrimSpace(a.Name))
	roleWords := m.significant(role)
	nameWords := m.significant(name)
	s := m.rules.Scores

	var score float64
	var reason string
	switch {
	case role != "" && role == tgt:
		score, reason = s.ExactRole, "exact role match"
	case name != "" && name == tgt:
		score, reason = s.ExactName, "exact name match"
	case role != "" && strings.ReplaceAll(role, " ", "") == tgtNorm:
		score, reason = s.NormalizedRole, "normalized role match"
	case name != "" && strings.ReplaceAll(name, " ", "") == tgtNorm:
		score, reason = s.NormalizedName, "normalized name match"
	case strings.Contains(role, tgt):
		score, reason = s.TargetInRole, "target contained in agent role"
	case strings.Contains(name, tgt):
		score, reason = s.TargetInName, "target contained in agent name"
	case role != "" && strings.Contains(tgt, role):
		score, reason = s.RoleInTarget, "agent role contained in target"
	case len(tgtWords) > 0 && (len(roleWords) > 0 || len(nameWords) > 0):
		// Word overlap is the last rule once both sides have words; an empty
		// intersection scores nothing rather than falling through.
		common, source, sourceWords := intersect(roleWords, tgtWords), "role", roleWords
		if fromName := intersect(nameWords, tgtWords); len(fromName) > len(common) {
			common, source, sourceWords = fromName, "name", nameWords
		}
		if len(common) > 0 {
			overlap := float64(len(common)) / float64(len(tgtWords))
			coverage := float64(len(common)) / math.Max(float64(len(sourceWords)), 1)
			score = s.OverlapBase + overlap*s.OverlapWeight + coverage*s.CoverageWeight
			reason = fmt.Sprintf("word overlap in %s: %s (overlap: %.2f)", source, strings.Join(common, ", "), overlap)
		}
	case m.isManagerish(tgt) && m.isManagerish(role):
		score, reason = s.Manager, "manager role match"
	default:
		var matches []string
		for tw := range tgtWords {
			if len(tw) < m.rules.MinPartialWordLen {
				continue
			}
			for aw := range roleWords {
				if strings.Contains(aw, tw) || strings.Contains(tw, aw) {
					matches = append(matches, tw+"→"+aw+"(role)")
				}
			}
			for aw := range nameWords {
				if strings.Contains(aw, tw) || strings.Contains(tw, aw) {
					matches = append(matches, tw+"→"+aw+"(name)")
				}
			}
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			score = float64(len(matches)) * s.PartialPerMatch
			reason = "partial keyword match: " + strings.Join(matches, ", ")
		}
	}

	if score > 0 {
		score += float64(m.rules.SeniorityBonus[strings.ToLower(string(a.Seniority))])
	}
	return math.Round(score*100) / 100, reason
}

// Rank scores every active agent and returns those at or above the minimum
// score, best first. Equal scores keep the input order.
func (m *Matcher) Rank(target string, agents []*team.Agent) []Candidate {
	var out []Candidate
	for _, a := range agents {
		if !a.IsActive() {
			continue
		}
		score, reason := m.Score(target, a)
		if score >= m.rules.MinScore {
			out = append(out, Candidate{Agent: a, Score: score, Reason: reason})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Match resolves target to an agent, or nil. When no agent scores high
// enough, manager-typed targets fall back to an active manager and
// "<x> specialist" targets fall back to an active specialist mentioning x.
// Anything else fails and is logged with the available agents.
func (m *Matcher) Match(target string, agents []*team.Agent) *team.Agent {
	if ranked := m.Rank(target, agents); len(ranked) > 0 {
		best := ranked[0]
		m.logger.Info("agent matched",
			"target_role", target,
			"agent", best.Agent.Name,
			"role", best.Agent.Role,
			"score", best.Score,
			"reason", best.Reason)
		return best.Agent
	}

	tgt := strings.ToLower(strings.TrimSpace(target))
	active := team.Active(agents)

	if m.isManagerish(tgt) {
		if a := FindManager(active, "project", m.rules.ManagerKeywords); a != nil {
			m.logger.Warn("manager fallback",
				"target_role", target,
				"agent", a.Name,
				"role", a.Role)
			return a
		}
	}

	if suffix := m.rules.SpecialistSuffix; suffix != "" && strings.Contains(tgt, suffix) {
		spec := strings.TrimSpace(strings.ReplaceAll(tgt, suffix, ""))
		if len(spec) >= m.rules.MinSpecializationLen {
			for _, a := range active {
				if !strings.Contains(strings.ToLower(a.Role), suffix) {
					continue
				}
				if strings.Contains(strings.ToLower(a.Name+" "+a.Role), spec) {
					m.logger.Warn("specialist fallback",
						"target_role", target,
						"agent", a.Name,
						"specialization", spec)
					return a
				}
			}
			m.logger.Error("no suitable agent for specialist role",
				"target_role", target,
				"specialization", spec,
				"available", team.Describe(active))
			return nil
		}
	}

	m.logger.Error("no agent match for role",
		"target_role", target,
		"available", team.Describe(active))
	return nil
}

// FindManager returns the first active agent whose role contains preferred,
// else the first active agent whose role contains any of keywords.
func FindManager(agents []*team.Agent, preferred string, keywords []string) *team.Agent {
	var fallback *team.Agent
	for _, a := range agents {
		if !a.IsActive() {
			continue
		}
		role := strings.ToLower(a.Role)
		if preferred != "" && strings.Contains(role, preferred) && ContainsAnyKeyword(role, keywords) {
			return a
		}
		if fallback == nil && ContainsAnyKeyword(role, keywords) {
			fallback = a
		}
	}
	return fallback
}

// FindProjectManager locates the agent that owns planning work: an active
// "project manager" first, then any active manager, coordinator, director or
// lead.
func FindProjectManager(r *rules.Rules, agents []*team.Agent) *team.Agent {
	if r == nil {
		r = rules.Default()
	}
	for _, a := range agents {
		if a.IsActive() && strings.Contains(strings.ToLower(a.Role), r.Planning.PrimaryManagerRole) {
			return a
		}
	}
	for _, a := range agents {
		if a.IsActive() && ContainsAnyKeyword(a.Role, r.Planning.ManagerFallbackKeywords) {
			return a
		}
	}
	return nil
}

// ContainsKeyword reports whether text mentions kw, case-insensitively.
// Keywords of two characters or fewer ("pm") must appear as a whole word so
// that roles like "development" do not match.
func ContainsKeyword(text, kw string) bool {
	text, kw = strings.ToLower(text), strings.ToLower(kw)
	if kw == "" {
		return false
	}
	if len(kw) > 2 {
		return strings.Contains(text, kw)
	}
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return slices.Contains(words, kw)
}

// ContainsAnyKeyword reports whether text mentions any of keywords.
func ContainsAnyKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if ContainsKeyword(text, kw) {
			return true
		}
	}
	return false
}
