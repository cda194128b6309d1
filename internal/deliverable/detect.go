package deliverable

import (
	"strings"

	"github.com/randalmurphal/teamlead/internal/rules"
	"github.com/randalmurphal/teamlead/internal/task"
	"github.com/randalmurphal/teamlead/internal/util"
)

const (
	patternMatchScore  = 10
	literalPhraseBonus = 5
)

// DetectType picks the deliverable type for a workspace goal. Every type's
// patterns are scored against the goal; the highest score wins and ties go
// to the type listed first. Without any match the keyword fallback applies,
// then the default type.
func DetectType(goal string, r *rules.DeliverableRules) string {
	g := strings.ToLower(strings.TrimSpace(goal))
	if g == "" {
		return r.DefaultType
	}

	best, bestScore := "", 0
	for _, dt := range r.Types {
		score := 0
		for i, re := range r.Compiled(dt.Type) {
			score += len(re.FindAllStringIndex(g, -1)) * patternMatchScore
			// Plain-phrase patterns also earn a bonus when they appear verbatim.
			if strings.Contains(g, dt.Patterns[i]) {
				score += literalPhraseBonus
			}
		}
		if score > bestScore {
			best, bestScore = dt.Type, score
		}
	}
	if best != "" {
		return best
	}

	for _, kw := range r.KeywordFallback {
		if strings.Contains(g, kw.Keyword) {
			return kw.Type
		}
	}
	return r.DefaultType
}

// TypeTitle turns "content_strategy" into "Content Strategy".
func TypeTitle(typ string) string {
	words := strings.Fields(strings.ReplaceAll(typ, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// FindExisting returns a task that already is, or was, the workspace's final
// deliverable: by context marker, by name marker or by creation type.
func FindExisting(tasks []*task.Task, r *rules.DeliverableRules) *task.Task {
	for _, t := range tasks {
		if IsDeliverableTask(t, r) {
			return t
		}
	}
	return nil
}

// IsDeliverableTask reports whether t is a final deliverable task.
func IsDeliverableTask(t *task.Task, r *rules.DeliverableRules) bool {
	switch {
	case t.ContextBool(task.KeyIsFinalDeliverable),
		t.ContextBool(task.KeyDeliverableAggregation),
		t.ContextBool(task.KeyTriggersCompletion):
		return true
	case t.CreationType == task.CreationFinalDeliverable,
		t.CreationType == task.CreationProjectCompletion:
		return true
	}
	ct := task.CreationType(t.ContextString(task.KeyCreationType))
	if ct == task.CreationFinalDeliverable || ct == task.CreationProjectCompletion {
		return true
	}
	_, ok := util.ContainsAny(t.Name, r.NameMarkers)
	return ok
}
