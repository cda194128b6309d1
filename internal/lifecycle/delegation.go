package lifecycle

import (
	"slices"

	"github.com/randalmurphal/teamlead/internal/task"
)

const (
	// maxChainHops bounds the parent walk so corrupt parent links cannot spin.
	maxChainHops = 10
	// maxChainLength is the deepest delegation chain allowed to grow.
	maxChainLength = 3
)

// DelegationChain returns the agent ids along the parent chain starting at
// taskID (inclusive), nearest first. Tasks without an agent are skipped.
func DelegationChain(byID map[string]*task.Task, taskID string) []string {
	var chain []string
	current := taskID
	for hops := 0; current != "" && hops < maxChainHops; hops++ {
		t, ok := byID[current]
		if !ok {
			break
		}
		if t.AgentID != "" {
			chain = append(chain, t.AgentID)
		}
		current = t.ParentTaskID
	}
	return chain
}

// IsDelegationLoop reports whether delegating from source to target would
// cycle: delegating to oneself, to an agent already in the chain, or past
// the maximum chain length.
func IsDelegationLoop(source, target string, chain []string) (bool, string) {
	switch {
	case source != "" && source == target:
		return true, "agent would delegate to itself"
	case slices.Contains(chain, target):
		return true, "target agent already in delegation chain"
	case len(chain) >= maxChainLength:
		return true, "maximum delegation depth reached"
	}
	return false, ""
}
