package lifecycle

import (
	"sort"
	"time"
)

// Status is the executor's monitoring snapshot.
type Status struct {
	AutoGenerationEnabled    bool          `json:"auto_generation_enabled"`
	HandoffCreationEnabled   bool          `json:"handoff_creation_enabled"`
	ConfidenceThreshold      float64       `json:"confidence_threshold"`
	Cooldown                 time.Duration `json:"cooldown"`
	MaxAutoTasksPerWorkspace int           `json:"max_auto_tasks_per_workspace"`
	AnalyzedTasks            int           `json:"analyzed_tasks_count"`
	HandoffCacheSize         int           `json:"handoff_cache_size"`
	StartedAt                time.Time     `json:"initialization_time"`
	LastCleanup              time.Time     `json:"last_cleanup"`
	Uptime                   time.Duration `json:"uptime"`
	SafetyMode               string        `json:"safety_mode"`
	RiskLevel                string        `json:"risk_level"`
}

// Status reports configuration, cache sizes and the derived safety level.
func (e *Executor) Status() Status {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{
		AutoGenerationEnabled:    e.cfg.AutoGenerationEnabled,
		HandoffCreationEnabled:   e.cfg.HandoffCreationEnabled,
		ConfidenceThreshold:      e.cfg.ConfidenceThreshold,
		Cooldown:                 e.cfg.Cooldown,
		MaxAutoTasksPerWorkspace: e.cfg.MaxAutoTasksPerWorkspace,
		AnalyzedTasks:            len(e.analyzed),
		HandoffCacheSize:         len(e.handoffs),
		StartedAt:                e.startedAt,
		LastCleanup:              e.lastCleanup,
		Uptime:                   now.Sub(e.startedAt),
		SafetyMode:               "STRICT",
		RiskLevel:                "LOW",
	}
	if e.cfg.AutoGenerationEnabled {
		s.SafetyMode = "PERMISSIVE"
		s.RiskLevel = "MEDIUM"
		if e.cfg.HandoffCreationEnabled {
			s.RiskLevel = "HIGH"
		}
	}
	return s
}

// DefaultEnableThreshold is the confidence threshold used when automatic
// follow-ups are enabled without an explicit threshold.
const DefaultEnableThreshold = 0.95

// disabledThreshold is set on disable so stray analyses can never fire.
const disabledThreshold = 0.99

// EnableAutoGeneration turns on automatic follow-ups. A threshold <= 0 uses
// DefaultEnableThreshold.
func (e *Executor) EnableAutoGeneration(handoffs bool, threshold float64) {
	if threshold <= 0 {
		threshold = DefaultEnableThreshold
	}
	e.mu.Lock()
	e.cfg.AutoGenerationEnabled = true
	e.cfg.HandoffCreationEnabled = handoffs
	e.cfg.ConfidenceThreshold = threshold
	e.mu.Unlock()
	e.logger.Warn("automatic task generation enabled; monitor for task loops",
		"handoff_creation", handoffs,
		"confidence_threshold", threshold)
}

// DisableAutoGeneration returns the executor to its safe state.
func (e *Executor) DisableAutoGeneration() {
	e.mu.Lock()
	e.cfg.AutoGenerationEnabled = false
	e.cfg.HandoffCreationEnabled = false
	e.cfg.ConfidenceThreshold = disabledThreshold
	e.mu.Unlock()
	e.logger.Info("automatic task generation disabled")
}

// CleanupStats reports what CleanupCaches removed.
type CleanupStats struct {
	ExpiredHandoffs int
	TrimmedAnalyzed int
}

// CleanupCaches drops handoff entries older than the TTL and, when the
// analyzed set exceeds its limit, keeps only the most recent half.
func (e *Executor) CleanupCaches(now time.Time) CleanupStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	var stats CleanupStats
	for k, at := range e.handoffs {
		if now.Sub(at) > e.cfg.HandoffTTL {
			delete(e.handoffs, k)
			stats.ExpiredHandoffs++
		}
	}
	keep := max(e.cfg.HandoffTTL, e.cfg.Cooldown)
	for k, at := range e.workspaceHandoffs {
		if now.Sub(at) > keep {
			delete(e.workspaceHandoffs, k)
		}
	}

	if limit := e.cfg.AnalyzedCacheLimit; limit > 0 && len(e.analyzed) > limit {
		type entry struct {
			id  string
			seq uint64
		}
		entries := make([]entry, 0, len(e.analyzed))
		for id, seq := range e.analyzed {
			entries = append(entries, entry{id, seq})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].seq > entries[j].seq })
		kept := make(map[string]uint64, limit/2)
		for _, en := range entries[:limit/2] {
			kept[en.id] = en.seq
		}
		stats.TrimmedAnalyzed = len(e.analyzed) - len(kept)
		e.analyzed = kept
		e.recorder.SetAnalyzed(len(kept))
	}

	e.lastCleanup = now
	e.logger.Info("cache cleanup completed",
		"expired_handoffs", stats.ExpiredHandoffs,
		"trimmed_analyzed", stats.TrimmedAnalyzed)
	return stats
}
