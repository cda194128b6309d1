// Package rules loads the heuristic keyword and threshold tables that drive
// phase validation, task classification, role matching and deliverable
// detection. The tables are data so they can be tuned without code changes.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var builtinRules []byte

// Rules is the full rule set.
type Rules struct {
	Phase          PhaseRules          `yaml:"phase"`
	Classification ClassificationRules `yaml:"classification"`
	Filter         FilterRules         `yaml:"filter"`
	Quota          QuotaRules          `yaml:"quota"`
	Duplicate      DuplicateRules      `yaml:"duplicate"`
	Analysis       AnalysisRules       `yaml:"analysis"`
	Roles          RoleRules           `yaml:"roles"`
	Planning       PlanningRules       `yaml:"planning"`
	Deliverable    DeliverableRules    `yaml:"deliverable"`
}

// PhaseRules holds phase synonyms, descriptions and default thresholds.
type PhaseRules struct {
	Synonyms           map[string]string `yaml:"synonyms"`
	Descriptions       map[string]string `yaml:"descriptions"`
	DefaultDescription string            `yaml:"default_description"`
	Thresholds         PhaseThresholds   `yaml:"thresholds"`
}

// PhaseThresholds are completed-task counts that move a workspace forward.
type PhaseThresholds struct {
	AnalysisToImplementation     int `yaml:"analysis_to_implementation"`
	ImplementationToFinalization int `yaml:"implementation_to_finalization"`
	FinalizationToCompleted      int `yaml:"finalization_to_completed"`
}

// ClassificationRules decide whether a completed task came from a manager.
type ClassificationRules struct {
	PMRoleKeywords   []string `yaml:"pm_role_keywords"`
	SubtaskKeys      []string `yaml:"subtask_keys"`
	PMNameIndicators []string `yaml:"pm_name_indicators"`
}

// FilterRules is the conservative content filter for specialist tasks.
type FilterRules struct {
	CompletionWords   []string `yaml:"completion_words"`
	CompletionPhrases []string `yaml:"completion_phrases"`
	MaxOutputChars    int      `yaml:"max_output_chars"`
	NameIndicators    []string `yaml:"name_indicators"`
	AllowedPhrases    []string `yaml:"allowed_phrases"`
}

// QuotaRules is the workspace quota gate.
type QuotaRules struct {
	MaxPending         int     `yaml:"max_pending"`
	MinCompletionRatio float64 `yaml:"min_completion_ratio"`
	MinTotalTasks      int     `yaml:"min_total_tasks"`
}

// DuplicateRules is the specialist duplicate and anti-loop gate.
type DuplicateRules struct {
	HandoffKeywords     []string `yaml:"handoff_keywords"`
	RecentWindow        int      `yaml:"recent_window"`
	SimilarityThreshold float64  `yaml:"similarity_threshold"`
}

// AnalysisRules is the deterministic follow-up analysis.
type AnalysisRules struct {
	FollowUpPatterns []string `yaml:"follow_up_patterns"`
	MinMatches       int      `yaml:"min_matches"`
	MinOutputChars   int      `yaml:"min_output_chars"`
	Confidence       float64  `yaml:"confidence"`
}

// RoleRules drive the role matcher's score cascade.
type RoleRules struct {
	StopWords            []string       `yaml:"stop_words"`
	ManagerKeywords      []string       `yaml:"manager_keywords"`
	SpecialistSuffix     string         `yaml:"specialist_suffix"`
	MinSpecializationLen int            `yaml:"min_specialization_len"`
	MinScore             float64        `yaml:"min_score"`
	MinPartialWordLen    int            `yaml:"min_partial_word_len"`
	Scores               RoleScores     `yaml:"scores"`
	SeniorityBonus       map[string]int `yaml:"seniority_bonus"`
}

// RoleScores are the tier scores, highest tier first.
type RoleScores struct {
	ExactRole       float64 `yaml:"exact_role"`
	ExactName       float64 `yaml:"exact_name"`
	NormalizedRole  float64 `yaml:"normalized_role"`
	NormalizedName  float64 `yaml:"normalized_name"`
	TargetInRole    float64 `yaml:"target_in_role"`
	TargetInName    float64 `yaml:"target_in_name"`
	RoleInTarget    float64 `yaml:"role_in_target"`
	OverlapBase     float64 `yaml:"overlap_base"`
	OverlapWeight   float64 `yaml:"overlap_weight"`
	CoverageWeight  float64 `yaml:"coverage_weight"`
	Manager         float64 `yaml:"manager"`
	PartialPerMatch float64 `yaml:"partial_per_match"`
}

// PlanningRules configure phase planning task creation.
type PlanningRules struct {
	PrimaryManagerRole      string                      `yaml:"primary_manager_role"`
	ManagerFallbackKeywords []string                    `yaml:"manager_fallback_keywords"`
	Templates               map[string]PlanningTemplate `yaml:"templates"`
}

// PlanningTemplate is the instructional content of a planning task.
type PlanningTemplate struct {
	Title    string `yaml:"title"`
	Focus    string `yaml:"focus"`
	Examples string `yaml:"examples"`
}

// DeliverableRules drive final deliverable detection and assignment.
type DeliverableRules struct {
	NameMarkers            []string          `yaml:"name_markers"`
	Types                  []DeliverableType `yaml:"types"`
	KeywordFallback        []KeywordType     `yaml:"keyword_fallback"`
	DefaultType            string            `yaml:"default_type"`
	GenericRolePreferences []string          `yaml:"generic_role_preferences"`
	SeniorityBonus         map[string]int    `yaml:"seniority_bonus"`

	compiled map[string][]*regexp.Regexp
}

// DeliverableType maps goal patterns to a deliverable kind.
type DeliverableType struct {
	Type            string   `yaml:"type"`
	Patterns        []string `yaml:"patterns"`
	RolePreferences []string `yaml:"role_preferences"`
}

// KeywordType is a keyword fallback entry.
type KeywordType struct {
	Keyword string `yaml:"keyword"`
	Type    string `yaml:"type"`
}

// Compiled returns the compiled goal patterns for a deliverable type.
func (d *DeliverableRules) Compiled(typ string) []*regexp.Regexp {
	return d.compiled[typ]
}

// RolePreferences returns the preferred role keywords for a deliverable type.
func (d *DeliverableRules) RolePreferences(typ string) []string {
	for _, dt := range d.Types {
		if dt.Type == typ {
			return dt.RolePreferences
		}
	}
	return d.GenericRolePreferences
}

var loadDefault = sync.OnceValues(func() (*Rules, error) {
	return Parse(builtinRules)
})

// Default returns the built-in rules. The result is shared and must not be
// modified.
func Default() *Rules {
	r, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("builtin rules are invalid: %v", err))
	}
	return r
}

// Load reads a rules file from disk. An empty path returns the built-in rules.
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return r, nil
}

// Parse decodes and validates a rules document.
func Parse(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	r.Deliverable.compiled = make(map[string][]*regexp.Regexp, len(r.Deliverable.Types))
	for _, dt := range r.Deliverable.Types {
		for _, p := range dt.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("deliverable type %s pattern %q: %w", dt.Type, p, err)
			}
			r.Deliverable.compiled[dt.Type] = append(r.Deliverable.compiled[dt.Type], re)
		}
	}
	return &r, nil
}

func (r *Rules) validate() error {
	switch {
	case len(r.Classification.PMRoleKeywords) == 0:
		return fmt.Errorf("classification.pm_role_keywords is empty")
	case len(r.Classification.SubtaskKeys) == 0:
		return fmt.Errorf("classification.subtask_keys is empty")
	case len(r.Filter.NameIndicators) == 0:
		return fmt.Errorf("filter.name_indicators is empty")
	case r.Filter.MaxOutputChars <= 0:
		return fmt.Errorf("filter.max_output_chars must be positive")
	case r.Analysis.MinMatches <= 0:
		return fmt.Errorf("analysis.min_matches must be positive")
	case r.Analysis.Confidence < 0 || r.Analysis.Confidence > 1:
		return fmt.Errorf("analysis.confidence must be within [0,1]")
	case r.Duplicate.RecentWindow <= 0:
		return fmt.Errorf("duplicate.recent_window must be positive")
	case r.Roles.MinScore <= 0:
		return fmt.Errorf("roles.min_score must be positive")
	case r.Phase.Thresholds.AnalysisToImplementation <= 0,
		r.Phase.Thresholds.ImplementationToFinalization <= 0,
		r.Phase.Thresholds.FinalizationToCompleted <= 0:
		return fmt.Errorf("phase.thresholds must all be positive")
	}
	return nil
}
