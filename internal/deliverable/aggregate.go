package deliverable

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/randalmurphal/teamlead/internal/task"
)

const (
	minSummaryChars  = 10
	minInsightChars  = 25
	maxInsights      = 15
	fullContentChars = 2000
)

// TaskSummary is one completed task's summary.
type TaskSummary struct {
	TaskID    string `json:"task_id"`
	TaskName  string `json:"task_name"`
	AgentRole string `json:"agent_role"`
	Summary   string `json:"summary"`
}

// Metrics describes the completed work.
type Metrics struct {
	TotalCompleted          int            `json:"total_completed_tasks"`
	AverageDurationHours    float64        `json:"average_task_duration_hours"`
	PhaseDistribution       map[string]int `json:"phase_distribution"`
	AgentActivity           map[string]int `json:"agent_activity"`
	TasksWithStructuredData int            `json:"tasks_with_structured_data"`
}

// Aggregation is the project data handed to the deliverable task.
type Aggregation struct {
	TotalTasks        int            `json:"total_tasks"`
	Summaries         []TaskSummary  `json:"task_summaries"`
	StructuredSources int            `json:"structured_sources"`
	StructuredData    map[string]any `json:"structured_data"`
	KeyInsights       []string       `json:"key_insights"`
	Recommendations   []string       `json:"recommendations"`
	Metrics           Metrics        `json:"project_metrics"`
	QualityScore      float64        `json:"data_quality_score"`
}

// structured is the parsed detailed_results_json of one task.
type structured struct {
	taskName string
	doc      gjson.Result
}

var (
	objectPattern   = regexp.MustCompile(`\{[^{}]*\}`)
	sentenceSplit   = regexp.MustCompile(`[.!?]+`)
	insightKeywords = []string{
		"discovered", "revealed", "found", "identified", "concluded",
		"determined", "observed", "noted", "realized", "established",
	}
)

// Aggregate collects summaries, structured results and metrics from the
// completed tasks for a deliverable of type typ.
func Aggregate(completed []*task.Task, typ string) Aggregation {
	agg := Aggregation{TotalTasks: len(completed)}

	var docs []structured
	var withSummary, withStructured, withRecommendations, contentChars int
	for _, t := range completed {
		if t.Result == nil {
			continue
		}
		summary := strings.TrimSpace(t.Result.Summary)
		if utf8.RuneCountInString(summary) > minSummaryChars {
			role := t.AssignedToRole
			if role == "" {
				role = "Unknown"
			}
			agg.Summaries = append(agg.Summaries, TaskSummary{
				TaskID:    t.ID,
				TaskName:  t.Name,
				AgentRole: role,
				Summary:   summary,
			})
			withSummary++
			contentChars += utf8.RuneCountInString(summary)
		}

		doc, ok := parseStructured(t.Result.DetailedResultsJSON)
		if !ok {
			continue
		}
		docs = append(docs, structured{taskName: t.Name, doc: doc})
		withStructured++

		if steps := doc.Get("next_steps"); steps.IsArray() && len(steps.Array()) > 0 {
			for _, s := range steps.Array() {
				agg.Recommendations = append(agg.Recommendations, s.String())
			}
			withRecommendations++
		}
	}

	agg.StructuredSources = len(docs)
	agg.StructuredData = extractByType(docs, typ)
	agg.KeyInsights = extractInsights(agg.Summaries)
	agg.Metrics = projectMetrics(completed, withStructured)

	if n := float64(len(completed)); n > 0 {
		score := float64(withSummary)/n*40 +
			float64(withStructured)/n*30 +
			float64(withRecommendations)/n*20 +
			math.Min(float64(contentChars)/fullContentChars, 1)*10
		agg.QualityScore = math.Round(score*10) / 10
	}
	return agg
}

// parseStructured returns the non-empty JSON object in raw. Malformed input
// falls back to merging the flat objects found inside it.
func parseStructured(raw string) (gjson.Result, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return gjson.Result{}, false
	}
	if gjson.Valid(raw) {
		doc := gjson.Parse(raw)
		if doc.IsObject() && len(doc.Map()) > 0 {
			return doc, true
		}
		return gjson.Result{}, false
	}

	var parts []string
	for _, m := range objectPattern.FindAllString(raw, -1) {
		if gjson.Valid(m) && gjson.Parse(m).IsObject() {
			inner := strings.TrimSpace(m[1 : len(m)-1])
			if inner != "" {
				parts = append(parts, inner)
			}
		}
	}
	if len(parts) == 0 {
		return gjson.Result{}, false
	}
	merged := "{" + strings.Join(parts, ",") + "}"
	if !gjson.Valid(merged) {
		return gjson.Result{}, false
	}
	return gjson.Parse(merged), true
}

// category collects values whose key contains one of terms. A category
// without terms takes every key no other category claimed.
type category struct {
	name  string
	terms []string
}

var typeCategories = map[string][]category{
	"contact_list": {
		{"contacts", []string{"contact", "lead", "prospect", "company", "business", "client", "email", "phone"}},
	},
	"content_strategy": {
		{"content_ideas", []string{"content", "post", "idea", "topic"}},
		{"strategies", []string{"strategy", "plan", "framework"}},
		{"calendars", []string{"calendar", "schedule", "timeline"}},
		{"hashtags", []string{"hashtag"}},
	},
	"competitor_analysis": {
		{"competitor_profiles", []string{"competitor"}},
		{"analysis_results", []string{"analysis"}},
	},
	"market_research": {
		{"market_insights", []string{"market", "industry", "sector"}},
		{"audience_profiles", []string{"audience", "demographic", "customer"}},
		{"trends_identified", []string{"trend", "pattern", "behavior"}},
	},
	"social_media_plan": {
		{"instagram", []string{"instagram"}},
		{"facebook", []string{"facebook"}},
		{"twitter", []string{"twitter"}},
		{"linkedin", []string{"linkedin"}},
		{"campaigns", []string{"campaign"}},
		{"metrics", []string{"metric", "analytics", "performance"}},
	},
}

var genericCategories = []category{
	{"analysis_results", []string{"analysis", "result", "finding"}},
	{"recommendations", []string{"recommend", "suggest", "action"}},
	{"metrics", []string{"metric", "number", "count", "rate"}},
	{"insights", []string{"insight", "observation", "conclusion"}},
	{"data_points", nil},
}

// extractByType sorts the top-level values of every structured result into
// the categories of typ. Array values are flattened.
func extractByType(docs []structured, typ string) map[string]any {
	cats, ok := typeCategories[typ]
	if !ok {
		cats = genericCategories
	}

	buckets := make(map[string][]any, len(cats))
	var sources []string
	for _, d := range docs {
		sources = append(sources, d.taskName)
		d.doc.ForEach(func(key, value gjson.Result) bool {
			k := strings.ToLower(key.String())
			for _, c := range cats {
				if c.terms != nil && !containsAny(k, c.terms) {
					continue
				}
				if value.IsArray() {
					for _, v := range value.Array() {
						buckets[c.name] = append(buckets[c.name], v.Value())
					}
				} else {
					buckets[c.name] = append(buckets[c.name], value.Value())
				}
				break
			}
			return true
		})
	}

	out := make(map[string]any, len(buckets)+2)
	for _, c := range cats {
		out[c.name] = buckets[c.name]
		out["total_"+c.name] = len(buckets[c.name])
	}
	out["data_sources"] = sources
	out["num_data_sources"] = len(docs)
	return out
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// extractInsights picks summary sentences that report a finding.
func extractInsights(summaries []TaskSummary) []string {
	var insights []string
	seen := make(map[string]bool)
	for _, s := range summaries {
		for _, sentence := range sentenceSplit.Split(s.Summary, -1) {
			sentence = strings.TrimSpace(sentence)
			if utf8.RuneCountInString(sentence) <= minInsightChars || seen[sentence] {
				continue
			}
			if containsAny(strings.ToLower(sentence), insightKeywords) {
				seen[sentence] = true
				insights = append(insights, sentence)
				if len(insights) == maxInsights {
					return insights
				}
			}
		}
	}
	return insights
}

func projectMetrics(completed []*task.Task, withStructured int) Metrics {
	m := Metrics{
		TotalCompleted:          len(completed),
		PhaseDistribution:       make(map[string]int),
		AgentActivity:           make(map[string]int),
		TasksWithStructuredData: withStructured,
	}
	var hours float64
	var timed int
	for _, t := range completed {
		if !t.CreatedAt.IsZero() && !t.UpdatedAt.IsZero() {
			hours += t.UpdatedAt.Sub(t.CreatedAt).Hours()
			timed++
		}
		p := t.Phase()
		if p == "" {
			p = "UNKNOWN"
		}
		m.PhaseDistribution[p]++
		role := t.AssignedToRole
		if role == "" {
			role = "Unknown"
		}
		m.AgentActivity[role]++
	}
	if timed > 0 {
		m.AverageDurationHours = math.Round(hours/float64(timed)*100) / 100
	}
	return m
}
