package analysis

import (
	"fmt"
	"time"

	"github.com/joelkehle/trendscout/internal/trends"
)

// Stage names the generative steps of the pipeline. The values appear in
// logs, attempt metrics, and progress events.
type Stage string

const (
	StageProblems           Stage = "problem_extraction"
	StageMarketMaturity     Stage = "market_maturity"
	StageGoals              Stage = "goal_extraction"
	StageFeatureCategories  Stage = "feature_categories"
	StageFeatureGeneration  Stage = "feature_generation"
	StageCompetitors        Stage = "competitor_analysis"
	StageFeatureEnhancement Stage = "feature_enhancement"
)

// CoreStages are always executed, in this order. The competitor pair runs
// only when a competitor fetcher is configured.
var CoreStages = []Stage{
	StageProblems,
	StageMarketMaturity,
	StageGoals,
	StageFeatureCategories,
	StageFeatureGeneration,
}

var CompetitorStages = []Stage{StageCompetitors, StageFeatureEnhancement}

// StageMetrics records how hard the executor worked for one stage.
type StageMetrics struct {
	Attempts       int `json:"attempts"`
	ContentRetries int `json:"content_retries"`
}

// StageError wraps a failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

type UserProblem struct {
	Problem  string `json:"problem"`
	Evidence string `json:"evidence"`
	Severity int    `json:"severity"`
}

type ProblemsOutput struct {
	Problems        []UserProblem `json:"problems"`
	AnalysisSummary string        `json:"analysis_summary"`
}

type MarketMaturity struct {
	Stage          string  `json:"stage"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	TrendDirection string  `json:"trend_direction"`
}

type SolutionGoal struct {
	Goal             string `json:"goal"`
	TargetAudience   string `json:"target_audience"`
	ValueProposition string `json:"value_proposition"`
}

type GoalsOutput struct {
	Goals []SolutionGoal `json:"goals"`
}

type FeatureCategory struct {
	Category       string   `json:"category"`
	Description    string   `json:"description"`
	KeyFeatures    []string `json:"key_features"`
	MarketFitScore int      `json:"market_fit_score"`
}

type CategoriesOutput struct {
	Categories          []FeatureCategory `json:"categories"`
	RecommendedCategory string            `json:"recommended_category"`
}

type InnovativeFeature struct {
	Name                     string   `json:"name"`
	Description              string   `json:"description"`
	InnovationLevel          int      `json:"innovation_level"`
	ImplementationComplexity string   `json:"implementation_complexity"`
	Tags                     []string `json:"tags"`
	UserValue                string   `json:"user_value"`
	CompetitiveAdvantage     string   `json:"competitive_advantage"`
}

type FeaturesOutput struct {
	Features                []InnovativeFeature `json:"features"`
	FeaturePriorityRanking  []string            `json:"feature_priority_ranking"`
	MVPFeatures             []string            `json:"mvp_features"`
	AdvancedFeatures        []string            `json:"advanced_features"`
	TechnicalConsiderations string              `json:"technical_considerations"`
}

type CompetitorProfile struct {
	Name        string `json:"name"`
	Positioning string `json:"positioning"`
	Strength    string `json:"strength"`
	Weakness    string `json:"weakness"`
}

type CompetitorsOutput struct {
	Competitors     []CompetitorProfile `json:"competitors"`
	MarketGaps      []string            `json:"market_gaps"`
	PositioningNote string              `json:"positioning_note"`
}

type FeatureEnhancement struct {
	FeatureName     string `json:"feature_name"`
	Enhancement     string `json:"enhancement"`
	Differentiation string `json:"differentiation"`
}

type EnhancementOutput struct {
	Enhancements    []FeatureEnhancement `json:"enhancements"`
	StrategicAdvice string               `json:"strategic_advice"`
}

// MarketTrendInsight, ProblemLandscape, and TrendCharacteristics are the
// summary layer attached to every result.
type MarketTrendInsight struct {
	Direction     string `json:"direction"`
	Volatility    string `json:"volatility"`
	InterestLevel string `json:"interest_level"`
}

type ProblemLandscape struct {
	HasPainPoints   bool    `json:"has_pain_points"`
	SolutionSeeking bool    `json:"solution_seeking"`
	ProblemDensity  float64 `json:"problem_density"`
}

type TrendCharacteristics struct {
	IsSeasonal  bool `json:"is_seasonal"`
	IsTrending  bool `json:"is_trending"`
	IsTechnical bool `json:"is_technical"`
}

type SummaryInsights struct {
	MarketTrend          *MarketTrendInsight   `json:"market_trend,omitempty"`
	ProblemLandscape     *ProblemLandscape     `json:"problem_landscape,omitempty"`
	TrendCharacteristics *TrendCharacteristics `json:"trend_characteristics,omitempty"`
}

// DataQuality flags which parts of the dataset actually arrived.
type DataQuality struct {
	HasInterestData   bool    `json:"has_interest_data"`
	HasRelatedQueries bool    `json:"has_related_queries"`
	HasRisingSearches bool    `json:"has_rising_searches"`
	DataCompleteness  float64 `json:"data_completeness"`
}

// AnalysisResult is the compiled output of one pipeline run. Stage fields
// are always present; a stage that fell back still contributes its
// schema-valid degraded record.
type AnalysisResult struct {
	Keyword            string                 `json:"keyword"`
	AnalysisTimestamp  time.Time              `json:"analysis_timestamp"`
	TrendsMetadata     map[string]any         `json:"trends_metadata"`
	IdentifiedProblems ProblemsOutput         `json:"identified_problems"`
	MarketMaturity     MarketMaturity         `json:"market_maturity"`
	SolutionGoals      GoalsOutput            `json:"solution_goals"`
	SaaSOpportunities  CategoriesOutput       `json:"saas_opportunities"`
	InnovativeFeatures FeaturesOutput         `json:"innovative_features"`
	CompetitorAnalysis *CompetitorsOutput     `json:"competitor_analysis,omitempty"`
	EnhancedFeatures   *EnhancementOutput     `json:"enhanced_features,omitempty"`
	SummaryInsights    SummaryInsights        `json:"summary_insights"`
	DataQuality        DataQuality            `json:"data_quality"`
	DegradedStages     []Stage                `json:"degraded_stages,omitempty"`
	Attempts           map[Stage]StageMetrics `json:"stage_attempts"`
}

// StageContext is the bounded view of the dataset handed to one stage
// prompt.
type StageContext struct {
	Keyword         string          `json:"keyword"`
	Timestamp       time.Time       `json:"timestamp"`
	DataQuality     DataQuality     `json:"data_quality"`
	OptimizedData   map[string]any  `json:"optimized_data"`
	SummaryInsights SummaryInsights `json:"summary_insights"`
}

// Enriched gives downstream consumers access to the derived layer without
// recomputing it.
type Enriched struct {
	Dataset trends.TrendDataset
	Context trends.EnrichedContext
}
