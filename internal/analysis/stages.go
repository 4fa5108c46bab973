package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type StageRunner interface {
	RunProblems(ctx context.Context, sc StageContext) (ProblemsOutput, StageMetrics, error)
	RunMarketMaturity(ctx context.Context, sc StageContext) (MarketMaturity, StageMetrics, error)
	RunGoals(ctx context.Context, problems ProblemsOutput) (GoalsOutput, StageMetrics, error)
	RunFeatureCategories(ctx context.Context, goals GoalsOutput, maturity MarketMaturity) (CategoriesOutput, StageMetrics, error)
	RunFeatureGeneration(ctx context.Context, sc StageContext, categories CategoriesOutput, goals GoalsOutput) (FeaturesOutput, StageMetrics, error)
	RunCompetitors(ctx context.Context, keyword string, listings []CompetitorListing, features FeaturesOutput) (CompetitorsOutput, StageMetrics, error)
	RunFeatureEnhancement(ctx context.Context, keyword string, competitors CompetitorsOutput, features FeaturesOutput) (EnhancementOutput, StageMetrics, error)
}

// LLMStageRunner drives each stage through an executor. The heavy executor
// carries the reasoning stages; the light one handles market maturity.
type LLMStageRunner struct {
	heavy *StageExecutor
	light *StageExecutor
}

func NewLLMStageRunner(heavy, light *StageExecutor) *LLMStageRunner {
	if light == nil {
		light = heavy
	}
	return &LLMStageRunner{heavy: heavy, light: light}
}

const problemsPromptContext = `You are analyzing search trend data to identify the top 3 user problems.
Focus on:
- Pain points users are actively searching for solutions to
- Problems indicated by "how to", "why", "problem with", "fix", "solution" queries
- Rising searches that suggest unmet needs
- Frequency and intensity of problem-related searches

Identify problems that represent genuine user pain points with strong
business potential. Ground every problem in the supplied queries.`

const problemsSchemaPrompt = `Required JSON schema:
{
  "problems":[{"problem":"string","evidence":"string","severity":"int 1-10"}],
  "analysis_summary":"string"
}`

const maturityPromptContext = `Analyze the interest-over-time data to determine market stage.

Market Stages:
- early: low but growing interest, volatility, emerging market
- mid: moderate interest, steady growth, established but growing market
- saturated: high interest with plateau/decline, mature market with high competition

Consider the overall trend direction, interest level consistency, growth
rate, volatility, and seasonal patterns.`

const maturitySchemaPrompt = `Required JSON schema:
{
  "stage":"early|mid|saturated",
  "confidence":"float 0-1",
  "reasoning":"string",
  "trend_direction":"rising|stable|declining"
}`

const goalsPromptContext = `For each user problem, define a clear solution goal.
A good goal is specific and actionable, addresses the root cause, has clear
success metrics, is technically feasible, and has commercial potential.`

const goalsSchemaPrompt = `Required JSON schema:
{
  "goals":[{"goal":"string","target_audience":"string","value_proposition":"string"}]
}`

const categoriesPromptContext = `Based on the solution goals and market maturity, suggest 2-3 SaaS solution
categories. Consider market maturity and competition level, technical
feasibility, monetization potential, differentiation opportunities, and time
to market. Categories might include Analytics, Automation, Communication,
Productivity, Security, Integration, AI/ML.`

const categoriesSchemaPrompt = `Required JSON schema:
{
  "categories":[{"category":"string","description":"string","key_features":["string (2-3)"],"market_fit_score":"int 1-10"}],
  "recommended_category":"string (most recommended category and why)"
}`

const featuresPromptContext = `Generate 5-7 innovative SaaS features for the recommended category.
Features must be:
- INNOVATIVE: novel approaches, not copies of existing solutions
- USER-CENTRIC: directly address the identified problems and goals
- TECHNICALLY FEASIBLE: realistic with current technology
- BUSINESS VIABLE: clear value proposition and monetization potential
- DIFFERENTIATED: provide competitive advantages

Use the emerging trends and feature themes to identify opportunities.
Tag features with relevant technology/concept tags. Recommend 3-4 features
for the MVP and park the rest as advanced features.`

const featuresSchemaPrompt = `Required JSON schema:
{
  "features":[{"name":"string","description":"string","innovation_level":"int 1-10","implementation_complexity":"low|medium|high","tags":["string"],"user_value":"string","competitive_advantage":"string"}],
  "feature_priority_ranking":["string (feature names by priority)"],
  "mvp_features":["string (3-4)"],
  "advanced_features":["string"],
  "technical_considerations":"string"
}`

const competitorsPromptContext = `Profile the competitive landscape from the scraped search listings below.
For each identifiable competitor give its positioning, one strength, and one
weakness. Then name the market gaps the listings reveal. Only use companies
and claims that appear in the listings.`

const competitorsSchemaPrompt = `Required JSON schema:
{
  "competitors":[{"name":"string","positioning":"string","strength":"string","weakness":"string"}],
  "market_gaps":["string"],
  "positioning_note":"string"
}`

const enhancementPromptContext = `Given the competitor profiles and the generated feature set, propose an
enhancement for each feature that sharpens its differentiation against the
named competitors. Keep enhancements concrete and buildable.`

const enhancementSchemaPrompt = `Required JSON schema:
{
  "enhancements":[{"feature_name":"string","enhancement":"string","differentiation":"string"}],
  "strategic_advice":"string"
}`

func (r *LLMStageRunner) RunProblems(ctx context.Context, sc StageContext) (ProblemsOutput, StageMetrics, error) {
	out := ProblemsOutput{}
	prompt := fmt.Sprintf(
		"Stage: Problem Extraction.\n%s\n\n%s\n\nKEYWORD: %s\n\nStage context:\n%s",
		problemsPromptContext,
		problemsSchemaPrompt,
		sc.Keyword,
		mustJSON(sc),
	)
	m, err := r.heavy.Run(ctx, StageProblems, prompt, &out, func() error { return validateProblems(out) })
	if err == nil {
		clampProblems(&out)
	}
	return out, m, err
}

func (r *LLMStageRunner) RunMarketMaturity(ctx context.Context, sc StageContext) (MarketMaturity, StageMetrics, error) {
	out := MarketMaturity{}
	prompt := fmt.Sprintf(
		"Stage: Market Maturity.\n%s\n\n%s\n\nKEYWORD: %s\nTIME PERIOD: Last 12 months\n\nStage context:\n%s",
		maturityPromptContext,
		maturitySchemaPrompt,
		sc.Keyword,
		mustJSON(sc),
	)
	m, err := r.light.Run(ctx, StageMarketMaturity, prompt, &out, func() error { return validateMaturity(out) })
	if err == nil {
		clampMaturity(&out)
	}
	return out, m, err
}

func (r *LLMStageRunner) RunGoals(ctx context.Context, problems ProblemsOutput) (GoalsOutput, StageMetrics, error) {
	out := GoalsOutput{}
	prompt := fmt.Sprintf(
		"Stage: Goal Extraction.\n%s\n\n%s\n\nPROBLEMS ANALYSIS:\n%s",
		goalsPromptContext,
		goalsSchemaPrompt,
		mustJSON(problems),
	)
	m, err := r.heavy.Run(ctx, StageGoals, prompt, &out, func() error { return validateGoals(out) })
	return out, m, err
}

func (r *LLMStageRunner) RunFeatureCategories(ctx context.Context, goals GoalsOutput, maturity MarketMaturity) (CategoriesOutput, StageMetrics, error) {
	out := CategoriesOutput{}
	prompt := fmt.Sprintf(
		"Stage: Feature Categories.\n%s\n\n%s\n\nSOLUTION GOALS:\n%s\n\nMARKET MATURITY:\n%s",
		categoriesPromptContext,
		categoriesSchemaPrompt,
		mustJSON(goals),
		mustJSON(maturity),
	)
	m, err := r.heavy.Run(ctx, StageFeatureCategories, prompt, &out, func() error { return validateCategories(out) })
	if err == nil {
		clampCategories(&out)
	}
	return out, m, err
}

func (r *LLMStageRunner) RunFeatureGeneration(ctx context.Context, sc StageContext, categories CategoriesOutput, goals GoalsOutput) (FeaturesOutput, StageMetrics, error) {
	out := FeaturesOutput{}
	prompt := fmt.Sprintf(
		"Stage: Feature Generation.\n%s\n\n%s\n\nKEYWORD CONTEXT: %s\n\nRECOMMENDED SAAS CATEGORY:\n%s\n\nALL CATEGORIES CONSIDERED:\n%s\n\nSOLUTION GOALS:\n%s\n\nStage context:\n%s",
		featuresPromptContext,
		featuresSchemaPrompt,
		sc.Keyword,
		categories.RecommendedCategory,
		mustJSON(categories),
		mustJSON(goals),
		mustJSON(sc),
	)
	m, err := r.heavy.Run(ctx, StageFeatureGeneration, prompt, &out, func() error { return validateFeatures(out) })
	if err == nil {
		clampFeatures(&out)
	}
	return out, m, err
}

func (r *LLMStageRunner) RunCompetitors(ctx context.Context, keyword string, listings []CompetitorListing, features FeaturesOutput) (CompetitorsOutput, StageMetrics, error) {
	out := CompetitorsOutput{}
	prompt := fmt.Sprintf(
		"Stage: Competitor Analysis.\n%s\n\n%s\n\nKEYWORD: %s\n\nSEARCH LISTINGS:\n%s\n\nOUR PLANNED FEATURES:\n%s",
		competitorsPromptContext,
		competitorsSchemaPrompt,
		keyword,
		mustJSON(listings),
		mustJSON(features),
	)
	m, err := r.heavy.Run(ctx, StageCompetitors, prompt, &out, func() error { return validateCompetitors(out) })
	return out, m, err
}

func (r *LLMStageRunner) RunFeatureEnhancement(ctx context.Context, keyword string, competitors CompetitorsOutput, features FeaturesOutput) (EnhancementOutput, StageMetrics, error) {
	out := EnhancementOutput{}
	prompt := fmt.Sprintf(
		"Stage: Feature Enhancement.\n%s\n\n%s\n\nKEYWORD: %s\n\nCOMPETITOR ANALYSIS:\n%s\n\nFEATURES:\n%s",
		enhancementPromptContext,
		enhancementSchemaPrompt,
		keyword,
		mustJSON(competitors),
		mustJSON(features),
	)
	m, err := r.heavy.Run(ctx, StageFeatureEnhancement, prompt, &out, func() error { return validateEnhancement(out) })
	return out, m, err
}

func validateProblems(o ProblemsOutput) error {
	if len(o.Problems) == 0 {
		return fmt.Errorf("problems must be non-empty")
	}
	for i, p := range o.Problems {
		if strings.TrimSpace(p.Problem) == "" {
			return fmt.Errorf("problems[%d].problem required", i)
		}
		if strings.TrimSpace(p.Evidence) == "" {
			return fmt.Errorf("problems[%d].evidence required", i)
		}
	}
	if strings.TrimSpace(o.AnalysisSummary) == "" {
		return fmt.Errorf("analysis_summary required")
	}
	return nil
}

func validateMaturity(o MarketMaturity) error {
	switch o.Stage {
	case "early", "mid", "saturated":
	default:
		return fmt.Errorf("invalid stage %q", o.Stage)
	}
	switch o.TrendDirection {
	case "rising", "stable", "declining":
	default:
		return fmt.Errorf("invalid trend_direction %q", o.TrendDirection)
	}
	if strings.TrimSpace(o.Reasoning) == "" {
		return fmt.Errorf("reasoning required")
	}
	return nil
}

func validateGoals(o GoalsOutput) error {
	if len(o.Goals) == 0 {
		return fmt.Errorf("goals must be non-empty")
	}
	for i, g := range o.Goals {
		if strings.TrimSpace(g.Goal) == "" {
			return fmt.Errorf("goals[%d].goal required", i)
		}
		if strings.TrimSpace(g.TargetAudience) == "" {
			return fmt.Errorf("goals[%d].target_audience required", i)
		}
		if strings.TrimSpace(g.ValueProposition) == "" {
			return fmt.Errorf("goals[%d].value_proposition required", i)
		}
	}
	return nil
}

func validateCategories(o CategoriesOutput) error {
	if len(o.Categories) == 0 {
		return fmt.Errorf("categories must be non-empty")
	}
	for i, c := range o.Categories {
		if strings.TrimSpace(c.Category) == "" {
			return fmt.Errorf("categories[%d].category required", i)
		}
		if strings.TrimSpace(c.Description) == "" {
			return fmt.Errorf("categories[%d].description required", i)
		}
		if len(c.KeyFeatures) == 0 {
			return fmt.Errorf("categories[%d].key_features required", i)
		}
	}
	if strings.TrimSpace(o.RecommendedCategory) == "" {
		return fmt.Errorf("recommended_category required")
	}
	return nil
}

func validateFeatures(o FeaturesOutput) error {
	if len(o.Features) == 0 {
		return fmt.Errorf("features must be non-empty")
	}
	for i, f := range o.Features {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("features[%d].name required", i)
		}
		if strings.TrimSpace(f.Description) == "" {
			return fmt.Errorf("features[%d].description required", i)
		}
		switch f.ImplementationComplexity {
		case "low", "medium", "high":
		default:
			return fmt.Errorf("features[%d].implementation_complexity invalid: %q", i, f.ImplementationComplexity)
		}
	}
	return nil
}

func validateCompetitors(o CompetitorsOutput) error {
	if len(o.Competitors) == 0 {
		return fmt.Errorf("competitors must be non-empty")
	}
	for i, c := range o.Competitors {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("competitors[%d].name required", i)
		}
	}
	return nil
}

func validateEnhancement(o EnhancementOutput) error {
	if len(o.Enhancements) == 0 {
		return fmt.Errorf("enhancements must be non-empty")
	}
	for i, e := range o.Enhancements {
		if strings.TrimSpace(e.FeatureName) == "" {
			return fmt.Errorf("enhancements[%d].feature_name required", i)
		}
		if strings.TrimSpace(e.Enhancement) == "" {
			return fmt.Errorf("enhancements[%d].enhancement required", i)
		}
	}
	return nil
}

// Numeric outputs are clamped to their declared ranges instead of failing a
// run over an off-by-one score.
func clampProblems(o *ProblemsOutput) {
	for i := range o.Problems {
		o.Problems[i].Severity = clampInt(o.Problems[i].Severity, 1, 10)
	}
}

func clampMaturity(o *MarketMaturity) {
	o.Confidence = clampFloat(o.Confidence, 0, 1)
}

func clampCategories(o *CategoriesOutput) {
	for i := range o.Categories {
		o.Categories[i].MarketFitScore = clampInt(o.Categories[i].MarketFitScore, 1, 10)
	}
}

func clampFeatures(o *FeaturesOutput) {
	for i := range o.Features {
		o.Features[i].InnovationLevel = clampInt(o.Features[i].InnovationLevel, 1, 10)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
