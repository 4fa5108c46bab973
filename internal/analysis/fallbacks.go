package analysis

import "fmt"

// fallbackTable maps every runnable stage to a constructor for its degraded
// output. Values are deterministic and schema-valid so downstream stages and
// consumers never special-case a failed stage.
var fallbackTable = map[Stage]func() any{
	StageProblems: func() any {
		return ProblemsOutput{
			Problems: []UserProblem{{
				Problem:  "Unable to extract specific problems due to API error",
				Evidence: "Analysis incomplete - please retry",
				Severity: 5,
			}},
			AnalysisSummary: "Analysis failed - fallback response generated",
		}
	},
	StageMarketMaturity: func() any {
		return MarketMaturity{
			Stage:          "mid",
			Confidence:     0.5,
			Reasoning:      "Unable to complete analysis due to API error",
			TrendDirection: "stable",
		}
	},
	StageGoals: func() any {
		return GoalsOutput{
			Goals: []SolutionGoal{{
				Goal:             "Solve user problems efficiently",
				TargetAudience:   "General users",
				ValueProposition: "Improved user experience",
			}},
		}
	},
	StageFeatureCategories: func() any {
		return CategoriesOutput{
			Categories: []FeatureCategory{{
				Category:       "General SaaS Solution",
				Description:    "Standard SaaS application with basic features",
				KeyFeatures:    []string{"Basic functionality", "User management", "Data storage"},
				MarketFitScore: 5,
			}},
			RecommendedCategory: "General SaaS Solution - API analysis incomplete",
		}
	},
	StageFeatureGeneration: func() any {
		return FeaturesOutput{
			Features: []InnovativeFeature{{
				Name:                     "Basic Feature Set",
				Description:              "Standard functionality for the application",
				InnovationLevel:          3,
				ImplementationComplexity: "medium",
				Tags:                     []string{"basic", "standard"},
				UserValue:                "Provides essential functionality",
				CompetitiveAdvantage:     "Reliable basic features",
			}},
			FeaturePriorityRanking:  []string{"Basic Feature Set"},
			MVPFeatures:             []string{"Basic Feature Set"},
			AdvancedFeatures:        []string{},
			TechnicalConsiderations: "Standard implementation required",
		}
	},
	StageCompetitors: func() any {
		return CompetitorsOutput{
			Competitors: []CompetitorProfile{{
				Name:        "Unknown competitor",
				Positioning: "Competitor analysis incomplete due to API error",
				Strength:    "unknown",
				Weakness:    "unknown",
			}},
			MarketGaps:      []string{"Competitor analysis incomplete - please retry"},
			PositioningNote: "Analysis failed - fallback response generated",
		}
	},
	StageFeatureEnhancement: func() any {
		return EnhancementOutput{
			Enhancements: []FeatureEnhancement{{
				FeatureName:     "Basic Feature Set",
				Enhancement:     "Enhancement analysis incomplete due to API error",
				Differentiation: "unknown",
			}},
			StrategicAdvice: "Analysis failed - fallback response generated",
		}
	},
}

// Fallback returns the degraded output for a stage. An unknown stage is a
// programming error surfaced to the caller; the run must fail rather than
// invent output.
func Fallback(stage Stage) (any, error) {
	build, ok := fallbackTable[stage]
	if !ok {
		return nil, fmt.Errorf("no fallback available for stage %q", stage)
	}
	return build(), nil
}

// fallbackAs fetches and type-asserts in one step for the pipeline's typed
// stage slots.
func fallbackAs[T any](stage Stage) (T, error) {
	var zero T
	v, err := Fallback(stage)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("fallback for stage %q has type %T", stage, v)
	}
	return out, nil
}

// VerifyFallbacks fails fast at startup when a declared stage has no
// fallback entry.
func VerifyFallbacks(stages []Stage) error {
	for _, s := range stages {
		if _, ok := fallbackTable[s]; !ok {
			return fmt.Errorf("stage %q declared without a fallback", s)
		}
	}
	return nil
}
