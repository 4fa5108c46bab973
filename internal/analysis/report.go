package analysis

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// BuildMarkdown renders a compiled result as a human-readable report.
func BuildMarkdown(res AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# SaaS Opportunity Analysis: %s\n\n", sanitize(res.Keyword))
	fmt.Fprintf(&b, "- Keyword: %s\n", sanitize(res.Keyword))
	fmt.Fprintf(&b, "- Date: %s\n", res.AnalysisTimestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Data completeness: %.0f%%\n\n", res.DataQuality.DataCompleteness*100)

	if len(res.DegradedStages) > 0 {
		names := make([]string, len(res.DegradedStages))
		for i, s := range res.DegradedStages {
			names[i] = string(s)
		}
		fmt.Fprintf(&b, "> DEGRADED: stage(s) `%s` fell back to defaults. Treat the affected sections as placeholders.\n\n", strings.Join(names, "`, `"))
	}

	fmt.Fprintf(&b, "## Market Maturity\n\n")
	fmt.Fprintf(&b, "- Stage: `%s`\n", res.MarketMaturity.Stage)
	fmt.Fprintf(&b, "- Trend: `%s`\n", res.MarketMaturity.TrendDirection)
	fmt.Fprintf(&b, "- Confidence: %.0f%%\n", res.MarketMaturity.Confidence*100)
	fmt.Fprintf(&b, "- Reasoning: %s\n\n", sanitize(res.MarketMaturity.Reasoning))

	fmt.Fprintf(&b, "## Identified User Problems\n\n")
	fmt.Fprintf(&b, "| # | Problem | Evidence | Severity |\n")
	fmt.Fprintf(&b, "|---|---------|----------|----------|\n")
	for i, p := range res.IdentifiedProblems.Problems {
		fmt.Fprintf(&b, "| %d | %s | %s | %d/10 |\n", i+1, sanitize(p.Problem), sanitize(p.Evidence), p.Severity)
	}
	fmt.Fprintf(&b, "\n%s\n\n", sanitize(res.IdentifiedProblems.AnalysisSummary))

	fmt.Fprintf(&b, "## Solution Goals\n\n")
	for i, g := range res.SolutionGoals.Goals {
		fmt.Fprintf(&b, "%d. **%s**\n", i+1, sanitize(g.Goal))
		fmt.Fprintf(&b, "   - Audience: %s\n", sanitize(g.TargetAudience))
		fmt.Fprintf(&b, "   - Value: %s\n", sanitize(g.ValueProposition))
	}
	fmt.Fprintf(&b, "\n")

	fmt.Fprintf(&b, "## SaaS Opportunities\n\n")
	fmt.Fprintf(&b, "| Category | Description | Key Features | Market Fit |\n")
	fmt.Fprintf(&b, "|----------|-------------|--------------|------------|\n")
	for _, c := range res.SaaSOpportunities.Categories {
		fmt.Fprintf(&b, "| %s | %s | %s | %d/10 |\n", sanitize(c.Category), sanitize(c.Description), sanitize(strings.Join(c.KeyFeatures, ", ")), c.MarketFitScore)
	}
	fmt.Fprintf(&b, "\n**Recommended:** %s\n\n", sanitize(res.SaaSOpportunities.RecommendedCategory))

	fmt.Fprintf(&b, "## Innovative Features\n\n")
	for _, f := range res.InnovativeFeatures.Features {
		fmt.Fprintf(&b, "### %s\n\n", sanitize(f.Name))
		fmt.Fprintf(&b, "%s\n\n", sanitize(f.Description))
		fmt.Fprintf(&b, "- Innovation: %d/10, complexity: %s\n", f.InnovationLevel, f.ImplementationComplexity)
		fmt.Fprintf(&b, "- Tags: %s\n", sanitize(strings.Join(f.Tags, ", ")))
		fmt.Fprintf(&b, "- User value: %s\n", sanitize(f.UserValue))
		fmt.Fprintf(&b, "- Edge: %s\n\n", sanitize(f.CompetitiveAdvantage))
	}
	if len(res.InnovativeFeatures.MVPFeatures) > 0 {
		fmt.Fprintf(&b, "**MVP:** %s\n\n", sanitize(strings.Join(res.InnovativeFeatures.MVPFeatures, ", ")))
	}
	if len(res.InnovativeFeatures.AdvancedFeatures) > 0 {
		fmt.Fprintf(&b, "**Later versions:** %s\n\n", sanitize(strings.Join(res.InnovativeFeatures.AdvancedFeatures, ", ")))
	}
	if res.InnovativeFeatures.TechnicalConsiderations != "" {
		fmt.Fprintf(&b, "**Technical considerations:** %s\n\n", sanitize(res.InnovativeFeatures.TechnicalConsiderations))
	}

	if res.CompetitorAnalysis != nil {
		fmt.Fprintf(&b, "## Competitive Landscape\n\n")
		fmt.Fprintf(&b, "| Competitor | Positioning | Strength | Weakness |\n")
		fmt.Fprintf(&b, "|------------|-------------|----------|----------|\n")
		for _, c := range res.CompetitorAnalysis.Competitors {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", sanitize(c.Name), sanitize(c.Positioning), sanitize(c.Strength), sanitize(c.Weakness))
		}
		if len(res.CompetitorAnalysis.MarketGaps) > 0 {
			fmt.Fprintf(&b, "\nMarket gaps:\n\n")
			for _, g := range res.CompetitorAnalysis.MarketGaps {
				fmt.Fprintf(&b, "- %s\n", sanitize(g))
			}
		}
		fmt.Fprintf(&b, "\n%s\n\n", sanitize(res.CompetitorAnalysis.PositioningNote))
	}

	if res.EnhancedFeatures != nil {
		fmt.Fprintf(&b, "## Feature Enhancements\n\n")
		for _, e := range res.EnhancedFeatures.Enhancements {
			fmt.Fprintf(&b, "- **%s**: %s (%s)\n", sanitize(e.FeatureName), sanitize(e.Enhancement), sanitize(e.Differentiation))
		}
		fmt.Fprintf(&b, "\n%s\n\n", sanitize(res.EnhancedFeatures.StrategicAdvice))
	}

	fmt.Fprintf(&b, "## Data Quality\n\n")
	fmt.Fprintf(&b, "- Interest data: %t\n", res.DataQuality.HasInterestData)
	fmt.Fprintf(&b, "- Related queries: %t\n", res.DataQuality.HasRelatedQueries)
	fmt.Fprintf(&b, "- Rising searches: %t\n", res.DataQuality.HasRisingSearches)

	return b.String()
}

var htmlRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts the markdown report to an HTML document body.
func RenderHTML(res AnalysisResult) (string, error) {
	var buf bytes.Buffer
	if err := htmlRenderer.Convert([]byte(BuildMarkdown(res)), &buf); err != nil {
		return "", fmt.Errorf("render report html: %w", err)
	}
	return buf.String(), nil
}

// sanitize keeps model-produced text from breaking markdown tables.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.TrimSpace(s)
}
