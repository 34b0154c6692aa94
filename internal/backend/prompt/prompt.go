// Package prompt builds analysis prompts and parses model replies. Shared by
// the HTTP providers so they only differ in wire format.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/meghanaraju/insightq/pkg/models"
)

// Build renders the analysis prompt for one (customer, analysis type) pair.
// The model is asked to answer with raw JSON matching models.AnalysisResult.
func Build(req models.AnalysisRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a retail purchase analyst. Customer %s has %d purchase records:\n\n",
		req.CustomerID, len(req.Purchases))

	for _, p := range req.Purchases {
		fmt.Fprintf(&b, "- %s x%d at %.2f on %s",
			p.ProductID, p.Quantity, p.Price, p.PurchaseDate.Format("2006-01-02"))
		if p.Category != "" {
			fmt.Fprintf(&b, " (%s)", p.Category)
		}
		b.WriteString("\n")
	}

	switch req.AnalysisType {
	case models.AnalysisConsumptionPrediction:
		b.WriteString("\nPredict replenishment cycles. For each repeatedly bought product, " +
			"estimate average days between purchases and the next purchase date. " +
			`Respond with raw JSON: {"consumption_patterns":[{"product_id":"...",` +
			`"average_days_between":0,"predicted_next_purchase":"YYYY-MM-DD","confidence":0}],"confidence":0}`)
	case models.AnalysisCustomerProfiling:
		b.WriteString("\nProfile this customer's shopping behavior. " +
			`Respond with raw JSON: {"customer_profile":{"spending_level":"low|medium|high",` +
			`"shopping_frequency":"rare|regular|frequent","preferred_categories":["..."],` +
			`"price_preference":"budget|mid|premium"},"confidence":0}`)
	case models.AnalysisRecommendationGeneration:
		max := req.MaxRecommendations
		if max <= 0 {
			max = 5
		}
		fmt.Fprintf(&b, "\nSuggest up to %d products this customer is likely to need soon. ", max)
		b.WriteString(`Respond with raw JSON: {"recommendations":[{"product_id":"...",` +
			`"reason":"...","urgency":"low|medium|high","score":0}],"confidence":0}`)
	default:
		fmt.Fprintf(&b, "\nPerform a %q analysis of this purchase history. ", req.AnalysisType)
		b.WriteString(`Respond with raw JSON matching {"confidence":0} plus any of ` +
			`"consumption_patterns", "customer_profile", "recommendations".`)
	}

	b.WriteString("\nDo not wrap the JSON in code fences or add any other text.")
	return b.String()
}

// Parse decodes a model reply into an AnalysisResult. It tolerates code
// fences the model adds despite instructions and clamps confidence to [0,1].
func Parse(raw, customerID string) (*models.AnalysisResult, error) {
	cleaned := stripCodeFences(raw)

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("decode analysis reply: %w", err)
	}

	result.CustomerID = customerID
	result.AnalysisDate = time.Now().UTC()
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	if result.DataQuality == "" {
		result.DataQuality = "fair"
	}
	return &result, nil
}

// stripCodeFences removes markdown code fences that models sometimes add
// despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if strings.HasSuffix(s, "```") {
			s = s[:len(s)-3]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
