package models

import (
	"context"
	"time"
)

// AnalysisProvider is the contract every analysis backend must implement.
// Never call a specific backend directly — always inject this interface.
//
// A returned error is a hard failure (unreachable backend, cancelled
// context) and fails the whole job. A response with Success=false is a
// per-analysis-type failure: the step's result is omitted and the job
// moves on.
type AnalysisProvider interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResponse, error)
	Name() string
}

// Well-known analysis type tags. Free-form tags are accepted; these are the
// ones the built-in prompts know about.
const (
	AnalysisConsumptionPrediction    = "consumption_prediction"
	AnalysisCustomerProfiling        = "customer_profiling"
	AnalysisRecommendationGeneration = "recommendation_generation"
)

// Purchase is one purchase record for a customer, the raw input to analysis.
type Purchase struct {
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	Category     string    `json:"category,omitempty"`
	Quantity     int       `json:"quantity"`
	Price        float64   `json:"price"`
	PurchaseDate time.Time `json:"purchase_date"`
}

// AnalysisRequest is the input to one analysis backend call: one customer,
// one analysis type.
type AnalysisRequest struct {
	CustomerID         string     `json:"customer_id"`
	Purchases          []Purchase `json:"purchases"`
	AnalysisType       string     `json:"analysis_type"`
	MaxRecommendations int        `json:"max_recommendations,omitempty"`
}

// AnalysisResponse is the backend's answer. Success=false with a non-empty
// Error is a per-step failure: the job records no result for that analysis
// type and moves on. Transport-level failures are returned as Go errors by
// the provider and are job-fatal.
type AnalysisResponse struct {
	Success        bool            `json:"success"`
	Data           *AnalysisResult `json:"data,omitempty"`
	Error          string          `json:"error,omitempty"`
	ProcessingTime time.Duration   `json:"processing_time_ms,omitempty"`
}

// AnalysisResult is the structured output of one analysis type for one
// customer.
type AnalysisResult struct {
	CustomerID          string               `json:"customer_id"`
	AnalysisDate        time.Time            `json:"analysis_date"`
	ConsumptionPatterns []ConsumptionPattern `json:"consumption_patterns,omitempty"`
	CustomerProfile     *CustomerProfile     `json:"customer_profile,omitempty"`
	Recommendations     []Recommendation     `json:"recommendations,omitempty"`
	Confidence          float64              `json:"confidence"`
	DataQuality         string               `json:"data_quality,omitempty"`
}

// ConsumptionPattern predicts when a customer will buy a product again.
type ConsumptionPattern struct {
	ProductID             string  `json:"product_id"`
	ProductName           string  `json:"product_name,omitempty"`
	AverageDaysBetween    float64 `json:"average_days_between"`
	PredictedNextPurchase string  `json:"predicted_next_purchase,omitempty"`
	Confidence            float64 `json:"confidence"`
}

// CustomerProfile classifies a customer's shopping behavior.
type CustomerProfile struct {
	SpendingLevel       string   `json:"spending_level"`
	ShoppingFrequency   string   `json:"shopping_frequency"`
	PreferredCategories []string `json:"preferred_categories,omitempty"`
	PricePreference     string   `json:"price_preference,omitempty"`
}

// Recommendation is one suggested product with a reason.
type Recommendation struct {
	ProductID string  `json:"product_id"`
	Reason    string  `json:"reason,omitempty"`
	Urgency   string  `json:"urgency,omitempty"`
	Score     float64 `json:"score"`
}
