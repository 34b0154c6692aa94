package mock

import (
	"context"
	"errors"
	"time"

	"github.com/meghanaraju/insightq/pkg/models"
)

// MockProvider satisfies models.AnalysisProvider for testing and local
// development.
type MockProvider struct {
	Name_       string
	AnalyzeFunc func(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResponse, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResponse, error) {
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, req)
	}
	return &models.AnalysisResponse{Success: true, Data: &models.AnalysisResult{}}, nil
}

// NewMockProvider returns a MockProvider with sensible default responses per
// analysis type.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		AnalyzeFunc: func(_ context.Context, req models.AnalysisRequest) (*models.AnalysisResponse, error) {
			result := &models.AnalysisResult{
				CustomerID:   req.CustomerID,
				AnalysisDate: time.Now().UTC(),
				Confidence:   0.85,
				DataQuality:  "good",
			}
			switch req.AnalysisType {
			case models.AnalysisConsumptionPrediction:
				result.ConsumptionPatterns = []models.ConsumptionPattern{
					{ProductID: "p-001", AverageDaysBetween: 14, Confidence: 0.8},
				}
			case models.AnalysisCustomerProfiling:
				result.CustomerProfile = &models.CustomerProfile{
					SpendingLevel:     "medium",
					ShoppingFrequency: "regular",
				}
			case models.AnalysisRecommendationGeneration:
				result.Recommendations = []models.Recommendation{
					{ProductID: "p-001", Reason: "due for replenishment", Urgency: "medium", Score: 0.9},
				}
			}
			return &models.AnalysisResponse{Success: true, Data: result}, nil
		},
	}
}

// NewStepFailingProvider returns a MockProvider that reports a typed
// per-step failure for the given analysis types and succeeds otherwise.
func NewStepFailingProvider(failTypes ...string) *MockProvider {
	failing := make(map[string]bool, len(failTypes))
	for _, t := range failTypes {
		failing[t] = true
	}
	defaults := NewMockProvider()
	return &MockProvider{
		Name_: "mock-step-failing",
		AnalyzeFunc: func(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResponse, error) {
			if failing[req.AnalysisType] {
				return &models.AnalysisResponse{Success: false, Error: "analysis failed"}, nil
			}
			return defaults.Analyze(ctx, req)
		},
	}
}

// NewErroringProvider returns a MockProvider that always returns the given
// hard error, which fails the whole job.
func NewErroringProvider(err error) *MockProvider {
	if err == nil {
		err = errors.New("backend error")
	}
	return &MockProvider{
		Name_: "mock-erroring",
		AnalyzeFunc: func(_ context.Context, _ models.AnalysisRequest) (*models.AnalysisResponse, error) {
			return nil, err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		AnalyzeFunc: func(ctx context.Context, _ models.AnalysisRequest) (*models.AnalysisResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
}

// Compile-time check that MockProvider implements AnalysisProvider.
var _ models.AnalysisProvider = (*MockProvider)(nil)
