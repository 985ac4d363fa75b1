package analysis

import (
	"testing"

	"github.com/stepreview/pkg/models"
)

func promptRequest() models.AnalysisRequest {
	return models.AnalysisRequest{
		TargetText:     "31: @Then(\"the response should be {int}\")\n32: public void responseShouldBe(int code) {\n33: }",
		FeatureContext: []string{"Feature: login"},
		StepContext:    []string{"public class OtherSteps {}"},
	}
}

func TestNewLangchainAnalyzerRequiresKey(t *testing.T) {
	_, err := NewLangchainAnalyzer(t.Context(), Config{Provider: ProviderOpenAI}, nil)
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestNewLangchainAnalyzerRejectsUnknownProvider(t *testing.T) {
	_, err := NewLangchainAnalyzer(t.Context(), Config{Provider: "carrier-pigeon", APIKey: "k"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
