package cost

import (
	"math"
	"testing"

	"github.com/manash/roomdesign/pkg/models"
)

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculator_Calculate(t *testing.T) {
	calc := NewCalculator(models.DefaultRegistry())

	tests := []struct {
		name     string
		model    string
		count    int
		perImage float64
		total    float64
	}{
		{"gemini single", "gemini-2.5-flash-image", 1, 0.039, 0.039},
		{"gemini multiple", "gemini-2.5-flash-image", 3, 0.039, 0.117},
		{"openai single", "gpt-image-1", 1, 0.042, 0.042},
		{"chat model is free", "gemini-3-pro-preview", 1, 0, 0},
		{"unknown model", "nope", 2, 0, 0},
		{"zero count", "gpt-image-1", 0, 0.042, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := calc.Calculate(tt.model, tt.count)
			if !floatEquals(result.PerImage, tt.perImage) {
				t.Errorf("expected per-image %.4f, got %.4f", tt.perImage, result.PerImage)
			}
			if !floatEquals(result.Total, tt.total) {
				t.Errorf("expected total %.4f, got %.4f", tt.total, result.Total)
			}
			if result.Currency != CurrencyUSD {
				t.Errorf("expected currency %s, got %s", CurrencyUSD, result.Currency)
			}
		})
	}
}
