package cost

import "github.com/manash/roomdesign/pkg/models"

const (
	CurrencyUSD = "USD"
)

type Calculator struct {
	registry *models.ModelRegistry
}

func NewCalculator(registry *models.ModelRegistry) *Calculator {
	return &Calculator{registry: registry}
}

// Calculate prices count images produced by model. Chat models and unknown
// models cost nothing.
func (c *Calculator) Calculate(model string, count int) *models.CostInfo {
	var perImage float64
	if cap, ok := c.registry.Get(model); ok && cap.Kind == models.KindImage {
		perImage = cap.PricePerImage
	}

	return &models.CostInfo{
		PerImage: perImage,
		Total:    perImage * float64(count),
		Currency: CurrencyUSD,
	}
}
