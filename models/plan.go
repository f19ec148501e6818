package models

import "strings"

// PlanType identifies one of the purchasable plan variants
type PlanType string

const (
	PlanBasic   PlanType = "basic"
	PlanAudio   PlanType = "audio"
	PlanMulti   PlanType = "multi"
	PlanPremium PlanType = "premium"
)

// PlanConfig describes the capabilities and limits of a plan.
// Plan behavior is table-driven: validation rules and quotas are looked up
// here instead of being scattered through the handlers.
type PlanConfig struct {
	Type            PlanType
	MaxMessages     int
	HasAudio        bool
	AudioCharLimit  int
	HasPresentation bool
	Label           string
}

var plans = map[PlanType]PlanConfig{
	PlanBasic: {
		Type:        PlanBasic,
		MaxMessages: 1,
		Label:       "Mensagem Anônima",
	},
	PlanAudio: {
		Type:           PlanAudio,
		MaxMessages:    1,
		HasAudio:       true,
		AudioCharLimit: 500,
		Label:          "Mensagem + Áudio",
	},
	PlanMulti: {
		Type:           PlanMulti,
		MaxMessages:    5,
		HasAudio:       true,
		AudioCharLimit: 500,
		Label:          "Múltiplas Mensagens",
	},
	PlanPremium: {
		Type:            PlanPremium,
		MaxMessages:     1,
		HasAudio:        true,
		AudioCharLimit:  500,
		HasPresentation: true,
		Label:           "História Premium",
	},
}

// GetPlan returns the configuration for a plan type
func GetPlan(t PlanType) (PlanConfig, bool) {
	cfg, ok := plans[t]
	return cfg, ok
}

// productIDMap maps commerce-provider product IDs to plan types.
// Update with the real product IDs from the store.
var productIDMap = map[string]PlanType{}

// productNameKeywords maps product-name keywords to plan types (fallback
// when the product ID is unknown). Checked in order: more specific first.
var productNameKeywords = []struct {
	keyword string
	plan    PlanType
}{
	{"premium", PlanPremium},
	{"historia", PlanPremium},
	{"multi", PlanMulti},
	{"audio", PlanAudio},
	{"basico", PlanBasic},
}

// ResolvePlan determines the plan type from commerce-provider product info.
// Unknown products default to the basic plan.
func ResolvePlan(productID, productName string) PlanType {
	if productID != "" {
		if plan, ok := productIDMap[productID]; ok {
			return plan
		}
	}

	name := strings.ToLower(strings.TrimSpace(productName))
	for _, entry := range productNameKeywords {
		if strings.Contains(name, entry.keyword) {
			return entry.plan
		}
	}

	return PlanBasic
}
