// Package lifemetrics defines the metric bundle attached to every life node
// and the blending math that keeps composite indices continuous across
// branches of the same tree.
package lifemetrics

// CityScores holds livability scores for a city, each on a 0-10 scale.
type CityScores struct {
	CostOfLiving float64 `json:"costOfLiving"`
	Safety       float64 `json:"safety"`
	Housing      float64 `json:"housing"`
	Healthcare   float64 `json:"healthcare"`
	Education    float64 `json:"education"`
	Leisure      float64 `json:"leisure"`
	Tolerance    float64 `json:"tolerance"`
	Commute      float64 `json:"commute"`
	Business     float64 `json:"business"`
	Economy      float64 `json:"economy"`
	Overall      float64 `json:"overall"`
}

// ClimateMetrics holds yearly climate normals for a location.
type ClimateMetrics struct {
	AvgTempC     float64 `json:"avgTempC"`
	RainDays     int     `json:"rainDays"`
	SunnyDays    int     `json:"sunnyDays"`
	ComfortIndex float64 `json:"comfortIndex"` // 0-10
}

// CityMetrics bundles everything resolved for a city.
type CityMetrics struct {
	Name       string         `json:"name"`
	Country    string         `json:"country"`
	Scores     CityScores     `json:"scores"`
	Climate    ClimateMetrics `json:"climate"`
	Population int64          `json:"population,omitempty"`
	Timezone   string         `json:"timezone,omitempty"`
}

// OccupationMetrics describes a resolved occupation.
type OccupationMetrics struct {
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	WorkLifeBalance float64 `json:"workLifeBalance"` // 0-10
	GrowthOutlook   float64 `json:"growthOutlook"`   // 0-10
	StressLevel     float64 `json:"stressLevel"`     // 0-10
	DemandIndex     float64 `json:"demandIndex"`     // 0-10
	BaseSalaryUSD   float64 `json:"baseSalaryUSD"`   // yearly median before location scaling
}

// FinancialMetrics are derived, never fetched. See DeriveFinances.
type FinancialMetrics struct {
	SalaryMedianUSD  float64 `json:"salaryMedianUSD"`
	SalaryLowUSD     float64 `json:"salaryLowUSD"`
	SalaryHighUSD    float64 `json:"salaryHighUSD"`
	COLIndex         float64 `json:"colIndex"` // cost-of-living score scaled to 0-100
	Currency         string  `json:"currency"`
	SavingsPotential float64 `json:"savingsPotential"` // 0-10
}

// CompositeIndices are the six blended life indices, each in [0,10] and
// rounded to one decimal.
type CompositeIndices struct {
	QualityOfLifeIndex float64 `json:"qualityOfLifeIndex"`
	HappinessScore     float64 `json:"happinessScore"`
	WorkLifeBalance    float64 `json:"workLifeBalance"`
	HealthIndex        float64 `json:"healthIndex"`
	SocialIndex        float64 `json:"socialIndex"`
	CreativityIndex    float64 `json:"creativityIndex"`
	AdventureIndex     float64 `json:"adventureIndex"`
}

// CoverImage describes the node's cover media.
type CoverImage struct {
	URL         string `json:"url"`
	Credit      string `json:"credit,omitempty"`
	Description string `json:"description,omitempty"`
}

// Bundle is the full metric set persisted on a node.
type Bundle struct {
	City       CityMetrics       `json:"city"`
	Occupation OccupationMetrics `json:"occupation"`
	Finances   FinancialMetrics  `json:"finances"`
	Composite  CompositeIndices  `json:"composite"`
}
