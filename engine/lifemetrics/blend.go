package lifemetrics

import "math"

// Parent blend weights per index. Higher weight lets a branch drift faster
// from its parent; lower weight models identity continuity. All fresh values
// without a parent pass through unblended.
const (
	blendWeightQuality    = 0.7
	blendWeightHappiness  = 0.7
	blendWeightHealth     = 0.6
	blendWeightSocial     = 0.6
	blendWeightCreativity = 0.5
	blendWeightAdventure  = 0.5
)

// FreshIndices computes the unblended composite indices from resolved city,
// occupation and financial metrics. Each index is a weighted average of
// factor scores; the weights of every index sum to 1.0. workLifeBalance is
// pinned directly to the occupation's work-life score.
func FreshIndices(city *CityMetrics, occ *OccupationMetrics, fin *FinancialMetrics) CompositeIndices {
	s := city.Scores
	comfort := city.Climate.ComfortIndex

	// qualityOfLife = 0.25 safety + 0.20 healthcare + 0.15 education
	//               + 0.15 leisure + 0.15 workLifeBalance + 0.10 savings
	quality := 0.25*s.Safety + 0.20*s.Healthcare + 0.15*s.Education +
		0.15*s.Leisure + 0.15*occ.WorkLifeBalance + 0.10*fin.SavingsPotential

	// happiness = 0.25 leisure + 0.20 tolerance + 0.20 workLifeBalance
	//           + 0.15 safety + 0.10 climateComfort + 0.10 savings
	happiness := 0.25*s.Leisure + 0.20*s.Tolerance + 0.20*occ.WorkLifeBalance +
		0.15*s.Safety + 0.10*comfort + 0.10*fin.SavingsPotential

	// health = 0.40 healthcare + 0.25 climateComfort
	//        + 0.20 workLifeBalance + 0.15 safety
	health := 0.40*s.Healthcare + 0.25*comfort + 0.20*occ.WorkLifeBalance + 0.15*s.Safety

	// social = 0.35 tolerance + 0.30 leisure + 0.20 education + 0.15 commute
	social := 0.35*s.Tolerance + 0.30*s.Leisure + 0.20*s.Education + 0.15*s.Commute

	// creativity = 0.35 leisure + 0.25 business + 0.20 education
	//            + 0.20 occupationGrowth
	creativity := 0.35*s.Leisure + 0.25*s.Business + 0.20*s.Education + 0.20*occ.GrowthOutlook

	// adventure = 0.30 leisure + 0.25 climateComfort + 0.25 commute
	//           + 0.20 economy
	adventure := 0.30*s.Leisure + 0.25*comfort + 0.25*s.Commute + 0.20*s.Economy

	return CompositeIndices{
		QualityOfLifeIndex: Round1(Clamp(quality)),
		HappinessScore:     Round1(Clamp(happiness)),
		WorkLifeBalance:    Round1(Clamp(occ.WorkLifeBalance)),
		HealthIndex:        Round1(Clamp(health)),
		SocialIndex:        Round1(Clamp(social)),
		CreativityIndex:    Round1(Clamp(creativity)),
		AdventureIndex:     Round1(Clamp(adventure)),
	}
}

// Blend pulls freshly computed indices toward the parent's values so sibling
// branches do not show discontinuous jumps unrelated to the magnitude of the
// chosen change. With a nil parent the fresh values pass through rounded.
func Blend(fresh CompositeIndices, parent *CompositeIndices) CompositeIndices {
	if parent == nil {
		return CompositeIndices{
			QualityOfLifeIndex: Round1(Clamp(fresh.QualityOfLifeIndex)),
			HappinessScore:     Round1(Clamp(fresh.HappinessScore)),
			WorkLifeBalance:    Round1(Clamp(fresh.WorkLifeBalance)),
			HealthIndex:        Round1(Clamp(fresh.HealthIndex)),
			SocialIndex:        Round1(Clamp(fresh.SocialIndex)),
			CreativityIndex:    Round1(Clamp(fresh.CreativityIndex)),
			AdventureIndex:     Round1(Clamp(fresh.AdventureIndex)),
		}
	}
	return CompositeIndices{
		QualityOfLifeIndex: BlendValue(fresh.QualityOfLifeIndex, parent.QualityOfLifeIndex, blendWeightQuality),
		HappinessScore:     BlendValue(fresh.HappinessScore, parent.HappinessScore, blendWeightHappiness),
		// workLifeBalance stays pinned to the occupation source even across
		// branches; a job change is an immediate, not gradual, shift.
		WorkLifeBalance: Round1(Clamp(fresh.WorkLifeBalance)),
		HealthIndex:     BlendValue(fresh.HealthIndex, parent.HealthIndex, blendWeightHealth),
		SocialIndex:     BlendValue(fresh.SocialIndex, parent.SocialIndex, blendWeightSocial),
		CreativityIndex: BlendValue(fresh.CreativityIndex, parent.CreativityIndex, blendWeightCreativity),
		AdventureIndex:  BlendValue(fresh.AdventureIndex, parent.AdventureIndex, blendWeightAdventure),
	}
}

// BlendValue computes round(fresh*w + parent*(1-w), 1), clamped to [0,10].
func BlendValue(fresh, parent, w float64) float64 {
	return Round1(Clamp(fresh*w + parent*(1-w)))
}

// DeriveFinances computes financial metrics from the resolved occupation and
// city. Salaries are never fetched:
//
//	median = baseSalary * (costOfLiving / 5)
//	low    = baseSalary * 0.8 * (costOfLiving / 5)
//	high   = baseSalary * 1.5 * (costOfLiving / 5)
//	savingsPotential = max(0, 10 - costOfLiving)
func DeriveFinances(occ *OccupationMetrics, city *CityMetrics) FinancialMetrics {
	col := city.Scores.CostOfLiving
	scale := col / 5.0
	return FinancialMetrics{
		SalaryMedianUSD:  math.Round(occ.BaseSalaryUSD * scale),
		SalaryLowUSD:     math.Round(occ.BaseSalaryUSD * 0.8 * scale),
		SalaryHighUSD:    math.Round(occ.BaseSalaryUSD * 1.5 * scale),
		COLIndex:         Round1(col * 10),
		Currency:         "USD",
		SavingsPotential: Round1(math.Max(0, 10-col)),
	}
}

// Clamp bounds a score to [0,10].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
