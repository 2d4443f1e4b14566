package finance

// Credit score bounds.
const (
	MinCreditScore     = 300
	MaxCreditScore     = 850
	DefaultCreditScore = 650
)

type CreditTier string

const (
	CreditExcellent CreditTier = "Excellent"
	CreditGood      CreditTier = "Good"
	CreditFair      CreditTier = "Fair"
	CreditPoor      CreditTier = "Poor"
	CreditVeryPoor  CreditTier = "Very Poor"
)

func ClampCreditScore(score int) int {
	if score < MinCreditScore {
		return MinCreditScore
	}
	if score > MaxCreditScore {
		return MaxCreditScore
	}
	return score
}

func TierForScore(score int) CreditTier {
	switch {
	case score >= 750:
		return CreditExcellent
	case score >= 700:
		return CreditGood
	case score >= 650:
		return CreditFair
	case score >= 600:
		return CreditPoor
	default:
		return CreditVeryPoor
	}
}

// SecurityDepositMonths is the lease deposit measured in monthly payments.
func SecurityDepositMonths(score int) int {
	switch {
	case score >= 750:
		return 0
	case score >= 700:
		return 1
	case score >= 650:
		return 2
	case score >= 600:
		return 3
	case score >= 550:
		return 4
	default:
		return 6
	}
}

func SecurityDeposit(score int, monthlyPayment float64) float64 {
	return float64(SecurityDepositMonths(score)) * monthlyPayment
}

// LandPriceModifier scales a land price by credit: a discount for excellent
// credit up to a 10% premium for very poor credit.
func LandPriceModifier(score int) float64 {
	switch {
	case score >= 750:
		return 0.95
	case score >= 700:
		return 0.98
	case score >= 650:
		return 1.00
	case score >= 600:
		return 1.05
	default:
		return 1.10
	}
}

// SearchFeeModifier scales a used-vehicle agent retainer by credit.
func SearchFeeModifier(score int) float64 {
	switch {
	case score >= 750:
		return 0.90
	case score >= 700:
		return 0.95
	case score >= 650:
		return 1.00
	case score >= 600:
		return 1.10
	default:
		return 1.20
	}
}
