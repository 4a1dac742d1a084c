// Package pricing computes quality premiums and certification bonuses for
// coffee sales. Everything here is pure: no I/O, no clock, no randomness.
package pricing

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
)

type Grade string

const (
	GradeAA     Grade = "AA"
	GradeA      Grade = "A"
	GradeB      Grade = "B"
	GradeC      Grade = "C"
	GradePB     Grade = "PB"
	GradeReject Grade = "reject"
)

// Weights for the newest-first assessments. They are not renormalized when
// fewer than five assessments exist.
var assessmentWeights = []decimal.Decimal{
	decimal.RequireFromString("0.40"),
	decimal.RequireFromString("0.30"),
	decimal.RequireFromString("0.20"),
	decimal.RequireFromString("0.10"),
	decimal.RequireFromString("0.05"),
}

// MaxAssessments is how many recent assessments feed the weighted score.
var MaxAssessments = len(assessmentWeights)

var (
	hundred        = decimal.NewFromInt(100)
	scoreFloor     = decimal.NewFromInt(60)
	upliftPerPoint = decimal.RequireFromString("0.01")
)

var gradeUplift = map[Grade]decimal.Decimal{
	GradeAA:     decimal.RequireFromString("0.10"),
	GradeA:      decimal.RequireFromString("0.07"),
	GradeB:      decimal.RequireFromString("0.05"),
	GradeC:      decimal.RequireFromString("0.02"),
	GradePB:     decimal.Zero,
	GradeReject: decimal.Zero,
}

// GradeForScore maps a 0..100 score to a letter grade.
func GradeForScore(score float64) Grade {
	switch {
	case score >= 85:
		return GradeAA
	case score >= 80:
		return GradeA
	case score >= 75:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 65:
		return GradePB
	default:
		return GradeReject
	}
}

// ParseGrade accepts the grade labels used by quality assessment records.
func ParseGrade(s string) (Grade, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AA":
		return GradeAA, true
	case "A":
		return GradeA, true
	case "B":
		return GradeB, true
	case "C":
		return GradeC, true
	case "PB":
		return GradePB, true
	case "REJECT", "REJECTED":
		return GradeReject, true
	}
	return "", false
}

// Signal is one quality assessment as seen by the calculator.
type Signal struct {
	AssessmentID string
	Score        float64
	Grade        string
}

// WeightedScore applies the descending weights to the newest five scores.
// Individual scores and the result are clamped to [0, 100].
func WeightedScore(signals []Signal) decimal.Decimal {
	total := decimal.Zero
	for i, s := range signals {
		if i >= len(assessmentWeights) {
			break
		}
		total = total.Add(clampScore(decimal.NewFromFloat(finiteScore(s.Score))).Mul(assessmentWeights[i]))
	}
	return clampScore(total).Round(2)
}

func clampScore(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(hundred) {
		return hundred
	}
	return d
}

// signalGrade is the newest assessment's reported grade, or the grade derived
// from its score when the label is missing or unknown.
func signalGrade(s Signal) Grade {
	if g, ok := ParseGrade(s.Grade); ok {
		return g
	}
	return GradeForScore(finiteScore(s.Score))
}

// finiteScore treats a NaN or infinite score as 0. Corrupt assessment data
// earns no premium.
func finiteScore(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Input to Calculate. Signals must be ordered newest first.
type Input struct {
	BasePrice      decimal.Decimal
	Signals        []Signal
	Certifications []string
}

// Result of a premium calculation.
type Result struct {
	Score                decimal.Decimal
	Grade                Grade
	Multiplier           decimal.Decimal
	PremiumAmount        decimal.Decimal
	Breakdown            []model.PremiumFactor
	CertificationBonuses []model.CertificationBonus
	TotalBonus           decimal.Decimal
	AssessmentIDs        []string
}

// Calculator holds the certification bonus table.
type Calculator struct {
	rules map[string]CertificationRule
}

// NewCalculator builds a calculator. An empty rule set uses DefaultCertificationRules.
func NewCalculator(rules []CertificationRule) *Calculator {
	if len(rules) == 0 {
		rules = DefaultCertificationRules()
	}
	table := make(map[string]CertificationRule, len(rules))
	for _, r := range rules {
		r.Name = NormalizeCertification(r.Name)
		table[r.Name] = r
	}
	return &Calculator{rules: table}
}

// Calculate returns the premium and bonuses for a base price.
func (c *Calculator) Calculate(in Input) Result {
	res := Result{
		Score:         decimal.Zero,
		Multiplier:    decimal.NewFromInt(1),
		PremiumAmount: decimal.Zero,
	}

	signals := in.Signals
	if len(signals) > MaxAssessments {
		signals = signals[:MaxAssessments]
	}

	if len(signals) > 0 {
		res.Score = WeightedScore(signals)
		res.Grade = signalGrade(signals[0])
		for _, s := range signals {
			if s.AssessmentID != "" {
				res.AssessmentIDs = append(res.AssessmentIDs, s.AssessmentID)
			}
		}

		scoreUp := scoreUplift(res.Score)
		gradeUp := gradeUplift[res.Grade]
		res.Multiplier = res.Multiplier.Add(scoreUp).Add(gradeUp)
		res.PremiumAmount = model.RoundMoney(in.BasePrice.Mul(scoreUp.Add(gradeUp)))

		scoreAmount := model.RoundMoney(in.BasePrice.Mul(scoreUp))
		res.Breakdown = []model.PremiumFactor{
			{Factor: "quality_score", Value: res.Score.StringFixed(2), Uplift: scoreUp, Amount: scoreAmount},
			{Factor: "grade", Value: string(res.Grade), Uplift: gradeUp, Amount: res.PremiumAmount.Sub(scoreAmount)},
		}
	}

	res.CertificationBonuses, res.TotalBonus = c.bonuses(in.BasePrice, in.Certifications)
	return res
}

// scoreUplift is 0.01 per point above 60.
func scoreUplift(score decimal.Decimal) decimal.Decimal {
	over := score.Sub(scoreFloor)
	if !over.IsPositive() {
		return decimal.Zero
	}
	return over.Mul(upliftPerPoint).Round(4)
}
