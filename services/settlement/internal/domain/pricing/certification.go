package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
)

type BonusKind string

const (
	BonusPercent BonusKind = "percent"
	BonusFlat    BonusKind = "flat"
)

// CertificationRule is a bonus keyed by certification name. For percent rules
// Value is a fraction of the base price; for flat rules it is an amount.
type CertificationRule struct {
	Name  string
	Kind  BonusKind
	Value decimal.Decimal
}

func DefaultCertificationRules() []CertificationRule {
	return []CertificationRule{
		{Name: "organic", Kind: BonusPercent, Value: decimal.RequireFromString("0.05")},
		{Name: "fair-trade", Kind: BonusPercent, Value: decimal.RequireFromString("0.04")},
		{Name: "rainforest-alliance", Kind: BonusPercent, Value: decimal.RequireFromString("0.03")},
		{Name: "utz", Kind: BonusPercent, Value: decimal.RequireFromString("0.02")},
		{Name: "cafe-practices", Kind: BonusPercent, Value: decimal.RequireFromString("0.02")},
	}
}

var certificationAliases = map[string]string{
	"fairtrade":          "fair-trade",
	"fair-trade-usa":     "fair-trade",
	"rainforest":         "rainforest-alliance",
	"ra":                 "rainforest-alliance",
	"c.a.f.e.-practices": "cafe-practices",
}

// NormalizeCertification lower-cases a name and unifies separators and aliases.
func NormalizeCertification(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer("_", "-", " ", "-").Replace(n)
	if alias, ok := certificationAliases[n]; ok {
		return alias
	}
	return n
}

// bonuses looks up each known certification once, in input order.
func (c *Calculator) bonuses(base decimal.Decimal, certifications []string) ([]model.CertificationBonus, decimal.Decimal) {
	seen := make(map[string]struct{}, len(certifications))
	var out []model.CertificationBonus
	total := decimal.Zero

	for _, raw := range certifications {
		name := NormalizeCertification(raw)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		rule, ok := c.rules[name]
		if !ok {
			continue
		}

		var amount decimal.Decimal
		switch rule.Kind {
		case BonusFlat:
			amount = model.RoundMoney(rule.Value)
		default:
			amount = model.RoundMoney(base.Mul(rule.Value))
		}
		if !amount.IsPositive() {
			continue
		}

		out = append(out, model.CertificationBonus{
			Name:   name,
			Kind:   string(rule.Kind),
			Rate:   rule.Value,
			Amount: amount,
		})
		total = total.Add(amount)
	}
	return out, total
}
