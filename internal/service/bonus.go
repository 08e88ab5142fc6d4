package service

import (
	"github.com/shopspring/decimal"
)

// BonusBracket 充值赠送档位：含下界、不含上界（最高档无上界）
type BonusBracket struct {
	Min  decimal.Decimal
	Max  *decimal.Decimal // nil 表示无上界
	Rate decimal.Decimal  // 赠送比例
}

// defaultBonusBrackets 默认赠送档位表，按金额升序排列
var defaultBonusBrackets = []BonusBracket{
	{Min: decimal.NewFromInt(0), Max: decimalPtr(100), Rate: decimal.Zero},
	{Min: decimal.NewFromInt(100), Max: decimalPtr(500), Rate: decimal.NewFromFloat(0.05)},
	{Min: decimal.NewFromInt(500), Max: decimalPtr(1000), Rate: decimal.NewFromFloat(0.10)},
	{Min: decimal.NewFromInt(1000), Max: decimalPtr(5000), Rate: decimal.NewFromFloat(0.15)},
	{Min: decimal.NewFromInt(5000), Max: nil, Rate: decimal.NewFromFloat(0.20)},
}

func decimalPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// BonusCalculator 充值赠送计算器（纯函数，档位在创建时固化到充值记录）
type BonusCalculator struct {
	brackets []BonusBracket
}

// NewBonusCalculator 创建默认档位的赠送计算器
func NewBonusCalculator() *BonusCalculator {
	return &BonusCalculator{brackets: defaultBonusBrackets}
}

// BonusFor 计算充值金额对应的赠送金额（2 位小数）
// 金额恰好落在且仅落在一个档位上。
func (c *BonusCalculator) BonusFor(amount decimal.Decimal) decimal.Decimal {
	rate := c.rateFor(amount)
	return amount.Mul(rate).Round(2)
}

func (c *BonusCalculator) rateFor(amount decimal.Decimal) decimal.Decimal {
	for _, b := range c.brackets {
		if amount.Cmp(b.Min) < 0 {
			continue
		}
		if b.Max != nil && amount.Cmp(*b.Max) >= 0 {
			continue
		}
		return b.Rate
	}
	return decimal.Zero
}

// BonusRule 赠送规则展示项
type BonusRule struct {
	MinAmount string `json:"min_amount"`
	MaxAmount string `json:"max_amount,omitempty"` // 空为无上界
	Rate      string `json:"rate"`
	Example   string `json:"example"`
}

// Rules 返回档位表（接口展示用）
func (c *BonusCalculator) Rules() []BonusRule {
	rules := make([]BonusRule, 0, len(c.brackets))
	for _, b := range c.brackets {
		rule := BonusRule{
			MinAmount: b.Min.StringFixed(2),
			Rate:      b.Rate.String(),
		}
		if b.Max != nil {
			rule.MaxAmount = b.Max.StringFixed(2)
		}
		example := b.Min
		if example.IsZero() {
			example = decimal.NewFromInt(50)
		}
		rule.Example = example.StringFixed(2) + "+" + example.Mul(b.Rate).Round(2).StringFixed(2)
		rules = append(rules, rule)
	}
	return rules
}
