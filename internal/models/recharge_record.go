package models

import (
	"time"

	"gorm.io/gorm"
)

// RechargeRecord 余额充值记录表
// BonusAmount 在创建时按当时的赠送档位一次性算定，之后档位调整不回溯。
type RechargeRecord struct {
	ID           uint           `gorm:"primarykey" json:"id"`                             // 主键
	RechargeNo   string         `gorm:"uniqueIndex;not null" json:"recharge_no"`          // 充值单号（回调内部引用）
	UserID       uint           `gorm:"index;not null" json:"user_id"`                    // 用户ID
	Amount       Money          `gorm:"type:decimal(10,2);not null" json:"amount"`        // 充值金额
	BonusAmount  Money          `gorm:"type:decimal(10,2);not null" json:"bonus_amount"`  // 赠送金额
	ActualAmount Money          `gorm:"type:decimal(10,2);not null" json:"actual_amount"` // 实际到账金额
	Channel      string         `gorm:"not null" json:"channel"`                          // 支付渠道
	Status       string         `gorm:"index;not null" json:"status"`                     // 充值状态
	TradeNo      string         `gorm:"index" json:"trade_no"`                            // 渠道交易号
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                          // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                          // 更新时间
	SettledAt    *time.Time     `gorm:"index" json:"settled_at"`                          // 到账时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                   // 软删除时间
}

// TableName 指定表名
func (RechargeRecord) TableName() string {
	return "recharge_records"
}
