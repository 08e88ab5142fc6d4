package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 支付记录（一次支付尝试一行）
type Payment struct {
	ID          uint           `gorm:"primarykey" json:"id"`                      // 主键
	PaymentNo   string         `gorm:"uniqueIndex;not null" json:"payment_no"`    // 支付单号（回调内部引用）
	Purpose     string         `gorm:"index;not null" json:"purpose"`             // 支付用途（order/recharge）
	OrderID     *uint          `gorm:"index" json:"order_id"`                     // 订单ID（订单支付时）
	RechargeID  *uint          `gorm:"index" json:"recharge_id"`                  // 充值记录ID（余额充值时）
	UserID      uint           `gorm:"index;not null" json:"user_id"`             // 用户ID
	Channel     string         `gorm:"not null" json:"channel"`                   // 支付渠道（wechat/alipay/balance）
	Amount      Money          `gorm:"type:decimal(10,2);not null" json:"amount"` // 支付金额
	Currency    string         `gorm:"not null;default:'CNY'" json:"currency"`    // 币种
	Status      string         `gorm:"index;not null" json:"status"`              // 支付状态
	TradeNo     string         `gorm:"index" json:"trade_no"`                     // 渠道交易号
	RawNotify   JSON           `gorm:"type:json" json:"-"`                        // 回调原始数据
	PayURL      string         `gorm:"type:text" json:"pay_url"`                  // 跳转链接
	CodeURL     string         `gorm:"type:text" json:"code_url"`                 // 二维码内容
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                   // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                   // 更新时间
	SettledAt   *time.Time     `gorm:"index" json:"settled_at"`                   // 结算时间
	NotifiedAt  *time.Time     `json:"notified_at"`                               // 最近回调时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                            // 软删除时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
