package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 检测服务订单表
type Order struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                     // 主键
	OrderNo        string         `gorm:"uniqueIndex;not null" json:"order_no"`                     // 订单号
	UserID         uint           `gorm:"index;not null" json:"user_id"`                            // 用户ID
	Title          string         `gorm:"not null" json:"title"`                                    // 检测项目名称
	ItemFee        Money          `gorm:"type:decimal(10,2);not null" json:"item_fee"`              // 检测项目费用
	DiscountFee    Money          `gorm:"type:decimal(10,2);not null;default:0" json:"discount_fee"` // 优惠金额
	TotalFee       Money          `gorm:"type:decimal(10,2);not null" json:"total_fee"`             // 应付金额
	PaidFee        Money          `gorm:"type:decimal(10,2);not null;default:0" json:"paid_fee"`    // 已付金额
	Status         string         `gorm:"index;not null" json:"status"`                             // 订单状态
	UserCouponID   *uint          `gorm:"index" json:"user_coupon_id"`                              // 使用的优惠券ID
	PaymentChannel string         `json:"payment_channel"`                                          // 支付渠道
	PaidAt         *time.Time     `gorm:"index" json:"paid_at"`                                     // 支付时间
	CompletedAt    *time.Time     `json:"completed_at"`                                             // 完成时间
	CancelledAt    *time.Time     `json:"cancelled_at"`                                             // 取消时间
	CancelReason   string         `json:"cancel_reason"`                                            // 取消原因
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                  // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// OrderStatusHistory 订单状态变更历史表（仅追加，不修改）
type OrderStatusHistory struct {
	ID         uint      `gorm:"primarykey" json:"id"`           // 主键
	OrderID    uint      `gorm:"index;not null" json:"order_id"` // 订单ID
	FromStatus string    `gorm:"not null" json:"from_status"`    // 变更前状态
	ToStatus   string    `gorm:"not null" json:"to_status"`      // 变更后状态
	ActorType  string    `gorm:"not null" json:"actor_type"`     // 操作者类型（user/operator/system）
	ActorID    uint      `json:"actor_id"`                       // 操作者ID
	Reason     string    `json:"reason"`                         // 变更原因
	CreatedAt  time.Time `gorm:"index" json:"created_at"`        // 变更时间
}

// TableName 指定表名
func (OrderStatusHistory) TableName() string {
	return "order_status_histories"
}
