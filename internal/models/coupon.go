package models

import (
	"time"

	"gorm.io/gorm"
)

// Coupon 优惠券模板表
type Coupon struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                       // 主键
	Name             string         `gorm:"not null" json:"name"`                                       // 名称
	Type             string         `gorm:"not null" json:"type"`                                       // 类型（percentage/fixed/threshold）
	DiscountValue    Money          `gorm:"type:decimal(10,2);not null" json:"discount_value"`          // 折扣值（百分比折扣为折数，其余为金额）
	ThresholdAmount  Money          `gorm:"type:decimal(10,2);not null;default:0" json:"threshold_amount"` // 满减门槛
	TotalQuantity    int            `gorm:"not null;default:0" json:"total_quantity"`                   // 发放总量（0 表示不限量）
	ReceivedQuantity int            `gorm:"not null;default:0" json:"received_quantity"`                // 已领取数量
	ValidDays        int            `gorm:"not null;default:30" json:"valid_days"`                      // 领取后有效天数
	StartTime        *time.Time     `json:"start_time"`                                                 // 领取开始时间
	EndTime          *time.Time     `json:"end_time"`                                                   // 领取结束时间
	Status           string         `gorm:"index;not null;default:'active'" json:"status"`              // 状态
	Description      string         `json:"description"`                                                // 使用说明
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                                    // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                             // 软删除时间
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}

// UserCoupon 用户持券表（领取时快照折扣条款）
type UserCoupon struct {
	ID              uint       `gorm:"primarykey" json:"id"`                              // 主键
	UserID          uint       `gorm:"index;not null" json:"user_id"`                     // 用户ID
	CouponID        uint       `gorm:"index;not null" json:"coupon_id"`                   // 优惠券模板ID
	Name            string     `gorm:"not null" json:"name"`                              // 名称快照
	Type            string     `gorm:"not null" json:"type"`                              // 类型快照
	DiscountValue   Money      `gorm:"type:decimal(10,2);not null" json:"discount_value"` // 折扣值快照
	ThresholdAmount Money      `gorm:"type:decimal(10,2);not null;default:0" json:"threshold_amount"` // 门槛快照
	Status          string     `gorm:"index;not null;default:'unused'" json:"status"`     // 状态（unused/used/expired）
	OrderID         *uint      `gorm:"index" json:"order_id"`                             // 核销订单ID
	UsedAt          *time.Time `json:"used_at"`                                           // 核销时间
	ExpireAt        time.Time  `gorm:"index;not null" json:"expire_at"`                   // 过期时间
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`                           // 领取时间
	UpdatedAt       time.Time  `json:"updated_at"`                                        // 更新时间
}

// TableName 指定表名
func (UserCoupon) TableName() string {
	return "user_coupons"
}
