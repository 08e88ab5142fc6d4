package models

import (
	"time"

	"gorm.io/gorm"
)

// LotteryPrize 抽奖奖品配置表
// Probability 以万分之一为单位，活动内各奖品权重之和应不超过 10000。
type LotteryPrize struct {
	ID          uint           `gorm:"primarykey" json:"id"`                          // 主键
	Name        string         `gorm:"not null" json:"name"`                          // 奖品名称
	Type        string         `gorm:"index;not null" json:"type"`                    // 奖品类型（points/cash/coupon/gift/empty）
	Value       Money          `gorm:"type:decimal(10,2);not null;default:0" json:"value"` // 奖品面值（现金金额/积分数）
	CouponID    *uint          `gorm:"index" json:"coupon_id"`                        // 关联优惠券模板（type=coupon 时）
	Probability int            `gorm:"not null" json:"probability"`                   // 中奖权重（万分之一）
	DailyLimit  int            `gorm:"not null;default:0" json:"daily_limit"`         // 每日发放上限（0 不限）
	TotalLimit  int            `gorm:"not null;default:0" json:"total_limit"`         // 总发放上限（0 不限）
	IssuedCount int            `gorm:"not null;default:0" json:"issued_count"`        // 已发放数量
	SortOrder   int            `gorm:"index;not null;default:0" json:"sort_order"`    // 展示与累加顺序
	IsActive    bool           `gorm:"index;not null;default:true" json:"is_active"`  // 是否启用
	ImageURL    string         `json:"image_url"`                                     // 奖品图片
	CreatedAt   time.Time      `json:"created_at"`                                    // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                    // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间
}

// TableName 指定表名
func (LotteryPrize) TableName() string {
	return "lottery_prizes"
}

// LotteryChance 抽奖机会表（一次性消耗型令牌）
type LotteryChance struct {
	ID        uint       `gorm:"primarykey" json:"id"`           // 主键
	UserID    uint       `gorm:"index;not null" json:"user_id"`  // 用户ID
	Source    string     `gorm:"not null" json:"source"`         // 来源（order/signin/admin）
	RefID     uint       `gorm:"index" json:"ref_id"`            // 来源业务ID
	IsUsed    bool       `gorm:"index;not null;default:false" json:"is_used"` // 是否已消耗
	UsedAt    *time.Time `json:"used_at"`                        // 消耗时间
	ExpireAt  *time.Time `gorm:"index" json:"expire_at"`         // 过期时间（空为不过期）
	CreatedAt time.Time  `gorm:"index" json:"created_at"`        // 创建时间
}

// TableName 指定表名
func (LotteryChance) TableName() string {
	return "lottery_chances"
}

// LotteryRecord 抽奖结果表（中奖时快照奖品条款）
type LotteryRecord struct {
	ID         uint       `gorm:"primarykey" json:"id"`                          // 主键
	UserID     uint       `gorm:"index;not null" json:"user_id"`                 // 用户ID
	ChanceID   uint       `gorm:"index;not null" json:"chance_id"`               // 消耗的抽奖机会ID
	PrizeID    uint       `gorm:"index;not null" json:"prize_id"`                // 奖品ID
	PrizeName  string     `gorm:"not null" json:"prize_name"`                    // 奖品名称快照
	PrizeType  string     `gorm:"not null" json:"prize_type"`                    // 奖品类型快照
	PrizeValue Money      `gorm:"type:decimal(10,2);not null;default:0" json:"prize_value"` // 奖品面值快照
	CouponID   *uint      `json:"coupon_id"`                                     // 关联优惠券模板快照
	Status     string     `gorm:"index;not null;default:'pending'" json:"status"` // 领取状态（pending/claimed/expired）
	ClaimedAt  *time.Time `json:"claimed_at"`                                    // 领取时间
	ExpireAt   time.Time  `gorm:"index;not null" json:"expire_at"`               // 领取截止时间
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`                       // 抽奖时间
	UpdatedAt  time.Time  `json:"updated_at"`                                    // 更新时间
}

// TableName 指定表名
func (LotteryRecord) TableName() string {
	return "lottery_records"
}
