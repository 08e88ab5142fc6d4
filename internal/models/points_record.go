package models

import "time"

// PointsRecord 积分流水表（仅追加，余额为流水之和）
type PointsRecord struct {
	ID          uint      `gorm:"primarykey" json:"id"`          // 主键
	UserID      uint      `gorm:"index;not null" json:"user_id"` // 用户ID
	Points      int64     `gorm:"not null" json:"points"`        // 积分变动（正为获得，负为消耗）
	Type        string    `gorm:"index;not null" json:"type"`    // 流水类型（order/exchange/signin/invite/lottery/admin）
	RefID       uint      `gorm:"index" json:"ref_id"`           // 关联业务ID
	Reference   string    `gorm:"uniqueIndex" json:"reference"`  // 幂等引用（同一业务事件只记一笔）
	Description string    `json:"description"`                   // 说明
	CreatedAt   time.Time `gorm:"index" json:"created_at"`       // 创建时间
}

// TableName 指定表名
func (PointsRecord) TableName() string {
	return "points_records"
}
