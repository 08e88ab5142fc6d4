package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PaymentListFilter 查询支付列表的过滤条件
type PaymentListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	OrderID  uint
	Purpose  string
	Channel  string
	Status   string
}

// RechargeListFilter 查询充值记录列表的过滤条件
type RechargeListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Status   string
}

// PointsListFilter 查询积分流水列表的过滤条件
type PointsListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Type     string
}

// UserCouponListFilter 查询用户持券列表的过滤条件
type UserCouponListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Status   string
}

// LotteryRecordListFilter 查询抽奖记录列表的过滤条件
type LotteryRecordListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Status   string
}
