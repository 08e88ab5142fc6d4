package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusWaitingTest    = "waiting_test"
	OrderStatusInProgress     = "in_progress"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"
)

// 支付状态常量
const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// 支付渠道类型常量
const (
	PaymentChannelWechat  = "wechat"
	PaymentChannelAlipay  = "alipay"
	PaymentChannelBalance = "balance"
)

// 支付用途常量
const (
	PaymentPurposeOrder    = "order"
	PaymentPurposeRecharge = "recharge"
)

// 充值记录状态常量
const (
	RechargeStatusPending  = "pending"
	RechargeStatusSuccess  = "success"
	RechargeStatusFailed   = "failed"
	RechargeStatusRefunded = "refunded"
)

// 积分流水类型常量
const (
	PointsTypeOrder    = "order"
	PointsTypeExchange = "exchange"
	PointsTypeSignin   = "signin"
	PointsTypeInvite   = "invite"
	PointsTypeLottery  = "lottery"
	PointsTypeAdmin    = "admin"
)

// 优惠券类型常量
const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"
	CouponTypeThreshold  = "threshold"
)

// 优惠券模板状态常量
const (
	CouponStatusActive   = "active"
	CouponStatusInactive = "inactive"
)

// 用户优惠券状态常量
const (
	UserCouponStatusUnused  = "unused"
	UserCouponStatusUsed    = "used"
	UserCouponStatusExpired = "expired"
)

// 抽奖奖品类型常量
const (
	PrizeTypePoints = "points"
	PrizeTypeCash   = "cash"
	PrizeTypeCoupon = "coupon"
	PrizeTypeGift   = "gift"
	PrizeTypeEmpty  = "empty"
)

// 抽奖记录状态常量
const (
	LotteryRecordStatusPending = "pending"
	LotteryRecordStatusClaimed = "claimed"
	LotteryRecordStatusExpired = "expired"
)

// 抽奖机会来源常量
const (
	ChanceSourceOrder  = "order"
	ChanceSourceSignin = "signin"
	ChanceSourceAdmin  = "admin"
)

// 订单状态变更操作者类型常量
const (
	StatusActorUser     = "user"
	StatusActorOperator = "operator"
	StatusActorSystem   = "system"
)

// 微信支付回调应答常量
const (
	WechatReturnSuccess = "SUCCESS"
	WechatReturnFail    = "FAIL"
)

// 支付宝回调应答常量
const (
	AlipayAckSuccess = "success"
	AlipayAckFail    = "fail"
)

// 异步任务名称常量
const (
	TaskOrderReward         = "reward:order"
	TaskLotteryRecordExpire = "lottery:record_expire"
	TaskUserCouponExpire    = "coupon:user_expire"
)

// 队列名称常量
const (
	QueueDefault = "default"
)

// OrderStatuses 全部订单状态
var OrderStatuses = []string{
	OrderStatusPendingPayment,
	OrderStatusConfirmed,
	OrderStatusWaitingTest,
	OrderStatusInProgress,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// IsValidOrderStatus 校验订单状态取值
func IsValidOrderStatus(status string) bool {
	for _, s := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}
