package service

import "errors"

// 业务哨兵错误，由 handler 层映射为接口错误码
var (
	// 用户
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrPasswordInvalid = errors.New("password invalid")

	// 订单
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderStatusInvalid    = errors.New("order status invalid")
	ErrOrderCancelNotAllowed = errors.New("order cancel not allowed")
	ErrOrderUpdateFailed     = errors.New("order update failed")
	ErrOrderAmountInvalid    = errors.New("order amount invalid")

	// 支付
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrPaymentInvalid          = errors.New("payment invalid")
	ErrPaymentChannelInvalid   = errors.New("payment channel invalid")
	ErrPaymentAmountInvalid    = errors.New("payment amount invalid")
	ErrPaymentAmountMismatch   = errors.New("payment amount mismatch")
	ErrPaymentCurrencyMismatch = errors.New("payment currency mismatch")
	ErrPaymentUpdateFailed     = errors.New("payment update failed")
	ErrPaymentGatewayFailed    = errors.New("payment gateway request failed")

	// 余额
	ErrBalanceInsufficient = errors.New("balance insufficient")

	// 充值
	ErrRechargeNotFound      = errors.New("recharge record not found")
	ErrRechargeAmountInvalid = errors.New("recharge amount invalid")

	// 积分
	ErrPointsInsufficient   = errors.New("points insufficient")
	ErrPointsAmountInvalid  = errors.New("points amount invalid")
	ErrPointsRecordConflict = errors.New("points record reference conflict")

	// 优惠券
	ErrCouponNotFound        = errors.New("coupon not found")
	ErrCouponInactive        = errors.New("coupon inactive")
	ErrCouponOutOfWindow     = errors.New("coupon out of receive window")
	ErrCouponOutOfStock      = errors.New("coupon out of stock")
	ErrCouponAlreadyHeld     = errors.New("coupon already held")
	ErrCouponNotUsable       = errors.New("coupon not usable")
	ErrCouponThresholdNotMet = errors.New("coupon threshold not met")

	// 抽奖
	ErrLotteryNoChances        = errors.New("lottery no chances")
	ErrLotteryNoPrizes         = errors.New("lottery no prizes configured")
	ErrLotteryRecordNotFound   = errors.New("lottery record not found")
	ErrLotteryRecordClaimed    = errors.New("lottery record already claimed")
	ErrLotteryRecordExpired    = errors.New("lottery record expired")
	ErrLotteryPrizeUnclaimable = errors.New("lottery prize unclaimable")
)
