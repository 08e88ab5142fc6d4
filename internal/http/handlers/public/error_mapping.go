package public

import (
	"errors"

	"github.com/labcheck-cloud/internal/http/response"
	"github.com/labcheck-cloud/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var authErrorRules = []mappedHandlerError{
	{target: service.ErrUserExists, code: response.CodeConflict, key: "error.user_exists"},
	{target: service.ErrPasswordInvalid, code: response.CodeBadRequest, key: "error.password_invalid"},
	{target: service.ErrUserNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
}

var orderCreateErrorRules = []mappedHandlerError{
	{target: service.ErrOrderAmountInvalid, code: response.CodeBadRequest, key: "error.order_amount_invalid"},
	{target: service.ErrCouponNotFound, code: response.CodeBadRequest, key: "error.coupon_not_found"},
	{target: service.ErrCouponNotUsable, code: response.CodeBadRequest, key: "error.coupon_not_usable"},
	{target: service.ErrCouponThresholdNotMet, code: response.CodeBadRequest, key: "error.coupon_threshold_not_met"},
	{target: service.ErrUserNotFound, code: response.CodeUnauthorized, key: "error.unauthorized"},
}

var orderCancelErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderCancelNotAllowed, code: response.CodeConflict, key: "error.order_cancel_not_allowed"},
	{target: service.ErrOrderStatusInvalid, code: response.CodeConflict, key: "error.order_status_invalid"},
}

var balancePayErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderStatusInvalid, code: response.CodeConflict, key: "error.order_status_invalid"},
	{target: service.ErrBalanceInsufficient, code: response.CodeConflict, key: "error.balance_insufficient"},
	{target: service.ErrPaymentAmountInvalid, code: response.CodeBadRequest, key: "error.payment_amount_invalid"},
}

var paymentCreateErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderStatusInvalid, code: response.CodeConflict, key: "error.order_status_invalid"},
	{target: service.ErrPaymentInvalid, code: response.CodeBadRequest, key: "error.payment_invalid"},
	{target: service.ErrPaymentChannelInvalid, code: response.CodeBadRequest, key: "error.payment_channel_invalid"},
	{target: service.ErrPaymentAmountInvalid, code: response.CodeBadRequest, key: "error.payment_amount_invalid"},
	{target: service.ErrPaymentGatewayFailed, code: response.CodeInternal, key: "error.payment_gateway_failed"},
}

var paymentGetErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, key: "error.payment_not_found"},
}

var rechargeCreateErrorRules = []mappedHandlerError{
	{target: service.ErrRechargeAmountInvalid, code: response.CodeBadRequest, key: "error.recharge_amount_invalid"},
	{target: service.ErrPaymentChannelInvalid, code: response.CodeBadRequest, key: "error.payment_channel_invalid"},
	{target: service.ErrPaymentGatewayFailed, code: response.CodeInternal, key: "error.payment_gateway_failed"},
	{target: service.ErrUserNotFound, code: response.CodeUnauthorized, key: "error.unauthorized"},
}

var rechargeGetErrorRules = []mappedHandlerError{
	{target: service.ErrRechargeNotFound, code: response.CodeNotFound, key: "error.recharge_not_found"},
}

var couponReceiveErrorRules = []mappedHandlerError{
	{target: service.ErrCouponNotFound, code: response.CodeNotFound, key: "error.coupon_not_found"},
	{target: service.ErrCouponInactive, code: response.CodeConflict, key: "error.coupon_inactive"},
	{target: service.ErrCouponOutOfWindow, code: response.CodeConflict, key: "error.coupon_out_of_window"},
	{target: service.ErrCouponOutOfStock, code: response.CodeConflict, key: "error.coupon_out_of_stock"},
	{target: service.ErrCouponAlreadyHeld, code: response.CodeConflict, key: "error.coupon_already_held"},
}

var couponGetErrorRules = []mappedHandlerError{
	{target: service.ErrCouponNotFound, code: response.CodeNotFound, key: "error.coupon_not_found"},
}

var lotteryRecordGetErrorRules = []mappedHandlerError{
	{target: service.ErrLotteryRecordNotFound, code: response.CodeNotFound, key: "error.lottery_record_not_found"},
}

var lotteryDrawErrorRules = []mappedHandlerError{
	{target: service.ErrLotteryNoChances, code: response.CodeConflict, key: "error.lottery_no_chances"},
	{target: service.ErrLotteryNoPrizes, code: response.CodeConflict, key: "error.lottery_no_prizes"},
}

var lotteryClaimErrorRules = []mappedHandlerError{
	{target: service.ErrLotteryRecordNotFound, code: response.CodeNotFound, key: "error.lottery_record_not_found"},
	{target: service.ErrLotteryRecordClaimed, code: response.CodeConflict, key: "error.lottery_record_claimed"},
	{target: service.ErrLotteryRecordExpired, code: response.CodeConflict, key: "error.lottery_record_expired"},
	{target: service.ErrLotteryPrizeUnclaimable, code: response.CodeConflict, key: "error.prize_unclaimable"},
	{target: service.ErrCouponNotFound, code: response.CodeConflict, key: "error.coupon_not_found"},
	{target: service.ErrCouponInactive, code: response.CodeConflict, key: "error.coupon_inactive"},
}
