package i18n

var messages = map[string]map[string]string{
	LocaleZhCN: {
		"error.request_invalid":          "请求参数无效",
		"error.internal":                 "服务器内部错误",
		"error.unauthorized":             "请先登录",
		"error.login_too_many":           "登录尝试过于频繁，请稍后再试",
		"error.draw_too_many":            "抽奖过于频繁，请稍后再试",
		"error.user_not_found":           "用户不存在",
		"error.user_exists":              "手机号已注册",
		"error.password_invalid":         "手机号或密码错误",
		"error.order_not_found":          "订单不存在",
		"error.order_status_invalid":     "订单状态不允许该操作",
		"error.order_cancel_not_allowed": "当前状态的订单不可取消",
		"error.payment_not_found":        "支付记录不存在",
		"error.payment_invalid":          "支付请求无效",
		"error.payment_channel_invalid":  "不支持的支付渠道",
		"error.payment_amount_invalid":   "支付金额无效",
		"error.payment_amount_mismatch":  "支付金额不一致",
		"error.payment_gateway_failed":   "支付网关请求失败",
		"error.balance_insufficient":     "余额不足",
		"error.recharge_not_found":       "充值记录不存在",
		"error.recharge_amount_invalid":  "充值金额无效",
		"error.points_insufficient":      "积分不足",
		"error.coupon_not_found":         "优惠券不存在",
		"error.coupon_inactive":          "优惠券未启用",
		"error.coupon_out_of_window":     "不在领取时间范围内",
		"error.coupon_out_of_stock":      "优惠券已领完",
		"error.coupon_already_held":      "您已领取过该优惠券",
		"error.coupon_not_usable":        "优惠券不可用",
		"error.coupon_threshold_not_met": "未达到优惠券使用门槛",
		"error.lottery_no_chances":       "暂无抽奖机会",
		"error.lottery_no_prizes":        "抽奖活动未配置奖品",
		"error.lottery_record_not_found": "中奖记录不存在",
		"error.lottery_record_claimed":   "奖品已领取",
		"error.lottery_record_expired":   "奖品已过期",
		"error.signature_invalid":        "签名验证失败",
		"error.auth_header_missing":      "缺少认证信息",
		"error.auth_header_invalid":      "认证信息格式错误",
		"error.token_invalid":            "登录状态无效，请重新登录",
		"error.jwt_secret_missing":       "认证服务未配置",
		"error.rate_limited":             "操作过于频繁，请 %d 秒后再试",
		"error.rate_limit_unavailable":   "限流服务暂不可用",
		"error.order_amount_invalid":     "订单金额无效",
		"error.currency_mismatch":        "支付币种不一致",
		"error.points_amount_invalid":    "积分数量无效",
		"error.points_record_conflict":   "积分流水重复",
		"error.prize_unclaimable":        "该奖品不可领取",
	},
	LocaleEn: {
		"error.request_invalid":          "invalid request",
		"error.internal":                 "internal server error",
		"error.unauthorized":             "login required",
		"error.login_too_many":           "too many login attempts, try again later",
		"error.draw_too_many":            "too many draw attempts, try again later",
		"error.user_not_found":           "user not found",
		"error.user_exists":              "phone already registered",
		"error.password_invalid":         "wrong phone or password",
		"error.order_not_found":          "order not found",
		"error.order_status_invalid":     "order status does not allow this operation",
		"error.order_cancel_not_allowed": "order can no longer be cancelled",
		"error.payment_not_found":        "payment not found",
		"error.payment_invalid":          "invalid payment request",
		"error.payment_channel_invalid":  "unsupported payment channel",
		"error.payment_amount_invalid":   "invalid payment amount",
		"error.payment_amount_mismatch":  "payment amount mismatch",
		"error.payment_gateway_failed":   "payment gateway request failed",
		"error.balance_insufficient":     "insufficient balance",
		"error.recharge_not_found":       "recharge record not found",
		"error.recharge_amount_invalid":  "invalid recharge amount",
		"error.points_insufficient":      "insufficient points",
		"error.coupon_not_found":         "coupon not found",
		"error.coupon_inactive":          "coupon not active",
		"error.coupon_out_of_window":     "outside the receive window",
		"error.coupon_out_of_stock":      "coupon out of stock",
		"error.coupon_already_held":      "coupon already held",
		"error.coupon_not_usable":        "coupon not usable",
		"error.coupon_threshold_not_met": "order amount below coupon threshold",
		"error.lottery_no_chances":       "no draw chances left",
		"error.lottery_no_prizes":        "no prizes configured",
		"error.lottery_record_not_found": "lottery record not found",
		"error.lottery_record_claimed":   "prize already claimed",
		"error.lottery_record_expired":   "prize claim window expired",
		"error.signature_invalid":        "signature verification failed",
		"error.auth_header_missing":      "authorization header missing",
		"error.auth_header_invalid":      "authorization header malformed",
		"error.token_invalid":            "invalid session, please login again",
		"error.jwt_secret_missing":       "authentication not configured",
		"error.rate_limited":             "too many requests, retry in %d seconds",
		"error.rate_limit_unavailable":   "rate limiter unavailable",
		"error.order_amount_invalid":     "invalid order amount",
		"error.currency_mismatch":        "payment currency mismatch",
		"error.points_amount_invalid":    "invalid points amount",
		"error.points_record_conflict":   "duplicate points entry",
		"error.prize_unclaimable":        "prize cannot be claimed",
	},
}
