package public

import (
	"errors"
	"io"
	"time"

	"github.com/labcheck-cloud/internal/constants"
	"github.com/labcheck-cloud/internal/models"
	"github.com/labcheck-cloud/internal/payment/wechatpay"
	"github.com/labcheck-cloud/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WechatNotify 微信支付异步回调
// 验签失败不做任何状态变更；未知单号按渠道要求应答失败，避免对方无限重发已知垃圾。
func (h *Handler) WechatNotify(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		requestLog(c).Warnw("wechat_notify_body_read_failed", "error", err)
		c.String(200, wechatpay.AckFail("read body failed"))
		return
	}

	notification, err := h.PaymentService.ParseWechatNotification(body)
	if err != nil {
		requestLog(c).Warnw("wechat_notify_signature_invalid", "error", err)
		c.String(200, wechatpay.AckFail("signature invalid"))
		return
	}

	event := service.SettlementEvent{
		Reference: notification.OutTradeNo,
		TradeNo:   notification.TradeNo,
		Channel:   constants.PaymentChannelWechat,
		Amount:    decimal.New(notification.TotalFeeCents, -2),
		Currency:  notification.Raw["fee_type"],
		Succeeded: notification.Succeeded,
		PaidAt:    parseWechatTime(notification.Raw["time_end"]),
		Raw:       rawToJSON(notification.Raw),
	}
	if _, err := h.SettlementService.Settle(event); err != nil {
		requestLog(c).Errorw("wechat_notify_settle_failed",
			"payment_no", notification.OutTradeNo,
			"error", err,
		)
		c.String(200, wechatpay.AckFail("settle failed"))
		return
	}
	c.String(200, wechatpay.AckSuccess())
}

// AlipayNotify 支付宝异步回调
func (h *Handler) AlipayNotify(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		requestLog(c).Warnw("alipay_notify_form_invalid", "error", err)
		c.String(200, constants.AlipayAckFail)
		return
	}

	notification, err := h.PaymentService.ParseAlipayNotification(c.Request.PostForm)
	if err != nil {
		requestLog(c).Warnw("alipay_notify_signature_invalid", "error", err)
		c.String(200, constants.AlipayAckFail)
		return
	}

	event := service.SettlementEvent{
		Reference: notification.OutTradeNo,
		TradeNo:   notification.TradeNo,
		Channel:   constants.PaymentChannelAlipay,
		Amount:    notification.TotalAmount,
		Succeeded: notification.Succeeded,
		PaidAt:    parseAlipayTime(notification.Raw["gmt_payment"]),
		Raw:       rawToJSON(notification.Raw),
	}
	if _, err := h.SettlementService.Settle(event); err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			requestLog(c).Warnw("alipay_notify_payment_not_found",
				"payment_no", notification.OutTradeNo,
			)
		} else {
			requestLog(c).Errorw("alipay_notify_settle_failed",
				"payment_no", notification.OutTradeNo,
				"error", err,
			)
		}
		c.String(200, constants.AlipayAckFail)
		return
	}
	c.String(200, constants.AlipayAckSuccess)
}

func rawToJSON(raw map[string]string) models.JSON {
	out := make(models.JSON, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}

func parseWechatTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation("20060102150405", raw, time.Local)
	if err != nil {
		return nil
	}
	return &t
}

func parseAlipayTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", raw, time.Local)
	if err != nil {
		return nil
	}
	return &t
}
