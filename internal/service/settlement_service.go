package service

import (
	"strings"
	"time"

	"github.com/labcheck-cloud/internal/constants"
	"github.com/labcheck-cloud/internal/logger"
	"github.com/labcheck-cloud/internal/models"
	"github.com/labcheck-cloud/internal/queue"
	"github.com/labcheck-cloud/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SettlementEvent 渠道回调经解析验签后归一出的结算事件
type SettlementEvent struct {
	Reference string          // 商户侧支付单号（out_trade_no）
	TradeNo   string          // 渠道交易号
	Channel   string          // 回调来源渠道
	Amount    decimal.Decimal // 回调金额（元）
	Currency  string          // 回调币种（空表示渠道未携带）
	Succeeded bool            // 渠道是否判定支付成功
	PaidAt    *time.Time      // 渠道支付完成时间
	Raw       models.JSON     // 回调原始参数
}

// SettlementOutcome 结算处理结果
type SettlementOutcome string

const (
	// SettlementApplied 本次回调完成了状态推进
	SettlementApplied SettlementOutcome = "applied"
	// SettlementAlreadyApplied 重复回调，仅更新元信息
	SettlementAlreadyApplied SettlementOutcome = "already_applied"
)

// SettlementResult 结算结果
type SettlementResult struct {
	Outcome SettlementOutcome
	Payment *models.Payment
}

// SettlementService 支付结算服务：承接各渠道异步通知的幂等落账
type SettlementService struct {
	paymentRepo  *repository.GormPaymentRepository
	orderRepo    *repository.GormOrderRepository
	rechargeRepo *repository.GormRechargeRepository
	userRepo     *repository.GormUserRepository
	queueClient  *queue.Client
}

// NewSettlementService 创建结算服务
func NewSettlementService(
	paymentRepo *repository.GormPaymentRepository,
	orderRepo *repository.GormOrderRepository,
	rechargeRepo *repository.GormRechargeRepository,
	userRepo *repository.GormUserRepository,
	queueClient *queue.Client,
) *SettlementService {
	return &SettlementService{
		paymentRepo:  paymentRepo,
		orderRepo:    orderRepo,
		rechargeRepo: rechargeRepo,
		userRepo:     userRepo,
		queueClient:  queueClient,
	}
}

func settlementLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// Settle 处理一条结算事件。同一支付单号重复通知可安全重放：
// 已到终态的支付记录只补写回调元信息，不会再次入账。
func (s *SettlementService) Settle(event SettlementEvent) (*SettlementResult, error) {
	reference := strings.TrimSpace(event.Reference)
	if reference == "" {
		return nil, ErrPaymentInvalid
	}

	log := settlementLogger(
		"payment_no", reference,
		"notify_channel", event.Channel,
		"notify_trade_no", strings.TrimSpace(event.TradeNo),
		"notify_currency", strings.ToUpper(strings.TrimSpace(event.Currency)),
		"notify_amount", event.Amount.String(),
		"notify_succeeded", event.Succeeded,
	)
	log.Infow("payment_notify_received")

	var result SettlementResult
	var confirmedOrderID uint
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)

		payment, err := paymentRepo.GetByPaymentNoForUpdate(reference)
		if err != nil {
			log.Errorw("settlement_payment_fetch_failed", "error", err)
			return ErrPaymentUpdateFailed
		}
		if payment == nil {
			log.Warnw("settlement_payment_not_found")
			return ErrPaymentNotFound
		}

		if err := s.checkEventMatch(payment, event, log); err != nil {
			return err
		}

		now := time.Now()
		if payment.Status == constants.PaymentStatusSuccess || payment.Status == constants.PaymentStatusFailed {
			log.Infow("settlement_idempotent_replay", "current_status", payment.Status)
			s.applyNotifyMeta(payment, event, now)
			if err := paymentRepo.Update(payment); err != nil {
				return ErrPaymentUpdateFailed
			}
			result = SettlementResult{Outcome: SettlementAlreadyApplied, Payment: payment}
			return nil
		}

		if !event.Succeeded {
			s.applyNotifyMeta(payment, event, now)
			payment.Status = constants.PaymentStatusFailed
			if err := paymentRepo.Update(payment); err != nil {
				return ErrPaymentUpdateFailed
			}
			if payment.Purpose == constants.PaymentPurposeRecharge {
				if err := s.failRechargePayment(tx, payment, log); err != nil {
					return err
				}
			}
			log.Infow("settlement_marked_failed")
			result = SettlementResult{Outcome: SettlementApplied, Payment: payment}
			return nil
		}

		s.applyNotifyMeta(payment, event, now)
		payment.Status = constants.PaymentStatusSuccess
		settledAt := now
		payment.SettledAt = &settledAt
		if err := paymentRepo.Update(payment); err != nil {
			return ErrPaymentUpdateFailed
		}

		switch payment.Purpose {
		case constants.PaymentPurposeOrder:
			orderID, err := s.settleOrderPayment(tx, payment, event, now, log)
			if err != nil {
				return err
			}
			confirmedOrderID = orderID
		case constants.PaymentPurposeRecharge:
			if err := s.settleRechargePayment(tx, payment, log); err != nil {
				return err
			}
		default:
			log.Errorw("settlement_purpose_unknown", "purpose", payment.Purpose)
			return ErrPaymentInvalid
		}

		result = SettlementResult{Outcome: SettlementApplied, Payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if confirmedOrderID != 0 {
		s.enqueueOrderRewardAsync(confirmedOrderID, log)
	}
	log.Infow("settlement_processed",
		"outcome", string(result.Outcome),
		"payment_status", result.Payment.Status,
	)
	return &result, nil
}

// checkEventMatch 校验回调与存量支付记录的一致性，任何不符直接拒绝，不落库。
func (s *SettlementService) checkEventMatch(payment *models.Payment, event SettlementEvent, log *zap.SugaredLogger) error {
	if event.Channel != "" && event.Channel != payment.Channel {
		log.Warnw("settlement_channel_mismatch",
			"stored_channel", payment.Channel,
			"notify_channel", event.Channel,
		)
		return ErrPaymentInvalid
	}
	if event.Currency != "" && strings.ToUpper(strings.TrimSpace(event.Currency)) != strings.ToUpper(strings.TrimSpace(payment.Currency)) {
		log.Warnw("settlement_currency_mismatch",
			"stored_currency", payment.Currency,
			"notify_currency", event.Currency,
		)
		return ErrPaymentCurrencyMismatch
	}
	if !event.Amount.IsZero() && event.Amount.Cmp(payment.Amount.Decimal) != 0 {
		log.Warnw("settlement_amount_mismatch",
			"stored_amount", payment.Amount.String(),
			"notify_amount", event.Amount.String(),
		)
		return ErrPaymentAmountMismatch
	}
	return nil
}

func (s *SettlementService) applyNotifyMeta(payment *models.Payment, event SettlementEvent, now time.Time) {
	notifiedAt := now
	payment.NotifiedAt = &notifiedAt
	if tradeNo := strings.TrimSpace(event.TradeNo); tradeNo != "" && payment.TradeNo == "" {
		payment.TradeNo = tradeNo
	}
	if event.Raw != nil {
		payment.RawNotify = event.Raw
	}
}

// settleOrderPayment 订单支付成功落账：记录实付并推进订单到已确认。
func (s *SettlementService) settleOrderPayment(tx *gorm.DB, payment *models.Payment, event SettlementEvent, now time.Time, log *zap.SugaredLogger) (uint, error) {
	if payment.OrderID == nil || *payment.OrderID == 0 {
		log.Errorw("settlement_order_ref_missing")
		return 0, ErrPaymentInvalid
	}
	orderRepo := s.orderRepo.WithTx(tx)

	order, err := orderRepo.GetByIDForUpdate(*payment.OrderID)
	if err != nil {
		log.Errorw("settlement_order_fetch_failed", "order_id", *payment.OrderID, "error", err)
		return 0, ErrOrderUpdateFailed
	}
	if order == nil {
		log.Warnw("settlement_order_not_found", "order_id", *payment.OrderID)
		return 0, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPendingPayment {
		// 订单已被其他路径推进（例如余额支付），视为重复入账。
		log.Infow("settlement_order_already_advanced",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"order_status", order.Status,
		)
		return 0, nil
	}

	order.PaidFee = payment.Amount
	order.PaymentChannel = payment.Channel
	paidAt := now
	if event.PaidAt != nil {
		paidAt = *event.PaidAt
	}
	order.PaidAt = &paidAt
	if err := transitionOrderStatus(orderRepo, order, constants.OrderStatusConfirmed, constants.StatusActorSystem, 0, "payment settled", now); err != nil {
		log.Errorw("settlement_order_transition_failed", "order_id", order.ID, "error", err)
		return 0, err
	}
	if err := orderRepo.Update(order); err != nil {
		log.Errorw("settlement_order_update_failed", "order_id", order.ID, "error", err)
		return 0, ErrOrderUpdateFailed
	}
	log.Infow("settlement_order_confirmed",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"paid_fee", order.PaidFee.String(),
	)
	return order.ID, nil
}

// failRechargePayment 渠道明确失败时同步终结充值单，已到终态的不再改写。
func (s *SettlementService) failRechargePayment(tx *gorm.DB, payment *models.Payment, log *zap.SugaredLogger) error {
	if payment.RechargeID == nil || *payment.RechargeID == 0 {
		log.Errorw("settlement_recharge_ref_missing")
		return ErrPaymentInvalid
	}
	rechargeRepo := s.rechargeRepo.WithTx(tx)

	recharge, err := rechargeRepo.GetByIDForUpdate(*payment.RechargeID)
	if err != nil {
		log.Errorw("settlement_recharge_fetch_failed", "recharge_id", *payment.RechargeID, "error", err)
		return ErrPaymentUpdateFailed
	}
	if recharge == nil {
		log.Warnw("settlement_recharge_not_found", "recharge_id", *payment.RechargeID)
		return ErrRechargeNotFound
	}
	if recharge.Status != constants.RechargeStatusPending {
		log.Infow("settlement_recharge_already_terminal",
			"recharge_id", recharge.ID,
			"recharge_status", recharge.Status,
		)
		return nil
	}

	recharge.Status = constants.RechargeStatusFailed
	recharge.TradeNo = payment.TradeNo
	if err := rechargeRepo.Update(recharge); err != nil {
		log.Errorw("settlement_recharge_update_failed", "recharge_id", recharge.ID, "error", err)
		return ErrPaymentUpdateFailed
	}
	log.Infow("settlement_recharge_marked_failed",
		"recharge_id", recharge.ID,
		"recharge_no", recharge.RechargeNo,
	)
	return nil
}

// settleRechargePayment 充值支付成功落账：到账金额（本金+赠送）入用户余额。
func (s *SettlementService) settleRechargePayment(tx *gorm.DB, payment *models.Payment, log *zap.SugaredLogger) error {
	if payment.RechargeID == nil || *payment.RechargeID == 0 {
		log.Errorw("settlement_recharge_ref_missing")
		return ErrPaymentInvalid
	}
	rechargeRepo := s.rechargeRepo.WithTx(tx)
	userRepo := s.userRepo.WithTx(tx)

	recharge, err := rechargeRepo.GetByIDForUpdate(*payment.RechargeID)
	if err != nil {
		log.Errorw("settlement_recharge_fetch_failed", "recharge_id", *payment.RechargeID, "error", err)
		return ErrPaymentUpdateFailed
	}
	if recharge == nil {
		log.Warnw("settlement_recharge_not_found", "recharge_id", *payment.RechargeID)
		return ErrRechargeNotFound
	}
	if recharge.Status == constants.RechargeStatusSuccess {
		log.Infow("settlement_recharge_already_settled",
			"recharge_id", recharge.ID,
			"recharge_no", recharge.RechargeNo,
		)
		return nil
	}

	now := time.Now()
	recharge.Status = constants.RechargeStatusSuccess
	recharge.TradeNo = payment.TradeNo
	recharge.SettledAt = &now
	if err := rechargeRepo.Update(recharge); err != nil {
		log.Errorw("settlement_recharge_update_failed", "recharge_id", recharge.ID, "error", err)
		return ErrPaymentUpdateFailed
	}

	user, err := userRepo.GetByIDForUpdate(recharge.UserID)
	if err != nil {
		log.Errorw("settlement_recharge_user_fetch_failed", "user_id", recharge.UserID, "error", err)
		return ErrPaymentUpdateFailed
	}
	if user == nil {
		log.Warnw("settlement_recharge_user_not_found", "user_id", recharge.UserID)
		return ErrUserNotFound
	}
	user.Balance = models.NewMoneyFromDecimal(user.Balance.Decimal.Add(recharge.ActualAmount.Decimal))
	if err := userRepo.Update(user); err != nil {
		log.Errorw("settlement_recharge_balance_update_failed", "user_id", user.ID, "error", err)
		return ErrPaymentUpdateFailed
	}
	log.Infow("settlement_recharge_credited",
		"recharge_id", recharge.ID,
		"recharge_no", recharge.RechargeNo,
		"user_id", user.ID,
		"credited_amount", recharge.ActualAmount.String(),
		"balance_after", user.Balance.String(),
	)
	return nil
}

func (s *SettlementService) enqueueOrderRewardAsync(orderID uint, log *zap.SugaredLogger) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	if err := s.queueClient.EnqueueOrderReward(queue.OrderRewardPayload{OrderID: orderID}); err != nil {
		log.Warnw("settlement_enqueue_order_reward_failed", "order_id", orderID, "error", err)
	}
}
