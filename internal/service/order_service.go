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

// OrderService 检测订单服务
type OrderService struct {
	orderRepo   *repository.GormOrderRepository
	paymentRepo *repository.GormPaymentRepository
	userRepo    *repository.GormUserRepository
	couponSvc   *CouponService
	queueClient *queue.Client
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo *repository.GormOrderRepository,
	paymentRepo *repository.GormPaymentRepository,
	userRepo *repository.GormUserRepository,
	couponSvc *CouponService,
	queueClient *queue.Client,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		couponSvc:   couponSvc,
		queueClient: queueClient,
	}
}

func orderLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// CreateOrderInput 下单输入
type CreateOrderInput struct {
	UserID       uint
	Title        string
	ItemFee      decimal.Decimal
	UserCouponID *uint
}

// CreateOrder 创建检测订单。选用优惠券时在同一事务内核销并按快照条款抵扣。
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if input.UserID == 0 {
		return nil, ErrUserNotFound
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrOrderAmountInvalid
	}
	itemFee := input.ItemFee.Round(2)
	if !itemFee.IsPositive() {
		return nil, ErrOrderAmountInvalid
	}

	log := orderLogger(
		"user_id", input.UserID,
		"item_fee", itemFee.String(),
	)

	var order *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		now := time.Now()

		record := &models.Order{
			OrderNo:     generateOrderNo(),
			UserID:      input.UserID,
			Title:       title,
			ItemFee:     models.NewMoneyFromDecimal(itemFee),
			DiscountFee: models.ZeroMoney(),
			TotalFee:    models.NewMoneyFromDecimal(itemFee),
			PaidFee:     models.ZeroMoney(),
			Status:      constants.OrderStatusPendingPayment,
		}
		if err := orderRepo.Create(record); err != nil {
			return ErrOrderUpdateFailed
		}

		if input.UserCouponID != nil && *input.UserCouponID != 0 {
			userCoupon, err := s.couponSvc.redeemTx(tx, input.UserID, *input.UserCouponID, record.ID, now)
			if err != nil {
				return err
			}
			discount, err := DiscountFor(userCoupon, itemFee)
			if err != nil {
				return err
			}
			record.UserCouponID = &userCoupon.ID
			record.DiscountFee = models.NewMoneyFromDecimal(discount)
			record.TotalFee = models.NewMoneyFromDecimal(itemFee.Sub(discount))
			if err := orderRepo.Update(record); err != nil {
				return ErrOrderUpdateFailed
			}
		}

		history := &models.OrderStatusHistory{
			OrderID:    record.ID,
			FromStatus: "",
			ToStatus:   constants.OrderStatusPendingPayment,
			ActorType:  constants.StatusActorUser,
			ActorID:    input.UserID,
			Reason:     "order created",
		}
		if err := orderRepo.CreateStatusHistory(history); err != nil {
			return ErrOrderUpdateFailed
		}
		order = record
		return nil
	})
	if err != nil {
		log.Warnw("order_create_rejected", "error", err)
		return nil, err
	}
	log.Infow("order_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"total_fee", order.TotalFee.String(),
	)
	return order, nil
}

// PayWithBalance 余额支付。余额校验、扣减、支付流水与状态推进同一事务完成，
// 用户行加锁保证并发支付只会成功一次。
func (s *OrderService) PayWithBalance(userID, orderID uint) (*models.Payment, error) {
	if userID == 0 || orderID == 0 {
		return nil, ErrOrderNotFound
	}

	log := orderLogger(
		"user_id", userID,
		"order_id", orderID,
		"channel", constants.PaymentChannelBalance,
	)

	var payment *models.Payment
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		paymentRepo := s.paymentRepo.WithTx(tx)
		userRepo := s.userRepo.WithTx(tx)
		now := time.Now()

		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return ErrOrderUpdateFailed
		}
		if order == nil || order.UserID != userID {
			return ErrOrderNotFound
		}
		if order.Status != constants.OrderStatusPendingPayment {
			return ErrOrderStatusInvalid
		}
		due := order.TotalFee.Decimal.Sub(order.PaidFee.Decimal)
		if !due.IsPositive() {
			return ErrPaymentAmountInvalid
		}

		user, err := userRepo.GetByIDForUpdate(userID)
		if err != nil {
			return ErrOrderUpdateFailed
		}
		if user == nil {
			return ErrUserNotFound
		}
		if user.Balance.Decimal.LessThan(due) {
			return ErrBalanceInsufficient
		}
		user.Balance = models.NewMoneyFromDecimal(user.Balance.Decimal.Sub(due))
		if err := userRepo.Update(user); err != nil {
			return ErrOrderUpdateFailed
		}

		settledAt := now
		record := &models.Payment{
			PaymentNo: generatePaymentNo(),
			Purpose:   constants.PaymentPurposeOrder,
			OrderID:   &order.ID,
			UserID:    userID,
			Channel:   constants.PaymentChannelBalance,
			Amount:    models.NewMoneyFromDecimal(due),
			Currency:  "CNY",
			Status:    constants.PaymentStatusSuccess,
			SettledAt: &settledAt,
		}
		if err := paymentRepo.Create(record); err != nil {
			return ErrPaymentUpdateFailed
		}

		order.PaidFee = order.TotalFee
		order.PaymentChannel = constants.PaymentChannelBalance
		paidAt := now
		order.PaidAt = &paidAt
		if err := transitionOrderStatus(orderRepo, order, constants.OrderStatusConfirmed, constants.StatusActorUser, userID, "balance payment", now); err != nil {
			return err
		}
		if err := orderRepo.Update(order); err != nil {
			return ErrOrderUpdateFailed
		}
		payment = record
		return nil
	})
	if err != nil {
		log.Warnw("order_balance_pay_rejected", "error", err)
		return nil, err
	}

	s.enqueueOrderRewardAsync(orderID, log)
	log.Infow("order_balance_paid",
		"payment_no", payment.PaymentNo,
		"amount", payment.Amount.String(),
	)
	return payment, nil
}

// Cancel 取消订单。仅待支付与已确认可取消，进入检测流程后不再允许。
func (s *OrderService) Cancel(userID, orderID uint, actorType string, actorID uint, reason string) (*models.Order, error) {
	log := orderLogger(
		"order_id", orderID,
		"actor_type", actorType,
	)

	var order *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)

		locked, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return ErrOrderUpdateFailed
		}
		if locked == nil {
			return ErrOrderNotFound
		}
		if userID != 0 && locked.UserID != userID {
			return ErrOrderNotFound
		}
		if locked.Status != constants.OrderStatusPendingPayment && locked.Status != constants.OrderStatusConfirmed {
			return ErrOrderCancelNotAllowed
		}
		if err := transitionOrderStatus(orderRepo, locked, constants.OrderStatusCancelled, actorType, actorID, reason, time.Now()); err != nil {
			return err
		}
		if err := orderRepo.Update(locked); err != nil {
			return ErrOrderUpdateFailed
		}
		order = locked
		return nil
	})
	if err != nil {
		log.Warnw("order_cancel_rejected", "error", err)
		return nil, err
	}
	log.Infow("order_cancelled", "order_no", order.OrderNo, "reason", reason)
	return order, nil
}

// AdvanceStatus 推进检测流程状态（运营侧），非法跃迁由状态机拒绝。
func (s *OrderService) AdvanceStatus(orderID uint, target, actorType string, actorID uint, reason string) (*models.Order, error) {
	if !constants.IsValidOrderStatus(target) {
		return nil, ErrOrderStatusInvalid
	}

	var order *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)

		locked, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return ErrOrderUpdateFailed
		}
		if locked == nil {
			return ErrOrderNotFound
		}
		if err := transitionOrderStatus(orderRepo, locked, target, actorType, actorID, reason, time.Now()); err != nil {
			return err
		}
		if err := orderRepo.Update(locked); err != nil {
			return ErrOrderUpdateFailed
		}
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	orderLogger(
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"new_status", order.Status,
	).Infow("order_status_advanced")
	return order, nil
}

// GetOrder 查询用户自己的订单
func (s *OrderService) GetOrder(userID, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders 查询订单列表
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// ListStatusHistory 订单状态轨迹
func (s *OrderService) ListStatusHistory(userID, orderID uint) ([]models.OrderStatusHistory, error) {
	order, err := s.GetOrder(userID, orderID)
	if err != nil {
		return nil, err
	}
	return s.orderRepo.ListStatusHistory(order.ID)
}

func (s *OrderService) enqueueOrderRewardAsync(orderID uint, log *zap.SugaredLogger) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	if err := s.queueClient.EnqueueOrderReward(queue.OrderRewardPayload{OrderID: orderID}); err != nil {
		log.Warnw("order_enqueue_reward_failed", "order_id", orderID, "error", err)
	}
}
