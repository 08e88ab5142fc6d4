package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/labcheck-cloud/internal/config"
	"github.com/labcheck-cloud/internal/constants"
	"github.com/labcheck-cloud/internal/logger"
	"github.com/labcheck-cloud/internal/models"
	"github.com/labcheck-cloud/internal/payment/alipay"
	"github.com/labcheck-cloud/internal/payment/wechatpay"
	"github.com/labcheck-cloud/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WechatGateway 微信统一下单网关
type WechatGateway interface {
	UnifiedOrder(ctx context.Context, input wechatpay.UnifiedOrderInput) (*wechatpay.UnifiedOrderResult, error)
	ParseNotification(body []byte) (*wechatpay.Notification, error)
}

// AlipayGateway 支付宝网关
type AlipayGateway interface {
	BuildPagePayURL(input alipay.PagePayInput) (string, error)
	ParseNotification(form url.Values) (*alipay.Notification, error)
}

// PaymentService 支付发起服务：生成支付单并向渠道下单
type PaymentService struct {
	paymentRepo *repository.GormPaymentRepository
	orderRepo   *repository.GormOrderRepository
	cfg         *config.PaymentConfig
	wechat      WechatGateway
	alipay      AlipayGateway
}

// NewPaymentService 创建支付服务
func NewPaymentService(
	paymentRepo *repository.GormPaymentRepository,
	orderRepo *repository.GormOrderRepository,
	cfg *config.PaymentConfig,
	wechat WechatGateway,
	alipay AlipayGateway,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		cfg:         cfg,
		wechat:      wechat,
		alipay:      alipay,
	}
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// CreateOrderPaymentInput 发起订单支付输入
type CreateOrderPaymentInput struct {
	UserID   uint
	OrderID  uint
	Channel  string
	ClientIP string
	Context  context.Context
}

// CreateOrderPayment 为待支付订单发起一次渠道支付。
// 支付单先在事务内落库，渠道网络调用在事务提交后进行，失败则支付单标记失败。
func (s *PaymentService) CreateOrderPayment(input CreateOrderPaymentInput) (*models.Payment, error) {
	if input.OrderID == 0 || input.UserID == 0 {
		return nil, ErrPaymentInvalid
	}
	channel := strings.TrimSpace(input.Channel)
	if channel != constants.PaymentChannelWechat && channel != constants.PaymentChannelAlipay {
		return nil, ErrPaymentChannelInvalid
	}

	log := paymentLogger(
		"user_id", input.UserID,
		"order_id", input.OrderID,
		"channel", channel,
	)

	var payment *models.Payment
	var order *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		paymentRepo := s.paymentRepo.WithTx(tx)

		locked, err := orderRepo.GetByIDForUpdate(input.OrderID)
		if err != nil {
			return ErrOrderUpdateFailed
		}
		if locked == nil || locked.UserID != input.UserID {
			return ErrOrderNotFound
		}
		if locked.Status != constants.OrderStatusPendingPayment {
			return ErrOrderStatusInvalid
		}
		if !locked.TotalFee.Decimal.IsPositive() {
			return ErrPaymentAmountInvalid
		}

		orderID := locked.ID
		record := &models.Payment{
			PaymentNo: generatePaymentNo(),
			Purpose:   constants.PaymentPurposeOrder,
			OrderID:   &orderID,
			UserID:    locked.UserID,
			Channel:   channel,
			Amount:    locked.TotalFee,
			Currency:  "CNY",
			Status:    constants.PaymentStatusPending,
		}
		if err := paymentRepo.Create(record); err != nil {
			return ErrPaymentUpdateFailed
		}
		payment = record
		order = locked
		return nil
	})
	if err != nil {
		log.Warnw("payment_create_rejected", "error", err)
		return nil, err
	}

	if err := s.requestGateway(input.Context, payment, order.Title, input.ClientIP, log); err != nil {
		return nil, err
	}
	log.Infow("payment_created",
		"payment_id", payment.ID,
		"payment_no", payment.PaymentNo,
		"amount", payment.Amount.String(),
	)
	return payment, nil
}

// CreateRechargePayment 为充值记录发起渠道支付，由充值服务在落库后调用。
func (s *PaymentService) CreateRechargePayment(ctx context.Context, recharge *models.RechargeRecord, clientIP string) (*models.Payment, error) {
	if recharge == nil || recharge.ID == 0 {
		return nil, ErrPaymentInvalid
	}
	channel := strings.TrimSpace(recharge.Channel)
	if channel != constants.PaymentChannelWechat && channel != constants.PaymentChannelAlipay {
		return nil, ErrPaymentChannelInvalid
	}

	log := paymentLogger(
		"user_id", recharge.UserID,
		"recharge_id", recharge.ID,
		"recharge_no", recharge.RechargeNo,
		"channel", channel,
	)

	rechargeID := recharge.ID
	payment := &models.Payment{
		PaymentNo:  generatePaymentNo(),
		Purpose:    constants.PaymentPurposeRecharge,
		RechargeID: &rechargeID,
		UserID:     recharge.UserID,
		Channel:    channel,
		Amount:     recharge.Amount,
		Currency:   "CNY",
		Status:     constants.PaymentStatusPending,
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		log.Errorw("recharge_payment_create_failed", "error", err)
		return nil, ErrPaymentUpdateFailed
	}

	subject := fmt.Sprintf("账户充值 %s 元", recharge.Amount.String())
	if err := s.requestGateway(ctx, payment, subject, clientIP, log); err != nil {
		return nil, err
	}
	log.Infow("recharge_payment_created",
		"payment_id", payment.ID,
		"payment_no", payment.PaymentNo,
		"amount", payment.Amount.String(),
	)
	return payment, nil
}

// requestGateway 向渠道下单并回填跳转信息。渠道失败时支付单置为失败。
func (s *PaymentService) requestGateway(ctx context.Context, payment *models.Payment, subject, clientIP string, log *zap.SugaredLogger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var gatewayErr error
	switch payment.Channel {
	case constants.PaymentChannelWechat:
		if s.wechat == nil {
			gatewayErr = ErrPaymentChannelInvalid
			break
		}
		result, err := s.wechat.UnifiedOrder(ctx, wechatpay.UnifiedOrderInput{
			OutTradeNo:    payment.PaymentNo,
			TotalFeeCents: payment.Amount.Cents(),
			Body:          subject,
			ClientIP:      clientIP,
			NotifyURL:     s.notifyURL(constants.PaymentChannelWechat),
			TradeType:     wechatpay.TradeTypeNative,
		})
		if err != nil {
			gatewayErr = err
			break
		}
		payment.CodeURL = result.CodeURL
	case constants.PaymentChannelAlipay:
		if s.alipay == nil {
			gatewayErr = ErrPaymentChannelInvalid
			break
		}
		payURL, err := s.alipay.BuildPagePayURL(alipay.PagePayInput{
			OutTradeNo:  payment.PaymentNo,
			TotalAmount: payment.Amount.Decimal,
			Subject:     subject,
			NotifyURL:   s.notifyURL(constants.PaymentChannelAlipay),
		})
		if err != nil {
			gatewayErr = err
			break
		}
		payment.PayURL = payURL
	default:
		gatewayErr = ErrPaymentChannelInvalid
	}

	if gatewayErr != nil {
		log.Errorw("payment_gateway_request_failed",
			"payment_no", payment.PaymentNo,
			"error", gatewayErr,
		)
		payment.Status = constants.PaymentStatusFailed
		if err := s.paymentRepo.Update(payment); err != nil {
			log.Errorw("payment_gateway_fail_mark_failed", "payment_no", payment.PaymentNo, "error", err)
		}
		return ErrPaymentGatewayFailed
	}
	return s.paymentRepo.Update(payment)
}

func (s *PaymentService) notifyURL(channel string) string {
	base := ""
	if s.cfg != nil {
		base = strings.TrimRight(strings.TrimSpace(s.cfg.NotifyBaseURL), "/")
	}
	return fmt.Sprintf("%s/api/v1/payments/notify/%s", base, channel)
}

// ParseWechatNotification 解析并验签微信异步回调，不触发状态变更
func (s *PaymentService) ParseWechatNotification(body []byte) (*wechatpay.Notification, error) {
	if s.wechat == nil {
		return nil, ErrPaymentChannelInvalid
	}
	return s.wechat.ParseNotification(body)
}

// ParseAlipayNotification 解析并验签支付宝异步回调，不触发状态变更
func (s *PaymentService) ParseAlipayNotification(form url.Values) (*alipay.Notification, error) {
	if s.alipay == nil {
		return nil, ErrPaymentChannelInvalid
	}
	return s.alipay.ParseNotification(form)
}

// GetPayment 查询用户自己的支付单
func (s *PaymentService) GetPayment(userID, paymentID uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByIDAndUser(paymentID, userID)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// ListPayments 查询用户支付记录
func (s *PaymentService) ListPayments(filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	return s.paymentRepo.List(filter)
}

func generatePaymentNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("PAY%s%s", now, randNumeric(6))
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("LC%s%s", now, randNumeric(6))
}

func generateRechargeNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("RC%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
