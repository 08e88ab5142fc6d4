package service

import (
	"context"
	"strings"

	"github.com/labcheck-cloud/internal/constants"
	"github.com/labcheck-cloud/internal/logger"
	"github.com/labcheck-cloud/internal/models"
	"github.com/labcheck-cloud/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RechargeService 余额充值服务
type RechargeService struct {
	rechargeRepo *repository.GormRechargeRepository
	userRepo     *repository.GormUserRepository
	paymentSvc   *PaymentService
	bonus        *BonusCalculator
}

// NewRechargeService 创建充值服务
func NewRechargeService(
	rechargeRepo *repository.GormRechargeRepository,
	userRepo *repository.GormUserRepository,
	paymentSvc *PaymentService,
	bonus *BonusCalculator,
) *RechargeService {
	if bonus == nil {
		bonus = NewBonusCalculator()
	}
	return &RechargeService{
		rechargeRepo: rechargeRepo,
		userRepo:     userRepo,
		paymentSvc:   paymentSvc,
		bonus:        bonus,
	}
}

func rechargeLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// CreateRechargeInput 发起充值输入
type CreateRechargeInput struct {
	UserID   uint
	Amount   decimal.Decimal
	Channel  string
	ClientIP string
	Context  context.Context
}

// CreateRechargeResult 发起充值结果
type CreateRechargeResult struct {
	Recharge *models.RechargeRecord
	Payment  *models.Payment
}

// CreateRecharge 创建充值单并发起渠道支付。
// 赠送金额按创建时刻的档位一次性定死，后续档位调整不追溯。
func (s *RechargeService) CreateRecharge(input CreateRechargeInput) (*CreateRechargeResult, error) {
	if input.UserID == 0 {
		return nil, ErrUserNotFound
	}
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrRechargeAmountInvalid
	}
	channel := strings.TrimSpace(input.Channel)
	if channel != constants.PaymentChannelWechat && channel != constants.PaymentChannelAlipay {
		return nil, ErrPaymentChannelInvalid
	}

	user, err := s.userRepo.GetByID(input.UserID)
	if err != nil || user == nil {
		return nil, ErrUserNotFound
	}

	bonusAmount := s.bonus.BonusFor(amount)
	recharge := &models.RechargeRecord{
		RechargeNo:   generateRechargeNo(),
		UserID:       input.UserID,
		Amount:       models.NewMoneyFromDecimal(amount),
		BonusAmount:  models.NewMoneyFromDecimal(bonusAmount),
		ActualAmount: models.NewMoneyFromDecimal(amount.Add(bonusAmount)),
		Channel:      channel,
		Status:       constants.RechargeStatusPending,
	}
	if err := s.rechargeRepo.Create(recharge); err != nil {
		rechargeLogger("user_id", input.UserID).Errorw("recharge_create_failed", "error", err)
		return nil, ErrPaymentUpdateFailed
	}

	payment, err := s.paymentSvc.CreateRechargePayment(input.Context, recharge, input.ClientIP)
	if err != nil {
		return nil, err
	}
	rechargeLogger(
		"user_id", input.UserID,
		"recharge_no", recharge.RechargeNo,
		"amount", recharge.Amount.String(),
		"bonus_amount", recharge.BonusAmount.String(),
		"actual_amount", recharge.ActualAmount.String(),
	).Infow("recharge_created")
	return &CreateRechargeResult{Recharge: recharge, Payment: payment}, nil
}

// GetRecharge 查询用户自己的充值记录
func (s *RechargeService) GetRecharge(userID, rechargeID uint) (*models.RechargeRecord, error) {
	recharge, err := s.rechargeRepo.GetByIDAndUser(rechargeID, userID)
	if err != nil {
		return nil, ErrRechargeNotFound
	}
	if recharge == nil {
		return nil, ErrRechargeNotFound
	}
	return recharge, nil
}

// ListRecharges 查询用户充值记录
func (s *RechargeService) ListRecharges(filter repository.RechargeListFilter) ([]models.RechargeRecord, int64, error) {
	return s.rechargeRepo.List(filter)
}

// BonusRules 返回当前充值赠送档位，用于前台展示
func (s *RechargeService) BonusRules() []BonusRule {
	return s.bonus.Rules()
}

// TotalRecharged 用户累计到账金额（仅成功充值）
func (s *RechargeService) TotalRecharged(userID uint) (decimal.Decimal, error) {
	return s.rechargeRepo.SumSettledByUser(userID)
}
