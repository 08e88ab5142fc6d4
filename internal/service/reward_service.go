package service

import (
	"fmt"

	"github.com/labcheck-cloud/internal/config"
	"github.com/labcheck-cloud/internal/constants"
	"github.com/labcheck-cloud/internal/logger"
	"github.com/labcheck-cloud/internal/models"
	"github.com/labcheck-cloud/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RewardService 订单奖励服务：支付成功后发放积分与抽奖机会
type RewardService struct {
	orderRepo  *repository.GormOrderRepository
	pointsRepo *repository.GormPointsRepository
	pointsSvc  *PointsService
	lotterySvc *LotteryService
	cfg        *config.RewardConfig
}

// NewRewardService 创建奖励服务
func NewRewardService(
	orderRepo *repository.GormOrderRepository,
	pointsRepo *repository.GormPointsRepository,
	pointsSvc *PointsService,
	lotterySvc *LotteryService,
	cfg *config.RewardConfig,
) *RewardService {
	return &RewardService{
		orderRepo:  orderRepo,
		pointsRepo: pointsRepo,
		pointsSvc:  pointsSvc,
		lotterySvc: lotterySvc,
		cfg:        cfg,
	}
}

func rewardLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

func orderRewardReference(orderID uint) string {
	return fmt.Sprintf("order:reward:%d", orderID)
}

// IssueOrderRewards 为一笔已支付订单发放奖励。
// 积分流水的唯一引用同时充当整次发放的幂等凭据，任务重试不会重复发放。
func (s *RewardService) IssueOrderRewards(orderID uint) error {
	if orderID == 0 {
		return nil
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		rewardLogger("order_id", orderID).Warnw("order_reward_order_not_found")
		return nil
	}
	if order.PaidAt == nil || order.Status == constants.OrderStatusPendingPayment || order.Status == constants.OrderStatusCancelled {
		rewardLogger(
			"order_id", orderID,
			"order_status", order.Status,
		).Infow("order_reward_skip_unpaid")
		return nil
	}

	log := rewardLogger(
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"user_id", order.UserID,
		"paid_fee", order.PaidFee.String(),
	)

	pointsPerYuan := int64(0)
	chancesPerOrder := 0
	chanceMinOrder := int64(0)
	if s.cfg != nil {
		pointsPerYuan = s.cfg.PointsPerYuan
		chancesPerOrder = s.cfg.ChancesPerOrder
		chanceMinOrder = s.cfg.ChanceMinOrder
	}

	reference := orderRewardReference(order.ID)
	return models.DB.Transaction(func(tx *gorm.DB) error {
		existing, err := s.pointsRepo.WithTx(tx).GetByReference(reference)
		if err != nil {
			return err
		}
		if existing != nil {
			log.Infow("order_reward_idempotent_skip")
			return nil
		}

		points := order.PaidFee.Decimal.Mul(decimal.NewFromInt(pointsPerYuan)).IntPart()
		if points > 0 {
			if err := s.pointsSvc.CreditTx(tx, order.UserID, points, constants.PointsTypeOrder, order.ID, reference); err != nil {
				return err
			}
		}

		if chancesPerOrder > 0 && order.PaidFee.Decimal.GreaterThanOrEqual(decimal.NewFromInt(chanceMinOrder)) {
			if err := s.lotterySvc.GrantChances(tx, order.UserID, constants.ChanceSourceOrder, order.ID, chancesPerOrder); err != nil {
				return err
			}
		}
		log.Infow("order_reward_issued",
			"points", points,
			"chances", chancesPerOrder,
		)
		return nil
	})
}
