package service

import (
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

// CouponService 优惠券服务
type CouponService struct {
	couponRepo  *repository.GormCouponRepository
	queueClient *queue.Client
}

// NewCouponService 创建优惠券服务
func NewCouponService(couponRepo *repository.GormCouponRepository, queueClient *queue.Client) *CouponService {
	return &CouponService{
		couponRepo:  couponRepo,
		queueClient: queueClient,
	}
}

func couponLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// Receive 领取优惠券。模板行加锁后校验状态、领取窗口、余量与重复持有，
// 领取数量递增与持券快照写入在同一事务内完成。
func (s *CouponService) Receive(userID, couponID uint) (*models.UserCoupon, error) {
	if userID == 0 || couponID == 0 {
		return nil, ErrCouponNotFound
	}

	log := couponLogger(
		"user_id", userID,
		"coupon_id", couponID,
	)

	var userCoupon *models.UserCoupon
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		couponRepo := s.couponRepo.WithTx(tx)

		coupon, err := couponRepo.GetByIDForUpdate(couponID)
		if err != nil {
			return err
		}
		if coupon == nil {
			return ErrCouponNotFound
		}
		now := time.Now()
		if coupon.Status != constants.CouponStatusActive {
			return ErrCouponInactive
		}
		if coupon.StartTime != nil && now.Before(*coupon.StartTime) {
			return ErrCouponOutOfWindow
		}
		if coupon.EndTime != nil && now.After(*coupon.EndTime) {
			return ErrCouponOutOfWindow
		}
		if coupon.TotalQuantity > 0 && coupon.ReceivedQuantity >= coupon.TotalQuantity {
			return ErrCouponOutOfStock
		}
		held, err := couponRepo.CountUnusedByUserAndCoupon(userID, couponID, now)
		if err != nil {
			return err
		}
		if held > 0 {
			return ErrCouponAlreadyHeld
		}

		coupon.ReceivedQuantity++
		if err := couponRepo.Update(coupon); err != nil {
			return err
		}

		validDays := coupon.ValidDays
		if validDays <= 0 {
			validDays = 30
		}
		record := &models.UserCoupon{
			UserID:          userID,
			CouponID:        coupon.ID,
			Name:            coupon.Name,
			Type:            coupon.Type,
			DiscountValue:   coupon.DiscountValue,
			ThresholdAmount: coupon.ThresholdAmount,
			Status:          constants.UserCouponStatusUnused,
			ExpireAt:        now.AddDate(0, 0, validDays),
		}
		if err := couponRepo.CreateUserCoupon(record); err != nil {
			return err
		}
		userCoupon = record
		return nil
	})
	if err != nil {
		log.Warnw("coupon_receive_rejected", "error", err)
		return nil, err
	}

	s.enqueueExpireAsync(userCoupon, log)
	log.Infow("coupon_received",
		"user_coupon_id", userCoupon.ID,
		"expire_at", userCoupon.ExpireAt,
	)
	return userCoupon, nil
}

// DiscountFor 按持券快照条款计算订单可减金额。
// 百分比券按折扣比例，固定券按面额，满减券要求达到门槛。
func DiscountFor(userCoupon *models.UserCoupon, orderAmount decimal.Decimal) (decimal.Decimal, error) {
	if userCoupon == nil {
		return decimal.Zero, ErrCouponNotFound
	}
	var discount decimal.Decimal
	switch userCoupon.Type {
	case constants.CouponTypePercentage:
		rate := userCoupon.DiscountValue.Decimal.Div(decimal.NewFromInt(100))
		discount = orderAmount.Mul(rate).Round(2)
	case constants.CouponTypeFixed:
		discount = userCoupon.DiscountValue.Decimal
	case constants.CouponTypeThreshold:
		if orderAmount.LessThan(userCoupon.ThresholdAmount.Decimal) {
			return decimal.Zero, ErrCouponThresholdNotMet
		}
		discount = userCoupon.DiscountValue.Decimal
	default:
		return decimal.Zero, ErrCouponNotUsable
	}
	if discount.GreaterThan(orderAmount) {
		discount = orderAmount
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount.Round(2), nil
}

// redeemTx 在下单事务内核销持券：仅允许未使用且未过期的券被标记一次。
func (s *CouponService) redeemTx(tx *gorm.DB, userID, userCouponID, orderID uint, now time.Time) (*models.UserCoupon, error) {
	couponRepo := s.couponRepo.WithTx(tx)

	userCoupon, err := couponRepo.GetUserCouponByIDForUpdate(userCouponID)
	if err != nil {
		return nil, err
	}
	if userCoupon == nil || userCoupon.UserID != userID {
		return nil, ErrCouponNotFound
	}
	if userCoupon.Status != constants.UserCouponStatusUnused {
		return nil, ErrCouponNotUsable
	}
	if now.After(userCoupon.ExpireAt) {
		return nil, ErrCouponNotUsable
	}
	userCoupon.Status = constants.UserCouponStatusUsed
	userCoupon.OrderID = &orderID
	usedAt := now
	userCoupon.UsedAt = &usedAt
	if err := couponRepo.UpdateUserCoupon(userCoupon); err != nil {
		return nil, err
	}
	return userCoupon, nil
}

// issueFromTemplateTx 按模板在事务内直接发券（抽奖兑奖路径），不占领取窗口与限量校验之外的条件。
func (s *CouponService) issueFromTemplateTx(tx *gorm.DB, userID, couponID uint, now time.Time) (*models.UserCoupon, error) {
	couponRepo := s.couponRepo.WithTx(tx)

	coupon, err := couponRepo.GetByIDForUpdate(couponID)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	if coupon.Status != constants.CouponStatusActive {
		return nil, ErrCouponInactive
	}
	coupon.ReceivedQuantity++
	if err := couponRepo.Update(coupon); err != nil {
		return nil, err
	}
	validDays := coupon.ValidDays
	if validDays <= 0 {
		validDays = 30
	}
	record := &models.UserCoupon{
		UserID:          userID,
		CouponID:        coupon.ID,
		Name:            coupon.Name,
		Type:            coupon.Type,
		DiscountValue:   coupon.DiscountValue,
		ThresholdAmount: coupon.ThresholdAmount,
		Status:          constants.UserCouponStatusUnused,
		ExpireAt:        now.AddDate(0, 0, validDays),
	}
	if err := couponRepo.CreateUserCoupon(record); err != nil {
		return nil, err
	}
	return record, nil
}

// ListReceivable 前台可领取的优惠券
func (s *CouponService) ListReceivable() ([]models.Coupon, error) {
	return s.couponRepo.ListReceivable(time.Now())
}

// ListMine 用户持券列表
func (s *CouponService) ListMine(filter repository.UserCouponListFilter) ([]models.UserCoupon, int64, error) {
	return s.couponRepo.ListUserCoupons(filter)
}

// CountAvailable 用户当前可用券数量
func (s *CouponService) CountAvailable(userID uint) (int64, error) {
	return s.couponRepo.CountAvailableByUser(userID, time.Now())
}

// GetUserCoupon 查询用户自己的持券
func (s *CouponService) GetUserCoupon(userID, userCouponID uint) (*models.UserCoupon, error) {
	userCoupon, err := s.couponRepo.GetUserCouponByID(userCouponID)
	if err != nil {
		return nil, err
	}
	if userCoupon == nil || userCoupon.UserID != userID {
		return nil, ErrCouponNotFound
	}
	return userCoupon, nil
}

// ExpireUserCoupon 将到期持券置为过期（异步任务触发）
func (s *CouponService) ExpireUserCoupon(userCouponID uint) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		couponRepo := s.couponRepo.WithTx(tx)
		userCoupon, err := couponRepo.GetUserCouponByIDForUpdate(userCouponID)
		if err != nil {
			return err
		}
		if userCoupon == nil {
			return nil
		}
		if userCoupon.Status != constants.UserCouponStatusUnused {
			return nil
		}
		if time.Now().Before(userCoupon.ExpireAt) {
			return nil
		}
		userCoupon.Status = constants.UserCouponStatusExpired
		return couponRepo.UpdateUserCoupon(userCoupon)
	})
}

// ExpireOverdue 批量兜底过期（定时巡检）
func (s *CouponService) ExpireOverdue() (int64, error) {
	return s.couponRepo.ExpireOverdue(time.Now())
}

func (s *CouponService) enqueueExpireAsync(userCoupon *models.UserCoupon, log *zap.SugaredLogger) {
	if userCoupon == nil || s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	err := s.queueClient.EnqueueUserCouponExpire(queue.UserCouponExpirePayload{UserCouponID: userCoupon.ID}, userCoupon.ExpireAt)
	if err != nil {
		log.Warnw("coupon_enqueue_expire_failed", "user_coupon_id", userCoupon.ID, "error", err)
	}
}
