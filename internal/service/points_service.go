package service

import (
	"strings"

	"github.com/labcheck-cloud/internal/logger"
	"github.com/labcheck-cloud/internal/models"
	"github.com/labcheck-cloud/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PointsService 积分服务。积分余额不落快照字段，始终由流水聚合得出。
type PointsService struct {
	pointsRepo *repository.GormPointsRepository
	userRepo   *repository.GormUserRepository
}

// NewPointsService 创建积分服务
func NewPointsService(pointsRepo *repository.GormPointsRepository, userRepo *repository.GormUserRepository) *PointsService {
	return &PointsService{
		pointsRepo: pointsRepo,
		userRepo:   userRepo,
	}
}

func pointsLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// PointsSummary 积分汇总
type PointsSummary struct {
	Balance int64 `json:"balance"`
	Earned  int64 `json:"earned"`
	Spent   int64 `json:"spent"`
}

// Balance 用户当前积分余额
func (s *PointsService) Balance(userID uint) (int64, error) {
	return s.pointsRepo.SumByUser(userID)
}

// Summary 用户积分汇总
func (s *PointsService) Summary(userID uint) (*PointsSummary, error) {
	balance, err := s.pointsRepo.SumByUser(userID)
	if err != nil {
		return nil, err
	}
	earned, err := s.pointsRepo.SumEarnedByUser(userID)
	if err != nil {
		return nil, err
	}
	spent, err := s.pointsRepo.SumSpentByUser(userID)
	if err != nil {
		return nil, err
	}
	return &PointsSummary{Balance: balance, Earned: earned, Spent: spent}, nil
}

// List 用户积分流水
func (s *PointsService) List(filter repository.PointsListFilter) ([]models.PointsRecord, int64, error) {
	return s.pointsRepo.List(filter)
}

// Credit 发放积分。reference 为业务侧唯一凭据，重复发放会被吞掉。
func (s *PointsService) Credit(userID uint, points int64, pointsType string, refID uint, reference string) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		return s.CreditTx(tx, userID, points, pointsType, refID, reference)
	})
}

// CreditTx 在既有事务内发放积分
func (s *PointsService) CreditTx(tx *gorm.DB, userID uint, points int64, pointsType string, refID uint, reference string) error {
	if userID == 0 || points <= 0 {
		return ErrPointsAmountInvalid
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return ErrPointsAmountInvalid
	}
	pointsRepo := s.pointsRepo.WithTx(tx)

	existing, err := pointsRepo.GetByReference(reference)
	if err != nil {
		return err
	}
	if existing != nil {
		pointsLogger(
			"user_id", userID,
			"reference", reference,
		).Infow("points_credit_idempotent_skip")
		return nil
	}
	record := &models.PointsRecord{
		UserID:    userID,
		Points:    points,
		Type:      pointsType,
		RefID:     refID,
		Reference: reference,
	}
	if err := pointsRepo.Create(record); err != nil {
		// 唯一索引兜底：并发重复发放落到这里。
		pointsLogger(
			"user_id", userID,
			"reference", reference,
			"error", err,
		).Warnw("points_credit_create_failed")
		return ErrPointsRecordConflict
	}
	pointsLogger(
		"user_id", userID,
		"points", points,
		"points_type", pointsType,
		"reference", reference,
	).Infow("points_credited")
	return nil
}

// Debit 扣减积分。对用户行加锁串行化并发扣减，余额不足直接拒绝。
func (s *PointsService) Debit(userID uint, points int64, pointsType string, refID uint, reference string) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		return s.DebitTx(tx, userID, points, pointsType, refID, reference)
	})
}

// DebitTx 在既有事务内扣减积分
func (s *PointsService) DebitTx(tx *gorm.DB, userID uint, points int64, pointsType string, refID uint, reference string) error {
	if userID == 0 || points <= 0 {
		return ErrPointsAmountInvalid
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return ErrPointsAmountInvalid
	}
	userRepo := s.userRepo.WithTx(tx)
	pointsRepo := s.pointsRepo.WithTx(tx)

	user, err := userRepo.GetByIDForUpdate(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	balance, err := pointsRepo.SumByUser(userID)
	if err != nil {
		return err
	}
	if balance < points {
		pointsLogger(
			"user_id", userID,
			"balance", balance,
			"debit_points", points,
		).Warnw("points_debit_insufficient")
		return ErrPointsInsufficient
	}
	record := &models.PointsRecord{
		UserID:    userID,
		Points:    -points,
		Type:      pointsType,
		RefID:     refID,
		Reference: reference,
	}
	if err := pointsRepo.Create(record); err != nil {
		return ErrPointsRecordConflict
	}
	pointsLogger(
		"user_id", userID,
		"points", points,
		"points_type", pointsType,
		"reference", reference,
		"balance_after", balance-points,
	).Infow("points_debited")
	return nil
}
