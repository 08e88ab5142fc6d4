package repository

import (
	"errors"
	"time"

	"github.com/labcheck-cloud/internal/constants"
	"github.com/labcheck-cloud/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LotteryRepository 抽奖数据访问接口（奖品、机会、记录）
type LotteryRepository interface {
	ListActivePrizes() ([]models.LotteryPrize, error)
	GetPrizeByID(id uint) (*models.LotteryPrize, error)
	GetPrizeByIDForUpdate(id uint) (*models.LotteryPrize, error)
	GetEmptyPrize() (*models.LotteryPrize, error)
	UpdatePrize(prize *models.LotteryPrize) error
	CountPrizeIssuedSince(prizeID uint, since time.Time) (int64, error)
	CreateChance(chance *models.LotteryChance) error
	GetAvailableChanceForUpdate(userID uint, now time.Time) (*models.LotteryChance, error)
	CountAvailableChances(userID uint, now time.Time) (int64, error)
	UpdateChance(chance *models.LotteryChance) error
	CreateRecord(record *models.LotteryRecord) error
	GetRecordByIDAndUser(id uint, userID uint) (*models.LotteryRecord, error)
	GetRecordByIDForUpdate(id uint) (*models.LotteryRecord, error)
	UpdateRecord(record *models.LotteryRecord) error
	ListRecords(filter LotteryRecordListFilter) ([]models.LotteryRecord, int64, error)
	ListRecentWins(limit int) ([]models.LotteryRecord, error)
	CountDrawsSince(userID uint, since time.Time) (int64, error)
	WithTx(tx *gorm.DB) *GormLotteryRepository
}

// GormLotteryRepository GORM 抽奖仓储实现
type GormLotteryRepository struct {
	db *gorm.DB
}

// NewLotteryRepository 创建抽奖仓储
func NewLotteryRepository(db *gorm.DB) *GormLotteryRepository {
	return &GormLotteryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLotteryRepository) WithTx(tx *gorm.DB) *GormLotteryRepository {
	if tx == nil {
		return r
	}
	return &GormLotteryRepository{db: tx}
}

// ListActivePrizes 按配置顺序查询启用的奖品
func (r *GormLotteryRepository) ListActivePrizes() ([]models.LotteryPrize, error) {
	var prizes []models.LotteryPrize
	if err := r.db.Where("is_active = ?", true).
		Order("sort_order asc, id asc").
		Find(&prizes).Error; err != nil {
		return nil, err
	}
	return prizes, nil
}

// GetPrizeByID 按ID获取奖品
func (r *GormLotteryRepository) GetPrizeByID(id uint) (*models.LotteryPrize, error) {
	if id == 0 {
		return nil, nil
	}
	var prize models.LotteryPrize
	if err := r.db.First(&prize, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prize, nil
}

// GetPrizeByIDForUpdate 按ID加锁获取奖品（发放计数路径）
func (r *GormLotteryRepository) GetPrizeByIDForUpdate(id uint) (*models.LotteryPrize, error) {
	if id == 0 {
		return nil, nil
	}
	var prize models.LotteryPrize
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&prize, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prize, nil
}

// GetEmptyPrize 获取启用的空奖（谢谢参与）
func (r *GormLotteryRepository) GetEmptyPrize() (*models.LotteryPrize, error) {
	var prize models.LotteryPrize
	if err := r.db.Where("is_active = ? AND type = ?", true, constants.PrizeTypeEmpty).
		Order("sort_order asc, id asc").
		First(&prize).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prize, nil
}

// UpdatePrize 更新奖品
func (r *GormLotteryRepository) UpdatePrize(prize *models.LotteryPrize) error {
	return r.db.Save(prize).Error
}

// CountPrizeIssuedSince 统计某奖品自指定时间起的发放数量（每日上限用）
func (r *GormLotteryRepository) CountPrizeIssuedSince(prizeID uint, since time.Time) (int64, error) {
	var count int64
	if err := r.db.Model(&models.LotteryRecord{}).
		Where("prize_id = ? AND created_at >= ?", prizeID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CreateChance 创建抽奖机会
func (r *GormLotteryRepository) CreateChance(chance *models.LotteryChance) error {
	return r.db.Create(chance).Error
}

// GetAvailableChanceForUpdate 加锁取一张未使用且未过期的抽奖机会
func (r *GormLotteryRepository) GetAvailableChanceForUpdate(userID uint, now time.Time) (*models.LotteryChance, error) {
	if userID == 0 {
		return nil, nil
	}
	var chance models.LotteryChance
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND is_used = ?", userID, false).
		Where("expire_at IS NULL OR expire_at > ?", now).
		Order("id asc").
		First(&chance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &chance, nil
}

// CountAvailableChances 统计用户可用抽奖机会数
func (r *GormLotteryRepository) CountAvailableChances(userID uint, now time.Time) (int64, error) {
	var count int64
	if err := r.db.Model(&models.LotteryChance{}).
		Where("user_id = ? AND is_used = ?", userID, false).
		Where("expire_at IS NULL OR expire_at > ?", now).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateChance 更新抽奖机会
func (r *GormLotteryRepository) UpdateChance(chance *models.LotteryChance) error {
	return r.db.Save(chance).Error
}

// CreateRecord 创建抽奖结果
func (r *GormLotteryRepository) CreateRecord(record *models.LotteryRecord) error {
	return r.db.Create(record).Error
}

// GetRecordByIDAndUser 按ID与用户获取抽奖结果
func (r *GormLotteryRepository) GetRecordByIDAndUser(id uint, userID uint) (*models.LotteryRecord, error) {
	if id == 0 || userID == 0 {
		return nil, nil
	}
	var record models.LotteryRecord
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetRecordByIDForUpdate 按ID加锁获取抽奖结果（领奖路径）
func (r *GormLotteryRepository) GetRecordByIDForUpdate(id uint) (*models.LotteryRecord, error) {
	if id == 0 {
		return nil, nil
	}
	var record models.LotteryRecord
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// UpdateRecord 更新抽奖结果
func (r *GormLotteryRepository) UpdateRecord(record *models.LotteryRecord) error {
	return r.db.Save(record).Error
}

// ListRecords 分页查询抽奖记录
func (r *GormLotteryRepository) ListRecords(filter LotteryRecordListFilter) ([]models.LotteryRecord, int64, error) {
	query := r.db.Model(&models.LotteryRecord{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var records []models.LotteryRecord
	if err := query.Order("id desc").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListRecentWins 查询最近的非空奖中奖记录（公示用）
func (r *GormLotteryRepository) ListRecentWins(limit int) ([]models.LotteryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []models.LotteryRecord
	if err := r.db.Where("prize_type <> ?", constants.PrizeTypeEmpty).
		Order("id desc").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountDrawsSince 统计用户自指定时间起的抽奖次数
func (r *GormLotteryRepository) CountDrawsSince(userID uint, since time.Time) (int64, error) {
	var count int64
	if err := r.db.Model(&models.LotteryRecord{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
