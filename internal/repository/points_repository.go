package repository

import (
	"errors"

	"github.com/labcheck-cloud/internal/models"

	"gorm.io/gorm"
)

// PointsRepository 积分流水数据访问接口
// 流水仅追加，余额等于全部流水之和。
type PointsRepository interface {
	Create(record *models.PointsRecord) error
	GetByReference(reference string) (*models.PointsRecord, error)
	SumByUser(userID uint) (int64, error)
	SumEarnedByUser(userID uint) (int64, error)
	SumSpentByUser(userID uint) (int64, error)
	List(filter PointsListFilter) ([]models.PointsRecord, int64, error)
	WithTx(tx *gorm.DB) *GormPointsRepository
}

// GormPointsRepository GORM 积分仓储实现
type GormPointsRepository struct {
	db *gorm.DB
}

// NewPointsRepository 创建积分仓储
func NewPointsRepository(db *gorm.DB) *GormPointsRepository {
	return &GormPointsRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPointsRepository) WithTx(tx *gorm.DB) *GormPointsRepository {
	if tx == nil {
		return r
	}
	return &GormPointsRepository{db: tx}
}

// Create 追加积分流水
func (r *GormPointsRepository) Create(record *models.PointsRecord) error {
	return r.db.Create(record).Error
}

// GetByReference 按幂等引用获取流水
func (r *GormPointsRepository) GetByReference(reference string) (*models.PointsRecord, error) {
	if reference == "" {
		return nil, nil
	}
	var record models.PointsRecord
	if err := r.db.Where("reference = ?", reference).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// SumByUser 计算用户积分余额（全部流水之和）
func (r *GormPointsRepository) SumByUser(userID uint) (int64, error) {
	return r.sumByUser(userID, "")
}

// SumEarnedByUser 计算用户累计获得积分
func (r *GormPointsRepository) SumEarnedByUser(userID uint) (int64, error) {
	return r.sumByUser(userID, "points > 0")
}

// SumSpentByUser 计算用户累计消耗积分（返回正数）
func (r *GormPointsRepository) SumSpentByUser(userID uint) (int64, error) {
	spent, err := r.sumByUser(userID, "points < 0")
	if err != nil {
		return 0, err
	}
	return -spent, nil
}

func (r *GormPointsRepository) sumByUser(userID uint, cond string) (int64, error) {
	if userID == 0 {
		return 0, nil
	}
	query := r.db.Model(&models.PointsRecord{}).Where("user_id = ?", userID)
	if cond != "" {
		query = query.Where(cond)
	}
	var sum *int64
	if err := query.Select("SUM(points)").Scan(&sum).Error; err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

// List 分页查询积分流水
func (r *GormPointsRepository) List(filter PointsListFilter) ([]models.PointsRecord, int64, error) {
	query := r.db.Model(&models.PointsRecord{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var records []models.PointsRecord
	if err := query.Order("id desc").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
