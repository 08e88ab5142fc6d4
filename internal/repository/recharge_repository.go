package repository

import (
	"errors"

	"github.com/labcheck-cloud/internal/constants"
	"github.com/labcheck-cloud/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RechargeRepository 充值记录数据访问接口
type RechargeRepository interface {
	Create(record *models.RechargeRecord) error
	GetByID(id uint) (*models.RechargeRecord, error)
	GetByIDAndUser(id uint, userID uint) (*models.RechargeRecord, error)
	GetByIDForUpdate(id uint) (*models.RechargeRecord, error)
	GetByRechargeNo(rechargeNo string) (*models.RechargeRecord, error)
	GetByRechargeNoForUpdate(rechargeNo string) (*models.RechargeRecord, error)
	Update(record *models.RechargeRecord) error
	List(filter RechargeListFilter) ([]models.RechargeRecord, int64, error)
	SumSettledByUser(userID uint) (decimal.Decimal, error)
	WithTx(tx *gorm.DB) *GormRechargeRepository
}

// GormRechargeRepository GORM 充值仓储实现
type GormRechargeRepository struct {
	db *gorm.DB
}

// NewRechargeRepository 创建充值仓储
func NewRechargeRepository(db *gorm.DB) *GormRechargeRepository {
	return &GormRechargeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRechargeRepository) WithTx(tx *gorm.DB) *GormRechargeRepository {
	if tx == nil {
		return r
	}
	return &GormRechargeRepository{db: tx}
}

// Create 创建充值记录
func (r *GormRechargeRepository) Create(record *models.RechargeRecord) error {
	return r.db.Create(record).Error
}

// GetByID 按ID获取充值记录
func (r *GormRechargeRepository) GetByID(id uint) (*models.RechargeRecord, error) {
	if id == 0 {
		return nil, nil
	}
	var record models.RechargeRecord
	if err := r.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetByIDAndUser 按ID与用户获取充值记录
func (r *GormRechargeRepository) GetByIDAndUser(id uint, userID uint) (*models.RechargeRecord, error) {
	if id == 0 || userID == 0 {
		return nil, nil
	}
	var record models.RechargeRecord
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetByIDForUpdate 按ID加锁获取充值记录（结算路径）
func (r *GormRechargeRepository) GetByIDForUpdate(id uint) (*models.RechargeRecord, error) {
	if id == 0 {
		return nil, nil
	}
	var record models.RechargeRecord
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetByRechargeNo 按充值单号获取充值记录
func (r *GormRechargeRepository) GetByRechargeNo(rechargeNo string) (*models.RechargeRecord, error) {
	if rechargeNo == "" {
		return nil, nil
	}
	var record models.RechargeRecord
	if err := r.db.Where("recharge_no = ?", rechargeNo).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetByRechargeNoForUpdate 按充值单号加锁获取充值记录（结算路径）
func (r *GormRechargeRepository) GetByRechargeNoForUpdate(rechargeNo string) (*models.RechargeRecord, error) {
	if rechargeNo == "" {
		return nil, nil
	}
	var record models.RechargeRecord
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("recharge_no = ?", rechargeNo).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Update 更新充值记录
func (r *GormRechargeRepository) Update(record *models.RechargeRecord) error {
	return r.db.Save(record).Error
}

// List 分页查询充值记录
func (r *GormRechargeRepository) List(filter RechargeListFilter) ([]models.RechargeRecord, int64, error) {
	query := r.db.Model(&models.RechargeRecord{})
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

	var records []models.RechargeRecord
	if err := query.Order("id desc").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SumSettledByUser 统计用户累计到账充值金额
func (r *GormRechargeRepository) SumSettledByUser(userID uint) (decimal.Decimal, error) {
	if userID == 0 {
		return decimal.Zero, nil
	}
	var sum decimal.NullDecimal
	if err := r.db.Model(&models.RechargeRecord{}).
		Select("SUM(actual_amount)").
		Where("user_id = ? AND status = ?", userID, constants.RechargeStatusSuccess).
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
