package repository

import (
	"errors"
	"time"

	"github.com/labcheck-cloud/internal/constants"
	"github.com/labcheck-cloud/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CouponRepository 优惠券数据访问接口（模板与用户持券）
type CouponRepository interface {
	GetByID(id uint) (*models.Coupon, error)
	GetByIDForUpdate(id uint) (*models.Coupon, error)
	Update(coupon *models.Coupon) error
	ListReceivable(now time.Time) ([]models.Coupon, error)
	CreateUserCoupon(userCoupon *models.UserCoupon) error
	GetUserCouponByID(id uint) (*models.UserCoupon, error)
	GetUserCouponByIDForUpdate(id uint) (*models.UserCoupon, error)
	CountUnusedByUserAndCoupon(userID, couponID uint, now time.Time) (int64, error)
	UpdateUserCoupon(userCoupon *models.UserCoupon) error
	ListUserCoupons(filter UserCouponListFilter) ([]models.UserCoupon, int64, error)
	CountAvailableByUser(userID uint, now time.Time) (int64, error)
	ExpireOverdue(now time.Time) (int64, error)
	WithTx(tx *gorm.DB) *GormCouponRepository
}

// GormCouponRepository GORM 优惠券仓储实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券仓储
func NewCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponRepository) WithTx(tx *gorm.DB) *GormCouponRepository {
	if tx == nil {
		return r
	}
	return &GormCouponRepository{db: tx}
}

// GetByID 按ID获取优惠券模板
func (r *GormCouponRepository) GetByID(id uint) (*models.Coupon, error) {
	if id == 0 {
		return nil, nil
	}
	var coupon models.Coupon
	if err := r.db.First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// GetByIDForUpdate 按ID加锁获取优惠券模板（库存递增路径）
func (r *GormCouponRepository) GetByIDForUpdate(id uint) (*models.Coupon, error) {
	if id == 0 {
		return nil, nil
	}
	var coupon models.Coupon
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// Update 更新优惠券模板
func (r *GormCouponRepository) Update(coupon *models.Coupon) error {
	return r.db.Save(coupon).Error
}

// ListReceivable 查询当前可领取的优惠券模板
func (r *GormCouponRepository) ListReceivable(now time.Time) ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := r.db.Where("status = ?", constants.CouponStatusActive).
		Where("start_time IS NULL OR start_time <= ?", now).
		Where("end_time IS NULL OR end_time >= ?", now).
		Order("id desc").
		Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

// CreateUserCoupon 创建用户持券记录
func (r *GormCouponRepository) CreateUserCoupon(userCoupon *models.UserCoupon) error {
	return r.db.Create(userCoupon).Error
}

// GetUserCouponByID 按ID获取用户持券
func (r *GormCouponRepository) GetUserCouponByID(id uint) (*models.UserCoupon, error) {
	if id == 0 {
		return nil, nil
	}
	var userCoupon models.UserCoupon
	if err := r.db.First(&userCoupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &userCoupon, nil
}

// GetUserCouponByIDForUpdate 按ID加锁获取用户持券（核销路径）
func (r *GormCouponRepository) GetUserCouponByIDForUpdate(id uint) (*models.UserCoupon, error) {
	if id == 0 {
		return nil, nil
	}
	var userCoupon models.UserCoupon
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&userCoupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &userCoupon, nil
}

// CountUnusedByUserAndCoupon 统计用户持有的某模板未使用且未过期的券数
func (r *GormCouponRepository) CountUnusedByUserAndCoupon(userID, couponID uint, now time.Time) (int64, error) {
	var count int64
	if err := r.db.Model(&models.UserCoupon{}).
		Where("user_id = ? AND coupon_id = ? AND status = ? AND expire_at > ?",
			userID, couponID, constants.UserCouponStatusUnused, now).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateUserCoupon 更新用户持券
func (r *GormCouponRepository) UpdateUserCoupon(userCoupon *models.UserCoupon) error {
	return r.db.Save(userCoupon).Error
}

// ListUserCoupons 分页查询用户持券
func (r *GormCouponRepository) ListUserCoupons(filter UserCouponListFilter) ([]models.UserCoupon, int64, error) {
	query := r.db.Model(&models.UserCoupon{})
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

	var userCoupons []models.UserCoupon
	if err := query.Order("id desc").Find(&userCoupons).Error; err != nil {
		return nil, 0, err
	}
	return userCoupons, total, nil
}

// CountAvailableByUser 统计用户当前可用券数
func (r *GormCouponRepository) CountAvailableByUser(userID uint, now time.Time) (int64, error) {
	var count int64
	if err := r.db.Model(&models.UserCoupon{}).
		Where("user_id = ? AND status = ? AND expire_at > ?",
			userID, constants.UserCouponStatusUnused, now).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExpireOverdue 批量将过期未用的持券置为 expired
func (r *GormCouponRepository) ExpireOverdue(now time.Time) (int64, error) {
	result := r.db.Model(&models.UserCoupon{}).
		Where("status = ? AND expire_at <= ?", constants.UserCouponStatusUnused, now).
		Update("status", constants.UserCouponStatusExpired)
	return result.RowsAffected, result.Error
}
