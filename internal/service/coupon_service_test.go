package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/labcheck-cloud/internal/constants"
	"github.com/labcheck-cloud/internal/models"
	"github.com/labcheck-cloud/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCouponServiceTest(t *testing.T) (*CouponService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:coupon_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Coupon{},
		&models.UserCoupon{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return NewCouponService(repository.NewCouponRepository(db), nil), db
}

func createCouponTemplate(t *testing.T, db *gorm.DB, coupon models.Coupon) *models.Coupon {
	t.Helper()
	if coupon.Status == "" {
		coupon.Status = constants.CouponStatusActive
	}
	if coupon.ValidDays == 0 {
		coupon.ValidDays = 30
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	return &coupon
}

func TestReceiveCouponSnapshotsTerms(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	coupon := createCouponTemplate(t, db, models.Coupon{
		Name:            "满 300 减 50",
		Type:            constants.CouponTypeThreshold,
		DiscountValue:   models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		ThresholdAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
		TotalQuantity:   10,
		ValidDays:       15,
	})

	userCoupon, err := svc.Receive(1, coupon.ID)
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if userCoupon.Name != coupon.Name || userCoupon.Type != coupon.Type {
		t.Fatalf("terms not snapshotted: %+v", userCoupon)
	}
	if !userCoupon.ThresholdAmount.Decimal.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("threshold not snapshotted: %s", userCoupon.ThresholdAmount.Decimal)
	}

	var gotCoupon models.Coupon
	if err := db.First(&gotCoupon, coupon.ID).Error; err != nil {
		t.Fatalf("load coupon failed: %v", err)
	}
	if gotCoupon.ReceivedQuantity != 1 {
		t.Fatalf("expected received quantity 1, got %d", gotCoupon.ReceivedQuantity)
	}
}

func TestReceiveCouponAlreadyHeld(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	coupon := createCouponTemplate(t, db, models.Coupon{
		Name:          "立减 10 元",
		Type:          constants.CouponTypeFixed,
		DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
	})

	if _, err := svc.Receive(1, coupon.ID); err != nil {
		t.Fatalf("first receive failed: %v", err)
	}
	if _, err := svc.Receive(1, coupon.ID); !errors.Is(err, ErrCouponAlreadyHeld) {
		t.Fatalf("expected already held, got %v", err)
	}
	// 其他用户不受影响
	if _, err := svc.Receive(2, coupon.ID); err != nil {
		t.Fatalf("other user receive failed: %v", err)
	}
}

func TestReceiveCouponOutOfStock(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	coupon := createCouponTemplate(t, db, models.Coupon{
		Name:          "限量券",
		Type:          constants.CouponTypeFixed,
		DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		TotalQuantity: 1,
	})

	if _, err := svc.Receive(1, coupon.ID); err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if _, err := svc.Receive(2, coupon.ID); !errors.Is(err, ErrCouponOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}
}

func TestReceiveCouponOutOfWindow(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	past := time.Now().Add(-48 * time.Hour)
	pastEnd := time.Now().Add(-24 * time.Hour)
	expired := createCouponTemplate(t, db, models.Coupon{
		Name:          "已结束活动券",
		Type:          constants.CouponTypeFixed,
		DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		StartTime:     &past,
		EndTime:       &pastEnd,
	})
	if _, err := svc.Receive(1, expired.ID); !errors.Is(err, ErrCouponOutOfWindow) {
		t.Fatalf("expected out of window, got %v", err)
	}

	future := time.Now().Add(24 * time.Hour)
	notStarted := createCouponTemplate(t, db, models.Coupon{
		Name:          "未开始活动券",
		Type:          constants.CouponTypeFixed,
		DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		StartTime:     &future,
	})
	if _, err := svc.Receive(1, notStarted.ID); !errors.Is(err, ErrCouponOutOfWindow) {
		t.Fatalf("expected out of window for future coupon, got %v", err)
	}
}

func TestDiscountForCouponTypes(t *testing.T) {
	amount := decimal.RequireFromString("200.00")

	percentage := &models.UserCoupon{
		Type:          constants.CouponTypePercentage,
		DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
	}
	got, err := DiscountFor(percentage, amount)
	if err != nil {
		t.Fatalf("percentage discount failed: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected 10.00, got %s", got)
	}

	fixed := &models.UserCoupon{
		Type:          constants.CouponTypeFixed,
		DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(30)),
	}
	got, err = DiscountFor(fixed, amount)
	if err != nil {
		t.Fatalf("fixed discount failed: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected 30, got %s", got)
	}

	// 固定面额超过订单金额时按订单金额封顶
	got, err = DiscountFor(fixed, decimal.RequireFromString("20.00"))
	if err != nil {
		t.Fatalf("capped discount failed: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected cap at 20.00, got %s", got)
	}

	threshold := &models.UserCoupon{
		Type:            constants.CouponTypeThreshold,
		DiscountValue:   models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		ThresholdAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
	}
	if _, err := DiscountFor(threshold, amount); !errors.Is(err, ErrCouponThresholdNotMet) {
		t.Fatalf("expected threshold not met, got %v", err)
	}
	got, err = DiscountFor(threshold, decimal.RequireFromString("300.00"))
	if err != nil {
		t.Fatalf("threshold discount failed: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected 50, got %s", got)
	}
}

func TestExpireUserCoupon(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	userCoupon := &models.UserCoupon{
		UserID:        1,
		CouponID:      1,
		Name:          "过期测试券",
		Type:          constants.CouponTypeFixed,
		DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		Status:        constants.UserCouponStatusUnused,
		ExpireAt:      time.Now().Add(-time.Hour),
	}
	if err := db.Create(userCoupon).Error; err != nil {
		t.Fatalf("create user coupon failed: %v", err)
	}

	if err := svc.ExpireUserCoupon(userCoupon.ID); err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	var got models.UserCoupon
	if err := db.First(&got, userCoupon.ID).Error; err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Status != constants.UserCouponStatusExpired {
		t.Fatalf("expected expired, got %s", got.Status)
	}

	// 未到期的券不会被提前过期
	fresh := &models.UserCoupon{
		UserID:        1,
		CouponID:      2,
		Name:          "未到期券",
		Type:          constants.CouponTypeFixed,
		DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		Status:        constants.UserCouponStatusUnused,
		ExpireAt:      time.Now().Add(time.Hour),
	}
	if err := db.Create(fresh).Error; err != nil {
		t.Fatalf("create fresh coupon failed: %v", err)
	}
	if err := svc.ExpireUserCoupon(fresh.ID); err != nil {
		t.Fatalf("expire fresh failed: %v", err)
	}
	var gotFresh models.UserCoupon
	if err := db.First(&gotFresh, fresh.ID).Error; err != nil {
		t.Fatalf("load fresh failed: %v", err)
	}
	if gotFresh.Status != constants.UserCouponStatusUnused {
		t.Fatalf("fresh coupon expired early: %s", gotFresh.Status)
	}
}
