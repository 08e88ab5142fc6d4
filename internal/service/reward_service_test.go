package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/labcheck-cloud/internal/config"
	"github.com/labcheck-cloud/internal/constants"
	"github.com/labcheck-cloud/internal/models"
	"github.com/labcheck-cloud/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupRewardServiceTest(t *testing.T) (*RewardService, *LotteryService, *PointsService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:reward_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.OrderStatusHistory{},
		&models.PointsRecord{},
		&models.Coupon{},
		&models.UserCoupon{},
		&models.LotteryPrize{},
		&models.LotteryChance{},
		&models.LotteryRecord{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	lotteryRepo := repository.NewLotteryRepository(db)
	pointsSvc := NewPointsService(pointsRepo, userRepo)
	couponSvc := NewCouponService(couponRepo, nil)
	lotterySvc := NewLotteryService(lotteryRepo, userRepo, pointsSvc, couponSvc, &config.LotteryConfig{ClaimExpireDays: 7}, nil)
	cfg := &config.RewardConfig{
		PointsPerYuan:   1,
		ChancesPerOrder: 1,
		ChanceMinOrder:  100,
	}
	return NewRewardService(orderRepo, pointsRepo, pointsSvc, lotterySvc, cfg), lotterySvc, pointsSvc, db
}

func createPaidOrder(t *testing.T, db *gorm.DB, userID uint, paidFee string) *models.Order {
	t.Helper()
	fee, err := decimal.NewFromString(paidFee)
	if err != nil {
		t.Fatalf("parse paid fee failed: %v", err)
	}
	now := time.Now()
	order := &models.Order{
		OrderNo: fmt.Sprintf("LC%d", time.Now().UnixNano()),
		UserID:  userID,
		Title:   "检测服务",
		ItemFee: models.NewMoneyFromDecimal(fee),
		PaidFee: models.NewMoneyFromDecimal(fee),
		Status:  constants.OrderStatusConfirmed,
		PaidAt:  &now,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func TestIssueOrderRewardsCreditsPointsAndChance(t *testing.T) {
	svc, lotterySvc, pointsSvc, db := setupRewardServiceTest(t)
	user := createLotteryTestUser(t, db)
	order := createPaidOrder(t, db, user.ID, "312.50")

	if err := svc.IssueOrderRewards(order.ID); err != nil {
		t.Fatalf("issue rewards failed: %v", err)
	}

	summary, err := pointsSvc.Summary(user.ID)
	if err != nil {
		t.Fatalf("points summary failed: %v", err)
	}
	if summary.Balance != 312 {
		t.Fatalf("expected 312 points, got %d", summary.Balance)
	}

	chances, err := lotterySvc.AvailableChances(user.ID)
	if err != nil {
		t.Fatalf("available chances failed: %v", err)
	}
	if chances != 1 {
		t.Fatalf("expected 1 chance, got %d", chances)
	}
}

func TestIssueOrderRewardsIdempotent(t *testing.T) {
	svc, lotterySvc, pointsSvc, db := setupRewardServiceTest(t)
	user := createLotteryTestUser(t, db)
	order := createPaidOrder(t, db, user.ID, "200.00")

	if err := svc.IssueOrderRewards(order.ID); err != nil {
		t.Fatalf("first issue failed: %v", err)
	}
	if err := svc.IssueOrderRewards(order.ID); err != nil {
		t.Fatalf("second issue failed: %v", err)
	}

	summary, err := pointsSvc.Summary(user.ID)
	if err != nil {
		t.Fatalf("points summary failed: %v", err)
	}
	if summary.Balance != 200 {
		t.Fatalf("expected 200 points after replay, got %d", summary.Balance)
	}

	chances, err := lotterySvc.AvailableChances(user.ID)
	if err != nil {
		t.Fatalf("available chances failed: %v", err)
	}
	if chances != 1 {
		t.Fatalf("expected 1 chance after replay, got %d", chances)
	}

	var records int64
	if err := db.Model(&models.PointsRecord{}).Where("user_id = ?", user.ID).Count(&records).Error; err != nil {
		t.Fatalf("count points records failed: %v", err)
	}
	if records != 1 {
		t.Fatalf("expected 1 points record, got %d", records)
	}
}

func TestIssueOrderRewardsSkipsSmallOrderChance(t *testing.T) {
	svc, lotterySvc, pointsSvc, db := setupRewardServiceTest(t)
	user := createLotteryTestUser(t, db)
	order := createPaidOrder(t, db, user.ID, "99.99")

	if err := svc.IssueOrderRewards(order.ID); err != nil {
		t.Fatalf("issue rewards failed: %v", err)
	}

	summary, err := pointsSvc.Summary(user.ID)
	if err != nil {
		t.Fatalf("points summary failed: %v", err)
	}
	if summary.Balance != 99 {
		t.Fatalf("expected 99 points, got %d", summary.Balance)
	}

	chances, err := lotterySvc.AvailableChances(user.ID)
	if err != nil {
		t.Fatalf("available chances failed: %v", err)
	}
	if chances != 0 {
		t.Fatalf("expected no chance for order below threshold, got %d", chances)
	}
}

func TestIssueOrderRewardsSkipsUnpaidOrder(t *testing.T) {
	svc, _, pointsSvc, db := setupRewardServiceTest(t)
	user := createLotteryTestUser(t, db)
	order := &models.Order{
		OrderNo: fmt.Sprintf("LC%d", time.Now().UnixNano()),
		UserID:  user.ID,
		Title:   "检测服务",
		ItemFee: models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
		PaidFee: models.ZeroMoney(),
		Status:  constants.OrderStatusPendingPayment,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if err := svc.IssueOrderRewards(order.ID); err != nil {
		t.Fatalf("issue rewards failed: %v", err)
	}

	summary, err := pointsSvc.Summary(user.ID)
	if err != nil {
		t.Fatalf("points summary failed: %v", err)
	}
	if summary.Balance != 0 {
		t.Fatalf("expected no points for unpaid order, got %d", summary.Balance)
	}
}
