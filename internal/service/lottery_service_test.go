package service

import (
	"errors"
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

func setupLotteryServiceTest(t *testing.T) (*LotteryService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:lottery_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
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
	lotteryRepo := repository.NewLotteryRepository(db)
	userRepo := repository.NewUserRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	pointsSvc := NewPointsService(pointsRepo, userRepo)
	couponSvc := NewCouponService(couponRepo, nil)
	cfg := &config.LotteryConfig{ClaimExpireDays: 7}
	return NewLotteryService(lotteryRepo, userRepo, pointsSvc, couponSvc, cfg, nil), db
}

func createLotteryTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Phone:        fmt.Sprintf("139%08d", time.Now().UnixNano()%100000000),
		PasswordHash: "hash",
		Status:       "active",
		Balance:      models.ZeroMoney(),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func grantChance(t *testing.T, db *gorm.DB, userID uint) *models.LotteryChance {
	t.Helper()
	chance := &models.LotteryChance{
		UserID: userID,
		Source: constants.ChanceSourceAdmin,
	}
	if err := db.Create(chance).Error; err != nil {
		t.Fatalf("create chance failed: %v", err)
	}
	return chance
}

func createPrize(t *testing.T, db *gorm.DB, prize models.LotteryPrize) *models.LotteryPrize {
	t.Helper()
	prize.IsActive = true
	if err := db.Create(&prize).Error; err != nil {
		t.Fatalf("create prize failed: %v", err)
	}
	return &prize
}

func TestSelectPrizeCoversFullRollRange(t *testing.T) {
	prizes := []models.LotteryPrize{
		{ID: 1, Name: "积分", Probability: 3000, SortOrder: 1},
		{ID: 2, Name: "现金", Probability: 1500, SortOrder: 2},
		{ID: 3, Name: "优惠券", Probability: 800, SortOrder: 3},
		{ID: 4, Name: "礼包", Probability: 200, SortOrder: 4},
		{ID: 5, Name: "谢谢参与", Probability: 4500, SortOrder: 5},
	}
	hits := make(map[uint]int)
	for roll := 1; roll <= lotteryRollMax; roll++ {
		selected := selectPrize(prizes, roll)
		if selected == nil {
			t.Fatalf("roll %d selected nothing", roll)
		}
		hits[selected.ID]++
	}
	for _, p := range prizes {
		if hits[p.ID] != p.Probability {
			t.Errorf("prize %d: expected %d hits, got %d", p.ID, p.Probability, hits[p.ID])
		}
	}
}

func TestSelectPrizeFallbackWhenWeightsShort(t *testing.T) {
	prizes := []models.LotteryPrize{
		{ID: 1, Probability: 100},
		{ID: 2, Probability: 200},
	}
	selected := selectPrize(prizes, lotteryRollMax)
	if selected == nil || selected.ID != 2 {
		t.Fatalf("expected fallback to last prize, got %+v", selected)
	}
}

func TestDrawConsumesChance(t *testing.T) {
	svc, db := setupLotteryServiceTest(t)
	user := createLotteryTestUser(t, db)
	chance := grantChance(t, db, user.ID)
	createPrize(t, db, models.LotteryPrize{
		Name:        "谢谢参与",
		Type:        constants.PrizeTypeEmpty,
		Probability: 10000,
	})

	record, err := svc.Draw(user.ID)
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if record.ChanceID != chance.ID {
		t.Fatalf("expected chance %d consumed, got %d", chance.ID, record.ChanceID)
	}
	if record.Status != constants.LotteryRecordStatusPending {
		t.Fatalf("expected pending record, got %s", record.Status)
	}

	var gotChance models.LotteryChance
	if err := db.First(&gotChance, chance.ID).Error; err != nil {
		t.Fatalf("load chance failed: %v", err)
	}
	if !gotChance.IsUsed || gotChance.UsedAt == nil {
		t.Fatalf("chance not marked used")
	}

	if _, err := svc.Draw(user.ID); !errors.Is(err, ErrLotteryNoChances) {
		t.Fatalf("expected no chances on second draw, got %v", err)
	}
}

func TestDrawSubstitutesEmptyPrizeWhenOverLimit(t *testing.T) {
	svc, db := setupLotteryServiceTest(t)
	user := createLotteryTestUser(t, db)
	grantChance(t, db, user.ID)

	exhausted := createPrize(t, db, models.LotteryPrize{
		Name:        "现金红包",
		Type:        constants.PrizeTypeCash,
		Value:       models.NewMoneyFromDecimal(decimal.RequireFromString("1.88")),
		Probability: 9000,
		TotalLimit:  1,
		IssuedCount: 1,
		SortOrder:   1,
	})
	empty := createPrize(t, db, models.LotteryPrize{
		Name:        "谢谢参与",
		Type:        constants.PrizeTypeEmpty,
		Probability: 1000,
		SortOrder:   2,
	})
	svc.roll = func() int { return 1 }

	record, err := svc.Draw(user.ID)
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if record.PrizeID != empty.ID || record.PrizeType != constants.PrizeTypeEmpty {
		t.Fatalf("expected empty prize substitution, got prize %d type %s", record.PrizeID, record.PrizeType)
	}

	var gotExhausted models.LotteryPrize
	if err := db.First(&gotExhausted, exhausted.ID).Error; err != nil {
		t.Fatalf("load prize failed: %v", err)
	}
	if gotExhausted.IssuedCount != 1 {
		t.Fatalf("exhausted prize over-issued: %d", gotExhausted.IssuedCount)
	}
}

func TestDrawOverLimitWithoutEmptyPrizeRecordsNoWin(t *testing.T) {
	svc, db := setupLotteryServiceTest(t)
	user := createLotteryTestUser(t, db)
	grantChance(t, db, user.ID)

	exhausted := createPrize(t, db, models.LotteryPrize{
		Name:        "现金红包",
		Type:        constants.PrizeTypeCash,
		Value:       models.NewMoneyFromDecimal(decimal.RequireFromString("1.88")),
		Probability: 10000,
		TotalLimit:  1,
		IssuedCount: 1,
		SortOrder:   1,
	})
	svc.roll = func() int { return 1 }

	record, err := svc.Draw(user.ID)
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if record.PrizeType != constants.PrizeTypeEmpty {
		t.Fatalf("expected no-win record, got type %s", record.PrizeType)
	}
	if record.PrizeID != 0 {
		t.Fatalf("no-win record must not reference a prize, got %d", record.PrizeID)
	}

	var gotExhausted models.LotteryPrize
	if err := db.First(&gotExhausted, exhausted.ID).Error; err != nil {
		t.Fatalf("load prize failed: %v", err)
	}
	if gotExhausted.IssuedCount != 1 {
		t.Fatalf("exhausted prize over-issued: %d", gotExhausted.IssuedCount)
	}

	var issuedToday int64
	if err := db.Model(&models.LotteryRecord{}).Where("prize_id = ?", exhausted.ID).Count(&issuedToday).Error; err != nil {
		t.Fatalf("count records failed: %v", err)
	}
	if issuedToday != 0 {
		t.Fatalf("no-win record inflates issuance count for the capped prize: %d", issuedToday)
	}
}

func TestDrawDailyLimitCountsToday(t *testing.T) {
	svc, db := setupLotteryServiceTest(t)
	user := createLotteryTestUser(t, db)
	grantChance(t, db, user.ID)

	limited := createPrize(t, db, models.LotteryPrize{
		Name:        "礼包",
		Type:        constants.PrizeTypeGift,
		Probability: 9000,
		DailyLimit:  1,
		SortOrder:   1,
	})
	empty := createPrize(t, db, models.LotteryPrize{
		Name:        "谢谢参与",
		Type:        constants.PrizeTypeEmpty,
		Probability: 1000,
		SortOrder:   2,
	})
	// 今天已发出一份
	seeded := &models.LotteryRecord{
		UserID:    user.ID,
		ChanceID:  999,
		PrizeID:   limited.ID,
		PrizeName: limited.Name,
		PrizeType: limited.Type,
		Status:    constants.LotteryRecordStatusPending,
		ExpireAt:  time.Now().AddDate(0, 0, 7),
	}
	if err := db.Create(seeded).Error; err != nil {
		t.Fatalf("seed record failed: %v", err)
	}
	svc.roll = func() int { return 1 }

	record, err := svc.Draw(user.ID)
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if record.PrizeID != empty.ID {
		t.Fatalf("expected daily limited prize substituted, got %d", record.PrizeID)
	}
}

func TestClaimPointsPrize(t *testing.T) {
	svc, db := setupLotteryServiceTest(t)
	user := createLotteryTestUser(t, db)
	chance := grantChance(t, db, user.ID)
	createPrize(t, db, models.LotteryPrize{
		Name:        "88 积分",
		Type:        constants.PrizeTypePoints,
		Value:       models.NewMoneyFromDecimal(decimal.NewFromInt(88)),
		Probability: 10000,
	})
	svc.roll = func() int { return 1 }
	_ = chance

	record, err := svc.Draw(user.ID)
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	claimed, err := svc.Claim(user.ID, record.ID)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if claimed.Status != constants.LotteryRecordStatusClaimed || claimed.ClaimedAt == nil {
		t.Fatalf("record not marked claimed: %+v", claimed)
	}

	balance, err := svc.pointsSvc.Balance(user.ID)
	if err != nil {
		t.Fatalf("points balance failed: %v", err)
	}
	if balance != 88 {
		t.Fatalf("expected 88 points credited, got %d", balance)
	}

	if _, err := svc.Claim(user.ID, record.ID); !errors.Is(err, ErrLotteryRecordClaimed) {
		t.Fatalf("expected already claimed, got %v", err)
	}
	// 重复领取不会重复加积分
	balance, _ = svc.pointsSvc.Balance(user.ID)
	if balance != 88 {
		t.Fatalf("points duplicated on double claim: %d", balance)
	}
}

func TestClaimCashPrizeAddsBalance(t *testing.T) {
	svc, db := setupLotteryServiceTest(t)
	user := createLotteryTestUser(t, db)
	grantChance(t, db, user.ID)
	createPrize(t, db, models.LotteryPrize{
		Name:        "现金红包",
		Type:        constants.PrizeTypeCash,
		Value:       models.NewMoneyFromDecimal(decimal.RequireFromString("1.88")),
		Probability: 10000,
	})
	svc.roll = func() int { return 1 }

	record, err := svc.Draw(user.ID)
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if _, err := svc.Claim(user.ID, record.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	var gotUser models.User
	if err := db.First(&gotUser, user.ID).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if !gotUser.Balance.Decimal.Equal(decimal.RequireFromString("1.88")) {
		t.Fatalf("expected balance 1.88, got %s", gotUser.Balance.Decimal)
	}
}

func TestClaimExpiredRecordRejected(t *testing.T) {
	svc, db := setupLotteryServiceTest(t)
	user := createLotteryTestUser(t, db)
	record := &models.LotteryRecord{
		UserID:    user.ID,
		ChanceID:  1,
		PrizeID:   1,
		PrizeName: "现金红包",
		PrizeType: constants.PrizeTypeCash,
		Status:    constants.LotteryRecordStatusPending,
		ExpireAt:  time.Now().Add(-time.Hour),
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("create record failed: %v", err)
	}

	if _, err := svc.Claim(user.ID, record.ID); !errors.Is(err, ErrLotteryRecordExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	var got models.LotteryRecord
	if err := db.First(&got, record.ID).Error; err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if got.Status != constants.LotteryRecordStatusExpired {
		t.Fatalf("expected record marked expired, got %s", got.Status)
	}
}

func TestClaimOtherUsersRecordRejected(t *testing.T) {
	svc, db := setupLotteryServiceTest(t)
	owner := createLotteryTestUser(t, db)
	stranger := createLotteryTestUser(t, db)
	record := &models.LotteryRecord{
		UserID:    owner.ID,
		ChanceID:  1,
		PrizeID:   1,
		PrizeName: "谢谢参与",
		PrizeType: constants.PrizeTypeEmpty,
		Status:    constants.LotteryRecordStatusPending,
		ExpireAt:  time.Now().AddDate(0, 0, 7),
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("create record failed: %v", err)
	}
	if _, err := svc.Claim(stranger.ID, record.ID); !errors.Is(err, ErrLotteryRecordNotFound) {
		t.Fatalf("expected not found for stranger, got %v", err)
	}
}
