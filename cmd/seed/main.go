package main

import (
	"time"

	"github.com/labcheck-cloud/internal/config"
	"github.com/labcheck-cloud/internal/constants"
	"github.com/labcheck-cloud/internal/logger"
	"github.com/labcheck-cloud/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 优惠券模板
	now := time.Now()
	windowEnd := now.AddDate(0, 3, 0)
	coupons := []models.Coupon{
		{
			Name:          "新客立减 10 元",
			Type:          constants.CouponTypeFixed,
			DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
			TotalQuantity: 1000,
			ValidDays:     30,
			StartTime:     &now,
			EndTime:       &windowEnd,
			Status:        constants.CouponStatusActive,
			Description:   "新用户下单立减 10 元",
		},
		{
			Name:            "满 300 减 50",
			Type:            constants.CouponTypeThreshold,
			DiscountValue:   models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
			ThresholdAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
			TotalQuantity:   500,
			ValidDays:       15,
			StartTime:       &now,
			EndTime:         &windowEnd,
			Status:          constants.CouponStatusActive,
			Description:     "订单满 300 元可用",
		},
		{
			Name:          "全场 95 折",
			Type:          constants.CouponTypePercentage,
			DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
			TotalQuantity: 0,
			ValidDays:     7,
			Status:        constants.CouponStatusActive,
			Description:   "按订单金额 5% 抵扣",
		},
	}
	for i := range coupons {
		coupon := &coupons[i]
		var existing models.Coupon
		if err := models.DB.Where("name = ?", coupon.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(coupon).Error; err != nil {
				stdLog.Printf("Failed to create coupon %s: %v", coupon.Name, err)
			} else {
				stdLog.Printf("Created coupon: %s", coupon.Name)
			}
		} else {
			coupon.ID = existing.ID
			stdLog.Printf("Coupon already exists: %s", coupon.Name)
		}
	}

	// 奖池：权重合计 10000（万分之一单位）
	var couponPrizeID *uint
	if coupons[0].ID != 0 {
		couponPrizeID = &coupons[0].ID
	}
	prizes := []models.LotteryPrize{
		{
			Name:        "88 积分",
			Type:        constants.PrizeTypePoints,
			Value:       models.NewMoneyFromDecimal(decimal.NewFromInt(88)),
			Probability: 3000,
			SortOrder:   1,
			IsActive:    true,
		},
		{
			Name:        "现金红包 1.88 元",
			Type:        constants.PrizeTypeCash,
			Value:       models.NewMoneyFromDecimal(decimal.NewFromFloat(1.88)),
			Probability: 1500,
			DailyLimit:  200,
			SortOrder:   2,
			IsActive:    true,
		},
		{
			Name:        "新客立减券",
			Type:        constants.PrizeTypeCoupon,
			CouponID:    couponPrizeID,
			Probability: 800,
			TotalLimit:  300,
			SortOrder:   3,
			IsActive:    true,
		},
		{
			Name:        "体检加项礼包",
			Type:        constants.PrizeTypeGift,
			Probability: 200,
			TotalLimit:  50,
			DailyLimit:  5,
			SortOrder:   4,
			IsActive:    true,
		},
		{
			Name:        "谢谢参与",
			Type:        constants.PrizeTypeEmpty,
			Probability: 4500,
			SortOrder:   5,
			IsActive:    true,
		},
	}
	for i := range prizes {
		prize := &prizes[i]
		var existing models.LotteryPrize
		if err := models.DB.Where("name = ?", prize.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(prize).Error; err != nil {
				stdLog.Printf("Failed to create prize %s: %v", prize.Name, err)
			} else {
				stdLog.Printf("Created prize: %s", prize.Name)
			}
		} else {
			stdLog.Printf("Prize already exists: %s", prize.Name)
		}
	}

	// 测试用户
	const testPhone = "13800138000"
	var existingUser models.User
	if err := models.DB.Where("phone = ?", testPhone).First(&existingUser).Error; err != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte("test123456"), bcrypt.DefaultCost)
		if err != nil {
			stdLog.Fatalf("Failed to hash password: %v", err)
		}
		user := models.User{
			Phone:        testPhone,
			PasswordHash: string(hash),
			Nickname:     "测试用户",
			Status:       "active",
			Balance:      models.ZeroMoney(),
		}
		if err := models.DB.Create(&user).Error; err != nil {
			stdLog.Printf("Failed to create test user: %v", err)
		} else {
			stdLog.Printf("Created test user: %s (password: test123456)", testPhone)
		}
	} else {
		stdLog.Printf("Test user already exists: %s", testPhone)
	}

	stdLog.Printf("Seed finished")
}
