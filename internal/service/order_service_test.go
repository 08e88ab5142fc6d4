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

func setupOrderServiceTest(t *testing.T) (*OrderService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.OrderStatusHistory{},
		&models.Payment{},
		&models.Coupon{},
		&models.UserCoupon{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	userRepo := repository.NewUserRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	couponSvc := NewCouponService(couponRepo, nil)
	return NewOrderService(orderRepo, paymentRepo, userRepo, couponSvc, nil), db
}

func createOrderTestUser(t *testing.T, db *gorm.DB, balance string) *models.User {
	t.Helper()
	user := &models.User{
		Phone:        fmt.Sprintf("137%08d", time.Now().UnixNano()%100000000),
		PasswordHash: "hash",
		Status:       "active",
		Balance:      models.NewMoneyFromDecimal(decimal.RequireFromString(balance)),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func TestCreateOrderRecordsInitialHistory(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "0.00")

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:  user.ID,
		Title:   "基础体检套餐",
		ItemFee: decimal.RequireFromString("312.00"),
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("expected pending_payment, got %s", order.Status)
	}
	if !order.TotalFee.Decimal.Equal(decimal.RequireFromString("312.00")) {
		t.Fatalf("expected total 312.00, got %s", order.TotalFee.Decimal)
	}

	var history []models.OrderStatusHistory
	if err := db.Where("order_id = ?", order.ID).Find(&history).Error; err != nil {
		t.Fatalf("load history failed: %v", err)
	}
	if len(history) != 1 || history[0].ToStatus != constants.OrderStatusPendingPayment {
		t.Fatalf("expected single creation history row, got %+v", history)
	}
}

func TestCreateOrderRejectsInvalidAmount(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "0.00")

	if _, err := svc.CreateOrder(CreateOrderInput{
		UserID:  user.ID,
		Title:   "体检",
		ItemFee: decimal.Zero,
	}); !errors.Is(err, ErrOrderAmountInvalid) {
		t.Fatalf("expected amount invalid, got %v", err)
	}
}

func TestCreateOrderWithThresholdCoupon(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "0.00")

	userCoupon := &models.UserCoupon{
		UserID:          user.ID,
		CouponID:        1,
		Name:            "满 300 减 50",
		Type:            constants.CouponTypeThreshold,
		DiscountValue:   models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		ThresholdAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
		Status:          constants.UserCouponStatusUnused,
		ExpireAt:        time.Now().AddDate(0, 0, 7),
	}
	if err := db.Create(userCoupon).Error; err != nil {
		t.Fatalf("create user coupon failed: %v", err)
	}

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:       user.ID,
		Title:        "深度体检套餐",
		ItemFee:      decimal.RequireFromString("350.00"),
		UserCouponID: &userCoupon.ID,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if !order.DiscountFee.Decimal.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("expected discount 50.00, got %s", order.DiscountFee.Decimal)
	}
	if !order.TotalFee.Decimal.Equal(decimal.RequireFromString("300.00")) {
		t.Fatalf("expected total 300.00, got %s", order.TotalFee.Decimal)
	}

	var gotCoupon models.UserCoupon
	if err := db.First(&gotCoupon, userCoupon.ID).Error; err != nil {
		t.Fatalf("load coupon failed: %v", err)
	}
	if gotCoupon.Status != constants.UserCouponStatusUsed || gotCoupon.OrderID == nil {
		t.Fatalf("coupon not redeemed: %+v", gotCoupon)
	}

	// 已核销的券不可再用于第二笔订单
	if _, err := svc.CreateOrder(CreateOrderInput{
		UserID:       user.ID,
		Title:        "追加套餐",
		ItemFee:      decimal.RequireFromString("400.00"),
		UserCouponID: &userCoupon.ID,
	}); !errors.Is(err, ErrCouponNotUsable) {
		t.Fatalf("expected coupon not usable on reuse, got %v", err)
	}
}

func TestCreateOrderCouponBelowThresholdRejected(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "0.00")

	userCoupon := &models.UserCoupon{
		UserID:          user.ID,
		CouponID:        1,
		Name:            "满 300 减 50",
		Type:            constants.CouponTypeThreshold,
		DiscountValue:   models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		ThresholdAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
		Status:          constants.UserCouponStatusUnused,
		ExpireAt:        time.Now().AddDate(0, 0, 7),
	}
	if err := db.Create(userCoupon).Error; err != nil {
		t.Fatalf("create user coupon failed: %v", err)
	}

	if _, err := svc.CreateOrder(CreateOrderInput{
		UserID:       user.ID,
		Title:        "基础套餐",
		ItemFee:      decimal.RequireFromString("299.99"),
		UserCouponID: &userCoupon.ID,
	}); !errors.Is(err, ErrCouponThresholdNotMet) {
		t.Fatalf("expected threshold not met, got %v", err)
	}

	// 整个事务回滚，券仍未使用
	var gotCoupon models.UserCoupon
	if err := db.First(&gotCoupon, userCoupon.ID).Error; err != nil {
		t.Fatalf("load coupon failed: %v", err)
	}
	if gotCoupon.Status != constants.UserCouponStatusUnused {
		t.Fatalf("coupon mutated on failed order: %s", gotCoupon.Status)
	}
}

func TestPayWithBalance(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "500.00")
	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:  user.ID,
		Title:   "基础体检套餐",
		ItemFee: decimal.RequireFromString("312.00"),
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	payment, err := svc.PayWithBalance(user.ID, order.ID)
	if err != nil {
		t.Fatalf("pay with balance failed: %v", err)
	}
	if payment.Channel != constants.PaymentChannelBalance || payment.Status != constants.PaymentStatusSuccess {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if !payment.Amount.Decimal.Equal(decimal.RequireFromString("312.00")) {
		t.Fatalf("expected amount 312.00, got %s", payment.Amount.Decimal)
	}

	var gotUser models.User
	if err := db.First(&gotUser, user.ID).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if !gotUser.Balance.Decimal.Equal(decimal.RequireFromString("188.00")) {
		t.Fatalf("expected balance 188.00, got %s", gotUser.Balance.Decimal)
	}

	var gotOrder models.Order
	if err := db.First(&gotOrder, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if gotOrder.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", gotOrder.Status)
	}

	// 已确认订单不可再次余额支付
	if _, err := svc.PayWithBalance(user.ID, order.ID); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected status invalid on second pay, got %v", err)
	}
	var gotUserAfter models.User
	if err := db.First(&gotUserAfter, user.ID).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if !gotUserAfter.Balance.Decimal.Equal(decimal.RequireFromString("188.00")) {
		t.Fatalf("balance deducted twice: %s", gotUserAfter.Balance.Decimal)
	}
}

func TestPayWithBalanceInsufficient(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "100.00")
	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:  user.ID,
		Title:   "基础体检套餐",
		ItemFee: decimal.RequireFromString("312.00"),
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := svc.PayWithBalance(user.ID, order.ID); !errors.Is(err, ErrBalanceInsufficient) {
		t.Fatalf("expected balance insufficient, got %v", err)
	}
	var gotUser models.User
	if err := db.First(&gotUser, user.ID).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if !gotUser.Balance.Decimal.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("balance mutated on rejected pay: %s", gotUser.Balance.Decimal)
	}
}

func TestCancelOrderRules(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "500.00")
	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:  user.ID,
		Title:   "基础体检套餐",
		ItemFee: decimal.RequireFromString("100.00"),
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	cancelled, err := svc.Cancel(user.ID, order.ID, constants.StatusActorUser, user.ID, "改约")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != constants.OrderStatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("order not cancelled: %+v", cancelled)
	}

	// 已取消不可再取消
	if _, err := svc.Cancel(user.ID, order.ID, constants.StatusActorUser, user.ID, "再次取消"); !errors.Is(err, ErrOrderCancelNotAllowed) {
		t.Fatalf("expected cancel not allowed, got %v", err)
	}
}

func TestCancelInProgressOrderRejected(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "0.00")
	order := &models.Order{
		OrderNo:  fmt.Sprintf("LC%d", time.Now().UnixNano()),
		UserID:   user.ID,
		Title:    "检测中订单",
		ItemFee:  models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		TotalFee: models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		Status:   constants.OrderStatusInProgress,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.Cancel(user.ID, order.ID, constants.StatusActorUser, user.ID, "不想检了"); !errors.Is(err, ErrOrderCancelNotAllowed) {
		t.Fatalf("expected cancel not allowed for in_progress, got %v", err)
	}
}

func TestAdvanceStatusStateMachine(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	user := createOrderTestUser(t, db, "500.00")
	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:  user.ID,
		Title:   "基础体检套餐",
		ItemFee: decimal.RequireFromString("100.00"),
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.PayWithBalance(user.ID, order.ID); err != nil {
		t.Fatalf("pay failed: %v", err)
	}

	// 跳级推进被拒绝
	if _, err := svc.AdvanceStatus(order.ID, constants.OrderStatusCompleted, constants.StatusActorOperator, 1, "越级"); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	for _, target := range []string{
		constants.OrderStatusWaitingTest,
		constants.OrderStatusInProgress,
		constants.OrderStatusCompleted,
	} {
		if _, err := svc.AdvanceStatus(order.ID, target, constants.StatusActorOperator, 1, "流程推进"); err != nil {
			t.Fatalf("advance to %s failed: %v", target, err)
		}
	}

	var gotOrder models.Order
	if err := db.First(&gotOrder, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if gotOrder.Status != constants.OrderStatusCompleted || gotOrder.CompletedAt == nil {
		t.Fatalf("order not completed: %+v", gotOrder)
	}

	var historyCount int64
	if err := db.Model(&models.OrderStatusHistory{}).Where("order_id = ?", order.ID).Count(&historyCount).Error; err != nil {
		t.Fatalf("count history failed: %v", err)
	}
	// 创建 + 确认 + 三次推进
	if historyCount != 5 {
		t.Fatalf("expected 5 history rows, got %d", historyCount)
	}
}
