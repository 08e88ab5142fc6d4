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

func setupSettlementServiceTest(t *testing.T) (*SettlementService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:settlement_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.OrderStatusHistory{},
		&models.Payment{},
		&models.RechargeRecord{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	paymentRepo := repository.NewPaymentRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	rechargeRepo := repository.NewRechargeRepository(db)
	userRepo := repository.NewUserRepository(db)
	return NewSettlementService(paymentRepo, orderRepo, rechargeRepo, userRepo, nil), db
}

func createSettlementTestUser(t *testing.T, db *gorm.DB, balance decimal.Decimal) *models.User {
	t.Helper()
	user := &models.User{
		Phone:        fmt.Sprintf("138%08d", time.Now().UnixNano()%100000000),
		PasswordHash: "hash",
		Nickname:     "结算测试",
		Status:       "active",
		Balance:      models.NewMoneyFromDecimal(balance),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func createPendingOrderWithPayment(t *testing.T, db *gorm.DB, userID uint, total decimal.Decimal, channel string) (*models.Order, *models.Payment) {
	t.Helper()
	order := &models.Order{
		OrderNo:  fmt.Sprintf("LC%d", time.Now().UnixNano()),
		UserID:   userID,
		Title:    "基础体检套餐",
		ItemFee:  models.NewMoneyFromDecimal(total),
		TotalFee: models.NewMoneyFromDecimal(total),
		Status:   constants.OrderStatusPendingPayment,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	payment := &models.Payment{
		PaymentNo: fmt.Sprintf("PAY%d", time.Now().UnixNano()),
		Purpose:   constants.PaymentPurposeOrder,
		OrderID:   &order.ID,
		UserID:    userID,
		Channel:   channel,
		Amount:    models.NewMoneyFromDecimal(total),
		Currency:  "CNY",
		Status:    constants.PaymentStatusPending,
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	return order, payment
}

func successEvent(payment *models.Payment, amount decimal.Decimal) SettlementEvent {
	paidAt := time.Now()
	return SettlementEvent{
		Reference: payment.PaymentNo,
		TradeNo:   "4200001234",
		Channel:   payment.Channel,
		Amount:    amount,
		Currency:  "CNY",
		Succeeded: true,
		PaidAt:    &paidAt,
		Raw:       models.JSON{"result_code": "SUCCESS"},
	}
}

func TestSettleOrderPaymentSuccess(t *testing.T) {
	svc, db := setupSettlementServiceTest(t)
	user := createSettlementTestUser(t, db, decimal.Zero)
	order, payment := createPendingOrderWithPayment(t, db, user.ID, decimal.RequireFromString("312.00"), constants.PaymentChannelWechat)

	result, err := svc.Settle(successEvent(payment, decimal.RequireFromString("312.00")))
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if result.Outcome != SettlementApplied {
		t.Fatalf("expected outcome applied, got %s", result.Outcome)
	}

	var gotPayment models.Payment
	if err := db.First(&gotPayment, payment.ID).Error; err != nil {
		t.Fatalf("load payment failed: %v", err)
	}
	if gotPayment.Status != constants.PaymentStatusSuccess {
		t.Fatalf("expected payment success, got %s", gotPayment.Status)
	}
	if gotPayment.TradeNo != "4200001234" {
		t.Fatalf("expected trade no recorded, got %q", gotPayment.TradeNo)
	}
	if gotPayment.SettledAt == nil {
		t.Fatalf("expected settled_at set")
	}

	var gotOrder models.Order
	if err := db.First(&gotOrder, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if gotOrder.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected order confirmed, got %s", gotOrder.Status)
	}
	if !gotOrder.PaidFee.Decimal.Equal(decimal.RequireFromString("312.00")) {
		t.Fatalf("expected paid fee 312.00, got %s", gotOrder.PaidFee.Decimal)
	}
	if gotOrder.PaidAt == nil {
		t.Fatalf("expected paid_at set")
	}

	var historyCount int64
	if err := db.Model(&models.OrderStatusHistory{}).
		Where("order_id = ? AND to_status = ?", order.ID, constants.OrderStatusConfirmed).
		Count(&historyCount).Error; err != nil {
		t.Fatalf("count history failed: %v", err)
	}
	if historyCount != 1 {
		t.Fatalf("expected 1 confirmed history row, got %d", historyCount)
	}
}

func TestSettleDuplicateNotificationIsIdempotent(t *testing.T) {
	svc, db := setupSettlementServiceTest(t)
	user := createSettlementTestUser(t, db, decimal.Zero)
	order, payment := createPendingOrderWithPayment(t, db, user.ID, decimal.RequireFromString("312.00"), constants.PaymentChannelWechat)

	event := successEvent(payment, decimal.RequireFromString("312.00"))
	if _, err := svc.Settle(event); err != nil {
		t.Fatalf("first settle failed: %v", err)
	}
	result, err := svc.Settle(event)
	if err != nil {
		t.Fatalf("second settle failed: %v", err)
	}
	if result.Outcome != SettlementAlreadyApplied {
		t.Fatalf("expected already_applied, got %s", result.Outcome)
	}

	var gotOrder models.Order
	if err := db.First(&gotOrder, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if !gotOrder.PaidFee.Decimal.Equal(decimal.RequireFromString("312.00")) {
		t.Fatalf("paid fee changed on replay: %s", gotOrder.PaidFee.Decimal)
	}
	var historyCount int64
	if err := db.Model(&models.OrderStatusHistory{}).Where("order_id = ?", order.ID).Count(&historyCount).Error; err != nil {
		t.Fatalf("count history failed: %v", err)
	}
	if historyCount != 1 {
		t.Fatalf("expected single history row after replay, got %d", historyCount)
	}
}

func TestSettleAmountMismatchRejected(t *testing.T) {
	svc, db := setupSettlementServiceTest(t)
	user := createSettlementTestUser(t, db, decimal.Zero)
	_, payment := createPendingOrderWithPayment(t, db, user.ID, decimal.RequireFromString("312.00"), constants.PaymentChannelWechat)

	_, err := svc.Settle(successEvent(payment, decimal.RequireFromString("311.99")))
	if !errors.Is(err, ErrPaymentAmountMismatch) {
		t.Fatalf("expected amount mismatch, got %v", err)
	}

	var gotPayment models.Payment
	if err := db.First(&gotPayment, payment.ID).Error; err != nil {
		t.Fatalf("load payment failed: %v", err)
	}
	if gotPayment.Status != constants.PaymentStatusPending {
		t.Fatalf("payment mutated on mismatch: %s", gotPayment.Status)
	}
}

func TestSettleChannelMismatchRejected(t *testing.T) {
	svc, db := setupSettlementServiceTest(t)
	user := createSettlementTestUser(t, db, decimal.Zero)
	_, payment := createPendingOrderWithPayment(t, db, user.ID, decimal.RequireFromString("100.00"), constants.PaymentChannelWechat)

	event := successEvent(payment, decimal.RequireFromString("100.00"))
	event.Channel = constants.PaymentChannelAlipay
	if _, err := svc.Settle(event); !errors.Is(err, ErrPaymentInvalid) {
		t.Fatalf("expected payment invalid on channel mismatch, got %v", err)
	}
}

func TestSettleUnknownReference(t *testing.T) {
	svc, _ := setupSettlementServiceTest(t)
	event := SettlementEvent{
		Reference: "PAY00000000000000000000",
		Channel:   constants.PaymentChannelWechat,
		Amount:    decimal.RequireFromString("10.00"),
		Succeeded: true,
	}
	if _, err := svc.Settle(event); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSettleFailureIsTerminal(t *testing.T) {
	svc, db := setupSettlementServiceTest(t)
	user := createSettlementTestUser(t, db, decimal.Zero)
	order, payment := createPendingOrderWithPayment(t, db, user.ID, decimal.RequireFromString("50.00"), constants.PaymentChannelAlipay)

	failEvent := successEvent(payment, decimal.RequireFromString("50.00"))
	failEvent.Succeeded = false
	if _, err := svc.Settle(failEvent); err != nil {
		t.Fatalf("settle failure event failed: %v", err)
	}

	var gotPayment models.Payment
	if err := db.First(&gotPayment, payment.ID).Error; err != nil {
		t.Fatalf("load payment failed: %v", err)
	}
	if gotPayment.Status != constants.PaymentStatusFailed {
		t.Fatalf("expected payment failed, got %s", gotPayment.Status)
	}

	// 终态后迟到的成功通知只补元信息，不再入账
	result, err := svc.Settle(successEvent(payment, decimal.RequireFromString("50.00")))
	if err != nil {
		t.Fatalf("late success settle failed: %v", err)
	}
	if result.Outcome != SettlementAlreadyApplied {
		t.Fatalf("expected already_applied on terminal replay, got %s", result.Outcome)
	}
	var gotOrder models.Order
	if err := db.First(&gotOrder, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if gotOrder.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("order advanced after terminal failure: %s", gotOrder.Status)
	}
}

func TestSettleRechargeDoubleNotifyCreditsOnce(t *testing.T) {
	svc, db := setupSettlementServiceTest(t)
	user := createSettlementTestUser(t, db, decimal.Zero)

	recharge := &models.RechargeRecord{
		RechargeNo:   fmt.Sprintf("RC%d", time.Now().UnixNano()),
		UserID:       user.ID,
		Amount:       models.NewMoneyFromDecimal(decimal.RequireFromString("1000.00")),
		BonusAmount:  models.NewMoneyFromDecimal(decimal.RequireFromString("150.00")),
		ActualAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("1150.00")),
		Channel:      constants.PaymentChannelAlipay,
		Status:       constants.RechargeStatusPending,
	}
	if err := db.Create(recharge).Error; err != nil {
		t.Fatalf("create recharge failed: %v", err)
	}
	payment := &models.Payment{
		PaymentNo:  fmt.Sprintf("PAY%d", time.Now().UnixNano()),
		Purpose:    constants.PaymentPurposeRecharge,
		RechargeID: &recharge.ID,
		UserID:     user.ID,
		Channel:    constants.PaymentChannelAlipay,
		Amount:     models.NewMoneyFromDecimal(decimal.RequireFromString("1000.00")),
		Currency:   "CNY",
		Status:     constants.PaymentStatusPending,
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	event := successEvent(payment, decimal.RequireFromString("1000.00"))
	if _, err := svc.Settle(event); err != nil {
		t.Fatalf("first settle failed: %v", err)
	}
	if _, err := svc.Settle(event); err != nil {
		t.Fatalf("second settle failed: %v", err)
	}

	var gotUser models.User
	if err := db.First(&gotUser, user.ID).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if !gotUser.Balance.Decimal.Equal(decimal.RequireFromString("1150.00")) {
		t.Fatalf("expected balance 1150.00 after double notify, got %s", gotUser.Balance.Decimal)
	}
	var gotRecharge models.RechargeRecord
	if err := db.First(&gotRecharge, recharge.ID).Error; err != nil {
		t.Fatalf("load recharge failed: %v", err)
	}
	if gotRecharge.Status != constants.RechargeStatusSuccess {
		t.Fatalf("expected recharge success, got %s", gotRecharge.Status)
	}
	if gotRecharge.SettledAt == nil {
		t.Fatalf("expected recharge settled_at set")
	}
}

func TestSettleRechargeFailureMarksRechargeFailed(t *testing.T) {
	svc, db := setupSettlementServiceTest(t)
	user := createSettlementTestUser(t, db, decimal.Zero)

	recharge := &models.RechargeRecord{
		RechargeNo:   fmt.Sprintf("RC%d", time.Now().UnixNano()),
		UserID:       user.ID,
		Amount:       models.NewMoneyFromDecimal(decimal.RequireFromString("500.00")),
		BonusAmount:  models.NewMoneyFromDecimal(decimal.RequireFromString("50.00")),
		ActualAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("550.00")),
		Channel:      constants.PaymentChannelWechat,
		Status:       constants.RechargeStatusPending,
	}
	if err := db.Create(recharge).Error; err != nil {
		t.Fatalf("create recharge failed: %v", err)
	}
	payment := &models.Payment{
		PaymentNo:  fmt.Sprintf("PAY%d", time.Now().UnixNano()),
		Purpose:    constants.PaymentPurposeRecharge,
		RechargeID: &recharge.ID,
		UserID:     user.ID,
		Channel:    constants.PaymentChannelWechat,
		Amount:     models.NewMoneyFromDecimal(decimal.RequireFromString("500.00")),
		Currency:   "CNY",
		Status:     constants.PaymentStatusPending,
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	failed := successEvent(payment, decimal.RequireFromString("500.00"))
	failed.Succeeded = false
	result, err := svc.Settle(failed)
	if err != nil {
		t.Fatalf("settle failed event errored: %v", err)
	}
	if result.Outcome != SettlementApplied {
		t.Fatalf("expected applied outcome, got %s", result.Outcome)
	}

	var gotRecharge models.RechargeRecord
	if err := db.First(&gotRecharge, recharge.ID).Error; err != nil {
		t.Fatalf("load recharge failed: %v", err)
	}
	if gotRecharge.Status != constants.RechargeStatusFailed {
		t.Fatalf("expected recharge failed, got %s", gotRecharge.Status)
	}
	var gotPayment models.Payment
	if err := db.First(&gotPayment, payment.ID).Error; err != nil {
		t.Fatalf("load payment failed: %v", err)
	}
	if gotPayment.Status != constants.PaymentStatusFailed {
		t.Fatalf("expected payment failed, got %s", gotPayment.Status)
	}

	late, err := svc.Settle(successEvent(payment, decimal.RequireFromString("500.00")))
	if err != nil {
		t.Fatalf("late success settle errored: %v", err)
	}
	if late.Outcome != SettlementAlreadyApplied {
		t.Fatalf("expected already-applied on late success, got %s", late.Outcome)
	}

	var gotUser models.User
	if err := db.First(&gotUser, user.ID).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if !gotUser.Balance.Decimal.IsZero() {
		t.Fatalf("expected balance untouched, got %s", gotUser.Balance.Decimal)
	}
	if err := db.First(&gotRecharge, recharge.ID).Error; err != nil {
		t.Fatalf("reload recharge failed: %v", err)
	}
	if gotRecharge.Status != constants.RechargeStatusFailed {
		t.Fatalf("expected recharge to stay failed, got %s", gotRecharge.Status)
	}
}
