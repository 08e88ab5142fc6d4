package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/labcheck-cloud/internal/config"
	"github.com/labcheck-cloud/internal/constants"
	"github.com/labcheck-cloud/internal/models"
	"github.com/labcheck-cloud/internal/payment/alipay"
	"github.com/labcheck-cloud/internal/payment/wechatpay"
	"github.com/labcheck-cloud/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeWechatGateway struct {
	lastInput wechatpay.UnifiedOrderInput
	err       error
}

func (g *fakeWechatGateway) UnifiedOrder(_ context.Context, input wechatpay.UnifiedOrderInput) (*wechatpay.UnifiedOrderResult, error) {
	g.lastInput = input
	if g.err != nil {
		return nil, g.err
	}
	return &wechatpay.UnifiedOrderResult{
		PrepayID: "wx-prepay-test",
		CodeURL:  "weixin://wxpay/bizpayurl?pr=test",
	}, nil
}

func (g *fakeWechatGateway) ParseNotification(body []byte) (*wechatpay.Notification, error) {
	return nil, errors.New("not implemented")
}

type fakeAlipayGateway struct {
	lastInput alipay.PagePayInput
}

func (g *fakeAlipayGateway) BuildPagePayURL(input alipay.PagePayInput) (string, error) {
	g.lastInput = input
	return "https://openapi.alipay.com/gateway.do?test=1", nil
}

func (g *fakeAlipayGateway) ParseNotification(form url.Values) (*alipay.Notification, error) {
	return nil, errors.New("not implemented")
}

func setupRechargeServiceTest(t *testing.T) (*RechargeService, *fakeWechatGateway, *fakeAlipayGateway, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:recharge_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.Payment{},
		&models.RechargeRecord{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	wechat := &fakeWechatGateway{}
	ali := &fakeAlipayGateway{}
	paymentSvc := NewPaymentService(
		repository.NewPaymentRepository(db),
		repository.NewOrderRepository(db),
		&config.PaymentConfig{NotifyBaseURL: "https://pay.example.com"},
		wechat,
		ali,
	)
	svc := NewRechargeService(
		repository.NewRechargeRepository(db),
		repository.NewUserRepository(db),
		paymentSvc,
		NewBonusCalculator(),
	)
	return svc, wechat, ali, db
}

func TestCreateRechargeFixesBonusAtCreation(t *testing.T) {
	svc, wechat, _, db := setupRechargeServiceTest(t)
	user := createLotteryTestUser(t, db)

	result, err := svc.CreateRecharge(CreateRechargeInput{
		UserID:   user.ID,
		Amount:   decimal.NewFromInt(1000),
		Channel:  constants.PaymentChannelWechat,
		ClientIP: "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("create recharge failed: %v", err)
	}

	recharge := result.Recharge
	if recharge.Amount.String() != "1000" && recharge.Amount.String() != "1000.00" {
		t.Fatalf("unexpected recharge amount %s", recharge.Amount.String())
	}
	if !recharge.BonusAmount.Decimal.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected bonus 150, got %s", recharge.BonusAmount.String())
	}
	if !recharge.ActualAmount.Decimal.Equal(decimal.NewFromInt(1150)) {
		t.Fatalf("expected actual amount 1150, got %s", recharge.ActualAmount.String())
	}
	if recharge.Status != constants.RechargeStatusPending {
		t.Fatalf("expected pending recharge, got %s", recharge.Status)
	}

	payment := result.Payment
	if payment.Purpose != constants.PaymentPurposeRecharge {
		t.Fatalf("expected recharge purpose, got %s", payment.Purpose)
	}
	if payment.RechargeID == nil || *payment.RechargeID != recharge.ID {
		t.Fatalf("payment not linked to recharge")
	}
	if !payment.Amount.Decimal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("payment must carry the paid amount, not the credited amount: %s", payment.Amount.String())
	}
	if payment.CodeURL == "" {
		t.Fatalf("expected wechat code url backfilled")
	}
	if wechat.lastInput.TotalFeeCents != 100000 {
		t.Fatalf("expected 100000 cents sent to gateway, got %d", wechat.lastInput.TotalFeeCents)
	}
}

func TestCreateRechargeAlipayChannel(t *testing.T) {
	svc, _, ali, db := setupRechargeServiceTest(t)
	user := createLotteryTestUser(t, db)

	result, err := svc.CreateRecharge(CreateRechargeInput{
		UserID:  user.ID,
		Amount:  decimal.NewFromFloat(99.99),
		Channel: constants.PaymentChannelAlipay,
	})
	if err != nil {
		t.Fatalf("create recharge failed: %v", err)
	}
	if !result.Recharge.BonusAmount.Decimal.IsZero() {
		t.Fatalf("expected no bonus below first tier, got %s", result.Recharge.BonusAmount.String())
	}
	if result.Payment.PayURL == "" {
		t.Fatalf("expected alipay pay url backfilled")
	}
	if !ali.lastInput.TotalAmount.Equal(decimal.NewFromFloat(99.99)) {
		t.Fatalf("unexpected amount sent to gateway: %s", ali.lastInput.TotalAmount.String())
	}
}

func TestCreateRechargeRejectsInvalidInput(t *testing.T) {
	svc, _, _, db := setupRechargeServiceTest(t)
	user := createLotteryTestUser(t, db)

	if _, err := svc.CreateRecharge(CreateRechargeInput{
		UserID:  user.ID,
		Amount:  decimal.Zero,
		Channel: constants.PaymentChannelWechat,
	}); !errors.Is(err, ErrRechargeAmountInvalid) {
		t.Fatalf("expected ErrRechargeAmountInvalid, got %v", err)
	}

	if _, err := svc.CreateRecharge(CreateRechargeInput{
		UserID:  user.ID,
		Amount:  decimal.NewFromInt(100),
		Channel: "applepay",
	}); !errors.Is(err, ErrPaymentChannelInvalid) {
		t.Fatalf("expected ErrPaymentChannelInvalid, got %v", err)
	}

	if _, err := svc.CreateRecharge(CreateRechargeInput{
		UserID:  99999,
		Amount:  decimal.NewFromInt(100),
		Channel: constants.PaymentChannelWechat,
	}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetRechargeScopedToOwner(t *testing.T) {
	svc, _, _, db := setupRechargeServiceTest(t)
	owner := createLotteryTestUser(t, db)
	stranger := createLotteryTestUser(t, db)

	result, err := svc.CreateRecharge(CreateRechargeInput{
		UserID:  owner.ID,
		Amount:  decimal.NewFromInt(200),
		Channel: constants.PaymentChannelWechat,
	})
	if err != nil {
		t.Fatalf("create recharge failed: %v", err)
	}

	if _, err := svc.GetRecharge(owner.ID, result.Recharge.ID); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := svc.GetRecharge(stranger.ID, result.Recharge.ID); !errors.Is(err, ErrRechargeNotFound) {
		t.Fatalf("expected ErrRechargeNotFound for stranger, got %v", err)
	}
}
