package alipay

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid    = errors.New("alipay config invalid")
	ErrAmountInvalid    = errors.New("alipay amount invalid")
	ErrResponseInvalid  = errors.New("alipay response invalid")
	ErrSignatureInvalid = errors.New("alipay signature invalid")
)

const (
	methodPagePay = "alipay.trade.page.pay"

	productCodePagePay = "FAST_INSTANT_TRADE_PAY"
)

// Config 支付宝配置
type Config struct {
	AppID           string
	GatewayURL      string
	MerchantPrivKey string
	PlatformPubKey  string
}

// Client 支付宝客户端
type Client struct {
	cfg Config
}

// NewClient 创建支付宝客户端
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.AppID) == "" ||
		strings.TrimSpace(cfg.MerchantPrivKey) == "" ||
		strings.TrimSpace(cfg.PlatformPubKey) == "" {
		return nil, ErrConfigInvalid
	}
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = "https://openapi.alipay.com/gateway.do"
	}
	return &Client{cfg: cfg}, nil
}

// PagePayInput 电脑网站支付输入
type PagePayInput struct {
	OutTradeNo  string
	TotalAmount decimal.Decimal // 单位为元，保留 2 位小数
	Subject     string
	NotifyURL   string
	ReturnURL   string
}

// BuildPagePayURL 构建签名后的跳转支付地址
// 金额必须为正，签名前拒绝非法输入。
func (c *Client) BuildPagePayURL(input PagePayInput) (string, error) {
	if input.OutTradeNo == "" || input.NotifyURL == "" {
		return "", ErrConfigInvalid
	}
	if !input.TotalAmount.IsPositive() {
		return "", ErrAmountInvalid
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		subject = input.OutTradeNo
	}

	bizContent, err := json.Marshal(map[string]string{
		"out_trade_no": input.OutTradeNo,
		"total_amount": input.TotalAmount.Round(2).StringFixed(2),
		"subject":      subject,
		"product_code": productCodePagePay,
	})
	if err != nil {
		return "", err
	}

	params := map[string]string{
		"app_id":      c.cfg.AppID,
		"method":      methodPagePay,
		"format":      "JSON",
		"charset":     "utf-8",
		"sign_type":   "RSA2",
		"timestamp":   time.Now().Format("2006-01-02 15:04:05"),
		"version":     "1.0",
		"notify_url":  input.NotifyURL,
		"return_url":  input.ReturnURL,
		"biz_content": string(bizContent),
	}
	sign, err := SignRSA2(SignContent(params), c.cfg.MerchantPrivKey)
	if err != nil {
		return "", err
	}
	params["sign"] = sign

	values := url.Values{}
	for k, v := range params {
		if v == "" {
			continue
		}
		values.Set(k, v)
	}
	return strings.TrimRight(c.cfg.GatewayURL, "?") + "?" + values.Encode(), nil
}

// Notification 验签后的回调数据
type Notification struct {
	OutTradeNo  string
	TradeNo     string
	TotalAmount decimal.Decimal
	Succeeded   bool
	Raw         map[string]string
}

// ParseNotification 解析并验签异步回调表单
// 仅做解析与验签，不触发任何状态变更。
func (c *Client) ParseNotification(form url.Values) (*Notification, error) {
	params := make(map[string]string, len(form))
	for k, vs := range form {
		if len(vs) == 0 {
			continue
		}
		params[k] = vs[0]
	}
	sign := strings.TrimSpace(params["sign"])
	if sign == "" {
		return nil, ErrSignatureInvalid
	}
	if err := VerifyRSA2(SignContent(params), sign, c.cfg.PlatformPubKey); err != nil {
		return nil, err
	}

	outTradeNo := params["out_trade_no"]
	if outTradeNo == "" {
		return nil, ErrResponseInvalid
	}
	amount := decimal.Zero
	if raw := params["total_amount"]; raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, ErrResponseInvalid
		}
		amount = parsed
	}
	status := params["trade_status"]
	return &Notification{
		OutTradeNo:  outTradeNo,
		TradeNo:     params["trade_no"],
		TotalAmount: amount,
		Succeeded:   status == "TRADE_SUCCESS" || status == "TRADE_FINISHED",
		Raw:         params,
	}, nil
}
