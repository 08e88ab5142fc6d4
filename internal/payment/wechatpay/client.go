package wechatpay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	ErrConfigInvalid    = errors.New("wechatpay config invalid")
	ErrAmountInvalid    = errors.New("wechatpay amount invalid")
	ErrRequestFailed    = errors.New("wechatpay request failed")
	ErrResponseInvalid  = errors.New("wechatpay response invalid")
	ErrSignatureInvalid = errors.New("wechatpay signature invalid")
)

const (
	// TradeTypeNative 扫码支付
	TradeTypeNative = "NATIVE"
	// TradeTypeJSAPI 公众号/小程序支付
	TradeTypeJSAPI = "JSAPI"

	unifiedOrderPath = "/pay/unifiedorder"
)

// Config 微信支付（v2 协议）配置
type Config struct {
	AppID     string
	MchID     string
	APIKey    string
	APIBase   string
	TimeoutMS int
}

// Client 微信支付客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient 创建微信支付客户端
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.AppID) == "" ||
		strings.TrimSpace(cfg.MchID) == "" ||
		strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrConfigInvalid
	}
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.mch.weixin.qq.com"
	}
	timeout := 10 * time.Second
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// UnifiedOrderInput 统一下单输入
type UnifiedOrderInput struct {
	OutTradeNo    string
	TotalFeeCents int64 // 金额单位为分
	Body          string
	ClientIP      string
	NotifyURL     string
	TradeType     string
	OpenID        string
}

// UnifiedOrderResult 统一下单结果
type UnifiedOrderResult struct {
	PrepayID string
	CodeURL  string
	Raw      map[string]string
}

// UnifiedOrder 调用统一下单接口
// 金额必须为正的最小货币单位，网络调用前拒绝非法输入。
func (c *Client) UnifiedOrder(ctx context.Context, input UnifiedOrderInput) (*UnifiedOrderResult, error) {
	if input.OutTradeNo == "" || input.NotifyURL == "" {
		return nil, ErrConfigInvalid
	}
	if input.TotalFeeCents <= 0 {
		return nil, ErrAmountInvalid
	}
	tradeType := strings.ToUpper(strings.TrimSpace(input.TradeType))
	if tradeType == "" {
		tradeType = TradeTypeNative
	}
	if tradeType == TradeTypeJSAPI && input.OpenID == "" {
		return nil, ErrConfigInvalid
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		body = input.OutTradeNo
	}
	clientIP := strings.TrimSpace(input.ClientIP)
	if clientIP == "" {
		clientIP = "127.0.0.1"
	}

	params := map[string]string{
		"appid":            c.cfg.AppID,
		"mch_id":           c.cfg.MchID,
		"nonce_str":        NonceStr(),
		"body":             body,
		"out_trade_no":     input.OutTradeNo,
		"total_fee":        strconv.FormatInt(input.TotalFeeCents, 10),
		"spbill_create_ip": clientIP,
		"notify_url":       input.NotifyURL,
		"trade_type":       tradeType,
	}
	if input.OpenID != "" {
		params["openid"] = input.OpenID
	}
	params["sign"] = Sign(params, c.cfg.APIKey)

	respParams, err := c.post(ctx, unifiedOrderPath, params)
	if err != nil {
		return nil, err
	}
	if respParams["return_code"] != "SUCCESS" {
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, respParams["return_msg"])
	}
	if err := Verify(respParams, c.cfg.APIKey); err != nil {
		return nil, err
	}
	if respParams["result_code"] != "SUCCESS" {
		return nil, fmt.Errorf("%w: %s %s", ErrResponseInvalid,
			respParams["err_code"], respParams["err_code_des"])
	}
	return &UnifiedOrderResult{
		PrepayID: respParams["prepay_id"],
		CodeURL:  respParams["code_url"],
		Raw:      respParams,
	}, nil
}

// BuildJSAPIPayParams 构建 JSAPI 拉起支付参数
func (c *Client) BuildJSAPIPayParams(prepayID string) map[string]string {
	params := map[string]string{
		"appId":     c.cfg.AppID,
		"timeStamp": strconv.FormatInt(time.Now().Unix(), 10),
		"nonceStr":  NonceStr(),
		"package":   "prepay_id=" + prepayID,
		"signType":  "MD5",
	}
	params["paySign"] = Sign(params, c.cfg.APIKey)
	return params
}

// Notification 验签后的回调数据
type Notification struct {
	OutTradeNo    string
	TradeNo       string
	TotalFeeCents int64
	Succeeded     bool
	Raw           map[string]string
}

// ParseNotification 解析并验签异步回调
// 仅做解析与验签，不触发任何状态变更。
func (c *Client) ParseNotification(body []byte) (*Notification, error) {
	params, err := DecodeXML(body)
	if err != nil {
		return nil, err
	}
	if params["return_code"] != "SUCCESS" {
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, params["return_msg"])
	}
	if err := Verify(params, c.cfg.APIKey); err != nil {
		return nil, err
	}
	outTradeNo := params["out_trade_no"]
	if outTradeNo == "" {
		return nil, ErrResponseInvalid
	}
	totalFee := int64(0)
	if raw := params["total_fee"]; raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, ErrResponseInvalid
		}
		totalFee = parsed
	}
	return &Notification{
		OutTradeNo:    outTradeNo,
		TradeNo:       params["transaction_id"],
		TotalFeeCents: totalFee,
		Succeeded:     params["result_code"] == "SUCCESS",
		Raw:           params,
	}, nil
}

// AckSuccess 回调成功应答报文
func AckSuccess() string {
	return EncodeXML(map[string]string{
		"return_code": "SUCCESS",
		"return_msg":  "OK",
	})
}

// AckFail 回调失败应答报文
func AckFail(msg string) string {
	if msg == "" {
		msg = "FAIL"
	}
	return EncodeXML(map[string]string{
		"return_code": "FAIL",
		"return_msg":  msg,
	})
}

func (c *Client) post(ctx context.Context, path string, params map[string]string) (map[string]string, error) {
	endpoint := strings.TrimRight(c.cfg.APIBase, "/") + path
	payload := EncodeXML(params)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrRequestFailed
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return DecodeXML(body)
}
