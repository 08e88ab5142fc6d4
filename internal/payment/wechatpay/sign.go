package wechatpay

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Sign 计算 v2 协议 MD5 签名：过滤空值与 sign 字段，按键名字典序拼接
// k=v 并以 & 连接，追加 &key=<商户密钥> 后取 MD5 的大写十六进制。
// 出入站必须逐字节复现同一拼接结果，对端会重算同一字符串。
func Sign(params map[string]string, apiKey string) string {
	content := buildSignContent(params)
	sum := md5.Sum([]byte(content + "&key=" + apiKey))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Verify 校验回调签名，失败即硬拒绝
func Verify(params map[string]string, apiKey string) error {
	sign := strings.TrimSpace(params["sign"])
	if sign == "" {
		return ErrSignatureInvalid
	}
	expected := Sign(params, apiKey)
	if !strings.EqualFold(expected, sign) {
		return ErrSignatureInvalid
	}
	return nil
}

func buildSignContent(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		if k == "sign" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, params[k]))
	}
	return strings.Join(pairs, "&")
}

// NonceStr 生成 32 位随机串
func NonceStr() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strings.ToUpper(hex.EncodeToString([]byte("fallback-nonce-str")))[:32]
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
