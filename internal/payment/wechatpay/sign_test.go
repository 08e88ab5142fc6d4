package wechatpay

import (
	"errors"
	"strings"
	"testing"
)

func sampleParams() map[string]string {
	return map[string]string{
		"appid":        "wx1234567890",
		"mch_id":       "1900000109",
		"nonce_str":    "ibuaiVcKdpRxkhJA",
		"body":         "血常规检测",
		"out_trade_no": "LC20260829123456",
		"total_fee":    "31200",
		"empty_field":  "",
	}
}

func TestSignDeterministic(t *testing.T) {
	params := sampleParams()
	first := Sign(params, "test-api-key")
	second := Sign(params, "test-api-key")
	if first != second {
		t.Fatalf("same input produced different signatures: %s vs %s", first, second)
	}
	if len(first) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", first)
	}
	if first != strings.ToUpper(first) {
		t.Fatalf("expected uppercase signature, got %q", first)
	}
}

func TestSignIgnoresEmptyAndSignFields(t *testing.T) {
	params := sampleParams()
	base := Sign(params, "test-api-key")

	params["sign"] = "SHOULD_BE_IGNORED"
	if got := Sign(params, "test-api-key"); got != base {
		t.Fatalf("sign field must not participate in signing")
	}

	delete(params, "empty_field")
	if got := Sign(params, "test-api-key"); got != base {
		t.Fatalf("empty values must not participate in signing")
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	params := sampleParams()
	params["sign"] = Sign(params, "test-api-key")
	if err := Verify(params, "test-api-key"); err != nil {
		t.Fatalf("verify failed on untouched payload: %v", err)
	}
}

func TestBuildJSAPIPayParamsSigned(t *testing.T) {
	client, err := NewClient(Config{
		AppID:  "wx1234567890",
		MchID:  "1900000109",
		APIKey: "test-api-key",
	})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}

	params := client.BuildJSAPIPayParams("wx-prepay-test")
	if params["package"] != "prepay_id=wx-prepay-test" {
		t.Fatalf("unexpected package field: %q", params["package"])
	}
	if len(params["nonceStr"]) != 32 {
		t.Fatalf("expected 32-char nonce, got %q", params["nonceStr"])
	}

	check := map[string]string{}
	for k, v := range params {
		if k == "paySign" {
			check["sign"] = v
			continue
		}
		check[k] = v
	}
	if err := Verify(check, "test-api-key"); err != nil {
		t.Fatalf("paySign does not verify: %v", err)
	}
}

func TestVerifyDetectsMutation(t *testing.T) {
	params := sampleParams()
	params["sign"] = Sign(params, "test-api-key")

	params["total_fee"] = "31201"
	if err := Verify(params, "test-api-key"); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid on mutated amount, got %v", err)
	}

	params["total_fee"] = "31200"
	if err := Verify(params, "wrong-api-key"); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid with wrong key, got %v", err)
	}

	delete(params, "sign")
	if err := Verify(params, "test-api-key"); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid on missing sign, got %v", err)
	}
}
