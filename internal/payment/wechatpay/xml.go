package wechatpay

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// v2 协议报文中数值字段不加 CDATA
var bareXMLFields = map[string]bool{
	"total_fee":   true,
	"refund_fee":  true,
	"cash_fee":    true,
	"coupon_fee":  true,
	"settlement_total_fee": true,
}

// EncodeXML 将参数编码为 v2 协议 XML 报文
func EncodeXML(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("<xml>")
	for _, k := range keys {
		v := params[k]
		if bareXMLFields[k] {
			sb.WriteString(fmt.Sprintf("<%s>%s</%s>", k, v, k))
			continue
		}
		sb.WriteString(fmt.Sprintf("<%s><![CDATA[%s]]></%s>", k, v, k))
	}
	sb.WriteString("</xml>")
	return sb.String()
}

// DecodeXML 解析 v2 协议 XML 报文为扁平键值对
func DecodeXML(body []byte) (map[string]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	params := make(map[string]string)
	var current string
	depth := 0
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				current = t.Name.Local
			}
		case xml.EndElement:
			depth--
			if depth < 1 {
				current = ""
			}
		case xml.CharData:
			if depth == 2 && current != "" {
				params[current] += string(t)
			}
		}
	}
	if len(params) == 0 {
		return nil, ErrResponseInvalid
	}
	for k, v := range params {
		params[k] = strings.TrimSpace(v)
	}
	return params, nil
}
