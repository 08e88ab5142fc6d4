package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// LocaleZhCN 简体中文
	LocaleZhCN = "zh-CN"
	// LocaleEn 英文
	LocaleEn = "en"

	defaultLocale = LocaleZhCN
)

// ResolveLocale 从请求解析语言偏好（query lang 优先，其次 Accept-Language）
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return defaultLocale
	}
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return normalizeLocale(lang)
	}
	accept := c.GetHeader("Accept-Language")
	if accept == "" {
		return defaultLocale
	}
	first := strings.TrimSpace(strings.Split(accept, ",")[0])
	if idx := strings.Index(first, ";"); idx >= 0 {
		first = first[:idx]
	}
	return normalizeLocale(first)
}

// T 按语言取文案，缺失时回退默认语言，再缺失时返回 key 本身
func T(locale, key string) string {
	locale = normalizeLocale(locale)
	if table, ok := messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[defaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 取文案并格式化参数
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

func normalizeLocale(locale string) string {
	lower := strings.ToLower(strings.TrimSpace(locale))
	switch {
	case strings.HasPrefix(lower, "zh"):
		return LocaleZhCN
	case strings.HasPrefix(lower, "en"):
		return LocaleEn
	default:
		return defaultLocale
	}
}
