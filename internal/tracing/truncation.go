package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength 默认属性长度上限
	DefaultMaxLength = 200
	// MaxRedisLength Redis 键长度上限
	MaxRedisLength = 100
	// MaxResumeLength 简历内容长度上限
	MaxResumeLength = 150
)

// piiKeywords 属性名包含这些词时值需要掩码
var piiKeywords = []string{"email", "phone", "password", "address", "name", "secret", "token", "姓名", "地址"}

// SafeAttributeValue 敏感字段掩码，其余字段按 maxLength 截断
func SafeAttributeValue(name string, value string, maxLength int) string {
	lowerName := strings.ToLower(name)
	for _, keyword := range piiKeywords {
		if strings.Contains(lowerName, keyword) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII 保留首尾少量字符，中间替换为 *
func MaskPII(value string) string {
	if value == "" {
		return ""
	}
	runes := []rune(value)
	n := len(runes)
	switch {
	case n <= 1:
		return "*"
	case n == 2:
		return string(runes[0]) + "*"
	case n <= 4:
		return string(runes[0]) + strings.Repeat("*", n-2) + string(runes[n-1])
	}
	return string(runes[:2]) + strings.Repeat("*", n-4) + string(runes[n-2:])
}

// TruncateString 超长时保留首尾两段，中间用 ... 连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeRedisKey Redis 键截断
func SafeRedisKey(key string) string {
	return TruncateString(key, MaxRedisLength)
}

// SafeResumeContent 简历文本截断
func SafeResumeContent(content string) string {
	return TruncateString(content, MaxResumeLength)
}
