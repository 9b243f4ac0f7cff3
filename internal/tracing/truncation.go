package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength 默认最大属性长度
	DefaultMaxLength = 200

	// MaxSQLLength SQL语句最大长度
	MaxSQLLength = 500

	// MaxRedisLength Redis键值最大长度
	MaxRedisLength = 100

	// MaxQueryLength 检索语句最大长度
	MaxQueryLength = 120

	// MaxReplyLength 模型回复最大长度
	MaxReplyLength = 300
)

// maskPIILookup 需要掩码处理的字段关键字
var maskPIILookup = map[string]bool{
	"email":         true,
	"contactnumber": true,
	"contact":       true,
	"phone":         true,
	"address":       true,
	"candidatename": true,
	"name":          true,
	"password":      true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
}

// SafeAttributeValue 敏感字段返回掩码值，其余超长时截断
func SafeAttributeValue(name string, value string, maxLength int) string {
	lowerName := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	for keyword := range maskPIILookup {
		if strings.Contains(lowerName, keyword) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII 对个人敏感信息进行掩码处理
func MaskPII(value string) string {
	if value == "" {
		return ""
	}

	runes := []rune(value)
	length := len(runes)

	if length <= 1 {
		return "*"
	}
	// "张三" -> "张*", "王小明" -> "王*明"
	if length <= 4 {
		if length == 2 {
			return string(runes[0:1]) + "*"
		}
		return string(runes[0:1]) + strings.Repeat("*", length-2) + string(runes[length-1:])
	}

	// "jane@x.com" -> "ja******om"
	return string(runes[0:2]) + strings.Repeat("*", length-4) + string(runes[length-2:])
}

// TruncateString 截断字符串，保留首尾并用省略号连接
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

// SafeSQL 安全处理SQL语句
func SafeSQL(sql string) string {
	return TruncateString(sql, MaxSQLLength)
}

// SafeRedisKey 安全处理Redis键
func SafeRedisKey(key string) string {
	return TruncateString(key, MaxRedisLength)
}

// SafeQuery 检索语句只保留首尾，避免把完整需求写入链路
func SafeQuery(query string) string {
	return TruncateString(query, MaxQueryLength)
}

// SafeModelReply 模型回复可能包含整份简历内容，写日志前截断
func SafeModelReply(reply string) string {
	return TruncateString(reply, MaxReplyLength)
}
