package store

import (
	"encoding/json"
	"math/bits"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"github.com/ashwinyue/datalab/internal/model"
)

// ValueToString 将原始字段值转为文本。字符串原样返回，nil 为空串，
// 其余类型（数值、嵌套结构）序列化为 JSON 文本。
func ValueToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// Truncate 按字符截断文本，超出部分以 "..." 结尾
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}

// ExtractValue 按字段名取原始值，找不到时回退小写字段名
func ExtractValue(raw map[string]any, field string) (any, bool) {
	if field == "" || raw == nil {
		return nil, false
	}
	if value, ok := raw[field]; ok {
		return value, true
	}
	if value, ok := raw[strings.ToLower(field)]; ok {
		return value, true
	}
	return nil, false
}

// ExtractText 按字段名取文本值，未绑定或缺失返回空串
func ExtractText(raw map[string]any, field string) string {
	value, ok := ExtractValue(raw, field)
	if !ok {
		return ""
	}
	return ValueToString(value)
}

// TextLength 返回字符数而非字节数
func TextLength(text string) int {
	return utf8.RuneCountInString(text)
}

// LengthText 按长度统计范围拼出参与长度/关键词判断的文本
func LengthText(raw map[string]any, fieldMap model.FieldMap, scope string) string {
	switch scope {
	case model.ScopeOutput:
		return ExtractText(raw, fieldMap.Output)
	case model.ScopeCombined:
		instruction := ExtractText(raw, fieldMap.Instruction)
		output := ExtractText(raw, fieldMap.Output)
		return instruction + "\n" + output
	default:
		return ExtractText(raw, fieldMap.Instruction)
	}
}

// Fingerprint 去重指纹：instruction+output 压缩空白并转小写
func Fingerprint(raw map[string]any, fieldMap model.FieldMap) string {
	instruction := ExtractText(raw, fieldMap.Instruction)
	output := ExtractText(raw, fieldMap.Output)
	combined := instruction + " " + output
	return strings.ToLower(strings.Join(strings.Fields(combined), " "))
}

// Tokenize 切出长度大于 2 的小写字母数字词元
func Tokenize(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	})
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if len(part) > 2 {
			tokens = append(tokens, strings.ToLower(part))
		}
	}
	return tokens
}

// SimHash 对词元哈希按位投票得到 64 位签名
func SimHash(text string) uint64 {
	var weights [64]int
	for _, token := range Tokenize(text) {
		hash := xxhash.Sum64String(token)
		for idx := 0; idx < 64; idx++ {
			if (hash>>idx)&1 == 1 {
				weights[idx]++
			} else {
				weights[idx]--
			}
		}
	}
	var out uint64
	for idx := 0; idx < 64; idx++ {
		if weights[idx] > 0 {
			out |= 1 << idx
		}
	}
	return out
}

// Hamming 两个签名间的汉明距离
func Hamming(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
