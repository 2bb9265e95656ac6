// Package fieldmap 维护语义角色到原始字段名的绑定
package fieldmap

import (
	"strings"

	"github.com/ashwinyue/datalab/internal/model"
)

// 角色候选子串，按优先级排列；自动映射按数据集声明顺序扫描字段名，
// 取第一个命中候选子串（忽略大小写）的字段
var (
	instructionCandidates = []string{"instruction", "prompt", "input"}
	outputCandidates      = []string{"output", "response", "answer"}
	codeCandidates        = []string{"code", "solution"}
	categoryCandidates    = []string{"category", "lang", "type"}
	scoreCandidates       = []string{"score", "quality", "rating"}
)

// AutoMap 为尚未绑定的角色推荐字段，已由用户设定的绑定不会被覆盖
func AutoMap(current model.FieldMap, fields []string) model.FieldMap {
	mapped := current
	if mapped.Instruction == "" {
		mapped.Instruction = firstMatch(fields, instructionCandidates)
	}
	if mapped.Output == "" {
		mapped.Output = firstMatch(fields, outputCandidates)
	}
	if mapped.Code == "" {
		mapped.Code = firstMatch(fields, codeCandidates)
	}
	if mapped.Category == "" {
		mapped.Category = firstMatch(fields, categoryCandidates)
	}
	if mapped.Score == "" {
		mapped.Score = firstMatch(fields, scoreCandidates)
	}
	return mapped
}

func firstMatch(fields []string, candidates []string) string {
	for _, candidate := range candidates {
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field), candidate) {
				return field
			}
		}
	}
	return ""
}
