package extractor

import (
	"regexp"
	"strings"

	"resume-ner-go/internal/types"
)

// Locate 在文档中定位一个章节。
// 起点是第一条匹配 pattern 的行首；终点是其后第一条匹配任一类别标题的行首，没有则到文档末尾。
// 找不到标题行时返回 nil。
func Locate(document string, category types.Category, pattern *regexp.Regexp) *types.Section {
	if pattern == nil || document == "" {
		return nil
	}

	start, headerEnd := -1, 0
	eachLine(document, 0, func(lineStart, lineEnd int) bool {
		if pattern.MatchString(document[lineStart:lineEnd]) {
			start, headerEnd = lineStart, lineEnd
			return false
		}
		return true
	})
	if start < 0 {
		return nil
	}

	end := len(document)
	if offset, _, ok := nextHeader(document, headerEnd); ok {
		end = offset
	}

	return &types.Section{
		Category: category,
		Start:    start,
		End:      end,
		Text:     strings.TrimSpace(document[start:end]),
	}
}

// LocateCategory 用类别的标题规则定位章节
func LocateCategory(document string, category types.Category) *types.Section {
	return Locate(document, category, HeaderPattern(category))
}

// nextHeader 从 from 所在行之后查找最早的标题行。
// 同一行匹配多个类别时取枚举顺序靠前的类别。
func nextHeader(document string, from int) (int, types.Category, bool) {
	if from >= len(document) {
		return 0, "", false
	}
	offset, category, found := 0, types.Category(""), false
	eachLine(document, from+1, func(lineStart, lineEnd int) bool {
		line := document[lineStart:lineEnd]
		for _, rule := range headerRules {
			if rule.pattern.MatchString(line) {
				offset, category, found = lineStart, rule.category, true
				return false
			}
		}
		return true
	})
	return offset, category, found
}

// eachLine 从 from 开始逐行回调 [lineStart, lineEnd)，lineEnd 不含换行符；回调返回 false 时停止
func eachLine(document string, from int, fn func(lineStart, lineEnd int) bool) {
	for i := from; i < len(document); {
		end := strings.IndexByte(document[i:], '\n')
		if end < 0 {
			fn(i, len(document))
			return
		}
		if !fn(i, i+end) {
			return
		}
		i += end + 1
	}
}
