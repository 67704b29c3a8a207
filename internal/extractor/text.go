package extractor

import "unicode/utf8"

const (
	DefaultMaxSectionChars  = 16384
	DefaultMaxDocumentChars = 65536
	DefaultNameWindowLines  = 5
)

// truncateRunes 截断到最多 limit 个字符，limit <= 0 表示不截断
func truncateRunes(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func strPtr(s string) *string {
	return &s
}

// at 返回 list[i] 的指针，越界时返回 nil
func at(list []string, i int) *string {
	if i < len(list) {
		return strPtr(list[i])
	}
	return nil
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// wholeWord 判断 text[start:end] 两侧是否不与 ASCII 单词字符相连
func wholeWord(text string, start, end int) bool {
	if start > 0 && isWordByte(text[start-1]) {
		return false
	}
	if end < len(text) && isWordByte(text[end]) {
		return false
	}
	return true
}
