package extractor

import "regexp"

// InternshipKeywords 实习快速标签词表，返回结果按此顺序排列
var InternshipKeywords = []string{
	"python", "java", "react", "web development", "data science", "machine learning",
	"digital marketing", "content writing", "social media marketing", "ui/ux", "graphic design",
	"financial analysis", "business development", "excel", "sql", "communication", "marketing", "research",
}

var internshipPatterns = compileKeywordPatterns(InternshipKeywords)

type keywordPattern struct {
	keyword string
	re      *regexp.Regexp
}

func compileKeywordPatterns(keywords []string) []keywordPattern {
	patterns := make([]keywordPattern, 0, len(keywords))
	for _, k := range keywords {
		patterns = append(patterns, keywordPattern{
			keyword: k,
			re:      regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(k) + `\b`),
		})
	}
	return patterns
}

// MatchInternshipKeywords 返回全文中出现过的实习关键词（整词、忽略大小写）
func MatchInternshipKeywords(document string) []string {
	tags := []string{}
	seen := make(map[string]struct{})
	for _, p := range internshipPatterns {
		if _, ok := seen[p.keyword]; ok {
			continue
		}
		if p.re.MatchString(document) {
			seen[p.keyword] = struct{}{}
			tags = append(tags, p.keyword)
		}
	}
	return tags
}
