package extractor

import (
	"regexp"

	"resume-ner-go/internal/types"
)

// headerKeywords 每个类别的章节标题关键词
var headerKeywords = map[types.Category]string{
	types.CategorySummary:        `summary|objective|profile`,
	types.CategoryEducation:      `education|academic|qualification`,
	types.CategoryExperience:     `experience|work history|employment|professional background`,
	types.CategorySkills:         `skills|expertise|technologies|competencies`,
	types.CategoryProjects:       `projects|portfolio`,
	types.CategoryCertifications: `certifications|certificates`,
	types.CategoryAwards:         `awards|honors|achievements`,
	types.CategoryPublications:   `publications|research`,
	types.CategoryLanguages:      `languages|proficiency`,
	types.CategoryInterests:      `interests|activities|hobbies`,
	types.CategoryReferences:     `references`,
}

// lookupExtras 抽取器查找自身章节时额外接受的标题词
var lookupExtras = map[types.Category]string{
	types.CategoryEducation: `degree`,
	types.CategorySkills:    `proficienc(?:y|ies)`,
}

type headerRule struct {
	category types.Category
	pattern  *regexp.Regexp
}

var (
	// headerRules 按枚举顺序排列，用于判定章节终点及平局裁决
	headerRules []headerRule

	headerPatterns = make(map[types.Category]*regexp.Regexp, len(types.AllCategories))
	lookupPatterns = make(map[types.Category]*regexp.Regexp, len(types.AllCategories))
)

func init() {
	for _, c := range types.AllCategories {
		header := regexp.MustCompile(`(?i)(?:` + headerKeywords[c] + `)`)
		headerRules = append(headerRules, headerRule{category: c, pattern: header})
		headerPatterns[c] = header

		lookup := header
		if extra, ok := lookupExtras[c]; ok {
			lookup = regexp.MustCompile(`(?i)(?:` + headerKeywords[c] + `|` + extra + `)`)
		}
		lookupPatterns[c] = lookup
	}
}

// HeaderPattern 返回类别的标题匹配规则，未知类别返回 nil
func HeaderPattern(c types.Category) *regexp.Regexp {
	return headerPatterns[c]
}

// LookupPattern 返回抽取器定位本类别章节时使用的规则（在标题规则上追加同义词）
func LookupPattern(c types.Category) *regexp.Regexp {
	return lookupPatterns[c]
}
