package extractor

import (
	"regexp"
	"sort"
	"strings"

	"resume-ner-go/internal/types"
)

// skillVocabulary 全文匹配的技术/领域词表
var skillVocabulary = []string{
	"javascript", "python", "java", "c++", "c#", "ruby", "php", "typescript", "golang", "rust", "scala",
	"html", "css", "angular", "vue", "node", "express", "django", "flask", "spring", "asp.net",
	"sql", "nosql", "mongodb", "postgresql", "mysql", "oracle", "redis", "elasticsearch",
	"aws", "azure", "gcp", "docker", "kubernetes", "terraform", "jenkins", "git", "jira",
	"agile", "scrum", "devops", "ci/cd", "rest", "graphql", "api", "microservices", "testing",
	"machine learning", "ai", "data science", "statistics", "analytics", "big data", "hadoop", "spark",
	"tensorflow", "pytorch", "pandas", "tableau", "power bi", "excel", "vba", "sap", "salesforce",
	"linux", "windows", "ios", "android", "swift", "kotlin", "objective-c", "mobile",
	"ui", "ux", "photoshop", "illustrator", "figma", "sketch", "indesign", "adobe",
}

var (
	vocabularyRe = buildVocabularyRe(skillVocabulary)
	skillSplitRe = regexp.MustCompile(`[,•●▪◦·\-\n]`)
)

// buildVocabularyRe 较长的词排在前面，避免 java 抢先匹配 javascript。
// 不使用 \b：c++、c# 这类以符号结尾的词需要自行判断词边界。
func buildVocabularyRe(words []string) *regexp.Regexp {
	sorted := append([]string(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
}

// SkillsExtractor 技能抽取：全文词表匹配 + 技能章节自由文本切分
type SkillsExtractor struct {
	maxDocumentChars int
	maxSectionChars  int
}

func NewSkillsExtractor(maxDocumentChars, maxSectionChars int) *SkillsExtractor {
	return &SkillsExtractor{maxDocumentChars: maxDocumentChars, maxSectionChars: maxSectionChars}
}

// Extract 先做词表匹配（结果转小写），再切分技能章节（保留原大小写），按小写去重并保持首次出现顺序
func (s *SkillsExtractor) Extract(document string, section *types.Section) []string {
	set := newSkillSet()

	text := truncateRunes(document, s.maxDocumentChars)
	for pos := 0; pos < len(text); {
		loc := vocabularyRe.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if wholeWord(text, start, end) {
			set.add(strings.ToLower(text[start:end]))
			pos = end
			continue
		}
		pos = start + 1
	}

	if section != nil {
		// 标题行也按普通词元处理，"Technical Skills: Kafka" 整体保留
		body := truncateRunes(section.Text, s.maxSectionChars)
		for _, token := range skillSplitRe.Split(body, -1) {
			token = strings.TrimSpace(token)
			if n := runeLen(token); n < 3 || n > 29 {
				continue
			}
			set.add(token)
		}
	}
	return set.items
}

type skillSet struct {
	seen  map[string]struct{}
	items []string
}

func newSkillSet() *skillSet {
	return &skillSet{seen: make(map[string]struct{}), items: []string{}}
}

func (s *skillSet) add(skill string) {
	key := strings.ToLower(skill)
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.items = append(s.items, skill)
}
