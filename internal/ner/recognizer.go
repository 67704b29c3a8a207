package ner

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"resume-ner-go/internal/types"
)

// Recognizer 命名实体识别能力：人名、机构名、日期，均按出现顺序返回
type Recognizer interface {
	People(text string) ([]string, error)
	Organizations(text string) ([]string, error)
	Dates(text string) ([]types.DateExpression, error)
}

var _ Recognizer = (*LexiconRecognizer)(nil)

var (
	capSequenceRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:[-'][A-Z]?[a-z]+)?(?:[ \t]+(?:[A-Z]\.|[A-Z][a-z]+(?:[-'][A-Z]?[a-z]+)?)){1,3}\b`)
	nameTokenRe   = regexp.MustCompile(`^(?:[A-Z]\.|[A-Z][A-Za-z]*(?:[-'][A-Za-z]+)?)$`)
)

// LexiconRecognizer 基于词典和大小写规则的识别器。构建后只读，可并发使用。
type LexiconRecognizer struct {
	firstNames map[string]struct{}
	stopWords  map[string]struct{}

	knownOrgRe  *regexp.Regexp
	suffixOrgRe *regexp.Regexp
	headOfRe    *regexp.Regexp
}

// NewLexiconRecognizer 根据词典编译识别规则
func NewLexiconRecognizer(lex *Lexicon) (*LexiconRecognizer, error) {
	if lex == nil || len(lex.OrgSuffixes) == 0 {
		return nil, ErrEmptyLexicon
	}

	r := &LexiconRecognizer{
		firstNames: lowerSet(lex.FirstNames),
		stopWords:  lowerSet(lex.StopWords, lex.OrgSuffixes, lex.KnownOrganizations),
	}

	var err error
	if len(lex.KnownOrganizations) > 0 {
		r.knownOrgRe, err = regexp.Compile(`\b(?:` + alternation(lex.KnownOrganizations) + `)\b`)
		if err != nil {
			return nil, err
		}
	}

	r.suffixOrgRe, err = regexp.Compile(`\b[A-Z][\w'&-]*(?:[ \t]+(?:of[ \t]+)?[A-Z][\w'&-]*){0,4}?[ \t]+(?:` +
		alternation(lex.OrgSuffixes) + `)\b`)
	if err != nil {
		return nil, err
	}

	if len(lex.InstitutionHeads) > 0 {
		r.headOfRe, err = regexp.Compile(`\b(?:` + alternation(lex.InstitutionHeads) +
			`)[ \t]+of[ \t]+[A-Z][\w'-]*(?:[ \t]+(?:of[ \t]+|and[ \t]+)?[A-Z][\w'-]*){0,3}`)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// alternation 按长度倒序拼接，保证较长的词优先匹配
func alternation(words []string) string {
	sorted := append([]string(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

// People 识别人名：独占一行的 2-3 个首字母大写词，或以已知首名开头的大写词串
func (r *LexiconRecognizer) People(text string) ([]string, error) {
	var people []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if r.isNameLine(trimmed) {
			people = append(people, trimmed)
			continue
		}
		for _, m := range capSequenceRe.FindAllString(trimmed, -1) {
			for _, run := range r.nameRuns(strings.Fields(m)) {
				if _, ok := r.firstNames[strings.ToLower(run[0])]; ok {
					people = append(people, strings.Join(run, " "))
				}
			}
		}
	}
	return people, nil
}

func (r *LexiconRecognizer) isNameLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 3 {
		return false
	}
	for _, f := range fields {
		if !nameTokenRe.MatchString(f) || r.isStopWord(f) {
			return false
		}
	}
	return !strings.HasSuffix(fields[0], ".")
}

// nameRuns 以停用词为界切分，返回长度 >= 2 的词串（最多取 3 个词）
func (r *LexiconRecognizer) nameRuns(tokens []string) [][]string {
	var runs [][]string
	var cur []string
	flush := func() {
		if len(cur) >= 2 {
			if len(cur) > 3 {
				cur = cur[:3]
			}
			runs = append(runs, cur)
		}
		cur = nil
	}
	for _, tok := range tokens {
		if r.isStopWord(tok) {
			flush()
			continue
		}
		cur = append(cur, tok)
	}
	flush()
	return runs
}

func (r *LexiconRecognizer) isStopWord(tok string) bool {
	_, ok := r.stopWords[strings.ToLower(strings.TrimRight(tok, "."))]
	return ok
}

type span struct{ start, end int }

// Organizations 识别机构名：已知机构、"<大写词> 后缀"、"<机构类词> of <名称>"，重叠区间合并
func (r *LexiconRecognizer) Organizations(text string) ([]string, error) {
	var spans []span
	collect := func(re *regexp.Regexp) {
		if re == nil {
			return
		}
		for _, loc := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, span{loc[0], loc[1]})
		}
	}
	collect(r.knownOrgRe)
	collect(r.suffixOrgRe)
	collect(r.headOfRe)
	if len(spans) == 0 {
		return nil, nil
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start < last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}

	orgs := make([]string, 0, len(merged))
	for _, s := range merged {
		name := strings.TrimFunc(text[s.start:s.end], func(r rune) bool {
			return unicode.IsSpace(r) || r == ',' || r == '.'
		})
		if name != "" {
			orgs = append(orgs, name)
		}
	}
	return orgs, nil
}

// Dates 识别日期与日期区间
func (r *LexiconRecognizer) Dates(text string) ([]types.DateExpression, error) {
	return findDates(text), nil
}
