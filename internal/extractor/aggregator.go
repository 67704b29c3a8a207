package extractor

import (
	"fmt"
	"strings"

	"resume-ner-go/internal/logger"
	"resume-ner-go/internal/ner"
	"resume-ner-go/internal/types"
)

// Option 聚合器选项
type Option func(*EntityAggregator)

// WithMaxSectionChars 章节进入正则前的长度上限
func WithMaxSectionChars(n int) Option {
	return func(a *EntityAggregator) {
		if n > 0 {
			a.maxSectionChars = n
		}
	}
}

// WithMaxDocumentChars 全文扫描前的长度上限
func WithMaxDocumentChars(n int) Option {
	return func(a *EntityAggregator) {
		if n > 0 {
			a.maxDocumentChars = n
		}
	}
}

// WithNameWindowLines 猜测姓名时查看的开头行数
func WithNameWindowLines(n int) Option {
	return func(a *EntityAggregator) {
		if n > 0 {
			a.nameWindowLines = n
		}
	}
}

// EntityAggregator 对一份简历文本执行全部抽取步骤并组装 ResumeRecord。
// 任一步骤失败都不返回部分结果。无内部可变状态，可并发调用。
type EntityAggregator struct {
	recognizer ner.Recognizer

	maxSectionChars  int
	maxDocumentChars int
	nameWindowLines  int

	education  *EducationExtractor
	experience *ExperienceExtractor
	skills     *SkillsExtractor
}

// NewEntityAggregator recognizer 通常是 ner.Default 返回的惰性识别器
func NewEntityAggregator(recognizer ner.Recognizer, opts ...Option) *EntityAggregator {
	a := &EntityAggregator{
		recognizer:       recognizer,
		maxSectionChars:  DefaultMaxSectionChars,
		maxDocumentChars: DefaultMaxDocumentChars,
		nameWindowLines:  DefaultNameWindowLines,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.education = NewEducationExtractor(recognizer, a.maxSectionChars)
	a.experience = NewExperienceExtractor(recognizer, a.maxSectionChars)
	a.skills = NewSkillsExtractor(a.maxDocumentChars, a.maxSectionChars)
	return a
}

// Extract 返回完整记录或错误，二者只会有一个非空。
// 空白输入返回 ErrInvalidInput；其余失败（包括 panic）返回 *ExtractionError。
func (a *EntityAggregator) Extract(document string) (record *types.ResumeRecord, err error) {
	if strings.TrimSpace(document) == "" {
		return nil, ErrInvalidInput
	}
	if a.recognizer == nil {
		return nil, &ExtractionError{Stage: "init", Reason: "no entity recognizer configured"}
	}

	stage := "name"
	defer func() {
		if r := recover(); r != nil {
			record = nil
			err = &ExtractionError{Stage: stage, Reason: fmt.Sprint(r)}
		}
		if err != nil {
			logger.Warn().Err(err).Str("stage", stage).Msg("简历实体抽取失败")
		}
	}()

	rec := &types.ResumeRecord{}

	rec.Name, err = a.guessName(document)
	if err != nil {
		return nil, err
	}

	stage = "education"
	rec.Education, err = a.education.Extract(Locate(document, types.CategoryEducation, LookupPattern(types.CategoryEducation)))
	if err != nil {
		return nil, err
	}

	stage = "experience"
	rec.Experience, err = a.experience.Extract(Locate(document, types.CategoryExperience, LookupPattern(types.CategoryExperience)))
	if err != nil {
		return nil, err
	}

	stage = "skills"
	rec.Skills = a.skills.Extract(document, Locate(document, types.CategorySkills, LookupPattern(types.CategorySkills)))

	stage = "job_titles"
	rec.JobTitles = ExtractJobTitles(document, a.maxDocumentChars)

	stage = "entities"
	full := truncateRunes(document, a.maxDocumentChars)
	dates, err := a.recognizer.Dates(full)
	if err != nil {
		return nil, stageError(stage, err)
	}
	rec.Dates = append([]types.DateExpression{}, dates...)
	orgs, err := a.recognizer.Organizations(full)
	if err != nil {
		return nil, stageError(stage, err)
	}
	rec.Organizations = append([]string{}, orgs...)

	stage = "sections"
	rec.Sections = make(map[types.Category]*string, len(types.AllCategories))
	for _, c := range types.AllCategories {
		if section := LocateCategory(document, c); section != nil {
			rec.Sections[c] = strPtr(section.Text)
		} else {
			rec.Sections[c] = nil
		}
	}

	logger.Debug().
		Int("education", len(rec.Education)).
		Int("experience", len(rec.Experience)).
		Int("skills", len(rec.Skills)).
		Int("job_titles", len(rec.JobTitles)).
		Msg("简历实体抽取完成")
	return rec, nil
}

// guessName 只在开头几行中识别人名，取第一个。各行保持换行分隔，识别器逐行判断，跨行的姓名不会合并
func (a *EntityAggregator) guessName(document string) (*string, error) {
	lines := strings.SplitN(document, "\n", a.nameWindowLines+1)
	if len(lines) > a.nameWindowLines {
		lines = lines[:a.nameWindowLines]
	}
	people, err := a.recognizer.People(strings.Join(lines, "\n"))
	if err != nil {
		return nil, stageError("name", err)
	}
	if len(people) == 0 {
		return nil, nil
	}
	return strPtr(people[0]), nil
}
