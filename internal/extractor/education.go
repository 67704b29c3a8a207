package extractor

import (
	"regexp"

	"resume-ner-go/internal/ner"
	"resume-ner-go/internal/types"
)

var (
	degreeRe = regexp.MustCompile(`(?i)\b(bachelor|master|ph\.?d\.?|diploma|certificate|b\.?s\.?|m\.?s\.?|b\.?a\.?|m\.?a\.?|b\.?e\.?|m\.?e\.?|b\.?tech\.?|m\.?tech\.?)\b.*?\b(of|in|on)\b.*?(\w+)`)
	gpaRe    = regexp.MustCompile(`(?i)\b([0-9]\.?[0-9]*)\s*/\s*([0-9]\.?[0-9]*)|([0-9]{2,3})(\s*)%|cgpa|[0-9]\.?[0-9]*`)
)

// EducationExtractor 从教育章节中抽取院校、学位、日期、成绩。
// 四个列表各自独立抽取，再按下标配对。
type EducationExtractor struct {
	recognizer ner.Recognizer
	maxChars   int
}

// NewEducationExtractor maxChars 为进入正则前的章节长度上限
func NewEducationExtractor(recognizer ner.Recognizer, maxChars int) *EducationExtractor {
	return &EducationExtractor{recognizer: recognizer, maxChars: maxChars}
}

// Extract section 为 nil 时返回空列表
func (e *EducationExtractor) Extract(section *types.Section) ([]types.EducationEntry, error) {
	entries := []types.EducationEntry{}
	if section == nil {
		return entries, nil
	}
	text := truncateRunes(section.Text, e.maxChars)

	institutions, err := e.recognizer.Organizations(text)
	if err != nil {
		return nil, stageError("education", err)
	}
	dates, err := e.recognizer.Dates(text)
	if err != nil {
		return nil, stageError("education", err)
	}
	degrees := degreeRe.FindAllString(text, -1)
	gpas := gpaRe.FindAllString(text, -1)

	n := len(institutions)
	if len(degrees) > n {
		n = len(degrees)
	}
	for i := 0; i < n; i++ {
		entry := types.EducationEntry{
			Institution: at(institutions, i),
			Degree:      at(degrees, i),
			GPA:         at(gpas, i),
		}
		if i < len(dates) {
			entry.Date = strPtr(dates[i].Text)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
