package extractor

import (
	"regexp"
	"strings"

	"resume-ner-go/internal/ner"
	"resume-ner-go/internal/types"
)

var (
	titleRe       = regexp.MustCompile(`(?i)\b(senior|junior|lead|principal|staff|chief|head|director|manager|supervisor|coordinator|specialist|engineer|developer|analyst|designer|consultant|associate|assistant|intern)\b\s*\w+`)
	achievementRe = regexp.MustCompile(`(?i)\b(achieved|improved|led|managed|created|developed|implemented|increased|reduced|designed|analyzed|organized|executed|coordinated|delivered|built|launched|negotiated|transformed)\b.*?[.]`)
	blockSplitRe  = regexp.MustCompile(`\n\s*\n`)
)

// ExperienceExtractor 从工作经历章节中抽取公司、职位、时间段和成果描述
type ExperienceExtractor struct {
	recognizer ner.Recognizer
	maxChars   int
}

func NewExperienceExtractor(recognizer ner.Recognizer, maxChars int) *ExperienceExtractor {
	return &ExperienceExtractor{recognizer: recognizer, maxChars: maxChars}
}

// Extract 每个识别出的公司生成一条记录，职位和时间段按相同下标配对。
// 成果描述取自第一个包含该公司名或同下标职位的段落。
func (e *ExperienceExtractor) Extract(section *types.Section) ([]types.ExperienceEntry, error) {
	entries := []types.ExperienceEntry{}
	if section == nil {
		return entries, nil
	}
	text := truncateRunes(section.Text, e.maxChars)

	companies, err := e.recognizer.Organizations(text)
	if err != nil {
		return nil, stageError("experience", err)
	}
	dates, err := e.recognizer.Dates(text)
	if err != nil {
		return nil, stageError("experience", err)
	}
	titles := titleRe.FindAllString(text, -1)
	blocks := blockSplitRe.Split(text, -1)

	for i, company := range companies {
		title := at(titles, i)

		window := ""
		for _, block := range blocks {
			if strings.Contains(block, company) || (title != nil && strings.Contains(block, *title)) {
				window = block
				break
			}
		}

		entry := types.ExperienceEntry{
			Company:      strPtr(company),
			Title:        title,
			Achievements: findAchievements(window),
		}
		if i < len(dates) {
			period := dates[i]
			entry.Period = &period
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func findAchievements(window string) []string {
	achievements := []string{}
	for _, m := range achievementRe.FindAllString(window, -1) {
		achievements = append(achievements, strings.TrimSpace(m))
	}
	return achievements
}
