package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-ner-go/internal/types"
)

func TestLocateEndsAtNextHeader(t *testing.T) {
	doc := "Summary\nBuilt things\n\nExperience\nEngineer at Acme Labs\n\nSkills\nGo, SQL\n"

	sec := Locate(doc, types.CategoryExperience, LookupPattern(types.CategoryExperience))
	require.NotNil(t, sec)

	assert.Equal(t, types.CategoryExperience, sec.Category)
	assert.Equal(t, strings.Index(doc, "Experience"), sec.Start)
	assert.Equal(t, strings.Index(doc, "Skills"), sec.End, "终点应为 Skills 标题行的起点")
	assert.Equal(t, "Experience\nEngineer at Acme Labs", sec.Text)
}

func TestLocateAbsent(t *testing.T) {
	assert.Nil(t, LocateCategory("Jane Doe\nSome text\n", types.CategoryEducation))
	assert.Nil(t, LocateCategory("", types.CategoryEducation))
	assert.Nil(t, Locate("Education", types.CategoryEducation, nil))
}

func TestLocateCaseInsensitive(t *testing.T) {
	sec := LocateCategory("JANE DOE\nEDUCATION\nB.S. in Physics", types.CategoryEducation)
	require.NotNil(t, sec)
	assert.Equal(t, "EDUCATION\nB.S. in Physics", sec.Text)
}

func TestLocateLastLineHeader(t *testing.T) {
	doc := "foo\nSkills"
	sec := LocateCategory(doc, types.CategorySkills)
	require.NotNil(t, sec)
	assert.Equal(t, 4, sec.Start)
	assert.Equal(t, len(doc), sec.End)
	assert.Equal(t, "Skills", sec.Text)
}

func TestLocateRepeatedHeader(t *testing.T) {
	doc := "Experience\nfirst job\nExperience\nsecond job\n"
	sec := LocateCategory(doc, types.CategoryExperience)
	require.NotNil(t, sec)
	assert.Equal(t, "Experience\nfirst job", sec.Text)
	assert.Equal(t, strings.LastIndex(doc, "Experience"), sec.End)
}

func TestLookupPatternExtras(t *testing.T) {
	doc := "Degree\nB.A. in History\n\nProficiency\nExcel, Tableau"

	assert.Nil(t, LocateCategory(doc, types.CategoryEducation))
	edu := Locate(doc, types.CategoryEducation, LookupPattern(types.CategoryEducation))
	require.NotNil(t, edu)
	assert.Equal(t, "Degree\nB.A. in History", edu.Text)

	skills := Locate(doc, types.CategorySkills, LookupPattern(types.CategorySkills))
	require.NotNil(t, skills)
	assert.Equal(t, "Proficiency\nExcel, Tableau", skills.Text)
}

func TestNextHeaderTieBreak(t *testing.T) {
	tests := []struct {
		name string
		line string
		want types.Category
	}{
		{"技能与语言", "Skills and Languages", types.CategorySkills},
		{"研究项目", "Research Projects", types.CategoryProjects},
		{"兴趣与奖项", "Awards and Interests", types.CategoryAwards},
		{"简介", "Profile", types.CategorySummary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "Education\nB.S. in CS\n" + tt.line + "\nfoo"
			offset, category, ok := nextHeader(doc, len("Education"))
			require.True(t, ok)
			assert.Equal(t, strings.Index(doc, tt.line), offset)
			assert.Equal(t, tt.want, category)
		})
	}
}

func TestNextHeaderNone(t *testing.T) {
	doc := "Education\nB.S. in CS"
	_, _, ok := nextHeader(doc, len("Education"))
	assert.False(t, ok)

	_, _, ok = nextHeader(doc, len(doc))
	assert.False(t, ok)
}

// 任意输入下定位结果都落在 [Start, End) 区间内
func TestLocateContainment(t *testing.T) {
	docs := []string{
		"Jane Doe\n\nEducation\nBachelor of Science in Computer Science at MIT, 2019\n\nSkills\nPython, SQL, React\n",
		"  \n\nSkills   \n\n\n   Experience\n",
		"Objective: build things\r\nWork History\r\nAcme\r\n",
		"Références\nEducation\n日本語の履歴書\nSkills\n",
		"no headers at all",
		"Skills",
	}
	for _, doc := range docs {
		for _, c := range types.AllCategories {
			sec := LocateCategory(doc, c)
			if sec == nil {
				continue
			}
			assert.GreaterOrEqual(t, sec.Start, 0)
			assert.Less(t, sec.Start, sec.End)
			assert.LessOrEqual(t, sec.End, len(doc))
			assert.Contains(t, doc[sec.Start:sec.End], sec.Text)
			assert.Equal(t, c, sec.Category)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abcdef", 3))
	assert.Equal(t, "简历", truncateRunes("简历文本", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 0))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
}
