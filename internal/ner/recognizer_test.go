package ner

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-ner-go/internal/types"
)

func newTestRecognizer(t *testing.T) *LexiconRecognizer {
	t.Helper()
	lex, err := BuiltinLexicon()
	require.NoError(t, err)
	r, err := NewLexiconRecognizer(lex)
	require.NoError(t, err)
	return r
}

func TestPeople(t *testing.T) {
	r := newTestRecognizer(t)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"独占一行的姓名", "Jane Doe\n\nEducation", []string{"Jane Doe"}},
		{"全大写姓名", "PRIYA RAMAN\nSoftware Engineer", []string{"PRIYA RAMAN"}},
		{"句中已知首名", "Referred by Michael Scott at the office", []string{"Michael Scott"}},
		{"停用词截断", "John Smith Resume", []string{"John Smith"}},
		{"章节标题不是人名", "Work Experience\nTechnical Skills", nil},
		{"机构不是人名", "Acme Labs", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.People(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrganizations(t *testing.T) {
	r := newTestRecognizer(t)

	got, err := r.Organizations("Bachelor of Science at MIT, 2019\nSoftware Engineer at Acme Labs\nMassachusetts Institute of Technology")
	require.NoError(t, err)
	assert.Equal(t, []string{"MIT", "Acme Labs", "Massachusetts Institute of Technology"}, got)
}

func TestOrganizationsUniversityOf(t *testing.T) {
	r := newTestRecognizer(t)

	got, err := r.Organizations("M.S. in Data Science, University of California Berkeley, 2021")
	require.NoError(t, err)
	assert.Equal(t, []string{"University of California Berkeley"}, got)
}

func TestOrganizationsNone(t *testing.T) {
	r := newTestRecognizer(t)

	got, err := r.Organizations("python, sql and some lowercase text")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDates(t *testing.T) {
	r := newTestRecognizer(t)

	got, err := r.Dates("Jan 2019 - Present\nGraduated 2018\n03/2016 to 2017-08")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, types.DateExpression{Text: "Jan 2019 - Present", Normal: "2019-01/present", Start: "2019-01", End: "present"}, got[0])
	assert.Equal(t, types.DateExpression{Text: "2018", Normal: "2018"}, got[1])
	assert.Equal(t, "2016-03/2017-08", got[2].Normal)
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2020":           "2020",
		"2020-11":        "2020-11",
		"7/2015":         "2015-07",
		"September 2021": "2021-09",
		"Sept 2021":      "2021-09",
		"Dec. 2012":      "2012-12",
		"Current":        Present,
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeDate(in), in)
	}
}

func TestParseLexiconRequiresSuffixes(t *testing.T) {
	_, err := ParseLexicon([]byte("first_names: [jane]\n"))
	assert.ErrorIs(t, err, ErrEmptyLexicon)

	_, err = ParseLexicon([]byte("first_names: [unclosed\n"))
	assert.Error(t, err)
}

func TestLazyLoadsOnce(t *testing.T) {
	var calls int32
	lazy := NewLazy(func() (Recognizer, error) {
		atomic.AddInt32(&calls, 1)
		lex, err := BuiltinLexicon()
		if err != nil {
			return nil, err
		}
		return NewLexiconRecognizer(lex)
	})
	assert.False(t, lazy.Loaded())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lazy.People("Jane Doe")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, lazy.Loaded())
}

func TestLazyKeepsLoadError(t *testing.T) {
	boom := errors.New("boom")
	lazy := NewLazy(func() (Recognizer, error) { return nil, boom })

	_, err := lazy.Organizations("Acme Labs")
	assert.ErrorIs(t, err, boom)
	_, err = lazy.Dates("2019")
	assert.ErrorIs(t, err, boom)
}

func TestDefaultIsShared(t *testing.T) {
	ResetDefault()
	defer ResetDefault()

	a := Default("")
	b := Default("ignored-after-first-call.yaml")
	assert.Same(t, a, b)

	people, err := a.People("Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, []string{"Jane Doe"}, people)
}
