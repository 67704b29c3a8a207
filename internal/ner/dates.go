package ner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"resume-ner-go/internal/types"
)

const (
	monthPattern  = `Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?`
	singleDate    = `(?:(?:` + monthPattern + `)\.?,?[ \t]+(?:19|20)\d{2}|(?:0?[1-9]|1[0-2])/(?:19|20)\d{2}|(?:19|20)\d{2}-(?:0[1-9]|1[0-2])|(?:19|20)\d{2})`
	openEndedDate = `present|current|now|today`

	// Present 进行中区间的终点
	Present = "present"
)

var (
	dateRe = regexp.MustCompile(`(?i)\b(` + singleDate + `)(?:[ \t]*(?:-|–|—|to|until)[ \t]*(` + singleDate + `|` + openEndedDate + `))?\b`)

	monthYearRe = regexp.MustCompile(`(?i)^(` + monthPattern + `)\.?,?[ \t]+(\d{4})$`)
	slashDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)
	isoMonthRe  = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	yearOnlyRe  = regexp.MustCompile(`^\d{4}$`)

	monthIndex = map[string]int{
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
		"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
	}
)

func findDates(text string) []types.DateExpression {
	matches := dateRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	dates := make([]types.DateExpression, 0, len(matches))
	for _, m := range matches {
		expr := types.DateExpression{Text: m[0]}
		start := normalizeDate(m[1])
		if m[2] == "" {
			expr.Normal = start
		} else {
			end := normalizeDate(m[2])
			expr.Start, expr.End = start, end
			expr.Normal = start + "/" + end
		}
		dates = append(dates, expr)
	}
	return dates
}

// normalizeDate 归一化为 YYYY 或 YYYY-MM；无法识别时原样返回
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	switch lower {
	case "present", "current", "now", "today":
		return Present
	}

	if yearOnlyRe.MatchString(raw) {
		return raw
	}
	if m := isoMonthRe.FindStringSubmatch(raw); m != nil {
		return m[1] + "-" + m[2]
	}
	if m := slashDateRe.FindStringSubmatch(raw); m != nil {
		month, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("%s-%02d", m[2], month)
	}
	if m := monthYearRe.FindStringSubmatch(raw); m != nil {
		return normalizeMonthYear(m[1], m[2])
	}
	return raw
}

// normalizeMonthYear 月份名交给 dateparse 解析，它不认识的缩写（如 Sept）按前三个字母查表
func normalizeMonthYear(month, year string) string {
	if t, err := dateparse.ParseIn(fmt.Sprintf("%s 1, %s", month, year), time.UTC); err == nil {
		return t.Format("2006-01")
	}
	if len(month) >= 3 {
		if idx, ok := monthIndex[strings.ToLower(month[:3])]; ok {
			return fmt.Sprintf("%s-%02d", year, idx)
		}
	}
	return year
}
