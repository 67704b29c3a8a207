package extractor

// ExtractJobTitles 全文匹配职位短语，按出现顺序返回并按原文精确去重
func ExtractJobTitles(document string, maxChars int) []string {
	text := truncateRunes(document, maxChars)
	titles := []string{}
	seen := make(map[string]struct{})
	for _, m := range titleRe.FindAllString(text, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		titles = append(titles, m)
	}
	return titles
}
