package resume

import (
	"regexp"
	"strings"
)

var dateRangePattern = regexp.MustCompile(`(?i)\b((?:19|20)\d{2})\s*(?:-|–|—|to)\s*((?:19|20)\d{2}|present|current)\b`)

// ExtractDateRange finds a "YYYY - YYYY|Present" range in line. It returns
// the normalized range and line with the range and dangling separators
// removed. rangeText is empty when no range is present.
func ExtractDateRange(line string) (rangeText, rest string) {
	loc := dateRangePattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return "", strings.TrimSpace(line)
	}
	start := line[loc[2]:loc[3]]
	end := line[loc[4]:loc[5]]
	switch strings.ToLower(end) {
	case "present", "current":
		end = "Present"
	}
	rangeText = start + " - " + end

	rest = line[:loc[0]] + line[loc[1]:]
	rest = strings.TrimSpace(rest)
	rest = strings.Trim(rest, "|,;()[]")
	rest = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), "-"))
	return rangeText, strings.TrimSpace(rest)
}

// YearSpan parses a normalized range into start and end years. Present
// resolves to currentYear.
func YearSpan(rangeText string, currentYear int) (start, end int, ok bool) {
	m := dateRangePattern.FindStringSubmatch(rangeText)
	if m == nil {
		return 0, 0, false
	}
	start = atoi(m[1])
	switch strings.ToLower(m[2]) {
	case "present", "current":
		end = currentYear
	default:
		end = atoi(m[2])
	}
	if end < start {
		return 0, 0, false
	}
	return start, end, true
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// ParseSkills detects whether lines form a categorized list ("Category: a, b")
// or a flat list and splits the items.
func ParseSkills(lines []string) Skills {
	var cleaned []string
	for _, l := range lines {
		l = strings.TrimSpace(TrimBullet(l))
		if l != "" {
			cleaned = append(cleaned, l)
		}
	}
	if len(cleaned) == 0 {
		return Skills{}
	}

	categorized := 0
	for _, l := range cleaned {
		if name, items, ok := splitCategory(l); ok && name != "" && items != "" {
			categorized++
		}
	}

	// Categorized when most lines carry a "Name:" prefix.
	if categorized*2 > len(cleaned) {
		var cats []SkillCategory
		for _, l := range cleaned {
			name, items, ok := splitCategory(l)
			if !ok {
				if len(cats) == 0 {
					cats = append(cats, SkillCategory{Name: "Other"})
				}
				last := &cats[len(cats)-1]
				last.Skills = append(last.Skills, splitItems(l)...)
				continue
			}
			if list := splitItems(items); len(list) > 0 {
				cats = append(cats, SkillCategory{Name: name, Skills: list})
			}
		}
		return Skills{Categories: cats}
	}

	var flat []string
	for _, l := range cleaned {
		flat = append(flat, splitItems(l)...)
	}
	return Skills{Flat: dedupe(flat)}
}

func splitCategory(line string) (name, items string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 || idx > 40 {
		return "", "", false
	}
	name = strings.TrimSpace(line[:idx])
	if strings.Contains(name, "http") {
		return "", "", false
	}
	return name, strings.TrimSpace(line[idx+1:]), true
}

func splitItems(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '|' || r == '•' || r == '·'
	})
	return dedupe(fields)
}

func dedupe(items []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(items))
	for _, f := range items {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		key := strings.ToLower(f)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}

var bulletPrefixes = []string{"•", "-", "*", "·", "–"}

// IsBullet reports whether line starts with a bullet marker.
func IsBullet(line string) bool {
	t := strings.TrimSpace(line)
	for _, p := range bulletPrefixes {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}

// TrimBullet removes a leading bullet marker.
func TrimBullet(line string) string {
	t := strings.TrimSpace(line)
	for _, p := range bulletPrefixes {
		if strings.HasPrefix(t, p) {
			return strings.TrimSpace(strings.TrimPrefix(t, p))
		}
	}
	return t
}
