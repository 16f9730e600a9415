package parser

import (
	"strings"

	"resume-optimizer/internal/resume"
)

var titleSeparators = []string{" | ", " - ", " – ", " — ", " at ", " @ ", ", "}

// splitHeading splits "Title - Company" style lines.
func splitHeading(line string) (left, right string) {
	for _, sep := range titleSeparators {
		if idx := strings.Index(line, sep); idx > 0 {
			return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+len(sep):])
		}
	}
	return strings.TrimSpace(line), ""
}

// entry is the shared shape of experience and education items.
type entry struct {
	heading   string
	sub       string
	dateRange string
	items     []string
}

// groupEntries splits section lines into entries. An entry starts at the
// first line, after a blank line, or at a non-bullet line that follows a
// bullet.
func groupEntries(lines []string) []entry {
	var entries []entry
	var cur *entry
	boundary := true

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			boundary = true
			continue
		}
		if resume.IsBullet(line) {
			if cur == nil {
				entries = append(entries, entry{})
				cur = &entries[len(entries)-1]
			}
			if item := resume.TrimBullet(line); item != "" {
				cur.items = append(cur.items, item)
			}
			boundary = false
			continue
		}

		if cur == nil || boundary || len(cur.items) > 0 {
			dr, rest := resume.ExtractDateRange(line)
			if cur != nil && dr != "" && rest == "" && cur.dateRange == "" && len(cur.items) == 0 {
				cur.dateRange = dr
				boundary = false
				continue
			}
			heading, sub := splitHeading(rest)
			entries = append(entries, entry{heading: heading, sub: sub, dateRange: dr})
			cur = &entries[len(entries)-1]
			boundary = false
			continue
		}

		dr, rest := resume.ExtractDateRange(line)
		switch {
		case dr != "" && cur.dateRange == "":
			cur.dateRange = dr
			if rest != "" {
				if cur.sub == "" {
					cur.sub = rest
				} else {
					cur.items = append(cur.items, rest)
				}
			}
		case cur.sub == "":
			cur.sub = line
		default:
			cur.items = append(cur.items, line)
		}
	}
	return entries
}

func parseExperience(lines []string) []resume.Experience {
	var out []resume.Experience
	for _, e := range groupEntries(lines) {
		if e.heading == "" && e.sub == "" && len(e.items) == 0 {
			continue
		}
		out = append(out, resume.Experience{
			Title:     e.heading,
			Company:   e.sub,
			DateRange: e.dateRange,
			Bullets:   e.items,
		})
	}
	return out
}

func parseEducation(lines []string) []resume.Education {
	var out []resume.Education
	for _, e := range groupEntries(lines) {
		if e.heading == "" && e.sub == "" && len(e.items) == 0 {
			continue
		}
		out = append(out, resume.Education{
			Degree:    e.heading,
			School:    e.sub,
			DateRange: e.dateRange,
			Details:   e.items,
		})
	}
	return out
}
