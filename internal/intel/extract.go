// Package intel mines generated resumes and job descriptions for analytics
// facts. Extraction is best effort and never fails a generation.
package intel

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"resume-optimizer/internal/resume"
)

// Facts is the analytics record for one generation.
type Facts struct {
	Skills          []string `json:"skills"`
	JobTitles       []string `json:"jobTitles"`
	Companies       []string `json:"companies"`
	Technologies    []string `json:"technologies"`
	Keywords        []string `json:"keywords"`
	ExperienceYears int      `json:"experienceYears"`
	EducationLevel  string   `json:"educationLevel"`
	Industries      []string `json:"industries"`
	JDKeywords      []string `json:"jobDescriptionKeywords"`
}

const (
	maxKeywords   = 20
	maxJDKeywords = 25
)

// Education levels, highest first.
const (
	EducationPhD        = "phd"
	EducationMasters    = "masters"
	EducationBachelors  = "bachelors"
	EducationAssociate  = "associate"
	EducationHighSchool = "high_school"
	EducationUnknown    = "unknown"
)

var educationPatterns = []struct {
	level string
	re    *regexp.Regexp
}{
	{EducationPhD, regexp.MustCompile(`(?i)\b(ph\.?d|doctor(ate)?|d\.phil)\b`)},
	{EducationMasters, regexp.MustCompile(`(?i)\b(master'?s?|m\.?s\.?c?|m\.?a\.|mba|m\.eng)\b`)},
	{EducationBachelors, regexp.MustCompile(`(?i)\b(bachelor'?s?|b\.?s\.?c?|b\.?a\.|b\.eng|bba)\b`)},
	{EducationAssociate, regexp.MustCompile(`(?i)\bassociate'?s?\b`)},
	{EducationHighSchool, regexp.MustCompile(`(?i)\b(high school|ged|secondary school)\b`)},
}

var technologies = []string{
	"go", "golang", "python", "java", "kotlin", "scala", "rust", "c++", "c#", "ruby", "php",
	"javascript", "typescript", "node.js", "react", "vue", "angular", "next.js",
	"sql", "postgresql", "mysql", "mongodb", "redis", "kafka", "rabbitmq", "elasticsearch",
	"aws", "gcp", "azure", "docker", "kubernetes", "terraform", "ansible", "jenkins",
	"graphql", "grpc", "rest", "spark", "hadoop", "airflow", "snowflake", "tableau",
	"pytorch", "tensorflow", "linux", "git", "salesforce", "excel",
}

var industryKeywords = map[string][]string{
	"fintech":    {"payments", "banking", "fintech", "trading", "lending", "insurance"},
	"healthcare": {"healthcare", "clinical", "patient", "hospital", "pharma", "medical"},
	"ecommerce":  {"ecommerce", "e-commerce", "retail", "marketplace", "checkout"},
	"saas":       {"saas", "b2b", "subscription", "platform"},
	"education":  {"education", "edtech", "university", "learning", "students"},
	"government": {"government", "public sector", "federal", "municipal"},
	"media":      {"media", "streaming", "publishing", "advertising", "adtech"},
	"logistics":  {"logistics", "supply chain", "shipping", "warehouse", "fleet"},
}

var stopwords = func() map[string]struct{} {
	words := strings.Fields(`a about above after again all also am an and any are as at be because been
before being below between both but by can could did do does doing down during each few for from
further had has have having he her here hers him his how i if in into is it its itself just me more
most my no nor not of off on once only or other our ours out over own same she should so some such
than that the their them then there these they this those through to too under until up very was we
were what when where which while who whom why will with would you your yours years year team work
working worked using used including within across strong experience role ability responsible`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

var wordPattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+#.\-]*[A-Za-z0-9+#]|[A-Za-z]`)

// Extract derives Facts from doc and the job description. now supplies
// the year used for open-ended date ranges.
func Extract(doc resume.Document, jobDescription string, now time.Time) Facts {
	facts := Facts{
		Skills:         doc.Skills.All(),
		EducationLevel: EducationUnknown,
	}
	for _, e := range doc.Experience {
		if e.Title != "" {
			facts.JobTitles = appendUnique(facts.JobTitles, e.Title)
		}
		if e.Company != "" {
			facts.Companies = appendUnique(facts.Companies, e.Company)
		}
	}

	body := documentText(doc)
	facts.Technologies = matchTechnologies(body)
	facts.Keywords = topKeywords(body, maxKeywords)
	facts.JDKeywords = topKeywords(jobDescription, maxJDKeywords)
	facts.ExperienceYears = experienceYears(doc, now.Year())
	facts.EducationLevel = educationLevel(doc)
	facts.Industries = matchIndustries(body + "\n" + jobDescription)
	return facts
}

func documentText(doc resume.Document) string {
	if !doc.HasSections() {
		return doc.Raw
	}
	var b strings.Builder
	b.WriteString(doc.Summary)
	b.WriteByte('\n')
	for _, e := range doc.Experience {
		b.WriteString(e.Title + " " + e.Company + "\n")
		for _, bullet := range e.Bullets {
			b.WriteString(bullet + "\n")
		}
	}
	for _, e := range doc.Education {
		b.WriteString(e.Degree + " " + e.School + "\n")
		b.WriteString(strings.Join(e.Details, "\n") + "\n")
	}
	b.WriteString(strings.Join(doc.Skills.All(), ", "))
	b.WriteByte('\n')
	b.WriteString(strings.Join(doc.Certifications, "\n"))
	return b.String()
}

// experienceYears sums every experience range. Overlapping roles are
// counted twice; callers treat the value as a hint.
func experienceYears(doc resume.Document, currentYear int) int {
	total := 0
	if doc.HasSections() {
		for _, e := range doc.Experience {
			if start, end, ok := resume.YearSpan(e.DateRange, currentYear); ok {
				total += end - start
			}
		}
		return total
	}
	for _, line := range strings.Split(doc.Raw, "\n") {
		if dr, _ := resume.ExtractDateRange(line); dr != "" {
			if start, end, ok := resume.YearSpan(dr, currentYear); ok {
				total += end - start
			}
		}
	}
	return total
}

func educationLevel(doc resume.Document) string {
	var text string
	if doc.HasSections() {
		var parts []string
		for _, e := range doc.Education {
			parts = append(parts, e.Degree, e.School)
			parts = append(parts, e.Details...)
		}
		text = strings.Join(parts, "\n")
	} else {
		text = doc.Raw
	}
	for _, p := range educationPatterns {
		if p.re.MatchString(text) {
			return p.level
		}
	}
	return EducationUnknown
}

func tokens(text string) []string {
	raw := wordPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		out = append(out, strings.TrimRight(t, "."))
	}
	return out
}

func matchTechnologies(text string) []string {
	present := make(map[string]struct{})
	for _, t := range tokens(text) {
		present[t] = struct{}{}
	}
	var out []string
	for _, tech := range technologies {
		if _, ok := present[tech]; ok {
			out = append(out, tech)
		}
	}
	return out
}

func matchIndustries(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for industry, words := range industryKeywords {
		for _, w := range words {
			if containsWord(lower, w) {
				out = append(out, industry)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		before := start == 0 || !isWordByte(text[start-1])
		after := end == len(text) || !isWordByte(text[end])
		if before && after {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// topKeywords ranks non-stopword tokens by frequency, ties broken
// alphabetically.
func topKeywords(text string, limit int) []string {
	counts := make(map[string]int)
	for _, t := range tokens(text) {
		if len(t) < 3 {
			continue
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		counts[t]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if strings.EqualFold(existing, v) {
			return list
		}
	}
	return append(list, v)
}
