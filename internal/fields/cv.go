package fields

import (
	"regexp"
	"strings"
)

var (
	reCVNameLine    = regexp.MustCompile(`(?m)^([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`)
	reCVNameLabeled = regexp.MustCompile(`(?i)name[\s:]*([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`)
	reCVEmail       = regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	reCVPhone       = regexp.MustCompile(`(\+?\d{1,3}[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4})`)
	reCVSkillsHdr   = regexp.MustCompile(`(?i)^(?:skills|technical\s+skills|core\s+competencies)[\s:]*$`)
	reCVExpHdr      = regexp.MustCompile(`(?i)^(?:experience|work\s+history|employment)[\s:]*$`)
	reCVSkillBullet = regexp.MustCompile(`(?i)[•●\-*]\s*([A-Za-z][^\n]+(?:programming|development|design|management|analysis))`)
	reCVYears       = regexp.MustCompile(`(?i)(\d+)\+?\s*years?\s+(?:of\s+)?experience`)
	reCVJobTitle    = regexp.MustCompile(`(?m)^([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,4})(?:\s+(?:at|@|-)|$)`)
	reCVEducation   = regexp.MustCompile(`(?i)(?:bachelor|master|phd|b\.?s\.?|m\.?s\.?|degree)[\s:]*[^\n]*`)

	reCVTechnologies = regexp.MustCompile(`(?i)(JavaScript|TypeScript|Python|Java|C\+\+|C#|PHP|Ruby|Go|Rust|Swift|Kotlin|React|Angular|Vue|Node\.js|Express|Django|Flask|Spring|\.NET|SQL|MySQL|PostgreSQL|MongoDB|Redis|Docker|Kubernetes|AWS|Azure|GCP|Git|Jenkins|CI/CD|HTML|CSS|REST|GraphQL|Microservices|Agile|Scrum|Machine Learning|AI|TensorFlow|PyTorch)`)
)

func extractCV(text string) []Field {
	var out []Field

	name := firstSubmatch(reCVNameLine, text)
	if name == "" {
		name = firstSubmatch(reCVNameLabeled, text)
	}
	if name != "" {
		out = append(out, Field{Name: "name", Value: strings.TrimSpace(name), Confidence: 80})
	}

	if m := firstSubmatch(reCVEmail, text); m != "" {
		out = append(out, Field{Name: "email", Value: m, Confidence: 95})
	}
	if m := firstSubmatch(reCVPhone, text); m != "" {
		out = append(out, Field{Name: "phone", Value: m, Confidence: 85})
	}

	if skills := collectSkills(text); len(skills) > 0 {
		out = append(out, Field{Name: "skills", Value: strings.Join(skills, ", "), Confidence: 75})
	}

	if techs := collectTechnologies(text); len(techs) > 0 {
		out = append(out, Field{Name: "technologies", Value: strings.Join(techs, ", "), Confidence: 85})
	}

	if section := sectionAfter(text, reCVExpHdr); section != "" {
		if m := firstSubmatch(reCVYears, text); m != "" {
			out = append(out, Field{Name: "years_of_experience", Value: m, Confidence: 80})
		}
		if titles := collectJobTitles(section); len(titles) > 0 {
			out = append(out, Field{Name: "job_titles", Value: strings.Join(titles, ", "), Confidence: 70})
		}
	}

	if m := reCVEducation.FindString(text); m != "" {
		out = append(out, Field{Name: "education", Value: strings.TrimSpace(m), Confidence: 75})
	}

	return out
}

func firstSubmatch(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// sectionAfter returns the lines following a header line matched by headerRe,
// up to the next blank line or all-caps header.
func sectionAfter(text string, headerRe *regexp.Regexp) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !headerRe.MatchString(strings.TrimSpace(line)) {
			continue
		}
		var body []string
		for _, next := range lines[i+1:] {
			trimmed := strings.TrimSpace(next)
			if trimmed == "" || isUpperHeader(trimmed) {
				break
			}
			body = append(body, next)
		}
		return strings.Join(body, "\n")
	}
	return ""
}

// isUpperHeader reports whether a line looks like an ALL-CAPS section header.
func isUpperHeader(line string) bool {
	return len(line) > 1 &&
		line == strings.ToUpper(line) &&
		line != strings.ToLower(line)
}

func collectSkills(text string) []string {
	var skills []string
	if section := sectionAfter(text, reCVSkillsHdr); section != "" {
		skills = append(skills, strings.TrimSpace(section))
	}
	for _, m := range reCVSkillBullet.FindAllStringSubmatch(text, -1) {
		skills = append(skills, strings.TrimSpace(m[1]))
	}
	return dedupe(skills)
}

func collectTechnologies(text string) []string {
	matches := reCVTechnologies.FindAllString(text, -1)
	lowered := make([]string, len(matches))
	for i, m := range matches {
		lowered[i] = strings.ToLower(m)
	}
	return dedupe(lowered)
}

func collectJobTitles(section string) []string {
	var titles []string
	for _, m := range reCVJobTitle.FindAllStringSubmatch(section, -1) {
		titles = append(titles, strings.TrimSpace(m[1]))
		if len(titles) == 3 {
			break
		}
	}
	return titles
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
