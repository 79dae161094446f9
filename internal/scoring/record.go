package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PersonalInfo holds the contact block of a resume.
type PersonalInfo struct {
	Name      string
	Email     string
	Phone     string
	Headline  string
	Location  string
	LinkedIn  string
	GitHub    string
	Portfolio string
}

// ExperienceEntry is a single position. Bullets are already split and trimmed.
type ExperienceEntry struct {
	Title    string
	Company  string
	Location string
	Bullets  []string
}

// EducationEntry is a single education record.
type EducationEntry struct {
	Degree      string
	Institution string
}

// ProjectEntry is a single project record.
type ProjectEntry struct {
	Name        string
	Description string
	Link        string
}

// Resume is the structured resume consumed by the scorers.
//
// Decoding is shape tolerant: a missing or wrongly typed field is treated as
// absent. A list element that is not an object still counts as an entry, but
// with every field empty.
type Resume struct {
	PersonalInfo *PersonalInfo
	Summary      string
	Experience   []ExperienceEntry
	Education    []EducationEntry
	Skills       []string
	Projects     []ProjectEntry
}

// Job is a job posting. Only Title and Description materially affect scoring.
type Job struct {
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
	Salary      string
	Source      string
}

var errNotObject = errors.New("must be a JSON object")

// ParseResume decodes resume JSON text. The only failure is input that is not a
// JSON object; everything inside the object is decoded leniently.
func ParseResume(data []byte) (*Resume, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("resume %w: %w", errNotObject, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("resume %w", errNotObject)
	}
	return ResumeFromMap(doc), nil
}

// ParseJob decodes job posting JSON text.
func ParseJob(data []byte) (*Job, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("job %w: %w", errNotObject, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("job %w", errNotObject)
	}
	return JobFromMap(doc), nil
}

// UnmarshalJSON implements json.Unmarshaler with the lenient rules of ResumeFromMap.
func (r *Resume) UnmarshalJSON(data []byte) error {
	parsed, err := ParseResume(data)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

// UnmarshalJSON implements json.Unmarshaler with the lenient rules of JobFromMap.
func (j *Job) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJob(data)
	if err != nil {
		return err
	}
	*j = *parsed
	return nil
}

// ResumeFromMap builds a Resume from a generic decoded JSON document.
func ResumeFromMap(doc map[string]any) *Resume {
	r := &Resume{
		Summary: field(doc, "summary"),
	}

	if personal, ok := doc["personal_info"].(map[string]any); ok {
		r.PersonalInfo = &PersonalInfo{
			Name:      field(personal, "name"),
			Email:     field(personal, "email"),
			Phone:     field(personal, "phone"),
			Headline:  field(personal, "headline"),
			Location:  field(personal, "location"),
			LinkedIn:  field(personal, "linkedin"),
			GitHub:    field(personal, "github"),
			Portfolio: field(personal, "portfolio"),
		}
	}

	for _, item := range list(doc, "experience") {
		entry, _ := item.(map[string]any)
		r.Experience = append(r.Experience, ExperienceEntry{
			Title:    field(entry, "title"),
			Company:  field(entry, "company"),
			Location: field(entry, "location"),
			Bullets:  bullets(entry["description"]),
		})
	}

	for _, item := range list(doc, "education") {
		entry, _ := item.(map[string]any)
		r.Education = append(r.Education, EducationEntry{
			Degree:      field(entry, "degree"),
			Institution: field(entry, "institution"),
		})
	}

	for _, item := range list(doc, "projects") {
		entry, _ := item.(map[string]any)
		r.Projects = append(r.Projects, ProjectEntry{
			Name:        field(entry, "name"),
			Description: field(entry, "description"),
			Link:        field(entry, "link"),
		})
	}

	for _, item := range list(doc, "skills") {
		r.Skills = append(r.Skills, stringify(item))
	}

	return r
}

// JobFromMap builds a Job from a generic decoded JSON document. A salary is
// only recognized when it is a string.
func JobFromMap(doc map[string]any) *Job {
	salary, _ := doc["salary"].(string)
	return &Job{
		Title:       field(doc, "title"),
		Company:     field(doc, "company"),
		Location:    field(doc, "location"),
		Description: field(doc, "description"),
		URL:         field(doc, "url"),
		Salary:      salary,
		Source:      field(doc, "source"),
	}
}

// Titles returns the titles of the first n experience entries, skipping empty ones.
func (r *Resume) Titles(n int) []string {
	if r == nil {
		return nil
	}
	titles := make([]string, 0, n)
	for i, entry := range r.Experience {
		if i >= n {
			break
		}
		if t := strings.TrimSpace(entry.Title); t != "" {
			titles = append(titles, t)
		}
	}
	return titles
}

// AllBullets returns every bullet across all experience entries in order.
func (r *Resume) AllBullets() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, entry := range r.Experience {
		out = append(out, entry.Bullets...)
	}
	return out
}

// Text flattens the resume into newline separated text used for keyword matching.
func (r *Resume) Text() string {
	if r == nil {
		return ""
	}

	var parts []string
	if p := r.PersonalInfo; p != nil {
		parts = append(parts, p.Name, p.Headline, p.Location)
	}
	parts = append(parts, r.Summary)
	parts = append(parts, r.Skills...)

	for _, e := range r.Experience {
		parts = append(parts, e.Title, e.Company, e.Location)
		parts = append(parts, e.Bullets...)
	}
	for _, e := range r.Education {
		parts = append(parts, e.Degree, e.Institution)
	}
	for _, p := range r.Projects {
		parts = append(parts, p.Name, p.Description, p.Link)
	}

	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

func field(doc map[string]any, key string) string {
	if doc == nil {
		return ""
	}
	return stringify(doc[key])
}

func list(doc map[string]any, key string) []any {
	items, _ := doc[key].([]any)
	return items
}

// bullets accepts either a list of strings or a multi-line string.
func bullets(v any) []string {
	var raw []string
	switch val := v.(type) {
	case string:
		raw = strings.Split(strings.ReplaceAll(val, "\r\n", "\n"), "\n")
	case []any:
		for _, item := range val {
			raw = append(raw, stringify(item))
		}
	default:
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, b := range raw {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}
