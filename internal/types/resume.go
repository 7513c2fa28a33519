// Package types provides type definitions for structured data used throughout the resume-builder system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// PresentEndDate is the endDate value used for ongoing roles.
const PresentEndDate = "Present"

// ResumeRecord is the structured resume shared by extraction, tailoring and rendering.
// JSON field names are the wire format consumed by the rendering layer.
type ResumeRecord struct {
	Profile    Profile      `json:"profile"`
	Summary    string       `json:"summary"`
	Experience []Experience `json:"experience"`
	Education  []Education  `json:"education"`
	Skills     []SkillGroup `json:"skills"`
	Projects   []Project    `json:"projects"` // optional; nil encodes as null so an empty list survives a round trip
}

// Profile holds the candidate's contact details
type Profile struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Website  string `json:"website,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
}

// Experience is a single role held by the candidate
type Experience struct {
	Company     string   `json:"company"`
	Role        string   `json:"role"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"` // PresentEndDate if current
	Location    string   `json:"location,omitempty"`
	Description []string `json:"description"` // Bullet points
}

// IsCurrent reports whether the role is ongoing.
func (e Experience) IsCurrent() bool {
	return e.EndDate == PresentEndDate
}

// Education is a degree entry
type Education struct {
	School         string `json:"school"`
	Degree         string `json:"degree"`
	GraduationDate string `json:"graduationDate"`
	GPA            string `json:"gpa,omitempty"`
}

// SkillGroup is a named category of skills
type SkillGroup struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

// Project is a side or portfolio project
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	Link         string   `json:"link,omitempty"`
}

// Clone returns a deep copy of the record. Required lists that are nil in the
// receiver come back as empty lists so the copy always serializes as the schema expects.
func (r *ResumeRecord) Clone() *ResumeRecord {
	if r == nil {
		return nil
	}

	out := &ResumeRecord{
		Profile:    r.Profile,
		Summary:    r.Summary,
		Experience: make([]Experience, 0, len(r.Experience)),
		Education:  make([]Education, 0, len(r.Education)),
		Skills:     make([]SkillGroup, 0, len(r.Skills)),
	}

	for _, exp := range r.Experience {
		exp.Description = cloneStrings(exp.Description)
		out.Experience = append(out.Experience, exp)
	}
	out.Education = append(out.Education, r.Education...)
	for _, group := range r.Skills {
		group.Items = cloneStrings(group.Items)
		out.Skills = append(out.Skills, group)
	}

	if r.Projects != nil {
		out.Projects = make([]Project, 0, len(r.Projects))
		for _, p := range r.Projects {
			p.Technologies = cloneStrings(p.Technologies)
			out.Projects = append(out.Projects, p)
		}
	}

	return out
}

// CountBullets returns the total number of experience bullet points.
func (r *ResumeRecord) CountBullets() int {
	count := 0
	for _, exp := range r.Experience {
		count += len(exp.Description)
	}
	return count
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
