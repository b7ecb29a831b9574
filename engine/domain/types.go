// Package domain defines the core record types, identifiers, and validation
// for the Matchwise matching engine. It acts as the validation gate at the
// extraction boundary.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind tags the two record variants held by the engine.
type Kind string

const (
	KindJob       Kind = "job"
	KindApplicant Kind = "applicant"
)

// Valid reports whether k is a recognised record kind.
func (k Kind) Valid() bool {
	return k == KindJob || k == KindApplicant
}

// Opposite returns the other record kind. Match queries always run
// against the opposite partition.
func (k Kind) Opposite() Kind {
	if k == KindJob {
		return KindApplicant
	}
	return KindJob
}

// NewID mints a globally unique, kind-prefixed record id, e.g.
// "job-9f1c..." or "applicant-03ab...".
func NewID(k Kind) string {
	return string(k) + "-" + uuid.NewString()
}

// KindOfID derives the record kind from an id prefix.
func KindOfID(id string) (Kind, error) {
	switch {
	case strings.HasPrefix(id, string(KindJob)+"-"):
		return KindJob, nil
	case strings.HasPrefix(id, string(KindApplicant)+"-"):
		return KindApplicant, nil
	}
	return "", ErrUnknownKind
}

// JobRecord is the structured form of a parsed job description.
type JobRecord struct {
	ID                 string   `json:"id"`
	URL                string   `json:"url,omitempty"`
	Title              string   `json:"title"`
	Company            string   `json:"company"`
	Description        string   `json:"description"`
	Country            string   `json:"country"`
	Date               string   `json:"date"`
	Sponsorship        bool     `json:"sponsorship"`
	MinYearsExperience int      `json:"minYearsExperience"`
	MinEducation       string   `json:"minEducation"`
	PositionLevel      string   `json:"positionLevel"`
	Keywords           []string `json:"keywords"`
	RecruiterID        string   `json:"recruiterId"`
	RecruiterName      string   `json:"recruiterName"`

	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// WorkExperience is a single role on an applicant's resume.
type WorkExperience struct {
	Company     string   `json:"company"`
	Title       string   `json:"title"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate,omitempty"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
}

// Education is a single qualification on an applicant's resume.
type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate,omitempty"`
}

// Project is a personal or professional project on a resume.
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	URL          string   `json:"url,omitempty"`
	Technologies []string `json:"technologies"`
}

// ApplicantRecord is the structured form of a parsed resume.
type ApplicantRecord struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	WorkAuthorization string           `json:"workAuthorization"`
	YearsOfExperience int              `json:"yearsOfExperience"`
	CountryOfOrigin   string           `json:"countryOfOrigin"`
	DateOfBirth       string           `json:"dateOfBirth,omitempty"`
	Address           string           `json:"address,omitempty"`
	PersonalStatement string           `json:"personalStatement"`
	ResumeFileType    string           `json:"resumeFileType"`
	WorkExperience    []WorkExperience `json:"workExperience"`
	Education         []Education      `json:"education"`
	LastPosition      string           `json:"lastPosition"`
	LastPositionLevel string           `json:"lastPositionLevel"`
	URLs              []string         `json:"urls,omitempty"`
	Projects          []Project        `json:"projects,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Skills returns the applicant's aggregated skill list, collected from
// work experience in order of first mention, without duplicates.
func (a ApplicantRecord) Skills() []string {
	seen := make(map[string]bool)
	var out []string
	for _, exp := range a.WorkExperience {
		for _, s := range exp.Skills {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Highlight annotates a match hit with up to a few standout tokens from
// a single metadata field.
type Highlight struct {
	Field   string   `json:"field"`
	Matches []string `json:"matches"`
}

// MatchResult is one ranked hit from a cross-partition similarity query.
// It is ephemeral and never persisted.
type MatchResult struct {
	Item       map[string]string `json:"item"`
	Score      float32           `json:"score"`
	Highlights []Highlight       `json:"highlights"`
}

// ComparisonResult is a persisted pairwise comparison between two
// applicants. Rows are append-only.
type ComparisonResult struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	PeerID          string    `json:"peerId"`
	SimilarityScore float64   `json:"similarityScore"`
	SkillGaps       []string  `json:"skillGaps"`
	Recommendations []string  `json:"recommendations"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Summary is a narrative description of a single job or applicant,
// generated from its indexed metadata.
type Summary struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	Insights  []string  `json:"insights"`
	CreatedAt time.Time `json:"createdAt"`
}

// HeatmapCell is one cell of a skill-by-candidate presence matrix.
type HeatmapCell struct {
	Skill     string  `json:"x"`
	Candidate string  `json:"y"`
	Value     float64 `json:"value"`
}
