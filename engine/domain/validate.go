package domain

import "strings"

// Placeholder values used when extraction could not determine a field.
const (
	UnknownTitle     = "Unknown Position"
	UnknownCompany   = "Unknown Company"
	UnknownName      = "Unknown Applicant"
	UnknownCountry   = "Unknown"
	NotSpecified     = "Not Specified"
	DefaultRecruiter = "Recruitment Team"
)

// NormalizeJob fills safe defaults into a freshly extracted job record so
// that every downstream consumer sees a complete record. The id is minted
// here if the model did not return one.
func NormalizeJob(j *JobRecord) {
	if _, err := KindOfID(j.ID); err != nil {
		j.ID = NewID(KindJob)
	}
	if strings.TrimSpace(j.Title) == "" {
		j.Title = UnknownTitle
	}
	if strings.TrimSpace(j.Company) == "" {
		j.Company = UnknownCompany
	}
	if strings.TrimSpace(j.Country) == "" {
		j.Country = UnknownCountry
	}
	if strings.TrimSpace(j.MinEducation) == "" {
		j.MinEducation = "None"
	}
	if strings.TrimSpace(j.PositionLevel) == "" {
		j.PositionLevel = NotSpecified
	}
	if j.MinYearsExperience < 0 {
		j.MinYearsExperience = 0
	}
	if j.Keywords == nil {
		j.Keywords = []string{}
	}
	if strings.TrimSpace(j.RecruiterID) == "" {
		j.RecruiterID = "recruiter-1"
	}
	if strings.TrimSpace(j.RecruiterName) == "" {
		j.RecruiterName = DefaultRecruiter
	}
}

// NormalizeApplicant fills safe defaults into a freshly extracted
// applicant record, mirroring NormalizeJob.
func NormalizeApplicant(a *ApplicantRecord) {
	if _, err := KindOfID(a.ID); err != nil {
		a.ID = NewID(KindApplicant)
	}
	if strings.TrimSpace(a.Name) == "" {
		a.Name = UnknownName
	}
	if strings.TrimSpace(a.WorkAuthorization) == "" {
		a.WorkAuthorization = NotSpecified
	}
	if strings.TrimSpace(a.CountryOfOrigin) == "" {
		a.CountryOfOrigin = UnknownCountry
	}
	if strings.TrimSpace(a.ResumeFileType) == "" {
		a.ResumeFileType = "PDF"
	}
	if strings.TrimSpace(a.LastPosition) == "" {
		a.LastPosition = NotSpecified
	}
	if strings.TrimSpace(a.LastPositionLevel) == "" {
		a.LastPositionLevel = NotSpecified
	}
	if a.YearsOfExperience < 0 {
		a.YearsOfExperience = 0
	}
	if a.WorkExperience == nil {
		a.WorkExperience = []WorkExperience{}
	}
	if a.Education == nil {
		a.Education = []Education{}
	}
}
