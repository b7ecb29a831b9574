package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MatchwiseAI/matchwise-mvp/engine/domain"
	"github.com/MatchwiseAI/matchwise-mvp/engine/semantic"
)

// JobText renders a job record as the profile block that gets embedded.
func JobText(j domain.JobRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job Title: %s\n", j.Title)
	fmt.Fprintf(&b, "Company: %s\n", j.Company)
	fmt.Fprintf(&b, "Country: %s\n", j.Country)
	fmt.Fprintf(&b, "Experience Required: %d years\n", j.MinYearsExperience)
	fmt.Fprintf(&b, "Education Required: %s\n", j.MinEducation)
	fmt.Fprintf(&b, "Position Level: %s\n", j.PositionLevel)
	fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(j.Keywords, ", "))
	fmt.Fprintf(&b, "Description: %s\n", j.Description)
	return b.String()
}

// ApplicantText renders an applicant record as the profile block that
// gets embedded.
func ApplicantText(a domain.ApplicantRecord) string {
	education := make([]string, len(a.Education))
	for i, e := range a.Education {
		education[i] = fmt.Sprintf("%s in %s from %s", e.Degree, e.Field, e.Institution)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", a.Name)
	fmt.Fprintf(&b, "Years of Experience: %d\n", a.YearsOfExperience)
	fmt.Fprintf(&b, "Last Position: %s\n", a.LastPosition)
	fmt.Fprintf(&b, "Last Position Level: %s\n", a.LastPositionLevel)
	fmt.Fprintf(&b, "Work Authorization: %s\n", a.WorkAuthorization)
	fmt.Fprintf(&b, "Country of Origin: %s\n", a.CountryOfOrigin)
	fmt.Fprintf(&b, "Education: %s\n", strings.Join(education, ", "))
	fmt.Fprintf(&b, "Skills: %s\n", strings.Join(a.Skills(), ", "))
	fmt.Fprintf(&b, "Statement: %s\n", a.PersonalStatement)
	return b.String()
}

// JobMetadata flattens a job record into the index payload. The
// projection is recomputed wholesale on every upsert.
func JobMetadata(j domain.JobRecord) map[string]string {
	return map[string]string{
		"type":                 string(domain.KindJob),
		"title":                j.Title,
		"company":              j.Company,
		"country":              j.Country,
		"min_years_experience": strconv.Itoa(j.MinYearsExperience),
		"min_education":        j.MinEducation,
		"position_level":       j.PositionLevel,
		"keywords":             strings.Join(j.Keywords, ","),
	}
}

// ApplicantMetadata flattens an applicant record into the index payload.
func ApplicantMetadata(a domain.ApplicantRecord) map[string]string {
	return map[string]string{
		"type":                string(domain.KindApplicant),
		"name":                a.Name,
		"years_experience":    strconv.Itoa(a.YearsOfExperience),
		"last_position":       a.LastPosition,
		"last_position_level": a.LastPositionLevel,
		"work_authorization":  a.WorkAuthorization,
		"skills":              strings.Join(a.Skills(), ","),
	}
}

// JobVectorRecord pairs a job's id with its metadata projection and the
// given embedding, ready for upsert.
func JobVectorRecord(j domain.JobRecord, embedding []float32) semantic.VectorRecord {
	return semantic.VectorRecord{ID: j.ID, Embedding: embedding, Meta: JobMetadata(j)}
}

// ApplicantVectorRecord is the applicant counterpart of JobVectorRecord.
func ApplicantVectorRecord(a domain.ApplicantRecord, embedding []float32) semantic.VectorRecord {
	return semantic.VectorRecord{ID: a.ID, Embedding: embedding, Meta: ApplicantMetadata(a)}
}
