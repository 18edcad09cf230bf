package resumeintake

import (
	"fmt"
	"path/filepath"
	"strings"

	"candidate-interview/internal/common/validation"
	"candidate-interview/internal/models"
)

// GetProfileSchema is the contract a reviewed profile must meet before a
// session is created for it.
func GetProfileSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"firstName", "email", "phone"},
		Properties: map[string]validation.Property{
			"firstName": {
				Type:        "string",
				Description: "Candidate given name",
				MinLength:   intPtr(1),
				MaxLength:   intPtr(100),
			},
			"lastName": {
				Type:      "string",
				MaxLength: intPtr(100),
			},
			"email": {
				Type:        "string",
				Description: "Email extracted from the resume",
				Pattern:     validation.StringPtr(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`),
			},
			"phone": {
				Type:      "string",
				MinLength: intPtr(10),
				MaxLength: intPtr(32),
			},
			"location":          {Type: "string"},
			"resumeText":        {Type: "string"},
			"yearsOfExperience": {Type: "number", Minimum: validation.FloatPtr(0)},
			"workExperience":    {Type: "string"},
			"education":         {Type: "string"},
			"skills":            {Type: "array", Items: &validation.Property{Type: "string"}},
			"linkedinUrl":       {Type: "string"},
			"portfolioUrl":      {Type: "string"},
		},
		AdditionalProperties: false,
	}
}

var fieldMessages = map[string]string{
	"firstName": "Name must be at least 2 characters",
	"email":     "Please enter a valid email address",
	"phone":     "Please enter a valid phone number",
}

// ValidateProfile checks a reviewed profile and returns the first
// candidate-facing problem, or "" when the profile is acceptable.
func ValidateProfile(profile models.CandidateProfile) (string, error) {
	if len([]rune(strings.TrimSpace(profile.FullName()))) < 2 {
		return fieldMessages["firstName"], nil
	}

	result, err := validation.ValidateStruct(profile, GetProfileSchema())
	if err != nil {
		return "", err
	}
	if !result.Valid {
		first := result.FirstError("firstName", "email", "phone")
		if msg, ok := fieldMessages[first.Field]; ok {
			return msg, nil
		}
		return fmt.Sprintf("%s: %s", first.Field, first.Message), nil
	}

	if !validation.ValidatePhone(profile.Phone) {
		return fieldMessages["phone"], nil
	}
	for _, link := range []string{profile.LinkedInURL, profile.PortfolioURL} {
		if link != "" && !validation.ValidateURL(link) {
			return fmt.Sprintf("%q is not a valid link", link), nil
		}
	}
	return "", nil
}

// ValidateFile checks a resume document before it is sent anywhere and
// returns the candidate-facing problem, or "" when the file is acceptable.
func ValidateFile(file models.ResumeFile, cfg *Config) string {
	if strings.TrimSpace(file.Name) == "" {
		return "Please upload your resume"
	}
	if len(file.Data) == 0 {
		return "The resume file is empty"
	}
	if int64(len(file.Data)) > cfg.MaxFileSize {
		return fmt.Sprintf("The resume file must be at most %d KB", cfg.MaxFileSize>>10)
	}

	ext := strings.ToLower(filepath.Ext(file.Name))
	for _, allowed := range cfg.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return ""
		}
	}
	return fmt.Sprintf("Please upload a resume in one of these formats: %s", strings.Join(cfg.AllowedExtensions, ", "))
}

// NormalizeProfile trims the identity fields the rest of the flow compares.
func NormalizeProfile(profile models.CandidateProfile) models.CandidateProfile {
	profile.FirstName = strings.TrimSpace(profile.FirstName)
	profile.LastName = strings.TrimSpace(profile.LastName)
	profile.Email = strings.TrimSpace(profile.Email)
	profile.Phone = strings.TrimSpace(profile.Phone)
	profile.LinkedInURL = strings.TrimSpace(profile.LinkedInURL)
	profile.PortfolioURL = strings.TrimSpace(profile.PortfolioURL)

	skills := profile.Skills[:0:0]
	for _, s := range profile.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	profile.Skills = skills
	return profile
}

func intPtr(i int) *int {
	return &i
}
