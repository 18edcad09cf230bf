package identityverification

import "candidate-interview/internal/common/validation"

func GetSendSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"email"},
		Properties: map[string]validation.Property{
			"email": {
				Type:      "string",
				MinLength: validation.IntPtr(3),
				MaxLength: validation.IntPtr(254),
			},
		},
		AdditionalProperties: false,
	}
}

// matchesResumeEmail requires the exact resume address. Case or spacing
// variants count as a different identity.
func matchesResumeEmail(email, resumeEmail string) bool {
	return resumeEmail != "" && email == resumeEmail
}
