package sessioncreation

import (
	"fmt"
	"strings"

	"candidate-interview/internal/common/validation"
)

func validateInput(input *Input) error {
	if input.JobID <= 0 {
		return fmt.Errorf("job id must be positive")
	}
	if strings.TrimSpace(input.Profile.Email) == "" {
		return fmt.Errorf("profile email is required")
	}
	if input.File.Reference() == "" || len(input.File.Data) == 0 {
		return fmt.Errorf("resume file is required")
	}
	return nil
}

func sameEmail(a, b string) bool {
	return validation.NormalizeEmail(a) == validation.NormalizeEmail(b)
}
