package api

import "candidate-interview/internal/common/validation"

// Response schemas checked before a body is mapped. They pin the fields the
// session engine relies on and leave everything else open.
var (
	jobSchema = validation.MustCompileDocumentSchema("job configuration", `{
		"type": "object",
		"required": ["id", "title"],
		"properties": {
			"id": {"type": "integer", "minimum": 1},
			"title": {"type": "string"},
			"company_name": {"type": ["string", "null"]},
			"requires_quiz": {"type": ["boolean", "null"]},
			"requires_dsa": {"type": ["boolean", "null"]}
		}
	}`)

	resumeSchema = validation.MustCompileDocumentSchema("resume extraction", `{
		"type": "object",
		"properties": {
			"first_name": {"type": ["string", "null"]},
			"last_name": {"type": ["string", "null"]},
			"email": {"type": ["string", "null"]},
			"phone": {"type": ["string", "null"]},
			"skills": {"type": ["array", "string", "null"]}
		}
	}`)

	sessionSchema = validation.MustCompileDocumentSchema("interview session", `{
		"type": "object",
		"required": ["id"],
		"properties": {
			"id": {"type": ["integer", "string"]},
			"email": {"type": ["string", "null"]}
		}
	}`)

	analysisSchema = validation.MustCompileDocumentSchema("match analysis", `{
		"type": "object",
		"required": ["resume_match_score"],
		"properties": {
			"resume_match_score": {"type": "number", "minimum": 0, "maximum": 100},
			"resume_match_feedback": {"type": ["string", "null"]}
		}
	}`)

	quizSchema = validation.MustCompileDocumentSchema("quiz questions", `{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["id", "description", "options"],
			"properties": {
				"id": {"type": "integer"},
				"description": {"type": "string"},
				"options": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["id", "label"],
						"properties": {
							"id": {"type": "integer"},
							"label": {"type": "string"}
						}
					}
				}
			}
		}
	}`)

	questionsSchema = validation.MustCompileDocumentSchema("interview questions", `{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"required": ["question", "question_order"],
			"properties": {
				"question": {"type": "string", "minLength": 1},
				"question_order": {"type": "integer", "minimum": 0}
			}
		}
	}`)

	feedbackSchema = validation.MustCompileDocumentSchema("interview feedback", `{
		"type": "object",
		"required": ["score", "feedback"],
		"properties": {
			"score": {"type": "number", "minimum": 0, "maximum": 10},
			"feedback": {"type": "string"},
			"suggestions": {"type": ["array", "null"], "items": {"type": "string"}},
			"scoreBreakdown": {
				"type": ["object", "null"],
				"properties": {
					"technicalSkills": {"type": "number", "minimum": 0, "maximum": 100},
					"communication": {"type": "number", "minimum": 0, "maximum": 100},
					"problemSolving": {"type": "number", "minimum": 0, "maximum": 100},
					"culturalFit": {"type": "number", "minimum": 0, "maximum": 100}
				}
			}
		}
	}`)
)
