package domain

import (
	"fmt"
	"strings"
)

const minOptions = 2

// ValidationResult is the outcome of a pure validation pass.
type ValidationResult struct {
	Violations []Violation
}

// OK reports whether no rule was broken.
func (r ValidationResult) OK() bool {
	return len(r.Violations) == 0
}

// Err returns a *ValidationError, or nil when the result is OK.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Violations: r.Violations}
}

func (r *ValidationResult) add(field, message string, question, option int) {
	r.Violations = append(r.Violations, Violation{
		Field:         field,
		Message:       message,
		QuestionIndex: question,
		OptionIndex:   option,
	})
}

// ValidateQuestions checks the set is not empty and every question has a
// prompt, at least two options, no blank option text and exactly one correct
// option. All violations are collected so a batch can report them together.
func ValidateQuestions(questions []Question) ValidationResult {
	var res ValidationResult
	if len(questions) == 0 {
		res.add("questions", "at least one question is required", -1, -1)
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			res.add("text", "question text is required", i, -1)
		}
		if len(q.Options) < minOptions {
			res.add("options", fmt.Sprintf("at least %d options required, got %d", minOptions, len(q.Options)), i, -1)
		}
		correct := 0
		for j, opt := range q.Options {
			if strings.TrimSpace(opt.Text) == "" {
				res.add("options.text", "option text is required", i, j)
			}
			if opt.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			res.add("options.isCorrect", fmt.Sprintf("exactly one correct option required, got %d", correct), i, -1)
		}
	}
	return res
}

// ValidateTemplateInput checks the fields required to create a template.
func ValidateTemplateInput(in TemplateInput) ValidationResult {
	var res ValidationResult
	if strings.TrimSpace(in.Name) == "" {
		res.add("name", "name is required", -1, -1)
	}
	if strings.TrimSpace(in.Description) == "" {
		res.add("description", "description is required", -1, -1)
	}
	if in.Status != "" && !in.Status.Valid() {
		res.add("status", fmt.Sprintf("unknown status %q", in.Status), -1, -1)
	}
	validateSections(&res, in.Sections)
	return res
}

// ValidateTemplatePatch checks the fields present on an update.
func ValidateTemplatePatch(p TemplatePatch) ValidationResult {
	var res ValidationResult
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		res.add("name", "name must not be empty", -1, -1)
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		res.add("description", "description must not be empty", -1, -1)
	}
	if p.Status != nil && !p.Status.Valid() {
		res.add("status", fmt.Sprintf("unknown status %q", *p.Status), -1, -1)
	}
	validateSections(&res, p.Sections)
	return res
}

func validateSections(res *ValidationResult, sections []Section) {
	for i, s := range sections {
		if !s.Kind.Valid() {
			res.add(fmt.Sprintf("sections[%d].kind", i), fmt.Sprintf("unknown section kind %q", s.Kind), -1, -1)
		}
	}
}
