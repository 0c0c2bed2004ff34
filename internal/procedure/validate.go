package procedure

import (
	"fmt"
	"sort"

	"github.com/shaiso/ndo/internal/domain"
)

// Допустимые типы шагов.
var validStepTypes = map[string]bool{
	domain.StepTypeDelay:     true,
	domain.StepTypeHTTP:      true,
	domain.StepTypeTransform: true,
	domain.StepTypeRun:       true,
	domain.StepTypeParallel:  true,
	domain.StepTypeFail:      true,
}

// Validate выполняет полную валидацию ProcedureDef.
//
// Проверяет:
// - Наличие имени и шагов
// - Уникальность параметров
// - Уникальность ID шагов (шаги веток получают префикс {parallel}.{branch}.)
// - Корректность типов шагов
// - Валидность parallel веток и run шагов
//
// Существование процедур, вызываемых run шагами, не проверяется:
// реестр может получить их позже, неизвестное имя отклоняет run при запуске.
func Validate(def *domain.ProcedureDef) error {
	if def == nil {
		return ErrEmptySteps
	}
	if def.Name == "" {
		return NewValidationError("", "name", "procedure has empty name", ErrEmptyName)
	}
	if len(def.Steps) == 0 {
		return ErrEmptySteps
	}

	params := make(map[string]bool, len(def.Params))
	for _, p := range def.Params {
		if params[p] {
			return NewValidationError("", "params",
				fmt.Sprintf("duplicate param: %s", p), ErrDuplicateParam)
		}
		params[p] = true
	}

	return validateSteps(def.Steps, "", make(map[string]bool))
}

// validateSteps валидирует список шагов.
// prefix — префикс ID для шагов внутри веток.
func validateSteps(steps []domain.StepDef, prefix string, stepIDs map[string]bool) error {
	for i := range steps {
		if err := ValidateStep(&steps[i], prefix, stepIDs); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStep валидирует один шаг.
// stepIDs — уже встреченные полные ID шагов (для проверки уникальности).
func ValidateStep(step *domain.StepDef, prefix string, stepIDs map[string]bool) error {
	// Проверка ID
	if step.ID == "" {
		return NewValidationError(prefix, "id", "step has empty ID", ErrEmptyStepID)
	}

	fullID := prefix + step.ID

	// Проверка уникальности ID
	if stepIDs[fullID] {
		return NewValidationError(fullID, "id",
			fmt.Sprintf("duplicate step ID: %s", fullID), ErrDuplicateStepID)
	}
	stepIDs[fullID] = true

	// Проверка типа
	if err := validateStepType(fullID, step.Type); err != nil {
		return err
	}

	switch step.Type {
	case domain.StepTypeParallel:
		return validateParallelStep(step, fullID, stepIDs)
	case domain.StepTypeRun:
		if name, _ := step.Config["procedure"].(string); name == "" {
			return NewValidationError(fullID, "config.procedure",
				"run step has no procedure", ErrMissingProcedure)
		}
	}

	return nil
}

// validateStepType проверяет, что тип шага известен.
func validateStepType(stepID, stepType string) error {
	if stepType == "" {
		return NewValidationError(stepID, "type",
			"step has empty type", ErrUnknownStepType)
	}

	if !validStepTypes[stepType] {
		return NewValidationError(stepID, "type",
			fmt.Sprintf("unknown step type: %s", stepType), ErrUnknownStepType)
	}

	return nil
}

// validateParallelStep валидирует parallel шаг и его ветки.
func validateParallelStep(step *domain.StepDef, fullID string, stepIDs map[string]bool) error {
	if len(step.Branches) == 0 {
		return NewValidationError(fullID, "branches",
			"parallel step has no branches", ErrEmptyBranches)
	}

	branchIDs := make(map[string]bool)

	for i := range step.Branches {
		branch := &step.Branches[i]

		if branch.ID == "" {
			return NewValidationError(fullID, "branches",
				fmt.Sprintf("branch %d has empty ID", i), ErrEmptyBranchID)
		}

		if branchIDs[branch.ID] {
			return NewValidationError(fullID, "branches",
				fmt.Sprintf("duplicate branch ID: %s", branch.ID), ErrDuplicateBranchID)
		}
		branchIDs[branch.ID] = true

		if len(branch.Steps) == 0 {
			return NewValidationError(fullID, "branches",
				fmt.Sprintf("branch %s has no steps", branch.ID), ErrEmptyBranchSteps)
		}

		// {parallel_id}.{branch_id}.{step_id}
		if err := validateSteps(branch.Steps, fullID+"."+branch.ID+".", stepIDs); err != nil {
			return err
		}
	}

	return nil
}

// IsValidStepType проверяет, является ли тип шага допустимым.
func IsValidStepType(stepType string) bool {
	return validStepTypes[stepType]
}

// GetValidStepTypes возвращает отсортированный список допустимых типов шагов.
func GetValidStepTypes() []string {
	types := make([]string, 0, len(validStepTypes))
	for t := range validStepTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
