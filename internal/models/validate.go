package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// runPreferencesShape tags RunPreferences fields that matter at the API
// boundary; ItemIDs, when present, must be non-empty strings.
type runPreferencesShape struct {
	RunMode string   `validate:"omitempty,oneof=full partial"`
	ItemIDs []string `validate:"omitempty,dive,required"`
}

// Validate checks RunPreferences against the constraints the pipeline
// engine depends on (run mode enum, non-empty item ids when given).
func (p RunPreferences) Validate() error {
	shape := runPreferencesShape{RunMode: p.RunMode, ItemIDs: p.ItemIDs}
	if err := validate.Struct(shape); err != nil {
		return fmt.Errorf("invalid run preferences: %w", err)
	}
	return nil
}

type scheduleDefinitionShape struct {
	Name      string `validate:"required"`
	Frequency string `validate:"required,oneof=manual daily weekly monthly custom-cron"`
	CronExpr  string `validate:"omitempty"`
}

// Validate checks a ScheduleDefinition's required fields and enum values
// before it is persisted by the scheduler's store.
func (s ScheduleDefinition) Validate() error {
	shape := scheduleDefinitionShape{
		Name:      s.Name,
		Frequency: string(s.Frequency),
		CronExpr:  s.CronExpr,
	}
	if err := validate.Struct(shape); err != nil {
		return fmt.Errorf("invalid schedule definition: %w", err)
	}
	if s.Frequency == ScheduleCustomCron && s.CronExpr == "" {
		return fmt.Errorf("invalid schedule definition: cron_expr is required for custom-cron frequency")
	}
	return nil
}
