package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/viper"

	"github.com/mamadbah2/flockboard/internal/domain/models"
)

// DefaultVaccinationProgram is applied when no program file is configured.
func DefaultVaccinationProgram() models.VaccinationProgram {
	return models.VaccinationProgram{
		Name: "standard-layer",
		Steps: []models.ProgramStep{
			{AgeDay: 1, Vaccine: "Marek", Method: "injection"},
			{AgeDay: 7, Vaccine: "Newcastle + IB", Method: "eye drop"},
			{AgeDay: 14, Vaccine: "Gumboro", Method: "drinking water"},
			{AgeDay: 21, Vaccine: "Newcastle + IB booster", Method: "drinking water"},
			{AgeDay: 28, Vaccine: "Gumboro booster", Method: "drinking water"},
			{AgeDay: 42, Vaccine: "Fowl pox", Method: "wing web"},
			{AgeDay: 112, Vaccine: "Newcastle + IB + EDS", Method: "injection"},
		},
	}
}

// LoadVaccinationProgram reads a YAML or JSON program file. An empty path yields
// the default program.
func LoadVaccinationProgram(path string) (models.VaccinationProgram, error) {
	if path == "" {
		return DefaultVaccinationProgram(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return models.VaccinationProgram{}, fmt.Errorf("read vaccination program %s: %w", path, err)
	}

	var program models.VaccinationProgram
	if err := v.Unmarshal(&program); err != nil {
		return models.VaccinationProgram{}, fmt.Errorf("decode vaccination program %s: %w", path, err)
	}

	if err := validateProgram(program); err != nil {
		return models.VaccinationProgram{}, fmt.Errorf("vaccination program %s: %w", path, err)
	}

	sort.SliceStable(program.Steps, func(i, j int) bool {
		return program.Steps[i].AgeDay < program.Steps[j].AgeDay
	})

	return program, nil
}

func validateProgram(program models.VaccinationProgram) error {
	if len(program.Steps) == 0 {
		return errors.New("program has no steps")
	}
	for i, step := range program.Steps {
		if step.AgeDay < 1 {
			return fmt.Errorf("step %d: age_day must be >= 1", i)
		}
		if step.Vaccine == "" {
			return fmt.Errorf("step %d: vaccine must be provided", i)
		}
	}
	return nil
}
