// Package seed loads profiles and budget lines from YAML files.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"finanzas/internal/core"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultSeed []byte

type (
	File struct {
		Profiles []Profile `yaml:"profiles"`
	}

	Profile struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Budgets     []Year `yaml:"budgets"`
	}

	Year struct {
		Year  int    `yaml:"year"`
		Lines []Line `yaml:"lines"`
	}

	Line struct {
		Group    string `yaml:"group"`
		Name     string `yaml:"name"`
		Monthly  string `yaml:"monthly"`
		Annual   string `yaml:"annual"`
		IsAnnual bool   `yaml:"is_annual"`
	}
)

// Target is the part of a ledger store seeding writes to.
type Target interface {
	UpsertProfile(ctx context.Context, p core.Profile) error
	CreateBudgetLine(ctx context.Context, bl core.BudgetLine) (core.BudgetLine, error)
}

type Result struct {
	Profiles     int
	LinesCreated int
	LinesSkipped int
}

// Default returns the embedded seed.
func Default() (File, error) {
	return Parse(defaultSeed)
}

// Load reads a seed file from disk. An empty path selects the default seed.
func Load(path string) (File, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse seed: %w", err)
	}
	if _, _, err := f.Domain(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Domain converts the file into validated domain values.
func (f File) Domain() ([]core.Profile, []core.BudgetLine, error) {
	var (
		profiles []core.Profile
		lines    []core.BudgetLine
	)
	for _, p := range f.Profiles {
		if p.ID == "" {
			return nil, nil, fmt.Errorf("seed profile %q: %w", p.Name, core.ErrEmptyProfile)
		}
		profiles = append(profiles, core.Profile{ID: p.ID, Name: p.Name, Description: p.Description})
		for _, y := range p.Budgets {
			for _, l := range y.Lines {
				bl, err := l.budgetLine(p.ID, y.Year)
				if err != nil {
					return nil, nil, fmt.Errorf("seed %s/%d %q: %w", p.ID, y.Year, l.Name, err)
				}
				lines = append(lines, bl)
			}
		}
	}
	return profiles, lines, nil
}

func (l Line) budgetLine(profileID string, year int) (core.BudgetLine, error) {
	group, err := core.ParseBudgetGroup(l.Group)
	if err != nil {
		return core.BudgetLine{}, err
	}
	bl := core.BudgetLine{
		ProfileID: profileID,
		Group:     group,
		Name:      l.Name,
		IsAnnual:  l.IsAnnual,
		Year:      year,
	}
	if l.Monthly != "" {
		if bl.MonthlyAmount, err = core.ParseAmount(l.Monthly); err != nil {
			return core.BudgetLine{}, err
		}
	}
	if l.Annual != "" {
		if bl.AnnualAmount, err = core.ParseAmount(l.Annual); err != nil {
			return core.BudgetLine{}, err
		}
	}
	bl = bl.Normalize()
	return bl, bl.Validate()
}

// Apply writes the seed into target. Profiles are upserted; budget lines
// that already exist are left untouched, so applying twice is harmless.
func Apply(ctx context.Context, target Target, f File) (Result, error) {
	profiles, lines, err := f.Domain()
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, p := range profiles {
		if err := target.UpsertProfile(ctx, p); err != nil {
			return res, fmt.Errorf("seed profile %s: %w", p.ID, err)
		}
		res.Profiles++
	}
	for _, bl := range lines {
		_, err := target.CreateBudgetLine(ctx, bl)
		switch {
		case errors.Is(err, core.ErrConflict):
			res.LinesSkipped++
		case err != nil:
			return res, fmt.Errorf("seed budget line %s/%q: %w", bl.ProfileID, bl.Name, err)
		default:
			res.LinesCreated++
		}
	}

	slog.InfoContext(ctx, "Seed applied",
		"profiles", res.Profiles,
		"lines_created", res.LinesCreated,
		"lines_skipped", res.LinesSkipped)
	return res, nil
}
