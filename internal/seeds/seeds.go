package seeds

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/EmpoweredVote/EV-Dilemmas/internal/dilemmas"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
)

//go:embed dilemmas.yaml
var defaultDilemmas []byte

type seedFile struct {
	Dilemmas []seedDilemma `yaml:"dilemmas"`
}

type seedDilemma struct {
	ID          string       `yaml:"id"`
	Title       string       `yaml:"title"`
	Description string       `yaml:"description"`
	Scenario    string       `yaml:"scenario"`
	Tags        []string     `yaml:"tags"`
	Options     []seedOption `yaml:"options"`
}

type seedOption struct {
	ID          string `yaml:"id"`
	Text        string `yaml:"text"`
	Description string `yaml:"description"`
	Percentage  *int   `yaml:"percentage"`
}

// Writer is the part of the store seeding needs.
type Writer interface {
	UpsertDilemma(ctx context.Context, d *dilemmas.Dilemma) error
}

// Parse decodes and validates a seed file. Options keep their file order as
// their position.
func Parse(data []byte) ([]dilemmas.Dilemma, error) {
	var f seedFile
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if len(f.Dilemmas) == 0 {
		return nil, errors.New("seed file has no dilemmas")
	}

	out := make([]dilemmas.Dilemma, 0, len(f.Dilemmas))
	seen := make(map[string]bool, len(f.Dilemmas))
	for _, sd := range f.Dilemmas {
		id := strings.TrimSpace(sd.ID)
		if id == "" || strings.TrimSpace(sd.Title) == "" {
			return nil, fmt.Errorf("dilemma %q: id and title are required", sd.ID)
		}
		if seen[id] {
			return nil, fmt.Errorf("dilemma %q: duplicate id", id)
		}
		seen[id] = true
		if len(sd.Options) < 2 {
			return nil, fmt.Errorf("dilemma %q: needs at least two options", id)
		}

		d := dilemmas.Dilemma{
			ID:          id,
			Title:       strings.TrimSpace(sd.Title),
			Description: strings.TrimSpace(sd.Description),
			Scenario:    strings.TrimSpace(sd.Scenario),
			Tags:        sd.Tags,
		}
		optSeen := make(map[string]bool, len(sd.Options))
		for i, so := range sd.Options {
			oid := strings.TrimSpace(so.ID)
			if oid == "" || strings.TrimSpace(so.Text) == "" {
				return nil, fmt.Errorf("dilemma %q option %d: id and text are required", id, i+1)
			}
			if optSeen[oid] {
				return nil, fmt.Errorf("dilemma %q: duplicate option id %q", id, oid)
			}
			optSeen[oid] = true
			if so.Percentage != nil && (*so.Percentage < 0 || *so.Percentage > 100) {
				return nil, fmt.Errorf("dilemma %q option %q: percentage out of range", id, oid)
			}
			d.Options = append(d.Options, dilemmas.Option{
				DilemmaID:   id,
				OptionID:    oid,
				Position:    i + 1,
				Text:        strings.TrimSpace(so.Text),
				Description: strings.TrimSpace(so.Description),
				Percentage:  so.Percentage,
			})
		}
		out = append(out, d)
	}
	return out, nil
}

// Load reads a seed file from path, or the embedded defaults when path is empty.
func Load(path string) ([]dilemmas.Dilemma, error) {
	data := defaultDilemmas
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("could not read %s: %w", path, err)
		}
	}
	return Parse(data)
}

// SeedAll upserts every dilemma. It is safe to run repeatedly.
func SeedAll(ctx context.Context, w Writer, ds []dilemmas.Dilemma, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	for i := range ds {
		if err := w.UpsertDilemma(ctx, &ds[i]); err != nil {
			return err
		}
		log.Debug("seeded dilemma", zap.String("id", ds[i].ID), zap.Int("options", len(ds[i].Options)))
	}
	log.Info("seeded dilemmas", zap.Int("count", len(ds)))
	return nil
}
