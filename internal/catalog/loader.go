// Package catalog loads test definitions from YAML files and seeds them into the test store.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/lshigami/examflow/internal/model"
	"github.com/lshigami/examflow/internal/repository"
)

type testFile struct {
	Title            string     `yaml:"title"`
	Description      string     `yaml:"description"`
	Modality         string     `yaml:"modality"`
	TimingMode       string     `yaml:"timing_mode"`
	DurationSeconds  int        `yaml:"duration_seconds"`
	Combination      string     `yaml:"combination"`
	FailedUnitPolicy string     `yaml:"failed_unit_policy"`
	Parts            []partFile `yaml:"parts"`
}

type partFile struct {
	Title              string         `yaml:"title"`
	Type               string         `yaml:"type"`
	Prompt             string         `yaml:"prompt"`
	Instructions       string         `yaml:"instructions"`
	DurationSeconds    int            `yaml:"duration_seconds"`
	PreparationSeconds int            `yaml:"preparation_seconds"`
	MaxScore           float64        `yaml:"max_score"`
	ImageURL           string         `yaml:"image_url"`
	Options            []string       `yaml:"options"`
	AnswerKey          *answerKeyFile `yaml:"answer_key"`
}

type answerKeyFile struct {
	Text    string            `yaml:"text"`
	Choice  string            `yaml:"choice"`
	Choices []string          `yaml:"choices"`
	Fields  []string          `yaml:"fields"`
	Mapping map[string]string `yaml:"mapping"`
}

// Loader keeps the parsed catalog keyed by test title.
type Loader struct {
	mu    sync.RWMutex
	tests map[string]*model.Test
}

func NewLoader() *Loader {
	return &Loader{tests: make(map[string]*model.Test)}
}

// LoadFromDir parses every .yaml/.yml file in dir. A missing directory is not an error.
func (l *Loader) LoadFromDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("dir", dir).Msg("Catalog directory not found, nothing to load")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read catalog dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		test, err := l.loadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		l.mu.Lock()
		l.tests[test.Title] = test
		l.mu.Unlock()
		log.Debug().Str("file", e.Name()).Str("title", test.Title).Int("parts", len(test.Parts)).Msg("Catalog: test loaded")
	}
	log.Info().Int("tests", l.Count()).Str("dir", dir).Msg("Catalog loaded")
	return nil
}

func (l *Loader) loadFile(path string) (*model.Test, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f testFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	return f.toModel()
}

func (f testFile) toModel() (*model.Test, error) {
	if f.Title == "" {
		return nil, errors.New("title is required")
	}
	if len(f.Parts) == 0 {
		return nil, errors.New("at least one part is required")
	}
	t := &model.Test{
		Title:            f.Title,
		Description:      f.Description,
		Modality:         model.Modality(f.Modality),
		TimingMode:       model.TimingMode(f.TimingMode),
		DurationSeconds:  f.DurationSeconds,
		Combination:      model.Combination(f.Combination),
		FailedUnitPolicy: model.FailedUnitPolicy(f.FailedUnitPolicy),
	}
	if t.Modality == "" {
		t.Modality = model.ModalityWriting
	}
	if t.TimingMode == "" {
		t.TimingMode = t.EffectiveTimingMode()
	}
	if t.Combination == "" {
		t.Combination = model.CombineSum
	}
	if t.FailedUnitPolicy == "" {
		t.FailedUnitPolicy = model.FailedExclude
	}

	for i, p := range f.Parts {
		kind := model.PartType(p.Type)
		if !kind.Valid() {
			return nil, fmt.Errorf("part %d: unknown type %q", i+1, p.Type)
		}
		part := model.Part{
			Title:              p.Title,
			Prompt:             p.Prompt,
			Instructions:       p.Instructions,
			Type:               kind,
			OrderInTest:        i + 1,
			DurationSeconds:    p.DurationSeconds,
			PreparationSeconds: p.PreparationSeconds,
			MaxScore:           p.MaxScore,
			Options:            p.Options,
		}
		if p.ImageURL != "" {
			url := p.ImageURL
			part.ImageURL = &url
		}
		if p.AnswerKey != nil {
			key := model.AnswerPayload{
				Kind:    kind,
				Text:    p.AnswerKey.Text,
				Choice:  p.AnswerKey.Choice,
				Choices: p.AnswerKey.Choices,
				Fields:  p.AnswerKey.Fields,
				Mapping: p.AnswerKey.Mapping,
			}
			if err := key.Validate(kind); err != nil {
				return nil, fmt.Errorf("part %d answer key: %w", i+1, err)
			}
			part.AnswerKey = &key
		}
		t.Parts = append(t.Parts, part)
	}
	return t, nil
}

func (l *Loader) Get(title string) *model.Test {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tests[title]
}

func (l *Loader) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tests)
}

// Tests returns the catalog sorted by title.
func (l *Loader) Tests() []*model.Test {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*model.Test, 0, len(l.tests))
	for _, t := range l.tests {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// Seed creates every catalog test whose title is not stored yet and returns how many
// were created.
func (l *Loader) Seed(repo repository.TestRepository) (int, error) {
	created := 0
	for _, t := range l.Tests() {
		if _, err := repo.FindByTitle(t.Title); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return created, fmt.Errorf("failed to look up %q: %w", t.Title, err)
		}
		test := *t
		test.Parts = append([]model.Part(nil), t.Parts...)
		if err := repo.Create(&test); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return created, fmt.Errorf("failed to create %q: %w", t.Title, err)
		}
		created++
		log.Info().Str("title", test.Title).Uint("testID", test.ID).Msg("Catalog: test seeded")
	}
	return created, nil
}
