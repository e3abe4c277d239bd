// catalog.go
package models

import (
	"fmt"
	"os"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/games"

	"gopkg.in/yaml.v3"
)

type Section string

const (
	SectionSelfPortrait Section = "self-portrait"
	SectionScenarios    Section = "scenarios"
	SectionCognitive    Section = "cognitive"
)

// Sections lists every section in questionnaire order.
var Sections = []Section{SectionSelfPortrait, SectionScenarios, SectionCognitive}

func (s Section) valid() bool {
	for _, known := range Sections {
		if s == known {
			return true
		}
	}
	return false
}

type QuestionType string

const (
	SingleChoice   QuestionType = "single-choice"
	MultipleChoice QuestionType = "multiple-choice"
	ScaleQuestion  QuestionType = "scale"
	CognitiveGame  QuestionType = "cognitive-game"
)

// Option struct for question choices
type Option struct {
	ID    string  `yaml:"id" json:"id"`
	Text  string  `yaml:"text" json:"text"`
	Value float64 `yaml:"value" json:"value"`
}

// ScaleBounds carries the numeric range of a scale question.
type ScaleBounds struct {
	Min      float64 `yaml:"min" json:"min"`
	Max      float64 `yaml:"max" json:"max"`
	MinLabel string  `yaml:"minLabel,omitempty" json:"minLabel,omitempty"`
	MaxLabel string  `yaml:"maxLabel,omitempty" json:"maxLabel,omitempty"`
}

// Question struct to match the YAML structure
type Question struct {
	ID      string        `yaml:"id" json:"id"`
	Section Section       `yaml:"section" json:"section"`
	Type    QuestionType  `yaml:"type" json:"type"`
	Prompt  string        `yaml:"prompt" json:"question"`
	Options []Option      `yaml:"options,omitempty" json:"options,omitempty"`
	Scale   *ScaleBounds  `yaml:"scale,omitempty" json:"scale,omitempty"`
	Game    *games.Config `yaml:"game,omitempty" json:"gameConfig,omitempty"`
}

// Catalog is the versioned, read-only question list.
type Catalog struct {
	Version   string     `yaml:"version" json:"version"`
	Questions []Question `yaml:"questions" json:"questions"`

	index map[string]int
}

// LoadCatalog reads and parses the questions.yaml file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, apperr.Configuration("failed to unmarshal catalog YAML: %v", err)
	}
	if err := catalog.build(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// NewCatalog validates questions built in code.
func NewCatalog(version string, questions []Question) (*Catalog, error) {
	c := &Catalog{Version: version, Questions: questions}
	if err := c.build(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) build() error {
	if c.Version == "" {
		return apperr.Configuration("catalog has no version")
	}
	if len(c.Questions) == 0 {
		return apperr.Configuration("catalog has no questions")
	}
	c.index = make(map[string]int, len(c.Questions))
	for i, q := range c.Questions {
		if q.ID == "" {
			return apperr.Configuration("question %d has no id", i)
		}
		if _, dup := c.index[q.ID]; dup {
			return apperr.Configuration("duplicate question id %q", q.ID)
		}
		if err := q.validate(); err != nil {
			return err
		}
		c.index[q.ID] = i
	}
	return nil
}

func (q Question) validate() error {
	if !q.Section.valid() {
		return apperr.Configuration("question %q has unknown section %q", q.ID, q.Section)
	}
	switch q.Type {
	case SingleChoice, MultipleChoice:
		if len(q.Options) == 0 {
			return apperr.Configuration("question %q needs options", q.ID)
		}
	case ScaleQuestion:
		if q.Scale == nil && len(q.Options) == 0 {
			return apperr.Configuration("scale question %q needs bounds or options", q.ID)
		}
		if q.Scale != nil && q.Scale.Min >= q.Scale.Max {
			return apperr.Configuration("scale question %q has an empty range", q.ID)
		}
	case CognitiveGame:
		if q.Game == nil {
			return apperr.Configuration("cognitive-game question %q has no game", q.ID)
		}
		if err := games.Validate(*q.Game); err != nil {
			return fmt.Errorf("question %q: %w", q.ID, err)
		}
	default:
		return apperr.Configuration("question %q has unknown type %q", q.ID, q.Type)
	}
	return nil
}

// Question returns the catalog entry for id.
func (c *Catalog) Question(id string) (Question, bool) {
	i, ok := c.index[id]
	if !ok {
		return Question{}, false
	}
	return c.Questions[i], true
}

// SectionOf reports the section a question belongs to.
func (c *Catalog) SectionOf(id string) (Section, bool) {
	q, ok := c.Question(id)
	return q.Section, ok
}

// List returns a copy of the questions in catalog order.
func (c *Catalog) List() []Question {
	out := make([]Question, len(c.Questions))
	copy(out, c.Questions)
	return out
}

// Accepts checks that value (and, for games, results) has the shape the question expects.
func (q Question) Accepts(value AnswerValue, results *games.Result) error {
	switch q.Type {
	case SingleChoice:
		if value.Kind() != ValueText || !q.hasOption(value.Text()) {
			return apperr.Validation("question %s expects one of its option ids", q.ID)
		}
	case MultipleChoice:
		if value.Kind() != ValueList {
			return apperr.Validation("question %s expects a list of option ids", q.ID)
		}
		for _, id := range value.List() {
			if !q.hasOption(id) {
				return apperr.Validation("question %s has no option %q", q.ID, id)
			}
		}
	case ScaleQuestion:
		if value.Kind() != ValueNumber {
			return apperr.Validation("question %s expects a number", q.ID)
		}
		lo, hi := q.scaleRange()
		if n := value.Number(); n < lo || n > hi {
			return apperr.Validation("question %s expects a value in [%g, %g], got %g", q.ID, lo, hi, n)
		}
	case CognitiveGame:
		if results == nil {
			return apperr.Validation("question %s needs game results", q.ID)
		}
	}
	if q.Type != CognitiveGame && results != nil {
		return apperr.Validation("question %s does not take game results", q.ID)
	}
	return nil
}

func (q Question) hasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

func (q Question) scaleRange() (float64, float64) {
	if q.Scale != nil {
		return q.Scale.Min, q.Scale.Max
	}
	lo, hi := q.Options[0].Value, q.Options[0].Value
	for _, o := range q.Options[1:] {
		lo = min(lo, o.Value)
		hi = max(hi, o.Value)
	}
	return lo, hi
}
