// Package catalog holds the fixed, ordered question set shared read-only by
// every session. The default set ships embedded; deployments may override it
// with a YAML file.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/immuned/rheumabot/internal/models"
)

// Catalog is immutable after construction.
type Catalog struct {
	questions []models.Question
}

// New validates the question list and assigns ordinals by position.
func New(qs []models.Question) (*Catalog, error) {
	if len(qs) == 0 {
		return nil, fmt.Errorf("catalog: no questions")
	}
	out := make([]models.Question, len(qs))
	for i, q := range qs {
		if strings.TrimSpace(q.Prompt) == "" {
			return nil, fmt.Errorf("catalog: question %d has empty prompt", i)
		}
		if len(q.Options) == 0 {
			return nil, fmt.Errorf("catalog: question %d has no options", i)
		}
		for j, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return nil, fmt.Errorf("catalog: question %d option %d is empty", i, j)
			}
		}
		q.Ordinal = i
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return &Catalog{questions: out}, nil
}

// LoadFile reads a YAML question list: a sequence of {prompt, options}.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var doc struct {
		Questions []models.Question `yaml:"questions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return New(doc.Questions)
}

// Len returns the number of questions.
func (c *Catalog) Len() int { return len(c.questions) }

// Question returns the question at ord, or false when ord is out of range.
func (c *Catalog) Question(ord int) (models.Question, bool) {
	if ord < 0 || ord >= len(c.questions) {
		return models.Question{}, false
	}
	return c.questions[ord], true
}

// Questions returns a copy of the full ordered list.
func (c *Catalog) Questions() []models.Question {
	return append([]models.Question(nil), c.questions...)
}

const answerInstruction = "Por favor, responda com o número correspondente:"

// Render produces the outbound text for a question: the prompt, the
// numeric-answer instruction, then one option per line. Invalid input is
// answered by re-rendering the same question, so the participant always has
// the option list in view.
func (c *Catalog) Render(q models.Question) string {
	var b strings.Builder
	b.WriteString(q.Prompt)
	b.WriteByte('\n')
	b.WriteString(answerInstruction)
	b.WriteByte('\n')
	b.WriteString(strings.Join(q.Options, "\n"))
	return b.String()
}
