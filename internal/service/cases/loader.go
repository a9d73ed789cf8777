// Package cases loads the static case-simulation content: one YAML file
// per case with its description and staged question sets. Content is
// read once at startup and immutable afterwards.
package cases

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/diirlab/xrlia/internal/core"
	"github.com/diirlab/xrlia/pkg/log"
)

type QA struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

type Case struct {
	CaseNum  int    `yaml:"caseNum" json:"case_num"`
	CaseDesc string `yaml:"caseDesc" json:"case_desc"`
	MaxStage int    `yaml:"maxStage" json:"max_stage"`

	// Questions maps a stage key ("stage1", "stage2", ...) to its
	// ordered question/expected-answer pairs.
	Questions map[string][]QA `yaml:"questions" json:"questions"`
}

type caseFile struct {
	Case Case `yaml:"case"`
}

// Stage returns the question set for a 1-based stage number.
func (c *Case) Stage(stage int) ([]QA, error) {
	if stage < 1 || stage > c.MaxStage {
		return nil, fmt.Errorf("%w: stage %d of case %d (max %d)", core.ErrStageOutOfRange, stage, c.CaseNum, c.MaxStage)
	}
	return c.Questions[fmt.Sprintf("stage%d", stage)], nil
}

type Loader struct {
	cases map[int]*Case
}

// NewLoader reads every .yml/.yaml file in dir as a case definition.
func NewLoader(ctx context.Context, dir string) (*Loader, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read cases directory: %w", err)
	}

	loader := &Loader{cases: make(map[int]*Case)}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yml") && !strings.HasSuffix(name, ".yaml")) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read case file %s: %w", name, err)
		}

		var file caseFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse case file %s: %w", name, err)
		}
		if file.Case.CaseNum == 0 {
			return nil, fmt.Errorf("case file %s has no caseNum", name)
		}

		loader.cases[file.Case.CaseNum] = &file.Case
	}

	log.FromCtx(ctx).Info().Int("cases", len(loader.cases)).Str("dir", dir).Msg("loaded case content")
	return loader, nil
}

func (l *Loader) Get(num int) (*Case, error) {
	c, ok := l.cases[num]
	if !ok {
		return nil, fmt.Errorf("%w: case %d", core.ErrCaseNotFound, num)
	}
	return c, nil
}

// List returns all cases ordered by case number.
func (l *Loader) List() []*Case {
	out := make([]*Case, 0, len(l.cases))
	for _, c := range l.cases {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CaseNum < out[j].CaseNum })
	return out
}
