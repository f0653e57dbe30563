package skills

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sentineld/agent/pkg/models"
)

// Loader discovers and loads skills from a single skills_dir, each skill
// living at <skills_dir>/<name>/SKILL.md.
type Loader struct {
	skillsDir string
}

// NewLoader builds a Loader rooted at skillsDir.
func NewLoader(skillsDir string) *Loader {
	return &Loader{skillsDir: skillsDir}
}

// Discover scans skillsDir for skill subdirectories and parses each
// SKILL.md found. Missing skillsDir is tolerated and yields no skills.
func (l *Loader) Discover() ([]*models.Skill, error) {
	info, err := os.Stat(l.skillsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat skills dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", l.skillsDir)
	}

	entries, err := os.ReadDir(l.skillsDir)
	if err != nil {
		return nil, fmt.Errorf("read skills dir: %w", err)
	}

	var skills []*models.Skill
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		skillPath := filepath.Join(l.skillsDir, entry.Name(), SkillFilename)
		if _, err := os.Stat(skillPath); err != nil {
			continue
		}
		skill, err := ParseSkillFile(skillPath)
		if err != nil {
			continue
		}
		skills = append(skills, skill)
	}
	return skills, nil
}

// Get loads a single named skill from <skills_dir>/<name>/SKILL.md.
// Returns nil, nil if that file does not exist.
func (l *Loader) Get(name string) (*models.Skill, error) {
	skillPath := filepath.Join(l.skillsDir, name, SkillFilename)
	if _, err := os.Stat(skillPath); err != nil {
		return nil, nil
	}
	return ParseSkillFile(skillPath)
}

// Summaries reduces a slice of skills to their name/description summaries
// for inclusion in the system prompt.
func Summaries(skills []*models.Skill) []models.SkillSummary {
	summaries := make([]models.SkillSummary, 0, len(skills))
	for _, s := range skills {
		summaries = append(summaries, models.SkillSummary{Name: s.Name, Description: s.Description})
	}
	return summaries
}
