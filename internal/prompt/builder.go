// Package prompt assembles the system prompt every Agent.Run call
// prepends to a conversation: bootstrap workspace files, available
// skill summaries, and an optional compressed history digest.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sentineld/agent/pkg/models"
)

var bootstrapFiles = []string{"IDENTITY.md", "USER.md", "MEMORY.md", "CONTEXT.md"}

// SkillLister supplies the skill summaries shown in the prompt.
type SkillLister interface {
	Discover() ([]*models.Skill, error)
}

// Builder constructs system prompts from a workspace root and skill
// directory, tolerating missing bootstrap files.
type Builder struct {
	workspaceDir string
	skills       SkillLister
}

// New builds a Builder rooted at workspaceDir.
func New(workspaceDir string, skills SkillLister) *Builder {
	return &Builder{workspaceDir: workspaceDir, skills: skills}
}

// Build assembles the full system prompt. previousSummary is embedded
// verbatim when non-empty; an empty string omits the summary section
// entirely (used for heartbeats, which carry no prior digest).
func (b *Builder) Build(previousSummary string) string {
	var bootstrap strings.Builder
	for _, name := range bootstrapFiles {
		content, err := os.ReadFile(filepath.Join(b.workspaceDir, name))
		if err != nil || len(content) == 0 {
			continue
		}
		fmt.Fprintf(&bootstrap, "# %s\n\n%s\n\n", name, content)
	}

	skillsText := b.skillsSection()

	summarySection := ""
	if previousSummary != "" {
		summarySection = fmt.Sprintf("# Conversation Summary\n\nThe following is a compressed summary of the conversation history so far:\n\n%s\n", previousSummary)
	}

	return fmt.Sprintf(`You are an autonomous agent acting as a personal assistant.

**Host Environment:** %s
**Directory:** %s

You are provided with a set of tools and skills to help you with your tasks.
You can use them to interact with the world or guide yourself to perform actions.

# Skills

%s

# Workspace

Your working directory is %s.
Treat this directory as the single global workspace for file operations unless explicitly instructed otherwise.

%s

%s

# Silent Replies

If you are woken up because of a heartbeat, and there is nothing that needs attention, respond with content ending with: NO_REPORT

Rules:
- System treats a response ending with NO_REPORT as "no need to report" and will not send it to the human user.
- NO_REPORT must be at the end.
- Never append it to an actual response.
- Never wrap it in markdown or code blocks.

Wrong: NO_REPORT There's nothing to report
Wrong: There's nothing to report... %s
Right: NO_REPORT
Right: Nothing needs human attention because... NO_REPORT
Right: Something happened...
`, runtime.GOOS, b.workspaceDir, skillsText, b.workspaceDir, bootstrap.String(), summarySection, "`NO_REPORT`")
}

func (b *Builder) skillsSection() string {
	if b.skills == nil {
		return ""
	}
	summaries, err := b.skills.Discover()
	if err != nil || len(summaries) == 0 {
		return ""
	}

	var out strings.Builder
	out.WriteString("Available specialized skills:\n")
	for _, s := range summaries {
		fmt.Fprintf(&out, "- %s: %s\n", s.Name, s.Description)
	}
	out.WriteString("\nUse the `use_skill` tool for detailed instructions.")
	return out.String()
}
