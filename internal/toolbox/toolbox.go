package toolbox

import (
	"github.com/sentineld/agent/internal/agent"
	"github.com/sentineld/agent/internal/runtime"
	"github.com/sentineld/agent/internal/skills"
	"github.com/sentineld/agent/internal/websearch"
)

// RegisterDefaultTools registers the tool set available to every
// conversation regardless of which chat or channel triggered it.
// Instance-scoped tools (add_reaction, send_image) are registered
// separately on a per-run clone via RegisterHumanInputTools.
func RegisterDefaultTools(registry *agent.ToolRegistry, rt runtime.Runtime, loader *skills.Loader, searcher *websearch.Searcher, extractor *websearch.Extractor) {
	registry.Register(readFileTool(rt))
	registry.Register(writeFileTool(rt))
	registry.Register(editFileTool(rt))
	registry.Register(runCommandTool(rt))
	registry.Register(useSkillTool(loader))
	registry.Register(webSearchTool(searcher))
	registry.Register(fetchTool(extractor))
}
