package engine

import (
	"github.com/bolt-foundry/gambit/pkg/deck"
	"github.com/bolt-foundry/gambit/pkg/provider"
	"github.com/bolt-foundry/gambit/pkg/schema"
)

// buildToolDefinitions projects each of ld's actions into a tool
// definition by loading the child deck and projecting its input schema
// (C1's ToParameterShape), and appends the synthetic gambit_respond tool
// when the deck requires it.
func (e *Engine) buildToolDefinitions(ld *deck.LoadedDeck) ([]provider.ToolDefinition, error) {
	defs := make([]provider.ToolDefinition, 0, len(ld.ActionOrder)+1)
	for _, name := range ld.ActionOrder {
		action := ld.Actions[name]
		child, err := e.Loader.Load(action.Path, "", false)
		if err != nil {
			return nil, err
		}
		defs = append(defs, provider.ToolDefinition{
			Name:        name,
			Description: action.Description,
			Parameters:  child.InputSchema.ToParameterShape(),
		})
	}
	if ld.SyntheticTools.Respond {
		defs = append(defs, respondToolDefinition())
	}
	return defs, nil
}

// respondToolDefinition describes the engine-injected gambit_respond
// tool: an LLM deck calls it to complete with a structured envelope
// rather than plain message content.
func respondToolDefinition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        toolRespond,
		Description: "Complete this deck with a structured response envelope.",
		Parameters: schema.Object(map[string]*schema.Schema{
			"status":  schema.Integer().WithDescription("HTTP-style status code"),
			"payload": schema.Any(),
			"message": schema.String(),
			"code":    schema.String(),
			"meta":    schema.Any(),
		}).ToParameterShape(),
	}
}
