package main

import (
	"context"
	"fmt"

	"github.com/bolt-foundry/gambit/pkg/config"
	"github.com/bolt-foundry/gambit/pkg/deck"
)

// CheckCmd loads a deck through the default project config and deck
// source, exiting non-zero (via the error return, reported by kong) on
// any load failure — a bad path, a cycle, an invalid action name, or a
// legacy codex/ model prefix.
type CheckCmd struct {
	Deck string `arg:"" help:"Path to the deck to check." type:"path"`
}

func (c *CheckCmd) Run(cli *CLI) error {
	ctx := context.Background()

	if _, err := config.Load(ctx); err != nil {
		return err
	}

	loader := deck.NewLoader(nil)
	if _, err := loader.Load(c.Deck, "", true); err != nil {
		return err
	}

	fmt.Printf("%s: valid\n", c.Deck)
	return nil
}
