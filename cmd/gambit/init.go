package main

import "fmt"

// InitCmd is the removed `gambit init` scaffolding command. It always
// fails, pointing the caller at gambit serve instead of silently doing
// nothing.
type InitCmd struct{}

func (c *InitCmd) Run(cli *CLI) error {
	return fmt.Errorf("gambit init has been removed; run gambit serve instead")
}
