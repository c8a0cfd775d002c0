// Package main is the entry point for the wrscout CLI, which stores FRC
// scouting data for an event and computes per-team statistics from it.
package main

import "github.com/wildrank/wrscout/cmd"

func main() {
	cmd.Execute()
}
