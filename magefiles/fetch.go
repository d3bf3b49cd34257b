//go:build mage

package main

// Fetch downloads configured sources into the staging area.
// See prd001-fetch for full requirements.
func Fetch() error {
	return runCLI("fetch")
}
