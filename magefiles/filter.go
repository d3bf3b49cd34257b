//go:build mage

package main

// Filter evaluates staged artifacts and writes the curated set.
// See prd002-filter for full requirements.
func Filter() error {
	return runCLI("filter")
}
