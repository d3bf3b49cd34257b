//go:build mage

package main

// Run executes the full pipeline: fetch, filter, publish.
// See prd005-cli for full requirements.
func Run() error {
	return runCLI("run")
}

// DryRun executes the pipeline but skips the registry upload.
func DryRun() error {
	return runCLI("run", "--dry-run")
}
