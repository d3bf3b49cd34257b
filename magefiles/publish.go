//go:build mage

package main

// Publish uploads the curated set to the dataset registry.
// See prd003-publish for full requirements.
func Publish() error {
	return runCLI("publish")
}
