// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package printer renders colored CLI status lines.
// Implements: prd005-cli (R4);
//
//	docs/ARCHITECTURE § Pipeline Interface.
package printer

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to a TTY.
	// Users can disable with the NO_COLOR environment variable.
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Step prints a stage transition line in cyan with an arrow prefix.
func Step(format string, a ...any) {
	cyan.Printf("→ %s\n", fmt.Sprintf(format, a...))
}

// Success prints a success message in green with a checkmark prefix.
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s\n", msg)
	} else {
		green.Println(msg)
	}
}

// Warning prints a warning in yellow to stderr with a warning prefix.
func Warning(format string, a ...any) {
	yellow.Fprintf(os.Stderr, "⚠ %s\n", fmt.Sprintf(format, a...))
}

// Error prints a failure message in red to stderr and returns it as an
// error for the command layer to propagate.
func Error(format string, a ...any) error {
	msg := fmt.Sprintf(format, a...)
	red.Fprintf(os.Stderr, "✗ %s\n", msg)
	return fmt.Errorf("%s", msg)
}

// Printf prints a plain formatted message (for output that doesn't need coloring).
func Printf(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Println prints a plain message (for output that doesn't need coloring).
func Println(a ...any) {
	fmt.Println(a...)
}
