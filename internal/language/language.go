// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package language tags mainframe source artifacts with their language.
// Implements: prd002-filter (R2.1);
//
//	docs/ARCHITECTURE § Quality Filter.
package language

import (
	"path"
	"strings"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// extensionMap maps lowercased file extensions to languages. The sets follow
// the extension conventions of the upstream corpora, with "asm" folded into
// HLASM as a fallback.
var extensionMap = map[string]types.Language{
	// COBOL
	"cbl": types.LangCOBOL, "cob": types.LangCOBOL, "cobol": types.LangCOBOL,
	"cpy": types.LangCOBOL, "ccp": types.LangCOBOL, "wks": types.LangCOBOL,
	"pco": types.LangCOBOL,
	// REXX
	"rexx": types.LangREXX, "rex": types.LangREXX, "rx": types.LangREXX,
	"rxj": types.LangREXX, "pprx": types.LangREXX, "orx": types.LangREXX,
	"rexg": types.LangREXX, "exec": types.LangREXX,
	// RPGLE
	"rpgle": types.LangRPGLE, "sqlrpgle": types.LangRPGLE, "rpg": types.LangRPGLE,
	"dds": types.LangRPGLE,
	// JCL
	"jcl": types.LangJCL, "job": types.LangJCL, "proc": types.LangJCL,
	"prc": types.LangJCL, "cntl": types.LangJCL,
	// PL/I
	"pli": types.LangPLI, "pl1": types.LangPLI, "plinc": types.LangPLI,
	// HLASM
	"hla": types.LangHLASM, "hlasm": types.LangHLASM, "assemble": types.LangHLASM,
	"asm": types.LangHLASM,
	// BMS
	"bms": types.LangBMS, "bmc": types.LangBMS,
}

// Ext returns the lowercased extension of p without the leading dot, or ""
// when p has none.
func Ext(p string) string {
	ext := path.Ext(p)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// FromExtension maps a file extension (with or without a leading dot,
// any case) to its language. Returns LangUnknown for unrecognized extensions.
func FromExtension(ext string) types.Language {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if lang, ok := extensionMap[ext]; ok {
		return lang
	}
	return types.LangUnknown
}

// Detect determines the language of an artifact from its path and decoded
// content. The extension mapping wins when it recognizes the extension;
// content sniffing covers extensionless members (common for PDS member
// dumps). Returns LangUnknown when neither matches.
func Detect(p, content string) types.Language {
	if lang := FromExtension(Ext(p)); lang != types.LangUnknown {
		return lang
	}
	return sniff(content)
}

// sniffWindow is the number of leading lines content sniffing examines.
const sniffWindow = 64

// sniff inspects the leading lines of content for language signatures:
// JCL statement prefixes, COBOL division headers, the REXX comment line,
// BMS and HLASM assembler directives, and the free-form RPG marker.
func sniff(content string) types.Language {
	lines := strings.SplitN(content, "\n", sniffWindow+1)
	if len(lines) > sniffWindow {
		lines = lines[:sniffWindow]
	}

	for i, line := range lines {
		upper := strings.ToUpper(strings.TrimRight(line, "\r"))
		trimmed := strings.TrimSpace(upper)
		if trimmed == "" {
			continue
		}

		switch {
		case i == 0 && strings.HasPrefix(trimmed, "**FREE"):
			return types.LangRPGLE
		case i == 0 && strings.HasPrefix(trimmed, "/*") && strings.Contains(trimmed, "REXX"):
			// z/OS requires a REXX exec to open with a comment naming REXX.
			return types.LangREXX
		case isJCLStatement(upper):
			return types.LangJCL
		case strings.Contains(trimmed, "IDENTIFICATION DIVISION") || strings.Contains(trimmed, "ID DIVISION"):
			return types.LangCOBOL
		case strings.Contains(upper, " DFHMSD "):
			return types.LangBMS
		case strings.Contains(upper, " CSECT") || strings.Contains(upper, " DSECT"):
			return types.LangHLASM
		case strings.Contains(trimmed, "PROC OPTIONS(MAIN)"):
			return types.LangPLI
		}
	}
	return types.LangUnknown
}

// jclOperations are the statement operations that identify a line as JCL.
var jclOperations = []string{" JOB ", " EXEC ", " DD ", " PROC ", " PEND"}

// isJCLStatement reports whether an uppercased line looks like a JCL
// statement: a // identifier field followed by a known operation.
func isJCLStatement(line string) bool {
	if !strings.HasPrefix(line, "//") || strings.HasPrefix(line, "//*") {
		return false
	}
	for _, op := range jclOperations {
		if strings.Contains(line, op) {
			return true
		}
	}
	return false
}
