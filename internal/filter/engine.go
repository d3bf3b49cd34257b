// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter evaluates staged artifacts against the quality and
// licensing rules and produces the curated record set.
// Implements: prd002-filter (R1-R6);
//
//	docs/ARCHITECTURE § Quality Filter.
package filter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pdiddy/corpus-engine/internal/language"
	"github.com/pdiddy/corpus-engine/internal/license"
	"github.com/pdiddy/corpus-engine/internal/textenc"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

// HashIndex reports content hashes published by prior runs. The history
// store implements it; a nil index disables the cross-run check.
type HashIndex interface {
	HasHash(ctx context.Context, hash string) (bool, error)
}

// Engine applies the filter rule chain to artifacts. Rules run in a fixed
// order and the first failing rule decides the rejection: language, size,
// encoding, lines, tokens, license, duplicate. One Engine is shared by all
// workers of a run; the seen set keeps concurrent claims atomic.
type Engine struct {
	cfg     types.FilterConfig
	policy  license.Policy
	enabled map[types.Language]bool
	history HashIndex
	seen    *SeenSet
}

// NewEngine builds an Engine for one run. history may be nil.
func NewEngine(cfg types.FilterConfig, history HashIndex) *Engine {
	enabled := make(map[types.Language]bool)
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = types.Languages()
	}
	for _, l := range langs {
		enabled[l] = true
	}
	return &Engine{
		cfg: cfg,
		policy: license.Policy{
			Allowlist:       cfg.LicenseAllowlist,
			AllowUnlicensed: cfg.AllowUnlicensed,
		},
		enabled: enabled,
		history: history,
		seen:    NewSeenSet(),
	}
}

// Evaluate runs the rule chain on one artifact and returns its decision,
// plus the curated record when accepted. The returned error reports
// evaluation faults (history lookups), not rule failures.
func (e *Engine) Evaluate(ctx context.Context, a types.CandidateArtifact, raw []byte) (types.FilterDecision, *types.CuratedRecord, error) {
	ref := a.Source + "/" + a.ID
	decision := types.FilterDecision{ArtifactID: ref, Path: a.Path}

	reject := func(reason types.RejectReason, detail string) (types.FilterDecision, *types.CuratedRecord, error) {
		decision.Reason = reason
		decision.Detail = detail
		return decision, nil, nil
	}

	// Rule 1: language. Declared language wins; otherwise classify by
	// extension and content. Content heuristics read raw bytes, which is
	// sufficient for the ASCII-compatible encodings; EBCDIC sources are
	// expected to declare their language.
	lang := a.Language
	if lang == "" || lang == types.LangUnknown {
		lang = language.Detect(a.Path, string(raw))
	}
	if lang == types.LangUnknown {
		return reject(types.ReasonUnknownLanguage, "")
	}
	if !e.enabled[lang] {
		return reject(types.ReasonUnknownLanguage, fmt.Sprintf("%s not enabled", lang))
	}

	// Rule 2: size bounds on the staged bytes, inclusive. A zero bound
	// disables that side.
	size := int64(len(raw))
	if e.cfg.MinSizeBytes > 0 && size < e.cfg.MinSizeBytes {
		return reject(types.ReasonTooSmall, fmt.Sprintf("%d bytes", size))
	}
	if e.cfg.MaxSizeBytes > 0 && size > e.cfg.MaxSizeBytes {
		return reject(types.ReasonTooLarge, fmt.Sprintf("%d bytes", size))
	}

	// Rule 3: decode under the declared encoding, normalizing to UTF-8.
	text, err := textenc.Decode(raw, a.Encoding)
	if err != nil {
		return reject(types.ReasonInvalidEncoding, err.Error())
	}

	// Rule 4: line bounds on the decoded text, inclusive.
	lines := countLines(text)
	if e.cfg.MinLines > 0 && lines < e.cfg.MinLines {
		return reject(types.ReasonTooFewLines, fmt.Sprintf("%d lines", lines))
	}
	if e.cfg.MaxLines > 0 && lines > e.cfg.MaxLines {
		return reject(types.ReasonTooManyLines, fmt.Sprintf("%d lines", lines))
	}

	// Rule 5: token cap on the whitespace-token estimate.
	tokens := countTokens(text)
	if e.cfg.MaxTokens > 0 && tokens > e.cfg.MaxTokens {
		return reject(types.ReasonTooManyTokens, fmt.Sprintf("%d tokens", tokens))
	}

	// Rule 6: license.
	licType, ok := e.policy.Evaluate(a.Licenses)
	if !ok {
		detail := strings.Join(a.Licenses, ", ")
		if detail == "" {
			detail = "no license declared"
		}
		return reject(types.ReasonLicense, detail)
	}

	// Rule 7: duplicate, against published history first and then the
	// run-local seen set. The claim is atomic across workers.
	sum := sha256.Sum256([]byte(text))
	hash := hex.EncodeToString(sum[:])
	if e.history != nil {
		published, err := e.history.HasHash(ctx, hash)
		if err != nil {
			return decision, nil, fmt.Errorf("history lookup for %s: %w", ref, err)
		}
		if published {
			return reject(types.ReasonDuplicate, "published in a prior run")
		}
	}
	if holder, claimed := e.seen.Claim(hash, ref); !claimed {
		return reject(types.ReasonDuplicate, "duplicate of "+holder)
	}

	decision.Accepted = true
	record := &types.CuratedRecord{
		Content:     text,
		RepoName:    a.RepoName,
		FilePath:    a.Path,
		Language:    lang,
		Extension:   language.Ext(a.Path),
		LicenseType: licType,
		Licenses:    a.Licenses,
		HostURL:     a.HostURL,
		Source:      a.Source,
		NumTokens:   tokens,
		NumLines:    lines,
		SizeBytes:   int64(len(text)),
		ContentHash: hash,
		RevisionID:  a.RevisionID,
		CommitDate:  a.CommitDate,
		Branch:      a.Branch,
	}
	return decision, record, nil
}

// countLines counts lines the way text editors do: a trailing newline
// does not open a new line, and empty content has no lines.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// countTokens approximates the token count as whitespace-separated words.
func countTokens(s string) int {
	return len(strings.Fields(s))
}
