package filter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

const cobolProgram = `IDENTIFICATION DIVISION.
PROGRAM-ID. PAYROLL.
ENVIRONMENT DIVISION.
DATA DIVISION.
WORKING-STORAGE SECTION.
01 WS-TOTAL PIC 9(7)V99.
PROCEDURE DIVISION.
MAIN-PARA.
    MOVE ZERO TO WS-TOTAL.
    PERFORM COMPUTE-PAY.
    DISPLAY WS-TOTAL.
    STOP RUN.
`

// fakeIndex is a HashIndex backed by a plain map.
type fakeIndex struct {
	hashes map[string]bool
	err    error
}

func (f *fakeIndex) HasHash(_ context.Context, hash string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.hashes[hash], nil
}

func testConfig() types.FilterConfig {
	return types.FilterConfig{
		MinSizeBytes: 1,
		MaxSizeBytes: 1 << 20,
		MinLines:     1,
		MaxLines:     10000,
		MaxTokens:    128000,
	}
}

func cobolArtifact(id string) types.CandidateArtifact {
	return types.CandidateArtifact{
		ID:       id,
		Source:   "mirror",
		RepoName: "acme/payroll",
		Path:     "src/" + id,
		Licenses: []string{"MIT"},
	}
}

func TestEvaluateAccepts(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	a := cobolArtifact("payroll.cbl")

	decision, record, err := e.Evaluate(context.Background(), a, []byte(cobolProgram))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !decision.Accepted {
		t.Fatalf("rejected: %s (%s)", decision.Reason, decision.Detail)
	}
	if record == nil {
		t.Fatal("accepted decision without a record")
	}
	if record.Language != types.LangCOBOL || record.Extension != "cbl" {
		t.Errorf("classification = %s/%s", record.Language, record.Extension)
	}
	if record.LicenseType != types.LicensePermissive {
		t.Errorf("license type = %s", record.LicenseType)
	}
	if record.NumLines != 12 {
		t.Errorf("lines = %d, want 12", record.NumLines)
	}
	if record.NumTokens == 0 || record.SizeBytes != int64(len(cobolProgram)) {
		t.Errorf("counts = %d tokens, %d bytes", record.NumTokens, record.SizeBytes)
	}
	if len(record.ContentHash) != 64 {
		t.Errorf("hash = %q", record.ContentHash)
	}
	if record.Content != cobolProgram {
		t.Error("content altered by evaluation")
	}
}

func TestEvaluateRejections(t *testing.T) {
	tests := []struct {
		name     string
		cfg      func(*types.FilterConfig)
		artifact func(*types.CandidateArtifact)
		raw      []byte
		want     types.RejectReason
	}{
		{
			name:     "unknown language",
			artifact: func(a *types.CandidateArtifact) { a.Path = "README.txt" },
			raw:      []byte("just some notes\n"),
			want:     types.ReasonUnknownLanguage,
		},
		{
			name:     "language not enabled",
			cfg:      func(c *types.FilterConfig) { c.Languages = []types.Language{types.LangJCL} },
			raw:      []byte(cobolProgram),
			want:     types.ReasonUnknownLanguage,
		},
		{
			name: "too small",
			cfg:  func(c *types.FilterConfig) { c.MinSizeBytes = 1 << 10 },
			raw:  []byte(cobolProgram),
			want: types.ReasonTooSmall,
		},
		{
			name: "too large",
			cfg:  func(c *types.FilterConfig) { c.MaxSizeBytes = 16 },
			raw:  []byte(cobolProgram),
			want: types.ReasonTooLarge,
		},
		{
			name: "invalid encoding",
			raw:  append([]byte(cobolProgram), 0xc3, 0x28),
			want: types.ReasonInvalidEncoding,
		},
		{
			name: "too few lines",
			cfg:  func(c *types.FilterConfig) { c.MinLines = 100 },
			raw:  []byte(cobolProgram),
			want: types.ReasonTooFewLines,
		},
		{
			name: "too many lines",
			cfg:  func(c *types.FilterConfig) { c.MaxLines = 3 },
			raw:  []byte(cobolProgram),
			want: types.ReasonTooManyLines,
		},
		{
			name: "too many tokens",
			cfg:  func(c *types.FilterConfig) { c.MaxTokens = 5 },
			raw:  []byte(cobolProgram),
			want: types.ReasonTooManyTokens,
		},
		{
			name:     "license incompatible",
			artifact: func(a *types.CandidateArtifact) { a.Licenses = []string{"GPL-3.0-only"} },
			raw:      []byte(cobolProgram),
			want:     types.ReasonLicense,
		},
		{
			name:     "unlicensed not allowed",
			artifact: func(a *types.CandidateArtifact) { a.Licenses = nil },
			raw:      []byte(cobolProgram),
			want:     types.ReasonLicense,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			a := cobolArtifact("payroll.cbl")
			if tt.artifact != nil {
				tt.artifact(&a)
			}

			e := NewEngine(cfg, nil)
			decision, record, err := e.Evaluate(context.Background(), a, tt.raw)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if decision.Accepted {
				t.Fatal("accepted")
			}
			if record != nil {
				t.Error("rejected decision carries a record")
			}
			if decision.Reason != tt.want {
				t.Errorf("reason = %s, want %s", decision.Reason, tt.want)
			}
		})
	}
}

// Rules run in a fixed order; an artifact violating several rules reports
// the first one.
func TestEvaluateFirstFailureWins(t *testing.T) {
	cfg := testConfig()
	cfg.MinSizeBytes = 1 << 10

	a := cobolArtifact("tiny.cbl")
	a.Licenses = []string{"GPL-3.0-only"}

	e := NewEngine(cfg, nil)
	decision, _, err := e.Evaluate(context.Background(), a, []byte("TINY.\n"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Reason != types.ReasonTooSmall {
		t.Errorf("reason = %s, want %s (size precedes license)", decision.Reason, types.ReasonTooSmall)
	}
}

func TestEvaluateDeclaredLanguageWins(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	a := cobolArtifact("member-no-ext")
	a.Path = "pds/MEMBER"
	a.Language = types.LangREXX

	decision, record, err := e.Evaluate(context.Background(), a, []byte(cobolProgram))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !decision.Accepted || record.Language != types.LangREXX {
		t.Errorf("declared language not honored: %+v", decision)
	}
}

// Line bounds are judged on the decoded text. An EBCDIC blob carries no
// LF bytes, so counting before decoding would reject everything.
func TestEvaluateEBCDICLineCount(t *testing.T) {
	enc := charmap.CodePage037.NewEncoder()
	raw, err := enc.Bytes([]byte(cobolProgram))
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}

	cfg := testConfig()
	cfg.MinLines = 10

	a := cobolArtifact("payroll.cbl")
	a.Encoding = "IBM037"

	e := NewEngine(cfg, nil)
	decision, record, evalErr := e.Evaluate(context.Background(), a, raw)
	if evalErr != nil {
		t.Fatalf("Evaluate: %v", evalErr)
	}
	if !decision.Accepted {
		t.Fatalf("rejected: %s (%s)", decision.Reason, decision.Detail)
	}
	if record.NumLines != 12 {
		t.Errorf("lines = %d, want 12", record.NumLines)
	}
	if record.Content != cobolProgram {
		t.Error("EBCDIC content not normalized to UTF-8")
	}
	if record.SizeBytes != int64(len(cobolProgram)) {
		t.Errorf("size = %d, want decoded size %d", record.SizeBytes, len(cobolProgram))
	}
}

func TestEvaluateBoundsAreInclusive(t *testing.T) {
	content := "LINE ONE.\nLINE TWO.\nLINE THREE.\n"
	cfg := testConfig()
	cfg.MinSizeBytes = int64(len(content))
	cfg.MaxSizeBytes = int64(len(content))
	cfg.MinLines = 3
	cfg.MaxLines = 3

	a := cobolArtifact("exact.cbl")
	e := NewEngine(cfg, nil)
	decision, _, err := e.Evaluate(context.Background(), a, []byte(content))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !decision.Accepted {
		t.Errorf("boundary value rejected: %s (%s)", decision.Reason, decision.Detail)
	}
}

func TestEvaluateDuplicateWithinRun(t *testing.T) {
	e := NewEngine(testConfig(), nil)

	first, _, err := e.Evaluate(context.Background(), cobolArtifact("a.cbl"), []byte(cobolProgram))
	if err != nil || !first.Accepted {
		t.Fatalf("first artifact not accepted: %+v, %v", first, err)
	}

	dup := cobolArtifact("b.cbl")
	dup.Source = "tarball"
	second, record, err := e.Evaluate(context.Background(), dup, []byte(cobolProgram))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if second.Accepted || record != nil {
		t.Fatal("duplicate content accepted twice")
	}
	if second.Reason != types.ReasonDuplicate {
		t.Errorf("reason = %s", second.Reason)
	}
	if !strings.Contains(second.Detail, "mirror/a.cbl") {
		t.Errorf("detail = %q, want the holding artifact", second.Detail)
	}
}

func TestEvaluateHistoricalDuplicate(t *testing.T) {
	sum := sha256.Sum256([]byte(cobolProgram))
	index := &fakeIndex{hashes: map[string]bool{hex.EncodeToString(sum[:]): true}}

	e := NewEngine(testConfig(), index)
	decision, _, err := e.Evaluate(context.Background(), cobolArtifact("a.cbl"), []byte(cobolProgram))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Accepted || decision.Reason != types.ReasonDuplicate {
		t.Errorf("decision = %+v, want historical duplicate rejection", decision)
	}
}

func TestEvaluateHistoryFault(t *testing.T) {
	index := &fakeIndex{err: errors.New("database is locked")}
	e := NewEngine(testConfig(), index)

	_, _, err := e.Evaluate(context.Background(), cobolArtifact("a.cbl"), []byte(cobolProgram))
	if err == nil {
		t.Fatal("history fault not surfaced")
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a\n", 1},
		{"a\nb", 2},
		{"a\nb\n", 2},
		{"\n", 1},
		{"\n\n", 2},
	}
	for _, tt := range tests {
		if got := countLines(tt.in); got != tt.want {
			t.Errorf("countLines(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCountTokens(t *testing.T) {
	if got := countTokens("  MOVE  ZERO TO WS-TOTAL  \n"); got != 4 {
		t.Errorf("countTokens = %d, want 4", got)
	}
	if got := countTokens(""); got != 0 {
		t.Errorf("countTokens(empty) = %d, want 0", got)
	}
}

func TestSeenSetClaim(t *testing.T) {
	s := NewSeenSet()
	if holder, ok := s.Claim("h1", "mirror/a"); !ok || holder != "" {
		t.Fatalf("first claim = %q, %v", holder, ok)
	}
	if holder, ok := s.Claim("h1", "mirror/b"); ok || holder != "mirror/a" {
		t.Fatalf("second claim = %q, %v, want held by mirror/a", holder, ok)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}
