// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package license

import (
	"testing"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		license string
		want    types.LicenseType
	}{
		// Exact SPDX matches.
		{"MIT", "MIT", types.LicensePermissive},
		{"Apache-2.0", "Apache-2.0", types.LicensePermissive},
		{"BSD-3-Clause", "BSD-3-Clause", types.LicensePermissive},
		{"Unlicense", "Unlicense", types.LicensePermissive},
		{"CC0-1.0", "CC0-1.0", types.LicensePermissive},
		{"ISC", "ISC", types.LicensePermissive},

		// Common-name and case-insensitive matches.
		{"lowercase mit", "mit", types.LicensePermissive},
		{"apache 2.0 with space", "apache 2.0", types.LicensePermissive},
		{"public domain", "public domain", types.LicensePermissive},
		{"mixed case spdx", "bsd-3-clause", types.LicensePermissive},

		// Pattern fallbacks.
		{"mit variant", "MIT-like", types.LicensePermissive},
		{"apache variant", "Apache License 2.0", types.LicensePermissive},
		{"bsd prefix", "bsd-custom", types.LicensePermissive},

		// Whitespace normalization.
		{"surrounding whitespace", "  MIT  ", types.LicensePermissive},

		// Copyleft and unknown.
		{"GPL-3.0", "GPL-3.0", types.LicenseNone},
		{"AGPL-3.0", "AGPL-3.0", types.LicenseNone},
		{"LGPL-2.1", "LGPL-2.1", types.LicenseNone},
		{"proprietary", "proprietary", types.LicenseNone},
		{"isc variant not matched", "custom-isc-like", types.LicenseNone},
		{"empty", "", types.LicenseNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.license); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.license, got, tt.want)
			}
		})
	}
}

func TestPolicyEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		licenses []string
		wantType types.LicenseType
		wantOK   bool
	}{
		{
			"single permissive",
			Policy{},
			[]string{"MIT"},
			types.LicensePermissive, true,
		},
		{
			"permissive among copyleft",
			Policy{},
			[]string{"GPL-3.0", "Apache-2.0"},
			types.LicensePermissive, true,
		},
		{
			"copyleft only",
			Policy{},
			[]string{"GPL-3.0"},
			types.LicenseNone, false,
		},
		{
			"no licenses rejected by default",
			Policy{},
			nil,
			types.LicenseNone, false,
		},
		{
			"no licenses admitted when allowed",
			Policy{AllowUnlicensed: true},
			nil,
			types.LicenseNone, true,
		},
		{
			"allowlist admits a copyleft license",
			Policy{Allowlist: []string{"GPL-3.0"}},
			[]string{"GPL-3.0"},
			types.LicensePermissive, true,
		},
		{
			"allowlist match is case-insensitive",
			Policy{Allowlist: []string{"gpl-3.0"}},
			[]string{"GPL-3.0"},
			types.LicensePermissive, true,
		},
		{
			"allowlist does not admit unlisted",
			Policy{Allowlist: []string{"GPL-2.0"}},
			[]string{"EPL-1.0"},
			types.LicenseNone, false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotOK := tt.policy.Evaluate(tt.licenses)
			if gotType != tt.wantType || gotOK != tt.wantOK {
				t.Errorf("Evaluate(%v) = (%v, %v), want (%v, %v)",
					tt.licenses, gotType, gotOK, tt.wantType, tt.wantOK)
			}
		})
	}
}
