package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// **Feature: dashboard-models, Property 1: Masking is idempotent and hides the middle**
// For any secret, masking twice yields the same string, the length is preserved,
// and nothing between the first and last four characters survives.

func genSecret() gopter.Gen {
	return gen.AlphaNumString().SuchThat(func(s string) bool {
		return len(s) > 0 && len(s) <= 128
	})
}

func TestMaskTokenProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("mask is idempotent over the same input", prop.ForAll(
		func(secret string) bool {
			return MaskToken(secret) == MaskToken(secret)
		},
		genSecret(),
	))

	properties.Property("mask keeps only first and last four", prop.ForAll(
		func(secret string) bool {
			masked := MaskToken(secret)
			if len(masked) != len(secret) {
				return false
			}
			if len(secret) <= 8 {
				return masked == strings.Repeat("*", len(secret))
			}
			middle := masked[4 : len(masked)-4]
			return masked[:4] == secret[:4] &&
				masked[len(masked)-4:] == secret[len(secret)-4:] &&
				middle == strings.Repeat("*", len(middle))
		},
		genSecret(),
	))

	properties.TestingRun(t)
}

func TestMaskTokenExample(t *testing.T) {
	masked := MaskToken("ghp_1234567890abcdef")
	if masked != "ghp_************cdef" {
		t.Fatalf("unexpected mask %q", masked)
	}
	if strings.Contains(masked, "1234567890ab") {
		t.Fatal("mask leaked middle characters")
	}
	if MaskToken("short") != "*****" {
		t.Fatalf("short secrets must be fully masked, got %q", MaskToken("short"))
	}
}

// **Feature: dashboard-models, Property 2: Analysis state drives the action label**
// For any repository, the label is "Re-analyze" exactly when repo_updated_at is set,
// and the field survives JSON decoding untouched.

func TestRepositoryActionLabel(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("label follows repo_updated_at", prop.ForAll(
		func(id string, analyzed bool, unix int64) bool {
			payload := map[string]any{"id": id, "repo_name": "org/" + id, "repo_updated_at": nil}
			if analyzed {
				payload["repo_updated_at"] = time.Unix(unix, 0).UTC().Format(time.RFC3339)
			}
			raw, _ := json.Marshal(payload)

			var repo Repository
			if err := json.Unmarshal(raw, &repo); err != nil {
				return false
			}
			if analyzed {
				return repo.ActionLabel() == "Re-analyze" && repo.RepoUpdatedAt.Unix() == unix
			}
			return repo.ActionLabel() == "Analyze" && repo.RepoUpdatedAt == nil
		},
		gen.Identifier(),
		gen.Bool(),
		gen.Int64Range(0, 4102444800),
	))

	properties.TestingRun(t)
}

func TestAPIKeyRedacted(t *testing.T) {
	key := APIKey{ID: "k1", Key: "dvx_live_abcdefghijklmnop"}
	red := key.Redacted()

	if red.Key != "" {
		t.Fatal("raw key survived redaction")
	}
	if red.MaskedAPIKey != "dvx_*****************mnop" {
		t.Fatalf("unexpected masked key %q", red.MaskedAPIKey)
	}
	if key.Key == "" {
		t.Fatal("Redacted must not modify the receiver")
	}
}

func TestGitTokenRequestValidation(t *testing.T) {
	ok := CreateGitTokenRequest{Label: "ci", TokenValue: "ghp_x", GitHosting: GitHostingGitHub}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	bad := CreateGitTokenRequest{Label: "ci", TokenValue: "x", GitHosting: "bitbucket"}
	if err := bad.Validate(); err == nil {
		t.Fatal("unknown provider accepted")
	}
	if err := (UpdateGitTokenRequest{}).Validate(); err == nil {
		t.Fatal("empty update accepted")
	}
	if h, err := ParseGitHosting(" GitLab "); err != nil || h != GitHostingGitLab {
		t.Fatalf("ParseGitHosting = %q, %v", h, err)
	}
}

func TestPageNormalize(t *testing.T) {
	if got := (Page{}).Normalize(); got != DefaultPage() {
		t.Fatalf("zero page normalized to %+v", got)
	}
	if got := (Page{Limit: 5, Offset: -3}).Normalize(); got != (Page{Limit: 5, Offset: 0}) {
		t.Fatalf("negative offset normalized to %+v", got)
	}
}
