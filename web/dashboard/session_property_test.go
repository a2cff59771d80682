package dashboard

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/devdox/dashboard/internal/identity"
	"github.com/devdox/dashboard/pkg/logger"
)

// **Feature: dashboard-sessions, Property 1: Session Gate Completeness**
// For any request, RequireSession SHALL admit it only when it carries a token
// signed with the verifier's secret, and SHALL expose that session's subject.

func genSubject() gopter.Gen {
	return gen.SliceOfN(10, gen.AlphaNumChar()).Map(func(chars []rune) string {
		return "user_" + string(chars)
	})
}

func genEmail() gopter.Gen {
	return gopter.CombineGens(
		gen.SliceOfN(8, gen.AlphaLowerChar()),
		gen.SliceOfN(5, gen.AlphaLowerChar()),
	).Map(func(vals []interface{}) string {
		return string(vals[0].([]rune)) + "@" + string(vals[1].([]rune)) + ".com"
	})
}

func genGarbageToken() gopter.Gen {
	return gen.SliceOfN(24, gen.AlphaNumChar()).Map(func(chars []rune) string {
		return string(chars)
	})
}

// gate runs a request with the given cookie through RequireSession and
// returns the status plus the subject seen by the inner handler.
func gate(t *testing.T, verifier *identity.Verifier, cookie string) (int, string) {
	var subject string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := identity.SessionFromContext(r.Context()); ok {
			subject = sess.Subject
		}
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireSession(verifier, "__session", "/sign-in", logger.Discard())(inner)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "__session", Value: cookie})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code, subject
}

func TestSessionGateCompleteness(t *testing.T) {
	verifier, err := identity.NewVerifier(identity.VerifierConfig{Secret: testSecret}, nil)
	if err != nil {
		t.Fatal(err)
	}
	issuer := identity.NewIssuer(testSecret, "", time.Hour)
	forger := identity.NewIssuer([]byte("not-the-dashboard-secret"), "", time.Hour)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("signed session is admitted with its subject", prop.ForAll(
		func(subject, email string) bool {
			token, err := issuer.Issue(subject, email, "sess")
			if err != nil {
				t.Logf("issue: %v", err)
				return false
			}
			code, seen := gate(t, verifier, token)
			if code != http.StatusNoContent {
				t.Logf("expected access, got status %d", code)
				return false
			}
			return seen == subject
		},
		genSubject(),
		genEmail(),
	))

	properties.Property("token signed with another secret is redirected", prop.ForAll(
		func(subject, email string) bool {
			token, err := forger.Issue(subject, email, "sess")
			if err != nil {
				return false
			}
			code, seen := gate(t, verifier, token)
			return code == http.StatusFound && seen == ""
		},
		genSubject(),
		genEmail(),
	))

	properties.Property("arbitrary strings are redirected", prop.ForAll(
		func(token string) bool {
			code, seen := gate(t, verifier, token)
			return code == http.StatusFound && seen == ""
		},
		genGarbageToken(),
	))

	properties.TestingRun(t)
}

func TestSessionGateEmptyCookie(t *testing.T) {
	verifier, err := identity.NewVerifier(identity.VerifierConfig{Secret: testSecret}, nil)
	if err != nil {
		t.Fatal(err)
	}
	code, _ := gate(t, verifier, "")
	if code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", code)
	}
}
