// Package main issues session tokens the dashboard accepts, for local development.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/devdox/dashboard/internal/identity"
)

func main() {
	subject := flag.String("user", "user_dev", "Subject (user ID) for the session")
	email := flag.String("email", "dev@localhost", "Email for the session")
	secret := flag.String("secret", "", "Signing secret (or set DEVDOX_IDENTITY_JWT_SECRET)")
	issuer := flag.String("issuer", os.Getenv("DEVDOX_IDENTITY_ISSUER"), "Issuer claim, must match DEVDOX_IDENTITY_ISSUER when set")
	expiry := flag.Duration("expiry", 24*time.Hour, "Session lifetime")
	flag.Parse()

	key := *secret
	if key == "" {
		key = os.Getenv("DEVDOX_IDENTITY_JWT_SECRET")
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "Error: signing secret required. Use -secret or set DEVDOX_IDENTITY_JWT_SECRET")
		fmt.Fprintln(os.Stderr, "Example: go run ./cmd/gentoken -secret 'your-secret-at-least-32-chars-long'")
		os.Exit(1)
	}
	if len(key) < 32 {
		fmt.Fprintln(os.Stderr, "Error: signing secret must be at least 32 characters")
		os.Exit(1)
	}

	token, err := identity.NewIssuer([]byte(key), *issuer, *expiry).Issue(*subject, *email, "sess_"+uuid.NewString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
