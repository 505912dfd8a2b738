// Command tokengen generates test access tokens for the roster API.
// These tokens use the dev signing key and will NOT work in production.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"roster/internal/token"
	id "roster/pkg/domain"
)

const (
	// Dev signing key - matches config.go when JWT_SIGNING_KEY is not set
	devSigningKey = "dev-secret-key-change-in-production"

	defaultIssuer   = "roster"
	defaultTokenTTL = 15 * time.Minute
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	ExpiresIn string            `json:"expires_in"`
	Claims    map[string]any    `json:"claims"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	userID := flag.String("user-id", "", "User ID (UUID). Generated if empty.")
	username := flag.String("username", "devuser", "Username claim")
	roles := flag.String("roles", "user", "Comma-separated role names")
	branchID := flag.String("branch-id", "", "Branch ID claim (optional)")
	ttl := flag.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	signingKey := flag.String("signing-key", devSigningKey, "HS256 signing key (must match JWT_SIGNING_KEY)")
	issuer := flag.String("issuer", defaultIssuer, "Issuer claim (must match JWT_ISSUER)")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Usage = printUsage
	flag.Parse()

	uid := parseOrGenerateUserID(*userID)
	roleList := splitList(*roles)

	svc := token.NewJWTService(*signingKey, *issuer, *ttl)
	signed, jti, err := svc.GenerateAccessToken(uid, *username, roleList, *branchID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printJSON(tokenOutput{
			Token:     signed,
			Type:      "access_token",
			ExpiresIn: ttl.String(),
			Claims: map[string]any{
				"user_id":   uid.String(),
				"username":  *username,
				"roles":     roleList,
				"branch_id": *branchID,
				"jti":       jti,
			},
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
		return
	}

	fmt.Println("Access Token (JWT)")
	fmt.Println("==================")
	fmt.Printf("Expires In: %s\n", ttl)
	fmt.Printf("User ID:    %s\n", uid)
	fmt.Printf("Username:   %s\n", *username)
	fmt.Printf("Roles:      %v\n", roleList)
	if *branchID != "" {
		fmt.Printf("Branch ID:  %s\n", *branchID)
	}
	fmt.Printf("JTI:        %s\n", jti)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(signed)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/users")
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `tokengen - Generate test access tokens for the roster API

WARNING: These tokens use the dev signing key and will NOT work in
         production. Only use for local development and testing.

Examples:
  # Generate a token with defaults
  tokengen

  # Admin token for the branch management routes
  tokengen -roles "user,Admin"

  # Token bound to an existing account
  tokengen -user-id "550e8400-e29b-41d4-a716-446655440000" -username jdoe

  # Output as JSON
  tokengen -json

Flags:`)
	flag.PrintDefaults()
}

func parseOrGenerateUserID(input string) id.UserID {
	if input == "" {
		return id.UserID(uuid.New())
	}
	uid, err := id.ParseUserID(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid user-id UUID: %s\n", input)
		os.Exit(1)
	}
	return uid
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
