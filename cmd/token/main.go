// Command token issues a bearer token for the signaltrader admin API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"signaltrader/internal/api/dto"
	"signaltrader/pkg/jwt"
)

func main() {
	subject := flag.String("subject", "", "token subject, e.g. the operator name")
	ttl := flag.String("ttl", "720h", "token lifetime; 0 for no expiry")
	flag.Parse()

	_ = godotenv.Load()

	if err := issue(os.Getenv("JWT_SECRET"), dto.TokenRequest{Subject: *subject, TTL: *ttl}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func issue(secret string, req dto.TokenRequest) error {
	if len(secret) < 16 {
		return fmt.Errorf("JWT_SECRET must be set and at least 16 characters")
	}
	if err := dto.Validate.Struct(req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	lifetime, err := time.ParseDuration(req.TTL)
	if err != nil {
		return fmt.Errorf("invalid ttl %q: %w", req.TTL, err)
	}

	token, err := jwt.GenerateToken(secret, req.Subject, lifetime)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	fmt.Println(token)
	return nil
}
