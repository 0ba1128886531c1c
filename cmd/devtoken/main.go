// Command devtoken prints a bearer token for local testing.
//
//	go run ./cmd/devtoken -uid u1 -email u1@example.com
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"vaquita/config"
	"vaquita/internal/adapters/auth"
)

func main() {
	uid := flag.String("uid", "", "user id (token subject)")
	emailAddr := flag.String("email", "", "email claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *uid == "" {
		log.Fatal("-uid is required")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	token, err := auth.NewJWTIssuer(cfg.JWTSecret).Issue(*uid, *emailAddr, *ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}
