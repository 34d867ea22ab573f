// Command devtoken prints a signed access token for local development. It uses
// the same JWT_* settings as the server.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	jwttoken "anima/internal/jwt_token"
	"anima/internal/platform/config"
	id "anima/pkg/domain"
)

func main() {
	principalFlag := flag.String("principal", "", "principal UUID (random when empty)")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	principal := id.PrincipalID(uuid.New())
	if *principalFlag != "" {
		principal, err = id.ParsePrincipalID(*principalFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, "principal:", err)
			os.Exit(2)
		}
	}

	svc := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	token, err := svc.GenerateAccessToken(principal, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "principal: %s\n", principal)
	fmt.Println(token)
}
