// gentoken signs an access token for manual testing and for platform
// components that call the credits service directly
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/inkdraft/credits/internal/models"
	"github.com/inkdraft/credits/internal/service/auth/tokenmanager"
)

func main() {
	var (
		secret string
		user   string
		role   string
		ttl    time.Duration
	)

	fs := pflag.NewFlagSet("gentoken", pflag.ContinueOnError)
	fs.StringVarP(&secret, "secret-key", "s", "", "Secret key to sign the token (required)")
	fs.StringVarP(&user, "user", "u", "", "User id, random if not set")
	fs.StringVarP(&role, "role", "r", models.RoleUser, "Caller role (user, service)")
	fs.DurationVarP(&ttl, "ttl", "t", 15*time.Minute, "Token lifetime")

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Printf("error while parsing flags: %v\n", err)
		os.Exit(1)
	}

	userID := uuid.New()
	if user != "" {
		parsed, err := uuid.Parse(user)
		if err != nil {
			fmt.Printf("error while parsing user id: %v\n", err)
			os.Exit(1)
		}
		userID = parsed
	}

	manager, err := tokenmanager.New(tokenmanager.Config{SecretKey: secret, TTL: ttl})
	if err != nil {
		fmt.Printf("error while creating token manager: %v\n", err)
		os.Exit(1)
	}

	token, err := manager.Generate(models.Caller{ID: userID, Role: role})
	if err != nil {
		fmt.Printf("error while signing token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
