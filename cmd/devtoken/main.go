// Command devtoken prints an identity token for local testing against JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"applyai/domain"
	"applyai/infrastructure"
)

func main() {
	uid := flag.String("uid", "", "user id (token subject)")
	email := flag.String("email", "", "user email")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" || *uid == "" {
		logrus.Fatal("JWT_SECRET and -uid are required")
	}

	tok, err := infrastructure.NewTokenVerifier(secret).Issue(domain.Identity{UID: *uid, Email: *email}, *ttl)
	if err != nil {
		logrus.WithError(err).Fatal("sign token")
	}
	fmt.Println(tok)
}
