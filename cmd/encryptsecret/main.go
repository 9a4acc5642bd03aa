// Command encryptsecret writes an encrypted API secret file for use with
// exchange.encrypted_secret_path. The secret and password are read from the
// environment so they never appear in shell history.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/agroverse/marketmaker/internal/crypto"
)

func main() {
	out := flag.String("out", "secret.enc.json", "output path for the encrypted secret file")
	flag.Parse()

	secret := os.Getenv("MMBOT_EXCHANGE_API_SECRET")
	password := os.Getenv("MMBOT_EXCHANGE_SECRET_PASSWORD")
	if secret == "" || password == "" {
		fmt.Fprintln(os.Stderr, "set MMBOT_EXCHANGE_API_SECRET and MMBOT_EXCHANGE_SECRET_PASSWORD")
		os.Exit(2)
	}

	blob, err := crypto.EncryptSecret([]byte(secret), password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encrypt: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, blob, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("encrypted secret written to %s\n", *out)
}
