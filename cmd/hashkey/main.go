package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ncecere/open_embedding_server/internal/auth"
)

// hashkey prints an argon2id hash for EMBED_AUTH_API_KEY_HASH. With -generate
// it also mints a fresh key.
func main() {
	generate := flag.Bool("generate", false, "generate a new random API key")
	flag.Parse()

	var key string
	switch {
	case *generate:
		generated, err := auth.GenerateAPIKey()
		if err != nil {
			log.Fatalf("generate key: %v", err)
		}
		key = generated
		fmt.Printf("api_key=%s\n", key)
	case flag.NArg() == 1:
		key = strings.TrimSpace(flag.Arg(0))
	default:
		fmt.Fprintln(os.Stderr, "usage: hashkey [-generate] [key]")
		os.Exit(2)
	}
	if key == "" {
		log.Fatal("key must not be empty")
	}

	hash, err := auth.HashKey(key)
	if err != nil {
		log.Fatalf("hash key: %v", err)
	}
	fmt.Printf("api_key_hash=%s\n", hash)
}
