package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/ncecere/open_embedding_server/internal/config"
)

// dumpconfig prints the effective configuration with secrets masked.
func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg.Masked()); err != nil {
		log.Fatalf("encode config: %v", err)
	}
}
