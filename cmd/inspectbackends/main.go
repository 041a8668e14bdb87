package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ncecere/open_embedding_server/internal/config"
	"github.com/ncecere/open_embedding_server/internal/providers"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	probe := flag.Bool("probe", false, "load the configured model and report its dimensions")
	flag.Parse()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tCAPABILITIES\tDESCRIPTION")
	for _, def := range providers.DefaultDefinitions() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", def.Name, strings.Join(def.Capabilities, ","), def.Description)
	}
	_ = w.Flush()

	if !*probe {
		return
	}

	cfg, err := config.Load(config.Options{ConfigFile: *configFile})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	model, err := providers.LoadFromConfig(context.Background(), cfg)
	if err != nil {
		log.Fatalf("probe %s: %v", cfg.Model.Backend, err)
	}
	info := model.Info()
	fmt.Printf("\nloaded %s via %s: %d dimensions\n", info.Name, info.Backend, info.Dimensions)
}
