package main

import (
	"flag"
	"log"

	"github.com/danmuck/framewire/internal/config"
)

var defaultPaths = map[string]string{
	"wire":      "wire.toml",
	"probe":     "cmd/probectl/config.toml",
	"collector": "cmd/collectord/config.toml",
}

func main() {
	kind := flag.String("kind", "wire", "config kind: wire|probe|collector")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	defaultPath, ok := defaultPaths[*kind]
	if !ok {
		log.Fatalf("unknown kind: %s", *kind)
	}

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath
		}
		if err := config.ValidateFile(path, *kind); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}
