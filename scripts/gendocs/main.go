// Package main extracts CLI, configuration, script globals and validator
// metadata from virt-lint and generates markdown documentation.
//
// Usage:
//
//	go run ./scripts/gendocs -gen=cli -outdir=docs/cli
//	go run ./scripts/gendocs -gen=schema -outdir=docs/concepts
//	go run ./scripts/gendocs -gen=globals -outdir=docs/scripting
//	go run ./scripts/gendocs -gen=validators -outdir=docs/validators
//	go run ./scripts/gendocs -gen=all
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
)

var (
	genFlag    = flag.String("gen", "all", "what to generate: cli, schema, globals, validators, all")
	outDirFlag = flag.String("outdir", "", "output directory (defaults based on gen type)")
)

func main() {
	flag.Parse()

	validGenFlags := map[string]bool{"cli": true, "schema": true, "globals": true, "validators": true, "all": true}
	if !validGenFlags[*genFlag] {
		log.Fatalf("unknown -gen value: %s (use: cli, schema, globals, validators, all)", *genFlag)
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		log.Fatalf("failed to find project root: %v", err)
	}

	log.Printf("Project root: %s", projectRoot)

	outDir := func(def string) string {
		if *outDirFlag != "" && *genFlag != "all" {
			return *outDirFlag
		}
		return filepath.Join(projectRoot, "docs", def)
	}
	scriptDir := filepath.Join(projectRoot, "validators")

	generators := []struct {
		name string
		run  func() error
	}{
		{"cli", func() error { return generateCLIDocs(outDir("cli")) }},
		{"schema", func() error { return generateSchemaDocs(outDir("concepts")) }},
		{"globals", func() error { return generateGlobalsDocs(outDir("scripting")) }},
		{"validators", func() error { return generateValidatorDocs(outDir("validators"), scriptDir) }},
	}

	for _, g := range generators {
		if *genFlag != "all" && *genFlag != g.name {
			continue
		}
		if err := g.run(); err != nil {
			log.Fatalf("failed to generate %s docs: %v", g.name, err)
		}
	}

	log.Println("Done!")
}

// findProjectRoot walks up from current directory to find go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
