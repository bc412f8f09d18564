// Command sg is a dev CLI for sentigraph maintenance and debugging tasks.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/browser"

	"github.com/ibeckermayer/sentigraph/internal/config"
	"github.com/ibeckermayer/sentigraph/internal/logging"
	"github.com/ibeckermayer/sentigraph/internal/store"
)

var log = logging.New("info", "text")

var steps = map[string]store.StepName{
	"ingest":     store.StepIngest,
	"scores":     store.StepScores,
	"aggregates": store.StepAggregates,
	"graphs":     store.StepGraphs,
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "open":
		if len(os.Args) < 3 {
			fmt.Println("Usage: sg open <config|cache|report>")
			os.Exit(1)
		}
		runOpen(os.Args[2])
	case "last":
		if len(os.Args) < 3 {
			fmt.Println("Usage: sg last <ingest|scores|aggregates|graphs>")
			os.Exit(1)
		}
		runLast(os.Args[2])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: sg <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  open config    Open config file in default editor")
	fmt.Println("  open cache     Open cache directory in file explorer")
	fmt.Println("  open report    Open the last HTML report")
	fmt.Println("  last <step>    Print the latest cached output of a pipeline step")
}

func runOpen(target string) {
	var path string
	var err error

	switch target {
	case "config":
		path, err = config.ConfigPath()
	case "cache":
		path, err = config.CacheDir()
	case "report":
		var cfg *config.Config
		cfg, err = config.Load()
		if os.IsNotExist(err) {
			cfg, err = config.Default(), nil
		}
		if err == nil {
			path = filepath.Join(cfg.Output.Dir, "report.html")
		}
	default:
		fmt.Printf("Unknown target: %s\n", target)
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Failed to get path: %v", err)
	}

	if err := browser.OpenFile(path); err != nil {
		log.Fatalf("Failed to open: %v", err)
	}
}

func runLast(name string) {
	step, ok := steps[name]
	if !ok {
		fmt.Printf("Unknown step: %s\n", name)
		os.Exit(1)
	}

	cacheDir, err := config.CacheDir()
	if err != nil {
		log.Fatalf("Failed to get cache dir: %v", err)
	}

	data, path, err := store.LoadLatestStepOutput[json.RawMessage](cacheDir, step)
	if err != nil {
		log.Fatalf("Failed to load cached output: %v", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		log.Fatalf("Failed to format %s: %v", path, err)
	}

	fmt.Fprintf(os.Stderr, "%s\n", path)
	pretty.WriteTo(os.Stdout)
	fmt.Println()
}
