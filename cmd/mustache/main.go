package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/benjaminschreck/go-mustache/pkg/mustache"
)

const version = "0.1.0"

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mustache <command> [arguments]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  render [-data file.json] [-partials dir] [-ext .mustache] [-strict] <template>")
	fmt.Fprintln(w, "                              Render a template file, \"-\" reads stdin")
	fmt.Fprintln(w, "  version                     Show version information")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("go-mustache version %s\n", version)
	case "render":
		if err := runRender(os.Args[2:], os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "mustache: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		usage(os.Stderr)
		os.Exit(1)
	}
}

func runRender(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	dataPath := fs.String("data", "", "JSON file with the data, \"-\" reads stdin")
	partialsDir := fs.String("partials", "", "directory to load partials from (default: the template's directory)")
	ext := fs.String("ext", ".mustache", "file extension of partials")
	strict := fs.Bool("strict", false, "fail on names missing from the data")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("render needs exactly one template argument")
	}
	templatePath := fs.Arg(0)
	if templatePath == "-" && *dataPath == "-" {
		return errors.New("template and data cannot both be read from stdin")
	}

	text, err := readInput(templatePath, stdin)
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}

	var data interface{}
	if *dataPath != "" {
		raw, err := readInput(*dataPath, stdin)
		if err != nil {
			return fmt.Errorf("reading data: %w", err)
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("parsing data: %w", err)
		}
	}

	dir := *partialsDir
	if dir == "" && templatePath != "-" {
		dir = filepath.Dir(templatePath)
	}

	opts := []mustache.Option{mustache.WithStrict(*strict)}
	if dir != "" {
		opts = append(opts, mustache.WithPartialLoader(mustache.NewFileLoader(dir, *ext)))
	}
	engine := mustache.NewWithOptions(opts...)

	tmpl, err := engine.Parse(string(text))
	if err != nil {
		return err
	}
	return engine.RenderTo(stdout, tmpl, data, nil)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if strings.TrimSpace(path) == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
