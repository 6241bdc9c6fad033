package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"speck/speck-go/pkg/codegen"
	"speck/speck-go/pkg/driver"
	"speck/speck-go/pkg/gen"
	"speck/speck-go/pkg/lexer"
	"speck/speck-go/pkg/parser"
)

const cliToolVersion = "speck 0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "--help", "-h", "help":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	case "check":
		return runCheck(args[1:])
	case "generate":
		return runGenerate(args[1:])
	case "deps":
		return runDeps(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		printUsage()
		return 1
	}
}

func runCheck(args []string) int {
	suites, code := resolveSuites(args)
	if code != 0 {
		return code
	}
	for _, suite := range suites {
		if _, err := compileDocument(suite.sourcePath); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", suite.sourcePath, err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "%s: ok\n", suite.sourcePath)
	}
	return 0
}

func runGenerate(args []string) int {
	suites, code := resolveSuites(args)
	if code != 0 {
		return code
	}
	for _, suite := range suites {
		tree, err := compileDocument(suite.sourcePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", suite.sourcePath, err)
			return 1
		}
		sink := &codegen.FileSink{Path: suite.outputPath, Package: suite.pkg}
		if err := sink.Emit(tree); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", suite.sourcePath, err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "generated %s\n", suite.outputPath)
	}
	return 0
}

func runDeps(args []string) int {
	if len(args) == 0 || args[0] != "install" {
		fmt.Fprintln(os.Stderr, "speck deps requires the install subcommand")
		return 1
	}
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "speck deps install does not take arguments (received %s)\n", strings.Join(args[1:], " "))
		return 1
	}

	manifest, err := loadManifestFromCwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
		return 1
	}
	cacheDir, err := driver.ResolveCacheDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve SPECK_HOME: %v\n", err)
		return 1
	}

	fmt.Fprintf(os.Stdout, "Manifest: %s\n", manifest.Path)
	fmt.Fprintf(os.Stdout, "Libraries: %d\n", len(manifest.Libraries))

	installer := driver.NewInstaller(manifest, cacheDir)
	changed, logs, err := installer.Install()
	for _, line := range logs {
		fmt.Fprintln(os.Stdout, line)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to install libraries: %v\n", err)
		return 1
	}
	if changed {
		fmt.Fprintln(os.Stdout, "Libraries installed.")
	} else {
		fmt.Fprintln(os.Stdout, "Libraries already up to date.")
	}
	return 0
}

// plannedSuite is one compilation the CLI is about to run.
type plannedSuite struct {
	sourcePath string
	outputPath string
	pkg        string
}

// resolveSuites maps command arguments to planned compilations. A .speck
// path compiles directly; otherwise arguments name manifest suites, and no
// arguments means every declared suite.
func resolveSuites(args []string) ([]plannedSuite, int) {
	if len(args) == 1 && strings.HasSuffix(args[0], ".speck") {
		suite, err := planDirectFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return nil, 1
		}
		return []plannedSuite{suite}, 0
	}

	manifest, err := loadManifestFromCwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
		return nil, 1
	}
	cacheDir, err := driver.ResolveCacheDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve SPECK_HOME: %v\n", err)
		return nil, 1
	}

	names := manifest.SuiteNames()
	if len(args) > 0 {
		for _, name := range args {
			if _, ok := manifest.Suites[name]; !ok {
				fmt.Fprintf(os.Stderr, "suite %q not declared in manifest\n", name)
				return nil, 1
			}
		}
		names = args
	}

	var planned []plannedSuite
	for _, name := range names {
		suite := manifest.Suites[name]
		source, err := manifest.ResolveSource(suite, cacheDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return nil, 1
		}
		planned = append(planned, plannedSuite{
			sourcePath: source,
			outputPath: manifest.ResolveOutput(suite),
			pkg:        suite.Package,
		})
	}
	return planned, 0
}

// planDirectFile compiles one spec file without a manifest: output lands
// next to the source and the package name derives from the document's
// top-level group.
func planDirectFile(path string) (plannedSuite, error) {
	tree, err := compileDocument(path)
	if err != nil {
		return plannedSuite{}, fmt.Errorf("%s: %w", path, err)
	}
	base := strings.TrimSuffix(path, ".speck")
	return plannedSuite{
		sourcePath: path,
		outputPath: base + "_gen_test.go",
		pkg:        tree.Name + "_test",
	}, nil
}

// compileDocument runs the full pipeline on one spec file.
func compileDocument(path string) (*gen.Container, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}
	group, err := parser.Compile(lexer.New(src))
	if err != nil {
		return nil, err
	}
	return gen.Generate(group)
}

func loadManifestFromCwd() (*driver.Manifest, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	manifestPath, err := driver.FindManifest(cwd)
	if err != nil {
		if errors.Is(err, driver.ErrManifestNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("locate %s: %w", driver.ManifestName, err)
	}
	return driver.LoadManifest(manifestPath)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  speck check [suite ... | file.speck]")
	fmt.Fprintln(os.Stderr, "  speck generate [suite ... | file.speck]")
	fmt.Fprintln(os.Stderr, "  speck deps install")
	fmt.Fprintln(os.Stderr, "  speck version")
}
