// Package driver loads speck.yml project manifests and resolves the suites
// and remote suite libraries they declare.
package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestName is the file the CLI discovers by walking up from the working
// directory.
const ManifestName = "speck.yml"

// ErrManifestNotFound reports that no speck.yml exists at or above a path.
var ErrManifestNotFound = errors.New("speck.yml not found")

// Manifest represents the parsed contents of speck.yml.
type Manifest struct {
	Path      string
	Name      string
	Suites    map[string]*SuiteSpec
	Libraries map[string]*LibrarySpec

	suiteOrder []string
}

// SuiteSpec describes one spec document and where its generated test file
// goes. Library, when set, resolves Source relative to a fetched library
// checkout instead of the manifest directory.
type SuiteSpec struct {
	Name    string
	Source  string
	Output  string
	Package string
	Library string
}

// LibrarySpec describes a remote collection of shared spec documents.
type LibrarySpec struct {
	Name string
	Git  string
	Rev  string
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "driver: invalid manifest"
	}
	var b strings.Builder
	b.WriteString("driver: manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

type manifestFile struct {
	Name      string                   `yaml:"name"`
	Suites    map[string]*suiteEntry   `yaml:"suites"`
	Libraries map[string]*libraryEntry `yaml:"libraries"`
}

type suiteEntry struct {
	Source  string `yaml:"source"`
	Output  string `yaml:"output"`
	Package string `yaml:"package"`
	Library string `yaml:"library"`
}

type libraryEntry struct {
	Git string `yaml:"git"`
	Rev string `yaml:"rev"`
}

// LoadManifest parses speck.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("driver: empty manifest path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("driver: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("driver: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("driver: %s is empty", absPath)
		}
		return nil, fmt.Errorf("driver: parse %s: %w", absPath, err)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (f *manifestFile) toManifest(path string) *Manifest {
	m := &Manifest{
		Path:      path,
		Name:      strings.TrimSpace(f.Name),
		Suites:    make(map[string]*SuiteSpec, len(f.Suites)),
		Libraries: make(map[string]*LibrarySpec, len(f.Libraries)),
	}
	for name, entry := range f.Suites {
		if entry == nil {
			entry = &suiteEntry{}
		}
		m.Suites[name] = &SuiteSpec{
			Name:    name,
			Source:  strings.TrimSpace(entry.Source),
			Output:  strings.TrimSpace(entry.Output),
			Package: strings.TrimSpace(entry.Package),
			Library: strings.TrimSpace(entry.Library),
		}
		m.suiteOrder = append(m.suiteOrder, name)
	}
	sort.Strings(m.suiteOrder)
	for name, entry := range f.Libraries {
		if entry == nil {
			entry = &libraryEntry{}
		}
		m.Libraries[name] = &LibrarySpec{
			Name: name,
			Git:  strings.TrimSpace(entry.Git),
			Rev:  strings.TrimSpace(entry.Rev),
		}
	}
	return m
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	for _, name := range m.suiteOrder {
		suite := m.Suites[name]
		if suite.Source == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("suite %q missing source", name))
		}
		if suite.Output == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("suite %q missing output", name))
		} else if !strings.HasSuffix(suite.Output, "_test.go") {
			errs.Issues = append(errs.Issues, fmt.Sprintf("suite %q output must be a _test.go file", name))
		}
		if suite.Package == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("suite %q missing package", name))
		}
		if suite.Library != "" {
			if _, ok := m.Libraries[suite.Library]; !ok {
				errs.Issues = append(errs.Issues, fmt.Sprintf("suite %q references undeclared library %q", name, suite.Library))
			}
		}
	}
	for name, lib := range m.Libraries {
		if lib.Git == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("library %q missing git url", name))
		}
	}
	if len(errs.Issues) > 0 {
		sort.Strings(errs.Issues)
		return &errs
	}
	return nil
}

// SuiteNames returns the declared suites in stable order.
func (m *Manifest) SuiteNames() []string {
	names := make([]string, len(m.suiteOrder))
	copy(names, m.suiteOrder)
	return names
}

// ResolveSource returns the absolute path of a suite's spec document.
// Local suites resolve relative to the manifest directory; library suites
// resolve relative to the library checkout under cacheDir.
func (m *Manifest) ResolveSource(suite *SuiteSpec, cacheDir string) (string, error) {
	if suite == nil {
		return "", fmt.Errorf("driver: nil suite")
	}
	if suite.Library == "" {
		return filepath.Join(filepath.Dir(m.Path), filepath.FromSlash(suite.Source)), nil
	}
	lib, ok := m.Libraries[suite.Library]
	if !ok {
		return "", fmt.Errorf("driver: suite %q references undeclared library %q", suite.Name, suite.Library)
	}
	checkout := LibraryDir(cacheDir, lib)
	if _, err := os.Stat(checkout); err != nil {
		return "", fmt.Errorf("driver: library %q not installed (run `speck deps install`): %w", lib.Name, err)
	}
	return filepath.Join(checkout, filepath.FromSlash(suite.Source)), nil
}

// ResolveOutput returns the absolute path of a suite's generated file,
// always relative to the manifest directory.
func (m *Manifest) ResolveOutput(suite *SuiteSpec) string {
	return filepath.Join(filepath.Dir(m.Path), filepath.FromSlash(suite.Output))
}

// FindManifest walks upward from start looking for speck.yml.
func FindManifest(start string) (string, error) {
	dir := start
	for {
		candidate := filepath.Join(dir, ManifestName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("driver: %w (searched from %s)", ErrManifestNotFound, start)
		}
		dir = parent
	}
}
