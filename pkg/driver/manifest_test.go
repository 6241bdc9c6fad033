package driver_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"speck/speck-go/pkg/driver"
)

func writeManifest(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, driver.ManifestName)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)+"\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
name: demo
suites:
  core:
    source: specs/core.speck
    output: core_gen_test.go
    package: core_test
  shared:
    source: common.speck
    output: shared_gen_test.go
    package: shared_test
    library: helpers
libraries:
  helpers:
    git: https://example.com/specs.git
    rev: 0123456789abcdef0123456789abcdef01234567
`)
	manifest, err := driver.LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if manifest.Name != "demo" {
		t.Fatalf("name = %q", manifest.Name)
	}
	if got := manifest.SuiteNames(); len(got) != 2 || got[0] != "core" || got[1] != "shared" {
		t.Fatalf("suite names = %v", got)
	}
	suite := manifest.Suites["core"]
	if suite.Source != "specs/core.speck" || suite.Package != "core_test" {
		t.Fatalf("core suite = %+v", suite)
	}
	lib := manifest.Libraries["helpers"]
	if lib == nil || lib.Git != "https://example.com/specs.git" {
		t.Fatalf("helpers library = %+v", lib)
	}
}

func TestLoadManifestRejectsUnknownFields(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
name: demo
surprise: true
`)
	if _, err := driver.LoadManifest(path); err == nil {
		t.Fatalf("expected unknown-field error")
	}
}

func TestLoadManifestValidation(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
suites:
  broken:
    source: ""
    output: not_a_test_file.go
libraries:
  empty: {}
`)
	_, err := driver.LoadManifest(path)
	var validation *driver.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	joined := strings.Join(validation.Issues, "\n")
	for _, want := range []string{"name must be provided", "missing source", "_test.go", "missing package", "missing git url"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("issues missing %q:\n%s", want, joined)
		}
	}
}

func TestLoadManifestUndeclaredLibrary(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
name: demo
suites:
  s:
    source: a.speck
    output: a_gen_test.go
    package: a_test
    library: ghost
`)
	_, err := driver.LoadManifest(path)
	var validation *driver.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
}

func TestLoadManifestEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, driver.ManifestName)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if _, err := driver.LoadManifest(path); err == nil {
		t.Fatalf("expected error for empty manifest")
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "name: demo")
	child := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	found, err := driver.FindManifest(child)
	if err != nil {
		t.Fatalf("FindManifest returned error: %v", err)
	}
	if found != filepath.Join(root, driver.ManifestName) {
		t.Fatalf("FindManifest = %q", found)
	}
}

func TestFindManifestMissing(t *testing.T) {
	_, err := driver.FindManifest(t.TempDir())
	if !errors.Is(err, driver.ErrManifestNotFound) {
		t.Fatalf("error = %v, want ErrManifestNotFound", err)
	}
}

func TestResolvePaths(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
name: demo
suites:
  core:
    source: specs/core.speck
    output: out/core_gen_test.go
    package: core_test
`)
	manifest, err := driver.LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	suite := manifest.Suites["core"]

	source, err := manifest.ResolveSource(suite, "")
	if err != nil {
		t.Fatalf("ResolveSource returned error: %v", err)
	}
	if source != filepath.Join(dir, "specs", "core.speck") {
		t.Fatalf("source = %q", source)
	}
	if got := manifest.ResolveOutput(suite); got != filepath.Join(dir, "out", "core_gen_test.go") {
		t.Fatalf("output = %q", got)
	}
}

func TestResolveCacheDirEnv(t *testing.T) {
	target := filepath.Join(t.TempDir(), "cache")
	t.Setenv("SPECK_HOME", target)

	got, err := driver.ResolveCacheDir()
	if err != nil {
		t.Fatalf("ResolveCacheDir returned error: %v", err)
	}
	if got != target {
		t.Fatalf("ResolveCacheDir = %q, want %q", got, target)
	}
}

func TestResolveCacheDirDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SPECK_HOME", "")
	t.Setenv("HOME", home)

	got, err := driver.ResolveCacheDir()
	if err != nil {
		t.Fatalf("ResolveCacheDir returned error: %v", err)
	}
	if got != filepath.Join(home, ".speck") {
		t.Fatalf("ResolveCacheDir = %q", got)
	}
}
