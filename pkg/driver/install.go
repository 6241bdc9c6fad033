package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// LibraryDir returns the cache checkout directory for a library. Revisions
// get their own directory so switching rev never mutates an existing
// checkout.
func LibraryDir(cacheDir string, lib *LibrarySpec) string {
	rev := lib.Rev
	if rev == "" {
		rev = "HEAD"
	}
	return filepath.Join(cacheDir, "libraries", lib.Name, sanitizeRev(rev))
}

func sanitizeRev(rev string) string {
	var b strings.Builder
	for _, r := range rev {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "HEAD"
	}
	return b.String()
}

// Installer fetches the manifest's declared libraries into the cache.
type Installer struct {
	manifest *Manifest
	cacheDir string
}

// NewInstaller returns an Installer for manifest backed by cacheDir.
func NewInstaller(manifest *Manifest, cacheDir string) *Installer {
	return &Installer{manifest: manifest, cacheDir: cacheDir}
}

// Install clones every declared library that is not already cached. It
// returns whether anything changed plus one log line per library.
func (i *Installer) Install() (bool, []string, error) {
	if i == nil || i.manifest == nil {
		return false, nil, fmt.Errorf("driver: installer requires a manifest")
	}

	names := make([]string, 0, len(i.manifest.Libraries))
	for name := range i.manifest.Libraries {
		names = append(names, name)
	}
	sort.Strings(names)

	changed := false
	var logs []string
	for _, name := range names {
		lib := i.manifest.Libraries[name]
		target := LibraryDir(i.cacheDir, lib)
		if _, err := os.Stat(target); err == nil {
			logs = append(logs, fmt.Sprintf("library %s already installed at %s", name, target))
			continue
		}
		if err := i.fetch(lib, target); err != nil {
			return changed, logs, err
		}
		changed = true
		logs = append(logs, fmt.Sprintf("installed library %s at %s", name, target))
	}
	return changed, logs, nil
}

func (i *Installer) fetch(lib *LibrarySpec, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("driver: prepare cache for %s: %w", lib.Name, err)
	}
	repo, err := git.PlainClone(target, false, &git.CloneOptions{URL: lib.Git})
	if err != nil {
		cleanupFailedClone(target)
		return fmt.Errorf("driver: clone %s from %s: %w", lib.Name, lib.Git, err)
	}
	if lib.Rev == "" {
		return nil
	}
	// rev may be a commit hash, a tag, or a branch name.
	hash, err := repo.ResolveRevision(plumbing.Revision(lib.Rev))
	if err != nil {
		cleanupFailedClone(target)
		return fmt.Errorf("driver: resolve %s rev %q: %w", lib.Name, lib.Rev, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		cleanupFailedClone(target)
		return fmt.Errorf("driver: worktree for %s: %w", lib.Name, err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		cleanupFailedClone(target)
		return fmt.Errorf("driver: checkout %s@%s: %w", lib.Name, lib.Rev, err)
	}
	return nil
}

// cleanupFailedClone removes a partial checkout so a retry starts clean.
func cleanupFailedClone(target string) {
	_ = os.RemoveAll(target)
}

// ResolveCacheDir resolves the library cache root: SPECK_HOME when set,
// otherwise ~/.speck.
func ResolveCacheDir() (string, error) {
	if home := strings.TrimSpace(os.Getenv("SPECK_HOME")); home != "" {
		abs, err := filepath.Abs(home)
		if err != nil {
			return "", fmt.Errorf("driver: resolve SPECK_HOME %q: %w", home, err)
		}
		return abs, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("driver: resolve user home: %w", err)
	}
	return filepath.Join(userHome, ".speck"), nil
}
