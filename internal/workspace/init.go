package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/gitops"
	"github.com/tally-dev/tally/internal/store"
)

// ErrExists is returned by Init when the directory already has a tally.yaml.
var ErrExists = errors.New("workspace already initialized")

// InitOptions control Init.
type InitOptions struct {
	// Git initializes a repository, enables auto-commit and makes the first
	// commit.
	Git bool
	// GitOutput receives git's own output.
	GitOutput io.Writer
}

// InitResult describes a freshly created workspace.
type InitResult struct {
	Root       string
	CommitHash string
}

// Init creates the workspace layout in dir: tally.yaml, an empty data file,
// logs/ and import/processed/.
func Init(ctx context.Context, dir string, opts InitOptions) (InitResult, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return InitResult{}, fmt.Errorf("resolving path: %w", err)
	}

	cfgPath := filepath.Join(root, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return InitResult{}, fmt.Errorf("%w: %s", ErrExists, cfgPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return InitResult{}, fmt.Errorf("checking %s: %w", cfgPath, err)
	}

	for _, d := range []string{"logs", "import", filepath.Join("import", "processed")} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return InitResult{}, fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default()
	cfg.Git.AutoCommit = opts.Git
	if err := config.Save(cfgPath, cfg); err != nil {
		return InitResult{}, fmt.Errorf("writing config: %w", err)
	}

	data := store.NewFileStore(cfg.DataPath(root))
	if _, err := os.Stat(data.Path()); errors.Is(err, fs.ErrNotExist) {
		if err := data.Save(ctx, nil); err != nil {
			return InitResult{}, fmt.Errorf("writing data file: %w", err)
		}
	}

	gitignore := ".env\ntally.db\nlogs/tally.log\nimport/processed/\n"
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return InitResult{}, fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(root, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return InitResult{}, fmt.Errorf("writing .gitkeep: %w", err)
	}

	res := InitResult{Root: root}
	if !opts.Git {
		return res, nil
	}

	out := opts.GitOutput
	if out == nil {
		out = io.Discard
	}
	if !gitops.IsRepo(root) {
		if err := gitops.Init(root, out); err != nil {
			return InitResult{}, err
		}
	}
	author := gitops.Author{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail}
	res.CommitHash, err = gitops.Commit(root, "init: tally workspace", author,
		config.FileName, cfg.DataFile, ".gitignore", "import/.gitkeep")
	if err != nil {
		return InitResult{}, fmt.Errorf("initial commit: %w", err)
	}
	return res, nil
}
