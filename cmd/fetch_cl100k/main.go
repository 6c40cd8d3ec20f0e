package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tokbudget/internal/loader"
)

// fetchRanks streams the rank file into a temp file next to destPath, validates it as a cl100k table and
// only then renames it into place. A failed or corrupt download never replaces an existing file.
func fetchRanks(url, destPath string, logger *zap.Logger) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	logger.Debug("downloaded rank file", zap.String("url", url), zap.Int64("bytes", n))

	table, err := loader.LoadCL100K(loader.FileSource{Path: tmp.Name()}, logger)
	if err != nil {
		return 0, fmt.Errorf("downloaded rank file is invalid: %w", err)
	}

	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return 0, fmt.Errorf("install %s: %w", destPath, err)
	}
	return table.Len(), nil
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	targetDir := filepath.Join("testdata", "cl100k")
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		logger.Fatal("mkdir", zap.String("dir", targetDir), zap.Error(err))
	}

	destPath := filepath.Join(targetDir, "cl100k_base.tiktoken")
	ranks, err := fetchRanks(loader.CL100KURL, destPath, logger)
	if err != nil {
		logger.Fatal("fetch cl100k ranks", zap.Error(err))
	}

	logger.Info("rank file installed", zap.String("path", destPath), zap.Int("ranks", ranks))
}
