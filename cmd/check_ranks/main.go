package main

import (
	"flag"
	"log"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tokbudget/internal/loader"
)

func main() {
	path := flag.String("ranks", filepath.Join("testdata", "cl100k", "cl100k_base.tiktoken"), "rank file to validate")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	table, err := loader.LoadCL100K(loader.FileSource{Path: *path}, logger)
	if err != nil {
		logger.Fatal("failed to load rank table", zap.Error(err))
	}

	logger.Info("rank table loaded and every byte has a base rank",
		zap.Int("entries", table.Len()),
		zap.Int("max_rank", table.MaxRank()),
		zap.Int("max_token_bytes", table.MaxTokenByteLen()))
}
