package loader

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"go.uber.org/zap"

	"github.com/tokbudget/internal/tokenizer"
)

// CL100KURL is where OpenAI publishes the cl100k rank file.
const CL100KURL = "https://openaipublic.blob.core.windows.net/encodings/cl100k_base.tiktoken"

// Source supplies raw rank entries. Fetching, caching and parsing live here so the tokenizer only ever sees
// a finished table.
type Source interface {
	Name() string
	LoadRanks() ([]tokenizer.Entry, error)
}

// FileSource reads a rank file from local disk.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string {
	return "file:" + s.Path
}

func (s FileSource) LoadRanks() ([]tokenizer.Entry, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open rank file: %w", err)
	}
	defer f.Close()

	return ParseTiktoken(f)
}

// ReaderSource parses a rank file from any reader. It can be loaded once.
type ReaderSource struct {
	Label  string
	Reader io.Reader
}

func (s ReaderSource) Name() string {
	return "reader:" + s.Label
}

func (s ReaderSource) LoadRanks() ([]tokenizer.Entry, error) {
	return ParseTiktoken(s.Reader)
}

// OfflineSource serves the cl100k rank file compiled into the binary.
type OfflineSource struct{}

func (OfflineSource) Name() string {
	return "offline"
}

func (OfflineSource) LoadRanks() ([]tokenizer.Entry, error) {
	ranks, err := tiktoken_loader.NewOfflineLoader().LoadTiktokenBpe(CL100KURL)
	if err != nil {
		return nil, fmt.Errorf("load embedded ranks: %w", err)
	}
	return fromRankMap(ranks), nil
}

// RemoteSource downloads a rank file, caching it under TIKTOKEN_CACHE_DIR.
type RemoteSource struct {
	URL    string
	Loader tiktoken.BpeLoader
}

func NewRemoteSource(url string) RemoteSource {
	if url == "" {
		url = CL100KURL
	}
	return RemoteSource{URL: url, Loader: tiktoken.NewDefaultBpeLoader()}
}

func (s RemoteSource) Name() string {
	return "remote:" + s.URL
}

func (s RemoteSource) LoadRanks() ([]tokenizer.Entry, error) {
	ranks, err := s.Loader.LoadTiktokenBpe(s.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.URL, err)
	}
	return fromRankMap(ranks), nil
}

// LoadCL100K loads entries from src and builds a validated table with the cl100k special tokens.
func LoadCL100K(src Source, logger *zap.Logger) (*tokenizer.RankTable, error) {
	start := time.Now()

	entries, err := src.LoadRanks()
	if err != nil {
		return nil, err
	}

	table, err := tokenizer.Build(entries, tokenizer.CL100KSpecials())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Name(), err)
	}

	logger.Debug("rank table loaded",
		zap.String("source", src.Name()),
		zap.Int("entries", table.Len()),
		zap.Int("max_rank", table.MaxRank()),
		zap.Duration("took", time.Since(start)))
	return table, nil
}
