package tokbudget

import (
	"bytes"
	"context"
	"io"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokbudget/internal/loader"
	"github.com/tokbudget/internal/tokenizer"
)

// Encoder interface
type Encoder interface {
	/*
		Encode returns the cl100k token ids of text in input order. A special token literal the tokenizer was not
		told to allow fails the call instead of being encoded as ordinary text.
	*/
	Encode(text string) ([]int, error)
}

// Decoder interface
type Decoder interface {
	// Decode maps token ids back to the exact bytes they were encoded from.
	Decode(tokens []int) ([]byte, error)
}

var (
	_ Encoder = (*Tokenizer)(nil)
	_ Decoder = (*Tokenizer)(nil)
)

// Tokenizer counts cl100k tokens. It is safe for concurrent use.
type Tokenizer struct {
	enc     *tokenizer.Encoder
	allowed tokenizer.SpecialSet
}

type options struct {
	allowed []string
	all     bool
}

// Option configures a Tokenizer.
type Option func(*options)

// WithAllowedSpecials lets the named special token literals through as special tokens.
func WithAllowedSpecials(literals ...string) Option {
	return func(o *options) {
		o.allowed = append(o.allowed, literals...)
	}
}

// WithAllSpecials allows every registered special token.
func WithAllSpecials() Option {
	return func(o *options) {
		o.all = true
	}
}

func newTokenizer(table *tokenizer.RankTable, opts []Option) (*Tokenizer, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	enc, err := tokenizer.NewCL100KEncoder(table)
	if err != nil {
		return nil, err
	}

	allowed := tokenizer.NewSpecialSet(o.allowed...)
	if o.all {
		allowed = table.AllSpecials()
	}
	return &Tokenizer{enc: enc, allowed: allowed}, nil
}

// LoadTokenizer builds a tokenizer from the contents of a cl100k-style rank file.
func LoadTokenizer(ranks []byte, opts ...Option) (*Tokenizer, error) {
	table, err := loader.LoadCL100K(loader.ReaderSource{Label: "bytes", Reader: bytes.NewReader(ranks)}, zap.NewNop())
	if err != nil {
		return nil, err
	}
	return newTokenizer(table, opts)
}

var cl100kTable = sync.OnceValues(func() (*tokenizer.RankTable, error) {
	return loader.LoadCL100K(loader.OfflineSource{}, zap.NewNop())
})

// CL100K returns a tokenizer over the embedded cl100k vocabulary. The vocabulary is loaded once per process.
func CL100K(opts ...Option) (*Tokenizer, error) {
	table, err := cl100kTable()
	if err != nil {
		return nil, err
	}
	return newTokenizer(table, opts)
}

func (t *Tokenizer) Encode(text string) ([]int, error) {
	return t.enc.Encode(text, t.allowed)
}

func (t *Tokenizer) Decode(tokens []int) ([]byte, error) {
	return t.enc.Table().Decode(tokens)
}

// CountString returns the number of tokens in text.
func (t *Tokenizer) CountString(text string) (int, error) {
	return t.enc.Count(text, t.allowed)
}

// Count reads r to the end and returns its token count. Content that is not valid UTF-8 fails with
// ErrInvalidFormat.
func (t *Tokenizer) Count(r io.Reader) (int, error) {
	return t.enc.CountReader(r, t.allowed)
}

// CountAll counts each text concurrently; counts[i] belongs to texts[i].
func (t *Tokenizer) CountAll(ctx context.Context, texts []string) ([]int, error) {
	counts := make([]int, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, text := range texts {
		g.Go(func() error {
			ids, err := t.enc.EncodeContext(ctx, text, t.allowed)
			if err != nil {
				return err
			}
			counts[i] = len(ids)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// Count reads r fully and returns its cl100k token count using the embedded vocabulary.
func Count(r io.Reader, opts ...Option) (int, error) {
	t, err := CL100K(opts...)
	if err != nil {
		return 0, err
	}
	return t.Count(r)
}
