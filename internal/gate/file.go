package gate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/tokbudget/internal/tokenizer"
)

// Kind classifies why a file was rejected.
type Kind int

const (
	NotFound Kind = iota + 1
	PermissionDenied
	InvalidFormat
	TokenLimit
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case PermissionDenied:
		return "permission denied"
	case InvalidFormat:
		return "invalid format"
	case TokenLimit:
		return "token limit"
	}
	return "unknown"
}

// FileError is an error that occurs when checking a file. Its message is meant for end users.
type FileError struct {
	Path  string
	Kind  Kind
	Count int
	Limit int
	Err   error
}

func (e *FileError) Error() string {
	switch e.Kind {
	case NotFound:
		return fmt.Sprintf("cannot access '%s': no such file", e.Path)
	case PermissionDenied:
		return fmt.Sprintf("cannot access '%s': permission denied", e.Path)
	case TokenLimit:
		return fmt.Sprintf("file '%s' token count '%d' exceeds token limit of %d", e.Path, e.Count, e.Limit)
	case InvalidFormat:
		return fmt.Sprintf("invalid format for file '%s': stream did not contain valid UTF-8", e.Path)
	}
	return fmt.Sprintf("invalid file '%s'", e.Path)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Accepted is a file that passed every check.
type Accepted struct {
	Path   string
	Tokens int
}

// FileChecker validates files before their content is forwarded anywhere.
type FileChecker struct {
	counter tokenizer.TokenCounter
	gate    *Gate
	logger  *zap.Logger
}

func NewFileChecker(counter tokenizer.TokenCounter, gate *Gate, logger *zap.Logger) *FileChecker {
	return &FileChecker{counter: counter, gate: gate, logger: logger}
}

// ParseFile checks that path exists, is readable UTF-8 text and fits the token budget.
func (c *FileChecker) ParseFile(path string) (Accepted, error) {
	accepted, _, err := c.parse(path, false)
	return accepted, err
}

// ParseFileIDs is ParseFile that also returns the token ids, counted from the same single read and
// encoding. The counter must implement tokenizer.TokenEncoder.
func (c *FileChecker) ParseFileIDs(path string) (Accepted, []int, error) {
	return c.parse(path, true)
}

func (c *FileChecker) parse(path string, keepIDs bool) (Accepted, []int, error) {
	var ids []int
	enc, canEncode := c.counter.(tokenizer.TokenEncoder)
	if keepIDs {
		if !canEncode {
			return Accepted{}, nil, fmt.Errorf("%s strategy does not produce token ids", c.counter.Name())
		}
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrPermission):
		return Accepted{}, nil, &FileError{Path: path, Kind: PermissionDenied, Err: err}
	case err != nil:
		return Accepted{}, nil, &FileError{Path: path, Kind: NotFound, Err: err}
	case info.IsDir():
		return Accepted{}, nil, &FileError{Path: path, Kind: InvalidFormat, Err: fmt.Errorf("%s is a directory", path)}
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return Accepted{}, nil, &FileError{Path: path, Kind: PermissionDenied, Err: err}
		}
		return Accepted{}, nil, &FileError{Path: path, Kind: NotFound, Err: err}
	}
	defer f.Close()

	text, err := tokenizer.ReadText(f)
	if err != nil {
		return Accepted{}, nil, &FileError{Path: path, Kind: InvalidFormat, Err: err}
	}

	var count int
	if keepIDs {
		ids, err = enc.EncodeTokens(text)
		count = len(ids)
	} else {
		count, err = c.counter.CountTokens(text)
	}
	if err != nil {
		return Accepted{}, nil, fmt.Errorf("count tokens of '%s': %w", path, err)
	}

	if err := c.gate.Check(count); err != nil {
		var exceeded *TokenLimitExceededError
		if errors.As(err, &exceeded) {
			c.logger.Warn("file over token budget", zap.String("path", path), zap.Int("tokens", count), zap.Int("limit", exceeded.Limit))
			return Accepted{}, nil, &FileError{Path: path, Kind: TokenLimit, Count: count, Limit: exceeded.Limit, Err: err}
		}
		return Accepted{}, nil, err
	}

	c.logger.Debug("file accepted", zap.String("path", path), zap.Int("tokens", count), zap.String("strategy", c.counter.Name()))
	return Accepted{Path: path, Tokens: count}, ids, nil
}
