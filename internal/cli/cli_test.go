package cli

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tokbudget/internal/conf"
	"github.com/tokbudget/internal/gate"
	"github.com/tokbudget/internal/tokenizer"
)

func nopLogger(*conf.ConfigTpl) (*zap.Logger, error) {
	return zap.NewNop(), nil
}

// writeRanks writes every single byte plus "ab" at rank 256.
func writeRanks(t *testing.T) string {
	t.Helper()
	var sb strings.Builder
	for b := 0; b < 256; b++ {
		fmt.Fprintf(&sb, "%s %d\n", base64.StdEncoding.EncodeToString([]byte{byte(b)}), b)
	}
	fmt.Fprintf(&sb, "%s 256\n", base64.StdEncoding.EncodeToString([]byte("ab")))

	path := filepath.Join(t.TempDir(), "ranks.tiktoken")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func writeText(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_FILE_PATH", "")

	cmd := NewCLI(nopLogger)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestCountFiles(t *testing.T) {
	ranks := writeRanks(t)
	a := writeText(t, "a.txt", "ab ab")
	b := writeText(t, "b.txt", "xyz")

	out, err := run(t, "", "count", "--ranks-file", ranks, a, b)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%s 3\n%s 3\n", a, b), out)
}

func TestCountStdin(t *testing.T) {
	ranks := writeRanks(t)

	out, err := run(t, "ab ab", "count", "--ranks-file", ranks, "--ids")
	require.NoError(t, err)
	assert.Equal(t, "3\n256 32 256\n", out)
}

func TestCountFileIDs(t *testing.T) {
	ranks := writeRanks(t)
	a := writeText(t, "a.txt", "ab")

	out, err := run(t, "", "count", "--ranks-file", ranks, "--ids", a)
	require.NoError(t, err)
	assert.Equal(t, a+" 1\n256\n", out)
}

func TestCountFileIDsMatchCount(t *testing.T) {
	ranks := writeRanks(t)
	a := writeText(t, "a.txt", "ab ab xy")
	b := writeText(t, "b.txt", "abab")

	out, err := run(t, "", "count", "--ranks-file", ranks, "--ids", a, b)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%s 6\n256 32 256 32 120 121\n%s 2\n256 256\n", a, b), out)
}

func TestCountOverLimit(t *testing.T) {
	ranks := writeRanks(t)
	a := writeText(t, "a.txt", "one two three four")

	_, err := run(t, "", "count", "--ranks-file", ranks, "--limit", "2", a)
	var fe *gate.FileError
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Equal(t, gate.TokenLimit, fe.Kind)

	_, err = run(t, "one two three four", "count", "--ranks-file", ranks, "--limit", "2")
	var exceeded *gate.TokenLimitExceededError
	assert.True(t, errors.As(err, &exceeded), "got %v", err)
}

func TestCountMissingFile(t *testing.T) {
	ranks := writeRanks(t)

	_, err := run(t, "", "count", "--ranks-file", ranks, filepath.Join(t.TempDir(), "missing"))
	var fe *gate.FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, gate.NotFound, fe.Kind)
}

func TestCountSpecials(t *testing.T) {
	ranks := writeRanks(t)
	text := "ab" + tokenizer.EndOfText

	_, err := run(t, text, "count", "--ranks-file", ranks)
	var disallowed *tokenizer.DisallowedSpecialTokenError
	require.True(t, errors.As(err, &disallowed), "got %v", err)

	out, err := run(t, text, "count", "--ranks-file", ranks, "--allow-special", "all", "--ids")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("2\n256 %d\n", tokenizer.CL100KSpecialID), out)
}

func TestCountApproximate(t *testing.T) {
	out, err := run(t, "hello world", "count", "--strategy", "approximate")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	_, err = run(t, "hello world", "count", "--strategy", "approximate", "--ids")
	assert.Error(t, err)
}

func TestCountRejectsBadStrategy(t *testing.T) {
	_, err := run(t, "x", "count", "--strategy", "guess")
	assert.Error(t, err)
}

func TestCountInvalidUTF8Stdin(t *testing.T) {
	ranks := writeRanks(t)

	_, err := run(t, string([]byte{0xff}), "count", "--ranks-file", ranks)
	assert.ErrorIs(t, err, tokenizer.ErrInvalidFormat)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, conf.AppName+" "+conf.AppVersion+"\n", out)
}
