package tokbudget

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestTokenizer(t *testing.T, opts ...Option) *Tokenizer {
	t.Helper()
	tok, err := CL100K(opts...)
	require.NoError(t, err)
	return tok
}

func TestCL100KKnownEncodings(t *testing.T) {
	tok := loadTestTokenizer(t)

	tests := []struct {
		text string
		want []int
	}{
		{"hello world", []int{15339, 1917}},
		{"tiktoken is great!", []int{83, 1609, 5963, 374, 2294, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := tok.Encode(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

var crossCheckTexts = []string{
	"",
	"a",
	"Hello, world!",
	"I'm sure they'll say we've done what's right.",
	"The year 2024 had 366 days; 1234567890 is a long number.",
	"   leading spaces and trailing spaces   ",
	"line one\nline two\r\n\r\n\tindented\n",
	"func main() {\n\tfmt.Println(\"hi\")\n}\n",
	"héllo wörld, ça va? naïve café",
	"日本語のテキストも数えられます。",
	"emoji 👋🏽 and 🔥🔥🔥 mixed in",
	"<|not a special|> < | > <||>",
	strings.Repeat("determinism ", 50),
	"ALL CAPS DON'T MATTER, IT'S FINE",
}

func TestMatchesTiktokenGo(t *testing.T) {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	ref, err := tiktoken.GetEncoding("cl100k_base")
	require.NoError(t, err)

	tok := loadTestTokenizer(t)
	for i, text := range crossCheckTexts {
		t.Run(fmt.Sprintf("text_%d", i), func(t *testing.T) {
			got, err := tok.Encode(text)
			require.NoError(t, err)

			want := ref.Encode(text, nil, nil)
			if len(want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tok := loadTestTokenizer(t)

	for _, text := range crossCheckTexts {
		ids, err := tok.Encode(text)
		require.NoError(t, err)

		out, err := tok.Decode(ids)
		require.NoError(t, err)
		assert.Equal(t, text, string(out))
	}
}

func TestCountSpecialGating(t *testing.T) {
	text := "document one" + "<|endoftext|>" + "document two"

	_, err := Count(strings.NewReader(text))
	var disallowed *DisallowedSpecialTokenError
	require.True(t, errors.As(err, &disallowed), "got %v", err)
	assert.Equal(t, "<|endoftext|>", disallowed.Literal)

	allowed, err := Count(strings.NewReader(text), WithAllowedSpecials("<|endoftext|>"))
	require.NoError(t, err)

	tok := loadTestTokenizer(t)
	one, err := tok.CountString("document one")
	require.NoError(t, err)
	two, err := tok.CountString("document two")
	require.NoError(t, err)
	assert.Equal(t, one+1+two, allowed)

	all, err := Count(strings.NewReader(text), WithAllSpecials())
	require.NoError(t, err)
	assert.Equal(t, allowed, all)
}

func TestCountInvalidFormat(t *testing.T) {
	_, err := Count(bytes.NewReader([]byte{0xc3, 0x28}))
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestCountAll(t *testing.T) {
	tok := loadTestTokenizer(t)

	texts := make([]string, 0, 64)
	for i := 0; i < 64; i++ {
		texts = append(texts, strings.Repeat(crossCheckTexts[i%len(crossCheckTexts)], i%5+1))
	}

	counts, err := tok.CountAll(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, counts, len(texts))

	for i, text := range texts {
		want, err := tok.CountString(text)
		require.NoError(t, err)
		assert.Equal(t, want, counts[i], "text %d", i)
	}
}

func TestCountAllFailsOnDisallowedSpecial(t *testing.T) {
	tok := loadTestTokenizer(t)

	_, err := tok.CountAll(context.Background(), []string{"fine", "not <|fim_middle|> fine"})
	var disallowed *DisallowedSpecialTokenError
	assert.True(t, errors.As(err, &disallowed))
}

func TestLoadTokenizer(t *testing.T) {
	var sb strings.Builder
	for b := 0; b < 256; b++ {
		fmt.Fprintf(&sb, "%s %d\n", base64.StdEncoding.EncodeToString([]byte{byte(b)}), b)
	}
	fmt.Fprintf(&sb, "%s %d\n", base64.StdEncoding.EncodeToString([]byte("ab")), 256)

	tok, err := LoadTokenizer([]byte(sb.String()))
	require.NoError(t, err)

	ids, err := tok.Encode("ab")
	require.NoError(t, err)
	assert.Equal(t, []int{256}, ids)

	_, err = LoadTokenizer([]byte("YQ== 0\n"))
	assert.ErrorIs(t, err, ErrInvalidTable)
}

func BenchmarkCount(b *testing.B) {
	tok, err := CL100K()
	if err != nil {
		b.Fatalf("failed to load tokenizer: %v", err)
	}
	input := strings.Repeat(strings.Join(crossCheckTexts, " "), 16)

	b.SetBytes(int64(len(input)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = tok.CountString(input)
	}
}
