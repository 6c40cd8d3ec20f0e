package tokenizer

// CL100KPattern is the pre-token grammar of the cl100k encoding.
const CL100KPattern = `(?i:'s|'t|'re|'ve|'m|'ll|'d)|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+(?!\S)|\s+`

const (
	EndOfText   = "<|endoftext|>"
	FimPrefix   = "<|fim_prefix|>"
	FimMiddle   = "<|fim_middle|>"
	FimSuffix   = "<|fim_suffix|>"
	EndOfPrompt = "<|endofprompt|>"

	// CL100KSpecialID is shared by every cl100k special token.
	CL100KSpecialID = 100257
)

// CL100KSpecials returns the special token registry of the cl100k encoding.
func CL100KSpecials() map[string]int {
	return map[string]int{
		EndOfText:   CL100KSpecialID,
		FimPrefix:   CL100KSpecialID,
		FimMiddle:   CL100KSpecialID,
		FimSuffix:   CL100KSpecialID,
		EndOfPrompt: CL100KSpecialID,
	}
}
