package markov

import (
	"errors"
	"io"
	"strings"
)

// Token is a single unit of text read by a tokenizer. EOC marks tokens that
// end a chain of text, such as sentence-ending punctuation.
type Token struct {
	Text string
	EOC  bool
}

// Tokenizer splits text into tokens for training string chains and joins
// generated tokens back into text.
type Tokenizer interface {
	// NewStream returns a stateful StreamTokenizer reading from r.
	NewStream(r io.Reader) StreamTokenizer
	// Separator returns the string placed between prev and current when
	// joining tokens.
	Separator(prev, current string) string
	// EOC returns the string appended after last to terminate joined text.
	EOC(last string) string
}

// StreamTokenizer returns one token at a time from a stream.
type StreamTokenizer interface {
	// Next returns the next token, or io.EOF once the stream is consumed.
	Next() (*Token, error)
}

// Tokenize drains r through t and returns the token texts in order. EOC
// tokens are kept; in a first-order chain they are ordinary states.
func Tokenize(t Tokenizer, r io.Reader) ([]string, error) {
	stream := t.NewStream(r)
	var tokens []string
	for {
		token, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return tokens, nil
			}
			return tokens, err
		}
		tokens = append(tokens, token.Text)
	}
}

// Join renders generated tokens as text, using t for separators and the
// closing EOC. An empty slice renders as the empty string.
func Join(t Tokenizer, tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	var builder strings.Builder
	builder.WriteString(tokens[0])
	for i := 1; i < len(tokens); i++ {
		builder.WriteString(t.Separator(tokens[i-1], tokens[i]))
		builder.WriteString(tokens[i])
	}
	builder.WriteString(t.EOC(tokens[len(tokens)-1]))
	return builder.String()
}
