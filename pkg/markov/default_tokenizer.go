package markov

import (
	"bufio"
	"io"
	"regexp"
)

// DefaultTokenizer splits text into words and punctuation with regular
// expressions. Sentence-ending punctuation is flagged as EOC.
type DefaultTokenizer struct {
	separator   string
	eoc         string
	split       *regexp.Regexp
	eocMatch    *regexp.Regexp
	noSeparator *regexp.Regexp
	noEOC       *regexp.Regexp
}

// TokenizerOption configures a DefaultTokenizer.
type TokenizerOption func(*DefaultTokenizer)

// WithSeparator sets the string used between joined tokens. Default: " "
func WithSeparator(sep string) TokenizerOption {
	return func(t *DefaultTokenizer) { t.separator = sep }
}

// WithEOC sets the string that terminates joined text. Default: "."
func WithEOC(eoc string) TokenizerOption {
	return func(t *DefaultTokenizer) { t.eoc = eoc }
}

// WithSplitRegex sets the pattern whose matches become tokens.
// Default: `[\w']+|[.,!?;]`
func WithSplitRegex(expr string) TokenizerOption {
	return func(t *DefaultTokenizer) { t.split = regexp.MustCompile(expr) }
}

// WithEOCRegex sets the pattern identifying EOC tokens. Default: `^[.!?]$`
func WithEOCRegex(expr string) TokenizerOption {
	return func(t *DefaultTokenizer) { t.eocMatch = regexp.MustCompile(expr) }
}

// NewDefaultTokenizer returns a tokenizer with default settings, adjusted by opts.
func NewDefaultTokenizer(opts ...TokenizerOption) *DefaultTokenizer {
	t := &DefaultTokenizer{
		separator: " ",
		eoc:       ".",
		split:     regexp.MustCompile(`[\w']+|[.,!?;]`),
		eocMatch:  regexp.MustCompile(`^[.!?]$`),
		// Punctuation attaches to the previous token and needs no EOC after it.
		noSeparator: regexp.MustCompile(`^[.,!?;]`),
		noEOC:       regexp.MustCompile(`^[.,!?;]`),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Separator returns the configured separator, or "" before punctuation.
func (t *DefaultTokenizer) Separator(_, current string) string {
	if t.noSeparator.MatchString(current) {
		return ""
	}
	return t.separator
}

// EOC returns the configured terminator, or "" after punctuation.
func (t *DefaultTokenizer) EOC(last string) string {
	if t.noEOC.MatchString(last) {
		return ""
	}
	return t.eoc
}

// NewStream returns a line-scanning stream over r.
func (t *DefaultTokenizer) NewStream(r io.Reader) StreamTokenizer {
	return &defaultStream{
		scanner:  bufio.NewScanner(r),
		split:    t.split,
		eocMatch: t.eocMatch,
	}
}

type defaultStream struct {
	scanner  *bufio.Scanner
	pending  []string
	split    *regexp.Regexp
	eocMatch *regexp.Regexp
}

// Next returns the next token, or io.EOF when the reader is exhausted.
func (s *defaultStream) Next() (*Token, error) {
	for len(s.pending) == 0 {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		s.pending = s.split.FindAllString(s.scanner.Text(), -1)
	}
	word := s.pending[0]
	s.pending = s.pending[1:]
	return &Token{Text: word, EOC: s.eocMatch.MatchString(word)}, nil
}
