package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// punctuation matches anything that is not a letter, digit or space.
var punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// Tagger assigns part-of-speech tags to tokens. Tags use the
// conventional single-letter prefixes: N for nouns, V for verbs, A for
// adjectives. An empty tag means unknown. Tagging internals are an
// external collaborator; the pipeline only consumes the tags.
type Tagger interface {
	Tag(tokens []string) []string
}

// DefaultStopwords is the built-in stopword set used when none is
// supplied.
var DefaultStopwords = []string{
	"a", "an", "the", "and", "or", "but", "of", "in", "on", "at", "to",
	"for", "with", "by", "from", "as", "is", "are", "was", "were", "be",
	"been", "do", "does", "did", "will", "would", "can", "could", "this",
	"that", "these", "those", "it", "its", "i", "you", "he", "she", "we",
	"they", "what", "which", "who", "how", "when", "where", "why",
	"là", "và", "của", "có", "cho", "trong", "với", "các", "những",
	"được", "này", "đó", "thì", "mà", "ở", "về",
}

// QueryPreprocessor normalizes natural-language queries before
// retrieval.
type QueryPreprocessor struct {
	tagger    Tagger
	stopwords map[string]struct{}
}

// NewQueryPreprocessor creates a preprocessor. A nil tagger disables
// part-of-speech filtering; nil stopwords selects DefaultStopwords.
func NewQueryPreprocessor(tagger Tagger, stopwords []string) *QueryPreprocessor {
	if stopwords == nil {
		stopwords = DefaultStopwords
	}
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &QueryPreprocessor{tagger: tagger, stopwords: set}
}

// Clean strips punctuation, lowercases, tokenizes and filters the
// query. A token survives when it is tagged as a noun, verb or
// adjective, or when it is not a stopword and longer than one
// character. If filtering removes every token the cleaned but
// unfiltered query is returned instead; retrieval never receives an
// empty query silently.
func (p *QueryPreprocessor) Clean(raw string) string {
	cleaned := punctuation.ReplaceAllString(raw, " ")
	cleaned = strings.ToLower(cleaned)
	tokens := strings.Fields(cleaned)
	cleanedQuery := strings.Join(tokens, " ")
	if len(tokens) == 0 {
		return cleanedQuery
	}

	var tags []string
	if p.tagger != nil {
		tags = p.tagger.Tag(tokens)
	}

	kept := make([]string, 0, len(tokens))
	for i, tok := range tokens {
		if len(tags) == len(tokens) && isContentTag(tags[i]) {
			kept = append(kept, tok)
			continue
		}
		if _, stop := p.stopwords[tok]; !stop && utf8.RuneCountInString(tok) > 1 {
			kept = append(kept, tok)
		}
	}

	if len(kept) == 0 {
		return cleanedQuery
	}
	return strings.Join(kept, " ")
}

func isContentTag(tag string) bool {
	if tag == "" {
		return false
	}
	switch tag[0] {
	case 'N', 'V', 'A':
		return true
	}
	return false
}
