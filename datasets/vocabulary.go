package datasets

import (
	"fmt"
	"strings"
)

// UnknownToken is the sentinel vocabulary entry that all out-of-vocabulary
// tokens encode to.
const UnknownToken = "UNKNOWN"

// Vocabulary maps LaTeX tokens to contiguous integer indices. A token's index
// is its 0-based line number in the vocabulary file. Immutable after load.
type Vocabulary struct {
	tokenToID map[string]int
	tokens    []string
	unknownID int
}

// LoadVocabulary reads a vocabulary file with one token per line. Each line
// is trimmed of surrounding whitespace before indexing. The file must contain
// the UNKNOWN sentinel, since every encode of an out-of-vocabulary token
// resolves to it.
func LoadVocabulary(path string) (*Vocabulary, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("vocabulary file %s is empty", path)
	}

	v := &Vocabulary{
		tokenToID: make(map[string]int, len(lines)),
		tokens:    make([]string, 0, len(lines)),
		unknownID: -1,
	}
	for i, line := range lines {
		token := strings.TrimSpace(line)
		v.tokenToID[token] = i
		v.tokens = append(v.tokens, token)
		if token == UnknownToken {
			v.unknownID = i
		}
	}
	if v.unknownID < 0 {
		return nil, fmt.Errorf("vocabulary file %s has no %q entry", path, UnknownToken)
	}
	return v, nil
}

// Len returns the vocabulary cardinality, counting the UNKNOWN sentinel.
func (v *Vocabulary) Len() int {
	return len(v.tokens)
}

// Index returns the vocabulary index of token. Tokens absent from the
// vocabulary resolve to the UNKNOWN index; Index never fails.
func (v *Vocabulary) Index(token string) int {
	if id, ok := v.tokenToID[token]; ok {
		return id
	}
	return v.unknownID
}

// UnknownIndex returns the index of the UNKNOWN sentinel.
func (v *Vocabulary) UnknownIndex() int {
	return v.unknownID
}

// Contains reports whether token is in the vocabulary proper (the UNKNOWN
// sentinel itself counts as contained).
func (v *Vocabulary) Contains(token string) bool {
	_, ok := v.tokenToID[token]
	return ok
}

// Token is the reverse lookup, useful when decoding model predictions back
// into LaTeX.
func (v *Vocabulary) Token(id int) (string, error) {
	if id < 0 || id >= len(v.tokens) {
		return "", fmt.Errorf("token index %d out of range [0, %d)", id, len(v.tokens))
	}
	return v.tokens[id], nil
}
