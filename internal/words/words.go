// internal/words/words.go
//
// Word list management.
//
// Responsibilities:
//   - Load answer and allowed guess lists from files or fall back to the embedded defaults.
//   - Maintain sets for quick lookups (answers only, answers ∪ guesses).
//   - Supply IsValidWord, RandomWord, IsAnswer and Stats.
//
// Word Lists:
//   - "answers": candidate target words (exactly 5 lowercase letters).
//   - "allowed": valid guesses (always includes answers).
//
// Load behavior:
//   1. answersPath and allowedPath both set → answers from the first, guesses from the second.
//   2. only allowedPath set → that file is used for both.
//   3. neither set → embedded assets/answers.txt and assets/allowed.txt.
//
// Constraints:
//   • Words must be 5 alphabetic letters (a–z); anything else is dropped.
//   • Lists are normalized to lowercase.

package words

import (
	"crypto/rand"
	"errors"
	"math/big"
	"os"
	"strings"

	"github.com/robalobadob/wordduel/internal/assets"
	"github.com/robalobadob/wordduel/internal/game"
)

// ErrEmpty is returned when no usable answer word was loaded.
var ErrEmpty = errors.New("words: answers list is empty")

// Dictionary is an immutable pair of word lists. Safe for concurrent use.
type Dictionary struct {
	answers    []string            // canonical answers
	answersSet map[string]struct{} // answers only
	allowedSet map[string]struct{} // answers ∪ guesses
}

// Load builds a Dictionary following the rules in the package comment.
func Load(answersPath, allowedPath string) (*Dictionary, error) {
	var ansList, allowList []string
	var err error

	switch {
	case answersPath != "" && allowedPath != "":
		if ansList, err = readWordFile(answersPath); err != nil {
			return nil, err
		}
		if allowList, err = readWordFile(allowedPath); err != nil {
			return nil, err
		}
	case allowedPath != "":
		if allowList, err = readWordFile(allowedPath); err != nil {
			return nil, err
		}
		ansList = allowList
	default:
		return Embedded()
	}
	return New(ansList, allowList)
}

// Embedded returns the Dictionary backed by the embedded default lists.
func Embedded() (*Dictionary, error) {
	ans, err := assets.AnswersList()
	if err != nil {
		return nil, err
	}
	all, err := assets.AllowedList()
	if err != nil {
		return nil, err
	}
	return New(ans, all)
}

// New builds a Dictionary from in-memory lists. Invalid entries are dropped;
// every answer is also an allowed guess.
func New(answerList, allowedList []string) (*Dictionary, error) {
	d := &Dictionary{
		answersSet: make(map[string]struct{}, len(answerList)),
		allowedSet: make(map[string]struct{}, len(answerList)+len(allowedList)),
	}
	for _, w := range normalize(answerList) {
		if _, dup := d.answersSet[w]; dup {
			continue
		}
		d.answers = append(d.answers, w)
		d.answersSet[w] = struct{}{}
		d.allowedSet[w] = struct{}{}
	}
	for _, w := range normalize(allowedList) {
		d.allowedSet[w] = struct{}{}
	}
	if len(d.answers) == 0 {
		return nil, ErrEmpty
	}
	return d, nil
}

// readWordFile loads one word per line from a file.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return assets.ReadLines(f)
}

// normalize lowercases, trims, and keeps only valid 5-letter alphabetic words.
func normalize(list []string) []string {
	out := make([]string, 0, len(list))
	for _, line := range list {
		w := strings.TrimSpace(strings.ToLower(line))
		if len(w) == game.WordLength && isAlpha(w) {
			out = append(out, w)
		}
	}
	return out
}

// isAlpha reports whether s is all lowercase ASCII letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// RandomWord returns a cryptographically random answer.
func (d *Dictionary) RandomWord() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(d.answers))))
	if err != nil {
		return d.answers[0]
	}
	return d.answers[n.Int64()]
}

// IsValidWord reports whether w is an acceptable guess (answers ∪ guesses).
func (d *Dictionary) IsValidWord(w string) bool {
	_, ok := d.allowedSet[strings.ToLower(w)]
	return ok
}

// IsAnswer reports whether w is an answer word.
func (d *Dictionary) IsAnswer(w string) bool {
	_, ok := d.answersSet[strings.ToLower(w)]
	return ok
}

// Stats returns counts of loaded words: (answers, allowed).
func (d *Dictionary) Stats() (answersCount int, allowedCount int) {
	return len(d.answers), len(d.allowedSet)
}
