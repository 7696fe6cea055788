// internal/words/words.go
//
// Word dictionary for the duel engine.
// Responsibilities:
//   - Load a corpus of {word, definition} pairs from a JSON file, or fall
//     back to a small embedded placeholder list so the server stays up.
//   - Supply uniformly random entries (Random, Sample).
//   - Supply the deterministic date-keyed daily selection (Daily).
//
// Corpus format:
//   - Plain JSON array: [{"word":"atlas","definition":"..."}, ...]
//   - Legacy browser format is tolerated: "window.WORDS = [...];"
//
// Daily selection contract:
//   The seed fold (seed = seed*31 + char over wrapping int32 math) and the
//   LCG (modulus 2^31, multiplier 1103515245, increment 12345) are shared
//   with every other process serving the daily puzzle. Changing either
//   constant changes the puzzle worldwide; they are part of the protocol,
//   not an implementation detail.

package words

import (
	"crypto/rand"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrCorpus reports that a corpus source was absent or malformed.
var ErrCorpus = errors.New("words: corpus unavailable")

// Entry is a single word/definition pair. Entries are immutable once
// loaded; equality is by Word for de-duplication.
type Entry struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
}

// Dictionary holds the loaded corpus. Construct with Load, Open, or New;
// a Dictionary is read-only after construction and safe for concurrent use.
type Dictionary struct {
	entries []Entry
}

// legacyPrefix matches the "window.WORDS = " wrapper of the original
// browser-era corpus file.
var legacyPrefix = regexp.MustCompile(`^\s*window\.WORDS\s*=\s*`)

// New constructs a Dictionary from an already-parsed corpus.
func New(entries []Entry) *Dictionary {
	return &Dictionary{entries: entries}
}

// Load parses the corpus file at path. All failures wrap ErrCorpus.
func Load(path string) (*Dictionary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrCorpus, path, err)
	}
	s := legacyPrefix.ReplaceAllString(string(raw), "")
	s = strings.TrimRight(strings.TrimSpace(s), ";")

	var entries []Entry
	if err := json.Unmarshal([]byte(s), &entries); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrCorpus, path, err)
	}
	return New(entries), nil
}

// Open loads the corpus at path, degrading to the embedded placeholder
// list when the file is missing or malformed. The server stays
// operational either way.
func Open(path string) *Dictionary {
	d, err := Load(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("corpus load failed, using placeholder words")
		return Fallback()
	}
	log.Info().Int("words", d.Len()).Str("path", path).Msg("corpus loaded")
	return d
}

//go:embed default_words.json
var embeddedWords []byte

// Fallback returns the embedded placeholder corpus.
func Fallback() *Dictionary {
	var entries []Entry
	if err := json.Unmarshal(embeddedWords, &entries); err != nil {
		return New([]Entry{{Word: "error", Definition: "Dictionary unavailable."}})
	}
	return New(entries)
}

// Len reports the corpus size.
func (d *Dictionary) Len() int { return len(d.entries) }

// Random returns one uniformly chosen entry. An empty corpus yields a
// sentinel entry rather than an error.
func (d *Dictionary) Random() Entry {
	if len(d.entries) == 0 {
		return Entry{Word: "empty", Definition: "No words loaded."}
	}
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(len(d.entries))))
	return d.entries[nBig.Int64()]
}

// Sample returns up to count entries with unique words, chosen by
// repeated uniform draws with rejection of duplicates. The retry budget
// is 2×count attempts: a corpus smaller than count simply yields a
// smaller result.
func (d *Dictionary) Sample(count int) []Entry {
	out := make([]Entry, 0, count)
	seen := make(map[string]struct{}, count)
	for attempts := 0; len(out) < count && attempts < count*2; attempts++ {
		e := d.Random()
		if e.Word == "empty" {
			continue
		}
		if _, dup := seen[e.Word]; dup {
			continue
		}
		seen[e.Word] = struct{}{}
		out = append(out, e)
	}
	return out
}

// LCG constants, fixed by the daily-puzzle contract.
const (
	lcgModulus    = 1 << 31
	lcgMultiplier = 1103515245
	lcgIncrement  = 12345
)

// dailySeed folds a date key ("2006-01-02") into a non-negative seed
// using wrapping int32 multiply-add.
func dailySeed(dateKey string) int64 {
	var seed int32
	for _, r := range dateKey {
		seed = seed*31 + int32(r)
	}
	s := int64(seed)
	if s < 0 {
		s = -s
	}
	return s
}

// Daily returns the deterministic selection for dateKey: the same key
// always yields the same count-sized set, across restarts and processes.
// Index draws with duplicate rejection, retry budget 5×count.
func (d *Dictionary) Daily(dateKey string, count int) []Entry {
	n := len(d.entries)
	out := make([]Entry, 0, count)
	if n == 0 {
		return out
	}

	state := dailySeed(dateKey)
	seen := make(map[string]struct{}, count)
	for attempts := 0; len(out) < count && attempts < count*5; attempts++ {
		state = (lcgMultiplier*state + lcgIncrement) % lcgModulus
		idx := int(float64(state) / float64(lcgModulus-1) * float64(n))
		if idx >= n {
			continue
		}
		e := d.entries[idx]
		if e.Word == "empty" {
			continue
		}
		if _, dup := seen[e.Word]; dup {
			continue
		}
		seen[e.Word] = struct{}{}
		out = append(out, e)
	}
	return out
}
