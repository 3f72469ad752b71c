package games

import (
	"math/rand/v2"
	"strings"
)

// PositiveWords is the word list of the unscramble game.
var PositiveWords = []string{
	"HOPE", "CALM", "PEACE", "HEAL", "TRUST", "LOVE", "JOY", "REST", "SAFE", "GROW",
	"LIGHT", "SMILE", "DREAM", "BRAVE", "SHINE", "GRACE", "BLOOM", "CARE", "KIND", "FREE",
}

// Scramble returns a random permutation of word. Words of two or more letters that are not a
// single repeated letter never come back unchanged.
func Scramble(word string, rng *rand.Rand) string {
	letters := []rune(word)
	if !scramblable(letters) {
		return word
	}
	scrambled := append([]rune(nil), letters...)
	for {
		rng.Shuffle(len(scrambled), func(i, j int) {
			scrambled[i], scrambled[j] = scrambled[j], scrambled[i]
		})
		if string(scrambled) != word {
			return string(scrambled)
		}
	}
}

func scramblable(letters []rune) bool {
	for _, letter := range letters[min(1, len(letters)):] {
		if letter != letters[0] {
			return true
		}
	}
	return false
}

// UnscrambleState is the rendered state of the unscramble game.
type UnscrambleState struct {
	Scrambled      string `json:"scrambled"`
	Length         int    `json:"length"`
	WordsCompleted int    `json:"words_completed"`
}

// GuessResult reports a guess and, when correct, the solved word.
type GuessResult struct {
	Correct    bool   `json:"correct"`
	SolvedWord string `json:"solved_word,omitempty"`
}

// Unscramble draws words without repetition until the list is exhausted.
type Unscramble struct {
	words          []string
	rng            *rand.Rand
	used           map[string]struct{}
	current        string
	scrambled      string
	wordsCompleted int
}

// NewUnscramble starts a game over words and draws the first word.
func NewUnscramble(words []string, rng *rand.Rand) *Unscramble {
	game := &Unscramble{
		words: append([]string(nil), words...),
		rng:   rng,
		used:  make(map[string]struct{}, len(words)),
	}
	game.Next()
	return game
}

// Next draws an unused word, starting over once every word has been used.
func (u *Unscramble) Next() {
	available := make([]string, 0, len(u.words))
	for _, word := range u.words {
		if _, used := u.used[word]; !used {
			available = append(available, word)
		}
	}
	if len(available) == 0 {
		clear(u.used)
		available = u.words
	}
	if len(available) == 0 {
		return
	}
	word := available[u.rng.IntN(len(available))]
	u.used[word] = struct{}{}
	u.current = word
	u.scrambled = Scramble(word, u.rng)
}

// Guess checks an answer case-insensitively. A correct answer scores and draws the next word.
func (u *Unscramble) Guess(answer string) GuessResult {
	if strings.ToUpper(strings.TrimSpace(answer)) != u.current {
		return GuessResult{}
	}
	solved := u.current
	u.wordsCompleted++
	u.Next()
	return GuessResult{Correct: true, SolvedWord: solved}
}

// Skip draws another word without scoring.
func (u *Unscramble) Skip() {
	u.Next()
}

// Reset clears the score and the used words.
func (u *Unscramble) Reset() {
	u.wordsCompleted = 0
	clear(u.used)
	u.Next()
}

// State renders the game.
func (u *Unscramble) State() UnscrambleState {
	return UnscrambleState{
		Scrambled:      u.scrambled,
		Length:         len([]rune(u.current)),
		WordsCompleted: u.wordsCompleted,
	}
}
