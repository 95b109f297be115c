package trig

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quiz-runner/internal/domain"
)

const wrongAnswers = 3

// Generator produces "evaluate fn(angle)" questions with four options.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator seeds from the wall clock.
func NewGenerator() *Generator {
	return NewGeneratorWithSeed(time.Now().UnixNano())
}

// NewGeneratorWithSeed is deterministic for a given seed.
func NewGeneratorWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate returns a question carrying its correct answer.
func (g *Generator) Generate() domain.Question {
	g.mu.Lock()
	defer g.mu.Unlock()

	fn := Functions[g.rnd.Intn(len(Functions))]
	a := g.pickAngle()
	answer, _ := Value(fn, a.deg)

	options := []string{answer}
	seen := map[string]struct{}{answer: {}}
	for len(options) < wrongAnswers+1 {
		wrong, _ := Value(fn, g.pickAngle().deg)
		if _, dup := seen[wrong]; dup {
			continue
		}
		seen[wrong] = struct{}{}
		options = append(options, wrong)
	}
	g.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	display := formatDegrees(a.deg)
	if g.rnd.Intn(2) == 1 {
		display = a.rad
	}
	return domain.Question{
		Prompt:        fmt.Sprintf("%s(%s)", fn, display),
		Options:       options,
		CorrectAnswer: answer,
	}
}

func (g *Generator) pickAngle() angle {
	angles := quadrants[1+g.rnd.Intn(len(quadrants))]
	return angles[g.rnd.Intn(len(angles))]
}
