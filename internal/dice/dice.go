package dice

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

var ErrInvalidDice = errors.New("invalid dice")

type Roll struct {
	Dice  int
	Sides int
	Rolls []int
	Total int
}

// Roller rolls dice within configured limits. It is safe for concurrent use.
type Roller struct {
	MaxDice  int
	MaxSides int

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRoller(maxDice, maxSides int, src rand.Source) *Roller {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Roller{
		MaxDice:  maxDice,
		MaxSides: maxSides,
		rng:      rand.New(src),
	}
}

// Roll throws dice dice with sides faces each.
func (r *Roller) Roll(dice, sides int) (Roll, error) {
	if dice < 1 || dice > r.MaxDice {
		return Roll{}, fmt.Errorf("%w: dice must be between 1 and %d", ErrInvalidDice, r.MaxDice)
	}
	if sides < 2 || sides > r.MaxSides {
		return Roll{}, fmt.Errorf("%w: sides must be between 2 and %d", ErrInvalidDice, r.MaxSides)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	roll := Roll{Dice: dice, Sides: sides, Rolls: make([]int, dice)}
	for i := range roll.Rolls {
		n := r.rng.IntN(sides) + 1
		roll.Rolls[i] = n
		roll.Total += n
	}
	return roll, nil
}
