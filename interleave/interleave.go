// Package interleave merges a primary sequence with a cycling filler sequence.
package interleave

import (
	"fmt"
	"iter"
	"slices"

	"splicer/models"
)

// Slot describes where an element of the interleaved sequence came from.
type Slot struct {
	Position int  // 0-based position in the output
	Filler   bool // true for filler elements
	Source   int  // index into the primary or filler input
}

// Enumerate yields every element of the interleaved sequence with its Slot.
//
// For primary of length n and filler of length m the sequence has 2n
// elements: position 2i holds filler[i mod m] and position 2i+1 holds
// primary[i]. An empty primary yields nothing, whatever the filler. A
// non-empty primary with an empty filler fails with models.ErrEmptyFillerSet.
//
// The sequence is produced lazily and can be ranged over more than once.
func Enumerate[T any](primary, filler []T) (iter.Seq2[Slot, T], error) {
	if len(primary) > 0 && len(filler) == 0 {
		return nil, models.NewStageError("interleave", "", models.ErrEmptyFillerSet,
			fmt.Errorf("%d primary clips but no filler clips", len(primary)))
	}

	return func(yield func(Slot, T) bool) {
		for i, p := range primary {
			f := i % len(filler)
			if !yield(Slot{Position: 2 * i, Filler: true, Source: f}, filler[f]) {
				return
			}
			if !yield(Slot{Position: 2*i + 1, Source: i}, p) {
				return
			}
		}
	}, nil
}

// Interleave is Enumerate without slot information.
func Interleave[T any](primary, filler []T) (iter.Seq[T], error) {
	seq, err := Enumerate(primary, filler)
	if err != nil {
		return nil, err
	}
	return func(yield func(T) bool) {
		for _, v := range seq {
			if !yield(v) {
				return
			}
		}
	}, nil
}

// Len returns the length of the interleaved sequence for a primary of n
// elements.
func Len(n int) int {
	return 2 * n
}

// Collect materializes the interleaved sequence.
func Collect[T any](primary, filler []T) ([]T, error) {
	seq, err := Interleave(primary, filler)
	if err != nil {
		return nil, err
	}
	return slices.AppendSeq(make([]T, 0, Len(len(primary))), seq), nil
}
