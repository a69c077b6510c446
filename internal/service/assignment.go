package service

import (
    "sort"

    "github.com/iliyamo/table-reservation/internal/model"
)

// Strategy names the rule that produced an Assignment.
type Strategy string

const (
    StrategyExact       Strategy = "exact"
    StrategyBestFit     Strategy = "best_fit"
    StrategyAnyFit      Strategy = "any_fit"
    StrategyCombination Strategy = "combination"
)

// bestFitRatio bounds how much larger than the party a single table may be
// before it counts as inefficient.
const bestFitRatio = 1.5

// Assignment is the set of tables chosen for a party.  An empty Tables
// slice means no assignment exists.
type Assignment struct {
    Tables      []model.Table `json:"tables"`
    Strategy    Strategy      `json:"strategy,omitempty"`
    Inefficient bool          `json:"inefficient"`
}

// Empty reports whether no tables were found.
func (a Assignment) Empty() bool { return len(a.Tables) == 0 }

// Capacity is the combined seat count.
func (a Assignment) Capacity() int {
    n := 0
    for _, t := range a.Tables {
        n += t.Capacity
    }
    return n
}

func (a Assignment) TableIDs() []uint64 {
    ids := make([]uint64, len(a.Tables))
    for i, t := range a.Tables {
        ids[i] = t.ID
    }
    return ids
}

func (a Assignment) TableNumbers() []string {
    nums := make([]string, len(a.Tables))
    for i, t := range a.Tables {
        nums[i] = t.Number
    }
    return nums
}

// SolveTables picks tables for a party out of pool, ignoring inactive
// tables and any id in excluded.  Rules are tried in order:
//
//  1. a single table seating exactly the party
//  2. the smallest single table within 1.5x the party
//  3. the smallest single table that fits, flagged Inefficient
//  4. largest-first tables until the party fits
//
// The combination from rule 4 is minimal: every table is smaller than the
// party there, so dropping any chosen table leaves too few seats.
func SolveTables(partySize int, pool []model.Table, excluded map[uint64]struct{}) Assignment {
    if partySize <= 0 {
        return Assignment{}
    }

    candidates := make([]model.Table, 0, len(pool))
    for _, t := range pool {
        if !t.IsActive || t.Capacity <= 0 {
            continue
        }
        if _, skip := excluded[t.ID]; skip {
            continue
        }
        candidates = append(candidates, t)
    }
    sort.Slice(candidates, func(i, j int) bool {
        if candidates[i].Capacity != candidates[j].Capacity {
            return candidates[i].Capacity < candidates[j].Capacity
        }
        return candidates[i].ID < candidates[j].ID
    })

    for _, t := range candidates {
        if t.Capacity == partySize {
            return Assignment{Tables: []model.Table{t}, Strategy: StrategyExact}
        }
    }
    limit := float64(partySize) * bestFitRatio
    for _, t := range candidates {
        if t.Capacity >= partySize && float64(t.Capacity) <= limit {
            return Assignment{Tables: []model.Table{t}, Strategy: StrategyBestFit}
        }
    }
    for _, t := range candidates {
        if t.Capacity >= partySize {
            return Assignment{Tables: []model.Table{t}, Strategy: StrategyAnyFit, Inefficient: true}
        }
    }

    var picked []model.Table
    seats := 0
    for i := len(candidates) - 1; i >= 0; i-- {
        picked = append(picked, candidates[i])
        seats += candidates[i].Capacity
        if seats >= partySize {
            return Assignment{Tables: picked, Strategy: StrategyCombination}
        }
    }
    return Assignment{}
}
