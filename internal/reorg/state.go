// Package reorg rewrites a contract's storage from its old layout to its new
// one, driven by the two records a comparison emits.
package reorg

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// State is the storage of a single contract account.
type State interface {
	GetState(key common.Hash) common.Hash
	// SetState stores val at key. A zero value removes the slot.
	SetState(key, val common.Hash)
	// Slots returns a copy of every non-zero slot.
	Slots() map[common.Hash]common.Hash
}

// MemoryState is a State held in a map.
type MemoryState struct {
	storage map[common.Hash]common.Hash
}

// NewMemoryState creates a state from slots, dropping zero values.
func NewMemoryState(slots map[common.Hash]common.Hash) *MemoryState {
	s := &MemoryState{storage: make(map[common.Hash]common.Hash, len(slots))}
	for k, v := range slots {
		s.SetState(k, v)
	}
	return s
}

func (s *MemoryState) GetState(key common.Hash) common.Hash {
	return s.storage[key]
}

func (s *MemoryState) SetState(key, val common.Hash) {
	if val == (common.Hash{}) {
		delete(s.storage, key)
		return
	}
	s.storage[key] = val
}

func (s *MemoryState) Slots() map[common.Hash]common.Hash {
	out := make(map[common.Hash]common.Hash, len(s.storage))
	for k, v := range s.storage {
		out[k] = v
	}
	return out
}

// SlotDiff is one slot whose value differs between two states.
type SlotDiff struct {
	Key      common.Hash
	Expected common.Hash
	Actual   common.Hash
}

// Diff compares actual against expected and returns every differing slot,
// ordered by key.
func Diff(expected, actual State) []SlotDiff {
	want := expected.Slots()
	got := actual.Slots()

	var diffs []SlotDiff
	for k, v := range want {
		if got[k] != v {
			diffs = append(diffs, SlotDiff{Key: k, Expected: v, Actual: got[k]})
		}
	}
	for k, v := range got {
		if _, ok := want[k]; !ok {
			diffs = append(diffs, SlotDiff{Key: k, Actual: v})
		}
	}
	sort.Slice(diffs, func(i, j int) bool {
		return diffs[i].Key.Cmp(diffs[j].Key) < 0
	})
	return diffs
}

type dumpSlot struct {
	Key   common.Hash `json:"key"`
	Value common.Hash `json:"value"`
}

// ReadStateFile loads a storage dump: a JSON object whose values carry the
// slot key and value, as produced by debug_storageRangeAt.
func ReadStateFile(path string) (*MemoryState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	var dump map[string]dumpSlot
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("failed to decode state %s: %w", path, err)
	}
	slots := make(map[common.Hash]common.Hash, len(dump))
	for _, s := range dump {
		slots[s.Key] = s.Value
	}
	return NewMemoryState(slots), nil
}

// WriteStateFile writes state in the format ReadStateFile reads, keyed by
// the hashed slot key.
func WriteStateFile(path string, state State) error {
	dump := make(map[string]dumpSlot)
	for k, v := range state.Slots() {
		dump[crypto.Keccak256Hash(k[:]).Hex()] = dumpSlot{Key: k, Value: v}
	}
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}
