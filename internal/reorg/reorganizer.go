package reorg

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/dbsmedya/layoutdiff/internal/layout"
	"github.com/dbsmedya/layoutdiff/internal/logger"
)

// Reorganizer rewrites one contract's storage according to a plan. Reads
// come from a snapshot of the state taken when the reorganizer is created;
// writes go to a separate set of slots until Commit.
type Reorganizer struct {
	plan      *Plan
	state     State
	committed map[common.Hash]common.Hash
	modified  map[common.Hash]common.Hash
	logger    *logger.Logger
}

// NewReorganizer creates a reorganizer over state. A nil logger discards
// output.
func NewReorganizer(plan *Plan, state State, log *logger.Logger) *Reorganizer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Reorganizer{
		plan:      plan,
		state:     state,
		committed: state.Slots(),
		modified:  make(map[common.Hash]common.Hash),
		logger:    log,
	}
}

// Reorganize copies every common object from its old location to its new
// one. Nothing is written to the state until Commit.
func (r *Reorganizer) Reorganize(ctx context.Context) error {
	for _, obj := range r.plan.Objects {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, err := r.typeOf(obj.Type)
		if err != nil {
			return err
		}
		if err := r.dispatch(ctx, t, obj); err != nil {
			return fmt.Errorf("reorganize %s at %s: %w", obj.Type, obj.OldSlot.Hex(), err)
		}
	}
	return nil
}

// Commit clears every slot of the old state and writes the reorganized
// slots. Old slots that no common object covers are dropped.
func (r *Reorganizer) Commit() {
	for key := range r.committed {
		r.state.SetState(key, common.Hash{})
	}
	written := 0
	for key, val := range r.modified {
		if val != (common.Hash{}) {
			r.state.SetState(key, val)
			written++
		}
	}

	r.logger.WithFields(map[string]interface{}{
		"objects":       len(r.plan.Objects),
		"slots_before":  len(r.committed),
		"slots_written": written,
	}).Info("Storage reorganized")
}

func (r *Reorganizer) typeOf(id string) (*Type, error) {
	t, ok := r.plan.Types[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, id)
	}
	return t, nil
}

// inplace handles a value stored at its slot: scalars are copied byte by
// byte, static arrays and structs are walked down to their elements.
func (r *Reorganizer) inplace(ctx context.Context, ref Ref) error {
	t, err := r.typeOf(ref.Type)
	if err != nil {
		return err
	}

	inner, err := r.firstIndirect(t)
	if err != nil {
		return err
	}
	if inner != nil {
		// A static array of dynamic values: one header slot per element.
		for i := uint64(0); i < t.OldBytes/32; i++ {
			elem := Ref{
				Type:    inner.ID,
				OldSlot: addSlot(ref.OldSlot, uint256.NewInt(i)),
				NewSlot: addSlot(ref.NewSlot, uint256.NewInt(i)),
			}
			if err := r.dispatch(ctx, inner, elem); err != nil {
				return err
			}
		}
		return nil
	}

	st, err := r.containedStruct(t)
	if err != nil {
		return err
	}
	if st != nil {
		return r.structs(ctx, ref, t, st)
	}

	r.copyBytes(ref, t.OldBytes)
	return nil
}

// structs copies every surviving member of each struct instance held in t,
// which is either the struct itself or a static array of it.
func (r *Reorganizer) structs(ctx context.Context, ref Ref, t, st *Type) error {
	if st.OldBytes == 0 {
		return nil
	}
	oldBase := slotInt(ref.OldSlot)
	newBase := slotInt(ref.NewSlot)
	oldStride := uint256.NewInt(st.OldBytes / 32)
	newStride := uint256.NewInt(st.NewBytes / 32)

	for i := uint64(0); i < t.OldBytes/st.OldBytes; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, m := range st.Members {
			mt, err := r.typeOf(m.Type)
			if err != nil {
				return err
			}
			member := Ref{
				Type:      m.Type,
				OldSlot:   hashOf(new(uint256.Int).Add(oldBase, m.OldSlot)),
				NewSlot:   hashOf(new(uint256.Int).Add(newBase, m.NewSlot)),
				OldOffset: m.OldOffset,
				NewOffset: m.NewOffset,
			}
			if err := r.dispatch(ctx, mt, member); err != nil {
				return fmt.Errorf("member of %s: %w", st.ID, err)
			}
		}
		oldBase.Add(oldBase, oldStride)
		newBase.Add(newBase, newStride)
	}
	return nil
}

// dynamicArray copies the length slot, then every element stored from
// keccak256(slot).
func (r *Reorganizer) dynamicArray(ctx context.Context, ref Ref) error {
	t, err := r.typeOf(ref.Type)
	if err != nil {
		return err
	}
	header := r.copySlot(ref.OldSlot, ref.NewSlot)

	length := slotInt(header)
	if length.IsZero() {
		return nil
	}

	base, err := r.typeOf(t.Base)
	if err != nil {
		return err
	}
	oldData := slotInt(crypto.Keccak256Hash(ref.OldSlot[:]))
	newData := slotInt(crypto.Keccak256Hash(ref.NewSlot[:]))

	if base.Encoding == layout.EncodingInplace && base.Base == "" && !base.IsStruct() {
		return r.packedElements(ctx, base, oldData, newData, length)
	}

	oldStride, newStride := uint256.NewInt(1), uint256.NewInt(1)
	if base.Encoding == layout.EncodingInplace {
		oldStride.SetUint64(base.OldBytes / 32)
		newStride.SetUint64(base.NewBytes / 32)
	}

	oldAt := new(uint256.Int).Set(oldData)
	newAt := new(uint256.Int).Set(newData)
	for i := new(uint256.Int); i.Lt(length); i.AddUint64(i, 1) {
		if err := ctx.Err(); err != nil {
			return err
		}
		elem := Ref{Type: base.ID, OldSlot: hashOf(oldAt), NewSlot: hashOf(newAt)}
		if err := r.dispatch(ctx, base, elem); err != nil {
			return err
		}
		oldAt.Add(oldAt, oldStride)
		newAt.Add(newAt, newStride)
	}
	return nil
}

// packedElements copies scalar elements that share slots, several per word.
func (r *Reorganizer) packedElements(ctx context.Context, base *Type, oldData, newData, length *uint256.Int) error {
	size := base.OldBytes
	if size == 0 || size > 32 {
		return fmt.Errorf("%w: element size %d of %s", ErrUnsupportedEncoding, size, base.ID)
	}
	perSlot := uint256.NewInt(32 / size)

	slots, rem := new(uint256.Int), new(uint256.Int)
	slots.DivMod(length, perSlot, rem)
	if !rem.IsZero() {
		slots.AddUint64(slots, 1)
	}

	for i := new(uint256.Int); i.Lt(slots); i.AddUint64(i, 1) {
		if err := ctx.Err(); err != nil {
			return err
		}
		oldSlot := hashOf(new(uint256.Int).Add(oldData, i))
		newSlot := hashOf(new(uint256.Int).Add(newData, i))
		for j := uint64(0); j < 32/size; j++ {
			r.copyBytes(Ref{
				Type:      base.ID,
				OldSlot:   oldSlot,
				NewSlot:   newSlot,
				OldOffset: j * size,
				NewOffset: j * size,
			}, size)
		}
	}
	return nil
}

// bytes copies a bytes or string value. Short values live in the header
// slot; long ones set its lowest bit and store 2*length+1 there, with the
// data from keccak256(slot).
func (r *Reorganizer) bytes(ref Ref) error {
	header := r.copySlot(ref.OldSlot, ref.NewSlot)
	if header[31]&1 == 0 {
		return nil
	}

	length := slotInt(header)
	length.SubUint64(length, 1)
	length.Rsh(length, 1)

	slots, rem := new(uint256.Int), new(uint256.Int)
	slots.DivMod(length, uint256.NewInt(32), rem)
	if !rem.IsZero() {
		slots.AddUint64(slots, 1)
	}

	oldData := slotInt(crypto.Keccak256Hash(ref.OldSlot[:]))
	newData := slotInt(crypto.Keccak256Hash(ref.NewSlot[:]))
	for i := new(uint256.Int); i.Lt(slots); i.AddUint64(i, 1) {
		r.copySlot(hashOf(new(uint256.Int).Add(oldData, i)), hashOf(new(uint256.Int).Add(newData, i)))
	}
	return nil
}

func (r *Reorganizer) dispatch(ctx context.Context, t *Type, ref Ref) error {
	switch t.Encoding {
	case layout.EncodingInplace:
		return r.inplace(ctx, ref)
	case layout.EncodingDynamicArray:
		return r.dynamicArray(ctx, ref)
	case layout.EncodingBytes:
		return r.bytes(ref)
	default:
		return fmt.Errorf("%w: %s (%s)", ErrUnsupportedEncoding, t.Encoding, t.ID)
	}
}

// firstIndirect follows static-array bases from t and returns the first
// dynamic array or bytes type reached, or nil.
func (r *Reorganizer) firstIndirect(t *Type) (*Type, error) {
	cur := t
	for cur.Base != "" {
		next, err := r.typeOf(cur.Base)
		if err != nil {
			return nil, err
		}
		if isIndirect(next.Encoding) {
			return next, nil
		}
		if next.Encoding != layout.EncodingInplace {
			return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedEncoding, next.Encoding, next.ID)
		}
		cur = next
	}
	return nil, nil
}

// containedStruct follows static-array bases from t and returns the first
// struct reached, or nil.
func (r *Reorganizer) containedStruct(t *Type) (*Type, error) {
	cur := t
	for {
		if cur.IsStruct() {
			return cur, nil
		}
		if cur.Base == "" {
			return nil, nil
		}
		next, err := r.typeOf(cur.Base)
		if err != nil {
			return nil, err
		}
		cur = next
	}
}

// copyBytes copies n bytes starting at the old offset into the new slot at
// the new offset. Offsets count from the low-order end of the word and may
// run past it into the following slots.
func (r *Reorganizer) copyBytes(ref Ref, n uint64) {
	oldBase := slotInt(ref.OldSlot)
	newBase := slotInt(ref.NewSlot)
	for k := uint64(0); k < n; k++ {
		oldPos, newPos := ref.OldOffset+k, ref.NewOffset+k
		oldKey := hashOf(new(uint256.Int).Add(oldBase, uint256.NewInt(oldPos/32)))
		newKey := hashOf(new(uint256.Int).Add(newBase, uint256.NewInt(newPos/32)))

		src := r.committed[oldKey]
		dst := r.modified[newKey]
		dst[31-newPos%32] = src[31-oldPos%32]
		r.modified[newKey] = dst
	}
}

// copySlot copies a whole word and returns it.
func (r *Reorganizer) copySlot(from, to common.Hash) common.Hash {
	v := r.committed[from]
	r.modified[to] = v
	return v
}

func slotInt(h common.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes32(h[:])
}

func hashOf(v *uint256.Int) common.Hash {
	return common.Hash(v.Bytes32())
}

func addSlot(h common.Hash, n *uint256.Int) common.Hash {
	return hashOf(new(uint256.Int).Add(slotInt(h), n))
}
