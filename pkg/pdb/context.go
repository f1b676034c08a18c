package pdb

import (
	"github.com/pkg/errors"

	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/bitmap"
	"github.com/cil-project/cilc/pkg/payload"
)

// LoweredLevel is a (sensitivity value, category bitmap) pair: the PDB-
// native form of payload.Level, once its sensitivity has a dense value and
// its categories have been turned into bit positions via the merged
// category order.
type LoweredLevel struct {
	Sens uint32
	Cats *bitmap.Bitmap
}

// LoweredRange is a (low, high) pair of LoweredLevel.
type LoweredRange struct {
	Low, High *LoweredLevel
}

// LoweredContext is the PDB-native form of payload.Context: dense values
// for user/role/type, plus a LoweredRange when MLS is enabled.
type LoweredContext struct {
	User, Role, Type uint32
	Range            *LoweredRange
}

// LowerContext turns a resolved payload.Context into its dense-valued PDB
// form. valueOf looks up the assigned Value for a given *ast.Datum (the
// lowerer's pass 1 populates these before pass 2 calls LowerContext).
func (p *PDB) LowerContext(ctx *payload.Context, valueOf func(*ast.Datum) uint32) (*LoweredContext, error) {
	if ctx.User == nil || ctx.Role == nil || ctx.Type == nil {
		return nil, errors.New("context: user/role/type not resolved")
	}
	lowered := &LoweredContext{
		User: valueOf(ctx.User),
		Role: valueOf(ctx.Role),
		Type: valueOf(ctx.Type),
	}
	if p.MLS {
		if ctx.Range == nil {
			return nil, errors.New("context: MLS enabled but no range given")
		}
		rng, err := p.LowerRange(ctx.Range, valueOf)
		if err != nil {
			return nil, err
		}
		lowered.Range = rng
	}
	return lowered, nil
}

// LowerRange turns a resolved payload.LevelRange into its dense-valued PDB
// form.
func (p *PDB) LowerRange(rng *payload.LevelRange, valueOf func(*ast.Datum) uint32) (*LoweredRange, error) {
	low, err := p.lowerLevel(rng.Low, valueOf)
	if err != nil {
		return nil, errors.Wrap(err, "levelrange low")
	}
	high, err := p.lowerLevel(rng.High, valueOf)
	if err != nil {
		return nil, errors.Wrap(err, "levelrange high")
	}
	return &LoweredRange{Low: low, High: high}, nil
}

func (p *PDB) lowerLevel(lvl *payload.Level, valueOf func(*ast.Datum) uint32) (*LoweredLevel, error) {
	if lvl == nil || lvl.Sens == nil {
		return nil, errors.New("level: sensitivity not resolved")
	}
	cats := bitmap.New()
	if lvl.Cats != nil {
		for _, cat := range lvl.Cats.Cats {
			bit := indexOf(p.CatOrder, cat.Name)
			if bit < 0 {
				return nil, errors.Errorf("category %q has no position in the merged category order", cat.Name)
			}
			cats.Set(bit)
		}
	}
	return &LoweredLevel{Sens: valueOf(lvl.Sens), Cats: cats}, nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
