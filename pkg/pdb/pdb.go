// Package pdb lowers a fully resolved AST into the policy database the
// kernel-facing binary form is ultimately serialized from: dense integer
// values for every symbol, a merged access-vector table, conditional rule
// lists, role/range transition lists, per-class constraints, and the sorted
// ocontext arrays.
package pdb

import (
	"github.com/cil-project/cilc/pkg/bitmap"
	"github.com/cil-project/cilc/pkg/constraint"
)

// AvtabKey identifies one access-vector entry: (source, target, class,
// kind). Two avrules with the same key merge their permission bitmaps
// together rather than producing two entries (merge-on-duplicate-key).
type AvtabKey struct {
	Source, Target, Class uint32
	Kind                  AvtabKind
}

// AvtabKind distinguishes allow/auditallow/dontaudit/neverallow/
// type_transition/type_change/type_member entries sharing the same key
// space (a (src,tgt,class) triple can have one entry of each kind).
type AvtabKind int

const (
	Allow AvtabKind = iota
	AuditAllow
	DontAudit
	Neverallow
	TypeTransition
	TypeChange
	TypeMember
)

// AvtabNode is one avtab entry: the permission bitmap for Allow/AuditAllow/
// DontAudit/Neverallow kinds, or the single result type value for the
// TypeTransition/TypeChange/TypeMember kinds.
type AvtabNode struct {
	Key    AvtabKey
	Perms  *bitmap.Bitmap // Allow / AuditAllow / DontAudit / Neverallow
	Result uint32         // TypeTransition / TypeChange / TypeMember
}

// Avtab is the merge-on-duplicate-key access vector table. Mode controls
// whether a duplicate key merges permissions (mode=1, used for ordinary
// top-level rules) or is rejected outright (mode=0, used inside a single
// conditional branch, where a duplicate within the same branch is a
// malformed policy rather than an implicit union).
type Avtab struct {
	Mode    int
	entries map[AvtabKey]*AvtabNode
	order   []AvtabKey
}

// NewAvtab allocates an empty table in the given merge mode.
func NewAvtab(mode int) *Avtab {
	return &Avtab{Mode: mode, entries: make(map[AvtabKey]*AvtabNode)}
}

// Insert adds perms (nil for the transition kinds, which carry Result
// instead) under key, merging into an existing entry when Mode == 1.
func (t *Avtab) Insert(key AvtabKey, perms *bitmap.Bitmap, result uint32) (*AvtabNode, error) {
	if existing, ok := t.entries[key]; ok {
		if t.Mode == 0 {
			return nil, errDuplicateAvtabKey
		}
		if perms != nil {
			if existing.Perms == nil {
				existing.Perms = bitmap.New()
			}
			existing.Perms.Union(perms)
		}
		return existing, nil
	}
	node := &AvtabNode{Key: key, Perms: perms, Result: result}
	t.entries[key] = node
	t.order = append(t.order, key)
	return node, nil
}

// Lookup returns the entry for key, or nil.
func (t *Avtab) Lookup(key AvtabKey) *AvtabNode { return t.entries[key] }

// Nodes returns every entry in insertion order.
func (t *Avtab) Nodes() []*AvtabNode {
	out := make([]*AvtabNode, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.entries[k])
	}
	return out
}

// CondExpr is a conditional's boolean expression, kept in the same
// postfix-token form the resolver uses for tunableif (see
// resolver.evalBoolExpr), but never folded at compile time: a boolean's
// value can flip at runtime, so both branches are lowered and the active
// one is chosen by the kernel at policy-load/setbool time.
type CondExpr struct {
	Tokens []string
}

// CondNode is one booleanif's lowered conditional: both branches' avtab
// entries and type_transition/type_change/type_member rules, switched by
// Expr at runtime.
type CondNode struct {
	Expr            CondExpr
	TrueList        *Avtab
	FalseList       *Avtab
}

// ConstraintKind is the kind of check a ConstraintEntry implements.
type ConstraintKind int

const (
	ConstrainKind ConstraintKind = iota
	MlsconstrainKind
	ValidatetransKind
	MlsvalidatetransKind
)

type ConstraintEntry struct {
	Kind ConstraintKind
	Perms *bitmap.Bitmap // not filled in by lowering; always nil
	Expr  *constraint.Node
}

// OcontextKind tags the per-kind ocontext arrays.
type OcontextKind int

const (
	OPortcon OcontextKind = iota
	ONodecon
	ONetifcon
	OGenfscon
	OFsuse
	OPirqcon
	OIomemcon
	OIoportcon
	OPcidevicecon
	OSidcontext
)

// PDB is the fully lowered policy database.
type PDB struct {
	MLS bool

	Avtab *Avtab
	Cond  []*CondNode

	RoleTransitions []*RoleTransitionEntry
	RoleAllows      []*RoleAllowEntry
	NameTransitions []*NameTransitionEntry
	RangeTransitions []*RangeTransitionEntry

	// Constraints is keyed by class value; each class accumulates its own
	// constrain/mlsconstrain/validatetrans chain in declaration order.
	Constraints map[uint32][]*ConstraintEntry

	Ocontexts map[OcontextKind][]*OcontextEntry

	Neverallows *NeverallowIndex

	// CatOrder/DominanceOrder carry the merged total orders over from the
	// resolver, used by context lowering to turn a category name into a
	// bit position.
	CatOrder       []string
	DominanceOrder []string
}

// NewPDB allocates an empty PDB. mls controls whether MLS fields (levels,
// ranges, category bitmaps) are populated during context lowering.
func NewPDB(mls bool, catOrder, dominanceOrder []string) *PDB {
	return &PDB{
		MLS:             mls,
		Avtab:           NewAvtab(1),
		Constraints:     make(map[uint32][]*ConstraintEntry),
		Ocontexts:       make(map[OcontextKind][]*OcontextEntry),
		Neverallows:     NewNeverallowIndex(),
		CatOrder:        catOrder,
		DominanceOrder:  dominanceOrder,
	}
}

type RoleTransitionEntry struct{ Source, Target, Class, NewRole uint32 }
type RoleAllowEntry struct{ Source, NewRole uint32 }
type NameTransitionEntry struct {
	Source, Target, Class, Result uint32
	ObjName                       string
}
type RangeTransitionEntry struct {
	Source, Target, Class uint32
	Range                 *LoweredRange
}

type OcontextEntry struct {
	Kind    OcontextKind
	Context *LoweredContext

	// discriminant fields, only the ones relevant to Kind are populated.
	Proto          string
	LowPort, HighPort uint32
	Addr, Mask     string
	Interface      string
	FsName, Path, FileType string
	DeviceLow, DeviceHigh  uint64
}
