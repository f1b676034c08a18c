// Package payload declares the flavor-specific data every ast.Node.Data
// carries, before and after resolution: string name references up front,
// resolved *ast.Datum pointers once the resolver pass responsible for that
// flavor has run. Each type implements ast.Substitutable so pkg/ast.Copy can
// deep-clone it during macro expansion (CALL1) and block inheritance
// (BLKIN) with parameter substitution applied uniformly.
package payload

import "github.com/cil-project/cilc/pkg/ast"

func sub(subst map[string]string, name string) string {
	if name == "" {
		return name
	}
	if renamed, ok := subst[name]; ok {
		return renamed
	}
	return name
}

func subAll(subst map[string]string, names []string) []string {
	if names == nil {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = sub(subst, n)
	}
	return out
}

// AvruleKind enumerates the avtab rule kinds.
type AvruleKind int

const (
	Allowed AvruleKind = iota
	AuditAllow
	DontAudit
	Neverallow
	TypeTransition
	TypeChange
	TypeMember
)

// Self is the CIL keyword an avrule's target names to mean "the source
// itself": source and target resolve to the same value, and when the
// source is a type-attribute the rule expands to one entry per member
// rather than naming the attribute's own pseudo-value as both endpoints.
const Self = "self"

// Avrule is the payload for CIL_AVRULE nodes: allow/auditallow/dontaudit/
// neverallow statements.
type Avrule struct {
	Kind AvruleKind

	SourceStr, TargetStr, ClassStr string
	PermStrs                       []string // empty if ClassStr names a classpermset

	Source, Target, Class *ast.Datum
	Perms                 []*ast.Datum
}

func (a *Avrule) Clone(subst map[string]string) any {
	return &Avrule{
		Kind: a.Kind, SourceStr: sub(subst, a.SourceStr), TargetStr: sub(subst, a.TargetStr),
		ClassStr: sub(subst, a.ClassStr), PermStrs: subAll(subst, a.PermStrs),
	}
}

// TypeRule is the payload for CIL_TYPE_RULE (typetransition/typechange/
// typemember).
type TypeRule struct {
	Kind                                       AvruleKind // TypeTransition | TypeChange | TypeMember
	SourceStr, TargetStr, ClassStr, ResultStr string

	Source, Target, Class, Result *ast.Datum
}

func (t *TypeRule) Clone(subst map[string]string) any {
	return &TypeRule{
		Kind: t.Kind, SourceStr: sub(subst, t.SourceStr), TargetStr: sub(subst, t.TargetStr),
		ClassStr: sub(subst, t.ClassStr), ResultStr: sub(subst, t.ResultStr),
	}
}

// Typealias/Sensalias/Catalias share the same shape: an alias name pointing
// at a target name.
type Alias struct {
	Name      string
	TargetStr string
	Target    *ast.Datum
}

func (a *Alias) DeclName() string { return a.Name }

func (a *Alias) Clone(subst map[string]string) any {
	return &Alias{Name: sub(subst, a.Name), TargetStr: sub(subst, a.TargetStr)}
}

// Typeattributeset / Roleattributeset: associates an attribute with an
// expression over types/roles. The expression is kept as a flattened list
// of (name, negated) operands joined by OR, which covers the common case
// CIL programs actually use (`(and (A) (not B))`-style plain unions/
// exclusions); richer expr nesting is out of this repo's scope.
type AttributeSet struct {
	AttrStr  string
	Attr     *ast.Datum
	Operands []AttrOperand
}

type AttrOperand struct {
	NameStr string
	Negated bool
	Name    *ast.Datum
}

func (a *AttributeSet) Clone(subst map[string]string) any {
	ops := make([]AttrOperand, len(a.Operands))
	for i, o := range a.Operands {
		ops[i] = AttrOperand{NameStr: sub(subst, o.NameStr), Negated: o.Negated}
	}
	return &AttributeSet{AttrStr: sub(subst, a.AttrStr), Operands: ops}
}

// BoolValue is the payload for a boolean/tunable declaration: a name plus
// its default truth value. Tunables are fixed at compile time (passTIF
// folds every tunableif against this value); booleans keep theirs as the
// starting point a booleanif's branches are pre-lowered for, since
// booleanif lowering never re-evaluates it at runtime.
type BoolValue struct {
	Name  string
	Value bool
}

func (b *BoolValue) DeclName() string { return b.Name }

func (b *BoolValue) Clone(subst map[string]string) any {
	return &BoolValue{Name: sub(subst, b.Name), Value: b.Value}
}

// Bounds is shared by typebounds/rolebounds/userbounds: child is bounded by
// parent.
type Bounds struct {
	ChildStr, ParentStr string
	Child, Parent       *ast.Datum
}

func (b *Bounds) Clone(subst map[string]string) any {
	return &Bounds{ChildStr: sub(subst, b.ChildStr), ParentStr: sub(subst, b.ParentStr)}
}

// Roletype associates a role with a type it may transition through.
type Roletype struct {
	RoleStr, TypeStr string
	Role, Type       *ast.Datum
}

func (r *Roletype) Clone(subst map[string]string) any {
	return &Roletype{RoleStr: sub(subst, r.RoleStr), TypeStr: sub(subst, r.TypeStr)}
}

// Userrole associates a user with a role.
type Userrole struct {
	UserStr, RoleStr string
	User, Role       *ast.Datum
}

func (u *Userrole) Clone(subst map[string]string) any {
	return &Userrole{UserStr: sub(subst, u.UserStr), RoleStr: sub(subst, u.RoleStr)}
}

// Userlevel associates a user with their default level.
type Userlevel struct {
	UserStr string
	User    *ast.Datum
	Level   *Level
}

func (u *Userlevel) Clone(subst map[string]string) any {
	var lvl *Level
	if u.Level != nil {
		lvl = u.Level.Clone(subst).(*Level)
	}
	return &Userlevel{UserStr: sub(subst, u.UserStr), Level: lvl}
}

// Userrange associates a user with their default level range.
type Userrange struct {
	UserStr string
	User    *ast.Datum
	Range   *LevelRange
}

func (u *Userrange) Clone(subst map[string]string) any {
	var rng *LevelRange
	if u.Range != nil {
		rng = u.Range.Clone(subst).(*LevelRange)
	}
	return &Userrange{UserStr: sub(subst, u.UserStr), Range: rng}
}

// Selinuxuser maps a Linux username to an SELinux user, with an optional
// MLS level range (absent for selinuxuserdefault).
type Selinuxuser struct {
	Name       string
	UserStr    string
	User       *ast.Datum
	Range      *LevelRange
	IsDefault  bool
}

func (s *Selinuxuser) Clone(subst map[string]string) any {
	var rng *LevelRange
	if s.Range != nil {
		rng = s.Range.Clone(subst).(*LevelRange)
	}
	return &Selinuxuser{Name: s.Name, UserStr: sub(subst, s.UserStr), Range: rng, IsDefault: s.IsDefault}
}

// Classcommon attaches a common's permissions to a class.
type Classcommon struct {
	ClassStr, CommonStr string
	Class, Common       *ast.Datum
}

func (c *Classcommon) Clone(subst map[string]string) any {
	return &Classcommon{ClassStr: sub(subst, c.ClassStr), CommonStr: sub(subst, c.CommonStr)}
}

// Classperms is one (class, perm-list) pair, used directly by a
// classpermset or classmapping entry, or inline in an avrule whose class
// names a map-class.
type Classperms struct {
	ClassStr       string
	PermStrs       []string
	ClasspermsetStr string // alternative form: refers to another classpermset by name

	Class *ast.Datum
	Perms []*ast.Datum
}

func (c *Classperms) Clone(subst map[string]string) any {
	return &Classperms{
		ClassStr: sub(subst, c.ClassStr), PermStrs: subAll(subst, c.PermStrs),
		ClasspermsetStr: sub(subst, c.ClasspermsetStr),
	}
}

// Classpermset is a named, reusable set of (class, perms) pairs (CIL_CLASSPERMSET).
type Classpermset struct {
	Name    string
	Entries []*Classperms
}

// DeclName lets declare() read the name off a node whose Data is a rich
// payload struct rather than a bare string.
func (c *Classpermset) DeclName() string { return c.Name }

func (c *Classpermset) Clone(subst map[string]string) any {
	out := make([]*Classperms, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = e.Clone(subst).(*Classperms)
	}
	return &Classpermset{Name: sub(subst, c.Name), Entries: out}
}

// Classmapping assigns classperms to a map-class's map-perm (classmap
// expansion).
type Classmapping struct {
	MapClassStr, MapPermStr string
	MapClass, MapPerm       *ast.Datum
	Entries                 []*Classperms
}

func (c *Classmapping) Clone(subst map[string]string) any {
	out := make([]*Classperms, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = e.Clone(subst).(*Classperms)
	}
	return &Classmapping{MapClassStr: sub(subst, c.MapClassStr), MapPermStr: sub(subst, c.MapPermStr), Entries: out}
}

// Roletransition: (source role, target type, class) -> new role.
type Roletransition struct {
	SourceStr, TargetStr, ClassStr, NewRoleStr string
	Source, Target, Class, NewRole             *ast.Datum
}

func (r *Roletransition) Clone(subst map[string]string) any {
	return &Roletransition{
		SourceStr: sub(subst, r.SourceStr), TargetStr: sub(subst, r.TargetStr),
		ClassStr: sub(subst, r.ClassStr), NewRoleStr: sub(subst, r.NewRoleStr),
	}
}

// Roleallow: role may change to newrole.
type Roleallow struct {
	SourceStr, NewRoleStr string
	Source, NewRole       *ast.Datum
}

func (r *Roleallow) Clone(subst map[string]string) any {
	return &Roleallow{SourceStr: sub(subst, r.SourceStr), NewRoleStr: sub(subst, r.NewRoleStr)}
}

// Nametypetransition: (source, target, class, objname literal) -> result type.
type Nametypetransition struct {
	SourceStr, TargetStr, ClassStr, ObjName, ResultStr string
	Source, Target, Class, Result                       *ast.Datum
}

func (n *Nametypetransition) Clone(subst map[string]string) any {
	return &Nametypetransition{
		SourceStr: sub(subst, n.SourceStr), TargetStr: sub(subst, n.TargetStr),
		ClassStr: sub(subst, n.ClassStr), ObjName: n.ObjName, ResultStr: sub(subst, n.ResultStr),
	}
}

// Rangetransition: (source, target, class) -> mls range.
type Rangetransition struct {
	SourceStr, TargetStr, ClassStr string
	Source, Target, Class         *ast.Datum
	Range                          *LevelRange
}

func (r *Rangetransition) Clone(subst map[string]string) any {
	var rng *LevelRange
	if r.Range != nil {
		rng = r.Range.Clone(subst).(*LevelRange)
	}
	return &Rangetransition{
		SourceStr: sub(subst, r.SourceStr), TargetStr: sub(subst, r.TargetStr),
		ClassStr: sub(subst, r.ClassStr), Range: rng,
	}
}

// Typepermissive marks a type as permissive (no enforcement for it).
type Typepermissive struct {
	TypeStr string
	Type    *ast.Datum
}

func (t *Typepermissive) Clone(subst map[string]string) any {
	return &Typepermissive{TypeStr: sub(subst, t.TypeStr)}
}

// Catorder / Dominance carry a raw ordered name sequence, consumed by the
// partial-order merger (pkg/order) during resolver pass MISC1.
type OrderHint struct {
	Names []string
}

func (o *OrderHint) Clone(subst map[string]string) any { return &OrderHint{Names: subAll(subst, o.Names)} }

// Senscat associates a sensitivity with the categories available at that
// level (used to build Level values for each declared sensitivity).
type Senscat struct {
	SensStr string
	Sens    *ast.Datum
	Cats    *Catset
}

func (s *Senscat) Clone(subst map[string]string) any {
	return &Senscat{SensStr: sub(subst, s.SensStr), Cats: s.Cats.Clone(subst).(*Catset)}
}

// Catset is a union of categories and category ranges; Name is set only
// when it is used as a standalone named "categoryset" declaration rather
// than an anonymous literal embedded in a Level.
type Catset struct {
	Name       string
	CatStrs    []string
	CatRanges  []CatRangeLit
	Cats       []*ast.Datum
}

func (c *Catset) DeclName() string { return c.Name }

type CatRangeLit struct{ LowStr, HighStr string }

func (c *Catset) Clone(subst map[string]string) any {
	ranges := make([]CatRangeLit, len(c.CatRanges))
	for i, r := range c.CatRanges {
		ranges[i] = CatRangeLit{LowStr: sub(subst, r.LowStr), HighStr: sub(subst, r.HighStr)}
	}
	return &Catset{Name: sub(subst, c.Name), CatStrs: subAll(subst, c.CatStrs), CatRanges: ranges}
}

// Catrange is a standalone (low, high) category range declaration.
type Catrange struct {
	Name            string
	LowStr, HighStr string
	Low, High       *ast.Datum
}

func (c *Catrange) DeclName() string { return c.Name }

func (c *Catrange) Clone(subst map[string]string) any {
	return &Catrange{Name: sub(subst, c.Name), LowStr: sub(subst, c.LowStr), HighStr: sub(subst, c.HighStr)}
}

// Level is a (sensitivity, categories) pair; Name is set only for a
// standalone named "level" declaration.
type Level struct {
	Name    string
	SensStr string
	Sens    *ast.Datum
	Cats    *Catset
}

func (l *Level) DeclName() string { return l.Name }

func (l *Level) Clone(subst map[string]string) any {
	var cats *Catset
	if l.Cats != nil {
		cats = l.Cats.Clone(subst).(*Catset)
	}
	return &Level{Name: sub(subst, l.Name), SensStr: sub(subst, l.SensStr), Cats: cats}
}

// LevelRange is a (low, high) pair of levels, each either a literal Level or
// a reference to a named level; Name is set only for a standalone named
// "levelrange" declaration.
type LevelRange struct {
	Name            string
	LowStr, HighStr string
	Low, High       *Level
	LowDatum, HighDatum *ast.Datum
}

func (r *LevelRange) DeclName() string { return r.Name }

func (r *LevelRange) Clone(subst map[string]string) any {
	clone := &LevelRange{Name: sub(subst, r.Name), LowStr: sub(subst, r.LowStr), HighStr: sub(subst, r.HighStr)}
	if r.Low != nil {
		clone.Low = r.Low.Clone(subst).(*Level)
	}
	if r.High != nil {
		clone.High = r.High.Clone(subst).(*Level)
	}
	return clone
}

// Context is a (user, role, type, range?) tuple; Name is set only for a
// standalone named "context" declaration.
type Context struct {
	Name                      string
	UserStr, RoleStr, TypeStr string
	User, Role, Type          *ast.Datum
	Range                     *LevelRange
	RangeStr                  string // when the range is a named levelrange reference
}

func (c *Context) DeclName() string { return c.Name }

func (c *Context) Clone(subst map[string]string) any {
	clone := &Context{
		Name: sub(subst, c.Name),
		UserStr: sub(subst, c.UserStr), RoleStr: sub(subst, c.RoleStr), TypeStr: sub(subst, c.TypeStr),
		RangeStr: sub(subst, c.RangeStr),
	}
	if c.Range != nil {
		clone.Range = c.Range.Clone(subst).(*LevelRange)
	}
	return clone
}

// IPAddr is a literal IPv4/IPv6 address, standalone-declared under a name.
type IPAddr struct {
	Name    string
	Literal string
}

func (i *IPAddr) DeclName() string { return i.Name }

func (i *IPAddr) Clone(map[string]string) any { return &IPAddr{Name: i.Name, Literal: i.Literal} }

// Sidcontext binds an initial SID to a context.
type Sidcontext struct {
	SidStr    string
	Sid       *ast.Datum
	ContextStr string // named context reference
	Context   *Context
}

func (s *Sidcontext) Clone(subst map[string]string) any {
	clone := &Sidcontext{SidStr: sub(subst, s.SidStr), ContextStr: sub(subst, s.ContextStr)}
	if s.Context != nil {
		clone.Context = s.Context.Clone(subst).(*Context)
	}
	return clone
}

// Portcon/Nodecon/Netifcon/Genfscon/Fsuse/Pirqcon/Iomemcon/Ioportcon/
// Pcidevicecon: object-context bindings, one struct each for a member of
// the ocontext union.
type Portcon struct {
	Proto          string
	Low, High      uint32
	ContextStr     string
	Context        *Context
}

func (p *Portcon) Clone(map[string]string) any { c := *p; return &c }

type Nodecon struct {
	AddrStr, MaskStr string
	ContextStr       string
	Context          *Context
}

func (n *Nodecon) Clone(map[string]string) any { c := *n; return &c }

type Netifcon struct {
	Interface                     string
	IfContextStr, PacketContextStr string
	IfContext, PacketContext      *Context
}

func (n *Netifcon) Clone(map[string]string) any { c := *n; return &c }

type Genfscon struct {
	FsName, Path, FileType string
	ContextStr             string
	Context                *Context
}

func (g *Genfscon) Clone(map[string]string) any { c := *g; return &c }

type Fsuse struct {
	Kind       string // xattr | task | trans
	FsName     string
	ContextStr string
	Context    *Context
}

func (f *Fsuse) Clone(map[string]string) any { c := *f; return &c }

type DeviceCon struct {
	Low, High  uint64
	ContextStr string
	Context    *Context
}

func (d *DeviceCon) Clone(map[string]string) any { c := *d; return &c }

// Constrain/Mlsconstrain/Validatetrans share a (class list, expression) shape.
type Constrain struct {
	ClassStrs []string
	Classes   []*ast.Datum
	ExprStrs  []string // raw prefix-form token sequence, compiled in MISC3/pass2
}

func (c *Constrain) Clone(subst map[string]string) any {
	return &Constrain{ClassStrs: subAll(subst, c.ClassStrs), ExprStrs: subAll(subst, c.ExprStrs)}
}

// Call is a macro invocation: macro name plus positional argument forms.
type Call struct {
	MacroStr string
	Macro    *ast.Datum
	ArgStrs  []string
}

func (c *Call) Clone(subst map[string]string) any {
	return &Call{MacroStr: sub(subst, c.MacroStr), ArgStrs: subAll(subst, c.ArgStrs)}
}

// MacroParam describes one formal parameter of a macro declaration.
type MacroParam struct {
	FlavorName string // "type", "role", "catset", "classpermset", ...
	Name       string
}

// Macro carries a macro declaration's formal parameter list; its body is
// the node's ordinary children.
type Macro struct {
	Name   string
	Params []MacroParam
}

func (m *Macro) DeclName() string { return m.Name }

func (m *Macro) Clone(subst map[string]string) any {
	params := make([]MacroParam, len(m.Params))
	for i, p := range m.Params {
		params[i] = MacroParam{FlavorName: p.FlavorName, Name: sub(subst, p.Name)}
	}
	return &Macro{Name: m.Name, Params: params}
}

// Blockinherit names the block whose body should be deep-copied under the
// inheriting site.
type Blockinherit struct {
	BlockStr string
	Block    *ast.Datum
}

func (b *Blockinherit) Clone(subst map[string]string) any { return &Blockinherit{BlockStr: sub(subst, b.BlockStr)} }

// Blockabstract names the block a blockabstract statement marks abstract.
// The statement itself is dropped once resolved; only the mark on the
// named block survives (see cildb.DB.AbstractBlocks).
type Blockabstract struct {
	BlockStr string
	Block    *ast.Datum
}

func (b *Blockabstract) Clone(subst map[string]string) any {
	return &Blockabstract{BlockStr: sub(subst, b.BlockStr)}
}

// In names the target block whose body should receive this container's children.
type In struct {
	TargetStr string
	Target    *ast.Datum
}

func (i *In) Clone(subst map[string]string) any { return &In{TargetStr: sub(subst, i.TargetStr)} }

// Booleanif/Tunableif share a condition-expression shape; CIL's boolean
// expression here is kept as a flat postfix token list over {bool-name,
// NOT, AND, OR, XOR, EQ, NEQ}.
type CondIf struct {
	ExprTokens []string
}

func (c *CondIf) Clone(subst map[string]string) any { return &CondIf{ExprTokens: subAll(subst, c.ExprTokens)} }
