package sexpr

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/payload"
)

// Build turns a sequence of top-level Forms (as produced by Parse) into the
// *ast.Node tree resolver.Run consumes: an ast.Root node whose children are
// the top-level statements, block/macro/optional bodies built recursively
// the same way. Every declarative node's Data is left exactly as
// declare()'s declNameOf expects -- a bare string for a name-only
// declaration, or a payload struct implementing DeclName() for one that
// also carries a body.
func Build(forms []*Form) (*ast.Node, error) {
	root := ast.NewNode(ast.Root, 0)
	for _, f := range forms {
		if err := buildInto(root, f); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// buildInto builds one top-level-or-nested statement Form and appends the
// resulting node(s) as children of parent.
func buildInto(parent *ast.Node, f *Form) error {
	if !f.List || len(f.Items) == 0 {
		return errors.Errorf("expected a statement, found bare atom %q", f.Atom)
	}
	head := f.Items[0].Atom
	tail := f.Items[1:]
	builder, ok := builders[head]
	if !ok {
		return errors.Errorf("unrecognized statement %q", head)
	}
	node, err := builder(tail)
	if err != nil {
		return errors.Wrapf(err, "%q", head)
	}
	if node != nil {
		parent.AddChild(node)
	}
	return nil
}

func buildBody(n *ast.Node, body []*Form) error {
	for _, f := range body {
		if err := buildInto(n, f); err != nil {
			return err
		}
	}
	return nil
}

type builderFunc func(tail []*Form) (*ast.Node, error)

var builders map[string]builderFunc

func init() {
	builders = map[string]builderFunc{
		"block":         buildBlock,
		"blockabstract": buildBlockabstract,
		"blockinherit":  buildBlockinherit,
		"macro":         buildMacro,
		"call":          buildCall,
		"optional":      buildOptional,
		"in":            buildIn,

		"type":              buildSimpleName(ast.Type),
		"typealias":         buildAlias(ast.Typealias),
		"typeattribute":     buildSimpleName(ast.Typeattribute),
		"typeattributeset":  buildAttributeSet(ast.Typeattributeset, "typeattributeset"),
		"typebounds":        buildBounds(ast.Typebounds),
		"typepermissive":    buildTypepermissive,
		"type_transition":   buildTypeRule(payload.TypeTransition),
		"type_change":       buildTypeRule(payload.TypeChange),
		"type_member":       buildTypeRule(payload.TypeMember),

		"role":              buildSimpleName(ast.Role),
		"roleattribute":     buildSimpleName(ast.Roleattribute),
		"roleattributeset":  buildAttributeSet(ast.Roleattributeset, "roleattributeset"),
		"roletype":          buildRoletype,
		"roletransition":    buildRoletransition,
		"roleallow":         buildRoleallow,
		"rolebounds":        buildBounds(ast.Rolebounds),

		"user":         buildSimpleName(ast.User),
		"userrole":     buildUserrole,
		"userlevel":    buildUserlevel,
		"userrange":    buildUserrange,
		"userbounds":   buildBounds(ast.Userbounds),
		"userprefix":   buildUserprefix,
		"selinuxuser":        buildSelinuxuser(false),
		"selinuxuserdefault": buildSelinuxuser(true),

		"class":           buildClass,
		"common":          buildCommon,
		"classcommon":     buildClasscommon,
		"classpermission": buildClasspermissionDecl,
		"classpermissionset": buildClasspermissionset,
		"classmap":        buildClassmap,
		"classmapping":    buildClassmapping,

		"sid":        buildSimpleName(ast.Sid),
		"sidcontext": buildSidcontext,
		"context":    buildContextDecl,

		"sensitivity":       buildSimpleName(ast.Sens),
		"sensitivityalias":  buildAlias(ast.Sensalias),
		"sensitivityorder":  buildOrderHint(ast.Dominance),
		"category":          buildSimpleName(ast.Cat),
		"categoryalias":     buildAlias(ast.Catalias),
		"categoryorder":     buildOrderHint(ast.Catorder),
		"categoryrange":     buildCatrange,
		"categoryset":       buildCatsetDecl,
		"level":             buildLevelDecl,
		"levelrange":        buildLevelrangeDecl,

		"allow":        buildAvrule(payload.Allowed),
		"auditallow":   buildAvrule(payload.AuditAllow),
		"dontaudit":    buildAvrule(payload.DontAudit),
		"neverallow":   buildAvrule(payload.Neverallow),

		"nametypetransition": buildNametypetransition,
		"rangetransition":    buildRangetransition,

		"boolean":    buildBoolValue(ast.Bool),
		"booleanif":  buildCondif(ast.Booleanif),
		"tunable":    buildBoolValue(ast.Tunable),
		"tunableif":  buildCondif(ast.Tunableif),

		"constrain":        buildConstrain(ast.Constrain),
		"mlsconstrain":     buildConstrain(ast.Mlsconstrain),
		"validatetrans":    buildValidatetrans(ast.Validatetrans),
		"mlsvalidatetrans": buildValidatetrans(ast.Mlsvalidatetrans),

		"portcon":      buildPortcon,
		"nodecon":      buildNodecon,
		"netifcon":     buildNetifcon,
		"genfscon":     buildGenfscon,
		"fsuse":        buildFsuse,
		"pirqcon":      buildDevicecon(ast.Pirqcon),
		"iomemcon":     buildDevicecon(ast.Iomemcon),
		"ioportcon":    buildDevicecon(ast.Ioportcon),
		"pcidevicecon": buildDevicecon(ast.Pcidevicecon),

		"policycap": buildSimpleName(ast.Policycap),
		"name":      buildSimpleName(ast.Name),
	}
}

// unquote strips the surrounding double quotes pString's token carries
// verbatim, for the handful of fields (file paths, object names) that are
// always written as quoted string literals rather than bare identifiers.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func need(tail []*Form, n int, stmt string) error {
	if len(tail) < n {
		return errors.Errorf("%s: expected at least %d operands, got %d", stmt, n, len(tail))
	}
	return nil
}

func atomsOf(f *Form) []string {
	if f == nil {
		return nil
	}
	if f.List {
		return f.Atoms()
	}
	return []string{f.Atom}
}

// buildSimpleName handles every declarative statement whose only content
// is its own name: (KEYWORD NAME).
func buildSimpleName(flavor ast.Flavor) builderFunc {
	return func(tail []*Form) (*ast.Node, error) {
		if err := need(tail, 1, flavor.String()); err != nil {
			return nil, err
		}
		n := ast.NewNode(flavor, 0)
		n.Data = tail[0].Atom
		return n, nil
	}
}

// buildAlias handles typealias/sensitivityalias/categoryalias, combining
// the alias's own declaration and its target binding into a single
// statement: (KEYWORD ALIAS TARGET).
func buildAlias(flavor ast.Flavor) builderFunc {
	return func(tail []*Form) (*ast.Node, error) {
		if err := need(tail, 2, flavor.String()); err != nil {
			return nil, err
		}
		n := ast.NewNode(flavor, 0)
		n.Data = &payload.Alias{Name: tail[0].Atom, TargetStr: tail[1].Atom}
		return n, nil
	}
}

func buildBlock(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 1, "block"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Block, 0)
	n.Data = tail[0].Atom
	if err := buildBody(n, tail[1:]); err != nil {
		return nil, err
	}
	return n, nil
}

func buildBlockabstract(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 1, "blockabstract"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Blockabstract, 0)
	n.Data = &payload.Blockabstract{BlockStr: tail[0].Atom}
	return n, nil
}

func buildBlockinherit(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 1, "blockinherit"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Blockinherit, 0)
	n.Data = &payload.Blockinherit{BlockStr: tail[0].Atom}
	return n, nil
}

func buildOptional(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 1, "optional"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Optional, 0)
	n.Data = tail[0].Atom
	if err := buildBody(n, tail[1:]); err != nil {
		return nil, err
	}
	return n, nil
}

func buildIn(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 1, "in"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.In, 0)
	n.Data = &payload.In{TargetStr: tail[0].Atom}
	if err := buildBody(n, tail[1:]); err != nil {
		return nil, err
	}
	return n, nil
}

// buildMacro handles (macro NAME (PARAM...) BODY...), where each PARAM is
// itself a (FLAVORNAME PARAMNAME) form, e.g. (type t) or (classpermission cp).
func buildMacro(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 2, "macro"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Macro, 0)
	var params []payload.MacroParam
	for _, p := range tail[1].Items {
		if !p.List || len(p.Items) != 2 {
			return nil, errors.Errorf("macro %q: malformed parameter", tail[0].Atom)
		}
		params = append(params, payload.MacroParam{FlavorName: p.Items[0].Atom, Name: p.Items[1].Atom})
	}
	n.Data = &payload.Macro{Name: tail[0].Atom, Params: params}
	if err := buildBody(n, tail[2:]); err != nil {
		return nil, err
	}
	return n, nil
}

func buildCall(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 1, "call"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Call, 0)
	var args []string
	if len(tail) > 1 {
		args = atomsOf(tail[1])
	}
	n.Data = &payload.Call{MacroStr: tail[0].Atom, ArgStrs: args}
	return n, nil
}

// buildAttributeSet handles typeattributeset/roleattributeset: (KEYWORD
// ATTR EXPR), where EXPR is a bare name, a (not NAME), or an (and/or ...)
// of either -- flattened to the OR-of-(name,negated) shape payload.AttributeSet
// documents as this repo's deliberate simplification of full boolean
// attribute expressions.
func buildAttributeSet(flavor ast.Flavor, stmt string) builderFunc {
	return func(tail []*Form) (*ast.Node, error) {
		if err := need(tail, 2, stmt); err != nil {
			return nil, err
		}
		ops, err := flattenAttrExpr(tail[1], false)
		if err != nil {
			return nil, err
		}
		n := ast.NewNode(flavor, 0)
		n.Data = &payload.AttributeSet{AttrStr: tail[0].Atom, Operands: ops}
		return n, nil
	}
}

func flattenAttrExpr(f *Form, negated bool) ([]payload.AttrOperand, error) {
	if !f.List {
		return []payload.AttrOperand{{NameStr: f.Atom, Negated: negated}}, nil
	}
	if len(f.Items) == 0 {
		return nil, nil
	}
	switch f.Items[0].Atom {
	case "not":
		if len(f.Items) != 2 {
			return nil, errors.New("not: expected exactly one operand")
		}
		return flattenAttrExpr(f.Items[1], !negated)
	case "and", "or", "xor":
		var out []payload.AttrOperand
		for _, operand := range f.Items[1:] {
			ops, err := flattenAttrExpr(operand, negated)
			if err != nil {
				return nil, err
			}
			out = append(out, ops...)
		}
		return out, nil
	default:
		var out []payload.AttrOperand
		for _, operand := range f.Items {
			ops, err := flattenAttrExpr(operand, negated)
			if err != nil {
				return nil, err
			}
			out = append(out, ops...)
		}
		return out, nil
	}
}

func buildBounds(flavor ast.Flavor) builderFunc {
	return func(tail []*Form) (*ast.Node, error) {
		if err := need(tail, 2, flavor.String()); err != nil {
			return nil, err
		}
		n := ast.NewNode(flavor, 0)
		n.Data = &payload.Bounds{ChildStr: tail[0].Atom, ParentStr: tail[1].Atom}
		return n, nil
	}
}

func buildTypepermissive(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 1, "typepermissive"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Typepermissive, 0)
	n.Data = &payload.Typepermissive{TypeStr: tail[0].Atom}
	return n, nil
}

func buildTypeRule(kind payload.AvruleKind) builderFunc {
	return func(tail []*Form) (*ast.Node, error) {
		if err := need(tail, 4, "type_rule"); err != nil {
			return nil, err
		}
		n := ast.NewNode(ast.TypeRule, 0)
		n.Data = &payload.TypeRule{
			Kind: kind, SourceStr: tail[0].Atom, TargetStr: tail[1].Atom,
			ClassStr: tail[2].Atom, ResultStr: tail[3].Atom,
		}
		return n, nil
	}
}

func buildRoletype(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 2, "roletype"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Roletype, 0)
	n.Data = &payload.Roletype{RoleStr: tail[0].Atom, TypeStr: tail[1].Atom}
	return n, nil
}

func buildRoletransition(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 4, "roletransition"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Roletransition, 0)
	n.Data = &payload.Roletransition{
		SourceStr: tail[0].Atom, TargetStr: tail[1].Atom, ClassStr: tail[2].Atom, NewRoleStr: tail[3].Atom,
	}
	return n, nil
}

func buildRoleallow(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 2, "roleallow"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Roleallow, 0)
	n.Data = &payload.Roleallow{SourceStr: tail[0].Atom, NewRoleStr: tail[1].Atom}
	return n, nil
}

func buildUserrole(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 2, "userrole"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Userrole, 0)
	n.Data = &payload.Userrole{UserStr: tail[0].Atom, RoleStr: tail[1].Atom}
	return n, nil
}

func buildUserlevel(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 2, "userlevel"); err != nil {
		return nil, err
	}
	lvl, err := parseLevelForm(tail[1])
	if err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Userlevel, 0)
	n.Data = &payload.Userlevel{UserStr: tail[0].Atom, Level: lvl}
	return n, nil
}

func buildUserrange(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 2, "userrange"); err != nil {
		return nil, err
	}
	rng, err := parseLevelRangeForm(tail[1])
	if err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Userrange, 0)
	n.Data = &payload.Userrange{UserStr: tail[0].Atom, Range: rng}
	return n, nil
}

func buildUserprefix(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 2, "userprefix"); err != nil {
		return nil, err
	}
	// userprefix only ever feeds the selinuxuser-generation tooling this
	// repo's scope excludes; kept structurally valid so a policy that
	// declares one still parses. The resolver only checks that the named
	// user exists, and nothing lowers it.
	n := ast.NewNode(ast.Userprefix, 0)
	n.Data = &payload.Bounds{ChildStr: tail[0].Atom, ParentStr: tail[1].Atom}
	return n, nil
}

// buildSelinuxuser handles (selinuxuser LINUXNAME SELINUXUSER LEVELRANGE?)
// and (selinuxuserdefault SELINUXUSER LEVELRANGE?) -- the default form
// names no Linux user, it's the fallback applied when no selinuxuser entry
// matches.
func buildSelinuxuser(isDefault bool) builderFunc {
	return func(tail []*Form) (*ast.Node, error) {
		data := &payload.Selinuxuser{IsDefault: isDefault}
		var rangeForm *Form
		if isDefault {
			if err := need(tail, 1, "selinuxuserdefault"); err != nil {
				return nil, err
			}
			data.UserStr = tail[0].Atom
			if len(tail) > 1 {
				rangeForm = tail[1]
			}
		} else {
			if err := need(tail, 2, "selinuxuser"); err != nil {
				return nil, err
			}
			data.Name = tail[0].Atom
			data.UserStr = tail[1].Atom
			if len(tail) > 2 {
				rangeForm = tail[2]
			}
		}
		if rangeForm != nil {
			rng, err := parseLevelRangeForm(rangeForm)
			if err != nil {
				return nil, err
			}
			data.Range = rng
		}
		flavor := ast.Selinuxuser
		if isDefault {
			flavor = ast.Selinuxuserdefault
		}
		n := ast.NewNode(flavor, 0)
		n.Data = data
		return n, nil
	}
}

func buildClass(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 1, "class"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Class, 0)
	n.Data = tail[0].Atom
	if len(tail) > 1 {
		for _, permAtom := range atomsOf(tail[1]) {
			perm := ast.NewNode(ast.Perm, 0)
			perm.Data = permAtom
			n.AddChild(perm)
		}
	}
	return n, nil
}

func buildCommon(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 1, "common"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Common, 0)
	n.Data = tail[0].Atom
	if len(tail) > 1 {
		for _, permAtom := range atomsOf(tail[1]) {
			perm := ast.NewNode(ast.Perm, 0)
			perm.Data = permAtom
			n.AddChild(perm)
		}
	}
	return n, nil
}

func buildClasscommon(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 2, "classcommon"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Classcommon, 0)
	n.Data = &payload.Classcommon{ClassStr: tail[0].Atom, CommonStr: tail[1].Atom}
	return n, nil
}

// buildClasspermissionDecl handles the bare (classpermission NAME)
// declaration: the node built here owns the name with no entries. A
// classpermissionset naming the same NAME is a second declaration of it
// and fails resolution with DuplicateDeclaration, so a name uses one form
// only.
func buildClasspermissionDecl(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 1, "classpermission"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Classpermset, 0)
	n.Data = &payload.Classpermset{Name: tail[0].Atom}
	return n, nil
}

// buildClasspermissionset handles (classpermissionset NAME (CLASS
// (perm...)) ...), combining declaration and fill into a single node; NAME
// must not also be declared by a bare classpermission.
func buildClasspermissionset(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 1, "classpermissionset"); err != nil {
		return nil, err
	}
	entries, err := parseClasspermsEntries(tail[1:])
	if err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Classpermset, 0)
	n.Data = &payload.Classpermset{Name: tail[0].Atom, Entries: entries}
	return n, nil
}

func parseClasspermsEntries(tail []*Form) ([]*payload.Classperms, error) {
	var entries []*payload.Classperms
	for _, f := range tail {
		if !f.List || len(f.Items) == 0 {
			return nil, errors.New("malformed classperms entry")
		}
		if len(f.Items) == 1 {
			entries = append(entries, &payload.Classperms{ClasspermsetStr: f.Items[0].Atom})
			continue
		}
		entries = append(entries, &payload.Classperms{ClassStr: f.Items[0].Atom, PermStrs: atomsOf(f.Items[1])})
	}
	return entries, nil
}

// buildClassmap handles (classmap MAPCLASS (mapperm1 mapperm2 ...)),
// mirroring the (class NAME (perm...)) shape.
func buildClassmap(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 1, "classmap"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.MapClass, 0)
	n.Data = tail[0].Atom
	if len(tail) > 1 {
		for _, permAtom := range atomsOf(tail[1]) {
			perm := ast.NewNode(ast.MapPerm, 0)
			perm.Data = permAtom
			n.AddChild(perm)
		}
	}
	return n, nil
}

func buildClassmapping(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 2, "classmapping"); err != nil {
		return nil, err
	}
	entries, err := parseClasspermsEntries(tail[2:])
	if err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Classmapping, 0)
	n.Data = &payload.Classmapping{MapClassStr: tail[0].Atom, MapPermStr: tail[1].Atom, Entries: entries}
	return n, nil
}

func buildSidcontext(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 2, "sidcontext"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Sidcontext, 0)
	data := &payload.Sidcontext{SidStr: tail[0].Atom}
	if ctx, ref, err := parseContextForm(tail[1]); err != nil {
		return nil, err
	} else if ctx != nil {
		data.Context = ctx
	} else {
		data.ContextStr = ref
	}
	n.Data = data
	return n, nil
}

func buildContextDecl(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 4, "context"); err != nil {
		return nil, err
	}
	ctx, err := parseContextFields(tail[0].Atom, tail[1].Atom, tail[2].Atom, tail[3])
	if err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Context, 0)
	n.Data = ctx
	return n, nil
}

// parseContextForm parses either an inline (user role type range) literal
// or a bare name referencing a previously-declared context.
func parseContextForm(f *Form) (ctx *payload.Context, ref string, err error) {
	if !f.List {
		return nil, f.Atom, nil
	}
	if len(f.Items) < 3 {
		return nil, "", errors.New("context literal: expected at least (user role type)")
	}
	var rangeForm *Form
	if len(f.Items) > 3 {
		rangeForm = f.Items[3]
	}
	ctx, err = parseContextFields(f.Items[0].Atom, f.Items[1].Atom, f.Items[2].Atom, rangeForm)
	return ctx, "", err
}

func parseContextFields(user, role, typ string, rangeForm *Form) (*payload.Context, error) {
	ctx := &payload.Context{UserStr: user, RoleStr: role, TypeStr: typ}
	if rangeForm == nil {
		return ctx, nil
	}
	if !rangeForm.List {
		ctx.RangeStr = rangeForm.Atom
		return ctx, nil
	}
	rng, err := parseLevelRangeForm(rangeForm)
	if err != nil {
		return nil, err
	}
	ctx.Range = rng
	return ctx, nil
}

// parseLevelForm parses an inline (sensitivity (cat...)) literal. For a
// bare name it returns nil; parseLevelRangeForm then keeps the name in
// LowStr/HighStr, while buildUserlevel has no field for it, so a bare
// level name in userlevel is dropped.
func parseLevelForm(f *Form) (*payload.Level, error) {
	if !f.List {
		return nil, nil
	}
	if len(f.Items) == 0 {
		return nil, errors.New("level literal: empty")
	}
	lvl := &payload.Level{SensStr: f.Items[0].Atom}
	if len(f.Items) > 1 {
		cats, err := parseCatsetForm(f.Items[1])
		if err != nil {
			return nil, err
		}
		lvl.Cats = cats
	}
	return lvl, nil
}

func parseCatsetForm(f *Form) (*payload.Catset, error) {
	cats := &payload.Catset{}
	for _, item := range f.Items {
		if item.List {
			if len(item.Items) != 2 {
				return nil, errors.New("category range literal: expected (low high)")
			}
			cats.CatRanges = append(cats.CatRanges, payload.CatRangeLit{LowStr: item.Items[0].Atom, HighStr: item.Items[1].Atom})
			continue
		}
		cats.CatStrs = append(cats.CatStrs, item.Atom)
	}
	return cats, nil
}

// parseLevelRangeForm parses an inline (low high) pair, each side either a
// literal level or a bare level name. A bare name in place of the pair is
// stored as both LowStr and HighStr, so it resolves as one level name used
// for both ends; it is not looked up as a declared levelrange.
func parseLevelRangeForm(f *Form) (*payload.LevelRange, error) {
	if !f.List {
		return &payload.LevelRange{LowStr: f.Atom, HighStr: f.Atom}, nil
	}
	if len(f.Items) != 2 {
		return nil, errors.New("levelrange literal: expected (low high)")
	}
	rng := &payload.LevelRange{}
	if low, err := parseLevelForm(f.Items[0]); err != nil {
		return nil, err
	} else if low != nil {
		rng.Low = low
	} else {
		rng.LowStr = f.Items[0].Atom
	}
	if high, err := parseLevelForm(f.Items[1]); err != nil {
		return nil, err
	} else if high != nil {
		rng.High = high
	} else {
		rng.HighStr = f.Items[1].Atom
	}
	return rng, nil
}

func buildOrderHint(flavor ast.Flavor) builderFunc {
	return func(tail []*Form) (*ast.Node, error) {
		if err := need(tail, 1, flavor.String()); err != nil {
			return nil, err
		}
		n := ast.NewNode(flavor, 0)
		n.Data = &payload.OrderHint{Names: atomsOf(tail[0])}
		return n, nil
	}
}

func buildCatrange(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 3, "categoryrange"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Catrange, 0)
	n.Data = &payload.Catrange{Name: tail[0].Atom, LowStr: tail[1].Atom, HighStr: tail[2].Atom}
	return n, nil
}

func buildCatsetDecl(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 2, "categoryset"); err != nil {
		return nil, err
	}
	cats, err := parseCatsetForm(tail[1])
	if err != nil {
		return nil, err
	}
	cats.Name = tail[0].Atom
	n := ast.NewNode(ast.Catset, 0)
	n.Data = cats
	return n, nil
}

func buildLevelDecl(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 2, "level"); err != nil {
		return nil, err
	}
	if !tail[1].List {
		return nil, errors.New("level: expected (sensitivity (cat...))")
	}
	lvl, err := parseLevelForm(tail[1])
	if err != nil {
		return nil, err
	}
	lvl.Name = tail[0].Atom
	n := ast.NewNode(ast.Level, 0)
	n.Data = lvl
	return n, nil
}

func buildLevelrangeDecl(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 2, "levelrange"); err != nil {
		return nil, err
	}
	rng, err := parseLevelRangeForm(tail[1])
	if err != nil {
		return nil, err
	}
	rng.Name = tail[0].Atom
	n := ast.NewNode(ast.Levelrange, 0)
	n.Data = rng
	return n, nil
}

// buildAvrule handles allow/auditallow/dontaudit/neverallow: (KEYWORD
// SOURCE TARGET (CLASS (perm...))) or (KEYWORD SOURCE TARGET CLASS) when
// CLASS names a classpermset.
func buildAvrule(kind payload.AvruleKind) builderFunc {
	return func(tail []*Form) (*ast.Node, error) {
		if err := need(tail, 3, "avrule"); err != nil {
			return nil, err
		}
		data := &payload.Avrule{Kind: kind, SourceStr: tail[0].Atom, TargetStr: tail[1].Atom}
		classForm := tail[2]
		if !classForm.List {
			data.ClassStr = classForm.Atom
		} else {
			if len(classForm.Items) != 2 {
				return nil, errors.New("avrule: expected (class (perm...))")
			}
			data.ClassStr = classForm.Items[0].Atom
			data.PermStrs = atomsOf(classForm.Items[1])
		}
		n := ast.NewNode(ast.Avrule, 0)
		n.Data = data
		return n, nil
	}
}

func buildNametypetransition(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 5, "nametypetransition"); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Nametypetransition, 0)
	n.Data = &payload.Nametypetransition{
		SourceStr: tail[0].Atom, TargetStr: tail[1].Atom, ClassStr: tail[2].Atom,
		ObjName: unquote(tail[3].Atom), ResultStr: tail[4].Atom,
	}
	return n, nil
}

func buildRangetransition(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 4, "rangetransition"); err != nil {
		return nil, err
	}
	rng, err := parseLevelRangeForm(tail[3])
	if err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Rangetransition, 0)
	n.Data = &payload.Rangetransition{SourceStr: tail[0].Atom, TargetStr: tail[1].Atom, ClassStr: tail[2].Atom, Range: rng}
	return n, nil
}

// buildBoolValue handles boolean/tunable: (KEYWORD NAME true|false).
func buildBoolValue(flavor ast.Flavor) builderFunc {
	return func(tail []*Form) (*ast.Node, error) {
		if err := need(tail, 2, flavor.String()); err != nil {
			return nil, err
		}
		value, err := strconv.ParseBool(tail[1].Atom)
		if err != nil {
			return nil, errors.Errorf("%s %q: invalid truth value %q", flavor, tail[0].Atom, tail[1].Atom)
		}
		n := ast.NewNode(flavor, 0)
		n.Data = &payload.BoolValue{Name: tail[0].Atom, Value: value}
		return n, nil
	}
}

// buildCondif handles booleanif/tunableif: (KEYWORD EXPR (true BODY...)
// (false BODY...)), EXPR a postfix token stream the same way constrain
// expressions are a prefix one -- see pkg/resolver/boolexpr.go.
func buildCondif(flavor ast.Flavor) builderFunc {
	return func(tail []*Form) (*ast.Node, error) {
		if err := need(tail, 1, flavor.String()); err != nil {
			return nil, err
		}
		tokens := flattenCondExpr(tail[0])
		n := ast.NewNode(flavor, 0)
		n.Data = &payload.CondIf{ExprTokens: tokens}
		for _, branchForm := range tail[1:] {
			if !branchForm.List || len(branchForm.Items) == 0 {
				return nil, errors.New("booleanif/tunableif: malformed branch")
			}
			var branchFlavor ast.Flavor
			switch branchForm.Items[0].Atom {
			case "true":
				branchFlavor = ast.Condtrue
			case "false":
				branchFlavor = ast.Condfalse
			default:
				return nil, errors.Errorf("booleanif/tunableif: unexpected branch %q", branchForm.Items[0].Atom)
			}
			branch := ast.NewNode(branchFlavor, 0)
			if err := buildBody(branch, branchForm.Items[1:]); err != nil {
				return nil, err
			}
			n.AddChild(branch)
		}
		return n, nil
	}
}

// flattenCondExpr converts the natural prefix-written boolean expression
// (and A B), (not A), a bare name, ... into the flat postfix token stream
// evalBoolExpr and the lowerer's CondExpr both expect.
func flattenCondExpr(f *Form) []string {
	if !f.List {
		return []string{f.Atom}
	}
	if len(f.Items) == 0 {
		return nil
	}
	head := f.Items[0].Atom
	switch head {
	case "not":
		return append(flattenCondExpr(f.Items[1]), "not")
	case "and", "or", "xor", "eq", "neq":
		out := flattenCondExpr(f.Items[1])
		out = append(out, flattenCondExpr(f.Items[2])...)
		return append(out, head)
	default:
		var out []string
		for _, item := range f.Items {
			out = append(out, flattenCondExpr(item)...)
		}
		return out
	}
}

// buildConstrain handles constrain/mlsconstrain: (KEYWORD (class...) EXPR),
// EXPR kept as the flat prefix token stream pkg/pdb's hand-rolled
// recursive-descent parser consumes.
func buildConstrain(flavor ast.Flavor) builderFunc {
	return func(tail []*Form) (*ast.Node, error) {
		if err := need(tail, 2, flavor.String()); err != nil {
			return nil, err
		}
		n := ast.NewNode(flavor, 0)
		n.Data = &payload.Constrain{ClassStrs: atomsOf(tail[0]), ExprStrs: flattenConstraintExpr(tail[1])}
		return n, nil
	}
}

func buildValidatetrans(flavor ast.Flavor) builderFunc {
	return func(tail []*Form) (*ast.Node, error) {
		if err := need(tail, 2, flavor.String()); err != nil {
			return nil, err
		}
		n := ast.NewNode(flavor, 0)
		n.Data = &payload.Constrain{ClassStrs: atomsOf(tail[0]), ExprStrs: flattenConstraintExpr(tail[1])}
		return n, nil
	}
}

// flattenConstraintExpr flattens a naturally nested constraint expression
// form into the flat prefix-notation token list pkg/pdb/constrain.go's
// parseConstraintExpr consumes -- the inverse shape of flattenCondExpr,
// since constrain expressions are written and stored prefix while
// boolean/tunable ones are stored postfix.
func flattenConstraintExpr(f *Form) []string {
	if !f.List {
		return []string{f.Atom}
	}
	var out []string
	for _, item := range f.Items {
		out = append(out, flattenConstraintExpr(item)...)
	}
	return out
}

func buildPortcon(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 3, "portcon"); err != nil {
		return nil, err
	}
	low, high, err := parsePortRange(tail[1])
	if err != nil {
		return nil, err
	}
	data := &payload.Portcon{Proto: tail[0].Atom, Low: low, High: high}
	if err := fillContextRef(&data.ContextStr, &data.Context, tail[2]); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Portcon, 0)
	n.Data = data
	return n, nil
}

func parsePortRange(f *Form) (uint32, uint32, error) {
	if !f.List {
		v, err := strconv.ParseUint(f.Atom, 10, 32)
		return uint32(v), uint32(v), err
	}
	if len(f.Items) != 2 {
		return 0, 0, errors.New("portcon: expected a port or (low high)")
	}
	low, err := strconv.ParseUint(f.Items[0].Atom, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	high, err := strconv.ParseUint(f.Items[1].Atom, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	return uint32(low), uint32(high), nil
}

func fillContextRef(str *string, ctxOut **payload.Context, f *Form) error {
	ctx, ref, err := parseContextForm(f)
	if err != nil {
		return err
	}
	if ctx != nil {
		*ctxOut = ctx
	} else {
		*str = ref
	}
	return nil
}

func buildNodecon(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 3, "nodecon"); err != nil {
		return nil, err
	}
	data := &payload.Nodecon{AddrStr: tail[0].Atom, MaskStr: tail[1].Atom}
	if err := fillContextRef(&data.ContextStr, &data.Context, tail[2]); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Nodecon, 0)
	n.Data = data
	return n, nil
}

func buildNetifcon(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 3, "netifcon"); err != nil {
		return nil, err
	}
	data := &payload.Netifcon{Interface: tail[0].Atom}
	if err := fillContextRef(&data.IfContextStr, &data.IfContext, tail[1]); err != nil {
		return nil, err
	}
	if err := fillContextRef(&data.PacketContextStr, &data.PacketContext, tail[2]); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Netifcon, 0)
	n.Data = data
	return n, nil
}

func buildGenfscon(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 3, "genfscon"); err != nil {
		return nil, err
	}
	data := &payload.Genfscon{FsName: tail[0].Atom, Path: unquote(tail[1].Atom)}
	if err := fillContextRef(&data.ContextStr, &data.Context, tail[2]); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Genfscon, 0)
	n.Data = data
	return n, nil
}

func buildFsuse(tail []*Form) (*ast.Node, error) {
	if err := need(tail, 3, "fsuse"); err != nil {
		return nil, err
	}
	data := &payload.Fsuse{Kind: tail[0].Atom, FsName: tail[1].Atom}
	if err := fillContextRef(&data.ContextStr, &data.Context, tail[2]); err != nil {
		return nil, err
	}
	n := ast.NewNode(ast.Fsuse, 0)
	n.Data = data
	return n, nil
}

func buildDevicecon(flavor ast.Flavor) builderFunc {
	return func(tail []*Form) (*ast.Node, error) {
		if err := need(tail, 2, flavor.String()); err != nil {
			return nil, err
		}
		low, high, err := parsePortRange(tail[0])
		if err != nil {
			return nil, err
		}
		data := &payload.DeviceCon{Low: uint64(low), High: uint64(high)}
		if err := fillContextRef(&data.ContextStr, &data.Context, tail[1]); err != nil {
			return nil, err
		}
		n := ast.NewNode(flavor, 0)
		n.Data = data
		return n, nil
	}
}
