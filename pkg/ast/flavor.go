// Package ast defines the tagged-variant parse/resolved tree shared by the
// resolver and the PDB lowerer: a single Node type discriminated by Flavor,
// plus the Datum identity record every declarative Node owns.
package ast

// Flavor is the closed tag set carried by every Node. The ordering and the
// names mirror the original compiler's flavor enumeration: flavors below
// MinDeclarative are structural (root, lists, rule statements, operators);
// flavors at or above MinDeclarative own a Datum (see Node.Datum).
type Flavor int

const (
	None Flavor = iota
	Root
	DB
	AstNode
	ParseNode
	StringLeaf
	List
	ListItem
	IntLeaf
	Files

	Avrule
	Blockinherit
	Blockabstract
	In
	Filecon
	Portcon
	Nodecon
	Genfscon
	Netifcon
	Pirqcon
	Iomemcon
	Ioportcon
	Pcidevicecon
	Fsuse
	Constrain
	Mlsconstrain
	Validatetrans
	Mlsvalidatetrans
	Classmapping
	Classperms
	MapClassperms
	Userrole
	Userlevel
	Userrange
	Userbounds
	Userprefix
	Selinuxuser
	Selinuxuserdefault
	Typeattributeset
	TypeRule
	Typebounds
	Nametypetransition
	Rangetransition
	Typepermissive
	Roletransition
	Roleallow
	Roletype
	Roleattributeset
	Rolebounds
	Catorder
	Dominance
	Senscat
	Classcommon
	Sidcontext
	Call
	Args
	Booleanif
	Tunableif
	Condblock
	Condtrue
	Condfalse
	Tunableifdef
	Tunableifndef

	Op
	Star
	And
	Or
	Xor
	Not
	Eq
	Neq
	Param
	ConsDom
	ConsDomby
	ConsIncomp
	ConsOperand
	ConsU1
	ConsU2
	ConsU3
	ConsT1
	ConsT2
	ConsT3
	ConsR1
	ConsR2
	ConsR3
	ConsL1
	ConsL2
	ConsH1
	ConsH2

	// MinDeclarative is the threshold: every flavor at or above it owns a
	// Datum and is indexed by a symtab.Kind.
	minDeclarativeMarker
)

// MinDeclarative is exported separately so declarative flavors can be
// declared as a contiguous block starting exactly here, matching the
// original's CIL_MIN_DECLARATIVE convention (a flavor >= MinDeclarative is
// always declarative).
const MinDeclarative = minDeclarativeMarker

const (
	Block Flavor = MinDeclarative + iota
	Optional
	Perm
	Common
	Class
	MapPerm
	MapClass
	Classpermset
	Sid
	User
	Role
	Roleattribute
	Type
	Typeattribute
	Typealias
	Name
	Bool
	Tunable
	Sens
	Sensalias
	Cat
	Catalias
	Catrange
	Catset
	Level
	Levelrange
	Context
	IPAddr
	Macro
	Policycap
)

// IsDeclarative reports whether a node of this flavor owns a Datum.
func (f Flavor) IsDeclarative() bool { return f >= MinDeclarative }

var names = map[Flavor]string{
	None: "none", Root: "root", DB: "db", AstNode: "ast_node", ParseNode: "parse_node",
	StringLeaf: "string", List: "list", ListItem: "list_item", IntLeaf: "int", Files: "files",
	Avrule: "avrule", Blockinherit: "blockinherit", Blockabstract: "blockabstract", In: "in",
	Filecon: "filecon", Portcon: "portcon", Nodecon: "nodecon", Genfscon: "genfscon",
	Netifcon: "netifcon", Pirqcon: "pirqcon", Iomemcon: "iomemcon", Ioportcon: "ioportcon",
	Pcidevicecon: "pcidevicecon", Fsuse: "fsuse", Constrain: "constrain", Mlsconstrain: "mlsconstrain",
	Validatetrans: "validatetrans", Mlsvalidatetrans: "mlsvalidatetrans", Classmapping: "classmapping",
	Classperms: "classperms", MapClassperms: "map_classperms", Userrole: "userrole",
	Userlevel: "userlevel", Userrange: "userrange", Userbounds: "userbounds", Userprefix: "userprefix",
	Selinuxuser: "selinuxuser", Selinuxuserdefault: "selinuxuserdefault",
	Typeattributeset: "typeattributeset", TypeRule: "type_rule", Typebounds: "typebounds",
	Nametypetransition: "nametypetransition", Rangetransition: "rangetransition",
	Typepermissive: "typepermissive", Roletransition: "roletransition", Roleallow: "roleallow",
	Roletype: "roletype", Roleattributeset: "roleattributeset", Rolebounds: "rolebounds",
	Catorder: "catorder", Dominance: "dominance", Senscat: "senscat", Classcommon: "classcommon",
	Sidcontext: "sidcontext", Call: "call", Args: "args", Booleanif: "booleanif",
	Tunableif: "tunableif", Condblock: "condblock", Condtrue: "condtrue", Condfalse: "condfalse",
	Tunableifdef: "tunableifdef", Tunableifndef: "tunableifndef",
	Op: "op", Star: "star", And: "and", Or: "or", Xor: "xor", Not: "not", Eq: "eq", Neq: "neq",
	Param: "param", ConsDom: "cons_dom", ConsDomby: "cons_domby", ConsIncomp: "cons_incomp",
	ConsOperand: "cons_operand",
	ConsU1:      "u1", ConsU2: "u2", ConsU3: "u3", ConsT1: "t1", ConsT2: "t2", ConsT3: "t3",
	ConsR1: "r1", ConsR2: "r2", ConsR3: "r3", ConsL1: "l1", ConsL2: "l2", ConsH1: "h1", ConsH2: "h2",
	Block: "block", Optional: "optional", Perm: "perm", Common: "common", Class: "class",
	MapPerm: "map_perm", MapClass: "map_class", Classpermset: "classpermset", Sid: "sid",
	User: "user", Role: "role", Roleattribute: "roleattribute", Type: "type",
	Typeattribute: "typeattribute", Typealias: "typealias", Name: "name", Bool: "boolean",
	Tunable: "tunable", Sens: "sensitivity", Sensalias: "sensitivityalias", Cat: "category",
	Catalias: "categoryalias", Catrange: "categoryrange", Catset: "categoryset", Level: "level",
	Levelrange: "levelrange", Context: "context", IPAddr: "ipaddr", Macro: "macro",
	Policycap: "policycap",
}

func (f Flavor) String() string {
	if n, ok := names[f]; ok {
		return n
	}
	return "unknown"
}
