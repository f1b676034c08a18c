package ast

// State is a datum's lifecycle, driven by the optional-disable cascade: a
// name miss inside an optional moves it ENABLED -> DISABLING, and a
// separate sweep after the pass (the resolver's cascadeDisabled) moves it
// DISABLING -> DISABLED.
type State int

const (
	Enabled State = iota
	Disabling
	Disabled
)

func (s State) String() string {
	switch s {
	case Enabled:
		return "enabled"
	case Disabling:
		return "disabling"
	case Disabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Datum is the identity record owned by every declarative Node. Symbol
// tables and every other AST reference borrow it; only the primary
// declaration site (Nodes[0]) owns it.
type Datum struct {
	Name   string
	Flavor Flavor

	// Nodes is the back-reference list: every AST node at which this datum
	// appears, declaring or referencing. Nodes[0] is always the primary
	// declaration site.
	Nodes []*Node

	State State

	// Value is the PDB-assigned dense integer id, populated during lowering
	// (pass 1 for primary declarations, pass 2 for aliases sharing a value).
	// Zero means "unassigned".
	Value uint32

	// Primary marks whether this particular Datum occupies a real (non-alias)
	// slot; aliases share another datum's Value but carry Primary=false so
	// PDB pass 1 gives them no value of their own.
	Primary bool
}

// NewDatum creates a fresh, ENABLED datum for the given declaring node and
// registers the node as its primary (first) back-reference.
func NewDatum(name string, flavor Flavor, declSite *Node) *Datum {
	d := &Datum{Name: name, Flavor: flavor, Nodes: []*Node{declSite}, Primary: true}
	declSite.Datum = d
	return d
}

// AddReference appends a non-primary back-reference to a node that refers
// to (without declaring) this datum.
func (d *Datum) AddReference(node *Node) {
	d.Nodes = append(d.Nodes, node)
}

// PrimaryNode returns the datum's primary declaration site.
func (d *Datum) PrimaryNode() *Node {
	if len(d.Nodes) == 0 {
		return nil
	}
	return d.Nodes[0]
}
