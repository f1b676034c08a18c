package pdb

import (
	"fmt"
	"io"
	"sort"
)

var avtabKindNames = map[AvtabKind]string{
	Allow: "allow", AuditAllow: "auditallow", DontAudit: "dontaudit", Neverallow: "neverallow",
	TypeTransition: "type_transition", TypeChange: "type_change", TypeMember: "type_member",
}

var ocontextKindNames = map[OcontextKind]string{
	OPortcon: "portcon", ONodecon: "nodecon", ONetifcon: "netifcon", OGenfscon: "genfscon",
	OFsuse: "fsuse", OPirqcon: "pirqcon", OIomemcon: "iomemcon", OIoportcon: "ioportcon",
	OPcidevicecon: "pcidevicecon", OSidcontext: "sidcontext",
}

// Dump writes a human-readable rendering of the lowered policy database:
// every avtab entry, conditional, transition/allow list and ocontext, one
// per line, grouped by section. It is a debugging aid, not a kernel binary
// policy serializer; this repo's scope stops at the PDB.
func (p *PDB) Dump(w io.Writer) error {
	fmt.Fprintln(w, "# avtab")
	for _, node := range p.Avtab.Nodes() {
		if err := dumpAvtabNode(w, node); err != nil {
			return err
		}
	}

	if len(p.Cond) > 0 {
		fmt.Fprintln(w, "# conditionals")
		for i, cond := range p.Cond {
			fmt.Fprintf(w, "if[%d] %v\n", i, cond.Expr.Tokens)
			fmt.Fprintln(w, "  true:")
			for _, node := range cond.TrueList.Nodes() {
				fmt.Fprint(w, "  ")
				if err := dumpAvtabNode(w, node); err != nil {
					return err
				}
			}
			fmt.Fprintln(w, "  false:")
			for _, node := range cond.FalseList.Nodes() {
				fmt.Fprint(w, "  ")
				if err := dumpAvtabNode(w, node); err != nil {
					return err
				}
			}
		}
	}

	if len(p.RoleTransitions) > 0 {
		fmt.Fprintln(w, "# role_transitions")
		for _, rt := range p.RoleTransitions {
			fmt.Fprintf(w, "role_transition %d %d:%d %d\n", rt.Source, rt.Target, rt.Class, rt.NewRole)
		}
	}
	if len(p.RoleAllows) > 0 {
		fmt.Fprintln(w, "# role_allows")
		for _, ra := range p.RoleAllows {
			fmt.Fprintf(w, "allow %d %d\n", ra.Source, ra.NewRole)
		}
	}
	if len(p.NameTransitions) > 0 {
		fmt.Fprintln(w, "# name_transitions")
		for _, nt := range p.NameTransitions {
			fmt.Fprintf(w, "type_transition %d %d:%d %q %d\n", nt.Source, nt.Target, nt.Class, nt.ObjName, nt.Result)
		}
	}
	if len(p.RangeTransitions) > 0 {
		fmt.Fprintln(w, "# range_transitions")
		for _, rt := range p.RangeTransitions {
			fmt.Fprintf(w, "range_transition %d %d:%d %s\n", rt.Source, rt.Target, rt.Class, dumpRange(rt.Range))
		}
	}

	if len(p.Constraints) > 0 {
		fmt.Fprintln(w, "# constraints")
		classes := make([]uint32, 0, len(p.Constraints))
		for class := range p.Constraints {
			classes = append(classes, class)
		}
		sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
		for _, class := range classes {
			for _, entry := range p.Constraints[class] {
				fmt.Fprintf(w, "class %d kind=%d\n", class, entry.Kind)
			}
		}
	}

	for kind, entries := range p.Ocontexts {
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(w, "# ocontext %s\n", ocontextKindNames[kind])
		for _, e := range entries {
			fmt.Fprintln(w, dumpOcontextEntry(e))
		}
	}

	return nil
}

func dumpAvtabNode(w io.Writer, node *AvtabNode) error {
	kind := avtabKindNames[node.Key.Kind]
	if node.Perms != nil {
		_, err := fmt.Fprintf(w, "%s %d %d:%d %s\n", kind, node.Key.Source, node.Key.Target, node.Key.Class, node.Perms)
		return err
	}
	_, err := fmt.Fprintf(w, "%s %d %d:%d %d\n", kind, node.Key.Source, node.Key.Target, node.Key.Class, node.Result)
	return err
}

func dumpRange(rng *LoweredRange) string {
	if rng == nil {
		return "-"
	}
	return fmt.Sprintf("%s-%s", dumpLevel(rng.Low), dumpLevel(rng.High))
}

func dumpLevel(lvl *LoweredLevel) string {
	if lvl == nil {
		return "-"
	}
	return fmt.Sprintf("%d:%v", lvl.Sens, lvl.Cats)
}

func dumpOcontextEntry(e *OcontextEntry) string {
	ctx := "-"
	if e.Context != nil {
		ctx = fmt.Sprintf("%d:%d:%d", e.Context.User, e.Context.Role, e.Context.Type)
	}
	switch e.Kind {
	case OPortcon:
		return fmt.Sprintf("%s %d-%d %s", e.Proto, e.LowPort, e.HighPort, ctx)
	case ONodecon:
		return fmt.Sprintf("%s %s %s", e.Addr, e.Mask, ctx)
	case ONetifcon:
		return fmt.Sprintf("%s %s", e.Interface, ctx)
	case OGenfscon:
		return fmt.Sprintf("%s %s %s %s", e.FsName, e.Path, e.FileType, ctx)
	case OFsuse:
		return fmt.Sprintf("%s %s %s", e.FileType, e.FsName, ctx)
	case OPirqcon, OIomemcon, OIoportcon, OPcidevicecon:
		return fmt.Sprintf("%d-%d %s", e.DeviceLow, e.DeviceHigh, ctx)
	default:
		return ctx
	}
}
