package pdb

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/payload"
)

// collectOcontexts walks the tree once, bucketing every ocontext-bearing
// declaration by flavor and sorting each bucket (portcons lexicographically
// by (low, high); genfscons grouped by filesystem then by path length
// descending; everything else in declaration order), then appends the
// sorted node lists to the db's lists. Each call walks the tree again.
func (l *Lowerer) collectOcontexts() error {
	err := ast.Walk(l.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		switch n.Flavor {
		case ast.Portcon:
			l.db.Portcons = append(l.db.Portcons, n)
		case ast.Nodecon:
			l.db.Nodecons = append(l.db.Nodecons, n)
		case ast.Netifcon:
			l.db.Netifcons = append(l.db.Netifcons, n)
		case ast.Genfscon:
			l.db.Genfscons = append(l.db.Genfscons, n)
		case ast.Fsuse:
			l.db.Fsuses = append(l.db.Fsuses, n)
		case ast.Pirqcon:
			l.db.Pirqcons = append(l.db.Pirqcons, n)
		case ast.Iomemcon:
			l.db.Iomemcons = append(l.db.Iomemcons, n)
		case ast.Ioportcon:
			l.db.Ioportcons = append(l.db.Ioportcons, n)
		case ast.Pcidevicecon:
			l.db.Pcidevicecons = append(l.db.Pcidevicecons, n)
		case ast.Sidcontext:
			l.db.Sidcontexts = append(l.db.Sidcontexts, n)
		}
		return ast.Continue, nil
	}, nil, nil, nil)
	if err != nil {
		return err
	}

	sort.SliceStable(l.db.Portcons, func(i, j int) bool {
		a := l.db.Portcons[i].Data.(*payload.Portcon)
		b := l.db.Portcons[j].Data.(*payload.Portcon)
		if a.Low != b.Low {
			return a.Low < b.Low
		}
		return a.High < b.High
	})
	sort.SliceStable(l.db.Genfscons, func(i, j int) bool {
		a := l.db.Genfscons[i].Data.(*payload.Genfscon)
		b := l.db.Genfscons[j].Data.(*payload.Genfscon)
		if a.FsName != b.FsName {
			return a.FsName < b.FsName
		}
		return len(a.Path) > len(b.Path)
	})
	return nil
}

// lowerOcontexts turns every collected ocontext node into a PDB
// OcontextEntry, in the order collectOcontexts established.
func (l *Lowerer) lowerOcontexts() error {
	for _, n := range l.db.Portcons {
		data := n.Data.(*payload.Portcon)
		ctx, err := l.lowerContextRef(data.Context)
		if err != nil {
			return errors.Wrapf(err, "portcon line %d", n.Line)
		}
		l.pdb.Ocontexts[OPortcon] = append(l.pdb.Ocontexts[OPortcon], &OcontextEntry{
			Kind: OPortcon, Context: ctx, Proto: data.Proto, LowPort: data.Low, HighPort: data.High,
		})
	}
	for _, n := range l.db.Nodecons {
		data := n.Data.(*payload.Nodecon)
		ctx, err := l.lowerContextRef(data.Context)
		if err != nil {
			return errors.Wrapf(err, "nodecon line %d", n.Line)
		}
		l.pdb.Ocontexts[ONodecon] = append(l.pdb.Ocontexts[ONodecon], &OcontextEntry{
			Kind: ONodecon, Context: ctx, Addr: data.AddrStr, Mask: data.MaskStr,
		})
	}
	for _, n := range l.db.Netifcons {
		data := n.Data.(*payload.Netifcon)
		ifCtx, err := l.lowerContextRef(data.IfContext)
		if err != nil {
			return errors.Wrapf(err, "netifcon line %d", n.Line)
		}
		pktCtx, err := l.lowerContextRef(data.PacketContext)
		if err != nil {
			return errors.Wrapf(err, "netifcon line %d", n.Line)
		}
		l.pdb.Ocontexts[ONetifcon] = append(l.pdb.Ocontexts[ONetifcon],
			&OcontextEntry{Kind: ONetifcon, Context: ifCtx, Interface: data.Interface},
			&OcontextEntry{Kind: ONetifcon, Context: pktCtx, Interface: data.Interface},
		)
	}
	for _, n := range l.db.Genfscons {
		data := n.Data.(*payload.Genfscon)
		ctx, err := l.lowerContextRef(data.Context)
		if err != nil {
			return errors.Wrapf(err, "genfscon line %d", n.Line)
		}
		l.pdb.Ocontexts[OGenfscon] = append(l.pdb.Ocontexts[OGenfscon], &OcontextEntry{
			Kind: OGenfscon, Context: ctx, FsName: data.FsName, Path: data.Path, FileType: data.FileType,
		})
	}
	for _, n := range l.db.Fsuses {
		data := n.Data.(*payload.Fsuse)
		ctx, err := l.lowerContextRef(data.Context)
		if err != nil {
			return errors.Wrapf(err, "fsuse line %d", n.Line)
		}
		l.pdb.Ocontexts[OFsuse] = append(l.pdb.Ocontexts[OFsuse], &OcontextEntry{
			Kind: OFsuse, Context: ctx, FsName: data.FsName, FileType: data.Kind,
		})
	}
	for _, n := range l.db.Sidcontexts {
		data := n.Data.(*payload.Sidcontext)
		ctx, err := l.lowerContextRef(data.Context)
		if err != nil {
			return errors.Wrapf(err, "sidcontext line %d", n.Line)
		}
		l.pdb.Ocontexts[OSidcontext] = append(l.pdb.Ocontexts[OSidcontext], &OcontextEntry{
			Kind: OSidcontext, Context: ctx,
		})
	}

	return l.lowerDeviceOcontexts()
}

func (l *Lowerer) lowerContextRef(ctx *payload.Context) (*LoweredContext, error) {
	if ctx == nil {
		return nil, errors.New("ocontext: context not resolved")
	}
	return l.pdb.LowerContext(ctx, l.valueOf)
}

func (l *Lowerer) lowerDeviceOcontexts() error {
	buckets := []struct {
		kind  OcontextKind
		nodes []*ast.Node
	}{
		{OPirqcon, l.db.Pirqcons},
		{OIomemcon, l.db.Iomemcons},
		{OIoportcon, l.db.Ioportcons},
		{OPcidevicecon, l.db.Pcidevicecons},
	}
	for _, b := range buckets {
		for _, n := range b.nodes {
			data := n.Data.(*payload.DeviceCon)
			ctx, err := l.lowerContextRef(data.Context)
			if err != nil {
				return errors.Wrapf(err, "%s line %d", n.Flavor, n.Line)
			}
			l.pdb.Ocontexts[b.kind] = append(l.pdb.Ocontexts[b.kind], &OcontextEntry{
				Kind: b.kind, Context: ctx, DeviceLow: data.Low, DeviceHigh: data.High,
			})
		}
	}
	return nil
}
