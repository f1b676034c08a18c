package pdb

import (
	"github.com/pkg/errors"

	"github.com/cil-project/cilc/pkg/bitmap"
)

var errDuplicateAvtabKey = errors.New("duplicate avtab key in a non-merging table")

// NeverallowRule is one registered neverallow: source/target/class
// selectors as value bitmaps (a neverallow can name an attribute, which
// expands to every type carrying it), plus the forbidden permission
// bitmap.
type NeverallowRule struct {
	Source, Target *bitmap.Bitmap
	Class          uint32
	Perms          *bitmap.Bitmap
}

// NeverallowIndex accumulates every neverallow rule and checks ordinary
// allow/auditallow rules against the whole set as they are inserted, so a
// violation is caught at the point of insertion rather than requiring a
// second full pass over the avtab.
type NeverallowIndex struct {
	rules []*NeverallowRule
}

// NewNeverallowIndex returns an empty index.
func NewNeverallowIndex() *NeverallowIndex { return &NeverallowIndex{} }

// Register adds rule to the index.
func (idx *NeverallowIndex) Register(rule *NeverallowRule) {
	idx.rules = append(idx.rules, rule)
}

// Check reports the first neverallow rule violated by granting perms from
// source to target on class, or nil if none is.
func (idx *NeverallowIndex) Check(source, target *bitmap.Bitmap, class uint32, perms *bitmap.Bitmap) *NeverallowRule {
	for _, rule := range idx.rules {
		if rule.Class != class {
			continue
		}
		if !rule.Source.Intersects(source) {
			continue
		}
		if !rule.Target.Intersects(target) {
			continue
		}
		if rule.Perms.Intersects(perms) {
			return rule
		}
	}
	return nil
}
