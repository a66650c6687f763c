package classmodel

import (
	"github.com/pkg/errors"

	"github.com/Facepunch/react-class-model/classmodel_errors"
)

// Keyed list reconciliation: update a list field in place while
// preserving element identity for entries whose identity key is
// unchanged, even across reordering. Single left-to-right pass with a
// lookahead scan; O(n^2) worst case, O(n) when ordering is stable.

// reconcileKeyed mutates the destination list field to mirror src.
// Entries whose identity key matches an incoming entry keep their
// object identity, unmatched incoming entries get fresh instances, and
// destination entries with no incoming match are dropped.
func (e *Engine) reconcileKeyed(ntd *TypeDescriptor, f *Field, obj any, src []any) (bool, error) {
	// a null entry carries no identity to match on; reject before
	// touching the destination
	for i := range src {
		if src[i] == nil {
			return false, errors.Wrapf(classmodel_errors.ErrBadPlainValue,
				"keyed list %q entry %d is null", f.Name, i)
		}
	}
	cur := f.Get(obj)
	dest := asAnySlice(cur)
	changed := len(dest) != len(src)
	for len(dest) < len(src) {
		dest = append(dest, nil)
	}

	for i := range src {
		key, err := sourceKey(ntd, src[i])
		if err != nil {
			return true, err
		}
		if !isNilOrAbsent(dest[i]) && keyMatches(ntd, dest[i], key) {
			ch, err := e.mergeEntry(ntd, &dest[i], src[i])
			if err != nil {
				return true, err
			}
			changed = changed || ch
			continue
		}

		// first match at or past the cursor wins; duplicate keys later
		// in the list are treated as unmatched
		found := -1
		for j := i + 1; j < len(dest); j++ {
			if !isNilOrAbsent(dest[j]) && keyMatches(ntd, dest[j], key) {
				found = j
				break
			}
		}
		if found < 0 {
			if !isNilOrAbsent(dest[i]) {
				// defer the displaced entry for a later match or truncation
				dest = append(dest, dest[i])
			}
			inst, err := e.newEntry(ntd, src[i])
			if err != nil {
				return true, err
			}
			dest[i] = inst
			changed = true
			continue
		}

		displaced := dest[i]
		dest[i] = dest[found]
		changed = true // the match moved forward
		if !isNilOrAbsent(displaced) {
			dest[found] = displaced
		} else {
			// the slot was a padding placeholder, drop it
			dest = append(dest[:found], dest[found+1:]...)
		}
		ch, err := e.mergeEntry(ntd, &dest[i], src[i])
		if err != nil {
			return true, err
		}
		changed = changed || ch
	}

	if len(dest) > len(src) {
		dest = dest[:len(src)]
		changed = true
	}
	if changed {
		f.Set(obj, rebuildSlice(cur, ntd.rtype, dest))
	}
	return changed, nil
}

// sourceKey extracts the identity key values of one incoming entry,
// which may be a plain map, a full model instance, or (for single-field
// keys) a bare scalar.
func sourceKey(ntd *TypeDescriptor, sv any) ([]any, error) {
	switch m := sv.(type) {
	case map[string]any:
		key := make([]any, len(ntd.keys))
		for i, name := range ntd.keys {
			key[i] = m[name]
		}
		return key, nil
	default:
		if td, ok := lookupFor(sv); ok && td == ntd {
			key := make([]any, len(ntd.keys))
			for i, name := range ntd.keys {
				if kf := ntd.Find(name); kf != nil {
					key[i] = kf.Get(sv)
				}
			}
			return key, nil
		}
		// bare scalar entry, single-field identity
		return []any{sv}, nil
	}
}

// keyMatches compares a destination instance's identity key fields
// against an extracted source key, using the engine's equality rule.
func keyMatches(ntd *TypeDescriptor, inst any, key []any) bool {
	for i, name := range ntd.keys {
		if i >= len(key) {
			return false
		}
		kf := ntd.Find(name)
		if kf == nil {
			return false
		}
		if !Equal(kf.Get(inst), key[i]) {
			return false
		}
	}
	return len(ntd.keys) > 0
}
