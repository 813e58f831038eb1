// SPDX-License-Identifier: MPL-2.0

package config

import (
	"github.com/charmbracelet/log"
)

// Merge folds an overlay Value into a base Value and returns the result.
// It is total: every well-typed input pair produces a Value.
//
// Rules, in order:
//  1. An empty overlay Object or Array is the mixin sentinel: the base value
//     is inherited unchanged, whatever its kind.
//  2. Object into Object merges key-wise; keys only in one side are kept.
//  3. Array into Array is a set union: base elements in order, then overlay
//     elements not already present. Element order carries no meaning.
//  4. A Null overlay means "no override"; the base is kept. There is no
//     delete operation.
//  5. Anything else (scalars, or a kind mismatch) resolves to the overlay.
//     Kind mismatches are resolved silently in favor of the overlay; a
//     warning is logged so tests and lint passes can spot likely mistakes,
//     but the merge never fails on them.
func Merge(base, overlay Value) Value {
	switch {
	case overlay.IsNull():
		return base
	case overlay.Kind() == KindObject && overlay.Len() == 0:
		return base
	case overlay.Kind() == KindArray && overlay.Len() == 0:
		return base
	case base.Kind() == KindObject && overlay.Kind() == KindObject:
		return mergeObjects(base, overlay)
	case base.Kind() == KindArray && overlay.Kind() == KindArray:
		return unionArrays(base, overlay)
	default:
		if !base.IsNull() && base.Kind() != overlay.Kind() {
			log.Warn("config merge kind conflict; overlay wins",
				"base", base.Kind(), "overlay", overlay.Kind())
		}
		return overlay
	}
}

// MergeAll folds overlays left to right onto base; later overlays take
// precedence over earlier ones.
func MergeAll(base Value, overlays ...Value) Value {
	out := base
	for _, o := range overlays {
		out = Merge(out, o)
	}
	return out
}

func mergeObjects(base, overlay Value) Value {
	merged := make(map[string]Value, base.Len()+overlay.Len())
	for k, bv := range base.obj {
		merged[k] = bv
	}
	for k, ov := range overlay.obj {
		if bv, ok := merged[k]; ok {
			merged[k] = Merge(bv, ov)
		} else {
			merged[k] = ov
		}
	}
	return Object(merged)
}

func unionArrays(base, overlay Value) Value {
	out := make([]Value, 0, base.Len()+overlay.Len())
	out = append(out, base.arr...)
	for _, ov := range overlay.arr {
		if !containsValue(out, ov) {
			out = append(out, ov)
		}
	}
	return Array(out...)
}

func containsValue(vs []Value, target Value) bool {
	for _, v := range vs {
		if v.Equal(target) {
			return true
		}
	}
	return false
}
