package engine

import (
	"fmt"

	"github.com/dop251/goja"
)

// StructuredClone deep-copies a goja.Value into a fresh value with disjoint
// object identity, per the structuredClone(x) testable property in spec.md
// §8. Plain objects/arrays/maps are walked recursively with a seen-set to
// survive cycles; anything else (functions, symbols) is rejected the way
// the real structuredClone algorithm rejects non-cloneable values.
func (r *Runtime) StructuredClone(v goja.Value) (goja.Value, error) {
	seen := make(map[goja.Value]goja.Value)
	return r.cloneValue(v, seen)
}

func (r *Runtime) cloneValue(v goja.Value, seen map[goja.Value]goja.Value) (goja.Value, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return v, nil
	}

	switch v.ExportType() {
	case nil:
		return v, nil
	}

	obj, isObject := v.(*goja.Object)
	if !isObject {
		// Primitive (string, number, boolean, bigint): values are immutable,
		// so returning the same goja.Value is observably identical to a
		// clone for everything except object identity.
		return v, nil
	}

	if cloned, ok := seen[v]; ok {
		return cloned, nil
	}

	switch obj.ClassName() {
	case "Function", "Symbol":
		return nil, fmt.Errorf("structuredClone: value of type %q is not cloneable", obj.ClassName())
	case "Array":
		out := r.vm.NewArray()
		seen[v] = out
		length := obj.Get("length").ToInteger()
		for i := int64(0); i < length; i++ {
			item := obj.Get(fmt.Sprintf("%d", i))
			clonedItem, err := r.cloneValue(item, seen)
			if err != nil {
				return nil, err
			}
			if err := out.Set(fmt.Sprintf("%d", i), clonedItem); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		out := r.vm.NewObject()
		seen[v] = out
		for _, key := range obj.Keys() {
			clonedItem, err := r.cloneValue(obj.Get(key), seen)
			if err != nil {
				return nil, err
			}
			if err := out.Set(key, clonedItem); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
}
