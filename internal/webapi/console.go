package webapi

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// FormatConsoleArgs renders console.* arguments the way spec.md §4.7
// describes: objects/arrays via a JSON-like deep printer with cycle
// detection, primitives by their standard string form, joined with single
// spaces.
func FormatConsoleArgs(vm *goja.Runtime, args []goja.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = inspect(vm, a, make(map[*goja.Object]bool))
	}
	return strings.Join(parts, " ")
}

func inspect(vm *goja.Runtime, v goja.Value, seen map[*goja.Object]bool) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	obj, isObject := v.(*goja.Object)
	if !isObject {
		return v.String()
	}
	if seen[obj] {
		return "[Circular]"
	}
	switch obj.ClassName() {
	case "Function":
		name := obj.Get("name")
		if name != nil && !goja.IsUndefined(name) {
			return fmt.Sprintf("[Function: %s]", name.String())
		}
		return "[Function (anonymous)]"
	case "Array":
		seen[obj] = true
		length := obj.Get("length").ToInteger()
		items := make([]string, length)
		for i := int64(0); i < length; i++ {
			items[i] = inspect(vm, obj.Get(fmt.Sprintf("%d", i)), seen)
		}
		delete(seen, obj)
		return "[ " + strings.Join(items, ", ") + " ]"
	default:
		seen[obj] = true
		keys := obj.Keys()
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = fmt.Sprintf("%s: %s", k, inspect(vm, obj.Get(k), seen))
		}
		delete(seen, obj)
		return "{ " + strings.Join(items, ", ") + " }"
	}
}

// Atob decodes a standard base64 string. Input that is not valid base64,
// which includes any code point above 0xFF, is rejected; the decoded bytes
// are returned as they are.
func Atob(s string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("atob: invalid base64 input")
	}
	return string(decoded), nil
}

// Btoa encodes a Latin-1 string to base64, rejecting any rune above 0xFF.
func Btoa(s string) (string, error) {
	raw := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return "", fmt.Errorf("btoa: string contains code point outside Latin-1 range")
		}
		raw = append(raw, byte(r))
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
