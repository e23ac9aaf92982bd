package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dop251/goja"
)

// exportDefaultRe rewrites a leading `export default` into a CommonJS
// assignment. goja has no ES module loader, so tenant source is compiled
// through this shim rather than a real module graph — documented in
// SPEC_FULL.md §1 as a deliberate adaptation, not a silent shortcut.
var exportDefaultRe = regexp.MustCompile(`(?m)^\s*export\s+default\s+`)

// moduleWrapper mirrors the (module, exports, require) wrapper every
// CommonJS-style host uses to isolate a script's top level from the global
// object while still letting it assign module.exports. require itself is a
// stub (see CompileModule) — tenant scripts are single-file, so there is
// nothing for it to resolve, but the parameter stays to match the contract
// a tenant author already expects from any CommonJS-flavored runtime.
const moduleWrapper = `(function(module, exports, require) {
%s
})(module, module.exports, require);`

// CompileModule loads tenant source text (conventionally the contents of
// <path>/index.js), evaluates it, and extracts module.exports.fetch (or
// module.exports.default.fetch, covering a script that still assigns the
// Workers-style { default: { fetch } } shape directly) as a callable.
func (r *Runtime) CompileModule(name, source string) (goja.Callable, error) {
	rewritten := exportDefaultRe.ReplaceAllString(source, "module.exports = ")
	wrapped := fmt.Sprintf(moduleWrapper, rewritten)

	moduleObj := r.vm.NewObject()
	if err := moduleObj.Set("exports", r.vm.NewObject()); err != nil {
		return nil, fmt.Errorf("init module object: %w", err)
	}
	if err := r.vm.Set("module", moduleObj); err != nil {
		return nil, fmt.Errorf("bind module global: %w", err)
	}
	defer func() { _ = r.vm.Set("module", goja.Undefined()) }()

	requireFn := func(call goja.FunctionCall) goja.Value {
		spec := ""
		if len(call.Arguments) > 0 {
			spec = call.Argument(0).String()
		}
		panic(r.vm.NewTypeError("require(%q) is not supported: tenant scripts have no module resolution", spec))
	}
	if err := r.vm.Set("require", requireFn); err != nil {
		return nil, fmt.Errorf("bind require global: %w", err)
	}
	defer func() { _ = r.vm.Set("require", goja.Undefined()) }()

	prog, err := goja.Compile(name, wrapped, false)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	if _, err := r.vm.RunProgram(prog); err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", name, err)
	}

	exportsVal := moduleObj.Get("exports")
	if exportsVal == nil || goja.IsUndefined(exportsVal) || goja.IsNull(exportsVal) {
		return nil, fmt.Errorf("%s: module.exports is empty", name)
	}
	exportsObj := exportsVal.ToObject(r.vm)

	fetchVal := exportsObj.Get("fetch")
	if fetchVal == nil || goja.IsUndefined(fetchVal) {
		if defaultVal := exportsObj.Get("default"); defaultVal != nil && !goja.IsUndefined(defaultVal) && !goja.IsNull(defaultVal) {
			fetchVal = defaultVal.ToObject(r.vm).Get("fetch")
		}
	}
	if fetchVal == nil || goja.IsUndefined(fetchVal) {
		return nil, fmt.Errorf("%s: default export has no fetch(request, env) handler", name)
	}

	fn, ok := goja.AssertFunction(fetchVal)
	if !ok {
		return nil, fmt.Errorf("%s: exported fetch is not a function", name)
	}
	return fn, nil
}

// hasExportDefault reports whether source contains the text `export
// default` anywhere (a plain substring match, not limited to the top level).
func hasExportDefault(source string) bool {
	return strings.Contains(source, "export default")
}

// HasExportDefault exposes hasExportDefault outside this package.
func HasExportDefault(source string) bool { return hasExportDefault(source) }
