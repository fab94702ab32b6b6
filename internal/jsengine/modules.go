package jsengine

import (
	"io"
	"strings"

	"github.com/dop251/goja"
)

// ModuleName is the native module scripts can require for host output.
const ModuleName = "jdb"

// installGlobals defines the step hook and the print globals.
func (e *Engine) installGlobals() {
	global := e.vm.GlobalObject()
	_ = global.DefineDataProperty(hookName, e.vm.ToValue(e.step), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
	_ = e.vm.Set("dbgprint", e.printer(e.stdout, false))
	_ = e.vm.Set("errprint", e.printer(e.stderr, false))
}

// requireModule implements require("jdb").
func (e *Engine) requireModule(runtime *goja.Runtime, module *goja.Object) {
	exports := module.Get("exports").(*goja.Object)
	_ = exports.Set("print", e.printer(e.stdout, true))
	_ = exports.Set("dbgprint", e.printer(e.stdout, false))
	_ = exports.Set("errprint", e.printer(e.stderr, false))
}

// printer returns a function writing its arguments separated by spaces.
// dbgprint and errprint do not append a newline.
func (e *Engine) printer(w io.Writer, newline bool) func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		s := strings.Join(parts, " ")
		if newline {
			s += "\n"
		}
		if _, err := io.WriteString(w, s); err != nil {
			e.logger.Warn("script output failed", "error", err)
		}
		return goja.Undefined()
	}
}

func isBuiltinGlobal(name string) bool {
	switch name {
	case "require", "console", "dbgprint", "errprint":
		return true
	}
	return strings.HasPrefix(name, internalPrefix)
}
