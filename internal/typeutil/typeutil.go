// Package typeutil converts BTRC surface types (ast.TypeExpr) to C
// type strings and provides the classification and name-mangling
// helpers the IR generator, monomorphizer, and emitter share.
package typeutil

import (
	"fmt"
	"strings"

	"github.com/btrc-lang/btrc/internal/ast"
)

var primitiveMap = map[string]string{
	"int": "int", "float": "float", "double": "double", "bool": "bool",
	"char": "char", "string": "char*", "void": "void", "long": "long",
	"short": "short", "byte": "unsigned char", "uint": "unsigned int",
	"size_t": "size_t",
}

var builtinGenerics = map[string]bool{"List": true, "Map": true, "Set": true}

// ClassLookup resolves a class name to whether it declares generic
// parameters, needed by IsGenericClassType without importing the
// resolver (which itself depends on typeutil).
type ClassLookup interface {
	HasGenericParams(name string) bool
}

// Registry accumulates function-pointer typedefs discovered while
// converting types to C, mirroring the module-level cache in the
// original generator. One Registry is shared across a single
// compilation's IR generation pass.
type Registry struct {
	fnPtrTypedefs map[string]string
	order         []string
}

func NewRegistry() *Registry {
	return &Registry{fnPtrTypedefs: make(map[string]string)}
}

// TypeToC converts t to its C spelling, registering any function
// pointer typedef it needs along the way.
func (r *Registry) TypeToC(t *ast.TypeExpr) string {
	if t == nil {
		return "void"
	}
	if t.Base == "__fn_ptr" && len(t.Args) > 0 {
		return r.FnPtrTypedefName(t)
	}

	prefix := ""
	if t.IsConst {
		prefix = "const "
	}

	var c string
	switch {
	case primitiveMap[t.Base] != "" && len(t.Args) == 0:
		c = primitiveMap[t.Base]
	case t.Base == "Tuple" || strings.HasPrefix(t.Base, "("):
		c = r.MangleTupleType(t)
	case len(t.Args) > 0:
		c = MangleGenericType(t.Base, t.Args)
	default:
		c = t.Base
	}

	c += strings.Repeat("*", t.PointerDepth)
	if t.IsArray {
		c += "*"
	}
	return prefix + c
}

// FnPtrTypedefName returns (creating if needed) the mangled typedef
// name for a __fn_ptr(ret, params...) type.
func (r *Registry) FnPtrTypedefName(t *ast.TypeExpr) string {
	retType := "void"
	var paramTypes []string
	if len(t.Args) > 0 {
		retType = r.TypeToC(t.Args[0])
		for _, a := range t.Args[1:] {
			paramTypes = append(paramTypes, r.TypeToC(a))
		}
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = MangleTypeName(a)
	}
	mangled := "__btrc_fn_" + strings.Join(parts, "_")
	if _, ok := r.fnPtrTypedefs[mangled]; !ok {
		paramsStr := "void"
		if len(paramTypes) > 0 {
			paramsStr = strings.Join(paramTypes, ", ")
		}
		r.fnPtrTypedefs[mangled] = fmt.Sprintf("typedef %s (*%s)(%s);", retType, mangled, paramsStr)
		r.order = append(r.order, mangled)
	}
	return mangled
}

// FnPtrTypedefs drains and returns every typedef accumulated so far,
// in discovery order, matching the original's emit-then-clear cache.
func (r *Registry) FnPtrTypedefs() []string {
	out := make([]string, len(r.order))
	for i, name := range r.order {
		out[i] = r.fnPtrTypedefs[name]
	}
	r.fnPtrTypedefs = make(map[string]string)
	r.order = nil
	return out
}

// MangleGenericType mangles a builtin or user generic instantiation:
// List<int> -> btrc_List_int.
func MangleGenericType(base string, args []*ast.TypeExpr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = MangleTypeName(a)
	}
	return "btrc_" + base + "_" + strings.Join(parts, "_")
}

// MangleTypeName mangles a single type for use inside a C identifier.
func MangleTypeName(t *ast.TypeExpr) string {
	if len(t.Args) > 0 {
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = MangleTypeName(a)
		}
		return t.Base + "_" + strings.Join(parts, "_")
	}
	return t.Base
}

// MangleTupleType mangles a tuple type: (int, string) -> btrc_Tuple_int_string.
func (r *Registry) MangleTupleType(t *ast.TypeExpr) string {
	if len(t.Args) > 0 {
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = MangleTypeName(a)
		}
		return "btrc_Tuple_" + strings.Join(parts, "_")
	}
	return "btrc_Tuple"
}

// IsPointerType reports whether t is heap/pointer-represented in C:
// strings, class instances, and generic collections are; other
// primitives are not.
func IsPointerType(t *ast.TypeExpr) bool {
	if t == nil {
		return false
	}
	if t.PointerDepth > 0 {
		return true
	}
	if primitiveMap[t.Base] != "" && len(t.Args) == 0 {
		return t.Base == "string"
	}
	return primitiveMap[t.Base] == "" || len(t.Args) > 0
}

func IsStringType(t *ast.TypeExpr) bool {
	return t != nil && t.Base == "string" && len(t.Args) == 0 && t.PointerDepth == 0
}

var numericBases = map[string]bool{"int": true, "float": true, "double": true, "long": true, "short": true, "byte": true, "uint": true}

func IsNumericType(t *ast.TypeExpr) bool {
	return t != nil && numericBases[t.Base]
}

// IsCollectionType reports whether t is a builtin List/Map/Set
// instantiation. Prefer IsGenericClassType once a class table is
// available; this remains for call sites that only have a bare type.
func IsCollectionType(t *ast.TypeExpr) bool {
	return t != nil && builtinGenerics[t.Base] && len(t.Args) > 0
}

// IsGenericClassType reports whether t names a user class declared
// with generic parameters.
func IsGenericClassType(t *ast.TypeExpr, classes ClassLookup) bool {
	if t == nil || len(t.Args) == 0 || classes == nil {
		return false
	}
	return classes.HasGenericParams(t.Base)
}

// IsConcreteType reports whether t is fully resolved: no base name
// (recursively) is a single uppercase-letter type parameter.
func IsConcreteType(t *ast.TypeExpr) bool {
	if t == nil {
		return true
	}
	if len(t.Base) == 1 && t.Base[0] >= 'A' && t.Base[0] <= 'Z' {
		return false
	}
	for _, a := range t.Args {
		if !IsConcreteType(a) {
			return false
		}
	}
	return true
}

// IsConcreteInstance reports whether every type in a generic
// instantiation tuple is concrete, used to decide whether the
// monomorphizer may emit code for it yet.
func IsConcreteInstance(args []*ast.TypeExpr) bool {
	for _, a := range args {
		if !IsConcreteType(a) {
			return false
		}
	}
	return true
}

// ElementTypeC returns the C type of a collection's element type.
func (r *Registry) ElementTypeC(t *ast.TypeExpr) string {
	if len(t.Args) > 0 {
		return r.TypeToC(t.Args[0])
	}
	return "void*"
}

// FormatSpecForType returns the printf conversion for t. Bool needs
// special-case handling at the call site (ternary to "true"/"false").
func FormatSpecForType(t *ast.TypeExpr) string {
	if t == nil {
		return "%d"
	}
	if t.PointerDepth > 0 {
		return "%s"
	}
	switch t.Base {
	case "int", "short", "byte", "uint":
		return "%d"
	case "long":
		return "%ld"
	case "float", "double":
		return "%f"
	case "char":
		return "%c"
	case "string":
		return "%s"
	case "bool":
		return "%s"
	}
	return "%d"
}

// InstanceKey builds a stable map key for a generic instantiation
// (class or function name plus concrete type arguments), used by the
// monomorphizer's worklist and the generated-instance set.
func InstanceKey(name string, args []*ast.TypeExpr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return name + "<" + strings.Join(parts, ",") + ">"
}
