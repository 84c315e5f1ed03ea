// Package mono monomorphizes generic instantiations discovered by the
// resolver into a concrete, ordered emission plan: built-in List/Map/Set
// specializations get their fixed shape; user generic classes get a
// type-parameter-substituted struct plus a substituted copy of every
// method. Emission is two-pass (all struct forward declarations, then
// all method bodies) so the generated C never references a struct
// before its declaration.
package mono

import (
	"sort"

	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/resolve"
	"github.com/btrc-lang/btrc/internal/typeutil"
)

// Kind classifies one instantiation.
type Kind int

const (
	KindBuiltinList Kind = iota
	KindBuiltinMap
	KindBuiltinSet
	KindUserClass
)

// Instance is one concrete instantiation ready for internal/gen to
// lower into IR.
type Instance struct {
	Kind        Kind
	Base        string
	Args        []*ast.TypeExpr
	MangledName string

	// Fields/Methods are only populated for KindUserClass: the base
	// class's members with every generic parameter substituted by its
	// bound concrete type argument.
	Fields  []SubstField
	Methods []SubstMethod
}

// SubstField is one field of a user generic instance after
// substitution.
type SubstField struct {
	Name string
	Type *ast.TypeExpr
}

// SubstMethod is one method of a user generic instance after
// substitution: its signature's param/return types have type
// parameters replaced, its body is the original AST (the body is
// substituted lazily by internal/gen, which already carries a
// type-environment walk for local inference).
type SubstMethod struct {
	Name string
	Sig  ast.FuncSig
	Body *ast.Block
}

// Plan computes the full, dependency-ordered list of instances to
// emit for the program's generic_instances table (spec §3), expanding
// transitive generic dependencies discovered through field
// substitution (e.g. a field of type `ListNode<T>` in an instance
// with T = string instantiates `ListNode<string>`).
func Plan(analyzed *resolve.AnalyzedProgram, reg *typeutil.Registry) []*Instance {
	p := &planner{analyzed: analyzed, reg: reg, seen: make(map[string]bool)}

	var names []string
	for name := range analyzed.GenericInstances {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic emission order across runs

	for _, name := range names {
		argSets := analyzed.GenericInstances[name]
		for _, args := range argSets {
			p.emit(name, args)
		}
	}
	return p.order
}

type planner struct {
	analyzed *resolve.AnalyzedProgram
	reg      *typeutil.Registry
	seen     map[string]bool
	order    []*Instance
}

func (p *planner) emit(base string, args []*ast.TypeExpr) {
	mangled := typeutil.MangleGenericType(base, args)
	if p.seen[mangled] {
		return
	}
	p.seen[mangled] = true

	switch base {
	case "List":
		p.order = append(p.order, &Instance{Kind: KindBuiltinList, Base: base, Args: args, MangledName: mangled})
	case "Map":
		p.order = append(p.order, &Instance{Kind: KindBuiltinMap, Base: base, Args: args, MangledName: mangled})
	case "Set":
		p.order = append(p.order, &Instance{Kind: KindBuiltinSet, Base: base, Args: args, MangledName: mangled})
	default:
		p.emitUserClass(base, args, mangled)
	}
}

func (p *planner) emitUserClass(base string, args []*ast.TypeExpr, mangled string) {
	info := p.analyzed.Classes[base]
	if info == nil {
		return
	}
	subst := make(map[string]*ast.TypeExpr, len(info.Generics))
	for i, g := range info.Generics {
		if i < len(args) {
			subst[g] = args[i]
		}
	}

	inst := &Instance{Kind: KindUserClass, Base: base, Args: args, MangledName: mangled}

	for _, fname := range info.FieldOrder {
		ft := substitute(info.Fields[fname].Type, subst)
		inst.Fields = append(inst.Fields, SubstField{Name: fname, Type: ft})
		// Transitive dependency: a substituted field that is itself a
		// concrete generic instantiation must be emitted too, and
		// emitted BEFORE this instance since its struct is embedded or
		// pointed to by it.
		if ft != nil && len(ft.Args) > 0 && typeutil.IsConcreteInstance(ft.Args) {
			p.emit(ft.Base, ft.Args)
		}
	}

	var methodNames []string
	for name := range info.Methods {
		methodNames = append(methodNames, name)
	}
	sort.Strings(methodNames)
	for _, name := range methodNames {
		m := info.Methods[name]
		sig := m.Sig
		sig.ReturnType = substitute(sig.ReturnType, subst)
		params := make([]ast.Param, len(sig.Params))
		for i, prm := range sig.Params {
			params[i] = prm
			params[i].Type = substitute(prm.Type, subst)
		}
		sig.Params = params
		inst.Methods = append(inst.Methods, SubstMethod{Name: name, Sig: sig, Body: m.Body})
	}

	p.order = append(p.order, inst)
}

// substitute replaces single-uppercase-letter type parameters in t
// with their bound concrete type from subst, recursively.
func substitute(t *ast.TypeExpr, subst map[string]*ast.TypeExpr) *ast.TypeExpr {
	if t == nil {
		return nil
	}
	if ast.IsTypeParam(t.Base) {
		if bound, ok := subst[t.Base]; ok {
			return bound
		}
		return t
	}
	if len(t.Args) == 0 {
		return t
	}
	newArgs := make([]*ast.TypeExpr, len(t.Args))
	for i, a := range t.Args {
		newArgs[i] = substitute(a, subst)
	}
	clone := *t
	clone.Args = newArgs
	return &clone
}
