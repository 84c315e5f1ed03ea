// Package resolve builds the AnalyzedProgram the IR generator
// consumes: class/function/enum tables, per-node inferred types, and
// the set of generic instantiations the program actually needs.
//
// It is the one pass between parsing and IR generation: it builds the
// declaration tables, flags cyclable classes, checks that parent
// classes and field types name known types, and records generic
// instantiations. It does not check call arity or value types, and it
// does not flatten inheritance; internal/gen walks Parent chains
// itself.
package resolve

import (
	"fmt"

	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/diag"
)

// MethodInfo is one resolved method or constructor.
type MethodInfo struct {
	Sig        ast.FuncSig
	Body       *ast.Block // nil for abstract/forward declarations
	KeepReturn bool
	IsStatic   bool
	IsAbstract bool
}

// PropertyInfo is a resolved class property.
type PropertyInfo struct {
	Type        *ast.TypeExpr
	Getter      *ast.Block // nil => auto-getter
	Setter      *ast.Block // nil => auto-setter
	SetterParam string
}

// FieldInfo is a resolved class or struct field.
type FieldInfo struct {
	Type        *ast.TypeExpr
	Initializer ast.Expr
}

// ClassInfo is the resolved shape of one class's own declarations.
// Inherited members are not copied in: method and field lookup walk
// the Parent chain, and internal/gen/gen_class.go flattens ancestor
// fields into the C struct.
type ClassInfo struct {
	Name       string
	Parent     string // "" if none
	Generics   []string
	Fields     map[string]FieldInfo
	FieldOrder []string // declaration order; semantically visible in C struct layout
	Methods    map[string]*MethodInfo
	Properties map[string]*PropertyInfo
	Ctor       *MethodInfo // nil if no explicit constructor
	// DestructorName is "free" when the user declares a method of that
	// name (it overrides the default synthesized "destroy" name);
	// otherwise "destroy".
	DestructorName string
	IsAbstract     bool
	IsCyclable     bool // true if this class can participate in a reference cycle
}

// ClassTable implements typeutil.ClassLookup over the whole program.
type ClassTable map[string]*ClassInfo

func (t ClassTable) HasGenericParams(name string) bool {
	info, ok := t[name]
	return ok && len(info.Generics) > 0
}

// FunctionInfo is a resolved top-level function.
type FunctionInfo struct {
	Sig        ast.FuncSig
	Body       *ast.Block
	KeepReturn bool
}

// InstanceSet is the set of concrete type-argument tuples a generic
// base name (class or function) is instantiated with, keyed by
// typeutil.InstanceKey.
type InstanceSet map[string][]*ast.TypeExpr

// AnalyzedProgram is the resolver's complete output.
type AnalyzedProgram struct {
	Program   *ast.Program
	Classes   ClassTable
	Functions map[string]*FunctionInfo
	Enums     map[string][]string
	RichEnums map[string][]ast.RichEnumVariant
	Structs   map[string]*ast.StructDecl
	Typedefs  map[string]*ast.TypeExpr

	// NodeTypes maps an expression's NodeID to its inferred type.
	// Resolve allocates it but records no entries; the generator
	// infers expression types itself from the local declared-type
	// environment it builds while walking each scope.
	NodeTypes map[ast.NodeID]*ast.TypeExpr

	// GenericInstances maps a generic class or function's base name to
	// every concrete argument tuple the program instantiates it with.
	// Populated by scanning declared types (fields, properties,
	// parameters, return types, globals, locals, catch types) for
	// concrete generic types; `new`/call type arguments are not scanned.
	GenericInstances map[string][][]*ast.TypeExpr

	Errors []*diag.Report
}

// Resolve runs semantic analysis over prog and returns the analyzed
// program. Errors are accumulated, not fatal: the caller inspects
// Errors and aborts the pipeline if any were appended, per spec §5.
func Resolve(file string, prog *ast.Program) *AnalyzedProgram {
	r := &resolver{
		file: file,
		out: &AnalyzedProgram{
			Program:          prog,
			Classes:          make(ClassTable),
			Functions:        make(map[string]*FunctionInfo),
			Enums:            make(map[string][]string),
			RichEnums:        make(map[string][]ast.RichEnumVariant),
			Structs:          make(map[string]*ast.StructDecl),
			Typedefs:         make(map[string]*ast.TypeExpr),
			NodeTypes:        make(map[ast.NodeID]*ast.TypeExpr),
			GenericInstances: make(map[string][][]*ast.TypeExpr),
		},
	}
	r.collectDecls(prog)
	r.flagCyclableClasses()
	r.checkReferences(prog)
	r.collectGenericInstances(prog)
	return r.out
}

type resolver struct {
	file string
	out  *AnalyzedProgram
}

func (r *resolver) errorf(pos ast.Pos, code, format string, args ...interface{}) {
	r.out.Errors = append(r.out.Errors, diag.New("resolve", code, fmt.Sprintf(format, args...), pos))
}

// collectDecls populates the class/function/enum/struct/typedef
// tables from one flat pass over top-level declarations. Classes are
// fully resolved here (fields, methods, properties, constructor,
// destructor name); inheritance validity (parent exists) is checked
// in checkReferences, after every class is known.
func (r *resolver) collectDecls(prog *ast.Program) {
	for _, d := range prog.Decls {
		switch decl := d.(type) {
		case *ast.ClassDecl:
			r.collectClass(decl)
		case *ast.FuncDecl:
			if _, dup := r.out.Functions[decl.Sig.Name]; dup {
				r.errorf(decl.Position(), "RES010", "function %q redeclared", decl.Sig.Name)
				continue
			}
			r.out.Functions[decl.Sig.Name] = &FunctionInfo{
				Sig: decl.Sig, Body: decl.Body, KeepReturn: decl.Sig.KeepReturn,
			}
		case *ast.StructDecl:
			r.out.Structs[decl.Name] = decl
		case *ast.EnumDecl:
			r.out.Enums[decl.Name] = decl.Values
		case *ast.RichEnumDecl:
			r.out.RichEnums[decl.Name] = decl.Variants
		case *ast.TypedefDecl:
			r.out.Typedefs[decl.Name] = decl.Type
		case *ast.InterfaceDecl:
			// Interfaces only constrain; nothing to lower on their own.
		case *ast.GlobalVarDecl, *ast.PreprocDecl:
			// Globals/preproc carry no table entry; the generator reads
			// them straight off Program.Decls.
		}
	}
}

func (r *resolver) collectClass(decl *ast.ClassDecl) {
	if _, dup := r.out.Classes[decl.Name]; dup {
		r.errorf(decl.Position(), "RES011", "class %q redeclared", decl.Name)
		return
	}
	info := &ClassInfo{
		Name:           decl.Name,
		Parent:         decl.Parent,
		Generics:       decl.Generics,
		Fields:         make(map[string]FieldInfo),
		Methods:        make(map[string]*MethodInfo),
		Properties:     make(map[string]*PropertyInfo),
		DestructorName: "destroy",
		IsAbstract:     decl.IsAbstract,
	}
	for _, m := range decl.Members {
		switch member := m.(type) {
		case *ast.FieldDecl:
			if _, dup := info.Fields[member.Name]; dup {
				r.errorf(member.Position(), "RES012", "field %q redeclared in class %q", member.Name, decl.Name)
				continue
			}
			info.Fields[member.Name] = FieldInfo{Type: member.Type, Initializer: member.Initializer}
			info.FieldOrder = append(info.FieldOrder, member.Name)
		case *ast.PropertyDecl:
			info.Properties[member.Name] = &PropertyInfo{
				Type: member.Type, Getter: member.Getter, Setter: member.Setter, SetterParam: member.SetterParam,
			}
		case *ast.MethodDecl:
			mi := &MethodInfo{
				Sig: member.Sig, Body: member.Body,
				KeepReturn: member.Sig.KeepReturn, IsStatic: member.Sig.IsStatic, IsAbstract: member.Sig.IsAbstract,
			}
			switch member.Sig.Name {
			case decl.Name:
				info.Ctor = mi
			case "__del__":
				info.Methods["__del__"] = mi
			case "free":
				info.DestructorName = "free"
				info.Methods[member.Sig.Name] = mi
			default:
				info.Methods[member.Sig.Name] = mi
			}
		}
	}
	r.out.Classes[decl.Name] = info
}

// flagCyclableClasses marks every class reachable from itself through
// a chain of fields typed as (pointers to) other classes, since only
// those participate in the trial cycle-collection phase (spec §4.6's
// four-phase release).
func (r *resolver) flagCyclableClasses() {
	memo := make(map[string]bool)
	var reaches func(from, target string, seen map[string]bool) bool
	reaches = func(from, target string, seen map[string]bool) bool {
		if seen[from] {
			return false
		}
		seen[from] = true
		info := r.out.Classes[from]
		if info == nil {
			return false
		}
		for _, name := range info.FieldOrder {
			ft := info.Fields[name].Type
			if ft == nil {
				continue
			}
			base := ft.Base
			if _, ok := r.out.Classes[base]; !ok {
				continue
			}
			if base == target {
				return true
			}
			if reaches(base, target, seen) {
				return true
			}
		}
		return false
	}
	for name := range r.out.Classes {
		if v, ok := memo[name]; ok {
			r.out.Classes[name].IsCyclable = v
			continue
		}
		cyclable := reaches(name, name, map[string]bool{})
		memo[name] = cyclable
		r.out.Classes[name].IsCyclable = cyclable
	}
}

// checkReferences validates parent-class existence and field/type
// references that are cheap to catch before IR generation. This is
// intentionally lighter than a full type checker: spec §5 defers most
// value-level type errors to emitted-C compiler diagnostics, and the
// resolver's job is name resolution and the tables above, not full
// inference.
func (r *resolver) checkReferences(prog *ast.Program) {
	for name, info := range r.out.Classes {
		if info.Parent == "" {
			continue
		}
		if _, ok := r.out.Classes[info.Parent]; !ok {
			r.errorf(ast.Pos{File: r.file}, "RES013", "class %q extends unknown class %q", name, info.Parent)
		}
	}
	for _, d := range prog.Decls {
		cd, ok := d.(*ast.ClassDecl)
		if !ok {
			continue
		}
		for _, m := range cd.Members {
			fd, ok := m.(*ast.FieldDecl)
			if !ok || fd.Type == nil {
				continue
			}
			r.checkTypeRef(fd.Position(), fd.Type)
		}
	}
}

func (r *resolver) checkTypeRef(pos ast.Pos, t *ast.TypeExpr) {
	if t == nil || ast.IsTypeParam(t.Base) {
		return
	}
	switch t.Base {
	case "int", "float", "double", "bool", "char", "string", "void",
		"long", "short", "byte", "uint", "size_t", "List", "Map", "Set",
		"Tuple", "__fn_ptr":
		// builtin
	default:
		_, isClass := r.out.Classes[t.Base]
		_, isStruct := r.out.Structs[t.Base]
		_, isEnum := r.out.Enums[t.Base]
		_, isRichEnum := r.out.RichEnums[t.Base]
		_, isTypedef := r.out.Typedefs[t.Base]
		if !isClass && !isStruct && !isEnum && !isRichEnum && !isTypedef {
			r.errorf(pos, "RES014", "unknown type %q", t.Base)
		}
	}
	for _, a := range t.Args {
		r.checkTypeRef(pos, a)
	}
}

// collectGenericInstances walks every declared type in the program
// (not `new` expressions or calls) to find every concrete
// instantiation of a generic type, transitively
// including instantiations that only appear as a field of another
// instantiation (spec §3's `ListNode<string>` example).
func (r *resolver) collectGenericInstances(prog *ast.Program) {
	seen := make(map[string]bool)
	worklist := make([][2]interface{}, 0) // [name, args]

	add := func(name string, args []*ast.TypeExpr) {
		if len(args) == 0 || !allConcrete(args) {
			return
		}
		key := instanceKey(name, args)
		if seen[key] {
			return
		}
		seen[key] = true
		r.out.GenericInstances[name] = append(r.out.GenericInstances[name], args)
		worklist = append(worklist, [2]interface{}{name, args})
	}

	var walkType func(t *ast.TypeExpr)
	walkType = func(t *ast.TypeExpr) {
		if t == nil {
			return
		}
		if len(t.Args) > 0 {
			add(t.Base, t.Args)
		}
		for _, a := range t.Args {
			walkType(a)
		}
	}

	for _, d := range prog.Decls {
		walkDeclTypes(d, walkType)
	}

	for len(worklist) > 0 {
		item := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		name := item[0].(string)
		args := item[1].([]*ast.TypeExpr)
		substMap := make(map[string]*ast.TypeExpr)
		info := r.out.Classes[name]
		if info == nil {
			continue
		}
		for i, g := range info.Generics {
			if i < len(args) {
				substMap[g] = args[i]
			}
		}
		for _, fname := range info.FieldOrder {
			ft := substituteType(info.Fields[fname].Type, substMap)
			walkType(ft)
		}
	}
}

func allConcrete(args []*ast.TypeExpr) bool {
	for _, a := range args {
		if !a.IsConcrete() {
			return false
		}
	}
	return true
}

func instanceKey(name string, args []*ast.TypeExpr) string {
	s := name
	for _, a := range args {
		s += "<" + a.String() + ">"
	}
	return s
}

// substituteType replaces single-uppercase-letter type parameters in
// t with their bound concrete type from subst, recursively.
func substituteType(t *ast.TypeExpr, subst map[string]*ast.TypeExpr) *ast.TypeExpr {
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
		newArgs[i] = substituteType(a, subst)
	}
	clone := *t
	clone.Args = newArgs
	return &clone
}

// walkDeclTypes visits every TypeExpr reachable from a declaration
// (field types, param types, return types, local var types), calling
// visit on each.
func walkDeclTypes(d ast.Decl, visit func(*ast.TypeExpr)) {
	switch decl := d.(type) {
	case *ast.ClassDecl:
		for _, m := range decl.Members {
			switch member := m.(type) {
			case *ast.FieldDecl:
				visit(member.Type)
			case *ast.PropertyDecl:
				visit(member.Type)
			case *ast.MethodDecl:
				visitSig(member.Sig, visit)
				if member.Body != nil {
					walkBlockTypes(member.Body, visit)
				}
			}
		}
	case *ast.FuncDecl:
		visitSig(decl.Sig, visit)
		if decl.Body != nil {
			walkBlockTypes(decl.Body, visit)
		}
	case *ast.StructDecl:
		for _, f := range decl.Fields {
			visit(f.Type)
		}
	case *ast.GlobalVarDecl:
		visit(decl.Type)
	}
}

func visitSig(sig ast.FuncSig, visit func(*ast.TypeExpr)) {
	visit(sig.ReturnType)
	for _, p := range sig.Params {
		visit(p.Type)
	}
}

func walkBlockTypes(b *ast.Block, visit func(*ast.TypeExpr)) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		switch stmt := s.(type) {
		case *ast.LocalVarDecl:
			visit(stmt.Type)
		case *ast.Block:
			walkBlockTypes(stmt, visit)
		case *ast.IfStmt:
			walkBlockTypes(stmt.Then, visit)
			walkBlockTypes(stmt.Else, visit)
		case *ast.WhileStmt:
			walkBlockTypes(stmt.Body, visit)
		case *ast.DoWhileStmt:
			walkBlockTypes(stmt.Body, visit)
		case *ast.ForStmt:
			walkBlockTypes(stmt.Body, visit)
		case *ast.ForInStmt:
			walkBlockTypes(stmt.Body, visit)
		case *ast.SwitchStmt:
			for _, c := range stmt.Cases {
				for _, cs := range c.Body {
					walkBlockTypes(&ast.Block{Stmts: []ast.Stmt{cs}}, visit)
				}
			}
		case *ast.TryStmt:
			walkBlockTypes(stmt.Try, visit)
			for _, c := range stmt.Catches {
				visit(c.Type)
				walkBlockTypes(c.Body, visit)
			}
			walkBlockTypes(stmt.Finally, visit)
		}
	}
}
