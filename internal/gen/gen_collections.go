package gen

import (
	"fmt"
	"strings"

	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/ir"
	"github.com/btrc-lang/btrc/internal/mono"
	"github.com/btrc-lang/btrc/internal/resolve"
	"github.com/btrc-lang/btrc/internal/typeutil"
)

// lowerMonoPlan emits one struct plus its full operation set for every
// concrete instantiation the monomorphizer's worklist discovered:
// built-in List/Map/Set get their fixed runtime shape, user generics
// get a substituted struct and a substituted copy of every method.
func (c *Context) lowerMonoPlan(plan []*mono.Instance) {
	for _, inst := range plan {
		switch inst.Kind {
		case mono.KindBuiltinList:
			c.lowerListInstance(inst)
		case mono.KindBuiltinMap:
			c.lowerMapInstance(inst)
		case mono.KindBuiltinSet:
			c.lowerSetInstance(inst)
		case mono.KindUserClass:
			c.lowerUserGenericInstance(inst)
		}
	}
}

func elemC(reg *typeutil.Registry, t *ast.TypeExpr) string {
	return reg.TypeToC(t)
}

func selfParam(structName string) ir.Param {
	return ir.Param{CType: ir.CType{Text: "struct " + structName + "*"}, Name: "self"}
}

func p(ctype, name string) ir.Param { return ir.Param{CType: ir.CType{Text: ctype}, Name: name} }

// rawFn appends a statically-generated runtime function built from a
// pre-rendered C statement body (used throughout this file rather than
// lowering an ast.Block, since every List/Map/Set operation is pure
// generated boilerplate with no surface-syntax body to lower).
func (c *Context) rawFn(name, retType string, params []ir.Param, body string, helperRefs ...string) {
	c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, &ir.FunctionDef{
		Name:       name,
		ReturnType: ir.CType{Text: retType},
		Params:     params,
		Body:       &ir.Block{Stmts: []ir.Stmt{&ir.RawC{Text: body, HelperRefs: helperRefs}}},
		IsStatic:   true,
	})
}

// ---- List<T> ----

func (c *Context) lowerListInstance(inst *mono.Instance) {
	name := inst.MangledName
	elemT := inst.Args[0]
	elem := elemC(c.Reg, elemT)
	isString := typeutil.IsStringType(elemT)
	isNumeric := typeutil.IsNumericType(elemT)
	self := selfParam(name)

	c.Mod.StructDefs = append(c.Mod.StructDefs, &ir.StructDef{
		Name: name,
		Fields: []ir.StructField{
			{CType: ir.CType{Text: elem + "*"}, Name: "data"},
			{CType: ir.CType{Text: "int"}, Name: "len"},
			{CType: ir.CType{Text: "int"}, Name: "cap"},
		},
	})

	c.rawFn(name+"_new", name+"*", nil, fmt.Sprintf(`    %[1]s* self = (%[1]s*)__btrc_alloc(sizeof(%[1]s));
    self->cap = 8;
    self->len = 0;
    self->data = (%[2]s*)__btrc_alloc(sizeof(%[2]s) * self->cap);
    return self;`, name, elem), "__btrc_alloc")

	c.rawFn(name+"_ensure_cap", "void", []ir.Param{self, p("int", "n")}, fmt.Sprintf(`    if (self->len + n <= self->cap) return;
    while (self->cap < self->len + n) self->cap *= 2;
    %[1]s* grown = (%[1]s*)__btrc_alloc(sizeof(%[1]s) * self->cap);
    for (int i = 0; i < self->len; i++) grown[i] = self->data[i];
    self->data = grown;`, elem), "__btrc_alloc")

	c.rawFn(name+"_push", "void", []ir.Param{self, p(elem, "value")}, fmt.Sprintf(`    %[1]s_ensure_cap(self, 1);
    self->data[self->len++] = value;`, name))

	c.rawFn(name+"_pop", elem, []ir.Param{self}, `    self->len--;
    return self->data[self->len];`)

	c.rawFn(name+"_get", elem, []ir.Param{self, p("int", "index")}, `    return self->data[index];`)
	c.rawFn(name+"_set", "void", []ir.Param{self, p("int", "index"), p(elem, "value")}, `    self->data[index] = value;`)
	c.rawFn(name+"_size", "int", []ir.Param{self}, `    return self->len;`)
	c.rawFn(name+"_isEmpty", "bool", []ir.Param{self}, `    return self->len == 0;`)
	c.rawFn(name+"_clear", "void", []ir.Param{self}, `    self->len = 0;`)

	eq := "self->data[i] == value"
	if isString {
		eq = "strcmp(self->data[i], value) == 0"
	}
	c.rawFn(name+"_contains", "bool", []ir.Param{self, p(elem, "value")}, fmt.Sprintf(`    for (int i = 0; i < self->len; i++) if (%s) return true;
    return false;`, eq))
	c.rawFn(name+"_indexOf", "int", []ir.Param{self, p(elem, "value")}, fmt.Sprintf(`    for (int i = 0; i < self->len; i++) if (%s) return i;
    return -1;`, eq))
	c.rawFn(name+"_lastIndexOf", "int", []ir.Param{self, p(elem, "value")}, fmt.Sprintf(`    for (int i = self->len - 1; i >= 0; i--) if (%s) return i;
    return -1;`, eq))
	c.rawFn(name+"_count", "int", []ir.Param{self, p(elem, "value")}, fmt.Sprintf(`    int n = 0;
    for (int i = 0; i < self->len; i++) if (%s) n++;
    return n;`, eq))

	c.rawFn(name+"_removeAt", elem, []ir.Param{self, p("int", "index")}, fmt.Sprintf(`    %s value = self->data[index];
    for (int i = index; i < self->len - 1; i++) self->data[i] = self->data[i+1];
    self->len--;
    return value;`, elem))
	c.rawFn(name+"_remove", "void", []ir.Param{self, p(elem, "value")}, fmt.Sprintf(`    int idx = %s_indexOf(self, value);
    if (idx >= 0) %s_removeAt(self, idx);`, name, name))
	c.rawFn(name+"_removeAll", "void", []ir.Param{self, p(elem, "value")}, fmt.Sprintf(`    int w = 0;
    for (int i = 0; i < self->len; i++) {
        if (!(%s)) self->data[w++] = self->data[i];
    }
    self->len = w;`, eq))
	c.rawFn(name+"_insert", "void", []ir.Param{self, p("int", "index"), p(elem, "value")}, fmt.Sprintf(`    %[1]s_ensure_cap(self, 1);
    for (int i = self->len; i > index; i--) self->data[i] = self->data[i-1];
    self->data[index] = value;
    self->len++;`, name))

	c.rawFn(name+"_reverse", "void", []ir.Param{self}, `    for (int i = 0, j = self->len - 1; i < j; i++, j--) {
        __typeof__(self->data[0]) tmp = self->data[i];
        self->data[i] = self->data[j];
        self->data[j] = tmp;
    }`)
	c.rawFn(name+"_reversed", name+"*", []ir.Param{self}, fmt.Sprintf(`    %[1]s* out = %[1]s_new();
    for (int i = self->len - 1; i >= 0; i--) %[1]s_push(out, self->data[i]);
    return out;`, name))
	c.rawFn(name+"_copy", name+"*", []ir.Param{self}, fmt.Sprintf(`    %[1]s* out = %[1]s_new();
    for (int i = 0; i < self->len; i++) %[1]s_push(out, self->data[i]);
    return out;`, name))
	c.rawFn(name+"_slice", name+"*", []ir.Param{self, p("int", "start"), p("int", "end")}, fmt.Sprintf(`    %[1]s* out = %[1]s_new();
    for (int i = start; i < end && i < self->len; i++) %[1]s_push(out, self->data[i]);
    return out;`, name))
	c.rawFn(name+"_take", name+"*", []ir.Param{self, p("int", "n")}, fmt.Sprintf(`    return %s_slice(self, 0, n);`, name))
	c.rawFn(name+"_drop", name+"*", []ir.Param{self, p("int", "n")}, fmt.Sprintf(`    return %s_slice(self, n, self->len);`, name))
	c.rawFn(name+"_extend", "void", []ir.Param{self, p("struct "+name+"*", "other")}, fmt.Sprintf(`    for (int i = 0; i < other->len; i++) %s_push(self, other->data[i]);`, name))
	c.rawFn(name+"_swap", "void", []ir.Param{self, p("int", "i"), p("int", "j")}, `    __typeof__(self->data[0]) tmp = self->data[i];
    self->data[i] = self->data[j];
    self->data[j] = tmp;`)
	c.rawFn(name+"_fill", "void", []ir.Param{self, p(elem, "value")}, `    for (int i = 0; i < self->len; i++) self->data[i] = value;`)

	shiftCond := "key < self->data[j]"
	if isString {
		shiftCond = "strcmp(key, self->data[j]) < 0"
	}
	c.rawFn(name+"_sort", "void", []ir.Param{self}, fmt.Sprintf(`    for (int i = 1; i < self->len; i++) {
        %[1]s key = self->data[i];
        int j = i - 1;
        while (j >= 0 && %[2]s) {
            self->data[j+1] = self->data[j];
            j--;
        }
        self->data[j+1] = key;
    }`, elem, shiftCond))
	c.rawFn(name+"_sorted", name+"*", []ir.Param{self}, fmt.Sprintf(`    %[1]s* out = %[1]s_copy(self);
    %[1]s_sort(out);
    return out;`, name))

	distinctEq := "out->data[k] == self->data[i]"
	if isString {
		distinctEq = "strcmp(out->data[k], self->data[i]) == 0"
	}
	c.rawFn(name+"_distinct", name+"*", []ir.Param{self}, fmt.Sprintf(`    %[1]s* out = %[1]s_new();
    for (int i = 0; i < self->len; i++) {
        bool found = false;
        for (int k = 0; k < out->len; k++) if (%[2]s) { found = true; break; }
        if (!found) %[1]s_push(out, self->data[i]);
    }
    return out;`, name, distinctEq))

	if isNumeric {
		c.rawFn(name+"_sum", elem, []ir.Param{self}, fmt.Sprintf(`    %s total = 0;
    for (int i = 0; i < self->len; i++) total += self->data[i];
    return total;`, elem))
		c.rawFn(name+"_min", elem, []ir.Param{self}, `    __typeof__(self->data[0]) m = self->data[0];
    for (int i = 1; i < self->len; i++) if (self->data[i] < m) m = self->data[i];
    return m;`)
		c.rawFn(name+"_max", elem, []ir.Param{self}, `    __typeof__(self->data[0]) m = self->data[0];
    for (int i = 1; i < self->len; i++) if (self->data[i] > m) m = self->data[i];
    return m;`)
	}
	if isString {
		c.rawFn(name+"_join", "char*", []ir.Param{self, p("char*", "sep")}, `    if (self->len == 0) return __btrc_strdup("");
    char* out = __btrc_strdup(self->data[0]);
    for (int i = 1; i < self->len; i++) { out = __btrc_strcat(out, sep); out = __btrc_strcat(out, self->data[i]); }
    return out;`, "__btrc_strdup", "__btrc_strcat")
	}

	fnParam := p("void (*)("+elem+")", "fn")
	predParam := p("bool (*)("+elem+")", "pred")
	mapFnParam := p(elem+" (*)("+elem+")", "fn")
	reduceFnParam := p(elem+" (*)("+elem+", "+elem+")", "fn")

	c.rawFn(name+"_forEach", "void", []ir.Param{self, fnParam}, `    for (int i = 0; i < self->len; i++) fn(self->data[i]);`)
	c.rawFn(name+"_map", name+"*", []ir.Param{self, mapFnParam}, fmt.Sprintf(`    %[1]s* out = %[1]s_new();
    for (int i = 0; i < self->len; i++) %[1]s_push(out, fn(self->data[i]));
    return out;`, name))
	c.rawFn(name+"_filter", name+"*", []ir.Param{self, predParam}, fmt.Sprintf(`    %[1]s* out = %[1]s_new();
    for (int i = 0; i < self->len; i++) if (pred(self->data[i])) %[1]s_push(out, self->data[i]);
    return out;`, name))
	c.rawFn(name+"_reduce", elem, []ir.Param{self, reduceFnParam, p(elem, "initial")}, `    __typeof__(initial) acc = initial;
    for (int i = 0; i < self->len; i++) acc = fn(acc, self->data[i]);
    return acc;`)
	c.rawFn(name+"_findIndex", "int", []ir.Param{self, predParam}, `    for (int i = 0; i < self->len; i++) if (pred(self->data[i])) return i;
    return -1;`)
	c.rawFn(name+"_any", "bool", []ir.Param{self, predParam}, `    for (int i = 0; i < self->len; i++) if (pred(self->data[i])) return true;
    return false;`)
	c.rawFn(name+"_all", "bool", []ir.Param{self, predParam}, `    for (int i = 0; i < self->len; i++) if (!pred(self->data[i])) return false;
    return true;`)
}

// ---- Map<K,V> ----

func (c *Context) lowerMapInstance(inst *mono.Instance) {
	name := inst.MangledName
	keyT, valT := inst.Args[0], inst.Args[1]
	keyC := elemC(c.Reg, keyT)
	valC := elemC(c.Reg, valT)
	isStringKey := typeutil.IsStringType(keyT)
	self := selfParam(name)

	c.Mod.StructDefs = append(c.Mod.StructDefs, &ir.StructDef{
		Name: name,
		Fields: []ir.StructField{
			{CType: ir.CType{Text: keyC + "*"}, Name: "keys"},
			{CType: ir.CType{Text: valC + "*"}, Name: "values"},
			{CType: ir.CType{Text: "bool*"}, Name: "occupied"},
			{CType: ir.CType{Text: "int"}, Name: "len"},
			{CType: ir.CType{Text: "int"}, Name: "cap"},
		},
	})

	hashExpr := "(unsigned)key"
	eqExpr := "self->keys[slot] == key"
	if isStringKey {
		hashExpr = "__btrc_hash_string(key)"
		eqExpr = "strcmp(self->keys[slot], key) == 0"
	}

	c.rawFn(name+"_new", name+"*", nil, fmt.Sprintf(`    %[1]s* self = (%[1]s*)__btrc_alloc(sizeof(%[1]s));
    self->cap = 16;
    self->len = 0;
    self->keys = (%[2]s*)__btrc_alloc(sizeof(%[2]s) * self->cap);
    self->values = (%[3]s*)__btrc_alloc(sizeof(%[3]s) * self->cap);
    self->occupied = (bool*)__btrc_alloc(sizeof(bool) * self->cap);
    return self;`, name, keyC, valC), "__btrc_alloc")

	c.rawFn(name+"_find_slot", "int", []ir.Param{self, p(keyC, "key")}, fmt.Sprintf(`    int slot = %s %% self->cap;
    for (int probe = 0; probe < self->cap; probe++) {
        if (!self->occupied[slot]) return slot;
        if (%s) return slot;
        slot = (slot + 1) %% self->cap;
    }
    return -1;`, hashExpr, eqExpr))

	c.rawFn(name+"_rehash", "void", []ir.Param{self}, fmt.Sprintf(`    int oldCap = self->cap;
    %[2]s* oldKeys = self->keys;
    %[3]s* oldValues = self->values;
    bool* oldOccupied = self->occupied;
    self->cap *= 2;
    self->len = 0;
    self->keys = (%[2]s*)__btrc_alloc(sizeof(%[2]s) * self->cap);
    self->values = (%[3]s*)__btrc_alloc(sizeof(%[3]s) * self->cap);
    self->occupied = (bool*)__btrc_alloc(sizeof(bool) * self->cap);
    for (int i = 0; i < oldCap; i++) {
        if (oldOccupied[i]) %[1]s_put(self, oldKeys[i], oldValues[i]);
    }`, name, keyC, valC), "__btrc_alloc")

	c.rawFn(name+"_put", "void", []ir.Param{self, p(keyC, "key"), p(valC, "value")}, fmt.Sprintf(`    if ((self->len + 1) * 4 >= self->cap * 3) %[1]s_rehash(self);
    int slot = %[1]s_find_slot(self, key);
    if (!self->occupied[slot]) self->len++;
    self->keys[slot] = key;
    self->values[slot] = value;
    self->occupied[slot] = true;`, name))
	c.rawFn(name+"_get", valC, []ir.Param{self, p(keyC, "key")}, fmt.Sprintf(`    int slot = %s_find_slot(self, key);
    return self->values[slot];`, name))
	c.rawFn(name+"_containsKey", "bool", []ir.Param{self, p(keyC, "key")}, fmt.Sprintf(`    int slot = %s_find_slot(self, key);
    return self->occupied[slot];`, name))
	c.rawFn(name+"_remove", "void", []ir.Param{self, p(keyC, "key")}, fmt.Sprintf(`    int slot = %s_find_slot(self, key);
    if (self->occupied[slot]) { self->occupied[slot] = false; self->len--; }`, name))
	c.rawFn(name+"_size", "int", []ir.Param{self}, `    return self->len;`)
	c.rawFn(name+"_isEmpty", "bool", []ir.Param{self}, `    return self->len == 0;`)
	c.rawFn(name+"_clear", "void", []ir.Param{self}, `    for (int i = 0; i < self->cap; i++) self->occupied[i] = false;
    self->len = 0;`)
	c.rawFn(name+"_keys", "btrc_List_"+keyC+"*", []ir.Param{self}, fmt.Sprintf(`    btrc_List_%[1]s* out = btrc_List_%[1]s_new();
    for (int i = 0; i < self->cap; i++) if (self->occupied[i]) btrc_List_%[1]s_push(out, self->keys[i]);
    return out;`, sanitizeMangle(keyC)))
	c.rawFn(name+"_values", "btrc_List_"+valC+"*", []ir.Param{self}, fmt.Sprintf(`    btrc_List_%[1]s* out = btrc_List_%[1]s_new();
    for (int i = 0; i < self->cap; i++) if (self->occupied[i]) btrc_List_%[1]s_push(out, self->values[i]);
    return out;`, sanitizeMangle(valC)))
}

// ---- Set<T> ----

func (c *Context) lowerSetInstance(inst *mono.Instance) {
	name := inst.MangledName
	elemT := inst.Args[0]
	elem := elemC(c.Reg, elemT)
	isString := typeutil.IsStringType(elemT)
	self := selfParam(name)

	c.Mod.StructDefs = append(c.Mod.StructDefs, &ir.StructDef{
		Name: name,
		Fields: []ir.StructField{
			{CType: ir.CType{Text: elem + "*"}, Name: "keys"},
			{CType: ir.CType{Text: "bool*"}, Name: "occupied"},
			{CType: ir.CType{Text: "int"}, Name: "len"},
			{CType: ir.CType{Text: "int"}, Name: "cap"},
		},
	})

	hashExpr := "(unsigned)key"
	eqExpr := "self->keys[slot] == key"
	if isString {
		hashExpr = "__btrc_hash_string(key)"
		eqExpr = "strcmp(self->keys[slot], key) == 0"
	}

	c.rawFn(name+"_new", name+"*", nil, fmt.Sprintf(`    %[1]s* self = (%[1]s*)__btrc_alloc(sizeof(%[1]s));
    self->cap = 16;
    self->len = 0;
    self->keys = (%[2]s*)__btrc_alloc(sizeof(%[2]s) * self->cap);
    self->occupied = (bool*)__btrc_alloc(sizeof(bool) * self->cap);
    return self;`, name, elem), "__btrc_alloc")

	c.rawFn(name+"_find_slot", "int", []ir.Param{self, p(elem, "key")}, fmt.Sprintf(`    int slot = %s %% self->cap;
    for (int probe = 0; probe < self->cap; probe++) {
        if (!self->occupied[slot]) return slot;
        if (%s) return slot;
        slot = (slot + 1) %% self->cap;
    }
    return -1;`, hashExpr, eqExpr))

	c.rawFn(name+"_rehash", "void", []ir.Param{self}, fmt.Sprintf(`    int oldCap = self->cap;
    %[2]s* oldKeys = self->keys;
    bool* oldOccupied = self->occupied;
    self->cap *= 2;
    self->len = 0;
    self->keys = (%[2]s*)__btrc_alloc(sizeof(%[2]s) * self->cap);
    self->occupied = (bool*)__btrc_alloc(sizeof(bool) * self->cap);
    for (int i = 0; i < oldCap; i++) {
        if (oldOccupied[i]) %[1]s_add(self, oldKeys[i]);
    }`, name, elem), "__btrc_alloc")

	c.rawFn(name+"_add", "void", []ir.Param{self, p(elem, "key")}, fmt.Sprintf(`    if ((self->len + 1) * 4 >= self->cap * 3) %[1]s_rehash(self);
    int slot = %[1]s_find_slot(self, key);
    if (!self->occupied[slot]) { self->occupied[slot] = true; self->keys[slot] = key; self->len++; }`, name))
	c.rawFn(name+"_contains", "bool", []ir.Param{self, p(elem, "key")}, fmt.Sprintf(`    int slot = %s_find_slot(self, key);
    return self->occupied[slot];`, name))
	c.rawFn(name+"_remove", "void", []ir.Param{self, p(elem, "key")}, fmt.Sprintf(`    int slot = %s_find_slot(self, key);
    if (self->occupied[slot]) { self->occupied[slot] = false; self->len--; }`, name))
	c.rawFn(name+"_size", "int", []ir.Param{self}, `    return self->len;`)
	c.rawFn(name+"_isEmpty", "bool", []ir.Param{self}, `    return self->len == 0;`)
	c.rawFn(name+"_clear", "void", []ir.Param{self}, `    for (int i = 0; i < self->cap; i++) self->occupied[i] = false;
    self->len = 0;`)
}

func sanitizeMangle(ctype string) string {
	return strings.ReplaceAll(strings.TrimSuffix(ctype, "*"), " ", "_")
}

// ---- user generic classes ----

// lowerUserGenericInstance emits the substituted struct and method set
// for one concrete instantiation of a user generic class: same layout
// rules as lowerClass (gen_class.go), but field/method types already
// carry their bound type arguments in place of the class's type
// parameters (internal/mono did the substitution).
func (c *Context) lowerUserGenericInstance(inst *mono.Instance) {
	name := inst.MangledName
	info := c.Analyzed.Classes[inst.Base]

	var fields []ir.StructField
	fields = append(fields, ir.StructField{CType: ir.CType{Text: "int"}, Name: "__rc"})
	for _, f := range inst.Fields {
		fields = append(fields, ir.StructField{CType: c.cType(f.Type), Name: f.Name})
	}
	c.Mod.StructDefs = append(c.Mod.StructDefs, &ir.StructDef{Name: name, Fields: fields})

	prevClass := c.currentClass
	c.currentClass = name
	fieldEnv := map[string]*ast.TypeExpr{}
	for _, f := range inst.Fields {
		fieldEnv[f.Name] = f.Type
	}

	for _, m := range inst.Methods {
		if m.Body == nil {
			continue
		}
		params := []ir.Param{{CType: ir.CType{Text: "struct " + name + "*"}, Name: "self"}}
		env := map[string]*ast.TypeExpr{"self": {Base: name}}
		for k, v := range fieldEnv {
			env[k] = v
		}
		for _, prm := range m.Sig.Params {
			params = append(params, ir.Param{CType: c.cType(prm.Type), Name: prm.Name})
			env[prm.Name] = prm.Type
		}
		c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, &ir.FunctionDef{
			Name:       name + "_" + m.Name,
			ReturnType: c.cType(m.Sig.ReturnType),
			Params:     params,
			Body:       c.lowerBlockScoped(m.Body, env),
			IsStatic:   true,
		})
	}
	c.currentClass = prevClass

	var ctorParams []ast.Param
	if info != nil && info.Ctor != nil {
		ctorParams = info.Ctor.Sig.Params
	}
	irParams := make([]ir.Param, len(ctorParams))
	ctorEnv := map[string]*ast.TypeExpr{}
	for i, prm := range ctorParams {
		sub := substituteGenericParam(prm.Type, info, inst)
		irParams[i] = ir.Param{CType: c.cType(sub), Name: prm.Name}
		ctorEnv[prm.Name] = sub
	}

	selfType := ir.CType{Text: "struct " + name + "*"}
	stmts := []ir.Stmt{
		&ir.VarDecl{CType: selfType, Name: "self", Init: &ir.Cast{TargetType: selfType, Expr: &ir.Call{Callee: "__btrc_alloc", Args: []ir.Expr{&ir.Sizeof{Operand: "struct " + name}}, HelperRef: "__btrc_alloc"}}},
		&ir.Assign{Target: &ir.FieldAccess{Obj: &ir.Var{Name: "self"}, Field: "__rc", Arrow: true}, Value: &ir.Literal{Text: "1"}},
	}
	prevClass = c.currentClass
	c.currentClass = name
	c.pushScope(ctorEnv)
	for k, v := range fieldEnv {
		c.declareLocal(k, v)
	}
	for _, f := range inst.Fields {
		if info == nil {
			continue
		}
		if orig, ok := info.Fields[f.Name]; ok && orig.Initializer != nil {
			stmts = append(stmts, &ir.Assign{Target: &ir.FieldAccess{Obj: &ir.Var{Name: "self"}, Field: f.Name, Arrow: true}, Value: c.lowerExprWithHint(orig.Initializer, f.Type)})
		}
	}
	if info != nil && info.Ctor != nil && info.Ctor.Body != nil {
		stmts = append(stmts, c.lowerBlock(info.Ctor.Body).Stmts...)
	}
	c.popScope()
	c.currentClass = prevClass
	stmts = append(stmts, &ir.Return{Value: &ir.Var{Name: "self"}})

	c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, &ir.FunctionDef{
		Name: name + "_new", ReturnType: selfType, Params: irParams,
		Body: &ir.Block{Stmts: stmts}, IsStatic: true,
	})

	var destroyStmts []ir.Stmt
	for _, f := range inst.Fields {
		if !c.isHeapObjectType(f.Type) {
			continue
		}
		destroyStmts = append(destroyStmts, &ir.ExprStmt{Expr: releaseCall(&ir.FieldAccess{Obj: &ir.Var{Name: "self"}, Field: f.Name, Arrow: true}, f.Type.Base)})
	}
	destroyStmts = append(destroyStmts, &ir.ExprStmt{Expr: &ir.Call{Callee: "free", Args: []ir.Expr{&ir.Var{Name: "self"}}}})
	c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, &ir.FunctionDef{
		Name: name + "_destroy", ReturnType: ir.CType{Text: "void"}, Params: []ir.Param{{CType: selfType, Name: "self"}},
		Body: &ir.Block{Stmts: destroyStmts}, IsStatic: true,
	})
}

// substituteGenericParam maps a constructor parameter's declared type
// (possibly a bare type parameter like T) to the concrete type bound
// for this instance, by position against info.Generics/inst.Args.
func substituteGenericParam(t *ast.TypeExpr, info *resolve.ClassInfo, inst *mono.Instance) *ast.TypeExpr {
	if t == nil || info == nil {
		return t
	}
	for i, g := range info.Generics {
		if g == t.Base && i < len(inst.Args) {
			return inst.Args[i]
		}
	}
	return t
}

// ---- expression lowering for collection-typed code ----

// lowerCollectionMethodCall routes `coll.method(args)` to the
// monomorphized instance's `<mangled>_<method>` function, mangling the
// receiver's concrete type arguments to find it.
func (c *Context) lowerCollectionMethodCall(objType *ast.TypeExpr, obj ir.Expr, method string, args []ir.Expr) ir.Expr {
	mangled := typeutil.MangleGenericType(objType.Base, objType.Args)
	return &ir.Call{Callee: mangled + "_" + method, Args: append([]ir.Expr{obj}, args...)}
}

// lowerIndexExpr lowers `coll[index]`: a List indexes its backing
// array directly (cheaper than a function call and valid as an
// assignment target), a Map goes through the generated `_get`
// function (gen_stmt.go's lowerAssign special-cases the write side,
// since a hash lookup has no C lvalue form), and any other receiver,
// a Set included, is indexed as a plain C array.
func (c *Context) lowerIndexExpr(x *ast.IndexExpr) ir.Expr {
	obj := c.lowerExpr(x.Obj)
	index := c.lowerExpr(x.Index)
	objType := c.exprType(x.Obj)
	if objType != nil && objType.Base == "List" {
		return &ir.Index{Obj: &ir.FieldAccess{Obj: obj, Field: "data", Arrow: true}, Index: index}
	}
	if objType != nil && objType.Base == "Map" {
		return c.lowerCollectionMethodCall(objType, obj, "get", []ir.Expr{index})
	}
	return &ir.Index{Obj: obj, Index: index}
}

// collectionHint returns the current typeHint when its base is the
// given List/Map/Set name, and nil otherwise; callers then infer the
// element type from the literal's own contents (a bare argument, a
// nested literal).
func (c *Context) collectionHint(base string) *ast.TypeExpr {
	if c.typeHint != nil && c.typeHint.Base == base {
		return c.typeHint
	}
	return nil
}

func (c *Context) lowerListLiteral(x *ast.ListLiteral) ir.Expr {
	hint := c.collectionHint("List")
	elemType := &ast.TypeExpr{Base: "int"}
	if hint != nil && len(hint.Args) > 0 {
		elemType = hint.Args[0]
	} else if len(x.Elements) > 0 {
		if t := c.exprType(x.Elements[0]); t != nil {
			elemType = t
		}
	}
	mangled := typeutil.MangleGenericType("List", []*ast.TypeExpr{elemType})

	stmts := []ir.Stmt{
		&ir.VarDecl{CType: ir.CType{Text: mangled + "*"}, Name: "__lit", Init: &ir.Call{Callee: mangled + "_new"}},
	}
	for _, el := range x.Elements {
		stmts = append(stmts, &ir.ExprStmt{Expr: &ir.Call{Callee: mangled + "_push", Args: []ir.Expr{&ir.Var{Name: "__lit"}, c.lowerExprWithHint(el, elemType)}}})
	}
	return &ir.StmtExpr{Stmts: stmts, Result: &ir.Var{Name: "__lit"}}
}

func (c *Context) lowerMapLiteral(x *ast.MapLiteral) ir.Expr {
	hint := c.collectionHint("Map")
	keyType := &ast.TypeExpr{Base: "string"}
	valType := &ast.TypeExpr{Base: "int"}
	if hint != nil && len(hint.Args) > 1 {
		keyType, valType = hint.Args[0], hint.Args[1]
	} else if len(x.Entries) > 0 {
		if t := c.exprType(x.Entries[0].Key); t != nil {
			keyType = t
		}
		if t := c.exprType(x.Entries[0].Value); t != nil {
			valType = t
		}
	}
	mangled := typeutil.MangleGenericType("Map", []*ast.TypeExpr{keyType, valType})

	stmts := []ir.Stmt{
		&ir.VarDecl{CType: ir.CType{Text: mangled + "*"}, Name: "__lit", Init: &ir.Call{Callee: mangled + "_new"}},
	}
	for _, entry := range x.Entries {
		stmts = append(stmts, &ir.ExprStmt{Expr: &ir.Call{Callee: mangled + "_put", Args: []ir.Expr{
			&ir.Var{Name: "__lit"},
			c.lowerExprWithHint(entry.Key, keyType),
			c.lowerExprWithHint(entry.Value, valType),
		}}})
	}
	return &ir.StmtExpr{Stmts: stmts, Result: &ir.Var{Name: "__lit"}}
}

func (c *Context) lowerSetLiteral(x *ast.SetLiteral) ir.Expr {
	hint := c.collectionHint("Set")
	elemType := &ast.TypeExpr{Base: "int"}
	if hint != nil && len(hint.Args) > 0 {
		elemType = hint.Args[0]
	} else if len(x.Elements) > 0 {
		if t := c.exprType(x.Elements[0]); t != nil {
			elemType = t
		}
	}
	mangled := typeutil.MangleGenericType("Set", []*ast.TypeExpr{elemType})

	stmts := []ir.Stmt{
		&ir.VarDecl{CType: ir.CType{Text: mangled + "*"}, Name: "__lit", Init: &ir.Call{Callee: mangled + "_new"}},
	}
	for _, el := range x.Elements {
		stmts = append(stmts, &ir.ExprStmt{Expr: &ir.Call{Callee: mangled + "_add", Args: []ir.Expr{&ir.Var{Name: "__lit"}, c.lowerExprWithHint(el, elemType)}}})
	}
	return &ir.StmtExpr{Stmts: stmts, Result: &ir.Var{Name: "__lit"}}
}

// lowerBraceInitializer lowers a bare `{}` / `{a, b}` initializer,
// whose meaning depends entirely on the declared target type: a List
// or Set of the hinted type holding the given elements, an empty Map
// of the hinted type (any elements are dropped), or, with no
// collection hint, a C99 designated-less aggregate initializer.
func (c *Context) lowerBraceInitializer(x *ast.BraceInitializer) ir.Expr {
	hint := c.typeHint
	if hint != nil {
		switch hint.Base {
		case "List":
			return c.lowerListLiteral(&ast.ListLiteral{Elements: x.Elements})
		case "Map":
			return &ir.Call{Callee: typeutil.MangleGenericType("Map", hint.Args) + "_new"}
		case "Set":
			return c.lowerSetLiteral(&ast.SetLiteral{Elements: x.Elements})
		}
	}
	parts := make([]string, len(x.Elements))
	for i, el := range x.Elements {
		parts[i] = c.renderExpr(c.lowerExpr(el))
	}
	return &ir.RawExpr{Text: "{" + strings.Join(parts, ", ") + "}"}
}

func (c *Context) lowerTupleLiteral(x *ast.TupleLiteral) ir.Expr {
	elemTypes := make([]*ast.TypeExpr, len(x.Elements))
	for i, el := range x.Elements {
		t := c.exprType(el)
		if t == nil {
			t = &ast.TypeExpr{Base: "int"}
		}
		elemTypes[i] = t
	}
	mangled := c.Reg.MangleTupleType(&ast.TypeExpr{Base: "Tuple", Args: elemTypes})
	fieldNames := make([]string, len(x.Elements))
	for i := range x.Elements {
		fieldNames[i] = fmt.Sprintf("_%d", i)
	}

	parts := make([]string, len(x.Elements))
	for i, el := range x.Elements {
		parts[i] = fmt.Sprintf(".%s = %s", fieldNames[i], c.renderExpr(c.lowerExprWithHint(el, elemTypes[i])))
	}
	return &ir.RawExpr{Text: "(" + mangled + "){" + strings.Join(parts, ", ") + "}"}
}

// lowerLen lowers `len(x)`, dispatching to the collection's own size
// function for List/Map/Set and to strlen for strings.
func (c *Context) lowerLen(x *ast.LenExpr) ir.Expr {
	tupleType := c.exprType(x.Operand)
	operand := c.lowerExpr(x.Operand)
	if tupleType != nil && typeutil.IsStringType(tupleType) {
		return &ir.Call{Callee: "strlen", Args: []ir.Expr{operand}}
	}
	if tupleType != nil && typeutil.IsCollectionType(tupleType) {
		mangled := typeutil.MangleGenericType(tupleType.Base, tupleType.Args)
		return &ir.Call{Callee: mangled + "_size", Args: []ir.Expr{operand}}
	}
	return &ir.Call{Callee: "len", Args: []ir.Expr{operand}}
}
