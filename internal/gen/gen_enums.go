package gen

import (
	"fmt"
	"strings"

	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/ir"
)

// lowerEnums lowers every plain enum to a C enum plus a toString
// function mapping each value back to its source name (BTRC enums
// have no backing storage beyond the tag, so toString is table-driven
// off a static array indexed by the enum's int value).
func (c *Context) lowerEnums() {
	for _, name := range sortedKeys(c.Analyzed.Enums) {
		values := c.Analyzed.Enums[name]
		tags := make([]string, len(values))
		for i, v := range values {
			tags[i] = fmt.Sprintf("%s_%s", name, v)
		}
		c.Mod.ForwardDecls = append(c.Mod.ForwardDecls,
			fmt.Sprintf("typedef enum { %s } %s;", strings.Join(tags, ", "), name))

		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = fmt.Sprintf("%q", v)
		}
		body := &ir.Block{Stmts: []ir.Stmt{
			&ir.VarDecl{CType: ir.CType{Text: "static const char *"}, Name: "__names[]", Init: &ir.RawExpr{
				Text: "{ " + strings.Join(quoted, ", ") + " }",
			}},
			&ir.Return{Value: &ir.Index{Obj: &ir.Var{Name: "__names"}, Index: &ir.Cast{TargetType: ir.CType{Text: "int"}, Expr: &ir.Var{Name: "v"}}}},
		}}
		c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, &ir.FunctionDef{
			Name:       name + "_toString",
			ReturnType: ir.CType{Text: "const char*"},
			Params:     []ir.Param{{CType: ir.CType{Text: name}, Name: "v"}},
			Body:       body,
			IsStatic:   true,
		})
	}
}

// lowerRichEnums lowers a tagged-union enum: a tag field plus a union
// of one payload struct per variant carrying fields, and a
// `<Enum>_new<Variant>` constructor per variant.
func (c *Context) lowerRichEnums() {
	for _, name := range sortedKeys(c.Analyzed.RichEnums) {
		variants := c.Analyzed.RichEnums[name]
		tagName := name + "_Tag"
		tags := make([]string, len(variants))
		for i, v := range variants {
			tags[i] = fmt.Sprintf("%s_%s", tagName, v.Name)
		}
		c.Mod.ForwardDecls = append(c.Mod.ForwardDecls,
			fmt.Sprintf("typedef enum { %s } %s;", strings.Join(tags, ", "), tagName))

		var unionFields []ir.StructField
		for _, v := range variants {
			if len(v.Fields) == 0 {
				continue
			}
			payloadName := name + "_" + v.Name + "_Payload"
			fields := make([]ir.StructField, len(v.Fields))
			for i, f := range v.Fields {
				fields[i] = ir.StructField{CType: c.cType(f.Type), Name: f.Name}
			}
			c.Mod.StructDefs = append(c.Mod.StructDefs, &ir.StructDef{Name: payloadName, Fields: fields})
			unionFields = append(unionFields, ir.StructField{CType: ir.CType{Text: payloadName}, Name: "as_" + v.Name})
		}

		fields := []ir.StructField{{CType: ir.CType{Text: tagName}, Name: "tag"}}
		if len(unionFields) > 0 {
			var sb strings.Builder
			sb.WriteString("union { ")
			for _, f := range unionFields {
				sb.WriteString(f.CType.Text)
				sb.WriteString(" ")
				sb.WriteString(f.Name)
				sb.WriteString("; ")
			}
			sb.WriteString("}")
			fields = append(fields, ir.StructField{CType: ir.CType{Text: sb.String()}, Name: "payload"})
		}
		c.Mod.StructDefs = append(c.Mod.StructDefs, &ir.StructDef{Name: name, Fields: fields})

		for _, v := range variants {
			c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, c.lowerRichEnumCtor(name, tagName, v))
		}
	}
}

func (c *Context) lowerRichEnumCtor(enumName, tagName string, v ast.RichEnumVariant) *ir.FunctionDef {
	params := make([]ir.Param, len(v.Fields))
	var assigns []ir.Stmt
	for i, f := range v.Fields {
		params[i] = ir.Param{CType: c.cType(f.Type), Name: f.Name}
		assigns = append(assigns, &ir.Assign{
			Target: &ir.FieldAccess{Obj: &ir.Var{Name: "__result"}, Field: "payload.as_" + v.Name + "." + f.Name},
			Value:  &ir.Var{Name: f.Name},
		})
	}
	stmts := []ir.Stmt{
		&ir.VarDecl{CType: ir.CType{Text: enumName}, Name: "__result"},
		&ir.Assign{Target: &ir.FieldAccess{Obj: &ir.Var{Name: "__result"}, Field: "tag"}, Value: &ir.Literal{Text: tagName + "_" + v.Name}},
	}
	stmts = append(stmts, assigns...)
	stmts = append(stmts, &ir.Return{Value: &ir.Var{Name: "__result"}})

	return &ir.FunctionDef{
		Name:       enumName + "_new" + v.Name,
		ReturnType: ir.CType{Text: enumName},
		Params:     params,
		Body:       &ir.Block{Stmts: stmts},
	}
}
