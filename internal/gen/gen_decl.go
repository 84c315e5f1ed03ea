package gen

import (
	"fmt"

	"github.com/btrc-lang/btrc/internal/ir"
)

// lowerTypedefs emits a C typedef for every BTRC type alias.
func (c *Context) lowerTypedefs() {
	for _, name := range sortedKeys(c.Analyzed.Typedefs) {
		t := c.Analyzed.Typedefs[name]
		c.Mod.ForwardDecls = append(c.Mod.ForwardDecls,
			fmt.Sprintf("typedef %s %s;", c.Reg.TypeToC(t), name))
	}
}

// lowerStructs emits every plain (non-ARC-managed) struct declaration
// verbatim: structs have no constructor/destructor/vtable machinery,
// just a field list.
func (c *Context) lowerStructs() {
	for _, name := range sortedKeys(c.Analyzed.Structs) {
		decl := c.Analyzed.Structs[name]
		fields := make([]ir.StructField, len(decl.Fields))
		for i, f := range decl.Fields {
			fields[i] = ir.StructField{CType: c.cType(f.Type), Name: f.Name}
		}
		c.Mod.StructDefs = append(c.Mod.StructDefs, &ir.StructDef{Name: name, Fields: fields})
	}
}
