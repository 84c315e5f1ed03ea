package mono

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btrc-lang/btrc/internal/parser"
	"github.com/btrc-lang/btrc/internal/resolve"
	"github.com/btrc-lang/btrc/internal/typeutil"
)

func TestPlanEmitsBuiltinList(t *testing.T) {
	src := `
void main() {
    List<int> xs = {};
}
`
	prog, err := parser.Parse("test.btrc", src)
	require.NoError(t, err)
	analyzed := resolve.Resolve("test.btrc", prog)
	require.Empty(t, analyzed.Errors)

	plan := Plan(analyzed, typeutil.NewRegistry())
	require.Len(t, plan, 1)
	assert.Equal(t, KindBuiltinList, plan[0].Kind)
	assert.Equal(t, "btrc_List_int", plan[0].MangledName)
}

func TestPlanSubstitutesUserClassFields(t *testing.T) {
	src := `
class Box<T> {
    T value;
}
void main() {
    Box<string> b = new Box<string>("hi");
}
`
	prog, err := parser.Parse("test.btrc", src)
	require.NoError(t, err)
	analyzed := resolve.Resolve("test.btrc", prog)
	require.Empty(t, analyzed.Errors)

	plan := Plan(analyzed, typeutil.NewRegistry())
	require.Len(t, plan, 1)
	inst := plan[0]
	assert.Equal(t, KindUserClass, inst.Kind)
	require.Len(t, inst.Fields, 1)
	assert.Equal(t, "string", inst.Fields[0].Type.Base)
}
