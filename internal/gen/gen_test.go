package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btrc-lang/btrc/internal/emit"
	"github.com/btrc-lang/btrc/internal/parser"
	"github.com/btrc-lang/btrc/internal/resolve"
)

// compile is the shared test harness: parse, resolve, generate, emit,
// failing the test on any error from the first three stages (tests
// exercise gen's lowering, not parser/resolver error handling).
func compile(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.Parse("test.btrc", src)
	require.NoError(t, err)

	analyzed := resolve.Resolve("test.btrc", prog)
	require.Empty(t, analyzed.Errors)

	mod := Generate(analyzed)
	return emit.Module(mod)
}

func TestLowerLambdaCapturesFreeVariable(t *testing.T) {
	src := `
int main() {
    int offset = 10;
    List<int> xs = [1, 2, 3];
    List<int> ys = xs.filter((x) => x > offset);
    return 0;
}
`
	out := compile(t, src)
	assert.Contains(t, out, "__btrc_lambda_1")
	assert.Contains(t, out, "__btrc_lambda_1_capture")
}

func TestLowerLambdaNoCaptureHasNoStaticGlobal(t *testing.T) {
	src := `
int main() {
    List<int> xs = [1, 2, 3];
    List<int> ys = xs.filter((x) => x > 0);
    return 0;
}
`
	out := compile(t, src)
	assert.Contains(t, out, "__btrc_lambda_1")
	assert.NotContains(t, out, "__btrc_lambda_1_capture")
}

func TestLowerFStringRoutesBoolThroughFmtBool(t *testing.T) {
	src := `
int main() {
    bool ready = true;
    print(f"ready={ready}");
    return 0;
}
`
	out := compile(t, src)
	assert.Contains(t, out, "__btrc_fmt_bool")
}

func TestLowerSpawnLiftsThreadFunction(t *testing.T) {
	src := `
void worker(int n) { print(n); }
int main() {
    spawn worker(42);
    return 0;
}
`
	out := compile(t, src)
	assert.Contains(t, out, "__btrc_thread_spawn")
	assert.Contains(t, out, "__btrc_thread_fn_")
}

func TestLowerMutexBoxesRawInit(t *testing.T) {
	src := `
int main() {
    Mutex<int> m = Mutex(0);
    return 0;
}
`
	out := compile(t, src)
	assert.Contains(t, out, "__btrc_mutex_new")
}

func TestLowerParallelForDispatchesGPUHelper(t *testing.T) {
	src := `
int main() {
    for parallel (int i = 0; i < 100; i++) {
        print(i);
    }
    return 0;
}
`
	out := compile(t, src)
	assert.Contains(t, out, "__btrc_gpu_dispatch")
	assert.Contains(t, out, "__btrc_gpu_kernel_")
}

func TestLowerStaticMethodOmitsSelfParamAndDispatchesByClassName(t *testing.T) {
	src := `
class Counter {
    static int zero() { return 0; }
}
int main() {
    int n = Counter.zero();
    print(n);
    return 0;
}
`
	out := compile(t, src)
	assert.Contains(t, out, "Counter_zero(void)")
	assert.NotContains(t, out, "Counter_zero(struct Counter")
}

func TestLowerClassFlattensAncestorFieldsAndRunsTheirInitializers(t *testing.T) {
	src := `
class Animal {
    string species = "canine";
}
class Dog extends Animal {
    string breed = "mutt";
    Dog() { self.breed = "mutt"; }
}
int main() {
    Dog d = Dog();
    print(d.species);
    print(d.breed);
    return 0;
}
`
	out := compile(t, src)
	assert.Contains(t, out, "struct Dog")
	assert.NotContains(t, out, "__base")
	assert.NotContains(t, out, "__vtable")
	assert.Contains(t, out, `self->species = "canine"`)
}

func TestLowerInheritedMethodGetsAccessorWrapperNotVtable(t *testing.T) {
	src := `
class A {
    public int f() { return 1; }
    public int g() { return 2; }
}
class B extends A {
    public int f() { return 3; }
}
int main() {
    B b = B();
    print(b.f());
    print(b.g());
    return 0;
}
`
	out := compile(t, src)
	assert.Contains(t, out, "B_f(struct B")
	assert.Contains(t, out, "B_g(struct B")
	assert.Contains(t, out, "A_g((struct A*)(self")
	assert.NotContains(t, out, "__vtable")
}

func TestLowerBareClassCallConstructsInstance(t *testing.T) {
	src := `
class A {
    public int f() { return 1; }
}
int main() {
    A a = A();
    print(a.f());
    return 0;
}
`
	out := compile(t, src)
	assert.Contains(t, out, "A_new()")
}

func TestLowerTryCatchDispatchesByExprIfNotSwitchCase(t *testing.T) {
	src := `
int main() {
    try {
        throw "x";
    } catch (string e) {
        print(e);
    }
    return 0;
}
`
	out := compile(t, src)
	assert.Contains(t, out, `strcmp(`)
	assert.Contains(t, out, `"char*"`)
	assert.NotContains(t, out, "switch (1)")
	assert.NotContains(t, out, "case strcmp")
}

func TestLowerForInMapBindsKeyAndValue(t *testing.T) {
	src := `
int main() {
    Map<string, int> scores = {};
    scores.put("a", 1);
    for (k, v in scores) {
        print(f"{k}={v}");
    }
    return 0;
}
`
	out := compile(t, src)
	assert.NotEmpty(t, out)
	assert.Contains(t, out, "char* k = ")
	assert.Contains(t, out, "int v = ")
}
