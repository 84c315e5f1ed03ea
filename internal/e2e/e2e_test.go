// Package e2e drives internal/driver.Compile over the literal
// input->expected-stdout scenarios and, where a C toolchain is
// available on the runner, actually compiles and runs the emitted C
// to check its output. The run-and-compare test only tolerates a
// missing toolchain (skip, environment-dependent) — once a compiler
// is on PATH, a compile failure on the emitted C is a hard test
// failure, not a skip, since that's precisely the defect this test
// exists to catch.
package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btrc-lang/btrc/internal/driver"
)

type scenario struct {
	name     string
	source   string
	expected string
}

var scenarios = []scenario{
	{
		name:     "integer_arithmetic",
		source:   `int main(){ int a=10; int b=20; print(a+b); return 0; }`,
		expected: "30\n",
	},
	{
		name:     "string_concat_arc",
		source:   `int main(){ string s="a"; s = s + "b"; print(s); return 0; }`,
		expected: "ab\n",
	},
	{
		name:     "list_sort",
		source:   `int main(){ List<int> xs=[3,1,2]; xs.sort(); for x in xs{ print(x); } return 0; }`,
		expected: "1\n2\n3\n",
	},
	{
		name: "map_round_trip",
		source: `int main(){ Map<int,int> m={};
bool ok=true;
for (int i=0;i<100;i++){ m.put(i, i*i); }
for (int i=0;i<100;i++){ if (m.get(i) != i*i) { ok=false; } }
if (len(m) != 100) { ok=false; }
print(ok);
return 0; }`,
		expected: "true\n",
	},
	{
		name: "inheritance_dispatch",
		source: `class A{public int f(){return 1;}} class B extends A{public int f(){return 2;}}
int main(){ B b=B(); print(b.f()); return 0; }`,
		expected: "2\n",
	},
	{
		name:     "trycatch_propagation",
		source:   `int main(){ try { throw "x"; } catch (string e) { print(e); } return 0; }`,
		expected: "x\n",
	},
}

// TestScenarios_CompileSucceeds checks every literal program in spec
// §8 compiles through the full pipeline without error, independent of
// whether a C toolchain is present to actually run the result.
func TestScenarios_CompileSucceeds(t *testing.T) {
	for _, sc := range scenarios {
		sc := sc
		t.Run(sc.name, func(t *testing.T) {
			result, err := driver.Compile(sc.name+".btrc", sc.source, driver.Options{})
			require.NoError(t, err)
			assert.NotEmpty(t, result.C)
			assert.Contains(t, result.C, "int main")
		})
	}
}

// TestScenarios_RunMatchesExpectedStdout compiles the emitted C with
// the system's cc and checks the binary's stdout against spec §8's
// literal expected output. Skips (not fails) when no C compiler is on
// PATH, matching the teacher's tolerant pattern for environment-
// dependent integration checks.
func TestScenarios_RunMatchesExpectedStdout(t *testing.T) {
	cc, err := exec.LookPath("cc")
	if err != nil {
		cc, err = exec.LookPath("gcc")
	}
	if err != nil {
		t.Skip("no C compiler on PATH, skipping run-and-compare")
	}

	for _, sc := range scenarios {
		sc := sc
		t.Run(sc.name, func(t *testing.T) {
			result, err := driver.Compile(sc.name+".btrc", sc.source, driver.Options{})
			require.NoError(t, err)

			dir := t.TempDir()
			cFile := filepath.Join(dir, sc.name+".c")
			require.NoError(t, os.WriteFile(cFile, []byte(result.C), 0o644))

			binFile := filepath.Join(dir, sc.name)
			build := exec.Command(cc, "-pthread", "-o", binFile, cFile)
			out, err := build.CombinedOutput()
			if err != nil {
				t.Logf("cc output: %s", string(out))
				t.Fatalf("emitted C failed to compile: %v", err)
			}

			run := exec.Command(binFile)
			stdout, err := run.Output()
			require.NoError(t, err)
			assert.Equal(t, sc.expected, string(stdout))
		})
	}
}
