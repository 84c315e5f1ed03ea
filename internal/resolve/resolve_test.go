package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btrc-lang/btrc/internal/parser"
)

func TestResolveClassTable(t *testing.T) {
	src := `
class Animal {
    string name;
    Animal(string name) { self.name = name; }
    string speak() { return "..."; }
}
class Dog extends Animal {
    Dog(string name) { self.name = name; }
    string speak() { return "Woof"; }
}
`
	prog, err := parser.Parse("test.btrc", src)
	require.NoError(t, err)

	out := Resolve("test.btrc", prog)
	require.Empty(t, out.Errors)

	require.Contains(t, out.Classes, "Animal")
	require.Contains(t, out.Classes, "Dog")
	assert.Equal(t, "Animal", out.Classes["Dog"].Parent)
	assert.Contains(t, out.Classes["Animal"].Methods, "speak")
	assert.Equal(t, "destroy", out.Classes["Animal"].DestructorName)
}

func TestResolveUnknownParentIsError(t *testing.T) {
	src := `
class Cat extends Ghost {
    string name;
}
`
	prog, err := parser.Parse("test.btrc", src)
	require.NoError(t, err)

	out := Resolve("test.btrc", prog)
	require.NotEmpty(t, out.Errors)
	assert.Equal(t, "RES013", out.Errors[0].Code)
}

func TestResolveCyclableFlag(t *testing.T) {
	src := `
class Node {
    Node next;
    int value;
}
`
	prog, err := parser.Parse("test.btrc", src)
	require.NoError(t, err)

	out := Resolve("test.btrc", prog)
	require.Empty(t, out.Errors)
	assert.True(t, out.Classes["Node"].IsCyclable)
}

func TestResolveGenericInstances(t *testing.T) {
	src := `
class Box<T> {
    T value;
}
void main() {
    Box<int> b = new Box<int>(1);
}
`
	prog, err := parser.Parse("test.btrc", src)
	require.NoError(t, err)

	out := Resolve("test.btrc", prog)
	require.Empty(t, out.Errors)
	require.Contains(t, out.GenericInstances, "Box")
	assert.Len(t, out.GenericInstances["Box"], 1)
}
