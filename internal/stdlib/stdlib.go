// Package stdlib holds BTRC's small built-in class library (Pair,
// Optional, StringBuilder, Stack — List/Map/Set themselves are
// monomorphized directly by internal/mono and need no source form)
// and the shadowing policy the driver applies before parsing user
// code: a class the user redeclares suppresses the entire stdlib file
// it came from, not just that one class (spec's open-question
// resolution — see DESIGN.md). Grounded on the teacher's
// internal/loader.ModuleLoader, which caches parsed module source by
// path; this package caches raw source text by embedded file instead,
// since the stdlib never needs per-program reparsing, only filtering.
package stdlib

import (
	"embed"
	"regexp"
	"sort"
	"sync"
)

//go:embed source/*.btrc
var sourceFS embed.FS

// File is one stdlib source file and the class names it declares.
type File struct {
	Name    string
	Text    string
	Classes []string
}

var (
	once  sync.Once
	files []File
)

var classDeclPattern = regexp.MustCompile(`(?m)^\s*class\s+([A-Za-z_][A-Za-z0-9_]*)`)

// Files returns every embedded stdlib source file, loaded and scanned
// for class declarations once per process.
func Files() []File {
	once.Do(load)
	return files
}

func load() {
	entries, err := sourceFS.ReadDir("source")
	if err != nil {
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := sourceFS.ReadFile("source/" + name)
		if err != nil {
			continue
		}
		text := string(data)
		var classes []string
		for _, m := range classDeclPattern.FindAllStringSubmatch(text, -1) {
			classes = append(classes, m[1])
		}
		files = append(files, File{Name: name, Text: text, Classes: classes})
	}
}

// Filter returns the concatenated source of every stdlib file none of
// whose declared classes appear in userClasses. A file is suppressed
// in its entirety the moment the user shadows any one of its classes,
// even if that file declares others the user didn't touch — preserved
// from the original policy rather than re-derived (DESIGN.md's Open
// Question resolution #1).
func Filter(userClasses map[string]bool) string {
	var out string
	for _, f := range Files() {
		shadowed := false
		for _, c := range f.Classes {
			if userClasses[c] {
				shadowed = true
				break
			}
		}
		if shadowed {
			continue
		}
		out += f.Text
		out += "\n"
	}
	return out
}
