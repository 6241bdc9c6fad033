// Package codegen renders a generated container/unit tree into Go test
// source. It is one concrete sink for the compiler's output; the core
// pipeline knows nothing about it.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"strconv"
	"strings"

	"speck/speck-go/pkg/gen"
)

const fileHeader = "// Code generated by speck. DO NOT EDIT.\n\n"

// Emitter renders container trees as Go test files for one target package.
type Emitter struct {
	Package string
}

// Source renders root into a formatted Go source file. Test units become
// nested t.Run calls under a single Test function per document; benchmark
// units become top-level Benchmark functions named by their container path.
func (e *Emitter) Source(root *gen.Container) ([]byte, error) {
	if e == nil || e.Package == "" {
		return nil, fmt.Errorf("codegen: emitter requires a package name")
	}
	if root == nil {
		return nil, fmt.Errorf("codegen: nil container tree")
	}

	var body bytes.Buffer
	fmt.Fprintf(&body, "func Test_%s(t *testing.T) {\n", root.Name)
	needs := writeEntries(&body, root, 1)
	fmt.Fprintf(&body, "}\n")

	var benches bytes.Buffer
	if err := writeBenchmarks(&benches, root, nil, map[string]bool{}); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteString(fileHeader)
	fmt.Fprintf(&out, "package %s\n\n", e.Package)
	out.WriteString("import (\n")
	if needs.fmtImport {
		out.WriteString("\t\"fmt\"\n")
	}
	if needs.stringsImport {
		out.WriteString("\t\"strings\"\n")
	}
	out.WriteString("\t\"testing\"\n")
	out.WriteString(")\n\n")
	out.Write(body.Bytes())
	out.Write(benches.Bytes())

	formatted, err := format.Source(out.Bytes())
	if err != nil {
		return nil, fmt.Errorf("codegen: generated source does not format: %w", err)
	}
	return formatted, nil
}

type imports struct {
	fmtImport     bool
	stringsImport bool
}

func (a *imports) merge(b imports) {
	a.fmtImport = a.fmtImport || b.fmtImport
	a.stringsImport = a.stringsImport || b.stringsImport
}

func writeEntries(out *bytes.Buffer, container *gen.Container, depth int) imports {
	var needs imports
	indent := strings.Repeat("\t", depth)
	for _, entry := range container.Entries {
		switch node := entry.(type) {
		case *gen.Unit:
			if node.Kind == gen.ExecBenchmark {
				continue
			}
			needs.merge(writeTestUnit(out, node, depth))
		case *gen.Container:
			fmt.Fprintf(out, "%st.Run(%s, func(t *testing.T) {\n", indent, strconv.Quote(node.Name))
			needs.merge(writeEntries(out, node, depth+1))
			fmt.Fprintf(out, "%s})\n", indent)
		}
	}
	return needs
}

func writeTestUnit(out *bytes.Buffer, unit *gen.Unit, depth int) imports {
	var needs imports
	indent := strings.Repeat("\t", depth)
	inner := indent + "\t"
	fmt.Fprintf(out, "%st.Run(%s, func(t *testing.T) {\n", indent, strconv.Quote(unit.ID))

	switch unit.Kind {
	case gen.ExecSkip:
		fmt.Fprintf(out, "%st.Skip()\n", inner)
	case gen.ExecExpectFailure:
		fmt.Fprintf(out, "%sdefer func() {\n", inner)
		fmt.Fprintf(out, "%s\tr := recover()\n", inner)
		fmt.Fprintf(out, "%s\tif r == nil {\n", inner)
		fmt.Fprintf(out, "%s\t\tt.Fatalf(\"expected failure, but the test completed normally\")\n", inner)
		fmt.Fprintf(out, "%s\t}\n", inner)
		if unit.Pattern != "" {
			needs.fmtImport = true
			needs.stringsImport = true
			fmt.Fprintf(out, "%s\tif !strings.Contains(fmt.Sprint(r), %s) {\n", inner, strconv.Quote(unit.Pattern))
			fmt.Fprintf(out, "%s\t\tt.Fatalf(\"failure %%v does not contain %%q\", r, %s)\n", inner, strconv.Quote(unit.Pattern))
			fmt.Fprintf(out, "%s\t}\n", inner)
		}
		fmt.Fprintf(out, "%s}()\n", inner)
	}

	for _, fragment := range unit.Body {
		writeFragment(out, fragment.Text, inner)
	}
	fmt.Fprintf(out, "%s})\n", indent)
	return needs
}

func writeBenchmarks(out *bytes.Buffer, container *gen.Container, path []string, seen map[string]bool) error {
	path = append(path, container.Name)
	for _, entry := range container.Entries {
		switch node := entry.(type) {
		case *gen.Unit:
			if node.Kind != gen.ExecBenchmark {
				continue
			}
			// The flattened name can collide across different groupings.
			name := strings.Join(append(append([]string{}, path...), node.ID), "_")
			if seen[name] {
				return fmt.Errorf("codegen: benchmark name Benchmark_%s is produced by two different paths; rename a group or benchmark", name)
			}
			seen[name] = true
			fmt.Fprintf(out, "\nfunc Benchmark_%s(b *testing.B) {\n", name)
			fmt.Fprintf(out, "\t%s := b\n", node.Bencher)
			fmt.Fprintf(out, "\t_ = %s\n", node.Bencher)
			for _, fragment := range node.Body {
				writeFragment(out, fragment.Text, "\t")
			}
			fmt.Fprintf(out, "}\n")
		case *gen.Container:
			if err := writeBenchmarks(out, node, path, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFragment(out *bytes.Buffer, text, indent string) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			out.WriteByte('\n')
			continue
		}
		out.WriteString(indent)
		out.WriteString(strings.TrimLeft(trimmed, " \t"))
		out.WriteByte('\n')
	}
}

// FileSink writes rendered source to disk. It satisfies gen.Sink so the
// compiler can hand its output tree straight to a file.
type FileSink struct {
	Path    string
	Package string
}

func (s *FileSink) Emit(root *gen.Container) error {
	emitter := &Emitter{Package: s.Package}
	src, err := emitter.Source(root)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.Path, src, 0o644); err != nil {
		return fmt.Errorf("codegen: write %s: %w", s.Path, err)
	}
	return nil
}
