package gen

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"strconv"
	"text/template"
)

const storeImport = "github.com/eigerco/bramble/pkg/store"

// fileModel is the fully resolved input of the binding template. All type
// and expression strings are rendered before execution so the template
// stays a plain layout.
type fileModel struct {
	Package    string
	Imports    []string
	Type       string
	Collection string
	KeyType    string
	KeyExpr    string
	Indexes    []indexModel
}

type indexModel struct {
	Func      string // suffix of the accessor name
	FieldName string // index field name on disk
	Type      string
	Expr      string
}

var bindingTemplate = template.Must(template.New("binding").Parse(`// Code generated by storegen. DO NOT EDIT.

package {{.Package}}

import (
{{- range .Imports}}
	{{.}}
{{- end}}
)

// {{.Type}}CollectionName is the collection holding {{.Type}} records.
const {{.Type}}CollectionName = {{printf "%q" .Collection}}

// {{.Type}}Collection binds the {{.Collection}} collection of st.
func {{.Type}}Collection(st *store.Store) (*store.Collection[{{.KeyType}}, {{.Type}}], error) {
	return store.NewCollection(st, {{.Type}}CollectionName, func(v {{.Type}}) {{.KeyType}} { return {{.KeyExpr}} })
}
{{range .Indexes}}
// {{$.Type}}By{{.Func}} indexes the {{$.Collection}} collection by {{.FieldName}}.
func {{$.Type}}By{{.Func}}(c *store.Collection[{{$.KeyType}}, {{$.Type}}]) (*store.Index[{{.Type}}, {{$.KeyType}}, {{$.Type}}], error) {
	return store.NewIndex(c, {{printf "%q" .FieldName}}, func(v {{$.Type}}) {{.Type}} { return {{.Expr}} })
}
{{end}}`))

// renderImports turns the path to alias map into sorted import specs, the
// order gofmt would leave them in.
func renderImports(imports map[string]string) []string {
	paths := make([]string, 0, len(imports))
	for path := range imports {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	specs := make([]string, 0, len(paths))
	for _, path := range paths {
		if alias := imports[path]; alias != "" {
			specs = append(specs, alias+" "+strconv.Quote(path))
		} else {
			specs = append(specs, strconv.Quote(path))
		}
	}
	return specs
}

func render(m *fileModel) ([]byte, error) {
	var buf bytes.Buffer
	if err := bindingTemplate.Execute(&buf, m); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format generated source: %w", err)
	}
	return src, nil
}
