// Package gen turns an annotated record struct into its typed collection
// binding. It parses the package holding the struct, reads the store field
// tags, resolves key and index field types to their canonical encodings and
// emits the accessor source that cmd/storegen writes next to the record.
//
// A record declares its key with a field tag, and optionally secondary
// indexes:
//
//	type Entry struct {
//	    ID   uint32 `store:"key"`
//	    Name string `store:"index"`
//	}
//
// Field types may be the encodable basic kinds, locally declared names for
// them (the binding converts through the underlying kind), local types
// implementing MarshalKey/UnmarshalKey, or imported types, which are
// assumed to implement them and are checked when the collection is built.
package gen

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/eigerco/bramble/pkg/log"
)

var (
	ErrTypeNotFound      = errors.New("gen: type not found")
	ErrNotStruct         = errors.New("gen: type is not a struct")
	ErrNoKeyField        = errors.New("gen: no field is tagged store:\"key\"")
	ErrMultipleKeyFields = errors.New("gen: more than one field is tagged store:\"key\"")
	ErrUnexportedKey     = errors.New("gen: key field must be exported")
	ErrNoEncoding        = errors.New("gen: field type has no canonical key encoding")
	ErrInvalidCollection = errors.New("gen: invalid collection name")
)

// Options select what to generate.
type Options struct {
	// Dir is the package directory to scan. Defaults to the current one.
	Dir string
	// Type names the record struct.
	Type string
	// Collection overrides the default collection name, the snake_case
	// form of the type name.
	Collection string
}

// DefaultOutput is the file name Generate's output is conventionally
// written to.
func DefaultOutput(typeName string) string {
	return snakeCase(typeName) + "_store.go"
}

// Generate produces the collection binding source for the record struct
// named in opts. The output is deterministic: the same package and options
// yield the same bytes.
func Generate(opts Options) ([]byte, error) {
	if opts.Type == "" {
		return nil, errors.New("gen: type is required")
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	files, err := parseDir(dir)
	if err != nil {
		return nil, err
	}

	a, err := newAnalysis(files, opts.Type)
	if err != nil {
		return nil, err
	}

	m, err := a.build(opts)
	if err != nil {
		return nil, err
	}
	log.Codegen.Debug().
		Str("type", opts.Type).
		Str("collection", m.Collection).
		Int("indexes", len(m.Indexes)).
		Msg("generating collection binding")

	return render(m)
}

type parsedFile struct {
	name string
	file *ast.File
}

func parseDir(dir string) ([]parsedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read package dir: %w", err)
	}

	fset := token.NewFileSet()
	var files []parsedFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		files = append(files, parsedFile{name: name, file: file})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no Go files in %s", dir)
	}
	return files, nil
}

// analysis carries the record struct together with the declarations of its
// package that type resolution may need.
type analysis struct {
	pkgName string
	record  *ast.StructType
	imports []*ast.ImportSpec

	types   map[string]*ast.TypeSpec
	methods map[string]map[string]bool
}

func newAnalysis(files []parsedFile, typeName string) (*analysis, error) {
	a := &analysis{
		types:   make(map[string]*ast.TypeSpec),
		methods: make(map[string]map[string]bool),
	}

	for _, pf := range files {
		spec := findType(pf.file, typeName)
		if spec == nil {
			continue
		}
		record, ok := spec.Type.(*ast.StructType)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotStruct, typeName)
		}
		a.pkgName = pf.file.Name.Name
		a.record = record
		a.imports = pf.file.Imports
		break
	}
	if a.record == nil {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, typeName)
	}

	// collect the package's type declarations and method sets for
	// resolving named field types
	for _, pf := range files {
		if pf.file.Name.Name != a.pkgName {
			continue
		}
		for _, decl := range pf.file.Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				if d.Tok != token.TYPE {
					continue
				}
				for _, spec := range d.Specs {
					ts := spec.(*ast.TypeSpec)
					a.types[ts.Name.Name] = ts
				}
			case *ast.FuncDecl:
				recv := receiverName(d)
				if recv == "" {
					continue
				}
				if a.methods[recv] == nil {
					a.methods[recv] = make(map[string]bool)
				}
				a.methods[recv][d.Name.Name] = true
			}
		}
	}
	return a, nil
}

func findType(file *ast.File, name string) *ast.TypeSpec {
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			if ts.Name.Name == name {
				return ts
			}
		}
	}
	return nil
}

func receiverName(d *ast.FuncDecl) string {
	if d.Recv == nil || len(d.Recv.List) == 0 {
		return ""
	}
	t := d.Recv.List[0].Type
	if star, ok := t.(*ast.StarExpr); ok {
		t = star.X
	}
	if id, ok := t.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

// build reads the struct's field tags and assembles the render model.
func (a *analysis) build(opts Options) (*fileModel, error) {
	m := &fileModel{
		Package: a.pkgName,
		Type:    opts.Type,
	}

	m.Collection = opts.Collection
	if m.Collection == "" {
		m.Collection = snakeCase(opts.Type)
	}
	if err := checkCollectionName(m.Collection); err != nil {
		return nil, err
	}

	imports := map[string]string{storeImport: ""}

	var keyField string
	for _, field := range a.record.Fields.List {
		tag := fieldTag(field)
		if tag == "" {
			continue
		}
		if len(field.Names) == 0 {
			return nil, fmt.Errorf("gen: store tag on embedded field of %s", opts.Type)
		}

		switch tag {
		case "key":
			for _, name := range field.Names {
				if keyField != "" {
					return nil, fmt.Errorf("%w: %s and %s", ErrMultipleKeyFields, keyField, name.Name)
				}
				keyField = name.Name
			}
			if !ast.IsExported(keyField) {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnexportedKey, opts.Type, keyField)
			}

			kt, err := a.resolveKeyType(field.Type, nil)
			if err != nil {
				return nil, fmt.Errorf("key field %s: %w", keyField, err)
			}
			kt.addImport(imports)
			m.KeyType = kt.code
			m.KeyExpr = kt.expr(keyField)

		case "index":
			for _, name := range field.Names {
				it, err := a.resolveKeyType(field.Type, nil)
				if err != nil {
					return nil, fmt.Errorf("index field %s: %w", name.Name, err)
				}
				it.addImport(imports)

				fieldName := snakeCase(name.Name)
				if err := checkCollectionName(fieldName); err != nil {
					return nil, err
				}
				m.Indexes = append(m.Indexes, indexModel{
					Func:      exported(name.Name),
					FieldName: fieldName,
					Type:      it.code,
					Expr:      it.expr(name.Name),
				})
			}

		default:
			return nil, fmt.Errorf("gen: unknown store tag %q on field of %s", tag, opts.Type)
		}
	}
	if keyField == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoKeyField, opts.Type)
	}

	m.Imports = renderImports(imports)
	return m, nil
}

func fieldTag(field *ast.Field) string {
	if field.Tag == nil {
		return ""
	}
	raw, err := strconv.Unquote(field.Tag.Value)
	if err != nil {
		return ""
	}
	return reflect.StructTag(raw).Get("store")
}

// keyType describes how a key or index field type appears in generated
// code.
type keyType struct {
	code        string // the type as written in the binding
	convert     bool   // wrap the field in a conversion to code
	importAlias string // for imported types: alias or "" for default
	importPath  string // for imported types: the package path
}

func (k keyType) expr(field string) string {
	if k.convert {
		return fmt.Sprintf("%s(v.%s)", k.code, field)
	}
	return "v." + field
}

func (k keyType) addImport(into map[string]string) {
	if k.importPath != "" {
		into[k.importPath] = k.importAlias
	}
}

// encodableKinds are the basic kinds keycodec encodes canonically.
var encodableKinds = map[string]bool{
	"string": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"byte": true, "rune": true,
}

// resolveKeyType maps a field type to its generated form. Named local
// types resolve through their underlying kind unless they implement the
// key marshaling methods themselves; imported types are taken at their
// word.
func (a *analysis) resolveKeyType(expr ast.Expr, seen map[string]bool) (keyType, error) {
	switch t := expr.(type) {
	case *ast.Ident:
		if encodableKinds[t.Name] {
			return keyType{code: t.Name}, nil
		}
		spec, ok := a.types[t.Name]
		if !ok {
			return keyType{}, fmt.Errorf("%w: %s", ErrNoEncoding, t.Name)
		}
		if a.methods[t.Name]["MarshalKey"] && a.methods[t.Name]["UnmarshalKey"] {
			return keyType{code: t.Name}, nil
		}
		if seen[t.Name] {
			return keyType{}, fmt.Errorf("%w: %s", ErrNoEncoding, t.Name)
		}
		if seen == nil {
			seen = make(map[string]bool)
		}
		seen[t.Name] = true

		under, err := a.resolveKeyType(spec.Type, seen)
		if err != nil {
			return keyType{}, fmt.Errorf("%w: %s", ErrNoEncoding, t.Name)
		}
		under.convert = true
		return under, nil

	case *ast.ArrayType:
		if t.Len == nil {
			if id, ok := t.Elt.(*ast.Ident); ok && id.Name == "byte" {
				return keyType{code: "[]byte"}, nil
			}
		}
		return keyType{}, fmt.Errorf("%w: %s", ErrNoEncoding, typeString(t))

	case *ast.SelectorExpr:
		pkg, ok := t.X.(*ast.Ident)
		if !ok {
			return keyType{}, fmt.Errorf("%w: %s", ErrNoEncoding, typeString(t))
		}
		alias, path, err := a.importFor(pkg.Name)
		if err != nil {
			return keyType{}, err
		}
		return keyType{
			code:        pkg.Name + "." + t.Sel.Name,
			importAlias: alias,
			importPath:  path,
		}, nil

	default:
		return keyType{}, fmt.Errorf("%w: %s", ErrNoEncoding, typeString(expr))
	}
}

// importFor finds the import of the record's file that the given package
// identifier refers to.
func (a *analysis) importFor(name string) (alias, path string, err error) {
	for _, spec := range a.imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		if spec.Name != nil {
			if spec.Name.Name == name {
				return name, p, nil
			}
			continue
		}
		if filepath.Base(p) == name {
			return "", p, nil
		}
	}
	return "", "", fmt.Errorf("gen: cannot resolve import for package %s", name)
}

func typeString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + typeString(t.X)
	case *ast.ArrayType:
		if t.Len == nil {
			return "[]" + typeString(t.Elt)
		}
		return "[...]" + typeString(t.Elt)
	case *ast.SelectorExpr:
		return typeString(t.X) + "." + t.Sel.Name
	case *ast.MapType:
		return "map[" + typeString(t.Key) + "]" + typeString(t.Value)
	default:
		return fmt.Sprintf("%T", expr)
	}
}

var collectionNameRE = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func checkCollectionName(name string) error {
	if !collectionNameRE.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}

// snakeCase lowers a Go identifier the way collection names are spelled:
// every upper case letter becomes its lower form, preceded by an
// underscore unless it starts the name.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func exported(name string) string {
	return strings.ToUpper(name[:1]) + name[1:]
}
