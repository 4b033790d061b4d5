package rule

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"
)

// Facts are the document attributes a rule condition can reference.
type Facts struct {
	DocumentType   string
	Format         string
	Filename       string
	WordCount      int
	ComplianceType string
	Metadata       map[string]any
}

func (f Facts) activation() map[string]any {
	md := f.Metadata
	if md == nil {
		md = map[string]any{}
	}
	return map[string]any{
		"document_type":   f.DocumentType,
		"format":          f.Format,
		"filename":        f.Filename,
		"word_count":      int64(f.WordCount),
		"compliance_type": f.ComplianceType,
		"metadata":        md,
	}
}

type ConditionEnv struct{ env *cel.Env }

func NewConditionEnv() (*ConditionEnv, error) {
	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("document_type", decls.String),
			decls.NewVar("format", decls.String),
			decls.NewVar("filename", decls.String),
			decls.NewVar("word_count", decls.Int),
			decls.NewVar("compliance_type", decls.String),
			decls.NewVar("metadata", decls.NewMapType(decls.String, decls.Dyn)),
		),
	)
	if err != nil {
		return nil, err
	}
	return &ConditionEnv{env: env}, nil
}

func (c *ConditionEnv) Compile(expr string) (cel.Program, error) {
	ast, iss := c.env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	checked, iss := c.env.Check(ast)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	if t := checked.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("condition must evaluate to bool, got %s", t)
	}
	return c.env.Program(checked)
}

// Applies evaluates a compiled condition against the facts.
func Applies(prog cel.Program, f Facts) (bool, error) {
	out, _, err := prog.Eval(f.activation())
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("non-boolean result %v", out.Value())
	}
	return b, nil
}

var globCache sync.Map

// CompileGlob compiles a case-insensitive filename glob.
func CompileGlob(pattern string) (glob.Glob, error) {
	key := strings.ToLower(pattern)
	if g, ok := globCache.Load(key); ok {
		return g.(glob.Glob), nil
	}
	g, err := glob.Compile(key)
	if err != nil {
		return nil, err
	}
	globCache.Store(key, g)
	return g, nil
}

// FileMatch reports whether filename matches pattern. Empty and "*"
// patterns match everything.
func FileMatch(pattern, filename string) (bool, error) {
	if pattern == "" || pattern == "*" {
		return true, nil
	}
	g, err := CompileGlob(pattern)
	if err != nil {
		return false, err
	}
	return g.Match(strings.ToLower(filename)), nil
}
