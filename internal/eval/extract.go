package eval

import (
	"regexp"
	"strings"

	"nickandperla.net/cbs/internal/expr"
	"nickandperla.net/cbs/internal/parser"
	"nickandperla.net/cbs/internal/scanner"
)

// Scope of a variable reference.
type Scope string

const (
	ScopeChat   Scope = "chat"
	ScopeGlobal Scope = "global"
	ScopeTemp   Scope = "temp"
)

// Op says whether a reference reads or writes.
type Op string

const (
	OpGet Op = "get"
	OpSet Op = "set"
)

// VarRef is one variable reference found in a template.
type VarRef struct {
	Name  string `json:"name" yaml:"name"`
	Scope Scope  `json:"scope" yaml:"scope"`
	Op    Op     `json:"op" yaml:"op"`
}

var varOps = map[string]struct {
	scope Scope
	op    Op
}{
	"getvar":        {ScopeChat, OpGet},
	"setvar":        {ScopeChat, OpSet},
	"addvar":        {ScopeChat, OpSet},
	"setdefaultvar": {ScopeChat, OpSet},
	"getglobalvar":  {ScopeGlobal, OpGet},
	"tempvar":       {ScopeTemp, OpGet},
	"gettempvar":    {ScopeTemp, OpGet},
	"settempvar":    {ScopeTemp, OpSet},
}

var calcVar = regexp.MustCompile(`([$@])([A-Za-z0-9_]+)`)

// ExtractVariables lists the variables a template reads and writes, in
// order of first appearance. Names built from nested tags are skipped.
func ExtractVariables(source string) []VarRef {
	x := &extractor{seen: make(map[VarRef]bool)}
	x.walk(parser.Parse(source))
	return x.refs
}

type extractor struct {
	refs []VarRef
	seen map[VarRef]bool
}

func (x *extractor) add(name string, scope Scope, op Op) {
	name = strings.TrimSpace(name)
	if name == "" || scanner.HasTag(name) {
		return
	}
	ref := VarRef{Name: name, Scope: scope, Op: op}
	if !x.seen[ref] {
		x.seen[ref] = true
		x.refs = append(x.refs, ref)
	}
}

func (x *extractor) args(args []string) {
	for _, a := range args {
		if scanner.HasTag(a) {
			x.walk(parser.Parse(a))
		}
	}
}

func (x *extractor) walk(nodes []expr.Node) {
	for _, n := range nodes {
		switch v := n.(type) {
		case expr.Command:
			name := strings.ToLower(strings.TrimSpace(v.Name))
			if name == "//" {
				continue
			}
			x.args(v.Args)
			if ref, ok := varOps[name]; ok && len(v.Args) > 0 {
				x.add(v.Args[0], ref.scope, ref.op)
			}
			if name == "calc" && len(v.Args) > 0 {
				for _, m := range calcVar.FindAllStringSubmatch(v.Args[0], -1) {
					scope := ScopeChat
					if m[1] == "@" {
						scope = ScopeGlobal
					}
					x.add(m[2], scope, OpGet)
				}
			}
		case expr.Block:
			x.args(v.Args)
			if strings.EqualFold(v.Name, "#pure") || strings.EqualFold(v.Name, "#puredisplay") ||
				strings.EqualFold(v.Name, "#pure_display") || strings.EqualFold(v.Name, "#escape") {
				continue
			}
			x.walk(v.Children)
		}
	}
}
