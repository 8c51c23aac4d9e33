package effect

import (
	"errors"
	"strings"

	"github.com/gogpu/fxc/ir"
	"github.com/gogpu/fxc/spirv"
)

// Overload resolution errors.
var (
	ErrNoOverload    = errors.New("no matching function overload")
	ErrArgumentCount = errors.New("no overload takes this number of arguments")
	ErrAmbiguous     = errors.New("ambiguous function call")
)

// Variable is a named value in scope. ID is a pointer in Storage unless
// Value is set; compile-time constants carry Constant and no id.
type Variable struct {
	Name     string
	Type     ir.TypeInfo
	ID       ir.ID
	Storage  spirv.StorageClass
	Constant *ir.Constant
	Location ir.Location

	// Value marks ID as an SSA value rather than a pointer.
	Value bool
	// Uniforms live in member 0 of their own block.
	Block bool
}

type scope struct {
	variables map[string]*Variable
	structs   map[string]*ir.StructInfo
}

func newScope() scope {
	return scope{
		variables: make(map[string]*Variable),
		structs:   make(map[string]*ir.StructInfo),
	}
}

// SymbolTable holds the lexical scopes of a compilation. Variables and
// structs are scoped; functions are always global and keep every overload
// of a name together. Global names are stored namespace-qualified.
type SymbolTable struct {
	scopes    []scope
	functions map[string][]*ir.FunctionInfo
	namespace []string
}

// NewSymbolTable returns a table containing only the global scope.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		scopes:    []scope{newScope()},
		functions: make(map[string][]*ir.FunctionInfo),
	}
}

// EnterScope pushes a new lexical scope.
func (s *SymbolTable) EnterScope() {
	s.scopes = append(s.scopes, newScope())
}

// LeaveScope discards the innermost scope and its bindings. The global
// scope is never popped.
func (s *SymbolTable) LeaveScope() {
	if len(s.scopes) > 1 {
		s.scopes = s.scopes[:len(s.scopes)-1]
	}
}

// Global reports whether declarations currently go to the global scope.
func (s *SymbolTable) Global() bool { return len(s.scopes) == 1 }

// EnterNamespace opens a nested namespace.
func (s *SymbolTable) EnterNamespace(name string) {
	s.namespace = append(s.namespace, name)
}

// LeaveNamespace closes the innermost namespace.
func (s *SymbolTable) LeaveNamespace() {
	if len(s.namespace) > 0 {
		s.namespace = s.namespace[:len(s.namespace)-1]
	}
}

// Qualify prefixes name with the current namespace path.
func (s *SymbolTable) Qualify(name string) string {
	if len(s.namespace) == 0 {
		return name
	}
	return strings.Join(s.namespace, "::") + "::" + name
}

// candidates lists the global names an unqualified reference may denote,
// innermost namespace first.
func (s *SymbolTable) candidates(name string) []string {
	names := make([]string, 0, len(s.namespace)+1)
	for i := len(s.namespace); i > 0; i-- {
		names = append(names, strings.Join(s.namespace[:i], "::")+"::"+name)
	}
	return append(names, name)
}

func (s *SymbolTable) current() scope { return s.scopes[len(s.scopes)-1] }

func (s *SymbolTable) declName(name string) string {
	if s.Global() {
		return s.Qualify(name)
	}
	return name
}

// DeclareVariable binds v in the innermost scope under its (qualified)
// name. It reports false if the scope already binds that name.
func (s *SymbolTable) DeclareVariable(v *Variable) bool {
	name := s.declName(v.Name)
	cur := s.current()
	if _, ok := cur.variables[name]; ok {
		return false
	}
	v.Name = name
	cur.variables[name] = v
	return true
}

// LookupVariable returns the innermost variable visible under name, or nil.
func (s *SymbolTable) LookupVariable(name string) *Variable {
	for i := len(s.scopes) - 1; i > 0; i-- {
		if v, ok := s.scopes[i].variables[name]; ok {
			return v
		}
	}
	for _, n := range s.candidates(name) {
		if v, ok := s.scopes[0].variables[n]; ok {
			return v
		}
	}
	return nil
}

// DeclareStruct binds a struct in the innermost scope. It reports false if
// the scope already has a struct of that name.
func (s *SymbolTable) DeclareStruct(info *ir.StructInfo) bool {
	name := s.declName(info.Name)
	cur := s.current()
	if _, ok := cur.structs[name]; ok {
		return false
	}
	info.Name = name
	cur.structs[name] = info
	return true
}

// LookupStruct returns the innermost struct visible under name, or nil.
func (s *SymbolTable) LookupStruct(name string) *ir.StructInfo {
	for i := len(s.scopes) - 1; i > 0; i-- {
		if info, ok := s.scopes[i].structs[name]; ok {
			return info
		}
	}
	for _, n := range s.candidates(name) {
		if info, ok := s.scopes[0].structs[n]; ok {
			return info
		}
	}
	return nil
}

// DeclareFunction adds an overload under the function's qualified name. It
// reports false if an overload with the same parameter types exists.
func (s *SymbolTable) DeclareFunction(f *ir.FunctionInfo) bool {
	name := s.Qualify(f.Name)
	for _, o := range s.functions[name] {
		if o.SameSignature(f) {
			return false
		}
	}
	f.Name = name
	s.functions[name] = append(s.functions[name], f)
	return true
}

// LookupFunctions returns the overload set of the innermost namespace that
// declares name, or nil.
func (s *SymbolTable) LookupFunctions(name string) []*ir.FunctionInfo {
	for _, n := range s.candidates(name) {
		if set, ok := s.functions[n]; ok {
			return set
		}
	}
	return nil
}

// ResolveOverload picks the candidate whose parameters accept args with the
// lowest combined conversion rank. It fails with ErrArgumentCount when no
// candidate takes len(args) parameters, with ErrNoOverload when none
// accepts the argument types and with ErrAmbiguous on a tie.
func ResolveOverload(candidates []*ir.FunctionInfo, args []ir.TypeInfo) (*ir.FunctionInfo, error) {
	var best *ir.FunctionInfo
	bestRank := ir.Rank(0)
	ambiguous, arity := false, false

	for _, f := range candidates {
		if len(f.Parameters) != len(args) {
			continue
		}
		arity = true
		total, ok := ir.Rank(0), true
		for i, p := range f.Parameters {
			r := ir.RankConversion(args[i].Value(), p.Type.Value())
			if !r.Convertible() {
				ok = false
				break
			}
			total += r
		}
		if !ok {
			continue
		}
		switch {
		case best == nil || total < bestRank:
			best, bestRank, ambiguous = f, total, false
		case total == bestRank:
			ambiguous = true
		}
	}

	switch {
	case best == nil && !arity && len(candidates) > 0:
		return nil, ErrArgumentCount
	case best == nil:
		return nil, ErrNoOverload
	case ambiguous:
		return nil, ErrAmbiguous
	}
	return best, nil
}
