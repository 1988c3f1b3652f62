package sema

import "github.com/yHan234/SYsU-lang-Compiler/pkg/asg"

// Symtab is a stack of nested scopes. Every Push must be paired with a
// Pop on all return paths; the builder does this with defer.
type Symtab struct {
	scopes []map[string]asg.Decl
}

// NewSymtab creates an empty symbol table with no open scope
func NewSymtab() *Symtab {
	return &Symtab{}
}

// Push opens a new innermost scope
func (s *Symtab) Push() {
	s.scopes = append(s.scopes, make(map[string]asg.Decl))
}

// Pop closes the innermost scope
func (s *Symtab) Pop() {
	if len(s.scopes) == 0 {
		panic("sema: pop of empty symbol table")
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// Depth returns the number of open scopes
func (s *Symtab) Depth() int {
	return len(s.scopes)
}

// Insert binds name in the innermost scope. A second declaration of the
// same name in the same scope replaces the first.
func (s *Symtab) Insert(name string, d asg.Decl) {
	if len(s.scopes) == 0 {
		panic("sema: insert with no open scope")
	}
	s.scopes[len(s.scopes)-1][name] = d
}

// Resolve finds the innermost binding of name
func (s *Symtab) Resolve(name string) (asg.Decl, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if d, ok := s.scopes[i][name]; ok {
			return d, true
		}
	}
	return nil, false
}
