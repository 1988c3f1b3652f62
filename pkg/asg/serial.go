package asg

import (
	"fmt"
	"io"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/ctypes"
	"gopkg.in/yaml.v3"
)

// Record is the interchange form of one node. Children are listed in
// Inner in source order; references to other nodes are carried by id.
type Record struct {
	Kind   string      `yaml:"kind"`
	ID     NodeID      `yaml:"id"`
	Name   string      `yaml:"name,omitempty"`
	Type   *TypeRecord `yaml:"type,omitempty"`
	LValue bool        `yaml:"lvalue,omitempty"`
	Op     string      `yaml:"op,omitempty"`
	Value  *int64      `yaml:"value,omitempty"`
	Ref    *NodeID     `yaml:"ref,omitempty"`
	Params []*Record   `yaml:"params,omitempty"`
	Inner  []*Record   `yaml:"inner,omitempty"`
}

// TypeRecord is the interchange form of a type. Derived links are listed
// outermost first.
type TypeRecord struct {
	Spec    string          `yaml:"spec"`
	Const   bool            `yaml:"const,omitempty"`
	Derived []DerivedRecord `yaml:"derived,omitempty"`
}

// DerivedRecord is one pointer, array or function link
type DerivedRecord struct {
	Kind   string        `yaml:"kind"`
	Const  bool          `yaml:"const,omitempty"`
	Len    *int64        `yaml:"len,omitempty"`
	Params []*TypeRecord `yaml:"params,omitempty"`
}

// Encode writes tu as a YAML record tree
func Encode(w io.Writer, tu *TranslationUnit) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(encodeUnit(tu)); err != nil {
		return fmt.Errorf("asg: encode: %w", err)
	}
	return enc.Close()
}

func encodeUnit(tu *TranslationUnit) *Record {
	r := &Record{Kind: "TranslationUnit", ID: tu.ID()}
	for _, d := range tu.Decls {
		r.Inner = append(r.Inner, encodeDecl(d))
	}
	return r
}

func refTo(n Node) *NodeID {
	id := n.ID()
	return &id
}

func encodeDecl(d Decl) *Record {
	switch d := d.(type) {
	case *VarDecl:
		r := &Record{Kind: "VarDecl", ID: d.ID(), Name: d.Name, Type: EncodeType(d.Typ)}
		if d.Init != nil {
			r.Inner = []*Record{encodeExpr(d.Init)}
		}
		return r
	case *FunctionDecl:
		r := &Record{Kind: "FunctionDecl", ID: d.ID(), Name: d.Name, Type: EncodeType(d.Typ)}
		for _, p := range d.Params {
			r.Params = append(r.Params, encodeDecl(p))
		}
		if d.Body != nil {
			r.Inner = []*Record{encodeStmt(d.Body)}
		}
		return r
	}
	panic(fmt.Sprintf("asg: unhandled declaration %T", d))
}

func encodeStmt(s Stmt) *Record {
	r := &Record{ID: s.ID()}
	switch s := s.(type) {
	case *CompoundStmt:
		r.Kind = "CompoundStmt"
		for _, sub := range s.Subs {
			r.Inner = append(r.Inner, encodeStmt(sub))
		}
	case *DeclStmt:
		r.Kind = "DeclStmt"
		for _, d := range s.Decls {
			r.Inner = append(r.Inner, encodeDecl(d))
		}
	case *ExprStmt:
		r.Kind = "ExprStmt"
		r.Inner = []*Record{encodeExpr(s.Expr)}
	case *NullStmt:
		r.Kind = "NullStmt"
	case *IfStmt:
		r.Kind = "IfStmt"
		r.Inner = []*Record{encodeExpr(s.Cond), encodeStmt(s.Then)}
		if s.Else != nil {
			r.Inner = append(r.Inner, encodeStmt(s.Else))
		}
	case *WhileStmt:
		r.Kind = "WhileStmt"
		r.Inner = []*Record{encodeExpr(s.Cond), encodeStmt(s.Body)}
	case *BreakStmt:
		r.Kind = "BreakStmt"
		r.Ref = refTo(s.Loop)
	case *ContinueStmt:
		r.Kind = "ContinueStmt"
		r.Ref = refTo(s.Loop)
	case *ReturnStmt:
		r.Kind = "ReturnStmt"
		r.Ref = refTo(s.Func)
		if s.Expr != nil {
			r.Inner = []*Record{encodeExpr(s.Expr)}
		}
	default:
		panic(fmt.Sprintf("asg: unhandled statement %T", s))
	}
	return r
}

func encodeExpr(e Expr) *Record {
	r := &Record{ID: e.ID(), LValue: e.IsLValue()}
	if e.Type() != nil {
		r.Type = EncodeType(e.Type())
	}
	switch e := e.(type) {
	case *IntegerLiteral:
		r.Kind = "IntegerLiteral"
		v := e.Value
		r.Value = &v
	case *DeclRefExpr:
		r.Kind = "DeclRefExpr"
		r.Ref = refTo(e.Decl)
	case *ParenExpr:
		r.Kind = "ParenExpr"
		r.Inner = []*Record{encodeExpr(e.Sub)}
	case *UnaryExpr:
		r.Kind = "UnaryExpr"
		r.Op = e.Op.String()
		r.Inner = []*Record{encodeExpr(e.Sub)}
	case *BinaryExpr:
		r.Kind = "BinaryExpr"
		r.Op = e.Op.String()
		r.Inner = []*Record{encodeExpr(e.LHS), encodeExpr(e.RHS)}
	case *CallExpr:
		r.Kind = "CallExpr"
		r.Inner = []*Record{encodeExpr(e.Callee)}
		for _, a := range e.Args {
			r.Inner = append(r.Inner, encodeExpr(a))
		}
	case *InitListExpr:
		r.Kind = "InitListExpr"
		for _, x := range e.List {
			r.Inner = append(r.Inner, encodeExpr(x))
		}
	case *ImplicitInitExpr:
		r.Kind = "ImplicitInitExpr"
	case *ImplicitCastExpr:
		r.Kind = "ImplicitCastExpr"
		r.Op = e.Kind.String()
		r.Inner = []*Record{encodeExpr(e.Sub)}
	default:
		panic(fmt.Sprintf("asg: unhandled expression %T", e))
	}
	return r
}

// EncodeType converts a type to its interchange form
func EncodeType(t *ctypes.Type) *TypeRecord {
	r := &TypeRecord{Spec: t.Spec.String(), Const: t.Qual.Const}
	for e := t.Texp; e != nil; {
		switch x := e.(type) {
		case *ctypes.Tpointer:
			r.Derived = append(r.Derived, DerivedRecord{Kind: "pointer", Const: x.Const})
			e = x.Sub
		case *ctypes.Tarray:
			n := x.Len
			r.Derived = append(r.Derived, DerivedRecord{Kind: "array", Len: &n})
			e = x.Sub
		case *ctypes.Tfunction:
			d := DerivedRecord{Kind: "function"}
			for _, p := range x.Params {
				d.Params = append(d.Params, EncodeType(p))
			}
			r.Derived = append(r.Derived, d)
			e = x.Sub
		}
	}
	return r
}

// DecodeType rebuilds a type from its interchange form
func DecodeType(r *TypeRecord) (*ctypes.Type, error) {
	spec, ok := specByName[r.Spec]
	if !ok {
		return nil, fmt.Errorf("asg: unknown specifier %q", r.Spec)
	}
	var texp ctypes.TypeExpr
	for i := len(r.Derived) - 1; i >= 0; i-- {
		d := r.Derived[i]
		switch d.Kind {
		case "pointer":
			texp = &ctypes.Tpointer{Sub: texp, Const: d.Const}
		case "array":
			if d.Len == nil {
				return nil, fmt.Errorf("asg: array link without len")
			}
			texp = &ctypes.Tarray{Sub: texp, Len: *d.Len}
		case "function":
			fn := &ctypes.Tfunction{Sub: texp}
			for _, p := range d.Params {
				pt, err := DecodeType(p)
				if err != nil {
					return nil, err
				}
				fn.Params = append(fn.Params, pt)
			}
			texp = fn
		default:
			return nil, fmt.Errorf("asg: unknown derived kind %q", d.Kind)
		}
	}
	return ctypes.New(spec, ctypes.Qual{Const: r.Const}, texp), nil
}

var specByName = map[string]ctypes.Spec{}

func init() {
	for s := ctypes.Void; s <= ctypes.LongLong; s++ {
		specByName[s.String()] = s
	}
}

func lookupName(names []string, name string) (int, bool) {
	for i, n := range names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Decode reads a YAML record tree produced by Encode and rebuilds the
// graph in a fresh arena. Node ids are preserved.
func Decode(r io.Reader) (*TranslationUnit, error) {
	var root Record
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("asg: decode: %w", err)
	}
	d := &decoder{arena: NewArena()}
	tu, err := d.unit(&root)
	if err != nil {
		return nil, err
	}
	for _, fix := range d.fixups {
		if err := fix(); err != nil {
			return nil, err
		}
	}
	return tu, nil
}

type decoder struct {
	arena  *Arena
	fixups []func() error
}

func (d *decoder) place(r *Record, n Node) error {
	return d.arena.place(r.ID, n)
}

func (d *decoder) target(r *Record) (Node, error) {
	if r.Ref == nil {
		return nil, fmt.Errorf("asg: %s #%d has no ref", r.Kind, r.ID)
	}
	n := d.arena.Get(*r.Ref)
	if n == nil {
		return nil, fmt.Errorf("asg: %s #%d refers to unknown node #%d", r.Kind, r.ID, *r.Ref)
	}
	return n, nil
}

func (d *decoder) want(r *Record, n int) error {
	if len(r.Inner) != n {
		return fmt.Errorf("asg: %s #%d has %d children, want %d", r.Kind, r.ID, len(r.Inner), n)
	}
	return nil
}

func (d *decoder) unit(r *Record) (*TranslationUnit, error) {
	if r.Kind != "TranslationUnit" {
		return nil, fmt.Errorf("asg: root is %s, want TranslationUnit", r.Kind)
	}
	tu := &TranslationUnit{Arena: d.arena}
	if err := d.place(r, tu); err != nil {
		return nil, err
	}
	for _, c := range r.Inner {
		decl, err := d.decl(c)
		if err != nil {
			return nil, err
		}
		tu.Decls = append(tu.Decls, decl)
	}
	return tu, nil
}

func (d *decoder) decl(r *Record) (Decl, error) {
	if r.Type == nil {
		return nil, fmt.Errorf("asg: %s #%d has no type", r.Kind, r.ID)
	}
	typ, err := DecodeType(r.Type)
	if err != nil {
		return nil, err
	}
	switch r.Kind {
	case "VarDecl":
		v := &VarDecl{Name: r.Name, Typ: typ}
		if err := d.place(r, v); err != nil {
			return nil, err
		}
		if len(r.Inner) > 0 {
			if v.Init, err = d.expr(r.Inner[0]); err != nil {
				return nil, err
			}
		}
		return v, nil
	case "FunctionDecl":
		f := &FunctionDecl{Name: r.Name, Typ: typ}
		if err := d.place(r, f); err != nil {
			return nil, err
		}
		for _, p := range r.Params {
			pd, err := d.decl(p)
			if err != nil {
				return nil, err
			}
			v, ok := pd.(*VarDecl)
			if !ok {
				return nil, fmt.Errorf("asg: parameter #%d is %s", p.ID, p.Kind)
			}
			f.Params = append(f.Params, v)
		}
		if len(r.Inner) > 0 {
			body, err := d.stmt(r.Inner[0])
			if err != nil {
				return nil, err
			}
			cs, ok := body.(*CompoundStmt)
			if !ok {
				return nil, fmt.Errorf("asg: body of #%d is %s", r.ID, r.Inner[0].Kind)
			}
			f.Body = cs
		}
		return f, nil
	}
	return nil, fmt.Errorf("asg: unknown declaration kind %q", r.Kind)
}

func (d *decoder) stmt(r *Record) (Stmt, error) {
	switch r.Kind {
	case "CompoundStmt":
		s := &CompoundStmt{}
		if err := d.place(r, s); err != nil {
			return nil, err
		}
		for _, c := range r.Inner {
			sub, err := d.stmt(c)
			if err != nil {
				return nil, err
			}
			s.Subs = append(s.Subs, sub)
		}
		return s, nil
	case "DeclStmt":
		s := &DeclStmt{}
		if err := d.place(r, s); err != nil {
			return nil, err
		}
		for _, c := range r.Inner {
			decl, err := d.decl(c)
			if err != nil {
				return nil, err
			}
			s.Decls = append(s.Decls, decl)
		}
		return s, nil
	case "ExprStmt":
		s := &ExprStmt{}
		if err := d.place(r, s); err != nil {
			return nil, err
		}
		if err := d.want(r, 1); err != nil {
			return nil, err
		}
		var err error
		s.Expr, err = d.expr(r.Inner[0])
		return s, err
	case "NullStmt":
		s := &NullStmt{}
		return s, d.place(r, s)
	case "IfStmt":
		s := &IfStmt{}
		if err := d.place(r, s); err != nil {
			return nil, err
		}
		if len(r.Inner) != 2 && len(r.Inner) != 3 {
			return nil, d.want(r, 2)
		}
		var err error
		if s.Cond, err = d.expr(r.Inner[0]); err != nil {
			return nil, err
		}
		if s.Then, err = d.stmt(r.Inner[1]); err != nil {
			return nil, err
		}
		if len(r.Inner) == 3 {
			if s.Else, err = d.stmt(r.Inner[2]); err != nil {
				return nil, err
			}
		}
		return s, nil
	case "WhileStmt":
		s := &WhileStmt{}
		if err := d.place(r, s); err != nil {
			return nil, err
		}
		if err := d.want(r, 2); err != nil {
			return nil, err
		}
		var err error
		if s.Cond, err = d.expr(r.Inner[0]); err != nil {
			return nil, err
		}
		s.Body, err = d.stmt(r.Inner[1])
		return s, err
	case "BreakStmt", "ContinueStmt":
		var s Stmt
		var loop **WhileStmt
		if r.Kind == "BreakStmt" {
			b := &BreakStmt{}
			s, loop = b, &b.Loop
		} else {
			c := &ContinueStmt{}
			s, loop = c, &c.Loop
		}
		if err := d.place(r, s); err != nil {
			return nil, err
		}
		d.fixups = append(d.fixups, func() error {
			n, err := d.target(r)
			if err != nil {
				return err
			}
			w, ok := n.(*WhileStmt)
			if !ok {
				return fmt.Errorf("asg: %s #%d refers to %T", r.Kind, r.ID, n)
			}
			*loop = w
			return nil
		})
		return s, nil
	case "ReturnStmt":
		s := &ReturnStmt{}
		if err := d.place(r, s); err != nil {
			return nil, err
		}
		if len(r.Inner) > 0 {
			var err error
			if s.Expr, err = d.expr(r.Inner[0]); err != nil {
				return nil, err
			}
		}
		d.fixups = append(d.fixups, func() error {
			n, err := d.target(r)
			if err != nil {
				return err
			}
			f, ok := n.(*FunctionDecl)
			if !ok {
				return fmt.Errorf("asg: ReturnStmt #%d refers to %T", r.ID, n)
			}
			s.Func = f
			return nil
		})
		return s, nil
	}
	return nil, fmt.Errorf("asg: unknown statement kind %q", r.Kind)
}

func (d *decoder) expr(r *Record) (Expr, error) {
	e, err := d.exprNode(r)
	if err != nil {
		return nil, err
	}
	if r.Type != nil {
		t, err := DecodeType(r.Type)
		if err != nil {
			return nil, err
		}
		e.SetType(t, r.LValue)
	}
	return e, nil
}

func (d *decoder) exprNode(r *Record) (Expr, error) {
	switch r.Kind {
	case "IntegerLiteral":
		if r.Value == nil {
			return nil, fmt.Errorf("asg: IntegerLiteral #%d has no value", r.ID)
		}
		e := &IntegerLiteral{Value: *r.Value}
		return e, d.place(r, e)
	case "DeclRefExpr":
		e := &DeclRefExpr{}
		if err := d.place(r, e); err != nil {
			return nil, err
		}
		d.fixups = append(d.fixups, func() error {
			n, err := d.target(r)
			if err != nil {
				return err
			}
			decl, ok := n.(Decl)
			if !ok {
				return fmt.Errorf("asg: DeclRefExpr #%d refers to %T", r.ID, n)
			}
			e.Decl = decl
			return nil
		})
		return e, nil
	case "ParenExpr":
		e := &ParenExpr{}
		return e, d.single(r, e, &e.Sub)
	case "UnaryExpr":
		op, ok := lookupName([]string{"+", "-", "!"}, r.Op)
		if !ok {
			return nil, fmt.Errorf("asg: unknown unary operator %q", r.Op)
		}
		e := &UnaryExpr{Op: UnaryOp(op)}
		return e, d.single(r, e, &e.Sub)
	case "ImplicitCastExpr":
		k, ok := lookupName(castKindNames, r.Op)
		if !ok {
			return nil, fmt.Errorf("asg: unknown cast kind %q", r.Op)
		}
		e := &ImplicitCastExpr{Kind: CastKind(k)}
		return e, d.single(r, e, &e.Sub)
	case "BinaryExpr":
		op, ok := lookupName(binaryOpNames, r.Op)
		if !ok {
			return nil, fmt.Errorf("asg: unknown binary operator %q", r.Op)
		}
		e := &BinaryExpr{Op: BinaryOp(op)}
		if err := d.place(r, e); err != nil {
			return nil, err
		}
		if err := d.want(r, 2); err != nil {
			return nil, err
		}
		var err error
		if e.LHS, err = d.expr(r.Inner[0]); err != nil {
			return nil, err
		}
		e.RHS, err = d.expr(r.Inner[1])
		return e, err
	case "CallExpr":
		e := &CallExpr{}
		if err := d.place(r, e); err != nil {
			return nil, err
		}
		if len(r.Inner) == 0 {
			return nil, d.want(r, 1)
		}
		list, err := d.exprs(r.Inner)
		if err != nil {
			return nil, err
		}
		e.Callee, e.Args = list[0], list[1:]
		return e, nil
	case "InitListExpr":
		e := &InitListExpr{}
		if err := d.place(r, e); err != nil {
			return nil, err
		}
		var err error
		e.List, err = d.exprs(r.Inner)
		return e, err
	case "ImplicitInitExpr":
		e := &ImplicitInitExpr{}
		return e, d.place(r, e)
	}
	return nil, fmt.Errorf("asg: unknown expression kind %q", r.Kind)
}

func (d *decoder) single(r *Record, e Expr, sub *Expr) error {
	if err := d.place(r, e); err != nil {
		return err
	}
	if err := d.want(r, 1); err != nil {
		return err
	}
	var err error
	*sub, err = d.expr(r.Inner[0])
	return err
}

func (d *decoder) exprs(rs []*Record) ([]Expr, error) {
	out := make([]Expr, 0, len(rs))
	for _, c := range rs {
		e, err := d.expr(c)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
