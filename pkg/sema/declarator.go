package sema

import (
	"strings"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/asg"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/cabs"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/ctypes"
)

// declared is the result of walking one declarator
type declared struct {
	name   string
	pos    cabs.Pos
	typ    *ctypes.Type
	params []*asg.VarDecl // from the function link nearest the identifier
}

// specType turns a specifier/qualifier list into a base type
func specType(ds cabs.DeclSpec) (*ctypes.Type, error) {
	var qual ctypes.Qual
	counts := make(map[cabs.Specifier]int)
	var words []string
	for _, s := range ds.Specs {
		if s == cabs.SpecConst {
			qual.Const = true
			continue
		}
		counts[s]++
		words = append(words, s.String())
	}
	text := strings.Join(words, " ")

	var spec ctypes.Spec
	switch {
	case len(words) == 0:
		return nil, errorf(TypeConstruction, ds.Pos, "missing type specifier")
	case counts[cabs.SpecVoid] == 1 && len(words) == 1:
		spec = ctypes.Void
	case counts[cabs.SpecChar] == 1 && len(words) == 1:
		spec = ctypes.Char
	case counts[cabs.SpecInt] == 1 && len(words) == 1:
		spec = ctypes.Int
	case counts[cabs.SpecLong] == 1 && counts[cabs.SpecInt] <= 1 && len(words) == 1+counts[cabs.SpecInt]:
		spec = ctypes.Long
	case counts[cabs.SpecLong] == 2 && counts[cabs.SpecInt] <= 1 && len(words) == 2+counts[cabs.SpecInt]:
		spec = ctypes.LongLong
	default:
		return nil, errorf(TypeConstruction, ds.Pos, "invalid type specifier '%s'", text)
	}
	return ctypes.New(spec, qual, nil), nil
}

// declarator threads the base type outward through d, from the outermost
// syntax node to the identifier. The last link applied is the outermost
// link of the resulting type.
func (b *builder) declarator(st *Symtab, base *ctypes.Type, d cabs.Declarator) (declared, error) {
	out := declared{typ: base}
	for d != nil {
		switch x := d.(type) {
		case cabs.IdentDecl:
			out.name, out.pos = x.Name, x.Pos
			return out, nil
		case cabs.PointerDecl:
			out.typ = ctypes.New(out.typ.Spec, out.typ.Qual, &ctypes.Tpointer{Sub: out.typ.Texp, Const: x.Const})
			d = x.Inner
		case cabs.ArrayDecl:
			switch {
			case out.typ.IsFunction():
				return out, errorf(TypeConstruction, x.Pos, "array of functions is not allowed")
			case out.typ.IsVoid():
				return out, errorf(TypeConstruction, x.Pos, "array has element type 'void'")
			case out.typ.IsArray() && out.typ.Array().Len == ctypes.UnboundedLen:
				return out, errorf(TypeConstruction, x.Pos, "array has incomplete element type '%s'", out.typ)
			}
			n := int64(ctypes.UnboundedLen)
			if x.Size != nil {
				var err error
				if n, err = b.arrayLength(st, x.Size, x.Pos); err != nil {
					return out, err
				}
			}
			out.typ = out.typ.ArrayOf(n)
			out.pos = x.Pos
			d = x.Inner
		case cabs.FuncDecl:
			if x.Idents != nil {
				return out, errorf(Structural, x.Pos, "identifier list in function declarator is not supported")
			}
			if out.typ.IsFunction() || out.typ.IsArray() {
				return out, errorf(TypeConstruction, x.Pos, "function cannot return '%s'", out.typ)
			}
			params, types, err := b.params(st, x.Params)
			if err != nil {
				return out, err
			}
			out.typ = ctypes.New(out.typ.Spec, out.typ.Qual, &ctypes.Tfunction{Sub: out.typ.Texp, Params: types})
			out.params = params
			out.pos = x.Pos
			d = x.Inner
		default:
			panic("sema: unhandled declarator")
		}
	}
	return out, nil
}

// params lowers a parameter type list. Array and function parameters are
// adjusted to pointers.
func (b *builder) params(st *Symtab, ps []cabs.Param) ([]*asg.VarDecl, []*ctypes.Type, error) {
	var decls []*asg.VarDecl
	var types []*ctypes.Type
	for _, p := range ps {
		base, err := specType(p.Spec)
		if err != nil {
			return nil, nil, err
		}
		dd, err := b.declarator(st, base, p.Decl)
		if err != nil {
			return nil, nil, err
		}
		t := adjustParam(dd.typ)
		if t.IsVoid() {
			return nil, nil, errorf(TypeConstruction, p.Spec.Pos, "parameter has type 'void'")
		}
		v := asg.New(b.arena, &asg.VarDecl{Name: dd.name, Typ: t})
		b.at(v, dd.pos)
		decls = append(decls, v)
		types = append(types, t)
	}
	return decls, types, nil
}

func adjustParam(t *ctypes.Type) *ctypes.Type {
	switch {
	case t.IsArray():
		return t.Sub().PointerTo()
	case t.IsFunction():
		return t.PointerTo()
	}
	return t
}
