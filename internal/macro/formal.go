package macro

// Kind says whether a formal must be supplied.
type Kind int

// Formal kinds.
const (
	KindOptional Kind = iota // has a default, possibly empty
	KindRequired             // declared with :req
	KindVararg               // declared with :vararg, absorbs trailing actuals
)

func (k Kind) String() string {
	switch k {
	case KindOptional:
		return "optional"
	case KindRequired:
		return "required"
	case KindVararg:
		return "vararg"
	default:
		return "unknown"
	}
}

// Role says how a formal is referenced. Only RolePositional formals are
// declared by users; the others are engine-provided.
type Role int

// Formal roles.
const (
	RolePositional Role = iota
	RoleQualifier
	RoleArgCount
	RoleLocal
)

func (r Role) String() string {
	switch r {
	case RolePositional:
		return "positional"
	case RoleQualifier:
		return "qualifier"
	case RoleArgCount:
		return "argcount"
	case RoleLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Formal is one declared parameter of a macro.
type Formal struct {
	Name    string
	Default string
	Kind    Kind
	Role    Role
	Index   int // declaration order; only meaningful for RolePositional
}

// Signature renders the formal the way it is declared in a header.
func (f *Formal) Signature() string {
	s := f.Name
	switch f.Kind {
	case KindRequired:
		s += ":req"
	case KindVararg:
		s += ":vararg"
	}
	if f.Default != "" {
		s += "=" + f.Default
	}
	return s
}

// Names reserved for the hidden MRI formals.
const (
	narg      = "NARG"
	qualifier = "0"
)

// frame holds the text bound to each formal for one invocation. Frames are
// never shared between invocations.
type frame struct {
	values map[*Formal]string
	bound  map[*Formal]bool
	locals map[string]string
	// positional holds positional actuals in call order for MRI \1..\9.
	positional []string
	count      int
	qual       string
}

func newFrame() *frame {
	return &frame{
		values: make(map[*Formal]string),
		bound:  make(map[*Formal]bool),
		locals: make(map[string]string),
	}
}

func (fr *frame) bind(f *Formal, v string) {
	fr.values[f] = v
	fr.bound[f] = true
}
