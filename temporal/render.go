package temporal

import (
	"fmt"
	"strconv"
	"strings"
)

// Render writes f in NuSMV syntax. rename maps feature variable names to the
// identifiers used in the output; nil keeps names as they are. Atom names are
// never renamed.
func Render(f Formula, rename func(string) string) string {
	if rename == nil {
		rename = func(s string) string { return s }
	}
	var sb strings.Builder
	render(&sb, f, rename)
	return sb.String()
}

func render(sb *strings.Builder, f Formula, rename func(string) string) {
	switch f := f.(type) {
	case Top:
		sb.WriteString("TRUE")
	case Bottom:
		sb.WriteString("FALSE")
	case Atom:
		sb.WriteString(f.Name)
	case BoolEq:
		sb.WriteString(rename(f.Var))
		if f.Value {
			sb.WriteString(" = TRUE")
		} else {
			sb.WriteString(" = FALSE")
		}
	case IntEq:
		sb.WriteString(rename(f.Var))
		sb.WriteString(" = ")
		sb.WriteString(strconv.Itoa(f.Value))
	case InStates:
		if len(f.States) == 0 {
			sb.WriteString("FALSE")
			return
		}
		sb.WriteString("state in {")
		for i, s := range f.States {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(StateName(s))
		}
		sb.WriteString("}")
	case Not:
		sb.WriteString("!(")
		render(sb, f.F, rename)
		sb.WriteString(")")
	case And:
		if len(f.Fs) == 0 {
			sb.WriteString("TRUE")
			return
		}
		nary(sb, f.Fs, " & ", rename)
	case Or:
		if len(f.Fs) == 0 {
			sb.WriteString("FALSE")
			return
		}
		nary(sb, f.Fs, " | ", rename)
	case Implies:
		nary(sb, []Formula{f.Left, f.Right}, " -> ", rename)
	case EX:
		unary(sb, "EX", f.F, rename)
	case AX:
		unary(sb, "AX", f.F, rename)
	case EF:
		unary(sb, "EF", f.F, rename)
	case AF:
		unary(sb, "AF", f.F, rename)
	case EG:
		unary(sb, "EG", f.F, rename)
	case AG:
		unary(sb, "AG", f.F, rename)
	case EU:
		sb.WriteString("E [ ")
		render(sb, f.Left, rename)
		sb.WriteString(" U ")
		render(sb, f.Right, rename)
		sb.WriteString(" ]")
	case AU:
		sb.WriteString("A [ ")
		render(sb, f.Left, rename)
		sb.WriteString(" U ")
		render(sb, f.Right, rename)
		sb.WriteString(" ]")
	case Next:
		unary(sb, "X", f.F, rename)
	case Finally:
		unary(sb, "F", f.F, rename)
	case Globally:
		unary(sb, "G", f.F, rename)
	case Until:
		nary(sb, []Formula{f.Left, f.Right}, " U ", rename)
	case Once:
		unary(sb, "O", f.F, rename)
	default:
		panic(fmt.Sprintf("temporal: unknown formula %T", f))
	}
}

func unary(sb *strings.Builder, op string, f Formula, rename func(string) string) {
	sb.WriteString(op)
	sb.WriteString(" (")
	render(sb, f, rename)
	sb.WriteString(")")
}

func nary(sb *strings.Builder, fs []Formula, sep string, rename func(string) string) {
	sb.WriteString("(")
	for i, f := range fs {
		if i > 0 {
			sb.WriteString(sep)
		}
		render(sb, f, rename)
	}
	sb.WriteString(")")
}

// StateName is the identifier of state index i in encodings.
func StateName(i int) string {
	return "s" + strconv.Itoa(i)
}
