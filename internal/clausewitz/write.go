package clausewitz

import (
	"io"
	"strings"
)

// Write serialises obj to w, indenting every line by depth tabs.
func Write(w io.Writer, obj Object, depth int) error {
	_, err := io.WriteString(w, Format(obj, depth))
	return err
}

// Format returns the serialised form of obj.
func Format(obj Object, depth int) string {
	var sb strings.Builder
	format(&sb, obj, depth)
	return sb.String()
}

func format(sb *strings.Builder, obj Object, depth int) {
	indent := strings.Repeat("\t", depth)

	for _, e := range obj {
		sb.WriteString(indent)

		if e.Bare {
			writeLiteral(sb, e.Value)
			sb.WriteByte('\n')
			continue
		}

		if strings.Contains(e.Key, " ") {
			sb.WriteString(`"` + e.Key + `"`)
		} else {
			sb.WriteString(e.Key)
		}
		sb.WriteByte('=')

		if e.Value.Kind != KindObject {
			writeLiteral(sb, e.Value)
			sb.WriteByte('\n')
			continue
		}

		if len(e.Value.Obj) == 0 {
			sb.WriteString("{}\n")
			continue
		}
		sb.WriteString("{\n")
		format(sb, e.Value.Obj, depth+1)
		sb.WriteString(indent)
		sb.WriteString("}\n")
	}
}

func writeLiteral(sb *strings.Builder, v Value) {
	switch {
	case v.Kind == KindBool && v.Bool:
		sb.WriteString("yes")
	case v.Kind == KindBool:
		sb.WriteString("no")
	case v.Str == "male" || v.Str == "female":
		sb.WriteString(v.Str)
	default:
		sb.WriteString(`"` + v.Str + `"`)
	}
}
