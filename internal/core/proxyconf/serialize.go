package proxyconf

import "strings"

const indentUnit = "    "

// Serialize renders a tree as nginx configuration text. A document renders
// its children at the top level; any other node renders itself. The output is
// a pure function of the tree and an empty document renders as "".
func Serialize(n Node) string {
	var sb strings.Builder
	if doc, ok := n.(*Block); ok && doc != nil && doc.Name == "" {
		for _, child := range doc.Children {
			write(&sb, child, 0)
		}
		return sb.String()
	}
	write(&sb, n, 0)
	return sb.String()
}

func write(sb *strings.Builder, n Node, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	switch v := n.(type) {
	case *Comment:
		for _, line := range strings.Split(v.Text, "\n") {
			sb.WriteString(indent)
			sb.WriteString(strings.TrimRight("# "+line, " "))
			sb.WriteByte('\n')
		}
	case *Directive:
		sb.WriteString(indent)
		sb.WriteString(v.Key)
		if v.Value != "" {
			sb.WriteByte(' ')
			sb.WriteString(v.Value)
		}
		sb.WriteString(";\n")
	case *Block:
		sb.WriteString(indent)
		sb.WriteString(v.Name)
		sb.WriteString(" {\n")
		for _, child := range v.Children {
			write(sb, child, depth+1)
		}
		sb.WriteString(indent)
		sb.WriteString("}\n")
	}
}
