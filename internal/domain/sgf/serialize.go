package sgf

import (
	"strings"
)

// fixed property order for the root-ish properties, the rest keep insertion order
var orderedKeys = []string{"FF", "GM", "CA", "SZ", "PB", "PW", "DT", "RE", "KM", "HA", "RU", "AB", "AW", "B", "W", "C"}

func SerializeSGF(s *SGF) string {
	var builder strings.Builder
	builder.WriteString("(")
	serializeGameTree(&builder, s.Root)
	builder.WriteString(")\n")
	return builder.String()
}

func serializeGameTree(builder *strings.Builder, tree *GameTree) {
	for _, node := range tree.Nodes {
		builder.WriteString(";")

		used := make(map[string]bool)
		for _, key := range orderedKeys {
			if values, ok := node.Properties[key]; ok {
				used[key] = true
				writeProperty(builder, key, values)
			}
		}

		for _, key := range node.Keys() {
			if !used[key] {
				writeProperty(builder, key, node.Properties[key])
			}
		}
	}

	for _, child := range tree.Children {
		builder.WriteString("\n(")
		serializeGameTree(builder, child)
		builder.WriteString(")")
	}
}

func writeProperty(builder *strings.Builder, key string, values []string) {
	builder.WriteString(key)
	for _, v := range values {
		builder.WriteString("[")
		builder.WriteString(escape(v))
		builder.WriteString("]")
	}
}

func escape(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, "]", `\]`)
}
