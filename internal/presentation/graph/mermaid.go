// Package graph renders the concern taxonomy as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/talisman"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/taxonomy"
)

// RootID is the node every category hangs from.
const RootID = "start"

// DirectInputID is the free-text branch offered next to the categories.
const DirectInputID = "direct"

// GraphOverlay marks the path a conversation selected.
type GraphOverlay struct {
	Path domain.ConcernPath
	// FreeText marks the direct input branch instead of a taxonomy path.
	FreeText bool
}

// GenerateMermaid produces a Mermaid flowchart of tx.
// Shapes follow the dialogue steps:
// - Root: ((Circle))
// - Category, topic and detail: [Rectangle]
// - Leaf option: [/Parallelogram/]
// - Direct input: {{Hexagon}}
// The overlay, if provided, styles the selected path.
func GenerateMermaid(tx *taxonomy.Taxonomy, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", RootID, "고민")
	fmt.Fprintf(&sb, "    %s{{\"%s\"}}\n", DirectInputID, escapeLabel(talisman.OptionDirectInput))
	fmt.Fprintf(&sb, "    %s -.-> %s\n", RootID, DirectInputID)

	var visited []string
	var current string
	if overlay != nil && overlay.FreeText {
		visited = []string{RootID}
		current = DirectInputID
	}

	for ci, c := range tx.Categories {
		cid := fmt.Sprintf("c%d", ci)
		writeNode(&sb, cid, c.Name, "[", "]")
		fmt.Fprintf(&sb, "    %s --> %s\n", RootID, cid)
		for ti, t := range c.Topics {
			tid := fmt.Sprintf("%s_t%d", cid, ti)
			writeNode(&sb, tid, t.Name, "[", "]")
			fmt.Fprintf(&sb, "    %s --> %s\n", cid, tid)
			for di, d := range t.Details {
				did := fmt.Sprintf("%s_d%d", tid, di)
				writeNode(&sb, did, d.Name, "[", "]")
				fmt.Fprintf(&sb, "    %s --> %s\n", tid, did)
				for oi, o := range d.Options {
					oid := fmt.Sprintf("%s_o%d", did, oi)
					writeNode(&sb, oid, o, "[/", "/]")
					fmt.Fprintf(&sb, "    %s --> %s\n", did, oid)
				}
			}
		}
	}

	if overlay != nil && !overlay.FreeText {
		visited, current = pathNodes(tx, overlay.Path)
	}
	if len(visited) == 0 && current == "" {
		return sb.String()
	}

	sb.WriteString("\n    %% Overlay Styles\n")
	// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
	sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
	for _, id := range visited {
		fmt.Fprintf(&sb, "    class %s visited;\n", id)
	}
	if current != "" {
		fmt.Fprintf(&sb, "    class %s current;\n", current)
	}
	return sb.String()
}

// pathNodes resolves the node IDs of p. The deepest resolved segment is current.
// Segments that do not exist in tx end the walk.
func pathNodes(tx *taxonomy.Taxonomy, p domain.ConcernPath) (visited []string, current string) {
	segs := p.Segments()
	if len(segs) == 0 {
		return nil, ""
	}
	ids := []string{RootID}

	ci := indexOf(len(tx.Categories), func(i int) string { return tx.Categories[i].Name }, p.Category)
	if ci >= 0 {
		c := tx.Categories[ci]
		cid := fmt.Sprintf("c%d", ci)
		ids = append(ids, cid)
		ti := indexOf(len(c.Topics), func(i int) string { return c.Topics[i].Name }, p.Topic)
		if ti >= 0 {
			t := c.Topics[ti]
			tid := fmt.Sprintf("%s_t%d", cid, ti)
			ids = append(ids, tid)
			di := indexOf(len(t.Details), func(i int) string { return t.Details[i].Name }, p.Detail)
			if di >= 0 {
				d := t.Details[di]
				did := fmt.Sprintf("%s_d%d", tid, di)
				ids = append(ids, did)
				oi := indexOf(len(d.Options), func(i int) string { return d.Options[i] }, p.Leaf)
				if oi >= 0 {
					ids = append(ids, fmt.Sprintf("%s_o%d", did, oi))
				}
			}
		}
	}
	return ids[:len(ids)-1], ids[len(ids)-1]
}

func indexOf(n int, name func(int) string, want string) int {
	if want == "" {
		return -1
	}
	for i := range n {
		if name(i) == want {
			return i
		}
	}
	return -1
}

func writeNode(sb *strings.Builder, id, label, opener, closer string) {
	fmt.Fprintf(sb, "    %s%s\"%s\"%s\n", id, opener, escapeLabel(label), closer)
}

// escapeLabel replaces double quotes, which end a Mermaid label.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
