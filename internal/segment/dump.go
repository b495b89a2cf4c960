package segment

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human-readable rendering of the graph to w, one segment
// per block, each commit indented under its segment and annotated with
// the entry-point flags it carries. It exists for debugging the output
// of [Build], not for machine consumption.
func (g *Graph) Dump(w io.Writer) {
	for i, seg := range g.Segments {
		marker := " "
		if i == g.Entrypoint.SegmentIndex {
			marker = "*"
		}
		fmt.Fprintf(w, "%s segment %d\n", marker, i)
		for j, c := range seg.Commits {
			fmt.Fprintf(w, "    %s %s\n", c.OID, dumpFlags(c.Flags))
			if j == len(seg.Commits)-1 && seg.EarlyEnd {
				fmt.Fprintln(w, "      (early end)")
			}
		}
	}
	for _, e := range g.Edges {
		fmt.Fprintf(w, "  %d[%d] -> %d\n", e.FromSegment, e.FromIndex, e.ToSegment)
	}
}

func dumpFlags(f Flags) string {
	var parts []string
	if f.InWorkspace {
		parts = append(parts, "workspace")
	}
	if f.Integrated {
		parts = append(parts, "integrated")
	}
	if f.ReachableByRemote {
		parts = append(parts, "remote")
	}
	if f.ReachableByMatchingRemote {
		parts = append(parts, "matching-remote")
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
