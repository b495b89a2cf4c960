// Package hunk models unified diff hunks and their persistent assignment
// to stacks in the workspace.
package hunk

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// ChangeType classifies the kind of change a hunk represents.
type ChangeType int

const (
	// Modified indicates the hunk modifies existing lines.
	Modified ChangeType = iota

	// Added indicates the hunk is part of a newly added file.
	Added

	// Deleted indicates the hunk is part of a deleted file.
	Deleted
)

func (c ChangeType) String() string {
	switch c {
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	default:
		return "modified"
	}
}

// Header identifies a hunk's position within a unified diff,
// independent of its contents.
//
// Two hunks are the same hunk iff all four numbers and the file path match.
type Header struct {
	OldStart, OldLines int
	NewStart, NewLines int
}

// String renders the header in unified-diff form, e.g. "@@ -1,3 +1,4 @@".
func (h Header) String() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
}

// Contains reports whether h fully contains o: every line o touches,
// on both sides of the diff, is also touched by h.
func (h Header) Contains(o Header) bool {
	return h.NewStart <= o.NewStart &&
		h.NewStart+h.NewLines >= o.NewStart+o.NewLines &&
		h.OldStart <= o.OldStart &&
		h.OldStart+h.OldLines >= o.OldStart+o.OldLines
}

// OldRange reports the inclusive-exclusive line range this hunk covers on
// the "old" side of the diff.
func (h Header) OldRange() (start, end int) {
	return h.OldStart, h.OldStart + h.OldLines
}

// Overlaps reports whether h and o's old-side ranges intersect.
func (h Header) Overlaps(o Header) bool {
	aStart, aEnd := h.OldRange()
	bStart, bEnd := o.OldRange()
	return aStart < bEnd && bStart < aEnd
}

// Hunk is a single unit of change to a file, keyed by (Path, Header).
type Hunk struct {
	Path   string
	Header Header

	// ChangeType classifies the file-level operation this hunk is part
	// of.
	ChangeType ChangeType

	// Binary is true if this is a synthetic hunk for a binary file.
	// DiffLines is empty in that case; BlobHash carries the new blob's
	// hex object id instead.
	Binary   bool
	BlobHash string

	// DiffLines holds the hunk body, one unified-diff line per entry
	// (each prefixed with ' ', '+', or '-').
	DiffLines []string
}

// Key uniquely identifies a hunk within a worktree.
type Key struct {
	Path   string
	Header Header
}

// Key returns the identity key for this hunk.
func (h Hunk) Key() Key {
	return Key{Path: h.Path, Header: h.Header}
}

// ParseUnifiedHunks parses the hunks out of a single file's unified diff
// body (the part after the "diff --git"/"+++"/"---" preamble lines),
// tagging every hunk with the given path and change type.
func ParseUnifiedHunks(path string, diff string, changeType ChangeType) ([]Hunk, error) {
	var hunks []Hunk

	scan := bufio.NewScanner(strings.NewReader(diff))
	var cur *Hunk
	for scan.Scan() {
		line := scan.Text()
		if strings.HasPrefix(line, "@@") {
			if cur != nil {
				hunks = append(hunks, *cur)
			}
			hdr, err := parseHunkHeader(line)
			if err != nil {
				return nil, fmt.Errorf("parse hunk header %q: %w", line, err)
			}
			cur = &Hunk{Path: path, Header: hdr, ChangeType: changeType}
			continue
		}
		if cur == nil {
			continue // skip preamble
		}
		cur.DiffLines = append(cur.DiffLines, line)
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("scan diff: %w", err)
	}
	if cur != nil {
		hunks = append(hunks, *cur)
	}

	return hunks, nil
}

// BinaryHunk builds the single synthetic hunk representing a changed
// binary file.
func BinaryHunk(path, newBlobHash string, changeType ChangeType) Hunk {
	return Hunk{
		Path:       path,
		ChangeType: changeType,
		Binary:     true,
		BlobHash:   newBlobHash,
	}
}

// parseHunkHeader parses a line of the form "@@ -1,3 +1,4 @@ optional context".
func parseHunkHeader(line string) (Header, error) {
	if !strings.HasPrefix(line, "@@") {
		return Header{}, fmt.Errorf("not a hunk header: %q", line)
	}

	rest := strings.TrimPrefix(line, "@@")
	end := strings.Index(rest, "@@")
	if end == -1 {
		return Header{}, fmt.Errorf("missing closing @@: %q", line)
	}
	rest = strings.TrimSpace(rest[:end])

	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return Header{}, fmt.Errorf("expected 2 range fields, got %d: %q", len(fields), rest)
	}

	oldStart, oldLines, err := parseRange(fields[0], '-')
	if err != nil {
		return Header{}, fmt.Errorf("old range: %w", err)
	}
	newStart, newLines, err := parseRange(fields[1], '+')
	if err != nil {
		return Header{}, fmt.Errorf("new range: %w", err)
	}

	return Header{
		OldStart: oldStart, OldLines: oldLines,
		NewStart: newStart, NewLines: newLines,
	}, nil
}

func parseRange(field string, prefix byte) (start, lines int, err error) {
	if len(field) == 0 || field[0] != prefix {
		return 0, 0, fmt.Errorf("expected prefix %q: %q", string(prefix), field)
	}
	field = field[1:]

	countStr := "1"
	startStr := field
	if idx := strings.IndexByte(field, ','); idx != -1 {
		startStr, countStr = field[:idx], field[idx+1:]
	}

	start, err = strconv.Atoi(startStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start %q: %w", startStr, err)
	}
	lines, err = strconv.Atoi(countStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid count %q: %w", countStr, err)
	}
	return start, lines, nil
}
