package git

import (
	"context"
	"fmt"
	"iter"
	"strings"
)

// ReferenceInfo describes a single ref: either a direct pointer to an
// object, or a symbolic pointer to another ref (as HEAD usually is).
type ReferenceInfo struct {
	// Name is the full ref name, e.g. "refs/heads/main" or "HEAD".
	Name string

	// Target is the object hash this ref points to, or, if Symbolic
	// is set, the name of the ref it points to.
	Target string

	Symbolic bool
}

func parseReferenceLine(name, line string) (ReferenceInfo, error) {
	oid, symref, _ := strings.Cut(line, " ")
	if symref != "" {
		return ReferenceInfo{Name: name, Target: symref, Symbolic: true}, nil
	}
	if oid == "" {
		return ReferenceInfo{}, fmt.Errorf("%s: empty for-each-ref output", name)
	}
	return ReferenceInfo{Name: name, Target: oid, Symbolic: false}, nil
}

// Reference resolves a single ref by its full name, without following
// it past one level: a symbolic ref reports the ref it points to, not
// the commit at the end of the chain.
//
// It returns [ErrNotExist] if the ref does not exist.
func (r *Repository) Reference(ctx context.Context, name string) (*ReferenceInfo, error) {
	out, err := r.gitCmd(ctx,
		"for-each-ref",
		"--format=%(objectname) %(symref)",
		"--count=1",
		name,
	).OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("for-each-ref %s: %w", name, err)
	}
	if out == "" {
		return nil, ErrNotExist
	}

	info, err := parseReferenceLine(name, out)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// References lists every ref whose name starts with prefix, in the
// order git-for-each-ref reports them (lexical by refname).
func (r *Repository) References(ctx context.Context, prefix string) iter.Seq2[ReferenceInfo, error] {
	return func(yield func(ReferenceInfo, error) bool) {
		for line, err := range r.gitCmd(ctx,
			"for-each-ref",
			"--format=%(refname) %(objectname) %(symref)",
			prefix,
		).ScanLines(r.exec) {
			if err != nil {
				yield(ReferenceInfo{}, fmt.Errorf("for-each-ref %s: %w", prefix, err))
				return
			}

			name, rest, ok := strings.Cut(string(line), " ")
			if !ok {
				continue
			}
			info, err := parseReferenceLine(name, rest)
			if err != nil {
				yield(ReferenceInfo{}, err)
				return
			}
			if !yield(info, nil) {
				return
			}
		}
	}
}
