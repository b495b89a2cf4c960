package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CommitObject holds the parsed contents of a commit object.
type CommitObject struct {
	// Hash is the object ID of the commit.
	Hash Hash

	// Tree is the object ID of the commit's root tree.
	Tree Hash

	// Parents holds the object IDs of the commit's parents,
	// in order. The initial commit has no parents.
	Parents []Hash

	// Author and Committer are the commit's signatures.
	Author, Committer Signature

	// Subject is the first line of the commit message.
	Subject string

	// Body is the remainder of the commit message as Git reports it.
	// It is not trimmed, so a non-empty body usually ends with a newline.
	Body string
}

// Message joins the subject and body back into a single commit message.
func (c *CommitObject) Message() string {
	return CommitMessage{Subject: c.Subject, Body: c.Body}.String()
}

// readCommitFormat produces one NUL-separated record per commit in the order
// expected by parseCommitObject: hash, tree, parents (space-separated),
// author name, author email, author date, committer name, committer email,
// committer date, subject, body.
const readCommitFormat = "%H%x00%T%x00%P%x00" +
	"%an%x00%ae%x00%aI%x00" +
	"%cn%x00%ce%x00%cI%x00" +
	"%s%x00%b"

// ReadCommit reads and parses the commit named by commitish.
// commitish may be a full hash, an abbreviated hash, or any other
// revision Git understands.
func (r *Repository) ReadCommit(ctx context.Context, commitish string) (*CommitObject, error) {
	out, err := r.gitCmd(ctx,
		"show", "--no-patch", "--format="+readCommitFormat, commitish,
	).Output(r.exec)
	if err != nil {
		return nil, fmt.Errorf("git show: %w", err)
	}

	commit, err := parseCommitObject(string(out))
	if err != nil {
		return nil, fmt.Errorf("parse commit %v: %w", commitish, err)
	}
	return commit, nil
}

func parseCommitObject(raw string) (*CommitObject, error) {
	fields := strings.SplitN(raw, "\x00", 11)

	field := func(i int) string {
		if i >= len(fields) {
			return ""
		}
		return fields[i]
	}

	hash := strings.TrimSpace(field(0))

	tree := strings.TrimSpace(field(1))
	if tree == "" {
		return nil, errors.New("no tree hash")
	}

	if len(fields) < 3 {
		return nil, errors.New("no parent hashes")
	}
	var parents []Hash
	if raw := strings.TrimSpace(field(2)); raw != "" {
		for _, p := range strings.Fields(raw) {
			parents = append(parents, Hash(p))
		}
	}

	author, err := parseSignature(field(3), field(4), field(5))
	if err != nil {
		return nil, fmt.Errorf("parse author: %w", err)
	}

	committer, err := parseSignature(field(6), field(7), field(8))
	if err != nil {
		return nil, fmt.Errorf("parse committer: %w", err)
	}

	subject := strings.TrimSpace(field(9))
	if subject == "" {
		return nil, errors.New("no subject")
	}

	body := field(10)

	return &CommitObject{
		Hash:      Hash(hash),
		Tree:      Hash(tree),
		Parents:   parents,
		Author:    author,
		Committer: committer,
		Subject:   subject,
		Body:      body,
	}, nil
}

func parseSignature(name, email, date string) (Signature, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Signature{}, errors.New("no name")
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return Signature{}, errors.New("no email")
	}

	date = strings.TrimSpace(date)
	var t time.Time
	if date != "" {
		var err error
		t, err = time.Parse(time.RFC3339, date)
		if err != nil {
			return Signature{}, fmt.Errorf("parse time: %w", err)
		}
	}

	return Signature{Name: name, Email: email, Time: t}, nil
}
