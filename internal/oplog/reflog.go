package oplog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.abhg.dev/vbr/internal/git"
)

// pinReflog writes a synthetic reflog entry for ref directly to disk,
// so the chain's tip stays reachable across a garbage collection
// without ref itself ever showing up in 'git log --all'.
//
// Git only considers a ref's reflog when deciding what's reachable if
// the reflog has a recent-enough entry; the entries this writes exist
// purely to carry a fresh wallclock timestamp, not to describe a real
// history. The first line pretends ref was just created pointing at
// prevHead (or the zero hash, if this is the first snapshot); the
// second "resets" it to newHead.
func pinReflog(gitDir, ref string, prevHead, newHead git.Hash, sig git.Signature, when time.Time) error {
	path := filepath.Join(gitDir, "logs", filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	created := prevHead
	if created == "" {
		created = git.ZeroHash
	}

	lines := []string{
		reflogLine(git.ZeroHash, created, sig, when, fmt.Sprintf("branch: Created from %s", created)),
		reflogLine(created, newHead, sig, when, fmt.Sprintf("reset: moving to %s", newHead)),
	}
	for _, line := range lines {
		if _, err := f.WriteString(line); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
	return nil
}

// reflogLine formats a single reflog record in the same layout Git
// itself writes to .git/logs/<ref>:
//
//	<old-oid> SP <new-oid> SP <name> SP '<' <email> '>' SP <unix-time> SP <tz-offset> TAB <message> NL
func reflogLine(oldOID, newOID git.Hash, sig git.Signature, when time.Time, message string) string {
	return fmt.Sprintf("%s %s %s <%s> %d %s\t%s\n",
		oldOID, newOID, sig.Name, sig.Email, when.Unix(), when.Format("-0700"), message)
}
