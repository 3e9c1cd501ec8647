package registry

import (
	"fmt"
	"os/exec"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// GitTierStale reports whether a git-tier dependency's vendored checkout at
// checkoutDir has moved since indexedCommit. It shells out to `git diff`
// against the recorded commit and parses the unified diff with
// sourcegraph/go-diff the same way the teacher's internal/diff package
// parses a PR's diff — here any non-empty file list means the pre-built
// index for this commit can no longer be trusted.
func GitTierStale(checkoutDir, indexedCommit string) (bool, error) {
	cmd := exec.Command("git", "diff", indexedCommit)
	cmd.Dir = checkoutDir
	out, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("git diff against %s: %w", indexedCommit, err)
	}
	if len(out) == 0 {
		return false, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff(out)
	if err != nil {
		return false, fmt.Errorf("parse diff output: %w", err)
	}
	return len(fileDiffs) > 0, nil
}
