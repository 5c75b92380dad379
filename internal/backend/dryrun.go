package backend

import "context"

// cannedReply is what a dry run produces instead of calling the backend:
// one well-formed file so the downstream parser and writer get exercised.
const cannedReply = "Path: DRYRUN.md\n```\n# Dry run\n\nNo backend call was made. This file stands in for generated output.\n```\n"

// DryRun is a Generator that returns a fixed canned reply with no network
// I/O at all.
type DryRun struct{}

func (DryRun) Generate(_ context.Context, _, _ string, _ ModelOptions) (string, error) {
	return cannedReply, nil
}
