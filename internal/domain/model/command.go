package model

// DefaultModule is the sentinel module selecting the all-modules workflow.
// A bare "/ci" comment resolves to it.
const DefaultModule = "all"

// Command is a parsed "/ci [module]" directive extracted from a pull request
// comment. Module is always non-empty; a bare "/ci" yields DefaultModule.
type Command struct {
	Module string
}

// CommentEvent is the normalized form of an issue_comment webhook delivery,
// carrying only the fields the trigger pipeline needs. Built once per
// invocation by the HTTP adapter and never mutated.
type CommentEvent struct {
	Owner         string
	Repo          string
	IssueNumber   int
	CommentBody   string
	IsPullRequest bool // True when the comment sits on a PR, not a plain issue.
}
