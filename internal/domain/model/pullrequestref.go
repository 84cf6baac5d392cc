package model

// PullRequestRef is the head branch and commit of a pull request, resolved
// once per invocation from the issue number carried by the webhook.
type PullRequestRef struct {
	HeadRef string
	HeadSHA string
}
