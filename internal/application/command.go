package application

import (
	"regexp"
	"strings"

	"github.com/ericfisherdev/cirelay/internal/domain/model"
)

// commandPattern matches a whole comment that is exactly a slash command:
// the literal "/ci", optionally followed by whitespace and a single
// word-character module token. Anything before, after, or in addition makes
// the comment a non-command.
var commandPattern = regexp.MustCompile(`^/ci(?:\s+(\w+))?$`)

// ParseCommand extracts a /ci command from a comment body. The second return
// is false when the comment is not a CI command at all; whether the named
// module is valid is a separate question answered by the module mapping.
func ParseCommand(commentBody string) (model.Command, bool) {
	matches := commandPattern.FindStringSubmatch(strings.TrimSpace(commentBody))
	if matches == nil {
		return model.Command{}, false
	}

	module := matches[1]
	if module == "" {
		module = model.DefaultModule
	}

	return model.Command{Module: module}, true
}
