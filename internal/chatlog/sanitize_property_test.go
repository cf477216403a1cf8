package chatlog_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/edgard/chatcsv/internal/chatlog"
)

var safeKey = regexp.MustCompile(`^[\w.-]{0,100}$`)

// TestSanitizeProperties checks the sanitizer's safety invariants over
// arbitrary input: the output alphabet is restricted to [\w.-], length is
// bounded, no path separators survive, and sanitization is idempotent.
func TestSanitizeProperties(t *testing.T) {
	t.Parallel()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("output matches ^[\\w.-]{0,100}$", prop.ForAll(
		func(input string) bool {
			return safeKey.MatchString(chatlog.Sanitize(input))
		},
		gen.AnyString(),
	))

	properties.Property("output contains no path separators", prop.ForAll(
		func(input string) bool {
			out := chatlog.Sanitize(input)
			return !strings.ContainsAny(out, `/\`)
		},
		gen.AnyString(),
	))

	properties.Property("sanitization is idempotent", prop.ForAll(
		func(input string) bool {
			once := chatlog.Sanitize(input)
			return chatlog.Sanitize(once) == once
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
