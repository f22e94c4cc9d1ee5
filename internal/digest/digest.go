// Package digest composes matched posts into a single notification body.
package digest

import "strings"

// Separator is placed between consecutive posts in a composed message.
const Separator = "\n\n"

// Compose joins matched post texts with a blank line between them.
// Zero matches yield an empty string. Texts are not escaped or truncated;
// size limits belong to the notification transport.
func Compose(matches []string) string {
	return strings.Join(matches, Separator)
}
