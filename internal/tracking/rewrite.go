package tracking

import (
	"fmt"
	"regexp"
	"strings"
)

var hrefPattern = regexp.MustCompile(`href="([^"]+)"`)

// Rewrite transforms raw campaign HTML into the tracked variant sent to one
// recipient: every href attribute is pointed at the click redirect with the
// original target preserved in the url query parameter, and an invisible
// open-pixel image is injected just before </body> (appended at the end when
// the document has no body close tag).
//
// Matching is attribute-syntax based, not a full HTML parse; documents with
// malformed or nested quoting may rewrite incorrectly. Rewrite is pure and
// deterministic: identical inputs produce byte-identical output, and links
// already pointing at clickPrefix are left alone.
func Rewrite(rawHTML, openURL, clickPrefix string) string {
	out := hrefPattern.ReplaceAllStringFunc(rawHTML, func(match string) string {
		original := match[len(`href="`) : len(match)-1]
		if strings.HasPrefix(original, clickPrefix) {
			return match
		}
		return fmt.Sprintf(`href="%s?url=%s"`, clickPrefix, original)
	})

	pixel := fmt.Sprintf(`<img src="%s" width="1" height="1" style="display:none" />`, openURL)
	if strings.Contains(out, "</body>") {
		return strings.Replace(out, "</body>", pixel+"</body>", 1)
	}
	return out + pixel
}
