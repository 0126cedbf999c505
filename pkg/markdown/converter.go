package markdown

import (
	"fmt"

	"github.com/russross/blackfriday/v2"
)

// ToHTML converts a markdown report body to HTML for the browser dashboard
func ToHTML(markdown string) string {
	if markdown == "" {
		return ""
	}

	return string(blackfriday.Run([]byte(markdown), blackfriday.WithExtensions(blackfriday.CommonExtensions)))
}

// WrapPage embeds a rendered report body in a minimal standalone page
func WrapPage(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: monospace; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
blockquote { color: #555; border-left: 3px solid #ccc; margin-left: 0; padding-left: 1rem; }
</style>
</head>
<body>
%s
</body>
</html>
`, title, body)
}
