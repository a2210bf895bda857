package notify

import (
	"bytes"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// StripMarkdown flattens markdown to the plain text a handset should show.
// Link and image syntax collapses to the bare URL so terminals and phones
// can make it tappable; code keeps its content; emphasis markers disappear.
func StripMarkdown(text string) string {
	doc := markdown.Parse([]byte(text), parser.New())

	var b strings.Builder
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		switch n := node.(type) {
		case *ast.Text:
			if entering {
				b.Write(n.Literal)
			}
		case *ast.Code:
			if entering {
				b.Write(n.Literal)
			}
		case *ast.CodeBlock:
			if entering {
				b.Write(bytes.TrimRight(n.Literal, "\n"))
				b.WriteString("\n")
			}
		case *ast.Link:
			if entering {
				b.Write(n.Destination)
				return ast.SkipChildren
			}
		case *ast.Image:
			if entering {
				b.Write(n.Destination)
				return ast.SkipChildren
			}
		case *ast.ListItem:
			if entering {
				b.WriteString("- ")
			}
		case *ast.Paragraph, *ast.Heading:
			if !entering {
				b.WriteString("\n")
			}
		case *ast.Hardbreak:
			if entering {
				b.WriteString("\n")
			}
		case *ast.Softbreak:
			if entering {
				b.WriteString(" ")
			}
		}
		return ast.GoToNext
	})

	return strings.TrimSpace(b.String())
}
