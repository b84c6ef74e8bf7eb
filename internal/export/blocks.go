package export

import (
	"fmt"
	"strings"

	"gitlab.com/golang-commonmark/markdown"
)

type blockKind int

const (
	blockHeading1 blockKind = iota
	blockHeading2
	blockParagraph
	blockBullet
	blockCode
)

// block is one laid-out unit of report content
type block struct {
	kind blockKind
	text string
}

var contentParser = markdown.New(
	markdown.HTML(false),
	markdown.Linkify(false),
	markdown.Typographer(false),
)

// parseBlocks flattens markdown into headings, paragraphs, list items and
// code. Headings below level 2 are rendered as level 2. Text before the first
// top-level heading is placed under a "Summary" heading.
func parseBlocks(content string) []block {
	var blocks []block

	var (
		heading   blockKind = -1
		listDepth int
		ordered   []int
		itemStart bool
	)

	for _, tok := range contentParser.Parse([]byte(content)) {
		switch t := tok.(type) {
		case *markdown.HeadingOpen:
			if t.HLevel == 1 {
				heading = blockHeading1
			} else {
				heading = blockHeading2
			}
		case *markdown.HeadingClose:
			heading = -1
		case *markdown.BulletListOpen:
			listDepth++
			ordered = append(ordered, 0)
		case *markdown.OrderedListOpen:
			listDepth++
			ordered = append(ordered, t.Order)
		case *markdown.BulletListClose, *markdown.OrderedListClose:
			listDepth--
			ordered = ordered[:len(ordered)-1]
		case *markdown.ListItemOpen:
			itemStart = true
		case *markdown.Inline:
			text := inlineText(t.Children)
			if strings.TrimSpace(text) == "" {
				continue
			}
			switch {
			case heading >= 0:
				blocks = append(blocks, block{kind: heading, text: text})
			case listDepth > 0 && itemStart:
				marker := "•"
				if n := ordered[len(ordered)-1]; n > 0 {
					marker = fmt.Sprintf("%d.", n)
					ordered[len(ordered)-1]++
				}
				indent := strings.Repeat("  ", listDepth-1)
				blocks = append(blocks, block{kind: blockBullet, text: indent + marker + " " + text})
				itemStart = false
			default:
				blocks = append(blocks, block{kind: blockParagraph, text: text})
			}
		case *markdown.Fence:
			blocks = append(blocks, block{kind: blockCode, text: strings.TrimRight(t.Content, "\n")})
		case *markdown.CodeBlock:
			blocks = append(blocks, block{kind: blockCode, text: strings.TrimRight(t.Content, "\n")})
		}
	}

	if len(blocks) > 0 && blocks[0].kind != blockHeading1 {
		blocks = append([]block{{kind: blockHeading1, text: "Summary"}}, blocks...)
	}
	return blocks
}

func inlineText(tokens []markdown.Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		switch t := tok.(type) {
		case *markdown.Text:
			b.WriteString(t.Content)
		case *markdown.CodeInline:
			b.WriteString(t.Content)
		case *markdown.Softbreak:
			b.WriteString(" ")
		case *markdown.Hardbreak:
			b.WriteString("\n")
		case *markdown.Image:
			b.WriteString(inlineText(t.Tokens))
		}
	}
	return b.String()
}
