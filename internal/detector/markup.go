package detector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/raysh454/shiro/internal/logging"
	"github.com/raysh454/shiro/internal/model"
)

// markup.form_action flags forms posting to an absolute URL: the action
// endpoint itself may be internal topology worth redacting.
const formActionPattern = "markup.form_action"

// markupFindings runs the ruleset over segments the plain line scan can miss:
// entity-decoded script bodies and comments, and attribute values. Parse
// failures degrade to no findings — the line scan already covered the raw
// text.
func (d *Modular) markupFindings(content string) []model.Match {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		d.logger.Debug("markup parse failed, skipping markup pass",
			logging.Field{Key: "error", Value: err.Error()})
		return nil
	}

	var matches []model.Match

	// Script bodies, entity-decoded by the parser.
	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		matches = append(matches, d.scanSegment(content, sel.Text())...)
	})

	// Form actions posting to absolute URLs.
	doc.Find("form[action]").Each(func(_ int, sel *goquery.Selection) {
		action, _ := sel.Attr("action")
		if !strings.HasPrefix(action, "http://") && !strings.HasPrefix(action, "https://") {
			return
		}
		line, col := locate(content, action)
		matches = append(matches, model.Match{
			Pattern:  formActionPattern,
			Line:     line,
			Column:   col,
			Excerpt:  buildExcerpt(action, action, false),
			Severity: model.SeverityMedium,
		})
		matches = append(matches, d.scanSegment(content, action)...)
	})

	// Comment nodes; goquery has no comment selector so walk the tree.
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.CommentNode {
			matches = append(matches, d.scanSegment(content, n.Data)...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range doc.Nodes {
		walk(root)
	}

	return matches
}

// scanSegment runs the rules over one extracted segment, locating findings
// back in the raw content where possible.
func (d *Modular) scanSegment(content, segment string) []model.Match {
	var matches []model.Match
	for _, rule := range d.rules {
		for _, loc := range rule.Pattern.FindAllStringIndex(segment, -1) {
			matched := segment[loc[0]:loc[1]]
			line, col := locate(content, matched)
			excerptBase := segmentLine(segment, loc[0])
			matches = append(matches, model.Match{
				Pattern:  rule.ID,
				Line:     line,
				Column:   col,
				Excerpt:  buildExcerpt(excerptBase, matched, rule.Redact),
				Severity: rule.Severity,
			})
		}
	}
	return matches
}

// locate finds the first occurrence of needle in the raw content and returns
// its 1-based line and column. Entity-encoded content won't be found verbatim;
// fall back to line 1 column 1 rather than dropping the finding.
func locate(content, needle string) (line, col int) {
	idx := strings.Index(content, needle)
	if idx < 0 {
		return 1, 1
	}
	prefix := content[:idx]
	line = strings.Count(prefix, "\n") + 1
	if last := strings.LastIndexByte(prefix, '\n'); last >= 0 {
		col = idx - last
	} else {
		col = idx + 1
	}
	return line, col
}

// segmentLine returns the segment line containing offset, for excerpts.
func segmentLine(segment string, offset int) string {
	start := strings.LastIndexByte(segment[:offset], '\n') + 1
	end := strings.IndexByte(segment[offset:], '\n')
	if end < 0 {
		return segment[start:]
	}
	return segment[start : offset+end]
}
