package parser

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"timeline-agent/models"
)

// ErrNoPostID is returned when an article carries no status link.
var ErrNoPostID = errors.New("article has no status link")

// ParseArticleHTML turns the outer HTML of one timeline article into a RawPost.
// Entity lists are parsed from the post text.
func ParseArticleHTML(outerHTML string) (*models.RawPost, error) {
	nodes, err := html.ParseFragment(strings.NewReader(outerHTML), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	post := &models.RawPost{MediaURLs: []string{}}

	if a := findFirst(root, func(n *html.Node) bool {
		return n.DataAtom == atom.A && strings.Contains(attr(n, "href"), "/status/")
	}); a != nil {
		post.PostID = statusID(attr(a, "href"))
	}
	if post.PostID == "" {
		return nil, ErrNoPostID
	}

	if n := findFirst(root, hasTestID("tweetText")); n != nil {
		post.Content = strings.TrimSpace(innerText(n))
	}
	if n := findFirst(root, hasTestID("User-Name")); n != nil {
		name, _, _ := strings.Cut(innerText(n), "·")
		post.Author = strings.TrimSpace(name)
	}
	if n := findFirst(root, func(n *html.Node) bool { return n.DataAtom == atom.Time }); n != nil {
		post.Timestamp = attr(n, "datetime")
	}

	walk(root, func(n *html.Node) {
		if n.DataAtom == atom.Img {
			if src := attr(n, "src"); strings.Contains(src, "media") {
				post.MediaURLs = append(post.MediaURLs, src)
			}
		}
	})

	post.Hashtags, post.Mentions, post.URLs = ParseEntities(post.Content)
	return post, nil
}

// statusID returns the path segment following /status/.
func statusID(href string) string {
	idx := strings.LastIndex(href, "/status/")
	if idx < 0 {
		return ""
	}
	rest := href[idx+len("/status/"):]
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func hasTestID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "data-testid") == id
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// innerText 는 텍스트 노드와 이모지 img 의 alt 를 이어 붙인다.
func innerText(n *html.Node) string {
	var b strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.DataAtom == atom.Img:
			b.WriteString(attr(n, "alt"))
		case n.DataAtom == atom.Br:
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return b.String()
}
