package application

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/mkalstad/teamsrelay/internal/domain/model"
)

// hostedContentMarker distinguishes Graph-hosted media URLs from ordinary
// image links. Only URLs carrying it are proxied; everything else is left
// alone. Rewritten proxy URLs never contain the marker, which is what makes
// a second rewrite pass a no-op.
const hostedContentMarker = "$value"

// Rewriter sanitizes message bodies and replaces Graph-hosted image sources
// with locally routable proxy URLs, recording each token in the ResourceMap.
type Rewriter struct {
	resources *ResourceMap
	policy    *bluemonday.Policy
	baseURL   string
}

// NewRewriter creates a Rewriter that routes proxied images through
// baseURL's resource endpoint.
func NewRewriter(resources *ResourceMap, baseURL string) *Rewriter {
	return &Rewriter{
		resources: resources,
		policy:    bluemonday.UGCPolicy(),
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// Rewrite returns a copy of messages with every HTML body sanitized and its
// Graph-hosted images redirected through the resource proxy. Plain-text
// bodies pass through untouched. The input slice is not modified.
func (r *Rewriter) Rewrite(messages []model.Message) []model.Message {
	out := make([]model.Message, len(messages))
	for i, msg := range messages {
		out[i] = msg
		if strings.EqualFold(msg.BodyContentType, "text") {
			continue
		}
		out[i].Body = r.rewriteBody(msg.Body)
	}
	return out
}

// rewriteBody sanitizes one HTML fragment and swaps hosted-content image
// sources for proxy URLs. On parse or render failure the sanitized body is
// returned unchanged; a broken fragment must never block the broadcast.
func (r *Rewriter) rewriteBody(body string) string {
	clean := r.policy.Sanitize(body)

	bodyCtx := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	nodes, err := html.ParseFragment(strings.NewReader(clean), bodyCtx)
	if err != nil {
		return clean
	}

	var sb strings.Builder
	for _, n := range nodes {
		r.rewriteImages(n)
		if err := html.Render(&sb, n); err != nil {
			return clean
		}
	}
	return sb.String()
}

// rewriteImages walks the node tree and replaces the src of every image
// pointing at Graph-hosted content.
func (r *Rewriter) rewriteImages(n *html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Img {
		for i, attr := range n.Attr {
			if attr.Key != "src" || !strings.Contains(attr.Val, hostedContentMarker) {
				continue
			}
			token := r.resources.Put(attr.Val)
			n.Attr[i].Val = r.baseURL + "/api/v1/resources/" + token
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.rewriteImages(c)
	}
}
