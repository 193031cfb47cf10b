// Package classify turns igloo AJAX responses into a closed set of
// tracking outcomes. Anything it cannot understand is a NoOp; a broken
// payload must never break the page the response belongs to.
package classify

import (
	"encoding/json"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// TargetPath identifies the igloo purchase endpoint. Calls to any other
// path are ignored entirely.
const TargetPath = "/np-templates/ajax/igloo.php"

// capMessage is the server-side signal that today's cap is already hit.
const capMessage = "cannot buy any more items"

// pageCapMessages are the page-level variants checked once at load.
var pageCapMessages = []string{
	"cannot get any more items",
	"cannot buy any more items",
}

// Kind enumerates classification outcomes.
type Kind int

const (
	// KindNoOp means the payload is irrelevant, failed, or unparseable.
	KindNoOp Kind = iota
	// KindPurchase is a successful single-item purchase.
	KindPurchase
	// KindCapReached means the server reported the daily cap as hit.
	KindCapReached
)

func (k Kind) String() string {
	switch k {
	case KindPurchase:
		return "purchase"
	case KindCapReached:
		return "cap_reached"
	default:
		return "noop"
	}
}

// Outcome is the classification result. ItemID and ItemName are only
// meaningful for KindPurchase; ItemName may be empty.
type Outcome struct {
	Kind     Kind
	ItemID   string
	ItemName string
}

// payload is the igloo endpoint's response envelope.
type payload struct {
	Success bool   `json:"success"`
	Error   bool   `json:"error"`
	ErrMsg  string `json:"errMsg"`
	Output  string `json:"output"`
}

// IsTarget reports whether the URL belongs to the igloo purchase endpoint.
func IsTarget(rawURL string) bool {
	return strings.Contains(rawURL, TargetPath)
}

// Classify inspects the response body for a call to rawURL. Non-target
// URLs and malformed bodies classify as NoOp.
func Classify(rawURL string, body []byte) Outcome {
	if !IsTarget(rawURL) {
		return Outcome{Kind: KindNoOp}
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Outcome{Kind: KindNoOp}
	}

	if p.Error && strings.Contains(p.ErrMsg, capMessage) {
		return Outcome{Kind: KindCapReached}
	}

	if !p.Success {
		return Outcome{Kind: KindNoOp}
	}

	id, name := extractItem(p.Output)
	return Outcome{Kind: KindPurchase, ItemID: id, ItemName: name}
}

// extractItem pulls the purchased item's identity out of the HTML
// fragment the endpoint returns: the first <img> whose src points under
// /items/ names the item via its filename and alt text. When no such
// image exists the purchase still counts, under the unknown sentinel.
func extractItem(fragment string) (id, name string) {
	id = "unknown"
	if fragment == "" {
		return id, ""
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return id, ""
	}

	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "img" {
			var src, alt string
			for _, a := range n.Attr {
				switch a.Key {
				case "src":
					src = a.Val
				case "alt":
					alt = a.Val
				}
			}
			if strings.Contains(src, "/items/") {
				base := path.Base(src)
				id = strings.TrimSuffix(base, path.Ext(base))
				name = strings.TrimSpace(alt)
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return id, name
}

// PageCapReached scans rendered page content for the cap-reached
// literals. Applied once at startup as an equivalent CapReached trigger.
func PageCapReached(pageHTML string) bool {
	for _, msg := range pageCapMessages {
		if strings.Contains(pageHTML, msg) {
			return true
		}
	}
	return false
}
