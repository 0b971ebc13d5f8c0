package publisher

import (
	"errors"
	"strings"

	"github.com/partho5/CryptoXPoster/internal/queue"
)

// ErrNoTitle marks an item that cannot be formatted into a post.
var ErrNoTitle = errors.New("item has no title")

// maxPostLen is the X free-tier character budget.
const maxPostLen = 280

// hashtagTerms are matched case-insensitively against the title; the
// first hits become hashtags as long as the post stays under budget.
var hashtagTerms = []string{"bitcoin", "ethereum", "crypto", "blockchain", "token", "nft"}

const defaultHashtags = " #CryptoNews #cryptocurrencies"

// FormatPost renders one item as a short post: title, then the link on
// its own paragraph, then hashtags while the budget allows.
func FormatPost(it queue.Item) (string, error) {
	title := strings.TrimSpace(it.Title)
	if title == "" {
		return "", ErrNoTitle
	}
	link := strings.TrimSpace(it.Link)

	maxTitle := maxPostLen - 10
	if link != "" {
		maxTitle = 200
	}
	if len(title) > maxTitle {
		title = title[:maxTitle-3] + "..."
	}

	var b strings.Builder
	b.WriteString(title)
	if link != "" {
		b.WriteString("\n\n")
		b.WriteString(link)
	}

	lower := strings.ToLower(title)
	matched := false
	for _, term := range hashtagTerms {
		if strings.Contains(lower, term) && b.Len() < maxPostLen-20 {
			b.WriteString(" #")
			b.WriteString(strings.ToUpper(term[:1]) + term[1:])
			matched = true
		}
	}
	if !matched && b.Len() < maxPostLen-len(defaultHashtags) {
		b.WriteString(defaultHashtags)
	}

	return b.String(), nil
}
