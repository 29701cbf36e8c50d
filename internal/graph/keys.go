// Package graph is the Graph Model: named entity operations layered over
// the Store Adapter using the fixed key schema from spec.md §6. Every
// function here takes already-encoded fragments (see internal/codec) —
// the graph package never encodes or decodes on its own, keeping that
// concern in exactly one place.
package graph

import "fmt"

const (
	keyPages        = "pages"
	keyPagesVisited = "pages:visited"
	keyPagesFailed  = "pages:failed"
	keyPagesQueue   = "pages:queue"
	keyDenylist     = "domains:denylist"
	keyMaxPages     = "domains:max_pages"
	keyLeaderboard  = "scraper:leaderboard"
)

// Pages, PagesVisited, PagesFailed, PagesQueue, Denylist, MaxPages, and
// Leaderboard name the handful of store keys with no per-entity fragment.
func Pages() string        { return keyPages }
func PagesVisited() string { return keyPagesVisited }
func PagesFailed() string  { return keyPagesFailed }
func PagesQueue() string   { return keyPagesQueue }
func Denylist() string     { return keyDenylist }
func MaxPages() string     { return keyMaxPages }
func Leaderboard() string  { return keyLeaderboard }

// PageData is pages:data:{u}, a HASH of { lastScraped }.
func PageData(encodedURL string) string { return fmt.Sprintf("pages:data:%s", encodedURL) }

// LinksTo is pages:linksto:{u}, a SET of encoded target URLs.
func LinksTo(encodedURL string) string { return fmt.Sprintf("pages:linksto:%s", encodedURL) }

// LinkedFrom is pages:linkedfrom:{u}, a SET of encoded source URLs.
func LinkedFrom(encodedURL string) string { return fmt.Sprintf("pages:linkedfrom:%s", encodedURL) }

// Link is link:{from_u}:{to_u}, a HASH of { imageUrl, imageHash }.
func Link(fromEncoded, toEncoded string) string {
	return fmt.Sprintf("link:%s:%s", fromEncoded, toEncoded)
}

// Redirect is redirect:{u}, a STRING holding the encoded target URL.
func Redirect(encodedURL string) string { return fmt.Sprintf("redirect:%s", encodedURL) }

// DomainPages is domain:pages:{d}, a HyperLogLog of approx unique pages.
func DomainPages(encodedDomain string) string { return fmt.Sprintf("domain:pages:%s", encodedDomain) }

// InProgress is inprogress:{api_key_hash}, a SET of encoded URLs in flight.
func InProgress(apiKeyHash string) string { return fmt.Sprintf("inprogress:%s", apiKeyHash) }

// AuthKey is auth:keys:{token}, a STRING holding the key's description.
func AuthKey(token string) string { return fmt.Sprintf("auth:keys:%s", token) }
