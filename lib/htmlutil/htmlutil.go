// Package htmlutil holds small helpers for pulling values out of
// scraped markup.
package htmlutil

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText normalizes text pulled from a page: non-printable runes
// are dropped and inner whitespace runs collapse to a single space.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

// SelectionText is CleanText over a selection's combined text nodes.
func SelectionText(sel *goquery.Selection) string {
	return CleanText(sel.Text())
}

// ResolveHref resolves a possibly relative href against the url of
// the page it appeared on. Returns "" when either url is unparsable.
func ResolveHref(pageUrl, href string) string {
	if href == "" {
		return ""
	}
	base, err := url.Parse(pageUrl)
	if err != nil {
		return ""
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return ""
	}
	return resolved.String()
}
