// Package identity derives stable channel identifiers that survive repeated
// re-imports of the same provider feed.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

const (
	declaredPrefix = "tvg:"
	hashedPrefix   = "hash:"
	hashLength     = 16 // hex chars kept from the sha256 digest
	tokenMask      = "{n}"
)

// Quality and edition suffixes stripped during name normalization, matched as
// standalone tokens only so "HDTV News" keeps its brand.
var qualityTokens = map[string]struct{}{
	"hd": {}, "sd": {}, "fhd": {}, "uhd": {}, "4k": {}, "8k": {},
	"hevc": {}, "h265": {}, "50fps": {}, "60fps": {},
	"+1": {}, "+2": {}, "+24": {},
}

var (
	bracketRE  = regexp.MustCompile(`[\[(][^\])]*[\])]`)
	punctRE    = regexp.MustCompile(`[^a-z0-9 ]+`)
	spaceRE    = regexp.MustCompile(`\s+`)
	digitRunRE = regexp.MustCompile(`\d{4,}`)
	hexRunRE   = regexp.MustCompile(`\b[0-9a-f]{16,}\b`)
)

// Identify resolves a channel to its stable identifier.
//
// A non-empty declared identifier is the highest-trust path and passes
// through verbatim: different sources declaring the same id resolve to the
// same channel. Otherwise the id is a truncated digest over the normalized
// name plus the canonical stream key, so cosmetic renames and rotating URL
// tokens collapse onto one channel while similarly-named but unrelated
// channels stay apart.
func Identify(declaredID, name, streamURL string) string {
	if id := strings.TrimSpace(declaredID); id != "" {
		return declaredPrefix + id
	}

	payload := NormalizeName(name) + "|" + CanonicalStreamKey(streamURL)
	digest := sha256.Sum256([]byte(payload))
	return hashedPrefix + hex.EncodeToString(digest[:])[:hashLength]
}

// NormalizeName lowercases a display name, removes bracketed annotations and
// standalone quality/edition tokens, strips punctuation and collapses
// whitespace. Exposed standalone because EPG name matching reuses it.
func NormalizeName(name string) string {
	s := strings.ToLower(name)
	s = bracketRE.ReplaceAllString(s, " ")

	// Drop "+1"-style shift suffixes while they are still intact; the
	// punctuation pass below would otherwise split them apart.
	s = dropQualityTokens(s)
	s = punctRE.ReplaceAllString(s, " ")
	// Punctuation removal can expose new standalone tokens ("CNN-HD").
	s = dropQualityTokens(s)

	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}

func dropQualityTokens(s string) string {
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if _, ok := qualityTokens[f]; ok {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// CanonicalStreamKey reduces a stream URL to lowercased host + path with long
// digit runs and long hex tokens masked out. Session tokens and timestamps in
// the path would otherwise make the same channel look new on every refresh;
// the query string is dropped entirely for the same reason.
func CanonicalStreamKey(streamURL string) string {
	u, err := url.Parse(strings.TrimSpace(streamURL))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(streamURL))
	}

	host := strings.ToLower(u.Host)
	path := strings.ToLower(u.Path)
	path = hexRunRE.ReplaceAllString(path, tokenMask)
	path = digitRunRE.ReplaceAllString(path, tokenMask)

	return host + path
}

// LikelySameChannel is a best-effort fuzzy equivalence between two channels:
// exact normalized-name match, or same host with highly similar paths. It is
// a deduplication aid only and plays no part in Identify.
func LikelySameChannel(nameA, urlA, nameB, urlB string) bool {
	na, nb := NormalizeName(nameA), NormalizeName(nameB)
	if na != "" && na == nb {
		return true
	}

	ua, errA := url.Parse(urlA)
	ub, errB := url.Parse(urlB)
	if errA != nil || errB != nil {
		return false
	}
	if !strings.EqualFold(ua.Host, ub.Host) || ua.Host == "" {
		return false
	}

	return pathSimilarity(strings.ToLower(ua.Path), strings.ToLower(ub.Path)) >= 0.8
}

// pathSimilarity scores two URL paths in [0,1] by comparing their segments
// position by position.
func pathSimilarity(a, b string) float64 {
	segsA := strings.FieldsFunc(a, func(r rune) bool { return r == '/' })
	segsB := strings.FieldsFunc(b, func(r rune) bool { return r == '/' })

	if len(segsA) == 0 && len(segsB) == 0 {
		return 1
	}

	longest := len(segsA)
	if len(segsB) > longest {
		longest = len(segsB)
	}

	matches := 0
	for i := 0; i < len(segsA) && i < len(segsB); i++ {
		if segsA[i] == segsB[i] {
			matches++
		}
	}

	return float64(matches) / float64(longest)
}
