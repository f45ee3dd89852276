package playlist

import (
	"bufio"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	headerMarker   = "#EXTM3U"
	metadataMarker = "#EXTINF:"
	optionMarker   = "#EXTVLCOPT:"
	groupMarker    = "#EXTGRP:"
)

// attrRE extracts key="value" or key='value' pairs from the attribute
// section of a metadata line. Quoted values may contain commas; the
// attribute/title split happens before this runs (see splitUnquotedComma).
var attrRE = regexp.MustCompile(`([a-zA-Z0-9_-]+)=(?:"([^"]*)"|'([^']*)')`)

// Parser turns raw playlist bytes into ordered entries plus line-numbered
// diagnostics. It is stateless and safe for concurrent use.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// pending holds metadata collected for the entry whose URL line has not been
// seen yet.
type pending struct {
	entry   Entry
	line    int
	active  bool
	title   string
	tvgName string
}

// Run parses playlist data in a single line-oriented pass. Malformed lines
// become diagnostics, never errors; Run fails only when the input is empty or
// yields zero entries.
func (p *Parser) Run(data []byte) (*Result, error) {
	start := time.Now()

	text := decodeText(data)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	result := &Result{}

	var cur pending
	var nextUserAgent, nextReferrer string
	var groupOverride string
	var hasGroupOverride bool

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, headerMarker):
			continue

		case strings.HasPrefix(line, metadataMarker):
			if cur.active {
				result.Diagnostics = append(result.Diagnostics, Diagnostic{
					Line:    cur.line,
					Message: "metadata line has no stream URL",
				})
			}
			cur = p.parseMetadata(line, lineNo)

		case strings.HasPrefix(line, optionMarker):
			key, value, ok := strings.Cut(line[len(optionMarker):], "=")
			if !ok {
				result.Diagnostics = append(result.Diagnostics, Diagnostic{
					Line:    lineNo,
					Message: "malformed option line",
				})
				continue
			}
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "http-user-agent":
				nextUserAgent = strings.TrimSpace(value)
			case "http-referrer", "http-referer":
				nextReferrer = strings.TrimSpace(value)
			}

		case strings.HasPrefix(line, groupMarker):
			groupOverride = strings.TrimSpace(line[len(groupMarker):])
			hasGroupOverride = true

		case strings.HasPrefix(line, "#"):
			continue

		default:
			if !validStreamURL(line) {
				if cur.active {
					result.Diagnostics = append(result.Diagnostics, Diagnostic{
						Line:    lineNo,
						Message: fmt.Sprintf("invalid stream URL: %q", line),
					})
				}
				cur = pending{}
				continue
			}

			entry := p.finalizeEntry(&cur, line)
			entry.UserAgent = nextUserAgent
			entry.Referrer = nextReferrer
			if hasGroupOverride {
				entry.Group = groupOverride
			}

			result.Entries = append(result.Entries, entry)

			cur = pending{}
			nextUserAgent, nextReferrer = "", ""
			groupOverride, hasGroupOverride = "", false
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	if cur.active {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Line:    cur.line,
			Message: "metadata line has no stream URL",
		})
	}

	if len(result.Entries) == 0 {
		return nil, ErrNoValidEntries
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

// parseMetadata extracts the duration, attribute pairs and free-text title
// from a metadata line.
func (p *Parser) parseMetadata(line string, lineNo int) pending {
	cur := pending{active: true, line: lineNo}
	cur.entry.Duration = -1
	cur.entry.Attributes = make(map[string]string)

	rest := line[len(metadataMarker):]
	attrSection, title := splitUnquotedComma(rest)
	cur.title = strings.TrimSpace(title)

	attrSection = strings.TrimSpace(attrSection)

	// Optional leading integer duration (-1 for live streams).
	if idx := strings.IndexAny(attrSection, " \t"); idx >= 0 {
		if d, err := strconv.Atoi(attrSection[:idx]); err == nil {
			cur.entry.Duration = d
			attrSection = attrSection[idx+1:]
		}
	} else if d, err := strconv.Atoi(attrSection); err == nil {
		cur.entry.Duration = d
		attrSection = ""
	}

	for _, m := range attrRE.FindAllStringSubmatch(attrSection, -1) {
		key := strings.ToLower(m[1])
		value := m[2]
		if value == "" {
			value = m[3]
		}
		cur.entry.Attributes[key] = value
	}

	cur.entry.DeclaredID = cur.entry.Attributes["tvg-id"]
	cur.entry.LogoURL = cur.entry.Attributes["tvg-logo"]
	cur.entry.Group = cur.entry.Attributes["group-title"]
	cur.entry.Language = cur.entry.Attributes["tvg-language"]
	cur.entry.Country = cur.entry.Attributes["tvg-country"]
	cur.tvgName = cur.entry.Attributes["tvg-name"]

	return cur
}

// finalizeEntry combines pending metadata (if any) with the URL line. With no
// pending metadata a minimal entry is synthesized from the URL itself.
func (p *Parser) finalizeEntry(cur *pending, rawURL string) Entry {
	if !cur.active {
		return Entry{
			Name:       nameFromURL(rawURL),
			URL:        rawURL,
			Duration:   -1,
			Attributes: map[string]string{},
		}
	}

	entry := cur.entry
	entry.URL = rawURL

	// An explicit display-name attribute wins over the free-text title.
	switch {
	case cur.tvgName != "":
		entry.Name = cur.tvgName
	case cur.title != "":
		entry.Name = cur.title
	default:
		entry.Name = nameFromURL(rawURL)
	}

	return entry
}

// splitUnquotedComma splits s at the first comma that is not inside a single
// or double quoted span. Quote state is tracked character by character so
// attribute values like group-title="News, Sports" do not break the title.
func splitUnquotedComma(s string) (before, after string) {
	var inDouble, inSingle bool
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case ',':
			if !inDouble && !inSingle {
				return s[:i], s[i+1:]
			}
		}
	}
	return s, ""
}

// validStreamURL reports whether the line parses as an absolute URL with a
// scheme. Hosts are not required so scheme-only forms (rtp://, acestream://)
// pass through; the health checker sorts out unplayable ones later.
func validStreamURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != ""
}

// nameFromURL derives a display name for URL-only entries: the last path
// segment when present, otherwise the host.
func nameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	path := strings.Trim(u.Path, "/")
	if path != "" {
		segments := strings.Split(path, "/")
		return segments[len(segments)-1]
	}
	if u.Host != "" {
		return u.Host
	}
	return raw
}
