package playlist

import (
	"bytes"
	"fmt"
	"strings"
)

// WriterEntry is one channel row to be emitted. Every URL becomes its own
// #EXTINF entry carrying the same metadata, so players treat the repeats as
// mirrors of one channel.
type WriterEntry struct {
	Name       string
	URLs       []string
	DeclaredID string
	LogoURL    string
	Group      string
	Language   string
	Country    string
	UserAgent  string
	Referrer   string
}

type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// Run renders entries back into extended M3U. Attribute values are quoted;
// embedded double quotes are stripped rather than escaped since the format
// has no escape syntax.
func (w *Writer) Run(entries []WriterEntry) string {
	var buf bytes.Buffer

	buf.WriteString("#EXTM3U\n")

	for _, entry := range entries {
		for _, url := range entry.URLs {
			w.writeExtinf(&buf, entry)
			if entry.UserAgent != "" {
				buf.WriteString("#EXTVLCOPT:http-user-agent=" + entry.UserAgent + "\n")
			}
			if entry.Referrer != "" {
				buf.WriteString("#EXTVLCOPT:http-referrer=" + entry.Referrer + "\n")
			}
			buf.WriteString(url)
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

func (w *Writer) writeExtinf(buf *bytes.Buffer, entry WriterEntry) {
	buf.WriteString("#EXTINF:-1")

	w.writeAttr(buf, "tvg-id", entry.DeclaredID)
	w.writeAttr(buf, "tvg-logo", entry.LogoURL)
	w.writeAttr(buf, "tvg-language", entry.Language)
	w.writeAttr(buf, "tvg-country", entry.Country)
	w.writeAttr(buf, "group-title", entry.Group)

	buf.WriteString(",")
	buf.WriteString(entry.Name)
	buf.WriteString("\n")
}

func (w *Writer) writeAttr(buf *bytes.Buffer, key, value string) {
	if value == "" {
		return
	}
	value = strings.ReplaceAll(value, `"`, "")
	fmt.Fprintf(buf, " %s=%q", key, value)
}
