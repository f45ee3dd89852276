package playlist

import (
	"strings"
	"testing"
)

func TestWriterBasicOutput(t *testing.T) {
	writer := NewWriter()

	output := writer.Run([]WriterEntry{
		{
			Name:       "Channel 1",
			URLs:       []string{"http://example.com/stream1.m3u8"},
			DeclaredID: "test1",
			Group:      "Sports",
		},
		{
			Name: "Channel 2",
			URLs: []string{"http://example.com/stream2.m3u8"},
		},
	})

	expected := "#EXTM3U\n" +
		"#EXTINF:-1 tvg-id=\"test1\" group-title=\"Sports\",Channel 1\n" +
		"http://example.com/stream1.m3u8\n" +
		"#EXTINF:-1,Channel 2\n" +
		"http://example.com/stream2.m3u8\n"
	if output != expected {
		t.Errorf("Unexpected output:\n%s", output)
	}
}

func TestWriterRoundTripsThroughParser(t *testing.T) {
	writer := NewWriter()
	parser := NewParser()

	output := writer.Run([]WriterEntry{
		{
			Name:       "Télé Monde",
			URLs:       []string{"http://example.com/tele.m3u8"},
			DeclaredID: "tele.fr",
			LogoURL:    "http://example.com/logo.png",
			Group:      "General",
			Language:   "fr",
			Country:    "FR",
			UserAgent:  "CustomAgent/1.0",
		},
	})

	result, err := parser.Run([]byte(output))
	if err != nil {
		t.Fatalf("Writer output must parse cleanly: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(result.Entries))
	}

	entry := result.Entries[0]
	if entry.Name != "Télé Monde" {
		t.Errorf("Expected name to survive, got: %s", entry.Name)
	}
	if entry.DeclaredID != "tele.fr" {
		t.Errorf("Expected declared id to survive, got: %s", entry.DeclaredID)
	}
	if entry.Group != "General" {
		t.Errorf("Expected group to survive, got: %s", entry.Group)
	}
	if entry.UserAgent != "CustomAgent/1.0" {
		t.Errorf("Expected user agent to survive, got: %s", entry.UserAgent)
	}
	if len(result.Diagnostics) != 0 {
		t.Errorf("Writer output must produce no diagnostics, got: %+v", result.Diagnostics)
	}
}

func TestWriterEmitsMirrorsAsRepeatedEntries(t *testing.T) {
	writer := NewWriter()

	output := writer.Run([]WriterEntry{
		{
			Name:       "CNN",
			DeclaredID: "cnn.us",
			URLs: []string{
				"http://mirror-a.example.com/cnn.m3u8",
				"http://mirror-b.example.com/cnn.m3u8",
			},
		},
	})

	if strings.Count(output, "#EXTINF:") != 2 {
		t.Errorf("Expected one #EXTINF per mirror URL:\n%s", output)
	}
	if !strings.Contains(output, "mirror-a.example.com") || !strings.Contains(output, "mirror-b.example.com") {
		t.Errorf("Expected both mirror URLs present:\n%s", output)
	}
}

func TestWriterStripsEmbeddedQuotes(t *testing.T) {
	writer := NewWriter()

	output := writer.Run([]WriterEntry{
		{
			Name:  "Odd",
			URLs:  []string{"http://example.com/odd.m3u8"},
			Group: `Say "hi"`,
		},
	})

	if !strings.Contains(output, `group-title="Say hi"`) {
		t.Errorf("Expected embedded quotes stripped:\n%s", output)
	}
}
