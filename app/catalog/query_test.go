package catalog

import (
	"errors"
	"testing"
	"time"

	"github.com/mlevkov/iptv-catalog/app/rules"
)

func seedChannels(t *testing.T, store *MemoryStore) []Channel {
	t.Helper()

	channels := []Channel{
		{ID: "tvg:cnn.us", SourceID: "src-1", Name: "CNN", DeclaredID: "cnn.us", Group: "News", Country: "US", Language: "en", Position: 0},
		{ID: "tvg:bbc.uk", SourceID: "src-1", Name: "BBC One", DeclaredID: "bbc.uk", Group: "News", Country: "UK", Language: "en", Position: 1},
		{ID: "tvg:espn.us", SourceID: "src-1", Name: "ESPN", DeclaredID: "espn.us", Group: "Sports", Country: "US", Language: "en", Position: 2},
		{ID: "tvg:tf1.fr", SourceID: "src-1", Name: "TF1", DeclaredID: "tf1.fr", Group: "General", Country: "FR", Language: "fr", Position: 3},
	}
	if err := store.SaveSource(&Source{ID: "src-1", Name: "Seed", Kind: SourceRemote, URL: "http://seed.example.com/list.m3u"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveChannels(channels); err != nil {
		t.Fatal(err)
	}
	return channels
}

func TestSearchChannelsByText(t *testing.T) {
	store := NewMemoryStore()
	seedChannels(t, store)
	query := NewQuery(store, 100)

	found, err := query.SearchChannels(SearchOptions{Text: "bbc"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(found) != 1 || found[0].Name != "BBC One" {
		t.Errorf("Expected exactly BBC One, got: %+v", found)
	}

	// Free text also covers group and declared identifier.
	found, _ = query.SearchChannels(SearchOptions{Text: "sports"})
	if len(found) != 1 || found[0].Name != "ESPN" {
		t.Errorf("Expected group text match on ESPN, got: %+v", found)
	}
	found, _ = query.SearchChannels(SearchOptions{Text: "tf1.fr"})
	if len(found) != 1 || found[0].Name != "TF1" {
		t.Errorf("Expected declared id match on TF1, got: %+v", found)
	}
}

func TestSearchChannelsByFacets(t *testing.T) {
	store := NewMemoryStore()
	seedChannels(t, store)
	query := NewQuery(store, 100)

	found, err := query.SearchChannels(SearchOptions{Group: "news", Country: "us"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(found) != 1 || found[0].Name != "CNN" {
		t.Errorf("Expected CNN for news+us, got: %+v", found)
	}

	found, _ = query.SearchChannels(SearchOptions{Language: "FR"})
	if len(found) != 1 || found[0].Name != "TF1" {
		t.Errorf("Expected TF1 for language fr, got: %+v", found)
	}
}

func TestSearchChannelsHiddenAndFavorites(t *testing.T) {
	store := NewMemoryStore()
	seedChannels(t, store)
	query := NewQuery(store, 100)

	if err := store.SetHidden("tvg:tf1.fr", true); err != nil {
		t.Fatal(err)
	}
	if err := store.SetFavorite("tvg:espn.us", true); err != nil {
		t.Fatal(err)
	}

	all, _ := query.SearchChannels(SearchOptions{})
	if len(all) != 3 {
		t.Errorf("Hidden channels must be excluded by default, got: %d", len(all))
	}

	withHidden, _ := query.SearchChannels(SearchOptions{IncludeHidden: true})
	if len(withHidden) != 4 {
		t.Errorf("IncludeHidden must restore hidden channels, got: %d", len(withHidden))
	}

	favorites, _ := query.SearchChannels(SearchOptions{FavoritesOnly: true})
	if len(favorites) != 1 || favorites[0].Name != "ESPN" {
		t.Errorf("Expected only ESPN as favorite, got: %+v", favorites)
	}
}

func TestSearchChannelsPagination(t *testing.T) {
	store := NewMemoryStore()
	seedChannels(t, store)
	query := NewQuery(store, 100)

	page, err := query.SearchChannels(SearchOptions{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("Expected a page of 2, got: %d", len(page))
	}
	if page[0].Name != "BBC One" || page[1].Name != "ESPN" {
		t.Errorf("Pagination must preserve playlist order, got: %s, %s", page[0].Name, page[1].Name)
	}

	empty, _ := query.SearchChannels(SearchOptions{Offset: 10})
	if len(empty) != 0 {
		t.Errorf("Offset past the end must yield an empty page, got: %d", len(empty))
	}
}

func TestResolveManualFolder(t *testing.T) {
	store := NewMemoryStore()
	seedChannels(t, store)
	query := NewQuery(store, 100)

	folder := &Folder{ID: "folder-1", Name: "Evening", Kind: FolderManual}
	if err := store.SaveFolder(folder); err != nil {
		t.Fatal(err)
	}
	// Curated order differs from playlist order.
	store.AddFolderItem(FolderItem{FolderID: folder.ID, ChannelID: "tvg:tf1.fr", Position: 0})
	store.AddFolderItem(FolderItem{FolderID: folder.ID, ChannelID: "tvg:cnn.us", Position: 1})

	resolved, err := query.ResolveFolder(folder.ID, false)
	if err != nil {
		t.Fatalf("ResolveFolder failed: %v", err)
	}
	if len(resolved) != 2 {
		t.Fatalf("Expected 2 members, got: %d", len(resolved))
	}
	if resolved[0].Name != "TF1" || resolved[1].Name != "CNN" {
		t.Errorf("Manual folders must respect curated order, got: %s, %s", resolved[0].Name, resolved[1].Name)
	}
}

func TestResolveSmartFolder(t *testing.T) {
	store := NewMemoryStore()
	seedChannels(t, store)
	query := NewQuery(store, 100)

	doc := &rules.FolderRules{
		GroupLogic: rules.LogicAnd,
		Groups: []rules.Group{{
			Logic: rules.LogicAnd,
			Conditions: []rules.Condition{
				{Field: rules.FieldGroup, Operator: rules.OpEquals, Value: "News"},
				{Field: rules.FieldCountry, Operator: rules.OpNotEquals, Value: "UK"},
			},
		}},
	}
	blob, err := rules.Encode(doc)
	if err != nil {
		t.Fatal(err)
	}
	folder := &Folder{ID: "smart-1", Name: "US News", Kind: FolderSmart, Rules: blob}
	if err := store.SaveFolder(folder); err != nil {
		t.Fatal(err)
	}

	resolved, err := query.ResolveFolder(folder.ID, false)
	if err != nil {
		t.Fatalf("ResolveFolder failed: %v", err)
	}
	if len(resolved) != 1 || resolved[0].Name != "CNN" {
		t.Errorf("Expected only CNN, got: %+v", resolved)
	}
}

func TestResolveSmartFolderHealthCondition(t *testing.T) {
	store := NewMemoryStore()
	seedChannels(t, store)
	query := NewQuery(store, 100)

	store.SaveStreams([]MediaStream{
		{ID: "st-1", ChannelID: "tvg:cnn.us", URL: "http://a.example.com/cnn.m3u8", Health: HealthOK},
		{ID: "st-2", ChannelID: "tvg:bbc.uk", URL: "http://a.example.com/bbc.m3u8", Health: HealthDead},
	})

	doc := &rules.FolderRules{
		Groups: []rules.Group{{
			Conditions: []rules.Condition{
				{Field: rules.FieldHealthStatus, Operator: rules.OpEquals, Value: "ok"},
			},
		}},
	}
	blob, _ := rules.Encode(doc)
	folder := &Folder{ID: "smart-2", Name: "Working", Kind: FolderSmart, Rules: blob}
	store.SaveFolder(folder)

	withHealth, err := query.ResolveFolder(folder.ID, true)
	if err != nil {
		t.Fatalf("ResolveFolder failed: %v", err)
	}
	if len(withHealth) != 1 || withHealth[0].Name != "CNN" {
		t.Errorf("Expected only the healthy CNN, got: %+v", withHealth)
	}

	// Without health context the field is absent and the positive condition
	// matches nothing.
	withoutHealth, err := query.ResolveFolder(folder.ID, false)
	if err != nil {
		t.Fatalf("ResolveFolder failed: %v", err)
	}
	if len(withoutHealth) != 0 {
		t.Errorf("Health conditions must see an absent field without stream context, got: %+v", withoutHealth)
	}
}

func TestResolveFolderUnknown(t *testing.T) {
	query := NewQuery(NewMemoryStore(), 100)

	_, err := query.ResolveFolder("missing", false)
	if !errors.Is(err, ErrFolderNotFound) {
		t.Errorf("Expected ErrFolderNotFound, got: %v", err)
	}
}

func TestToggleFlags(t *testing.T) {
	store := NewMemoryStore()
	seedChannels(t, store)
	query := NewQuery(store, 100)

	on, err := query.ToggleFavorite("tvg:cnn.us")
	if err != nil || !on {
		t.Fatalf("Expected first toggle to set favorite, got: %v (err: %v)", on, err)
	}
	off, err := query.ToggleFavorite("tvg:cnn.us")
	if err != nil || off {
		t.Fatalf("Expected second toggle to clear favorite, got: %v (err: %v)", off, err)
	}

	hidden, err := query.ToggleHidden("tvg:bbc.uk")
	if err != nil || !hidden {
		t.Fatalf("Expected toggle to hide, got: %v (err: %v)", hidden, err)
	}
}

func TestRecordPlayReplacesPriorEntry(t *testing.T) {
	store := NewMemoryStore()
	seedChannels(t, store)
	query := NewQuery(store, 100)

	if err := query.RecordPlay("tvg:cnn.us", 60); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if err := query.RecordPlay("tvg:bbc.uk", 30); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if err := query.RecordPlay("tvg:cnn.us", 120); err != nil {
		t.Fatal(err)
	}

	history, err := query.History(0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Replays must replace the channel's prior entry, got: %d entries", len(history))
	}
	if history[0].ChannelID != "tvg:cnn.us" || history[0].WatchedSeconds != 120 {
		t.Errorf("Most recent play must come first with updated duration, got: %+v", history[0])
	}
	if history[1].ChannelID != "tvg:bbc.uk" {
		t.Errorf("Expected BBC One second, got: %+v", history[1])
	}
}

func TestHistoryTrimsToLimit(t *testing.T) {
	store := NewMemoryStore()
	query := NewQuery(store, 2)

	for _, id := range []string{"ch-a", "ch-b", "ch-c"} {
		if err := query.RecordPlay(id, 10); err != nil {
			t.Fatal(err)
		}
		time.Sleep(time.Millisecond)
	}

	history, err := query.History(0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected history trimmed to 2, got: %d", len(history))
	}
	if history[0].ChannelID != "ch-c" || history[1].ChannelID != "ch-b" {
		t.Errorf("Oldest entry must be evicted first, got: %+v", history)
	}
}
