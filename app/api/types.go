package api

import (
	"encoding/json"

	"github.com/mlevkov/iptv-catalog/app/catalog"
	"github.com/mlevkov/iptv-catalog/app/playlist"
	"github.com/mlevkov/iptv-catalog/app/sources"
	"github.com/mlevkov/iptv-catalog/app/tasks"
)

type Handler struct {
	store           catalog.Store
	query           *catalog.Query
	pipeline        *catalog.Pipeline
	writer          *playlist.Writer
	definitionCache *sources.DefinitionCache
	scheduler       tasks.TaskSchedulerInterface
}

type importRequest struct {
	URL  string `json:"url"`
	File string `json:"file"`
	Name string `json:"name"`
}

type folderRequest struct {
	Name  string          `json:"name"`
	Kind  string          `json:"kind"`
	Rules json.RawMessage `json:"rules"`
	Icon  string          `json:"icon"`
}

type folderItemRequest struct {
	ChannelID string `json:"channel_id"`
	Position  int    `json:"position"`
}

type playRequest struct {
	WatchedSeconds int `json:"watched_seconds"`
}
