package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mlevkov/iptv-catalog/app/catalog"
	"github.com/mlevkov/iptv-catalog/app/playlist"
	"github.com/mlevkov/iptv-catalog/app/rules"
	"github.com/mlevkov/iptv-catalog/app/sources"
	"github.com/mlevkov/iptv-catalog/app/tasks"
)

func NewHandler(store catalog.Store, query *catalog.Query, pipeline *catalog.Pipeline,
	definitionCache *sources.DefinitionCache, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		store:           store,
		query:           query,
		pipeline:        pipeline,
		writer:          playlist.NewWriter(),
		definitionCache: definitionCache,
		scheduler:       scheduler,
	}
}

// ExportCatalog renders every visible channel back into extended M3U.
func (h *Handler) ExportCatalog(c *gin.Context) {
	channels, err := h.query.SearchChannels(catalog.SearchOptions{})
	if err != nil {
		slog.Error("Catalog error", "operation", "export_catalog", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	h.writePlaylist(c, channels)
}

// ExportFolder renders one folder's effective channel list as extended M3U.
func (h *Handler) ExportFolder(c *gin.Context) {
	channels, err := h.query.ResolveFolder(c.Param("id"), true)
	if err != nil {
		if errors.Is(err, catalog.ErrFolderNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		slog.Error("Catalog error", "operation", "export_folder", "folder", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	h.writePlaylist(c, channels)
}

func (h *Handler) writePlaylist(c *gin.Context, channels []catalog.Channel) {
	entries := make([]playlist.WriterEntry, 0, len(channels))
	for _, ch := range channels {
		streams, err := h.store.ListStreams(ch.ID)
		if err != nil {
			slog.Error("Catalog error", "operation", "list_streams", "channel", ch.ID, "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}
		if len(streams) == 0 {
			continue
		}

		entry := playlist.WriterEntry{
			Name:       ch.Name,
			DeclaredID: ch.DeclaredID,
			LogoURL:    ch.LogoURL,
			Group:      ch.Group,
			Language:   ch.Language,
			Country:    ch.Country,
			UserAgent:  streams[0].UserAgent,
			Referrer:   streams[0].Referrer,
		}
		for _, s := range streams {
			entry.URLs = append(entry.URLs, s.URL)
		}
		entries = append(entries, entry)
	}

	c.Header("Content-Type", "audio/x-mpegurl; charset=utf-8")
	c.Header("X-Channel-Count", strconv.Itoa(len(entries)))
	c.String(http.StatusOK, h.writer.Run(entries))
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if srcs, err := h.store.ListSources(); err == nil {
		health["sources"] = len(srcs)
	}
	if channels, err := h.store.ListChannels(); err == nil {
		health["channels"] = len(channels)
	}

	health["loaded_definitions"] = h.definitionCache.GetDefinitionCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if srcs, err := h.store.ListSources(); err == nil {
		stats["sources"] = len(srcs)
	}
	if channels, err := h.store.ListChannels(); err == nil {
		stats["channels"] = len(channels)
	}
	if folders, err := h.store.ListFolders(); err == nil {
		stats["folders"] = len(folders)
	}
	if favorites, err := h.store.ListFavorites(); err == nil {
		stats["favorites"] = len(favorites)
	}

	if streams, err := h.store.ListAllStreams(); err == nil {
		byHealth := map[string]int{}
		for _, s := range streams {
			health := s.Health
			if health == "" {
				health = catalog.HealthUnknown
			}
			byHealth[string(health)]++
		}
		stats["streams"] = len(streams)
		stats["streams_by_health"] = byHealth
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListChannels(c *gin.Context) {
	opts := catalog.SearchOptions{
		Text:          c.Query("q"),
		Group:         c.Query("group"),
		Country:       c.Query("country"),
		Language:      c.Query("language"),
		FavoritesOnly: c.Query("favorites") == "true",
		IncludeHidden: c.Query("include_hidden") == "true",
	}
	opts.Offset, _ = strconv.Atoi(c.Query("offset"))
	opts.Limit, _ = strconv.Atoi(c.Query("limit"))

	channels, err := h.query.SearchChannels(opts)
	if err != nil {
		slog.Error("Catalog error", "operation", "list_channels", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	list := make([]map[string]interface{}, 0, len(channels))
	for _, ch := range channels {
		list = append(list, h.channelInfo(ch))
	}

	c.JSON(http.StatusOK, gin.H{
		"channels": list,
		"count":    len(list),
	})
}

func (h *Handler) channelInfo(ch catalog.Channel) map[string]interface{} {
	info := map[string]interface{}{
		"id":          ch.ID,
		"source_id":   ch.SourceID,
		"name":        ch.Name,
		"declared_id": ch.DeclaredID,
		"logo_url":    ch.LogoURL,
		"group":       ch.Group,
		"country":     ch.Country,
		"language":    ch.Language,
		"position":    ch.Position,
	}

	if streams, err := h.store.ListStreams(ch.ID); err == nil {
		urls := make([]map[string]interface{}, 0, len(streams))
		for _, s := range streams {
			urls = append(urls, map[string]interface{}{
				"url":      s.URL,
				"priority": s.Priority,
				"health":   string(s.Health),
			})
		}
		info["streams"] = urls
		info["health"] = string(catalog.AggregateHealth(streams))
	}

	return info
}

func (h *Handler) APIToggleFavorite(c *gin.Context) {
	state, err := h.query.ToggleFavorite(c.Param("id"))
	if err != nil {
		slog.Error("Catalog error", "operation", "toggle_favorite", "channel", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel_id": c.Param("id"), "is_favorite": state})
}

func (h *Handler) APIToggleHidden(c *gin.Context) {
	state, err := h.query.ToggleHidden(c.Param("id"))
	if err != nil {
		slog.Error("Catalog error", "operation", "toggle_hidden", "channel", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel_id": c.Param("id"), "is_hidden": state})
}

func (h *Handler) APIRecordPlay(c *gin.Context) {
	var req playRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	if err := h.query.RecordPlay(c.Param("id"), req.WatchedSeconds); err != nil {
		slog.Error("Catalog error", "operation", "record_play", "channel", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) APIGetHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.query.History(limit)
	if err != nil {
		slog.Error("Catalog error", "operation", "get_history", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	list := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		list = append(list, map[string]interface{}{
			"channel_id":      e.ChannelID,
			"played_at":       e.PlayedAt.Format(time.RFC3339),
			"watched_seconds": e.WatchedSeconds,
		})
	}

	c.JSON(http.StatusOK, gin.H{"history": list})
}

func (h *Handler) APIListSources(c *gin.Context) {
	srcs, err := h.store.ListSources()
	if err != nil {
		slog.Error("Catalog error", "operation", "list_sources", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	list := make([]map[string]interface{}, 0, len(srcs))
	for _, src := range srcs {
		info := map[string]interface{}{
			"id":             src.ID,
			"name":           src.Name,
			"kind":           string(src.Kind),
			"url":            src.URL,
			"refresh_policy": string(src.RefreshPolicy),
		}
		if src.LastRefreshAt != nil {
			info["last_refresh_at"] = src.LastRefreshAt.Format(time.RFC3339)
		}
		if channels, err := h.store.ListChannelsBySource(src.ID); err == nil {
			info["channel_count"] = len(channels)
		}
		list = append(list, info)
	}

	c.JSON(http.StatusOK, gin.H{"sources": list})
}

func (h *Handler) APIImportSource(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.URL == "" && req.File == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either url or file is required"})
		return
	}

	var result *catalog.ImportResult
	var err error
	if req.URL != "" {
		result, err = h.pipeline.ImportFromURL(c.Request.Context(), req.URL, req.Name, catalog.RefreshManual)
	} else {
		result, err = h.pipeline.ImportFile(c.Request.Context(), req.File, req.Name, catalog.RefreshManual)
	}
	if err != nil {
		slog.Error("Import failed", "url", req.URL, "file", req.File, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, importInfo(result))
}

func (h *Handler) APIRefreshSource(c *gin.Context) {
	result, err := h.pipeline.Refresh(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrSourceNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		slog.Error("Refresh failed", "source", c.Param("id"), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, importInfo(result))
}

func importInfo(result *catalog.ImportResult) gin.H {
	diagnostics := make([]map[string]interface{}, 0, len(result.Diagnostics))
	for _, d := range result.Diagnostics {
		diagnostics = append(diagnostics, map[string]interface{}{
			"line":    d.Line,
			"message": d.Message,
		})
	}

	return gin.H{
		"source_id":        result.Source.ID,
		"channels_added":   result.ChannelsAdded,
		"channels_updated": result.ChannelsUpdated,
		"channels_removed": result.ChannelsRemoved,
		"streams_added":    result.StreamsAdded,
		"diagnostics":      diagnostics,
		"duration":         result.Duration.String(),
	}
}

// APIRefreshAll enqueues a refresh task for every enabled source
// definition instead of refreshing inline; the worker pool paces the work.
func (h *Handler) APIRefreshAll(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not running"})
		return
	}

	definitions := h.definitionCache.GetEnabledDefinitions()
	enqueued := 0
	for _, definition := range definitions {
		task := tasks.NewRefreshSourceTask(definition.Name, definition, h.store, h.pipeline)
		if err := h.scheduler.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue refresh", "source", definition.Name, "error", err)
			continue
		}
		enqueued++
	}

	c.JSON(http.StatusAccepted, gin.H{"enqueued": enqueued})
}

func (h *Handler) APIDeleteSource(c *gin.Context) {
	src, err := h.store.GetSource(c.Param("id"))
	if err != nil {
		slog.Error("Catalog error", "operation", "get_source", "source", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if src == nil {
		c.Status(http.StatusNotFound)
		return
	}

	if err := h.store.DeleteSource(src.ID); err != nil {
		slog.Error("Catalog error", "operation", "delete_source", "source", src.ID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) APIListFolders(c *gin.Context) {
	folders, err := h.store.ListFolders()
	if err != nil {
		slog.Error("Catalog error", "operation", "list_folders", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	list := make([]map[string]interface{}, 0, len(folders))
	for _, f := range folders {
		list = append(list, map[string]interface{}{
			"id":       f.ID,
			"name":     f.Name,
			"kind":     string(f.Kind),
			"position": f.Position,
			"icon":     f.Icon,
		})
	}

	c.JSON(http.StatusOK, gin.H{"folders": list})
}

func (h *Handler) APISaveFolder(c *gin.Context) {
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "folder name is required"})
		return
	}

	kind := catalog.FolderKind(req.Kind)
	switch kind {
	case catalog.FolderManual, catalog.FolderSmart:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be manual or smart"})
		return
	}
	if kind == catalog.FolderSmart {
		if len(req.Rules) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "smart folders require rules"})
			return
		}
		if _, err := rules.Decode(req.Rules); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rules document"})
			return
		}
	}

	now := time.Now().UTC()
	folder := &catalog.Folder{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Kind:      kind,
		Rules:     req.Rules,
		Icon:      req.Icon,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.SaveFolder(folder); err != nil {
		slog.Error("Catalog error", "operation", "save_folder", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": folder.ID})
}

func (h *Handler) APIGetFolderChannels(c *gin.Context) {
	channels, err := h.query.ResolveFolder(c.Param("id"), c.Query("include_health") == "true")
	if err != nil {
		if errors.Is(err, catalog.ErrFolderNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		slog.Error("Catalog error", "operation", "resolve_folder", "folder", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	list := make([]map[string]interface{}, 0, len(channels))
	for _, ch := range channels {
		list = append(list, h.channelInfo(ch))
	}

	c.JSON(http.StatusOK, gin.H{"channels": list, "count": len(list)})
}

func (h *Handler) APIDeleteFolder(c *gin.Context) {
	folder, err := h.store.GetFolder(c.Param("id"))
	if err != nil {
		slog.Error("Catalog error", "operation", "get_folder", "folder", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if folder == nil {
		c.Status(http.StatusNotFound)
		return
	}

	if err := h.store.DeleteFolder(folder.ID); err != nil {
		slog.Error("Catalog error", "operation", "delete_folder", "folder", folder.ID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) APIAddFolderItem(c *gin.Context) {
	folder, err := h.store.GetFolder(c.Param("id"))
	if err != nil {
		slog.Error("Catalog error", "operation", "get_folder", "folder", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if folder == nil {
		c.Status(http.StatusNotFound)
		return
	}
	if folder.Kind != catalog.FolderManual {
		c.JSON(http.StatusBadRequest, gin.H{"error": "smart folders have computed membership"})
		return
	}

	var req folderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChannelID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel_id is required"})
		return
	}

	item := catalog.FolderItem{FolderID: folder.ID, ChannelID: req.ChannelID, Position: req.Position}
	if err := h.store.AddFolderItem(item); err != nil {
		slog.Error("Catalog error", "operation", "add_folder_item", "folder", folder.ID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) APIRemoveFolderItem(c *gin.Context) {
	if err := h.store.RemoveFolderItem(c.Param("id"), c.Param("channelId")); err != nil {
		slog.Error("Catalog error", "operation", "remove_folder_item", "folder", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}
