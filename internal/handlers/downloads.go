package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/teledrop/teledrop/internal/storage"
)

// DownloadsHandler exposes the download directory: listing, fetching,
// deleting and range-aware streaming for in-browser media playback.
type DownloadsHandler struct {
	logger *slog.Logger
	store  *storage.Store
}

func NewDownloadsHandler(log *slog.Logger, store *storage.Store) *DownloadsHandler {
	return &DownloadsHandler{
		logger: log.With(slog.String("handler", "downloads")),
		store:  store,
	}
}

func (h *DownloadsHandler) Register(e *echo.Echo) {
	e.GET("/downloads", h.List)
	e.GET("/downloads/:name", h.Get)
	e.DELETE("/downloads/:name", h.Delete)
	e.GET("/stream/:name", h.Stream)
}

func (h *DownloadsHandler) List(c echo.Context) error {
	files, err := h.store.List()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list downloads")
	}
	return c.JSON(http.StatusOK, map[string]any{"files": files})
}

func (h *DownloadsHandler) Get(c echo.Context) error {
	path, err := h.resolve(c)
	if err != nil {
		return err
	}
	return c.Attachment(path, filepath.Base(path))
}

func (h *DownloadsHandler) Delete(c echo.Context) error {
	name := c.Param("name")
	if err := h.store.Delete(name); err != nil {
		if errors.Is(err, storage.ErrInvalidName) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid filename")
		}
		if os.IsNotExist(err) {
			return echo.NewHTTPError(http.StatusNotFound, "file not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete file")
	}
	h.logger.Info("file deleted", slog.String("name", name))
	return c.JSON(http.StatusOK, map[string]string{"deleted": name})
}

// Stream serves a file honoring a single-range Range header so browsers can
// seek inside video and audio without pulling the whole file.
func (h *DownloadsHandler) Stream(c echo.Context) error {
	path, err := h.resolve(c)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to stat file")
	}
	size := info.Size()
	name := filepath.Base(path)

	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	header := c.Response().Header()
	header.Set("Accept-Ranges", "bytes")
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", name))

	rangeHeader := c.Request().Header.Get("Range")
	if rangeHeader == "" {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(size, 10))
		return c.Stream(http.StatusOK, ctype, f)
	}

	start, end, ok := parseRange(rangeHeader, size)
	if !ok {
		header.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		return c.NoContent(http.StatusRequestedRangeNotSatisfiable)
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to seek")
	}
	header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	header.Set(echo.HeaderContentLength, strconv.FormatInt(end-start+1, 10))
	return c.Stream(http.StatusPartialContent, ctype, io.LimitReader(f, end-start+1))
}

func (h *DownloadsHandler) resolve(c echo.Context) (string, error) {
	name := c.Param("name")
	path, err := h.store.Resolve(name)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid filename")
	}
	if !h.store.Exists(name) {
		return "", echo.NewHTTPError(http.StatusNotFound, "file not found")
	}
	return path, nil
}

// parseRange handles the single-range form "bytes=start-end". The end may be
// omitted or past the file; it is clamped to the last byte. A malformed
// header or a start at or beyond the file size is unsatisfiable.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return 0, 0, false
	}
	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, false
	}
	end = size - 1
	if trimmed := strings.TrimSpace(endStr); trimmed != "" {
		end, err = strconv.ParseInt(trimmed, 10, 64)
		if err != nil || end < start {
			return 0, 0, false
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, true
}
