package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/imgvault/internal/common"
	"github.com/dmitrijs2005/imgvault/internal/server/models"
	"github.com/dmitrijs2005/imgvault/internal/server/services"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

func respondError(c *gin.Context, code int, err error) {
	c.JSON(code, gin.H{"status": "error", "message": err.Error()})
}

// errorStatus maps service errors to HTTP codes. Validation sentinels are
// client mistakes; everything else is a server fault.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrEmptyFile),
		errors.Is(err, common.ErrUnsupportedType),
		errors.Is(err, common.ErrOversized),
		errors.Is(err, common.ErrInvalidExpire),
		errors.Is(err, common.ErrInvalidFolder):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (r *router) upload(c *gin.Context) {
	file, err := c.FormFile("photo")
	if err != nil {
		respondError(c, http.StatusBadRequest, fmt.Errorf("missing photo field: %w", err))
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, common.MaxUploadBytes+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	filename := c.PostForm("filename")
	if filename == "" {
		filename = file.Filename
	}

	expire := c.PostForm("expire")
	if expire == "" {
		expire = common.ExpireNever
	}

	in := services.UploadInput{
		Data:        data,
		Filename:    filename,
		ContentType: contentType,
		Tags:        splitTags(c.PostForm("tags")),
		Folder:      c.PostForm("folder"),
		Expire:      expire,
		Hash:        c.PostForm("hash"),
	}

	img, err := r.uploads.Process(c.Request.Context(), in)
	if err != nil {
		respondError(c, errorStatus(err), err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"message":    "ok",
		"short_code": img.ShortCode,
		"file_id":    img.FileID,
	})
}

func (r *router) history(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if limit < 1 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	filter := models.ListFilter{
		Search:   c.Query("search"),
		Tag:      c.Query("tag"),
		Filename: c.Query("filename"),
		Folder:   c.Query("folder"),
	}

	items, total, err := r.catalog.History(c.Request.Context(), filter, page, limit)
	if err != nil {
		respondError(c, errorStatus(err), err)
		return
	}
	if items == nil {
		items = []*models.Image{}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "ok",
		"data":    items,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

type idsRequest struct {
	IDs []int64 `json:"ids"`
}

func (r *router) deleteRecords(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	n, err := r.catalog.Delete(c.Request.Context(), req.IDs)
	if err != nil {
		respondError(c, errorStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "ok", "deleted": n})
}

func (r *router) listFolders(c *gin.Context) {
	folders, err := r.folders.List(c.Request.Context())
	if err != nil {
		respondError(c, errorStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "ok", "folders": folders})
}

func (r *router) renameFolder(c *gin.Context) {
	var req struct {
		OldPath string `json:"old_path"`
		NewPath string `json:"new_path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	moved, err := r.folders.Rename(c.Request.Context(), req.OldPath, req.NewPath)
	if err != nil {
		respondError(c, errorStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "ok", "moved": moved})
}

func (r *router) deleteFolder(c *gin.Context) {
	var req struct {
		Path string `json:"path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	removed, err := r.folders.Delete(c.Request.Context(), req.Path)
	if err != nil {
		respondError(c, errorStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "ok", "deleted": removed})
}

type moveRequest struct {
	IDs    []int64 `json:"ids"`
	Target string  `json:"target"`
}

func (r *router) moveImages(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	moved, err := r.folders.Move(c.Request.Context(), req.IDs, req.Target)
	if err != nil {
		respondError(c, errorStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "ok", "moved": moved})
}

func (r *router) copyImages(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	if err := r.folders.Copy(c.Request.Context(), req.IDs, req.Target); err != nil {
		respondError(c, errorStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "ok"})
}

func (r *router) runDedup(c *gin.Context) {
	var req idsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
	}

	report, err := r.dedup.Run(c.Request.Context(), req.IDs)
	if err != nil {
		respondError(c, errorStatus(err), err)
		return
	}

	message := fmt.Sprintf("removed %d duplicates", report.Deleted)
	if report.NoDuplicates() {
		message = "no duplicates found"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": message,
		"deleted": report.Deleted,
		"groups":  report.Groups,
	})
}

func (r *router) getPhoto(c *gin.Context) {
	ref := strings.TrimPrefix(c.Param("ref"), "/")
	if ref == "" {
		respondError(c, http.StatusBadRequest, errors.New("empty ref"))
		return
	}

	data, err := r.relay.Fetch(c.Request.Context(), ref)
	if err != nil {
		respondError(c, errorStatus(err), err)
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

func (r *router) stats(c *gin.Context) {
	s, err := r.catalog.Stats(c.Request.Context())
	if err != nil {
		respondError(c, errorStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "ok",
		"images":  s.Images,
		"bytes":   s.Bytes,
		"folders": s.Folders,
		"tags":    s.Tags,
	})
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
