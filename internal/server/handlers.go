package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleRecommend 混合推荐
// GET /api/v1/recommend/:user_id?top_n=6
func (s *Server) handleRecommend(c *gin.Context) {
	topN, ok := intQuery(c, "top_n", 0)
	if !ok {
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	userID := c.Param("user_id")
	recs := s.rec.GetRecommendations(ctx, userID, topN)
	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"items":   recs,
	})
}

type SearchRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
	TopN   int    `json:"top_n" binding:"gte=0,lte=100"`
}

// handleSearch 文本搜索
// POST /api/v1/search
func (s *Server) handleSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	recs := s.rec.SearchByText(ctx, req.Query, req.UserID, req.TopN)
	c.JSON(http.StatusOK, gin.H{
		"query": req.Query,
		"items": recs,
	})
}

type TagClickRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Tag    string `json:"tag" binding:"required"`
}

// handleTagClick 标签点击
// POST /api/v1/tags/click
func (s *Server) handleTagClick(c *gin.Context) {
	var req TagClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if !s.rec.UpdateTagWeight(c.Request.Context(), req.UserID, req.Tag) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tag click not recorded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type ViewRequest struct {
	UserID string `json:"user_id" binding:"required"`
	ItemID string `json:"product_id" binding:"required"`
}

// handleView 浏览记录
// POST /api/v1/views
func (s *Server) handleView(c *gin.Context) {
	var req ViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := s.rec.RecordView(c.Request.Context(), req.UserID, req.ItemID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": s.rec.UserIDs()})
}

func (s *Server) handleUserSummary(c *gin.Context) {
	summary, err := s.rec.UserSummary(c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleUserTags(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}
	tags, err := s.rec.TopTags(c.Param("user_id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func (s *Server) handleUserHistory(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 50)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": s.rec.History(c.Param("user_id"), limit)})
}

func (s *Server) handleUserQuality(c *gin.Context) {
	rep, err := s.rec.QualityReport(c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) handleSimilar(c *gin.Context) {
	topN, ok := intQuery(c, "top_n", 5)
	if !ok {
		return
	}
	recs, err := s.rec.SimilarItems(c.Param("item_id"), topN)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": recs})
}

func (s *Server) handleExplain(c *gin.Context) {
	exp, err := s.rec.Explain(c.Param("user_id"), c.Param("item_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

func (s *Server) handleTrending(c *gin.Context) {
	topN, ok := intQuery(c, "top_n", 10)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": s.rec.Trending(c.Query("category"), topN)})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.rec.Stats())
}

type ReloadRequest struct {
	Target string `json:"target" binding:"required,oneof=catalog profiles"`
	Path   string `json:"path"`
}

// handleReload 异步重新加载目录或画像，返回任务 id
// POST /api/v1/admin/reload
func (s *Server) handleReload(c *gin.Context) {
	var req ReloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Path != "" && !s.allowedPath(req.Path) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path not allowed"})
		return
	}

	var fn func(ctx context.Context) (interface{}, error)
	switch req.Target {
	case "catalog":
		path := req.Path
		if path == "" {
			path = s.cfg.CatalogPath
		}
		fn = func(ctx context.Context) (interface{}, error) { return s.rec.ReloadCatalog(path) }
	case "profiles":
		path := req.Path
		if path == "" {
			path = s.cfg.ProfilesPath
		}
		fn = func(ctx context.Context) (interface{}, error) { return s.rec.ReloadProfiles(path) }
	}

	// 任务在请求结束后继续执行，不能用请求的 context
	t := s.tasks.Submit(context.Background(), fmt.Sprintf("reload_%s", req.Target), fn)
	c.JSON(http.StatusAccepted, t)
}

type ExportRequest struct {
	Path string `json:"path"`
}

// handleExport 导出画像快照
// POST /api/v1/admin/export
func (s *Server) handleExport(c *gin.Context) {
	var req ExportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}
	if req.Path != "" && !s.inExportDir(req.Path) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path not allowed"})
		return
	}
	path := req.Path
	if path == "" {
		path = s.cfg.ExportDir
	}
	written, err := s.rec.Export(path)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": written})
}

func (s *Server) handleTask(c *gin.Context) {
	t, err := s.tasks.GetTask(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, t)
}
