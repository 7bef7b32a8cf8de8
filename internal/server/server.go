package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"travel_recommend/internal/logger"
	"travel_recommend/internal/metrics"
	"travel_recommend/internal/model"
	"travel_recommend/internal/recommender"
	"travel_recommend/internal/task"
)

const requestIDHeader = "X-Request-ID"

// Config HTTP 层参数
type Config struct {
	Debug bool
	// CORSOrigins 为空时允许任意来源
	CORSOrigins []string
	// 重新加载和导出的默认路径
	CatalogPath  string
	ProfilesPath string
	ExportDir    string
	// RequestTimeout 单次推荐/搜索的超时
	RequestTimeout time.Duration
	// AdminToken 为空时 /admin 下的接口全部拒绝
	AdminToken string
}

// Server 代表 HTTP API 服务器
type Server struct {
	router *gin.Engine
	rec    *recommender.Recommender
	tasks  *task.Manager
	cfg    Config
}

// NewServer 创建新的 HTTP 服务器
func NewServer(rec *recommender.Recommender, tasks *task.Manager, cfg Config) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if tasks == nil {
		tasks = task.NewManager()
	}

	s := &Server{
		router: gin.New(),
		rec:    rec,
		tasks:  tasks,
		cfg:    cfg,
	}
	s.router.Use(gin.Recovery(), s.requestMiddleware(), cors.New(s.corsConfig()))
	s.setupRoutes()
	return s
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(s.cfg.CORSOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.CORSOrigins
	}
	return cfg
}

// requestMiddleware 分配请求 id 并记录耗时
func (s *Server) requestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(requestIDHeader, id)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		logger.Debug("%s %s %d %s [%s]", c.Request.Method, c.Request.URL.Path, status, time.Since(start), id)
	}
}

// adminAuthMiddleware 校验 Authorization: Bearer <admin_token>
func (s *Server) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.AdminToken == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin api disabled"})
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(s.cfg.AdminToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Next()
	}
}

// allowedPath 重新加载时客户端传入的路径只能是配置的目录/画像文件，或位于导出目录内
func (s *Server) allowedPath(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, p := range []string{s.cfg.CatalogPath, s.cfg.ProfilesPath} {
		if p == "" {
			continue
		}
		if allowed, err := filepath.Abs(p); err == nil && allowed == abs {
			return true
		}
	}
	return s.inExportDir(path)
}

// inExportDir 判断路径是否位于导出目录（含目录本身）
func (s *Server) inExportDir(path string) bool {
	if s.cfg.ExportDir == "" {
		return false
	}
	dir, err := filepath.Abs(s.cfg.ExportDir)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Handler 返回 http.Handler，便于测试和自定义 http.Server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")

	v1.GET("/recommend/:user_id", s.handleRecommend)
	v1.POST("/search", s.handleSearch)
	v1.POST("/tags/click", s.handleTagClick)
	v1.POST("/views", s.handleView)

	users := v1.Group("/users")
	users.GET("", s.handleUsers)
	users.GET("/:user_id", s.handleUserSummary)
	users.GET("/:user_id/tags", s.handleUserTags)
	users.GET("/:user_id/history", s.handleUserHistory)
	users.GET("/:user_id/quality", s.handleUserQuality)

	v1.GET("/items/:item_id/similar", s.handleSimilar)
	v1.GET("/explain/:user_id/:item_id", s.handleExplain)
	v1.GET("/trending", s.handleTrending)
	v1.GET("/stats", s.handleStats)

	admin := v1.Group("/admin", s.adminAuthMiddleware())
	admin.POST("/reload", s.handleReload)
	admin.POST("/export", s.handleExport)

	v1.GET("/tasks/:id", s.handleTask)
}

// intQuery 解析非负整数查询参数，缺省时返回 def
func intQuery(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return v, true
}

// writeError 把领域错误映射为状态码
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrUnknownUser), errors.Is(err, model.ErrUnknownItem):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrNotInitialized):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case model.IsDataFormatError(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
}
