package server

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hervehildenbrand/threatmap/pkg/dashboard"
	"github.com/hervehildenbrand/threatmap/pkg/export"
	"github.com/hervehildenbrand/threatmap/pkg/intel"
	"github.com/hervehildenbrand/threatmap/pkg/models"
	"github.com/hervehildenbrand/threatmap/pkg/render"
	"github.com/sirupsen/logrus"
)

// framePushInterval matches the upstream server's one-second SSE cadence.
const framePushInterval = time.Second

// Server is the outward dashboard surface.
type Server struct {
	log      *logrus.Entry
	orch     *dashboard.Orchestrator
	intel    *intel.Client
	renderer *render.Renderer
	hub      *Hub

	http *http.Server
	done chan struct{}
	wg   sync.WaitGroup
}

// New builds the HTTP server and its routes.
func New(addr string, orch *dashboard.Orchestrator, intelClient *intel.Client, renderer *render.Renderer) *Server {
	s := &Server{
		log:      logrus.WithField("component", "server"),
		orch:     orch,
		intel:    intelClient,
		renderer: renderer,
		hub:      NewHub(),
		done:     make(chan struct{}),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.GET("/stats", s.handleStats)
		api.GET("/news", s.handleNews)
		api.GET("/malicious-ips", s.handleMaliciousIPs)
		api.GET("/briefing", s.handleBriefing)
		api.POST("/analyze-ip", s.handleAnalyzeIP)
		api.GET("/countries/:code", s.handleCountry)

		api.POST("/stream/pause", s.handlePause)
		api.POST("/stream/resume", s.handleResume)
		api.GET("/filters", s.handleGetFilters)
		api.PUT("/filters", s.handleSetFilters)

		api.GET("/export/threats.csv", s.handleExportThreats)
		api.GET("/export/news.csv", s.handleExportNews)
		api.GET("/export/ips.csv", s.handleExportIPs)
		api.GET("/report", s.handleReport)
	}
	router.GET("/ws", func(c *gin.Context) { s.hub.Serve(c.Writer, c.Request) })

	s.http = &http.Server{Addr: addr, Handler: router}
	return s
}

// Start begins serving and pushing frames. It returns once the listener is
// running; listen errors are reported through the returned channel.
func (s *Server) Start() <-chan error {
	s.hub.Start()

	s.wg.Add(1)
	go s.pushLoop()

	errc := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()
	return errc
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) {
	close(s.done)
	s.wg.Wait()
	s.hub.Stop()
	if err := s.http.Shutdown(ctx); err != nil {
		s.log.Warnf("shutdown: %v", err)
	}
}

// pushLoop renders and broadcasts a frame once per second. An empty frame is
// still sent; it doubles as the feed heartbeat.
func (s *Server) pushLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(framePushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.hub.ClientCount() == 0 {
				continue
			}
			frame := s.renderer.Frame(string(s.orch.State()), s.orch.Active(), s.orch.IPs())
			s.hub.Broadcast(frame)
		case <-s.done:
			return
		}
	}
}

func (s *Server) handleState(c *gin.Context) {
	frame := s.renderer.Frame(string(s.orch.State()), s.orch.Active(), s.orch.IPs())
	c.JSON(http.StatusOK, gin.H{
		"state":   s.orch.State(),
		"filters": s.orch.SeverityFilter(),
		"active":  s.orch.Active(),
		"frame":   frame,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.Stats())
}

func (s *Server) handleNews(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.News())
}

func (s *Server) handleMaliciousIPs(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.IPs())
}

func (s *Server) handleBriefing(c *gin.Context) {
	briefing, err := s.intel.Briefing(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, briefing)
}

func (s *Server) handleAnalyzeIP(c *gin.Context) {
	var req struct {
		IP string `json:"ip" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing ip"})
		return
	}
	report, err := s.intel.AnalyzeIP(c.Request.Context(), req.IP)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleCountry(c *gin.Context) {
	country, ok := s.orch.ResolveCountry(c.Param("code"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown country code"})
		return
	}
	c.JSON(http.StatusOK, country)
}

func (s *Server) handlePause(c *gin.Context) {
	s.orch.Pause()
	c.JSON(http.StatusOK, gin.H{"state": s.orch.State()})
}

func (s *Server) handleResume(c *gin.Context) {
	s.orch.Resume()
	c.JSON(http.StatusOK, gin.H{"state": s.orch.State()})
}

func (s *Server) handleGetFilters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"severities": s.orch.SeverityFilter()})
}

func (s *Server) handleSetFilters(c *gin.Context) {
	var req struct {
		Severities []string `json:"severities"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter payload"})
		return
	}
	severities := make([]models.Severity, 0, len(req.Severities))
	for _, raw := range req.Severities {
		severity := models.Severity(raw)
		if !severity.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown severity: " + raw})
			return
		}
		severities = append(severities, severity)
	}
	s.orch.SetSeverityFilter(severities)
	c.JSON(http.StatusOK, gin.H{"severities": s.orch.SeverityFilter()})
}

func (s *Server) handleExportThreats(c *gin.Context) {
	var buf bytes.Buffer
	err := export.WriteAttacksCSV(&buf, s.orch.History())
	s.sendCSV(c, "threats.csv", &buf, err)
}

func (s *Server) handleExportNews(c *gin.Context) {
	var buf bytes.Buffer
	err := export.WriteNewsCSV(&buf, s.orch.News())
	s.sendCSV(c, "news.csv", &buf, err)
}

func (s *Server) handleExportIPs(c *gin.Context) {
	var buf bytes.Buffer
	err := export.WriteIPsCSV(&buf, s.orch.IPs())
	s.sendCSV(c, "ips.csv", &buf, err)
}

func (s *Server) sendCSV(c *gin.Context, filename string, buf *bytes.Buffer, err error) {
	if err == export.ErrNoData {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (s *Server) handleReport(c *gin.Context) {
	briefing, err := s.intel.Briefing(c.Request.Context())
	if err != nil {
		// The report is still useful without a narrative.
		s.log.Warnf("briefing unavailable for report: %v", err)
		briefing = models.Briefing{}
	}

	var buf bytes.Buffer
	if err := export.WriteReport(&buf, briefing, s.orch.History(), s.orch.IPs()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="threat-report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
