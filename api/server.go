package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/devconf/api/controllers"
	"github.com/moyoez/devconf/api/middlewares"
	"github.com/moyoez/devconf/api/models"
	"github.com/moyoez/devconf/api/notifyhub"
	"github.com/moyoez/devconf/notify"
	"github.com/moyoez/devconf/tool"
)

// Server is the local control API.
type Server struct {
	port   int
	engine *gin.Engine
	server *http.Server
	mu     sync.RWMutex
}

// NewServer creates a server listening on port. Use 0 to pick a free port.
func NewServer(port int) *Server {
	return &Server{port: port}
}

// EnableNotifyWS creates the websocket hub; call before Start.
func EnableNotifyWS() *notifyhub.Hub {
	hub := notifyhub.New()
	models.SetNotifyHub(hub)
	return hub
}

// Routes builds the gin engine. Exposed for tests.
func Routes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	if err := engine.SetTrustedProxies(nil); err != nil {
		tool.DefaultLogger.Warnf("SetTrustedProxies: %v", err)
	}

	self := engine.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.GET("/status", controllers.UserStatus)                      // Engine and device state
		self.POST("/connect", controllers.UserConnect)                   // Probe then connect, saves the endpoint
		self.POST("/disconnect", controllers.UserDisconnect)             // Drop the session
		self.GET("/probe", controllers.UserProbe)                        // Reachability only
		self.GET("/config/:category", controllers.UserConfigFileGet)     // Fetch and parse one device file
		self.PUT("/config/:category", controllers.UserConfigFilePut)     // Replace with validated content
		self.PATCH("/config/:category", controllers.UserConfigFilePatch) // Set keys
		self.GET("/presets", controllers.UserPresetsList)                // Loaded presets
		self.POST("/presets/reload", controllers.UserPresetsReload)      // Re-read presets dir
		self.POST("/presets/sync", controllers.UserPresetsSync)          // Pull from the preset repository
		self.POST("/presets/:name/apply", controllers.UserPresetApply)   // Apply, ?async=true for a job
		self.GET("/presets/jobs/:id", controllers.UserApplyJob)          // Background apply state
		self.GET("/command", controllers.UserCommandList)                // Command vocabulary
		self.POST("/command/:name", controllers.UserCommand)             // Run one vocabulary command
		self.GET("/settings", controllers.UserSettingsGet)               // Local settings, no password
		self.PATCH("/settings", controllers.UserSettingsPatch)           // Partial settings update
		self.GET("/device-qr", controllers.DeviceQRCode)                 // PNG for ssh://user@host:port
		if hub := models.GetNotifyHub(); notify.NotifyWSEnabled() && hub != nil {
			self.GET("/notify-ws", notifyhub.HandleNotifyWS(hub))
		}
	}
	return engine
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	engine := Routes()
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("listen on %d: %w", s.port, err)
	}

	s.mu.Lock()
	s.engine = engine
	s.server = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting control API on http://%s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for running ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
