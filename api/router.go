// Package api exposes the VPN subsystem to the streaming-client
// frontend through a loopback-only REST interface.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yllada/tvbridge/common"
	"github.com/yllada/tvbridge/history"
	"github.com/yllada/tvbridge/keyring"
	"github.com/yllada/tvbridge/profile"
	"github.com/yllada/tvbridge/vpn"
)

// Router holds the collaborators behind the HTTP handlers.
type Router struct {
	manager  *vpn.Manager
	profiles *profile.Store
	events   *history.Store
}

// NewRouter builds the gin engine. The history store may be nil when
// event recording is disabled.
func NewRouter(manager *vpn.Manager, profiles *profile.Store, events *history.Store) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := &Router{manager: manager, profiles: profiles, events: events}
	engine := gin.New()
	engine.Use(gin.Recovery(), gin.Logger())
	r.register(engine)
	return engine
}

func (r *Router) register(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now()})
	})

	v := engine.Group("/vpn")
	{
		v.POST("/parse", r.parseConfig)
		v.GET("/detect", r.detectClients)
		v.GET("/status", r.status)
		v.POST("/connect", r.connect)
		v.POST("/disconnect", r.disconnect)
	}

	profiles := engine.Group("/profiles")
	{
		profiles.GET("", r.listProfiles)
		profiles.POST("", r.createProfile)
		profiles.DELETE(":id", r.deleteProfile)
		profiles.POST(":id/connect", r.connectProfile)
		profiles.POST(":id/disconnect", r.disconnectProfile)
	}

	engine.GET("/events", r.listEvents)
}

type parseRequest struct {
	Content string `json:"content" binding:"required"`
}

func (r *Router) parseConfig(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, vpn.Parse(req.Content))
}

func (r *Router) detectClients(c *gin.Context) {
	detected := r.manager.Detect()
	c.JSON(http.StatusOK, gin.H{
		"wireguard": detected[vpn.KindWireGuard],
		"openvpn":   detected[vpn.KindOpenVPN],
	})
}

func (r *Router) status(c *gin.Context) {
	kindParam := c.Query("kind")
	if kindParam == "" {
		c.JSON(http.StatusOK, r.manager.CurrentStatus(c.Request.Context()))
		return
	}
	kind, err := vpn.ParseKind(kindParam)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, r.manager.Status(c.Request.Context(), c.Query("tunnel"), kind))
}

type connectRequest struct {
	ConfigPath string `json:"config_path" binding:"required"`
	Kind       string `json:"kind" binding:"required"`
}

func (r *Router) connect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	kind, err := vpn.ParseKind(req.Kind)
	if err != nil {
		badRequest(c, err)
		return
	}
	status, err := r.manager.Connect(c.Request.Context(), req.ConfigPath, kind)
	if err != nil {
		operationError(c, status, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

type disconnectRequest struct {
	Tunnel string `json:"tunnel"`
	Kind   string `json:"kind" binding:"required"`
}

func (r *Router) disconnect(c *gin.Context) {
	var req disconnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	kind, err := vpn.ParseKind(req.Kind)
	if err != nil {
		badRequest(c, err)
		return
	}
	status, err := r.manager.Disconnect(c.Request.Context(), req.Tunnel, kind)
	if err != nil {
		operationError(c, status, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (r *Router) listProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, r.profiles.List())
}

type profileRequest struct {
	Name         string `json:"name" binding:"required"`
	ConfigPath   string `json:"config_path" binding:"required"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	SavePassword bool   `json:"save_password"`
	AutoConnect  bool   `json:"auto_connect"`
}

func (r *Router) createProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p := &profile.Profile{
		Name:         req.Name,
		ConfigPath:   req.ConfigPath,
		Username:     req.Username,
		SavePassword: req.SavePassword,
		AutoConnect:  req.AutoConnect,
	}
	if err := r.profiles.Add(p); err != nil {
		if errors.Is(err, common.ErrInvalidConfig) || errors.Is(err, common.ErrDuplicateName) {
			badRequest(c, err)
		} else {
			internalError(c, err)
		}
		return
	}
	if req.SavePassword && req.Password != "" {
		if err := keyring.Set(p.ID, req.Password); err != nil {
			common.LogWarn("Could not store credentials for %s: %v", p.Name, err)
		}
	}
	c.JSON(http.StatusCreated, p)
}

func (r *Router) deleteProfile(c *gin.Context) {
	id := c.Param("id")
	if err := r.profiles.Remove(id); err != nil {
		notFound(c, err)
		return
	}
	if err := keyring.Delete(id); err != nil {
		common.LogWarn("Could not remove credentials for %s: %v", id, err)
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) connectProfile(c *gin.Context) {
	p, err := r.profiles.Get(c.Param("id"))
	if err != nil {
		notFound(c, err)
		return
	}

	var status vpn.ConnectionStatus
	if p.Kind == vpn.KindOpenVPN && p.SavePassword {
		password, kerr := keyring.Get(p.ID)
		if kerr != nil {
			internalError(c, common.WrapError(common.ErrCredentialsNotFound, p.Name))
			return
		}
		authFile, cleanup, aerr := vpn.WriteAuthFile(p.Username, password)
		if aerr != nil {
			internalError(c, aerr)
			return
		}
		defer cleanup()
		status, err = r.manager.ConnectWithAuth(c.Request.Context(), p.ConfigPath, authFile)
	} else {
		status, err = r.manager.Connect(c.Request.Context(), p.ConfigPath, p.Kind)
	}
	if err != nil {
		operationError(c, status, err)
		return
	}
	if err := r.profiles.MarkUsed(p.ID); err != nil {
		common.LogWarn("Could not update last-used for %s: %v", p.Name, err)
	}
	c.JSON(http.StatusOK, status)
}

func (r *Router) disconnectProfile(c *gin.Context) {
	p, err := r.profiles.Get(c.Param("id"))
	if err != nil {
		notFound(c, err)
		return
	}
	status, err := r.manager.Disconnect(c.Request.Context(), p.TunnelName(), p.Kind)
	if err != nil {
		operationError(c, status, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (r *Router) listEvents(c *gin.Context) {
	if r.events == nil {
		c.JSON(http.StatusOK, []history.Event{})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := r.events.Recent(limit)
	if err != nil {
		internalError(c, err)
		return
	}
	if events == nil {
		events = []history.Event{}
	}
	c.JSON(http.StatusOK, events)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func notFound(c *gin.Context, err error) {
	c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// operationError maps the connection error kinds to HTTP statuses and
// attaches the status record so the frontend can render it.
func operationError(c *gin.Context, status vpn.ConnectionStatus, err error) {
	code := http.StatusBadGateway
	switch {
	case errors.Is(err, common.ErrClientNotFound):
		code = http.StatusFailedDependency
	case errors.Is(err, common.ErrPermissionDenied):
		code = http.StatusForbidden
	}
	c.JSON(code, gin.H{"error": err.Error(), "status": status})
}
