package netmgr

import (
	"context"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
	"github.com/Jesssullivan/DarwinNicUtil/pkg/platform"
)

// StatusSnapshot is one sampled view of the machine's network state.
type StatusSnapshot struct {
	Timestamp    time.Time                 `json:"timestamp"`
	WiFi         models.WiFiMetrics        `json:"wifi"`
	Interfaces   []models.NetworkInterface `json:"interfaces"`
	ServiceOrder []string                  `json:"service_order"`
	Rankings     []models.InterfaceScore   `json:"rankings"`
}

// DashboardConfig contains configuration for the monitor dashboard.
type DashboardConfig struct {
	Port           string
	EnableCORS     bool
	SampleInterval time.Duration
}

// Dashboard serves a read-only web view of WiFi health, interfaces, and
// service order. It only ever samples state; no handler mutates anything,
// so it is safe to leave running alongside a managed connection.
type Dashboard struct {
	router  *gin.Engine
	logger  *logrus.Logger
	config  DashboardConfig
	exec    platform.Executor
	monitor *WiFiMonitor
	scorer  *InterfaceScorer

	mu       sync.RWMutex
	snapshot StatusSnapshot
}

// NewDashboard creates a dashboard server over the given components.
func NewDashboard(config DashboardConfig, exec platform.Executor, monitor *WiFiMonitor, scorer *InterfaceScorer, logger *logrus.Logger) *Dashboard {
	if logger == nil {
		logger = logrus.New()
	}
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.SampleInterval <= 0 {
		config.SampleInterval = 10 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	d := &Dashboard{
		router:  router,
		logger:  logger,
		config:  config,
		exec:    exec,
		monitor: monitor,
		scorer:  scorer,
	}
	d.setupRoutes()
	return d
}

func (d *Dashboard) setupRoutes() {
	if d.config.EnableCORS {
		d.router.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(204)
				return
			}
			c.Next()
		})
	}

	d.router.SetHTMLTemplate(statusPage)
	d.router.GET("/", d.handleIndex)

	api := d.router.Group("/api")
	{
		api.GET("/status", d.handleStatus)
		api.GET("/wifi", d.handleWiFi)
		api.GET("/services", d.handleServices)
		api.GET("/interfaces", d.handleInterfaces)
	}
}

// Run samples state on a ticker and serves until ctx is cancelled or the
// listener fails.
func (d *Dashboard) Run(ctx context.Context) error {
	d.sample(ctx)
	go func() {
		ticker := time.NewTicker(d.config.SampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.sample(ctx)
			}
		}
	}()

	srv := &http.Server{Addr: ":" + d.config.Port, Handler: d.router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	d.logger.Infof("monitor dashboard listening on :%s", d.config.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (d *Dashboard) sample(ctx context.Context) {
	snap := StatusSnapshot{Timestamp: time.Now()}
	snap.WiFi = d.monitor.Status(ctx)

	if ifaces, err := d.exec.ListInterfaces(ctx); err == nil {
		snap.Interfaces = ifaces
		snap.Rankings = d.scorer.RankInterfaces(ctx, ifaces)
	} else {
		d.logger.Debugf("interface sample failed: %v", err)
	}

	if order, err := d.exec.ServiceOrder(ctx); err == nil {
		snap.ServiceOrder = order
	} else {
		d.logger.Debugf("service order sample failed: %v", err)
	}

	d.mu.Lock()
	d.snapshot = snap
	d.mu.Unlock()
}

func (d *Dashboard) current() StatusSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshot
}

func (d *Dashboard) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "status", d.current())
}

func (d *Dashboard) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, d.current())
}

func (d *Dashboard) handleWiFi(c *gin.Context) {
	c.JSON(http.StatusOK, d.current().WiFi)
}

func (d *Dashboard) handleServices(c *gin.Context) {
	snap := d.current()
	if snap.ServiceOrder == nil {
		c.JSON(http.StatusOK, []string{})
		return
	}
	c.JSON(http.StatusOK, snap.ServiceOrder)
}

func (d *Dashboard) handleInterfaces(c *gin.Context) {
	snap := d.current()
	if snap.Interfaces == nil {
		c.JSON(http.StatusOK, []models.NetworkInterface{})
		return
	}
	c.JSON(http.StatusOK, snap.Interfaces)
}

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>Darwin NIC Monitor</title>
  <meta http-equiv="refresh" content="10">
  <style>
    body { font-family: -apple-system, sans-serif; margin: 2em; color: #222; }
    table { border-collapse: collapse; margin-bottom: 2em; }
    th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
    .connected { color: #2a7a2a; } .degraded, .interfered { color: #b05a00; }
    .disconnected { color: #a02020; }
  </style>
</head>
<body>
  <h1>Darwin NIC Monitor</h1>
  <p>Sampled {{.Timestamp.Format "15:04:05"}}</p>

  <h2>WiFi</h2>
  <table>
    <tr><th>Status</th><td class="{{.WiFi.Status}}">{{.WiFi.Status}}</td></tr>
    <tr><th>SSID</th><td>{{.WiFi.SSID}}</td></tr>
    <tr><th>RSSI</th><td>{{.WiFi.SignalStrength}} dBm</td></tr>
    <tr><th>SNR</th><td>{{.WiFi.SNR}} dB</td></tr>
    <tr><th>Band</th><td>{{.WiFi.Band}} (ch {{.WiFi.Channel}})</td></tr>
  </table>

  <h2>Interfaces</h2>
  <table>
    <tr><th>Name</th><th>Hardware Port</th><th>IP</th><th>Active</th><th>USB</th></tr>
    {{range .Interfaces}}
    <tr><td>{{.Name}}</td><td>{{.HardwarePort}}</td><td>{{.CurrentIP}}</td><td>{{.IsActive}}</td><td>{{.IsUSB}}</td></tr>
    {{end}}
  </table>

  <h2>Service Order</h2>
  <ol>{{range .ServiceOrder}}<li>{{.}}</li>{{end}}</ol>
</body>
</html>`))
