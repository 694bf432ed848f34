// Package health polls the proxy's liveness endpoint.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/proxyboot/internal/common"
	"github.com/loykin/proxyboot/internal/constants"
	"github.com/loykin/proxyboot/internal/httpc"
	"github.com/loykin/proxyboot/internal/util"
	"github.com/tidwall/gjson"
)

// Config describes what a healthy response looks like.
type Config struct {
	URL      string
	Method   string
	Status   int
	Timeout  time.Duration
	Interval time.Duration
	// JSONField is a gjson path that must equal JSONValue when set.
	JSONField string
	JSONValue string
}

func DefaultConfig() Config {
	return Config{
		URL:      constants.DefaultHealthURL,
		Method:   constants.DefaultHealthMethod,
		Status:   constants.DefaultHealthStatus,
		Timeout:  constants.DefaultHealthTimeout,
		Interval: constants.DefaultHealthInterval,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	c.URL = util.TrimWithDefault(c.URL, d.URL)
	switch util.TrimAndLower(c.Method) {
	case "head":
		c.Method = http.MethodHead
	default:
		c.Method = http.MethodGet
	}
	if c.Status == 0 {
		c.Status = d.Status
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	return c
}

// ErrUnhealthy is wrapped by Wait when the deadline passes.
var ErrUnhealthy = errors.New("proxy did not become healthy")

// Probe checks the endpoint with a resty client.
type Probe struct {
	cfg    Config
	client *resty.Client
	logger *common.Logger
}

func New(cfg Config, h *httpc.Httpc) *Probe {
	cfg = cfg.normalized()
	return &Probe{
		cfg:    cfg,
		client: h.New(),
		logger: common.GetLogger().WithComponent("health").WithRequest(cfg.Method, cfg.URL),
	}
}

// Check performs one request and reports whether the response is healthy.
func (p *Probe) Check(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Execute(p.cfg.Method, p.cfg.URL)
	if err != nil {
		return err
	}
	if resp.StatusCode() != p.cfg.Status {
		return fmt.Errorf("status %d, want %d", resp.StatusCode(), p.cfg.Status)
	}
	if p.cfg.JSONField == "" {
		return nil
	}
	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("response is not JSON, cannot read %q", p.cfg.JSONField)
	}
	got := gjson.GetBytes(body, p.cfg.JSONField)
	if !got.Exists() {
		return fmt.Errorf("field %q missing from response", p.cfg.JSONField)
	}
	if got.String() != p.cfg.JSONValue {
		return fmt.Errorf("field %q = %q, want %q", p.cfg.JSONField, got.String(), p.cfg.JSONValue)
	}
	return nil
}

// Wait polls until Check succeeds, the timeout elapses or ctx is done.
func (p *Probe) Wait(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	attempt := 0
	for {
		attempt++
		err := p.Check(ctx)
		if err == nil {
			p.logger.Info("proxy is healthy", "attempts", attempt)
			return nil
		}
		p.logger.Debug("proxy not healthy yet", "error", err, "attempt", attempt)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s after %s (last: %v)", ErrUnhealthy, p.cfg.URL, p.cfg.Timeout, err)
		case <-ticker.C:
		}
	}
}
