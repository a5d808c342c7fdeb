// Package sites resolves request hosts to site configurations loaded from a
// watched YAML file.
package sites

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"wafgate/waf"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type siteFile struct {
	Sites []siteEntry `yaml:"sites"`
}

type siteEntry struct {
	Name      string         `yaml:"name"`
	Host      string         `yaml:"host"`
	Enabled   *bool          `yaml:"enabled"`
	Policy    policyEntry    `yaml:"policy"`
	Backends  []backendEntry `yaml:"backends"`
	Algorithm string         `yaml:"algorithm"`
}

type policyEntry struct {
	Action           string `yaml:"action"`
	Sensitivity      int    `yaml:"sensitivity"`
	Template         string `yaml:"template"`
	ManagementBypass bool   `yaml:"management_bypass"`
}

type backendEntry struct {
	IP      string `yaml:"ip"`
	Port    int    `yaml:"port"`
	Allowed *bool  `yaml:"allowed"`
}

// Resolver implements waf.SiteResolver on top of a YAML file. The file is
// re-read whenever fsnotify reports a change, and the host map is swapped
// atomically; lookups keep working on the previous config if a reload fails.
type Resolver struct {
	logger  zerolog.Logger
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
	mutex   sync.RWMutex
	byHost  map[string]*waf.SiteConfig
}

// NewResolver loads the sites file and starts watching it for changes.
func NewResolver(logger zerolog.Logger, path string) (r *Resolver, err error) {
	r = &Resolver{
		logger: logger,
		path:   path,
		done:   make(chan struct{}),
	}

	if err = r.reload(); err != nil {
		return nil, err
	}

	r.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory rather than the file: editors and config pushes
	// typically replace the file, which would orphan a file watch.
	if err = r.watcher.Add(filepath.Dir(path)); err != nil {
		r.watcher.Close()
		return nil, err
	}

	go r.watchLoop()

	return r, nil
}

// LookupActiveSiteByHost returns the site configured for exactly this host,
// or nil if there is none. There is no fallback site: traffic for unknown
// hosts must not be attributed to another site's policy.
func (r *Resolver) LookupActiveSiteByHost(host string) (*waf.SiteConfig, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	site, ok := r.byHost[strings.ToLower(host)]
	if !ok {
		return nil, nil
	}
	return site, nil
}

// Close stops the file watcher.
func (r *Resolver) Close() error {
	close(r.done)
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

func (r *Resolver) watchLoop() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(r.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := r.reload(); err != nil {
				r.logger.Error().Err(err).Str("path", r.path).Msg("Sites file changed but reload failed, keeping previous config")
				continue
			}
			r.logger.Info().Str("path", r.path).Msg("Reloaded sites config")
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error().Err(err).Msg("Sites file watcher error")
		case <-r.done:
			return
		}
	}
}

func (r *Resolver) reload() error {
	bb, err := os.ReadFile(r.path)
	if err != nil {
		return err
	}

	byHost, err := parseSites(bb)
	if err != nil {
		return err
	}

	r.mutex.Lock()
	r.byHost = byHost
	r.mutex.Unlock()
	return nil
}

func parseSites(bb []byte) (map[string]*waf.SiteConfig, error) {
	var f siteFile
	if err := yaml.Unmarshal(bb, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sites file: %v", err)
	}

	byHost := make(map[string]*waf.SiteConfig)
	for _, e := range f.Sites {
		if e.Enabled != nil && !*e.Enabled {
			continue
		}
		if e.Host == "" {
			return nil, fmt.Errorf("site %q has no host", e.Name)
		}

		site, err := e.toSiteConfig()
		if err != nil {
			return nil, err
		}

		host := strings.ToLower(e.Host)
		if _, exists := byHost[host]; exists {
			return nil, fmt.Errorf("host %q configured by more than one site", host)
		}
		byHost[host] = site
	}

	return byHost, nil
}

func (e *siteEntry) toSiteConfig() (*waf.SiteConfig, error) {
	site := &waf.SiteConfig{
		Name: e.Name,
		Host: strings.ToLower(e.Host),
		Policy: waf.SitePolicy{
			ActionType:       waf.ActionBlock,
			SensitivityLevel: e.Policy.Sensitivity,
			TemplateType:     waf.TemplateBasic,
			ManagementBypass: e.Policy.ManagementBypass,
		},
		Algorithm: waf.AlgorithmRoundRobin,
	}

	switch e.Policy.Action {
	case "", "block":
		site.Policy.ActionType = waf.ActionBlock
	case "log":
		site.Policy.ActionType = waf.ActionLog
	default:
		return nil, fmt.Errorf("site %q: unknown action %q", e.Name, e.Policy.Action)
	}

	switch e.Policy.Template {
	case "", "basic":
		site.Policy.TemplateType = waf.TemplateBasic
	case "advanced":
		site.Policy.TemplateType = waf.TemplateAdvanced
	default:
		return nil, fmt.Errorf("site %q: unknown template %q", e.Name, e.Policy.Template)
	}

	switch e.Algorithm {
	case "", "round_robin":
		site.Algorithm = waf.AlgorithmRoundRobin
	case "least_connections":
		site.Algorithm = waf.AlgorithmLeastConnections
	case "ip_hash":
		site.Algorithm = waf.AlgorithmIPHash
	default:
		return nil, fmt.Errorf("site %q: unknown algorithm %q", e.Name, e.Algorithm)
	}

	for _, b := range e.Backends {
		if b.IP == "" || b.Port <= 0 || b.Port > 65535 {
			return nil, fmt.Errorf("site %q: invalid backend %v:%v", e.Name, b.IP, b.Port)
		}
		allowed := true
		if b.Allowed != nil {
			allowed = *b.Allowed
		}
		site.Backends = append(site.Backends, waf.Backend{IPAddress: b.IP, Port: b.Port, IsAllowed: allowed})
	}

	return site, nil
}
