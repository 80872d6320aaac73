// Command cleanarchguard fails when a package under modules/ imports an outer
// layer: infrastructure may import services and domain, services may import
// domain, domain imports neither.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/roblaszczak/go-cleanarch/cleanarch"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type layerAliases struct {
	Domain         []string `yaml:"domain"`
	Application    []string `yaml:"application"`
	Interfaces     []string `yaml:"interfaces"`
	Infrastructure []string `yaml:"infrastructure"`
}

type config struct {
	Version           int          `yaml:"version"`
	Root              string       `yaml:"root"`
	IgnoreTests       bool         `yaml:"ignore_tests"`
	IgnorePackages    []string     `yaml:"ignore_packages"`
	SharedModules     []string     `yaml:"shared_modules"`
	AllowedViolations []string     `yaml:"allow_violations"`
	Aliases           layerAliases `yaml:"aliases"`
}

var (
	defaultDomainAliases         = []string{"domain", "aggregates", "entities"}
	defaultApplicationAliases    = []string{"services", "application", "usecases"}
	defaultInterfacesAliases     = []string{"presentation", "interfaces", "adapters"}
	defaultInfrastructureAliases = []string{"infrastructure", "persistence"}
)

var crossModulePattern = regexp.MustCompile(`between ([\w-]+) and ([\w-]+) modules`)

func main() {
	configPath := flag.String("config", ".gocleanarch.yml", "config file path")
	debug := flag.Bool("debug", false, "enable go-cleanarch debug logging")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if *debug {
		cleanarch.Log.SetOutput(os.Stderr)
	}

	violations, err := run(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("cleanarchguard failed")
	}
	for _, v := range violations {
		logger.Error(v)
	}
	if len(violations) > 0 {
		logger.WithField("count", len(violations)).Error("layering violations found")
		os.Exit(1)
	}
	logger.Info("layering ok")
}

// run returns the violations left after shared modules and allowed patterns
// are filtered out.
func run(configPath string) ([]string, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	g := newGuard(cfg)

	ok, errs, err := cleanarch.NewValidator(g.aliases).Validate(cfg.Root, cfg.IgnoreTests, cfg.IgnorePackages)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}
	return g.filter(errs), nil
}

// loadConfig resolves root relative to the config file so the guard can be run
// from any directory.
func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	root := cfg.Root
	if root == "" {
		root = "."
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(filepath.Dir(path), root)
	}
	cfg.Root, err = filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

type guard struct {
	aliases  map[string]cleanarch.Layer
	shared   map[string]struct{}
	patterns []string
}

func newGuard(cfg *config) *guard {
	g := &guard{
		aliases: map[string]cleanarch.Layer{},
		shared:  map[string]struct{}{},
	}
	applyAliases(g.aliases, cfg.Aliases.Domain, defaultDomainAliases, cleanarch.LayerDomain)
	applyAliases(g.aliases, cfg.Aliases.Application, defaultApplicationAliases, cleanarch.LayerApplication)
	applyAliases(g.aliases, cfg.Aliases.Interfaces, defaultInterfacesAliases, cleanarch.LayerInterfaces)
	applyAliases(g.aliases, cfg.Aliases.Infrastructure, defaultInfrastructureAliases, cleanarch.LayerInfrastructure)

	for _, module := range cfg.SharedModules {
		if module = strings.TrimSpace(module); module != "" {
			g.shared[module] = struct{}{}
		}
	}
	for _, pattern := range cfg.AllowedViolations {
		if pattern != "" {
			g.patterns = append(g.patterns, pattern)
		}
	}
	return g
}

func applyAliases(dst map[string]cleanarch.Layer, custom, defaults []string, layer cleanarch.Layer) {
	candidates := defaults
	if len(custom) > 0 {
		candidates = custom
	}
	for _, alias := range candidates {
		if alias != "" {
			dst[alias] = layer
		}
	}
}

func (g *guard) filter(errs []cleanarch.ValidationError) []string {
	var out []string
	for _, validationErr := range errs {
		msg := validationErr.Error()
		if g.sharedModule(msg) || g.allowed(msg) {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// sharedModule reports whether msg is a cross-module import touching a module
// every other module may depend on.
func (g *guard) sharedModule(msg string) bool {
	m := crossModulePattern.FindStringSubmatch(msg)
	if len(m) != 3 {
		return false
	}
	_, left := g.shared[m[1]]
	_, right := g.shared[m[2]]
	return left || right
}

func (g *guard) allowed(msg string) bool {
	for _, pattern := range g.patterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
