package config

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReloadableConfig wraps a configuration with hot-reload capability
type ReloadableConfig struct {
	mu sync.RWMutex

	config   *Config
	path     string
	logger   *zap.Logger
	lastMod  time.Time
	interval time.Duration

	// Callback functions called when configuration is reloaded
	onReload []ReloadCallback

	// Settings that cannot be hot-reloaded
	criticalSettings CriticalSettings

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ReloadCallback is called when configuration is reloaded
type ReloadCallback func(oldConfig, newConfig *Config) error

// CriticalSettings stores settings that cannot be changed during hot reload
type CriticalSettings struct {
	Version         string
	ApplicationName string
	DeliverySink    string
	APIAddress      string
	MetricsAddress  string
	Generator       GeneratorConfig
}

// NewReloadableConfig creates a new reloadable configuration
func NewReloadableConfig(path string, logger *zap.Logger) (*ReloadableConfig, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config, err := ValidateAndLoad(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial configuration: %w", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	rc := &ReloadableConfig{
		config:           config,
		path:             path,
		logger:           logger,
		lastMod:          stat.ModTime(),
		interval:         10 * time.Second,
		onReload:         make([]ReloadCallback, 0),
		criticalSettings: criticalSettingsOf(config),
		ctx:              ctx,
		cancel:           cancel,
	}

	return rc, nil
}

func criticalSettingsOf(config *Config) CriticalSettings {
	return CriticalSettings{
		Version:         config.Version,
		ApplicationName: config.Application.Name,
		DeliverySink:    config.Delivery.Sink,
		APIAddress:      config.API.Address,
		MetricsAddress:  config.Metrics.Address,
		Generator:       config.Generator,
	}
}

// Get returns a copy of the current configuration
func (rc *ReloadableConfig) Get() *Config {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	return copyConfig(rc.config)
}

// OnReload registers a callback to be called when configuration is reloaded
func (rc *ReloadableConfig) OnReload(callback ReloadCallback) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.onReload = append(rc.onReload, callback)
}

// SetReloadInterval sets the interval for checking configuration changes
func (rc *ReloadableConfig) SetReloadInterval(interval time.Duration) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.interval = interval
}

// Start begins watching for configuration file changes
func (rc *ReloadableConfig) Start() {
	rc.mu.RLock()
	interval := rc.interval
	rc.mu.RUnlock()

	rc.wg.Add(1)
	go rc.watchLoop(interval)
}

// Stop stops watching for configuration changes
func (rc *ReloadableConfig) Stop() {
	rc.cancel()
	rc.wg.Wait()
}

func (rc *ReloadableConfig) watchLoop(interval time.Duration) {
	defer rc.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rc.ctx.Done():
			rc.logger.Info("Configuration watcher stopped")
			return

		case <-ticker.C:
			if err := rc.checkAndReload(); err != nil {
				rc.logger.Error("Failed to reload configuration",
					zap.String("path", rc.path),
					zap.Error(err))
			}
		}
	}
}

// checkAndReload reloads the file if its modification time moved forward
func (rc *ReloadableConfig) checkAndReload() error {
	stat, err := os.Stat(rc.path)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	rc.mu.RLock()
	lastMod := rc.lastMod
	rc.mu.RUnlock()

	if !stat.ModTime().After(lastMod) {
		return nil
	}

	rc.logger.Info("Configuration file changed, reloading",
		zap.String("path", rc.path),
		zap.Time("last_modified", stat.ModTime()))

	newConfig, err := ValidateAndLoad(rc.path)
	if err != nil {
		return fmt.Errorf("failed to load new configuration: %w", err)
	}

	if err := rc.validateCriticalSettings(newConfig); err != nil {
		return fmt.Errorf("critical settings changed (requires restart): %w", err)
	}

	rc.mu.RLock()
	oldConfig := rc.config
	callbacks := append([]ReloadCallback{}, rc.onReload...)
	rc.mu.RUnlock()

	for _, callback := range callbacks {
		if err := callback(oldConfig, newConfig); err != nil {
			rc.logger.Error("Reload callback failed", zap.Error(err))
			return fmt.Errorf("reload callback failed: %w", err)
		}
	}

	rc.mu.Lock()
	rc.config = newConfig
	rc.lastMod = stat.ModTime()
	rc.mu.Unlock()

	rc.logger.Info("Configuration reloaded successfully",
		zap.String("path", rc.path))

	return nil
}

func (rc *ReloadableConfig) validateCriticalSettings(newConfig *Config) error {
	cs := rc.criticalSettings
	next := criticalSettingsOf(newConfig)

	if next.Version != cs.Version {
		return fmt.Errorf("version changed from %s to %s", cs.Version, next.Version)
	}

	if next.ApplicationName != cs.ApplicationName {
		return fmt.Errorf("application name changed from %s to %s", cs.ApplicationName, next.ApplicationName)
	}

	if next.DeliverySink != cs.DeliverySink {
		return fmt.Errorf("delivery sink changed from %s to %s", cs.DeliverySink, next.DeliverySink)
	}

	if next.APIAddress != cs.APIAddress {
		return fmt.Errorf("api address changed from %s to %s", cs.APIAddress, next.APIAddress)
	}

	if next.MetricsAddress != cs.MetricsAddress {
		return fmt.Errorf("metrics address changed from %s to %s", cs.MetricsAddress, next.MetricsAddress)
	}

	// Generated data must stay reproducible for the lifetime of a server
	if !sameGenerator(next.Generator, cs.Generator) {
		return fmt.Errorf("generator parameters changed")
	}

	return nil
}

func sameGenerator(a, b GeneratorConfig) bool {
	if !slices.Equal(a.ATOCustomers, b.ATOCustomers) {
		return false
	}
	a.ATOCustomers, b.ATOCustomers = nil, nil
	return reflect.DeepEqual(a, b)
}

// Reload manually triggers a configuration reload
func (rc *ReloadableConfig) Reload() error {
	return rc.checkAndReload()
}

// copyConfig creates a deep copy of the configuration
func copyConfig(src *Config) *Config {
	dst := *src

	dst.Application.Tags = make(map[string]string, len(src.Application.Tags))
	for k, v := range src.Application.Tags {
		dst.Application.Tags[k] = v
	}

	dst.Generator.ATOCustomers = append([]int64(nil), src.Generator.ATOCustomers...)
	dst.Delivery.Collections = append([]string(nil), src.Delivery.Collections...)
	dst.Sinks.Kafka.Brokers = append([]string(nil), src.Sinks.Kafka.Brokers...)

	return &dst
}

// HotReloadableSettings returns a list of settings that can be hot-reloaded
func HotReloadableSettings() []string {
	return []string{
		"delivery.batch_size",
		"delivery.rate_per_second",
		"delivery.burst",
		"error_handling.enable_retry",
		"error_handling.max_retry_attempts",
		"error_handling.initial_backoff",
		"error_handling.max_backoff",
		"error_handling.backoff_multiplier",
		"error_handling.backoff_jitter",
		"error_handling.enable_circuit_breaker",
		"error_handling.circuit_breaker.*",
		"api.max_batch_size",
		"logging.level",
	}
}

// CriticalSettingsList returns a list of settings that require restart
func CriticalSettingsList() []string {
	return []string{
		"version",
		"application.name",
		"generator.*",
		"delivery.sink",
		"api.address",
		"metrics.address",
		"sinks.*",
	}
}
