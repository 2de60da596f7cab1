package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/taskgraph/pkg/observability"
)

// logHooks reports engine events to the CLI logger at debug level.
type logHooks struct {
	logger *log.Logger
}

func (h logHooks) OnValidate(dependentID, prerequisiteID string, errs, warnings int, d time.Duration) {
	h.logger.Debug("validated dependency",
		"dependent", dependentID, "prerequisite", prerequisiteID,
		"errors", errs, "warnings", warnings, "elapsed", d)
}

func (h logHooks) OnIntegrityScan(tasks, issues, suggestions int, d time.Duration) {
	h.logger.Debug("integrity scan", "tasks", tasks, "issues", issues, "suggestions", suggestions, "elapsed", d)
}

func (h logHooks) OnBuildStart(_ context.Context, projectID string, nodeCount int) {
	h.logger.Debug("building view", "project", projectID, "tasks", nodeCount)
}

func (h logHooks) OnBuildComplete(_ context.Context, projectID string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("view build failed", "project", projectID, "elapsed", d, "err", err)
		return
	}
	h.logger.Debug("view built", "project", projectID, "elapsed", d)
}

func (h logHooks) OnPublish(_ context.Context, projectID string, generation uint64, accepted bool) {
	if !accepted {
		h.logger.Debug("discarded stale view", "project", projectID, "generation", generation)
	}
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h logHooks) OnRequest(context.Context, string, string) {}

func (h logHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.logger.Debug("request", "method", method, "route", route, "status", status, "elapsed", d)
}

// registerHooks routes engine events to the logger when debug logging is on.
func (c *CLI) registerHooks() {
	if c.Logger.GetLevel() > log.DebugLevel {
		return
	}
	h := logHooks{logger: c.Logger}
	observability.SetValidationHooks(h)
	observability.SetPipelineHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

var (
	_ observability.ValidationHooks = logHooks{}
	_ observability.PipelineHooks   = logHooks{}
	_ observability.CacheHooks      = logHooks{}
	_ observability.HTTPHooks       = logHooks{}
)
