package endpoints

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/ieltsmeta/internal/api"
	"github.com/jackzampolin/ieltsmeta/internal/inference"
	"github.com/jackzampolin/ieltsmeta/internal/svcctx"
	"github.com/jackzampolin/ieltsmeta/version"
)

// RootResponse lists the service capabilities.
type RootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// RootEndpoint handles GET /.
type RootEndpoint struct{}

func (e *RootEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/{$}", e.handler
}

func (e *RootEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Service information
//	@Description	Service name, version and main endpoints
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	RootResponse
//	@Router			/ [get]
func (e *RootEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Message: "IELTS Task 1 Metadata Extraction API",
		Version: version.GitRelease,
		Endpoints: map[string]string{
			"extract_from_url":  "/api/extract/url",
			"extract_from_file": "/api/extract/file",
			"extract_batch":     "/api/extract/batch",
			"health":            "/health",
		},
	})
}

func (e *RootEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show service information",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp RootResponse
			if err := client.Get(cmd.Context(), "/", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// HealthResponse is the response for the health check.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Health check
//	@Description	Liveness plus whether the inference engine is loaded
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy"}
	if engine := svcctx.EngineFrom(r.Context()); engine != nil {
		resp.ModelLoaded = engine.Loaded()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status:       %s\n", resp.Status)
			fmt.Printf("Model loaded: %t\n", resp.ModelLoaded)
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server        string            `json:"server"`
	Version       string            `json:"version"`
	SchemaVersion string            `json:"schema_version,omitempty"`
	Engine        *inference.Status `json:"engine,omitempty"`
	Providers     []string          `json:"providers"`
	ConfigFile    string            `json:"config_file,omitempty"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Server status
//	@Description	Engine state, rate limiter and registered providers
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{
		Server:    "running",
		Version:   version.GitRelease,
		Providers: []string{},
	}

	if registry := svcctx.RegistryFrom(ctx); registry != nil {
		resp.Providers = registry.ListLLM()
	}
	if engine := svcctx.EngineFrom(ctx); engine != nil {
		status := engine.Status()
		resp.Engine = &status
	}
	if reg := svcctx.SchemaFrom(ctx); reg != nil {
		resp.SchemaVersion = reg.Version()
	}
	if s := svcctx.ServicesFrom(ctx); s != nil && s.ConfigManager != nil {
		resp.ConfigFile = s.ConfigManager.ConfigFileUsed()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// writeJSON writes a JSON response. A value that cannot be encoded becomes a
// 500 instead of an empty body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		json.NewEncoder(&buf).Encode(ErrorResponse{Error: "failed to encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// ErrorResponse is a standard error response. ErrorType is set for
// extraction failures; RawOutput only for malformed model output.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type,omitempty"`
	RawOutput string `json:"raw_output,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
