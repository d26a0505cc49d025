package endpoints

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/ieltsmeta/internal/api"
	"github.com/jackzampolin/ieltsmeta/internal/prompts"
	"github.com/jackzampolin/ieltsmeta/internal/svcctx"
)

// PromptsListResponse contains all prompts.
type PromptsListResponse struct {
	Prompts []prompts.Prompt `json:"prompts"`
}

// ListPromptsEndpoint handles GET /api/prompts.
type ListPromptsEndpoint struct{}

func (e *ListPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts", e.handler
}

func (e *ListPromptsEndpoint) RequiresInit() bool { return false }

func (e *ListPromptsEndpoint) Group() string { return "prompts" }

// handler godoc
//
//	@Summary		List prompts
//	@Description	List the registered extraction prompts with their hashes
//	@Tags			prompts
//	@Produce		json
//	@Success		200	{object}	PromptsListResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/prompts [get]
func (e *ListPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	reg := svcctx.PromptsFrom(r.Context())
	if reg == nil {
		writeError(w, http.StatusInternalServerError, "prompt registry not available")
		return
	}

	embedded := reg.List()
	resp := PromptsListResponse{Prompts: make([]prompts.Prompt, len(embedded))}
	for i, p := range embedded {
		resp.Prompts[i] = p.View()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PromptsListResponse
			if err := client.Get(cmd.Context(), "/api/prompts", &resp); err != nil {
				return err
			}
			if api.GetOutputFormat() == api.OutputFormatJSON {
				return api.Output(resp)
			}
			for _, p := range resp.Prompts {
				fmt.Printf("%-24s %s  %s\n", p.Key, shortHash(p.Hash), p.Description)
			}
			return nil
		},
	}
}

// GetPromptEndpoint handles GET /api/prompts/{key}.
type GetPromptEndpoint struct{}

func (e *GetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/{key...}", e.handler
}

func (e *GetPromptEndpoint) RequiresInit() bool { return false }

func (e *GetPromptEndpoint) Group() string { return "prompts" }

// handler godoc
//
//	@Summary		Get a prompt
//	@Description	Get a specific prompt by key
//	@Tags			prompts
//	@Produce		json
//	@Param			key	path		string	true	"Prompt key (e.g., extract.task1.system)"
//	@Success		200	{object}	prompts.Prompt
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/prompts/{key} [get]
func (e *GetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(r.PathValue("key"))
	if err != nil || key == "" {
		writeError(w, http.StatusBadRequest, "invalid prompt key")
		return
	}

	reg := svcctx.PromptsFrom(r.Context())
	if reg == nil {
		writeError(w, http.StatusInternalServerError, "prompt registry not available")
		return
	}

	p, err := reg.Get(key)
	if err != nil {
		writeError(w, http.StatusNotFound, "prompt not found: "+key)
		return
	}

	writeJSON(w, http.StatusOK, p.View())
}

func (e *GetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a prompt by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp prompts.Prompt
			if err := client.Get(cmd.Context(), "/api/prompts/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
