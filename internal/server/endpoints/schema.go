package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/ieltsmeta/internal/api"
	"github.com/jackzampolin/ieltsmeta/internal/svcctx"
)

// SchemaEndpoint handles GET /api/schema.
type SchemaEndpoint struct{}

func (e *SchemaEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schema", e.handler
}

func (e *SchemaEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Metadata JSON Schema
//	@Description	The JSON Schema every extraction is validated against
//	@Tags			schema
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/schema [get]
func (e *SchemaEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	reg := svcctx.SchemaFrom(r.Context())
	if reg == nil {
		writeError(w, http.StatusInternalServerError, "schema registry not available")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Schema-Version", reg.Version())
	w.WriteHeader(http.StatusOK)
	w.Write(reg.Document())
}

func (e *SchemaEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Fetch the metadata JSON Schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var doc json.RawMessage
			if err := client.Get(cmd.Context(), "/api/schema", &doc); err != nil {
				return err
			}

			var v map[string]any
			if err := json.Unmarshal(doc, &v); err != nil {
				return err
			}
			if outputFile != "" {
				return api.OutputToFile(v, outputFile)
			}
			return api.Output(v)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Write the schema to a file")
	return cmd
}
