package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/ieltsmeta/internal/api"
	"github.com/jackzampolin/ieltsmeta/internal/batch"
	"github.com/jackzampolin/ieltsmeta/internal/extract"
	"github.com/jackzampolin/ieltsmeta/internal/images"
	"github.com/jackzampolin/ieltsmeta/internal/schema"
	"github.com/jackzampolin/ieltsmeta/internal/svcctx"
)

// ViolationsHeader carries the number of schema violations on a
// successful extraction.
const ViolationsHeader = "X-Schema-Violations"

// multipart overhead allowed on top of the image size limit
const uploadSlack = 1 << 20

// ExtractURLRequest is the request body for POST /api/extract/url.
type ExtractURLRequest struct {
	ImageURL string `json:"image_url"`
}

// BatchRequest is the request body for POST /api/extract/batch.
type BatchRequest struct {
	ImageURLs []string `json:"image_urls"`
}

// VerboseResponse wraps metadata with its schema diagnostics.
type VerboseResponse struct {
	RequestID  string                   `json:"request_id"`
	Metadata   *schema.ExtractionResult `json:"metadata"`
	Violations []schema.Violation       `json:"violations"`
}

// ExtractURLEndpoint handles POST /api/extract/url.
type ExtractURLEndpoint struct{}

func (e *ExtractURLEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/extract/url", e.handler
}

func (e *ExtractURLEndpoint) RequiresInit() bool { return true }

func (e *ExtractURLEndpoint) Group() string { return "extract" }

// handler godoc
//
//	@Summary		Extract metadata from an image URL
//	@Description	Runs one inference over a remote IELTS Task 1 image
//	@Tags			extract
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ExtractURLRequest	true	"Image URL"
//	@Param			verbose	query		bool				false	"Wrap the metadata with schema violations"
//	@Success		200		{object}	schema.ExtractionResult
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/extract/url [post]
func (e *ExtractURLEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ExtractURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	pipeline := svcctx.PipelineFrom(r.Context())
	if pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "extraction pipeline not initialized")
		return
	}

	writeOutcome(w, r, pipeline.Extract(r.Context(), extract.FromURL(req.ImageURL)))
}

func (e *ExtractURLEndpoint) Command(getServerURL func() string) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "url <image_url>",
		Short: "Extract metadata from an image URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp map[string]any
			if err := client.Post(cmd.Context(), extractPath("/api/extract/url", verbose), ExtractURLRequest{ImageURL: args[0]}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include schema violations")
	return cmd
}

// ExtractFileEndpoint handles POST /api/extract/file.
type ExtractFileEndpoint struct{}

func (e *ExtractFileEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/extract/file", e.handler
}

func (e *ExtractFileEndpoint) RequiresInit() bool { return true }

func (e *ExtractFileEndpoint) Group() string { return "extract" }

// handler godoc
//
//	@Summary		Extract metadata from an uploaded image
//	@Description	Runs one inference over an uploaded IELTS Task 1 image. Files that do not decode as images are rejected without a model call.
//	@Tags			extract
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image file"
//	@Param			verbose	query		bool	false	"Wrap the metadata with schema violations"
//	@Success		200		{object}	schema.ExtractionResult
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/extract/file [post]
func (e *ExtractFileEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	maxBytes := images.DefaultMaxBytes
	if cfg := svcctx.ConfigFrom(ctx); cfg != nil && cfg.Images.MaxBytes > 0 {
		maxBytes = cfg.Images.MaxBytes
	}

	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes)+uploadSlack)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, &extract.Failure{Kind: extract.MalformedInput, Message: "uploaded file is too large", Err: images.ErrTooLarge})
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, int64(maxBytes)+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}

	pipeline := svcctx.PipelineFrom(ctx)
	if pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "extraction pipeline not initialized")
		return
	}

	writeOutcome(w, r, pipeline.Extract(ctx, extract.FromBytes(data, header.Filename)))
}

func (e *ExtractFileEndpoint) Command(getServerURL func() string) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Extract metadata from a local image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			client := api.NewClient(getServerURL())
			var resp map[string]any
			if err := client.PostFile(cmd.Context(), extractPath("/api/extract/file", verbose), "file", filepath.Base(args[0]), data, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include schema violations")
	return cmd
}

// ExtractBatchEndpoint handles POST /api/extract/batch.
type ExtractBatchEndpoint struct{}

func (e *ExtractBatchEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/extract/batch", e.handler
}

func (e *ExtractBatchEndpoint) RequiresInit() bool { return true }

func (e *ExtractBatchEndpoint) Group() string { return "extract" }

// handler godoc
//
//	@Summary		Extract metadata from several image URLs
//	@Description	Processes each URL independently; per-item failures are reported in the results
//	@Tags			extract
//	@Accept			json
//	@Produce		json
//	@Param			request	body		BatchRequest	true	"Image URLs"
//	@Success		200		{object}	batch.Report
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/extract/batch [post]
func (e *ExtractBatchEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if cfg := svcctx.ConfigFrom(ctx); cfg != nil && cfg.Batch.MaxItems > 0 && len(req.ImageURLs) > cfg.Batch.MaxItems {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many images: %d (max %d)", len(req.ImageURLs), cfg.Batch.MaxItems))
		return
	}

	coordinator := svcctx.BatchFrom(ctx)
	if coordinator == nil {
		writeError(w, http.StatusServiceUnavailable, "batch coordinator not initialized")
		return
	}

	refs := make([]extract.ImageRef, len(req.ImageURLs))
	for i, u := range req.ImageURLs {
		refs[i] = extract.FromURL(u)
	}

	writeJSON(w, http.StatusOK, coordinator.Run(ctx, refs))
}

func (e *ExtractBatchEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <image_url>...",
		Short: "Extract metadata from several image URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp batch.Report
			if err := client.Post(cmd.Context(), "/api/extract/batch", BatchRequest{ImageURLs: args}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

func extractPath(path string, verbose bool) string {
	if verbose {
		return path + "?verbose=true"
	}
	return path
}

// writeOutcome maps an extraction outcome to a response.
func writeOutcome(w http.ResponseWriter, r *http.Request, out *extract.Outcome) {
	if !out.Success() {
		f := out.Failure
		if f == nil {
			f = &extract.Failure{Kind: extract.MalformedOutput, Message: "no metadata produced", RawOutput: out.RawOutput}
		}
		w.Header().Set("X-Request-ID", out.RequestID)
		writeFailure(w, f)
		return
	}

	w.Header().Set("X-Request-ID", out.RequestID)
	w.Header().Set(ViolationsHeader, strconv.Itoa(len(out.Violations)))

	if verbose, _ := strconv.ParseBool(r.URL.Query().Get("verbose")); verbose {
		violations := out.Violations
		if violations == nil {
			violations = []schema.Violation{}
		}
		writeJSON(w, http.StatusOK, VerboseResponse{
			RequestID:  out.RequestID,
			Metadata:   out.Result,
			Violations: violations,
		})
		return
	}
	writeJSON(w, http.StatusOK, out.Result)
}

func writeFailure(w http.ResponseWriter, f *extract.Failure) {
	status := http.StatusInternalServerError
	if f.Kind == extract.MalformedInput {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, ErrorResponse{
		Error:     f.Error(),
		ErrorType: string(f.Kind),
		RawOutput: f.RawOutput,
	})
}
