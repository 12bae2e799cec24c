package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"repofix/internal/archive"
	"repofix/internal/fileset"
	"repofix/internal/fixer"
	llmclient "repofix/internal/llmClient"
	"repofix/internal/prompt"
)

// ChangedFilesHeader carries how many uploaded files the model rewrote.
const ChangedFilesHeader = "X-Repofix-Changed-Files"

// Fixer is the pipeline the handler drives.
type Fixer interface {
	Fix(ctx context.Context, files *fileset.FileSet, opts prompt.Options) (*fixer.Result, error)
	ModelName() string
}

// FixHandler serves the upload endpoint and the health check.
type FixHandler struct {
	fixer          Fixer
	maxUploadBytes int64
	log            *zap.Logger
}

func NewFixHandler(f Fixer, maxUploadBytes int64, logger *zap.Logger) *FixHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FixHandler{fixer: f, maxUploadBytes: maxUploadBytes, log: logger.Named("handler")}
}

type fixRequest struct {
	files *fileset.FileSet
	opts  prompt.Options
}

// HandleFix answers POST /api/fix with the repaired project as a zip.
func (h *FixHandler) HandleFix(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "method")
		return
	}
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	req, err := readFixRequest(r)
	if err != nil {
		h.writeFixError(w, err)
		return
	}

	res, err := h.fixer.Fix(r.Context(), req.files, req.opts)
	if err != nil {
		h.writeFixError(w, err)
		return
	}

	w.Header().Set("Content-Type", archive.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.DefaultFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Archive)))
	w.Header().Set(ChangedFilesHeader, strconv.Itoa(len(res.Report.Changed)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Archive); err != nil {
		h.log.Warn("write archive", zap.Error(err))
	}
}

// HandleHealth answers GET /healthz.
func (h *FixHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "method")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":    true,
		"model": h.fixer.ModelName(),
	})
}

// readFixRequest streams the multipart body. Part.FileName drops directory
// components, so the raw Content-Disposition filename is used instead.
func readFixRequest(r *http.Request) (*fixRequest, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, &fixer.InputError{Reason: "expected multipart/form-data", Err: err}
	}
	out := &fixRequest{files: fileset.New()}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapBodyError("read multipart", err)
		}
		if err := readPart(part.FormName(), rawFilename(part.Header.Get("Content-Disposition")), part, out); err != nil {
			part.Close()
			return nil, err
		}
		part.Close()
	}
	if out.files.Len() == 0 {
		return nil, &fixer.InputError{Reason: "no files part"}
	}
	return out, nil
}

func readPart(field, filename string, body io.Reader, out *fixRequest) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return wrapBodyError("read part "+field, err)
	}
	switch field {
	case "files":
		if filename == "" {
			return &fixer.InputError{Reason: "files part without filename"}
		}
		if err := out.files.AddBytes(filename, raw); err != nil {
			return &fixer.InputError{Reason: "file " + filename, Err: err}
		}
	case "instructions":
		out.opts.Instructions = string(raw)
	case "optLint":
		out.opts.FixLint = string(raw) == "1"
	case "optComments":
		out.opts.AddComments = string(raw) == "1"
	}
	return nil
}

func rawFilename(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["filename"])
}

func wrapBodyError(what string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &fixer.BodyLimitError{Limit: tooLarge.Limit}
	}
	return &fixer.InputError{Reason: what, Err: err}
}

func (h *FixHandler) writeFixError(w http.ResponseWriter, err error) {
	var (
		inErr   *fixer.InputError
		limErr  *fixer.LimitError
		bodyErr *fixer.BodyLimitError
		upErr   *llmclient.UpstreamError
		encErr  *archive.EncodingError
	)
	switch {
	case errors.As(err, &inErr):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_input")
	case errors.As(err, &limErr), errors.As(err, &bodyErr):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error(), "limit_exceeded")
	case errors.As(err, &upErr):
		h.log.Warn("fix failed upstream", zap.String("kind", string(upErr.Kind)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "model call failed: "+upErr.Err.Error(), "upstream_"+string(upErr.Kind))
	case errors.As(err, &encErr):
		h.log.Error("archive encoding failed", zap.String("path", encErr.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error(), "encoding")
	default:
		h.log.Error("fix failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "internal")
	}
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": msg,
		"kind":  kind,
	})
}
