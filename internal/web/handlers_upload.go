package web

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	commonerrors "llm-stock-prediction/internal/common/errors"
	"llm-stock-prediction/internal/llm"
	"llm-stock-prediction/internal/models"
	"llm-stock-prediction/internal/services/upload"
)

var uploadLabels = map[models.UploadKind]string{
	models.UploadKindCSV:          "CSV file",
	models.UploadKindInstructions: "Instructions file",
}

func (s *Server) handleUpload(kind models.UploadKind, field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r.Context())
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestBytes)

		var (
			file     io.Reader
			filename string
		)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.uploadResult(w, r, commonerrors.NewUploadTooLargeError(string(kind), s.config.MaxRequestBytes))
				return
			}
			if !errors.Is(err, http.ErrNotMultipart) {
				s.uploadResult(w, r, commonerrors.NewUploadInvalidError(string(kind), err.Error()))
				return
			}
		}
		if f, hdr, err := r.FormFile(field); err == nil {
			defer f.Close()
			file, filename = f, hdr.Filename
		}

		var err error
		if kind == models.UploadKindCSV {
			_, err = s.uploads.SaveCSV(r.Context(), user.ID, filename, file)
		} else {
			_, err = s.uploads.SaveInstructions(r.Context(), user.ID, filename, file)
		}
		if err != nil {
			s.uploadResult(w, r, err)
			return
		}

		msg := uploadLabels[kind] + " uploaded successfully."
		if isHTMX(r) {
			s.renderFragment(w, r, http.StatusOK, "status", &pageData{Message: msg})
			return
		}
		s.renderPage(w, r, http.StatusOK, "index", &pageData{Title: "Home", User: user, Message: msg})
	}
}

// uploadResult shows a rejected upload. HTMX only swaps 2xx responses, so
// fragments keep status 200.
func (s *Server) uploadResult(w http.ResponseWriter, r *http.Request, err error) {
	std := commonerrors.Normalize(err)
	text := std.Message
	if std.Code == commonerrors.ErrCodeUploadInvalid && std.Details != "" {
		text = std.Message + ": " + std.Details
	}
	if std.Retryable || commonerrors.HTTPStatus(std.Code) >= http.StatusInternalServerError {
		s.logger.Error("Upload failed", map[string]interface{}{
			"errorCode": string(std.Code),
			"details":   std.Details,
		})
		text = "Could not store the file. Please try again."
	}

	if isHTMX(r) {
		s.renderFragment(w, r, http.StatusOK, "status", &pageData{Error: text})
		return
	}
	s.renderPage(w, r, commonerrors.HTTPStatus(std.Code), "index", &pageData{
		Title: "Home",
		User:  userFrom(r.Context()),
		Error: text,
	})
}

func (s *Server) handleSampleCSV(w http.ResponseWriter, r *http.Request) {
	writeAttachment(w, upload.SampleCSV())
}

func (s *Server) handleSampleInstructions(w http.ResponseWriter, r *http.Request) {
	writeAttachment(w, upload.SampleInstructions())
}

func (s *Server) handleDownloadUpload(kind models.UploadKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := s.uploads.Download(r.Context(), userFrom(r.Context()).ID, kind)
		if err != nil {
			std := commonerrors.Normalize(err)
			if std.Code == commonerrors.ErrCodeUploadNotFound {
				http.Error(w, "No file uploaded yet.", http.StatusNotFound)
				return
			}
			s.logger.Error("Download failed", map[string]interface{}{"kind": string(kind), "details": std.Details})
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		writeAttachment(w, doc)
	}
}

// handleViewInstructions shows the uploaded instructions, or the built-in
// prompt when there are none.
func (s *Server) handleViewInstructions(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	data := &pageData{Title: "Instructions", User: user}

	doc, err := s.uploads.Download(r.Context(), user.ID, models.UploadKindInstructions)
	switch {
	case err == nil:
		data.Instructions = string(doc.Content)
	case commonerrors.HasCode(err, commonerrors.ErrCodeUploadNotFound):
		data.Instructions = llm.DefaultInstructions
		data.DefaultInstructions = true
	default:
		data.Error = "Could not load your instructions."
		s.logger.Error("Load instructions failed", map[string]interface{}{"error": err.Error()})
	}
	s.renderPage(w, r, http.StatusOK, "instructions", data)
}

func writeAttachment(w http.ResponseWriter, doc *upload.Document) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
}
