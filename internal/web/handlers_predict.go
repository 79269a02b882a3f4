package web

import (
	"encoding/json"
	"net/http"

	commonerrors "llm-stock-prediction/internal/common/errors"
	"llm-stock-prediction/internal/llmoutput"
	"llm-stock-prediction/internal/services/prediction"
	"llm-stock-prediction/internal/services/upload"
)

// handlePredict renders the result fragment. Failures are shown in the
// fragment rather than as an error page.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	out, err := s.predictions.Predict(r.Context(), &prediction.Input{UserID: user.ID})

	data := &pageData{User: user, Result: out}
	status := http.StatusOK
	if err != nil {
		std := commonerrors.Normalize(err)
		data.ResultError = std.Message
		if std.Code == commonerrors.ErrCodeInternal || commonerrors.GetErrorCategory(std.Code) == "STORAGE" {
			data.ResultError = "Prediction failed. Please try again."
			s.logger.Error("Prediction failed", map[string]interface{}{
				"userId":    user.ID,
				"errorCode": string(std.Code),
				"details":   std.Details,
			})
		}
		if !isHTMX(r) {
			status = commonerrors.HTTPStatus(std.Code)
		}
	}
	s.renderFragment(w, r, status, "result", data)
}

// apiPrediction is the JSON body of POST /api/predict.
type apiPrediction struct {
	*prediction.Output
	TableRows [][]string `json:"tableRows"`
}

func (s *Server) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	out, err := s.predictions.Predict(r.Context(), &prediction.Input{UserID: user.ID})
	if err != nil {
		s.errs.WriteJSON(w, r, err)
		return
	}

	resp := apiPrediction{Output: out, TableRows: [][]string{}}
	if out.TableHTML != "" {
		rows, err := llmoutput.TableRows(out.TableHTML)
		if err != nil {
			s.logger.Warn("Could not read prediction table", map[string]interface{}{"error": err.Error()})
		} else if rows != nil {
			resp.TableRows = rows
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleDownloadPrediction(w http.ResponseWriter, r *http.Request) {
	rec, err := s.predictions.Latest(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		std := commonerrors.Normalize(err)
		if std.Code == commonerrors.ErrCodePredictionNotFound {
			http.Error(w, "No prediction available.", http.StatusNotFound)
			return
		}
		s.logger.Error("Load prediction failed", map[string]interface{}{"details": std.Details})
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	if rec.PredictionCSV == "" {
		http.Error(w, "The last prediction did not contain a CSV block.", http.StatusNotFound)
		return
	}
	writeAttachment(w, &upload.Document{
		Filename:    "predictions.csv",
		ContentType: "text/csv",
		Content:     []byte(rec.PredictionCSV + "\n"),
	})
}
