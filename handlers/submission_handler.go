package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"sweepifyAPI/internal/analysis"
	"sweepifyAPI/internal/blob"
	"sweepifyAPI/internal/submission"
	"sweepifyAPI/middleware"
	"sweepifyAPI/services"
)

type SubmissionHandler struct {
	submissionService *services.SubmissionService
	storage           *blob.Storage
	analyzer          *analysis.Client
}

func NewSubmissionHandler(submissionService *services.SubmissionService, storage *blob.Storage, analyzer *analysis.Client) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		storage:           storage,
		analyzer:          analyzer,
	}
}

func (h *SubmissionHandler) Report(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req submission.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sub, err := h.submissionService.Report(ctx, clerkID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, sub)
}

func (h *SubmissionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid submission id")
		return
	}

	var req submission.CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sub, err := h.submissionService.Complete(ctx, clerkID, id, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid submission id")
		return
	}

	var req submission.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sub, err := h.submissionService.Verify(ctx, clerkID, id, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid submission id")
		return
	}

	sub, err := h.submissionService.Get(ctx, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	filter := submission.ListFilter{
		Status:   submission.Status(q.Get("status")),
		Urgency:  submission.Urgency(q.Get("urgency")),
		SiteType: submission.SiteType(q.Get("type")),
		Location: q.Get("location"),
		Query:    q.Get("q"),
		Cursor:   q.Get("cursor"),
	}
	if v := q.Get("points_min"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "points_min must be an integer")
			return
		}
		filter.PointsMin = &n
	}
	if v := q.Get("points_max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "points_max must be an integer")
			return
		}
		filter.PointsMax = &n
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	resp, err := h.submissionService.List(ctx, filter)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *SubmissionHandler) Votes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid submission id")
		return
	}

	votes, err := h.submissionService.Votes(ctx, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, votes)
}

type uploadResponse struct {
	URL      string           `json:"url"`
	Analysis *analysis.Result `json:"analysis,omitempty"`
}

// Upload stores a photo in the blob bucket and, when requested, runs the
// trash detection scorer over it. The returned URL is what report/complete
// calls reference; blobs are write-once.
func (h *SubmissionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	if h.storage == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Photo storage is not configured")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	stage := r.FormValue("stage")
	if stage != "before" && stage != "after" {
		respondWithError(w, http.StatusBadRequest, "stage must be 'before' or 'after'")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	url, err := h.storage.UploadPhoto(ctx, stage, contentType, file)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, err.Error())
		return
	}

	resp := uploadResponse{URL: url}
	if h.analyzer != nil && r.FormValue("analyze") == "true" {
		if _, err := file.Seek(0, 0); err == nil {
			result, err := h.analyzer.Analyze(ctx, header.Filename, file)
			if err != nil {
				// advisory only; the upload already succeeded
				log.Printf("Photo analysis failed: %v", err)
			} else {
				resp.Analysis = result
				if err := h.submissionService.RecordAnalysis(ctx, url, result); err != nil {
					log.Printf("Failed to record analysis result: %v", err)
				}
			}
		}
	}

	respondWithJSON(w, http.StatusCreated, resp)
}
