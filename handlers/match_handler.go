package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/middleware"
	"github.com/Dosada05/tournament-engine/services"
)

const maxEvidenceSize = 10 << 20 // 10MB

type MatchHandler struct {
	resultService services.ResultService
}

func NewMatchHandler(rs services.ResultService) *MatchHandler {
	return &MatchHandler{resultService: rs}
}

type submitResultRequest struct {
	TeamID  int    `json:"team_id"`
	Outcome string `json:"outcome"`
}

type resolveRequest struct {
	WinnerID int `json:"winner_id"`
}

// SubmitResult godoc
// @Summary Отправить результат матча от лица команды
// @Tags matches
// @Description Капитан или участник команды сообщает WIN или LOSS. Матч становится финальным, когда обе команды согласны.
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param input body submitResultRequest true "team_id и outcome (WIN|LOSS)"
// @Success 200 {object} services.SubmitResultOutput
// @Failure 400 {object} map[string]string "Команда не участвует в матче / неверный outcome"
// @Failure 403 {object} map[string]string "Пользователь не состоит в команде"
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Security BearerAuth
// @Router /matches/{matchID}/result [post]
func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input submitResultRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.TeamID <= 0 {
		badRequestResponse(w, r, errors.New("team_id is required"))
		return
	}
	outcome, err := brackets.ParseOutcome(input.Outcome)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	out, err := h.resultService.SubmitResult(r.Context(), services.SubmitResultInput{
		MatchID: matchID,
		TeamID:  input.TeamID,
		UserID:  userID,
		Outcome: outcome,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, out, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetMatch godoc
// @Summary Матч со статусом относительно текущего пользователя
// @Tags matches
// @Produce json
// @Param matchID path int true "Match ID"
// @Success 200 {object} services.MatchView
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /matches/{matchID} [get]
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	view, err := h.resultService.GetMatch(r.Context(), matchID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ResolveContested godoc
// @Summary Разрешить спорный матч (администратор)
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param input body resolveRequest true "winner_id"
// @Success 200 {object} services.SubmitResultOutput
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Матч не спорный или уже завершён с другим победителем"
// @Security BearerAuth
// @Router /matches/{matchID}/resolve [post]
func (h *MatchHandler) ResolveContested(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input resolveRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.WinnerID <= 0 {
		badRequestResponse(w, r, errors.New("winner_id is required"))
		return
	}

	out, err := h.resultService.ResolveContested(r.Context(), matchID, input.WinnerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, out, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadEvidence godoc
// @Summary Загрузить скриншот результата для спорного матча
// @Tags matches
// @Accept multipart/form-data
// @Produce json
// @Param matchID path int true "Match ID"
// @Param team_id formData int true "Team ID"
// @Param evidence formData file true "PNG, JPEG или WEBP"
// @Success 201 {object} services.EvidenceOutput
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 503 {object} map[string]string "Хранилище не настроено"
// @Security BearerAuth
// @Router /matches/{matchID}/evidence [post]
func (h *MatchHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxEvidenceSize+1024)
	if err := r.ParseMultipartForm(maxEvidenceSize); err != nil {
		badRequestResponse(w, r, fmt.Errorf("invalid multipart form: %w", err))
		return
	}

	teamID, err := strconv.Atoi(r.FormValue("team_id"))
	if err != nil || teamID <= 0 {
		badRequestResponse(w, r, errors.New("team_id is required"))
		return
	}

	file, header, err := r.FormFile("evidence")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, r, errors.New("content type required"))
		return
	}

	out, err := h.resultService.AttachEvidence(r.Context(), services.EvidenceInput{
		MatchID:     matchID,
		TeamID:      teamID,
		UserID:      userID,
		ContentType: contentType,
		Body:        file,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, out, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
