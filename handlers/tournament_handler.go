package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-engine/services"
)

type TournamentHandler struct {
	stageService services.StageService
}

func NewTournamentHandler(ss services.StageService) *TournamentHandler {
	return &TournamentHandler{stageService: ss}
}

type generateStageRequest struct {
	Force bool `json:"force"`
}

// GenerateStage godoc
// @Summary Сгенерировать стадию турнира (группы или сетку плей-офф)
// @Tags stages
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param input body generateStageRequest false "force: не ждать закрытия регистрации"
// @Success 201 {object} services.StageResult
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 409 {object} map[string]string "Стадия уже сгенерирована / регистрация ещё открыта"
// @Failure 422 {object} map[string]string "Ошибка конфигурации (нечётное число команд, мало команд)"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/stage [post]
func (h *TournamentHandler) GenerateStage(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input generateStageRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	result, err := h.stageService.GenerateStage(r.Context(), tournamentID, services.GenerateOptions{Force: input.Force})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetStageStatus godoc
// @Summary Текущая стадия турнира
// @Tags stages
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]string "REGISTRATION_OPEN | REGISTRATION_CLOSED | GROUPS | PLAYOFF"
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/stage [get]
func (h *TournamentHandler) GetStageStatus(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	status, err := h.stageService.GetStageStatus(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament_id": tournamentID, "stage": status}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AdvanceLadder godoc
// @Summary Продвинуть сетку плей-офф, если текущий раунд завершён
// @Tags stages
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/advance [post]
func (h *TournamentHandler) AdvanceLadder(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	adv, err := h.stageService.AdvanceLadder(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"advanced": adv != nil, "advancement": adv}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetBracket godoc
// @Summary Полная сетка турнира: группы с таблицами и матчи плей-офф
// @Tags stages
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} services.BracketView
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/bracket [get]
func (h *TournamentHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.stageService.GetBracket(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetGroupStandings godoc
// @Summary Таблицы групп
// @Tags stages
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/groups [get]
func (h *TournamentHandler) GetGroupStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tables, err := h.stageService.GetGroupStandings(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"groups": tables}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListPlayoffMatches godoc
// @Summary Матчи плей-офф по раундам
// @Tags matches
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/playoff [get]
func (h *TournamentHandler) ListPlayoffMatches(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.stageService.ListPlayoffMatches(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListSchedule godoc
// @Summary Расписание матчей турнира
// @Tags matches
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param team_id query int false "Только матчи этой команды"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/schedule [get]
func (h *TournamentHandler) ListSchedule(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	teamID, err := optionalIntQuery(r, "team_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.stageService.ListSchedule(r.Context(), tournamentID, teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CheckTeamEligibility godoc
// @Summary Проверить, укомплектована ли команда
// @Tags teams
// @Produce json
// @Param teamID path int true "Team ID"
// @Success 200 {object} services.EligibilityReport
// @Failure 404 {object} map[string]string
// @Router /teams/{teamID}/eligibility [get]
func (h *TournamentHandler) CheckTeamEligibility(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	report, err := h.stageService.CheckTeamEligibility(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, report, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
