package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/Krimson/ecg-monitory/offline-service/internal/service"
	"github.com/Krimson/ecg-monitory/offline-service/pkg/models"
)

type HTTPHandler struct {
	ecgService  *service.ECGService
	maxUploadMB int64
}

func NewHTTPHandler(ecgService *service.ECGService, maxUploadMB int64) *HTTPHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 32
	}
	return &HTTPHandler{
		ecgService:  ecgService,
		maxUploadMB: maxUploadMB,
	}
}

// RegisterRoutes регистрирует маршруты сервиса
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/upload", h.UploadCSV)
	mux.HandleFunc("/decision", h.HandleDecision)
	mux.HandleFunc("/session", h.GetSessionData)
	mux.HandleFunc("/debug/stats", h.GetStats)
}

// UploadCSV загружает запись ЭКГ и возвращает отчет анализа
// @Summary Загрузить запись ЭКГ для анализа
// @Description Загружает CSV (time,value), прогоняет запись через детектор QRS и считает спектральную оценку ЧСС
// @Tags Offline Analysis
// @Accept multipart/form-data
// @Produce json
// @Param ecg_file formData file true "CSV файл с записью ЭКГ"
// @Param session_id formData string false "ID сессии (генерируется автоматически если не указан)"
// @Param sample_rate formData number false "Частота дискретизации, Гц (по умолчанию по столбцу времени)"
// @Success 200 {object} models.UploadResponse "Результат анализа"
// @Failure 400 {object} map[string]string "Неверный запрос"
// @Failure 500 {object} map[string]string "Ошибка обработки"
// @Router /upload [post]
func (h *HTTPHandler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadMB<<20)
	if err := r.ParseMultipartForm(h.maxUploadMB << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form", err.Error())
		return
	}

	file, header, err := r.FormFile("ecg_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to get ECG file", err.Error())
		return
	}
	defer file.Close()

	var sampleRate float64
	if raw := r.FormValue("sample_rate"); raw != "" {
		sampleRate, err = strconv.ParseFloat(raw, 64)
		if err != nil || !(sampleRate > 0) {
			writeError(w, http.StatusBadRequest, "Invalid sample_rate", raw)
			return
		}
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	log.Printf("[INFO] Received ECG file: %s (%d bytes), session: %s", header.Filename, header.Size, sessionID)

	response, err := h.ecgService.ProcessCSV(r.Context(), file, sessionID, sampleRate)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrInvalidCSV) {
			status = http.StatusBadRequest
		}
		log.Printf("[ERROR] Processing failed for session %s: %v", sessionID, err)
		writeError(w, status, "Processing failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// HandleDecision обрабатывает решение о сохранении отчета
// @Summary Принять решение о сохранении
// @Description Сохраняет отчет в базу данных или удаляет его из кеша
// @Tags Offline Analysis
// @Accept json
// @Produce json
// @Param request body models.SaveDecision true "Решение о сохранении"
// @Success 200 {object} models.DecisionResponse "Результат операции"
// @Failure 400 {object} map[string]string "Неверный запрос"
// @Failure 404 {object} map[string]string "Отчет не найден"
// @Failure 500 {object} map[string]string "Ошибка обработки"
// @Router /decision [post]
func (h *HTTPHandler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	var decision models.SaveDecision
	if err := json.NewDecoder(r.Body).Decode(&decision); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if decision.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required", "")
		return
	}

	response, err := h.ecgService.HandleDecision(r.Context(), &decision)
	if err != nil {
		writeError(w, statusFor(err), "Decision processing failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// GetSessionData возвращает отчет сессии
// @Summary Получить отчет сессии
// @Description Возвращает отчет из кеша, а после сохранения - из базы данных
// @Tags Offline Analysis
// @Produce json
// @Param session_id query string true "ID сессии"
// @Success 200 {object} models.AnalysisSession "Отчет сессии"
// @Failure 400 {object} map[string]string "Неверный запрос"
// @Failure 404 {object} map[string]string "Отчет не найден"
// @Router /session [get]
func (h *HTTPHandler) GetSessionData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id parameter is required", "")
		return
	}

	session, err := h.ecgService.GetReport(r.Context(), sessionID)
	if err != nil {
		writeError(w, statusFor(err), "Failed to get session", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// GetStats возвращает состояние хранилищ
// @Summary Статистика хранилищ
// @Tags Debug
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /debug/stats [get]
func (h *HTTPHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ecgService.Stats())
}

func statusFor(err error) int {
	if errors.Is(err, models.ErrSessionNotFound) || errors.Is(err, models.ErrSessionExpired) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[ERROR] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	body := map[string]string{"error": message}
	if details != "" {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

func generateSessionID() string {
	return uuid.New().String()
}
