package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinicstore/config"
	appointmentHandler "github.com/jwalitptl/clinicstore/internal/handler/appointment"
	"github.com/jwalitptl/clinicstore/internal/handler/health"
	medicalHandler "github.com/jwalitptl/clinicstore/internal/handler/medical"
	messageHandler "github.com/jwalitptl/clinicstore/internal/handler/message"
	patientHandler "github.com/jwalitptl/clinicstore/internal/handler/patient"
	"github.com/jwalitptl/clinicstore/internal/handler/prometheus"
	appointmentService "github.com/jwalitptl/clinicstore/internal/service/appointment"
	medicalService "github.com/jwalitptl/clinicstore/internal/service/medical"
	messageService "github.com/jwalitptl/clinicstore/internal/service/message"
	patientService "github.com/jwalitptl/clinicstore/internal/service/patient"
	"github.com/jwalitptl/clinicstore/internal/store"
	"github.com/jwalitptl/clinicstore/pkg/logger"
	"github.com/jwalitptl/clinicstore/pkg/messaging"
	"github.com/jwalitptl/clinicstore/pkg/metrics"
	"github.com/jwalitptl/clinicstore/pkg/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type errorBody struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	TraceID   string `json:"trace_id"`
}

func newTestRouter(t *testing.T, ready health.ReadinessCheck) *gin.Engine {
	t.Helper()

	log := logger.Nop()
	reg := prom.NewRegistry()
	m := metrics.NewMetrics("test", reg)

	st, err := store.NewInMemory(log, m)
	require.NoError(t, err)

	v := validator.New()
	pub := messaging.NopPublisher{}

	checks := map[string]health.ReadinessCheck{}
	if ready != nil {
		checks["store"] = ready
	}

	r := NewRouter(
		Config{MaxBodySize: 64 << 10, MetricsPath: "/metrics"},
		log,
		m,
		health.NewHandler(checks),
		prometheus.New(reg),
		patientHandler.NewHandler(patientService.NewService(st, v, pub, log, config.ValidationConfig{})),
		appointmentHandler.NewHandler(appointmentService.NewService(st, v, pub, log)),
		messageHandler.NewHandler(messageService.NewService(st, v, pub, log)),
		medicalHandler.NewHandler(medicalService.NewService(st, pub, log)),
	)
	r.Setup()
	return r.Engine()
}

func do(t *testing.T, e *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "success", env.Status)
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestPatientRoutes(t *testing.T) {
	e := newTestRouter(t, nil)

	w := do(t, e, http.MethodPost, "/api/v1/patients", `{"name":"Alice","contact_details":"555-1234","medical_history":"none"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1.0", w.Header().Get("X-API-Version"))

	var created map[string]interface{}
	decodeData(t, w, &created)
	assert.Equal(t, float64(1), created["id"])
	assert.Equal(t, "Alice", created["name"])

	w = do(t, e, http.MethodGet, "/api/v1/patients/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, e, http.MethodPut, "/api/v1/patients/1", `{"name":"Alice B.","contact_details":"555-9999","medical_history":"asthma"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var updated map[string]interface{}
	decodeData(t, w, &updated)
	assert.Equal(t, "Alice B.", updated["name"])

	w = do(t, e, http.MethodGet, "/api/v1/patients", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	decodeData(t, w, &list)
	assert.Len(t, list, 1)

	w = do(t, e, http.MethodDelete, "/api/v1/patients/1", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, e, http.MethodGet, "/api/v1/patients/1", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "NOT_FOUND", body.ErrorCode)
	assert.Equal(t, "patient with id=1 not found", body.Message)
	assert.NotEmpty(t, body.TraceID)

	w = do(t, e, http.MethodDelete, "/api/v1/patients/1", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Patient with id=1 not found", decodeError(t, w).Message)
}

func TestValidationAndBadInput(t *testing.T) {
	e := newTestRouter(t, nil)

	w := do(t, e, http.MethodPost, "/api/v1/patients", `{"name":""}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "INVALID_INPUT", body.ErrorCode)
	assert.Contains(t, body.Message, "Name cannot be empty")

	w = do(t, e, http.MethodPost, "/api/v1/patients", `{"name":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "invalid request body")

	w = do(t, e, http.MethodGet, "/api/v1/patients/abc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "invalid id")

	w = do(t, e, http.MethodGet, "/api/v1/appointments/-1", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOversizeRecordIsInternal(t *testing.T) {
	e := newTestRouter(t, nil)

	w := do(t, e, http.MethodPost, "/api/v1/patients", `{"name":"Bob","medical_history":"`+strings.Repeat("x", 2048)+`"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "INTERNAL", body.ErrorCode)
	assert.Equal(t, "internal error", body.Message)
}

func TestAppointmentMessageAndMedicalRoutes(t *testing.T) {
	e := newTestRouter(t, nil)

	w := do(t, e, http.MethodPost, "/api/v1/patients", `{"name":"Alice"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, e, http.MethodPost, "/api/v1/appointments", `{"patient_id":1,"doctor_id":7,"date_time":1700000000,"reason":"checkup","multimedia_content":{"image_url":"http://x/img.png"}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var appt map[string]interface{}
	decodeData(t, w, &appt)
	assert.Equal(t, float64(2), appt["id"])
	assert.Equal(t, "http://x/img.png", appt["multimedia_content"].(map[string]interface{})["image_url"])

	w = do(t, e, http.MethodPost, "/api/v1/appointments", `{"patient_id":1,"reason":""}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "Reason cannot be empty")

	w = do(t, e, http.MethodPost, "/api/v1/messages", `{"sender_id":7,"receiver_id":1,"content":"hello"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, e, http.MethodPost, "/api/v1/patients/1/reminders", `{"content":"take your meds"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var reminder map[string]interface{}
	decodeData(t, w, &reminder)
	assert.Equal(t, float64(0), reminder["sender_id"])
	assert.Equal(t, float64(1), reminder["receiver_id"])

	w = do(t, e, http.MethodPost, "/api/v1/patients/99/reminders", `{"content":"hi"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, e, http.MethodGet, "/api/v1/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	var messages []map[string]interface{}
	decodeData(t, w, &messages)
	assert.Len(t, messages, 2)

	w = do(t, e, http.MethodPost, "/api/v1/medical-records", `{"patient_id":1,"lab_results":"ok","treatment_history":"rest"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var record map[string]interface{}
	decodeData(t, w, &record)
	id := record["id"].(float64)

	w = do(t, e, http.MethodDelete, "/api/v1/medical-records/"+jsonNumber(id), "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, e, http.MethodGet, "/api/v1/medical-records/"+jsonNumber(id), "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "medical record with id="+jsonNumber(id)+" not found", decodeError(t, w).Message)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newTestRouter(t, nil)

	w := do(t, e, http.MethodGet, "/api/v1/health/live", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, e, http.MethodGet, "/api/v1/health/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)

	do(t, e, http.MethodGet, "/api/v1/patients", "")
	w = do(t, e, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")

	down := newTestRouter(t, func(context.Context) error { return errors.New("closed") })
	w = do(t, down, http.MethodGet, "/api/v1/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "store: closed")
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
