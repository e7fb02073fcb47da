package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/ddll/leadercheck/internal/handler/health"
)

type assessmentIDPath struct {
	ID int64 `path:"id"`
}

type userEmailPath struct {
	Email string `path:"email"`
}

type sessionIDPath struct {
	ID string `path:"id"`
}

type sessionAnswerRequest struct {
	ID         string `path:"id"`
	QuestionID int    `path:"questionID"`
	AnswerRequest
}

type sessionUserRequest struct {
	ID string `path:"id"`
	UserInfoRequest
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Leadership Self-Check API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Stores leadership self-check submissions and hosts assessment sessions.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of the store and configured sinks.")
	getHealthz.AddRespStructure(health.Response{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(health.Response{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/assessments
	postAssessment, _ := r.NewOperationContext(http.MethodPost, "/api/assessments")
	postAssessment.SetSummary("Submit assessment")
	postAssessment.SetDescription("Stores a completed assessment. Scores and interpretation are recomputed from the answers.")
	postAssessment.AddReqStructure(AssessmentData{})
	postAssessment.AddRespStructure(AssessmentResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postAssessment.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postAssessment.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	postAssessment.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
	_ = r.AddOperation(postAssessment)

	// GET /api/assessments/{id}
	getAssessment, _ := r.NewOperationContext(http.MethodGet, "/api/assessments/{id}")
	getAssessment.SetSummary("Get assessment")
	getAssessment.SetDescription("Returns a stored assessment with its user and answers.")
	getAssessment.AddReqStructure(assessmentIDPath{})
	getAssessment.AddRespStructure(AssessmentDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	getAssessment.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getAssessment)

	// GET /api/assessments/{id}/export
	exportAssessment, _ := r.NewOperationContext(http.MethodGet, "/api/assessments/{id}/export")
	exportAssessment.SetSummary("Export assessment")
	exportAssessment.SetDescription("Renders a stored assessment as a PDF report.")
	exportAssessment.AddReqStructure(assessmentIDPath{})
	exportAssessment.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("application/pdf"))
	exportAssessment.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(exportAssessment)

	// GET /api/users/{email}/assessments
	listUser, _ := r.NewOperationContext(http.MethodGet, "/api/users/{email}/assessments")
	listUser.SetSummary("List user assessments")
	listUser.SetDescription("Returns every assessment stored for the email, oldest first.")
	listUser.AddReqStructure(userEmailPath{})
	listUser.AddRespStructure([]Assessment{}, openapi.WithHTTPStatus(http.StatusOK))
	listUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(listUser)

	// POST /api/sessions
	createSession, _ := r.NewOperationContext(http.MethodPost, "/api/sessions")
	createSession.SetSummary("Create session")
	createSession.SetDescription("Starts a server-hosted assessment in the introduction section.")
	createSession.AddRespStructure(SessionView{}, openapi.WithHTTPStatus(http.StatusCreated))
	createSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	_ = r.AddOperation(createSession)

	// GET /api/sessions/{id}
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}")
	getSession.SetSummary("Get session")
	getSession.AddReqStructure(sessionIDPath{})
	getSession.AddRespStructure(SessionView{}, openapi.WithHTTPStatus(http.StatusOK))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSession)

	// DELETE /api/sessions/{id}
	deleteSession, _ := r.NewOperationContext(http.MethodDelete, "/api/sessions/{id}")
	deleteSession.SetSummary("Delete session")
	deleteSession.AddReqStructure(sessionIDPath{})
	deleteSession.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteSession)

	for _, op := range []struct{ path, summary, desc string }{
		{"/api/sessions/{id}/start", "Start", "Moves from introduction to questions."},
		{"/api/sessions/{id}/continue", "Continue", "Moves from questions to user info once every question is answered."},
		{"/api/sessions/{id}/submit", "Submit", "Validates contact details, scores the answers and moves to results."},
		{"/api/sessions/{id}/restart", "Restart", "Clears answers and the result and returns to the introduction."},
	} {
		oc, _ := r.NewOperationContext(http.MethodPost, op.path)
		oc.SetSummary(op.summary)
		oc.SetDescription(op.desc)
		oc.AddReqStructure(sessionIDPath{})
		oc.AddRespStructure(SessionView{}, openapi.WithHTTPStatus(http.StatusOK))
		oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
		oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
		oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
		_ = r.AddOperation(oc)
	}

	// PUT /api/sessions/{id}/answers/{questionID}
	putAnswer, _ := r.NewOperationContext(http.MethodPut, "/api/sessions/{id}/answers/{questionID}")
	putAnswer.SetSummary("Answer question")
	putAnswer.SetDescription("Rates a statement from 1 to 5. Allowed only in the questions section.")
	putAnswer.AddReqStructure(sessionAnswerRequest{})
	putAnswer.AddRespStructure(SessionView{}, openapi.WithHTTPStatus(http.StatusOK))
	putAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	putAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	putAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(putAnswer)

	// PATCH /api/sessions/{id}/user
	patchUser, _ := r.NewOperationContext(http.MethodPatch, "/api/sessions/{id}/user")
	patchUser.SetSummary("Edit contact details")
	patchUser.SetDescription("Updates the given fields and clears their pending errors.")
	patchUser.AddReqStructure(sessionUserRequest{})
	patchUser.AddRespStructure(SessionView{}, openapi.WithHTTPStatus(http.StatusOK))
	patchUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	patchUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(patchUser)

	// GET /api/sessions/{id}/export
	exportSession, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}/export")
	exportSession.SetSummary("Export session result")
	exportSession.AddReqStructure(sessionIDPath{})
	exportSession.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("application/pdf"))
	exportSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(exportSession)

	// GET /api/sessions/{id}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of session views, starting with the current one.")
	getEvents.AddReqStructure(sessionIDPath{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/sessions/{id}/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}/ws")
	getWS.SetSummary("Session websocket")
	getWS.SetDescription("Upgrades to a WebSocket. Send SessionAction messages, receive session events.")
	getWS.AddReqStructure(sessionIDPath{})
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
