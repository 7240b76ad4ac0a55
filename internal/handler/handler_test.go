package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type replicationServiceMock struct {
	result     *models.ReplicationResult
	err        error
	lastReq    dto.ReplicationRequest
	lastSchool string
	checked    bool
}

func (m *replicationServiceMock) Check(ctx context.Context, schoolID string, req dto.ReplicationRequest) (*models.ReplicationResult, error) {
	m.checked = true
	m.lastSchool, m.lastReq = schoolID, req
	return m.result, m.err
}

func (m *replicationServiceMock) Replicate(ctx context.Context, schoolID string, req dto.ReplicationRequest) (*models.ReplicationResult, error) {
	m.lastSchool, m.lastReq = schoolID, req
	return m.result, m.err
}

type substitutionServiceMock struct {
	candidates  *models.SubstitutionCandidates
	result      *models.SubstitutionResult
	err         error
	lastTeacher string
}

func (m *substitutionServiceMock) Candidates(ctx context.Context, schoolID, assignmentID string) (*models.SubstitutionCandidates, error) {
	return m.candidates, m.err
}

func (m *substitutionServiceMock) Substitute(ctx context.Context, schoolID, assignmentID, newTeacherID string) (*models.SubstitutionResult, error) {
	m.lastTeacher = newTeacherID
	return m.result, m.err
}

type exclusionServiceMock struct {
	lastDate time.Time
	lastYear string
}

func (m *exclusionServiceMock) Explain(ctx context.Context, schoolID, schoolYearID, courseID string, date time.Time) (*models.Exclusion, error) {
	m.lastDate, m.lastYear = date, schoolYearID
	return &models.Exclusion{Date: date, Excluded: true}, nil
}

type assignmentServiceMock struct {
	deleted   string
	lastQuery dto.TeacherAssignmentsQuery
	err       error
}

func (m *assignmentServiceMock) Create(ctx context.Context, schoolID string, req dto.CreateAssignmentRequest) (*models.Assignment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Assignment{ID: "new", SchoolID: schoolID, TeacherID: req.TeacherID}, nil
}

func (m *assignmentServiceMock) Get(ctx context.Context, schoolID, id string) (*models.Assignment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Assignment{ID: id, SchoolID: schoolID}, nil
}

func (m *assignmentServiceMock) Delete(ctx context.Context, schoolID, id string) error {
	m.deleted = id
	return m.err
}

func (m *assignmentServiceMock) TeacherAssignments(ctx context.Context, schoolID, teacherID string, query dto.TeacherAssignmentsQuery) ([]models.AssignmentView, error) {
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	slot := "hs1"
	return []models.AssignmentView{{
		Assignment:         models.Assignment{ID: "a1", TeacherID: teacherID},
		HourSlotID:         &slot,
		ConflictingSlotIDs: []string{"hs1", "hs2"},
	}}, nil
}

type reportServiceMock struct {
	lastYear string
}

func (m *reportServiceMock) TeacherHours(ctx context.Context, schoolID, schoolYearID string) ([]models.TeacherHoursRow, error) {
	m.lastYear = schoolYearID
	return []models.TeacherHoursRow{{TeacherID: "T", MissingHours: 3}}, nil
}

type testServices struct {
	replication  *replicationServiceMock
	substitution *substitutionServiceMock
	exclusion    *exclusionServiceMock
	assignment   *assignmentServiceMock
	report       *reportServiceMock
}

func buildTimetableRouter(svc testServices, schoolID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if schoolID != "" {
			c.Set(middleware.ContextSchoolKey, schoolID)
		}
		c.Next()
	})

	replication := NewReplicationHandler(svc.replication)
	substitution := NewSubstitutionHandler(svc.substitution)
	assignments := NewAssignmentHandler(svc.assignment)
	r.POST("/replications/check", replication.Check)
	r.POST("/replications", replication.Replicate)
	r.GET("/assignments/:id/substitutes", substitution.Candidates)
	r.POST("/assignments/:id/substitutes/:teacherId", substitution.Apply)
	r.POST("/assignments", assignments.Create)
	r.GET("/assignments/:id", assignments.Get)
	r.DELETE("/assignments/:id", assignments.Delete)
	r.GET("/teachers/:id/assignments", assignments.TeacherAssignments)
	r.GET("/calendar/exclusions", NewCalendarHandler(svc.exclusion).Exclusion)
	r.GET("/reports/teacher-hours", NewReportHandler(svc.report).TeacherHours)
	return r
}

func defaultServices() testServices {
	return testServices{
		replication:  &replicationServiceMock{result: &models.ReplicationResult{Created: []models.Assignment{}}},
		substitution: &substitutionServiceMock{},
		exclusion:    &exclusionServiceMock{},
		assignment:   &assignmentServiceMock{},
		report:       &reportServiceMock{},
	}
}

func doRequest(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
	Meta  map[string]any   `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

const replicationBody = `{"assignmentIds":["a1"],"from":"2024-09-09","to":"2024-09-29","removeExtraAssignments":true}`

func TestReplicationHandlerCheck(t *testing.T) {
	svc := defaultServices()
	r := buildTimetableRouter(svc, "s1")

	rec := doRequest(r, http.MethodPost, "/replications/check", replicationBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.replication.checked)
	assert.Equal(t, "s1", svc.replication.lastSchool)
	assert.Equal(t, []string{"a1"}, svc.replication.lastReq.AssignmentIDs)
	assert.True(t, svc.replication.lastReq.RemoveExtraAssignments)
}

func TestReplicationHandlerConflictIs409WithReport(t *testing.T) {
	svc := defaultServices()
	svc.replication.result = &models.ReplicationResult{
		Created: []models.Assignment{},
		Conflicts: models.ConflictReport{
			TeacherConflicts: []models.Assignment{{ID: "busy"}},
		},
	}
	r := buildTimetableRouter(svc, "s1")

	rec := doRequest(r, http.MethodPost, "/replications", replicationBody)
	require.Equal(t, http.StatusConflict, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrReplicationConflict.Code, env.Error.Code)

	var report models.ConflictReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	require.Len(t, report.TeacherConflicts, 1)
	assert.Equal(t, "busy", report.TeacherConflicts[0].ID)
}

func TestReplicationHandlerCreated(t *testing.T) {
	svc := defaultServices()
	svc.replication.result = &models.ReplicationResult{Created: []models.Assignment{{ID: "r1"}, {ID: "r2"}}, Deleted: 1}
	r := buildTimetableRouter(svc, "s1")

	rec := doRequest(r, http.MethodPost, "/replications", replicationBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	env := decode(t, rec)
	assert.EqualValues(t, 2, env.Meta["created"])
	assert.EqualValues(t, 1, env.Meta["deleted"])
}

func TestReplicationHandlerErrors(t *testing.T) {
	svc := defaultServices()
	r := buildTimetableRouter(svc, "s1")

	rec := doRequest(r, http.MethodPost, "/replications", `{"assignmentIds":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.replication.err = appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another school")
	rec = doRequest(r, http.MethodPost, "/replications", replicationBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	noSchool := buildTimetableRouter(defaultServices(), "")
	rec = doRequest(noSchool, http.MethodPost, "/replications/check", replicationBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubstitutionHandler(t *testing.T) {
	svc := defaultServices()
	svc.substitution.candidates = &models.SubstitutionCandidates{
		Available: []models.SubstituteCandidate{{Teacher: models.Teacher{ID: "T2"}, HasHourBefore: true, SubstitutionsMadeSoFar: 2}},
		Other:     []models.SubstituteCandidate{{Teacher: models.Teacher{ID: "T3"}}},
	}
	svc.substitution.result = &models.SubstitutionResult{Free: true}
	r := buildTimetableRouter(svc, "s1")

	rec := doRequest(r, http.MethodGet, "/assignments/a1/substitutes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var candidates map[string][]map[string]any
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &candidates))
	require.Len(t, candidates["available_teachers"], 1)
	assert.Len(t, candidates["other_teachers"], 1)
	available := candidates["available_teachers"][0]
	assert.Equal(t, "T2", available["id"])
	assert.Equal(t, true, available["has_hour_before"])
	assert.Equal(t, false, available["has_hour_after"])
	assert.EqualValues(t, 2, available["substitutions_made_so_far"])

	rec = doRequest(r, http.MethodPost, "/assignments/a1/substitutes/T3", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "T3", svc.substitution.lastTeacher)

	svc.substitution.err = appErrors.Clone(appErrors.ErrSubstitutionNotAllowed, "teacher not valid for substitution")
	rec = doRequest(r, http.MethodPost, "/assignments/a1/substitutes/TX", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalendarHandlerExclusion(t *testing.T) {
	svc := defaultServices()
	r := buildTimetableRouter(svc, "s1")

	rec := doRequest(r, http.MethodGet, "/calendar/exclusions?date=2024-12-25&schoolYearId=y1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-12-25", svc.exclusion.lastDate.Format("2006-01-02"))
	assert.Equal(t, "y1", svc.exclusion.lastYear)

	rec = doRequest(r, http.MethodGet, "/calendar/exclusions?date=25-12-2024", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignmentHandler(t *testing.T) {
	svc := defaultServices()
	r := buildTimetableRouter(svc, "s1")

	rec := doRequest(r, http.MethodPost, "/assignments", `{"teacherId":"T","courseId":"C1","subjectId":"math","date":"2024-09-02","hourStart":"09:00","hourEnd":"10:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(r, http.MethodGet, "/assignments/a1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodDelete, "/assignments/a1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "a1", svc.assignment.deleted)

	svc.assignment.err = appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	rec = doRequest(r, http.MethodGet, "/assignments/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssignmentHandlerTeacherAssignments(t *testing.T) {
	svc := defaultServices()
	r := buildTimetableRouter(svc, "s1")

	rec := doRequest(r, http.MethodGet, "/teachers/T/assignments?schoolYearId=y1&from=2024-09-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "y1", svc.assignment.lastQuery.SchoolYearID)
	assert.Equal(t, "2024-09-01", svc.assignment.lastQuery.From)

	env := decode(t, rec)
	assert.EqualValues(t, 1, env.Meta["count"])
	var views []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "a1", views[0]["id"])
	assert.Equal(t, "hs1", views[0]["hour_slot"])
	assert.Equal(t, []any{"hs1", "hs2"}, views[0]["conflicting_hour_slots"])

	svc.assignment.err = appErrors.Clone(appErrors.ErrForbidden, "teacher belongs to another school")
	rec = doRequest(r, http.MethodGet, "/teachers/TX/assignments?schoolYearId=y1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReportHandlerTeacherHours(t *testing.T) {
	svc := defaultServices()
	r := buildTimetableRouter(svc, "s1")

	rec := doRequest(r, http.MethodGet, "/reports/teacher-hours?schoolYearId=y1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "y1", svc.report.lastYear)
	assert.EqualValues(t, 1, decode(t, rec).Meta["count"])
}
