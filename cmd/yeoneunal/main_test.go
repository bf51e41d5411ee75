package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"yeoneunal/internal/session"
	"yeoneunal/internal/store"
	"yeoneunal/internal/ward"
	"yeoneunal/internal/workflow"

	"go.uber.org/zap"
)

// execute runs the root command with args against a fresh flag state and
// returns everything written to stdout and stderr.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	verbose, workspace, configPath, ephemeral, plainOutput = false, "", "", false, false
	timeout = time.Minute
	wardName, wardGender, wardBirthDate, wardRelationship, wardPhone, wardAnswers = "", "", "", "", "", ""
	diagnoseAnswers, diagnoseList, diagnoseStartAI = "", false, false
	uploadRecordedAt, uploadTUI = "", false
	historyWard = 0
	adminAnalysis, adminAnalysisFile, adminLimit = "", "", 0

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	teardown()
	logger = zap.NewNop()
	return buf.String(), err
}

// seedSession writes session values into the workspace's SQLite store.
func seedSession(t *testing.T, ws string, fn func(*session.Session)) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(ws, ".yeoneunal", "session.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	fn(session.New(st))
}

// backend is a scripted fake of the screening API.
type backend struct {
	mu          sync.Mutex
	statuses    []string
	polls       int
	wardBody    string
	recordsBody string
	reportsBody string
}

const sampleReport = `{"data":{"id":9,"recordId":501,"analysisResult":"{\"accuracy\":[82,30.5,10],\"asr\":\"여보세요\",\"risk\":[\"뇌졸중\"],\"explain\":[\"발음이 불분명합니다\"],\"summary\":\"뇌졸중 위험이 높습니다\"}","createdAt":"2024-03-20T10:00:00Z"}}`

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/wards":
		b.wardBody = readAll(r.Body)
		io.WriteString(w, `{"data":{"wardId":21}}`)
	case r.Method == http.MethodPut && r.URL.Path == "/wards/21/diagnosis":
		b.wardBody = readAll(r.Body)
		io.WriteString(w, `{"message":"ok"}`)
	case r.Method == http.MethodPost && r.URL.Path == "/audio-records/ward/3":
		io.WriteString(w, `{"data":{"recordId":501}}`)
	case r.URL.Path == "/audio-records/501":
		status := b.statuses[len(b.statuses)-1]
		if b.polls < len(b.statuses) {
			status = b.statuses[b.polls]
		}
		b.polls++
		io.WriteString(w, `{"data":{"id":501,"status":"`+status+`"}}`)
	case r.Method == http.MethodGet && r.URL.Path == "/wards/4":
		io.WriteString(w, `{"data":{"wardId":4,"name":"박철수","gender":"male","age":81}}`)
	case r.URL.Path == "/reports/record/501":
		io.WriteString(w, sampleReport)
	case r.URL.Path == "/audio-records/ward/3":
		io.WriteString(w, b.recordsBody)
	case r.URL.Path == "/reports/ward/3":
		io.WriteString(w, b.reportsBody)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"없는 리소스입니다"}`)
	}
}

func (b *backend) pollCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.polls
}

func (b *backend) lastWardBody() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wardBody
}

func (b *backend) restart(statuses ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses, b.polls = statuses, 0
}

func readAll(r io.Reader) string {
	b, _ := io.ReadAll(r)
	return string(b)
}

func startBackend(t *testing.T, b *backend) string {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	t.Setenv("YEONEUNAL_API_URL", srv.URL)
	t.Setenv("YEONEUNAL_POLL_INTERVAL", "1ms")
	t.Setenv("YEONEUNAL_POLL_MAX_ATTEMPTS", "5")
	return t.TempDir()
}

func writeRecording(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "call.wav")
	if err := os.WriteFile(path, []byte("RIFFfake"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWardRegisterPersistsSession(t *testing.T) {
	b := &backend{}
	ws := startBackend(t, b)

	out, err := execute(t, "--workspace", ws, "ward", "register",
		"--name", "김영희", "--gender", "female", "--birth-date", "1950-05-05",
		"--relationship", "parent", "--answers", "0,1,2,3,4")
	if err != nil {
		t.Fatalf("ward register: %v\n%s", err, out)
	}
	birth, _ := ward.Registration{BirthDate: "1950-05-05"}.Birth()
	age := ward.AgeAt(birth, time.Now())
	if !strings.Contains(b.lastWardBody(), `"age":`+strconv.Itoa(age)) {
		t.Errorf("request body missing derived age %d: %s", age, b.lastWardBody())
	}
	if !strings.Contains(out, "ward 21") {
		t.Errorf("unexpected output: %s", out)
	}

	out, err = execute(t, "--workspace", ws, "session", "show")
	if err != nil {
		t.Fatalf("session show: %v", err)
	}
	for _, want := range []string{"21", "김영희", "0,1,2,3,4", "parent"} {
		if !strings.Contains(out, want) {
			t.Errorf("session show missing %q:\n%s", want, out)
		}
	}
}

func TestWardRegisterValidationSendsNothing(t *testing.T) {
	b := &backend{}
	ws := startBackend(t, b)

	_, err := execute(t, "--workspace", ws, "ward", "register",
		"--name", "김영희", "--gender", "unknown", "--birth-date", "1950-05-05", "--relationship", "parent")
	if !errors.Is(err, ward.ErrInvalidGender) {
		t.Fatalf("expected ErrInvalidGender, got %v", err)
	}
	if body := b.lastWardBody(); body != "" {
		t.Errorf("no request expected, got %s", body)
	}
}

func TestDiagnoseSubmitsAnswers(t *testing.T) {
	b := &backend{}
	ws := startBackend(t, b)
	seedSession(t, ws, func(s *session.Session) { _ = s.SelectWard(21, "김영희") })

	answers := "0,1,2,3,4,0,1,2,3,4,0,1,2,3,4,0,1,2,3,4"
	out, err := execute(t, "--workspace", ws, "diagnose", "--answers", answers, "--start-ai")
	if err != nil {
		t.Fatalf("diagnose: %v\n%s", err, out)
	}
	if body := b.lastWardBody(); !strings.HasPrefix(body, "[") || !strings.Contains(body, ward.Questions[19]) {
		t.Errorf("expected v2 payload with all questions, got %s", body)
	}

	seedSession(t, ws, func(s *session.Session) {
		if !s.StartAIAfterDiagnosis() {
			t.Error("start-ai flag not persisted")
		}
		if got, _ := s.SurveyAnswers(); len(got) != 20 {
			t.Errorf("answers not persisted: %v", got)
		}
	})
}

func TestDiagnoseList(t *testing.T) {
	ws := startBackend(t, &backend{})
	out, err := execute(t, "--workspace", ws, "diagnose", "--list")
	if err != nil {
		t.Fatalf("diagnose --list: %v", err)
	}
	if !strings.Contains(out, ward.Questions[0]) || !strings.Contains(out, ward.Questions[19]) {
		t.Errorf("questions missing from output:\n%s", out)
	}
}

func TestUploadToReport(t *testing.T) {
	b := &backend{statuses: []string{"pending", "processing", "completed"}}
	ws := startBackend(t, b)
	seedSession(t, ws, func(s *session.Session) { _ = s.SelectWard(3, "김영희") })

	out, err := execute(t, "--workspace", ws, "--plain", "upload", writeRecording(t))
	if err != nil {
		t.Fatalf("upload: %v\n%s", err, out)
	}
	for _, want := range []string{"Report ready for record 501", "# 김영희님의 음성 분석 리포트", "| 뇌졸중 | 82% | 위험 |", "발음이 불분명합니다"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if b.pollCount() != 3 {
		t.Errorf("expected 3 status checks, got %d", b.pollCount())
	}

	seedSession(t, ws, func(s *session.Session) {
		if id, _ := s.CurrentReportRecordID(); id != 501 {
			t.Errorf("currentReportRecordId = %d", id)
		}
		if !s.HasCheckedReport() {
			t.Error("hasCheckedReport should be true")
		}
	})

	out, err = execute(t, "--workspace", ws, "report")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, "뇌졸중") {
		t.Errorf("rendered report missing disease:\n%s", out)
	}
}

func TestUploadTimeoutIsSoft(t *testing.T) {
	b := &backend{statuses: []string{"processing"}}
	ws := startBackend(t, b)
	t.Setenv("YEONEUNAL_POLL_MAX_ATTEMPTS", "3")
	seedSession(t, ws, func(s *session.Session) { _ = s.SelectWard(3, "김영희") })

	out, err := execute(t, "--workspace", ws, "upload", writeRecording(t))
	if err != nil {
		t.Fatalf("timed out run should not fail: %v", err)
	}
	if !strings.Contains(out, "yeoneunal resume") {
		t.Errorf("expected resume hint:\n%s", out)
	}
	if b.pollCount() != 3 {
		t.Errorf("expected 3 checks, got %d", b.pollCount())
	}

	b.restart("completed")
	out, err = execute(t, "--workspace", ws, "--plain", "resume")
	if err != nil {
		t.Fatalf("resume: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Report ready for record 501") {
		t.Errorf("resume output:\n%s", out)
	}
}

func TestUploadFailedStatus(t *testing.T) {
	ws := startBackend(t, &backend{statuses: []string{"pending", "failed"}})
	seedSession(t, ws, func(s *session.Session) { _ = s.SelectWard(3, "김영희") })

	_, err := execute(t, "--workspace", ws, "upload", writeRecording(t))
	if !errors.Is(err, workflow.ErrRecordFailed) {
		t.Fatalf("expected ErrRecordFailed, got %v", err)
	}
}

func TestUploadWithoutWard(t *testing.T) {
	ws := startBackend(t, &backend{statuses: []string{"completed"}})
	_, err := execute(t, "--workspace", ws, "upload", writeRecording(t))
	if !errors.Is(err, workflow.ErrMissingWard) {
		t.Fatalf("expected ErrMissingWard, got %v", err)
	}
}

func TestViewingOlderReportKeepsPendingBanner(t *testing.T) {
	ws := startBackend(t, &backend{})
	seedSession(t, ws, func(s *session.Session) {
		_ = s.SelectWard(3, "김영희")
		_ = s.BeginRecord(777)
	})

	out, err := execute(t, "--workspace", ws, "--plain", "report", "501")
	if err != nil {
		t.Fatalf("report: %v\n%s", err, out)
	}

	seedSession(t, ws, func(s *session.Session) {
		if id, _ := s.CurrentReportRecordID(); id != 501 {
			t.Errorf("currentReportRecordId = %d", id)
		}
		if !s.ReportBannerPending() {
			t.Error("banner for record 777 should still be pending")
		}
	})
}

func TestWardSelectDropsPendingRecord(t *testing.T) {
	ws := startBackend(t, &backend{})
	seedSession(t, ws, func(s *session.Session) {
		_ = s.SelectWard(3, "김영희")
		_ = s.BeginRecord(777)
	})

	out, err := execute(t, "--workspace", ws, "ward", "select", "4")
	if err != nil {
		t.Fatalf("ward select: %v\n%s", err, out)
	}

	seedSession(t, ws, func(s *session.Session) {
		if id, _ := s.WardID(); id != 4 {
			t.Errorf("wardId = %d", id)
		}
		if id, ok := s.RecordID(); ok {
			t.Errorf("record %d from ward 3 should have been dropped", id)
		}
	})
}

func TestReportNotFoundMessage(t *testing.T) {
	ws := startBackend(t, &backend{})
	_, err := execute(t, "--workspace", ws, "report", "777")
	if err == nil || !strings.Contains(err.Error(), "no report for record 777") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHistoryGroupsByMonth(t *testing.T) {
	b := &backend{
		recordsBody: `{"data":[{"id":501,"status":"completed","createdAt":[2024,3,20,10,0,0]},{"id":502,"status":"processing","createdAt":"2024-02-01T09:00:00"}]}`,
		reportsBody: `[{"id":9,"recordId":501,"analysisResult":{"risk":["뇌졸중"],"summary":"요약"}}]`,
	}
	ws := startBackend(t, b)
	seedSession(t, ws, func(s *session.Session) { _ = s.SelectWard(3, "김영희") })

	out, err := execute(t, "--workspace", ws, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	march := strings.Index(out, "2024년 3월")
	feb := strings.Index(out, "2024년 2월")
	if march < 0 || feb < 0 || march > feb {
		t.Errorf("expected March before February:\n%s", out)
	}
	for _, want := range []string{"위험질환: 뇌졸중", "요약", "분석 대기 중...", "processing"} {
		if !strings.Contains(out, want) {
			t.Errorf("history missing %q:\n%s", want, out)
		}
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	t.Setenv("YEONEUNAL_API_URL", "ftp://example.com")
	_, err := execute(t, "--workspace", t.TempDir(), "session", "show")
	if err == nil || !strings.Contains(err.Error(), "invalid api base URL") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestEphemeralSessionIsNotPersisted(t *testing.T) {
	ws := startBackend(t, &backend{})
	if _, err := execute(t, "--workspace", ws, "--ephemeral", "session", "show"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(ws, ".yeoneunal", "session.db")); err == nil {
		t.Error("ephemeral run created a session database")
	}
}

func TestParseAnswers(t *testing.T) {
	got, err := parseAnswers(" 0, 1,2 3 ,4")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 || got[4] != 4 {
		t.Errorf("parseAnswers = %v", got)
	}
	if _, err := parseAnswers("1,x"); err == nil {
		t.Error("expected error for non-numeric answer")
	}
	if _, err := parseAnswers(" , "); err == nil {
		t.Error("expected error for empty answers")
	}
}

func TestAnalysisInput(t *testing.T) {
	adminAnalysisFile = ""
	adminAnalysis = `{"accuracy":[1,2,3]}`
	if _, err := analysisInput(); err != nil {
		t.Errorf("valid analysis rejected: %v", err)
	}
	adminAnalysis = "plain text"
	if _, err := analysisInput(); err == nil {
		t.Error("expected non-object analysis to be rejected")
	}
	adminAnalysis = ""
}
