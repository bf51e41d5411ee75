package workflow

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"yeoneunal/internal/api"
	"yeoneunal/internal/session"
	"yeoneunal/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend replays a fixed sequence of record statuses.
type fakeBackend struct {
	mu        sync.Mutex
	statuses  []api.RecordStatus
	pollErrs  map[int]error
	uploadID  int64
	uploadErr error
	reportErr error

	uploads       int
	polls         int
	reportFetches int
	lastWard      int64
}

func (f *fakeBackend) UploadAudio(ctx context.Context, wardID int64, up api.AudioUpload) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	f.lastWard = wardID
	if f.uploadErr != nil {
		return 0, f.uploadErr
	}
	return f.uploadID, nil
}

func (f *fakeBackend) GetRecord(ctx context.Context, recordID int64) (*api.AudioRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if err := f.pollErrs[f.polls]; err != nil {
		return nil, err
	}
	i := f.polls - 1
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return &api.AudioRecord{ID: recordID, Status: f.statuses[i]}, nil
}

func (f *fakeBackend) GetReportByRecord(ctx context.Context, recordID int64) (*api.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportFetches++
	if f.reportErr != nil {
		return nil, f.reportErr
	}
	return &api.Report{
		ID:       1,
		RecordID: recordID,
		Analysis: api.ParseAnalysis([]byte(`{"accuracy":[80,10,10],"risk":["뇌졸중"]}`)),
	}, nil
}

func (f *fakeBackend) counts() (uploads, polls, reports int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads, f.polls, f.reportFetches
}

func newSession(t *testing.T, wardID int64) *session.Session {
	t.Helper()
	s := session.New(store.NewMemoryStore(nil))
	if wardID > 0 {
		require.NoError(t, s.SelectWard(wardID, "김영희"))
	}
	return s
}

var fastPoll = PollConfig{Interval: time.Millisecond, MaxAttempts: 20}

func upload() api.AudioUpload {
	return api.AudioUpload{FileName: "call.wav", Content: strings.NewReader("RIFF")}
}

func TestRunReadyOnFourthPoll(t *testing.T) {
	fb := &fakeBackend{
		uploadID: 77,
		statuses: []api.RecordStatus{api.StatusPending, api.StatusPending, api.StatusProcessing, api.StatusCompleted},
	}
	sess := newSession(t, 3)
	require.NoError(t, sess.SetHasCheckedReport(true))

	var states []State
	eng := NewEngine(fb, sess, WithPollConfig(fastPoll), WithObserver(func(tr Transition) {
		if tr.From != tr.To {
			states = append(states, tr.To)
		}
	}))

	res, err := eng.Run(context.Background(), upload())
	require.NoError(t, err)
	assert.Equal(t, StateReady, res.State)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, int64(77), res.RecordID)
	require.NotNil(t, res.Report)
	assert.Equal(t, []State{StateUploading, StatePollingStatus, StateFetchingReport, StateReady}, states)

	uploads, polls, reports := fb.counts()
	assert.Equal(t, 1, uploads)
	assert.Equal(t, 4, polls)
	assert.Equal(t, 1, reports)
	assert.Equal(t, int64(3), fb.lastWard)

	rid, ok := sess.RecordID()
	assert.True(t, ok)
	assert.Equal(t, int64(77), rid)
	cur, ok := sess.CurrentReportRecordID()
	assert.True(t, ok)
	assert.Equal(t, int64(77), cur)
	assert.True(t, sess.HasCheckedReport())

	cached, ok := eng.Cache().Peek(77)
	assert.True(t, ok)
	assert.Same(t, res.Report, cached)
}

func TestRunFailedOnThirdPollStopsRequests(t *testing.T) {
	fb := &fakeBackend{
		uploadID: 5,
		statuses: []api.RecordStatus{api.StatusPending, api.StatusPending, api.StatusFailed, api.StatusCompleted},
	}
	eng := NewEngine(fb, newSession(t, 1), WithPollConfig(fastPoll))

	res, err := eng.Run(context.Background(), upload())
	assert.ErrorIs(t, err, ErrRecordFailed)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, 3, res.Attempts)

	time.Sleep(10 * time.Millisecond)
	_, polls, reports := fb.counts()
	assert.Equal(t, 3, polls)
	assert.Equal(t, 0, reports)
}

func TestRunErrorStatusFails(t *testing.T) {
	fb := &fakeBackend{uploadID: 5, statuses: []api.RecordStatus{api.StatusError}}
	res, err := NewEngine(fb, newSession(t, 1), WithPollConfig(fastPoll)).Run(context.Background(), upload())
	assert.ErrorIs(t, err, ErrRecordFailed)
	assert.Equal(t, StateFailed, res.State)
}

func TestRunTimesOut(t *testing.T) {
	fb := &fakeBackend{uploadID: 5, statuses: []api.RecordStatus{api.StatusProcessing}}
	cfg := PollConfig{Interval: time.Millisecond, MaxAttempts: 7}
	res, err := NewEngine(fb, newSession(t, 1), WithPollConfig(cfg)).Run(context.Background(), upload())

	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.Equal(t, StateTimedOut, res.State)
	assert.Equal(t, 7, res.Attempts)
	_, polls, reports := fb.counts()
	assert.Equal(t, 7, polls)
	assert.Equal(t, 0, reports)
}

func TestRunStatusFetchErrorsAreRetried(t *testing.T) {
	fb := &fakeBackend{
		uploadID: 5,
		statuses: []api.RecordStatus{api.StatusPending, api.StatusPending, api.StatusCompleted},
		pollErrs: map[int]error{1: errors.New("HTTP 502"), 2: errors.New("timeout")},
	}
	res, err := NewEngine(fb, newSession(t, 1), WithPollConfig(fastPoll)).Run(context.Background(), upload())
	require.NoError(t, err)
	assert.Equal(t, StateReady, res.State)
	assert.Equal(t, 3, res.Attempts)
}

// recordRejectingStore refuses to persist the record id.
type recordRejectingStore struct {
	*store.MemoryStore
}

func (s recordRejectingStore) Set(key, value string) error {
	if key == session.KeyRecordID {
		return errors.New("disk full")
	}
	return s.MemoryStore.Set(key, value)
}

func TestRunReportsUnsavedRecord(t *testing.T) {
	fb := &fakeBackend{uploadID: 77, statuses: []api.RecordStatus{api.StatusCompleted}}
	sess := session.New(recordRejectingStore{store.NewMemoryStore(nil)})
	require.NoError(t, sess.SelectWard(3, "김영희"))

	res, err := NewEngine(fb, sess, WithPollConfig(fastPoll)).Run(context.Background(), upload())
	require.NoError(t, err)
	assert.Equal(t, StateReady, res.State)
	require.Error(t, res.SessionErr)
	assert.Contains(t, res.SessionErr.Error(), "disk full")

	_, ok := sess.RecordID()
	assert.False(t, ok)
}

func TestRunWithoutWardSendsNothing(t *testing.T) {
	fb := &fakeBackend{uploadID: 5, statuses: []api.RecordStatus{api.StatusCompleted}}
	res, err := NewEngine(fb, newSession(t, 0), WithPollConfig(fastPoll)).Run(context.Background(), upload())
	assert.ErrorIs(t, err, ErrMissingWard)
	assert.Equal(t, StateIdle, res.State)
	uploads, polls, _ := fb.counts()
	assert.Zero(t, uploads)
	assert.Zero(t, polls)
}

func TestRunUploadFailure(t *testing.T) {
	uploadErr := &api.Error{Op: api.OpUploadAudio, Kind: api.KindHTTP, StatusCode: 413}
	fb := &fakeBackend{uploadErr: uploadErr}
	sess := newSession(t, 1)
	res, err := NewEngine(fb, sess, WithPollConfig(fastPoll)).Run(context.Background(), upload())

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 413, apiErr.StatusCode)
	assert.Equal(t, StateFailed, res.State)
	_, ok := sess.RecordID()
	assert.False(t, ok)
}

func TestRunReportFetchFailure(t *testing.T) {
	fb := &fakeBackend{uploadID: 5, statuses: []api.RecordStatus{api.StatusCompleted}, reportErr: errors.New("HTTP 500")}
	sess := newSession(t, 1)
	res, err := NewEngine(fb, sess, WithPollConfig(fastPoll)).Run(context.Background(), upload())
	assert.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.False(t, sess.HasCheckedReport())
}

func TestRunCanceledDuringPolling(t *testing.T) {
	fb := &fakeBackend{uploadID: 5, statuses: []api.RecordStatus{api.StatusProcessing}}
	eng := NewEngine(fb, newSession(t, 1), WithPollConfig(PollConfig{Interval: time.Hour, MaxAttempts: 3}))

	ctx, cancel := context.WithCancel(context.Background())
	eng.Observe(func(tr Transition) {
		if tr.To == StatePollingStatus && tr.From == StateUploading {
			cancel()
		}
	})

	start := time.Now()
	res, err := eng.Run(ctx, upload())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCanceled, res.State)
	assert.Less(t, time.Since(start), time.Second)
	_, polls, _ := fb.counts()
	assert.Zero(t, polls)
}

func TestResume(t *testing.T) {
	fb := &fakeBackend{statuses: []api.RecordStatus{api.StatusProcessing, api.StatusCompleted}}
	sess := newSession(t, 1)
	eng := NewEngine(fb, sess, WithPollConfig(fastPoll))

	_, err := eng.Resume(context.Background())
	assert.ErrorIs(t, err, ErrNoRecord)

	require.NoError(t, sess.BeginRecord(42))
	res, err := eng.Resume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, res.State)
	assert.Equal(t, int64(42), res.RecordID)
	assert.Equal(t, 2, res.Attempts)
	uploads, _, _ := fb.counts()
	assert.Zero(t, uploads)
}

// End to end against the real client: the same completed report fetched
// twice comes back byte for byte.
func TestRunAgainstHTTPBackend(t *testing.T) {
	reportBody := `{"data":{"id":9,"recordId":501,"analysisResult":"{\"accuracy\":[12.5,30,57.5],\"risk\":[\"정상\"],\"summary\":\"양호\"}","createdAt":"2024-03-01T10:00:00Z"}}`
	var mu sync.Mutex
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/audio-records/ward/3":
			io.WriteString(w, `{"data":{"recordId":501}}`)
		case r.URL.Path == "/audio-records/501":
			mu.Lock()
			polls++
			status := "processing"
			if polls >= 2 {
				status = "completed"
			}
			mu.Unlock()
			io.WriteString(w, `{"data":{"id":501,"status":"`+status+`"}}`)
		case r.URL.Path == "/reports/record/501":
			io.WriteString(w, reportBody)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL)
	res, err := NewEngine(client, newSession(t, 3), WithPollConfig(fastPoll)).Run(context.Background(), upload())
	require.NoError(t, err)
	require.Equal(t, StateReady, res.State)
	assert.Equal(t, 2, res.Attempts)

	again, err := client.GetReportByRecord(context.Background(), 501)
	require.NoError(t, err)
	assert.Equal(t, []byte(res.Report.Body), []byte(again.Body))
	assert.Equal(t, res.Report.Analysis, again.Analysis)
}
