package session

import (
	"errors"
	"testing"

	"yeoneunal/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptySessionDegrades(t *testing.T) {
	s := New(store.NewMemoryStore(nil))

	_, ok := s.WardID()
	assert.False(t, ok)
	_, ok = s.RecordID()
	assert.False(t, ok)
	_, ok = s.SurveyAnswers()
	assert.False(t, ok)
	_, ok = s.WardProfile()
	assert.False(t, ok)
	_, ok = s.UserName()
	assert.False(t, ok)
	assert.False(t, s.HasCheckedReport())
	assert.False(t, s.StartAIAfterDiagnosis())
	assert.False(t, s.ReportBannerPending())
}

func TestMalformedValuesDegrade(t *testing.T) {
	kv := store.NewMemoryStore(map[string]string{
		KeyWardID:                "abc",
		KeyRecordID:              "-4",
		KeyCurrentReportRecordID: "12.5",
		KeySurveyAnswers:         "[1,2,",
		KeyHasCheckedReport:      "maybe",
		KeyWardProfile:           "{",
		KeyUserName:              "   ",
	})
	s := New(kv)

	_, ok := s.WardID()
	assert.False(t, ok, "non-numeric ward id")
	_, ok = s.RecordID()
	assert.False(t, ok, "negative record id")
	_, ok = s.CurrentReportRecordID()
	assert.False(t, ok, "fractional id")
	_, ok = s.SurveyAnswers()
	assert.False(t, ok, "truncated json")
	assert.False(t, s.HasCheckedReport())
	_, ok = s.WardProfile()
	assert.False(t, ok)
	_, ok = s.UserName()
	assert.False(t, ok, "blank name")

	require.NoError(t, kv.Set(KeySurveyAnswers, "[0,1,5]"))
	_, ok = s.SurveyAnswers()
	assert.False(t, ok, "out-of-range answer")
}

func TestRoundTrips(t *testing.T) {
	s := New(store.NewMemoryStore(nil))

	require.NoError(t, s.SelectWard(12, "김영희"))
	id, ok := s.WardID()
	require.True(t, ok)
	assert.Equal(t, int64(12), id)
	name, _ := s.UserName()
	assert.Equal(t, "김영희", name)

	require.NoError(t, s.SetSurveyAnswers([]int{0, 1, 2, 3, 4}))
	answers, ok := s.SurveyAnswers()
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, answers)

	raw, _, _ := s.Store().Get(KeySurveyAnswers)
	assert.Equal(t, "[0,1,2,3,4]", raw, "stored as a JSON array")

	profile := Profile{Name: "김영희", Gender: "female", BirthDate: "1950-04-02", Relationship: "parent", Age: 74}
	require.NoError(t, s.SetWardProfile(profile))
	got, ok := s.WardProfile()
	require.True(t, ok)
	assert.Equal(t, profile, got)

	require.NoError(t, s.SetStartAIAfterDiagnosis(true))
	assert.True(t, s.StartAIAfterDiagnosis())

	require.NoError(t, s.SetGuardianID(3))
	gid, ok := s.GuardianID()
	assert.True(t, ok)
	assert.Equal(t, int64(3), gid)
}

func TestRecordLifecycle(t *testing.T) {
	s := New(store.NewMemoryStore(nil))

	require.NoError(t, s.SetHasCheckedReport(true))
	require.NoError(t, s.BeginRecord(99))

	id, ok := s.RecordID()
	require.True(t, ok)
	assert.Equal(t, int64(99), id)
	assert.False(t, s.HasCheckedReport(), "a new record re-arms the banner")
	assert.True(t, s.ReportBannerPending())

	require.NoError(t, s.MarkReportSurfaced(99))
	assert.True(t, s.HasCheckedReport())
	assert.False(t, s.ReportBannerPending())
	cur, ok := s.CurrentReportRecordID()
	require.True(t, ok)
	assert.Equal(t, int64(99), cur)

	require.NoError(t, s.ClearRecordID())
	_, ok = s.RecordID()
	assert.False(t, ok)
}

func TestViewingOlderReportKeepsNewerBanner(t *testing.T) {
	s := New(store.NewMemoryStore(nil))
	require.NoError(t, s.BeginRecord(777))

	require.NoError(t, s.MarkReportSurfaced(501))
	assert.True(t, s.ReportBannerPending(), "record 777 has not been shown yet")
	cur, ok := s.CurrentReportRecordID()
	require.True(t, ok)
	assert.Equal(t, int64(501), cur)

	require.NoError(t, s.MarkReportSurfaced(777))
	assert.False(t, s.ReportBannerPending())
}

func TestSelectWardDropsOtherWardsRecord(t *testing.T) {
	s := New(store.NewMemoryStore(nil))
	require.NoError(t, s.SelectWard(3, "김영희"))
	require.NoError(t, s.BeginRecord(777))

	require.NoError(t, s.SelectWard(3, "김영희"))
	_, ok := s.RecordID()
	assert.True(t, ok, "reselecting the same ward keeps the record")

	require.NoError(t, s.SelectWard(4, "박철수"))
	_, ok = s.RecordID()
	assert.False(t, ok)
	assert.False(t, s.ReportBannerPending())
}

func TestRejectsNonPositiveIDs(t *testing.T) {
	s := New(store.NewMemoryStore(nil))
	assert.Error(t, s.SetWardID(0))
	assert.Error(t, s.SetRecordID(-1))
}

type failingStore struct{}

func (failingStore) Get(string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (failingStore) Set(string, string) error         { return errors.New("disk gone") }
func (failingStore) Remove(string) error              { return errors.New("disk gone") }

func TestStoreErrors(t *testing.T) {
	s := New(failingStore{})

	_, ok := s.WardID()
	assert.False(t, ok, "read errors degrade to absent")

	err := s.SetWardID(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wardId")
}

func TestSnapshot(t *testing.T) {
	s := New(store.NewMemoryStore(nil))
	require.NoError(t, s.SelectWard(5, "이순자"))
	require.NoError(t, s.BeginRecord(8))

	snap := s.Snapshot()
	assert.True(t, snap.HasWard)
	assert.Equal(t, int64(5), snap.WardID)
	assert.Equal(t, "이순자", snap.UserName)
	assert.True(t, snap.HasRecord)
	assert.Equal(t, int64(8), snap.RecordID)
	assert.False(t, snap.HasCurrentReport)
	assert.False(t, snap.HasSurvey)
}
