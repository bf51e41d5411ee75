// Package session is the typed view over the persistent key-value store.
//
// Every value is string-encoded. Readers parse defensively: a missing,
// unreadable or malformed value is reported as absent (ok == false) and
// logged, never returned as an error.
package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"yeoneunal/internal/logging"
	"yeoneunal/internal/store"
)

// Persisted keys.
const (
	KeyWardID                = "wardId"
	KeyUserName              = "userName"
	KeySurveyAnswers         = "surveyAnswers"
	KeyRecordID              = "recordId"
	KeyCurrentReportRecordID = "currentReportRecordId"
	KeyHasCheckedReport      = "hasCheckedReport"
	KeyStartAIAfterDiagnosis = "startAIAfterDiagnosis"
	KeyWardProfile           = "wardProfile"
	KeyGuardianID            = "guardianId"
)

// Keys lists every key the session owns, in display order.
var Keys = []string{
	KeyGuardianID,
	KeyWardID,
	KeyUserName,
	KeyWardProfile,
	KeySurveyAnswers,
	KeyStartAIAfterDiagnosis,
	KeyRecordID,
	KeyCurrentReportRecordID,
	KeyHasCheckedReport,
}

// Profile is the cached registration form of the active ward.
type Profile struct {
	Name         string `json:"name"`
	Gender       string `json:"gender"`
	BirthDate    string `json:"birthDate"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone,omitempty"`
	Age          int    `json:"age"`
}

// Session is the injected session context. It holds no state of its own;
// every read goes to the store so writes from other processes are visible.
type Session struct {
	store store.Store
	audit *logging.AuditLogger
}

// New wraps a store.
func New(s store.Store) *Session {
	return &Session{store: s, audit: logging.AuditRun("")}
}

// Store exposes the underlying store.
func (s *Session) Store() store.Store { return s.store }

func (s *Session) read(key string) (string, bool) {
	v, ok, err := s.store.Get(key)
	if err != nil {
		logging.SessionWarn("read %s failed: %v", key, err)
		return "", false
	}
	return v, ok
}

func (s *Session) write(key, value string) error {
	if err := s.store.Set(key, value); err != nil {
		return fmt.Errorf("session: set %s: %w", key, err)
	}
	logging.SessionDebug("set %s", key)
	s.audit.SessionWrite(key, false)
	return nil
}

func (s *Session) remove(key string) error {
	if err := s.store.Remove(key); err != nil {
		return fmt.Errorf("session: remove %s: %w", key, err)
	}
	logging.SessionDebug("removed %s", key)
	s.audit.SessionWrite(key, true)
	return nil
}

func (s *Session) readID(key string) (int64, bool) {
	raw, ok := s.read(key)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		logging.SessionWarn("ignoring malformed %s=%q", key, raw)
		return 0, false
	}
	return id, true
}

func (s *Session) readBool(key string) (bool, bool) {
	raw, ok := s.read(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		logging.SessionWarn("ignoring malformed %s=%q", key, raw)
		return false, false
	}
	return b, true
}

func (s *Session) writeID(key string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("session: %s must be positive, got %d", key, id)
	}
	return s.write(key, strconv.FormatInt(id, 10))
}

// WardID returns the active ward.
func (s *Session) WardID() (int64, bool) { return s.readID(KeyWardID) }

// SetWardID records the active ward.
func (s *Session) SetWardID(id int64) error { return s.writeID(KeyWardID, id) }

// GuardianID returns the logged-in guardian.
func (s *Session) GuardianID() (int64, bool) { return s.readID(KeyGuardianID) }

// SetGuardianID records the logged-in guardian.
func (s *Session) SetGuardianID(id int64) error { return s.writeID(KeyGuardianID, id) }

// UserName returns the display name of the active ward.
func (s *Session) UserName() (string, bool) {
	name, ok := s.read(KeyUserName)
	if !ok || strings.TrimSpace(name) == "" {
		return "", false
	}
	return name, true
}

// SetUserName records the display name.
func (s *Session) SetUserName(name string) error { return s.write(KeyUserName, name) }

// SurveyAnswers returns the stored answers. Any entry outside 0-4 makes
// the whole value unusable.
func (s *Session) SurveyAnswers() ([]int, bool) {
	raw, ok := s.read(KeySurveyAnswers)
	if !ok {
		return nil, false
	}
	var answers []int
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		logging.SessionWarn("ignoring malformed surveyAnswers: %v", err)
		return nil, false
	}
	for _, a := range answers {
		if a < 0 || a > 4 {
			logging.SessionWarn("ignoring surveyAnswers with out-of-range entry %d", a)
			return nil, false
		}
	}
	return answers, true
}

// SetSurveyAnswers stores the answers as a JSON array.
func (s *Session) SetSurveyAnswers(answers []int) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("session: encode surveyAnswers: %w", err)
	}
	return s.write(KeySurveyAnswers, string(raw))
}

// RecordID returns the record awaiting analysis.
func (s *Session) RecordID() (int64, bool) { return s.readID(KeyRecordID) }

// SetRecordID records the uploaded record.
func (s *Session) SetRecordID(id int64) error { return s.writeID(KeyRecordID, id) }

// ClearRecordID forgets the pending record.
func (s *Session) ClearRecordID() error { return s.remove(KeyRecordID) }

// CurrentReportRecordID returns the record whose report is being viewed.
func (s *Session) CurrentReportRecordID() (int64, bool) {
	return s.readID(KeyCurrentReportRecordID)
}

// SetCurrentReportRecordID selects the report to view.
func (s *Session) SetCurrentReportRecordID(id int64) error {
	return s.writeID(KeyCurrentReportRecordID, id)
}

// HasCheckedReport reports whether the latest report was already surfaced.
// Absent or malformed reads as false.
func (s *Session) HasCheckedReport() bool {
	b, _ := s.readBool(KeyHasCheckedReport)
	return b
}

// SetHasCheckedReport sets the report-surfaced flag.
func (s *Session) SetHasCheckedReport(v bool) error {
	return s.write(KeyHasCheckedReport, strconv.FormatBool(v))
}

// StartAIAfterDiagnosis reports whether the survey flow should continue
// straight into an upload.
func (s *Session) StartAIAfterDiagnosis() bool {
	b, _ := s.readBool(KeyStartAIAfterDiagnosis)
	return b
}

// SetStartAIAfterDiagnosis sets the continue-to-upload flag.
func (s *Session) SetStartAIAfterDiagnosis(v bool) error {
	return s.write(KeyStartAIAfterDiagnosis, strconv.FormatBool(v))
}

// WardProfile returns the cached registration form.
func (s *Session) WardProfile() (Profile, bool) {
	raw, ok := s.read(KeyWardProfile)
	if !ok {
		return Profile{}, false
	}
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		logging.SessionWarn("ignoring malformed wardProfile: %v", err)
		return Profile{}, false
	}
	return p, true
}

// SetWardProfile caches the registration form.
func (s *Session) SetWardProfile(p Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("session: encode wardProfile: %w", err)
	}
	return s.write(KeyWardProfile, string(raw))
}

// SelectWard makes a ward active, as choosing one from the ward list does.
// Switching to a different ward drops the pending record so Resume does not
// follow another ward's upload.
func (s *Session) SelectWard(id int64, name string) error {
	if prev, ok := s.WardID(); ok && prev != id {
		if err := s.ClearRecordID(); err != nil {
			return err
		}
	}
	if err := s.SetWardID(id); err != nil {
		return err
	}
	logging.Session("active ward %d", id)
	return s.SetUserName(name)
}

// BeginRecord persists a freshly uploaded record and re-arms the
// report banner.
func (s *Session) BeginRecord(recordID int64) error {
	if err := s.SetRecordID(recordID); err != nil {
		return err
	}
	return s.SetHasCheckedReport(false)
}

// MarkReportSurfaced records that the report for recordID has been shown.
// The banner is only cleared when recordID is the pending record; viewing
// an older report leaves a newer upload's banner armed.
func (s *Session) MarkReportSurfaced(recordID int64) error {
	if err := s.SetCurrentReportRecordID(recordID); err != nil {
		return err
	}
	if pending, ok := s.RecordID(); ok && pending != recordID {
		return nil
	}
	return s.SetHasCheckedReport(true)
}

// ReportBannerPending reports whether a record is waiting to be surfaced.
func (s *Session) ReportBannerPending() bool {
	_, ok := s.RecordID()
	return ok && !s.HasCheckedReport()
}

// Snapshot is a decoded copy of every session field.
type Snapshot struct {
	GuardianID            int64
	HasGuardian           bool
	WardID                int64
	HasWard               bool
	UserName              string
	Profile               Profile
	HasProfile            bool
	SurveyAnswers         []int
	HasSurvey             bool
	StartAIAfterDiagnosis bool
	RecordID              int64
	HasRecord             bool
	CurrentReportRecordID int64
	HasCurrentReport      bool
	HasCheckedReport      bool
}

// Snapshot decodes all fields at once.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	snap.GuardianID, snap.HasGuardian = s.GuardianID()
	snap.WardID, snap.HasWard = s.WardID()
	snap.UserName, _ = s.UserName()
	snap.Profile, snap.HasProfile = s.WardProfile()
	snap.SurveyAnswers, snap.HasSurvey = s.SurveyAnswers()
	snap.StartAIAfterDiagnosis = s.StartAIAfterDiagnosis()
	snap.RecordID, snap.HasRecord = s.RecordID()
	snap.CurrentReportRecordID, snap.HasCurrentReport = s.CurrentReportRecordID()
	snap.HasCheckedReport = s.HasCheckedReport()
	return snap
}
