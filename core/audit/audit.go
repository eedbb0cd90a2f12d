package audit

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core"
)

// Actions
const (
	ActionLogin          = "login"
	ActionLoginFailed    = "login_failed"
	ActionLogout         = "logout"
	ActionPasswordChange = "password_change"
	ActionStaffCreate    = "staff_create"
	ActionStaffUpdate    = "staff_update"
	ActionStaffDelete    = "staff_delete"
	ActionStudentUpdate  = "student_update"
	ActionPromote        = "student_promote"
	ActionGenerate       = "student_generate"
	ActionSubjectCreate  = "subject_create"
	ActionAttendance     = "attendance_record"
	ActionMarks          = "marks_record"
	ActionTimetable      = "timetable_update"
	ActionExamSchedule   = "exam_schedule_update"
	ActionLeaveApply     = "leave_apply"
	ActionLeaveReview    = "leave_review"
	ActionLeaveWithdraw  = "leave_withdraw"
	ActionNewsCreate     = "news_create"
	ActionNewsUpdate     = "news_update"
	ActionNewsDelete     = "news_delete"
	ActionNewsExpire     = "news_expire"
)

// Actor types
const (
	ActorStaff     = "staff"
	ActorStudent   = "student"
	ActorAnonymous = "anonymous"
	ActorSystem    = "system"
)

// PageSize is the number of entries per Query page.
const PageSize = 50

// maxPage keeps the page offset from overflowing.
const maxPage = math.MaxInt32 / PageSize

var (
	// errors
	ErrNotFound = errors.New("audit log entry not found")

	NowFunc = time.Now // mockable
)

// Entry is an append-only audit log record.
type Entry struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"` // UTC
	Action     string          `json:"action"`
	ActorType  string          `json:"actor_type"`
	ActorID    string          `json:"actor_id"`
	ActorName  string          `json:"actor_name"`
	IPAddress  string          `json:"ip_address"`
	UserAgent  string          `json:"user_agent"`
	ObjectType string          `json:"object_type"`
	ObjectID   string          `json:"object_id"`
	Message    string          `json:"message"`
	ExtraData  json.RawMessage `json:"extra_data"`
}

// MessageShort returns the first 60 characters of the message, or "—" when it is empty.
func (e Entry) MessageShort() string {
	if e.Message == "" {
		return "—"
	}
	return core.Truncate(e.Message, 60)
}

func (e Entry) MarshalJSON() ([]byte, error) {
	type entry Entry
	if e.ExtraData == nil {
		e.ExtraData = json.RawMessage("{}")
	}
	return json.Marshal(struct {
		entry
		MessageShort string `json:"message_short"`
	}{entry(e), e.MessageShort()})
}

// Actor is who performed an audited action, and from where.
type Actor struct {
	Type      string
	ID        string
	Name      string
	IPAddress string
	UserAgent string
}

// Event describes an audited action.
type Event struct {
	Action     string
	ObjectType string
	ObjectID   string
	Message    string
	Extra      map[string]interface{}
}

type QueryFilter struct {
	Action    string    `query:"action"`
	ActorType string    `query:"actor_type"`
	Search    string    `query:"search"` // actor id|name, message, object type, ip address
	From      core.Date `query:"from"`
	To        core.Date `query:"to"` // inclusive
	Page      int       `query:"page"`
}

func (qf *QueryFilter) Clean() {
	qf.Action = core.CleanString(qf.Action, true /* lower */)
	qf.ActorType = core.CleanString(qf.ActorType, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
	if qf.Page < 1 {
		qf.Page = 1
	}
	if qf.Page > maxPage {
		qf.Page = maxPage
	}
}

type Page struct {
	Count   int     `json:"count"`
	Page    int     `json:"page"`
	Results []Entry `json:"results"`
}

type Repository interface {
	Insert(ctx context.Context, e Entry) error
	// Query returns a page of entries matching filter ordered by -timestamp, and the total count.
	Query(ctx context.Context, filter QueryFilter, limit, offset int) ([]Entry, int, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo   Repository
	logger core.Logger
}

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record saves an audit log entry. Failures are logged, never returned.
func (svc *Service) Record(ctx context.Context, actor Actor, ev Event) {
	if actor.Type == "" {
		actor.Type = ActorAnonymous
	}
	e := Entry{
		ID:         uuid.New().String(),
		Timestamp:  NowFunc().UTC(),
		Action:     ev.Action,
		ActorType:  actor.Type,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
		ObjectType: ev.ObjectType,
		ObjectID:   ev.ObjectID,
		Message:    ev.Message,
		ExtraData:  json.RawMessage("{}"),
	}
	if len(ev.Extra) > 0 {
		data, err := json.Marshal(ev.Extra)
		if err != nil {
			svc.logger.Error("encoding audit extra data", errors.Wrap(err, ev.Action))
		} else {
			e.ExtraData = data
		}
	}
	if err := svc.repo.Insert(ctx, e); err != nil {
		svc.logger.Error("recording audit log", errors.Wrap(err, ev.Action), core.Person{ID: actor.ID, Username: actor.Name})
	}
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) (Page, error) {
	filter.Clean()
	entries, count, err := svc.repo.Query(ctx, filter, PageSize, (filter.Page-1)*PageSize)
	if err != nil {
		return Page{}, errors.Wrap(err, "querying audit logs")
	}
	if entries == nil {
		entries = []Entry{}
	}
	return Page{Count: count, Page: filter.Page, Results: entries}, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return svc.repo.Delete(ctx, id)
}
