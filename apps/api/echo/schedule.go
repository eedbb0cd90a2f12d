package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core/academic"
	"github.com/nojinx/ssm/core/audit"
)

type scheduleApi struct {
	svc      academic.ScheduleServiceInterface
	auditSvc *audit.Service
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := scheduleApi{
		svc:      opts.ScheduleSvc,
		auditSvc: opts.AuditSvc,
	}

	tg := g.Group("/timetable", jwt)
	tg.GET("", api.timetable)
	tg.POST("", api.addEntry, staffMiddleware(), adminMiddleware())
	tg.DELETE("/:id", api.deleteEntry, staffMiddleware(), adminMiddleware())

	eg := g.Group("/exams", jwt)
	eg.GET("", api.exams)
	eg.POST("", api.addExam, staffMiddleware(), adminMiddleware())
	eg.DELETE("/:id", api.deleteExam, staffMiddleware(), adminMiddleware())
}

// Handlers

func (api *scheduleApi) timetable(ctx echo.Context) error {
	semester, _ := strconv.Atoi(ctx.QueryParam("semester"))
	entries, err := api.svc.Timetable(ctx.Request().Context(), semester, ctx.QueryParam("staff_id"))
	if err != nil {
		return errors.Wrap(err, "querying timetable")
	}
	if entries == nil {
		entries = []academic.TimetableEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *scheduleApi) addEntry(ctx echo.Context) error {
	var data academic.NewTimetableEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTimetableEntry")
	}

	entry, err := api.svc.AddEntry(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding timetable entry")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionTimetable,
		ObjectType: "timetable",
		ObjectID:   entry.ID,
		Message:    fmt.Sprintf("scheduled %s on %s period %d (semester %d)", entry.SubjectCode, entry.Day, entry.Period, entry.Semester),
	})
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *scheduleApi) deleteEntry(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := api.svc.DeleteEntry(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting timetable entry")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionTimetable,
		ObjectType: "timetable",
		ObjectID:   id,
		Message:    "removed a timetable entry",
	})
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) exams(ctx echo.Context) error {
	semester, _ := strconv.Atoi(ctx.QueryParam("semester"))
	exams, err := api.svc.Exams(ctx.Request().Context(), semester)
	if err != nil {
		return errors.Wrap(err, "querying exams")
	}
	if exams == nil {
		exams = []academic.ExamSchedule{}
	}
	return ctx.JSON(http.StatusOK, exams)
}

func (api *scheduleApi) addExam(ctx echo.Context) error {
	var data academic.NewExamSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExamSchedule")
	}

	exam, err := api.svc.AddExam(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding exam")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionExamSchedule,
		ObjectType: "exam_schedule",
		ObjectID:   exam.ID,
		Message:    fmt.Sprintf("scheduled the %s exam on %s (%s)", exam.SubjectCode, exam.Date, exam.Session),
	})
	return ctx.JSON(http.StatusCreated, exam)
}

func (api *scheduleApi) deleteExam(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := api.svc.DeleteExam(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting exam")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionExamSchedule,
		ObjectType: "exam_schedule",
		ObjectID:   id,
		Message:    "removed an exam",
	})
	return ctx.NoContent(http.StatusNoContent)
}
