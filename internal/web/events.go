package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"calpin/internal/event"
	"calpin/internal/ics"
	"calpin/internal/model"
	"calpin/internal/validate"
)

// timeLayout is how instants are written in JSON responses.
const timeLayout = "2006-01-02T15:04:05.000Z"

type eventResponse struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Start     string   `json:"start"`
	End       *string  `json:"end"`
	AllDay    bool     `json:"allDay"`
	Location  *string  `json:"location"`
	Notes     *string  `json:"notes"`
	RRule     *string  `json:"rrule"`
	ExDates   []string `json:"exdates"`
	SeriesID  *int64   `json:"seriesId"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func newEventResponse(ev model.Event) eventResponse {
	out := eventResponse{
		ID:        ev.ID,
		Title:     ev.Title,
		Start:     formatTime(ev.Start),
		AllDay:    ev.AllDay,
		Location:  ev.Location,
		Notes:     ev.Notes,
		RRule:     ev.RRule,
		SeriesID:  ev.SeriesID,
		CreatedAt: formatTime(ev.CreatedAt),
		UpdatedAt: formatTime(ev.UpdatedAt),
	}
	if ev.End != nil {
		end := formatTime(*ev.End)
		out.End = &end
	}
	if ev.ExDates != nil {
		out.ExDates = make([]string, len(ev.ExDates))
		for i, t := range ev.ExDates {
			out.ExDates[i] = formatTime(t)
		}
	}
	return out
}

// pathID reads the :id parameter, rejecting anything but a positive integer.
func pathID(c *gin.Context) (int64, bool) {
	id, err := event.ValidateIdentifier(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return 0, false
	}
	return id, true
}

func (s *Server) listEvents(c *gin.Context) {
	events, err := s.events.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, newEventResponse(ev))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ev, err := s.events.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEventResponse(ev))
}

func (s *Server) createEvent(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	ev, err := s.events.Create(c.Request.Context(), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newEventResponse(ev))
}

func (s *Server) updateEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	ev, err := s.events.Update(c.Request.Context(), id, body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEventResponse(ev))
}

func (s *Server) deleteEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.events.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type importItem struct {
	UID        string              `json:"uid"`
	Event      *eventResponse      `json:"event,omitempty"`
	Error      string              `json:"error,omitempty"`
	Violations validate.Violations `json:"violations,omitempty"`
}

type importResponse struct {
	Total   int          `json:"total"`
	Created int          `json:"created"`
	Results []importItem `json:"results"`
}

// importEvents reads an iCalendar document from the body, or from the
// ?url= query parameter when URL import is enabled, and creates one event
// per VEVENT.
func (s *Server) importEvents(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		src  ics.Source
		body []byte
	)
	if raw := c.Query("url"); raw != "" {
		if s.fetcher == nil || !s.cfg.AllowURLImport {
			c.JSON(http.StatusForbidden, errorBody{Error: "import by URL is disabled"})
			return
		}
		src = ics.SourceFor(raw)
		if src.URL == "" {
			c.JSON(http.StatusBadRequest, errorBody{Error: "url must be http or https"})
			return
		}
		res, err := s.fetcher.Fetch(ctx, src)
		if err != nil {
			c.JSON(http.StatusBadGateway, errorBody{Error: "could not fetch calendar"})
			return
		}
		body = res.Body
	} else {
		var ok bool
		if body, ok = readBody(c); !ok {
			return
		}
	}

	parsed, err := ics.ParseICS(src, body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid iCalendar document"})
		return
	}

	results := ics.Import(ctx, s.events, parsed)
	out := importResponse{Total: len(results), Results: make([]importItem, 0, len(results))}
	for _, r := range results {
		item := importItem{UID: r.UID}
		if r.Err != nil {
			body := errorResponse(r.Err)
			item.Error = body.Error
			item.Violations = body.Violations
		} else {
			resp := newEventResponse(*r.Event)
			item.Event = &resp
			out.Created++
		}
		out.Results = append(out.Results, item)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) exportCalendar(c *gin.Context) {
	events, err := s.events.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	feed := ics.Export(events, ics.ExportOptions{Name: s.cfg.Export.Name})
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}
