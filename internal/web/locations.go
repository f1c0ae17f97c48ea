package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"calpin/internal/model"
)

type locationResponse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Center    [2]float64 `json:"center"`
	UserID    int64      `json:"userId"`
	Date      string     `json:"date"`
	CreatedAt string     `json:"createdAt"`
	UpdatedAt string     `json:"updatedAt"`
}

func newLocationResponse(loc model.Location) locationResponse {
	return locationResponse{
		ID:        loc.ID,
		Name:      loc.Name,
		Center:    loc.Center,
		UserID:    loc.UserID,
		Date:      formatTime(loc.Date),
		CreatedAt: formatTime(loc.CreatedAt),
		UpdatedAt: formatTime(loc.UpdatedAt),
	}
}

func (s *Server) listLocations(c *gin.Context) {
	locs, err := s.locations.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]locationResponse, 0, len(locs))
	for _, loc := range locs {
		out = append(out, newLocationResponse(loc))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getLocation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	loc, err := s.locations.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newLocationResponse(loc))
}

func (s *Server) createLocation(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	loc, err := s.locations.Create(c.Request.Context(), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newLocationResponse(loc))
}

func (s *Server) updateLocation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	loc, err := s.locations.Update(c.Request.Context(), id, body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newLocationResponse(loc))
}

func (s *Server) deleteLocation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.locations.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
