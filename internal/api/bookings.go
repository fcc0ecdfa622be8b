package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"roombook/internal/audit"
	"roombook/internal/service"
)

// CreateBookingRequest is the body of POST /api/bookings.
type CreateBookingRequest struct {
	RoomID    int64  `json:"roomId"`
	UserName  string `json:"userName"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// DeleteBookingResponse is returned when a booking was removed.
type DeleteBookingResponse struct {
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}

// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var body CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if body.RoomID == 0 || body.UserName == "" || body.StartTime == "" || body.EndTime == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	start, _, err := parseTime(body.StartTime, s.loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Field: "startTime"})
		return
	}
	end, _, err := parseTime(body.EndTime, s.loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Field: "endTime"})
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), service.CreateBookingRequest{
		RoomID:    body.RoomID,
		UserName:  body.UserName,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

// GET /api/admin/bookings
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bookings.ListAllActiveBookings(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// GET /api/admin/bookings/stats
func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.bookings.ComputeStats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /api/admin/bookings/range?start=&end=
// A date-only end covers that whole day.
func (s *HTTPServer) handleBookingsInRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("start") == "" || q.Get("end") == "" {
		writeError(w, http.StatusBadRequest, "Start and end dates required")
		return
	}

	from, _, err := parseTime(q.Get("start"), s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, dateOnly, err := parseTime(q.Get("end"), s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if dateOnly {
		to = to.AddDate(0, 0, 1).Add(-time.Millisecond)
	}

	bookings, err := s.bookings.ListBookingsInRange(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// GET /api/admin/bookings/export
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusNotFound, "export disabled")
		return
	}

	var buf bytes.Buffer
	if _, err := s.exporter.Export(r.Context(), &buf); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+audit.Filename(s.now().In(s.loc))+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// DELETE /api/admin/bookings/{id}
func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := s.bookings.DeleteBooking(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Booking not found")
		return
	}

	writeJSON(w, http.StatusOK, DeleteBookingResponse{Deleted: true, Message: "Booking deleted successfully"})
}
