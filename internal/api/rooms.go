package api

import (
	"net/http"
	"strconv"
	"time"
)

// GET /api/rooms
func (s *HTTPServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.catalog.ListActiveRooms(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

// GET /api/rooms/floors
func (s *HTTPServer) handleListFloors(w http.ResponseWriter, r *http.Request) {
	floors, err := s.catalog.ListFloors(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, floors)
}

// GET /api/rooms/floor/{floor}
func (s *HTTPServer) handleRoomsOnFloor(w http.ResponseWriter, r *http.Request) {
	floor, err := strconv.Atoi(r.PathValue("floor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid floor")
		return
	}

	rooms, err := s.catalog.ListRoomsOnFloor(r.Context(), floor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

// GET /api/rooms/{id}
func (s *HTTPServer) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	room, err := s.catalog.GetRoom(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if room == nil {
		writeError(w, http.StatusNotFound, "Room not found")
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// GET /api/rooms/{id}/bookings?date= and /api/rooms/{id}/availability?date=
func (s *HTTPServer) handleRoomResource(w http.ResponseWriter, r *http.Request) {
	resource := r.PathValue("resource")
	if resource != "bookings" && resource != "availability" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := s.dayParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if resource == "availability" {
		free, err := s.bookings.RoomAvailability(r.Context(), id, date)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"room_id": id,
			"date":    date.Format(dateLayout),
			"free":    free,
		})
		return
	}

	bookings, err := s.bookings.GetRoomBookings(r.Context(), id, date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// dayParam reads ?date=, defaulting to today. The calendar day is taken in the
// value's own zone for RFC3339 input and in the server zone for YYYY-MM-DD.
func (s *HTTPServer) dayParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return s.now().In(s.loc), nil
	}
	date, _, err := parseTime(raw, s.loc)
	return date, err
}
