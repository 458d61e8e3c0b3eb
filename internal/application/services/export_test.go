package services

import "time"

// SetAppointmentAsync replaces the background runner so tests can wait on CRM calls
func SetAppointmentAsync(s *AppointmentService, run func(func())) {
	s.async = run
}

// SetResolverClock pins the clock of a TodayResolver
func SetResolverClock(r *TodayResolver, now func() time.Time) {
	r.now = now
}
