package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/ekklesia/internal/app/auth"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/app/repositories"
	"github.com/yigit/ekklesia/internal/app/workflow"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/email"
	"github.com/yigit/ekklesia/internal/pkg/export"
	"github.com/yigit/ekklesia/internal/pkg/helpers"
	"github.com/yigit/ekklesia/internal/pkg/websocket"
)

// upcomingOccurrences is how many future dates of a recurring event are returned
const upcomingOccurrences = 5

// EventStore is the event persistence
type EventStore interface {
	Create(ctx context.Context, e *models.Event) error
	Update(ctx context.Context, e *models.Event) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	TransitionStatus(ctx context.Context, id int64, from []models.EventStatus, to models.EventStatus) (bool, error)
	SetImage(ctx context.Context, id int64, url *string) error
	List(ctx context.Context, filter repositories.EventFilter) ([]*models.Event, int64, error)
}

// RegistrationStore is the event registration persistence
type RegistrationStore interface {
	Create(ctx context.Context, reg *models.EventRegistration, check repositories.RegistrationCheck) error
	GetByID(ctx context.Context, id int64) (*models.EventRegistration, error)
	Get(ctx context.Context, eventID, profileID int64) (*models.EventRegistration, error)
	ListByEvent(ctx context.Context, eventID int64, status *models.RegistrationStatus) ([]*models.EventRegistration, error)
	ListByProfile(ctx context.Context, profileID int64) ([]*models.EventRegistration, error)
	UpdateStatus(ctx context.Context, id int64, from, to models.RegistrationStatus, decidedBy int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

// EventService manages events and their registration workflow
type EventService struct {
	events        EventStore
	registrations RegistrationStore
	images        ImageStore
	notifier      Notifier
	feed          FeedPublisher
	authz         *auth.AuthorizationService
	now           Clock
	baseURL       string
	logger        zerolog.Logger
}

// NewEventService creates a new EventService
func NewEventService(
	events EventStore,
	registrations RegistrationStore,
	images ImageStore,
	notifier Notifier,
	feed FeedPublisher,
	authz *auth.AuthorizationService,
	now Clock,
	baseURL string,
	logger zerolog.Logger,
) *EventService {
	return &EventService{
		events:        events,
		registrations: registrations,
		images:        images,
		notifier:      notifier,
		feed:          feed,
		authz:         authz,
		now:           now,
		baseURL:       baseURL,
		logger:        logger,
	}
}

func (s *EventService) eventURL(id int64) string {
	return fmt.Sprintf("%s/eventos/%d", s.baseURL, id)
}

func (s *EventService) eventData(e *models.Event) email.Data {
	data := email.Data{
		EventTitle: e.Title,
		EventDate:  displayDate(e.StartDate),
		URL:        s.eventURL(e.ID),
	}
	if e.Location != nil {
		data.Location = *e.Location
	}
	return data
}

func applyEventRequest(e *models.Event, req *dto.EventRequest) error {
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return apperrors.NewBadRequestError("endDate must not be before startDate")
	}
	e.Title = strings.TrimSpace(req.Title)
	e.Description = req.Description
	e.Location = req.Location
	e.StartDate = req.StartDate
	e.EndDate = req.EndDate
	e.MaxParticipants = req.MaxParticipants
	e.TeamIDs = req.TeamIDs
	if e.TeamIDs == nil {
		e.TeamIDs = []int64{}
	}

	e.Recurrence = nil
	if r := req.Recurrence; r != nil {
		if r.Until != nil && r.Until.Before(req.StartDate) {
			return apperrors.NewBadRequestError("recurrence.until must not be before startDate")
		}
		interval := r.Interval
		if interval == 0 {
			interval = 1
		}
		e.Recurrence = &models.Recurrence{Frequency: r.Frequency, Interval: interval, Until: r.Until}
	}
	return nil
}

// Create stores a draft event. Admin only.
func (s *EventService) Create(ctx context.Context, actor *auth.Actor, req *dto.EventRequest) (*models.Event, error) {
	if err := s.authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	createdBy := actor.ID()
	e := &models.Event{Status: models.EventDraft, CreatedBy: &createdBy}
	if err := applyEventRequest(e, req); err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, e); err != nil {
		s.logger.Error().Err(err).Msg("Failed to create event")
		return nil, err
	}
	return s.events.GetByID(ctx, e.ID)
}

// Update replaces the details of an event. Admin only.
func (s *EventService) Update(ctx context.Context, actor *auth.Actor, id int64, req *dto.EventRequest) (*models.Event, error) {
	if err := s.authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyEventRequest(e, req); err != nil {
		return nil, err
	}
	if err := s.events.Update(ctx, e); err != nil {
		return nil, err
	}
	return s.events.GetByID(ctx, id)
}

// Delete removes an event and its registrations. Admin only.
func (s *EventService) Delete(ctx context.Context, actor *auth.Actor, id int64) error {
	if err := s.authz.RequireAdmin(actor); err != nil {
		return err
	}
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}
	if e.ImageURL != nil {
		if err := s.images.Delete(ctx, *e.ImageURL); err != nil {
			s.logger.Warn().Err(err).Str("url", *e.ImageURL).Msg("Failed to delete event image")
		}
	}
	return nil
}

// Publish moves a draft to published and notifies subscribers once. Publishing a published
// event is a no-op; a cancelled event cannot be published.
func (s *EventService) Publish(ctx context.Context, actor *auth.Actor, id int64) (*models.Event, error) {
	if err := s.authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	changed, err := s.events.TransitionStatus(ctx, id, []models.EventStatus{models.EventDraft}, models.EventPublished)
	if err != nil {
		return nil, err
	}
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		if e.Status == models.EventPublished {
			return e, nil
		}
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidTransition, fmt.Sprintf("cannot publish a %s event", e.Status))
	}

	data := s.eventData(e)
	data.Kind = "evento"
	data.Title = e.Title
	if e.Description != nil {
		data.Summary = *e.Description
	}
	n, err := s.notifier.Broadcast(ctx, email.TemplateContentPublished, data)
	if err != nil {
		s.logger.Error().Err(err).Int64("eventID", id).Msg("Failed to dispatch publish notifications")
	}
	s.feed.Publish(websocket.Event{Type: websocket.TypeEventPublished, ID: e.ID, Title: e.Title, At: s.now().UTC()})
	s.logger.Info().Int64("eventID", id).Int("emails", n).Msg("Event published")
	return e, nil
}

// Cancel moves a draft or published event to cancelled. Admin only.
func (s *EventService) Cancel(ctx context.Context, actor *auth.Actor, id int64) (*models.Event, error) {
	if err := s.authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	changed, err := s.events.TransitionStatus(ctx, id,
		[]models.EventStatus{models.EventDraft, models.EventPublished}, models.EventCancelled)
	if err != nil {
		return nil, err
	}
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed && e.Status != models.EventCancelled {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidTransition, fmt.Sprintf("cannot cancel a %s event", e.Status))
	}
	return e, nil
}

// UploadImage replaces the image of an event. Admin only.
func (s *EventService) UploadImage(ctx context.Context, actor *auth.Actor, id int64, fileHeader *multipart.FileHeader) (*models.Event, error) {
	if err := s.authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.images.Save(ctx, fileHeader, "events")
	if err != nil {
		return nil, err
	}
	if err := s.events.SetImage(ctx, id, &url); err != nil {
		_ = s.images.Delete(ctx, url)
		return nil, err
	}
	if e.ImageURL != nil {
		if err := s.images.Delete(ctx, *e.ImageURL); err != nil {
			s.logger.Warn().Err(err).Str("url", *e.ImageURL).Msg("Failed to delete old event image")
		}
	}
	e.ImageURL = &url
	return e, nil
}

// List returns a page of events. Non-admins only see published events that have not ended
// unless they ask for past ones.
func (s *EventService) List(ctx context.Context, actor *auth.Actor, req *dto.EventFilterRequest, page helpers.Page) (*dto.PaginatedResponse, error) {
	filter := repositories.EventFilter{Search: req.Search, TeamID: req.TeamID, Page: page}
	if actor.IsAdmin() {
		if req.Status != "" {
			status := req.Status
			filter.Status = &status
		}
	} else {
		status := models.EventPublished
		filter.Status = &status
	}
	if !req.Past {
		now := s.now()
		filter.EndsAfter = &now
	}

	events, total, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedResponse{Items: events, Pagination: helpers.NewPaginationInfo(total, page)}, nil
}

// Get returns an event with its next occurrences. Unpublished events look missing to non-admins.
func (s *EventService) Get(ctx context.Context, actor *auth.Actor, id int64) (*dto.EventDetailResponse, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != models.EventPublished && !actor.IsAdmin() {
		return nil, apperrors.NewResourceNotFoundError("event not found")
	}
	resp := &dto.EventDetailResponse{Event: e}
	if e.Recurrence != nil {
		resp.NextOccurrences = e.Recurrence.Occurrences(e.StartDate, s.now(), upcomingOccurrences)
	}
	return resp, nil
}

// registrationCheck rejects registrations for closed, ended or full events
func (s *EventService) registrationCheck(e *models.Event) error {
	if e.Status != models.EventPublished {
		return apperrors.NewCustomError(apperrors.ErrEventNotOpen, "this event is not open for registration")
	}
	if e.HasEnded(s.now()) {
		return apperrors.NewCustomError(apperrors.ErrEventNotOpen, "this event has already ended")
	}
	if e.MaxParticipants != nil && e.RegistrationCount >= *e.MaxParticipants {
		return apperrors.NewCustomError(apperrors.ErrEventFull,
			fmt.Sprintf("this event is full (%d/%d)", e.RegistrationCount, *e.MaxParticipants))
	}
	return nil
}

// Register creates a pending registration of the actor
func (s *EventService) Register(ctx context.Context, actor *auth.Actor, eventID int64, req *dto.EventRegistrationRequest) (*models.EventRegistration, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}
	reg := &models.EventRegistration{EventID: eventID, ProfileID: actor.ID(), Notes: req.Notes}
	if err := s.registrations.Create(ctx, reg, s.registrationCheck); err != nil {
		if !apperrors.Is(err, apperrors.ErrDuplicateRegistration,
			apperrors.ErrEventFull, apperrors.ErrEventNotOpen, apperrors.ErrResourceNotFound) {
			s.logger.Error().Err(err).Int64("eventID", eventID).Int64("profileID", actor.ID()).Msg("Failed to register")
		}
		return nil, err
	}

	created, err := s.registrations.GetByID(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(email.TemplateRegistrationReceived, actor.Profile, s.eventData(reg.Event))
	return created, nil
}

// CancelRegistration deletes the actor's pending or approved registration
func (s *EventService) CancelRegistration(ctx context.Context, actor *auth.Actor, eventID int64) error {
	if actor == nil {
		return apperrors.ErrUnauthorized
	}
	reg, err := s.registrations.Get(ctx, eventID, actor.ID())
	if err != nil {
		return err
	}
	if reg.Status == models.RegistrationRejected {
		return apperrors.NewCustomError(apperrors.ErrInvalidTransition, "a rejected registration cannot be cancelled")
	}
	return s.registrations.Delete(ctx, reg.ID)
}

// ListRegistrations returns the registrations of an event. Admins and leaders of an associated team.
func (s *EventService) ListRegistrations(ctx context.Context, actor *auth.Actor, eventID int64, status models.RegistrationStatus) ([]*models.EventRegistration, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidateEventManager(ctx, actor, e); err != nil {
		return nil, err
	}
	var filter *models.RegistrationStatus
	if status != "" {
		filter = &status
	}
	return s.registrations.ListByEvent(ctx, eventID, filter)
}

// DecideRegistration approves or rejects a pending registration and emails the registrant
func (s *EventService) DecideRegistration(ctx context.Context, actor *auth.Actor, registrationID int64, action workflow.Action) (*models.EventRegistration, error) {
	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	e, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidateEventManager(ctx, actor, e); err != nil {
		return nil, err
	}

	next, err := workflow.Registrations.Next(reg.Status, action)
	if err != nil {
		return nil, err
	}
	at := s.now().UTC()
	if err := s.registrations.UpdateStatus(ctx, reg.ID, reg.Status, next, actor.ID(), at); err != nil {
		return nil, err
	}

	decidedBy := actor.ID()
	reg.Status = next
	reg.DecidedBy = &decidedBy
	reg.DecidedAt = &at

	tmpl := email.TemplateRegistrationApproved
	if next == models.RegistrationRejected {
		tmpl = email.TemplateRegistrationRejected
	}
	s.notifier.Notify(tmpl, reg.Profile, s.eventData(e))
	s.logger.Info().Int64("registrationID", reg.ID).Str("status", string(next)).Int64("decidedBy", decidedBy).Msg("Registration decided")
	return reg, nil
}

// MyRegistrations lists the registrations of the actor
func (s *EventService) MyRegistrations(ctx context.Context, actor *auth.Actor) ([]*models.EventRegistration, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return s.registrations.ListByProfile(ctx, actor.ID())
}

var registrationStatusLabels = map[models.RegistrationStatus]string{
	models.RegistrationPending:  "Pendiente",
	models.RegistrationApproved: "Aprobado",
	models.RegistrationRejected: "Rechazado",
}

// AttendeeRoster builds the attendee list of an event for export. Rejected registrations are left out.
func (s *EventService) AttendeeRoster(ctx context.Context, actor *auth.Actor, eventID int64) (export.Roster, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return export.Roster{}, err
	}
	if err := s.authz.ValidateEventManager(ctx, actor, e); err != nil {
		return export.Roster{}, err
	}
	regs, err := s.registrations.ListByEvent(ctx, eventID, nil)
	if err != nil {
		return export.Roster{}, err
	}

	roster := export.Roster{
		Title:       "Asistentes - " + e.Title,
		Columns:     []string{"Nombre", "Email", "Teléfono", "Estado", "Registrado"},
		GeneratedAt: s.now(),
	}
	for _, r := range regs {
		if r.Status == models.RegistrationRejected {
			continue
		}
		phone := ""
		if r.Profile.Phone != nil {
			phone = *r.Profile.Phone
		}
		roster.Rows = append(roster.Rows, []string{
			r.Profile.FullName(), r.Profile.Email, phone, registrationStatusLabels[r.Status], displayDate(r.CreatedAt),
		})
	}
	return roster, nil
}
