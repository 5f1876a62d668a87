package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/agbona24/Cusomer-care-support-agent/internal/appointments"
	"github.com/agbona24/Cusomer-care-support-agent/internal/observability/metrics"
	"github.com/agbona24/Cusomer-care-support-agent/internal/patients"
	"github.com/agbona24/Cusomer-care-support-agent/pkg/logging"
)

// Tool names the model is allowed to call.
const (
	toolCheckAvailability      = "check_availability"
	toolBookAppointment        = "book_appointment"
	toolGetPatientAppointments = "get_patient_appointments"
	toolRescheduleAppointment  = "reschedule_appointment"
	toolCancelAppointment      = "cancel_appointment"
)

// chatTools is the function schema advertised to the model on every turn.
var chatTools = []openai.Tool{
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolCheckAvailability,
			Description: "Check available appointment slots for a specific date",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"date": {Type: jsonschema.String, Description: "The date to check in YYYY-MM-DD format"},
				},
				Required: []string{"date"},
			},
		},
	},
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolBookAppointment,
			Description: "Book a new appointment for the patient",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"patient_name": {Type: jsonschema.String, Description: "Full name of the patient"},
					"phone_number": {Type: jsonschema.String, Description: "Patient phone number"},
					"date":         {Type: jsonschema.String, Description: "Appointment date in YYYY-MM-DD format"},
					"time":         {Type: jsonschema.String, Description: "Appointment time in HH:MM format (24-hour)"},
					"service_type": {
						Type:        jsonschema.String,
						Description: "Type of dental service needed",
						Enum:        appointments.ServiceTypes,
					},
				},
				Required: []string{"phone_number", "date", "time", "service_type"},
			},
		},
	},
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolGetPatientAppointments,
			Description: "Get upcoming appointments for a patient by phone number",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"phone_number": {Type: jsonschema.String, Description: "Patient phone number"},
				},
				Required: []string{"phone_number"},
			},
		},
	},
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolRescheduleAppointment,
			Description: "Reschedule an existing appointment to a new date/time",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"appointment_id": {Type: jsonschema.Number, Description: "ID of the appointment to reschedule"},
					"new_date":       {Type: jsonschema.String, Description: "New appointment date in YYYY-MM-DD format"},
					"new_time":       {Type: jsonschema.String, Description: "New appointment time in HH:MM format"},
				},
				Required: []string{"appointment_id", "new_date", "new_time"},
			},
		},
	},
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolCancelAppointment,
			Description: "Cancel an existing appointment",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"appointment_id": {Type: jsonschema.Number, Description: "ID of the appointment to cancel"},
				},
				Required: []string{"appointment_id"},
			},
		},
	},
}

// ChatTools returns the tool schema advertised to the model.
func ChatTools() []openai.Tool {
	return chatTools
}

// Dispatcher executes model tool calls against the scheduling and patient
// services. Every outcome, success or failure, is rendered as a plain
// sentence for the model to relay; a tool call never fails the turn.
type Dispatcher struct {
	scheduler *appointments.Service
	patients  patients.Repository
	logger    *logging.Logger
	metrics   *metrics.VoiceMetrics
	tracer    trace.Tracer
}

// NewDispatcher constructs a tool dispatcher.
func NewDispatcher(scheduler *appointments.Service, patientRepo patients.Repository, logger *logging.Logger, voiceMetrics *metrics.VoiceMetrics) *Dispatcher {
	if scheduler == nil {
		panic("conversation: scheduler required")
	}
	if patientRepo == nil {
		panic("conversation: patient repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		scheduler: scheduler,
		patients:  patientRepo,
		logger:    logger,
		metrics:   voiceMetrics,
		tracer:    otel.Tracer("clinic.internal.conversation.tools"),
	}
}

// Execute runs one tool call and returns the textual result for the model.
func (d *Dispatcher) Execute(ctx context.Context, name, rawArgs, callerPhone string) string {
	ctx, span := d.tracer.Start(ctx, "conversation.tool")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.tool", name))

	d.logger.Info("tool call", "tool", name, "args", rawArgs)

	result, err := d.execute(ctx, name, rawArgs, callerPhone)
	if err != nil {
		span.RecordError(err)
		d.metrics.ObserveToolCall(name, "error")
		d.logger.Warn("tool call failed", "tool", name, "error", err)
		return toolErrorMessage(err)
	}
	d.metrics.ObserveToolCall(name, "ok")
	return result
}

func (d *Dispatcher) execute(ctx context.Context, name, rawArgs, callerPhone string) (string, error) {
	switch name {
	case toolCheckAvailability:
		var args struct {
			Date string `json:"date"`
		}
		if err := decodeArgs(rawArgs, &args); err != nil {
			return "", err
		}
		return d.checkAvailability(ctx, args.Date)

	case toolBookAppointment:
		var args struct {
			PatientName string `json:"patient_name"`
			PhoneNumber string `json:"phone_number"`
			Date        string `json:"date"`
			Time        string `json:"time"`
			ServiceType string `json:"service_type"`
		}
		if err := decodeArgs(rawArgs, &args); err != nil {
			return "", err
		}
		phone := args.PhoneNumber
		if phone == "" {
			phone = callerPhone
		}
		return d.book(ctx, phone, args.PatientName, args.Date, args.Time, args.ServiceType)

	case toolGetPatientAppointments:
		var args struct {
			PhoneNumber string `json:"phone_number"`
		}
		if err := decodeArgs(rawArgs, &args); err != nil {
			return "", err
		}
		phone := args.PhoneNumber
		if phone == "" {
			phone = callerPhone
		}
		return d.listUpcoming(ctx, phone)

	case toolRescheduleAppointment:
		var args struct {
			AppointmentID int64  `json:"appointment_id"`
			NewDate       string `json:"new_date"`
			NewTime       string `json:"new_time"`
		}
		if err := decodeArgs(rawArgs, &args); err != nil {
			return "", err
		}
		updated, err := d.scheduler.Reschedule(ctx, args.AppointmentID, args.NewDate, args.NewTime)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Appointment #%d rescheduled to %s at %s.", updated.ID, args.NewDate, args.NewTime), nil

	case toolCancelAppointment:
		var args struct {
			AppointmentID int64 `json:"appointment_id"`
		}
		if err := decodeArgs(rawArgs, &args); err != nil {
			return "", err
		}
		if _, err := d.scheduler.Cancel(ctx, args.AppointmentID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Appointment #%d has been cancelled.", args.AppointmentID), nil

	default:
		// The model occasionally hallucinates a tool name. Answer softly
		// so the conversation keeps moving instead of dropping the call.
		d.logger.Warn("unknown tool requested", "tool", name)
		return fmt.Sprintf("Unknown function: %s", name), nil
	}
}

func (d *Dispatcher) checkAvailability(ctx context.Context, date string) (string, error) {
	slots, err := d.scheduler.AvailableSlots(ctx, date)
	if err != nil {
		return "", err
	}
	if len(slots) == 0 {
		if day, parseErr := appointments.ParseDate(date); parseErr == nil && appointments.ClinicClosed(day) {
			return fmt.Sprintf("Sorry, we're closed on %s (weekends). We're open Monday through Thursday.", date), nil
		}
		return fmt.Sprintf("No available slots on %s. All times are booked.", date), nil
	}
	return fmt.Sprintf("Available times on %s: %s", date, strings.Join(slots, ", ")), nil
}

func (d *Dispatcher) book(ctx context.Context, phone, patientName, date, slotTime, serviceType string) (string, error) {
	identity := splitName(patientName)
	patient, err := d.patients.FindOrCreate(ctx, phone, identity)
	if err != nil {
		return "", err
	}

	req := appointments.BookingRequest{
		PhoneNumber: phone,
		Date:        date,
		Time:        slotTime,
		ServiceType: serviceType,
		PatientID:   &patient.ID,
	}
	booked, err := d.scheduler.Book(ctx, req)
	if err != nil {
		d.metrics.ObserveBooking("rejected")
		return "", err
	}
	d.metrics.ObserveBooking("booked")
	return fmt.Sprintf("Appointment booked successfully! Confirmation #%d for %s on %s at %s.",
		booked.ID, serviceType, date, slotTime), nil
}

func (d *Dispatcher) listUpcoming(ctx context.Context, phone string) (string, error) {
	appts, err := d.scheduler.Upcoming(ctx, phone)
	if err != nil {
		return "", err
	}
	if len(appts) == 0 {
		return "No upcoming appointments found for this phone number.", nil
	}
	parts := make([]string, 0, len(appts))
	for _, a := range appts {
		parts = append(parts, fmt.Sprintf("ID #%d: %s on %s at %s", a.ID, a.ServiceType, a.Date, a.Time))
	}
	return fmt.Sprintf("Found %d upcoming appointment(s): %s", len(appts), strings.Join(parts, "; ")), nil
}

func decodeArgs(raw string, dst any) error {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("conversation: bad tool arguments: %w", err)
	}
	return nil
}

// splitName breaks a spoken full name into first/last on the first space.
func splitName(full string) patients.Identity {
	full = strings.TrimSpace(full)
	if full == "" {
		return patients.Identity{}
	}
	first, rest, _ := strings.Cut(full, " ")
	return patients.Identity{FirstName: first, LastName: strings.TrimSpace(rest)}
}

// toolErrorMessage maps a store/service error to a sentence the model can
// relay to the caller.
func toolErrorMessage(err error) string {
	switch {
	case errors.Is(err, appointments.ErrSlotUnavailable):
		return "That time slot is not available. Please offer the caller a different time."
	case errors.Is(err, appointments.ErrAppointmentNotFound):
		return "No appointment with that ID was found."
	case errors.Is(err, appointments.ErrInvalidInput):
		return fmt.Sprintf("Error: %s", err.Error())
	case errors.Is(err, patients.ErrInvalidPhone):
		return "Error: the phone number is missing or invalid."
	default:
		return fmt.Sprintf("Error: %s", err.Error())
	}
}
