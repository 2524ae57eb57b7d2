package notifications

import (
	"fmt"
	"time"

	"stylo/pkg/locale"
)

type Kind string

const (
	KindOTP          Kind = "otp"
	KindConfirmation Kind = "confirmation"
	KindReminder     Kind = "reminder"
)

// Message is a rendered WhatsApp text. Ref is an opaque correlation id used in
// logs, never the code itself.
type Message struct {
	Kind Kind
	To   string
	Body string
	Ref  string
}

// AppointmentDetails carries what confirmation and reminder texts show.
type AppointmentDetails struct {
	AppointmentID string
	ClientName    string
	Phone         string
	ServiceName   string
	StaffName     string
	BranchName    string
	Start         time.Time
	Location      *time.Location
}

func OTPMessage(phone, code string, ttl time.Duration, ref string) Message {
	minutes := int(ttl.Minutes())
	body := fmt.Sprintf("Tu código de verificación Stylo es: %s. Válido por %d minutos.", code, minutes)
	if locale.ForPhone(phone).Language == locale.LangEnglish {
		body = fmt.Sprintf("Your Stylo verification code is: %s. Valid for %d minutes.", code, minutes)
	}
	return Message{Kind: KindOTP, To: phone, Body: body, Ref: ref}
}

func ConfirmationMessage(d AppointmentDetails) Message {
	lang := locale.ForPhone(d.Phone).Language
	when := locale.FormatAppointmentTime(d.Start, d.Location, lang)

	body := fmt.Sprintf("¡Hola %s!\n\nTu cita ha sido confirmada:\nServicio: %s\nProfesional: %s\nFecha: %s\nLocal: %s\n\n¡Te esperamos!",
		d.ClientName, d.ServiceName, d.StaffName, when, d.BranchName)
	if lang == locale.LangEnglish {
		body = fmt.Sprintf("Hi %s!\n\nYour appointment is confirmed:\nService: %s\nWith: %s\nWhen: %s\nWhere: %s\n\nSee you soon!",
			d.ClientName, d.ServiceName, d.StaffName, when, d.BranchName)
	}
	return Message{Kind: KindConfirmation, To: d.Phone, Body: body, Ref: d.AppointmentID}
}

func ReminderMessage(d AppointmentDetails) Message {
	lang := locale.ForPhone(d.Phone).Language
	when := locale.FormatAppointmentTime(d.Start, d.Location, lang)

	body := fmt.Sprintf("¡Hola %s!\n\nTe recordamos tu cita para mañana:\nServicio: %s\nFecha: %s\nLocal: %s\n\n¿Necesitas reprogramar? Responde a este mensaje.",
		d.ClientName, d.ServiceName, when, d.BranchName)
	if lang == locale.LangEnglish {
		body = fmt.Sprintf("Hi %s!\n\nA reminder of your appointment tomorrow:\nService: %s\nWhen: %s\nWhere: %s\n\nNeed to reschedule? Reply to this message.",
			d.ClientName, d.ServiceName, when, d.BranchName)
	}
	return Message{Kind: KindReminder, To: d.Phone, Body: body, Ref: d.AppointmentID}
}
