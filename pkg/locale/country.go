package locale

import (
	"fmt"
	"time"

	"github.com/nyaruka/phonenumbers"
)

const (
	LangSpanish = "es"
	LangEnglish = "en"
)

type Country struct {
	Code     string // ISO 3166-1 alpha-2
	Name     string
	Language string // WhatsApp template language code
}

var (
	Countries = map[string]Country{
		"PE": {Code: "PE", Name: "Perú", Language: LangSpanish},
		"US": {Code: "US", Name: "United States", Language: LangEnglish},
	}

	defaultCountry = Countries["PE"]
)

// ForPhone resolves the country of an E.164 number, falling back to Peru.
func ForPhone(e164 string) Country {
	parsed, err := phonenumbers.Parse(e164, defaultCountry.Code)
	if err != nil {
		return defaultCountry
	}
	if c, ok := Countries[phonenumbers.GetRegionCodeForNumber(parsed)]; ok {
		return c
	}
	return defaultCountry
}

var (
	spanishWeekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	spanishMonths   = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

// FormatAppointmentTime renders t in loc for a client-facing message, e.g.
// "martes 12 de mayo, 10:30" or "Tuesday, May 12 at 10:30".
func FormatAppointmentTime(t time.Time, loc *time.Location, lang string) string {
	if loc != nil {
		t = t.In(loc)
	}
	if lang == LangEnglish {
		return t.Format("Monday, January 2 at 15:04")
	}
	return fmt.Sprintf("%s %d de %s, %s",
		spanishWeekdays[t.Weekday()],
		t.Day(),
		spanishMonths[t.Month()-1],
		t.Format("15:04"),
	)
}
