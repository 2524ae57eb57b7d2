package model

import "strings"

const (
	DocumentDNI       = "dni"
	DocumentPasaporte = "pasaporte"
	DocumentCE        = "ce"

	GenderMale   = "M"
	GenderFemale = "F"
)

// ClientDraft carries the identity and contact details collected by send-otp.
type ClientDraft struct {
	PhoneNumber     string `json:"phone_number" bson:"phone_number" validate:"required,phone_e164"`
	DocumentType    string `json:"document_type" bson:"document_type" validate:"required,oneof=dni pasaporte ce"`
	DocumentNumber  string `json:"document_number" bson:"document_number" validate:"required,min=6,max=20,alphanum,document_number"`
	FirstName       string `json:"first_name" bson:"first_name" validate:"required,min=2,max=100"`
	LastNamePaterno string `json:"last_name_paterno" bson:"last_name_paterno" validate:"required,min=2,max=100"`
	LastNameMaterno string `json:"last_name_materno,omitempty" bson:"last_name_materno,omitempty" validate:"omitempty,max=100"`
	Email           string `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email,max=254"`
	Gender          string `json:"gender,omitempty" bson:"gender,omitempty" validate:"omitempty,oneof=M F"`
	BirthDate       string `json:"birth_date,omitempty" bson:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02,past_date"`
	PhotoRef        string `json:"photo_ref,omitempty" bson:"photo_ref,omitempty"`
}

func (d ClientDraft) FullName() string {
	parts := []string{d.FirstName, d.LastNamePaterno}
	if d.LastNameMaterno != "" {
		parts = append(parts, d.LastNameMaterno)
	}
	return strings.Join(parts, " ")
}
