package submission

import (
	"fmt"
	"strings"

	"komunitas/pendataan/internal/model"
)

var baseRequired = []string{
	"namaDepan",
	"nik",
	"kepemilikanEKTP",
	"alamatLengkap",
	"kota",
	"nomorTelepon",
	"statusPerkawinan",
	"pendidikanTerakhir",
}

// Profile selects which fields are required. Field rules apply under every
// profile.
type Profile struct {
	Name     string
	required map[string]bool
}

func newProfile(name string, keys ...string) Profile {
	required := make(map[string]bool, len(keys))
	for _, key := range keys {
		required[key] = true
	}
	return Profile{Name: name, required: required}
}

var (
	// Admin is used for records entered by an administrator.
	Admin = newProfile("admin", baseRequired...)
	// Public is the self-submission path, which also requires the family card.
	Public = newProfile("public", append(append([]string{}, baseRequired...), "nomorKK")...)
	// Draft accepts work in progress.
	Draft = newProfile("draft", "namaDepan", "nik")
)

func (p Profile) Required(key string) bool {
	return p.required[key]
}

// RequiredKeys lists the required field keys in form order.
func (p Profile) RequiredKeys() []string {
	var keys []string
	for _, section := range sections {
		for _, field := range section.Fields {
			if p.required[field.Key] {
				keys = append(keys, field.Key)
			}
		}
	}
	return keys
}

// ProfileByName resolves admin, public or draft.
func ProfileByName(name string) (Profile, bool) {
	for _, p := range []Profile{Admin, Public, Draft} {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violated rule in form order.
type ValidationError struct {
	Profile string
	Errors  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// First returns the earliest error in form order.
func (e *ValidationError) First() FieldError {
	if len(e.Errors) == 0 {
		return FieldError{}
	}
	return e.Errors[0]
}

func (s Section) validate(p Profile, payload map[string]any, data *model.Data) []FieldError {
	var errs []FieldError
	for _, field := range s.Fields {
		value, present, fieldErrs := field.coerce(payload[field.Key])
		if len(fieldErrs) > 0 {
			errs = append(errs, fieldErrs...)
			continue
		}
		if !present {
			if p.Required(field.Key) {
				errs = append(errs, FieldError{Field: field.Key, Message: field.Label + " wajib diisi"})
			}
			continue
		}
		field.acc.set(data, value)
	}
	return errs
}

// Validate normalizes payload into typed intake data. On failure it returns a
// *ValidationError holding the complete list.
func Validate(p Profile, payload map[string]any) (model.Data, error) {
	var (
		data model.Data
		errs []FieldError
	)
	for _, section := range sections {
		errs = append(errs, section.validate(p, payload, &data)...)
	}
	if len(errs) > 0 {
		return model.Data{}, &ValidationError{Profile: p.Name, Errors: errs}
	}
	return data, nil
}

// Payload converts stored data back into a raw payload that Validate accepts.
// Absent optional fields are omitted; multi-select fields that hold a list,
// even an empty one, are included.
func Payload(data model.Data) map[string]any {
	out := make(map[string]any)
	for _, section := range sections {
		for _, field := range section.Fields {
			if v := field.acc.get(&data); v != nil {
				out[field.Key] = v
			}
		}
	}
	return out
}

// KeepLists returns next with every multi-select that previous had stored but
// next omits set to an explicit empty list. A stored list never reverts to NULL.
func KeepLists(previous, next model.Data) model.Data {
	for _, key := range MultiSelectKeys() {
		field, _ := lookupField(key)
		if field.acc.get(&previous) != nil && field.acc.get(&next) == nil {
			field.acc.set(&next, []string{})
		}
	}
	return next
}
