package submission

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"komunitas/pendataan/internal/model"
)

var (
	sixteenDigitPattern = regexp.MustCompile(`^[0-9]{16}$`)
	phonePattern        = regexp.MustCompile(`^(\+62|62|0)[0-9]{9,12}$`)
	postalCodePattern   = regexp.MustCompile(`^[0-9]{5}$`)
)

func sixteenDigits(value string) string {
	if !sixteenDigitPattern.MatchString(value) {
		return "harus terdiri dari 16 digit angka"
	}
	return ""
}

func phoneNumber(value string) string {
	if !phonePattern.MatchString(value) {
		return "tidak valid, gunakan awalan +62, 62 atau 0 diikuti 9-12 digit"
	}
	return ""
}

func postalCode(value string) string {
	if !postalCodePattern.MatchString(value) {
		return "harus terdiri dari 5 digit angka"
	}
	return ""
}

func emailAddress(value string) string {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return "tidak valid"
	}
	return ""
}

// ValidNIK reports whether value is a well-formed national ID.
func ValidNIK(value string) bool {
	return sixteenDigitPattern.MatchString(value)
}

// ValidPhone reports whether value is an accepted Indonesian phone number.
func ValidPhone(value string) bool {
	return phonePattern.MatchString(value)
}

// coerce converts a raw payload value into the field's Go type. present is
// false when the value is absent or blank.
func (f Field) coerce(raw any) (value any, present bool, errs []FieldError) {
	if raw == nil {
		return nil, false, nil
	}
	fail := func(msg string) (any, bool, []FieldError) {
		return nil, true, []FieldError{{Field: f.Key, Message: f.Label + " " + msg}}
	}

	switch f.Kind {
	case KindText:
		text, ok := raw.(string)
		if !ok {
			return fail("harus berupa teks")
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, false, nil
		}
		if f.rule != nil {
			if msg := f.rule(text); msg != "" {
				return fail(msg)
			}
		}
		return text, true, nil

	case KindEnum:
		text, ok := raw.(string)
		if !ok {
			return fail("harus berupa teks")
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, false, nil
		}
		canonical, ok := matchOption(f.Options, text)
		if !ok {
			return fail("harus salah satu dari: " + strings.Join(f.Options, ", "))
		}
		return canonical, true, nil

	case KindBool:
		parsed, blank, ok := coerceBool(raw)
		if blank {
			return nil, false, nil
		}
		if !ok {
			return fail("harus bernilai ya atau tidak")
		}
		return parsed, true, nil

	case KindInt:
		parsed, blank, ok := coerceInt(raw)
		if blank {
			return nil, false, nil
		}
		if !ok {
			return fail("harus berupa bilangan bulat")
		}
		if f.NonNegative && parsed < 0 {
			return fail("tidak boleh negatif")
		}
		if f.Upper > 0 && parsed > f.Upper {
			return fail(fmt.Sprintf("tidak boleh lebih dari %d", f.Upper))
		}
		return parsed, true, nil

	case KindDecimal:
		parsed, blank, ok := coerceDecimal(raw)
		if blank {
			return nil, false, nil
		}
		if !ok {
			return fail("harus berupa angka")
		}
		if f.NonNegative && parsed.IsNegative() {
			return fail("tidak boleh negatif")
		}
		return parsed, true, nil

	case KindDate:
		parsed, blank, ok := coerceDate(raw)
		if blank {
			return nil, false, nil
		}
		if !ok {
			return fail("harus berformat YYYY-MM-DD")
		}
		return parsed, true, nil

	case KindMulti:
		return f.coerceMulti(raw)
	}
	return fail("memiliki tipe yang tidak dikenal")
}

func (f Field) coerceMulti(raw any) (any, bool, []FieldError) {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		for _, item := range v {
			items = append(items, item)
		}
	case model.StringList:
		for _, item := range v {
			items = append(items, item)
		}
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return []string{}, true, nil
		}
		if strings.HasPrefix(text, "[") {
			var decoded []string
			if err := json.Unmarshal([]byte(text), &decoded); err != nil {
				return nil, true, []FieldError{{Field: f.Key, Message: f.Label + " harus berupa daftar pilihan"}}
			}
			for _, item := range decoded {
				items = append(items, item)
			}
		} else {
			items = []any{text}
		}
	default:
		return nil, true, []FieldError{{Field: f.Key, Message: f.Label + " harus berupa daftar pilihan"}}
	}

	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	var errs []FieldError
	for i, item := range items {
		path := fmt.Sprintf("%s[%d]", f.Key, i)
		text, ok := item.(string)
		if !ok {
			errs = append(errs, FieldError{Field: path, Message: f.Label + " harus berisi teks"})
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			errs = append(errs, FieldError{Field: path, Message: f.Label + " tidak boleh berisi pilihan kosong"})
			continue
		}
		if len(f.Options) > 0 {
			canonical, ok := matchOption(f.Options, text)
			if !ok {
				errs = append(errs, FieldError{Field: path, Message: fmt.Sprintf("%s: pilihan %q tidak dikenal", f.Label, text)})
				continue
			}
			text = canonical
		}
		if seen[text] {
			errs = append(errs, FieldError{Field: path, Message: fmt.Sprintf("%s: pilihan %q dipilih lebih dari sekali", f.Label, text)})
			continue
		}
		seen[text] = true
		out = append(out, text)
	}
	if len(errs) > 0 {
		return nil, true, errs
	}
	return out, true, nil
}

func matchOption(options []string, value string) (string, bool) {
	for _, option := range options {
		if strings.EqualFold(option, value) {
			return option, true
		}
	}
	return "", false
}

func coerceBool(raw any) (value bool, blank bool, ok bool) {
	switch v := raw.(type) {
	case bool:
		return v, false, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "":
			return false, true, false
		case "true", "ya", "1":
			return true, false, true
		case "false", "tidak", "0":
			return false, false, true
		}
	}
	return false, false, false
}

func coerceInt(raw any) (value int, blank bool, ok bool) {
	switch v := raw.(type) {
	case int:
		return v, false, true
	case int32:
		return int(v), false, true
	case int64:
		return int(v), false, true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, false, false
		}
		// MaxInt itself rounds up to 2^63 as a float64
		if v < math.MinInt || v >= math.MaxInt {
			return 0, false, false
		}
		return int(v), false, true
	case json.Number:
		parsed, err := strconv.Atoi(v.String())
		return parsed, false, err == nil
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return 0, true, false
		}
		parsed, err := strconv.Atoi(text)
		return parsed, false, err == nil
	}
	return 0, false, false
}

func coerceDecimal(raw any) (value decimal.Decimal, blank bool, ok bool) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, false, true
	case int:
		return decimal.NewFromInt(int64(v)), false, true
	case int64:
		return decimal.NewFromInt(v), false, true
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return decimal.Decimal{}, false, false
		}
		return decimal.NewFromFloat(v), false, true
	case json.Number:
		parsed, err := decimal.NewFromString(v.String())
		return parsed, false, err == nil
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return decimal.Decimal{}, true, false
		}
		parsed, err := decimal.NewFromString(text)
		return parsed, false, err == nil
	}
	return decimal.Decimal{}, false, false
}

func coerceDate(raw any) (value model.Date, blank bool, ok bool) {
	switch v := raw.(type) {
	case model.Date:
		return v, false, true
	case time.Time:
		return model.NewDate(v.Year(), v.Month(), v.Day()), false, true
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return model.Date{}, true, false
		}
		if parsed, err := model.ParseDate(text); err == nil {
			return parsed, false, true
		}
		if parsed, err := time.Parse(time.RFC3339, text); err == nil {
			return model.NewDate(parsed.Year(), parsed.Month(), parsed.Day()), false, true
		}
	}
	return model.Date{}, false, false
}
