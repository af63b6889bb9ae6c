package submission

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"komunitas/pendataan/internal/model"
)

func validPayload() map[string]any {
	return map[string]any{
		"namaDepan":          "Sari",
		"nik":                "1234567890123456",
		"kepemilikanEKTP":    "Memiliki",
		"alamatLengkap":      "Jl. Melati No. 3",
		"kota":               "Bandung",
		"nomorTelepon":       "081234567890",
		"statusPerkawinan":   "Belum Kawin",
		"pendidikanTerakhir": "SMA/SMK",
	}
}

func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Errors
}

func hasField(errs []FieldError, key string) bool {
	for _, fe := range errs {
		if fe.Field == key {
			return true
		}
	}
	return false
}

func TestValidateAcceptsMinimalPayload(t *testing.T) {
	payload := validPayload()
	payload["jenisDiskriminasi"] = []any{"Fisik"}

	data, err := Validate(Admin, payload)
	require.NoError(t, err)
	assert.Equal(t, "1234567890123456", data.NIK)
	assert.Equal(t, model.StringList{"Fisik"}, data.JenisDiskriminasi)
	assert.Nil(t, data.NomorKK)
	assert.Nil(t, data.PelatihanDiikuti)
}

func TestValidateEachMissingRequiredField(t *testing.T) {
	for _, key := range baseRequired {
		t.Run(key, func(t *testing.T) {
			payload := validPayload()
			delete(payload, key)

			_, err := Validate(Admin, payload)
			errs := fieldErrors(t, err)
			require.NotEmpty(t, errs)
			assert.Equal(t, key, errs[0].Field)
		})
	}
}

func TestValidateErrorsFollowFormOrder(t *testing.T) {
	payload := validPayload()
	delete(payload, "pendidikanTerakhir")
	delete(payload, "kota")
	delete(payload, "namaDepan")
	payload["usia"] = -3

	_, err := Validate(Admin, payload)
	errs := fieldErrors(t, err)

	var keys []string
	for _, fe := range errs {
		keys = append(keys, fe.Field)
	}
	assert.Equal(t, []string{"namaDepan", "usia", "kota", "pendidikanTerakhir"}, keys)
}

func TestValidateReportsEveryError(t *testing.T) {
	_, err := Validate(Admin, map[string]any{})
	errs := fieldErrors(t, err)
	assert.Len(t, errs, len(baseRequired))
}

func TestNIKFormat(t *testing.T) {
	bad := []string{"123", "12345678901234567", "123456789012345a", "12345678 0123456", "１２３４５６７８９０１２３４５６"}
	for _, nik := range bad {
		payload := validPayload()
		payload["nik"] = nik
		_, err := Validate(Admin, payload)
		assert.True(t, hasField(fieldErrors(t, err), "nik"), "expected %q to fail", nik)
		assert.False(t, ValidNIK(nik))
	}

	for _, nik := range []string{"0000000000000000", "3273010101900001", "9999999999999999"} {
		payload := validPayload()
		payload["nik"] = nik
		_, err := Validate(Admin, payload)
		assert.NoError(t, err, nik)
		assert.True(t, ValidNIK(nik))
	}
}

func TestPhoneFormat(t *testing.T) {
	cases := map[string]bool{
		"081234567890":    true,
		"+6281234567890":  true,
		"628123456789":    true,
		"0812":            false,
		"+1 555 123 4567": false,
		"08123456789012":  false,
	}
	for phone, ok := range cases {
		assert.Equal(t, ok, ValidPhone(phone), phone)
	}
}

func TestEnumCanonicalizesAndRejects(t *testing.T) {
	payload := validPayload()
	payload["statusPerkawinan"] = "kawin"
	data, err := Validate(Admin, payload)
	require.NoError(t, err)
	assert.Equal(t, "Kawin", data.StatusPerkawinan)

	payload["statusPerkawinan"] = "Duda"
	_, err = Validate(Admin, payload)
	errs := fieldErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "statusPerkawinan", errs[0].Field)
	assert.True(t, strings.HasPrefix(errs[0].Message, "Status perkawinan"))
}

func TestMultiSelectVocabulary(t *testing.T) {
	payload := validPayload()
	payload["jenisDiskriminasi"] = []any{"Fisik", "Tidak Ada"}
	payload["pelatihanDiikuti"] = []any{"Menjahit", "Tata Boga"}
	_, err := Validate(Admin, payload)
	errs := fieldErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "jenisDiskriminasi[1]", errs[0].Field)

	payload["jenisDiskriminasi"] = `["verbal","Fisik","Verbal"]`
	_, err = Validate(Admin, payload)
	errs = fieldErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "jenisDiskriminasi[2]", errs[0].Field)

	payload["pelatihanDiikuti"] = []any{"Menjahit", "Memasak", "Menjahit"}
	_, err = Validate(Admin, payload)
	assert.True(t, hasField(fieldErrors(t, err), "pelatihanDiikuti[2]"))

	payload["jenisDiskriminasi"] = `["verbal","Fisik"]`
	payload["pelatihanDiikuti"] = []any{"Menjahit", "Tata Boga"}
	data, err := Validate(Admin, payload)
	require.NoError(t, err)
	assert.Equal(t, model.StringList{"Verbal", "Fisik"}, data.JenisDiskriminasi)
	assert.Equal(t, model.StringList{"Menjahit", "Tata Boga"}, data.PelatihanDiikuti)

	payload["pelatihanDiikuti"] = []any{"Menjahit", ""}
	_, err = Validate(Admin, payload)
	assert.True(t, hasField(fieldErrors(t, err), "pelatihanDiikuti[1]"))
}

func TestNumericBounds(t *testing.T) {
	payload := validPayload()
	payload["usia"] = 151
	_, err := Validate(Admin, payload)
	assert.True(t, hasField(fieldErrors(t, err), "usia"))

	payload["usia"] = "42"
	payload["penghasilanBulanan"] = "-1"
	_, err = Validate(Admin, payload)
	errs := fieldErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "penghasilanBulanan", errs[0].Field)

	payload["penghasilanBulanan"] = json.Number("2500000.50")
	payload["jumlahTanggungan"] = float64(2)
	data, err := Validate(Admin, payload)
	require.NoError(t, err)
	require.NotNil(t, data.Usia)
	assert.Equal(t, 42, *data.Usia)
	assert.True(t, data.PenghasilanBulanan.Equal(decimal.RequireFromString("2500000.5")))
	assert.Equal(t, 2, *data.JumlahTanggungan)

	payload["jumlahTanggungan"] = float64(1e300)
	_, err = Validate(Admin, payload)
	errs = fieldErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "jumlahTanggungan", errs[0].Field)
	assert.Contains(t, errs[0].Message, "bilangan bulat")

	payload["jumlahTanggungan"] = float64(-1e300)
	_, err = Validate(Admin, payload)
	errs = fieldErrors(t, err)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "bilangan bulat")
}

func TestBooleansAndDates(t *testing.T) {
	payload := validPayload()
	payload["terdaftarDTKS"] = "ya"
	payload["memilikiDisabilitas"] = false
	payload["tanggalLahir"] = "1990-05-17"
	data, err := Validate(Admin, payload)
	require.NoError(t, err)
	assert.True(t, *data.TerdaftarDTKS)
	assert.False(t, *data.MemilikiDisabilitas)
	assert.Equal(t, "1990-05-17", data.TanggalLahir.String())

	payload["tanggalLahir"] = "17/05/1990"
	payload["terdaftarDTKS"] = "mungkin"
	_, err = Validate(Admin, payload)
	errs := fieldErrors(t, err)
	assert.Equal(t, "tanggalLahir", errs[0].Field)
	assert.Equal(t, "terdaftarDTKS", errs[1].Field)
}

func TestProfiles(t *testing.T) {
	_, err := Validate(Public, validPayload())
	errs := fieldErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "nomorKK", errs[0].Field)

	payload := validPayload()
	payload["nomorKK"] = "6543210987654321"
	_, err = Validate(Public, payload)
	require.NoError(t, err)

	draft, err := Validate(Draft, map[string]any{"namaDepan": "Sari", "nik": "1234567890123456"})
	require.NoError(t, err)
	assert.Equal(t, "Sari", draft.NamaDepan)

	_, err = Validate(Draft, map[string]any{"namaDepan": "Sari", "nik": "1234567890123456", "nomorKK": "12"})
	assert.True(t, hasField(fieldErrors(t, err), "nomorKK"))
}

func TestPayloadRevalidates(t *testing.T) {
	payload := validPayload()
	payload["jenisKelamin"] = "Perempuan"
	payload["tanggalLahir"] = "1990-05-17"
	payload["penghasilanBulanan"] = "1500000"
	payload["usia"] = 34
	payload["jenisDisabilitas"] = []any{}
	payload["bantuanDiterima"] = []string{"PKH", "BLT"}

	data, err := Validate(Admin, payload)
	require.NoError(t, err)

	again, err := Validate(Admin, Payload(data))
	require.NoError(t, err)
	assert.Equal(t, data.NIK, again.NIK)
	assert.Equal(t, data.TanggalLahir.String(), again.TanggalLahir.String())
	assert.True(t, data.PenghasilanBulanan.Equal(*again.PenghasilanBulanan))
	assert.Equal(t, model.StringList{}, again.JenisDisabilitas)
	assert.Equal(t, model.StringList{"PKH", "BLT"}, again.BantuanDiterima)
}

func TestKeepLists(t *testing.T) {
	previous := model.Data{JenisDiskriminasi: model.StringList{"Fisik"}}
	next := KeepLists(previous, model.Data{NamaDepan: "Sari"})
	assert.NotNil(t, next.JenisDiskriminasi)
	assert.Empty(t, next.JenisDiskriminasi)
	assert.Nil(t, next.PelatihanDiikuti)
}

func TestSectionsLayout(t *testing.T) {
	layout := Sections()
	require.Len(t, layout, 11)
	assert.Equal(t, "dataPribadi", layout[0].Key)
	assert.Equal(t, "bantuanSosial", layout[10].Key)

	total := 0
	for _, section := range layout {
		total += len(section.Fields)
	}
	assert.Equal(t, 46, total)
}

func TestRequiredKeys(t *testing.T) {
	assert.Equal(t, []string{"namaDepan", "nik"}, Draft.RequiredKeys())
	assert.Len(t, Admin.RequiredKeys(), 8)
	assert.Equal(t, []string{"namaDepan", "nik", "nomorKK", "kepemilikanEKTP"}, Public.RequiredKeys()[:4])

	p, ok := ProfileByName("public")
	require.True(t, ok)
	assert.True(t, p.Required("nomorKK"))
	_, ok = ProfileByName("other")
	assert.False(t, ok)
}
