package submission

import (
	"github.com/shopspring/decimal"

	"komunitas/pendataan/internal/model"
)

type Kind string

const (
	KindText    Kind = "text"
	KindEnum    Kind = "enum"
	KindBool    Kind = "bool"
	KindInt     Kind = "int"
	KindDecimal Kind = "decimal"
	KindDate    Kind = "date"
	KindMulti   Kind = "multi"
)

// Field describes one intake field. Options is the closed vocabulary for
// enum fields and closed multi-select fields; a multi-select field with no
// Options accepts any non-empty element.
type Field struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Kind        Kind     `json:"kind"`
	Options     []string `json:"options,omitempty"`
	NonNegative bool     `json:"nonNegative,omitempty"`
	Upper       int      `json:"upper,omitempty"`

	rule func(string) string
	acc  accessor
}

type Section struct {
	Key    string  `json:"key"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

var (
	genderOptions       = []string{"Laki-laki", "Perempuan"}
	religionOptions     = []string{"Islam", "Kristen Protestan", "Katolik", "Hindu", "Buddha", "Konghucu", "Penghayat Kepercayaan"}
	ektpOptions         = []string{"Memiliki", "Tidak Memiliki", "Dalam Proses"}
	residenceOptions    = []string{"Milik Sendiri", "Sewa/Kontrak", "Menumpang", "Lainnya"}
	maritalOptions      = []string{"Belum Kawin", "Kawin", "Cerai"}
	educationOptions    = []string{"Tidak Sekolah", "SD", "SMP", "SMA/SMK", "Diploma", "S1", "S2", "S3"}
	employmentOptions   = []string{"Bekerja", "Wirausaha", "Tidak Bekerja", "Pelajar/Mahasiswa"}
	insuranceOptions    = []string{"BPJS Kesehatan", "BPJS Ketenagakerjaan", "Asuransi Swasta"}
	healthOptions       = []string{"Sehat", "Sakit Ringan", "Sakit Kronis"}
	disabilityOptions   = []string{"Fisik", "Sensorik", "Intelektual", "Mental"}
	discriminationTypes = []string{"Fisik", "Verbal", "Psikis", "Seksual", "Ekonomi", "Sosial"}
	assistanceOptions   = []string{"PKH", "BPNT", "BLT", "PIP", "KIS", "Lainnya"}
)

// sections is the intake form in declaration order. Error ordering follows
// this table.
var sections = []Section{
	{Key: "dataPribadi", Title: "Data Pribadi", Fields: []Field{
		{Key: "namaDepan", Label: "Nama depan", Kind: KindText, acc: str(func(d *model.Data) *string { return &d.NamaDepan })},
		{Key: "namaBelakang", Label: "Nama belakang", Kind: KindText, acc: opt(func(d *model.Data) **string { return &d.NamaBelakang })},
		{Key: "namaPanggilan", Label: "Nama panggilan", Kind: KindText, acc: opt(func(d *model.Data) **string { return &d.NamaPanggilan })},
		{Key: "tempatLahir", Label: "Tempat lahir", Kind: KindText, acc: opt(func(d *model.Data) **string { return &d.TempatLahir })},
		{Key: "tanggalLahir", Label: "Tanggal lahir", Kind: KindDate, acc: opt(func(d *model.Data) **model.Date { return &d.TanggalLahir })},
		{Key: "usia", Label: "Usia", Kind: KindInt, NonNegative: true, Upper: 150, acc: opt(func(d *model.Data) **int { return &d.Usia })},
		{Key: "jenisKelamin", Label: "Jenis kelamin", Kind: KindEnum, Options: genderOptions, acc: opt(func(d *model.Data) **string { return &d.JenisKelamin })},
		{Key: "identitasGender", Label: "Identitas gender", Kind: KindText, acc: opt(func(d *model.Data) **string { return &d.IdentitasGender })},
		{Key: "agama", Label: "Agama", Kind: KindEnum, Options: religionOptions, acc: opt(func(d *model.Data) **string { return &d.Agama })},
	}},
	{Key: "dokumenIdentitas", Title: "Dokumen Identitas", Fields: []Field{
		{Key: "nik", Label: "NIK", Kind: KindText, rule: sixteenDigits, acc: str(func(d *model.Data) *string { return &d.NIK })},
		{Key: "nomorKK", Label: "Nomor KK", Kind: KindText, rule: sixteenDigits, acc: opt(func(d *model.Data) **string { return &d.NomorKK })},
		{Key: "kepemilikanEKTP", Label: "Kepemilikan e-KTP", Kind: KindEnum, Options: ektpOptions, acc: str(func(d *model.Data) *string { return &d.KepemilikanEKTP })},
		{Key: "memilikiAktaKelahiran", Label: "Kepemilikan akta kelahiran", Kind: KindBool, acc: opt(func(d *model.Data) **bool { return &d.MemilikiAktaKelahiran })},
	}},
	{Key: "alamat", Title: "Alamat", Fields: []Field{
		{Key: "alamatLengkap", Label: "Alamat lengkap", Kind: KindText, acc: str(func(d *model.Data) *string { return &d.AlamatLengkap })},
		{Key: "kota", Label: "Kota/Kabupaten", Kind: KindText, acc: str(func(d *model.Data) *string { return &d.Kota })},
		{Key: "kecamatan", Label: "Kecamatan", Kind: KindText, acc: opt(func(d *model.Data) **string { return &d.Kecamatan })},
		{Key: "kelurahan", Label: "Kelurahan/Desa", Kind: KindText, acc: opt(func(d *model.Data) **string { return &d.Kelurahan })},
		{Key: "kodePos", Label: "Kode pos", Kind: KindText, rule: postalCode, acc: opt(func(d *model.Data) **string { return &d.KodePos })},
		{Key: "statusTempatTinggal", Label: "Status tempat tinggal", Kind: KindEnum, Options: residenceOptions, acc: opt(func(d *model.Data) **string { return &d.StatusTempatTinggal })},
	}},
	{Key: "kontak", Title: "Kontak", Fields: []Field{
		{Key: "nomorTelepon", Label: "Nomor telepon", Kind: KindText, rule: phoneNumber, acc: str(func(d *model.Data) *string { return &d.NomorTelepon })},
		{Key: "email", Label: "Email", Kind: KindText, rule: emailAddress, acc: opt(func(d *model.Data) **string { return &d.Email })},
		{Key: "namaKontakDarurat", Label: "Nama kontak darurat", Kind: KindText, acc: opt(func(d *model.Data) **string { return &d.NamaKontakDarurat })},
		{Key: "nomorKontakDarurat", Label: "Nomor kontak darurat", Kind: KindText, rule: phoneNumber, acc: opt(func(d *model.Data) **string { return &d.NomorKontakDarurat })},
	}},
	{Key: "pekerjaanEkonomi", Title: "Pekerjaan dan Ekonomi", Fields: []Field{
		{Key: "statusPerkawinan", Label: "Status perkawinan", Kind: KindEnum, Options: maritalOptions, acc: str(func(d *model.Data) *string { return &d.StatusPerkawinan })},
		{Key: "pendidikanTerakhir", Label: "Pendidikan terakhir", Kind: KindEnum, Options: educationOptions, acc: str(func(d *model.Data) *string { return &d.PendidikanTerakhir })},
		{Key: "pekerjaan", Label: "Pekerjaan", Kind: KindText, acc: opt(func(d *model.Data) **string { return &d.Pekerjaan })},
		{Key: "statusPekerjaan", Label: "Status pekerjaan", Kind: KindEnum, Options: employmentOptions, acc: opt(func(d *model.Data) **string { return &d.StatusPekerjaan })},
		{Key: "penghasilanBulanan", Label: "Penghasilan bulanan", Kind: KindDecimal, NonNegative: true, acc: opt(func(d *model.Data) **decimal.Decimal { return &d.PenghasilanBulanan })},
		{Key: "jumlahTanggungan", Label: "Jumlah tanggungan", Kind: KindInt, NonNegative: true, acc: opt(func(d *model.Data) **int { return &d.JumlahTanggungan })},
	}},
	{Key: "riwayatPelatihan", Title: "Riwayat Pelatihan", Fields: []Field{
		{Key: "pelatihanDiikuti", Label: "Pelatihan yang pernah diikuti", Kind: KindMulti, acc: list(func(d *model.Data) *model.StringList { return &d.PelatihanDiikuti })},
		{Key: "pelatihanDiinginkan", Label: "Pelatihan yang diinginkan", Kind: KindMulti, acc: list(func(d *model.Data) *model.StringList { return &d.PelatihanDiinginkan })},
	}},
	{Key: "jaminanSosial", Title: "Jaminan Sosial", Fields: []Field{
		{Key: "jenisJaminanSosial", Label: "Jenis jaminan sosial", Kind: KindMulti, Options: insuranceOptions, acc: list(func(d *model.Data) *model.StringList { return &d.JenisJaminanSosial })},
		{Key: "nomorBPJS", Label: "Nomor BPJS", Kind: KindText, acc: opt(func(d *model.Data) **string { return &d.NomorBPJS })},
	}},
	{Key: "kesehatan", Title: "Kesehatan", Fields: []Field{
		{Key: "kondisiKesehatan", Label: "Kondisi kesehatan", Kind: KindEnum, Options: healthOptions, acc: opt(func(d *model.Data) **string { return &d.KondisiKesehatan })},
		{Key: "penyakitKronis", Label: "Penyakit kronis", Kind: KindMulti, acc: list(func(d *model.Data) *model.StringList { return &d.PenyakitKronis })},
		{Key: "aksesLayananKesehatan", Label: "Akses layanan kesehatan", Kind: KindBool, acc: opt(func(d *model.Data) **bool { return &d.AksesLayananKesehatan })},
		{Key: "rutinKonsumsiObat", Label: "Rutin konsumsi obat", Kind: KindBool, acc: opt(func(d *model.Data) **bool { return &d.RutinKonsumsiObat })},
	}},
	{Key: "disabilitas", Title: "Disabilitas", Fields: []Field{
		{Key: "memilikiDisabilitas", Label: "Memiliki disabilitas", Kind: KindBool, acc: opt(func(d *model.Data) **bool { return &d.MemilikiDisabilitas })},
		{Key: "jenisDisabilitas", Label: "Jenis disabilitas", Kind: KindMulti, Options: disabilityOptions, acc: list(func(d *model.Data) *model.StringList { return &d.JenisDisabilitas })},
	}},
	{Key: "diskriminasi", Title: "Riwayat Diskriminasi", Fields: []Field{
		{Key: "pernahDiskriminasi", Label: "Pernah mengalami diskriminasi", Kind: KindBool, acc: opt(func(d *model.Data) **bool { return &d.PernahDiskriminasi })},
		{Key: "jenisDiskriminasi", Label: "Jenis diskriminasi", Kind: KindMulti, Options: discriminationTypes, acc: list(func(d *model.Data) *model.StringList { return &d.JenisDiskriminasi })},
		{Key: "pelakuDiskriminasi", Label: "Pelaku diskriminasi", Kind: KindMulti, acc: list(func(d *model.Data) *model.StringList { return &d.PelakuDiskriminasi })},
		{Key: "dilaporkanKePihakBerwenang", Label: "Dilaporkan ke pihak berwenang", Kind: KindBool, acc: opt(func(d *model.Data) **bool { return &d.DilaporkanKePihakBerwenang })},
	}},
	{Key: "bantuanSosial", Title: "Bantuan Sosial", Fields: []Field{
		{Key: "terdaftarDTKS", Label: "Terdaftar DTKS", Kind: KindBool, acc: opt(func(d *model.Data) **bool { return &d.TerdaftarDTKS })},
		{Key: "bantuanDiterima", Label: "Bantuan yang diterima", Kind: KindMulti, Options: assistanceOptions, acc: list(func(d *model.Data) *model.StringList { return &d.BantuanDiterima })},
		{Key: "keteranganBantuan", Label: "Keterangan bantuan", Kind: KindText, acc: opt(func(d *model.Data) **string { return &d.KeteranganBantuan })},
	}},
}

// Sections returns a copy of the form layout, suitable for rendering.
func Sections() []Section {
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}

// MultiSelectKeys lists the keys of every multi-select field.
func MultiSelectKeys() []string {
	var keys []string
	for _, section := range sections {
		for _, field := range section.Fields {
			if field.Kind == KindMulti {
				keys = append(keys, field.Key)
			}
		}
	}
	return keys
}

func lookupField(key string) (Field, bool) {
	for _, section := range sections {
		for _, field := range section.Fields {
			if field.Key == key {
				return field, true
			}
		}
	}
	return Field{}, false
}

type accessor struct {
	get func(*model.Data) any
	set func(*model.Data, any)
}

func str(p func(*model.Data) *string) accessor {
	return accessor{
		get: func(d *model.Data) any {
			if v := *p(d); v != "" {
				return v
			}
			return nil
		},
		set: func(d *model.Data, v any) {
			*p(d) = v.(string)
		},
	}
}

func opt[T any](p func(*model.Data) **T) accessor {
	return accessor{
		get: func(d *model.Data) any {
			if v := *p(d); v != nil {
				return *v
			}
			return nil
		},
		set: func(d *model.Data, v any) {
			typed := v.(T)
			*p(d) = &typed
		},
	}
}

func list(p func(*model.Data) *model.StringList) accessor {
	return accessor{
		get: func(d *model.Data) any {
			if v := *p(d); v != nil {
				return []string(v)
			}
			return nil
		},
		set: func(d *model.Data, v any) {
			*p(d) = model.StringList(v.([]string))
		},
	}
}
