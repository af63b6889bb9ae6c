package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"komunitas/pendataan/internal/model"
)

var metaColumns = []string{
	"id", "user_id", "status", "created_at", "updated_at",
	"created_by", "verified_by", "verified_at", "rejection_reason", "admin_notes",
}

// dataColumns must stay in the order used by dataArgs and submissionScan.
var dataColumns = []string{
	"nama_depan", "nama_belakang", "nama_panggilan", "tempat_lahir", "tanggal_lahir",
	"usia", "jenis_kelamin", "identitas_gender", "agama",
	"nik", "nomor_kk", "kepemilikan_ektp", "memiliki_akta_kelahiran",
	"alamat_lengkap", "kota", "kecamatan", "kelurahan", "kode_pos", "status_tempat_tinggal",
	"nomor_telepon", "email", "nama_kontak_darurat", "nomor_kontak_darurat",
	"status_perkawinan", "pendidikan_terakhir", "pekerjaan", "status_pekerjaan",
	"penghasilan_bulanan", "jumlah_tanggungan",
	"pelatihan_diikuti", "pelatihan_diinginkan",
	"jenis_jaminan_sosial", "nomor_bpjs",
	"kondisi_kesehatan", "penyakit_kronis", "akses_layanan_kesehatan", "rutin_konsumsi_obat",
	"memiliki_disabilitas", "jenis_disabilitas",
	"pernah_diskriminasi", "jenis_diskriminasi", "pelaku_diskriminasi", "dilaporkan_ke_pihak_berwenang",
	"terdaftar_dtks", "bantuan_diterima", "keterangan_bantuan",
}

var submissionColumns = strings.Join(append(append([]string{}, metaColumns...), dataColumns...), ", ")

func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(parts, ", ")
}

// assignments renders "col = $n" pairs for an UPDATE.
func assignments(columns []string, from int) string {
	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = fmt.Sprintf("%s = $%d", column, from+i)
	}
	return strings.Join(parts, ", ")
}

func dataArgs(d model.Data) []any {
	return []any{
		d.NamaDepan, d.NamaBelakang, d.NamaPanggilan, d.TempatLahir, pgDate(d.TanggalLahir),
		d.Usia, d.JenisKelamin, d.IdentitasGender, d.Agama,
		d.NIK, d.NomorKK, d.KepemilikanEKTP, d.MemilikiAktaKelahiran,
		d.AlamatLengkap, d.Kota, d.Kecamatan, d.Kelurahan, d.KodePos, d.StatusTempatTinggal,
		d.NomorTelepon, d.Email, d.NamaKontakDarurat, d.NomorKontakDarurat,
		d.StatusPerkawinan, d.PendidikanTerakhir, d.Pekerjaan, d.StatusPekerjaan,
		pgNumeric(d.PenghasilanBulanan), d.JumlahTanggungan,
		pgList(d.PelatihanDiikuti), pgList(d.PelatihanDiinginkan),
		pgList(d.JenisJaminanSosial), d.NomorBPJS,
		d.KondisiKesehatan, pgList(d.PenyakitKronis), d.AksesLayananKesehatan, d.RutinKonsumsiObat,
		d.MemilikiDisabilitas, pgList(d.JenisDisabilitas),
		d.PernahDiskriminasi, pgList(d.JenisDiskriminasi), pgList(d.PelakuDiskriminasi), d.DilaporkanKePihakBerwenang,
		d.TerdaftarDTKS, pgList(d.BantuanDiterima), d.KeteranganBantuan,
	}
}

func submissionArgs(s model.Submission) []any {
	args := []any{
		s.ID, s.UserID, string(s.Status), s.CreatedAt, s.UpdatedAt,
		s.CreatedBy, s.VerifiedBy, s.VerifiedAt, s.RejectionReason, s.AdminNotes,
	}
	return append(args, dataArgs(s.Data)...)
}

// submissionScan collects scan destinations for one row and converts the
// column types that have no direct Go mapping.
type submissionScan struct {
	s      model.Submission
	status string
	birth  pgtype.Date
	income pgtype.Numeric
	lists  [8]pgtype.Text
}

func (r *submissionScan) dest() []any {
	s, d := &r.s, &r.s.Data
	return []any{
		&s.ID, &s.UserID, &r.status, &s.CreatedAt, &s.UpdatedAt,
		&s.CreatedBy, &s.VerifiedBy, &s.VerifiedAt, &s.RejectionReason, &s.AdminNotes,

		&d.NamaDepan, &d.NamaBelakang, &d.NamaPanggilan, &d.TempatLahir, &r.birth,
		&d.Usia, &d.JenisKelamin, &d.IdentitasGender, &d.Agama,
		&d.NIK, &d.NomorKK, &d.KepemilikanEKTP, &d.MemilikiAktaKelahiran,
		&d.AlamatLengkap, &d.Kota, &d.Kecamatan, &d.Kelurahan, &d.KodePos, &d.StatusTempatTinggal,
		&d.NomorTelepon, &d.Email, &d.NamaKontakDarurat, &d.NomorKontakDarurat,
		&d.StatusPerkawinan, &d.PendidikanTerakhir, &d.Pekerjaan, &d.StatusPekerjaan,
		&r.income, &d.JumlahTanggungan,
		&r.lists[0], &r.lists[1],
		&r.lists[2], &d.NomorBPJS,
		&d.KondisiKesehatan, &r.lists[3], &d.AksesLayananKesehatan, &d.RutinKonsumsiObat,
		&d.MemilikiDisabilitas, &r.lists[4],
		&d.PernahDiskriminasi, &r.lists[5], &r.lists[6], &d.DilaporkanKePihakBerwenang,
		&d.TerdaftarDTKS, &r.lists[7], &d.KeteranganBantuan,
	}
}

func (r *submissionScan) finish() (model.Submission, error) {
	s := r.s
	d := &s.Data
	s.Status = model.Status(r.status)
	if r.birth.Valid {
		date := model.NewDate(r.birth.Time.Year(), r.birth.Time.Month(), r.birth.Time.Day())
		d.TanggalLahir = &date
	}
	if r.income.Valid && r.income.Int != nil {
		income := decimal.NewFromBigInt(r.income.Int, r.income.Exp)
		d.PenghasilanBulanan = &income
	}
	targets := []*model.StringList{
		&d.PelatihanDiikuti, &d.PelatihanDiinginkan,
		&d.JenisJaminanSosial,
		&d.PenyakitKronis,
		&d.JenisDisabilitas,
		&d.JenisDiskriminasi, &d.PelakuDiskriminasi,
		&d.BantuanDiterima,
	}
	for i, target := range targets {
		if !r.lists[i].Valid {
			continue
		}
		if err := target.Scan(r.lists[i].String); err != nil {
			return model.Submission{}, fmt.Errorf("column %s: %w", multiColumns[i], err)
		}
	}
	return s, nil
}

var multiColumns = []string{
	"pelatihan_diikuti", "pelatihan_diinginkan", "jenis_jaminan_sosial", "penyakit_kronis",
	"jenis_disabilitas", "jenis_diskriminasi", "pelaku_diskriminasi", "bantuan_diterima",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (model.Submission, error) {
	var r submissionScan
	if err := row.Scan(r.dest()...); err != nil {
		return model.Submission{}, mapError(err)
	}
	return r.finish()
}

func pgDate(d *model.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.Time, Valid: true}
}

func pgNumeric(d *decimal.Decimal) pgtype.Numeric {
	if d == nil {
		return pgtype.Numeric{}
	}
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func pgList(l model.StringList) pgtype.Text {
	value, err := l.Value()
	if err != nil || value == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value.(string), Valid: true}
}
